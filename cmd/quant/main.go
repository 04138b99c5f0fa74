package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"chanlun-quant-go/internal/barstore"
	"chanlun-quant-go/internal/chanlun"
	"chanlun-quant-go/internal/config"
	"chanlun-quant-go/internal/engine"
	"chanlun-quant-go/internal/indicator"
	"chanlun-quant-go/internal/logger"
	"chanlun-quant-go/internal/models"
	"chanlun-quant-go/internal/reporter"
	"chanlun-quant-go/internal/strategy"
)

// 进程退出码
const (
	exitOK       = 0
	exitBadArgs  = 1
	exitNoData   = 2
	exitInternal = 3
)

type cliOptions struct {
	configPath string
	mode       string
	strategy   string
	symbol     string
	symbolFile string
	engineKind string
	period     string
	interval   string
	adjust     string
	start      string
	end        string
	outDir     string
	scanLast   int
	noCache    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := &cliOptions{}
	flag.StringVar(&opts.configPath, "config", "config.json", "配置文件路径")
	flag.StringVar(&opts.mode, "mode", "analyze", "运行模式: batch / analyze / prefetch / scan")
	flag.StringVar(&opts.strategy, "strategy", "", "策略名，留空使用配置文件中的值")
	flag.StringVar(&opts.symbol, "symbol", "", "单个标的代码, 如 sh600036")
	flag.StringVar(&opts.symbolFile, "symbols", "", "标的列表文件，每行一个代码")
	flag.StringVar(&opts.engineKind, "engine", "equity", "回测引擎: equity / futures")
	flag.StringVar(&opts.period, "period", "5y", "请求跨度: 3m / 1y / 3y / 5y / 10y")
	flag.StringVar(&opts.interval, "interval", "1d", "K线周期: 1d / 1w / 1M / 5m / 15m / 30m / 60m")
	flag.StringVar(&opts.adjust, "adjust", "qfq", "复权方式: none / qfq / hfq")
	flag.StringVar(&opts.start, "start", "", "起始日期 (YYYY-MM-DD)，留空不过滤")
	flag.StringVar(&opts.end, "end", "", "结束日期 (YYYY-MM-DD)，留空不过滤")
	flag.StringVar(&opts.outDir, "outdir", "output", "批量回测输出目录")
	flag.IntVar(&opts.scanLast, "last", 5, "扫描模式: 只报告最近N根K线内的买卖点")
	flag.BoolVar(&opts.noCache, "no-cache", false, "跳过本地缓存强制拉取")
	flag.Parse()

	// 先用默认配置初始化日志，保证配置加载阶段也有输出
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err == nil {
		logger.S().Info("已从 .env 文件加载环境变量")
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		logger.S().Errorf("加载配置失败: %v", err)
		return exitBadArgs
	}
	logger.InitLogger(cfg.Log)
	defer logger.S().Sync()

	if opts.strategy != "" {
		cfg.Strategy.Name = opts.strategy
	}
	if proxy := os.Getenv("QUANT_PROXY_URL"); proxy != "" {
		cfg.Store.ProxyURL = proxy
	}

	app, err := newApp(cfg, opts)
	if err != nil {
		logger.S().Errorf("初始化失败: %v", err)
		if errors.Is(err, models.ErrInvalidConfig) {
			return exitBadArgs
		}
		return exitInternal
	}
	defer app.store.Close()

	ctx := context.Background()
	switch opts.mode {
	case "analyze":
		return app.runAnalyze(ctx)
	case "batch":
		return app.runBatch(ctx)
	case "prefetch":
		return app.runPrefetch(ctx)
	case "scan":
		return app.runScan(ctx)
	default:
		logger.S().Errorf("未知的运行模式: %s", opts.mode)
		return exitBadArgs
	}
}

// app 持有一次进程生命周期内共享的组件
type app struct {
	cfg      *models.Config
	opts     *cliOptions
	store    *barstore.Store
	interval models.Interval
	adjust   models.Adjust
	start    time.Time
	end      time.Time
}

func newApp(cfg *models.Config, opts *cliOptions) (*app, error) {
	interval := models.Interval(opts.interval)
	switch interval {
	case models.IntervalDay, models.IntervalWeek, models.IntervalMonth,
		models.Interval5Min, models.Interval15Min, models.Interval30Min, models.Interval60Min:
	default:
		return nil, fmt.Errorf("%w: 不支持的K线周期 %q", models.ErrInvalidConfig, opts.interval)
	}

	var adjust models.Adjust
	switch opts.adjust {
	case "none":
		adjust = models.AdjustNone
	case "qfq":
		adjust = models.AdjustForward
	case "hfq":
		adjust = models.AdjustBackward
	default:
		return nil, fmt.Errorf("%w: 复权方式 %q", models.ErrInvalidConfig, opts.adjust)
	}

	a := &app{cfg: cfg, opts: opts, interval: interval, adjust: adjust}
	var err error
	if a.start, a.end, err = parseDateRange(opts.start, opts.end); err != nil {
		return nil, err
	}
	if a.store, err = barstore.NewStore(cfg.Store); err != nil {
		return nil, err
	}
	return a, nil
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	var s, e time.Time
	var err error
	if start != "" {
		if s, err = time.Parse("2006-01-02", start); err != nil {
			return s, e, fmt.Errorf("%w: 起始日期 %q", models.ErrInvalidConfig, start)
		}
	}
	if end != "" {
		if e, err = time.Parse("2006-01-02", end); err != nil {
			return s, e, fmt.Errorf("%w: 结束日期 %q", models.ErrInvalidConfig, end)
		}
	}
	if !s.IsZero() && !e.IsZero() && e.Before(s) {
		return s, e, fmt.Errorf("%w: 结束日期早于起始日期", models.ErrInvalidConfig)
	}
	return s, e, nil
}

// filterRange 按起止日期裁剪K线序列，零值日期表示不限制
func filterRange(series *models.BarSeries, start, end time.Time) *models.BarSeries {
	if start.IsZero() && end.IsZero() {
		return series
	}
	out := &models.BarSeries{Symbol: series.Symbol, Interval: series.Interval}
	for _, b := range series.Bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end.Add(24*time.Hour)) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

// runArtifacts 汇集单个标的跑完整条流水线后的全部产物
type runArtifacts struct {
	series  *models.BarSeries
	cols    reporter.SignalColumns
	decomp  *chanlun.Decomposition
	signals []int
	result  *engine.Result
}

// runSymbol 对单个标的执行 拉取 -> 指标 -> 分解 -> 信号 -> 回测 的完整流程
func (a *app) runSymbol(ctx context.Context, symbol string) (*runArtifacts, error) {
	series, err := a.store.Fetch(ctx, symbol, a.opts.period, a.interval, a.adjust, !a.opts.noCache)
	if err != nil {
		return nil, err
	}
	series = filterRange(series, a.start, a.end)
	if series.Len() == 0 {
		return nil, fmt.Errorf("%s: 日期范围内无数据: %w", symbol, models.ErrNoData)
	}

	strat, err := strategy.New(a.cfg.Strategy.Name, a.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if err := strategy.ValidateHistory(strat.Name(), series.Len(), a.cfg.Strategy); err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	var decomp *chanlun.Decomposition
	if strategy.NeedsChan(strat.Name()) || a.opts.mode == "analyze" {
		decomp = chanlun.Decompose(series, a.cfg.Chan)
	}
	signals := strat.Signals(series, decomp)

	var result *engine.Result
	switch a.opts.engineKind {
	case "futures":
		spec, ok := models.LookupContract(nil, symbol)
		if !ok {
			return nil, fmt.Errorf("%w: 合约表中没有 %s", models.ErrInvalidConfig, symbol)
		}
		result = engine.NewFuturesEngine(a.cfg.Futures, spec).Run(series, signals)
	case "equity":
		result = engine.NewEquityEngine(a.cfg.Equity).Run(series, signals)
	default:
		return nil, fmt.Errorf("%w: 未知引擎 %q", models.ErrInvalidConfig, a.opts.engineKind)
	}
	result.Strategy = strat.Name()

	closes := series.Closes()
	upper, middle, lower := indicator.Bollinger(closes, a.cfg.Strategy.BollWindow, a.cfg.Strategy.BollK)
	cols := reporter.SignalColumns{
		MAShort:    indicator.MA(closes, a.cfg.Strategy.MAShort),
		MALong:     indicator.MA(closes, a.cfg.Strategy.MALong),
		BollUpper:  upper,
		BollMiddle: middle,
		BollLower:  lower,
		RSI:        indicator.RSI(closes, 14),
	}

	return &runArtifacts{series: series, cols: cols, decomp: decomp, signals: signals, result: result}, nil
}

// runAnalyze 对单个标的跑完整流水线并落盘全部明细
func (a *app) runAnalyze(ctx context.Context) int {
	if a.opts.symbol == "" {
		logger.S().Error("analyze 模式需要 -symbol 参数")
		return exitBadArgs
	}

	art, err := a.runSymbol(ctx, a.opts.symbol)
	if err != nil {
		return classifyError(err)
	}

	rep, err := reporter.NewReporter(a.opts.outDir)
	if err != nil {
		logger.S().Errorf("%v", err)
		return exitInternal
	}
	if err := rep.WriteRun(art.series, art.cols, art.decomp, art.signals, art.result); err != nil {
		logger.S().Errorf("写出结果失败: %v", err)
		return exitInternal
	}
	reporter.RenderSummary(os.Stdout, []reporter.SummaryRow{reporter.RowFromResult(art.result)})
	logger.S().Infof("明细已写入 %s", rep.OutDir())
	return exitOK
}

// runBatch 逐个标的串行回测并写出汇总表
func (a *app) runBatch(ctx context.Context) int {
	symbols, err := a.symbolList()
	if err != nil {
		logger.S().Errorf("%v", err)
		return exitBadArgs
	}

	rep, err := reporter.NewReporter(a.opts.outDir)
	if err != nil {
		logger.S().Errorf("%v", err)
		return exitInternal
	}

	rows := make([]reporter.SummaryRow, 0, len(symbols))
	succeeded := 0
	for _, symbol := range symbols {
		art, err := a.runSymbol(ctx, symbol)
		if err != nil {
			logger.S().Warnf("%s 跳过: %v", symbol, err)
			status := models.StatusSkippedNoData
			if !isNoData(err) {
				status = models.StatusFailed
			}
			rows = append(rows, reporter.SummaryRow{Symbol: symbol, Strategy: a.cfg.Strategy.Name, Status: status})
			continue
		}
		if err := rep.WriteRun(art.series, art.cols, art.decomp, art.signals, art.result); err != nil {
			logger.S().Errorf("%s 写出结果失败: %v", symbol, err)
			rows = append(rows, reporter.SummaryRow{Symbol: symbol, Strategy: a.cfg.Strategy.Name, Status: models.StatusFailed})
			continue
		}
		rows = append(rows, reporter.RowFromResult(art.result))
		succeeded++
	}

	if err := rep.WriteSummary(rows); err != nil {
		logger.S().Errorf("%v", err)
		return exitInternal
	}
	if succeeded == 0 {
		logger.S().Error("所有标的均无可用数据")
		return exitNoData
	}
	return exitOK
}

// runPrefetch 预拉取缓存，之后的批量回测可以完全离线执行
func (a *app) runPrefetch(ctx context.Context) int {
	symbols, err := a.symbolList()
	if err != nil {
		logger.S().Errorf("%v", err)
		return exitBadArgs
	}

	failed := 0
	for _, symbol := range symbols {
		if _, err := a.store.Fetch(ctx, symbol, a.opts.period, a.interval, a.adjust, !a.opts.noCache); err != nil {
			logger.S().Warnf("%s 预拉取失败: %v", symbol, err)
			failed++
			continue
		}
		logger.S().Infof("%s 已缓存", symbol)
	}
	if failed == len(symbols) {
		return exitNoData
	}
	return exitOK
}

// runScan 扫描各标的最近N根K线内出现的买卖点
func (a *app) runScan(ctx context.Context) int {
	symbols, err := a.symbolList()
	if err != nil {
		logger.S().Errorf("%v", err)
		return exitBadArgs
	}

	var hits []reporter.ScanHit
	fetched := 0
	for _, symbol := range symbols {
		series, err := a.store.Fetch(ctx, symbol, a.opts.period, a.interval, a.adjust, !a.opts.noCache)
		if err != nil {
			logger.S().Warnf("%s 跳过: %v", symbol, err)
			continue
		}
		fetched++

		decomp := chanlun.Decompose(series, a.cfg.Chan)
		n := series.Len()
		for _, pt := range decomp.Points {
			barsAgo := n - 1 - pt.OrigIdx
			if barsAgo < 0 || barsAgo >= a.opts.scanLast {
				continue
			}
			hits = append(hits, reporter.ScanHit{
				Symbol:  symbol,
				Point:   pt,
				Close:   series.Bars[n-1].Close,
				BarsAgo: barsAgo,
			})
		}
	}

	if fetched == 0 {
		logger.S().Error("所有标的均无可用数据")
		return exitNoData
	}
	reporter.RenderScan(os.Stdout, hits)
	return exitOK
}

// symbolList 返回本次运行的标的列表: -symbol 优先，否则读 -symbols 文件
func (a *app) symbolList() ([]string, error) {
	if a.opts.symbol != "" {
		return []string{a.opts.symbol}, nil
	}
	if a.opts.symbolFile == "" {
		return nil, fmt.Errorf("%w: 需要 -symbol 或 -symbols 参数", models.ErrInvalidConfig)
	}

	f, err := os.Open(a.opts.symbolFile)
	if err != nil {
		return nil, fmt.Errorf("%w: 打开标的列表失败: %v", models.ErrInvalidConfig, err)
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: 标的列表为空", models.ErrInvalidConfig)
	}
	return symbols, nil
}

func isNoData(err error) bool {
	return errors.Is(err, models.ErrNoData) ||
		errors.Is(err, models.ErrNetwork) ||
		errors.Is(err, models.ErrInsufficientHistory)
}

func classifyError(err error) int {
	logger.S().Errorf("%v", err)
	switch {
	case errors.Is(err, models.ErrInvalidConfig):
		return exitBadArgs
	case isNoData(err):
		return exitNoData
	default:
		return exitInternal
	}
}
