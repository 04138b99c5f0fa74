package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"chanlun-quant-go/internal/chanlun"
	"chanlun-quant-go/internal/engine"
	"chanlun-quant-go/internal/models"
)

// SummaryRow 是汇总表中一个标的对应的一行
type SummaryRow struct {
	Symbol           string
	Strategy         string
	Status           models.RunStatus
	TotalTrades      int
	WinRate          float64
	RealizedPnl      float64
	TotalReturn      float64
	BuyHoldReturn    float64
	ExcessReturn     float64
	MaxDrawdown      float64
	Sharpe           float64
	HealthViolations int
}

// RowFromResult 把单次回测结果压成一行汇总
func RowFromResult(res *engine.Result) SummaryRow {
	return SummaryRow{
		Symbol:           res.Symbol,
		Strategy:         res.Strategy,
		Status:           res.Status,
		TotalTrades:      res.Metrics.TotalTrades,
		WinRate:          res.Metrics.WinRate,
		RealizedPnl:      res.Metrics.RealizedPnl,
		TotalReturn:      res.Metrics.TotalReturn,
		BuyHoldReturn:    res.Metrics.BuyHoldReturn,
		ExcessReturn:     res.Metrics.ExcessReturn,
		MaxDrawdown:      res.Metrics.MaxDrawdown,
		Sharpe:           res.Metrics.Sharpe,
		HealthViolations: res.HealthViolations(),
	}
}

// Aggregates 是所有成功标的的收益统计口径
type Aggregates struct {
	Runs        int
	Succeeded   int
	MeanReturn  float64
	MedianReturn float64
	BestSymbol  string
	BestReturn  float64
	WorstSymbol string
	WorstReturn float64
}

// Aggregate 对成功的行计算收益率的均值、中位数与最好最差标的
func Aggregate(rows []SummaryRow) Aggregates {
	agg := Aggregates{Runs: len(rows)}
	returns := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Status != models.StatusSuccess {
			continue
		}
		agg.Succeeded++
		returns = append(returns, r.TotalReturn)
		if agg.Succeeded == 1 || r.TotalReturn > agg.BestReturn {
			agg.BestSymbol, agg.BestReturn = r.Symbol, r.TotalReturn
		}
		if agg.Succeeded == 1 || r.TotalReturn < agg.WorstReturn {
			agg.WorstSymbol, agg.WorstReturn = r.Symbol, r.TotalReturn
		}
	}
	if len(returns) == 0 {
		return agg
	}
	sum := 0.0
	for _, v := range returns {
		sum += v
	}
	agg.MeanReturn = sum / float64(len(returns))

	sort.Float64s(returns)
	mid := len(returns) / 2
	if len(returns)%2 == 1 {
		agg.MedianReturn = returns[mid]
	} else {
		agg.MedianReturn = (returns[mid-1] + returns[mid]) / 2
	}
	return agg
}

func summaryTable(rows []SummaryRow) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{
		"symbol", "strategy", "status", "trades", "win_rate", "realized_pnl",
		"total_return", "buy_hold_return", "excess_return", "max_drawdown", "sharpe", "health",
	})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Symbol, r.Strategy, string(r.Status), r.TotalTrades,
			fmt.Sprintf("%.2f%%", r.WinRate*100),
			fmt.Sprintf("%.2f", r.RealizedPnl),
			fmt.Sprintf("%.2f%%", r.TotalReturn*100),
			fmt.Sprintf("%.2f%%", r.BuyHoldReturn*100),
			fmt.Sprintf("%.2f%%", r.ExcessReturn*100),
			fmt.Sprintf("%.2f%%", r.MaxDrawdown*100),
			fmt.Sprintf("%.3f", r.Sharpe),
			r.HealthViolations,
		})
	}
	agg := Aggregate(rows)
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d/%d 成功", agg.Succeeded, agg.Runs), "", "", "", "",
		fmt.Sprintf("均值 %.2f%%", agg.MeanReturn*100),
		fmt.Sprintf("中位 %.2f%%", agg.MedianReturn*100),
		fmt.Sprintf("最好 %s %.2f%%", agg.BestSymbol, agg.BestReturn*100),
		fmt.Sprintf("最差 %s %.2f%%", agg.WorstSymbol, agg.WorstReturn*100),
		"", "", "",
	})
	return t
}

// RenderSummary 将汇总表渲染到给定输出（通常为终端）
func RenderSummary(w io.Writer, rows []SummaryRow) {
	t := summaryTable(rows)
	t.SetOutputMirror(w)
	t.Render()
}

// WriteSummary 将汇总表同时写为CSV文件并渲染到终端
func (r *Reporter) WriteSummary(rows []SummaryRow) error {
	t := summaryTable(rows)
	csvText := t.RenderCSV()
	path := filepath.Join(r.outDir, "summary.csv")
	if err := os.WriteFile(path, []byte(csvText+"\n"), 0o644); err != nil {
		return fmt.Errorf("写汇总文件失败: %w", err)
	}
	t.SetOutputMirror(os.Stdout)
	t.Render()
	return nil
}

// ScanHit 是信号扫描命中的一条记录
type ScanHit struct {
	Symbol string
	Point  chanlun.Point
	Close  float64
	BarsAgo int
}

// RenderScan 以表格形式打印各标的最近出现的买卖点
func RenderScan(w io.Writer, hits []ScanHit) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"symbol", "time", "side", "type", "price", "close", "bars_ago"})
	for _, h := range hits {
		side := "buy"
		if h.Point.Side == chanlun.Sell {
			side = "sell"
		}
		t.AppendRow(table.Row{
			h.Symbol, h.Point.Time.Format("2006-01-02"), side, h.Point.Type,
			fmt.Sprintf("%.2f", h.Point.Price), fmt.Sprintf("%.2f", h.Close), h.BarsAgo,
		})
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "最近区间内没有发现买卖点")
		return
	}
	t.Render()
}
