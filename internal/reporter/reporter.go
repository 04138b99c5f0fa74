// Package reporter 负责回测结果的落盘：逐笔成交、权益曲线、信号明细，
// 以及批量回测的汇总表。
package reporter

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"chanlun-quant-go/internal/chanlun"
	"chanlun-quant-go/internal/engine"
	"chanlun-quant-go/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Reporter 将单次回测的产物写入输出目录，每个标的一组文件。
type Reporter struct {
	outDir string
}

// NewReporter 创建报告器并确保输出目录存在
func NewReporter(outDir string) (*Reporter, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	return &Reporter{outDir: outDir}, nil
}

// OutDir 返回输出目录
func (r *Reporter) OutDir() string { return r.outDir }

// WriteTradeLog 写出逐笔成交记录
func (r *Reporter) WriteTradeLog(symbol string, trades []models.Trade) error {
	return r.writeCSV(symbol+"_trades.csv", func(w *csv.Writer) error {
		if err := w.Write([]string{"time", "symbol", "kind", "price", "quantity", "commission", "open_commission", "realized_pnl", "reason"}); err != nil {
			return err
		}
		for _, t := range trades {
			row := []string{
				t.Time.Format(timeLayout), t.Symbol, string(t.Kind),
				formatFloat(t.Price), formatFloat(t.Quantity), formatFloat(t.Commission),
				formatFloat(t.OpenCommission), formatFloat(t.RealizedPnl), t.Reason,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteEquityCurve 写出逐根K线的权益快照
func (r *Reporter) WriteEquityCurve(symbol string, equity []models.EquityPoint) error {
	return r.writeCSV(symbol+"_equity.csv", func(w *csv.Writer) error {
		if err := w.Write([]string{"time", "equity", "cash", "position_value"}); err != nil {
			return err
		}
		for _, p := range equity {
			row := []string{
				p.Time.Format(timeLayout),
				formatFloat(p.Equity), formatFloat(p.Cash), formatFloat(p.PositionValue),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// SignalColumns 是信号明细文件携带的指标列，全部与K线逐根对齐
type SignalColumns struct {
	MAShort    []float64
	MALong     []float64
	BollUpper  []float64
	BollMiddle []float64
	BollLower  []float64
	RSI        []float64
}

// WriteSignals 写出K线 + 指标 + 买卖点 + 信号的明细文件
func (r *Reporter) WriteSignals(series *models.BarSeries, cols SignalColumns, decomp *chanlun.Decomposition, signals []int) error {
	return r.writeCSV(series.Symbol+"_signals.csv", func(w *csv.Writer) error {
		header := []string{
			"time", "open", "high", "low", "close", "volume",
			"ma_short", "ma_long", "boll_upper", "boll_middle", "boll_lower", "rsi",
			"buy_point", "sell_point", "signal",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for i, b := range series.Bars {
			buy, sell := 0, 0
			if decomp != nil && i < len(decomp.BuyPoint) {
				buy, sell = decomp.BuyPoint[i], decomp.SellPoint[i]
			}
			sig := 0
			if i < len(signals) {
				sig = signals[i]
			}
			row := []string{
				b.Time.Format(timeLayout),
				formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low),
				formatFloat(b.Close), formatFloat(b.Volume),
				formatColumn(cols.MAShort, i), formatColumn(cols.MALong, i),
				formatColumn(cols.BollUpper, i), formatColumn(cols.BollMiddle, i),
				formatColumn(cols.BollLower, i), formatColumn(cols.RSI, i),
				strconv.Itoa(buy), strconv.Itoa(sell), strconv.Itoa(sig),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteRun 一次写出单个标的的三个产物文件
func (r *Reporter) WriteRun(series *models.BarSeries, cols SignalColumns, decomp *chanlun.Decomposition, signals []int, res *engine.Result) error {
	if err := r.WriteTradeLog(res.Symbol, res.Trades); err != nil {
		return err
	}
	if err := r.WriteEquityCurve(res.Symbol, res.Equity); err != nil {
		return err
	}
	return r.WriteSignals(series, cols, decomp, signals)
}

// writeCSV 以临时文件加改名的方式原子写出一个CSV
func (r *Reporter) writeCSV(name string, fill func(*csv.Writer) error) error {
	path := filepath.Join(r.outDir, name)
	tmp, err := os.CreateTemp(r.outDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := fill(w); err != nil {
		tmp.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatColumn(col []float64, i int) string {
	if i >= len(col) {
		return ""
	}
	return formatFloat(col[i])
}
