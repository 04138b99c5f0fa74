package reporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanlun-quant-go/internal/chanlun"
	"chanlun-quant-go/internal/engine"
	"chanlun-quant-go/internal/models"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func sampleResult() *engine.Result {
	return &engine.Result{
		Symbol:   "sh600000",
		Strategy: "chan",
		Status:   models.StatusSuccess,
		Trades: []models.Trade{
			{Time: day0, Symbol: "sh600000", Kind: models.OpenLong, Price: 100, Quantity: 99, Commission: 9.9, Reason: models.ReasonSignal},
			{Time: day0.AddDate(0, 0, 1), Symbol: "sh600000", Kind: models.CloseLong, Price: 110, Quantity: 99, Commission: 10.89, OpenCommission: 9.9, RealizedPnl: 969.21, Reason: models.ReasonSignal},
		},
		Equity: []models.EquityPoint{
			{Time: day0, Equity: 10000, Cash: 90.1, PositionValue: 9909.9},
			{Time: day0.AddDate(0, 0, 1), Equity: 10969.21, Cash: 10969.21},
		},
		Metrics: engine.Metrics{TotalTrades: 2, WinningTrades: 1, WinRate: 1, RealizedPnl: 969.21, TotalReturn: 0.096921},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteTradeLog(t *testing.T) {
	dir := t.TempDir()
	rep, err := NewReporter(dir)
	require.NoError(t, err)

	res := sampleResult()
	require.NoError(t, rep.WriteTradeLog(res.Symbol, res.Trades))

	records := readCSV(t, filepath.Join(dir, "sh600000_trades.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, "kind", records[0][2])
	assert.Equal(t, "open_long", records[1][2])
	assert.Equal(t, "close_long", records[2][2])
	assert.Equal(t, "969.21", records[2][7])
}

func TestWriteEquityCurve(t *testing.T) {
	dir := t.TempDir()
	rep, err := NewReporter(dir)
	require.NoError(t, err)

	res := sampleResult()
	require.NoError(t, rep.WriteEquityCurve(res.Symbol, res.Equity))

	records := readCSV(t, filepath.Join(dir, "sh600000_equity.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"time", "equity", "cash", "position_value"}, records[0])
	assert.Equal(t, "10000", records[1][1])
}

func TestWriteSignals(t *testing.T) {
	dir := t.TempDir()
	rep, err := NewReporter(dir)
	require.NoError(t, err)

	s := &models.BarSeries{Symbol: "sh600000", Interval: models.IntervalDay}
	for i := 0; i < 3; i++ {
		c := 100 + float64(i)
		s.Bars = append(s.Bars, models.Bar{
			Time: day0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		})
	}
	decomp := &chanlun.Decomposition{
		BuyPoint:  []int{0, 1, 0},
		SellPoint: []int{0, 0, 2},
	}
	cols := SignalColumns{MAShort: []float64{100, 100.5, 101}}

	require.NoError(t, rep.WriteSignals(s, cols, decomp, []int{0, 1, -1}))

	records := readCSV(t, filepath.Join(dir, "sh600000_signals.csv"))
	require.Len(t, records, 4)
	header := records[0]
	assert.Equal(t, "buy_point", header[12])
	assert.Equal(t, "1", records[2][12])
	assert.Equal(t, "2", records[3][13])
	assert.Equal(t, "-1", records[3][14])
	// 缺失的指标列写为空
	assert.Equal(t, "", records[1][7])
}

func TestAggregateStats(t *testing.T) {
	rows := []SummaryRow{
		{Symbol: "a", Status: models.StatusSuccess, TotalReturn: 0.10},
		{Symbol: "b", Status: models.StatusSuccess, TotalReturn: -0.05},
		{Symbol: "c", Status: models.StatusSuccess, TotalReturn: 0.30},
		{Symbol: "d", Status: models.StatusSkippedNoData},
	}
	agg := Aggregate(rows)

	assert.Equal(t, 4, agg.Runs)
	assert.Equal(t, 3, agg.Succeeded)
	assert.InDelta(t, (0.10-0.05+0.30)/3, agg.MeanReturn, 1e-9)
	assert.InDelta(t, 0.10, agg.MedianReturn, 1e-9)
	assert.Equal(t, "c", agg.BestSymbol)
	assert.Equal(t, "b", agg.WorstSymbol)
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	assert.Zero(t, agg.Succeeded)
	assert.Zero(t, agg.MeanReturn)
}

func TestWriteSummaryFile(t *testing.T) {
	dir := t.TempDir()
	rep, err := NewReporter(dir)
	require.NoError(t, err)

	require.NoError(t, rep.WriteSummary([]SummaryRow{RowFromResult(sampleResult())}))

	data, err := os.ReadFile(filepath.Join(dir, "summary.csv"))
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "sh600000"))
	assert.True(t, strings.Contains(text, "success"))
}

func TestRenderScanEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderScan(&buf, nil)
	assert.Contains(t, buf.String(), "没有发现买卖点")
}

func TestRenderScanTable(t *testing.T) {
	var buf bytes.Buffer
	hits := []ScanHit{
		{Symbol: "sh600000", Point: chanlun.Point{Type: 1, Side: chanlun.Buy, Time: day0, Price: 102.5}, Close: 104, BarsAgo: 2},
	}
	RenderScan(&buf, hits)
	out := buf.String()
	assert.Contains(t, out, "sh600000")
	assert.Contains(t, out, "buy")
}
