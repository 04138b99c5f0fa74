package engine

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanlun-quant-go/internal/logger"
	"chanlun-quant-go/internal/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger(models.LogConfig{Level: "error", Output: "console"})
	os.Exit(m.Run())
}

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func barAt(i int, open, high, low, close float64) models.Bar {
	return models.Bar{
		Time: day0.AddDate(0, 0, i),
		Open: open, High: high, Low: low, Close: close, Volume: 100,
	}
}

func seriesOf(bars ...models.Bar) *models.BarSeries {
	return &models.BarSeries{Symbol: "test", Interval: models.IntervalDay, Bars: bars}
}

func TestEquityEmptyInput(t *testing.T) {
	eng := NewEquityEngine(models.EquityConfig{InitialCash: 10000})
	res := eng.Run(seriesOf(), nil)
	assert.Equal(t, models.StatusSkippedNoData, res.Status)
	assert.Empty(t, res.Trades)
}

func TestEquityRoundTrip(t *testing.T) {
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 111, 99, 110),
		barAt(2, 110, 112, 108, 109),
	)
	eng := NewEquityEngine(models.EquityConfig{InitialCash: 10000, CommissionRate: 0.001})
	res := eng.Run(s, []int{1, -1, 0})

	require.Len(t, res.Trades, 2)
	open, closeT := res.Trades[0], res.Trades[1]

	// 整股全仓: floor(10000 / (100 * 1.001)) = 99
	assert.Equal(t, models.OpenLong, open.Kind)
	assert.InDelta(t, 99.0, open.Quantity, 1e-9)
	assert.InDelta(t, 9.9, open.Commission, 1e-9)

	assert.Equal(t, models.CloseLong, closeT.Kind)
	assert.InDelta(t, 110.0, closeT.Price, 1e-9)
	// (110-100)*99 - 9.9 - 10.89
	assert.InDelta(t, 969.21, closeT.RealizedPnl, 1e-9)
	assert.Equal(t, models.ReasonSignal, closeT.Reason)

	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Metrics.WinningTrades)
	assert.InDelta(t, 1.0, res.Metrics.WinRate, 1e-9)
}

func TestEquityIgnoresRedundantSignals(t *testing.T) {
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 102, 99, 101),
		barAt(2, 101, 103, 100, 102),
	)
	eng := NewEquityEngine(models.EquityConfig{InitialCash: 10000, CommissionRate: 0.001})
	// 先卖（无仓）、买入、再买（已持仓）
	res := eng.Run(s, []int{-1, 1, 1})

	// 无仓卖出与重复买入都被跳过，数据结束时强制平仓
	require.Len(t, res.Trades, 2)
	assert.Equal(t, models.OpenLong, res.Trades[0].Kind)
	assert.Equal(t, models.ReasonEndOfData, res.Trades[1].Reason)
	assert.InDelta(t, 102.0, res.Trades[1].Price, 1e-9)
}

func TestEquityRejectsInsufficientFunds(t *testing.T) {
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 102, 99, 101),
	)
	eng := NewEquityEngine(models.EquityConfig{InitialCash: 50, CommissionRate: 0.001})
	res := eng.Run(s, []int{1, 0})

	assert.Empty(t, res.Trades)
	require.Len(t, res.Events, 1)
	assert.Equal(t, models.EventRejectedInsufficientFunds, res.Events[0].Kind)
	assert.Equal(t, models.StatusSuccess, res.Status)
}

func TestEquityCashNeverNegative(t *testing.T) {
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 111, 99, 110),
		barAt(2, 110, 112, 80, 81),
		barAt(3, 81, 95, 80, 94),
	)
	eng := NewEquityEngine(models.EquityConfig{InitialCash: 10000, CommissionRate: 0.001})
	res := eng.Run(s, []int{1, -1, 1, -1})

	for _, p := range res.Equity {
		assert.GreaterOrEqual(t, p.Cash, 0.0)
	}
}

func TestEquityLedgerInvariant(t *testing.T) {
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 111, 99, 110),
		barAt(2, 110, 112, 104, 105),
		barAt(3, 105, 109, 104, 108),
	)
	eng := NewEquityEngine(models.EquityConfig{InitialCash: 10000, CommissionRate: 0.001})
	res := eng.Run(s, []int{1, -1, 1, 0})

	var realized, commissions float64
	for _, tr := range res.Trades {
		realized += tr.RealizedPnl
		commissions += tr.Commission
	}
	final := res.Equity[len(res.Equity)-1].Equity
	// 结束时强制平仓，期末无未实现盈亏
	assert.InDelta(t, realized, final-10000, 1e-6)
}

func TestEquityDeterministicReplay(t *testing.T) {
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 111, 99, 110),
		barAt(2, 110, 112, 104, 105),
	)
	eng := NewEquityEngine(models.EquityConfig{InitialCash: 10000, CommissionRate: 0.001})
	signals := []int{1, -1, 1}

	r1 := eng.Run(s, signals)
	r2 := eng.Run(s, signals)
	assert.Equal(t, r1.Trades, r2.Trades)
	assert.Equal(t, r1.Equity, r2.Equity)
	assert.Equal(t, r1.Metrics, r2.Metrics)
}

func TestFuturesShortRoundTrip(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 10, MarginRate: 0.1, TickSize: 1}
	cfg := models.FuturesConfig{
		InitialCapital:   27000,
		CommissionRate:   0.0001,
		SlippageAbsolute: 1.0,
		LeverageFraction: 1.0,
		AllowShort:       true,
	}
	s := seriesOf(
		barAt(0, 5010, 5020, 4990, 5000),
		barAt(1, 4805, 4810, 4790, 4800),
	)

	res := NewFuturesEngine(cfg, spec).Run(s, []int{-1, 1})
	require.Len(t, res.Trades, 2)

	open, closeT := res.Trades[0], res.Trades[1]
	assert.Equal(t, models.OpenShort, open.Kind)
	// 卖出开仓滑点向下: 5000 - 1
	assert.InDelta(t, 4999.0, open.Price, 1e-9)
	assert.InDelta(t, 5.0, open.Quantity, 1e-9)
	assert.InDelta(t, 4999*5*10*0.0001, open.Commission, 1e-9)

	assert.Equal(t, models.CloseShort, closeT.Kind)
	// 买入平仓滑点向上: 4800 + 1
	assert.InDelta(t, 4801.0, closeT.Price, 1e-9)
	// (4999-4801)*5*10 - 开仓手续费 - 平仓手续费
	wantPnl := (4999.0-4801.0)*5*10 - 4999*5*10*0.0001 - 4801*5*10*0.0001
	assert.InDelta(t, wantPnl, closeT.RealizedPnl, 1e-9)
	assert.InDelta(t, 9851.0, closeT.RealizedPnl, 1e-9)

	final := res.Equity[len(res.Equity)-1]
	assert.InDelta(t, 27000+9851, final.Equity, 1e-6)
}

func TestFuturesIgnoresRedundantSignals(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 10, MarginRate: 0.1, TickSize: 1}
	cfg := models.FuturesConfig{
		InitialCapital:   27000,
		LeverageFraction: 1.0,
		AllowShort:       true,
	}
	s := seriesOf(
		barAt(0, 5010, 5020, 4990, 5000),
		barAt(1, 5000, 5010, 4980, 4990),
		barAt(2, 4805, 4810, 4790, 4800),
	)

	// 已持空仓时的重复卖出信号被跳过，随后的买入信号回补
	res := NewFuturesEngine(cfg, spec).Run(s, []int{-1, -1, 1})
	require.Len(t, res.Trades, 2)
	assert.Equal(t, models.OpenShort, res.Trades[0].Kind)
	assert.Equal(t, models.CloseShort, res.Trades[1].Kind)
	assert.Equal(t, s.Bars[2].Time, res.Trades[1].Time)
	assert.Equal(t, models.ReasonSignal, res.Trades[1].Reason)
}

func TestFuturesLiquidationKeepsCashNonNegative(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 10, MarginRate: 0.1, TickSize: 1}
	cfg := models.FuturesConfig{InitialCapital: 30000, LeverageFraction: 1.0}
	// 满仓300手后跳空暴跌，浮亏吃穿保证金与现金
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 82, 84, 80, 83),
		barAt(2, 83, 85, 82, 84),
	)

	res := NewFuturesEngine(cfg, spec).Run(s, []int{1, 0, 0})
	require.Len(t, res.Trades, 2)

	closeT := res.Trades[1]
	assert.Equal(t, models.ReasonLiquidation, closeT.Reason)
	// 按当根最不利价格强平
	assert.InDelta(t, 80.0, closeT.Price, 1e-9)
	assert.InDelta(t, (80.0-100.0)*300*10, closeT.RealizedPnl, 1e-9)

	require.NotEmpty(t, res.Events)
	assert.Equal(t, models.EventLiquidated, res.Events[0].Kind)

	// 现金与权益在任何K线上都不为负
	for _, p := range res.Equity {
		assert.GreaterOrEqual(t, p.Cash, 0.0)
		assert.GreaterOrEqual(t, p.Equity, 0.0)
	}
}

func TestFuturesStopLossPriority(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 10, MarginRate: 0.1, TickSize: 1}
	cfg := models.FuturesConfig{
		InitialCapital:   10000,
		LeverageFraction: 1.0,
		StopLossPct:      0.02,
		StopProfitPct:    0.04,
	}
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 105, 97, 103),
	)

	res := NewFuturesEngine(cfg, spec).Run(s, []int{1, 0})
	require.Len(t, res.Trades, 2)

	closeT := res.Trades[1]
	// 止损与止盈同根K线都可触发时，止损优先，按止损价成交
	assert.Equal(t, models.ReasonStopLoss, closeT.Reason)
	assert.InDelta(t, 98.0, closeT.Price, 1e-9)
	assert.InDelta(t, (98.0-100.0)*100*10, closeT.RealizedPnl, 1e-9)
}

func TestFuturesStopProfitShort(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 10, MarginRate: 0.1, TickSize: 1}
	cfg := models.FuturesConfig{
		InitialCapital:   10000,
		LeverageFraction: 1.0,
		StopProfitPct:    0.05,
		AllowShort:       true,
	}
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 98, 99, 94, 95),
	)

	res := NewFuturesEngine(cfg, spec).Run(s, []int{-1, 0})
	require.Len(t, res.Trades, 2)

	closeT := res.Trades[1]
	assert.Equal(t, models.ReasonStopProfit, closeT.Reason)
	// 空头止盈价 100 * (1 - 0.05)
	assert.InDelta(t, 95.0, closeT.Price, 1e-9)
	assert.Greater(t, closeT.RealizedPnl, 0.0)
}

func TestFuturesSlippageClampedToBarRange(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 10, MarginRate: 0.1, TickSize: 1}
	cfg := models.FuturesConfig{
		InitialCapital:   100000,
		SlippageAbsolute: 5.0,
		LeverageFraction: 1.0,
	}
	// 收盘即最高价，买入滑点会越过high，必须被压回
	s := seriesOf(
		barAt(0, 98, 100, 97, 100),
		barAt(1, 100, 102, 99, 101),
	)

	res := NewFuturesEngine(cfg, spec).Run(s, []int{1, 0})
	require.NotEmpty(t, res.Trades)
	assert.InDelta(t, 100.0, res.Trades[0].Price, 1e-9)
}

func TestFuturesRejectsWhenMarginTooHigh(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 100, MarginRate: 0.5, TickSize: 1}
	cfg := models.FuturesConfig{InitialCapital: 1000, LeverageFraction: 1.0}
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 102, 99, 101),
	)

	res := NewFuturesEngine(cfg, spec).Run(s, []int{1, 0})
	assert.Empty(t, res.Trades)
	require.Len(t, res.Events, 1)
	assert.Equal(t, models.EventRejectedInsufficientFunds, res.Events[0].Kind)
}

func TestFuturesForcedCloseAtEndOfData(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 10, MarginRate: 0.1, TickSize: 1}
	cfg := models.FuturesConfig{InitialCapital: 10000, LeverageFraction: 1.0}
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 106, 99, 105),
	)

	res := NewFuturesEngine(cfg, spec).Run(s, []int{1, 0})
	require.Len(t, res.Trades, 2)

	closeT := res.Trades[1]
	assert.Equal(t, models.ReasonEndOfData, closeT.Reason)
	// 强制平仓按最后一根收盘价，不加滑点
	assert.InDelta(t, 105.0, closeT.Price, 1e-9)

	// 平仓后的期末权益与已实现盈亏对账
	final := res.Equity[len(res.Equity)-1]
	assert.InDelta(t, 10000+closeT.RealizedPnl, final.Equity, 1e-6)
	assert.Zero(t, final.PositionValue)
}

func TestFuturesSignalOnLastBar(t *testing.T) {
	spec := models.ContractSpec{Multiplier: 10, MarginRate: 0.1, TickSize: 1}
	cfg := models.FuturesConfig{InitialCapital: 10000, LeverageFraction: 1.0}
	s := seriesOf(
		barAt(0, 100, 101, 99, 100),
		barAt(1, 100, 102, 99, 101),
	)

	// 最后一根K线上的买入信号照常执行，随后的强平在同一根收盘价成交
	res := NewFuturesEngine(cfg, spec).Run(s, []int{0, 1})
	require.Len(t, res.Trades, 2)
	assert.Equal(t, models.OpenLong, res.Trades[0].Kind)
	assert.Equal(t, res.Trades[0].Time, res.Trades[1].Time)
	assert.Equal(t, models.ReasonEndOfData, res.Trades[1].Reason)
}
