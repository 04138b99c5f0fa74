package strategy

import (
	"math"

	"chanlun-quant-go/internal/chanlun"
	"chanlun-quant-go/internal/indicator"
	"chanlun-quant-go/internal/models"
)

// Bollinger 是布林带均值回归策略：
// 上升趋势中收盘价下穿下轨时买入；
// 收盘价达到 exit_k 倍中轨、持仓超过 max_hold_bars、或短均线下穿长均线时卖出。
type Bollinger struct {
	cfg models.StrategyConfig
}

func (b *Bollinger) Name() string { return "bollinger" }

func (b *Bollinger) Params() map[string]float64 {
	return map[string]float64{
		"boll_window":   float64(b.cfg.BollWindow),
		"boll_k":        b.cfg.BollK,
		"exit_k":        b.cfg.ExitK,
		"max_hold_bars": float64(b.cfg.MaxHoldBars),
		"ma_short":      float64(b.cfg.MAShort),
		"ma_long":       float64(b.cfg.MALong),
	}
}

func (b *Bollinger) Signals(series *models.BarSeries, _ *chanlun.Decomposition) []int {
	n := series.Len()
	signals := make([]int, n)
	if n == 0 {
		return signals
	}

	close := series.Closes()
	_, middle, lower := indicator.Bollinger(close, b.cfg.BollWindow, b.cfg.BollK)
	maShort := indicator.MA(close, b.cfg.MAShort)
	maLong := indicator.MA(close, b.cfg.MALong)

	inPos := false
	entryIdx := 0
	for i := 1; i < n; i++ {
		if !inPos {
			if crossBelow(close, lower, i) && indicator.IsUptrend(i, close, maLong, maShort) {
				signals[i] = SignalBuy
				inPos = true
				entryIdx = i
			}
			continue
		}

		exit := false
		if !math.IsNaN(middle[i]) && close[i] >= b.cfg.ExitK*middle[i] {
			exit = true
		}
		if b.cfg.MaxHoldBars > 0 && i-entryIdx >= b.cfg.MaxHoldBars {
			exit = true
		}
		if crossBelow(maShort, maLong, i) {
			exit = true
		}
		if exit {
			signals[i] = SignalSell
			inPos = false
		}
	}
	return signals
}

// crossBelow 判断序列a在下标i处下穿序列b，任一侧为NaN时视为未发生
func crossBelow(a, b []float64, i int) bool {
	if i < 1 {
		return false
	}
	if math.IsNaN(a[i]) || math.IsNaN(b[i]) || math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) {
		return false
	}
	return a[i] < b[i] && a[i-1] >= b[i-1]
}
