package strategy

import (
	"math"

	"chanlun-quant-go/internal/chanlun"
	"chanlun-quant-go/internal/indicator"
	"chanlun-quant-go/internal/models"
)

// StrictBollinger 在布林带策略之上追加入场约束：
// 买入前必须存在长度不小于 min_uptrend_days 的上升区间，
// 区间内创新高K线占比不低于 higher_high_ratio，
// 且两次买入至少间隔 min_interval 根K线。
type StrictBollinger struct {
	cfg models.StrategyConfig
}

func (s *StrictBollinger) Name() string { return "strict_bollinger" }

func (s *StrictBollinger) Params() map[string]float64 {
	return map[string]float64{
		"boll_window":       float64(s.cfg.BollWindow),
		"boll_k":            s.cfg.BollK,
		"exit_k":            s.cfg.ExitK,
		"max_hold_bars":     float64(s.cfg.MaxHoldBars),
		"ma_short":          float64(s.cfg.MAShort),
		"ma_long":           float64(s.cfg.MALong),
		"min_uptrend_days":  float64(s.cfg.MinUptrendDays),
		"higher_high_ratio": s.cfg.HigherHighRatio,
		"min_interval":      float64(s.cfg.MinInterval),
	}
}

func (s *StrictBollinger) Signals(series *models.BarSeries, _ *chanlun.Decomposition) []int {
	n := series.Len()
	signals := make([]int, n)
	if n == 0 {
		return signals
	}

	close := series.Closes()
	_, middle, lower := indicator.Bollinger(close, s.cfg.BollWindow, s.cfg.BollK)
	maShort := indicator.MA(close, s.cfg.MAShort)
	maLong := indicator.MA(close, s.cfg.MALong)

	inPos := false
	entryIdx := 0
	lastEntry := -1
	for i := 1; i < n; i++ {
		if !inPos {
			if !crossBelow(close, lower, i) || !indicator.IsUptrend(i, close, maLong, maShort) {
				continue
			}
			if !s.confirmedUptrend(series.Bars, i) {
				continue
			}
			if lastEntry >= 0 && s.cfg.MinInterval > 0 && i-lastEntry < s.cfg.MinInterval {
				continue
			}
			signals[i] = SignalBuy
			inPos = true
			entryIdx = i
			lastEntry = i
			continue
		}

		exit := false
		if !math.IsNaN(middle[i]) && close[i] >= s.cfg.ExitK*middle[i] {
			exit = true
		}
		if s.cfg.MaxHoldBars > 0 && i-entryIdx >= s.cfg.MaxHoldBars {
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

// confirmedUptrend 检查下标i之前的 min_uptrend_days 根K线构成确认的上升区间
func (s *StrictBollinger) confirmedUptrend(bars []models.Bar, i int) bool {
	days := s.cfg.MinUptrendDays
	if days <= 0 {
		return true
	}
	start := i - days
	if start < 1 {
		return false
	}
	if bars[i-1].Close <= bars[start].Close {
		return false
	}
	higher := 0
	for j := start + 1; j < i; j++ {
		if bars[j].High > bars[j-1].High {
			higher++
		}
	}
	ratio := float64(higher) / float64(days-1)
	return ratio >= s.cfg.HigherHighRatio
}
