// Package engine 实现事件驱动的回测引擎。
// 股票引擎模拟现金账户的只多交易，期货引擎模拟保证金账户的多空双向交易。
// 一次回测独占自己的账户、成交流水与权益曲线，不同标的之间互不共享状态。
package engine

import (
	"math"

	"chanlun-quant-go/internal/models"
)

// Metrics 是一次回测的汇总指标
type Metrics struct {
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	RealizedPnl     float64 `json:"realized_pnl"`
	TotalCommission float64 `json:"total_commission"`
	TotalReturn     float64 `json:"total_return"`
	BuyHoldReturn   float64 `json:"buy_hold_return"`
	ExcessReturn    float64 `json:"excess_return"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	Sharpe          float64 `json:"sharpe"`
}

// Result 是一次回测的完整产出
type Result struct {
	Symbol   string              `json:"symbol"`
	Strategy string              `json:"strategy"`
	Status   models.RunStatus    `json:"status"`
	Trades   []models.Trade      `json:"trades"`
	Equity   []models.EquityPoint `json:"equity"`
	Events   []models.RunEvent   `json:"events"`
	Metrics  Metrics             `json:"metrics"`
}

// HealthViolations 统计回测过程中记录的内部不变量破坏次数
func (r *Result) HealthViolations() int {
	n := 0
	for _, ev := range r.Events {
		if ev.Kind == models.EventInternalInvariant {
			n++
		}
	}
	return n
}

// computeMetrics 汇总成交流水与权益曲线。closes 用于计算同区间的买入持有基准。
func computeMetrics(initial float64, trades []models.Trade, equity []models.EquityPoint, closes []float64) Metrics {
	var m Metrics
	m.TotalTrades = len(trades)

	closesCount := 0
	for _, t := range trades {
		m.TotalCommission += t.Commission
		switch t.Kind {
		case models.CloseLong, models.CloseShort:
			closesCount++
			m.RealizedPnl += t.RealizedPnl
			if t.RealizedPnl > 0 {
				m.WinningTrades++
			} else {
				m.LosingTrades++
			}
		}
	}
	if closesCount > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(closesCount)
	}

	if len(equity) > 0 && initial > 0 {
		m.TotalReturn = (equity[len(equity)-1].Equity - initial) / initial
	}
	if len(closes) > 1 && closes[0] != 0 {
		m.BuyHoldReturn = (closes[len(closes)-1] - closes[0]) / closes[0]
	}
	m.ExcessReturn = m.TotalReturn - m.BuyHoldReturn
	m.MaxDrawdown = maxDrawdown(equity)
	m.Sharpe = sharpe(equity)
	return m
}

// maxDrawdown 计算权益曲线的最大回撤比例
func maxDrawdown(equity []models.EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}
	peak := equity[0].Equity
	maxDD := 0.0
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe 在逐根权益收益率序列上计算夏普比率，无风险利率取0，不做年化
func sharpe(equity []models.EquityPoint) float64 {
	if len(equity) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1].Equity > 0 {
			returns = append(returns, equity[i].Equity/equity[i-1].Equity-1)
		}
	}
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return mean / std
}
