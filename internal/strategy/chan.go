package strategy

import (
	"chanlun-quant-go/internal/chanlun"
	"chanlun-quant-go/internal/models"
)

// Chan 策略直接消费缠论买卖点：
// 买点列从0跳变为1或2时发出买入信号，卖点列对称。股票与期货回测共用。
type Chan struct{}

func (c *Chan) Name() string { return "chan" }

func (c *Chan) Params() map[string]float64 { return map[string]float64{} }

func (c *Chan) Signals(series *models.BarSeries, decomp *chanlun.Decomposition) []int {
	n := series.Len()
	signals := make([]int, n)
	if decomp == nil || len(decomp.BuyPoint) != n || len(decomp.SellPoint) != n {
		return signals
	}

	for i := 0; i < n; i++ {
		prevBuy, prevSell := 0, 0
		if i > 0 {
			prevBuy = decomp.BuyPoint[i-1]
			prevSell = decomp.SellPoint[i-1]
		}
		if decomp.BuyPoint[i] > 0 && prevBuy == 0 {
			signals[i] = SignalBuy
		} else if decomp.SellPoint[i] > 0 && prevSell == 0 {
			signals[i] = SignalSell
		}
	}
	return signals
}
