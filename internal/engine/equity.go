package engine

import (
	"fmt"
	"math"

	"chanlun-quant-go/internal/logger"
	"chanlun-quant-go/internal/models"
)

// EquityEngine 是股票回测引擎：现金账户、只做多、默认整股、全仓买入。
type EquityEngine struct {
	cfg models.EquityConfig
}

// NewEquityEngine 创建股票回测引擎
func NewEquityEngine(cfg models.EquityConfig) *EquityEngine {
	return &EquityEngine{cfg: cfg}
}

// Run 在一个K线序列上按信号序列模拟交易。
// 逐根处理：消费当根信号（成交价为当根收盘价），随后按收盘价盯市更新权益。
// 数据结束时强制平掉仓位。决策在任何时刻都不读取未来K线。
func (e *EquityEngine) Run(series *models.BarSeries, signals []int) *Result {
	res := &Result{Symbol: series.Symbol, Status: models.StatusSuccess}
	n := series.Len()
	if n == 0 || len(signals) != n {
		res.Status = models.StatusSkippedNoData
		return res
	}

	cash := e.cfg.InitialCash
	var pos *models.Position

	for t := 0; t < n; t++ {
		bar := series.Bars[t]
		price := bar.Close

		switch {
		case signals[t] > 0 && pos == nil:
			qty := cash / (price * (1 + e.cfg.CommissionRate))
			if !e.cfg.AllowPartialShare {
				qty = math.Floor(qty)
			}
			commission := price * qty * e.cfg.CommissionRate
			if qty <= 0 || price*qty+commission > cash {
				res.Events = append(res.Events, models.RunEvent{
					Time: bar.Time, Kind: models.EventRejectedInsufficientFunds,
					Detail: fmt.Sprintf("现金 %.2f 不足以按 %.2f 买入", cash, price),
				})
				logger.S().Debugf("%s: %s 资金不足，跳过买入信号", series.Symbol, bar.Time.Format("2006-01-02"))
				break
			}
			cash -= price*qty + commission
			pos = &models.Position{
				Symbol: series.Symbol, EntryTime: bar.Time, EntryPrice: price,
				Quantity: qty, Direction: models.Long, OpenCommission: commission,
			}
			res.Trades = append(res.Trades, models.Trade{
				Time: bar.Time, Symbol: series.Symbol, Kind: models.OpenLong,
				Price: price, Quantity: qty, Commission: commission, Reason: models.ReasonSignal,
			})

		case signals[t] > 0 && pos != nil:
			// 已有持仓时的买入信号直接忽略，同一标的不允许并发仓位

		case signals[t] < 0 && pos != nil:
			cash += e.closeLong(res, pos, price, bar, models.ReasonSignal)
			pos = nil

		case signals[t] < 0 && pos == nil:
			// 无仓可平，跳过
		}

		res.Equity = append(res.Equity, e.snapshot(bar, cash, pos))
	}

	// 数据结束，强制平仓
	if pos != nil {
		last := series.Bars[n-1]
		cash += e.closeLong(res, pos, last.Close, last, models.ReasonEndOfData)
		pos = nil
		res.Equity[n-1] = e.snapshot(last, cash, nil)
	}

	res.Metrics = computeMetrics(e.cfg.InitialCash, res.Trades, res.Equity, series.Closes())
	return res
}

// closeLong 平掉多头仓位，返回应计入现金的金额
func (e *EquityEngine) closeLong(res *Result, pos *models.Position, price float64, bar models.Bar, reason string) float64 {
	commission := price * pos.Quantity * e.cfg.CommissionRate
	realized := (price-pos.EntryPrice)*pos.Quantity - pos.OpenCommission - commission
	res.Trades = append(res.Trades, models.Trade{
		Time: bar.Time, Symbol: pos.Symbol, Kind: models.CloseLong,
		Price: price, Quantity: pos.Quantity, Commission: commission,
		OpenCommission: pos.OpenCommission, RealizedPnl: realized, Reason: reason,
	})
	return price*pos.Quantity - commission
}

func (e *EquityEngine) snapshot(bar models.Bar, cash float64, pos *models.Position) models.EquityPoint {
	posValue := 0.0
	if pos != nil {
		posValue = pos.Quantity * bar.Close
	}
	return models.EquityPoint{
		Time: bar.Time, Equity: cash + posValue, Cash: cash, PositionValue: posValue,
	}
}
