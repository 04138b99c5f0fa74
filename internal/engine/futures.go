package engine

import (
	"fmt"
	"math"

	"chanlun-quant-go/internal/logger"
	"chanlun-quant-go/internal/models"
)

// FuturesEngine 是期货回测引擎：保证金账户、多空双向、固定滑点、止损止盈。
type FuturesEngine struct {
	cfg  models.FuturesConfig
	spec models.ContractSpec
}

// NewFuturesEngine 创建期货回测引擎。spec 为该品种的合约参数。
func NewFuturesEngine(cfg models.FuturesConfig, spec models.ContractSpec) *FuturesEngine {
	return &FuturesEngine{cfg: cfg, spec: spec}
}

// futuresAccount 是引擎私有的账户状态
type futuresAccount struct {
	cash   float64 // 可用现金（不含占用保证金）
	margin float64 // 持仓占用的保证金
	pos    *models.Position
}

// Run 在一个K线序列上按信号序列模拟期货交易。每根K线依次执行：
// 止损止盈检查（止损优先）、消费当根信号、收盘盯市。数据结束时强制平仓。
func (e *FuturesEngine) Run(series *models.BarSeries, signals []int) *Result {
	res := &Result{Symbol: series.Symbol, Status: models.StatusSuccess}
	n := series.Len()
	if n == 0 || len(signals) != n {
		res.Status = models.StatusSkippedNoData
		return res
	}

	acct := &futuresAccount{cash: e.cfg.InitialCapital}

	for t := 0; t < n; t++ {
		bar := series.Bars[t]

		// 步骤1: 盘中止损止盈，止损优先
		if acct.pos != nil {
			e.checkStops(res, acct, bar)
		}

		// 步骤2: 穿仓检查，浮亏吃穿账户时强平
		if acct.pos != nil {
			e.checkLiquidation(res, acct, bar)
		}

		// 步骤3: 消费信号
		switch {
		case signals[t] > 0:
			if acct.pos == nil {
				e.open(res, acct, bar, models.Long)
			} else if acct.pos.Direction == models.Short {
				// 买入信号回补空头，按买方向加滑点
				e.close(res, acct, bar, e.fillPrice(bar, bar.Close, true), models.ReasonSignal)
			}
			// 已持多仓时忽略重复买入信号

		case signals[t] < 0:
			if acct.pos == nil {
				if e.cfg.AllowShort {
					e.open(res, acct, bar, models.Short)
				}
			} else if acct.pos.Direction == models.Long {
				e.close(res, acct, bar, e.fillPrice(bar, bar.Close, false), models.ReasonSignal)
			}
			// 已持空仓时忽略重复卖出信号
		}

		// 步骤4: 收盘盯市
		res.Equity = append(res.Equity, e.snapshot(bar, acct))
	}

	// 数据结束，按最后一根收盘价强制平仓（不加滑点）
	if acct.pos != nil {
		last := series.Bars[n-1]
		e.close(res, acct, last, last.Close, models.ReasonEndOfData)
		res.Equity[n-1] = e.snapshot(last, acct)
	}

	res.Metrics = computeMetrics(e.cfg.InitialCapital, res.Trades, res.Equity, series.Closes())
	return res
}

// fillPrice 计算含滑点的成交价：买入加价、卖出减价，并保证不越出当根K线的高低点
func (e *FuturesEngine) fillPrice(bar models.Bar, base float64, isBuy bool) float64 {
	price := base
	if isBuy {
		price += e.cfg.SlippageAbsolute
	} else {
		price -= e.cfg.SlippageAbsolute
	}
	if price > bar.High {
		price = bar.High
	}
	if price < bar.Low {
		price = bar.Low
	}
	return price
}

// checkStops 用当根K线的高低点检查止损与止盈，止损优先。
// 止损止盈单按预设价格成交，不再叠加滑点。
func (e *FuturesEngine) checkStops(res *Result, acct *futuresAccount, bar models.Bar) {
	pos := acct.pos
	entry := pos.EntryPrice

	if e.cfg.StopLossPct > 0 {
		var stopPrice float64
		triggered := false
		if pos.Direction == models.Long {
			stopPrice = entry * (1 - e.cfg.StopLossPct)
			triggered = bar.Low <= stopPrice
		} else {
			stopPrice = entry * (1 + e.cfg.StopLossPct)
			triggered = bar.High >= stopPrice
		}
		if triggered {
			e.close(res, acct, bar, stopPrice, models.ReasonStopLoss)
			return
		}
	}

	if e.cfg.StopProfitPct > 0 {
		var stopPrice float64
		triggered := false
		if pos.Direction == models.Long {
			stopPrice = entry * (1 + e.cfg.StopProfitPct)
			triggered = bar.High >= stopPrice
		} else {
			stopPrice = entry * (1 - e.cfg.StopProfitPct)
			triggered = bar.Low <= stopPrice
		}
		if triggered {
			e.close(res, acct, bar, stopPrice, models.ReasonStopProfit)
		}
	}
}

// checkLiquidation 用当根K线对持仓最不利的价格做穿仓检查：
// 浮亏吃穿保证金加可用现金时按该价格强制平仓，保证现金不为负。
func (e *FuturesEngine) checkLiquidation(res *Result, acct *futuresAccount, bar models.Bar) {
	pos := acct.pos
	worst := bar.Low
	if pos.Direction == models.Short {
		worst = bar.High
	}
	unrealized := (worst - pos.EntryPrice) * float64(pos.Direction) * pos.Quantity * pos.Multiplier
	if acct.cash+acct.margin+unrealized > 0 {
		return
	}

	res.Events = append(res.Events, models.RunEvent{
		Time: bar.Time, Kind: models.EventLiquidated,
		Detail: fmt.Sprintf("浮亏 %.2f 吃穿保证金，按 %.2f 强平", unrealized, worst),
	})
	logger.S().Warnf("%s: %s 保证金穿仓，强制平仓", res.Symbol, bar.Time.Format("2006-01-02"))
	e.close(res, acct, bar, worst, models.ReasonLiquidation)
}

// open 按收盘价开仓。手数 = floor(可用资金 × 资金比例 / (价格 × 乘数 × 保证金率))，
// 并以保证金加手续费不超过可用现金为上限。
func (e *FuturesEngine) open(res *Result, acct *futuresAccount, bar models.Bar, dir models.Direction) {
	price := e.fillPrice(bar, bar.Close, dir == models.Long)
	unit := price * e.spec.Multiplier

	qty := math.Floor(acct.cash * e.cfg.LeverageFraction / (unit * e.spec.MarginRate))
	for qty > 0 {
		margin := unit * qty * e.spec.MarginRate
		commission := unit * qty * e.cfg.CommissionRate
		if margin+commission <= acct.cash {
			break
		}
		qty--
	}
	if qty <= 0 {
		res.Events = append(res.Events, models.RunEvent{
			Time: bar.Time, Kind: models.EventRejectedInsufficientFunds,
			Detail: fmt.Sprintf("可用资金 %.2f 不足以按 %.2f 开仓", acct.cash, price),
		})
		logger.S().Debugf("%s: %s 保证金不足，跳过开仓信号", res.Symbol, bar.Time.Format("2006-01-02"))
		return
	}

	margin := unit * qty * e.spec.MarginRate
	commission := unit * qty * e.cfg.CommissionRate
	acct.cash -= margin + commission
	acct.margin = margin
	acct.pos = &models.Position{
		Symbol: res.Symbol, EntryTime: bar.Time, EntryPrice: price, Quantity: qty,
		Direction: dir, Multiplier: e.spec.Multiplier, MarginRate: e.spec.MarginRate,
		OpenCommission: commission,
	}

	kind := models.OpenLong
	if dir == models.Short {
		kind = models.OpenShort
	}
	res.Trades = append(res.Trades, models.Trade{
		Time: bar.Time, Symbol: res.Symbol, Kind: kind,
		Price: price, Quantity: qty, Commission: commission, Reason: models.ReasonSignal,
	})
}

// close 按给定成交价平仓。已实现盈亏扣除开平两边的手续费。
func (e *FuturesEngine) close(res *Result, acct *futuresAccount, bar models.Bar, price float64, reason string) {
	pos := acct.pos
	if pos == nil {
		res.Events = append(res.Events, models.RunEvent{
			Time: bar.Time, Kind: models.EventInternalInvariant, Detail: "尝试平不存在的仓位",
		})
		logger.S().Errorf("%s: 尝试平不存在的仓位，已忽略", res.Symbol)
		return
	}

	commission := price * pos.Quantity * pos.Multiplier * e.cfg.CommissionRate
	diff := (price - pos.EntryPrice) * float64(pos.Direction)
	realized := diff*pos.Quantity*pos.Multiplier - pos.OpenCommission - commission

	// 开仓手续费已在开仓时扣除，这里现金只回收保证金、价差和平仓手续费
	acct.cash += acct.margin + diff*pos.Quantity*pos.Multiplier - commission
	if acct.cash < 0 {
		// 亏损超出账户承受能力的部分由强平承接，现金不为负
		acct.cash = 0
	}
	acct.margin = 0
	acct.pos = nil

	kind := models.CloseLong
	if pos.Direction == models.Short {
		kind = models.CloseShort
	}
	res.Trades = append(res.Trades, models.Trade{
		Time: bar.Time, Symbol: pos.Symbol, Kind: kind,
		Price: price, Quantity: pos.Quantity, Commission: commission,
		OpenCommission: pos.OpenCommission, RealizedPnl: realized, Reason: reason,
	})
}

// snapshot 收盘盯市：权益 = 可用现金 + 占用保证金 + 未实现盈亏
func (e *FuturesEngine) snapshot(bar models.Bar, acct *futuresAccount) models.EquityPoint {
	unrealized := 0.0
	posValue := 0.0
	if acct.pos != nil {
		p := acct.pos
		unrealized = (bar.Close - p.EntryPrice) * float64(p.Direction) * p.Quantity * p.Multiplier
		posValue = acct.margin + unrealized
	}
	return models.EquityPoint{
		Time: bar.Time, Equity: acct.cash + acct.margin + unrealized,
		Cash: acct.cash, PositionValue: posValue,
	}
}
