package models

import "time"

// Direction 表示持仓方向
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	if d == Short {
		return "short"
	}
	return "long"
}

// TradeKind 表示一次成交的种类
type TradeKind string

const (
	OpenLong   TradeKind = "open_long"
	OpenShort  TradeKind = "open_short"
	CloseLong  TradeKind = "close_long"
	CloseShort TradeKind = "close_short"
)

// 平仓原因
const (
	ReasonSignal      = "signal"
	ReasonStopLoss    = "stop_loss"
	ReasonStopProfit  = "stop_profit"
	ReasonEndOfData   = "end_of_data"
	ReasonLiquidation = "liquidation"
)

// Trade 是一笔成交的不可变记录。RealizedPnl 仅平仓时有意义。
type Trade struct {
	Time           time.Time `json:"time"`
	Symbol         string    `json:"symbol"`
	Kind           TradeKind `json:"kind"`
	Price          float64   `json:"price"`
	Quantity       float64   `json:"quantity"`
	Commission     float64   `json:"commission"`
	OpenCommission float64   `json:"open_commission,omitempty"` // 期货平仓时回填的开仓手续费
	RealizedPnl    float64   `json:"realized_pnl,omitempty"`
	Reason         string    `json:"reason"`
}

// Position 表示一个未平仓位。股票仓位只做多，期货仓位携带合约参数。
type Position struct {
	Symbol         string    `json:"symbol"`
	EntryTime      time.Time `json:"entry_time"`
	EntryPrice     float64   `json:"entry_price"`
	Quantity       float64   `json:"quantity"`
	Direction      Direction `json:"direction"`
	Multiplier     float64   `json:"multiplier,omitempty"`      // 合约乘数，股票为 0
	MarginRate     float64   `json:"margin_rate,omitempty"`     // 保证金率，股票为 0
	OpenCommission float64   `json:"open_commission,omitempty"` // 开仓手续费，平仓时一并扣除
}

// EquityPoint 是权益曲线上的一个采样点
type EquityPoint struct {
	Time          time.Time `json:"time"`
	Equity        float64   `json:"equity"`
	Cash          float64   `json:"cash"`
	PositionValue float64   `json:"position_value"`
}

// 回测过程中记录的非致命事件
const (
	EventRejectedInsufficientFunds = "rejected_insufficient_funds"
	EventInternalInvariant         = "internal_invariant"
	EventLiquidated                = "liquidated"
)

// RunEvent 记录一次被跳过的信号或内部不变量破坏
type RunEvent struct {
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
}

// RunStatus 写入汇总表的状态列
type RunStatus string

const (
	StatusSuccess       RunStatus = "success"
	StatusSkippedNoData RunStatus = "skipped_no_data"
	StatusFailed        RunStatus = "failed_internal"
)
