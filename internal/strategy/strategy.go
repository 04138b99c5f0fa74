// Package strategy 把K线、指标与缠论分解结果翻译为逐根的买卖信号。
// 策略是纯函数：同样的输入永远产生同样的信号序列，且只读取当前下标之前的信息。
package strategy

import (
	"fmt"

	"chanlun-quant-go/internal/chanlun"
	"chanlun-quant-go/internal/models"
)

// 信号取值
const (
	SignalBuy  = 1
	SignalSell = -1
	SignalHold = 0
)

// Strategy 产生与K线对齐的信号序列，取值 {+1, -1, 0}
type Strategy interface {
	Name() string
	Params() map[string]float64
	Signals(series *models.BarSeries, decomp *chanlun.Decomposition) []int
}

// New 按名称构造策略
func New(name string, cfg models.StrategyConfig) (Strategy, error) {
	switch name {
	case "bollinger":
		return &Bollinger{cfg: cfg}, nil
	case "strict_bollinger":
		return &StrictBollinger{cfg: cfg}, nil
	case "chan":
		return &Chan{}, nil
	default:
		return nil, fmt.Errorf("%w: 未知策略 %q", models.ErrInvalidConfig, name)
	}
}

// NeedsChan 报告策略是否消费缠论分解结果，驱动程序据此决定是否执行分解
func NeedsChan(name string) bool { return name == "chan" }

// MinHistory 返回策略产生首个有效信号所需的最少K线数
func MinHistory(name string, cfg models.StrategyConfig) int {
	if NeedsChan(name) {
		return chanlun.MinBars
	}
	n := cfg.BollWindow
	if cfg.MALong > n {
		n = cfg.MALong
	}
	return n
}

// ValidateHistory 在回测前检查序列长度是否满足策略的最少历史要求
func ValidateHistory(name string, barCount int, cfg models.StrategyConfig) error {
	if need := MinHistory(name, cfg); barCount < need {
		return fmt.Errorf("%w: 策略 %s 至少需要 %d 根K线，实际 %d",
			models.ErrInsufficientHistory, name, need, barCount)
	}
	return nil
}
