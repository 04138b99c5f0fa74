package models

import (
	"math"
	"time"
)

// Interval 表示K线的周期粒度
type Interval string

const (
	IntervalDay    Interval = "1d"
	IntervalWeek   Interval = "1w"
	IntervalMonth  Interval = "1M"
	Interval1Min   Interval = "1m"
	Interval5Min   Interval = "5m"
	Interval15Min  Interval = "15m"
	Interval30Min  Interval = "30m"
	Interval60Min  Interval = "60m"
)

// Minutes 返回分钟级周期对应的分钟数，日线及以上返回 0
func (iv Interval) Minutes() int {
	switch iv {
	case Interval1Min:
		return 1
	case Interval5Min:
		return 5
	case Interval15Min:
		return 15
	case Interval30Min:
		return 30
	case Interval60Min:
		return 60
	}
	return 0
}

// Adjust 表示复权方式
type Adjust string

const (
	AdjustNone     Adjust = "none" // 不复权
	AdjustForward  Adjust = "qfq"  // 前复权
	AdjustBackward Adjust = "hfq"  // 后复权
)

// Bar 是一根固定周期的OHLCV K线
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IsValid 检查单根K线是否满足基本不变量：价格非NaN，low <= open,close <= high，volume >= 0
func (b Bar) IsValid() bool {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	if b.Low > b.High || b.Volume < 0 {
		return false
	}
	if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
		return false
	}
	return true
}

// BarSeries 是一个按时间严格递增排列的K线序列。加载后视为只读。
type BarSeries struct {
	Symbol   string   `json:"symbol"`
	Interval Interval `json:"interval"`
	Bars     []Bar    `json:"bars"`
}

// Len 返回序列长度
func (s *BarSeries) Len() int { return len(s.Bars) }

// Closes 返回收盘价列
func (s *BarSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes 返回成交量列
func (s *BarSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// Sanitize 返回丢弃了坏K线（NaN价格、时间戳不递增）之后的新序列，以及被丢弃的根数。
// 原序列不会被修改。
func (s *BarSeries) Sanitize() (*BarSeries, int) {
	clean := &BarSeries{Symbol: s.Symbol, Interval: s.Interval, Bars: make([]Bar, 0, len(s.Bars))}
	dropped := 0
	var last time.Time
	for _, b := range s.Bars {
		if !b.IsValid() || (!last.IsZero() && !b.Time.After(last)) {
			dropped++
			continue
		}
		clean.Bars = append(clean.Bars, b)
		last = b.Time
	}
	return clean, dropped
}
