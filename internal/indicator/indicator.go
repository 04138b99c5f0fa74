// Package indicator 提供作用于K线序列的纯函数技术指标。
// 所有函数返回与输入等长的新切片，预热期统一填充NaN，输入不会被修改。
package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// MA 计算简单移动平均，前 window-1 个位置为NaN。
func MA(close []float64, window int) []float64 {
	out := make([]float64, len(close))
	if window < 1 || len(close) < window {
		fillNaN(out, len(out))
		return out
	}
	copy(out, talib.Sma(close, window))
	fillNaN(out, window-1)
	return out
}

// Bollinger 计算布林带三元组: 中轨为MA(window)，上下轨为中轨 ± k·σ。
// σ 使用收盘价的样本标准差（分母 n-1），与talib的总体标准差不同。
func Bollinger(close []float64, window int, k float64) (upper, middle, lower []float64) {
	n := len(close)
	middle = MA(close, window)
	upper = make([]float64, n)
	lower = make([]float64, n)
	fillNaN(upper, n)
	fillNaN(lower, n)
	if window < 2 || n < window {
		return upper, middle, lower
	}
	for i := window - 1; i < n; i++ {
		sigma := sampleStdDev(close[i-window+1:i+1], middle[i])
		upper[i] = middle[i] + k*sigma
		lower[i] = middle[i] - k*sigma
	}
	return upper, middle, lower
}

// RSI 计算Wilder相对强弱指数，前 window 个位置为NaN。
func RSI(close []float64, window int) []float64 {
	out := make([]float64, len(close))
	if window < 1 || len(close) <= window {
		fillNaN(out, len(out))
		return out
	}
	copy(out, talib.Rsi(close, window))
	fillNaN(out, window)
	return out
}

// SumVolume 计算滚动成交量之和，前 window-1 个位置为NaN。
func SumVolume(volume []float64, window int) []float64 {
	out := make([]float64, len(volume))
	fillNaN(out, len(out))
	if window < 1 || len(volume) < window {
		return out
	}
	var sum float64
	for i, v := range volume {
		sum += v
		if i >= window {
			sum -= volume[i-window]
		}
		if i >= window-1 {
			out[i] = sum
		}
	}
	return out
}

// IsUptrend 是策略层使用的趋势判定:
// close[i] 高于长期均线且短期均线在长期均线之上。
func IsUptrend(i int, close, maLong, maShort []float64) bool {
	if i < 0 || i >= len(close) || i >= len(maLong) || i >= len(maShort) {
		return false
	}
	if math.IsNaN(maLong[i]) || math.IsNaN(maShort[i]) {
		return false
	}
	return close[i] > maLong[i] && maShort[i] > maLong[i]
}

func sampleStdDev(window []float64, mean float64) float64 {
	if len(window) < 2 {
		return 0
	}
	var ss float64
	for _, v := range window {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(window)-1))
}

func fillNaN(s []float64, n int) {
	for i := 0; i < n && i < len(s); i++ {
		s[i] = math.NaN()
	}
}
