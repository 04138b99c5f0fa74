package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMA(t *testing.T) {
	close := []float64{1, 2, 3, 4, 5}
	ma := MA(close, 3)
	require.Len(t, ma, 5)

	// 预热期为NaN
	assert.True(t, math.IsNaN(ma[0]))
	assert.True(t, math.IsNaN(ma[1]))

	assert.InDelta(t, 2.0, ma[2], 1e-9)
	assert.InDelta(t, 3.0, ma[3], 1e-9)
	assert.InDelta(t, 4.0, ma[4], 1e-9)
}

func TestMAWindowLargerThanInput(t *testing.T) {
	ma := MA([]float64{1, 2}, 5)
	require.Len(t, ma, 2)
	for _, v := range ma {
		assert.True(t, math.IsNaN(v))
	}
}

func TestBollingerSampleStdDev(t *testing.T) {
	close := []float64{2, 4, 6, 8}
	upper, middle, lower := Bollinger(close, 4, 2)
	require.Len(t, upper, 4)

	for i := 0; i < 3; i++ {
		assert.True(t, math.IsNaN(upper[i]))
		assert.True(t, math.IsNaN(middle[i]))
		assert.True(t, math.IsNaN(lower[i]))
	}

	// 均值5，样本方差 (9+1+1+9)/3，样本标准差 sqrt(20/3)
	sigma := math.Sqrt(20.0 / 3.0)
	assert.InDelta(t, 5.0, middle[3], 1e-9)
	assert.InDelta(t, 5.0+2*sigma, upper[3], 1e-9)
	assert.InDelta(t, 5.0-2*sigma, lower[3], 1e-9)
}

func TestRSIWarmupAndBounds(t *testing.T) {
	close := make([]float64, 40)
	for i := range close {
		// 涨跌交替
		close[i] = 100 + float64(i%2)*3
	}
	rsi := RSI(close, 14)
	require.Len(t, rsi, 40)

	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(rsi[i]), "下标 %d 应处于预热期", i)
	}
	for i := 14; i < 40; i++ {
		assert.GreaterOrEqual(t, rsi[i], 0.0)
		assert.LessOrEqual(t, rsi[i], 100.0)
	}
}

func TestRSIAllGains(t *testing.T) {
	close := make([]float64, 30)
	for i := range close {
		close[i] = 100 + float64(i)
	}
	rsi := RSI(close, 14)
	assert.InDelta(t, 100.0, rsi[29], 1e-6)
}

func TestSumVolume(t *testing.T) {
	vol := []float64{10, 20, 30, 40}
	sum := SumVolume(vol, 2)
	require.Len(t, sum, 4)

	assert.True(t, math.IsNaN(sum[0]))
	assert.InDelta(t, 30.0, sum[1], 1e-9)
	assert.InDelta(t, 50.0, sum[2], 1e-9)
	assert.InDelta(t, 70.0, sum[3], 1e-9)
}

func TestIsUptrend(t *testing.T) {
	close := []float64{105}
	maLong := []float64{100}
	maShort := []float64{102}
	assert.True(t, IsUptrend(0, close, maLong, maShort))

	// 短均线跌到长均线之下
	assert.False(t, IsUptrend(0, close, maLong, []float64{99}))
	// 收盘价低于长均线
	assert.False(t, IsUptrend(0, []float64{98}, maLong, maShort))
	// 均线尚未形成
	assert.False(t, IsUptrend(0, close, []float64{math.NaN()}, maShort))
	// 下标越界
	assert.False(t, IsUptrend(5, close, maLong, maShort))
}
