package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func validBar(i int, close float64) Bar {
	return Bar{
		Time: day0.AddDate(0, 0, i),
		Open: close - 0.5, High: close + 1, Low: close - 1, Close: close, Volume: 100,
	}
}

func TestBarIsValid(t *testing.T) {
	assert.True(t, validBar(0, 100).IsValid())

	nan := validBar(0, 100)
	nan.Close = math.NaN()
	assert.False(t, nan.IsValid())

	inverted := validBar(0, 100)
	inverted.Low = inverted.High + 1
	assert.False(t, inverted.IsValid())

	negVol := validBar(0, 100)
	negVol.Volume = -1
	assert.False(t, negVol.IsValid())

	outOfRange := validBar(0, 100)
	outOfRange.Open = outOfRange.High + 5
	assert.False(t, outOfRange.IsValid())

	// 高低点相等的十字星本身是合法K线
	doji := Bar{Time: day0, Open: 100, High: 100, Low: 100, Close: 100, Volume: 0}
	assert.True(t, doji.IsValid())
}

func TestSanitize(t *testing.T) {
	s := &BarSeries{Symbol: "test", Interval: IntervalDay}
	s.Bars = append(s.Bars, validBar(0, 100), validBar(1, 101))

	bad := validBar(2, 102)
	bad.High = math.NaN()
	s.Bars = append(s.Bars, bad)

	// 时间戳回退
	dup := validBar(3, 103)
	dup.Time = s.Bars[1].Time
	s.Bars = append(s.Bars, dup, validBar(4, 104))

	clean, dropped := s.Sanitize()
	assert.Equal(t, 2, dropped)
	require.Equal(t, 3, clean.Len())
	for i := 1; i < clean.Len(); i++ {
		assert.True(t, clean.Bars[i].Time.After(clean.Bars[i-1].Time))
	}
	// 原序列不被修改
	assert.Equal(t, 5, s.Len())
}

func TestIntervalMinutes(t *testing.T) {
	assert.Equal(t, 5, Interval5Min.Minutes())
	assert.Equal(t, 60, Interval60Min.Minutes())
	assert.Equal(t, 0, IntervalDay.Minutes())
	assert.Equal(t, 0, IntervalWeek.Minutes())
}

func TestLookupContract(t *testing.T) {
	spec, ok := LookupContract(nil, "RB")
	require.True(t, ok)
	assert.InDelta(t, 10.0, spec.Multiplier, 1e-9)

	_, ok = LookupContract(nil, "XX")
	assert.False(t, ok)

	custom := map[string]ContractSpec{"XX": {Multiplier: 5, MarginRate: 0.2, TickSize: 1}}
	spec, ok = LookupContract(custom, "XX")
	require.True(t, ok)
	assert.InDelta(t, 5.0, spec.Multiplier, 1e-9)
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"未知缓存后端", func(c *Config) { c.Store.CacheBackend = "redis" }},
		{"超时为零", func(c *Config) { c.Store.RequestTimeoutS = 0 }},
		{"初始资金为零", func(c *Config) { c.Equity.InitialCash = 0 }},
		{"负滑点", func(c *Config) { c.Futures.SlippageAbsolute = -1 }},
		{"杠杆越界", func(c *Config) { c.Futures.LeverageFraction = 1.5 }},
		{"负止损", func(c *Config) { c.Futures.StopLossPct = -0.1 }},
		{"线段笔数过少", func(c *Config) { c.Chan.MinStrokesForSegment = 2 }},
		{"未知K线类型", func(c *Config) { c.Chan.KType = "tick" }},
		{"长短均线倒置", func(c *Config) { c.Strategy.MAShort = 30 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
