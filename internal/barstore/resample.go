package barstore

import (
	"fmt"
	"time"

	"chanlun-quant-go/internal/models"
)

// Resample 把K线序列聚合到更粗的周期。
// 每个桶内 open取首、high取最大、low取最小、close取末、volume求和，空桶直接丢弃。
// 目标周期与输入一致时原样返回（幂等）。
func Resample(series *models.BarSeries, target models.Interval) (*models.BarSeries, error) {
	if series.Interval == target {
		return series, nil
	}

	var keyFn func(t time.Time) string
	switch target {
	case models.IntervalWeek:
		if series.Interval != models.IntervalDay {
			return nil, fmt.Errorf("%w: 只能从日线聚合到周线", models.ErrInvalidConfig)
		}
		keyFn = func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%04d-W%02d", year, week)
		}
	case models.IntervalMonth:
		if series.Interval != models.IntervalDay {
			return nil, fmt.Errorf("%w: 只能从日线聚合到月线", models.ErrInvalidConfig)
		}
		keyFn = func(t time.Time) string { return t.Format("2006-01") }
	case models.Interval5Min, models.Interval15Min, models.Interval30Min, models.Interval60Min:
		src := series.Interval.Minutes()
		dst := target.Minutes()
		if src == 0 || src >= dst {
			return nil, fmt.Errorf("%w: 无法从 %s 聚合到 %s", models.ErrInvalidConfig, series.Interval, target)
		}
		bucket := time.Duration(dst) * time.Minute
		keyFn = func(t time.Time) string { return t.Truncate(bucket).Format(time.RFC3339) }
	default:
		return nil, fmt.Errorf("%w: 不支持的目标周期 %s", models.ErrInvalidConfig, target)
	}

	out := &models.BarSeries{Symbol: series.Symbol, Interval: target}
	var curKey string
	var cur models.Bar
	flush := func() {
		if curKey != "" {
			out.Bars = append(out.Bars, cur)
		}
	}

	for _, b := range series.Bars {
		k := keyFn(b.Time)
		if k != curKey {
			flush()
			curKey = k
			cur = b
			continue
		}
		// 桶末时间戳作为聚合K线的时间（周/月收盘边界）
		cur.Time = b.Time
		cur.High = maxF(cur.High, b.High)
		cur.Low = minF(cur.Low, b.Low)
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	flush()

	return out, nil
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
