package chanlun

import "chanlun-quant-go/internal/models"

// mergeContained 执行阶段一的包含处理。
// 相邻两根K线若一方的 [low, high] 区间被另一方覆盖，则按当前方向合并：
// 上升方向取 max(high)/max(low)，下降方向取 min(high)/min(low)。
// 合并后的K线继承较早一根的时间戳与原始下标。
func mergeContained(bars []models.Bar) []MergedBar {
	if len(bars) == 0 {
		return nil
	}

	merged := make([]MergedBar, 0, len(bars))
	merged = append(merged, MergedBar{Time: bars[0].Time, High: bars[0].High, Low: bars[0].Low, OrigIdx: 0})

	// 方向由第一对非包含K线确定，在此之前按上升方向合并
	dir := Direction(0)

	for i := 1; i < len(bars); i++ {
		cur := MergedBar{Time: bars[i].Time, High: bars[i].High, Low: bars[i].Low, OrigIdx: i}
		last := &merged[len(merged)-1]

		contains := (cur.High <= last.High && cur.Low >= last.Low) ||
			(cur.High >= last.High && cur.Low <= last.Low)

		if contains {
			if dir == Down {
				last.High = minF(last.High, cur.High)
				last.Low = minF(last.Low, cur.Low)
			} else {
				last.High = maxF(last.High, cur.High)
				last.Low = maxF(last.Low, cur.Low)
			}
			continue
		}

		if cur.High > last.High && cur.Low > last.Low {
			dir = Up
		} else if cur.High < last.High && cur.Low < last.Low {
			dir = Down
		}
		merged = append(merged, cur)
	}

	return merged
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
