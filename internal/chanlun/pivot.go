package chanlun

// findPivots 在每个线段内部寻找中枢（阶段五前半）。
// 连续三笔的价格区间若存在非空交集 [ZL, ZH]，则构成中枢；
// 后续与中枢区间仍有重叠的笔会延伸中枢的时间跨度。
func findPivots(strokes []Stroke, segments []Segment) []Pivot {
	var pivots []Pivot

	for _, seg := range segments {
		k := seg.StartStroke
		for k+2 <= seg.EndStroke {
			a, b, c := strokes[k], strokes[k+1], strokes[k+2]
			zl := maxF(a.Low, maxF(b.Low, c.Low))
			zh := minF(a.High, minF(b.High, c.High))
			if zh < zl {
				k++
				continue
			}

			p := Pivot{
				ID:        len(pivots),
				StartTime: a.Start.Time,
				StartOrig: a.Start.OrigIdx,
				EndTime:   c.End.Time,
				EndOrig:   c.End.OrigIdx,
				ZH:        zh,
				ZL:        zl,
				Direction: seg.Direction,
				SegmentID: seg.ID,
			}

			// 重叠延伸
			last := k + 2
			for last+1 <= seg.EndStroke {
				nx := strokes[last+1]
				if nx.Low > zh || nx.High < zl {
					break
				}
				last++
				p.EndTime = strokes[last].End.Time
				p.EndOrig = strokes[last].End.OrigIdx
			}

			pivots = append(pivots, p)
			k = last + 1
		}
	}

	return pivots
}

// findPoints 依据线段终结事件识别一、二类买卖点（阶段五后半）。
//
// 一买：下降线段被确认终结，且终结它的上升笔升破该线段最近中枢的ZH。
// 标记落在突破笔内部价格首次同时越过终结极值与ZH的那根K线上，
// 即两个条件都已在盘面上成立的确认K线，而不是突破笔的终点。
// 二买：一买之后的第一次回调未创新低，标记在回调的转折K线上；卖点对称。
// 同侧同类买卖点在对侧一类点出现之前不会重复触发。
func findPoints(merged []MergedBar, strokes []Stroke, segments []Segment, pivots []Pivot, terms []termination) []Point {
	// 每个线段最近的中枢
	lastPivot := make(map[int]*Pivot)
	for i := range pivots {
		lastPivot[pivots[i].SegmentID] = &pivots[i]
	}

	var points []Point
	var buy1Latch, buy2Latch, sell1Latch, sell2Latch bool

	for _, t := range terms {
		seg := segments[t.segIdx]
		brk := strokes[t.breakStroke]
		pv := lastPivot[seg.ID]
		if pv == nil {
			continue
		}

		switch {
		case seg.Direction == Down && brk.Direction == Up:
			if brk.High <= pv.ZH || buy1Latch {
				continue
			}
			j := confirmIndex(merged, brk, maxF(pv.ZH, t.level), Up)
			points = append(points, Point{
				Type: 1, Side: Buy,
				Time: merged[j].Time, OrigIdx: merged[j].OrigIdx, Price: merged[j].High,
			})
			buy1Latch = true
			sell1Latch, sell2Latch = false, false

			// 二买：确认笔之后的回调未跌破确认笔的起点低位
			if t.breakStroke+1 < len(strokes) && !buy2Latch {
				pull := strokes[t.breakStroke+1]
				if pull.Direction == Down && pull.Low > brk.Low {
					points = append(points, Point{
						Type: 2, Side: Buy,
						Time: pull.End.Time, OrigIdx: pull.End.OrigIdx, Price: pull.End.Price,
					})
					buy2Latch = true
				}
			}

		case seg.Direction == Up && brk.Direction == Down:
			if brk.Low >= pv.ZL || sell1Latch {
				continue
			}
			j := confirmIndex(merged, brk, minF(pv.ZL, t.level), Down)
			points = append(points, Point{
				Type: 1, Side: Sell,
				Time: merged[j].Time, OrigIdx: merged[j].OrigIdx, Price: merged[j].Low,
			})
			sell1Latch = true
			buy1Latch, buy2Latch = false, false

			if t.breakStroke+1 < len(strokes) && !sell2Latch {
				pull := strokes[t.breakStroke+1]
				if pull.Direction == Up && pull.High < brk.High {
					points = append(points, Point{
						Type: 2, Side: Sell,
						Time: pull.End.Time, OrigIdx: pull.End.OrigIdx, Price: pull.End.Price,
					})
					sell2Latch = true
				}
			}
		}
	}

	return points
}

// confirmIndex 返回突破笔内部价格首次越过确认价位的包含K线下标。
// 未找到交叉时退回笔终点。
func confirmIndex(merged []MergedBar, brk Stroke, level float64, dir Direction) int {
	for j := brk.Start.Index; j <= brk.End.Index && j < len(merged); j++ {
		if dir == Up && merged[j].High > level {
			return j
		}
		if dir == Down && merged[j].Low < level {
			return j
		}
	}
	return brk.End.Index
}
