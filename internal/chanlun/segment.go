package chanlun

// termination 记录一次线段终结事件：被确认终结的线段、确认它的反向笔，
// 以及被突破的回调特征极值（终结在价格越过该极值的瞬间成立）
type termination struct {
	segIdx      int
	breakStroke int
	level       float64
}

// buildSegments 将笔划分为线段（阶段四）。
// 候选线段从一根同向笔开始延伸；当一根反向笔跌破（升破）前一次回调的特征极值时，
// 线段在上一根同向笔的终点处终结。不足 minStrokes 笔的候选不构成线段。
// 序列末尾未被确认终结的一段不输出。
func buildSegments(strokes []Stroke, minStrokes int) ([]Segment, []termination) {
	if len(strokes) == 0 {
		return nil, nil
	}

	var segments []Segment
	var terms []termination

	segStart := 0
	dir := strokes[0].Direction
	haveCorr := false
	corrExtreme := 0.0 // 上升段记回调低点，下降段记反弹高点

	for i := 1; i < len(strokes); i++ {
		s := strokes[i]
		if s.Direction == dir {
			continue
		}

		// 反向笔：先与上一次回调的特征极值比较
		broke := false
		if haveCorr {
			if dir == Up && s.Low < corrExtreme {
				broke = true
			} else if dir == Down && s.High > corrExtreme {
				broke = true
			}
		}

		if broke {
			count := i - segStart // segStart..i-1
			if count >= minStrokes {
				seg := makeSegment(len(segments), strokes, segStart, i-1, dir)
				segments = append(segments, seg)
				terms = append(terms, termination{segIdx: len(segments) - 1, breakStroke: i, level: corrExtreme})
			}
			// 新候选从确认终结的反向笔开始
			segStart = i
			dir = s.Direction
			haveCorr = false
			continue
		}

		if dir == Up {
			corrExtreme = s.Low
		} else {
			corrExtreme = s.High
		}
		haveCorr = true
	}

	return segments, terms
}

func makeSegment(id int, strokes []Stroke, start, end int, dir Direction) Segment {
	seg := Segment{
		ID:          id,
		Direction:   dir,
		StartStroke: start,
		EndStroke:   end,
		Start:       strokes[start].Start,
		End:         strokes[end].End,
		High:        strokes[start].High,
		Low:         strokes[start].Low,
	}
	for i := start + 1; i <= end; i++ {
		seg.High = maxF(seg.High, strokes[i].High)
		seg.Low = minF(seg.Low, strokes[i].Low)
	}
	return seg
}
