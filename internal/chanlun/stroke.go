package chanlun

// buildStrokes 将交替的分型串成笔（阶段三）。
// 一笔要求起止分型之间至少间隔 minBars 根处理后K线；
// 在找到合法终点之前，如果出现了与起点同类但更极端的分型，则替换起点。
// 序列末尾仍在延伸的一笔不会被确认输出。
func buildStrokes(fractals []Fractal, minBars int) []Stroke {
	if len(fractals) < 2 {
		return nil
	}

	var strokes []Stroke
	start := fractals[0]

	for _, f := range fractals[1:] {
		if f.Type == start.Type {
			// 同类分型：更极端者取代当前起点。
			// 若起点同时是上一笔的终点，上一笔也随之延伸。
			if (f.Type == FractalTop && f.Price > start.Price) ||
				(f.Type == FractalBottom && f.Price < start.Price) {
				start = f
				if n := len(strokes); n > 0 && strokes[n-1].End.Type == f.Type {
					last := &strokes[n-1]
					last.End = f
					if last.Direction == Up {
						last.High = f.Price
					} else {
						last.Low = f.Price
					}
				}
			}
			continue
		}

		// 异类分型：检查K线间隔
		gap := f.Index - start.Index - 1
		if gap < minBars {
			continue
		}

		dir := Up
		if f.Type == FractalBottom {
			dir = Down
		}
		stroke := Stroke{
			ID:        len(strokes),
			Start:     start,
			End:       f,
			Direction: dir,
		}
		if dir == Up {
			stroke.Low, stroke.High = start.Price, f.Price
		} else {
			stroke.High, stroke.Low = start.Price, f.Price
		}
		strokes = append(strokes, stroke)
		start = f
	}

	return strokes
}
