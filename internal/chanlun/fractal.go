package chanlun

// findFractals 在包含处理后的序列上识别分型（阶段二）。
// 顶分型要求中间K线的high严格高于两侧，底分型对low对称。
// 随后折叠相邻同类分型，仅保留更极端的一个，保证分型类型严格交替。
func findFractals(merged []MergedBar) []Fractal {
	var raw []Fractal
	for i := 1; i+1 < len(merged); i++ {
		prev, cur, next := merged[i-1], merged[i], merged[i+1]
		if cur.High > prev.High && cur.High > next.High {
			raw = append(raw, Fractal{
				Index: i, OrigIdx: cur.OrigIdx, Time: cur.Time,
				Type: FractalTop, Price: cur.High,
			})
		} else if cur.Low < prev.Low && cur.Low < next.Low {
			raw = append(raw, Fractal{
				Index: i, OrigIdx: cur.OrigIdx, Time: cur.Time,
				Type: FractalBottom, Price: cur.Low,
			})
		}
	}
	return collapseSameType(raw)
}

// collapseSameType 将连续同类分型折叠为价格更极端的那个
func collapseSameType(raw []Fractal) []Fractal {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Fractal, 0, len(raw))
	out = append(out, raw[0])
	for _, f := range raw[1:] {
		last := &out[len(out)-1]
		if f.Type != last.Type {
			out = append(out, f)
			continue
		}
		if (f.Type == FractalTop && f.Price > last.Price) ||
			(f.Type == FractalBottom && f.Price < last.Price) {
			*last = f
		}
	}
	return out
}
