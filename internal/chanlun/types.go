// Package chanlun 实现缠论结构分解：
// K线包含处理 -> 分型 -> 笔 -> 线段 -> 中枢与买卖点，共五个阶段。
// 输入序列不可变，所有派生结果放在侧车结构 Decomposition 中。
package chanlun

import (
	"time"

	"chanlun-quant-go/internal/models"
)

// Direction 表示笔或线段的方向
type Direction int

const (
	Up   Direction = 1
	Down Direction = -1
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// MergedBar 是包含处理后的K线。OrigIdx 指向其继承时间戳的原始K线下标。
type MergedBar struct {
	Time    time.Time
	High    float64
	Low     float64
	OrigIdx int
}

// FractalType 表示分型类别
type FractalType int

const (
	FractalNone   FractalType = 0
	FractalTop    FractalType = 1
	FractalBottom FractalType = -1
)

// Fractal 是处理后序列中的一个顶分型或底分型
type Fractal struct {
	Index   int         // 处理后序列中的下标
	OrigIdx int         // 原始序列中的下标
	Time    time.Time
	Type    FractalType
	Price   float64 // 顶分型取high，底分型取low
}

// Stroke 是连接相邻异类分型的一笔
type Stroke struct {
	ID        int
	Start     Fractal
	End       Fractal
	Direction Direction
	High      float64
	Low       float64
}

// StartPrice 返回笔的起点价格
func (s Stroke) StartPrice() float64 { return s.Start.Price }

// EndPrice 返回笔的终点价格
func (s Stroke) EndPrice() float64 { return s.End.Price }

// Segment 是由若干笔构成的线段，首尾两笔与线段同向。
type Segment struct {
	ID          int
	Direction   Direction
	StartStroke int // Strokes 中的起始下标
	EndStroke   int // Strokes 中的结束下标（含）
	Start       Fractal
	End         Fractal
	High        float64
	Low         float64
}

// StrokeCount 返回组成线段的笔数
func (s Segment) StrokeCount() int { return s.EndStroke - s.StartStroke + 1 }

// Pivot 是三笔价格区间的重叠区 [ZL, ZH]
type Pivot struct {
	ID        int
	StartTime time.Time
	EndTime   time.Time
	StartOrig int
	EndOrig   int
	ZH        float64
	ZL        float64
	Direction Direction // 所在线段的方向
	SegmentID int
}

// Side 表示买卖点方向
type Side int

const (
	Buy  Side = 1
	Sell Side = -1
)

// Point 是一个类型化的买卖点标记
type Point struct {
	Type    int // 1 或 2
	Side    Side
	Time    time.Time
	OrigIdx int
	Price   float64
}

// Decomposition 持有一次完整分解的全部派生结果。
// 各标记列与原始序列逐根对齐，消费方只读。
type Decomposition struct {
	Merged   []MergedBar
	Fractals []Fractal
	Strokes  []Stroke
	Segments []Segment
	Pivots   []Pivot
	Points   []Point

	// 按原始K线下标对齐的标记列
	FractalMarks []FractalType
	StrokeID     []int // -1 表示不属于任何笔
	SegmentID    []int
	PivotID      []int
	BuyPoint     []int // 0 / 1 / 2
	SellPoint    []int
}

// MinBars 是分解所需的最少K线数，不足时输出全部为空
const MinBars = 30

func emptyDecomposition(n int) *Decomposition {
	d := &Decomposition{
		FractalMarks: make([]FractalType, n),
		StrokeID:     make([]int, n),
		SegmentID:    make([]int, n),
		PivotID:      make([]int, n),
		BuyPoint:     make([]int, n),
		SellPoint:    make([]int, n),
	}
	for i := 0; i < n; i++ {
		d.StrokeID[i] = -1
		d.SegmentID[i] = -1
		d.PivotID[i] = -1
	}
	return d
}

// Decompose 对一个K线序列执行完整的五阶段分解。
// 序列不足 30 根时返回全空结果而非错误。
func Decompose(series *models.BarSeries, cfg models.ChanConfig) *Decomposition {
	n := series.Len()
	d := emptyDecomposition(n)
	if n < MinBars {
		return d
	}

	minBars := cfg.MinBarsBetweenFractals
	if minBars <= 0 {
		minBars = 4
	}
	minStrokes := cfg.MinStrokesForSegment
	if minStrokes < 3 {
		minStrokes = 3
	}

	d.Merged = mergeContained(series.Bars)
	d.Fractals = findFractals(d.Merged)
	d.Strokes = buildStrokes(d.Fractals, minBars)
	var terms []termination
	d.Segments, terms = buildSegments(d.Strokes, minStrokes)
	d.Pivots = findPivots(d.Strokes, d.Segments)
	d.Points = findPoints(d.Merged, d.Strokes, d.Segments, d.Pivots, terms)

	d.fillMarks(n)
	return d
}

// fillMarks 将派生列表投影为按原始下标对齐的标记列
func (d *Decomposition) fillMarks(n int) {
	for _, f := range d.Fractals {
		if f.OrigIdx >= 0 && f.OrigIdx < n {
			d.FractalMarks[f.OrigIdx] = f.Type
		}
	}
	for _, s := range d.Strokes {
		for i := s.Start.OrigIdx; i <= s.End.OrigIdx && i < n; i++ {
			d.StrokeID[i] = s.ID
		}
	}
	for _, seg := range d.Segments {
		for i := seg.Start.OrigIdx; i <= seg.End.OrigIdx && i < n; i++ {
			d.SegmentID[i] = seg.ID
		}
	}
	for _, p := range d.Pivots {
		for i := p.StartOrig; i <= p.EndOrig && i < n; i++ {
			d.PivotID[i] = p.ID
		}
	}
	for _, pt := range d.Points {
		if pt.OrigIdx < 0 || pt.OrigIdx >= n {
			continue
		}
		if pt.Side == Buy {
			d.BuyPoint[pt.OrigIdx] = pt.Type
		} else {
			d.SellPoint[pt.OrigIdx] = pt.Type
		}
	}
}
