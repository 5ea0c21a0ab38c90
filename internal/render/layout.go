package render

import "image"

const (
	panelGap      = 16
	panelWidth    = 240
	barWidth      = 36
	controlOffset = barWidth + 16
	controlWidth  = panelWidth - controlOffset - 8
	inputStrip    = 64
	defaultEdge   = 640
)

// Layout fixes where everything sits in the window. The board's top-left
// corner is the window origin so pointer coordinates map straight onto it.
type Layout struct {
	Edge          int
	BarHalfHeight int
}

func NewLayout(edge, barHalfHeight int) Layout {
	if edge <= 0 {
		edge = defaultEdge
	}
	if barHalfHeight <= 0 {
		barHalfHeight = edge / 4
	}
	return Layout{Edge: edge, BarHalfHeight: barHalfHeight}
}

func (l Layout) SquareSize() int { return l.Edge / 8 }

// Size is the window size in pixels.
func (l Layout) Size() (int, int) {
	return l.Edge + panelGap + panelWidth, l.upperHeight() + inputStrip
}

func (l Layout) upperHeight() int {
	h := 2*l.BarHalfHeight + 2*panelGap
	if l.Edge > h {
		return l.Edge
	}
	return h
}

func (l Layout) BoardRect() image.Rectangle {
	s := l.SquareSize() * 8
	return image.Rect(0, 0, s, s)
}

func (l Layout) panelX() int { return l.Edge + panelGap }

func (l Layout) BarRect() image.Rectangle {
	top := (l.upperHeight() - 2*l.BarHalfHeight) / 2
	x := l.panelX()
	return image.Rect(x, top, x+barWidth, top+2*l.BarHalfHeight)
}

func (l Layout) LabelRect() image.Rectangle {
	bar := l.BarRect()
	x := l.panelX() + controlOffset
	return image.Rect(x, bar.Min.Y, x+controlWidth, bar.Min.Y+28)
}

func (l Layout) ResetButton() image.Rectangle {
	label := l.LabelRect()
	return image.Rect(label.Min.X, label.Max.Y+12, label.Min.X+120, label.Max.Y+40)
}

func (l Layout) StatusRect() image.Rectangle {
	btn := l.ResetButton()
	return image.Rect(btn.Min.X, btn.Max.Y+16, btn.Min.X+controlWidth, btn.Max.Y+36)
}

func (l Layout) FENInputRect() image.Rectangle {
	w, _ := l.Size()
	top := l.upperHeight() + 8
	return image.Rect(8, top, w-8, top+24)
}

func (l Layout) NoticeRect() image.Rectangle {
	in := l.FENInputRect()
	return image.Rect(in.Min.X, in.Max.Y+4, in.Max.X, in.Max.Y+24)
}

// OnReset reports whether (x, y) falls on the Reset button.
func (l Layout) OnReset(x, y int) bool {
	return image.Pt(x, y).In(l.ResetButton())
}

func (l Layout) OnFENInput(x, y int) bool {
	return image.Pt(x, y).In(l.FENInputRect())
}
