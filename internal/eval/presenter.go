package eval

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

const (
	DefaultClampCP    = 1000
	DefaultHalfHeight = 200
)

// Status distinguishes a real evaluation from the neutral placeholders.
type Status int

const (
	StatusReady Status = iota
	StatusPending
	StatusUnavailable
)

// Display is what the view shell draws: a label and a bar offset in pixels
// from the bar midpoint. Positive offsets favour White.
type Display struct {
	Status Status
	Label  string
	Bar    int
}

// Presenter maps results onto a bar of 2*HalfHeight pixels.
type Presenter struct {
	ClampCP    int
	HalfHeight int
}

func NewPresenter(clampCP, halfHeight int) Presenter {
	if clampCP <= 0 {
		clampCP = DefaultClampCP
	}
	if halfHeight <= 0 {
		halfHeight = DefaultHalfHeight
	}
	return Presenter{ClampCP: clampCP, HalfHeight: halfHeight}
}

// Present converts a side-to-move relative result into White's point of
// view and formats it. perspective is the side to move of the evaluated
// position.
func (p Presenter) Present(r Result, perspective nchess.Color) Display {
	p = NewPresenter(p.ClampCP, p.HalfHeight)

	if r.IsMate() {
		// mate 0 means the side to move is already mated.
		whiteMates := (r.Mate > 0) == (perspective != nchess.Black)
		bar := -p.HalfHeight
		if whiteMates {
			bar = p.HalfHeight
		}
		return Display{Status: StatusReady, Label: fmt.Sprintf("Mate in %d", abs(r.Mate)), Bar: bar}
	}

	if perspective == nchess.Black {
		r = r.Negate()
	}

	return Display{
		Status: StatusReady,
		Label:  fmt.Sprintf("%.2f", float64(r.Centipawns)/100),
		Bar:    p.barOffset(r.Centipawns),
	}
}

// Neutral is the display for a fresh board before any evaluation.
func (p Presenter) Neutral() Display {
	return Display{Status: StatusReady, Label: "0.00"}
}

func (p Presenter) Pending() Display {
	return Display{Status: StatusPending}
}

func (p Presenter) Unavailable() Display {
	return Display{Status: StatusUnavailable}
}

func (p Presenter) barOffset(cp int) int {
	if cp > p.ClampCP {
		cp = p.ClampCP
	}
	if cp < -p.ClampCP {
		cp = -p.ClampCP
	}
	return cp * p.HalfHeight / p.ClampCP
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
