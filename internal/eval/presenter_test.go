package eval

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestPresentScoreZeroIsMidpoint(t *testing.T) {
	p := NewPresenter(1000, 200)
	d := p.Present(Score(0), nchess.White)
	if d.Label != "0.00" || d.Bar != 0 {
		t.Fatalf("unexpected display: %+v", d)
	}
	if d != p.Neutral() {
		t.Fatalf("neutral display mismatch: %+v vs %+v", d, p.Neutral())
	}
}

func TestPresentClampsBarButNotLabel(t *testing.T) {
	p := NewPresenter(1000, 200)
	over := p.Present(Score(2500), nchess.White)
	edge := p.Present(Score(1000), nchess.White)
	if over.Bar != edge.Bar || over.Bar != 200 {
		t.Fatalf("expected clamped bar 200, got %d and %d", over.Bar, edge.Bar)
	}
	if over.Label != "25.00" {
		t.Fatalf("expected unclamped label 25.00, got %q", over.Label)
	}
	under := p.Present(Score(-4000), nchess.White)
	if under.Bar != -200 || under.Label != "-40.00" {
		t.Fatalf("unexpected negative display: %+v", under)
	}
}

func TestPresentLinearMapping(t *testing.T) {
	p := NewPresenter(1000, 200)
	cases := map[int]int{100: 20, -250: -50, 500: 100, 35: 7}
	for cp, want := range cases {
		if got := p.Present(Score(cp), nchess.White).Bar; got != want {
			t.Fatalf("cp=%d: want bar %d, got %d", cp, want, got)
		}
	}
	if got := p.Present(Score(-50), nchess.White).Label; got != "-0.50" {
		t.Fatalf("want -0.50, got %q", got)
	}
}

func TestPresentMate(t *testing.T) {
	p := NewPresenter(1000, 200)
	d := p.Present(MateIn(3), nchess.White)
	if d.Label != "Mate in 3" || d.Bar != 200 {
		t.Fatalf("mate in 3: %+v", d)
	}
	d = p.Present(MateIn(-2), nchess.White)
	if d.Label != "Mate in 2" || d.Bar != -200 {
		t.Fatalf("mate in -2: %+v", d)
	}
	d = p.Present(MateIn(0), nchess.White)
	if d.Label != "Mate in 0" || d.Bar != -200 {
		t.Fatalf("mated side to move: %+v", d)
	}
}

func TestPresentBlackPerspectiveFlipsToWhiteView(t *testing.T) {
	p := NewPresenter(1000, 200)
	d := p.Present(Score(150), nchess.Black)
	if d.Label != "-1.50" || d.Bar != -30 {
		t.Fatalf("unexpected black-to-move score: %+v", d)
	}
	d = p.Present(MateIn(2), nchess.Black)
	if d.Label != "Mate in 2" || d.Bar != -200 {
		t.Fatalf("black mates: %+v", d)
	}
}

func TestPresentIsDeterministic(t *testing.T) {
	p := NewPresenter(0, 0)
	for i := 0; i < 3; i++ {
		if a, b := p.Present(Score(777), nchess.White), p.Present(Score(777), nchess.White); a != b {
			t.Fatalf("present not pure: %+v vs %+v", a, b)
		}
	}
	if p.Present(Score(2000), nchess.White).Bar != DefaultHalfHeight {
		t.Fatalf("zero-value presenter should use defaults")
	}
}

func TestPresentMateZeroWithBlackToMove(t *testing.T) {
	p := NewPresenter(1000, 200)
	if d := p.Present(MateIn(0), nchess.Black); d.Bar != 200 {
		t.Fatalf("black is mated, bar should favour white: %+v", d)
	}
}
