package board

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestSquareAtInvertsRows(t *testing.T) {
	g := Geometry{Edge: 400}
	cases := []struct {
		x, y int
		want Square
	}{
		{0, 0, nchess.A8},
		{399, 399, nchess.H1},
		{0, 399, nchess.A1},
		{4*50 + 10, 6*50 + 25, nchess.E2},
		{4*50 + 10, 4*50 + 1, nchess.E4},
	}
	for _, tc := range cases {
		got, ok := g.SquareAt(tc.x, tc.y)
		if !ok || got != tc.want {
			t.Fatalf("SquareAt(%d,%d) = %v,%v want %v", tc.x, tc.y, got, ok, tc.want)
		}
	}
}

func TestSquareAtOutsideBoard(t *testing.T) {
	g := Geometry{Edge: 400}
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {400, 10}, {10, 400}} {
		if _, ok := g.SquareAt(p[0], p[1]); ok {
			t.Fatalf("expected (%d,%d) outside board", p[0], p[1])
		}
	}
	if _, ok := (Geometry{}).SquareAt(0, 0); ok {
		t.Fatalf("zero geometry should reject every point")
	}
}

func TestOriginRoundTrip(t *testing.T) {
	g := Geometry{Edge: 480}
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		x, y := g.Origin(sq)
		got, ok := g.SquareAt(x+1, y+1)
		if !ok || got != sq {
			t.Fatalf("origin of %v maps back to %v", sq, got)
		}
	}
}
