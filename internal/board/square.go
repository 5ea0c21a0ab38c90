package board

import nchess "github.com/corentings/chess/v2"

// Square indexes the board a1=0 .. h8=63, the same layout the rules library uses.
type Square = nchess.Square

// NoSquare marks an empty selection.
const NoSquare = nchess.NoSquare

// Geometry describes the rendered board: an Edge x Edge pixel area with
// rank 8 at the top.
type Geometry struct {
	Edge int
}

func (g Geometry) SquareSize() int {
	return g.Edge / 8
}

// SquareAt maps a pixel coordinate to a square. ok is false outside the board.
func (g Geometry) SquareAt(x, y int) (Square, bool) {
	size := g.SquareSize()
	if size <= 0 || x < 0 || y < 0 || x >= size*8 || y >= size*8 {
		return NoSquare, false
	}
	col := x / size
	row := y / size
	return nchess.NewSquare(nchess.File(col), nchess.Rank(7-row)), true
}

// Origin returns the top-left pixel of sq.
func (g Geometry) Origin(sq Square) (int, int) {
	size := g.SquareSize()
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	return col * size, row * size
}
