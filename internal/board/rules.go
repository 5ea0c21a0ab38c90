package board

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var ErrInvalidPositionNotation = errors.New("invalid position notation")

// Move is a from/to pair with an optional promotion piece.
type Move struct {
	From  Square
	To    Square
	Promo nchess.PieceType
}

// UCI renders the move in long algebraic form, e.g. e7e8q.
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	switch m.Promo {
	case nchess.Queen:
		s += "q"
	case nchess.Rook:
		s += "r"
	case nchess.Bishop:
		s += "b"
	case nchess.Knight:
		s += "n"
	}
	return s
}

// Position is an immutable board state obtained from an Oracle. The zero
// value reads as an empty board with White to move and no outcome.
type Position struct {
	game *nchess.Game
}

// IsZero reports whether p was not produced by an Oracle.
func (p Position) IsZero() bool { return p.game == nil }

func (p Position) FEN() string {
	if p.game == nil {
		return ""
	}
	return p.game.FEN()
}

func (p Position) Turn() nchess.Color {
	if p.game == nil {
		return nchess.White
	}
	return p.game.Position().Turn()
}

func (p Position) Piece(sq Square) nchess.Piece {
	if p.game == nil {
		return nchess.NoPiece
	}
	return p.game.Position().Board().Piece(sq)
}

// Board exposes the placement for rendering. Callers must not mutate it.
func (p Position) Board() *nchess.Board {
	if p.game == nil {
		return nchess.NewBoard(nil)
	}
	return p.game.Position().Board()
}

func (p Position) Outcome() nchess.Outcome {
	if p.game == nil {
		return nchess.NoOutcome
	}
	return p.game.Outcome()
}

func (p Position) Method() nchess.Method {
	if p.game == nil {
		return nchess.NoMethod
	}
	return p.game.Method()
}

// Oracle is the rules collaborator: parsing, legality and move application.
type Oracle interface {
	Initial() Position
	Parse(fen string) (Position, error)
	LegalMoves(p Position) []Move
	IsLegal(p Position, m Move) bool
	Apply(p Position, m Move) (Position, error)
}

// Rules binds Oracle to github.com/corentings/chess/v2.
type Rules struct{}

func NewRules() Rules { return Rules{} }

func (Rules) Initial() Position {
	return Position{game: nchess.NewGame()}
}

func (Rules) Parse(fen string) (Position, error) {
	fen = strings.TrimSpace(fen)
	if fields := strings.Fields(fen); len(fields) != 6 {
		return Position{}, fmt.Errorf("%w: want 6 fields, got %d", ErrInvalidPositionNotation, len(fields))
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidPositionNotation, err)
	}
	return Position{game: nchess.NewGame(opt)}, nil
}

func (Rules) LegalMoves(p Position) []Move {
	if p.game == nil {
		return nil
	}
	valid := p.game.ValidMoves()
	out := make([]Move, 0, len(valid))
	for _, mv := range valid {
		out = append(out, Move{From: mv.S1(), To: mv.S2(), Promo: mv.Promo()})
	}
	return out
}

func (r Rules) IsLegal(p Position, m Move) bool {
	for _, legal := range r.LegalMoves(p) {
		if legal == m {
			return true
		}
	}
	return false
}

// Apply returns the position after m. p is left untouched.
func (r Rules) Apply(p Position, m Move) (Position, error) {
	if !r.IsLegal(p, m) {
		return Position{}, fmt.Errorf("illegal move %s", m.UCI())
	}
	next := p.game.Clone()
	decoded, err := nchess.UCINotation{}.Decode(next.Position(), m.UCI())
	if err != nil {
		return Position{}, fmt.Errorf("decode move %s: %w", m.UCI(), err)
	}
	if err := next.Move(decoded, nil); err != nil {
		return Position{}, fmt.Errorf("apply move %s: %w", m.UCI(), err)
	}
	return Position{game: next}, nil
}
