package eval

import "fmt"

// Kind tags which arm of Result is populated.
type Kind int

const (
	KindScore Kind = iota
	KindMate
)

// Result is an engine evaluation relative to the side to move.
// Exactly one of Centipawns or Mate is meaningful, selected by Kind.
type Result struct {
	Kind       Kind
	Centipawns int
	Mate       int
}

// Score builds a centipawn result.
func Score(cp int) Result { return Result{Kind: KindScore, Centipawns: cp} }

// MateIn builds a forced-mate result. Positive n means the side to move mates.
func MateIn(n int) Result { return Result{Kind: KindMate, Mate: n} }

func (r Result) IsMate() bool { return r.Kind == KindMate }

// Negate flips the result to the opponent's point of view.
func (r Result) Negate() Result {
	if r.IsMate() {
		return MateIn(-r.Mate)
	}
	return Score(-r.Centipawns)
}

func (r Result) String() string {
	if r.IsMate() {
		return fmt.Sprintf("mate %d", r.Mate)
	}
	return fmt.Sprintf("cp %d", r.Centipawns)
}
