package board

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// Outcome reports what a pointer press did.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeSelected
	OutcomeReselected
	OutcomeMoveApplied
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSelected:
		return "selected"
	case OutcomeReselected:
		return "reselected"
	case OutcomeMoveApplied:
		return "move-applied"
	case OutcomeBusy:
		return "busy"
	default:
		return "ignored"
	}
}

// Result is returned from HandlePointerDown. Move is set only for OutcomeMoveApplied.
type Result struct {
	Outcome Outcome
	Square  Square
	Move    Move
}

// Controller owns the current position and the pending selection.
// It is not safe for concurrent use; the session layer serialises access.
type Controller struct {
	rules    Oracle
	geometry Geometry

	pos      Position
	selected Square
	lastMove *Move
}

func NewController(rules Oracle, geometry Geometry) *Controller {
	if rules == nil {
		rules = NewRules()
	}
	return &Controller{
		rules:    rules,
		geometry: geometry,
		pos:      rules.Initial(),
		selected: NoSquare,
	}
}

func (c *Controller) Position() Position { return c.pos }

func (c *Controller) Geometry() Geometry { return c.geometry }

// Selection returns the pending square, if any.
func (c *Controller) Selection() (Square, bool) {
	return c.selected, c.selected != NoSquare
}

// LastMove returns the most recent move applied through the pointer, if any.
func (c *Controller) LastMove() (Move, bool) {
	if c.lastMove == nil {
		return Move{}, false
	}
	return *c.lastMove, true
}

// HandlePointerDown maps a press at pixel (x, y) to a selection or a move.
// Illegal second clicks become the new selection.
func (c *Controller) HandlePointerDown(x, y int) Result {
	sq, ok := c.geometry.SquareAt(x, y)
	if !ok {
		return Result{Outcome: OutcomeIgnored, Square: NoSquare}
	}
	return c.Click(sq)
}

// Click is HandlePointerDown for an already resolved square.
func (c *Controller) Click(sq Square) Result {
	if c.selected == NoSquare {
		c.selected = sq
		return Result{Outcome: OutcomeSelected, Square: sq}
	}

	mv, ok := c.candidate(c.selected, sq)
	if !ok {
		c.selected = sq
		return Result{Outcome: OutcomeReselected, Square: sq}
	}

	next, err := c.rules.Apply(c.pos, mv)
	if err != nil {
		c.selected = sq
		return Result{Outcome: OutcomeReselected, Square: sq}
	}
	c.pos = next
	c.selected = NoSquare
	c.lastMove = &mv
	return Result{Outcome: OutcomeMoveApplied, Square: sq, Move: mv}
}

// candidate finds the legal move from->to. Promotions default to a queen.
func (c *Controller) candidate(from, to Square) (Move, bool) {
	plain := Move{From: from, To: to}
	if c.rules.IsLegal(c.pos, plain) {
		return plain, true
	}
	queen := Move{From: from, To: to, Promo: nchess.Queen}
	if c.rules.IsLegal(c.pos, queen) {
		return queen, true
	}
	return Move{}, false
}

// ApplyExternalPosition replaces the position with one parsed from fen.
// On error the controller is unchanged.
func (c *Controller) ApplyExternalPosition(fen string) error {
	next, err := c.rules.Parse(fen)
	if err != nil {
		return fmt.Errorf("apply position: %w", err)
	}
	c.pos = next
	c.selected = NoSquare
	c.lastMove = nil
	return nil
}

// Reset restores the initial position and clears the selection.
func (c *Controller) Reset() {
	c.pos = c.rules.Initial()
	c.selected = NoSquare
	c.lastMove = nil
}
