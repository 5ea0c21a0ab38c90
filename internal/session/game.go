// Package session ties the board controller to the engine. Every accepted
// move or loaded position starts one background evaluation tagged with a
// generation; results from an older generation never reach the display.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-evalboard/internal/board"
	"github.com/park285/chess-evalboard/internal/eval"
)

const updateBuffer = 16

var ErrClosed = errors.New("game closed")

// Evaluator scores a FEN relative to its side to move.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string) (eval.Result, error)
}

// GameResetter is implemented by evaluators that keep search state between
// positions. Reset and LoadFEN call NewGame so that state does not leak
// into an unrelated position.
type GameResetter interface {
	NewGame()
}

// Snapshot is a consistent copy of everything a view needs to draw.
type Snapshot struct {
	Generation uint64
	Position   board.Position
	Selection  board.Square
	LastMove   board.Move
	HasLast    bool
	Evaluating bool
	Display    eval.Display
}

type Game struct {
	id        string
	ctrl      *board.Controller
	evaluator Evaluator
	presenter eval.Presenter
	logger    *zap.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	inflight   bool
	display    eval.Display
	closed     bool

	base    context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	updates chan Snapshot
	once    sync.Once
}

func New(ctrl *board.Controller, evaluator Evaluator, presenter eval.Presenter, logger *zap.Logger) *Game {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	base, stop := context.WithCancel(context.Background())
	return &Game{
		id:        id,
		ctrl:      ctrl,
		evaluator: evaluator,
		presenter: presenter,
		logger:    logger.With(zap.String("session_id", id)),
		display:   presenter.Neutral(),
		base:      base,
		stop:      stop,
		updates:   make(chan Snapshot, updateBuffer),
	}
}

func (g *Game) ID() string { return g.id }

// Updates delivers a snapshot after every state change. Slow readers miss
// intermediate snapshots, never the latest one.
func (g *Game) Updates() <-chan Snapshot { return g.updates }

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) Display() eval.Display {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.display
}

// HandlePointerDown forwards a press to the controller. While an evaluation
// is running, presses on the board are dropped with OutcomeBusy.
func (g *Game) HandlePointerDown(x, y int) board.Result {
	sq, ok := g.ctrl.Geometry().SquareAt(x, y)
	if !ok {
		return board.Result{Outcome: board.OutcomeIgnored, Square: board.NoSquare}
	}
	return g.Click(sq)
}

func (g *Game) Click(sq board.Square) board.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return board.Result{Outcome: board.OutcomeIgnored, Square: board.NoSquare}
	}
	if g.inflight {
		return board.Result{Outcome: board.OutcomeBusy, Square: sq}
	}

	res := g.ctrl.Click(sq)
	switch res.Outcome {
	case board.OutcomeMoveApplied:
		g.logger.Info("move applied", zap.String("move", res.Move.UCI()))
		g.startEvaluationLocked()
	case board.OutcomeSelected, board.OutcomeReselected:
		g.publishLocked()
	}
	return res
}

// LoadFEN replaces the position. An invalid FEN leaves the game untouched,
// including any evaluation already running.
func (g *Game) LoadFEN(fen string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if err := g.ctrl.ApplyExternalPosition(fen); err != nil {
		g.logger.Info("position rejected", zap.String("fen", fen), zap.Error(err))
		return err
	}
	g.cancelLocked()
	g.newGame()
	g.logger.Info("position loaded", zap.String("fen", fen))
	g.startEvaluationLocked()
	return nil
}

// Reset restores the initial position with a neutral display. The engine
// is not consulted.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.cancelLocked()
	g.newGame()
	g.ctrl.Reset()
	g.generation++
	g.display = g.presenter.Neutral()
	g.logger.Debug("game reset", zap.Uint64("generation", g.generation))
	g.publishLocked()
}

// Refresh evaluates the current position again. The board shell calls it
// once at start-up so the first frame carries a real evaluation.
func (g *Game) Refresh() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.cancelLocked()
	g.startEvaluationLocked()
}

// Wait blocks until no evaluation goroutine is running.
func (g *Game) Wait() { g.wg.Wait() }

// Close cancels outstanding work and closes the updates channel.
func (g *Game) Close() error {
	g.once.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.cancelLocked()
		g.mu.Unlock()
		g.stop()
		g.wg.Wait()
		close(g.updates)
	})
	return nil
}

func (g *Game) startEvaluationLocked() {
	g.generation++
	gen := g.generation
	pos := g.ctrl.Position()
	fen := pos.FEN()
	turn := pos.Turn()

	ctx, cancel := context.WithCancel(g.base)
	g.cancel = cancel
	g.inflight = true
	g.display = g.presenter.Pending()
	g.publishLocked()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		r, err := g.evaluator.Evaluate(ctx, fen)
		g.finish(gen, fen, turn, r, err)
	}()
}

func (g *Game) finish(gen uint64, fen string, turn nchess.Color, r eval.Result, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.generation || g.closed {
		g.logger.Debug("dropping stale evaluation", zap.Uint64("generation", gen), zap.Uint64("current", g.generation))
		return
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.inflight = false

	if err != nil {
		g.logger.Warn("evaluation unavailable", zap.String("fen", fen), zap.Error(err))
		g.display = g.presenter.Unavailable()
		g.publishLocked()
		return
	}
	g.display = g.presenter.Present(r, turn)
	g.logger.Debug("evaluation ready",
		zap.String("fen", fen),
		zap.Stringer("turn", turn),
		zap.Stringer("result", r),
		zap.String("label", g.display.Label),
	)
	g.publishLocked()
}

func (g *Game) newGame() {
	if r, ok := g.evaluator.(GameResetter); ok {
		r.NewGame()
	}
}

func (g *Game) cancelLocked() {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.inflight = false
}

func (g *Game) snapshotLocked() Snapshot {
	sel, _ := g.ctrl.Selection()
	last, has := g.ctrl.LastMove()
	return Snapshot{
		Generation: g.generation,
		Position:   g.ctrl.Position(),
		Selection:  sel,
		LastMove:   last,
		HasLast:    has,
		Evaluating: g.inflight,
		Display:    g.display,
	}
}

func (g *Game) publishLocked() {
	if g.closed {
		return
	}
	snap := g.snapshotLocked()
	select {
	case g.updates <- snap:
		return
	default:
	}
	select {
	case <-g.updates:
	default:
	}
	select {
	case g.updates <- snap:
	default:
		g.logger.Debug("update dropped", zap.Uint64("generation", snap.Generation))
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("gen=%d fen=%q evaluating=%v label=%q bar=%d",
		s.Generation, s.Position.FEN(), s.Evaluating, s.Display.Label, s.Display.Bar)
}
