package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-evalboard/internal/chess/uci"
	"github.com/park285/chess-evalboard/internal/eval"
	"github.com/park285/chess-evalboard/internal/evalcache"
)

var (
	ErrEngineUnavailable = errors.New("chess engine unavailable")
	ErrEngineTimeout     = errors.New("chess engine timeout")
)

const (
	engineEvaluationFallbackTimeout = 8 * time.Second
	engineEvaluationBuffer          = 2 * time.Second
	cacheWriteTimeout               = 500 * time.Millisecond
)

type Config struct {
	Command         uci.Command
	Options         uci.Options
	Budget          Budget
	Cache           evalcache.Store
	SkipBinaryCheck bool
}

// Engine evaluates positions with a single supervised UCI process.
type Engine struct {
	sup    *uci.Supervisor
	budget Budget
	cache  evalcache.Store
	logger *zap.Logger

	// newGame asks the next search to send ucinewgame first.
	newGame atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ValidateBudget(cfg.Budget); err != nil {
		return nil, err
	}
	sup, err := uci.NewSupervisor(uci.SupervisorConfig{
		Command:         cfg.Command,
		Options:         cfg.Options,
		SkipBinaryCheck: cfg.SkipBinaryCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	cache := cfg.Cache
	if cache == nil {
		cache = evalcache.Nop{}
	}
	return &Engine{
		sup:    sup,
		budget: cfg.Budget,
		cache:  cache,
		logger: logger,
	}, nil
}

// Start launches the engine process and completes the handshake.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.sup.Start(ctx); err != nil {
		return mapEngineError(ctx, err)
	}
	return nil
}

func (e *Engine) Budget() Budget { return e.budget }

// NewGame marks the next search as belonging to an unrelated position, so
// the engine clears its search state before it. It never blocks.
func (e *Engine) NewGame() { e.newGame.Store(true) }

// Spawned reports how many engine processes have been started.
func (e *Engine) Spawned() int { return e.sup.Spawned() }

// Evaluate scores fen with the engine's default budget.
func (e *Engine) Evaluate(ctx context.Context, fen string) (eval.Result, error) {
	return e.EvaluateWith(ctx, fen, e.budget)
}

// EvaluateWith scores fen relative to its side to move. Every failure
// other than caller cancellation matches ErrEngineUnavailable.
func (e *Engine) EvaluateWith(ctx context.Context, fen string, budget Budget) (eval.Result, error) {
	if err := ValidateBudget(budget); err != nil {
		return eval.Result{}, err
	}
	key := evalcache.Key(fen, budget.Label())
	if r, ok, err := e.cache.Get(ctx, key); err != nil {
		e.logger.Warn("eval cache read failed", zap.Error(err))
	} else if ok {
		e.logger.Debug("eval cache hit", zap.String("fen", fen), zap.Stringer("result", r))
		return r, nil
	}

	timeout := budget.timeout()
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	r, err := e.search(evalCtx, fen, budget)
	if err != nil {
		mapped := mapEngineError(ctx, err)
		if errors.Is(mapped, ErrEngineUnavailable) {
			e.logger.Warn("chess engine evaluation failed",
				zap.Error(err),
				zap.String("fen", fen),
				zap.String("budget", budget.Label()),
				zap.Duration("timeout", timeout),
			)
		}
		return eval.Result{}, mapped
	}
	e.logger.Debug("chess engine evaluation",
		zap.String("fen", fen),
		zap.Stringer("result", r),
		zap.Duration("took", time.Since(start)),
	)

	putCtx, putCancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer putCancel()
	if err := e.cache.Put(putCtx, key, r); err != nil {
		e.logger.Warn("eval cache write failed", zap.Error(err))
	}
	return r, nil
}

func (e *Engine) search(ctx context.Context, fen string, budget Budget) (eval.Result, error) {
	session, err := e.sup.Acquire(ctx)
	if err != nil {
		return eval.Result{}, err
	}
	var releaseErr error
	defer func() {
		e.sup.Release(session, releaseErr)
	}()

	if e.newGame.Swap(false) {
		if err := session.NewGame(ctx); err != nil {
			e.newGame.Store(true)
			if ctx.Err() == nil {
				releaseErr = err
			}
			return eval.Result{}, err
		}
	}

	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Limits: budget.limits()})
	if err != nil {
		// a stopped search leaves the process ready for the next request
		if !errors.Is(err, uci.ErrInterrupted) {
			releaseErr = err
		}
		return eval.Result{}, err
	}
	best, err := resp.Best()
	if err != nil {
		// a terminal position can legitimately come back without a score
		if strings.TrimSpace(resp.BestMove) == "(none)" {
			return eval.MateIn(0), nil
		}
		return eval.Result{}, err
	}
	if best.Score.Mate {
		return eval.MateIn(best.Score.Value), nil
	}
	return eval.Score(best.Score.Value), nil
}

// Close stops the engine process. Later calls return the first result.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.sup.Close()
	})
	return e.closeErr
}

func mapEngineError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || engineTimeoutMessage(err) {
		return fmt.Errorf("%w: %w: %v", ErrEngineUnavailable, ErrEngineTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
}

func engineTimeoutMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout")
}

// Unavailable stands in for an engine that could not be started, so the
// board stays usable and every evaluation reports ErrEngineUnavailable.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Evaluate(context.Context, string) (eval.Result, error) {
	if u.Reason != nil {
		if errors.Is(u.Reason, ErrEngineUnavailable) {
			return eval.Result{}, u.Reason
		}
		return eval.Result{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, u.Reason)
	}
	return eval.Result{}, ErrEngineUnavailable
}

func (Unavailable) Close() error { return nil }
