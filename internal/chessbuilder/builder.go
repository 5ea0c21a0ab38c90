// Package chessbuilder assembles the engine, cache, presenter and message
// catalog from configuration. Both commands start from here.
package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-evalboard/internal/board"
	corechess "github.com/park285/chess-evalboard/internal/chess"
	"github.com/park285/chess-evalboard/internal/chess/uci"
	"github.com/park285/chess-evalboard/internal/config"
	"github.com/park285/chess-evalboard/internal/eval"
	"github.com/park285/chess-evalboard/internal/evalcache"
	"github.com/park285/chess-evalboard/internal/msgcat"
	"github.com/park285/chess-evalboard/internal/render"
	"github.com/park285/chess-evalboard/internal/session"
)

const (
	engineStartTimeout = 10 * time.Second
	redisDialTimeout   = 3 * time.Second
)

// Evaluator is what the commands need from an engine.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string) (eval.Result, error)
	Close() error
}

type Deps struct {
	Engine    Evaluator
	Available bool
	Cache     evalcache.Store
	Presenter eval.Presenter
	Messages  *msgcat.Catalog
	Layout    render.Layout

	logger  *zap.Logger
	closers []func() error
}

// BudgetConfigured names the budget built from the engine section.
const BudgetConfigured = "configured"

// ConfiguredBudget turns the engine section of cfg into a search budget.
func ConfiguredBudget(cfg *config.AppConfig) corechess.Budget {
	return corechess.Budget{
		Name:     BudgetConfigured,
		MoveTime: time.Duration(cfg.Engine.MoveTimeMS) * time.Millisecond,
		Depth:    cfg.Engine.Depth,
		Nodes:    cfg.Engine.Nodes,
	}
}

// RegisterBudgets makes the configured budget and every entry of
// cfg.Budgets selectable by name next to the built-in ones.
func RegisterBudgets(cfg *config.AppConfig) error {
	var errs []error
	if err := corechess.RegisterBudget(ConfiguredBudget(cfg)); err != nil {
		errs = append(errs, err)
	}
	for _, b := range cfg.Budgets {
		err := corechess.RegisterBudget(corechess.Budget{
			Name:     b.Name,
			MoveTime: time.Duration(b.MoveTimeMS) * time.Millisecond,
			Depth:    b.Depth,
			Nodes:    b.Nodes,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("budget %q: %w", b.Name, err))
		}
	}
	return errors.Join(errs...)
}

// BoardBudget registers the configured budgets and returns the one named by
// engine.budget, or the engine section itself when that is empty.
func BoardBudget(cfg *config.AppConfig) (corechess.Budget, error) {
	if err := RegisterBudgets(cfg); err != nil {
		return corechess.Budget{}, err
	}
	name := strings.TrimSpace(cfg.Engine.Budget)
	if name == "" {
		name = BudgetConfigured
	}
	return corechess.GetBudget(name)
}

// New wires everything. An engine that cannot start is replaced by
// corechess.Unavailable; only configuration and message errors are fatal.
func New(ctx context.Context, cfg *config.AppConfig, budget corechess.Budget, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	messages, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	d := &Deps{
		Presenter: eval.NewPresenter(cfg.Board.ClampCP, cfg.Board.BarHalfHeight),
		Messages:  messages,
		Layout:    render.NewLayout(cfg.Board.Edge, cfg.Board.BarHalfHeight),
		logger:    logger,
	}
	d.Cache = d.buildCache(ctx, cfg)

	engine, err := d.buildEngine(ctx, cfg, budget)
	if err != nil {
		logger.Warn("chess engine unavailable, evaluations disabled",
			zap.String("path", cfg.StockfishPath),
			zap.Error(err),
		)
		d.Engine = corechess.Unavailable{Reason: err}
		return d, nil
	}
	d.Engine = engine
	d.Available = true
	d.closers = append(d.closers, engine.Close)
	return d, nil
}

func (d *Deps) buildCache(ctx context.Context, cfg *config.AppConfig) evalcache.Store {
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	if url := strings.TrimSpace(cfg.Cache.RedisURL); url != "" {
		dialCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
		defer cancel()
		rc, err := evalcache.DialRedis(dialCtx, url, ttl)
		if err == nil {
			d.closers = append(d.closers, rc.Close)
			d.logger.Info("eval cache: redis", zap.Duration("ttl", ttl))
			return rc
		}
		d.logger.Warn("eval cache: redis unreachable, using memory", zap.Error(err))
	}
	if cfg.Cache.Size == 0 {
		return evalcache.Nop{}
	}
	return evalcache.NewMemory(cfg.Cache.Size, ttl)
}

func (d *Deps) buildEngine(ctx context.Context, cfg *config.AppConfig, budget corechess.Budget) (*corechess.Engine, error) {
	path, err := exec.LookPath(cfg.StockfishPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", corechess.ErrEngineUnavailable, err)
	}
	engine, err := corechess.NewEngine(corechess.Config{
		Command: uci.Command{Path: path},
		Options: uci.Options{Threads: cfg.Engine.Threads, HashMB: cfg.Engine.HashMB},
		Budget:  budget,
		Cache:   d.Cache,
	}, d.logger.Named("engine"))
	if err != nil {
		return nil, err
	}
	startCtx, cancel := context.WithTimeout(ctx, engineStartTimeout)
	defer cancel()
	if err := engine.Start(startCtx); err != nil {
		_ = engine.Close()
		return nil, err
	}
	d.logger.Info("chess engine ready", zap.String("path", path), zap.String("budget", budget.Label()))
	return engine, nil
}

// NewGame builds a board session on top of the shared engine.
func (d *Deps) NewGame(logger *zap.Logger) *session.Game {
	ctrl := board.NewController(nil, board.Geometry{Edge: d.Layout.Edge})
	return session.New(ctrl, d.Engine, d.Presenter, logger)
}

// Close releases the engine and the cache connection.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
