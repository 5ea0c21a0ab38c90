package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chess-evalboard/internal/obslog"
)

var ErrClosed = errors.New("engine supervisor closed")

type SupervisorConfig struct {
	Command Command
	Options Options
	// SkipBinaryCheck disables the os.Stat probe, for commands resolved through PATH.
	SkipBinaryCheck bool
}

// Supervisor owns at most one engine session. A session released with an
// error is closed and replaced on the next Acquire.
type Supervisor struct {
	command Command
	opt     Options

	mu      sync.Mutex
	idle    chan *Session
	active  *Session
	spawned int
	closed  bool
	logger  *zap.Logger
}

func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if cfg.Command.Path == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if !cfg.SkipBinaryCheck {
		if _, err := os.Stat(cfg.Command.Path); err != nil {
			return nil, fmt.Errorf("engine binary check: %w", err)
		}
	}
	return &Supervisor{
		command: cfg.Command,
		opt:     cfg.Options,
		idle:    make(chan *Session, 1),
		logger:  obslog.Named("uci-supervisor"),
	}, nil
}

// Start spawns the session eagerly so a broken binary surfaces at startup.
func (s *Supervisor) Start(ctx context.Context) error {
	session, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	s.Release(session, nil)
	return nil
}

// Acquire hands out the idle session, spawning a fresh one if none exists.
func (s *Supervisor) Acquire(ctx context.Context) (*Session, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		s.mu.Unlock()

		select {
		case session := <-s.idle:
			if session == nil {
				continue
			}
			if err := session.EnsureReady(ctx); err != nil {
				s.logger.Warn("idle engine session not ready, respawning", zap.Error(err))
				_ = session.Close()
				continue
			}
			s.track(session)
			return session, nil
		default:
		}

		session, err := NewSession(ctx, s.command, s.opt)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.spawned++
		spawned := s.spawned
		s.mu.Unlock()
		s.logger.Info("engine session started", zap.String("path", s.command.Path), zap.Int("spawned", spawned))
		s.track(session)
		return session, nil
	}
}

// Release returns session for reuse, or closes it when err is non-nil.
func (s *Supervisor) Release(session *Session, err error) {
	if session == nil {
		return
	}

	s.mu.Lock()
	if s.active == session {
		s.active = nil
	}
	closed := s.closed
	s.mu.Unlock()

	if err != nil || closed {
		if err != nil {
			s.logger.Warn("discarding engine session", zap.Error(err))
		}
		_ = session.Close()
		return
	}

	select {
	case s.idle <- session:
	default:
		_ = session.Close()
	}
}

// Spawned reports how many processes have been started so far.
func (s *Supervisor) Spawned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned
}

// Close tears down the idle session and any session still checked out.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	active := s.active
	s.active = nil
	s.mu.Unlock()

	var errs []error
	if active != nil {
		if err := active.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for {
		select {
		case session := <-s.idle:
			if session == nil {
				continue
			}
			if err := session.Close(); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}

func (s *Supervisor) track(session *Session) {
	s.mu.Lock()
	s.active = session
	s.mu.Unlock()
}
