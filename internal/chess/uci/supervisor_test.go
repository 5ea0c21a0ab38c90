package uci

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/park285/chess-evalboard/internal/chess/uci/ucitest"
)

func newTestSupervisor(t *testing.T, mode string) *Supervisor {
	t.Helper()
	sup, err := NewSupervisor(SupervisorConfig{Command: fakeCommand(mode, "cp 10")})
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	t.Cleanup(func() { _ = sup.Close() })
	return sup
}

func TestSupervisorReusesHealthySession(t *testing.T) {
	sup := newTestSupervisor(t, ucitest.ModeOK)
	ctx := context.Background()
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		s, err := sup.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		sup.Release(s, nil)
	}
	if got := sup.Spawned(); got != 1 {
		t.Fatalf("expected a single process, spawned %d", got)
	}
}

func TestSupervisorRespawnsAfterFailure(t *testing.T) {
	sup := newTestSupervisor(t, ucitest.ModeOK)
	ctx := context.Background()
	s, err := sup.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	sup.Release(s, errors.New("boom"))

	s, err = sup.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after failure: %v", err)
	}
	sup.Release(s, nil)
	if got := sup.Spawned(); got != 2 {
		t.Fatalf("expected respawn, spawned %d", got)
	}
}

func TestSupervisorClosedRejectsAcquire(t *testing.T) {
	sup := newTestSupervisor(t, ucitest.ModeOK)
	if err := sup.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := sup.Acquire(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := sup.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNewSupervisorChecksBinary(t *testing.T) {
	if _, err := NewSupervisor(SupervisorConfig{Command: Command{Path: "/nonexistent/stockfish"}}); err == nil {
		t.Fatalf("expected binary check error")
	}
	if _, err := NewSupervisor(SupervisorConfig{Command: Command{Path: os.Args[0]}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
