package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	corechess "github.com/park285/chess-evalboard/internal/chess"
	"github.com/park285/chess-evalboard/internal/chess/uci/ucitest"
	"github.com/park285/chess-evalboard/internal/config"
	"github.com/park285/chess-evalboard/internal/eval"
	"github.com/park285/chess-evalboard/internal/evalcache"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestMain(m *testing.M) {
	ucitest.RunIfRequested()
	os.Exit(m.Run())
}

func TestMissingEngineKeepsBoardUsable(t *testing.T) {
	cfg := config.Defaults()
	cfg.StockfishPath = "/nonexistent/stockfish"

	d, err := New(context.Background(), cfg, ConfiguredBudget(cfg), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if d.Available {
		t.Fatalf("engine reported available")
	}
	if _, err := d.Engine.Evaluate(context.Background(), startFEN); !errors.Is(err, corechess.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	g := d.NewGame(nil)
	defer g.Close()
	if err := g.LoadFEN(startFEN); err != nil {
		t.Fatalf("LoadFEN: %v", err)
	}
}

func TestFakeEngineEndToEnd(t *testing.T) {
	// the child inherits this environment and turns into the scripted engine
	t.Setenv("EVALBOARD_FAKE_UCI", ucitest.ModeOK)
	t.Setenv("EVALBOARD_FAKE_SCORE", "cp 77")

	cfg := config.Defaults()
	cfg.StockfishPath = os.Args[0]
	d, err := New(context.Background(), cfg, ConfiguredBudget(cfg), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if !d.Available {
		t.Fatalf("fake engine not started")
	}
	r, err := d.Engine.Evaluate(context.Background(), startFEN)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if r != eval.Score(77) {
		t.Fatalf("got %v", r)
	}
	if _, ok := d.Cache.(*evalcache.Memory); !ok {
		t.Fatalf("expected memory cache, got %T", d.Cache)
	}
}

func TestRedisCacheSelected(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := config.Defaults()
	cfg.StockfishPath = "/nonexistent/stockfish"
	cfg.Cache.RedisURL = fmt.Sprintf("redis://%s/0", mr.Addr())

	d, err := New(context.Background(), cfg, ConfiguredBudget(cfg), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := d.Cache.(*evalcache.Redis); !ok {
		t.Fatalf("expected redis cache, got %T", d.Cache)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestUnreachableRedisFallsBack(t *testing.T) {
	cfg := config.Defaults()
	cfg.StockfishPath = "/nonexistent/stockfish"
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	d, err := New(context.Background(), cfg, ConfiguredBudget(cfg), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, ok := d.Cache.(*evalcache.Memory); !ok {
		t.Fatalf("expected memory fallback, got %T", d.Cache)
	}
}

func TestBadMessagesDirIsFatal(t *testing.T) {
	cfg := config.Defaults()
	cfg.MessagesDir = "/nonexistent/messages"
	if _, err := New(context.Background(), cfg, ConfiguredBudget(cfg), nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFrameText(t *testing.T) {
	cfg := config.Defaults()
	cfg.StockfishPath = "/nonexistent/stockfish"
	d, err := New(context.Background(), cfg, ConfiguredBudget(cfg), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	g := d.NewGame(nil)
	defer g.Close()

	f := d.Frame(g.Snapshot())
	if f.Status != "White to move" || f.Label != "0.00" || f.ResetLabel != "Reset" {
		t.Fatalf("unexpected frame text: %+v", f)
	}
	if f.Highlight != nil {
		t.Fatalf("fresh board has no last move")
	}

	if err := g.LoadFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"); err != nil {
		t.Fatalf("LoadFEN: %v", err)
	}
	if got := d.StatusLine(g.Snapshot().Position); got != "Checkmate, Black wins" {
		t.Fatalf("status %q", got)
	}
	if got := d.DisplayLabel(eval.Display{Status: eval.StatusPending}); got != "Evaluating..." {
		t.Fatalf("pending label %q", got)
	}
	if got := d.DisplayLabel(eval.Display{Status: eval.StatusUnavailable}); got != "Engine unavailable" {
		t.Fatalf("unavailable label %q", got)
	}
}

func TestBoardBudgetFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine.Nodes = 5000
	cfg.Budgets = []config.BudgetConfig{{Name: "Sprint", Nodes: 800}}

	b, err := BoardBudget(cfg)
	if err != nil {
		t.Fatalf("BoardBudget: %v", err)
	}
	if b.Name != BudgetConfigured || b.Label() != "movetime=100,nodes=5000" {
		t.Fatalf("unexpected configured budget %+v (%s)", b, b.Label())
	}

	cfg.Engine.Budget = "sprint"
	b, err = BoardBudget(cfg)
	if err != nil {
		t.Fatalf("BoardBudget: %v", err)
	}
	if b.Nodes != 800 || b.Label() != "nodes=800" {
		t.Fatalf("named budget not selected: %+v", b)
	}
	if got, err := corechess.GetBudget("SPRINT"); err != nil || got.Nodes != 800 {
		t.Fatalf("registered budget not found: %+v %v", got, err)
	}

	cfg.Engine.Budget = "missing"
	if _, err := BoardBudget(cfg); err == nil {
		t.Fatalf("unknown budget accepted")
	}
}
