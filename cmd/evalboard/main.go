package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/park285/chess-evalboard/internal/chessbuilder"
	"github.com/park285/chess-evalboard/internal/config"
	"github.com/park285/chess-evalboard/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Close()
	logger := obslog.Named("evalboard")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}
	if cfg.Source != "" {
		logger.Info("config loaded", zap.String("path", cfg.Source))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	budget, err := chessbuilder.BoardBudget(cfg)
	if err != nil {
		logger.Fatal("budget error", zap.Error(err))
	}
	deps, err := chessbuilder.New(ctx, cfg, budget, obslog.L())
	if err != nil {
		logger.Fatal("init error", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("engine shutdown", zap.Error(err))
		}
	}()

	game := deps.NewGame(obslog.Named("session"))
	defer game.Close()
	logger.Info("board ready", zap.String("session_id", game.ID()), zap.Bool("engine", deps.Available))
	if deps.Available {
		game.Refresh()
	}

	v := newView(deps, game, logger)
	go func() {
		<-ctx.Done()
		v.requestQuit()
	}()

	w, h := deps.Layout.Size()
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle("Chess Evaluation Board")
	if err := ebiten.RunGame(v); err != nil && !errors.Is(err, ebiten.Termination) {
		logger.Error("window closed with error", zap.Error(err))
	}
}
