// Command fen-eval evaluates one FEN position with the configured engine and
// prints the result. With -png it also writes the rendered board.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	nchess "github.com/corentings/chess/v2"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/park285/chess-evalboard/internal/board"
	corechess "github.com/park285/chess-evalboard/internal/chess"
	"github.com/park285/chess-evalboard/internal/chessbuilder"
	"github.com/park285/chess-evalboard/internal/config"
	"github.com/park285/chess-evalboard/internal/eval"
	"github.com/park285/chess-evalboard/internal/msgcat"
	"github.com/park285/chess-evalboard/internal/obslog"
	"github.com/park285/chess-evalboard/internal/render"
	"github.com/park285/chess-evalboard/internal/session"
)

const (
	exitOK          = 0
	exitInvalidFEN  = 1
	exitUnavailable = 2
	exitUsage       = 64
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	_ = obslog.Close()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fen-eval", flag.ContinueOnError)
	fs.SetOutput(stderr)
	budgetName := fs.String("budget", corechess.BudgetAnalysis, "search budget: live, analysis, deep, configured or a name from the config file")
	pngPath := fs.String("png", "", "write the rendered board to this file")
	relative := fs.Bool("relative", false, "report the score for the side to move instead of White")
	noColor := fs.Bool("no-color", false, "disable coloured output")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *noColor {
		color.NoColor = true
	}
	logger := obslog.Named("fen-eval")

	fen := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if fen == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(stderr, "read stdin: %v\n", err)
			return exitUsage
		}
		fen = strings.TrimSpace(line)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitUsage
	}
	if err := chessbuilder.RegisterBudgets(cfg); err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitUsage
	}
	budget, err := corechess.GetBudget(*budgetName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	bad := color.New(color.FgRed, color.Bold)
	// reject bad input before paying for an engine start
	pos, err := board.NewRules().Parse(fen)
	if err != nil {
		logger.Debug("rejected fen", zap.String("fen", fen), zap.Error(err))
		messages, merr := msgcat.New(cfg.MessagesDir)
		if merr != nil {
			fmt.Fprintf(stderr, "load messages: %v\n", merr)
			return exitUsage
		}
		bad.Fprintln(stdout, messages.Text(msgcat.KeyFENInvalid, nil))
		return exitInvalidFEN
	}

	deps, err := chessbuilder.New(ctx, cfg, budget, obslog.L())
	if err != nil {
		fmt.Fprintf(stderr, "init error: %v\n", err)
		return exitUsage
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("engine shutdown", zap.Error(err))
		}
	}()

	r, err := deps.Engine.Evaluate(ctx, pos.FEN())
	if err != nil {
		bad.Fprintln(stdout, deps.Messages.Text(msgcat.KeyCLIUnavailable, map[string]any{"Err": err.Error()}))
		return exitUnavailable
	}

	disp := deps.Presenter.Present(r, pos.Turn())
	label := disp.Label
	sign := disp.Bar
	if *relative {
		rel := deps.Presenter.Present(r, nchess.White)
		label, sign = rel.Label, rel.Bar
	}
	fmt.Fprintln(stdout, scoreColor(sign).Sprint(deps.Messages.Text(msgcat.KeyCLIEvaluation, map[string]any{"Label": label})))

	if *pngPath != "" {
		if err := writePNG(ctx, deps, pos, disp, *pngPath); err != nil {
			fmt.Fprintf(stderr, "png: %v\n", err)
			return exitUsage
		}
		fmt.Fprintln(stdout, deps.Messages.Text(msgcat.KeyCLIWrotePNG, map[string]any{"Path": *pngPath}))
	}
	return exitOK
}

func scoreColor(bar int) *color.Color {
	switch {
	case bar > 0:
		return color.New(color.FgGreen)
	case bar < 0:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

func writePNG(ctx context.Context, deps *chessbuilder.Deps, pos board.Position, disp eval.Display, path string) error {
	f := deps.Frame(session.Snapshot{Position: pos, Selection: board.NoSquare, Display: disp})
	data, err := render.New(deps.Layout).RenderPNG(ctx, f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
