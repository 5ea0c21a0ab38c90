package main

import (
	"image"
	"strings"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/park285/chess-evalboard/internal/chessbuilder"
	"github.com/park285/chess-evalboard/internal/msgcat"
	"github.com/park285/chess-evalboard/internal/render"
	"github.com/park285/chess-evalboard/internal/session"
)

// view is the ebiten shell: it forwards input to the session and redraws
// the software-rendered frame whenever something changed.
type view struct {
	deps     *chessbuilder.Deps
	game     *session.Game
	renderer *render.Renderer
	logger   *zap.Logger

	canvas    *image.RGBA
	offscreen *ebiten.Image
	dirty     bool

	input   []rune
	focused bool
	notice  string

	quit atomic.Bool
}

func newView(deps *chessbuilder.Deps, game *session.Game, logger *zap.Logger) *view {
	r := render.New(deps.Layout)
	w, h := deps.Layout.Size()
	return &view{
		deps:     deps,
		game:     game,
		renderer: r,
		logger:   logger,
		canvas:   image.NewRGBA(image.Rect(0, 0, w, h)),
		dirty:    true,
	}
}

func (v *view) requestQuit() { v.quit.Store(true) }

func (v *view) Update() error {
	if v.quit.Load() {
		return ebiten.Termination
	}
	if v.drainUpdates() {
		return ebiten.Termination
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		v.handleClick(ebiten.CursorPosition())
	}
	v.handleTyping()
	return nil
}

// drainUpdates reports whether the game has been closed.
func (v *view) drainUpdates() bool {
	for {
		select {
		case _, ok := <-v.game.Updates():
			if !ok {
				return true
			}
			v.dirty = true
		default:
			return false
		}
	}
}

func (v *view) handleClick(x, y int) {
	layout := v.deps.Layout
	v.dirty = true
	switch {
	case layout.OnReset(x, y):
		v.game.Reset()
		v.notice = ""
		v.focused = false
	case layout.OnFENInput(x, y):
		v.focused = true
	default:
		v.focused = false
		res := v.game.HandlePointerDown(x, y)
		v.logger.Debug("pointer", zap.Int("x", x), zap.Int("y", y), zap.Stringer("outcome", res.Outcome))
	}
}

func (v *view) handleTyping() {
	before := len(v.input)
	v.input = ebiten.AppendInputChars(v.input)
	if len(v.input) != before {
		v.focused = true
		v.dirty = true
	}
	if !v.focused {
		return
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && len(v.input) > 0:
		v.input = v.input[:len(v.input)-1]
		v.dirty = true
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		v.input = v.input[:0]
		v.notice = ""
		v.focused = false
		v.dirty = true
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter):
		v.submitFEN()
		v.dirty = true
	}
}

func (v *view) submitFEN() {
	fen := strings.TrimSpace(string(v.input))
	if fen == "" {
		return
	}
	if err := v.game.LoadFEN(fen); err != nil {
		v.notice = v.deps.Messages.Text(msgcat.KeyFENInvalid, nil)
		return
	}
	v.input = v.input[:0]
	v.notice = ""
	v.focused = false
}

func (v *view) Draw(screen *ebiten.Image) {
	if v.offscreen == nil {
		b := v.canvas.Bounds()
		v.offscreen = ebiten.NewImage(b.Dx(), b.Dy())
	}
	if v.dirty {
		f := v.deps.Frame(v.game.Snapshot())
		f.FENInput = string(v.input)
		f.FENFocused = v.focused
		if !v.focused && len(v.input) == 0 {
			f.FENInput = v.deps.Messages.Text(msgcat.KeyFENPlaceholder, nil)
		}
		f.Notice = v.notice
		if err := v.renderer.Draw(v.canvas, f); err != nil {
			v.logger.Error("render failed", zap.Error(err))
		} else {
			v.offscreen.WritePixels(v.canvas.Pix)
		}
		v.dirty = false
	}
	screen.DrawImage(v.offscreen, nil)
}

func (v *view) Layout(int, int) (int, int) {
	return v.deps.Layout.Size()
}
