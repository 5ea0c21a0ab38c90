package chessbuilder

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-evalboard/internal/board"
	"github.com/park285/chess-evalboard/internal/eval"
	"github.com/park285/chess-evalboard/internal/msgcat"
	"github.com/park285/chess-evalboard/internal/render"
	"github.com/park285/chess-evalboard/internal/session"
)

// Frame turns a game snapshot into drawable state with localised text.
// The FEN input fields are left to the caller.
func (d *Deps) Frame(snap session.Snapshot) render.Frame {
	f := render.Frame{
		Board:      snap.Position.Board(),
		Selection:  snap.Selection,
		Display:    snap.Display,
		Label:      d.DisplayLabel(snap.Display),
		Status:     d.StatusLine(snap.Position),
		ResetLabel: d.Messages.Text(msgcat.KeyReset, nil),
	}
	if snap.HasLast {
		f.Highlight = &render.MoveHighlight{From: snap.LastMove.From, To: snap.LastMove.To}
	}
	return f
}

func (d *Deps) DisplayLabel(disp eval.Display) string {
	switch disp.Status {
	case eval.StatusPending:
		return d.Messages.Text(msgcat.KeyEvalPending, nil)
	case eval.StatusUnavailable:
		return d.Messages.Text(msgcat.KeyEvalUnavailable, nil)
	default:
		return disp.Label
	}
}

// StatusLine names the side to move, or how the game ended.
func (d *Deps) StatusLine(pos board.Position) string {
	switch pos.Outcome() {
	case nchess.WhiteWon, nchess.BlackWon:
		if pos.Method() == nchess.Checkmate {
			winner := "White"
			if pos.Outcome() == nchess.BlackWon {
				winner = "Black"
			}
			return d.Messages.Text(msgcat.KeyCheckmate, map[string]any{"Winner": winner})
		}
	case nchess.Draw:
		if pos.Method() == nchess.Stalemate {
			return d.Messages.Text(msgcat.KeyStalemate, nil)
		}
		return d.Messages.Text(msgcat.KeyDraw, map[string]any{"Method": pos.Method().String()})
	}
	if pos.Turn() == nchess.Black {
		return d.Messages.Text(msgcat.KeyTurnBlack, nil)
	}
	return d.Messages.Text(msgcat.KeyTurnWhite, nil)
}
