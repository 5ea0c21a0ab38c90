// Package render draws the board, the evaluation bar and the side panel into
// an RGBA image. The desktop shell uploads the image every time the game
// changes; the CLI encodes it as PNG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/chess-evalboard/internal/eval"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

// Frame is everything needed to draw one picture. Text fields are already
// localised by the caller.
type Frame struct {
	Board      *nchess.Board
	Selection  nchess.Square
	Highlight  *MoveHighlight
	Display    eval.Display
	Label      string
	Status     string
	ResetLabel string
	FENInput   string
	FENFocused bool
	Notice     string
}

type Renderer struct {
	layout Layout
	face   font.Face
}

func New(layout Layout) *Renderer {
	return &Renderer{layout: layout, face: basicfont.Face7x13}
}

func (r *Renderer) Layout() Layout { return r.layout }

// Image allocates a canvas of the window size and draws f into it.
func (r *Renderer) Image(f Frame) (*image.RGBA, error) {
	w, h := r.layout.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := r.Draw(img, f); err != nil {
		return nil, err
	}
	return img, nil
}

// Draw paints f over dst, which must be at least the layout size.
func (r *Renderer) Draw(dst *image.RGBA, f Frame) error {
	if f.Board == nil {
		return fmt.Errorf("board is nil")
	}
	imagedraw.Draw(dst, dst.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	size := r.layout.SquareSize()
	origin := r.layout.BoardRect().Min
	drawSquares(dst, size, origin)
	drawHighlight(dst, f.Board, f.Highlight, size, origin)
	if err := drawPieces(dst, f.Board, size, origin); err != nil {
		return err
	}
	if f.Selection != nchess.NoSquare {
		drawSquareOutline(dst, squareRect(f.Selection, size, origin), 3, selectionColor)
	}
	drawCoordinates(dst, r.face, size, origin)

	r.drawBar(dst, f.Display)
	r.drawPanel(dst, f)
	return nil
}

// RenderPNG draws f and encodes it.
func (r *Renderer) RenderPNG(ctx context.Context, f Frame) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	img, err := r.Image(f)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	backgroundColor      = color.RGBA{R: 28, G: 31, B: 46, A: 255}
	lightSquare          = color.RGBA{233, 207, 163, 255}
	darkSquare           = color.RGBA{187, 136, 96, 255}
	selectionColor       = color.NRGBA{R: 40, G: 170, B: 90, A: 255}
	whiteMoveHighlight   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlight   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveHighlight = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	barWhiteColor        = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	barBlackColor        = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	barMidColor          = color.NRGBA{R: 200, G: 60, B: 60, A: 200}
	panelColor           = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	inputColor           = color.NRGBA{R: 44, G: 48, B: 70, A: 255}
	inputFocusColor      = color.NRGBA{R: 90, G: 110, B: 200, A: 255}
	buttonColor          = color.NRGBA{R: 70, G: 80, B: 120, A: 255}
	textPrimary          = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	textMuted            = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	noticeColor          = color.NRGBA{R: 255, G: 140, B: 120, A: 255}
	coordinateTextColor  = color.NRGBA{R: 60, G: 40, B: 30, A: 255}
)

// drawBar fills White's share from the bottom. A zero offset splits the bar
// in half; positive offsets grow the white part.
func (r *Renderer) drawBar(dst *image.RGBA, d eval.Display) {
	bar := r.layout.BarRect()
	half := r.layout.BarHalfHeight
	offset := d.Bar
	if offset > half {
		offset = half
	}
	if offset < -half {
		offset = -half
	}
	mid := bar.Min.Y + half

	imagedraw.Draw(dst, bar, image.NewUniform(barBlackColor), image.Point{}, imagedraw.Src)
	white := image.Rect(bar.Min.X, mid-offset, bar.Max.X, bar.Max.Y)
	imagedraw.Draw(dst, white, image.NewUniform(barWhiteColor), image.Point{}, imagedraw.Src)
	imagedraw.Draw(dst, image.Rect(bar.Min.X, mid, bar.Max.X, mid+1), image.NewUniform(barMidColor), image.Point{}, imagedraw.Over)
}

func (r *Renderer) drawPanel(dst *image.RGBA, f Frame) {
	drawer := &font.Drawer{Dst: dst, Face: r.face}

	label := r.layout.LabelRect()
	drawRoundedPanel(dst, label, 8, panelColor)
	drawCenteredString(drawer, label, f.Label, textPrimary)

	btn := r.layout.ResetButton()
	drawRoundedPanel(dst, btn, 8, buttonColor)
	drawCenteredString(drawer, btn, f.ResetLabel, textPrimary)

	status := r.layout.StatusRect()
	drawLeftString(drawer, status, truncateWithEllipsis(r.face, f.Status, status.Dx()), textMuted)

	in := r.layout.FENInputRect()
	if f.FENFocused {
		drawRoundedPanel(dst, in.Inset(-2), 6, inputFocusColor)
	}
	drawRoundedPanel(dst, in, 6, inputColor)
	text := f.FENInput
	if f.FENFocused {
		text += "_"
	}
	drawLeftString(drawer, in.Inset(6), tailWithEllipsis(r.face, text, in.Dx()-12), textPrimary)

	if f.Notice != "" {
		notice := r.layout.NoticeRect()
		drawLeftString(drawer, notice, truncateWithEllipsis(r.face, f.Notice, notice.Dx()), noticeColor)
	}
}

func drawSquares(dst imagedraw.Image, size int, origin image.Point) {
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		imagedraw.Draw(dst, squareRect(sq, size, origin), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, size int, origin image.Point) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := pieceImage(piece, size)
		if err != nil {
			return err
		}
		rect := squareRect(sq, size, origin)
		imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawHighlight marks the last move: squares for a White move, an arrow for
// a Black move.
func drawHighlight(img *image.RGBA, board *nchess.Board, highlight *MoveHighlight, size int, origin image.Point) {
	if highlight == nil {
		return
	}
	switch mover, ok := moverColor(board, highlight); {
	case ok && mover == nchess.Black:
		drawArrow(img, highlight.From, highlight.To, size, origin, blackMoveHighlight)
	case ok && mover == nchess.White:
		drawSquareOverlay(img, squareRect(highlight.From, size, origin), whiteMoveHighlight)
		drawSquareOverlay(img, squareRect(highlight.To, size, origin), whiteMoveHighlight)
	default:
		drawArrow(img, highlight.From, highlight.To, size, origin, neutralMoveHighlight)
	}
}

func moverColor(board *nchess.Board, highlight *MoveHighlight) (nchess.Color, bool) {
	if piece := board.Piece(highlight.To); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	if piece := board.Piece(highlight.From); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	return nchess.NoColor, false
}

func drawCoordinates(dst *image.RGBA, face font.Face, size int, origin image.Point) {
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		file := nchess.File(i)
		rank := nchess.Rank(i)
		fileRect := squareRect(nchess.NewSquare(file, nchess.Rank1), size, origin)
		drawText(drawer, file.String(), fileRect.Max.X-9, fileRect.Max.Y-3)
		rankRect := squareRect(nchess.NewSquare(nchess.FileA, rank), size, origin)
		drawText(drawer, rank.String(), rankRect.Min.X+3, rankRect.Min.Y+ascent+2)
	}
}

func squareRect(sq nchess.Square, size int, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*size
	y := origin.Y + row*size
	return image.Rect(x, y, x+size, y+size)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
