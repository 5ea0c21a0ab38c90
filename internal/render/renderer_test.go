package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-evalboard/internal/eval"
)

func startFrame(d eval.Display) Frame {
	return Frame{
		Board:      nchess.NewGame().Position().Board(),
		Selection:  nchess.NoSquare,
		Display:    d,
		Label:      d.Label,
		Status:     "White to move",
		ResetLabel: "Reset",
	}
}

func rgbaAt(img *image.RGBA, p image.Point) color.RGBA {
	return img.RGBAAt(p.X, p.Y)
}

func TestLayoutKeepsBoardAtOrigin(t *testing.T) {
	l := NewLayout(640, 200)
	if got := l.BoardRect(); got != image.Rect(0, 0, 640, 640) {
		t.Fatalf("board rect %v", got)
	}
	w, h := l.Size()
	if w <= 640 || h <= 640 {
		t.Fatalf("window %dx%d too small", w, h)
	}
	if l.BarRect().Dy() != 400 {
		t.Fatalf("bar height %d", l.BarRect().Dy())
	}
	btn := l.ResetButton()
	if !l.OnReset(btn.Min.X+1, btn.Min.Y+1) || l.OnReset(10, 10) {
		t.Fatalf("reset hit test wrong")
	}
	in := l.FENInputRect()
	if !l.OnFENInput(in.Min.X+1, in.Min.Y+1) || in.Overlaps(l.BoardRect()) {
		t.Fatalf("fen input misplaced: %v", in)
	}
}

func TestBarFavoursWhiteUpwards(t *testing.T) {
	r := New(NewLayout(320, 100))
	bar := r.Layout().BarRect()
	mid := bar.Min.Y + 100
	x := bar.Min.X + bar.Dx()/2

	img, err := r.Image(startFrame(eval.Display{Label: "5.00", Bar: 50}))
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if got := rgbaAt(img, image.Pt(x, mid-25)); got != barWhiteColor {
		t.Fatalf("expected white above midpoint, got %v", got)
	}
	if got := rgbaAt(img, image.Pt(x, mid-75)); got != barBlackColor {
		t.Fatalf("expected black near the top, got %v", got)
	}

	img, err = r.Image(startFrame(eval.Display{Label: "-5.00", Bar: -50}))
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if got := rgbaAt(img, image.Pt(x, mid+25)); got != barBlackColor {
		t.Fatalf("expected black below midpoint, got %v", got)
	}
}

func TestSelectionOutline(t *testing.T) {
	r := New(NewLayout(320, 100))
	f := startFrame(eval.Display{})
	f.Selection = nchess.E2
	img, err := r.Image(f)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	rect := squareRect(nchess.E2, r.Layout().SquareSize(), image.Point{})
	got := rgbaAt(img, rect.Min.Add(image.Pt(1, 1)))
	want := color.RGBAModel.Convert(selectionColor).(color.RGBA)
	if got != want {
		t.Fatalf("outline colour %v want %v", got, want)
	}
}

func TestAllPieceAssetsRasterise(t *testing.T) {
	for _, c := range []nchess.Color{nchess.White, nchess.Black} {
		for _, pt := range []nchess.PieceType{nchess.King, nchess.Queen, nchess.Rook, nchess.Bishop, nchess.Knight, nchess.Pawn} {
			img, err := pieceImage(nchess.NewPiece(pt, c), 40)
			if err != nil {
				t.Fatalf("piece %v %v: %v", c, pt, err)
			}
			if img.Bounds().Dx() != 40 {
				t.Fatalf("unexpected size %v", img.Bounds())
			}
		}
	}
}

func TestRenderPNG(t *testing.T) {
	r := New(NewLayout(320, 100))
	f := startFrame(eval.Display{Label: "0.00"})
	f.Highlight = &MoveHighlight{From: nchess.E2, To: nchess.E4}
	f.FENInput = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	f.FENFocused = true
	f.Notice = "Invalid FEN string"

	data, err := r.RenderPNG(context.Background(), f)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	w, h := r.Layout().Size()
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("png %v want %dx%d", img.Bounds(), w, h)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, f); err == nil {
		t.Fatalf("expected cancelled render to fail")
	}
}

func TestNilBoardRejected(t *testing.T) {
	if _, err := New(NewLayout(320, 100)).Image(Frame{}); err == nil {
		t.Fatalf("expected error for nil board")
	}
}
