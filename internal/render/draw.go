package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type pointF struct {
	X float64
	Y float64
}

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawSquareOutline(img *image.RGBA, rect image.Rectangle, width int, clr color.Color) {
	fill := image.NewUniform(clr)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+width, rect.Min.X+width, rect.Max.Y-width), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-width, rect.Min.Y+width, rect.Max.X, rect.Max.Y-width), fill, image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to nchess.Square, size int, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	startRect := squareRect(from, size, origin)
	endRect := squareRect(to, size, origin)
	start := pointF{X: float64(startRect.Min.X + size/2), Y: float64(startRect.Min.Y + size/2)}
	end := pointF{X: float64(endRect.Min.X + size/2), Y: float64(endRect.Min.Y + size/2)}

	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(size)*0.45
	if baseLength < float64(size)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(size) * 0.18
	headWidth := float64(size) * 0.32

	baseX := start.X + dirX*baseLength
	baseY := start.Y + dirY*baseLength

	fillQuad(img,
		pointF{X: start.X - perpX*halfWidth, Y: start.Y - perpY*halfWidth},
		pointF{X: start.X + perpX*halfWidth, Y: start.Y + perpY*halfWidth},
		pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth},
		pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		end,
		pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2},
		pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2},
		clr,
	)
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, c := range corners {
		drawQuarterDisc(img, c, radius, rect, clr)
	}
}

// drawQuarterDisc fills the part of the disc around center that lies in the
// corner region of bounds not already covered by the panel body.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, bounds image.Rectangle, clr color.Color) {
	inner := image.Rect(bounds.Min.X+radius, bounds.Min.Y+radius, bounds.Max.X-radius, bounds.Max.Y-radius)
	rr := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rr {
				continue
			}
			p := image.Pt(center.X+x, center.Y+y)
			if !p.In(bounds) {
				continue
			}
			inCornerX := p.X < inner.Min.X || p.X >= inner.Max.X
			inCornerY := p.Y < inner.Min.Y || p.Y >= inner.Max.Y
			if inCornerX && inCornerY {
				blendPixel(img, p.X, p.Y, clr)
			}
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 65535 - sa
	// premultiplied "over"
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*257*inv/65535) >> 8),
		G: uint8((sg + uint32(dst.G)*257*inv/65535) >> 8),
		B: uint8((sb + uint32(dst.B)*257*inv/65535) >> 8),
		A: uint8((sa + uint32(dst.A)*257*inv/65535) >> 8),
	})
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawLeftString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(rect.Min.X, baseline)
	drawer.DrawString(text)
}

func drawText(drawer *font.Drawer, text string, x, baseline int) {
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

// tailWithEllipsis keeps the end of text visible, for the input line where
// the caret sits at the end.
func tailWithEllipsis(face font.Face, text string, maxWidth int) string {
	if text == "" || maxWidth <= 0 {
		return text
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[1:]
		candidate := ellipsis + string(runes)
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}
