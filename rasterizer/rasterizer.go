package rasterizer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	_ "image/jpeg"

	"dentalscreen-api/annotation"
	"dentalscreen-api/constants"

	xdraw "golang.org/x/image/draw"
)

// Surface geometry. The content area matches the editor canvas, the
// margin frames the photograph on the flattened raster.
const (
	ContentWidth  = 760
	ContentHeight = 520
	Margin        = 20

	CanvasWidth  = ContentWidth + 2*Margin
	CanvasHeight = ContentHeight + 2*Margin
)

// Compose flattens an annotation document onto its base photograph and
// returns PNG bytes. Pure and deterministic: the same (base, document)
// pair always produces byte-identical output.
//
// The base image is fitted into the content area with its aspect ratio
// preserved and is never upscaled, then centered; objects draw on top in
// insertion order, so later objects occlude earlier ones. Eraser
// strokes are ordinary white strokes and occlude the same way.
func Compose(baseImage []byte, doc *annotation.Document) ([]byte, error) {
	base, _, err := image.Decode(bytes.NewReader(baseImage))
	if err != nil {
		return nil, fmt.Errorf("decode base image: %w", err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	FillRect(canvas, canvas.Bounds(), color.RGBA{255, 255, 255, 255})

	DrawBaseImage(canvas, base)

	if doc != nil {
		for _, object := range doc.Objects {
			drawObject(canvas, object)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode raster: %w", err)
	}
	return buf.Bytes(), nil
}

// DrawBaseImage scales the photograph into the content area, downscale
// only, and centers it on the canvas.
func DrawBaseImage(canvas *image.RGBA, base image.Image) {
	iw := base.Bounds().Dx()
	ih := base.Bounds().Dy()
	if iw == 0 || ih == 0 {
		return
	}

	scale := math.Min(float64(ContentWidth)/float64(iw), float64(ContentHeight)/float64(ih))
	if scale > 1 {
		scale = 1
	}

	dw := int(float64(iw) * scale)
	dh := int(float64(ih) * scale)
	x0 := Margin + (ContentWidth-dw)/2
	y0 := Margin + (ContentHeight-dh)/2

	dst := image.Rect(x0, y0, x0+dw, y0+dh)
	xdraw.ApproxBiLinear.Scale(canvas, dst, base, base.Bounds(), xdraw.Over, nil)
}

func drawObject(canvas *image.RGBA, object annotation.Object) {
	col := ParseHexColor(object.Color)
	width := object.StrokeWidth
	if width <= 0 {
		width = 2
	}

	switch object.Kind {
	case constants.AntnKindStroke:
		drawStroke(canvas, object.Points, col, width)
	case constants.AntnKindRectangle:
		drawRectangleOutline(canvas, object.X, object.Y, object.Width, object.Height, col, width)
	case constants.AntnKindCircle:
		drawCircleOutline(canvas, object.CX, object.CY, object.Radius, col, width)
	case constants.AntnKindArrowGroup:
		drawArrow(canvas, object.Arrow, col, width)
	case constants.AntnKindImage:
		// Raster layers are out of model; nothing to draw.
	}
}

func drawStroke(canvas *image.RGBA, points []annotation.Point2D, col color.RGBA, width float64) {
	if len(points) == 0 {
		return
	}
	if len(points) == 1 {
		stampDisc(canvas, points[0].X, points[0].Y, width/2, col)
		return
	}
	for i := 0; i < len(points)-1; i++ {
		drawSegment(canvas, points[i], points[i+1], col, width)
	}
}

// drawSegment stamps discs along the segment at half-pixel steps. Crude
// next to an anti-aliased stroker, but stable across runs, which is
// what the raster contract needs.
func drawSegment(canvas *image.RGBA, a, b annotation.Point2D, col color.RGBA, width float64) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := math.Hypot(dx, dy)
	steps := int(dist*2) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		stampDisc(canvas, a.X+dx*t, a.Y+dy*t, width/2, col)
	}
}

func stampDisc(canvas *image.RGBA, cx, cy, r float64, col color.RGBA) {
	if r < 0.5 {
		r = 0.5
	}
	x0 := int(math.Floor(cx - r))
	x1 := int(math.Ceil(cx + r))
	y0 := int(math.Floor(cy - r))
	y1 := int(math.Ceil(cy + r))
	rr := r * r
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			fx := float64(x) + 0.5 - cx
			fy := float64(y) + 0.5 - cy
			if fx*fx+fy*fy <= rr {
				setPixel(canvas, x, y, col)
			}
		}
	}
}

func drawRectangleOutline(canvas *image.RGBA, x, y, w, h float64, col color.RGBA, width float64) {
	p1 := annotation.Point2D{X: x, Y: y}
	p2 := annotation.Point2D{X: x + w, Y: y}
	p3 := annotation.Point2D{X: x + w, Y: y + h}
	p4 := annotation.Point2D{X: x, Y: y + h}
	drawSegment(canvas, p1, p2, col, width)
	drawSegment(canvas, p2, p3, col, width)
	drawSegment(canvas, p3, p4, col, width)
	drawSegment(canvas, p4, p1, col, width)
}

func drawCircleOutline(canvas *image.RGBA, cx, cy, r float64, col color.RGBA, width float64) {
	if r <= 0 {
		return
	}
	circumference := 2 * math.Pi * r
	steps := int(circumference*2) + 8
	prev := annotation.Point2D{X: cx + r, Y: cy}
	for i := 1; i <= steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		next := annotation.Point2D{X: cx + r*math.Cos(theta), Y: cy + r*math.Sin(theta)}
		drawSegment(canvas, prev, next, col, width)
		prev = next
	}
}

func drawArrow(canvas *image.RGBA, arrow *annotation.Arrow, col color.RGBA, width float64) {
	if arrow == nil {
		return
	}

	fromX := arrow.FromX + arrow.OffsetX
	fromY := arrow.FromY + arrow.OffsetY
	toX := arrow.ToX + arrow.OffsetX
	toY := arrow.ToY + arrow.OffsetY

	drawSegment(canvas,
		annotation.Point2D{X: fromX, Y: fromY},
		annotation.Point2D{X: toX, Y: toY},
		col, width)

	headLen := arrow.HeadLen
	if headLen <= 0 {
		headLen = 12
	}

	angle := math.Atan2(toY-fromY, toX-fromX)
	spread := math.Pi / 7
	left := annotation.Point2D{
		X: toX - headLen*math.Cos(angle-spread),
		Y: toY - headLen*math.Sin(angle-spread),
	}
	right := annotation.Point2D{
		X: toX - headLen*math.Cos(angle+spread),
		Y: toY - headLen*math.Sin(angle+spread),
	}
	fillTriangle(canvas, annotation.Point2D{X: toX, Y: toY}, left, right, col)
}

func fillTriangle(canvas *image.RGBA, a, b, c annotation.Point2D, col color.RGBA) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	edge := func(p, q annotation.Point2D, x, y float64) float64 {
		return (q.X-p.X)*(y-p.Y) - (q.Y-p.Y)*(x-p.X)
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			fx := float64(x) + 0.5
			fy := float64(y) + 0.5
			w0 := edge(a, b, fx, fy)
			w1 := edge(b, c, fx, fy)
			w2 := edge(c, a, fx, fy)
			if (w0 >= 0 && w1 >= 0 && w2 >= 0) || (w0 <= 0 && w1 <= 0 && w2 <= 0) {
				setPixel(canvas, x, y, col)
			}
		}
	}
}

func FillRect(canvas *image.RGBA, rect image.Rectangle, col color.RGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			canvas.SetRGBA(x, y, col)
		}
	}
}

func setPixel(canvas *image.RGBA, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(canvas.Bounds()) {
		canvas.SetRGBA(x, y, col)
	}
}

// ParseHexColor reads #rgb and #rrggbb. Anything else comes back as
// opaque black, which keeps drawing total.
func ParseHexColor(s string) color.RGBA {
	c := color.RGBA{A: 255}
	if len(s) == 0 || s[0] != '#' {
		return c
	}
	hexVal := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}
	switch len(s) {
	case 7:
		for i, ptr := range []*uint8{&c.R, &c.G, &c.B} {
			hi, ok1 := hexVal(s[1+i*2])
			lo, ok2 := hexVal(s[2+i*2])
			if !ok1 || !ok2 {
				return color.RGBA{A: 255}
			}
			*ptr = hi<<4 | lo
		}
	case 4:
		for i, ptr := range []*uint8{&c.R, &c.G, &c.B} {
			v, ok := hexVal(s[1+i])
			if !ok {
				return color.RGBA{A: 255}
			}
			*ptr = v<<4 | v
		}
	}
	return c
}
