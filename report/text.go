package report

import (
	"image"
	"image/color"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	facesOnce   sync.Once
	titleFace   font.Face
	sectionFace font.Face
	bodyFace    font.Face
	smallFace   font.Face
	legendFace  font.Face
)

func initFaces() {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(err)
	}

	newFace := func(f *opentype.Font, size float64) font.Face {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     150,
			Hinting: font.HintingFull,
		})
		if err != nil {
			panic(err)
		}
		return face
	}

	titleFace = newFace(bold, 22)
	sectionFace = newFace(bold, 14)
	bodyFace = newFace(regular, 12)
	smallFace = newFace(regular, 10)
	legendFace = newFace(regular, 8)
}

func faceTitle() font.Face   { facesOnce.Do(initFaces); return titleFace }
func faceSection() font.Face { facesOnce.Do(initFaces); return sectionFace }
func faceBody() font.Face    { facesOnce.Do(initFaces); return bodyFace }
func faceSmall() font.Face   { facesOnce.Do(initFaces); return smallFace }
func faceLegend() font.Face  { facesOnce.Do(initFaces); return legendFace }

func drawText(page *image.RGBA, text string, x, y int, face font.Face, col color.RGBA) {
	d := &font.Drawer{
		Dst:  page,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func drawTextCentered(page *image.RGBA, text string, cx, y int, face font.Face, col color.RGBA) {
	d := &font.Drawer{
		Dst:  page,
		Src:  image.NewUniform(col),
		Face: face,
	}
	w := d.MeasureString(text)
	d.Dot = fixed.P(cx-w.Round()/2, y)
	d.DrawString(text)
}

// drawWrappedText breaks on word boundaries at maxWidth pixels.
func drawWrappedText(page *image.RGBA, text string, x, y, maxWidth int, face font.Face, col color.RGBA) {
	d := &font.Drawer{
		Dst:  page,
		Src:  image.NewUniform(col),
		Face: face,
	}

	words := strings.Fields(text)
	line := ""
	lineHeight := face.Metrics().Height.Round() + 2
	for _, word := range words {
		candidate := line
		if candidate != "" {
			candidate += " "
		}
		candidate += word
		if d.MeasureString(candidate).Round() > maxWidth && line != "" {
			d.Dot = fixed.P(x, y)
			d.DrawString(line)
			y += lineHeight
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}
}

// drawImageFit scales an image into rect preserving aspect ratio,
// centered, downscale only.
func drawImageFit(page *image.RGBA, rect image.Rectangle, img image.Image) {
	iw := img.Bounds().Dx()
	ih := img.Bounds().Dy()
	if iw == 0 || ih == 0 {
		return
	}

	sw := float64(rect.Dx()) / float64(iw)
	sh := float64(rect.Dy()) / float64(ih)
	scale := sw
	if sh < scale {
		scale = sh
	}
	if scale > 1 {
		scale = 1
	}

	dw := int(float64(iw) * scale)
	dh := int(float64(ih) * scale)
	x0 := rect.Min.X + (rect.Dx()-dw)/2
	y0 := rect.Min.Y + (rect.Dy()-dh)/2

	dst := image.Rect(x0, y0, x0+dw, y0+dh)
	xdraw.ApproxBiLinear.Scale(page, dst, img, img.Bounds(), xdraw.Over, nil)
}
