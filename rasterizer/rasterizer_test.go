package rasterizer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"dentalscreen-api/annotation"
	"dentalscreen-api/constants"

	"github.com/stretchr/testify/assert"
)

func makeBaseImage(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	FillRect(img, img.Bounds(), color.RGBA{200, 180, 170, 255})
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func makeDoc() *annotation.Document {
	doc := annotation.NewDocument()
	doc.AddObject(annotation.Object{
		Kind:        constants.AntnKindStroke,
		Color:       "#e53935",
		StrokeWidth: 4,
		Points: []annotation.Point2D{
			{X: 100, Y: 100},
			{X: 300, Y: 200},
			{X: 500, Y: 150},
		},
	})
	doc.AddObject(annotation.Object{
		Kind:        constants.AntnKindRectangle,
		Color:       "#3949ab",
		StrokeWidth: 2,
		X:           120,
		Y:           120,
		Width:       200,
		Height:      120,
	})
	doc.AddObject(annotation.Object{
		Kind:        constants.AntnKindCircle,
		Color:       "#00897b",
		StrokeWidth: 2,
		CX:          400,
		CY:          280,
		Radius:      60,
	})
	doc.AddObject(annotation.Object{
		Kind:        constants.AntnKindArrowGroup,
		Color:       "#fb8c00",
		StrokeWidth: 3,
		Arrow: &annotation.Arrow{
			FromX:   200,
			FromY:   400,
			ToX:     380,
			ToY:     320,
			HeadLen: 14,
		},
	})
	return doc
}

func TestComposeDeterministic(t *testing.T) {
	base := makeBaseImage(640, 480)
	doc := makeDoc()

	out1, err := Compose(base, doc)
	assert.Nil(t, err)
	out2, err := Compose(base, doc)
	assert.Nil(t, err)

	assert.Equal(t, out1, out2)
}

func TestComposeCanvasSize(t *testing.T) {
	base := makeBaseImage(2000, 1400)

	out, err := Compose(base, nil)
	assert.Nil(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	assert.Nil(t, err)
	assert.Equal(t, CanvasWidth, img.Bounds().Dx())
	assert.Equal(t, CanvasHeight, img.Bounds().Dy())
}

func TestComposeDrawsAnnotations(t *testing.T) {
	base := makeBaseImage(640, 480)

	plain, err := Compose(base, annotation.NewDocument())
	assert.Nil(t, err)
	annotated, err := Compose(base, makeDoc())
	assert.Nil(t, err)

	assert.NotEqual(t, plain, annotated)
}

// A small photograph never gets upscaled; outside its centered
// footprint the canvas keeps the white ground.
func TestComposeNeverUpscales(t *testing.T) {
	base := makeBaseImage(100, 80)

	out, err := Compose(base, nil)
	assert.Nil(t, err)

	img, _ := png.Decode(bytes.NewReader(out))
	corner := img.At(Margin+2, Margin+2)
	r, g, b, _ := corner.RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
}

// Later objects paint over earlier ones at overlapping pixels; that is
// the whole eraser contract.
func TestLaterObjectsOcclude(t *testing.T) {
	base := makeBaseImage(640, 480)

	doc := annotation.NewDocument()
	doc.AddObject(annotation.Object{
		Kind:        constants.AntnKindStroke,
		Color:       "#e53935",
		StrokeWidth: 10,
		Points:      []annotation.Point2D{{X: 300, Y: 250}, {X: 420, Y: 250}},
	})
	doc.AddObject(annotation.Object{
		Kind:        constants.AntnKindStroke,
		Color:       constants.EraserColor,
		StrokeWidth: constants.EraserWidth,
		Points:      []annotation.Point2D{{X: 300, Y: 250}, {X: 420, Y: 250}},
	})

	out, err := Compose(base, doc)
	assert.Nil(t, err)

	img, _ := png.Decode(bytes.NewReader(out))
	r, g, b, _ := img.At(360, 250).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
}

func TestComposeBadBaseImage(t *testing.T) {
	_, err := Compose([]byte("not an image"), makeDoc())
	assert.NotNil(t, err)
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.RGBA{229, 57, 53, 255}, ParseHexColor("#e53935"))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, ParseHexColor("#fff"))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, ParseHexColor("teal"))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, ParseHexColor(""))
}
