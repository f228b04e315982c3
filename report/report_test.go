package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"dentalscreen-api/constants"
	"dentalscreen-api/rasterizer"

	"github.com/stretchr/testify/assert"
)

func makeRaster(col color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	rasterizer.FillRect(img, img.Bounds(), col)
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func makeInput() Input {
	return Input{
		ReportNumber: "DS-000042",
		PatientName:  "Jordan Smith",
		PatientPhone: "+84 912 345 678",
		Date:         time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC),
		SlotLabels: [constants.NumSlots]string{
			constants.SlotUpper,
			constants.SlotFront,
			constants.SlotLower,
		},
		Rasters: [constants.NumSlots][]byte{
			makeRaster(color.RGBA{210, 180, 170, 255}),
			makeRaster(color.RGBA{200, 190, 170, 255}),
			makeRaster(color.RGBA{190, 180, 180, 255}),
		},
		GeneratedAt: time.Date(2021, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestBuildPage(t *testing.T) {
	page, err := BuildPage(makeInput())
	assert.Nil(t, err)
	assert.Equal(t, pageWidth, page.Bounds().Dx())
	assert.Equal(t, pageHeight, page.Bounds().Dy())

	// Header band carries the header color at the very top.
	assert.Equal(t, colHeader, page.RGBAAt(10, 10))
}

func TestBuildPageMissingRasterPlaceholder(t *testing.T) {
	input := makeInput()
	input.Rasters[1] = nil

	page, err := BuildPage(input)
	assert.Nil(t, err)
	assert.NotNil(t, page)
}

func TestBuildPageDeterministic(t *testing.T) {
	input := makeInput()

	page1, err := BuildPage(input)
	assert.Nil(t, err)
	page2, err := BuildPage(input)
	assert.Nil(t, err)

	assert.Equal(t, page1.Pix, page2.Pix)
}

func TestBuildProducesPDF(t *testing.T) {
	out, err := Build(makeInput())
	assert.Nil(t, err)
	assert.Greater(t, len(out), 4)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestConditionTable(t *testing.T) {
	assert.Equal(t, 6, len(Conditions))

	seen := make(map[string]bool)
	for _, cond := range Conditions {
		assert.NotEqual(t, "", cond.Label)
		assert.NotEqual(t, "", cond.Guidance)
		assert.Equal(t, byte('#'), cond.Color[0])
		seen[cond.Key] = true
	}
	assert.Equal(t, true, seen[constants.ConditionInflamedGums])
	assert.Equal(t, true, seen[constants.ConditionCrowns])
}
