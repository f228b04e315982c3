package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"time"

	"dentalscreen-api/constants"
	"dentalscreen-api/entities"
	"dentalscreen-api/rasterizer"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Condition is one fixed screening category: legend entry and
// recommendation row share the same color and label. The guidance text
// is a fixed lookup, deliberately independent of the clinician's
// free-text recommendations field.
type Condition struct {
	Key      string
	Label    string
	Color    string
	Guidance string
}

// Conditions in legend and row order.
var Conditions = []Condition{
	{constants.ConditionInflamedGums, "Inflamed / Red Gums", "#e53935",
		"Gum inflammation detected. A professional cleaning and improved brushing routine are advised."},
	{constants.ConditionMisaligned, "Misaligned", "#fb8c00",
		"Tooth misalignment observed. An orthodontic consultation can assess correction options."},
	{constants.ConditionRecededGums, "Receded Gums", "#8e24aa",
		"Gum recession visible. Use a soft-bristled brush and schedule a periodontal evaluation."},
	{constants.ConditionStains, "Stains", "#6d4c41",
		"Surface staining present. Professional polishing or whitening can restore appearance."},
	{constants.ConditionAttrition, "Attrition", "#3949ab",
		"Tooth wear detected. A night guard may be recommended to prevent further attrition."},
	{constants.ConditionCrowns, "Crowns", "#00897b",
		"Existing crown work noted. Regular checkups will monitor fit and surrounding gum health."},
}

var slotTitles = map[string]string{
	constants.SlotUpper: "Upper Jaw",
	constants.SlotFront: "Front View",
	constants.SlotLower: "Lower Jaw",
}

// Input carries everything the builder renders. Rasters follow slot
// order upper, front, lower; a nil entry renders as a placeholder.
type Input struct {
	ReportNumber string
	PatientName  string
	PatientPhone string
	Date         time.Time
	SlotLabels   [constants.NumSlots]string
	Rasters      [constants.NumSlots][]byte
	GeneratedAt  time.Time
}

// Page geometry: A4 at 150 dpi.
const (
	pageWidth  = 1240
	pageHeight = 1754
)

const generatorName = "DentalScreen"

var (
	colHeader     = color.RGBA{0, 121, 107, 255}
	colAccent     = color.RGBA{0, 137, 123, 255}
	colInk        = color.RGBA{33, 33, 33, 255}
	colSubtle     = color.RGBA{117, 117, 117, 255}
	colCardBorder = color.RGBA{189, 189, 189, 255}
	colSlotGround = color.RGBA{245, 245, 245, 255}
	colWhite      = color.RGBA{255, 255, 255, 255}
)

// Build renders the one-page summary document and packages it as a
// single-page A4 PDF. It does not check the report precondition; the
// submission aggregate does that before any rendering starts.
func Build(input Input) ([]byte, error) {
	page, err := BuildPage(input)
	if err != nil {
		return nil, err
	}

	var pageBuf bytes.Buffer
	if err := png.Encode(&pageBuf, page); err != nil {
		return nil, fmt.Errorf("encode report page: %w", err)
	}

	imp, err := api.Import("form:A4, pos:full", types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("pdf import config: %w", err)
	}

	var pdfBuf bytes.Buffer
	if err := api.ImportImages(nil, &pdfBuf, []io.Reader{bytes.NewReader(pageBuf.Bytes())}, imp, nil); err != nil {
		return nil, fmt.Errorf("pdf packaging: %w", err)
	}
	return pdfBuf.Bytes(), nil
}

// BuildPage draws the fixed layout: header band, patient line,
// screening card with the three annotated images, legend, accent
// strip, recommendation rows, footer.
func BuildPage(input Input) (*image.RGBA, error) {
	page := image.NewRGBA(image.Rect(0, 0, pageWidth, pageHeight))
	rasterizer.FillRect(page, page.Bounds(), colWhite)

	drawHeader(page, input)
	drawPatientLine(page, input)
	if err := drawScreeningCard(page, input); err != nil {
		return nil, err
	}
	drawRecommendations(page)
	drawFooter(page, input)

	return page, nil
}

func drawHeader(page *image.RGBA, input Input) {
	rasterizer.FillRect(page, image.Rect(0, 0, pageWidth, 120), colHeader)
	drawTextCentered(page, "Dental Screening Report", pageWidth/2, 75, faceTitle(), colWhite)
	if input.ReportNumber != "" {
		drawText(page, "No. "+input.ReportNumber, pageWidth-220, 105, faceSmall(), colWhite)
	}
}

func drawPatientLine(page *image.RGBA, input Input) {
	y := 170
	drawText(page, "Patient: "+input.PatientName, 60, y, faceBody(), colInk)
	drawText(page, "Phone: "+input.PatientPhone, 520, y, faceBody(), colInk)
	drawText(page, "Date: "+input.Date.Format("02 Jan 2006"), 940, y, faceBody(), colInk)
}

func drawScreeningCard(page *image.RGBA, input Input) error {
	card := image.Rect(60, 210, pageWidth-60, 860)
	drawRectBorder(page, card, colCardBorder, 2)

	drawText(page, "Screening Results", card.Min.X+30, card.Min.Y+50, faceSection(), colInk)

	// Three equally sized slots in a centered row.
	slotW := 340
	slotH := 300
	gap := (card.Dx() - 3*slotW) / 4
	slotY := card.Min.Y + 80

	for i := 0; i < constants.NumSlots; i++ {
		x0 := card.Min.X + gap + i*(slotW+gap)
		slotRect := image.Rect(x0, slotY, x0+slotW, slotY+slotH)
		rasterizer.FillRect(page, slotRect, colSlotGround)

		if input.Rasters[i] != nil {
			img, _, err := image.Decode(bytes.NewReader(input.Rasters[i]))
			if err != nil {
				return &entities.StorageError{Op: "decode", Key: input.SlotLabels[i], Err: err}
			}
			drawImageFit(page, slotRect, img)
		} else {
			drawTextCentered(page, "Not available", x0+slotW/2, slotY+slotH/2, faceBody(), colSubtle)
		}

		// Label pill beneath the slot.
		title := slotTitles[input.SlotLabels[i]]
		if title == "" {
			title = input.SlotLabels[i]
		}
		pill := image.Rect(x0+slotW/2-80, slotY+slotH+16, x0+slotW/2+80, slotY+slotH+56)
		rasterizer.FillRect(page, pill, colAccent)
		drawTextCentered(page, title, x0+slotW/2, slotY+slotH+43, faceSmall(), colWhite)
	}

	// Legend row, items evenly spaced across the card width.
	legendY := slotY + slotH + 110
	itemW := card.Dx() / len(Conditions)
	for i, cond := range Conditions {
		x0 := card.Min.X + i*itemW + 16
		swatch := image.Rect(x0, legendY-16, x0+18, legendY+2)
		rasterizer.FillRect(page, swatch, rasterizer.ParseHexColor(cond.Color))
		drawText(page, cond.Label, x0+26, legendY, faceLegend(), colInk)
	}

	// Accent strip along the card's bottom edge.
	rasterizer.FillRect(page, image.Rect(card.Min.X, card.Max.Y-10, card.Max.X, card.Max.Y), colAccent)

	return nil
}

func drawRecommendations(page *image.RGBA) {
	top := 910
	drawText(page, "Treatment Recommendations", 60, top, faceSection(), colInk)

	rowH := 118
	y := top + 30
	for _, cond := range Conditions {
		swatch := image.Rect(70, y+18, 70+26, y+44)
		rasterizer.FillRect(page, swatch, rasterizer.ParseHexColor(cond.Color))
		drawText(page, cond.Label, 116, y+40, faceBody(), colInk)
		drawWrappedText(page, cond.Guidance, 116, y+74, pageWidth-180, faceSmall(), colSubtle)
		y += rowH
	}
}

func drawFooter(page *image.RGBA, input Input) {
	line := fmt.Sprintf("Generated by %s on %s", generatorName, input.GeneratedAt.Format("02 Jan 2006 15:04"))
	drawTextCentered(page, line, pageWidth/2, pageHeight-40, faceSmall(), colSubtle)
}

func drawRectBorder(page *image.RGBA, rect image.Rectangle, col color.RGBA, width int) {
	rasterizer.FillRect(page, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width), col)
	rasterizer.FillRect(page, image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y), col)
	rasterizer.FillRect(page, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y), col)
	rasterizer.FillRect(page, image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y), col)
}
