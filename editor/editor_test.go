package editor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dentalscreen-api/annotation"
	"dentalscreen-api/constants"
	"dentalscreen-api/entities"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newLoadedSession() *Session {
	session := NewSession("sub-1", "clinician-1")
	session.LoadSlot(0, 800, 560, nil)
	return session
}

var strokePoints = []annotation.Point2D{
	{X: 10, Y: 10},
	{X: 50, Y: 60},
}

func TestZoomClamp(t *testing.T) {
	session := newLoadedSession()

	assert.Equal(t, 5.0, session.SetZoom(10))
	assert.Equal(t, 0.2, session.SetZoom(0.01))
	assert.Equal(t, 1.5, session.SetZoom(1.5))
}

func TestOpsBeforeLoadAreNoOps(t *testing.T) {
	session := NewSession("sub-1", "clinician-1")

	session.CaptureStroke(strokePoints)
	session.PlaceShape(constants.AntnKindRectangle)
	session.RemoveLast()
	session.ClearSlot()

	assert.Equal(t, -1, session.ActiveSlotIndex())
	for _, draft := range session.Drafts() {
		assert.Nil(t, draft)
	}
}

func TestCaptureStroke(t *testing.T) {
	session := newLoadedSession()
	session.SetColor("#3949ab")
	session.SetBrushWidth(5)

	session.CaptureStroke(strokePoints)

	draft := session.Draft(0)
	assert.Equal(t, 1, draft.Len())
	assert.Equal(t, constants.AntnKindStroke, draft.Last().Kind)
	assert.Equal(t, "#3949ab", draft.Last().Color)
	assert.Equal(t, 5.0, draft.Last().StrokeWidth)
}

func TestEraserAppendsWhiteStroke(t *testing.T) {
	session := newLoadedSession()

	session.SelectTool(constants.ToolRectangle)
	session.PlaceShape(constants.AntnKindRectangle)

	session.SelectTool(constants.ToolEraser)
	session.CaptureStroke(strokePoints)

	// The eraser paints over; the rectangle object is still there.
	draft := session.Draft(0)
	assert.Equal(t, 2, draft.Len())
	assert.Equal(t, constants.AntnKindRectangle, draft.Objects[0].Kind)
	assert.Equal(t, constants.AntnKindStroke, draft.Last().Kind)
	assert.Equal(t, constants.EraserColor, draft.Last().Color)
	assert.Equal(t, constants.EraserWidth, draft.Last().StrokeWidth)

	// Undo removes the eraser stroke, not the rectangle.
	session.RemoveLast()
	draft = session.Draft(0)
	assert.Equal(t, 1, draft.Len())
	assert.Equal(t, constants.AntnKindRectangle, draft.Last().Kind)
}

func TestPlaceShapeCentered(t *testing.T) {
	session := newLoadedSession()

	session.PlaceShape(constants.AntnKindCircle)
	draft := session.Draft(0)
	assert.Equal(t, 1, draft.Len())
	assert.Equal(t, 400.0, draft.Last().CX)
	assert.Equal(t, 280.0, draft.Last().CY)
	assert.Equal(t, 50.0, draft.Last().Radius)

	session.PlaceShape(constants.AntnKindArrowGroup)
	draft = session.Draft(0)
	assert.Equal(t, 2, draft.Len())
	assert.NotNil(t, draft.Last().Arrow)
}

func TestSwitchSlotFlushesDraft(t *testing.T) {
	session := newLoadedSession()
	session.LoadSlot(1, 800, 560, nil)

	session.CaptureStroke(strokePoints)
	assert.Equal(t, 0, session.ActiveSlotIndex())

	session.SwitchSlot(1)
	assert.Equal(t, 1, session.ActiveSlotIndex())

	// Edits from slot 0 survived the switch.
	assert.Equal(t, 1, session.Draft(0).Len())
	assert.Equal(t, 0, session.Draft(1).Len())

	session.CaptureStroke(strokePoints)
	session.SwitchSlot(0)
	assert.Equal(t, 1, session.Draft(1).Len())
}

func TestSwitchToUnloadedSlotBlocksCapture(t *testing.T) {
	session := newLoadedSession()

	session.SwitchSlot(2)
	session.CaptureStroke(strokePoints)
	assert.Nil(t, session.Draft(2))

	session.LoadSlot(2, 800, 560, nil)
	session.CaptureStroke(strokePoints)
	assert.Equal(t, 1, session.Draft(2).Len())
}

func TestLoadSlotWithSavedDocument(t *testing.T) {
	saved := annotation.NewDocument()
	saved.AddObject(annotation.Object{
		Kind:        constants.AntnKindStroke,
		Color:       "#e53935",
		StrokeWidth: 3,
		Points:      strokePoints,
	})

	session := NewSession("sub-1", "clinician-1")
	session.LoadSlot(1, 800, 560, saved)
	session.SwitchSlot(1)

	draft := session.Draft(1)
	assert.Equal(t, 1, draft.Len())

	// The draft is a copy; editing it leaves the saved doc alone.
	session.RemoveLast()
	assert.Equal(t, 0, session.Draft(1).Len())
	assert.Equal(t, 1, saved.Len())
}

func TestSelectToolIgnoresUnknown(t *testing.T) {
	session := newLoadedSession()
	session.SelectTool("CHAINSAW")
	assert.Equal(t, constants.ToolFreehand, session.Tool())
}

func TestRegistrySingleWriter(t *testing.T) {
	registry := NewRegistry(nil)

	session, err := registry.Open("sub-1", "clinician-1")
	assert.Nil(t, err)
	assert.NotNil(t, session)

	_, err = registry.Open("sub-1", "clinician-2")
	assert.Equal(t, ErrSubmissionLocked, err)

	// A different submission is fine.
	_, err = registry.Open("sub-2", "clinician-2")
	assert.Nil(t, err)

	// Closing frees the submission for the next editor.
	assert.Nil(t, registry.Close(session.ID))
	_, err = registry.Open("sub-1", "clinician-2")
	assert.Nil(t, err)
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry(nil)
	_, err := registry.Get("nope")
	assert.Equal(t, ErrSessionNotFound, err)
}

type stubGateway struct {
	saveErr error
}

func (gw *stubGateway) SaveAnnotationDrafts(subID string, docs [constants.NumSlots]*annotation.Document,
	treatmentText string, changedSlot int) (string, error) {
	if gw.saveErr != nil {
		return "", gw.saveErr
	}
	return constants.SubmissionStatusAnnotated, nil
}

func (gw *stubGateway) LoadSlotDocument(subID string, slotIndex int) (*annotation.Document, float64, float64, error) {
	return nil, 800, 560, nil
}

func postSave(app *EditorAPI, sessionID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/editor_sessions/"+sessionID+"/save", strings.NewReader(`{"treatment_text":""}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: constants.ParamID, Value: sessionID}}
	app.Save(c)
	return w
}

// A save rejected by the aggregate's lifecycle checks is the caller's
// fault and must come back as a client error, not a 500.
func TestSaveSurfacesValidationError(t *testing.T) {
	registry := NewRegistry(nil)
	session, err := registry.Open("sub-1", "clinician-1")
	assert.Nil(t, err)
	session.LoadSlot(0, 800, 560, nil)

	gateway := &stubGateway{saveErr: entities.NewValidationError("status", "submission is already reported")}
	app := NewEditorAPI(registry, gateway, zap.NewNop())

	w := postSave(app, session.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error_field":"status"`)
}

func TestSaveSurfacesIncompleteAnnotation(t *testing.T) {
	registry := NewRegistry(nil)
	session, err := registry.Open("sub-1", "clinician-1")
	assert.Nil(t, err)
	session.LoadSlot(0, 800, 560, nil)

	gateway := &stubGateway{saveErr: &entities.IncompleteAnnotationError{Have: 1, Want: 3}}
	app := NewEditorAPI(registry, gateway, zap.NewNop())

	w := postSave(app, session.ID)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}
