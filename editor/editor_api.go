package editor

import (
	"errors"
	"net/http"

	"dentalscreen-api/annotation"
	"dentalscreen-api/constants"
	"dentalscreen-api/entities"
	"dentalscreen-api/mw"
	"dentalscreen-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SubmissionGateway is the editor's view of the submission aggregate:
// load a slot's saved document when the canvas mounts, push drafts back
// on save. Implemented by the submission API.
type SubmissionGateway interface {
	SaveAnnotationDrafts(subID string, docs [constants.NumSlots]*annotation.Document, treatmentText string, changedSlot int) (string, error)
	LoadSlotDocument(subID string, slotIndex int) (*annotation.Document, float64, float64, error)
}

type EditorAPI struct {
	registry *Registry
	gateway  SubmissionGateway
	logger   *zap.Logger
}

func NewEditorAPI(registry *Registry, gateway SubmissionGateway, logger *zap.Logger) (app *EditorAPI) {
	app = &EditorAPI{
		registry: registry,
		gateway:  gateway,
		logger:   logger,
	}
	return app
}

func (app *EditorAPI) InitRoute(engine *gin.Engine, path string) {
	g := engine.Group(path, mw.WrapAuthInfo(app.logger), mw.RequireRole(constants.RoleAdmin))
	g.POST("", app.OpenSession)
	g.DELETE("/:id", app.CloseSession)
	g.POST("/:id/tool", app.SelectTool)
	g.POST("/:id/zoom", app.SetZoom)
	g.POST("/:id/slot", app.SwitchSlot)
	g.POST("/:id/stroke", app.CaptureStroke)
	g.POST("/:id/shape", app.PlaceShape)
	g.POST("/:id/undo", app.Undo)
	g.POST("/:id/clear", app.Clear)
	g.POST("/:id/save", app.Save)
}

// writeGatewayError maps the submission aggregate's typed errors onto
// status codes, so a save against a reported submission surfaces as a
// client error rather than a 500.
func writeGatewayError(c *gin.Context, resp *entities.Response, err error) {
	var (
		vErr *entities.ValidationError
		mErr *entities.MalformedAnnotationError
		iErr *entities.IncompleteAnnotationError
	)
	switch {
	case errors.As(err, &vErr):
		resp.ErrorCode = constants.ServerInvalidData
		resp.ErrorField = vErr.Field
		c.JSON(http.StatusBadRequest, resp)
	case errors.As(err, &mErr):
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
	case errors.As(err, &iErr):
		resp.ErrorCode = constants.ServerIncompleteAnnotation
		c.JSON(http.StatusPreconditionFailed, resp)
	default:
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
	}
}

func (app *EditorAPI) session(c *gin.Context, resp *entities.Response) *Session {
	session, err := app.registry.Get(c.Param(constants.ParamID))
	if err != nil {
		resp.ErrorCode = constants.ServerNotFound
		c.JSON(http.StatusNotFound, resp)
		return nil
	}
	return session
}

func (app *EditorAPI) OpenSession(c *gin.Context) {
	resp := entities.NewResponse()

	var req struct {
		SubmissionID string `json:"submission_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SubmissionID == "" {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	authInfo := mw.GetAuthInfoFromGin(c)
	session, err := app.registry.Open(req.SubmissionID, authInfo.ID)
	if err == ErrSubmissionLocked {
		resp.ErrorCode = constants.ServerEditorLocked
		c.JSON(http.StatusConflict, resp)
		return
	}
	if err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	// Mount the first slot so capture calls are accepted right away.
	app.loadSlot(session, 0)

	resp.Data = map[string]interface{}{
		constants.ParamID:           session.ID,
		constants.ParamSubmissionID: session.SubmissionID,
		constants.ParamSlotIndex:    session.ActiveSlotIndex(),
	}
	c.JSON(http.StatusOK, resp)
}

func (app *EditorAPI) loadSlot(session *Session, index int) {
	saved, canvasW, canvasH, err := app.gateway.LoadSlotDocument(session.SubmissionID, index)
	if err != nil {
		utils.LogError(err)
		return
	}
	session.LoadSlot(index, canvasW, canvasH, saved)
}

func (app *EditorAPI) CloseSession(c *gin.Context) {
	resp := entities.NewResponse()

	if err := app.registry.Close(c.Param(constants.ParamID)); err != nil {
		resp.ErrorCode = constants.ServerNotFound
		c.JSON(http.StatusNotFound, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (app *EditorAPI) SelectTool(c *gin.Context) {
	resp := entities.NewResponse()
	session := app.session(c, resp)
	if session == nil {
		return
	}

	var req struct {
		Tool       string  `json:"tool"`
		Color      string  `json:"color"`
		BrushWidth float64 `json:"brush_width"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	session.SelectTool(req.Tool)
	session.SetColor(req.Color)
	session.SetBrushWidth(req.BrushWidth)

	resp.Data = map[string]interface{}{
		"tool":        session.Tool(),
		"color":       session.Color(),
		"brush_width": session.BrushWidth(),
	}
	c.JSON(http.StatusOK, resp)
}

func (app *EditorAPI) SetZoom(c *gin.Context) {
	resp := entities.NewResponse()
	session := app.session(c, resp)
	if session == nil {
		return
	}

	var req struct {
		Zoom float64 `json:"zoom"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	resp.Data = map[string]interface{}{
		"zoom": session.SetZoom(req.Zoom),
	}
	c.JSON(http.StatusOK, resp)
}

func (app *EditorAPI) SwitchSlot(c *gin.Context) {
	resp := entities.NewResponse()
	session := app.session(c, resp)
	if session == nil {
		return
	}

	var req struct {
		SlotIndex int `json:"slot_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SlotIndex < 0 || req.SlotIndex >= constants.NumSlots {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	session.SwitchSlot(req.SlotIndex)
	if session.Draft(req.SlotIndex) == nil {
		app.loadSlot(session, req.SlotIndex)
	}

	resp.Data = map[string]interface{}{
		constants.ParamSlotIndex: session.ActiveSlotIndex(),
	}
	c.JSON(http.StatusOK, resp)
}

func (app *EditorAPI) CaptureStroke(c *gin.Context) {
	resp := entities.NewResponse()
	session := app.session(c, resp)
	if session == nil {
		return
	}

	var req struct {
		Points []annotation.Point2D `json:"points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	session.CaptureStroke(req.Points)
	c.JSON(http.StatusOK, resp)
}

func (app *EditorAPI) PlaceShape(c *gin.Context) {
	resp := entities.NewResponse()
	session := app.session(c, resp)
	if session == nil {
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	session.PlaceShape(req.Kind)
	c.JSON(http.StatusOK, resp)
}

func (app *EditorAPI) Undo(c *gin.Context) {
	resp := entities.NewResponse()
	session := app.session(c, resp)
	if session == nil {
		return
	}
	session.RemoveLast()
	c.JSON(http.StatusOK, resp)
}

func (app *EditorAPI) Clear(c *gin.Context) {
	resp := entities.NewResponse()
	session := app.session(c, resp)
	if session == nil {
		return
	}
	session.ClearSlot()
	c.JSON(http.StatusOK, resp)
}

// Save flushes the session's drafts into the submission aggregate via
// the gateway. The session stays open for further edits.
func (app *EditorAPI) Save(c *gin.Context) {
	resp := entities.NewResponse()
	session := app.session(c, resp)
	if session == nil {
		return
	}

	var req struct {
		TreatmentText string `json:"treatment_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	changedSlot := session.ActiveSlotIndex()
	if changedSlot < 0 {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	status, err := app.gateway.SaveAnnotationDrafts(session.SubmissionID, session.Drafts(), req.TreatmentText, changedSlot)
	if err != nil {
		utils.LogError(err)
		writeGatewayError(c, resp, err)
		return
	}

	resp.Data = map[string]interface{}{
		constants.ParamSubmissionID: session.SubmissionID,
		constants.ParamStatus:       status,
	}
	c.JSON(http.StatusOK, resp)
}
