package submission

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"dentalscreen-api/account"
	"dentalscreen-api/annotation"
	"dentalscreen-api/constants"
	"dentalscreen-api/entities"
	"dentalscreen-api/helper"
	"dentalscreen-api/mw"
	"dentalscreen-api/rasterizer"
	"dentalscreen-api/report"
	"dentalscreen-api/storage"
	"dentalscreen-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubmissionAPI struct {
	subStore      *SubmissionES
	objectStorage storage.ObjectStorage
	keycloakStore *account.KeycloakStore
	idGenerator   *helper.IDGenerator
	logger        *zap.Logger
}

func NewSubmissionAPI(subStore *SubmissionES, objectStorage storage.ObjectStorage,
	keycloakStore *account.KeycloakStore, idGenerator *helper.IDGenerator, logger *zap.Logger) (app *SubmissionAPI) {
	app = &SubmissionAPI{
		subStore:      subStore,
		objectStorage: objectStorage,
		keycloakStore: keycloakStore,
		idGenerator:   idGenerator,
		logger:        logger,
	}
	return app
}

func (app *SubmissionAPI) InitRoute(engine *gin.Engine, path string) {
	g := engine.Group(path, mw.WrapAuthInfo(app.logger))
	g.GET("", mw.RequireRole(constants.RoleAdmin), app.FetchSubmissions)
	g.GET("/:id", app.GetSubmission)
	g.POST("", mw.RequireRole(constants.RolePatient, constants.RoleAdmin), app.UploadIntake)
	g.PUT("/:id/annotations", mw.RequireRole(constants.RoleAdmin), app.SaveAnnotation)
	g.POST("/:id/report", mw.RequireRole(constants.RoleAdmin), app.GenerateReport)
	g.GET("/:id/report", app.DownloadReport)
}

// Media carries raster bytes across the wire, base64-encoded.
type Media struct {
	MimeType string `json:"mime_type"`
	Bytes    string `json:"bytes"`
}

// SaveAnnotationRequest patches annotation state per slot. A null
// document entry leaves that slot's saved document untouched.
type SaveAnnotationRequest struct {
	AnnotationDocuments [constants.NumSlots]json.RawMessage `json:"annotation_documents"`
	TreatmentText       string                              `json:"treatment_text"`
	ChangedSlotIndex    int                                 `json:"changed_slot_index"`
	Raster              *Media                              `json:"raster,omitempty"`
}

func writeCoreError(c *gin.Context, resp *entities.Response, err error) {
	var (
		vErr *entities.ValidationError
		mErr *entities.MalformedAnnotationError
		iErr *entities.IncompleteAnnotationError
		sErr *entities.StorageError
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
	case errors.As(err, &sErr):
		resp.ErrorCode = constants.ServerStorageFailure
		c.JSON(http.StatusInternalServerError, resp)
	default:
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
	}
}

func (app *SubmissionAPI) FetchSubmissions(c *gin.Context) {
	resp := entities.NewResponse()

	queries, queryStr, from, size, sort, aggs := utils.ConvertGinRequestToParams(c)

	subs, esReturn, err := app.subStore.GetSlice(queries, queryStr, from, size, sort, aggs)
	if err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	if esReturn.Aggregations != nil {
		for _, agg := range aggs {
			v := *esReturn.Aggregations
			arrMap := make(map[string]interface{})
			for _, bucket := range v[agg].Buckets {
				arrMap[bucket.Key] = bucket.DocCount
			}
			resp.Agg = &map[string]interface{}{
				agg: arrMap,
			}
		}
	}

	if app.keycloakStore != nil {
		if mapUsers, err := app.keycloakStore.GetAccountsAsMap(""); err == nil {
			for i := range subs {
				if user, found := mapUsers[subs[i].PatientID]; found {
					subs[i].PatientName = user.Username
				}
			}
		}
	}

	resp.Data = subs
	resp.Count = esReturn.Hits.Total.Value
	c.JSON(http.StatusOK, resp)
}

func (app *SubmissionAPI) GetSubmission(c *gin.Context) {
	resp := entities.NewResponse()

	subID := c.Param(constants.ParamID)
	sub, _, err := app.subStore.GetByID(subID)
	if err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	if sub == nil {
		resp.ErrorCode = constants.ServerNotFound
		c.JSON(http.StatusNotFound, resp)
		return
	}

	authInfo := mw.GetAuthInfoFromGin(c)
	if authInfo != nil && !authInfo.IsAdmin() && authInfo.ID != sub.PatientID {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	if app.keycloakStore != nil {
		if user, err := app.keycloakStore.GetAccount("", sub.PatientID); err == nil {
			sub.PatientName = user.Username
		}
	}

	resp.Data = sub
	c.JSON(http.StatusOK, resp)
}

// UploadIntake accepts exactly three images in fixed slot order as a
// multipart form, validates and stores them, and creates the
// submission in UPLOADED state.
func (app *SubmissionAPI) UploadIntake(c *gin.Context) {
	resp := entities.NewResponse()

	var sub Submission
	sub.Patient = PatientInfo{
		Name:      c.PostForm("name"),
		Email:     c.PostForm("email"),
		Phone:     c.PostForm("phone"),
		BirthDate: c.PostForm("birth_date"),
	}
	if vErr := sub.IsValidPatient(); vErr != nil {
		writeCoreError(c, resp, vErr)
		return
	}

	images, vErr := readIntakeImages(c)
	if vErr != nil {
		writeCoreError(c, resp, vErr)
		return
	}

	authInfo := mw.GetAuthInfoFromGin(c)
	sub.PatientID = authInfo.ID
	sub.NewSubmission()

	for i := range images {
		name := fmt.Sprintf("%s_%s.%s", sub.ID, strings.ToLower(SlotLabels[i]), images[i].format)
		ref, err := app.objectStorage.Store(constants.StorageKindOriginalImage, name, images[i].data)
		if err != nil {
			utils.LogError(err)
			writeCoreError(c, resp, err)
			return
		}
		sub.Slots[i].OriginalImageRef = ref
	}

	if err := app.subStore.Create(sub); err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	resp.Data = map[string]interface{}{
		constants.ParamID:     sub.ID,
		constants.ParamStatus: sub.Status,
	}
	c.JSON(http.StatusOK, resp)
}

type intakeImage struct {
	data   []byte
	format string
}

var slotFormKeys = [constants.NumSlots]string{"upper", "front", "lower"}

func readIntakeImages(c *gin.Context) ([constants.NumSlots]intakeImage, *entities.ValidationError) {
	var images [constants.NumSlots]intakeImage

	form, err := c.MultipartForm()
	if err != nil {
		return images, entities.NewValidationError("images", "multipart form is required")
	}

	for i, key := range slotFormKeys {
		files := form.File[key]
		if len(files) != 1 {
			return images, entities.NewValidationError(key, "exactly one image per slot is required")
		}
		file := files[0]
		if file.Size > constants.MaxUploadBytes {
			return images, entities.NewValidationError(key, "image exceeds 10MB limit")
		}

		f, err := file.Open()
		if err != nil {
			return images, entities.NewValidationError(key, "image is unreadable")
		}
		data, err := ioutil.ReadAll(f)
		f.Close()
		if err != nil || len(data) > constants.MaxUploadBytes {
			return images, entities.NewValidationError(key, "image is unreadable")
		}

		_, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil || (format != "png" && format != "jpeg") {
			return images, entities.NewValidationError(key, "image must be a decodable JPEG or PNG")
		}

		images[i] = intakeImage{data: data, format: format}
	}
	return images, nil
}

func (app *SubmissionAPI) SaveAnnotation(c *gin.Context) {
	resp := entities.NewResponse()

	subID := c.Param(constants.ParamID)
	var req SaveAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	sub, err := app.saveAnnotation(subID, req)
	if err != nil {
		utils.LogError(err)
		writeCoreError(c, resp, err)
		return
	}

	resp.Data = map[string]interface{}{
		constants.ParamID:     sub.ID,
		constants.ParamStatus: sub.Status,
	}
	c.JSON(http.StatusOK, resp)
}

// saveAnnotation is the save path shared by the HTTP handler and the
// editor engine. It parses documents, produces the changed slot's
// raster (client bytes when supplied, composited otherwise), patches
// the aggregate and persists it.
func (app *SubmissionAPI) saveAnnotation(subID string, req SaveAnnotationRequest) (*Submission, error) {
	sub, _, err := app.subStore.GetByID(subID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, entities.NewValidationError(constants.ParamSubmissionID, "submission not found")
	}

	var docs [constants.NumSlots]*annotation.Document
	for i, raw := range req.AnnotationDocuments {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		doc, err := annotation.Deserialize(raw)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}

	// The raster lands in storage before the aggregate is patched, so
	// the lifecycle checks have to pass first or a rejected save would
	// orphan the stored raster.
	if err := sub.checkAnnotationSave(docs, req.ChangedSlotIndex); err != nil {
		return nil, err
	}

	rasterRef, err := app.makeSlotRaster(sub, docs, req)
	if err != nil {
		return nil, err
	}

	if err := sub.ApplyAnnotationSave(docs, req.TreatmentText, req.ChangedSlotIndex, rasterRef); err != nil {
		return nil, err
	}

	update := map[string]interface{}{
		"slots":        sub.Slots,
		"status":       sub.Status,
		"annotated_at": sub.AnnotatedAt,
	}
	if sub.TreatmentRecommendations != "" {
		update["treatment_recommendations"] = sub.TreatmentRecommendations
	}
	if err := app.subStore.Update(*sub, update); err != nil {
		return nil, err
	}
	return sub, nil
}

func (app *SubmissionAPI) makeSlotRaster(sub *Submission, docs [constants.NumSlots]*annotation.Document, req SaveAnnotationRequest) (string, error) {
	changed := req.ChangedSlotIndex
	if changed < 0 || changed >= constants.NumSlots {
		return "", nil
	}

	var rasterBytes []byte
	if req.Raster != nil && req.Raster.Bytes != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Raster.Bytes)
		if err != nil {
			return "", entities.NewValidationError("raster", "bytes are not valid base64")
		}
		rasterBytes = decoded
	} else if docs[changed] != nil {
		baseBytes, err := app.objectStorage.Load(sub.Slots[changed].OriginalImageRef)
		if err != nil {
			return "", err
		}
		rasterBytes, err = rasterizer.Compose(baseBytes, docs[changed])
		if err != nil {
			return "", err
		}
	} else {
		return "", nil
	}

	name := fmt.Sprintf("%s_slot%d_%s.png", sub.ID, changed, uuid.New().String()[:8])
	return app.objectStorage.Store(constants.StorageKindAnnotatedImage, name, rasterBytes)
}

// SaveAnnotationDrafts is the editor engine's save entry point.
func (app *SubmissionAPI) SaveAnnotationDrafts(subID string, docs [constants.NumSlots]*annotation.Document,
	treatmentText string, changedSlot int) (string, error) {
	var req SaveAnnotationRequest
	for i := range docs {
		if docs[i] == nil {
			continue
		}
		blob, err := annotation.Serialize(docs[i])
		if err != nil {
			return "", err
		}
		req.AnnotationDocuments[i] = blob
	}
	req.TreatmentText = treatmentText
	req.ChangedSlotIndex = changedSlot

	sub, err := app.saveAnnotation(subID, req)
	if err != nil {
		return "", err
	}
	return sub.Status, nil
}

// LoadSlotDocument hands the editor a slot's saved document and base
// image dimensions when it loads a slot.
func (app *SubmissionAPI) LoadSlotDocument(subID string, slotIndex int) (*annotation.Document, float64, float64, error) {
	if slotIndex < 0 || slotIndex >= constants.NumSlots {
		return nil, 0, 0, entities.NewValidationError(constants.ParamSlotIndex, "out of range")
	}

	sub, _, err := app.subStore.GetByID(subID)
	if err != nil {
		return nil, 0, 0, err
	}
	if sub == nil {
		return nil, 0, 0, entities.NewValidationError(constants.ParamSubmissionID, "submission not found")
	}

	return sub.Slots[slotIndex].AnnotationDocument,
		float64(rasterizer.CanvasWidth), float64(rasterizer.CanvasHeight), nil
}

// GenerateReport builds the summary document once every slot carries an
// annotated raster. The precondition check happens before any write so
// a failed request leaves no partial artifacts.
func (app *SubmissionAPI) GenerateReport(c *gin.Context) {
	resp := entities.NewResponse()

	subID := c.Param(constants.ParamID)
	sub, _, err := app.subStore.GetByID(subID)
	if err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	if sub == nil {
		resp.ErrorCode = constants.ServerNotFound
		c.JSON(http.StatusNotFound, resp)
		return
	}

	reportRef, err := app.buildAndStoreReport(sub)
	if err != nil {
		utils.LogError(err)
		writeCoreError(c, resp, err)
		return
	}

	resp.Data = map[string]interface{}{
		constants.ParamID:     sub.ID,
		constants.ParamStatus: sub.Status,
		"report_ref":          reportRef,
		"report_number":       sub.ReportNumber,
	}
	c.JSON(http.StatusOK, resp)
}

func (app *SubmissionAPI) buildAndStoreReport(sub *Submission) (string, error) {
	if !sub.IsReadyForReport() {
		return "", &entities.IncompleteAnnotationError{
			Have: sub.AnnotatedSlotCount(),
			Want: constants.NumSlots,
		}
	}

	// Rasters load strictly in slot order; a missing one renders as a
	// placeholder rather than failing the whole document.
	var rasters [constants.NumSlots][]byte
	for i := range sub.Slots {
		data, err := app.objectStorage.Load(sub.Slots[i].AnnotatedImageRef)
		if err != nil {
			utils.LogError(err)
			continue
		}
		rasters[i] = data
	}

	now := time.Now()
	reportNumber := app.idGenerator.NewReportNumber()
	input := report.Input{
		ReportNumber: reportNumber,
		PatientName:  sub.Patient.Name,
		PatientPhone: sub.Patient.Phone,
		Date:         now,
		SlotLabels:   SlotLabels,
		Rasters:      rasters,
		GeneratedAt:  now,
	}

	pdfBytes, err := report.Build(input)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("report_%s_%s.pdf", sub.ID, uuid.New().String()[:8])
	reportRef, err := app.objectStorage.Store(constants.StorageKindReport, name, pdfBytes)
	if err != nil {
		return "", err
	}

	if err := sub.AttachReport(reportRef, reportNumber); err != nil {
		return "", err
	}

	update := map[string]interface{}{
		"status":        sub.Status,
		"report_ref":    sub.ReportRef,
		"report_number": sub.ReportNumber,
		"reported_at":   sub.ReportedAt,
	}
	if err := app.subStore.Update(*sub, update); err != nil {
		return "", err
	}
	return reportRef, nil
}

func (app *SubmissionAPI) DownloadReport(c *gin.Context) {
	resp := entities.NewResponse()

	subID := c.Param(constants.ParamID)
	sub, _, err := app.subStore.GetByID(subID)
	if err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	if sub == nil || sub.ReportRef == "" {
		resp.ErrorCode = constants.ServerNotFound
		c.JSON(http.StatusNotFound, resp)
		return
	}

	authInfo := mw.GetAuthInfoFromGin(c)
	if authInfo != nil && !authInfo.IsAdmin() && authInfo.ID != sub.PatientID {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	data, err := app.objectStorage.Load(sub.ReportRef)
	if err != nil {
		utils.LogError(err)
		writeCoreError(c, resp, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", sub.ReportNumber))
	c.Data(http.StatusOK, "application/pdf", data)
}
