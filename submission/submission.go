package submission

import (
	"encoding/json"
	"time"

	"dentalscreen-api/annotation"
	"dentalscreen-api/constants"
	"dentalscreen-api/entities"
	"dentalscreen-api/utils"

	"github.com/google/uuid"
)

// SlotLabels is the fixed slot order: upper jaw, front view, lower jaw.
var SlotLabels = [constants.NumSlots]string{
	constants.SlotUpper,
	constants.SlotFront,
	constants.SlotLower,
}

type PatientInfo struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date,omitempty"`
}

// Slot is one of the three fixed image positions. AnnotationDocument
// and AnnotatedImageRef stay absent until the clinician saves.
type Slot struct {
	Label              string               `json:"label"`
	OriginalImageRef   string               `json:"original_image_ref"`
	AnnotationDocument *annotation.Document `json:"annotation_document,omitempty"`
	AnnotatedImageRef  string               `json:"annotated_image_ref,omitempty"`
}

type Submission struct {
	ID                       string                      `json:"id"`
	PatientID                string                      `json:"patient_id"`
	Patient                  PatientInfo                 `json:"patient"`
	Slots                    [constants.NumSlots]Slot    `json:"slots"`
	Status                   string                      `json:"status"`
	TreatmentRecommendations string                      `json:"treatment_recommendations,omitempty"`
	ReportRef                string                      `json:"report_ref,omitempty"`
	ReportNumber             string                      `json:"report_number,omitempty"`
	Created                  int64                       `json:"created"`
	Modified                 int64                       `json:"modified,omitempty"`
	AnnotatedAt              int64                       `json:"annotated_at,omitempty"`
	ReportedAt               int64                       `json:"reported_at,omitempty"`
	PatientName              string                      `json:"patient_name,omitempty"`
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// NewSubmission initializes identity and lifecycle fields for a fresh
// intake: all three originals present, nothing annotated yet.
func (sub *Submission) NewSubmission() {
	sub.ID = uuid.New().String()
	sub.Created = nowMillis()
	sub.Status = constants.SubmissionStatusUploaded
	for i := range sub.Slots {
		sub.Slots[i].Label = SlotLabels[i]
	}
}

func (sub *Submission) String() string {
	b, _ := json.Marshal(sub)
	return string(b)
}

func (sub *Submission) IsValidPatient() *entities.ValidationError {
	if sub.Patient.Name == "" {
		return entities.NewValidationError("name", "is required")
	}
	if sub.Patient.Email != "" && !utils.IsValidEmail(sub.Patient.Email) {
		return entities.NewValidationError("email", "is malformed")
	}
	if sub.Patient.Phone == "" {
		return entities.NewValidationError("phone", "is required")
	}
	if !utils.IsValidPhone(sub.Patient.Phone) {
		return entities.NewValidationError("phone", "is malformed")
	}
	return nil
}

// CanTransition encodes the forward-only status machine. No skipping,
// no going back.
func (sub *Submission) CanTransition(to string) bool {
	switch sub.Status {
	case constants.SubmissionStatusUploaded:
		return to == constants.SubmissionStatusAnnotated
	case constants.SubmissionStatusAnnotated:
		return to == constants.SubmissionStatusReported
	default:
		return false
	}
}

func (sub *Submission) AnnotatedSlotCount() int {
	count := 0
	for i := range sub.Slots {
		if sub.Slots[i].AnnotationDocument != nil && sub.Slots[i].AnnotatedImageRef != "" {
			count++
		}
	}
	return count
}

// IsReadyForReport is the report precondition: status ANNOTATED and all
// three slots carrying an annotated raster.
func (sub *Submission) IsReadyForReport() bool {
	return sub.Status == constants.SubmissionStatusAnnotated &&
		sub.AnnotatedSlotCount() == constants.NumSlots
}

// checkAnnotationSave validates a save against the current lifecycle
// state without mutating anything. Callers that produce side effects
// before applying the save (raster writes) run it first, so a rejected
// save leaves nothing behind.
func (sub *Submission) checkAnnotationSave(docs [constants.NumSlots]*annotation.Document, changedSlot int) error {
	if sub.Status == constants.SubmissionStatusReported {
		return entities.NewValidationError("status", "submission is already reported")
	}
	if changedSlot < 0 || changedSlot >= constants.NumSlots {
		return entities.NewValidationError("changed_slot_index", "out of range")
	}
	for i := range docs {
		if docs[i] != nil {
			return nil
		}
	}
	return entities.NewValidationError("annotation_documents", "no documents supplied")
}

// ApplyAnnotationSave upserts annotation state one slot at a time.
// Documents are patched per slot: a nil entry leaves that slot's saved
// document alone, it never clears it. The first successful save moves
// UPLOADED to ANNOTATED and stamps annotatedAt.
func (sub *Submission) ApplyAnnotationSave(docs [constants.NumSlots]*annotation.Document, treatmentText string, changedSlot int, rasterRef string) error {
	if err := sub.checkAnnotationSave(docs, changedSlot); err != nil {
		return err
	}

	for i := range docs {
		if docs[i] != nil {
			sub.Slots[i].AnnotationDocument = docs[i]
		}
	}

	if rasterRef != "" {
		sub.Slots[changedSlot].AnnotatedImageRef = rasterRef
	}
	if treatmentText != "" {
		sub.TreatmentRecommendations = treatmentText
	}

	if sub.Status == constants.SubmissionStatusUploaded {
		sub.Status = constants.SubmissionStatusAnnotated
		sub.AnnotatedAt = nowMillis()
	}
	sub.Modified = nowMillis()
	return nil
}

// AttachReport records the generated report and flips the submission to
// its terminal state. The caller must have checked IsReadyForReport;
// this re-checks to keep the transition atomic at the aggregate.
func (sub *Submission) AttachReport(reportRef, reportNumber string) error {
	if !sub.IsReadyForReport() {
		return &entities.IncompleteAnnotationError{
			Have: sub.AnnotatedSlotCount(),
			Want: constants.NumSlots,
		}
	}
	sub.ReportRef = reportRef
	sub.ReportNumber = reportNumber
	sub.Status = constants.SubmissionStatusReported
	sub.ReportedAt = nowMillis()
	sub.Modified = sub.ReportedAt
	return nil
}
