package submission

import (
	"testing"

	"dentalscreen-api/annotation"
	"dentalscreen-api/constants"
	"dentalscreen-api/entities"
	"dentalscreen-api/storage"

	"github.com/stretchr/testify/assert"
)

func makeDoc() *annotation.Document {
	doc := annotation.NewDocument()
	doc.AddObject(annotation.Object{
		Kind:        constants.AntnKindStroke,
		Color:       "#e53935",
		StrokeWidth: 3,
		Points:      []annotation.Point2D{{X: 1, Y: 1}, {X: 2, Y: 2}},
	})
	return doc
}

func makeSubmission() *Submission {
	sub := &Submission{
		Patient: PatientInfo{
			Name:  "Jordan Smith",
			Email: "jordan@example.com",
			Phone: "+84 912 345 678",
		},
	}
	sub.NewSubmission()
	for i := range sub.Slots {
		sub.Slots[i].OriginalImageRef = storage.MakeRef(constants.StorageKindOriginalImage, "orig.png")
	}
	return sub
}

func TestNewSubmission(t *testing.T) {
	sub := makeSubmission()

	assert.NotEqual(t, "", sub.ID)
	assert.Greater(t, sub.Created, int64(0))
	assert.Equal(t, constants.SubmissionStatusUploaded, sub.Status)
	assert.Equal(t, constants.SlotUpper, sub.Slots[0].Label)
	assert.Equal(t, constants.SlotFront, sub.Slots[1].Label)
	assert.Equal(t, constants.SlotLower, sub.Slots[2].Label)
}

func TestPatientValidation(t *testing.T) {
	{
		sub := makeSubmission()
		assert.Nil(t, sub.IsValidPatient())
	}
	{
		sub := makeSubmission()
		sub.Patient.Name = ""
		vErr := sub.IsValidPatient()
		assert.NotNil(t, vErr)
		assert.Equal(t, "name", vErr.Field)
	}
	{
		sub := makeSubmission()
		sub.Patient.Email = "not-an-email"
		vErr := sub.IsValidPatient()
		assert.NotNil(t, vErr)
		assert.Equal(t, "email", vErr.Field)
	}
	{
		sub := makeSubmission()
		sub.Patient.Phone = "abc"
		vErr := sub.IsValidPatient()
		assert.NotNil(t, vErr)
		assert.Equal(t, "phone", vErr.Field)
	}
}

func TestStatusMachine(t *testing.T) {
	sub := makeSubmission()

	// No skipping ahead.
	assert.Equal(t, false, sub.CanTransition(constants.SubmissionStatusReported))
	assert.Equal(t, true, sub.CanTransition(constants.SubmissionStatusAnnotated))

	sub.Status = constants.SubmissionStatusAnnotated
	assert.Equal(t, true, sub.CanTransition(constants.SubmissionStatusReported))
	// No going back.
	assert.Equal(t, false, sub.CanTransition(constants.SubmissionStatusUploaded))

	sub.Status = constants.SubmissionStatusReported
	assert.Equal(t, false, sub.CanTransition(constants.SubmissionStatusAnnotated))
	assert.Equal(t, false, sub.CanTransition(constants.SubmissionStatusUploaded))
}

func TestApplyAnnotationSaveFirstSlot(t *testing.T) {
	sub := makeSubmission()

	var docs [constants.NumSlots]*annotation.Document
	docs[0] = makeDoc()

	err := sub.ApplyAnnotationSave(docs, "brush twice daily", 0, "annotated-image/a.png")
	assert.Nil(t, err)

	assert.Equal(t, constants.SubmissionStatusAnnotated, sub.Status)
	assert.Greater(t, sub.AnnotatedAt, int64(0))
	assert.NotNil(t, sub.Slots[0].AnnotationDocument)
	assert.Equal(t, "annotated-image/a.png", sub.Slots[0].AnnotatedImageRef)
	assert.Equal(t, "brush twice daily", sub.TreatmentRecommendations)
}

// Saves patch one slot at a time: nil entries leave previously saved
// slots alone instead of wiping them.
func TestApplyAnnotationSaveUpsertsPerSlot(t *testing.T) {
	sub := makeSubmission()

	var first [constants.NumSlots]*annotation.Document
	first[1] = makeDoc()
	assert.Nil(t, sub.ApplyAnnotationSave(first, "", 1, "annotated-image/b.png"))

	var second [constants.NumSlots]*annotation.Document
	second[0] = makeDoc()
	assert.Nil(t, sub.ApplyAnnotationSave(second, "", 0, "annotated-image/a.png"))

	assert.NotNil(t, sub.Slots[0].AnnotationDocument)
	assert.NotNil(t, sub.Slots[1].AnnotationDocument)
	assert.Equal(t, "annotated-image/b.png", sub.Slots[1].AnnotatedImageRef)
}

func TestApplyAnnotationSaveRejectsEmpty(t *testing.T) {
	sub := makeSubmission()

	var docs [constants.NumSlots]*annotation.Document
	err := sub.ApplyAnnotationSave(docs, "", 0, "")

	var vErr *entities.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, constants.SubmissionStatusUploaded, sub.Status)
}

func TestApplyAnnotationSaveTerminalState(t *testing.T) {
	sub := makeSubmission()
	sub.Status = constants.SubmissionStatusReported

	var docs [constants.NumSlots]*annotation.Document
	docs[0] = makeDoc()
	err := sub.ApplyAnnotationSave(docs, "", 0, "")

	var vErr *entities.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func annotateAll(sub *Submission) {
	for i := range sub.Slots {
		var docs [constants.NumSlots]*annotation.Document
		docs[i] = makeDoc()
		sub.ApplyAnnotationSave(docs, "", i, "annotated-image/slot.png")
	}
}

func TestIsReadyForReport(t *testing.T) {
	sub := makeSubmission()
	assert.Equal(t, false, sub.IsReadyForReport())

	annotateAll(sub)
	assert.Equal(t, 3, sub.AnnotatedSlotCount())
	assert.Equal(t, true, sub.IsReadyForReport())
}

func TestAttachReportIncomplete(t *testing.T) {
	sub := makeSubmission()

	var docs [constants.NumSlots]*annotation.Document
	docs[0] = makeDoc()
	docs[1] = makeDoc()
	sub.ApplyAnnotationSave(docs, "", 0, "annotated-image/a.png")

	err := sub.AttachReport("report/r.pdf", "DS-000001")
	var iErr *entities.IncompleteAnnotationError
	assert.ErrorAs(t, err, &iErr)
	assert.Equal(t, "", sub.ReportRef)
	assert.NotEqual(t, constants.SubmissionStatusReported, sub.Status)
}

func TestAttachReport(t *testing.T) {
	sub := makeSubmission()
	annotateAll(sub)

	assert.Nil(t, sub.AttachReport("report/r.pdf", "DS-000001"))
	assert.Equal(t, constants.SubmissionStatusReported, sub.Status)
	assert.Equal(t, "report/r.pdf", sub.ReportRef)
	assert.Equal(t, "DS-000001", sub.ReportNumber)
	assert.Greater(t, sub.ReportedAt, int64(0))
}

// With only 2 of 3 slots annotated the builder must fail before any
// write: nothing may land in storage.
func TestGenerateReportIncompleteWritesNothing(t *testing.T) {
	memStorage := storage.NewMemoryStorage()
	app := NewSubmissionAPI(nil, memStorage, nil, nil, nil)

	sub := makeSubmission()
	var docs [constants.NumSlots]*annotation.Document
	docs[0] = makeDoc()
	docs[1] = makeDoc()
	sub.ApplyAnnotationSave(docs, "", 0, "annotated-image/a.png")
	sub.Slots[1].AnnotatedImageRef = "annotated-image/b.png"

	_, err := app.buildAndStoreReport(sub)
	var iErr *entities.IncompleteAnnotationError
	assert.ErrorAs(t, err, &iErr)
	assert.Equal(t, 0, memStorage.Len())
}
