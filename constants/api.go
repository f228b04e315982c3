package constants

const (
	ENV = "API_ENV"

	ParamID           = "id"
	ParamSubmissionID = "submission_id"
	ParamSlotIndex    = "slot_index"
	ParamStatus       = "status"
	ParamPatientID    = "patient_id"
	ParamAuth         = "Authorization"

	ParamLimit       = "_limit"
	ParamOffset      = "_offset"
	ParamSort        = "_sort"
	ParamSearch      = "_search"
	ParamAggregation = "_agg"

	EventCreate = "CREATED"
	EventUpdate = "UPDATED"
	EventDelete = "DELETED"

	DefaultLimit  = 100
	DefaultOffset = 0

	// Submission lifecycle. Forward-only: UPLOADED -> ANNOTATED -> REPORTED.
	SubmissionStatusUploaded  = "UPLOADED"
	SubmissionStatusAnnotated = "ANNOTATED"
	SubmissionStatusReported  = "REPORTED"

	// Fixed image slots, in report order.
	SlotUpper = "UPPER"
	SlotFront = "FRONT"
	SlotLower = "LOWER"

	NumSlots = 3

	// Annotation object kinds.
	AntnKindStroke     = "STROKE"
	AntnKindRectangle  = "RECTANGLE"
	AntnKindCircle     = "CIRCLE"
	AntnKindArrowGroup = "ARROW_GROUP"
	AntnKindImage      = "IMAGE" // tolerated on input, stripped on serialize

	// Editor tools.
	ToolFreehand  = "FREEHAND"
	ToolRectangle = "RECTANGLE"
	ToolCircle    = "CIRCLE"
	ToolArrow     = "ARROW"
	ToolEraser    = "ERASER"

	ZoomMin = 0.2
	ZoomMax = 5.0

	EraserColor = "#ffffff"
	EraserWidth = 18.0

	// Storage kinds, doubling as object key prefixes.
	StorageKindOriginalImage  = "original-image"
	StorageKindAnnotatedImage = "annotated-image"
	StorageKindReport         = "report"

	MaxUploadBytes = 10 << 20

	// Screening condition categories, in report row order.
	ConditionInflamedGums = "INFLAMED_GUMS"
	ConditionMisaligned   = "MISALIGNED"
	ConditionRecededGums  = "RECEDED_GUMS"
	ConditionStains       = "STAINS"
	ConditionAttrition    = "ATTRITION"
	ConditionCrowns       = "CROWNS"

	RolePatient = "patient"
	RoleAdmin   = "admin"
)

// Envelope error codes.
const (
	ServerOK                   = 0
	ServerError                = 1
	ServerInvalidData          = 2
	ServerNotFound             = 3
	ServerIncompleteAnnotation = 4
	ServerStorageFailure       = 5
	ServerEditorLocked         = 6
)
