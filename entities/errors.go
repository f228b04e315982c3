package entities

import "fmt"

// ValidationError reports bad caller input. Field names the offending
// input so the caller can surface it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// MalformedAnnotationError means an annotation blob could not be parsed
// into the expected object-sequence shape.
type MalformedAnnotationError struct {
	Reason string
}

func (e *MalformedAnnotationError) Error() string {
	return fmt.Sprintf("malformed annotation: %s", e.Reason)
}

func NewMalformedAnnotationError(reason string) *MalformedAnnotationError {
	return &MalformedAnnotationError{Reason: reason}
}

// IncompleteAnnotationError means a report was requested before all
// three slots carried an annotated raster.
type IncompleteAnnotationError struct {
	Have int
	Want int
}

func (e *IncompleteAnnotationError) Error() string {
	return fmt.Sprintf("incomplete annotation: %d of %d slots annotated", e.Have, e.Want)
}

// StorageError wraps a byte-store failure. The core never retries.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
