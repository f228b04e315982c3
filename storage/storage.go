package storage

import (
	"fmt"

	"dentalscreen-api/constants"
)

// ObjectStorage is the byte store the core writes originals, annotated
// rasters and reports into. Refs are opaque to callers; here they are
// "<kind>/<name>" object keys.
type ObjectStorage interface {
	Store(kind, name string, data []byte) (string, error)
	Load(ref string) ([]byte, error)
	Exists(ref string) (bool, error)
}

var storageKinds = map[string]bool{
	constants.StorageKindOriginalImage:  true,
	constants.StorageKindAnnotatedImage: true,
	constants.StorageKindReport:         true,
}

func IsValidKind(kind string) bool {
	_, found := storageKinds[kind]
	return found
}

func MakeRef(kind, name string) string {
	return fmt.Sprintf("%s/%s", kind, name)
}

func contentTypeForKind(kind string) string {
	switch kind {
	case constants.StorageKindReport:
		return "application/pdf"
	default:
		return "image/png"
	}
}
