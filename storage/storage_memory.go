package storage

import (
	"fmt"
	"sync"

	"dentalscreen-api/entities"
)

// MemoryStorage keeps objects in a map. Used by tests and local runs
// without a MinIO endpoint.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
	}
}

func (storage *MemoryStorage) Store(kind, name string, data []byte) (string, error) {
	if !IsValidKind(kind) {
		return "", fmt.Errorf("unknown storage kind: %s", kind)
	}

	ref := MakeRef(kind, name)
	cp := make([]byte, len(data))
	copy(cp, data)

	storage.mu.Lock()
	storage.objects[ref] = cp
	storage.mu.Unlock()

	return ref, nil
}

func (storage *MemoryStorage) Load(ref string) ([]byte, error) {
	storage.mu.RLock()
	data, found := storage.objects[ref]
	storage.mu.RUnlock()

	if !found {
		return nil, &entities.StorageError{Op: "load", Key: ref, Err: fmt.Errorf("no such key")}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (storage *MemoryStorage) Exists(ref string) (bool, error) {
	storage.mu.RLock()
	_, found := storage.objects[ref]
	storage.mu.RUnlock()
	return found, nil
}

// Len reports how many objects are stored. Handy for asserting that a
// failed operation wrote nothing.
func (storage *MemoryStorage) Len() int {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	return len(storage.objects)
}
