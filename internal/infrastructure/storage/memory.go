package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryMediaStore keeps media in process memory. It is used in development
// when no bucket is configured and in tests.
type MemoryMediaStore struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string]memoryObject
}

// NewMemoryMediaStore creates an empty store
func NewMemoryMediaStore(prefix string) *MemoryMediaStore {
	return &MemoryMediaStore{prefix: prefix, objects: make(map[string]memoryObject)}
}

// MediaKey builds the object key of a media file
func (m *MemoryMediaStore) MediaKey(tenantID uuid.UUID, mediaID, mimeType string) string {
	return MediaKey(m.prefix, tenantID, mediaID, mimeType)
}

// Put stores a copy of data
func (m *MemoryMediaStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	m.objects[key] = memoryObject{data: buf, contentType: contentType}
	m.mu.Unlock()
	return nil
}

// Get returns a stored object
func (m *MemoryMediaStore) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("object %s not found", key)
	}
	return obj.data, obj.contentType, nil
}

// PresignGet returns a pseudo URL; memory objects cannot be served over HTTP
func (m *MemoryMediaStore) PresignGet(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	return "memory://" + key, time.Now().Add(expiresIn), nil
}

// Exists reports whether key is stored
func (m *MemoryMediaStore) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("storage key is required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Delete removes key
func (m *MemoryMediaStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored objects
func (m *MemoryMediaStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
