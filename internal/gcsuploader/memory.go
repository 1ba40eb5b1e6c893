package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an ObjectStore kept in memory, used when no bucket is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Upload implements ObjectStore.
func (m *MemoryStore) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("Upload: %w", err)
	}
	uri := BuildURI(bucket, object)

	m.mu.Lock()
	m.objects[uri] = buf.Bytes()
	m.mu.Unlock()
	return uri, nil
}

// Fetch implements ObjectStore.
func (m *MemoryStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if _, _, err := ParseURI(uri); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[uri]
	if !ok {
		return nil, fmt.Errorf("Fetch: object not found: %s", uri)
	}
	return bytes.Clone(data), nil
}

var (
	_ ObjectStore = (*GCSStore)(nil)
	_ ObjectStore = (*MemoryStore)(nil)
)
