// Package memory archives raw documents in process memory, for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// BlobStore keeps archived documents keyed by their archive key.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// Object is one archived document.
type Object struct {
	ContentType string
	Data        []byte
}

// NewBlobStore creates an empty archive.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string]Object)}
}

// PutObject stores the content under key and returns a memory:// URI. An existing key
// is kept as is.
func (s *BlobStore) PutObject(_ context.Context, key string, contentType string, data io.Reader) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	uri := "memory://" + key

	s.mu.RLock()
	_, exists := s.objects[key]
	s.mu.RUnlock()
	if exists {
		return uri, nil
	}

	body, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; !exists {
		s.objects[key] = Object{ContentType: contentType, Data: body}
	}
	return uri, nil
}

// Get returns the object stored under key.
func (s *BlobStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return Object{}, false
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, true
}

// Keys lists stored keys in sorted order.
func (s *BlobStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
