package memory

import (
	"context"
	"sync"
)

type blob struct {
	contentType string
	data        []byte
}

// BlobStore keeps binary objects in a map. It backs tests and deployments
// that do not need durable image storage.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewBlobStore constructs an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

// Put stores the object and returns its path as the URI.
func (s *BlobStore) Put(_ context.Context, path, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = blob{contentType: contentType, data: append([]byte(nil), data...)}
	return path, nil
}

// Get returns the stored bytes for path.
func (s *BlobStore) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b.data...), true
}

// ContentType returns the content type recorded at Put time.
func (s *BlobStore) ContentType(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[path]
	return b.contentType, ok
}

// Count reports the number of stored objects.
func (s *BlobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
