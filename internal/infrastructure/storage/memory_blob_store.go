package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	objectionapp "github.com/objections/backend/internal/application/objection"
)

type memoryBlob struct {
	content     []byte
	contentType string
}

// MemoryBlobStore keeps blobs in process memory. It backs local development and tests.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

// NewMemoryBlobStore creates an empty in-memory blob store
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]memoryBlob)}
}

// Upload stores a copy of the content under a fresh id
func (s *MemoryBlobStore) Upload(_ context.Context, req objectionapp.UploadRequest) (*objectionapp.UploadResult, error) {
	id := uuid.New().String()
	content := make([]byte, len(req.Content))
	copy(content, req.Content)

	s.mu.Lock()
	s.blobs[id] = memoryBlob{content: content, contentType: req.ContentType}
	s.mu.Unlock()

	return &objectionapp.UploadResult{ID: id, Status: http.StatusCreated}, nil
}

// Delete removes the blob; a missing blob answers 404
func (s *MemoryBlobStore) Delete(_ context.Context, id string) (*objectionapp.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return &objectionapp.DeleteResult{Status: http.StatusNotFound}, nil
	}
	delete(s.blobs, id)
	return &objectionapp.DeleteResult{Status: http.StatusNoContent}, nil
}

// Download returns a reader over the stored blob
func (s *MemoryBlobStore) Download(_ context.Context, id string) (*objectionapp.DownloadResult, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return &objectionapp.DownloadResult{Status: http.StatusNotFound}, nil
	}
	return &objectionapp.DownloadResult{
		Body:          io.NopCloser(bytes.NewReader(blob.content)),
		ContentType:   blob.contentType,
		ContentLength: int64(len(blob.content)),
		Status:        http.StatusOK,
	}, nil
}

// Len returns the number of stored blobs
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Ensure MemoryBlobStore implements BlobStore
var _ objectionapp.BlobStore = (*MemoryBlobStore)(nil)
