package objection

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockRepository is a mock implementation of objection.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*objection.Objection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*objection.Objection), args.Error(1)
}

func (m *MockRepository) FindByCompanyNumber(ctx context.Context, companyNumber string) ([]objection.Objection, error) {
	args := m.Called(ctx, companyNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]objection.Objection), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, o *objection.Objection) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

// MockBlobStore is a mock implementation of BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UploadResult), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DeleteResult), args.Error(1)
}

func (m *MockBlobStore) Download(ctx context.Context, id string) (*DownloadResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DownloadResult), args.Error(1)
}

// MockEligibilityLookup is a mock implementation of EligibilityLookup
type MockEligibilityLookup struct {
	mock.Mock
}

func (m *MockEligibilityLookup) GetActionCode(ctx context.Context, companyNumber string) (int64, error) {
	args := m.Called(ctx, companyNumber)
	return args.Get(0).(int64), args.Error(1)
}

// MockSubmissionProcessor is a mock implementation of SubmissionProcessor
type MockSubmissionProcessor struct {
	mock.Mock
}

func (m *MockSubmissionProcessor) Process(ctx context.Context, o *objection.Objection, requestID string) error {
	args := m.Called(ctx, o, requestID)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// Compile-time interface checks
var (
	_ objection.Repository    = (*MockRepository)(nil)
	_ BlobStore               = (*MockBlobStore)(nil)
	_ EligibilityLookup       = (*MockEligibilityLookup)(nil)
	_ SubmissionProcessor     = (*MockSubmissionProcessor)(nil)
	_ shared.IdempotencyStore = (*MockIdempotencyStore)(nil)
)

// =============================================================================
// In-memory fakes for scenario tests
// =============================================================================

// memoryRepository stores clones so callers never share state with it
type memoryRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*objection.Objection
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rows: make(map[uuid.UUID]*objection.Objection)}
}

func (r *memoryRepository) FindByID(_ context.Context, id uuid.UUID) (*objection.Objection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.rows[id]
	if !ok {
		return nil, objection.NewNotFoundError(id)
	}
	return o.Clone(), nil
}

func (r *memoryRepository) FindByCompanyNumber(_ context.Context, companyNumber string) ([]objection.Objection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []objection.Objection
	for _, o := range r.rows {
		if o.CompanyNumber == companyNumber {
			out = append(out, *o.Clone())
		}
	}
	return out, nil
}

func (r *memoryRepository) Save(_ context.Context, o *objection.Objection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.IsTransient() {
		o.ID = uuid.New()
		o.Version = 1
		r.rows[o.ID] = o.Clone()
		return nil
	}
	stored, ok := r.rows[o.ID]
	if !ok {
		return objection.NewNotFoundError(o.ID)
	}
	if stored.Version != o.Version {
		return objection.NewStaleVersionError(o.ID, o.Version)
	}
	o.IncrementVersion()
	r.rows[o.ID] = o.Clone()
	return nil
}

// sequenceBlobStore hands out ids A1, A2, ... and remembers content
type sequenceBlobStore struct {
	mu      sync.Mutex
	next    int
	blobs   map[string]UploadRequest
	deletes int
}

func newSequenceBlobStore() *sequenceBlobStore {
	return &sequenceBlobStore{blobs: make(map[string]UploadRequest)}
}

func (s *sequenceBlobStore) Upload(_ context.Context, req UploadRequest) (*UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := "A" + string(rune('0'+s.next))
	s.blobs[id] = req
	return &UploadResult{ID: id, Status: 201}, nil
}

func (s *sequenceBlobStore) Delete(_ context.Context, id string) (*DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if _, ok := s.blobs[id]; !ok {
		return &DeleteResult{Status: 404}, nil
	}
	delete(s.blobs, id)
	return &DeleteResult{Status: 204}, nil
}

func (s *sequenceBlobStore) Download(_ context.Context, id string) (*DownloadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.blobs[id]
	if !ok {
		return &DownloadResult{Status: 404}, nil
	}
	return &DownloadResult{
		Body:          io.NopCloser(bytes.NewReader(req.Content)),
		ContentType:   req.ContentType,
		ContentLength: int64(len(req.Content)),
		Status:        200,
	}, nil
}

// staticEligibility returns a fixed action code
type staticEligibility int64

func (s staticEligibility) GetActionCode(context.Context, string) (int64, error) {
	return int64(s), nil
}

// recordingProcessor counts submissions
type recordingProcessor struct {
	mu        sync.Mutex
	processed []*objection.Objection
}

func (p *recordingProcessor) Process(_ context.Context, o *objection.Objection, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, o.Clone())
	return nil
}
