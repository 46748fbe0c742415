package objection

import (
	"context"
	"io"

	"github.com/objections/backend/internal/domain/objection"
)

// StoreStatus is the HTTP-style status a blob store reports for a call.
// Zero means the store gave no definitive answer.
type StoreStatus int

// IsDefinitive reports whether the store returned a status at all
func (s StoreStatus) IsDefinitive() bool {
	return s != 0
}

// IsError reports whether the store answered with an error status.
// A missing status is not an error.
func (s StoreStatus) IsError() bool {
	return s >= 400
}

// UploadRequest describes a file handed to the blob store
type UploadRequest struct {
	Content     []byte
	FileName    string
	ContentType string
	Size        int64
}

// UploadResult is the store's answer to an upload
type UploadResult struct {
	ID     string
	Status StoreStatus
}

// DeleteResult is the store's answer to a delete
type DeleteResult struct {
	Status StoreStatus
}

// DownloadResult streams a stored blob. Callers must close Body.
type DownloadResult struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Status        StoreStatus
}

// BlobStore is the external file store holding attachment content
type BlobStore interface {
	// Upload stores the content and returns the store-assigned id
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	// Delete removes a stored blob
	Delete(ctx context.Context, id string) (*DeleteResult, error)
	// Download opens a stored blob for reading
	Download(ctx context.Context, id string) (*DownloadResult, error)
}

// EligibilityLookup returns the company's strike-off action code
type EligibilityLookup interface {
	GetActionCode(ctx context.Context, companyNumber string) (int64, error)
}

// EligibilityRule maps an action code to the initial objection status
type EligibilityRule func(actionCode int64) objection.Status

// AlwaysOpen is the current eligibility rule: every company may be objected to
func AlwaysOpen(int64) objection.Status {
	return objection.StatusOpen
}

// SubmissionProcessor is triggered once an objection has been durably submitted
type SubmissionProcessor interface {
	Process(ctx context.Context, o *objection.Objection, requestID string) error
}
