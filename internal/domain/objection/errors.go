package objection

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/objections/backend/internal/domain/shared"
)

// Error codes surfaced by the objection domain
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeAttachmentNotFound  = "ATTACHMENT_NOT_FOUND"
	CodeInvalidTransition   = "INVALID_STATUS_TRANSITION"
	CodeConflict            = "CONFLICT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeUpstream            = "UPSTREAM_ERROR"
)

// ValidationError reports malformed input
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return shared.NewDomainError(CodeValidation, e.Message)
}

// NotFoundError reports a missing objection
type NotFoundError struct {
	ObjectionID uuid.UUID
}

// NewNotFoundError creates a NotFoundError for an objection id
func NewNotFoundError(objectionID uuid.UUID) *NotFoundError {
	return &NotFoundError{ObjectionID: objectionID}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("objection %s not found", e.ObjectionID)
}

func (e *NotFoundError) Unwrap() error {
	return shared.NewDomainError(CodeNotFound, e.Error())
}

// AttachmentNotFoundError reports an attachment missing from an existing objection
type AttachmentNotFoundError struct {
	ObjectionID  uuid.UUID
	AttachmentID string
}

// NewAttachmentNotFoundError creates an AttachmentNotFoundError
func NewAttachmentNotFoundError(objectionID uuid.UUID, attachmentID string) *AttachmentNotFoundError {
	return &AttachmentNotFoundError{ObjectionID: objectionID, AttachmentID: attachmentID}
}

func (e *AttachmentNotFoundError) Error() string {
	return fmt.Sprintf("attachment %s not found on objection %s", e.AttachmentID, e.ObjectionID)
}

func (e *AttachmentNotFoundError) Unwrap() error {
	return shared.NewDomainError(CodeAttachmentNotFound, e.Error())
}

// InvalidTransitionError reports a status change the lifecycle does not allow
type InvalidTransitionError struct {
	ObjectionID uuid.UUID
	Current     Status
	Requested   Status
	Message     string
}

// NewInvalidTransitionError creates an InvalidTransitionError
func NewInvalidTransitionError(objectionID uuid.UUID, current, requested Status) *InvalidTransitionError {
	return &InvalidTransitionError{
		ObjectionID: objectionID,
		Current:     current,
		Requested:   requested,
		Message:     fmt.Sprintf("objection %s cannot move from %s to %s", objectionID, current, requested),
	}
}

// NewNotEditableError rejects a field patch on an objection that has left OPEN
func NewNotEditableError(objectionID uuid.UUID, current Status) *InvalidTransitionError {
	return &InvalidTransitionError{
		ObjectionID: objectionID,
		Current:     current,
		Requested:   current,
		Message:     fmt.Sprintf("objection %s is %s and can no longer be edited", objectionID, current),
	}
}

func (e *InvalidTransitionError) Error() string {
	return e.Message
}

func (e *InvalidTransitionError) Unwrap() error {
	return shared.NewDomainError(CodeInvalidTransition, e.Message)
}

// ConflictError reports a duplicate attachment id or a stale write
type ConflictError struct {
	Code    string
	Message string
}

// NewDuplicateAttachmentError creates a ConflictError for an attachment id already present
func NewDuplicateAttachmentError(attachmentID string) *ConflictError {
	return &ConflictError{
		Code:    CodeConflict,
		Message: fmt.Sprintf("attachment %s already exists on objection", attachmentID),
	}
}

// NewStaleVersionError creates a ConflictError for an optimistic locking failure
func NewStaleVersionError(objectionID uuid.UUID, version int) *ConflictError {
	return &ConflictError{
		Code:    CodeConcurrencyConflict,
		Message: fmt.Sprintf("objection %s was modified concurrently (expected version %d)", objectionID, version),
	}
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return shared.NewDomainError(e.Code, e.Message)
}

// UpstreamError reports a failure in the blob store, eligibility lookup or persistence
type UpstreamError struct {
	Operation string
	Status    int
	Cause     error
}

// NewUpstreamError creates an UpstreamError
func NewUpstreamError(operation string, status int, cause error) *UpstreamError {
	return &UpstreamError{Operation: operation, Status: status, Cause: cause}
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Cause != nil && e.Status != 0:
		return fmt.Sprintf("%s failed with status %d: %v", e.Operation, e.Status, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("%s failed with status %d", e.Operation, e.Status)
	default:
		return e.Operation + " failed"
	}
}

func (e *UpstreamError) Unwrap() []error {
	errs := []error{shared.NewDomainError(CodeUpstream, e.Error())}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
