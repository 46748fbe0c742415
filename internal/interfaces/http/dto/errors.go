package dto

import (
	"net/http"

	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
)

// Error codes produced at the HTTP boundary. Domain codes are reused as-is.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeFileTooLarge = "FILE_TOO_LARGE"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeFileTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,

	objection.CodeValidation:          http.StatusBadRequest,
	objection.CodeNotFound:            http.StatusNotFound,
	objection.CodeAttachmentNotFound:  http.StatusNotFound,
	objection.CodeConflict:            http.StatusConflict,
	objection.CodeConcurrencyConflict: http.StatusConflict,
	objection.CodeInvalidTransition:   http.StatusUnprocessableEntity,
	objection.CodeUpstream:            http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ResolveError returns the status, code and message to report for err.
// Errors without a domain code are reported as INTERNAL_ERROR with a generic message.
func ResolveError(err error) (int, string, string) {
	if domainErr, ok := shared.AsDomainError(err); ok {
		return GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message
	}
	return http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred"
}
