package objection

import (
	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
)

// asUpstream passes typed domain errors through and wraps anything else
// as an UpstreamError for the named operation.
func asUpstream(operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	return objection.NewUpstreamError(operation, 0, err)
}
