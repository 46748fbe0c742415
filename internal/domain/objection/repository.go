package objection

import (
	"context"

	"github.com/google/uuid"
)

// Reader loads objections
type Reader interface {
	// FindByID returns the objection or a *NotFoundError
	FindByID(ctx context.Context, id uuid.UUID) (*Objection, error)
}

// Finder supports lookups beyond the primary key
type Finder interface {
	// FindByCompanyNumber returns every objection filed against a company, oldest first
	FindByCompanyNumber(ctx context.Context, companyNumber string) ([]Objection, error)
}

// Writer persists objections
type Writer interface {
	// Save inserts a transient objection, assigning its ID, or updates an existing one
	// if its version still matches. A stale version yields a *ConflictError.
	Save(ctx context.Context, o *Objection) error
}

// Repository combines the objection persistence interfaces
type Repository interface {
	Reader
	Finder
	Writer
}
