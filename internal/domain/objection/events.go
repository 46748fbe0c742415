package objection

import (
	"time"

	"github.com/objections/backend/internal/domain/shared"
)

// Event types
const (
	EventTypeObjectionSubmitted = "ObjectionSubmitted"
)

// ObjectionSubmittedEvent is raised once an objection has durably moved to SUBMITTED
type ObjectionSubmittedEvent struct {
	shared.BaseDomainEvent
	CompanyNumber string       `json:"company_number"`
	CreatedBy     CreatedBy    `json:"created_by"`
	CreatedOn     time.Time    `json:"created_on"`
	Reason        string       `json:"reason"`
	FullName      string       `json:"full_name"`
	Attachments   []Attachment `json:"attachments"`
	RequestID     string       `json:"request_id"`
}

// NewObjectionSubmittedEvent snapshots the submitted objection
func NewObjectionSubmittedEvent(o *Objection, requestID string, at time.Time) *ObjectionSubmittedEvent {
	attachments := make([]Attachment, len(o.Attachments))
	copy(attachments, o.Attachments)
	return &ObjectionSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeObjectionSubmitted, AggregateType, o.ID, at),
		CompanyNumber:   o.CompanyNumber,
		CreatedBy:       o.CreatedBy,
		CreatedOn:       o.CreatedOn,
		Reason:          o.Reason,
		FullName:        o.FullName,
		Attachments:     attachments,
		RequestID:       requestID,
	}
}

// RecordSubmission raises ObjectionSubmitted as a pending domain event.
// The objection must already be SUBMITTED.
func (o *Objection) RecordSubmission(requestID string, at time.Time) (*ObjectionSubmittedEvent, error) {
	if o.Status != StatusSubmitted {
		return nil, NewValidationError("status", "only a submitted objection can record a submission")
	}
	evt := NewObjectionSubmittedEvent(o, requestID, at)
	o.AddDomainEvent(evt)
	return evt, nil
}
