package objection

import (
	"strings"
	"time"

	"github.com/objections/backend/internal/domain/shared"
)

// AggregateType is the aggregate type name used on domain events
const AggregateType = "Objection"

// CreatedBy identifies the user who filed the objection
type CreatedBy struct {
	UserID string
	Email  string
	Client string
}

// Objection is the aggregate root for an objection against a company strike-off
type Objection struct {
	shared.BaseAggregateRoot
	CompanyNumber string
	CreatedBy     CreatedBy
	CreatedOn     time.Time
	HTTPRequestID string
	Status        Status
	Reason        string
	FullName      string
	ShareIdentity *bool
	Attachments   []Attachment
}

// NewObjectionParams is the validated input for NewObjection
type NewObjectionParams struct {
	CompanyNumber string
	CreatedBy     CreatedBy
	RequestID     string
	Now           time.Time
	// Status is decided by the eligibility check; empty means OPEN
	Status Status
}

// NewObjection creates an objection that has not been persisted yet
func NewObjection(p NewObjectionParams) (*Objection, error) {
	companyNumber := strings.TrimSpace(p.CompanyNumber)
	if companyNumber == "" {
		return nil, NewValidationError("company_number", "company number cannot be empty")
	}
	if strings.TrimSpace(p.CreatedBy.Email) == "" {
		return nil, NewValidationError("created_by.email", "creator email cannot be empty")
	}
	status := p.Status
	if status == "" {
		status = StatusOpen
	}
	if !status.IsValidInitial() {
		return nil, NewValidationError("status", "objection cannot be created with status "+status.String())
	}

	o := &Objection{
		CompanyNumber: companyNumber,
		CreatedBy:     p.CreatedBy,
		CreatedOn:     p.Now,
		HTTPRequestID: p.RequestID,
		Status:        status,
		Attachments:   make([]Attachment, 0),
	}
	o.CreatedAt = p.Now
	o.UpdatedAt = p.Now
	return o, nil
}

// AddAttachment appends an attachment, rejecting duplicate ids
func (o *Objection) AddAttachment(a Attachment) error {
	if strings.TrimSpace(a.ID) == "" {
		return NewValidationError("attachment.id", "attachment id cannot be empty")
	}
	if o.indexOf(a.ID) >= 0 {
		return NewDuplicateAttachmentError(a.ID)
	}
	o.Attachments = append(o.Attachments, a)
	return nil
}

// RemoveAttachment removes and returns the attachment with the given id
func (o *Objection) RemoveAttachment(id string) (Attachment, error) {
	i := o.indexOf(id)
	if i < 0 {
		return Attachment{}, NewAttachmentNotFoundError(o.ID, id)
	}
	removed := o.Attachments[i]
	o.Attachments = append(o.Attachments[:i:i], o.Attachments[i+1:]...)
	return removed, nil
}

// Attachment returns the attachment with the given id
func (o *Objection) Attachment(id string) (Attachment, error) {
	i := o.indexOf(id)
	if i < 0 {
		return Attachment{}, NewAttachmentNotFoundError(o.ID, id)
	}
	return o.Attachments[i], nil
}

// HasAttachment reports whether an attachment with the id is present
func (o *Objection) HasAttachment(id string) bool {
	return o.indexOf(id) >= 0
}

func (o *Objection) indexOf(id string) int {
	for i := range o.Attachments {
		if o.Attachments[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy without pending domain events
func (o *Objection) Clone() *Objection {
	c := *o
	c.ClearDomainEvents()
	c.Attachments = make([]Attachment, len(o.Attachments))
	copy(c.Attachments, o.Attachments)
	if o.ShareIdentity != nil {
		v := *o.ShareIdentity
		c.ShareIdentity = &v
	}
	return &c
}

// IsCreatedBy reports whether the email belongs to the objection's creator
func (o *Objection) IsCreatedBy(email string) bool {
	return email != "" && strings.EqualFold(strings.TrimSpace(email), o.CreatedBy.Email)
}

// Touch stamps the last modification time
func (o *Objection) Touch(now time.Time) {
	o.UpdatedAt = now
}

var _ shared.AggregateRoot = (*Objection)(nil)
