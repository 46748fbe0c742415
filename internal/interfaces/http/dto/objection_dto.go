package dto

import (
	"time"

	"github.com/objections/backend/internal/domain/objection"
)

// CreatedByResponse is the objector's identity as exposed by the API
type CreatedByResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name,omitempty"`
	ShareIdentity *bool  `json:"share_identity,omitempty"`
}

// LinksResponse holds resource links
type LinksResponse struct {
	Self     string `json:"self"`
	Download string `json:"download,omitempty"`
}

// AttachmentResponse is an attachment's metadata
type AttachmentResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	ContentType string        `json:"content_type"`
	Size        int64         `json:"size"`
	Links       LinksResponse `json:"links"`
}

// ObjectionResponse is an objection as returned by the API
type ObjectionResponse struct {
	ID            string               `json:"id"`
	CompanyNumber string               `json:"company_number"`
	CreatedOn     time.Time            `json:"created_on"`
	CreatedBy     CreatedByResponse    `json:"created_by"`
	Reason        string               `json:"reason,omitempty"`
	Status        string               `json:"status"`
	Attachments   []AttachmentResponse `json:"attachments"`
	Version       int                  `json:"version"`
}

// NewAttachmentResponse maps a domain attachment
func NewAttachmentResponse(a objection.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID,
		Name:        a.Name,
		ContentType: a.ContentType,
		Size:        a.Size,
		Links: LinksResponse{
			Self:     a.Links.Self,
			Download: a.Links.Download,
		},
	}
}

// NewAttachmentResponses maps attachments, preserving order
func NewAttachmentResponses(attachments []objection.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, len(attachments))
	for i, a := range attachments {
		out[i] = NewAttachmentResponse(a)
	}
	return out
}

// NewObjectionResponse maps a domain objection
func NewObjectionResponse(o *objection.Objection) ObjectionResponse {
	return ObjectionResponse{
		ID:            o.ID.String(),
		CompanyNumber: o.CompanyNumber,
		CreatedOn:     o.CreatedOn,
		CreatedBy: CreatedByResponse{
			ID:            o.CreatedBy.UserID,
			Email:         o.CreatedBy.Email,
			FullName:      o.FullName,
			ShareIdentity: o.ShareIdentity,
		},
		Reason:      o.Reason,
		Status:      o.Status.String(),
		Attachments: NewAttachmentResponses(o.Attachments),
		Version:     o.Version,
	}
}

// PatchObjectionRequest is the body of PATCH .../strike-off-objections/:objectionId.
// Absent fields are left unchanged; an explicit empty string clears the field.
type PatchObjectionRequest struct {
	FullName      *string `json:"full_name" binding:"omitempty,max=255"`
	ShareIdentity *bool   `json:"share_identity"`
	Reason        *string `json:"reason" binding:"omitempty,max=10000"`
	Status        *string `json:"status" binding:"omitempty,max=40"`
}

// ToPatch converts the request into a domain patch
func (r PatchObjectionRequest) ToPatch() (objection.Patch, error) {
	var patch objection.Patch
	if r.FullName != nil {
		patch.FullName = objection.Some(*r.FullName)
	}
	if r.ShareIdentity != nil {
		patch.ShareIdentity = objection.Some(*r.ShareIdentity)
	}
	if r.Reason != nil {
		patch.Reason = objection.Some(*r.Reason)
	}
	if r.Status != nil {
		status, err := objection.ParseStatus(*r.Status)
		if err != nil {
			return objection.Patch{}, err
		}
		patch.Status = objection.Some(status)
	}
	return patch, nil
}
