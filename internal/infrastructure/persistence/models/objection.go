package models

import (
	"time"

	"github.com/objections/backend/internal/domain/objection"
	"gorm.io/datatypes"
)

// AttachmentLinksModel is the JSON shape of an attachment's links
type AttachmentLinksModel struct {
	Self     string `json:"self"`
	Download string `json:"download"`
}

// AttachmentModel is the JSON shape of an attachment inside the attachments column
type AttachmentModel struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Size        int64                `json:"size"`
	ContentType string               `json:"content_type"`
	Links       AttachmentLinksModel `json:"links"`
}

// ObjectionModel is the persistence model for the Objection aggregate
type ObjectionModel struct {
	AggregateModel
	CompanyNumber   string                               `gorm:"type:varchar(10);not null;index"`
	CreatedByID     string                               `gorm:"column:created_by_id;type:varchar(255)"`
	CreatedByEmail  string                               `gorm:"column:created_by_email;type:varchar(255);not null"`
	CreatedByClient string                               `gorm:"column:created_by_client;type:varchar(255)"`
	CreatedOn       time.Time                            `gorm:"not null"`
	HTTPRequestID   string                               `gorm:"column:http_request_id;type:varchar(255)"`
	Status          string                               `gorm:"type:varchar(40);not null"`
	Reason          string                               `gorm:"type:text"`
	FullName        string                               `gorm:"type:varchar(255)"`
	ShareIdentity   *bool                                `gorm:"column:share_identity"`
	Attachments     datatypes.JSONSlice[AttachmentModel] `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ObjectionModel) TableName() string {
	return "objections"
}

// ToDomain converts the persistence model to a domain Objection
func (m *ObjectionModel) ToDomain() *objection.Objection {
	attachments := make([]objection.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, objection.Attachment{
			ID:          a.ID,
			Name:        a.Name,
			Size:        a.Size,
			ContentType: a.ContentType,
			Links: objection.Links{
				Self:     a.Links.Self,
				Download: a.Links.Download,
			},
		})
	}

	var shareIdentity *bool
	if m.ShareIdentity != nil {
		v := *m.ShareIdentity
		shareIdentity = &v
	}

	return &objection.Objection{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CompanyNumber:     m.CompanyNumber,
		CreatedBy: objection.CreatedBy{
			UserID: m.CreatedByID,
			Email:  m.CreatedByEmail,
			Client: m.CreatedByClient,
		},
		CreatedOn:     m.CreatedOn,
		HTTPRequestID: m.HTTPRequestID,
		Status:        objection.Status(m.Status),
		Reason:        m.Reason,
		FullName:      m.FullName,
		ShareIdentity: shareIdentity,
		Attachments:   attachments,
	}
}

// FromDomain populates the persistence model from a domain Objection
func (m *ObjectionModel) FromDomain(o *objection.Objection) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.CompanyNumber = o.CompanyNumber
	m.CreatedByID = o.CreatedBy.UserID
	m.CreatedByEmail = o.CreatedBy.Email
	m.CreatedByClient = o.CreatedBy.Client
	m.CreatedOn = o.CreatedOn
	m.HTTPRequestID = o.HTTPRequestID
	m.Status = string(o.Status)
	m.Reason = o.Reason
	m.FullName = o.FullName
	m.ShareIdentity = o.ShareIdentity

	m.Attachments = make(datatypes.JSONSlice[AttachmentModel], 0, len(o.Attachments))
	for _, a := range o.Attachments {
		m.Attachments = append(m.Attachments, AttachmentModel{
			ID:          a.ID,
			Name:        a.Name,
			Size:        a.Size,
			ContentType: a.ContentType,
			Links: AttachmentLinksModel{
				Self:     a.Links.Self,
				Download: a.Links.Download,
			},
		})
	}
}

// ObjectionModelFromDomain creates a new persistence model from a domain Objection
func ObjectionModelFromDomain(o *objection.Objection) *ObjectionModel {
	m := &ObjectionModel{}
	m.FromDomain(o)
	return m
}
