package submission

import (
	"context"
	"time"
)

// CompanyProfile is the subset of the company profile the notifications need
type CompanyProfile struct {
	CompanyName  string `json:"company_name"`
	Jurisdiction string `json:"jurisdiction"`
}

// CompanyProfileLookup fetches a company's public profile
type CompanyProfileLookup interface {
	GetCompanyProfile(ctx context.Context, companyNumber string) (*CompanyProfile, error)
}

// EmailContent is the message handed to the email delivery pipeline
type EmailContent struct {
	OriginatingAppID string         `json:"originating_app_id"`
	CreatedAt        time.Time      `json:"created_at"`
	MessageType      string         `json:"message_type"`
	MessageID        string         `json:"message_id"`
	EmailAddress     string         `json:"email_address"`
	Data             map[string]any `json:"data"`
}

// EmailSender delivers email content
type EmailSender interface {
	Send(ctx context.Context, content EmailContent) error
}
