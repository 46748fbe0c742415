package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CompanyNumberPlaceholder is replaced in the configured subject
const CompanyNumberPlaceholder = "{{ COMPANY_NUMBER }}"

// DateFormat is the layout of the submission date shown in emails
const DateFormat = "2 January 2006"

// Jurisdictions routed away from the Cardiff office
const (
	JurisdictionScotland        = "scotland"
	JurisdictionNorthernIreland = "northern-ireland"
)

// EmailConfig holds the email settings for submission notifications
type EmailConfig struct {
	OriginatingAppID                  string
	SubmittedCustomerEmailType        string
	SubmittedDissolutionTeamEmailType string
	Subject                           string
	AttachmentDownloadURLPrefix       string
	RecipientsCardiff                 string
	RecipientsEdinburgh               string
	RecipientsBelfast                 string
}

// Recipients returns the dissolution team addresses for a jurisdiction
func (c EmailConfig) Recipients(jurisdiction string) []string {
	switch jurisdiction {
	case JurisdictionScotland:
		return splitAndStrip(c.RecipientsEdinburgh)
	case JurisdictionNorthernIreland:
		return splitAndStrip(c.RecipientsBelfast)
	default:
		return splitAndStrip(c.RecipientsCardiff)
	}
}

func splitAndStrip(list string) []string {
	var out []string
	for _, addr := range strings.Split(strings.ReplaceAll(list, " ", ""), ",") {
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// EmailNotifier sends the customer and dissolution team emails for a submitted objection
type EmailNotifier struct {
	companies CompanyProfileLookup
	sender    EmailSender
	config    EmailConfig
	clock     shared.Clock
	logger    *zap.Logger
	newID     func() string
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(
	companies CompanyProfileLookup,
	sender EmailSender,
	config EmailConfig,
	clock shared.Clock,
	logger *zap.Logger,
) *EmailNotifier {
	return &EmailNotifier{
		companies: companies,
		sender:    sender,
		config:    config,
		clock:     clock,
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
	}
}

// EventTypes returns the event types this handler is interested in
func (n *EmailNotifier) EventTypes() []string {
	return []string{objection.EventTypeObjectionSubmitted}
}

// Handle sends one customer email and one email per dissolution team recipient.
// Every recipient is attempted; failures are returned joined.
func (n *EmailNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	submitted, ok := event.(*objection.ObjectionSubmittedEvent)
	if !ok {
		n.logger.Error("unexpected event type",
			zap.String("expected", objection.EventTypeObjectionSubmitted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			objection.EventTypeObjectionSubmitted, event.EventType())
	}

	log := n.logger.With(
		zap.String("objection_id", submitted.AggregateID().String()),
		zap.String("company_number", submitted.CompanyNumber),
		zap.String("request_id", submitted.RequestID),
	)

	profile, err := n.companies.GetCompanyProfile(ctx, submitted.CompanyNumber)
	if err != nil {
		log.Error("failed to fetch company profile", zap.Error(err))
		return fmt.Errorf("get company profile: %w", err)
	}

	var errs []error

	customer := n.content(n.config.SubmittedCustomerEmailType, submitted.CreatedBy.Email,
		n.commonData(submitted, profile.CompanyName, submitted.CreatedBy.Email))
	log.Debug("sending customer email")
	if err := n.sender.Send(ctx, customer); err != nil {
		log.Error("failed to send customer email", zap.Error(err))
		errs = append(errs, fmt.Errorf("send customer email: %w", err))
	}

	for _, addr := range n.config.Recipients(profile.Jurisdiction) {
		data := n.commonData(submitted, profile.CompanyName, addr)
		data["email"] = submitted.CreatedBy.Email
		log.Debug("sending dissolution team email", zap.String("to", addr))
		if err := n.sender.Send(ctx, n.content(n.config.SubmittedDissolutionTeamEmailType, addr, data)); err != nil {
			log.Error("failed to send dissolution team email", zap.String("to", addr), zap.Error(err))
			errs = append(errs, fmt.Errorf("send dissolution team email to %s: %w", addr, err))
		}
	}

	return errors.Join(errs...)
}

func (n *EmailNotifier) content(messageType, to string, data map[string]any) EmailContent {
	return EmailContent{
		OriginatingAppID: n.config.OriginatingAppID,
		CreatedAt:        n.clock.Now(),
		MessageType:      messageType,
		MessageID:        n.newID(),
		EmailAddress:     to,
		Data:             data,
	}
}

func (n *EmailNotifier) commonData(e *objection.ObjectionSubmittedEvent, companyName, to string) map[string]any {
	return map[string]any{
		"subject":                         strings.ReplaceAll(n.config.Subject, CompanyNumberPlaceholder, e.CompanyNumber),
		"date":                            e.CreatedOn.Format(DateFormat),
		"objection_id":                    e.AggregateID().String(),
		"to":                              to,
		"company_name":                    companyName,
		"company_number":                  e.CompanyNumber,
		"reason":                          e.Reason,
		"attachments":                     toEmailAttachments(e.Attachments),
		"attachments_download_url_prefix": n.config.AttachmentDownloadURLPrefix,
	}
}

// EmailAttachment is the attachment shape rendered by the email templates
type EmailAttachment struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Size        int64            `json:"size"`
	ContentType string           `json:"content_type"`
	Links       EmailAttachLinks `json:"links"`
}

// EmailAttachLinks holds the attachment links shown in emails
type EmailAttachLinks struct {
	Self     string `json:"self"`
	Download string `json:"download"`
}

func toEmailAttachments(attachments []objection.Attachment) []EmailAttachment {
	out := make([]EmailAttachment, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, EmailAttachment{
			ID:          a.ID,
			Name:        a.Name,
			Size:        a.Size,
			ContentType: a.ContentType,
			Links:       EmailAttachLinks{Self: a.Links.Self, Download: a.Links.Download},
		})
	}
	return out
}

// Ensure EmailNotifier implements EventHandler
var _ shared.EventHandler = (*EmailNotifier)(nil)
