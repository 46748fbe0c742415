package submission

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ===================== Mocks =====================

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockCompanyProfileLookup is a mock implementation of CompanyProfileLookup
type MockCompanyProfileLookup struct {
	mock.Mock
}

func (m *MockCompanyProfileLookup) GetCompanyProfile(ctx context.Context, companyNumber string) (*CompanyProfile, error) {
	args := m.Called(ctx, companyNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CompanyProfile), args.Error(1)
}

// MockEmailSender is a mock implementation of EmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, content EmailContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}

var (
	_ shared.EventPublisher = (*MockEventPublisher)(nil)
	_ CompanyProfileLookup  = (*MockCompanyProfileLookup)(nil)
	_ EmailSender           = (*MockEmailSender)(nil)
)

// ===================== Fixtures =====================

var (
	testCreatedOn = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	testNow       = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
)

func newSubmittedObjection(t *testing.T) *objection.Objection {
	t.Helper()
	o, err := objection.NewObjection(objection.NewObjectionParams{
		CompanyNumber: "12345678",
		CreatedBy:     objection.CreatedBy{UserID: "user-1", Email: "jane@example.com", Client: "client-1"},
		RequestID:     "req-create",
		Now:           testCreatedOn,
	})
	require.NoError(t, err)
	o.ID = uuid.New()
	o.Version = 2
	o.Reason = "Company is still trading"
	o.FullName = "Jane Doe"
	o.Status = objection.StatusSubmitted
	att, err := objection.NewAttachment("A1", "evidence.pdf", 1024, "application/pdf", "https://api/attachments")
	require.NoError(t, err)
	require.NoError(t, o.AddAttachment(att))
	return o
}

func testEmailConfig() EmailConfig {
	return EmailConfig{
		OriginatingAppID:                  "strike-off-objections-api",
		SubmittedCustomerEmailType:        "customer",
		SubmittedDissolutionTeamEmailType: "dissolution-team",
		Subject:                           "Objection to strike off {{ COMPANY_NUMBER }}",
		AttachmentDownloadURLPrefix:       "https://download.example.com",
		RecipientsCardiff:                 "a@cardiff.gov, b@cardiff.gov",
		RecipientsEdinburgh:               "x@edinburgh.gov",
		RecipientsBelfast:                 "y@belfast.gov , z@belfast.gov",
	}
}

func newTestNotifier(companies CompanyProfileLookup, sender EmailSender) *EmailNotifier {
	n := NewEmailNotifier(companies, sender, testEmailConfig(), shared.FixedClock{At: testNow}, zap.NewNop())
	n.newID = func() string { return "msg-1" }
	return n
}

// ===================== Processor =====================

func TestProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes submitted event", func(t *testing.T) {
		o := newSubmittedObjection(t)
		publisher := new(MockEventPublisher)
		publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			if len(events) != 1 {
				return false
			}
			e, ok := events[0].(*objection.ObjectionSubmittedEvent)
			return ok && e.AggregateID() == o.ID && e.RequestID == "req-1" && e.OccurredAt().Equal(testNow)
		})).Return(nil)

		p := NewProcessor(publisher, shared.FixedClock{At: testNow}, zap.NewNop())
		require.NoError(t, p.Process(ctx, o, "req-1"))
		publisher.AssertExpectations(t)
		assert.Empty(t, o.GetDomainEvents())
	})

	t.Run("returns publish failure and keeps event pending", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		boom := errors.New("handler failed")
		publisher.On("Publish", ctx, mock.Anything).Return(boom)

		o := newSubmittedObjection(t)
		p := NewProcessor(publisher, shared.FixedClock{At: testNow}, zap.NewNop())
		assert.ErrorIs(t, p.Process(ctx, o, "req-1"), boom)
		require.Len(t, o.GetDomainEvents(), 1)
		assert.Equal(t, objection.EventTypeObjectionSubmitted, o.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects objection that is not submitted", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		o := newSubmittedObjection(t)
		o.Status = objection.StatusOpen

		p := NewProcessor(publisher, shared.FixedClock{At: testNow}, zap.NewNop())
		assert.Error(t, p.Process(ctx, o, "req-1"))
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		assert.Empty(t, o.GetDomainEvents())
	})

	t.Run("rejects nil objection", func(t *testing.T) {
		p := NewProcessor(new(MockEventPublisher), shared.FixedClock{At: testNow}, zap.NewNop())
		assert.Error(t, p.Process(ctx, nil, "req-1"))
	})
}

// ===================== EmailNotifier =====================

func TestEmailConfig_Recipients(t *testing.T) {
	cfg := testEmailConfig()
	assert.Equal(t, []string{"x@edinburgh.gov"}, cfg.Recipients("scotland"))
	assert.Equal(t, []string{"y@belfast.gov", "z@belfast.gov"}, cfg.Recipients("northern-ireland"))
	assert.Equal(t, []string{"a@cardiff.gov", "b@cardiff.gov"}, cfg.Recipients("england-wales"))
	assert.Equal(t, []string{"a@cardiff.gov", "b@cardiff.gov"}, cfg.Recipients(""))
	assert.Empty(t, EmailConfig{}.Recipients("wales"))
}

func TestEmailNotifier_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("sends customer and team emails", func(t *testing.T) {
		o := newSubmittedObjection(t)
		evt := objection.NewObjectionSubmittedEvent(o, "req-1", testNow)

		companies := new(MockCompanyProfileLookup)
		companies.On("GetCompanyProfile", ctx, "12345678").
			Return(&CompanyProfile{CompanyName: "Acme Ltd", Jurisdiction: "scotland"}, nil)

		var sent []EmailContent
		sender := new(MockEmailSender)
		sender.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
			sent = append(sent, args.Get(1).(EmailContent))
		}).Return(nil)

		n := newTestNotifier(companies, sender)
		require.NoError(t, n.Handle(ctx, evt))
		require.Len(t, sent, 2)

		customer := sent[0]
		assert.Equal(t, "jane@example.com", customer.EmailAddress)
		assert.Equal(t, "customer", customer.MessageType)
		assert.Equal(t, "strike-off-objections-api", customer.OriginatingAppID)
		assert.Equal(t, "msg-1", customer.MessageID)
		assert.Equal(t, testNow, customer.CreatedAt)
		assert.Equal(t, "Objection to strike off 12345678", customer.Data["subject"])
		assert.Equal(t, "14 March 2024", customer.Data["date"])
		assert.Equal(t, o.ID.String(), customer.Data["objection_id"])
		assert.Equal(t, "jane@example.com", customer.Data["to"])
		assert.Equal(t, "Acme Ltd", customer.Data["company_name"])
		assert.Equal(t, "12345678", customer.Data["company_number"])
		assert.Equal(t, "Company is still trading", customer.Data["reason"])
		assert.Equal(t, []EmailAttachment{{
			ID:          "A1",
			Name:        "evidence.pdf",
			Size:        1024,
			ContentType: "application/pdf",
			Links: EmailAttachLinks{
				Self:     "https://api/attachments/A1",
				Download: "https://api/attachments/A1/download",
			},
		}}, customer.Data["attachments"])
		assert.Equal(t, "https://download.example.com", customer.Data["attachments_download_url_prefix"])
		assert.NotContains(t, customer.Data, "email")

		team := sent[1]
		assert.Equal(t, "x@edinburgh.gov", team.EmailAddress)
		assert.Equal(t, "dissolution-team", team.MessageType)
		assert.Equal(t, "x@edinburgh.gov", team.Data["to"])
		assert.Equal(t, "jane@example.com", team.Data["email"])
	})

	t.Run("email payload uses snake case attachment keys", func(t *testing.T) {
		evt := objection.NewObjectionSubmittedEvent(newSubmittedObjection(t), "req-1", testNow)
		companies := new(MockCompanyProfileLookup)
		companies.On("GetCompanyProfile", ctx, "12345678").
			Return(&CompanyProfile{CompanyName: "Acme Ltd", Jurisdiction: "scotland"}, nil)

		var sent []EmailContent
		sender := new(MockEmailSender)
		sender.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
			sent = append(sent, args.Get(1).(EmailContent))
		}).Return(nil)

		require.NoError(t, newTestNotifier(companies, sender).Handle(ctx, evt))
		require.NotEmpty(t, sent)

		raw, err := json.Marshal(sent[0])
		require.NoError(t, err)

		var decoded struct {
			Data struct {
				Attachments []map[string]any `json:"attachments"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.Len(t, decoded.Data.Attachments, 1)

		att := decoded.Data.Attachments[0]
		assert.Equal(t, "A1", att["id"])
		assert.Equal(t, "evidence.pdf", att["name"])
		assert.EqualValues(t, 1024, att["size"])
		assert.Equal(t, "application/pdf", att["content_type"])
		assert.Equal(t, map[string]any{
			"self":     "https://api/attachments/A1",
			"download": "https://api/attachments/A1/download",
		}, att["links"])
		assert.NotContains(t, att, "ID")
	})

	t.Run("attempts every recipient and joins failures", func(t *testing.T) {
		evt := objection.NewObjectionSubmittedEvent(newSubmittedObjection(t), "req-1", testNow)
		companies := new(MockCompanyProfileLookup)
		companies.On("GetCompanyProfile", ctx, "12345678").
			Return(&CompanyProfile{CompanyName: "Acme Ltd", Jurisdiction: "england-wales"}, nil)

		boom := errors.New("kafka down")
		sender := new(MockEmailSender)
		sender.On("Send", ctx, mock.MatchedBy(func(c EmailContent) bool { return c.EmailAddress == "a@cardiff.gov" })).Return(boom)
		sender.On("Send", ctx, mock.Anything).Return(nil)

		err := newTestNotifier(companies, sender).Handle(ctx, evt)
		assert.ErrorIs(t, err, boom)
		sender.AssertNumberOfCalls(t, "Send", 3)
	})

	t.Run("company lookup failure sends nothing", func(t *testing.T) {
		evt := objection.NewObjectionSubmittedEvent(newSubmittedObjection(t), "req-1", testNow)
		companies := new(MockCompanyProfileLookup)
		companies.On("GetCompanyProfile", ctx, "12345678").Return(nil, errors.New("timeout"))
		sender := new(MockEmailSender)

		assert.Error(t, newTestNotifier(companies, sender).Handle(ctx, evt))
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("rejects other event types", func(t *testing.T) {
		base := shared.NewBaseDomainEvent("Other", "Other", uuid.New(), testNow)
		n := newTestNotifier(new(MockCompanyProfileLookup), new(MockEmailSender))
		assert.Error(t, n.Handle(ctx, &base))
	})
}

// ===================== ChipsNotifier =====================

func TestChipsNotifier_Handle(t *testing.T) {
	n := NewChipsNotifier(zap.NewNop())
	assert.Equal(t, []string{objection.EventTypeObjectionSubmitted}, n.EventTypes())

	evt := objection.NewObjectionSubmittedEvent(newSubmittedObjection(t), "req-1", testNow)
	assert.NoError(t, n.Handle(context.Background(), evt))

	base := shared.NewBaseDomainEvent("Other", "Other", uuid.New(), testNow)
	assert.Error(t, n.Handle(context.Background(), &base))
}
