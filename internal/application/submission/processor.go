package submission

import (
	"context"
	"fmt"

	objectionapp "github.com/objections/backend/internal/application/objection"
	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Processor announces submitted objections to the downstream notifiers
type Processor struct {
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *zap.Logger
}

// NewProcessor creates a new submission processor
func NewProcessor(publisher shared.EventPublisher, clock shared.Clock, logger *zap.Logger) *Processor {
	return &Processor{
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Process raises ObjectionSubmitted on the objection and publishes its pending events.
// Events stay pending when publishing fails.
func (p *Processor) Process(ctx context.Context, o *objection.Objection, requestID string) error {
	if o == nil {
		return fmt.Errorf("process submission: nil objection")
	}

	evt, err := o.RecordSubmission(requestID, p.clock.Now())
	if err != nil {
		return fmt.Errorf("process submission: %w", err)
	}
	p.logger.Info("processing objection submission",
		zap.String("objection_id", o.ID.String()),
		zap.String("company_number", o.CompanyNumber),
		zap.String("request_id", requestID),
		zap.String("event_id", evt.EventID().String()),
	)

	if err := p.publisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
		return fmt.Errorf("publish submission event: %w", err)
	}
	o.ClearDomainEvents()
	return nil
}

// Ensure Processor implements SubmissionProcessor
var _ objectionapp.SubmissionProcessor = (*Processor)(nil)
