package submission

import (
	"context"
	"fmt"

	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ChipsNotifier forwards submitted objections to CHIPS.
// Only the hand-off is logged; there is no CHIPS transport yet.
type ChipsNotifier struct {
	logger *zap.Logger
}

// NewChipsNotifier creates a new CHIPS notifier
func NewChipsNotifier(logger *zap.Logger) *ChipsNotifier {
	return &ChipsNotifier{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (n *ChipsNotifier) EventTypes() []string {
	return []string{objection.EventTypeObjectionSubmitted}
}

// Handle logs the CHIPS hand-off for a submitted objection
func (n *ChipsNotifier) Handle(_ context.Context, event shared.DomainEvent) error {
	submitted, ok := event.(*objection.ObjectionSubmittedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			objection.EventTypeObjectionSubmitted, event.EventType())
	}

	n.logger.Info("Sending contact to CHIPS",
		zap.String("objection_id", submitted.AggregateID().String()),
		zap.String("company_number", submitted.CompanyNumber),
		zap.String("request_id", submitted.RequestID),
	)
	return nil
}

// Ensure ChipsNotifier implements EventHandler
var _ shared.EventHandler = (*ChipsNotifier)(nil)
