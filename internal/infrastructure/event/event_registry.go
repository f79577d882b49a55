package event

import (
	"github.com/timebill/backend/internal/domain/billing"
)

// RegisterAllEvents registers all domain event types with the serializer.
// This is required for the OutboxProcessor to deserialize events from the
// outbox table.
func RegisterAllEvents(serializer *EventSerializer) {
	// Billing domain events
	serializer.Register(billing.EventTypeAdjustmentApplied, &billing.AdjustmentAppliedEvent{})
}
