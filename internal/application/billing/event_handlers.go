package billing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/timebill/backend/internal/domain/billing"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/infrastructure/telemetry"
)

// AdjustmentAppliedHandler consumes adjustment events delivered through the
// outbox and records them in the audit log and billing metrics.
type AdjustmentAppliedHandler struct {
	metrics *telemetry.BillingMetrics
	logger  *zap.Logger
}

// NewAdjustmentAppliedHandler creates a handler for adjustment applied events.
// metrics may be nil when telemetry is disabled.
func NewAdjustmentAppliedHandler(metrics *telemetry.BillingMetrics, logger *zap.Logger) *AdjustmentAppliedHandler {
	return &AdjustmentAppliedHandler{
		metrics: metrics,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *AdjustmentAppliedHandler) EventTypes() []string {
	return []string{billing.EventTypeAdjustmentApplied}
}

// Handle processes an adjustment applied event
func (h *AdjustmentAppliedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	applied, ok := event.(*billing.AdjustmentAppliedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	h.logger.Info("Billing adjustment applied",
		zap.String("tenant_id", applied.TenantID().String()),
		zap.String("adjustment_id", applied.AdjustmentID.String()),
		zap.String("user_id", applied.UserID.String()),
		zap.String("project_id", applied.ProjectID.String()),
		zap.Time("period_start", applied.PeriodStart),
		zap.Time("period_end", applied.PeriodEnd),
		zap.String("previous_billable_hours", applied.PreviousBillable.String()),
		zap.String("adjusted_billable_hours", applied.AdjustedBillable.String()),
		zap.Bool("created", applied.Created),
	)

	if h.metrics != nil {
		h.metrics.RecordAdjustment(ctx, applied.TenantID(), applied.ProjectID, applied.AdjustmentHours)
	}
	return nil
}
