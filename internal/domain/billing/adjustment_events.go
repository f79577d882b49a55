package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeBillingAdjustment = "BillingAdjustment"

// Event type constants
const (
	EventTypeAdjustmentApplied = "billing.adjustment.applied"
)

// AdjustmentAppliedEvent is published whenever an adjustment is created or
// re-applied over the same key
type AdjustmentAppliedEvent struct {
	shared.BaseDomainEvent
	AdjustmentID     uuid.UUID       `json:"adjustment_id"`
	UserID           uuid.UUID       `json:"user_id"`
	ProjectID        uuid.UUID       `json:"project_id"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	PreviousBillable decimal.Decimal `json:"previous_billable_hours"`
	AdjustedBillable decimal.Decimal `json:"adjusted_billable_hours"`
	AdjustmentHours  decimal.Decimal `json:"adjustment_hours"`
	Created          bool            `json:"created"`
}

// NewAdjustmentAppliedEvent creates a new AdjustmentAppliedEvent
func NewAdjustmentAppliedEvent(adj *BillingAdjustment, previousBillable decimal.Decimal, created bool) *AdjustmentAppliedEvent {
	return &AdjustmentAppliedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeAdjustmentApplied, AggregateTypeBillingAdjustment, adj.ID, adj.TenantID),
		AdjustmentID:     adj.ID,
		UserID:           adj.UserID,
		ProjectID:        adj.ProjectID,
		PeriodStart:      adj.PeriodStart,
		PeriodEnd:        adj.PeriodEnd,
		PreviousBillable: previousBillable,
		AdjustedBillable: adj.AdjustedBillableHours,
		AdjustmentHours:  adj.AdjustmentHours,
		Created:          created,
	}
}
