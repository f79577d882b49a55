package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
)

// DefaultAdjustmentReason is recorded when the adjusting manager does not
// supply a reason of their own.
const DefaultAdjustmentReason = "Manual adjustment from billing management"

// AdjustmentKey is the composite identity of a billing adjustment. The key,
// not a surrogate id, is the uniqueness boundary: re-adjusting the same
// user/project/period mutates the existing record in place.
type AdjustmentKey struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ProjectID uuid.UUID
	Period    valueobject.Period
}

// NewAdjustmentKey creates an adjustment key over an inclusive billing period
func NewAdjustmentKey(tenantID, userID, projectID uuid.UUID, start, end time.Time) (AdjustmentKey, error) {
	if tenantID == uuid.Nil {
		return AdjustmentKey{}, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if userID == uuid.Nil {
		return AdjustmentKey{}, shared.NewDomainError("INVALID_USER", "User ID is required")
	}
	if projectID == uuid.Nil {
		return AdjustmentKey{}, shared.NewDomainError("INVALID_PROJECT", "Project ID is required")
	}
	period, err := valueobject.NewPeriod(start, end)
	if err != nil {
		return AdjustmentKey{}, shared.ErrInvalidPeriod
	}
	return AdjustmentKey{
		TenantID:  tenantID,
		UserID:    userID,
		ProjectID: projectID,
		Period:    period,
	}, nil
}

// BillingAdjustment is a manually entered override of a user's billable hours
// on a project over a billing period. OriginalBillableHours preserves what
// aggregation reported at the time of the first adjustment;
// AdjustedBillableHours is what billing views report instead of the
// aggregated value while the record's period contains the queried range.
type BillingAdjustment struct {
	shared.BaseAggregateRoot
	TenantID              uuid.UUID
	UserID                uuid.UUID
	ProjectID             uuid.UUID
	PeriodStart           time.Time
	PeriodEnd             time.Time
	OriginalBillableHours decimal.Decimal
	AdjustedBillableHours decimal.Decimal
	TotalWorkedHours      decimal.Decimal
	TotalBillableHours    decimal.Decimal
	AdjustmentHours       decimal.Decimal
	Reason                string
	AdjustedBy            *uuid.UUID
	TimesheetID           *uuid.UUID
}

// NewBillingAdjustment creates an adjustment for a key, reconciling the
// requested billable hours against the recorded worked hours.
// adjustmentHours = adjustedBillableHours - totalWorkedHours.
func NewBillingAdjustment(key AdjustmentKey, originalBillable, adjustedBillable, totalWorked decimal.Decimal, reason string) (*BillingAdjustment, error) {
	if adjustedBillable.IsNegative() {
		return nil, shared.NewDomainError("INVALID_HOURS", "Adjusted billable hours cannot be negative")
	}
	if reason == "" {
		reason = DefaultAdjustmentReason
	}

	adj := &BillingAdjustment{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(),
		TenantID:              key.TenantID,
		UserID:                key.UserID,
		ProjectID:             key.ProjectID,
		PeriodStart:           key.Period.Start(),
		PeriodEnd:             key.Period.End(),
		OriginalBillableHours: originalBillable,
		AdjustedBillableHours: adjustedBillable,
		TotalWorkedHours:      totalWorked,
		TotalBillableHours:    adjustedBillable,
		AdjustmentHours:       adjustedBillable.Sub(totalWorked),
		Reason:                reason,
	}
	adj.AddDomainEvent(NewAdjustmentAppliedEvent(adj, decimal.Zero, true))
	return adj, nil
}

// Key returns the adjustment's composite identity
func (a *BillingAdjustment) Key() AdjustmentKey {
	period, _ := valueobject.NewPeriod(a.PeriodStart, a.PeriodEnd)
	return AdjustmentKey{
		TenantID:  a.TenantID,
		UserID:    a.UserID,
		ProjectID: a.ProjectID,
		Period:    period,
	}
}

// Period returns the adjustment's billing period
func (a *BillingAdjustment) Period() valueobject.Period {
	p, _ := valueobject.NewPeriod(a.PeriodStart, a.PeriodEnd)
	return p
}

// Covers returns true if this adjustment's period fully contains the given
// range. Only a containing adjustment may shadow aggregated billable hours;
// partial overlap never counts.
func (a *BillingAdjustment) Covers(period valueobject.Period) bool {
	return a.Period().Contains(period)
}

// Reapply overwrites the adjustment with a new requested value, keeping the
// record's identity and original billable hours intact.
func (a *BillingAdjustment) Reapply(adjustedBillable, totalWorked decimal.Decimal, reason string, adjustedBy *uuid.UUID) error {
	if adjustedBillable.IsNegative() {
		return shared.NewDomainError("INVALID_HOURS", "Adjusted billable hours cannot be negative")
	}
	if reason == "" {
		reason = DefaultAdjustmentReason
	}

	previous := a.AdjustedBillableHours
	a.AdjustedBillableHours = adjustedBillable
	a.TotalWorkedHours = totalWorked
	a.TotalBillableHours = adjustedBillable
	a.AdjustmentHours = adjustedBillable.Sub(totalWorked)
	a.Reason = reason
	a.AdjustedBy = adjustedBy
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	a.AddDomainEvent(NewAdjustmentAppliedEvent(a, previous, false))
	return nil
}

// WithAdjustedBy records who entered the adjustment
func (a *BillingAdjustment) WithAdjustedBy(userID uuid.UUID) *BillingAdjustment {
	a.AdjustedBy = &userID
	return a
}

// WithTimesheet links the adjustment to the timesheet it reconciled against
func (a *BillingAdjustment) WithTimesheet(timesheetID uuid.UUID) *BillingAdjustment {
	a.TimesheetID = &timesheetID
	return a
}
