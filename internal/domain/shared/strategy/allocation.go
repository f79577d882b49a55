package strategy

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingResource represents one project member entering a billable-hours
// redistribution: the hours currently billed and the hours actually worked.
type BillingResource struct {
	UserID       uuid.UUID
	CurrentHours decimal.Decimal
	TotalHours   decimal.Decimal
}

// Headroom returns the worked hours not yet allocated against the given
// target. A resource can never have negative headroom.
func (r BillingResource) Headroom(target decimal.Decimal) decimal.Decimal {
	h := r.TotalHours.Sub(target)
	if h.IsNegative() {
		return decimal.Zero
	}
	return h
}

// ResourceTarget is the allocated billable target for a single resource.
type ResourceTarget struct {
	UserID      uuid.UUID
	TargetHours decimal.Decimal
}

// AllocationContext provides context for a project-level target allocation
type AllocationContext struct {
	TenantID            uuid.UUID
	ProjectID           uuid.UUID
	TargetBillableHours decimal.Decimal
	Resources           []BillingResource
}

// AllocationResult contains the result of a target allocation
type AllocationResult struct {
	Targets        []ResourceTarget
	TotalAllocated decimal.Decimal
}

// TargetAllocationStrategy distributes a project-level billable-hours target
// across resources. Implementations must be pure: identical inputs yield
// identical outputs, and the order of Targets matches the order of the
// input Resources.
type TargetAllocationStrategy interface {
	Strategy
	Allocate(ctx context.Context, allocCtx AllocationContext) (AllocationResult, error)
}
