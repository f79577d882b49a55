package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
)

// AdjustmentFilter narrows adjustment listings. Nil fields mean no
// constraint on that dimension.
type AdjustmentFilter struct {
	UserID    *uuid.UUID
	ProjectID *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

// BillingAdjustmentRepository defines persistence for billing adjustments.
// The composite (tenant, user, project, period) key is the uniqueness
// boundary; implementations must enforce it with an atomic upsert, not a
// read-then-save sequence.
type BillingAdjustmentRepository interface {
	// Upsert inserts the adjustment or, when a record already exists for the
	// same composite key, updates that record's fields in place as a single
	// atomic operation. On return adj carries the canonical record identity
	// (stable ID, original creation time).
	Upsert(ctx context.Context, adj *BillingAdjustment) error

	// FindByKey retrieves the adjustment stored under the exact composite key
	FindByKey(ctx context.Context, key AdjustmentKey) (*BillingAdjustment, error)

	// FindOverride resolves the billable-hours override for a user/project
	// whose stored period fully contains the queried one. Partial overlap is
	// not a match. When several stored periods contain the query, the most
	// recently updated record wins. Returns nil without error when no
	// containing record exists.
	FindOverride(ctx context.Context, tenantID, userID, projectID uuid.UUID, period valueobject.Period) (*decimal.Decimal, error)

	// FindOverridesForPeriod resolves overrides for every user of a project
	// in one query, keyed by user ID. Containment semantics match
	// FindOverride.
	FindOverridesForPeriod(ctx context.Context, tenantID, projectID uuid.UUID, period valueobject.Period) (map[uuid.UUID]decimal.Decimal, error)

	// FindByFilter lists a tenant's adjustments matching the filter, most
	// recently updated first
	FindByFilter(ctx context.Context, tenantID uuid.UUID, filter AdjustmentFilter) ([]*BillingAdjustment, error)
}

// RateRepository defines read access to pricing rules
type RateRepository interface {
	// FindCandidates retrieves the rules that could price the query: rules
	// effective on the query date whose scope columns are either unset or
	// equal to the query's values.
	FindCandidates(ctx context.Context, query RateQuery) ([]*Rate, error)

	// Save persists a pricing rule
	Save(ctx context.Context, rate *Rate) error
}
