package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/shared"
)

// ErrNoRateRule signals that no pricing rule matched a rate query. Callers
// recover with the configured default rate rather than failing the request.
var ErrNoRateRule = shared.NewDomainError("NO_RATE_RULE", "No billing rate rule matches the query")

// RateQuery carries the parameters an effective-rate lookup is resolved
// against. Hours holds the final billable hours being priced so resolvers
// may apply volume rules; DayOfWeek allows weekend pricing.
type RateQuery struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ProjectID uuid.UUID
	ClientID  uuid.UUID
	Role      string
	Date      time.Time
	Hours     decimal.Decimal
	DayOfWeek time.Weekday
}

// RateResolver resolves the effective hourly rate for a user on a project.
// Implementations may fail; billing views recover from any failure with a
// configured default rate and never surface resolver errors to the caller.
type RateResolver interface {
	EffectiveRate(ctx context.Context, query RateQuery) (decimal.Decimal, error)
}

// Rate is a pricing rule. Rules are scoped by any combination of project,
// client, user, and role; the most specific rule effective on the query date
// wins. A rule with no scope columns is a tenant-wide default.
type Rate struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	ProjectID     *uuid.UUID
	ClientID      *uuid.UUID
	UserID        *uuid.UUID
	Role          string
	HourlyRate    decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

// NewRate creates a tenant-wide pricing rule effective from the given date
func NewRate(tenantID uuid.UUID, hourlyRate decimal.Decimal, effectiveFrom time.Time) (*Rate, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if hourlyRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_RATE", "Hourly rate cannot be negative")
	}
	return &Rate{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		HourlyRate:    hourlyRate,
		EffectiveFrom: effectiveFrom,
	}, nil
}

// ForProject scopes the rule to a project
func (r *Rate) ForProject(projectID uuid.UUID) *Rate {
	r.ProjectID = &projectID
	return r
}

// ForClient scopes the rule to a client
func (r *Rate) ForClient(clientID uuid.UUID) *Rate {
	r.ClientID = &clientID
	return r
}

// ForUser scopes the rule to a user
func (r *Rate) ForUser(userID uuid.UUID) *Rate {
	r.UserID = &userID
	return r
}

// ForRole scopes the rule to a role
func (r *Rate) ForRole(role string) *Rate {
	r.Role = role
	return r
}

// Until bounds the rule's effective window
func (r *Rate) Until(effectiveTo time.Time) *Rate {
	r.EffectiveTo = &effectiveTo
	return r
}

// EffectiveOn returns true if the rule is in force on the given date
func (r *Rate) EffectiveOn(date time.Time) bool {
	if date.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !date.After(*r.EffectiveTo)
}

// Specificity scores how narrowly the rule is scoped. Resolvers prefer the
// highest score among rules matching a query: user+project beats
// role+project beats project beats client beats tenant-wide.
func (r *Rate) Specificity() int {
	score := 0
	if r.UserID != nil {
		score += 8
	}
	if r.Role != "" {
		score += 4
	}
	if r.ProjectID != nil {
		score += 2
	}
	if r.ClientID != nil {
		score++
	}
	return score
}
