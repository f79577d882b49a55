package identity

import (
	"regexp"
	"strings"

	"github.com/timebill/backend/internal/domain/shared"
)

// TenantStatus represents the status of a tenant account
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// String returns the string representation of the status
func (s TenantStatus) String() string {
	return string(s)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// Tenant is a company account whose projects and timesheets this backend
// bills. Every other aggregate is scoped to exactly one tenant.
type Tenant struct {
	shared.BaseAggregateRoot
	Name   string
	Slug   string
	Status TenantStatus
}

// NewTenant creates a new active tenant
func NewTenant(name, slug string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name is required")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, shared.NewDomainError("INVALID_SLUG", "Tenant slug must be 3-64 lowercase letters, digits or hyphens")
	}

	return &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		Status:            TenantStatusActive,
	}, nil
}

// IsActive returns true if the tenant may use the API
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// Suspend blocks the tenant from using the API
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.ErrInvalidState
	}
	t.Status = TenantStatusSuspended
	t.IncrementVersion()
	return nil
}
