package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines persistence for users
type UserRepository interface {
	// FindByID retrieves a user by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*User, error)

	// FindByEmail retrieves a user by email within a tenant
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)

	// FindByIDs retrieves the users matching the given IDs within a tenant.
	// Unknown IDs are skipped, not errors.
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*User, error)

	// Save persists a user
	Save(ctx context.Context, user *User) error
}

// TenantRepository defines persistence for tenants
type TenantRepository interface {
	// FindByID retrieves a tenant by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindBySlug retrieves a tenant by its unique slug
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)

	// Save persists a tenant
	Save(ctx context.Context, tenant *Tenant) error
}
