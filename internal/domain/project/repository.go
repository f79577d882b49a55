package project

import (
	"context"

	"github.com/google/uuid"
)

// ProjectRepository defines read access to project reference data
type ProjectRepository interface {
	// FindByID retrieves a project by its ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Project, error)

	// FindByIDs retrieves the projects matching the given IDs within a tenant.
	// Unknown IDs are skipped, not errors.
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Project, error)

	// FindForBilling retrieves the projects matched by the billing filters:
	// all of the tenant's projects when both filters are empty, otherwise the
	// union constrained by the given project and client IDs.
	FindForBilling(ctx context.Context, tenantID uuid.UUID, projectIDs, clientIDs []uuid.UUID) ([]*Project, error)

	// Save persists a project
	Save(ctx context.Context, p *Project) error
}

// ClientRepository defines read access to client reference data
type ClientRepository interface {
	// FindByID retrieves a client by its ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)

	// FindByIDs retrieves the clients matching the given IDs within a tenant
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Client, error)

	// Save persists a client
	Save(ctx context.Context, c *Client) error
}
