package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/timebill/backend/internal/domain/identity"
	"github.com/timebill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TenantService handles tenant provisioning
type TenantService struct {
	tenantRepo identity.TenantRepository
	userRepo   identity.UserRepository
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// CreateTenant provisions a new tenant together with its initial admin user
func (s *TenantService) CreateTenant(ctx context.Context, input CreateTenantInput) (*CreateTenantResult, error) {
	existing, err := s.tenantRepo.FindBySlug(ctx, input.Slug)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("check existing tenant: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError("SLUG_TAKEN", "A tenant with this slug already exists")
	}

	tenant, err := identity.NewTenant(input.Name, input.Slug)
	if err != nil {
		return nil, err
	}

	admin, err := identity.NewUser(tenant.ID, input.AdminEmail, input.AdminName, input.AdminPassword, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, fmt.Errorf("save tenant: %w", err)
	}
	if err := s.userRepo.Save(ctx, admin); err != nil {
		return nil, fmt.Errorf("save admin user: %w", err)
	}

	s.logger.Info("Tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
		zap.String("admin_user_id", admin.ID.String()))

	return &CreateTenantResult{
		TenantID: tenant.ID,
		Slug:     tenant.Slug,
		Admin:    userInfoOf(admin),
	}, nil
}

// GetTenant retrieves a tenant by ID
func (s *TenantService) GetTenant(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return s.tenantRepo.FindByID(ctx, id)
}

// SuspendTenant blocks a tenant from using the API
func (s *TenantService) SuspendTenant(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := tenant.Suspend(); err != nil {
		return err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return fmt.Errorf("save tenant: %w", err)
	}

	s.logger.Info("Tenant suspended", zap.String("tenant_id", id.String()))
	return nil
}
