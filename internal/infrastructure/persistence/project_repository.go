package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/timebill/backend/internal/domain/project"
	"github.com/timebill/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ProjectModel is the GORM model for projects
type ProjectModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_projects_code,priority:1"`
	ClientID  *uuid.UUID `gorm:"type:uuid;index"`
	Name      string     `gorm:"type:varchar(255);not null"`
	Code      string     `gorm:"type:varchar(50);not null;uniqueIndex:uq_projects_code,priority:2"`
	Status    string     `gorm:"type:varchar(20);not null;default:'active'"`
	StartDate *time.Time `gorm:"type:date"`
	EndDate   *time.Time `gorm:"type:date"`
	Version   int        `gorm:"not null;default:1"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ProjectModel) TableName() string {
	return "projects"
}

// ToEntity converts the model to a domain entity
func (m *ProjectModel) ToEntity() *project.Project {
	return &project.Project{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID:  m.TenantID,
		ClientID:  m.ClientID,
		Name:      m.Name,
		Code:      m.Code,
		Status:    project.ProjectStatus(m.Status),
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
	}
}

// ProjectModelFromEntity creates a model from a domain entity
func ProjectModelFromEntity(e *project.Project) *ProjectModel {
	return &ProjectModel{
		ID:        e.ID,
		TenantID:  e.TenantID,
		ClientID:  e.ClientID,
		Name:      e.Name,
		Code:      e.Code,
		Status:    e.Status.String(),
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		Version:   e.Version,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// ProjectRepository implements the project.ProjectRepository interface
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID retrieves a project by its ID within a tenant
func (r *ProjectRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*project.Project, error) {
	var model ProjectModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByIDs retrieves the projects matching the given IDs within a tenant
func (r *ProjectRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*project.Project, error) {
	if len(ids) == 0 {
		return []*project.Project{}, nil
	}

	var models []ProjectModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	projects := make([]*project.Project, len(models))
	for i, model := range models {
		projects[i] = model.ToEntity()
	}
	return projects, nil
}

// FindForBilling retrieves the projects matched by the billing filters:
// every project of the tenant when both filters are empty, otherwise the
// union constrained by the given project and client IDs
func (r *ProjectRepository) FindForBilling(ctx context.Context, tenantID uuid.UUID, projectIDs, clientIDs []uuid.UUID) ([]*project.Project, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if len(projectIDs) > 0 {
		query = query.Where("id IN ?", projectIDs)
	}
	if len(clientIDs) > 0 {
		query = query.Where("client_id IN ?", clientIDs)
	}

	var models []ProjectModel
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	projects := make([]*project.Project, len(models))
	for i, model := range models {
		projects[i] = model.ToEntity()
	}
	return projects, nil
}

// Save persists a project
func (r *ProjectRepository) Save(ctx context.Context, p *project.Project) error {
	model := ProjectModelFromEntity(p)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure ProjectRepository implements the interface
var _ project.ProjectRepository = (*ProjectRepository)(nil)
