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

// ClientModel is the GORM model for clients
type ClientModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_clients_code,priority:1"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Code      string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_clients_code,priority:2"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ClientModel) TableName() string {
	return "clients"
}

// ToEntity converts the model to a domain entity
func (m *ClientModel) ToEntity() *project.Client {
	return &project.Client{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID: m.TenantID,
		Name:     m.Name,
		Code:     m.Code,
		Status:   project.ClientStatus(m.Status),
	}
}

// ClientModelFromEntity creates a model from a domain entity
func ClientModelFromEntity(e *project.Client) *ClientModel {
	return &ClientModel{
		ID:        e.ID,
		TenantID:  e.TenantID,
		Name:      e.Name,
		Code:      e.Code,
		Status:    e.Status.String(),
		Version:   e.Version,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// ClientRepository implements the project.ClientRepository interface
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// FindByID retrieves a client by its ID within a tenant
func (r *ClientRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*project.Client, error) {
	var model ClientModel
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

// FindByIDs retrieves the clients matching the given IDs within a tenant
func (r *ClientRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*project.Client, error) {
	if len(ids) == 0 {
		return []*project.Client{}, nil
	}

	var models []ClientModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	clients := make([]*project.Client, len(models))
	for i, model := range models {
		clients[i] = model.ToEntity()
	}
	return clients, nil
}

// Save persists a client
func (r *ClientRepository) Save(ctx context.Context, c *project.Client) error {
	model := ClientModelFromEntity(c)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure ClientRepository implements the interface
var _ project.ClientRepository = (*ClientRepository)(nil)
