package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/billing"
	"github.com/timebill/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// RateModel is the GORM model for pricing rules
type RateModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_rates_tenant"`
	ProjectID     *uuid.UUID      `gorm:"type:uuid;index"`
	ClientID      *uuid.UUID      `gorm:"type:uuid;index"`
	UserID        *uuid.UUID      `gorm:"type:uuid;index"`
	Role          string          `gorm:"type:varchar(50)"`
	HourlyRate    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	EffectiveFrom time.Time       `gorm:"type:date;not null"`
	EffectiveTo   *time.Time      `gorm:"type:date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (RateModel) TableName() string {
	return "billing_rates"
}

// ToEntity converts the model to a domain entity
func (m *RateModel) ToEntity() *billing.Rate {
	return &billing.Rate{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:      m.TenantID,
		ProjectID:     m.ProjectID,
		ClientID:      m.ClientID,
		UserID:        m.UserID,
		Role:          m.Role,
		HourlyRate:    m.HourlyRate,
		EffectiveFrom: m.EffectiveFrom,
		EffectiveTo:   m.EffectiveTo,
	}
}

// RateModelFromEntity creates a model from a domain entity
func RateModelFromEntity(e *billing.Rate) *RateModel {
	return &RateModel{
		ID:            e.ID,
		TenantID:      e.TenantID,
		ProjectID:     e.ProjectID,
		ClientID:      e.ClientID,
		UserID:        e.UserID,
		Role:          e.Role,
		HourlyRate:    e.HourlyRate,
		EffectiveFrom: e.EffectiveFrom,
		EffectiveTo:   e.EffectiveTo,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// RateRepository implements the billing.RateRepository interface
type RateRepository struct {
	db *gorm.DB
}

// NewRateRepository creates a new rate repository
func NewRateRepository(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

// FindCandidates retrieves the rules that could price the query: effective
// on the query date, with every scope column either unset or matching
func (r *RateRepository) FindCandidates(ctx context.Context, query billing.RateQuery) ([]*billing.Rate, error) {
	var models []RateModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", query.TenantID).
		Where("effective_from <= ?", query.Date).
		Where("effective_to IS NULL OR effective_to >= ?", query.Date).
		Where("project_id IS NULL OR project_id = ?", query.ProjectID).
		Where("client_id IS NULL OR client_id = ?", query.ClientID).
		Where("user_id IS NULL OR user_id = ?", query.UserID).
		Where("role = '' OR role = ?", query.Role).
		Order("effective_from DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	rates := make([]*billing.Rate, len(models))
	for i, model := range models {
		rates[i] = model.ToEntity()
	}
	return rates, nil
}

// Save persists a pricing rule
func (r *RateRepository) Save(ctx context.Context, rate *billing.Rate) error {
	model := RateModelFromEntity(rate)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure RateRepository implements the interface
var _ billing.RateRepository = (*RateRepository)(nil)
