package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/billing"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillingAdjustmentModel is the GORM model for billing adjustments
type BillingAdjustmentModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID              uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_adjustment_key,priority:1"`
	UserID                uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_adjustment_key,priority:2"`
	ProjectID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_adjustment_key,priority:3"`
	BillingPeriodStart    time.Time       `gorm:"type:date;not null;uniqueIndex:uq_adjustment_key,priority:4"`
	BillingPeriodEnd      time.Time       `gorm:"type:date;not null;uniqueIndex:uq_adjustment_key,priority:5"`
	OriginalBillableHours decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	AdjustedBillableHours decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	TotalWorkedHours      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	TotalBillableHours    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	AdjustmentHours       decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Reason                string          `gorm:"type:text;not null"`
	AdjustedBy            *uuid.UUID      `gorm:"type:uuid"`
	TimesheetID           *uuid.UUID      `gorm:"type:uuid"`
	Version               int             `gorm:"not null;default:1"`
	CreatedAt             time.Time       `gorm:"autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (BillingAdjustmentModel) TableName() string {
	return "billing_adjustments"
}

// ToEntity converts the model to a domain entity
func (m *BillingAdjustmentModel) ToEntity() *billing.BillingAdjustment {
	return &billing.BillingAdjustment{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID:              m.TenantID,
		UserID:                m.UserID,
		ProjectID:             m.ProjectID,
		PeriodStart:           valueobject.NormalizeDate(m.BillingPeriodStart),
		PeriodEnd:             valueobject.NormalizeDate(m.BillingPeriodEnd),
		OriginalBillableHours: m.OriginalBillableHours,
		AdjustedBillableHours: m.AdjustedBillableHours,
		TotalWorkedHours:      m.TotalWorkedHours,
		TotalBillableHours:    m.TotalBillableHours,
		AdjustmentHours:       m.AdjustmentHours,
		Reason:                m.Reason,
		AdjustedBy:            m.AdjustedBy,
		TimesheetID:           m.TimesheetID,
	}
}

// BillingAdjustmentModelFromEntity creates a model from a domain entity
func BillingAdjustmentModelFromEntity(e *billing.BillingAdjustment) *BillingAdjustmentModel {
	return &BillingAdjustmentModel{
		ID:                    e.ID,
		TenantID:              e.TenantID,
		UserID:                e.UserID,
		ProjectID:             e.ProjectID,
		BillingPeriodStart:    e.PeriodStart,
		BillingPeriodEnd:      e.PeriodEnd,
		OriginalBillableHours: e.OriginalBillableHours,
		AdjustedBillableHours: e.AdjustedBillableHours,
		TotalWorkedHours:      e.TotalWorkedHours,
		TotalBillableHours:    e.TotalBillableHours,
		AdjustmentHours:       e.AdjustmentHours,
		Reason:                e.Reason,
		AdjustedBy:            e.AdjustedBy,
		TimesheetID:           e.TimesheetID,
		Version:               e.Version,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

// BillingAdjustmentRepository implements the billing.BillingAdjustmentRepository interface
type BillingAdjustmentRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewBillingAdjustmentRepository creates a new billing adjustment repository
func NewBillingAdjustmentRepository(db *gorm.DB) *BillingAdjustmentRepository {
	return &BillingAdjustmentRepository{db: db}
}

// WithOutbox makes the repository store the aggregate's domain events in the
// outbox within the same transaction as the upsert
func (r *BillingAdjustmentRepository) WithOutbox(outbox shared.OutboxEventSaver) *BillingAdjustmentRepository {
	r.outbox = outbox
	return r
}

// Upsert inserts the adjustment, or updates the record already stored under
// the same composite key, as one atomic statement. There is no
// read-then-save window: concurrent upserts for the same key serialize on
// the unique index instead of losing an update. The conflict branch leaves
// id, created_at, and original_billable_hours untouched, so the record keeps
// its identity and the aggregation snapshot from its first adjustment.
func (r *BillingAdjustmentRepository) Upsert(ctx context.Context, adj *billing.BillingAdjustment) error {
	events := adj.GetDomainEvents()
	if r.outbox != nil && len(events) > 0 {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := r.upsertModel(ctx, tx, adj); err != nil {
				return err
			}
			return r.outbox.SaveEvents(ctx, tx, events...)
		})
		if err != nil {
			return err
		}
		adj.ClearDomainEvents()
		return r.refreshFromCanonical(ctx, adj)
	}

	if err := r.upsertModel(ctx, r.db.WithContext(ctx), adj); err != nil {
		return err
	}
	return r.refreshFromCanonical(ctx, adj)
}

func (r *BillingAdjustmentRepository) upsertModel(ctx context.Context, tx *gorm.DB, adj *billing.BillingAdjustment) error {
	model := BillingAdjustmentModelFromEntity(adj)

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "user_id"},
			{Name: "project_id"},
			{Name: "billing_period_start"},
			{Name: "billing_period_end"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"adjusted_billable_hours": model.AdjustedBillableHours,
			"total_worked_hours":      model.TotalWorkedHours,
			"total_billable_hours":    model.TotalBillableHours,
			"adjustment_hours":        model.AdjustmentHours,
			"reason":                  model.Reason,
			"adjusted_by":             model.AdjustedBy,
			"timesheet_id":            model.TimesheetID,
			"version":                 gorm.Expr("billing_adjustments.version + 1"),
			"updated_at":              time.Now(),
		}),
	}).Create(model).Error
}

// refreshFromCanonical re-reads the stored record so the caller sees the
// canonical identity (stable id, original creation time) rather than the
// candidate's.
func (r *BillingAdjustmentRepository) refreshFromCanonical(ctx context.Context, adj *billing.BillingAdjustment) error {
	canonical, err := r.FindByKey(ctx, adj.Key())
	if err != nil {
		return err
	}
	*adj = *canonical
	return nil
}

// FindByKey retrieves the adjustment stored under the exact composite key
func (r *BillingAdjustmentRepository) FindByKey(ctx context.Context, key billing.AdjustmentKey) (*billing.BillingAdjustment, error) {
	var model BillingAdjustmentModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", key.TenantID).
		Where("user_id = ?", key.UserID).
		Where("project_id = ?", key.ProjectID).
		Where("billing_period_start = ?", key.Period.Start()).
		Where("billing_period_end = ?", key.Period.End()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindOverride resolves the billable-hours override whose stored period
// fully contains the queried one. Partial overlap is not a match: an
// adjustment that does not span the whole queried range must not shadow
// unrelated data. Among several containing records the most recently
// updated wins.
func (r *BillingAdjustmentRepository) FindOverride(ctx context.Context, tenantID, userID, projectID uuid.UUID, period valueobject.Period) (*decimal.Decimal, error) {
	var model BillingAdjustmentModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		Where("project_id = ?", projectID).
		Where("billing_period_start <= ?", period.Start()).
		Where("billing_period_end >= ?", period.End()).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	hours := model.AdjustedBillableHours
	return &hours, nil
}

// FindOverridesForPeriod resolves containing overrides for every user of a
// project in one query. Rows arrive most recently updated first, so the
// first row seen per user is the winning record.
func (r *BillingAdjustmentRepository) FindOverridesForPeriod(ctx context.Context, tenantID, projectID uuid.UUID, period valueobject.Period) (map[uuid.UUID]decimal.Decimal, error) {
	var models []BillingAdjustmentModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("project_id = ?", projectID).
		Where("billing_period_start <= ?", period.Start()).
		Where("billing_period_end >= ?", period.End()).
		Order("updated_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	overrides := make(map[uuid.UUID]decimal.Decimal, len(models))
	for _, model := range models {
		if _, seen := overrides[model.UserID]; seen {
			continue
		}
		overrides[model.UserID] = model.AdjustedBillableHours
	}
	return overrides, nil
}

// FindByFilter lists a tenant's adjustments matching the filter, most
// recently updated first
func (r *BillingAdjustmentRepository) FindByFilter(ctx context.Context, tenantID uuid.UUID, filter billing.AdjustmentFilter) ([]*billing.BillingAdjustment, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.StartDate != nil {
		query = query.Where("billing_period_end >= ?", valueobject.NormalizeDate(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("billing_period_start <= ?", valueobject.NormalizeDate(*filter.EndDate))
	}

	var models []BillingAdjustmentModel
	if err := query.Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	adjustments := make([]*billing.BillingAdjustment, len(models))
	for i, model := range models {
		adjustments[i] = model.ToEntity()
	}
	return adjustments, nil
}

// Ensure BillingAdjustmentRepository implements the interface
var _ billing.BillingAdjustmentRepository = (*BillingAdjustmentRepository)(nil)
