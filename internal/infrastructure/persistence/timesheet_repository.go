package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
	"github.com/timebill/backend/internal/domain/timesheet"
	"gorm.io/gorm"
)

// TimesheetModel is the GORM model for timesheets
type TimesheetModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_timesheets_tenant_user,priority:1"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_timesheets_tenant_user,priority:2"`
	WeekStartDate time.Time  `gorm:"type:date;not null"`
	WeekEndDate   time.Time  `gorm:"type:date;not null"`
	Status        string     `gorm:"type:varchar(30);not null;index"`
	SubmittedAt   *time.Time `gorm:""`
	ApprovedAt    *time.Time `gorm:""`
	Version       int        `gorm:"not null;default:1"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (TimesheetModel) TableName() string {
	return "timesheets"
}

// ToEntity converts the model to a domain entity
func (m *TimesheetModel) ToEntity() *timesheet.Timesheet {
	return &timesheet.Timesheet{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID:      m.TenantID,
		UserID:        m.UserID,
		WeekStartDate: valueobject.NormalizeDate(m.WeekStartDate),
		WeekEndDate:   valueobject.NormalizeDate(m.WeekEndDate),
		Status:        timesheet.TimesheetStatus(m.Status),
		SubmittedAt:   m.SubmittedAt,
		ApprovedAt:    m.ApprovedAt,
	}
}

// TimesheetModelFromEntity creates a model from a domain entity
func TimesheetModelFromEntity(e *timesheet.Timesheet) *TimesheetModel {
	return &TimesheetModel{
		ID:            e.ID,
		TenantID:      e.TenantID,
		UserID:        e.UserID,
		WeekStartDate: e.WeekStartDate,
		WeekEndDate:   e.WeekEndDate,
		Status:        e.Status.String(),
		SubmittedAt:   e.SubmittedAt,
		ApprovedAt:    e.ApprovedAt,
		Version:       e.Version,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// TimesheetRepository implements the timesheet.TimesheetRepository interface
type TimesheetRepository struct {
	db *gorm.DB
}

// NewTimesheetRepository creates a new timesheet repository
func NewTimesheetRepository(db *gorm.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// FindByID retrieves a timesheet by its ID within a tenant
func (r *TimesheetRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*timesheet.Timesheet, error) {
	var model TimesheetModel
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

// FindOverlappingForUser retrieves all of a user's timesheets whose week
// shares at least one day with the period, regardless of status
func (r *TimesheetRepository) FindOverlappingForUser(ctx context.Context, tenantID, userID uuid.UUID, period valueobject.Period) ([]*timesheet.Timesheet, error) {
	var models []TimesheetModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		Where("week_start_date <= ?", period.End()).
		Where("week_end_date >= ?", period.Start()).
		Order("week_start_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	sheets := make([]*timesheet.Timesheet, len(models))
	for i, model := range models {
		sheets[i] = model.ToEntity()
	}
	return sheets, nil
}

// Save persists a timesheet
func (r *TimesheetRepository) Save(ctx context.Context, sheet *timesheet.Timesheet) error {
	model := TimesheetModelFromEntity(sheet)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure TimesheetRepository implements the interface
var _ timesheet.TimesheetRepository = (*TimesheetRepository)(nil)
