package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
	"github.com/timebill/backend/internal/domain/timesheet"
	"gorm.io/gorm"
)

// TimeEntryModel is the GORM model for time entries
type TimeEntryModel struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_entries_tenant_project,priority:1"`
	TimesheetID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProjectID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_entries_tenant_project,priority:2"`
	TaskID        *uuid.UUID       `gorm:"type:uuid"`
	EntryDate     time.Time        `gorm:"type:date;not null;index"`
	Hours         decimal.Decimal  `gorm:"type:decimal(20,4);not null"`
	IsBillable    bool             `gorm:"not null;default:true"`
	BillableHours *decimal.Decimal `gorm:"type:decimal(20,4)"`
	Description   string           `gorm:"type:text"`
	CreatedAt     time.Time        `gorm:"autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (TimeEntryModel) TableName() string {
	return "time_entries"
}

// ToEntity converts the model to a domain entity
func (m *TimeEntryModel) ToEntity() *timesheet.TimeEntry {
	return &timesheet.TimeEntry{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:      m.TenantID,
		TimesheetID:   m.TimesheetID,
		UserID:        m.UserID,
		ProjectID:     m.ProjectID,
		TaskID:        m.TaskID,
		EntryDate:     valueobject.NormalizeDate(m.EntryDate),
		Hours:         m.Hours,
		IsBillable:    m.IsBillable,
		BillableHours: m.BillableHours,
		Description:   m.Description,
	}
}

// TimeEntryModelFromEntity creates a model from a domain entity
func TimeEntryModelFromEntity(e *timesheet.TimeEntry) *TimeEntryModel {
	return &TimeEntryModel{
		ID:            e.ID,
		TenantID:      e.TenantID,
		TimesheetID:   e.TimesheetID,
		UserID:        e.UserID,
		ProjectID:     e.ProjectID,
		TaskID:        e.TaskID,
		EntryDate:     e.EntryDate,
		Hours:         e.Hours,
		IsBillable:    e.IsBillable,
		BillableHours: e.BillableHours,
		Description:   e.Description,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// TimeEntryRepository implements the timesheet.TimeEntryRepository interface
type TimeEntryRepository struct {
	db *gorm.DB
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *gorm.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// FindEligible retrieves entries whose owning timesheet is in a
// billing-eligible status. One query per aggregation run: the status gate
// lives in the join so partial reads can never slip through. Ordering is
// stable (entry date, then creation time) so downstream grouping sees
// entries in a deterministic encounter order.
func (r *TimeEntryRepository) FindEligible(ctx context.Context, tenantID uuid.UUID, filter timesheet.EligibleEntryFilter) ([]*timesheet.TimeEntry, error) {
	statuses := timesheet.BillingEligibleStatuses()
	statusValues := make([]string, len(statuses))
	for i, s := range statuses {
		statusValues[i] = s.String()
	}

	query := r.db.WithContext(ctx).
		Model(&TimeEntryModel{}).
		Joins("JOIN timesheets ON timesheets.id = time_entries.timesheet_id").
		Where("time_entries.tenant_id = ?", tenantID).
		Where("timesheets.status IN ?", statusValues)

	if len(filter.ProjectIDs) > 0 {
		query = query.Where("time_entries.project_id IN ?", filter.ProjectIDs)
	}
	if len(filter.ClientIDs) > 0 {
		query = query.
			Joins("JOIN projects ON projects.id = time_entries.project_id").
			Where("projects.client_id IN ?", filter.ClientIDs)
	}
	if filter.UserID != nil {
		query = query.Where("time_entries.user_id = ?", *filter.UserID)
	}
	if len(filter.TaskIDs) > 0 {
		query = query.Where("time_entries.task_id IN ?", filter.TaskIDs)
	}
	if filter.StartDate != nil {
		query = query.Where("time_entries.entry_date >= ?", valueobject.NormalizeDate(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("time_entries.entry_date <= ?", valueobject.NormalizeDate(*filter.EndDate))
	}

	var models []TimeEntryModel
	err := query.
		Order("time_entries.entry_date ASC, time_entries.created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*timesheet.TimeEntry, len(models))
	for i, model := range models {
		entries[i] = model.ToEntity()
	}
	return entries, nil
}

// FindForTimesheets retrieves a project's entries across the given
// timesheets within an inclusive date range, regardless of timesheet status
func (r *TimeEntryRepository) FindForTimesheets(ctx context.Context, tenantID, projectID uuid.UUID, timesheetIDs []uuid.UUID, period valueobject.Period) ([]*timesheet.TimeEntry, error) {
	if len(timesheetIDs) == 0 {
		return []*timesheet.TimeEntry{}, nil
	}

	var models []TimeEntryModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("project_id = ?", projectID).
		Where("timesheet_id IN ?", timesheetIDs).
		Where("entry_date >= ?", period.Start()).
		Where("entry_date <= ?", period.End()).
		Order("entry_date ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*timesheet.TimeEntry, len(models))
	for i, model := range models {
		entries[i] = model.ToEntity()
	}
	return entries, nil
}

// Save persists a time entry
func (r *TimeEntryRepository) Save(ctx context.Context, entry *timesheet.TimeEntry) error {
	model := TimeEntryModelFromEntity(entry)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure TimeEntryRepository implements the interface
var _ timesheet.TimeEntryRepository = (*TimeEntryRepository)(nil)
