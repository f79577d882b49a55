package timesheet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
)

// TimeEntry is a single day's work record inside a timesheet. Entries are
// read-only to billing; they are captured and edited on the tracking side.
type TimeEntry struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	TimesheetID   uuid.UUID
	UserID        uuid.UUID
	ProjectID     uuid.UUID
	TaskID        *uuid.UUID
	EntryDate     time.Time
	Hours         decimal.Decimal
	IsBillable    bool
	BillableHours *decimal.Decimal
	Description   string
}

// NewTimeEntry creates a new time entry
func NewTimeEntry(tenantID, timesheetID, userID, projectID uuid.UUID, entryDate time.Time, hours decimal.Decimal) (*TimeEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if timesheetID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TIMESHEET", "Timesheet ID is required")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID is required")
	}
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID is required")
	}
	if hours.IsNegative() {
		return nil, shared.NewDomainError("INVALID_HOURS", "Hours cannot be negative")
	}

	return &TimeEntry{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		TimesheetID: timesheetID,
		UserID:     userID,
		ProjectID:  projectID,
		EntryDate:  valueobject.NormalizeDate(entryDate),
		Hours:      hours,
		IsBillable: true,
	}, nil
}

// WithTask assigns the entry to a task
func (e *TimeEntry) WithTask(taskID uuid.UUID) *TimeEntry {
	e.TaskID = &taskID
	return e
}

// WithBillableHours records an explicit billable-hours override for the entry
func (e *TimeEntry) WithBillableHours(hours decimal.Decimal) *TimeEntry {
	e.BillableHours = &hours
	return e
}

// WithDescription sets the free-text description of the work
func (e *TimeEntry) WithDescription(description string) *TimeEntry {
	e.Description = description
	return e
}

// BillableContribution returns the hours this entry contributes to billing.
// An explicit billable-hours value wins over the billable flag; a
// non-billable entry without an explicit value contributes zero.
func (e *TimeEntry) BillableContribution() decimal.Decimal {
	if e.BillableHours != nil {
		return *e.BillableHours
	}
	if e.IsBillable {
		return e.Hours
	}
	return decimal.Zero
}

// TaskKey returns the grouping key for task-level aggregation. Entries
// without a task reference share the "unassigned" bucket.
func (e *TimeEntry) TaskKey() string {
	if e.TaskID == nil {
		return UnassignedTaskKey
	}
	return e.TaskID.String()
}

// TaskDisplayName returns the name shown for the entry's task bucket
func (e *TimeEntry) TaskDisplayName() string {
	if e.TaskID == nil {
		return UnassignedTaskName
	}
	return e.TaskID.String()
}

// Task bucket fallbacks for entries without a task reference.
const (
	UnassignedTaskKey  = "unassigned"
	UnassignedTaskName = "Unassigned Task"
)

// NoDescriptionLabel is the grouping fallback for entries without free text,
// used by description-based task rollups.
const NoDescriptionLabel = "No Description"
