package timesheet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
)

// TimesheetRepository defines read access to timesheets
type TimesheetRepository interface {
	// FindByID retrieves a timesheet by its ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Timesheet, error)

	// FindOverlappingForUser retrieves all of a user's timesheets whose week
	// shares at least one day with the given period, regardless of status
	FindOverlappingForUser(ctx context.Context, tenantID, userID uuid.UUID, period valueobject.Period) ([]*Timesheet, error)

	// Save persists a timesheet
	Save(ctx context.Context, sheet *Timesheet) error
}

// EligibleEntryFilter narrows the eligible-entry query. Empty slices mean
// no constraint on that dimension; nil dates leave that side of the range
// open.
type EligibleEntryFilter struct {
	ProjectIDs []uuid.UUID
	ClientIDs  []uuid.UUID
	UserID     *uuid.UUID
	TaskIDs    []uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
}

// WithDateRange bounds the filter to an inclusive date range
func (f EligibleEntryFilter) WithDateRange(start, end time.Time) EligibleEntryFilter {
	f.StartDate = &start
	f.EndDate = &end
	return f
}

// TimeEntryRepository defines read access to time entries
type TimeEntryRepository interface {
	// FindEligible retrieves entries whose owning timesheet is in a
	// billing-eligible status, in a single query. Ordering is stable:
	// entry date ascending, then creation time ascending.
	FindEligible(ctx context.Context, tenantID uuid.UUID, filter EligibleEntryFilter) ([]*TimeEntry, error)

	// FindForTimesheets retrieves a project's entries across the given
	// timesheets within an inclusive date range, regardless of timesheet
	// status. Used to reconcile adjustment requests against recorded work.
	FindForTimesheets(ctx context.Context, tenantID, projectID uuid.UUID, timesheetIDs []uuid.UUID, period valueobject.Period) ([]*TimeEntry, error)

	// Save persists a time entry
	Save(ctx context.Context, entry *TimeEntry) error
}
