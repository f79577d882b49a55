package timesheet

import (
	"time"

	"github.com/google/uuid"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
)

// TimesheetStatus represents the lifecycle state of a weekly timesheet.
// The approval workflow itself is owned by the tracking side; billing only
// consumes the resulting status as an eligibility filter.
type TimesheetStatus string

const (
	TimesheetStatusDraft              TimesheetStatus = "draft"
	TimesheetStatusSubmitted          TimesheetStatus = "submitted"
	TimesheetStatusRejected           TimesheetStatus = "rejected"
	TimesheetStatusFrozen             TimesheetStatus = "frozen"
	TimesheetStatusApproved           TimesheetStatus = "approved"
	TimesheetStatusManagerApproved    TimesheetStatus = "manager_approved"
	TimesheetStatusManagementApproved TimesheetStatus = "management_approved"
)

// String returns the string representation of the status
func (s TimesheetStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known lifecycle state
func (s TimesheetStatus) IsValid() bool {
	switch s {
	case TimesheetStatusDraft, TimesheetStatusSubmitted, TimesheetStatusRejected,
		TimesheetStatusFrozen, TimesheetStatusApproved,
		TimesheetStatusManagerApproved, TimesheetStatusManagementApproved:
		return true
	default:
		return false
	}
}

// IsBillingEligible returns true if entries under this timesheet may enter
// billing aggregation. Checked on every aggregation, never optional.
func (s TimesheetStatus) IsBillingEligible() bool {
	switch s {
	case TimesheetStatusFrozen, TimesheetStatusApproved,
		TimesheetStatusManagerApproved, TimesheetStatusManagementApproved:
		return true
	default:
		return false
	}
}

// BillingEligibleStatuses returns the statuses whose entries count for billing
func BillingEligibleStatuses() []TimesheetStatus {
	return []TimesheetStatus{
		TimesheetStatusFrozen,
		TimesheetStatusApproved,
		TimesheetStatusManagerApproved,
		TimesheetStatusManagementApproved,
	}
}

// Timesheet is a user's weekly submission of time entries. Billing treats
// timesheets as read-only source data owned by the tracking side.
type Timesheet struct {
	shared.BaseAggregateRoot
	TenantID      uuid.UUID
	UserID        uuid.UUID
	WeekStartDate time.Time
	WeekEndDate   time.Time
	Status        TimesheetStatus
	SubmittedAt   *time.Time
	ApprovedAt    *time.Time
}

// NewTimesheet creates a new timesheet for a user's week
func NewTimesheet(tenantID, userID uuid.UUID, weekStart, weekEnd time.Time) (*Timesheet, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID is required")
	}
	start := valueobject.NormalizeDate(weekStart)
	end := valueobject.NormalizeDate(weekEnd)
	if start.After(end) {
		return nil, shared.ErrInvalidPeriod
	}

	return &Timesheet{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		UserID:            userID,
		WeekStartDate:     start,
		WeekEndDate:       end,
		Status:            TimesheetStatusDraft,
	}, nil
}

// Week returns the timesheet's week as a period
func (t *Timesheet) Week() valueobject.Period {
	p, _ := valueobject.NewPeriod(t.WeekStartDate, t.WeekEndDate)
	return p
}

// Overlaps returns true if the timesheet's week shares at least one day with
// the given period
func (t *Timesheet) Overlaps(period valueobject.Period) bool {
	return t.Week().Overlaps(period)
}

// IsBillingEligible returns true if this timesheet's entries may be billed
func (t *Timesheet) IsBillingEligible() bool {
	return t.Status.IsBillingEligible()
}
