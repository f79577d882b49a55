package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View mode constants for the project and user billing views
const (
	ViewSummary = "summary"
	ViewWeekly  = "weekly"
)

// dateLayout is the wire format for day-granular dates
const dateLayout = "2006-01-02"

// PeriodDTO is the queried date range echoed back with every view
type PeriodDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SummaryDTO aggregates a view's collection by simple numeric sum
type SummaryDTO struct {
	TotalHours         float64 `json:"total_hours"`
	TotalBillableHours float64 `json:"total_billable_hours"`
	TotalAmount        float64 `json:"total_amount"`
}

// TaskBillingDTO is a task-level rollup inside a resource record
type TaskBillingDTO struct {
	TaskID           string  `json:"task_id"`
	TaskName         string  `json:"task_name"`
	TotalHours       float64 `json:"total_hours"`
	BillableHours    float64 `json:"billable_hours"`
	NonBillableHours float64 `json:"non_billable_hours"`
	Amount           float64 `json:"amount"`
}

// WeeklyBucketDTO is one week of a resource's raw entries
type WeeklyBucketDTO struct {
	WeekStart     string  `json:"week_start"`
	WeekEnd       string  `json:"week_end"`
	TotalHours    float64 `json:"total_hours"`
	BillableHours float64 `json:"billable_hours"`
}

// ResourceBillingDTO is one user's billing record within a project
type ResourceBillingDTO struct {
	UserID           uuid.UUID         `json:"user_id"`
	UserName         string            `json:"user_name"`
	Role             string            `json:"role,omitempty"`
	TotalHours       float64           `json:"total_hours"`
	BillableHours    float64           `json:"billable_hours"`
	NonBillableHours float64           `json:"non_billable_hours"`
	HourlyRate       float64           `json:"hourly_rate"`
	TotalAmount      float64           `json:"total_amount"`
	Adjusted         bool              `json:"adjusted"`
	Tasks            []TaskBillingDTO  `json:"tasks"`
	WeeklyBreakdown  []WeeklyBucketDTO `json:"weekly_breakdown,omitempty"`
}

// ProjectBillingDTO is one project's billing record
type ProjectBillingDTO struct {
	ProjectID        uuid.UUID            `json:"project_id"`
	ProjectName      string               `json:"project_name"`
	ClientID         *uuid.UUID           `json:"client_id,omitempty"`
	ClientName       string               `json:"client_name,omitempty"`
	TotalHours       float64              `json:"total_hours"`
	BillableHours    float64              `json:"billable_hours"`
	NonBillableHours float64              `json:"non_billable_hours"`
	TotalAmount      float64              `json:"total_amount"`
	Resources        []ResourceBillingDTO `json:"resources"`
}

// ProjectBillingViewDTO is the project-centric read shape
type ProjectBillingViewDTO struct {
	Projects []ProjectBillingDTO `json:"projects"`
	Summary  SummaryDTO          `json:"summary"`
	Period   PeriodDTO           `json:"period"`
}

// UserProjectBillingDTO is one project inside a user-centric record
type UserProjectBillingDTO struct {
	ProjectID        uuid.UUID        `json:"project_id"`
	ProjectName      string           `json:"project_name"`
	TotalHours       float64          `json:"total_hours"`
	BillableHours    float64          `json:"billable_hours"`
	NonBillableHours float64          `json:"non_billable_hours"`
	HourlyRate       float64          `json:"hourly_rate"`
	TotalAmount      float64          `json:"total_amount"`
	Tasks            []TaskBillingDTO `json:"tasks"`
}

// UserBillingDTO is one user's billing record across all matched projects
type UserBillingDTO struct {
	UserID           uuid.UUID               `json:"user_id"`
	UserName         string                  `json:"user_name"`
	Role             string                  `json:"role,omitempty"`
	TotalHours       float64                 `json:"total_hours"`
	BillableHours    float64                 `json:"billable_hours"`
	NonBillableHours float64                 `json:"non_billable_hours"`
	TotalAmount      float64                 `json:"total_amount"`
	Projects         []UserProjectBillingDTO `json:"projects"`
}

// UserBillingViewDTO is the user-centric read shape
type UserBillingViewDTO struct {
	Users   []UserBillingDTO `json:"users"`
	Summary SummaryDTO       `json:"summary"`
	Period  PeriodDTO        `json:"period"`
}

// TaskResourceDTO is one user's contribution to a task record
type TaskResourceDTO struct {
	UserID        uuid.UUID `json:"user_id"`
	UserName      string    `json:"user_name"`
	TotalHours    float64   `json:"total_hours"`
	BillableHours float64   `json:"billable_hours"`
	HourlyRate    float64   `json:"hourly_rate"`
	Amount        float64   `json:"amount"`
}

// TaskRecordDTO is one task's billing record in the task-centric view
type TaskRecordDTO struct {
	TaskID           string            `json:"task_id,omitempty"`
	TaskName         string            `json:"task_name"`
	ProjectID        uuid.UUID         `json:"project_id"`
	ProjectName      string            `json:"project_name"`
	TotalHours       float64           `json:"total_hours"`
	BillableHours    float64           `json:"billable_hours"`
	NonBillableHours float64           `json:"non_billable_hours"`
	Amount           float64           `json:"amount"`
	Resources        []TaskResourceDTO `json:"resources"`
}

// TaskBillingViewDTO is the task-centric read shape
type TaskBillingViewDTO struct {
	Tasks   []TaskRecordDTO `json:"tasks"`
	Summary SummaryDTO      `json:"summary"`
	Period  PeriodDTO       `json:"period"`
}

// AdjustmentDTO is a stored billing adjustment
type AdjustmentDTO struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                uuid.UUID  `json:"user_id"`
	ProjectID             uuid.UUID  `json:"project_id"`
	BillingPeriodStart    string     `json:"billing_period_start"`
	BillingPeriodEnd      string     `json:"billing_period_end"`
	OriginalBillableHours float64    `json:"original_billable_hours"`
	AdjustedBillableHours float64    `json:"adjusted_billable_hours"`
	TotalWorkedHours      float64    `json:"total_worked_hours"`
	TotalBillableHours    float64    `json:"total_billable_hours"`
	AdjustmentHours       float64    `json:"adjustment_hours"`
	Reason                string     `json:"reason"`
	AdjustedBy            *uuid.UUID `json:"adjusted_by,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ApplyAdjustmentResultDTO is the outcome of a single adjustment write
type ApplyAdjustmentResultDTO struct {
	AdjustmentID          uuid.UUID `json:"adjustment_id"`
	OriginalBillableHours float64   `json:"original_billable_hours"`
	AdjustedBillableHours float64   `json:"adjusted_billable_hours"`
}

// AllocationFailureDTO names a resource whose adjustment failed during a
// project-total reallocation
type AllocationFailureDTO struct {
	UserID uuid.UUID `json:"user_id"`
	Reason string    `json:"reason"`
}

// AllocationSuccessDTO reports one applied per-resource target
type AllocationSuccessDTO struct {
	UserID       uuid.UUID `json:"user_id"`
	TargetHours  float64   `json:"target_hours"`
	AdjustmentID uuid.UUID `json:"adjustment_id"`
}

// AllocationOutcomeDTO is the per-resource result of updateProjectBillableTotal.
// The batch is applied sequentially without a cross-resource transaction;
// partial failure is reported here instead of being rolled back.
type AllocationOutcomeDTO struct {
	MembersUpdated int                    `json:"members_updated"`
	Succeeded      []AllocationSuccessDTO `json:"succeeded"`
	Failed         []AllocationFailureDTO `json:"failed"`
}

// toFloat64 converts a decimal hours/amount value for the wire
func toFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// formatDate renders a day-granular date for the wire
func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseIDFilter parses a list of raw id strings into UUIDs, silently
// dropping malformed values. A filter emptied by dropping is no filter at
// all: callers must treat the empty result as "no constraint on this
// dimension" rather than over-constraining the query to zero rows.
func ParseIDFilter(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
