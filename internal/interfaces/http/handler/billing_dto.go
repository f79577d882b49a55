package handler

// ===================== Request DTOs =====================

// BillingViewFilterRequest defines the filter for the project and user
// billing views
// @Description Filter for billing view queries
type BillingViewFilterRequest struct {
	StartDate  string   `form:"start_date" binding:"required" example:"2026-01-01"`
	EndDate    string   `form:"end_date" binding:"required" example:"2026-01-31"`
	ProjectIDs []string `form:"project_ids" example:"550e8400-e29b-41d4-a716-446655440000"`
	ClientIDs  []string `form:"client_ids" example:"550e8400-e29b-41d4-a716-446655440000"`
	Roles      []string `form:"roles" example:"manager"`
	Search     string   `form:"search" example:"alice"`
	View       string   `form:"view" binding:"omitempty,oneof=summary weekly" example:"summary"`
}

// TaskViewFilterRequest defines the filter for the task billing view.
// Dates are optional; omitting one leaves that side of the range open.
// @Description Filter for task billing view queries
type TaskViewFilterRequest struct {
	StartDate  string   `form:"start_date" example:"2026-01-01"`
	EndDate    string   `form:"end_date" example:"2026-01-31"`
	ProjectIDs []string `form:"project_ids" example:"550e8400-e29b-41d4-a716-446655440000"`
	TaskIDs    []string `form:"task_ids" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// AdjustmentListFilterRequest defines the filter for listing adjustments
// @Description Filter for adjustment listings
type AdjustmentListFilterRequest struct {
	UserID    string `form:"user_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ProjectID string `form:"project_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	StartDate string `form:"start_date" example:"2026-01-01"`
	EndDate   string `form:"end_date" example:"2026-01-31"`
}

// ApplyAdjustmentRequest sets a user's billable hours on a project for a
// billing period
// @Description Request to apply a billing adjustment
type ApplyAdjustmentRequest struct {
	UserID        string   `json:"user_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	ProjectID     string   `json:"project_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	StartDate     string   `json:"start_date" binding:"required" example:"2026-01-01"`
	EndDate       string   `json:"end_date" binding:"required" example:"2026-01-31"`
	BillableHours float64  `json:"billable_hours" binding:"min=0" example:"32.5"`
	TotalHours    *float64 `json:"total_hours,omitempty" example:"40"`
	Reason        string   `json:"reason" binding:"max=500" example:"Client approved 32.5 billable hours"`
}

// UpdateBillableTotalRequest sets a project-level billable-hours target to
// be distributed across the project's resources
// @Description Request to set a project billable-hours target
type UpdateBillableTotalRequest struct {
	StartDate   string  `json:"start_date" binding:"required" example:"2026-01-01"`
	EndDate     string  `json:"end_date" binding:"required" example:"2026-01-31"`
	TargetHours float64 `json:"target_hours" binding:"min=0" example:"120"`
	Strategy    string  `json:"strategy" example:"proportional"`
	Reason      string  `json:"reason" binding:"max=500" example:"Contract caps January at 120 hours"`
}
