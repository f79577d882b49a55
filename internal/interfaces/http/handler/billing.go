package handler

import (
	"errors"
	"strings"
	"time"

	billingapp "github.com/timebill/backend/internal/application/billing"
	"github.com/timebill/backend/internal/domain/billing"
	infrastrategy "github.com/timebill/backend/internal/infrastructure/strategy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BillingHandler handles billing view, adjustment, and allocation endpoints
type BillingHandler struct {
	BaseHandler
	viewService       *billingapp.ViewService
	adjustmentService *billingapp.AdjustmentService
	allocationService *billingapp.AllocationService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(
	viewService *billingapp.ViewService,
	adjustmentService *billingapp.AdjustmentService,
	allocationService *billingapp.AllocationService,
) *BillingHandler {
	return &BillingHandler{
		viewService:       viewService,
		adjustmentService: adjustmentService,
		allocationService: allocationService,
	}
}

// ===================== Billing View Endpoints =====================

// GetProjectBillingView godoc
// @Summary      Get project billing view
// @Description  Returns per-project billing records with resource breakdowns for the period
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        start_date query string true "Start date (YYYY-MM-DD)"
// @Param        end_date query string true "End date (YYYY-MM-DD)"
// @Param        project_ids query []string false "Filter by project IDs (repeatable or comma-separated)"
// @Param        client_ids query []string false "Filter by client IDs (repeatable or comma-separated)"
// @Param        view query string false "View mode: summary or weekly (default summary)"
// @Success      200 {object} dto.Response{data=billingapp.ProjectBillingViewDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/projects [get]
func (h *BillingHandler) GetProjectBillingView(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req BillingViewFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	startDate, endDate, err := parseBillingPeriod(req.StartDate, req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	view, err := h.viewService.GetProjectBillingView(c.Request.Context(), billingapp.ProjectViewQuery{
		TenantID:   tenantID,
		StartDate:  startDate,
		EndDate:    endDate,
		ProjectIDs: parseIDParams(req.ProjectIDs),
		ClientIDs:  parseIDParams(req.ClientIDs),
		View:       req.View,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// GetUserBillingView godoc
// @Summary      Get user billing view
// @Description  Returns per-user billing records across matched projects for the period
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        start_date query string true "Start date (YYYY-MM-DD)"
// @Param        end_date query string true "End date (YYYY-MM-DD)"
// @Param        project_ids query []string false "Filter by project IDs (repeatable or comma-separated)"
// @Param        client_ids query []string false "Filter by client IDs (repeatable or comma-separated)"
// @Param        roles query []string false "Filter by user roles"
// @Param        search query string false "Match against user name or email"
// @Success      200 {object} dto.Response{data=billingapp.UserBillingViewDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/users [get]
func (h *BillingHandler) GetUserBillingView(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req BillingViewFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	startDate, endDate, err := parseBillingPeriod(req.StartDate, req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	view, err := h.viewService.GetUserBillingView(c.Request.Context(), billingapp.UserViewQuery{
		TenantID:   tenantID,
		StartDate:  startDate,
		EndDate:    endDate,
		ProjectIDs: parseIDParams(req.ProjectIDs),
		ClientIDs:  parseIDParams(req.ClientIDs),
		Roles:      splitListParams(req.Roles),
		Search:     req.Search,
		View:       req.View,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// GetTaskBillingView godoc
// @Summary      Get task billing view
// @Description  Returns per-task billing records built from raw eligible entries; adjustments are not applied in this view
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        start_date query string false "Start date (YYYY-MM-DD), open-ended when omitted"
// @Param        end_date query string false "End date (YYYY-MM-DD), open-ended when omitted"
// @Param        project_ids query []string false "Filter by project IDs (repeatable or comma-separated)"
// @Param        task_ids query []string false "Filter by task IDs"
// @Success      200 {object} dto.Response{data=billingapp.TaskBillingViewDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/tasks [get]
func (h *BillingHandler) GetTaskBillingView(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req TaskViewFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	startDate, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	endDate, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		h.BadRequest(c, "end_date must not be before start_date")
		return
	}

	view, err := h.viewService.GetTaskBillingView(c.Request.Context(), billingapp.TaskViewQuery{
		TenantID:   tenantID,
		StartDate:  startDate,
		EndDate:    endDate,
		ProjectIDs: parseIDParams(req.ProjectIDs),
		TaskIDs:    parseIDParams(req.TaskIDs),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// ===================== Adjustment Endpoints =====================

// ApplyAdjustment godoc
// @Summary      Apply a billing adjustment
// @Description  Sets a user's billable hours on a project for a billing period; identical repeats are idempotent
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request body ApplyAdjustmentRequest true "Adjustment to apply"
// @Success      200 {object} dto.Response{data=billingapp.ApplyAdjustmentResultDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/adjustments [post]
func (h *BillingHandler) ApplyAdjustment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ApplyAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.BadRequest(c, "user_id: Invalid UUID format")
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.BadRequest(c, "project_id: Invalid UUID format")
		return
	}

	startDate, endDate, err := parseBillingPeriod(req.StartDate, req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := billingapp.ApplyAdjustmentCommand{
		TenantID:      tenantID,
		UserID:        userID,
		ProjectID:     projectID,
		StartDate:     startDate,
		EndDate:       endDate,
		BillableHours: toDecimal(req.BillableHours),
		Reason:        req.Reason,
	}
	if req.TotalHours != nil {
		cmd.TotalHours = toDecimalPtr(*req.TotalHours)
	}
	if adjustedBy, err := getUserID(c); err == nil {
		cmd.AdjustedBy = &adjustedBy
	}

	result, err := h.adjustmentService.ApplyAdjustment(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListAdjustments godoc
// @Summary      List billing adjustments
// @Description  Returns stored adjustments, optionally narrowed by user, project, or period
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        user_id query string false "Filter by user ID"
// @Param        project_id query string false "Filter by project ID"
// @Param        start_date query string false "Periods starting on or after this date (YYYY-MM-DD)"
// @Param        end_date query string false "Periods ending on or before this date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]billingapp.AdjustmentDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/adjustments [get]
func (h *BillingHandler) ListAdjustments(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req AdjustmentListFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.AdjustmentFilter{}

	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			h.BadRequest(c, "user_id: Invalid UUID format")
			return
		}
		filter.UserID = &userID
	}
	if req.ProjectID != "" {
		projectID, err := uuid.Parse(req.ProjectID)
		if err != nil {
			h.BadRequest(c, "project_id: Invalid UUID format")
			return
		}
		filter.ProjectID = &projectID
	}

	startDate, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.StartDate = startDate

	endDate, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.EndDate = endDate

	adjustments, err := h.adjustmentService.ListAdjustments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, adjustments)
}

// ===================== Allocation Endpoints =====================

// UpdateProjectBillableTotal godoc
// @Summary      Set a project's billable-hours target
// @Description  Distributes the target across the project's resources using the selected allocation strategy and records per-resource adjustments; partial failure is reported in the outcome
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID"
// @Param        request body UpdateBillableTotalRequest true "Billable total to apply"
// @Success      200 {object} dto.Response{data=billingapp.AllocationOutcomeDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/projects/{id}/billable-total [put]
func (h *BillingHandler) UpdateProjectBillableTotal(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return
	}

	var req UpdateBillableTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	startDate, endDate, err := parseBillingPeriod(req.StartDate, req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := billingapp.UpdateBillableTotalCommand{
		TenantID:    tenantID,
		ProjectID:   projectID,
		StartDate:   startDate,
		EndDate:     endDate,
		TargetHours: toDecimal(req.TargetHours),
		Strategy:    req.Strategy,
		Reason:      req.Reason,
	}
	if adjustedBy, err := getUserID(c); err == nil {
		cmd.AdjustedBy = &adjustedBy
	}

	outcome, err := h.allocationService.UpdateProjectBillableTotal(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, outcome)
}

// ListAllocationStrategies godoc
// @Summary      List allocation strategies
// @Description  Returns the registered billable-hours allocation strategies
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=[]infrastrategy.StrategyInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/strategies [get]
func (h *BillingHandler) ListAllocationStrategies(c *gin.Context) {
	strategies := h.allocationService.ListStrategies()
	if strategies == nil {
		strategies = []infrastrategy.StrategyInfo{}
	}
	h.Success(c, strategies)
}

// ===================== Helper Functions =====================

// parseBillingPeriod parses a required start/end date pair and validates
// ordering. The end date stays day-granular; period containment and entry
// range checks treat it as inclusive.
func parseBillingPeriod(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start_date: Invalid date format, expected YYYY-MM-DD")
	}

	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end_date: Invalid date format, expected YYYY-MM-DD")
	}

	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, errors.New("end_date must not be before start_date")
	}

	return startDate, endDate, nil
}

// parseOptionalDate parses a date that may be absent. Dates are kept at
// midnight; period bounds are inclusive of their end day downstream.
func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errors.New(field + ": Invalid date format, expected YYYY-MM-DD")
	}
	return &parsed, nil
}

// splitListParams flattens repeated and comma-separated query values into
// one list, dropping empties
func splitListParams(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}

// parseIDParams flattens repeated and comma-separated id values and keeps
// the well-formed UUIDs
func parseIDParams(values []string) []uuid.UUID {
	return billingapp.ParseIDFilter(splitListParams(values))
}
