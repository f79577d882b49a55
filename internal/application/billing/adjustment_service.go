package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/billing"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
	"github.com/timebill/backend/internal/domain/timesheet"
	"go.uber.org/zap"
)

// ApplyAdjustmentCommand sets a user's billable hours on a project for a
// period. TotalHours optionally states the worked hours the caller is
// reconciling against; when absent, the hours aggregated from the user's
// recorded entries are used.
type ApplyAdjustmentCommand struct {
	TenantID      uuid.UUID
	UserID        uuid.UUID
	ProjectID     uuid.UUID
	StartDate     time.Time
	EndDate       time.Time
	BillableHours decimal.Decimal
	TotalHours    *decimal.Decimal
	Reason        string
	AdjustedBy    *uuid.UUID
}

// AdjustmentService reconciles requested billable hours against recorded
// work and persists the result as a billing adjustment. The write is an
// atomic upsert on the (user, project, period) key: identical commands are
// idempotent and concurrent commands cannot lose updates.
type AdjustmentService struct {
	timesheetRepo  timesheet.TimesheetRepository
	entryRepo      timesheet.TimeEntryRepository
	adjustmentRepo billing.BillingAdjustmentRepository
	logger         *zap.Logger
}

// NewAdjustmentService creates a new adjustment service
func NewAdjustmentService(
	timesheetRepo timesheet.TimesheetRepository,
	entryRepo timesheet.TimeEntryRepository,
	adjustmentRepo billing.BillingAdjustmentRepository,
	logger *zap.Logger,
) *AdjustmentService {
	return &AdjustmentService{
		timesheetRepo:  timesheetRepo,
		entryRepo:      entryRepo,
		adjustmentRepo: adjustmentRepo,
		logger:         logger,
	}
}

// ApplyAdjustment executes the command. It fails with a not-found error
// when the user has no timesheets overlapping the period: without recorded
// weeks there is no ground truth to reconcile the requested hours against.
func (s *AdjustmentService) ApplyAdjustment(ctx context.Context, cmd ApplyAdjustmentCommand) (*ApplyAdjustmentResultDTO, error) {
	key, err := billing.NewAdjustmentKey(cmd.TenantID, cmd.UserID, cmd.ProjectID, cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}

	sheets, err := s.timesheetRepo.FindOverlappingForUser(ctx, cmd.TenantID, cmd.UserID, key.Period)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no timesheets found for user %s in period %s",
			shared.ErrNotFound, cmd.UserID, key.Period)
	}

	sheetIDs := make([]uuid.UUID, len(sheets))
	for i, sheet := range sheets {
		sheetIDs[i] = sheet.ID
	}

	entries, err := s.entryRepo.FindForTimesheets(ctx, cmd.TenantID, cmd.ProjectID, sheetIDs, key.Period)
	if err != nil {
		return nil, err
	}

	originalBillable := decimal.Zero
	for _, entry := range entries {
		originalBillable = originalBillable.Add(entry.BillableContribution())
	}

	totalWorked := originalBillable
	if cmd.TotalHours != nil {
		totalWorked = *cmd.TotalHours
	}

	adj, err := billing.NewBillingAdjustment(key, originalBillable, cmd.BillableHours, totalWorked, cmd.Reason)
	if err != nil {
		return nil, err
	}
	adj.AdjustedBy = cmd.AdjustedBy
	adj.WithTimesheet(sheets[0].ID)

	if err := s.adjustmentRepo.Upsert(ctx, adj); err != nil {
		return nil, err
	}

	s.logger.Info("billing adjustment applied",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("user_id", cmd.UserID.String()),
		zap.String("project_id", cmd.ProjectID.String()),
		zap.String("period", key.Period.String()),
		zap.Float64("original_billable_hours", toFloat64(originalBillable)),
		zap.Float64("adjusted_billable_hours", toFloat64(cmd.BillableHours)))

	return &ApplyAdjustmentResultDTO{
		AdjustmentID:          adj.ID,
		OriginalBillableHours: toFloat64(originalBillable),
		AdjustedBillableHours: toFloat64(adj.AdjustedBillableHours),
	}, nil
}

// ListAdjustments lists a tenant's adjustments matching the filter
func (s *AdjustmentService) ListAdjustments(ctx context.Context, tenantID uuid.UUID, filter billing.AdjustmentFilter) ([]AdjustmentDTO, error) {
	adjustments, err := s.adjustmentRepo.FindByFilter(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]AdjustmentDTO, len(adjustments))
	for i, adj := range adjustments {
		dtos[i] = toAdjustmentDTO(adj)
	}
	return dtos, nil
}

// ResolveOverride resolves the billable-hours override for a user/project
// whose stored adjustment period fully contains the given range
func (s *AdjustmentService) ResolveOverride(ctx context.Context, tenantID, userID, projectID uuid.UUID, period valueobject.Period) (*decimal.Decimal, error) {
	return s.adjustmentRepo.FindOverride(ctx, tenantID, userID, projectID, period)
}

func toAdjustmentDTO(adj *billing.BillingAdjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:                    adj.ID,
		UserID:                adj.UserID,
		ProjectID:             adj.ProjectID,
		BillingPeriodStart:    formatDate(adj.PeriodStart),
		BillingPeriodEnd:      formatDate(adj.PeriodEnd),
		OriginalBillableHours: toFloat64(adj.OriginalBillableHours),
		AdjustedBillableHours: toFloat64(adj.AdjustedBillableHours),
		TotalWorkedHours:      toFloat64(adj.TotalWorkedHours),
		TotalBillableHours:    toFloat64(adj.TotalBillableHours),
		AdjustmentHours:       toFloat64(adj.AdjustmentHours),
		Reason:                adj.Reason,
		AdjustedBy:            adj.AdjustedBy,
		CreatedAt:             adj.CreatedAt,
		UpdatedAt:             adj.UpdatedAt,
	}
}
