package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/billing"
	"github.com/timebill/backend/internal/domain/shared"
	sharedstrategy "github.com/timebill/backend/internal/domain/shared/strategy"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
	infrastrategy "github.com/timebill/backend/internal/infrastructure/strategy"
	"go.uber.org/zap"
)

// UpdateBillableTotalCommand sets a project-level billable-hours target for
// a period. Strategy selects the allocator by name; empty means the
// registered default.
type UpdateBillableTotalCommand struct {
	TenantID    uuid.UUID
	ProjectID   uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	TargetHours decimal.Decimal
	Strategy    string
	Reason      string
	AdjustedBy  *uuid.UUID
}

// AllocationService distributes a project-level billable target across the
// project's resources and records the result as per-resource adjustments.
// The per-resource writes run sequentially without a wrapping transaction:
// a failure partway through leaves the earlier adjustments in place and is
// reported in the outcome rather than rolled back.
type AllocationService struct {
	aggregation    *AggregationService
	adjustments    *AdjustmentService
	adjustmentRepo billing.BillingAdjustmentRepository
	registry       *infrastrategy.StrategyRegistry
	logger         *zap.Logger
}

// NewAllocationService creates a new allocation service
func NewAllocationService(
	aggregation *AggregationService,
	adjustments *AdjustmentService,
	adjustmentRepo billing.BillingAdjustmentRepository,
	registry *infrastrategy.StrategyRegistry,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		aggregation:    aggregation,
		adjustments:    adjustments,
		adjustmentRepo: adjustmentRepo,
		registry:       registry,
		logger:         logger,
	}
}

// UpdateProjectBillableTotal aggregates the project over the period, folds
// existing adjustment overrides into each resource's current billable
// hours, runs the allocation strategy against the requested target, and
// applies the resulting per-resource targets as adjustments one by one.
func (s *AllocationService) UpdateProjectBillableTotal(ctx context.Context, cmd UpdateBillableTotalCommand) (*AllocationOutcomeDTO, error) {
	period, err := valueobject.NewPeriod(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}
	if cmd.TargetHours.IsNegative() {
		return nil, fmt.Errorf("%w: target billable hours cannot be negative", shared.ErrInvalidInput)
	}

	allocator, err := s.registry.GetAllocationStrategy(cmd.Strategy)
	if err != nil {
		return nil, err
	}

	resources, err := s.currentResources(ctx, cmd.TenantID, cmd.ProjectID, period)
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, fmt.Errorf("%w: no billable work found for project %s in period %s to %s",
			shared.ErrNotFound, cmd.ProjectID, formatDate(period.Start()), formatDate(period.End()))
	}

	result, err := allocator.Allocate(ctx, sharedstrategy.AllocationContext{
		TenantID:            cmd.TenantID,
		ProjectID:           cmd.ProjectID,
		TargetBillableHours: cmd.TargetHours,
		Resources:           resources,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("allocating project billable target",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("project_id", cmd.ProjectID.String()),
		zap.String("strategy", allocator.Name()),
		zap.String("target_hours", cmd.TargetHours.String()),
		zap.String("total_allocated", result.TotalAllocated.String()),
		zap.Int("resources", len(resources)))

	outcome := &AllocationOutcomeDTO{
		Succeeded: make([]AllocationSuccessDTO, 0, len(result.Targets)),
		Failed:    make([]AllocationFailureDTO, 0),
	}

	for i, target := range result.Targets {
		worked := resources[i].TotalHours
		applied, err := s.adjustments.ApplyAdjustment(ctx, ApplyAdjustmentCommand{
			TenantID:      cmd.TenantID,
			UserID:        target.UserID,
			ProjectID:     cmd.ProjectID,
			StartDate:     period.Start(),
			EndDate:       period.End(),
			BillableHours: target.TargetHours,
			TotalHours:    &worked,
			Reason:        allocationReason(cmd.Reason),
			AdjustedBy:    cmd.AdjustedBy,
		})
		if err != nil {
			s.logger.Warn("per-resource adjustment failed during allocation",
				zap.String("tenant_id", cmd.TenantID.String()),
				zap.String("project_id", cmd.ProjectID.String()),
				zap.String("user_id", target.UserID.String()),
				zap.Error(err))
			outcome.Failed = append(outcome.Failed, AllocationFailureDTO{
				UserID: target.UserID,
				Reason: err.Error(),
			})
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, AllocationSuccessDTO{
			UserID:       target.UserID,
			TargetHours:  toFloat64(target.TargetHours),
			AdjustmentID: applied.AdjustmentID,
		})
	}

	outcome.MembersUpdated = len(outcome.Succeeded)
	return outcome, nil
}

// ListStrategies reports the registered allocation strategies
func (s *AllocationService) ListStrategies() []infrastrategy.StrategyInfo {
	return s.registry.ListAll()
}

// currentResources builds the allocator input: each resource's worked hours
// from aggregation, and its current billable hours with any containing
// adjustment override already folded in.
func (s *AllocationService) currentResources(ctx context.Context, tenantID, projectID uuid.UUID, period valueobject.Period) ([]sharedstrategy.BillingResource, error) {
	aggregates, err := s.aggregation.AggregateProjects(ctx, AggregationQuery{
		TenantID:   tenantID,
		ProjectIDs: []uuid.UUID{projectID},
		Period:     period,
	})
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, nil
	}

	overrides, err := s.adjustmentRepo.FindOverridesForPeriod(ctx, tenantID, projectID, period)
	if err != nil {
		return nil, err
	}

	agg := aggregates[0]
	resources := make([]sharedstrategy.BillingResource, 0, len(agg.Resources))
	for _, resource := range agg.Resources {
		current := resource.BillableHours
		if override, ok := overrides[resource.UserID]; ok {
			current = override
		}
		resources = append(resources, sharedstrategy.BillingResource{
			UserID:       resource.UserID,
			CurrentHours: current,
			TotalHours:   resource.TotalHours,
		})
	}
	return resources, nil
}

func allocationReason(reason string) string {
	if reason != "" {
		return reason
	}
	return "Allocated from project billable total"
}
