package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/timebill/backend/internal/domain/billing"
	"github.com/timebill/backend/internal/domain/project"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/domain/timesheet"
	infrastrategy "github.com/timebill/backend/internal/infrastructure/strategy"
	"go.uber.org/zap"
)

type allocationFixture struct {
	projectRepo    *MockProjectRepository
	entryRepo      *MockTimeEntryRepository
	timesheetRepo  *MockTimesheetRepository
	adjustmentRepo *MockBillingAdjustmentRepository
	service        *AllocationService
}

func newAllocationFixture(t *testing.T) *allocationFixture {
	t.Helper()
	f := &allocationFixture{
		projectRepo:    new(MockProjectRepository),
		entryRepo:      new(MockTimeEntryRepository),
		timesheetRepo:  new(MockTimesheetRepository),
		adjustmentRepo: new(MockBillingAdjustmentRepository),
	}
	registry, err := infrastrategy.NewRegistryWithDefaults()
	require.NoError(t, err)

	aggregation := NewAggregationService(f.projectRepo, f.entryRepo, zap.NewNop())
	adjustments := NewAdjustmentService(f.timesheetRepo, f.entryRepo, f.adjustmentRepo, zap.NewNop())
	f.service = NewAllocationService(aggregation, adjustments, f.adjustmentRepo, registry, zap.NewNop())
	return f
}

func TestAllocationService_UpdateProjectBillableTotal(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	period := testPeriod(t, "2026-03-01", "2026-03-31")

	newCommand := func(projectID uuid.UUID, target int64) UpdateBillableTotalCommand {
		return UpdateBillableTotalCommand{
			TenantID:    tenantID,
			ProjectID:   projectID,
			StartDate:   period.Start(),
			EndDate:     period.End(),
			TargetHours: decimal.NewFromInt(target),
		}
	}

	t.Run("distributes the target and applies one adjustment per resource", func(t *testing.T) {
		f := newAllocationFixture(t)

		proj := testProject(tenantID, "Platform")
		userA := uuid.New()
		userB := uuid.New()

		entries := []*timesheet.TimeEntry{
			testEntry(t, tenantID, userA, proj.ID, "2026-03-02", 35),
			testEntry(t, tenantID, userB, proj.ID, "2026-03-02", 40),
		}
		entries[0].WithBillableHours(decimal.NewFromInt(35))
		entries[1].WithBillableHours(decimal.NewFromInt(20))

		f.projectRepo.On("FindForBilling", ctx, tenantID, mock.Anything, mock.Anything).Return([]*project.Project{proj}, nil)
		f.entryRepo.On("FindEligible", ctx, tenantID, mock.Anything).Return(entries, nil)
		f.adjustmentRepo.On("FindOverridesForPeriod", ctx, tenantID, proj.ID, mock.Anything).
			Return(map[uuid.UUID]decimal.Decimal{}, nil)

		// each per-resource adjustment reconciles against that user's sheets
		sheetA := testTimesheet(t, tenantID, userA, "2026-03-01", "2026-03-07")
		sheetB := testTimesheet(t, tenantID, userB, "2026-03-01", "2026-03-07")
		f.timesheetRepo.On("FindOverlappingForUser", ctx, tenantID, userA, mock.Anything).
			Return([]*timesheet.Timesheet{sheetA}, nil)
		f.timesheetRepo.On("FindOverlappingForUser", ctx, tenantID, userB, mock.Anything).
			Return([]*timesheet.Timesheet{sheetB}, nil)
		f.entryRepo.On("FindForTimesheets", ctx, tenantID, proj.ID, mock.Anything, mock.Anything).
			Return([]*timesheet.TimeEntry{}, nil)

		var saved []*billing.BillingAdjustment
		f.adjustmentRepo.On("Upsert", ctx, mock.AnythingOfType("*billing.BillingAdjustment")).
			Run(func(args mock.Arguments) {
				saved = append(saved, args.Get(1).(*billing.BillingAdjustment))
			}).
			Return(nil)

		outcome, err := f.service.UpdateProjectBillableTotal(ctx, newCommand(proj.ID, 75))

		assert.NoError(t, err)
		assert.Equal(t, 2, outcome.MembersUpdated)
		require.Len(t, outcome.Succeeded, 2)
		assert.Empty(t, outcome.Failed)

		// 55 current vs target 75: only userB has headroom, the extra 20 goes there
		assert.Equal(t, userA, outcome.Succeeded[0].UserID)
		assert.Equal(t, 35.0, outcome.Succeeded[0].TargetHours)
		assert.Equal(t, userB, outcome.Succeeded[1].UserID)
		assert.Equal(t, 40.0, outcome.Succeeded[1].TargetHours)

		require.Len(t, saved, 2)
		// worked hours are carried from aggregation, not re-derived
		assert.True(t, saved[0].TotalWorkedHours.Equal(decimal.NewFromInt(35)))
		assert.True(t, saved[1].TotalWorkedHours.Equal(decimal.NewFromInt(40)))
	})

	t.Run("folds existing overrides into the current billable baseline", func(t *testing.T) {
		f := newAllocationFixture(t)

		proj := testProject(tenantID, "Platform")
		userID := uuid.New()

		f.projectRepo.On("FindForBilling", ctx, tenantID, mock.Anything, mock.Anything).Return([]*project.Project{proj}, nil)
		f.entryRepo.On("FindEligible", ctx, tenantID, mock.Anything).
			Return([]*timesheet.TimeEntry{testEntry(t, tenantID, userID, proj.ID, "2026-03-02", 40)}, nil)
		f.adjustmentRepo.On("FindOverridesForPeriod", ctx, tenantID, proj.ID, mock.Anything).
			Return(map[uuid.UUID]decimal.Decimal{userID: decimal.NewFromInt(10)}, nil)

		sheet := testTimesheet(t, tenantID, userID, "2026-03-01", "2026-03-07")
		f.timesheetRepo.On("FindOverlappingForUser", ctx, tenantID, userID, mock.Anything).
			Return([]*timesheet.Timesheet{sheet}, nil)
		f.entryRepo.On("FindForTimesheets", ctx, tenantID, proj.ID, mock.Anything, mock.Anything).
			Return([]*timesheet.TimeEntry{}, nil)
		f.adjustmentRepo.On("Upsert", ctx, mock.Anything).Return(nil)

		outcome, err := f.service.UpdateProjectBillableTotal(ctx, newCommand(proj.ID, 30))

		assert.NoError(t, err)
		require.Len(t, outcome.Succeeded, 1)
		// single resource: target lands on it directly regardless of baseline
		assert.Equal(t, 30.0, outcome.Succeeded[0].TargetHours)
	})

	t.Run("reports partial failure instead of rolling back", func(t *testing.T) {
		f := newAllocationFixture(t)

		proj := testProject(tenantID, "Platform")
		userA := uuid.New()
		userB := uuid.New()

		entries := []*timesheet.TimeEntry{
			testEntry(t, tenantID, userA, proj.ID, "2026-03-02", 20),
			testEntry(t, tenantID, userB, proj.ID, "2026-03-02", 20),
		}

		f.projectRepo.On("FindForBilling", ctx, tenantID, mock.Anything, mock.Anything).Return([]*project.Project{proj}, nil)
		f.entryRepo.On("FindEligible", ctx, tenantID, mock.Anything).Return(entries, nil)
		f.adjustmentRepo.On("FindOverridesForPeriod", ctx, tenantID, proj.ID, mock.Anything).
			Return(map[uuid.UUID]decimal.Decimal{}, nil)

		// userA has sheets, userB has none: their adjustment fails with not found
		sheetA := testTimesheet(t, tenantID, userA, "2026-03-01", "2026-03-07")
		f.timesheetRepo.On("FindOverlappingForUser", ctx, tenantID, userA, mock.Anything).
			Return([]*timesheet.Timesheet{sheetA}, nil)
		f.timesheetRepo.On("FindOverlappingForUser", ctx, tenantID, userB, mock.Anything).
			Return([]*timesheet.Timesheet{}, nil)
		f.entryRepo.On("FindForTimesheets", ctx, tenantID, proj.ID, mock.Anything, mock.Anything).
			Return([]*timesheet.TimeEntry{}, nil)
		f.adjustmentRepo.On("Upsert", ctx, mock.Anything).Return(nil)

		outcome, err := f.service.UpdateProjectBillableTotal(ctx, newCommand(proj.ID, 30))

		assert.NoError(t, err)
		assert.Equal(t, 1, outcome.MembersUpdated)
		require.Len(t, outcome.Succeeded, 1)
		assert.Equal(t, userA, outcome.Succeeded[0].UserID)
		require.Len(t, outcome.Failed, 1)
		assert.Equal(t, userB, outcome.Failed[0].UserID)
		assert.Contains(t, outcome.Failed[0].Reason, "no timesheets")
	})

	t.Run("fails with not found when the project has no billable work", func(t *testing.T) {
		f := newAllocationFixture(t)

		proj := testProject(tenantID, "Platform")
		f.projectRepo.On("FindForBilling", ctx, tenantID, mock.Anything, mock.Anything).Return([]*project.Project{proj}, nil)
		f.entryRepo.On("FindEligible", ctx, tenantID, mock.Anything).Return([]*timesheet.TimeEntry{}, nil)
		f.adjustmentRepo.On("FindOverridesForPeriod", ctx, tenantID, proj.ID, mock.Anything).
			Return(map[uuid.UUID]decimal.Decimal{}, nil)

		outcome, err := f.service.UpdateProjectBillableTotal(ctx, newCommand(proj.ID, 30))

		assert.Nil(t, outcome)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects a negative target", func(t *testing.T) {
		f := newAllocationFixture(t)

		cmd := newCommand(uuid.New(), 0)
		cmd.TargetHours = decimal.NewFromInt(-5)

		_, err := f.service.UpdateProjectBillableTotal(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects an unknown strategy name", func(t *testing.T) {
		f := newAllocationFixture(t)

		cmd := newCommand(uuid.New(), 10)
		cmd.Strategy = "round-robin"

		_, err := f.service.UpdateProjectBillableTotal(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestAllocationService_ListStrategies(t *testing.T) {
	f := newAllocationFixture(t)

	infos := f.service.ListStrategies()
	require.Len(t, infos, 1)
	assert.Equal(t, "proportional", infos[0].Name)
	assert.True(t, infos[0].IsDefault)
}
