package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingapp "github.com/timebill/backend/internal/application/billing"
	"github.com/timebill/backend/internal/domain/billing"
	"github.com/timebill/backend/internal/domain/identity"
	"github.com/timebill/backend/internal/domain/project"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
	"github.com/timebill/backend/internal/domain/timesheet"
	"github.com/timebill/backend/internal/infrastructure/event"
	"github.com/timebill/backend/internal/infrastructure/persistence"
	"github.com/timebill/backend/internal/infrastructure/pricing"
	infrastrategy "github.com/timebill/backend/internal/infrastructure/strategy"
)

// billingServices wires the full billing stack over a real database.
type billingServices struct {
	tenantRepo     *persistence.TenantRepository
	userRepo       *persistence.UserRepository
	clientRepo     *persistence.ClientRepository
	projectRepo    *persistence.ProjectRepository
	timesheetRepo  *persistence.TimesheetRepository
	entryRepo      *persistence.TimeEntryRepository
	rateRepo       *persistence.RateRepository
	adjustmentRepo *persistence.BillingAdjustmentRepository
	outboxRepo     *event.GormOutboxRepository

	views       *billingapp.ViewService
	adjustments *billingapp.AdjustmentService
	allocation  *billingapp.AllocationService
}

func newBillingServices(t *testing.T, tdb *TestDB) *billingServices {
	t.Helper()
	log := zap.NewNop()

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer)

	s := &billingServices{
		tenantRepo:     persistence.NewTenantRepository(tdb.DB),
		userRepo:       persistence.NewUserRepository(tdb.DB),
		clientRepo:     persistence.NewClientRepository(tdb.DB),
		projectRepo:    persistence.NewProjectRepository(tdb.DB),
		timesheetRepo:  persistence.NewTimesheetRepository(tdb.DB),
		entryRepo:      persistence.NewTimeEntryRepository(tdb.DB),
		rateRepo:       persistence.NewRateRepository(tdb.DB),
		adjustmentRepo: persistence.NewBillingAdjustmentRepository(tdb.DB).WithOutbox(outboxPublisher),
		outboxRepo:     event.NewGormOutboxRepository(tdb.DB),
	}

	registry, err := infrastrategy.NewRegistryWithDefaults()
	require.NoError(t, err)

	aggregation := billingapp.NewAggregationService(s.projectRepo, s.entryRepo, log)
	rates := billingapp.NewRateService(pricing.NewRuleRateResolver(s.rateRepo, log), decimal.NewFromInt(100), log)
	s.adjustments = billingapp.NewAdjustmentService(s.timesheetRepo, s.entryRepo, s.adjustmentRepo, log)
	s.views = billingapp.NewViewService(
		aggregation, s.adjustmentRepo, rates,
		s.userRepo, s.projectRepo, s.clientRepo, s.entryRepo, log,
	)
	s.allocation = billingapp.NewAllocationService(aggregation, s.adjustments, s.adjustmentRepo, registry, log)
	return s
}

// seedApprovedWeek creates a user with an approved timesheet containing one
// entry per given day, each with the same number of hours.
func (s *billingServices) seedApprovedWeek(t *testing.T, tenantID, projectID uuid.UUID, email string, hoursPerDay float64, days ...string) *identity.User {
	t.Helper()
	ctx := context.Background()

	user, err := identity.NewUser(tenantID, email, email, "s3cret-pass-123", identity.RoleMember)
	require.NoError(t, err)
	require.NoError(t, s.userRepo.Save(ctx, user))

	weekStart := mustDate(t, "2026-03-02")
	sheet, err := timesheet.NewTimesheet(tenantID, user.ID, weekStart, weekStart.AddDate(0, 0, 6))
	require.NoError(t, err)
	sheet.Status = timesheet.TimesheetStatusApproved
	require.NoError(t, s.timesheetRepo.Save(ctx, sheet))

	for _, day := range days {
		entry, err := timesheet.NewTimeEntry(tenantID, sheet.ID, user.ID, projectID, mustDate(t, day), decimal.NewFromFloat(hoursPerDay))
		require.NoError(t, err)
		require.NoError(t, s.entryRepo.Save(ctx, entry))
	}
	return user
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func mustPeriod(t *testing.T, start, end string) valueobject.Period {
	t.Helper()
	p, err := valueobject.NewPeriod(mustDate(t, start), mustDate(t, end))
	require.NoError(t, err)
	return p
}

func seedTenant(t *testing.T, s *billingServices, name, slug string) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant(name, slug)
	require.NoError(t, err)
	require.NoError(t, s.tenantRepo.Save(context.Background(), tenant))
	return tenant
}

func TestBillingFlow_AggregationAndAdjustment(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	s := newBillingServices(t, tdb)
	ctx := context.Background()

	tenant := seedTenant(t, s, "Acme Consulting", "acme")

	proj, err := project.NewProject(tenant.ID, "Website Redesign", "WEB-01")
	require.NoError(t, err)
	require.NoError(t, s.projectRepo.Save(ctx, proj))

	// 4 days x 4h approved work
	user := s.seedApprovedWeek(t, tenant.ID, proj.ID, "dana@acme.example.com", 4,
		"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05")

	period := billingapp.ProjectViewQuery{
		TenantID:  tenant.ID,
		StartDate: mustDate(t, "2026-03-01"),
		EndDate:   mustDate(t, "2026-03-31"),
	}

	view, err := s.views.GetProjectBillingView(ctx, period)
	require.NoError(t, err)
	require.Len(t, view.Projects, 1)
	assert.Equal(t, proj.ID, view.Projects[0].ProjectID)
	assert.InDelta(t, 16.0, view.Projects[0].TotalHours, 0.001)
	assert.InDelta(t, 16.0, view.Projects[0].BillableHours, 0.001)
	// Default rate of 100/h applies when no pricing rule matches
	assert.InDelta(t, 1600.0, view.Projects[0].TotalAmount, 0.001)

	// Apply an adjustment for the user's week
	result, err := s.adjustments.ApplyAdjustment(ctx, billingapp.ApplyAdjustmentCommand{
		TenantID:      tenant.ID,
		UserID:        user.ID,
		ProjectID:     proj.ID,
		StartDate:     mustDate(t, "2026-03-02"),
		EndDate:       mustDate(t, "2026-03-08"),
		BillableHours: decimal.NewFromFloat(12.5),
		Reason:        "scope reduced after client review",
	})
	require.NoError(t, err)
	assert.InDelta(t, 16.0, result.OriginalBillableHours, 0.001)
	assert.InDelta(t, 12.5, result.AdjustedBillableHours, 0.001)

	// A query inside the adjusted week picks up the override
	weekQuery := billingapp.ProjectViewQuery{
		TenantID:  tenant.ID,
		StartDate: mustDate(t, "2026-03-02"),
		EndDate:   mustDate(t, "2026-03-08"),
	}
	view, err = s.views.GetProjectBillingView(ctx, weekQuery)
	require.NoError(t, err)
	require.Len(t, view.Projects, 1)
	assert.InDelta(t, 12.5, view.Projects[0].BillableHours, 0.001)
	assert.InDelta(t, 16.0, view.Projects[0].TotalHours, 0.001)

	// The wider month query is not contained in the stored adjustment
	// period, so it keeps the aggregated hours
	view, err = s.views.GetProjectBillingView(ctx, period)
	require.NoError(t, err)
	require.Len(t, view.Projects, 1)
	assert.InDelta(t, 16.0, view.Projects[0].BillableHours, 0.001)

	// Re-applying over the same key updates in place rather than duplicating
	_, err = s.adjustments.ApplyAdjustment(ctx, billingapp.ApplyAdjustmentCommand{
		TenantID:      tenant.ID,
		UserID:        user.ID,
		ProjectID:     proj.ID,
		StartDate:     mustDate(t, "2026-03-02"),
		EndDate:       mustDate(t, "2026-03-08"),
		BillableHours: decimal.NewFromInt(10),
		Reason:        "further reduction",
	})
	require.NoError(t, err)

	list, err := s.adjustments.ListAdjustments(ctx, tenant.ID, billing.AdjustmentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.InDelta(t, 10.0, list[0].AdjustedBillableHours, 0.001)

	// Each applied adjustment left an event in the outbox
	pending, err := s.outboxRepo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, pending)
	assert.Equal(t, billing.EventTypeAdjustmentApplied, pending[0].EventType)
}

func TestBillingFlow_DraftTimesheetExcluded(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	s := newBillingServices(t, tdb)
	ctx := context.Background()

	tenant := seedTenant(t, s, "Acme Consulting", "acme")

	proj, err := project.NewProject(tenant.ID, "Internal Tools", "INT-01")
	require.NoError(t, err)
	require.NoError(t, s.projectRepo.Save(ctx, proj))

	// Approved week contributes, draft week does not
	s.seedApprovedWeek(t, tenant.ID, proj.ID, "approved@acme.example.com", 8, "2026-03-02")

	draftUser, err := identity.NewUser(tenant.ID, "draft@acme.example.com", "Draft User", "s3cret-pass-123", identity.RoleMember)
	require.NoError(t, err)
	require.NoError(t, s.userRepo.Save(ctx, draftUser))

	weekStart := mustDate(t, "2026-03-02")
	draftSheet, err := timesheet.NewTimesheet(tenant.ID, draftUser.ID, weekStart, weekStart.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.NoError(t, s.timesheetRepo.Save(ctx, draftSheet))
	entry, err := timesheet.NewTimeEntry(tenant.ID, draftSheet.ID, draftUser.ID, proj.ID, weekStart, decimal.NewFromInt(8))
	require.NoError(t, err)
	require.NoError(t, s.entryRepo.Save(ctx, entry))

	view, err := s.views.GetProjectBillingView(ctx, billingapp.ProjectViewQuery{
		TenantID:  tenant.ID,
		StartDate: mustDate(t, "2026-03-01"),
		EndDate:   mustDate(t, "2026-03-31"),
	})
	require.NoError(t, err)
	require.Len(t, view.Projects, 1)
	assert.InDelta(t, 8.0, view.Projects[0].TotalHours, 0.001)
	require.Len(t, view.Projects[0].Resources, 1)
}

func TestBillingFlow_AllocationDistributesTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	s := newBillingServices(t, tdb)
	ctx := context.Background()

	tenant := seedTenant(t, s, "Acme Consulting", "acme")

	proj, err := project.NewProject(tenant.ID, "Fixed Bid Migration", "MIG-01")
	require.NoError(t, err)
	require.NoError(t, s.projectRepo.Save(ctx, proj))

	// Two resources: 12h and 4h of approved work
	heavy := s.seedApprovedWeek(t, tenant.ID, proj.ID, "heavy@acme.example.com", 4, "2026-03-02", "2026-03-03", "2026-03-04")
	light := s.seedApprovedWeek(t, tenant.ID, proj.ID, "light@acme.example.com", 4, "2026-03-05")

	outcome, err := s.allocation.UpdateProjectBillableTotal(ctx, billingapp.UpdateBillableTotalCommand{
		TenantID:    tenant.ID,
		ProjectID:   proj.ID,
		StartDate:   mustDate(t, "2026-03-01"),
		EndDate:     mustDate(t, "2026-03-31"),
		TargetHours: decimal.NewFromInt(8),
		Reason:      "fixed bid cap",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.MembersUpdated)

	// 8h target over a 12:4 split allocates proportionally
	heavyOverride, err := s.adjustments.ResolveOverride(ctx, tenant.ID, heavy.ID, proj.ID,
		mustPeriod(t, "2026-03-01", "2026-03-31"))
	require.NoError(t, err)
	require.NotNil(t, heavyOverride)
	assert.InDelta(t, 6.0, toF(*heavyOverride), 0.01)

	lightOverride, err := s.adjustments.ResolveOverride(ctx, tenant.ID, light.ID, proj.ID,
		mustPeriod(t, "2026-03-01", "2026-03-31"))
	require.NoError(t, err)
	require.NotNil(t, lightOverride)
	assert.InDelta(t, 2.0, toF(*lightOverride), 0.01)
}

func TestBillingFlow_RateRuleBeatsDefault(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	s := newBillingServices(t, tdb)
	ctx := context.Background()

	tenant := seedTenant(t, s, "Acme Consulting", "acme")

	proj, err := project.NewProject(tenant.ID, "Premium Support", "SUP-01")
	require.NoError(t, err)
	require.NoError(t, s.projectRepo.Save(ctx, proj))

	rate, err := billing.NewRate(tenant.ID, decimal.NewFromInt(150), mustDate(t, "2026-01-01"))
	require.NoError(t, err)
	require.NoError(t, s.rateRepo.Save(ctx, rate.ForProject(proj.ID)))

	s.seedApprovedWeek(t, tenant.ID, proj.ID, "rated@acme.example.com", 8, "2026-03-02")

	view, err := s.views.GetProjectBillingView(ctx, billingapp.ProjectViewQuery{
		TenantID:  tenant.ID,
		StartDate: mustDate(t, "2026-03-01"),
		EndDate:   mustDate(t, "2026-03-31"),
	})
	require.NoError(t, err)
	require.Len(t, view.Projects, 1)
	assert.InDelta(t, 1200.0, view.Projects[0].TotalAmount, 0.001)
}

func toF(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
