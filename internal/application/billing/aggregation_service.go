package billing

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/project"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
	"github.com/timebill/backend/internal/domain/timesheet"
	"go.uber.org/zap"
)

// AggregationQuery selects the entries to aggregate. Empty id slices mean
// no constraint on that dimension; the date range is inclusive on both ends.
type AggregationQuery struct {
	TenantID      uuid.UUID
	ProjectIDs    []uuid.UUID
	ClientIDs     []uuid.UUID
	Period        valueobject.Period
	IncludeWeekly bool
}

// TaskAggregate is the per-task stage of the aggregation pipeline
type TaskAggregate struct {
	Key           string
	Name          string
	TotalHours    decimal.Decimal
	BillableHours decimal.Decimal
}

// NonBillableHours returns the task's non-billable remainder, never negative
func (t *TaskAggregate) NonBillableHours() decimal.Decimal {
	return nonNegative(t.TotalHours.Sub(t.BillableHours))
}

// WeeklyBucket is one week of a resource's entries on a project. Weeks
// start on Sunday.
type WeeklyBucket struct {
	Week          valueobject.Period
	TotalHours    decimal.Decimal
	BillableHours decimal.Decimal
}

// ResourceAggregate is the per-user stage of the aggregation pipeline
type ResourceAggregate struct {
	UserID        uuid.UUID
	TotalHours    decimal.Decimal
	BillableHours decimal.Decimal
	Tasks         []*TaskAggregate
	Weekly        []*WeeklyBucket

	taskIndex map[string]*TaskAggregate
	weekIndex map[string]*WeeklyBucket
}

// NonBillableHours returns the resource's non-billable remainder, never negative
func (r *ResourceAggregate) NonBillableHours() decimal.Decimal {
	return nonNegative(r.TotalHours.Sub(r.BillableHours))
}

// ProjectAggregate is the per-project stage of the aggregation pipeline
type ProjectAggregate struct {
	Project       *project.Project
	TotalHours    decimal.Decimal
	BillableHours decimal.Decimal
	Resources     []*ResourceAggregate

	resourceIndex map[uuid.UUID]*ResourceAggregate
}

// NonBillableHours returns the project's non-billable remainder, never negative
func (p *ProjectAggregate) NonBillableHours() decimal.Decimal {
	return nonNegative(p.TotalHours.Sub(p.BillableHours))
}

// AggregationService groups eligible time entries into per-project,
// per-resource, and per-task buckets with total and billable hour sums.
// Only entries whose owning timesheet is in a billing-eligible status enter
// the aggregation; the status gate is part of the repository query and is
// applied on every run.
type AggregationService struct {
	projectRepo project.ProjectRepository
	entryRepo   timesheet.TimeEntryRepository
	logger      *zap.Logger
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(
	projectRepo project.ProjectRepository,
	entryRepo timesheet.TimeEntryRepository,
	logger *zap.Logger,
) *AggregationService {
	return &AggregationService{
		projectRepo: projectRepo,
		entryRepo:   entryRepo,
		logger:      logger,
	}
}

// AggregateProjects runs the pipeline for the matched projects. An empty
// project match or an empty date range yields an empty result, not an
// error. Entries are read in one pass; grouping preserves the query's
// stable encounter order, which downstream tie-breaks depend on.
func (s *AggregationService) AggregateProjects(ctx context.Context, query AggregationQuery) ([]*ProjectAggregate, error) {
	projects, err := s.projectRepo.FindForBilling(ctx, query.TenantID, query.ProjectIDs, query.ClientIDs)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return []*ProjectAggregate{}, nil
	}

	projectIDs := make([]uuid.UUID, len(projects))
	aggregates := make(map[uuid.UUID]*ProjectAggregate, len(projects))
	order := make([]*ProjectAggregate, 0, len(projects))
	for i, p := range projects {
		projectIDs[i] = p.ID
		agg := &ProjectAggregate{
			Project:       p,
			resourceIndex: make(map[uuid.UUID]*ResourceAggregate),
		}
		aggregates[p.ID] = agg
		order = append(order, agg)
	}

	filter := timesheet.EligibleEntryFilter{ProjectIDs: projectIDs}.
		WithDateRange(query.Period.Start(), query.Period.End())
	entries, err := s.entryRepo.FindEligible(ctx, query.TenantID, filter)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		agg, ok := aggregates[entry.ProjectID]
		if !ok {
			continue
		}
		s.accumulate(agg, entry, query.IncludeWeekly)
	}

	for _, agg := range order {
		for _, resource := range agg.Resources {
			sortTasksByHours(resource.Tasks)
			sortWeeksByStart(resource.Weekly)
		}
	}

	s.logger.Debug("aggregated billing projects",
		zap.String("tenant_id", query.TenantID.String()),
		zap.Int("projects", len(order)),
		zap.Int("entries", len(entries)))

	return order, nil
}

// AggregateUserProject aggregates a single user's entries on one project,
// reusing the same eligibility gate and billable formula as the full run
func (s *AggregationService) AggregateUserProject(ctx context.Context, tenantID, userID, projectID uuid.UUID, period valueobject.Period) (*ResourceAggregate, error) {
	filter := timesheet.EligibleEntryFilter{
		ProjectIDs: []uuid.UUID{projectID},
		UserID:     &userID,
	}.WithDateRange(period.Start(), period.End())

	entries, err := s.entryRepo.FindEligible(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	resource := newResourceAggregate(userID)
	for _, entry := range entries {
		accumulateResource(resource, entry, false)
	}
	sortTasksByHours(resource.Tasks)
	return resource, nil
}

func (s *AggregationService) accumulate(agg *ProjectAggregate, entry *timesheet.TimeEntry, includeWeekly bool) {
	resource, ok := agg.resourceIndex[entry.UserID]
	if !ok {
		resource = newResourceAggregate(entry.UserID)
		agg.resourceIndex[entry.UserID] = resource
		agg.Resources = append(agg.Resources, resource)
	}

	accumulateResource(resource, entry, includeWeekly)
	agg.TotalHours = agg.TotalHours.Add(entry.Hours)
	agg.BillableHours = agg.BillableHours.Add(entry.BillableContribution())
}

func newResourceAggregate(userID uuid.UUID) *ResourceAggregate {
	return &ResourceAggregate{
		UserID:    userID,
		taskIndex: make(map[string]*TaskAggregate),
		weekIndex: make(map[string]*WeeklyBucket),
	}
}

func accumulateResource(resource *ResourceAggregate, entry *timesheet.TimeEntry, includeWeekly bool) {
	billable := entry.BillableContribution()
	resource.TotalHours = resource.TotalHours.Add(entry.Hours)
	resource.BillableHours = resource.BillableHours.Add(billable)

	key := entry.TaskKey()
	task, ok := resource.taskIndex[key]
	if !ok {
		task = &TaskAggregate{Key: key, Name: entry.TaskDisplayName()}
		resource.taskIndex[key] = task
		resource.Tasks = append(resource.Tasks, task)
	}
	task.TotalHours = task.TotalHours.Add(entry.Hours)
	task.BillableHours = task.BillableHours.Add(billable)

	if includeWeekly {
		week := valueobject.WeekOf(entry.EntryDate)
		weekKey := week.Start().Format("2006-01-02")
		bucket, ok := resource.weekIndex[weekKey]
		if !ok {
			bucket = &WeeklyBucket{Week: week}
			resource.weekIndex[weekKey] = bucket
			resource.Weekly = append(resource.Weekly, bucket)
		}
		bucket.TotalHours = bucket.TotalHours.Add(entry.Hours)
		bucket.BillableHours = bucket.BillableHours.Add(billable)
	}
}

// sortTasksByHours orders task buckets by total hours descending. The sort
// is stable: tasks with equal totals keep their encounter order.
func sortTasksByHours(tasks []*TaskAggregate) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].TotalHours.GreaterThan(tasks[j].TotalHours)
	})
}

func sortWeeksByStart(weeks []*WeeklyBucket) {
	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].Week.Start().Before(weeks[j].Week.Start())
	})
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
