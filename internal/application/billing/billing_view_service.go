package billing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/billing"
	"github.com/timebill/backend/internal/domain/identity"
	"github.com/timebill/backend/internal/domain/project"
	"github.com/timebill/backend/internal/domain/shared/valueobject"
	"github.com/timebill/backend/internal/domain/timesheet"
	"go.uber.org/zap"
)

// ProjectViewQuery selects the project-centric billing view
type ProjectViewQuery struct {
	TenantID   uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
	ProjectIDs []uuid.UUID
	ClientIDs  []uuid.UUID
	View       string
}

// UserViewQuery selects the user-centric billing view
type UserViewQuery struct {
	TenantID   uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
	ProjectIDs []uuid.UUID
	ClientIDs  []uuid.UUID
	Roles      []string
	Search     string
	View       string
}

// TaskViewQuery selects the task-centric billing view. Nil dates leave that
// side of the range open.
type TaskViewQuery struct {
	TenantID   uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	ProjectIDs []uuid.UUID
	TaskIDs    []uuid.UUID
}

// ViewService composes aggregation, adjustment overrides, and rate
// resolution into the three billing read shapes. The project and user views
// substitute a containing adjustment's hours for the aggregated billable
// hours; the task view deliberately reports raw eligible entries only and
// never consults adjustments. That asymmetry is inherited product behavior,
// kept pending product clarification.
type ViewService struct {
	aggregation    *AggregationService
	adjustmentRepo billing.BillingAdjustmentRepository
	rates          *RateService
	userRepo       identity.UserRepository
	projectRepo    project.ProjectRepository
	clientRepo     project.ClientRepository
	entryRepo      timesheet.TimeEntryRepository
	logger         *zap.Logger
	now            func() time.Time
}

// NewViewService creates a new billing view service
func NewViewService(
	aggregation *AggregationService,
	adjustmentRepo billing.BillingAdjustmentRepository,
	rates *RateService,
	userRepo identity.UserRepository,
	projectRepo project.ProjectRepository,
	clientRepo project.ClientRepository,
	entryRepo timesheet.TimeEntryRepository,
	logger *zap.Logger,
) *ViewService {
	return &ViewService{
		aggregation:    aggregation,
		adjustmentRepo: adjustmentRepo,
		rates:          rates,
		userRepo:       userRepo,
		projectRepo:    projectRepo,
		clientRepo:     clientRepo,
		entryRepo:      entryRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// GetProjectBillingView assembles the project-centric view. Each resource's
// final billable hours are the containing adjustment's value when one
// exists, the aggregated value otherwise; amounts are billable × effective
// rate, and project amounts are sums of their resources, never recomputed
// from a blended rate.
func (s *ViewService) GetProjectBillingView(ctx context.Context, query ProjectViewQuery) (*ProjectBillingViewDTO, error) {
	period, err := valueobject.NewPeriod(query.StartDate, query.EndDate)
	if err != nil {
		return nil, err
	}

	aggregates, err := s.aggregation.AggregateProjects(ctx, AggregationQuery{
		TenantID:      query.TenantID,
		ProjectIDs:    query.ProjectIDs,
		ClientIDs:     query.ClientIDs,
		Period:        period,
		IncludeWeekly: query.View == ViewWeekly,
	})
	if err != nil {
		return nil, err
	}

	users, err := s.lookupUsers(ctx, query.TenantID, aggregates)
	if err != nil {
		return nil, err
	}
	clients, err := s.lookupClients(ctx, query.TenantID, aggregates)
	if err != nil {
		return nil, err
	}

	view := &ProjectBillingViewDTO{
		Projects: make([]ProjectBillingDTO, 0, len(aggregates)),
		Period:   PeriodDTO{StartDate: formatDate(period.Start()), EndDate: formatDate(period.End())},
	}

	for _, agg := range aggregates {
		projectDTO, err := s.assembleProject(ctx, query.TenantID, agg, period, users, clients, query.View == ViewWeekly)
		if err != nil {
			return nil, err
		}
		view.Projects = append(view.Projects, *projectDTO)
		view.Summary.TotalHours += projectDTO.TotalHours
		view.Summary.TotalBillableHours += projectDTO.BillableHours
		view.Summary.TotalAmount += projectDTO.TotalAmount
	}

	return view, nil
}

func (s *ViewService) assembleProject(
	ctx context.Context,
	tenantID uuid.UUID,
	agg *ProjectAggregate,
	period valueobject.Period,
	users map[uuid.UUID]*identity.User,
	clients map[uuid.UUID]*project.Client,
	includeWeekly bool,
) (*ProjectBillingDTO, error) {
	overrides, err := s.adjustmentRepo.FindOverridesForPeriod(ctx, tenantID, agg.Project.ID, period)
	if err != nil {
		return nil, err
	}

	dto := &ProjectBillingDTO{
		ProjectID:   agg.Project.ID,
		ProjectName: agg.Project.Name,
		ClientID:    agg.Project.ClientID,
		Resources:   make([]ResourceBillingDTO, 0, len(agg.Resources)),
	}
	if agg.Project.ClientID != nil {
		if client, ok := clients[*agg.Project.ClientID]; ok {
			dto.ClientName = client.Name
		}
	}

	totalBillable := decimal.Zero
	totalAmount := decimal.Zero
	for _, resource := range agg.Resources {
		resourceDTO := s.assembleResource(ctx, agg.Project, resource, overrides, users, includeWeekly)
		dto.Resources = append(dto.Resources, resourceDTO)
		totalBillable = totalBillable.Add(decimal.NewFromFloat(resourceDTO.BillableHours))
		totalAmount = totalAmount.Add(decimal.NewFromFloat(resourceDTO.TotalAmount))
	}

	dto.TotalHours = toFloat64(agg.TotalHours)
	dto.BillableHours = toFloat64(totalBillable)
	dto.NonBillableHours = toFloat64(nonNegative(agg.TotalHours.Sub(totalBillable)))
	dto.TotalAmount = toFloat64(totalAmount)
	return dto, nil
}

func (s *ViewService) assembleResource(
	ctx context.Context,
	proj *project.Project,
	resource *ResourceAggregate,
	overrides map[uuid.UUID]decimal.Decimal,
	users map[uuid.UUID]*identity.User,
	includeWeekly bool,
) ResourceBillingDTO {
	finalBillable := resource.BillableHours
	adjusted := false
	if override, ok := overrides[resource.UserID]; ok {
		finalBillable = override
		adjusted = true
	}

	var userName, role string
	if user, ok := users[resource.UserID]; ok {
		userName = user.Name
		role = user.Role.String()
	}

	rate := s.resolveRate(ctx, proj, resource.UserID, role, finalBillable)
	amount := finalBillable.Mul(rate)

	dto := ResourceBillingDTO{
		UserID:           resource.UserID,
		UserName:         userName,
		Role:             role,
		TotalHours:       toFloat64(resource.TotalHours),
		BillableHours:    toFloat64(finalBillable),
		NonBillableHours: toFloat64(nonNegative(resource.TotalHours.Sub(finalBillable))),
		HourlyRate:       toFloat64(rate),
		TotalAmount:      toFloat64(amount),
		Adjusted:         adjusted,
		Tasks:            make([]TaskBillingDTO, 0, len(resource.Tasks)),
	}

	for _, task := range resource.Tasks {
		dto.Tasks = append(dto.Tasks, TaskBillingDTO{
			TaskID:           task.Key,
			TaskName:         task.Name,
			TotalHours:       toFloat64(task.TotalHours),
			BillableHours:    toFloat64(task.BillableHours),
			NonBillableHours: toFloat64(task.NonBillableHours()),
			Amount:           toFloat64(task.BillableHours.Mul(rate)),
		})
	}

	if includeWeekly {
		dto.WeeklyBreakdown = make([]WeeklyBucketDTO, 0, len(resource.Weekly))
		for _, bucket := range resource.Weekly {
			dto.WeeklyBreakdown = append(dto.WeeklyBreakdown, WeeklyBucketDTO{
				WeekStart:     formatDate(bucket.Week.Start()),
				WeekEnd:       formatDate(bucket.Week.End()),
				TotalHours:    toFloat64(bucket.TotalHours),
				BillableHours: toFloat64(bucket.BillableHours),
			})
		}
	}

	return dto
}

// resolveRate prices a user's final billable hours on a project. Resolution
// runs once per (user, project) pair against today's date; failures fall
// back to the configured default inside the rate service.
func (s *ViewService) resolveRate(ctx context.Context, proj *project.Project, userID uuid.UUID, role string, hours decimal.Decimal) decimal.Decimal {
	now := s.now()
	return s.rates.EffectiveRate(ctx, billing.RateQuery{
		TenantID:  proj.TenantID,
		UserID:    userID,
		ProjectID: proj.ID,
		ClientID:  proj.ClientOrNil(),
		Role:      role,
		Date:      now,
		Hours:     hours,
		DayOfWeek: now.Weekday(),
	})
}

// GetUserBillingView assembles the user-centric view: the project view
// pivoted to group by user, with optional role and name filters. Users and
// their nested project and task lists are sorted by billable hours
// descending.
func (s *ViewService) GetUserBillingView(ctx context.Context, query UserViewQuery) (*UserBillingViewDTO, error) {
	projectView, err := s.GetProjectBillingView(ctx, ProjectViewQuery{
		TenantID:   query.TenantID,
		StartDate:  query.StartDate,
		EndDate:    query.EndDate,
		ProjectIDs: query.ProjectIDs,
		ClientIDs:  query.ClientIDs,
		View:       query.View,
	})
	if err != nil {
		return nil, err
	}

	roleFilter := make(map[string]bool, len(query.Roles))
	for _, role := range query.Roles {
		roleFilter[strings.ToLower(strings.TrimSpace(role))] = true
	}
	search := strings.ToLower(strings.TrimSpace(query.Search))

	userIndex := make(map[uuid.UUID]*UserBillingDTO)
	order := make([]*UserBillingDTO, 0)

	for _, projectDTO := range projectView.Projects {
		for _, resource := range projectDTO.Resources {
			if len(roleFilter) > 0 && !roleFilter[strings.ToLower(resource.Role)] {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(resource.UserName), search) {
				continue
			}

			userDTO, ok := userIndex[resource.UserID]
			if !ok {
				userDTO = &UserBillingDTO{
					UserID:   resource.UserID,
					UserName: resource.UserName,
					Role:     resource.Role,
					Projects: make([]UserProjectBillingDTO, 0, 1),
				}
				userIndex[resource.UserID] = userDTO
				order = append(order, userDTO)
			}

			tasks := make([]TaskBillingDTO, len(resource.Tasks))
			copy(tasks, resource.Tasks)
			sort.SliceStable(tasks, func(i, j int) bool {
				return tasks[i].BillableHours > tasks[j].BillableHours
			})

			userDTO.Projects = append(userDTO.Projects, UserProjectBillingDTO{
				ProjectID:        projectDTO.ProjectID,
				ProjectName:      projectDTO.ProjectName,
				TotalHours:       resource.TotalHours,
				BillableHours:    resource.BillableHours,
				NonBillableHours: resource.NonBillableHours,
				HourlyRate:       resource.HourlyRate,
				TotalAmount:      resource.TotalAmount,
				Tasks:            tasks,
			})
			userDTO.TotalHours += resource.TotalHours
			userDTO.BillableHours += resource.BillableHours
			userDTO.NonBillableHours += resource.NonBillableHours
			userDTO.TotalAmount += resource.TotalAmount
		}
	}

	view := &UserBillingViewDTO{
		Users:  make([]UserBillingDTO, 0, len(order)),
		Period: projectView.Period,
	}
	for _, userDTO := range order {
		sort.SliceStable(userDTO.Projects, func(i, j int) bool {
			return userDTO.Projects[i].BillableHours > userDTO.Projects[j].BillableHours
		})
		view.Users = append(view.Users, *userDTO)
		view.Summary.TotalHours += userDTO.TotalHours
		view.Summary.TotalBillableHours += userDTO.BillableHours
		view.Summary.TotalAmount += userDTO.TotalAmount
	}
	sort.SliceStable(view.Users, func(i, j int) bool {
		return view.Users[i].BillableHours > view.Users[j].BillableHours
	})

	return view, nil
}

// taskBucket is the intermediate record of the task-view aggregation
type taskBucket struct {
	taskID    string
	name      string
	projectID uuid.UUID
	total     decimal.Decimal
	billable  decimal.Decimal
	users     []*taskUserBucket
	userIndex map[uuid.UUID]*taskUserBucket
}

type taskUserBucket struct {
	userID   uuid.UUID
	total    decimal.Decimal
	billable decimal.Decimal
}

// GetTaskBillingView assembles the task-centric view straight from raw
// eligible entries, grouped by project and task (or by description text,
// falling back to "No Description", when an entry carries no task
// reference). Adjustment overrides are not consulted on this path: the task
// view reports what was recorded and approved, never adjusted figures.
func (s *ViewService) GetTaskBillingView(ctx context.Context, query TaskViewQuery) (*TaskBillingViewDTO, error) {
	filter := timesheet.EligibleEntryFilter{
		ProjectIDs: query.ProjectIDs,
		TaskIDs:    query.TaskIDs,
		StartDate:  query.StartDate,
		EndDate:    query.EndDate,
	}

	entries, err := s.entryRepo.FindEligible(ctx, query.TenantID, filter)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*taskBucket)
	order := make([]*taskBucket, 0)
	projectIDs := make(map[uuid.UUID]bool)
	userIDs := make(map[uuid.UUID]bool)

	for _, entry := range entries {
		key, taskID, name := taskViewKey(entry)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &taskBucket{
				taskID:    taskID,
				name:      name,
				projectID: entry.ProjectID,
				userIndex: make(map[uuid.UUID]*taskUserBucket),
			}
			buckets[key] = bucket
			order = append(order, bucket)
		}

		billable := entry.BillableContribution()
		bucket.total = bucket.total.Add(entry.Hours)
		bucket.billable = bucket.billable.Add(billable)

		userBucket, ok := bucket.userIndex[entry.UserID]
		if !ok {
			userBucket = &taskUserBucket{userID: entry.UserID}
			bucket.userIndex[entry.UserID] = userBucket
			bucket.users = append(bucket.users, userBucket)
		}
		userBucket.total = userBucket.total.Add(entry.Hours)
		userBucket.billable = userBucket.billable.Add(billable)

		projectIDs[entry.ProjectID] = true
		userIDs[entry.UserID] = true
	}

	projects, err := s.projectRepo.FindByIDs(ctx, query.TenantID, keysOf(projectIDs))
	if err != nil {
		return nil, err
	}
	projectIndex := make(map[uuid.UUID]*project.Project, len(projects))
	for _, p := range projects {
		projectIndex[p.ID] = p
	}

	users, err := s.userRepo.FindByIDs(ctx, query.TenantID, keysOf(userIDs))
	if err != nil {
		return nil, err
	}
	userMap := make(map[uuid.UUID]*identity.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].total.GreaterThan(order[j].total)
	})

	view := &TaskBillingViewDTO{
		Tasks:  make([]TaskRecordDTO, 0, len(order)),
		Period: openPeriodDTO(query.StartDate, query.EndDate),
	}

	for _, bucket := range order {
		record := TaskRecordDTO{
			TaskID:           bucket.taskID,
			TaskName:         bucket.name,
			ProjectID:        bucket.projectID,
			TotalHours:       toFloat64(bucket.total),
			BillableHours:    toFloat64(bucket.billable),
			NonBillableHours: toFloat64(nonNegative(bucket.total.Sub(bucket.billable))),
			Resources:        make([]TaskResourceDTO, 0, len(bucket.users)),
		}

		proj := projectIndex[bucket.projectID]
		if proj != nil {
			record.ProjectName = proj.Name
		}

		amount := decimal.Zero
		for _, userBucket := range bucket.users {
			var userName, role string
			if user, ok := userMap[userBucket.userID]; ok {
				userName = user.Name
				role = user.Role.String()
			}

			rate := s.rates.DefaultRate()
			if proj != nil {
				rate = s.resolveRate(ctx, proj, userBucket.userID, role, userBucket.billable)
			}
			userAmount := userBucket.billable.Mul(rate)
			amount = amount.Add(userAmount)

			record.Resources = append(record.Resources, TaskResourceDTO{
				UserID:        userBucket.userID,
				UserName:      userName,
				TotalHours:    toFloat64(userBucket.total),
				BillableHours: toFloat64(userBucket.billable),
				HourlyRate:    toFloat64(rate),
				Amount:        toFloat64(userAmount),
			})
		}
		record.Amount = toFloat64(amount)

		view.Tasks = append(view.Tasks, record)
		view.Summary.TotalHours += record.TotalHours
		view.Summary.TotalBillableHours += record.BillableHours
		view.Summary.TotalAmount += record.Amount
	}

	return view, nil
}

// taskViewKey groups an entry for the task view: by task reference when one
// exists, otherwise by the entry's description text within its project
func taskViewKey(entry *timesheet.TimeEntry) (key, taskID, name string) {
	if entry.TaskID != nil {
		id := entry.TaskID.String()
		return entry.ProjectID.String() + "|task|" + id, id, entry.TaskDisplayName()
	}
	description := strings.TrimSpace(entry.Description)
	if description == "" {
		description = timesheet.NoDescriptionLabel
	}
	return entry.ProjectID.String() + "|desc|" + description, "", description
}

func (s *ViewService) lookupUsers(ctx context.Context, tenantID uuid.UUID, aggregates []*ProjectAggregate) (map[uuid.UUID]*identity.User, error) {
	seen := make(map[uuid.UUID]bool)
	for _, agg := range aggregates {
		for _, resource := range agg.Resources {
			seen[resource.UserID] = true
		}
	}

	users, err := s.userRepo.FindByIDs(ctx, tenantID, keysOf(seen))
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]*identity.User, len(users))
	for _, user := range users {
		index[user.ID] = user
	}
	return index, nil
}

func (s *ViewService) lookupClients(ctx context.Context, tenantID uuid.UUID, aggregates []*ProjectAggregate) (map[uuid.UUID]*project.Client, error) {
	seen := make(map[uuid.UUID]bool)
	for _, agg := range aggregates {
		if agg.Project.ClientID != nil {
			seen[*agg.Project.ClientID] = true
		}
	}

	clients, err := s.clientRepo.FindByIDs(ctx, tenantID, keysOf(seen))
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]*project.Client, len(clients))
	for _, client := range clients {
		index[client.ID] = client
	}
	return index, nil
}

func keysOf(set map[uuid.UUID]bool) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func openPeriodDTO(start, end *time.Time) PeriodDTO {
	dto := PeriodDTO{}
	if start != nil {
		dto.StartDate = formatDate(*start)
	}
	if end != nil {
		dto.EndDate = formatDate(*end)
	}
	return dto
}
