package projects

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
)

func projectsOf(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("projects", scope.Projects.Predicate(actor)).And(preds...)
}

func (s *Service) tasksOf(projects report.Source, preds ...*entsql.Predicate) report.Source {
	return report.From("tasks", entsql.In("project_id", s.engine.Subquery(projects, "id"))).And(preds...)
}

// overdue restricts tasks to open ones due before today.
func overdue(today models.Date) []*entsql.Predicate {
	return []*entsql.Predicate{
		entsql.LT("due_date", today.Time),
		entsql.In("status", openStatuses...),
	}
}

// Dashboard is the project overview of one actor.
type Dashboard struct {
	TotalProjects    int64         `json:"total_projects"`
	ProjectsByStatus report.Counts `json:"projects_by_status"`
	MyAssignedTasks  int64         `json:"my_assigned_tasks"`
	OverdueTasks     int64         `json:"overdue_tasks"`
}

// Dashboard counts the projects visible to actor and the tasks assigned
// to them.
func (s *Service) Dashboard(ctx context.Context, actor scope.Actor) (*Dashboard, error) {
	var (
		out Dashboard
		err error
	)
	if out.ProjectsByStatus, err = s.engine.CountBy(ctx, projectsOf(actor), "status", projectStatuses); err != nil {
		return nil, fmt.Errorf("failed to count projects by status: %w", err)
	}
	out.TotalProjects = out.ProjectsByStatus.Total()

	mine := report.From("tasks", entsql.EQ("assigned_to_id", actor.UserID))
	if out.MyAssignedTasks, err = s.engine.Count(ctx, mine); err != nil {
		return nil, fmt.Errorf("failed to count assigned tasks: %w", err)
	}
	if out.OverdueTasks, err = s.engine.Count(ctx, mine.And(overdue(s.today())...)); err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	return &out, nil
}

// Completion splits projects by how far they got.
type Completion struct {
	Completed  int64 `json:"completed"`
	InProgress int64 `json:"in_progress"`
	// Delayed projects passed their end date while new or in progress.
	Delayed int64 `json:"delayed"`
}

// ProjectsSummary is the project part of Reports.
type ProjectsSummary struct {
	Total        int64         `json:"total_projects"`
	ByStatus     report.Counts `json:"by_status"`
	ByCompletion Completion    `json:"by_completion"`
}

// TasksSummary is the task part of Reports.
type TasksSummary struct {
	Total      int64         `json:"total_tasks"`
	ByStatus   report.Counts `json:"by_status"`
	ByPriority report.Counts `json:"by_priority"`
	Overdue    int64         `json:"overdue_tasks"`
}

// MemberWorkload is the open work of one team member.
type MemberWorkload struct {
	User              models.UserSummary `json:"user"`
	TotalTasks        int64              `json:"total_tasks"`
	EstimatedHours    decimal.Decimal    `json:"estimated_hours"`
	HighPriorityTasks int64              `json:"high_priority_tasks"`
}

// ProjectProgress is the completion share of one project.
type ProjectProgress struct {
	ProjectID uint    `json:"project_id"`
	Name      string  `json:"name"`
	Progress  float64 `json:"progress"`
}

// Reports covers the projects running within an optional date range.
type Reports struct {
	Range    report.Range      `json:"range"`
	Projects ProjectsSummary   `json:"projects_summary"`
	Tasks    TasksSummary      `json:"tasks_summary"`
	Workload []MemberWorkload  `json:"team_workload"`
	Progress []ProjectProgress `json:"project_progress"`
}

// Reports summarizes the projects visible to actor that start and end
// within rng, their tasks and the workload of everyone on them.
func (s *Service) Reports(ctx context.Context, actor scope.Actor, rng report.Range) (*Reports, error) {
	projects := projectsOf(actor, rng.Spanning("start_date", "end_date")...)
	tasks := s.tasksOf(projects)
	today := s.today()
	out := Reports{Range: rng}
	var err error

	if out.Projects.ByStatus, err = s.engine.CountBy(ctx, projects, "status", projectStatuses); err != nil {
		return nil, fmt.Errorf("failed to count projects by status: %w", err)
	}
	out.Projects.Total = out.Projects.ByStatus.Total()
	out.Projects.ByCompletion = Completion{
		Completed:  out.Projects.ByStatus[string(models.ProjectStatusCompleted)],
		InProgress: out.Projects.ByStatus[string(models.ProjectStatusInProgress)],
	}
	delayed := projects.And(
		entsql.LT("end_date", today.Time),
		entsql.In("status", string(models.ProjectStatusNew), string(models.ProjectStatusInProgress)),
	)
	if out.Projects.ByCompletion.Delayed, err = s.engine.Count(ctx, delayed); err != nil {
		return nil, fmt.Errorf("failed to count delayed projects: %w", err)
	}

	if out.Tasks.ByStatus, err = s.engine.CountBy(ctx, tasks, "status", taskStatuses); err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	out.Tasks.Total = out.Tasks.ByStatus.Total()
	if out.Tasks.ByPriority, err = s.engine.CountBy(ctx, tasks, "priority", taskPriorities); err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}
	if out.Tasks.Overdue, err = s.engine.Count(ctx, tasks.And(overdue(today)...)); err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	people, err := s.teamOf(ctx, projects)
	if err != nil {
		return nil, err
	}
	if out.Workload, err = s.teamWorkload(ctx, people); err != nil {
		return nil, err
	}
	if out.Progress, err = s.projectProgress(ctx, projects); err != nil {
		return nil, err
	}
	return &out, nil
}

// teamOf returns the ids of the managers and members of projects.
func (s *Service) teamOf(ctx context.Context, projects report.Source) ([]uint, error) {
	managers, err := s.engine.Distinct(ctx, projects, "manager_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list project managers: %w", err)
	}
	links := report.From("project_members", entsql.In("project_id", s.engine.Subquery(projects, "id")))
	members, err := s.engine.Distinct(ctx, links, "user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}

	seen := make(map[uint]bool)
	var ids []uint
	for _, id := range append(managers, members...) {
		if !seen[uint(id)] {
			seen[uint(id)] = true
			ids = append(ids, uint(id))
		}
	}
	return ids, nil
}

// teamWorkload counts the open tasks of each user across every project,
// ordered by username.
func (s *Service) teamWorkload(ctx context.Context, userIDs []uint) ([]MemberWorkload, error) {
	out := make([]MemberWorkload, 0, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	users, err := s.users(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	open := report.From("tasks", entsql.In("assigned_to_id", ids(userIDs)...), entsql.In("status", openStatuses...))
	groups, err := s.engine.Group(ctx, open, "assigned_to_id", "estimated_hours")
	if err != nil {
		return nil, fmt.Errorf("failed to sum open tasks: %w", err)
	}
	high, err := s.engine.Group(ctx, open.And(entsql.EQ("priority", string(models.TaskPriorityHigh))), "assigned_to_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count high priority tasks: %w", err)
	}
	byUser := indexGroups(groups)
	highByUser := indexGroups(high)

	for _, u := range users {
		g := byUser[u.ID]
		out = append(out, MemberWorkload{
			User:              u.Summary(),
			TotalTasks:        g.Count,
			EstimatedHours:    g.Sum(0),
			HighPriorityTasks: highByUser[u.ID].Count,
		})
	}
	return out, nil
}

func (s *Service) projectProgress(ctx context.Context, projects report.Source) ([]ProjectProgress, error) {
	all, err := s.engine.Group(ctx, s.tasksOf(projects), "project_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count project tasks: %w", err)
	}
	done, err := s.engine.Group(ctx, s.tasksOf(projects, entsql.EQ("status", string(models.TaskStatusCompleted))), "project_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	totals, completed := indexGroups(all), indexGroups(done)

	out := make([]ProjectProgress, 0)
	sel := s.engine.Select(projects, "id", "name").OrderBy("id")
	err = s.engine.Query(ctx, sel, func(rows *sql.Rows) error {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		pid := uint(id)
		out = append(out, ProjectProgress{
			ProjectID: pid,
			Name:      name,
			Progress:  report.Rate(completed[pid].Count, totals[pid].Count),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return out, nil
}

// ProjectInfo heads a timeline.
type ProjectInfo struct {
	ID        uint                 `json:"id"`
	Name      string               `json:"name"`
	StartDate models.Date          `json:"start_date"`
	EndDate   models.Date          `json:"end_date"`
	Status    models.ProjectStatus `json:"status"`
	Progress  float64              `json:"progress"`
}

// TimelineTask is one bar of a timeline.
type TimelineTask struct {
	ID         uint                `json:"id"`
	Title      string              `json:"title"`
	Status     models.TaskStatus   `json:"status"`
	Priority   models.TaskPriority `json:"priority"`
	StartDate  models.Date         `json:"start_date"`
	DueDate    models.Date         `json:"due_date"`
	AssignedTo *models.UserSummary `json:"assigned_to"`
	IsOverdue  bool                `json:"is_overdue"`
}

// Timeline is a project with its tasks in start order.
type Timeline struct {
	Project ProjectInfo    `json:"project_info"`
	Tasks   []TimelineTask `json:"tasks_timeline"`
}

// Timeline lays out the tasks of a project. Only admins and the project
// manager may see it.
func (s *Service) Timeline(ctx context.Context, actor scope.Actor, projectID uint) (*Timeline, error) {
	db := s.db.WithContext(ctx)
	var p models.Project
	if err := db.First(&p, projectID).Error; err != nil {
		return nil, database.Translate(err, resourceProject)
	}
	if !actor.Elevated() && p.ManagerID != actor.UserID {
		return nil, domain.NewForbiddenError("you do not have permission to view this project")
	}

	progress, err := s.progress(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	if err := db.Preload("AssignedTo").Where("project_id = ?", p.ID).Order("start_date ASC").Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}

	today := s.today()
	out := Timeline{
		Project: ProjectInfo{
			ID:        p.ID,
			Name:      p.Name,
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
			Status:    p.Status,
			Progress:  progress,
		},
		Tasks: make([]TimelineTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		tt := TimelineTask{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			Priority:  t.Priority,
			StartDate: t.StartDate,
			DueDate:   t.DueDate,
			IsOverdue: t.IsOverdue(today),
		}
		if t.AssignedTo != nil {
			u := t.AssignedTo.Summary()
			tt.AssignedTo = &u
		}
		out.Tasks = append(out.Tasks, tt)
	}
	return &out, nil
}

// TeamOverview counts the tasks of a team.
type TeamOverview struct {
	TotalTasks     int64 `json:"total_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	OverdueTasks   int64 `json:"overdue_tasks"`
}

// MemberPerformance is the task record of one assignee.
type MemberPerformance struct {
	User           models.UserSummary `json:"user"`
	TotalTasks     int64              `json:"total_tasks"`
	CompletedTasks int64              `json:"completed_tasks"`
	OverdueTasks   int64              `json:"overdue_tasks"`
	CompletionRate float64            `json:"completion_rate"`
}

// Productivity measures how fast and how completely work gets done.
type Productivity struct {
	// AverageCompletionTime is in whole days from start date to completion.
	AverageCompletionTime float64 `json:"average_completion_time"`
	TaskCompletionRate    float64 `json:"task_completion_rate"`
}

// TeamPerformance reports on the tasks of a team.
type TeamPerformance struct {
	Overview     TeamOverview        `json:"team_overview"`
	Individuals  []MemberPerformance `json:"individual_performance"`
	Productivity Productivity        `json:"productivity_metrics"`
}

// TeamPerformance reports on the tasks of projects visible to actor that
// start and fall due within rng, narrowed to the given assignees when any
// are given.
func (s *Service) TeamPerformance(ctx context.Context, actor scope.Actor, members []uint, rng report.Range) (*TeamPerformance, error) {
	tasks := s.tasksOf(projectsOf(actor), rng.Spanning("start_date", "due_date")...)
	if len(members) > 0 {
		tasks = tasks.And(entsql.In("assigned_to_id", ids(members)...))
	}
	completed := tasks.And(entsql.EQ("status", string(models.TaskStatusCompleted)))
	late := tasks.And(overdue(s.today())...)
	out := TeamPerformance{}
	var err error

	if out.Overview.TotalTasks, err = s.engine.Count(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	if out.Overview.CompletedTasks, err = s.engine.Count(ctx, completed); err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	if out.Overview.OverdueTasks, err = s.engine.Count(ctx, late); err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	if out.Individuals, err = s.individuals(ctx, tasks, completed, late); err != nil {
		return nil, err
	}

	spans, err := s.engine.Spans(ctx, completed, "", "start_date", "completed_at")
	if err != nil {
		return nil, fmt.Errorf("failed to load completion times: %w", err)
	}
	var days float64
	for _, d := range spans[""] {
		days += math.Max(0, math.Floor(d))
	}
	out.Productivity = Productivity{
		AverageCompletionTime: report.Ratio(days, float64(out.Overview.CompletedTasks)),
		TaskCompletionRate:    report.Rate(out.Overview.CompletedTasks, out.Overview.TotalTasks),
	}
	return &out, nil
}

func (s *Service) individuals(ctx context.Context, tasks, completed, late report.Source) ([]MemberPerformance, error) {
	assigned := entsql.NotNull("assigned_to_id")
	all, err := s.engine.Group(ctx, tasks.And(assigned), "assigned_to_id")
	if err != nil {
		return nil, fmt.Errorf("failed to group tasks by assignee: %w", err)
	}
	done, err := s.engine.Group(ctx, completed.And(assigned), "assigned_to_id")
	if err != nil {
		return nil, fmt.Errorf("failed to group completed tasks: %w", err)
	}
	overdueBy, err := s.engine.Group(ctx, late.And(assigned), "assigned_to_id")
	if err != nil {
		return nil, fmt.Errorf("failed to group overdue tasks: %w", err)
	}

	userIDs := make([]uint, 0, len(all))
	for _, g := range all {
		userIDs = append(userIDs, g.ID())
	}
	users, err := s.users(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	totals, doneBy, lateBy := indexGroups(all), indexGroups(done), indexGroups(overdueBy)

	out := make([]MemberPerformance, 0, len(users))
	for _, u := range users {
		total, finished := totals[u.ID].Count, doneBy[u.ID].Count
		out = append(out, MemberPerformance{
			User:           u.Summary(),
			TotalTasks:     total,
			CompletedTasks: finished,
			OverdueTasks:   lateBy[u.ID].Count,
			CompletionRate: report.Rate(finished, total),
		})
	}
	return out, nil
}

// Workload is the open work of one user.
type Workload struct {
	User                models.UserSummary `json:"user"`
	ActiveTasks         int64              `json:"active_tasks_count"`
	TotalEstimatedHours decimal.Decimal    `json:"total_estimated_hours"`
	HighPriorityTasks   int64              `json:"high_priority_tasks"`
	OverdueTasks        int64              `json:"overdue_tasks"`
}

// Workload reports the open tasks of a user that are not yet due and the
// overdue ones. Users see their own workload; admins and managers see
// anyone's.
func (s *Service) Workload(ctx context.Context, actor scope.Actor, userID uint) (*Workload, error) {
	if actor.UserID != userID && !actor.Elevated() && actor.Role != models.RoleManager {
		return nil, domain.NewForbiddenError("you can only view your own workload")
	}
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return nil, database.Translate(err, resourceUser)
	}

	today := s.today()
	assigned := report.From("tasks", entsql.EQ("assigned_to_id", userID))
	active := assigned.And(entsql.In("status", openStatuses...), entsql.GTE("due_date", today.Time))
	out := Workload{User: u.Summary()}

	totals, err := s.engine.Totals(ctx, active, "estimated_hours")
	if err != nil {
		return nil, fmt.Errorf("failed to sum active tasks: %w", err)
	}
	out.ActiveTasks, out.TotalEstimatedHours = totals.Count, totals.Sum
	if out.HighPriorityTasks, err = s.engine.Count(ctx, active.And(entsql.EQ("priority", string(models.TaskPriorityHigh)))); err != nil {
		return nil, fmt.Errorf("failed to count high priority tasks: %w", err)
	}
	if out.OverdueTasks, err = s.engine.Count(ctx, assigned.And(overdue(today)...)); err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	return &out, nil
}

// users loads users by id, ordered by username.
func (s *Service) users(ctx context.Context, userIDs []uint) ([]models.User, error) {
	users := make([]models.User, 0, len(userIDs))
	if len(userIDs) == 0 {
		return users, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func indexGroups(groups []report.Group) map[uint]report.Group {
	out := make(map[uint]report.Group, len(groups))
	for _, g := range groups {
		out[g.ID()] = g
	}
	return out
}

func ids(values []uint) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
