package projects

import (
	"context"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRequest is the payload for creating or replacing a task.
type TaskRequest struct {
	Title          string              `json:"title" validate:"required,max=200"`
	Description    string              `json:"description"`
	AssignedTo     *uint               `json:"assigned_to"`
	Status         models.TaskStatus   `json:"status" validate:"omitempty,oneof=todo in_progress review completed"`
	Priority       models.TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	StartDate      models.Date         `json:"start_date" validate:"required"`
	DueDate        models.Date         `json:"due_date" validate:"required"`
	EstimatedHours decimal.NullDecimal `json:"estimated_hours"`
	ActualHours    decimal.NullDecimal `json:"actual_hours"`
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Status     string
	Priority   string
	AssignedTo *uint
	ProjectID  *uint
}

// priorityRank sorts priorities by urgency instead of by name.
const priorityRank = "CASE tasks.priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END"

var taskListing = listing.Spec{
	Search: []string{
		listing.Like("tasks.title"),
		listing.Like("tasks.description"),
	},
	Orderings: map[string]string{
		"created_at": "tasks.created_at",
		"due_date":   "tasks.due_date",
		"priority":   priorityRank,
	},
	Default: "-created_at",
}

var assignedListing = listing.Spec{
	Search: []string{
		listing.Like("tasks.title"),
		listing.Like("tasks.description"),
		"tasks.project_id IN (SELECT id FROM projects WHERE " + listing.Like("projects.name") + ")",
	},
	Orderings: taskListing.Orderings,
	Default:   "due_date",
}

func (f TaskFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("tasks.status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("tasks.priority = ?", f.Priority)
	}
	if f.AssignedTo != nil {
		q = q.Where("tasks.assigned_to_id = ?", *f.AssignedTo)
	}
	if f.ProjectID != nil {
		q = q.Where("tasks.project_id = ?", *f.ProjectID)
	}
	return q
}

// visibleTasks restricts db to tasks of projects visible to actor.
func visibleTasks(db *gorm.DB, actor scope.Actor) *gorm.DB {
	q := db.Model(&models.Task{})
	if actor.Elevated() {
		return q
	}
	projects := scope.Projects.Apply(db.Session(&gorm.Session{NewDB: true}).Model(&models.Project{}).Select("projects.id"), actor)
	return q.Where("tasks.project_id IN (?)", projects)
}

// ListTasks returns one page of the tasks of a visible project.
func (s *Service) ListTasks(ctx context.Context, actor scope.Actor, projectID uint, filter TaskFilter, p listing.Params) (models.ListResponse[models.Task], error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findProject(db, actor, projectID); err != nil {
		return models.ListResponse[models.Task]{}, err
	}
	filter.ProjectID = &projectID
	q := filter.apply(db.Model(&models.Task{}))
	return listing.Page[models.Task](q, taskListing, p)
}

// AssignedTasks returns one page of the tasks assigned to actor.
func (s *Service) AssignedTasks(ctx context.Context, actor scope.Actor, filter TaskFilter, p listing.Params) (models.ListResponse[models.Task], error) {
	filter.AssignedTo = &actor.UserID
	q := filter.apply(s.db.WithContext(ctx).Model(&models.Task{}))
	return listing.Page[models.Task](q, assignedListing, p)
}

// GetTask returns a task of a visible project.
func (s *Service) GetTask(ctx context.Context, actor scope.Actor, id uint) (*models.Task, error) {
	return s.findTask(s.db.WithContext(ctx), actor, id)
}

func (s *Service) findTask(db *gorm.DB, actor scope.Actor, id uint) (*models.Task, error) {
	var t models.Task
	err := visibleTasks(db, actor).Preload("AssignedTo").Where("tasks.id = ?", id).First(&t).Error
	if err != nil {
		return nil, database.Translate(err, resourceTask)
	}
	return &t, nil
}

// CreateTask adds a task to a visible project.
func (s *Service) CreateTask(ctx context.Context, actor scope.Actor, projectID uint, req TaskRequest) (*models.Task, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findProject(db, actor, projectID); err != nil {
		return nil, err
	}

	t := models.Task{ProjectID: projectID}
	if err := s.applyTask(&t, req); err != nil {
		return nil, err
	}
	if err := db.Omit(clause.Associations).Create(&t).Error; err != nil {
		return nil, database.Translate(err, resourceTask)
	}

	s.log.Info("task created", "task_id", t.ID, "project_id", projectID, "user_id", actor.UserID)
	return s.findTask(db, actor, t.ID)
}

// UpdateTask replaces the fields of a task. Completing it stamps
// completed_at and reopening it clears the stamp.
func (s *Service) UpdateTask(ctx context.Context, actor scope.Actor, id uint, req TaskRequest) (*models.Task, error) {
	db := s.db.WithContext(ctx)
	t, err := s.findTask(db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyTask(t, req); err != nil {
		return nil, err
	}
	if err := db.Omit(clause.Associations).Save(t).Error; err != nil {
		return nil, database.Translate(err, resourceTask)
	}
	return s.findTask(db, actor, id)
}

// DeleteTask removes a task of a visible project.
func (s *Service) DeleteTask(ctx context.Context, actor scope.Actor, id uint) error {
	db := s.db.WithContext(ctx)
	t, err := s.findTask(db, actor, id)
	if err != nil {
		return err
	}
	res := db.Delete(&models.Task{}, t.ID)
	if res.Error != nil {
		return database.Translate(res.Error, resourceTask)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(resourceTask)
	}
	return nil
}

func (s *Service) applyTask(t *models.Task, req TaskRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if req.DueDate.Before(req.StartDate.Time) {
		return domain.NewFieldError("due_date", "must not be before the start date")
	}
	if req.EstimatedHours.Valid && req.EstimatedHours.Decimal.IsNegative() {
		return domain.NewFieldError("estimated_hours", "must not be negative")
	}
	if req.ActualHours.Valid && req.ActualHours.Decimal.IsNegative() {
		return domain.NewFieldError("actual_hours", "must not be negative")
	}

	t.Title = req.Title
	t.Description = req.Description
	t.AssignedToID = req.AssignedTo
	t.AssignedTo = nil
	t.Status = req.Status
	if t.Status == "" {
		t.Status = models.TaskStatusTodo
	}
	t.Priority = req.Priority
	if t.Priority == "" {
		t.Priority = models.TaskPriorityMedium
	}
	t.StartDate = req.StartDate
	t.DueDate = req.DueDate
	t.EstimatedHours = req.EstimatedHours
	t.ActualHours = req.ActualHours
	t.ApplyCompletion(s.now())
	return nil
}
