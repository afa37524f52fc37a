package projects

import (
	"context"
	"fmt"

	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/models"
)

// TaskEvent tells the assignee of a task about its deadline.
type TaskEvent struct {
	TaskID     uint               `json:"task_id"`
	ProjectID  uint               `json:"project_id"`
	Project    string             `json:"project_name"`
	Title      string             `json:"title"`
	Status     models.TaskStatus  `json:"status"`
	DueDate    models.Date        `json:"due_date"`
	AssignedTo models.UserSummary `json:"assigned_to"`
	Email      string             `json:"email"`
}

// SendDueReminders publishes a reminder for every assigned task that is due
// tomorrow and not yet in review. It returns how many were sent.
func (s *Service) SendDueReminders(ctx context.Context) (int, error) {
	tomorrow := s.today().AddDays(1)
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("AssignedTo").Preload("Project").
		Where("due_date = ?", tomorrow).
		Where("status IN ?", []models.TaskStatus{models.TaskStatusTodo, models.TaskStatusInProgress}).
		Where("assigned_to_id IS NOT NULL").
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks due tomorrow: %w", err)
	}
	return s.notify(ctx, events.SubjectTaskReminder, tasks), nil
}

// FlagOverdueTasks publishes an event for every assigned open task past its
// due date. It returns how many were flagged.
func (s *Service) FlagOverdueTasks(ctx context.Context) (int, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("AssignedTo").Preload("Project").
		Where("due_date < ?", s.today()).
		Where("status IN ?", models.OpenTaskStatuses).
		Where("assigned_to_id IS NOT NULL").
		Order("due_date ASC").Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	return s.notify(ctx, events.SubjectTaskOverdue, tasks), nil
}

func (s *Service) notify(ctx context.Context, subject string, tasks []models.Task) int {
	sent := 0
	for _, t := range tasks {
		if t.AssignedTo == nil {
			continue
		}
		ev := TaskEvent{
			TaskID:     t.ID,
			ProjectID:  t.ProjectID,
			Title:      t.Title,
			Status:     t.Status,
			DueDate:    t.DueDate,
			AssignedTo: t.AssignedTo.Summary(),
			Email:      t.AssignedTo.Email,
		}
		if t.Project != nil {
			ev.Project = t.Project.Name
		}
		events.Emit(ctx, s.events, s.log, subject, ev)
		sent++
	}
	s.log.Info("task notifications published", "subject", subject, "count", sent)
	return sent
}
