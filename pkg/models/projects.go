package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusNew        ProjectStatus = "new"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

// ProjectStatuses lists every project status.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusNew, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled,
}

// Project groups tasks under a manager and a team.
type Project struct {
	Base
	Name        string              `gorm:"size:200;not null" json:"name"`
	Description string              `gorm:"type:text" json:"description"`
	ManagerID   uint                `gorm:"not null;index" json:"manager"`
	Manager     *User               `gorm:"foreignKey:ManagerID;constraint:OnDelete:RESTRICT" json:"manager_detail,omitempty"`
	StartDate   Date                `gorm:"not null" json:"start_date"`
	EndDate     Date                `gorm:"not null" json:"end_date"`
	Status      ProjectStatus       `gorm:"size:20;not null;default:new;index" json:"status"`
	Budget      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"budget"`
	Members     []ProjectMember     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// IsOverdue reports whether the project passed its end date unfinished.
func (p Project) IsOverdue(today Date) bool {
	return p.EndDate.Before(today.Time) && p.Status != ProjectStatusCompleted
}

// MemberIDs returns the ids of the team members.
func (p Project) MemberIDs() []uint {
	ids := make([]uint, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// ProjectMember links a user to the team of a project.
type ProjectMember struct {
	ProjectID uint      `gorm:"primaryKey" json:"project_id"`
	UserID    uint      `gorm:"primaryKey;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every task status in workflow order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusCompleted}

// OpenTaskStatuses are the statuses that count toward overdue work.
var OpenTaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusReview}

// TaskPriority ranks tasks.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskPriorities lists every priority from lowest to highest.
var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}

// Rank orders priorities, higher is more urgent.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityHigh:
		return 3
	case TaskPriorityMedium:
		return 2
	case TaskPriorityLow:
		return 1
	}
	return 0
}

// Task is a unit of work inside a project.
type Task struct {
	Base
	ProjectID      uint                `gorm:"not null;index" json:"project_id"`
	Project        *Project            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title          string              `gorm:"size:200;not null" json:"title"`
	Description    string              `gorm:"type:text" json:"description"`
	AssignedToID   *uint               `gorm:"index" json:"assigned_to"`
	AssignedTo     *User               `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assigned_to_detail,omitempty"`
	Status         TaskStatus          `gorm:"size:20;not null;default:todo;index" json:"status"`
	Priority       TaskPriority        `gorm:"size:20;not null;default:medium;index" json:"priority"`
	StartDate      Date                `gorm:"not null" json:"start_date"`
	DueDate        Date                `gorm:"not null;index" json:"due_date"`
	EstimatedHours decimal.NullDecimal `gorm:"type:decimal(7,2)" json:"estimated_hours"`
	ActualHours    decimal.NullDecimal `gorm:"type:decimal(7,2)" json:"actual_hours"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}

// ApplyCompletion keeps CompletedAt consistent with Status.
func (t *Task) ApplyCompletion(now time.Time) {
	if t.Status == TaskStatusCompleted {
		if t.CompletedAt == nil {
			stamp := now
			t.CompletedAt = &stamp
		}
		return
	}
	t.CompletedAt = nil
}

// IsOverdue reports whether the task is open past its due date.
func (t Task) IsOverdue(today Date) bool {
	if t.Status == TaskStatusCompleted {
		return false
	}
	return t.DueDate.Before(today.Time)
}

// CompletedOnTime reports whether a completed task finished by its due date.
func (t Task) CompletedOnTime() bool {
	if t.Status != TaskStatusCompleted || t.CompletedAt == nil {
		return false
	}
	return !DateOf(*t.CompletedAt).After(t.DueDate.Time)
}
