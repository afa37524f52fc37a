package projects

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectRequest is the payload for creating or replacing a project. A zero
// manager means the actor manages the project.
type ProjectRequest struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Description string               `json:"description"`
	ManagerID   uint                 `json:"manager"`
	StartDate   models.Date          `json:"start_date" validate:"required"`
	EndDate     models.Date          `json:"end_date" validate:"required"`
	Status      models.ProjectStatus `json:"status" validate:"omitempty,oneof=new in_progress completed on_hold cancelled"`
	Budget      decimal.NullDecimal  `json:"budget"`
	TeamMembers []uint               `json:"team_members"`
}

// TeamRequest replaces the team of a project.
type TeamRequest struct {
	TeamMembers []uint `json:"team_members"`
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	Status    string
	ManagerID *uint
}

// ProjectDetail is a project with its team and progress.
type ProjectDetail struct {
	models.Project
	TeamMembers []models.UserSummary `json:"team_members"`
	Progress    float64              `json:"progress"`
	IsOverdue   bool                 `json:"is_overdue"`
}

var projectListing = listing.Spec{
	Search: []string{
		listing.Like("projects.name"),
		listing.Like("projects.description"),
	},
	Orderings: map[string]string{
		"created_at": "projects.created_at",
		"start_date": "projects.start_date",
		"end_date":   "projects.end_date",
		"name":       "projects.name",
	},
	Default: "-created_at",
}

// ListProjects returns one page of the projects actor manages or works on.
func (s *Service) ListProjects(ctx context.Context, actor scope.Actor, filter ProjectFilter, p listing.Params) (models.ListResponse[models.Project], error) {
	q := scope.Projects.Apply(s.db.WithContext(ctx).Model(&models.Project{}), actor)
	if filter.Status != "" {
		q = q.Where("projects.status = ?", filter.Status)
	}
	if filter.ManagerID != nil {
		q = q.Where("projects.manager_id = ?", *filter.ManagerID)
	}
	return listing.Page[models.Project](q, projectListing, p)
}

// GetProject returns a visible project with its team and progress.
func (s *Service) GetProject(ctx context.Context, actor scope.Actor, id uint) (*ProjectDetail, error) {
	db := s.db.WithContext(ctx)
	p, err := s.findProject(db.Preload("Manager").Preload("Members.User"), actor, id)
	if err != nil {
		return nil, err
	}
	progress, err := s.progress(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	out := ProjectDetail{
		Project:     *p,
		TeamMembers: make([]models.UserSummary, 0, len(p.Members)),
		Progress:    progress,
		IsOverdue:   p.IsOverdue(s.today()),
	}
	for _, m := range p.Members {
		if m.User != nil {
			out.TeamMembers = append(out.TeamMembers, m.User.Summary())
		}
	}
	return &out, nil
}

func (s *Service) findProject(db *gorm.DB, actor scope.Actor, id uint) (*models.Project, error) {
	var p models.Project
	err := scope.Projects.Apply(db.Model(&models.Project{}), actor).
		Where("projects.id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, database.Translate(err, resourceProject)
	}
	return &p, nil
}

// managedProject loads a visible project that actor may change: admins and
// the project manager. Team members get FORBIDDEN.
func (s *Service) managedProject(db *gorm.DB, actor scope.Actor, id uint) (*models.Project, error) {
	p, err := s.findProject(db, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Elevated() && p.ManagerID != actor.UserID {
		return nil, domain.NewForbiddenError("only the project manager can change this project")
	}
	return p, nil
}

// CreateProject stores a project and its team.
func (s *Service) CreateProject(ctx context.Context, actor scope.Actor, req ProjectRequest) (*ProjectDetail, error) {
	var p models.Project
	if err := applyProject(&p, actor, req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return database.Translate(err, resourceProject)
		}
		return replaceTeam(tx, p.ID, req.TeamMembers)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("project created", "project_id", p.ID, "manager_id", p.ManagerID)
	return s.GetProject(ctx, actor, p.ID)
}

// UpdateProject replaces the fields and team of a project.
func (s *Service) UpdateProject(ctx context.Context, actor scope.Actor, id uint, req ProjectRequest) (*ProjectDetail, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.managedProject(tx, actor, id)
		if err != nil {
			return err
		}
		if req.ManagerID == 0 {
			req.ManagerID = p.ManagerID
		}
		if err := applyProject(p, actor, req); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return database.Translate(err, resourceProject)
		}
		return replaceTeam(tx, p.ID, req.TeamMembers)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, actor, id)
}

// SetTeam replaces the team members of a project.
func (s *Service) SetTeam(ctx context.Context, actor scope.Actor, id uint, req TeamRequest) (*ProjectDetail, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.managedProject(tx, actor, id); err != nil {
			return err
		}
		return replaceTeam(tx, id, req.TeamMembers)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, actor, id)
}

// DeleteProject removes a project with its tasks.
func (s *Service) DeleteProject(ctx context.Context, actor scope.Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.managedProject(tx, actor, id); err != nil {
			return err
		}
		if err := tx.Delete(&models.Project{}, id).Error; err != nil {
			return database.Translate(err, resourceProject)
		}
		return nil
	})
}

func applyProject(p *models.Project, actor scope.Actor, req ProjectRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if req.EndDate.Before(req.StartDate.Time) {
		return domain.NewFieldError("end_date", "must not be before the start date")
	}
	if req.Budget.Valid && req.Budget.Decimal.IsNegative() {
		return domain.NewFieldError("budget", "must not be negative")
	}

	p.Name = req.Name
	p.Description = req.Description
	p.ManagerID = req.ManagerID
	if p.ManagerID == 0 {
		p.ManagerID = actor.UserID
	}
	p.StartDate = req.StartDate
	p.EndDate = req.EndDate
	p.Status = req.Status
	if p.Status == "" {
		p.Status = models.ProjectStatusNew
	}
	p.Budget = req.Budget
	if p.Budget.Valid {
		p.Budget.Decimal = p.Budget.Decimal.Round(2)
	}
	return nil
}

// replaceTeam swaps the member rows of a project. Unknown users violate the
// foreign key and surface as CONFLICT.
func replaceTeam(tx *gorm.DB, projectID uint, userIDs []uint) error {
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
		return database.Translate(err, resourceProject)
	}
	seen := make(map[uint]bool, len(userIDs))
	members := make([]models.ProjectMember, 0, len(userIDs))
	for _, id := range userIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, models.ProjectMember{ProjectID: projectID, UserID: id})
	}
	if len(members) == 0 {
		return nil
	}
	if err := tx.Omit(clause.Associations).Create(&members).Error; err != nil {
		return database.Translate(err, resourceUser)
	}
	return nil
}

// progress is the share of completed tasks of a project.
func (s *Service) progress(ctx context.Context, projectID uint) (float64, error) {
	tasks := report.From("tasks", entsql.EQ("project_id", projectID))
	counts, err := s.engine.CountBy(ctx, tasks, "status", taskStatuses)
	if err != nil {
		return 0, fmt.Errorf("failed to count project tasks: %w", err)
	}
	return report.Rate(counts[string(models.TaskStatusCompleted)], counts.Total()), nil
}
