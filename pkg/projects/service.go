// Package projects manages projects, their teams and tasks, and reports on
// progress and workload.
package projects

import (
	"time"

	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"gorm.io/gorm"
)

const (
	resourceProject = "project"
	resourceTask    = "task"
	resourceUser    = "user"
)

var (
	projectStatuses = models.Strings(models.ProjectStatuses)
	taskStatuses    = models.Strings(models.TaskStatuses)
	taskPriorities  = models.Strings(models.TaskPriorities)
	openStatuses    = anys(models.OpenTaskStatuses)
)

// Service handles project operations.
type Service struct {
	db     *gorm.DB
	engine *report.Engine
	events events.Publisher
	log    logger.Logger
	now    func() time.Time
}

// NewService creates a new project service.
func NewService(db *gorm.DB, publisher events.Publisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		db:     db,
		engine: report.New(db),
		events: publisher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) today() models.Date {
	return models.DateOf(s.now())
}

func anys[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
