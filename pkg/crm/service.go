// Package crm manages leads, opportunities and activities and reports on
// the sales pipeline.
package crm

import (
	"time"

	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/phone"
	"github.com/jordanlanch/backoffice/pkg/report"
	"gorm.io/gorm"
)

// Service handles CRM operations.
type Service struct {
	db     *gorm.DB
	engine *report.Engine
	phones *phone.Normalizer
	events events.Publisher
	log    logger.Logger
	now    func() time.Time
}

// NewService creates a new CRM service.
func NewService(db *gorm.DB, phones *phone.Normalizer, publisher events.Publisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		db:     db,
		engine: report.New(db),
		phones: phones,
		events: publisher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}
