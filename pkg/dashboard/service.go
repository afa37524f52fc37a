// Package dashboard stores the configurable dashboard of every user and
// aggregates the other modules into a personal summary and yearly trends.
package dashboard

import (
	"time"

	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/report"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	resourceWidget     = "widget"
	resourcePreference = "dashboard preference"
	resourceSettings   = "widget setting"
)

// Service handles dashboard operations.
type Service struct {
	db     *gorm.DB
	engine *report.Engine
	log    logger.Logger
	now    func() time.Time
}

// NewService creates a new dashboard service.
func NewService(db *gorm.DB, log logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		db:     db,
		engine: report.New(db),
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// emptyObject replaces a missing JSON document.
func emptyObject(doc datatypes.JSON) datatypes.JSON {
	if len(doc) == 0 || string(doc) == "null" {
		return datatypes.JSON("{}")
	}
	return doc
}
