// Package purchases manages suppliers and purchase orders, brings received
// goods into stock and reports on spend, supplier performance and
// inventory health.
package purchases

import (
	"time"

	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/phone"
	"github.com/jordanlanch/backoffice/pkg/report"
	"gorm.io/gorm"
)

const (
	resourceSupplier     = "supplier"
	resourcePurchase     = "purchase"
	resourcePurchaseItem = "purchase item"
	resourceProduct      = "product"
)

// Service handles purchasing operations.
type Service struct {
	db     *gorm.DB
	engine *report.Engine
	phones *phone.Normalizer
	events events.Publisher
	log    logger.Logger
	now    func() time.Time
}

// NewService creates a new purchasing service.
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
