// Package sales manages customers, products and sales, keeps stock in step
// with completed sales and reports on revenue.
package sales

import (
	"context"
	"time"

	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/inventory"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/phone"
	"github.com/jordanlanch/backoffice/pkg/report"
	"gorm.io/gorm"
)

const (
	resourceCustomer = "customer"
	resourceProduct  = "product"
	resourceSale     = "sale"
	resourceSaleItem = "sale item"
)

// Service handles sales operations.
type Service struct {
	db     *gorm.DB
	engine *report.Engine
	phones *phone.Normalizer
	events events.Publisher
	log    logger.Logger
	now    func() time.Time
}

// NewService creates a new sales service.
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

// LowStockProducts lists products at or below threshold. A negative
// threshold compares each product with its own minimum stock.
func (s *Service) LowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	return inventory.LowStock(ctx, s.db, threshold)
}
