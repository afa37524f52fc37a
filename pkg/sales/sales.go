package sales

import (
	"context"
	"fmt"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/inventory"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleItemRequest is one line of a sale. A missing unit price takes the
// current product price.
type SaleItemRequest struct {
	ProductID uint             `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Version   int              `json:"version"`
}

// SaleRequest is the payload for creating a sale with its lines.
type SaleRequest struct {
	CustomerID uint              `json:"customer_id" validate:"required"`
	Date       models.Date       `json:"date" validate:"required"`
	Status     models.SaleStatus `json:"status" validate:"omitempty,oneof=pending completed cancelled"`
	Notes      string            `json:"notes"`
	Items      []SaleItemRequest `json:"items" validate:"dive"`
}

// SaleUpdateRequest replaces the header of a sale. Lines are edited through
// the item operations.
type SaleUpdateRequest struct {
	CustomerID uint              `json:"customer_id" validate:"required"`
	Date       models.Date       `json:"date" validate:"required"`
	Status     models.SaleStatus `json:"status" validate:"required,oneof=pending completed cancelled"`
	Notes      string            `json:"notes"`
	Version    int               `json:"version" validate:"required"`
}

// SaleFilter narrows a sale listing.
type SaleFilter struct {
	Status string
	Date   *models.Date
}

// SaleCompletedEvent is published when a sale takes stock.
type SaleCompletedEvent struct {
	SaleID        uint            `json:"sale_id"`
	CustomerID    uint            `json:"customer_id"`
	SalesPersonID uint            `json:"sales_person_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

var saleListing = listing.Spec{
	Search: []string{
		"sales.customer_id IN (SELECT id FROM customers WHERE " + listing.Like("customers.name") + ")",
		listing.Like("sales.notes"),
	},
	Orderings: map[string]string{
		"date":         "sales.date",
		"total_amount": "sales.total_amount",
		"created_at":   "sales.created_at",
	},
	Default: "-date",
}

// ListSales returns one page of the sales visible to actor.
func (s *Service) ListSales(ctx context.Context, actor scope.Actor, filter SaleFilter, p listing.Params) (models.ListResponse[models.Sale], error) {
	q := scope.Sales.Apply(s.db.WithContext(ctx).Model(&models.Sale{}), actor)
	if filter.Status != "" {
		q = q.Where("sales.status = ?", filter.Status)
	}
	if filter.Date != nil {
		q = q.Where("sales.date = ?", *filter.Date)
	}
	return listing.Page[models.Sale](q, saleListing, p)
}

// GetSale returns a sale visible to actor with its lines.
func (s *Service) GetSale(ctx context.Context, actor scope.Actor, id uint) (*models.Sale, error) {
	db := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product")
	return s.findSale(db, actor, id)
}

func (s *Service) findSale(db *gorm.DB, actor scope.Actor, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := scope.Sales.Apply(db.Model(&models.Sale{}), actor).
		Where("sales.id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, database.Translate(err, resourceSale)
	}
	return &sale, nil
}

// CreateSale stores a sale and its lines for actor. A sale created as
// completed takes its stock right away.
func (s *Service) CreateSale(ctx context.Context, actor scope.Actor, req SaleRequest) (*models.Sale, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	sale := models.Sale{
		CustomerID:    req.CustomerID,
		SalesPersonID: actor.UserID,
		Date:          req.Date,
		Status:        req.Status,
		Notes:         req.Notes,
		Version:       1,
	}
	if sale.Status == "" {
		sale.Status = models.SaleStatusPending
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]models.SaleItem, 0, len(req.Items))
		total := decimal.Zero
		for i, line := range req.Items {
			item, err := buildItem(tx, line)
			if err != nil {
				return domain.PrefixFields(fmt.Sprintf("items[%d]", i), err)
			}
			items = append(items, item)
			total = total.Add(item.TotalPrice)
		}
		sale.TotalAmount = total

		if sale.Status == models.SaleStatusCompleted {
			if err := moveStock(tx, items, -1); err != nil {
				return err
			}
			sale.StockApplied = true
		}

		if err := tx.Omit(clause.Associations).Create(&sale).Error; err != nil {
			return database.Translate(err, resourceSale)
		}
		for i := range items {
			items[i].SaleID = sale.ID
		}
		if len(items) > 0 {
			if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
				return database.Translate(err, resourceSaleItem)
			}
		}
		sale.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sale.StockApplied {
		s.afterCompletion(ctx, &sale)
	}
	return &sale, nil
}

// UpdateSale replaces the header of a sale. Moving into completed takes
// stock for every line; moving out of completed gives it back.
func (s *Service) UpdateSale(ctx context.Context, actor scope.Actor, id uint, req SaleUpdateRequest) (*models.Sale, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var completed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.findSale(tx.Preload("Items"), actor, id)
		if err != nil {
			return err
		}
		if sale.Version != req.Version {
			return domain.NewStaleError(resourceSale)
		}

		holds := req.Status == models.SaleStatusCompleted
		switch {
		case holds && !sale.StockApplied:
			if err := moveStock(tx, sale.Items, -1); err != nil {
				return err
			}
			completed = true
		case !holds && sale.StockApplied:
			if err := moveStock(tx, sale.Items, 1); err != nil {
				return err
			}
		}

		res := tx.Model(&models.Sale{}).
			Where("id = ? AND version = ?", id, req.Version).
			Updates(map[string]any{
				"customer_id":   req.CustomerID,
				"date":          req.Date,
				"status":        req.Status,
				"notes":         req.Notes,
				"stock_applied": holds,
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return database.Translate(res.Error, resourceSale)
		}
		if res.RowsAffected == 0 {
			return domain.NewStaleError(resourceSale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sale, err := s.GetSale(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if completed {
		s.afterCompletion(ctx, sale)
	}
	return sale, nil
}

// DeleteSale removes a pending sale and its lines.
func (s *Service) DeleteSale(ctx context.Context, actor scope.Actor, id uint) error {
	db := s.db.WithContext(ctx)
	sale, err := s.findSale(db, actor, id)
	if err != nil {
		return err
	}
	if sale.Status != models.SaleStatusPending {
		return domain.NewConflictError("only pending sales can be deleted")
	}

	res := db.Where("id = ? AND status = ?", id, models.SaleStatusPending).Delete(&models.Sale{})
	if res.Error != nil {
		return database.Translate(res.Error, resourceSale)
	}
	if res.RowsAffected == 0 {
		return domain.NewConflictError("only pending sales can be deleted")
	}
	return nil
}

// Totals returns the VAT breakdown of a sale.
func (s *Service) Totals(ctx context.Context, actor scope.Actor, id uint) (*models.Totals, error) {
	sale, err := s.findSale(s.db.WithContext(ctx).Preload("Items"), actor, id)
	if err != nil {
		return nil, err
	}
	subtotal := decimal.Zero
	for _, item := range sale.Items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	totals := models.ComputeTotals(subtotal)
	return &totals, nil
}

// moveStock applies sign × quantity of every line to product stock.
func moveStock(tx *gorm.DB, items []models.SaleItem, sign int) error {
	for _, item := range items {
		if err := inventory.Adjust(tx, item.ProductID, sign*item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) afterCompletion(ctx context.Context, sale *models.Sale) {
	s.log.Info("sale completed", "sale_id", sale.ID, "total_amount", sale.TotalAmount.String())
	events.Emit(ctx, s.events, s.log, events.SubjectSaleCompleted, SaleCompletedEvent{
		SaleID:        sale.ID,
		CustomerID:    sale.CustomerID,
		SalesPersonID: sale.SalesPersonID,
		TotalAmount:   sale.TotalAmount,
	})

	ids := make([]uint, 0, len(sale.Items))
	for _, item := range sale.Items {
		ids = append(ids, item.ProductID)
	}
	low, err := inventory.LowStockAmong(ctx, s.db, ids)
	if err != nil {
		s.log.Warn("failed to check stock after sale", "sale_id", sale.ID, "error", err)
		return
	}
	if len(low) > 0 {
		events.Emit(ctx, s.events, s.log, events.SubjectLowStock, inventory.LowStockEvent{Products: inventory.Alerts(low)})
	}
}
