package sales

import (
	"context"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func errSaleLocked() error {
	return domain.NewConflictError("lines of a completed or cancelled sale cannot change")
}

// ListItems returns the lines of a sale visible to actor.
func (s *Service) ListItems(ctx context.Context, actor scope.Actor, saleID uint) ([]models.SaleItem, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findSale(db, actor, saleID); err != nil {
		return nil, err
	}

	items := make([]models.SaleItem, 0)
	if err := db.Preload("Product").Where("sale_id = ?", saleID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, database.Translate(err, resourceSaleItem)
	}
	return items, nil
}

// AddItem appends a line to a pending sale and refreshes its total.
func (s *Service) AddItem(ctx context.Context, actor scope.Actor, saleID uint, req SaleItemRequest) (*models.SaleItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var item models.SaleItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.findSale(tx, actor, saleID)
		if err != nil {
			return err
		}
		if !sale.IsEditable() {
			return errSaleLocked()
		}

		if item, err = buildItem(tx, req); err != nil {
			return err
		}
		item.SaleID = sale.ID
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return database.Translate(err, resourceSaleItem)
		}
		return refreshTotal(tx, sale.ID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem replaces a line of a pending sale if nobody changed it since
// req.Version was read.
func (s *Service) UpdateItem(ctx context.Context, actor scope.Actor, itemID uint, req SaleItemRequest) (*models.SaleItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Version <= 0 {
		return nil, domain.NewFieldError("version", "this field is required")
	}

	var item models.SaleItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.editableItem(tx, actor, itemID)
		if err != nil {
			return err
		}

		if item, err = buildItem(tx, req); err != nil {
			return err
		}
		item.ID = current.ID
		item.SaleID = current.SaleID
		item.CreatedAt = current.CreatedAt

		res := tx.Model(&models.SaleItem{}).
			Where("id = ? AND version = ?", itemID, req.Version).
			Updates(map[string]any{
				"product_id":  item.ProductID,
				"quantity":    item.Quantity,
				"unit_price":  item.UnitPrice,
				"total_price": item.TotalPrice,
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return database.Translate(res.Error, resourceSaleItem)
		}
		if res.RowsAffected == 0 {
			return domain.NewStaleError(resourceSaleItem)
		}
		item.Version = req.Version + 1
		return refreshTotal(tx, current.SaleID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes a line of a pending sale.
func (s *Service) DeleteItem(ctx context.Context, actor scope.Actor, itemID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.editableItem(tx, actor, itemID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.SaleItem{}, item.ID).Error; err != nil {
			return database.Translate(err, resourceSaleItem)
		}
		return refreshTotal(tx, item.SaleID)
	})
}

// editableItem loads a line whose sale is visible to actor and still
// pending.
func (s *Service) editableItem(tx *gorm.DB, actor scope.Actor, itemID uint) (*models.SaleItem, error) {
	var item models.SaleItem
	if err := tx.First(&item, itemID).Error; err != nil {
		return nil, database.Translate(err, resourceSaleItem)
	}
	sale, err := s.findSale(tx, actor, item.SaleID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError(resourceSaleItem)
		}
		return nil, err
	}
	if !sale.IsEditable() {
		return nil, errSaleLocked()
	}
	return &item, nil
}

// buildItem prices a line, defaulting to the current product price.
func buildItem(tx *gorm.DB, req SaleItemRequest) (models.SaleItem, error) {
	if err := validation.Struct(req); err != nil {
		return models.SaleItem{}, err
	}

	item := models.SaleItem{ProductID: req.ProductID, Quantity: req.Quantity, Version: 1}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return models.SaleItem{}, domain.NewFieldError("unit_price", "must not be negative")
		}
		item.UnitPrice = req.UnitPrice.Round(2)
	} else {
		var p models.Product
		if err := tx.Select("id", "price").First(&p, req.ProductID).Error; err != nil {
			return models.SaleItem{}, database.Translate(err, resourceProduct)
		}
		item.UnitPrice = p.Price
	}
	item.Recalculate()
	return item, nil
}

// refreshTotal recomputes the total of a sale from its lines.
func refreshTotal(tx *gorm.DB, saleID uint) error {
	var totals []decimal.Decimal
	if err := tx.Model(&models.SaleItem{}).Where("sale_id = ?", saleID).Pluck("total_price", &totals).Error; err != nil {
		return database.Translate(err, resourceSaleItem)
	}
	total := decimal.Zero
	for _, t := range totals {
		total = total.Add(t)
	}

	err := tx.Model(&models.Sale{}).Where("id = ?", saleID).Updates(map[string]any{
		"total_amount": total,
		"version":      gorm.Expr("version + 1"),
	}).Error
	return database.Translate(err, resourceSale)
}
