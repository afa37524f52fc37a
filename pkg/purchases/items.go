package purchases

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

func errPurchaseLocked() error {
	return domain.NewConflictError("lines change only while a purchase is draft or ordered")
}

func linesEditable(p *models.Purchase) bool {
	return p.Status == models.PurchaseStatusDraft || p.Status == models.PurchaseStatusOrdered
}

// ListItems returns the lines of a purchase visible to actor.
func (s *Service) ListItems(ctx context.Context, actor scope.Actor, purchaseID uint) ([]models.PurchaseItem, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findPurchase(db, actor, purchaseID); err != nil {
		return nil, err
	}

	items := make([]models.PurchaseItem, 0)
	if err := db.Preload("Product").Where("purchase_id = ?", purchaseID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, database.Translate(err, resourcePurchaseItem)
	}
	return items, nil
}

// AddItem appends a line to a purchase and refreshes its totals.
func (s *Service) AddItem(ctx context.Context, actor scope.Actor, purchaseID uint, req PurchaseItemRequest) (*models.PurchaseItem, error) {
	item, err := buildItem(req)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.findPurchase(tx, actor, purchaseID)
		if err != nil {
			return err
		}
		if !linesEditable(p) {
			return errPurchaseLocked()
		}
		item.PurchaseID = p.ID
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return database.Translate(err, resourcePurchaseItem)
		}
		return refreshTotals(tx, p.ID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem replaces a line if nobody changed it since req.Version was
// read.
func (s *Service) UpdateItem(ctx context.Context, actor scope.Actor, itemID uint, req PurchaseItemRequest) (*models.PurchaseItem, error) {
	if req.Version <= 0 {
		return nil, domain.NewFieldError("version", "this field is required")
	}
	item, err := buildItem(req)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.editableItem(tx, actor, itemID)
		if err != nil {
			return err
		}
		item.ID = current.ID
		item.PurchaseID = current.PurchaseID
		item.CreatedAt = current.CreatedAt

		res := tx.Model(&models.PurchaseItem{}).
			Where("id = ? AND version = ?", itemID, req.Version).
			Updates(map[string]any{
				"product_id":  item.ProductID,
				"quantity":    item.Quantity,
				"unit_price":  item.UnitPrice,
				"total_price": item.TotalPrice,
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return database.Translate(res.Error, resourcePurchaseItem)
		}
		if res.RowsAffected == 0 {
			return domain.NewStaleError(resourcePurchaseItem)
		}
		item.Version = req.Version + 1
		return refreshTotals(tx, current.PurchaseID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes a line and refreshes the purchase totals.
func (s *Service) DeleteItem(ctx context.Context, actor scope.Actor, itemID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.editableItem(tx, actor, itemID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.PurchaseItem{}, item.ID).Error; err != nil {
			return database.Translate(err, resourcePurchaseItem)
		}
		return refreshTotals(tx, item.PurchaseID)
	})
}

func (s *Service) editableItem(tx *gorm.DB, actor scope.Actor, itemID uint) (*models.PurchaseItem, error) {
	var item models.PurchaseItem
	if err := tx.First(&item, itemID).Error; err != nil {
		return nil, database.Translate(err, resourcePurchaseItem)
	}
	p, err := s.findPurchase(tx, actor, item.PurchaseID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError(resourcePurchaseItem)
		}
		return nil, err
	}
	if !linesEditable(p) {
		return nil, errPurchaseLocked()
	}
	return &item, nil
}

func buildItem(req PurchaseItemRequest) (models.PurchaseItem, error) {
	if err := validation.Struct(req); err != nil {
		return models.PurchaseItem{}, err
	}
	if req.UnitPrice.IsNegative() {
		return models.PurchaseItem{}, domain.NewFieldError("unit_price", "must not be negative")
	}
	item := models.PurchaseItem{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice.Round(2),
		Version:   1,
	}
	item.Recalculate()
	return item, nil
}

// refreshTotals recomputes tax and total of a purchase from its lines.
func refreshTotals(tx *gorm.DB, purchaseID uint) error {
	var totals []decimal.Decimal
	if err := tx.Model(&models.PurchaseItem{}).Where("purchase_id = ?", purchaseID).Pluck("total_price", &totals).Error; err != nil {
		return database.Translate(err, resourcePurchaseItem)
	}
	subtotal := decimal.Zero
	for _, t := range totals {
		subtotal = subtotal.Add(t)
	}

	var p models.Purchase
	p.ApplyTotals(subtotal)
	err := tx.Model(&models.Purchase{}).Where("id = ?", purchaseID).Updates(map[string]any{
		"tax_amount":   p.TaxAmount,
		"total_amount": p.TotalAmount,
		"version":      gorm.Expr("version + 1"),
	}).Error
	return database.Translate(err, resourcePurchase)
}
