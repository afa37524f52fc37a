// Package inventory applies stock movements to products.
package inventory

import (
	"context"
	"fmt"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/models"
	"gorm.io/gorm"
)

const resourceProduct = "product"

// Adjust moves the stock of a product by delta in a single statement. A
// negative delta only applies when enough stock is on hand, otherwise a
// conflict naming the product SKU is returned and nothing changes.
func Adjust(tx *gorm.DB, productID uint, delta int) error {
	if delta == 0 {
		return nil
	}

	q := tx.Model(&models.Product{}).Where("id = ?", productID)
	if delta < 0 {
		q = q.Where("stock >= ?", -delta)
	}
	res := q.Updates(map[string]any{
		"stock":   gorm.Expr("stock + ?", delta),
		"version": gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		return database.Translate(res.Error, resourceProduct)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var p models.Product
	if err := tx.Select("id", "sku", "stock").First(&p, productID).Error; err != nil {
		return database.Translate(err, resourceProduct)
	}
	return InsufficientStock(p.SKU)
}

// InsufficientStock builds the conflict returned when a product cannot
// cover a movement.
func InsufficientStock(sku string) error {
	return &domain.DomainError{
		Code:     domain.ErrCodeConflict,
		Message:  fmt.Sprintf("insufficient stock for product %s", sku),
		Resource: resourceProduct,
		Fields:   map[string]string{"sku": sku},
	}
}

// LowStock lists products at or below threshold, lowest stock first. A
// negative threshold compares each product with its own minimum_stock.
func LowStock(ctx context.Context, db *gorm.DB, threshold int) ([]models.Product, error) {
	q := db.WithContext(ctx).Model(&models.Product{})
	if threshold < 0 {
		q = q.Where("stock <= minimum_stock")
	} else {
		q = q.Where("stock <= ?", threshold)
	}

	products := make([]models.Product, 0)
	if err := q.Order("stock ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

// OutOfStock lists products with nothing on hand.
func OutOfStock(ctx context.Context, db *gorm.DB) ([]models.Product, error) {
	products := make([]models.Product, 0)
	if err := db.WithContext(ctx).Where("stock <= 0").Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list out of stock products: %w", err)
	}
	return products, nil
}

// Alert is the low stock notice of one product.
type Alert struct {
	ProductID    uint   `json:"product_id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Stock        int    `json:"stock"`
	MinimumStock int    `json:"minimum_stock"`
}

// LowStockEvent is published when products drop to their reorder level.
type LowStockEvent struct {
	Products []Alert `json:"products"`
}

// Alerts converts products into alerts.
func Alerts(products []models.Product) []Alert {
	alerts := make([]Alert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, Alert{
			ProductID:    p.ID,
			Name:         p.Name,
			SKU:          p.SKU,
			Stock:        p.Stock,
			MinimumStock: p.MinimumStock,
		})
	}
	return alerts
}

// LowStockAmong returns the products of ids that sit at or below their own
// minimum stock.
func LowStockAmong(ctx context.Context, db *gorm.DB, ids []uint) ([]models.Product, error) {
	products := make([]models.Product, 0)
	if len(ids) == 0 {
		return products, nil
	}
	err := db.WithContext(ctx).
		Where("id IN ? AND stock <= minimum_stock", ids).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check stock levels: %w", err)
	}
	return products, nil
}
