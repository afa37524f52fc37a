package sales

import (
	"context"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductRequest is the payload for creating or replacing a product.
// Updates must carry the version that was read.
type ProductRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	SKU          string          `json:"sku" validate:"required,max=50"`
	Stock        int             `json:"stock" validate:"gte=0"`
	MinimumStock *int            `json:"minimum_stock" validate:"omitempty,gte=0"`
	Version      int             `json:"version"`
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Stock    *int
	LowStock bool
}

var productListing = listing.Spec{
	Search: []string{
		listing.Like("products.name"),
		listing.Like("products.sku"),
		listing.Like("products.description"),
	},
	Orderings: map[string]string{
		"name":  "products.name",
		"price": "products.price",
		"stock": "products.stock",
	},
	Default: "name",
}

// ListProducts returns one page of products.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter, p listing.Params) (models.ListResponse[models.Product], error) {
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.Stock != nil {
		q = q.Where("products.stock = ?", *filter.Stock)
	}
	if filter.LowStock {
		q = q.Where("products.stock <= products.minimum_stock")
	}
	return listing.Page[models.Product](q, productListing, p)
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, database.Translate(err, resourceProduct)
	}
	return &p, nil
}

// CreateProduct validates and stores a product.
func (s *Service) CreateProduct(ctx context.Context, req ProductRequest) (*models.Product, error) {
	p := models.Product{MinimumStock: models.DefaultMinimumStock, Version: 1}
	if err := applyProduct(&p, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, database.Translate(err, resourceProduct)
	}
	return &p, nil
}

// UpdateProduct replaces the fields of a product if nobody changed it
// since req.Version was read.
func (s *Service) UpdateProduct(ctx context.Context, id uint, req ProductRequest) (*models.Product, error) {
	if req.Version <= 0 {
		return nil, domain.NewFieldError("version", "this field is required")
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyProduct(p, req); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND version = ?", id, req.Version).
		Updates(map[string]any{
			"name":          p.Name,
			"description":   p.Description,
			"price":         p.Price,
			"sku":           p.SKU,
			"stock":         p.Stock,
			"minimum_stock": p.MinimumStock,
			"version":       gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, database.Translate(res.Error, resourceProduct)
	}
	if res.RowsAffected == 0 {
		return nil, domain.NewStaleError(resourceProduct)
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product that no sale or purchase references.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return database.Translate(res.Error, resourceProduct)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(resourceProduct)
	}
	return nil
}

func applyProduct(p *models.Product, req ProductRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if req.Price.IsNegative() {
		return domain.NewFieldError("price", "must not be negative")
	}
	p.Name = req.Name
	p.Description = req.Description
	p.Price = req.Price.Round(2)
	p.SKU = req.SKU
	p.Stock = req.Stock
	if req.MinimumStock != nil {
		p.MinimumStock = *req.MinimumStock
	}
	return nil
}
