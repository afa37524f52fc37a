package purchases

import (
	"context"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/validation"
)

// SupplierRequest is the payload for creating or replacing a supplier.
type SupplierRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address"`
	Company   string `json:"company" validate:"required,max=200"`
	TaxNumber string `json:"tax_number" validate:"max=50"`
	Notes     string `json:"notes"`
}

var supplierListing = listing.Spec{
	Search: []string{
		listing.Like("suppliers.name"),
		listing.Like("suppliers.email"),
		listing.Like("suppliers.phone"),
		listing.Like("suppliers.company"),
	},
	Orderings: map[string]string{
		"name":       "suppliers.name",
		"created_at": "suppliers.created_at",
	},
	Default: "name",
}

// ListSuppliers returns one page of suppliers.
func (s *Service) ListSuppliers(ctx context.Context, p listing.Params) (models.ListResponse[models.Supplier], error) {
	return listing.Page[models.Supplier](s.db.WithContext(ctx).Model(&models.Supplier{}), supplierListing, p)
}

// GetSupplier returns a supplier by id.
func (s *Service) GetSupplier(ctx context.Context, id uint) (*models.Supplier, error) {
	var sup models.Supplier
	if err := s.db.WithContext(ctx).First(&sup, id).Error; err != nil {
		return nil, database.Translate(err, resourceSupplier)
	}
	return &sup, nil
}

// CreateSupplier validates and stores a supplier.
func (s *Service) CreateSupplier(ctx context.Context, req SupplierRequest) (*models.Supplier, error) {
	var sup models.Supplier
	if err := s.applySupplier(&sup, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&sup).Error; err != nil {
		return nil, database.Translate(err, resourceSupplier)
	}
	return &sup, nil
}

// UpdateSupplier replaces the fields of a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id uint, req SupplierRequest) (*models.Supplier, error) {
	sup, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applySupplier(sup, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(sup).Error; err != nil {
		return nil, database.Translate(err, resourceSupplier)
	}
	return sup, nil
}

// DeleteSupplier removes a supplier. Suppliers with purchases are kept.
func (s *Service) DeleteSupplier(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Supplier{}, id)
	if res.Error != nil {
		return database.Translate(res.Error, resourceSupplier)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(resourceSupplier)
	}
	return nil
}

func (s *Service) applySupplier(sup *models.Supplier, req SupplierRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	phone, err := s.phones.Normalize("phone", req.Phone)
	if err != nil {
		return err
	}
	sup.Name = req.Name
	sup.Email = req.Email
	sup.Phone = phone
	sup.Address = req.Address
	sup.Company = req.Company
	sup.TaxNumber = req.TaxNumber
	sup.Notes = req.Notes
	return nil
}
