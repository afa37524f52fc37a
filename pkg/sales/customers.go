package sales

import (
	"context"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/validation"
)

// CustomerRequest is the payload for creating or replacing a customer.
type CustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address"`
	Company string `json:"company" validate:"max=200"`
	Notes   string `json:"notes"`
}

var customerListing = listing.Spec{
	Search: []string{
		listing.Like("customers.name"),
		listing.Like("customers.email"),
		listing.Like("customers.phone"),
		listing.Like("customers.company"),
	},
	Orderings: map[string]string{
		"name":       "customers.name",
		"created_at": "customers.created_at",
	},
	Default: "name",
}

// ListCustomers returns one page of customers.
func (s *Service) ListCustomers(ctx context.Context, p listing.Params) (models.ListResponse[models.Customer], error) {
	return listing.Page[models.Customer](s.db.WithContext(ctx).Model(&models.Customer{}), customerListing, p)
}

// GetCustomer returns a customer by id.
func (s *Service) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, database.Translate(err, resourceCustomer)
	}
	return &c, nil
}

// CreateCustomer validates and stores a customer.
func (s *Service) CreateCustomer(ctx context.Context, req CustomerRequest) (*models.Customer, error) {
	var c models.Customer
	if err := s.applyCustomer(&c, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, database.Translate(err, resourceCustomer)
	}
	return &c, nil
}

// UpdateCustomer replaces the fields of a customer.
func (s *Service) UpdateCustomer(ctx context.Context, id uint, req CustomerRequest) (*models.Customer, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCustomer(c, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, database.Translate(err, resourceCustomer)
	}
	return c, nil
}

// DeleteCustomer removes a customer. Customers with sales are kept and a
// conflict is returned.
func (s *Service) DeleteCustomer(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Customer{}, id)
	if res.Error != nil {
		return database.Translate(res.Error, resourceCustomer)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(resourceCustomer)
	}
	return nil
}

func (s *Service) applyCustomer(c *models.Customer, req CustomerRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	phone, err := s.phones.Normalize("phone", req.Phone)
	if err != nil {
		return err
	}
	c.Name = req.Name
	c.Email = req.Email
	c.Phone = phone
	c.Address = req.Address
	c.Company = req.Company
	c.Notes = req.Notes
	return nil
}
