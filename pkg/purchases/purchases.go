package purchases

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseItemRequest is one line of a purchase.
type PurchaseItemRequest struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Version   int             `json:"version"`
}

// PurchaseRequest is the payload for creating a purchase with its lines. A
// blank reference number is generated.
type PurchaseRequest struct {
	SupplierID           uint                  `json:"supplier_id" validate:"required"`
	PurchaseDate         models.Date           `json:"purchase_date" validate:"required"`
	ReferenceNumber      string                `json:"reference_number" validate:"max=50"`
	Status               models.PurchaseStatus `json:"status" validate:"omitempty,oneof=draft ordered"`
	ExpectedDeliveryDate *models.Date          `json:"expected_delivery_date"`
	Notes                string                `json:"notes"`
	Items                []PurchaseItemRequest `json:"items" validate:"dive"`
}

// PurchaseUpdateRequest replaces the header of a purchase. Receiving
// statuses are only reached through ReceiveItems.
type PurchaseUpdateRequest struct {
	SupplierID           uint                  `json:"supplier_id" validate:"required"`
	PurchaseDate         models.Date           `json:"purchase_date" validate:"required"`
	ReferenceNumber      string                `json:"reference_number" validate:"required,max=50"`
	Status               models.PurchaseStatus `json:"status" validate:"required,oneof=draft ordered partially_received received cancelled"`
	ExpectedDeliveryDate *models.Date          `json:"expected_delivery_date"`
	Notes                string                `json:"notes"`
	Version              int                   `json:"version" validate:"required"`
}

// PurchaseFilter narrows a purchase listing.
type PurchaseFilter struct {
	Status       string
	PurchaseDate *models.Date
}

var purchaseListing = listing.Spec{
	Search: []string{
		listing.Like("purchases.reference_number"),
		"purchases.supplier_id IN (SELECT id FROM suppliers WHERE " + listing.Like("suppliers.name") + ")",
	},
	Orderings: map[string]string{
		"purchase_date": "purchases.purchase_date",
		"total_amount":  "purchases.total_amount",
		"created_at":    "purchases.created_at",
	},
	Default: "-purchase_date",
}

// ListPurchases returns one page of the purchases visible to actor.
func (s *Service) ListPurchases(ctx context.Context, actor scope.Actor, filter PurchaseFilter, p listing.Params) (models.ListResponse[models.Purchase], error) {
	q := scope.Purchases.Apply(s.db.WithContext(ctx).Model(&models.Purchase{}), actor)
	if filter.Status != "" {
		q = q.Where("purchases.status = ?", filter.Status)
	}
	if filter.PurchaseDate != nil {
		q = q.Where("purchases.purchase_date = ?", *filter.PurchaseDate)
	}
	return listing.Page[models.Purchase](q, purchaseListing, p)
}

// GetPurchase returns a purchase visible to actor with its supplier and
// lines.
func (s *Service) GetPurchase(ctx context.Context, actor scope.Actor, id uint) (*models.Purchase, error) {
	db := s.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product")
	return s.findPurchase(db, actor, id)
}

func (s *Service) findPurchase(db *gorm.DB, actor scope.Actor, id uint) (*models.Purchase, error) {
	var p models.Purchase
	err := scope.Purchases.Apply(db.Model(&models.Purchase{}), actor).
		Where("purchases.id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, database.Translate(err, resourcePurchase)
	}
	return &p, nil
}

// CreatePurchase stores a purchase and its lines for actor and derives its
// tax and total.
func (s *Service) CreatePurchase(ctx context.Context, actor scope.Actor, req PurchaseRequest) (*models.Purchase, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	p := models.Purchase{
		SupplierID:           req.SupplierID,
		PurchaseDate:         req.PurchaseDate,
		ReferenceNumber:      strings.TrimSpace(req.ReferenceNumber),
		Status:               req.Status,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		CreatedByID:          actor.UserID,
		Notes:                req.Notes,
		Version:              1,
	}
	if p.Status == "" {
		p.Status = models.PurchaseStatusDraft
	}
	if p.ReferenceNumber == "" {
		p.ReferenceNumber = newReference(req.PurchaseDate)
	}

	items := make([]models.PurchaseItem, 0, len(req.Items))
	subtotal := decimal.Zero
	for i, line := range req.Items {
		item, err := buildItem(line)
		if err != nil {
			return nil, domain.PrefixFields(fmt.Sprintf("items[%d]", i), err)
		}
		items = append(items, item)
		subtotal = subtotal.Add(item.TotalPrice)
	}
	p.ApplyTotals(subtotal)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return database.Translate(err, resourcePurchase)
		}
		for i := range items {
			items[i].PurchaseID = p.ID
		}
		if len(items) > 0 {
			if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
				return database.Translate(err, resourcePurchaseItem)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.Items = items
	return &p, nil
}

// UpdatePurchase replaces the header of a purchase if nobody changed it
// since req.Version was read.
func (s *Service) UpdatePurchase(ctx context.Context, actor scope.Actor, id uint, req PurchaseUpdateRequest) (*models.Purchase, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.findPurchase(tx, actor, id)
		if err != nil {
			return err
		}
		if current.Version != req.Version {
			return domain.NewStaleError(resourcePurchase)
		}
		if req.Status != current.Status && (isReceiving(req.Status) || isReceiving(current.Status)) {
			return domain.NewConflictError("the status of a purchase changes to and from received only through receipts")
		}

		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND version = ?", id, req.Version).
			Updates(map[string]any{
				"supplier_id":            req.SupplierID,
				"purchase_date":          req.PurchaseDate,
				"reference_number":       strings.TrimSpace(req.ReferenceNumber),
				"status":                 req.Status,
				"expected_delivery_date": req.ExpectedDeliveryDate,
				"notes":                  req.Notes,
				"version":                gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return database.Translate(res.Error, resourcePurchase)
		}
		if res.RowsAffected == 0 {
			return domain.NewStaleError(resourcePurchase)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPurchase(ctx, actor, id)
}

// DeletePurchase removes a draft purchase and its lines.
func (s *Service) DeletePurchase(ctx context.Context, actor scope.Actor, id uint) error {
	db := s.db.WithContext(ctx)
	p, err := s.findPurchase(db, actor, id)
	if err != nil {
		return err
	}
	if p.Status != models.PurchaseStatusDraft {
		return domain.NewConflictError("only draft purchases can be deleted")
	}

	res := db.Where("id = ? AND status = ?", id, models.PurchaseStatusDraft).Delete(&models.Purchase{})
	if res.Error != nil {
		return database.Translate(res.Error, resourcePurchase)
	}
	if res.RowsAffected == 0 {
		return domain.NewConflictError("only draft purchases can be deleted")
	}
	return nil
}

// Totals returns the VAT breakdown of a purchase.
func (s *Service) Totals(ctx context.Context, actor scope.Actor, id uint) (*models.Totals, error) {
	p, err := s.findPurchase(s.db.WithContext(ctx).Preload("Items"), actor, id)
	if err != nil {
		return nil, err
	}
	subtotal := decimal.Zero
	for _, item := range p.Items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	totals := models.ComputeTotals(subtotal)
	return &totals, nil
}

func isReceiving(status models.PurchaseStatus) bool {
	return status == models.PurchaseStatusPartiallyReceived || status == models.PurchaseStatusReceived
}

// newReference builds a reference number such as PO-20260301-1A2B3C4D.
func newReference(date models.Date) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("PO-%s-%s", date.Format("20060102"), id[:8])
}
