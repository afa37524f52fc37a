package purchases

import (
	"context"
	"fmt"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/inventory"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"gorm.io/gorm"
)

// ReceiptLine records how much of one purchase line has arrived in total.
type ReceiptLine struct {
	ItemID           uint `json:"item_id" validate:"required"`
	ReceivedQuantity int  `json:"received_quantity" validate:"gte=0"`
	QualityIssues    int  `json:"quality_issues" validate:"gte=0"`
}

// ReceiveRequest is the payload of a goods receipt.
type ReceiveRequest struct {
	Items []ReceiptLine `json:"items" validate:"required,min=1,dive"`
}

// ReceiptProcessedEvent is published after a receipt moved stock.
type ReceiptProcessedEvent struct {
	PurchaseID uint                  `json:"purchase_id"`
	Status     models.PurchaseStatus `json:"status"`
	Movements  map[uint]int          `json:"movements"`
}

// ReceiveItems sets the received quantity of the given lines and moves
// product stock by the difference with what was received before. A line
// changed by another receipt since it was loaded fails the whole receipt
// as stale. The
// purchase becomes received once every line is complete, partially
// received while only some goods arrived.
func (s *Service) ReceiveItems(ctx context.Context, actor scope.Actor, purchaseID uint, req ReceiveRequest) (*models.Purchase, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	movements := make(map[uint]int)
	var status models.PurchaseStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.findPurchase(tx.Preload("Items"), actor, purchaseID)
		if err != nil {
			return err
		}
		if p.Status == models.PurchaseStatusCancelled {
			return domain.NewConflictError("cancelled purchases cannot be received")
		}

		lines := make(map[uint]*models.PurchaseItem, len(p.Items))
		for i := range p.Items {
			lines[p.Items[i].ID] = &p.Items[i]
		}

		now := s.now()
		for i, r := range req.Items {
			field := fmt.Sprintf("items[%d]", i)
			item, ok := lines[r.ItemID]
			if !ok {
				return domain.NewFieldError(field+".item_id", "is not a line of this purchase")
			}
			if r.ReceivedQuantity > item.Quantity {
				return domain.NewFieldError(field+".received_quantity", "must not exceed the ordered quantity")
			}

			delta := r.ReceivedQuantity - item.ReceivedQuantity
			res := tx.Model(&models.PurchaseItem{}).
				Where("id = ? AND version = ?", item.ID, item.Version).
				Updates(map[string]any{
					"received_quantity": r.ReceivedQuantity,
					"quality_issues":    r.QualityIssues,
					"received_at":       now,
					"version":           gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return database.Translate(res.Error, resourcePurchaseItem)
			}
			if res.RowsAffected == 0 {
				return domain.NewStaleError(resourcePurchaseItem)
			}
			item.ReceivedQuantity = r.ReceivedQuantity
			item.QualityIssues = r.QualityIssues
			item.ReceivedAt = &now
			item.Version++

			if err := inventory.Adjust(tx, item.ProductID, delta); err != nil {
				return err
			}
			if delta != 0 {
				movements[item.ProductID] += delta
			}
		}

		status = receiptStatus(p)
		updates := map[string]any{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		}
		if status == models.PurchaseStatusReceived {
			today := models.DateOf(now)
			updates["actual_delivery_date"] = &today
		} else {
			updates["actual_delivery_date"] = nil
		}
		err = tx.Model(&models.Purchase{}).Where("id = ?", p.ID).Updates(updates).Error
		return database.Translate(err, resourcePurchase)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("purchase received", "purchase_id", purchaseID, "status", string(status), "products", len(movements))
	events.Emit(ctx, s.events, s.log, events.SubjectReceiptProcessed, ReceiptProcessedEvent{
		PurchaseID: purchaseID,
		Status:     status,
		Movements:  movements,
	})
	return s.GetPurchase(ctx, actor, purchaseID)
}

// receiptStatus derives the purchase status from its lines. A purchase
// where nothing has arrived keeps its status.
func receiptStatus(p *models.Purchase) models.PurchaseStatus {
	if len(p.Items) == 0 {
		return p.Status
	}
	all, some := true, false
	for _, item := range p.Items {
		if !item.FullyReceived() {
			all = false
		}
		if item.ReceivedQuantity > 0 {
			some = true
		}
	}
	switch {
	case all:
		return models.PurchaseStatusReceived
	case some:
		return models.PurchaseStatusPartiallyReceived
	case isReceiving(p.Status):
		return models.PurchaseStatusOrdered
	}
	return p.Status
}
