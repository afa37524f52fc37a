package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier provides products.
type Supplier struct {
	Base
	Name      string `gorm:"size:200;not null" json:"name"`
	Email     string `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Phone     string `gorm:"size:20;not null" json:"phone"`
	Address   string `gorm:"type:text" json:"address"`
	Company   string `gorm:"size:200;not null" json:"company"`
	TaxNumber string `gorm:"size:50" json:"tax_number,omitempty"`
	Notes     string `gorm:"type:text" json:"notes,omitempty"`
}

// PurchaseStatus is the lifecycle state of a purchase order.
type PurchaseStatus string

const (
	PurchaseStatusDraft             PurchaseStatus = "draft"
	PurchaseStatusOrdered           PurchaseStatus = "ordered"
	PurchaseStatusPartiallyReceived PurchaseStatus = "partially_received"
	PurchaseStatusReceived          PurchaseStatus = "received"
	PurchaseStatusCancelled         PurchaseStatus = "cancelled"
)

// PurchaseStatuses lists every purchase status in lifecycle order.
var PurchaseStatuses = []PurchaseStatus{
	PurchaseStatusDraft, PurchaseStatusOrdered, PurchaseStatusPartiallyReceived,
	PurchaseStatusReceived, PurchaseStatusCancelled,
}

// Purchase is an order placed with a supplier.
type Purchase struct {
	Base
	SupplierID           uint            `gorm:"not null;index" json:"supplier_id"`
	Supplier             *Supplier       `gorm:"constraint:OnDelete:RESTRICT" json:"supplier,omitempty"`
	PurchaseDate         Date            `gorm:"not null;index" json:"purchase_date"`
	ReferenceNumber      string          `gorm:"size:50;not null;uniqueIndex" json:"reference_number"`
	Status               PurchaseStatus  `gorm:"size:20;not null;default:draft;index" json:"status"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	TaxAmount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	ExpectedDeliveryDate *Date           `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *Date           `json:"actual_delivery_date,omitempty"`
	CreatedByID          uint            `gorm:"not null;index" json:"created_by"`
	CreatedBy            *User           `gorm:"foreignKey:CreatedByID;constraint:OnDelete:RESTRICT" json:"created_by_detail,omitempty"`
	Notes                string          `gorm:"type:text" json:"notes,omitempty"`
	Version              int             `gorm:"not null" json:"version"`
	Items                []PurchaseItem  `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// ApplyTotals sets tax and total from the item subtotal.
func (p *Purchase) ApplyTotals(subtotal decimal.Decimal) {
	t := ComputeTotals(subtotal)
	p.TaxAmount = t.VAT
	p.TotalAmount = t.Total
}

// PurchaseItem is one line of a purchase.
type PurchaseItem struct {
	Base
	PurchaseID       uint            `gorm:"not null;index" json:"purchase_id"`
	ProductID        uint            `gorm:"not null;index" json:"product_id"`
	Product          *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	ReceivedQuantity int             `gorm:"not null" json:"received_quantity"`
	ReceivedAt       *time.Time      `json:"received_at,omitempty"`
	QualityIssues    int             `gorm:"not null" json:"quality_issues"`
	Version          int             `gorm:"not null" json:"version"`
}

// Recalculate refreshes the derived line total.
func (i *PurchaseItem) Recalculate() {
	i.TotalPrice = LineTotal(i.Quantity, i.UnitPrice)
}

// FullyReceived reports whether the ordered quantity has arrived.
func (i PurchaseItem) FullyReceived() bool {
	return i.ReceivedQuantity >= i.Quantity
}
