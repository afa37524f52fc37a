package models

import (
	"github.com/shopspring/decimal"
)

// VATRate is the value added tax applied to sales and purchases.
var VATRate = decimal.RequireFromString("0.15")

// DefaultMinimumStock is the reorder level of products created without one.
const DefaultMinimumStock = 10

// Customer is a buyer of products.
type Customer struct {
	Base
	Name    string `gorm:"size:200;not null" json:"name"`
	Email   string `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Phone   string `gorm:"size:20;not null" json:"phone"`
	Address string `gorm:"type:text" json:"address"`
	Company string `gorm:"size:200" json:"company,omitempty"`
	Notes   string `gorm:"type:text" json:"notes,omitempty"`
}

// Product is a stock keeping unit.
type Product struct {
	Base
	Name         string          `gorm:"size:200;not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	SKU          string          `gorm:"column:sku;size:50;not null;uniqueIndex" json:"sku"`
	Stock        int             `gorm:"not null" json:"stock"`
	MinimumStock int             `gorm:"not null" json:"minimum_stock"`
	Version      int             `gorm:"not null" json:"version"`
}

// IsLowStock reports whether the product is at or below its reorder level.
func (p Product) IsLowStock() bool {
	return p.Stock <= p.MinimumStock
}

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// SaleStatuses lists every sale status.
var SaleStatuses = []SaleStatus{SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled}

// Sale is an order placed by a customer.
type Sale struct {
	Base
	CustomerID    uint            `gorm:"not null;index" json:"customer_id"`
	Customer      *Customer       `gorm:"constraint:OnDelete:RESTRICT" json:"customer,omitempty"`
	SalesPersonID uint            `gorm:"not null;index" json:"sales_person"`
	SalesPerson   *User           `gorm:"foreignKey:SalesPersonID;constraint:OnDelete:RESTRICT" json:"sales_person_detail,omitempty"`
	Date          Date            `gorm:"not null;index" json:"date"`
	Status        SaleStatus      `gorm:"size:20;not null;default:pending;index" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	StockApplied  bool            `gorm:"not null" json:"stock_applied"`
	Version       int             `gorm:"not null" json:"version"`
	Items         []SaleItem      `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// IsEditable reports whether the lines of the sale may still change.
func (s Sale) IsEditable() bool {
	return s.Status == SaleStatusPending
}

// SaleItem is one line of a sale.
type SaleItem struct {
	Base
	SaleID     uint            `gorm:"not null;index" json:"sale_id"`
	ProductID  uint            `gorm:"not null;index" json:"product_id"`
	Product    *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	Version    int             `gorm:"not null" json:"version"`
}

// LineTotal returns quantity × unit price rounded to cents.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Recalculate refreshes the derived line total.
func (i *SaleItem) Recalculate() {
	i.TotalPrice = LineTotal(i.Quantity, i.UnitPrice)
}

// Totals is a VAT breakdown of an amount.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	VAT      decimal.Decimal `json:"vat"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals applies VATRate to subtotal.
func ComputeTotals(subtotal decimal.Decimal) Totals {
	vat := subtotal.Mul(VATRate).Round(2)
	return Totals{Subtotal: subtotal.Round(2), VAT: vat, Total: subtotal.Add(vat).Round(2)}
}
