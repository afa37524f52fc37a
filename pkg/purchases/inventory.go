package purchases

import (
	"context"
	"fmt"
	"math"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/inventory"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is the stock level the inventory report counts
// as low when no threshold is given.
const DefaultLowStockThreshold = 10

const (
	turnoverDays = 365
	// salesHistoryDays is the history purchase suggestions average over.
	salesHistoryDays = 90
)

// InventorySummary counts the catalog.
type InventorySummary struct {
	TotalProducts       int64           `json:"total_products"`
	LowStockProducts    int64           `json:"low_stock_products"`
	OutOfStockProducts  int64           `json:"out_of_stock_products"`
	TotalInventoryValue decimal.Decimal `json:"total_inventory_value"`
}

// Turnover is how fast one product moves over the last year.
type Turnover struct {
	ProductID        uint    `json:"product_id"`
	Name             string  `json:"product_name"`
	SoldQuantity     int64   `json:"sold_quantity"`
	AverageInventory float64 `json:"average_inventory"`
	TurnoverRate     float64 `json:"turnover_rate"`
	DaysOnHand       float64 `json:"days_on_hand"`
}

// Suggestion is a proposed reorder of one product.
type Suggestion struct {
	ProductID         uint            `json:"product_id"`
	Name              string          `json:"product_name"`
	CurrentStock      int             `json:"current_stock"`
	MinimumStock      int             `json:"minimum_stock"`
	SuggestedQuantity int             `json:"suggested_quantity"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost"`
}

// InventoryReport is the stock position of the whole catalog.
type InventoryReport struct {
	Threshold   int               `json:"low_stock_threshold"`
	Summary     InventorySummary  `json:"summary"`
	StockAlerts []inventory.Alert `json:"stock_alerts"`
	Turnover    []Turnover        `json:"inventory_turnover"`
	Suggestions []Suggestion      `json:"purchase_suggestions"`
}

// InventoryReport summarizes stock levels against threshold, the yearly
// turnover of every product and what to reorder. Stock is shared, so the
// report covers every product and every completed sale.
func (s *Service) InventoryReport(ctx context.Context, threshold int) (*InventoryReport, error) {
	if threshold < 0 {
		return nil, domain.NewFieldError("low_stock_threshold", "must not be negative")
	}
	now := s.now()
	out := InventoryReport{Threshold: threshold}

	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	value := decimal.Zero
	for _, p := range products {
		value = value.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
		if p.Stock <= threshold {
			out.Summary.LowStockProducts++
		}
		if p.Stock <= 0 {
			out.Summary.OutOfStockProducts++
		}
	}
	out.Summary.TotalProducts = int64(len(products))
	out.Summary.TotalInventoryValue = value.Round(2)

	low, err := inventory.LowStock(ctx, s.db, -1)
	if err != nil {
		return nil, err
	}
	out.StockAlerts = inventory.Alerts(low)

	year := report.TrailingDays(turnoverDays, now)
	sold, err := s.soldQuantities(ctx, year)
	if err != nil {
		return nil, err
	}
	bought, err := s.boughtQuantities(ctx, year)
	if err != nil {
		return nil, err
	}
	out.Turnover = make([]Turnover, 0, len(products))
	for _, p := range products {
		out.Turnover = append(out.Turnover, turnover(p, sold[p.ID], bought[p.ID]))
	}

	recent, err := s.soldQuantities(ctx, report.TrailingDays(salesHistoryDays, now))
	if err != nil {
		return nil, err
	}
	out.Suggestions = make([]Suggestion, 0)
	for _, p := range low {
		monthly := float64(recent[p.ID]) / (salesHistoryDays / 30)
		if sg, ok := suggest(p, monthly); ok {
			out.Suggestions = append(out.Suggestions, sg)
		}
	}
	return &out, nil
}

// soldQuantities sums the units of completed sales dated within w per
// product.
func (s *Service) soldQuantities(ctx context.Context, w report.Window) (map[uint]int64, error) {
	sales := report.From("sales", entsql.EQ("status", string(models.SaleStatusCompleted)), w.OnDates("date"))
	lines := report.From("sale_items", entsql.In("sale_id", s.engine.Subquery(sales, "id")))
	return s.quantities(ctx, lines)
}

// boughtQuantities sums the units ordered within w per product.
func (s *Service) boughtQuantities(ctx context.Context, w report.Window) (map[uint]int64, error) {
	purchases := report.From("purchases", w.OnDates("purchase_date"))
	return s.quantities(ctx, s.itemsOf(purchases))
}

func (s *Service) quantities(ctx context.Context, lines report.Source) (map[uint]int64, error) {
	groups, err := s.engine.Group(ctx, lines, "product_id", "quantity")
	if err != nil {
		return nil, fmt.Errorf("failed to sum quantities in %s: %w", lines.Table, err)
	}
	out := make(map[uint]int64, len(groups))
	for _, g := range groups {
		out[g.ID()] = g.Sum(0).IntPart()
	}
	return out, nil
}

// turnover rates a product against the average of its stock and what was
// bought over the period.
func turnover(p models.Product, sold, bought int64) Turnover {
	t := Turnover{ProductID: p.ID, Name: p.Name, SoldQuantity: sold}
	t.AverageInventory = report.Round2(float64(int64(p.Stock)+bought) / 2)
	t.TurnoverRate = report.Ratio(float64(sold), t.AverageInventory)
	if sold > 0 {
		t.DaysOnHand = report.Round2(t.AverageInventory / float64(sold) * turnoverDays)
	}
	return t
}

// suggest proposes enough units to reach the larger of twice the minimum
// stock and one and a half months of sales, rounded up to whole units.
func suggest(p models.Product, monthlySales float64) (Suggestion, bool) {
	target := math.Max(float64(p.MinimumStock*2), monthlySales*1.5)
	qty := int(math.Ceil(target)) - p.Stock
	if qty <= 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		ProductID:         p.ID,
		Name:              p.Name,
		CurrentStock:      p.Stock,
		MinimumStock:      p.MinimumStock,
		SuggestedQuantity: qty,
		EstimatedCost:     p.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2),
	}, true
}
