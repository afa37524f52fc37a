package purchases

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
)

var purchaseStatuses = models.Strings(models.PurchaseStatuses)

func purchasesOf(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("purchases", scope.Purchases.Predicate(actor)).And(preds...)
}

func (s *Service) itemsOf(purchases report.Source, preds ...*entsql.Predicate) report.Source {
	return report.From("purchase_items", entsql.In("purchase_id", s.engine.Subquery(purchases, "id"))).And(preds...)
}

// Dashboard is the purchasing dashboard of one actor.
type Dashboard struct {
	Today           report.Total  `json:"today_purchases"`
	Month           report.Total  `json:"month_purchases"`
	Last30Days      report.Total  `json:"last_30_days"`
	StatusBreakdown report.Counts `json:"status_breakdown"`
}

// Dashboard totals the purchases visible to actor for today, this month
// and the last 30 days.
func (s *Service) Dashboard(ctx context.Context, actor scope.Actor) (*Dashboard, error) {
	now := s.now()
	today := models.DateOf(now)
	month := report.LastMonths(1, now)[0]
	var (
		out Dashboard
		err error
	)

	if out.Today, err = s.engine.Totals(ctx, purchasesOf(actor, entsql.EQ("purchase_date", today.Time)), "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total today's purchases: %w", err)
	}
	if out.Month, err = s.engine.Totals(ctx, purchasesOf(actor, month.WithinDates("purchase_date")), "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total this month's purchases: %w", err)
	}
	last30 := report.TrailingDays(30, now)
	if out.Last30Days, err = s.engine.Totals(ctx, purchasesOf(actor, last30.OnDates("purchase_date")), "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total recent purchases: %w", err)
	}
	if out.StatusBreakdown, err = s.engine.CountBy(ctx, purchasesOf(actor), "status", purchaseStatuses); err != nil {
		return nil, fmt.Errorf("failed to count purchases by status: %w", err)
	}
	return &out, nil
}

// SupplierSpend is what was bought from one supplier.
type SupplierSpend struct {
	SupplierID uint            `json:"supplier_id"`
	Name       string          `json:"supplier_name"`
	Count      int64           `json:"purchase_count"`
	Total      decimal.Decimal `json:"total_amount"`
	Average    decimal.Decimal `json:"average_amount"`
}

// ProductCost is the purchased volume and cost of one product.
type ProductCost struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"product_name"`
	Quantity  int64           `json:"total_quantity"`
	Cost      decimal.Decimal `json:"total_amount"`
}

// Report is the purchasing report over an optional date range.
type Report struct {
	Range        report.Range    `json:"range"`
	Total        report.Total    `json:"total_purchases"`
	BySupplier   []SupplierSpend `json:"purchases_by_supplier"`
	ItemsSummary []ProductCost   `json:"items_summary"`
}

// Report totals the purchases visible to actor within rng by supplier and
// by product.
func (s *Service) Report(ctx context.Context, actor scope.Actor, rng report.Range) (*Report, error) {
	purchases := purchasesOf(actor, rng.OnDates("purchase_date")...)
	out := Report{Range: rng}
	var err error

	if out.Total, err = s.engine.Totals(ctx, purchases, "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total purchases: %w", err)
	}
	if out.BySupplier, err = s.supplierSpend(ctx, purchases); err != nil {
		return nil, err
	}
	if out.ItemsSummary, err = s.productCosts(ctx, purchases, -1); err != nil {
		return nil, err
	}
	return &out, nil
}

// supplierSpend groups purchases per supplier, highest spend first.
func (s *Service) supplierSpend(ctx context.Context, purchases report.Source) ([]SupplierSpend, error) {
	groups, err := s.engine.Group(ctx, purchases, "supplier_id", "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to group purchases by supplier: %w", err)
	}
	groups = report.Top(groups, -1, report.BySum(0))

	names, err := s.engine.Names(ctx, "suppliers", groups)
	if err != nil {
		return nil, err
	}
	out := make([]SupplierSpend, 0, len(groups))
	for _, g := range groups {
		id := g.ID()
		out = append(out, SupplierSpend{
			SupplierID: id,
			Name:       names[id],
			Count:      g.Count,
			Total:      g.Sum(0),
			Average:    report.Average(g.Sum(0), g.Count),
		})
	}
	return out, nil
}

// productCosts groups the lines of purchases per product, highest cost
// first, keeping at most n entries (all when n < 0).
func (s *Service) productCosts(ctx context.Context, purchases report.Source, n int) ([]ProductCost, error) {
	groups, err := s.engine.Group(ctx, s.itemsOf(purchases), "product_id", "quantity", "total_price")
	if err != nil {
		return nil, fmt.Errorf("failed to group purchases by product: %w", err)
	}
	groups = report.Top(groups, n, report.BySum(1))

	names, err := s.engine.Names(ctx, "products", groups)
	if err != nil {
		return nil, err
	}
	out := make([]ProductCost, 0, len(groups))
	for _, g := range groups {
		id := g.ID()
		out = append(out, ProductCost{
			ProductID: id,
			Name:      names[id],
			Quantity:  g.Sum(0).IntPart(),
			Cost:      g.Sum(1),
		})
	}
	return out, nil
}

// Summary is the headline of the purchasing analytics.
type Summary struct {
	TotalPurchases       int64           `json:"total_purchases"`
	TotalSpent           decimal.Decimal `json:"total_spent"`
	AveragePurchaseValue decimal.Decimal `json:"average_purchase_value"`
}

// Trends holds the time and status breakdowns of the purchasing analytics.
type Trends struct {
	DailyPurchases []report.DayBucket      `json:"daily_purchases"`
	ByStatus       map[string]report.Total `json:"by_status"`
}

// Analytics is the purchasing analytics of a trailing window.
type Analytics struct {
	Period           report.Window   `json:"period"`
	Summary          Summary         `json:"summary"`
	Trends           Trends          `json:"trends"`
	SupplierAnalysis []SupplierSpend `json:"supplier_analysis"`
	TopProducts      []ProductCost   `json:"top_products"`
}

// Analytics summarizes the purchases visible to actor dated within w.
func (s *Service) Analytics(ctx context.Context, actor scope.Actor, w report.Window) (*Analytics, error) {
	purchases := purchasesOf(actor, w.OnDates("purchase_date"))
	out := Analytics{Period: w}

	totals, err := s.engine.Totals(ctx, purchases, "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to total purchases: %w", err)
	}
	out.Summary = Summary{
		TotalPurchases:       totals.Count,
		TotalSpent:           totals.Sum,
		AveragePurchaseValue: report.Average(totals.Sum, totals.Count),
	}

	points, err := s.engine.Points(ctx, purchases, "purchase_date", "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase amounts: %w", err)
	}
	out.Trends.DailyPurchases = report.Daily(points, w.StartDate(), w.EndDate())
	if out.Trends.ByStatus, err = s.engine.TotalsBy(ctx, purchases, "status", "total_amount", purchaseStatuses); err != nil {
		return nil, fmt.Errorf("failed to total purchases by status: %w", err)
	}

	if out.SupplierAnalysis, err = s.supplierSpend(ctx, purchases); err != nil {
		return nil, err
	}
	if out.TopProducts, err = s.productCosts(ctx, purchases, 10); err != nil {
		return nil, err
	}
	return &out, nil
}
