package sales

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/inventory"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
)

var saleStatuses = models.Strings(models.SaleStatuses)

func salesOf(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("sales", scope.Sales.Predicate(actor)).And(preds...)
}

// itemsOf restricts sale lines to the sales of src.
func (s *Service) itemsOf(sales report.Source) report.Source {
	return report.From("sale_items", entsql.In("sale_id", s.engine.Subquery(sales, "id")))
}

// Dashboard is the sales dashboard of one actor.
type Dashboard struct {
	Today           report.Total  `json:"today_sales"`
	Month           report.Total  `json:"month_sales"`
	Last30Days      report.Total  `json:"last_30_days"`
	StatusBreakdown report.Counts `json:"status_breakdown"`
}

// Dashboard totals the sales visible to actor for today, this month and
// the last 30 days.
func (s *Service) Dashboard(ctx context.Context, actor scope.Actor) (*Dashboard, error) {
	now := s.now()
	today := models.DateOf(now)
	month := report.LastMonths(1, now)[0]
	var (
		out Dashboard
		err error
	)

	if out.Today, err = s.engine.Totals(ctx, salesOf(actor, entsql.EQ("date", today.Time)), "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total today's sales: %w", err)
	}
	if out.Month, err = s.engine.Totals(ctx, salesOf(actor, month.WithinDates("date")), "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total this month's sales: %w", err)
	}
	last30 := report.TrailingDays(30, now)
	if out.Last30Days, err = s.engine.Totals(ctx, salesOf(actor, last30.OnDates("date")), "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total recent sales: %w", err)
	}
	if out.StatusBreakdown, err = s.engine.CountBy(ctx, salesOf(actor), "status", saleStatuses); err != nil {
		return nil, fmt.Errorf("failed to count sales by status: %w", err)
	}
	return &out, nil
}

// ProductSales is the volume and revenue of one product.
type ProductSales struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"product_name"`
	Quantity  int64           `json:"total_quantity"`
	Revenue   decimal.Decimal `json:"total_amount"`
	Lines     int64           `json:"sale_count"`
}

// CustomerSales is the spend of one customer.
type CustomerSales struct {
	CustomerID uint            `json:"customer_id"`
	Name       string          `json:"customer_name"`
	Count      int64           `json:"total_sales"`
	Spent      decimal.Decimal `json:"total_amount"`
}

// Report is the sales report over an optional date range.
type Report struct {
	Range      report.Range    `json:"range"`
	Total      report.Total    `json:"total_sales"`
	ByProduct  []ProductSales  `json:"sales_by_product"`
	ByCustomer []CustomerSales `json:"sales_by_customer"`
}

// Report totals the sales visible to actor within rng by product and by
// customer.
func (s *Service) Report(ctx context.Context, actor scope.Actor, rng report.Range) (*Report, error) {
	sales := salesOf(actor, rng.OnDates("date")...)
	out := Report{Range: rng}
	var err error

	if out.Total, err = s.engine.Totals(ctx, sales, "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total sales: %w", err)
	}
	if out.ByProduct, err = s.productSales(ctx, sales, -1); err != nil {
		return nil, err
	}
	if out.ByCustomer, err = s.customerSales(ctx, sales, -1); err != nil {
		return nil, err
	}
	return &out, nil
}

// productSales groups the lines of sales per product, highest revenue
// first, keeping at most n entries (all when n < 0).
func (s *Service) productSales(ctx context.Context, sales report.Source, n int) ([]ProductSales, error) {
	groups, err := s.engine.Group(ctx, s.itemsOf(sales), "product_id", "quantity", "total_price")
	if err != nil {
		return nil, fmt.Errorf("failed to group sales by product: %w", err)
	}
	groups = report.Top(groups, n, report.BySum(1))

	names, err := s.engine.Names(ctx, "products", groups)
	if err != nil {
		return nil, err
	}
	out := make([]ProductSales, 0, len(groups))
	for _, g := range groups {
		id := g.ID()
		out = append(out, ProductSales{
			ProductID: id,
			Name:      names[id],
			Quantity:  g.Sum(0).IntPart(),
			Revenue:   g.Sum(1),
			Lines:     g.Count,
		})
	}
	return out, nil
}

// customerSales groups sales per customer, highest spend first.
func (s *Service) customerSales(ctx context.Context, sales report.Source, n int) ([]CustomerSales, error) {
	groups, err := s.engine.Group(ctx, sales, "customer_id", "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to group sales by customer: %w", err)
	}
	groups = report.Top(groups, n, report.BySum(0))

	names, err := s.engine.Names(ctx, "customers", groups)
	if err != nil {
		return nil, err
	}
	out := make([]CustomerSales, 0, len(groups))
	for _, g := range groups {
		id := g.ID()
		out = append(out, CustomerSales{
			CustomerID: id,
			Name:       names[id],
			Count:      g.Count,
			Spent:      g.Sum(0),
		})
	}
	return out, nil
}


// Summary is the headline of the sales analytics.
type Summary struct {
	TotalSales       int64           `json:"total_sales"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	AverageSaleValue decimal.Decimal `json:"average_sale_value"`
}

// Trends holds the time and status breakdowns of the sales analytics.
type Trends struct {
	DailySales []report.DayBucket      `json:"daily_sales"`
	ByStatus   map[string]report.Total `json:"by_status"`
	Monthly    []report.MonthBucket    `json:"monthly_sales"`
}

// Analytics is the sales analytics of a trailing window.
type Analytics struct {
	Period       report.Window   `json:"period"`
	Summary      Summary         `json:"summary"`
	Trends       Trends          `json:"trends"`
	TopProducts  []ProductSales  `json:"top_products"`
	TopCustomers []CustomerSales `json:"top_customers"`
}

// Analytics summarizes the sales visible to actor dated within w.
func (s *Service) Analytics(ctx context.Context, actor scope.Actor, w report.Window) (*Analytics, error) {
	sales := salesOf(actor, w.OnDates("date"))
	out := Analytics{Period: w}

	totals, err := s.engine.Totals(ctx, sales, "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to total sales: %w", err)
	}
	out.Summary = Summary{
		TotalSales:       totals.Count,
		TotalRevenue:     totals.Sum,
		AverageSaleValue: report.Average(totals.Sum, totals.Count),
	}

	points, err := s.engine.Points(ctx, sales, "date", "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to load sale amounts: %w", err)
	}
	out.Trends.DailySales = report.Daily(points, w.StartDate(), w.EndDate())
	out.Trends.Monthly = report.Monthly(points, report.Months(w.Start, w.End))
	if out.Trends.ByStatus, err = s.engine.TotalsBy(ctx, sales, "status", "total_amount", saleStatuses); err != nil {
		return nil, fmt.Errorf("failed to total sales by status: %w", err)
	}

	if out.TopProducts, err = s.productSales(ctx, sales, 10); err != nil {
		return nil, err
	}
	if out.TopCustomers, err = s.customerSales(ctx, sales, 10); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductMetric is the catalog entry of one product with its sales.
type ProductMetric struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	Price     decimal.Decimal `json:"price"`
	UnitsSold int64           `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
	SaleCount int64           `json:"sale_count"`
}

// ProductPerformance ranks the catalog over a window.
type ProductPerformance struct {
	Period         report.Window     `json:"period"`
	Metrics        []ProductMetric   `json:"product_metrics"`
	LowStockAlerts []inventory.Alert `json:"low_stock_alerts"`
	BestSellers    []ProductSales    `json:"best_sellers"`
}

// ProductPerformance reports every product with what it sold within w,
// the products at their reorder level and the five best sellers by units.
func (s *Service) ProductPerformance(ctx context.Context, actor scope.Actor, w report.Window) (*ProductPerformance, error) {
	sales := salesOf(actor, w.OnDates("date"))
	out := ProductPerformance{Period: w}

	groups, err := s.engine.Group(ctx, s.itemsOf(sales), "product_id", "quantity", "total_price")
	if err != nil {
		return nil, fmt.Errorf("failed to group sales by product: %w", err)
	}
	byProduct := make(map[uint]report.Group, len(groups))
	for _, g := range groups {
		byProduct[g.ID()] = g
	}

	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	out.Metrics = make([]ProductMetric, 0, len(products))
	for _, p := range products {
		g := byProduct[p.ID]
		out.Metrics = append(out.Metrics, ProductMetric{
			ID:        p.ID,
			Name:      p.Name,
			Stock:     p.Stock,
			Price:     p.Price,
			UnitsSold: g.Sum(0).IntPart(),
			Revenue:   g.Sum(1),
			SaleCount: g.Count,
		})
	}

	low, err := s.LowStockProducts(ctx, -1)
	if err != nil {
		return nil, err
	}
	out.LowStockAlerts = inventory.Alerts(low)

	best := report.Top(groups, 5, report.BySum(0))
	names, err := s.engine.Names(ctx, "products", best)
	if err != nil {
		return nil, err
	}
	out.BestSellers = make([]ProductSales, 0, len(best))
	for _, g := range best {
		id := g.ID()
		out.BestSellers = append(out.BestSellers, ProductSales{
			ProductID: id,
			Name:      names[id],
			Quantity:  g.Sum(0).IntPart(),
			Revenue:   g.Sum(1),
			Lines:     g.Count,
		})
	}
	return &out, nil
}
