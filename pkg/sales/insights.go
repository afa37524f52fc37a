package sales

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
)

// Segments counts the customers who bought within a window.
type Segments struct {
	TotalCustomers  int64 `json:"total_customers"`
	NewCustomers    int64 `json:"new_customers"`
	ActiveCustomers int64 `json:"active_customers"`
}

// FrequencyBucket is how many customers bought a given number of times.
type FrequencyBucket struct {
	PurchaseCount int64 `json:"purchase_count"`
	CustomerCount int64 `json:"customer_count"`
}

// ValueSegment is the spend of one customer.
type ValueSegment struct {
	ID         uint            `json:"id"`
	Name       string          `json:"name"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// PurchasePatterns groups customers by frequency and by value.
type PurchasePatterns struct {
	Frequency     []FrequencyBucket `json:"frequency"`
	ValueSegments []ValueSegment    `json:"value_segments"`
}

// Retention compares the buyers of a window with those of the window
// before it.
type Retention struct {
	RetentionRate     float64 `json:"retention_rate"`
	RetainedCustomers int     `json:"retained_customers"`
	LostCustomers     int     `json:"lost_customers"`
	NewCustomers      int     `json:"new_customers"`
}

// CustomerInsights describes the customer base over a window.
type CustomerInsights struct {
	Period    report.Window    `json:"period"`
	Segments  Segments         `json:"customer_segments"`
	Patterns  PurchasePatterns `json:"purchase_patterns"`
	Retention Retention        `json:"retention"`
}

// CustomerInsights segments the customers who bought within w from the
// sales visible to actor.
func (s *Service) CustomerInsights(ctx context.Context, actor scope.Actor, w report.Window) (*CustomerInsights, error) {
	sales := salesOf(actor, w.OnDates("date"))
	out := CustomerInsights{Period: w}

	groups, err := s.engine.Group(ctx, sales, "customer_id", "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to group sales by customer: %w", err)
	}
	out.Segments.TotalCustomers = int64(len(groups))
	out.Segments.ActiveCustomers = int64(len(groups))

	if len(groups) > 0 {
		buyers := s.engine.Subquery(sales, "customer_id")
		newcomers := report.From("customers", entsql.In("id", buyers), w.Since("created_at"))
		if out.Segments.NewCustomers, err = s.engine.Count(ctx, newcomers); err != nil {
			return nil, fmt.Errorf("failed to count new customers: %w", err)
		}
	}

	histogram := make(map[int64]int64)
	for _, g := range groups {
		histogram[g.Count]++
	}
	out.Patterns.Frequency = make([]FrequencyBucket, 0, len(histogram))
	for count, customers := range histogram {
		out.Patterns.Frequency = append(out.Patterns.Frequency, FrequencyBucket{PurchaseCount: count, CustomerCount: customers})
	}
	sort.Slice(out.Patterns.Frequency, func(i, j int) bool {
		return out.Patterns.Frequency[i].PurchaseCount < out.Patterns.Frequency[j].PurchaseCount
	})

	ranked := report.Top(groups, -1, report.BySum(0))
	names, err := s.engine.Names(ctx, "customers", ranked)
	if err != nil {
		return nil, err
	}
	out.Patterns.ValueSegments = make([]ValueSegment, 0, len(ranked))
	for _, g := range ranked {
		id := g.ID()
		out.Patterns.ValueSegments = append(out.Patterns.ValueSegments, ValueSegment{ID: id, Name: names[id], TotalSpent: g.Sum(0)})
	}

	if out.Retention, err = s.retention(ctx, actor, w); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) retention(ctx context.Context, actor scope.Actor, w report.Window) (Retention, error) {
	current, err := s.engine.Distinct(ctx, salesOf(actor, w.OnDates("date")), "customer_id")
	if err != nil {
		return Retention{}, fmt.Errorf("failed to list current buyers: %w", err)
	}
	previous, err := s.engine.Distinct(ctx, salesOf(actor, w.Previous().OnDates("date")), "customer_id")
	if err != nil {
		return Retention{}, fmt.Errorf("failed to list previous buyers: %w", err)
	}

	now := make(map[int64]bool, len(current))
	for _, id := range current {
		now[id] = true
	}
	before := make(map[int64]bool, len(previous))
	var r Retention
	for _, id := range previous {
		before[id] = true
		if now[id] {
			r.RetainedCustomers++
		} else {
			r.LostCustomers++
		}
	}
	for _, id := range current {
		if !before[id] {
			r.NewCustomers++
		}
	}
	r.RetentionRate = report.Rate(int64(r.RetainedCustomers), int64(len(previous)))
	return r, nil
}

// CustomerMetrics is the purchase history of one customer.
type CustomerMetrics struct {
	CustomerID        uint            `json:"customer_id"`
	TotalPurchases    int64           `json:"total_purchases"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	AveragePurchase   decimal.Decimal `json:"average_purchase"`
	FirstPurchaseDate *models.Date    `json:"first_purchase_date"`
	LastPurchaseDate  *models.Date    `json:"last_purchase_date"`
	// PurchaseFrequency is purchases per day between the first and last
	// purchase, 0 with fewer than two purchases on distinct days.
	PurchaseFrequency float64 `json:"purchase_frequency"`
}

// CustomerMetrics summarizes the sales to one customer visible to actor.
func (s *Service) CustomerMetrics(ctx context.Context, actor scope.Actor, customerID uint) (*CustomerMetrics, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	sales := salesOf(actor, entsql.EQ("customer_id", customerID))
	totals, err := s.engine.Totals(ctx, sales, "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to total customer sales: %w", err)
	}
	out := CustomerMetrics{
		CustomerID:      customerID,
		TotalPurchases:  totals.Count,
		TotalSpent:      totals.Sum,
		AveragePurchase: report.Average(totals.Sum, totals.Count),
	}
	if totals.Count == 0 {
		return &out, nil
	}

	var first, last models.Date
	sel := s.engine.Select(sales, entsql.Min("date"), entsql.Max("date"))
	err = s.engine.Query(ctx, sel, func(rows *sql.Rows) error {
		return rows.Scan(&first, &last)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase dates: %w", err)
	}
	out.FirstPurchaseDate, out.LastPurchaseDate = &first, &last

	if days := first.DaysUntil(last); totals.Count >= 2 && days > 0 {
		out.PurchaseFrequency = report.Ratio(float64(totals.Count), float64(days))
	}
	return &out, nil
}
