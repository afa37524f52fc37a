package purchases

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
)

// SupplierRanking is the spend and delivery record of one supplier.
type SupplierRanking struct {
	SupplierID          uint            `json:"id"`
	Name                string          `json:"name"`
	PurchaseCount       int64           `json:"purchase_count"`
	TotalSpent          decimal.Decimal `json:"total_spent"`
	AverageDeliveryTime float64         `json:"average_delivery_time"`
	OnTimeDeliveryRate  float64         `json:"on_time_delivery_rate"`
}

// QualityMetric is the share of faulty and short lines of one supplier.
type QualityMetric struct {
	SupplierID        uint    `json:"supplier_id"`
	Name              string  `json:"supplier_name"`
	DefectRate        float64 `json:"defect_rate"`
	ShortDeliveryRate float64 `json:"short_delivery_rate"`
}

// CostAnalysis describes the unit prices paid to one supplier.
type CostAnalysis struct {
	SupplierID       uint            `json:"supplier_id"`
	Name             string          `json:"supplier_name"`
	AverageUnitCost  decimal.Decimal `json:"average_unit_cost"`
	UnitCostVariance float64         `json:"unit_cost_variance"`
}

// SupplierPerformance compares the suppliers bought from within a window.
type SupplierPerformance struct {
	Period   report.Window     `json:"period"`
	Rankings []SupplierRanking `json:"supplier_rankings"`
	Quality  []QualityMetric   `json:"quality_metrics"`
	Costs    []CostAnalysis    `json:"cost_analysis"`
}

var receivingStatuses = []any{
	string(models.PurchaseStatusPartiallyReceived),
	string(models.PurchaseStatusReceived),
}

// delivered restricts purchases to those with a delivery date.
func delivered(purchases report.Source) report.Source {
	return purchases.And(entsql.NotNull("actual_delivery_date"))
}

// onTime restricts delivered purchases to those that arrived by their
// expected date.
func onTime(purchases report.Source) report.Source {
	return delivered(purchases).And(
		entsql.NotNull("expected_delivery_date"),
		entsql.ColumnsLTE("actual_delivery_date", "expected_delivery_date"),
	)
}

// SupplierPerformance ranks the suppliers of the purchases visible to actor
// dated within w by spend, with delivery, quality and cost figures.
func (s *Service) SupplierPerformance(ctx context.Context, actor scope.Actor, w report.Window) (*SupplierPerformance, error) {
	purchases := purchasesOf(actor, w.OnDates("purchase_date"))
	out := SupplierPerformance{Period: w}

	groups, err := s.engine.Group(ctx, purchases, "supplier_id", "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to group purchases by supplier: %w", err)
	}
	groups = report.Top(groups, -1, report.BySum(0))
	names, err := s.engine.Names(ctx, "suppliers", groups)
	if err != nil {
		return nil, err
	}

	spans, err := s.engine.Spans(ctx, purchases, "supplier_id", "purchase_date", "actual_delivery_date")
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery times: %w", err)
	}
	deliveredBy, err := s.countBySupplier(ctx, delivered(purchases))
	if err != nil {
		return nil, err
	}
	onTimeBy, err := s.countBySupplier(ctx, onTime(purchases))
	if err != nil {
		return nil, err
	}
	linesBy, err := s.linesBySupplier(ctx, purchases)
	if err != nil {
		return nil, err
	}

	out.Rankings = make([]SupplierRanking, 0, len(groups))
	out.Quality = make([]QualityMetric, 0, len(groups))
	out.Costs = make([]CostAnalysis, 0, len(groups))
	for _, g := range groups {
		id := g.ID()
		out.Rankings = append(out.Rankings, SupplierRanking{
			SupplierID:          id,
			Name:                names[id],
			PurchaseCount:       g.Count,
			TotalSpent:          g.Sum(0),
			AverageDeliveryTime: report.Mean(spans[g.Key]),
			OnTimeDeliveryRate:  report.Rate(onTimeBy[id], deliveredBy[id]),
		})

		lines := linesBy[id]
		quality := lines.quality()
		quality.SupplierID, quality.Name = id, names[id]
		out.Quality = append(out.Quality, quality)

		costs := lines.costs()
		costs.SupplierID, costs.Name = id, names[id]
		out.Costs = append(out.Costs, costs)
	}
	return &out, nil
}

func (s *Service) countBySupplier(ctx context.Context, purchases report.Source) (map[uint]int64, error) {
	groups, err := s.engine.Group(ctx, purchases, "supplier_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}
	counts := make(map[uint]int64, len(groups))
	for _, g := range groups {
		counts[g.ID()] = g.Count
	}
	return counts, nil
}

// supplierLines accumulates the purchase lines of one supplier.
type supplierLines struct {
	lines, defective int64
	// received and short only count lines of purchases being received.
	received, short int64
	prices          []decimal.Decimal
}

// linesBySupplier loads the lines of purchases once and files them under
// the supplier of their purchase.
func (s *Service) linesBySupplier(ctx context.Context, purchases report.Source) (map[uint]*supplierLines, error) {
	type owner struct {
		supplierID uint
		receiving  bool
	}
	owners := make(map[uint]owner)
	err := s.engine.Query(ctx, s.engine.Select(purchases, "id", "supplier_id", "status"), func(rows *sql.Rows) error {
		var (
			id, supplierID uint
			status         string
		)
		if err := rows.Scan(&id, &supplierID, &status); err != nil {
			return err
		}
		owners[id] = owner{supplierID: supplierID, receiving: isReceiving(models.PurchaseStatus(status))}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase suppliers: %w", err)
	}

	out := make(map[uint]*supplierLines)
	sel := s.engine.Select(s.itemsOf(purchases), "purchase_id", "quantity", "received_quantity", "quality_issues", "unit_price")
	err = s.engine.Query(ctx, sel, func(rows *sql.Rows) error {
		var (
			purchaseID                        uint
			quantity, received, qualityIssues int
			price                             decimal.NullDecimal
		)
		if err := rows.Scan(&purchaseID, &quantity, &received, &qualityIssues, &price); err != nil {
			return err
		}
		o, ok := owners[purchaseID]
		if !ok {
			return nil
		}
		acc := out[o.supplierID]
		if acc == nil {
			acc = &supplierLines{}
			out[o.supplierID] = acc
		}
		acc.lines++
		if qualityIssues > 0 {
			acc.defective++
		}
		if o.receiving {
			acc.received++
			if received < quantity {
				acc.short++
			}
		}
		if price.Valid {
			acc.prices = append(acc.prices, price.Decimal)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase lines: %w", err)
	}
	return out, nil
}

// quality is the share of lines with quality issues and, among the lines
// of purchases being received, the share that arrived short.
func (l *supplierLines) quality() QualityMetric {
	if l == nil {
		return QualityMetric{}
	}
	return QualityMetric{
		DefectRate:        report.Rate(l.defective, l.lines),
		ShortDeliveryRate: report.Rate(l.short, l.received),
	}
}

// costs is the mean and population variance of the unit prices.
func (l *supplierLines) costs() CostAnalysis {
	if l == nil || len(l.prices) == 0 {
		return CostAnalysis{AverageUnitCost: decimal.Zero}
	}
	sum := decimal.Zero
	for _, p := range l.prices {
		sum = sum.Add(p)
	}
	n := float64(len(l.prices))
	m := report.Float(sum) / n
	var variance float64
	for _, p := range l.prices {
		d := report.Float(p) - m
		variance += d * d
	}
	return CostAnalysis{
		AverageUnitCost:  report.Average(sum, int64(len(l.prices))),
		UnitCostVariance: report.Round2(variance / n),
	}
}

// SupplierMetrics is the record of one supplier within a window.
type SupplierMetrics struct {
	SupplierID          uint            `json:"supplier_id"`
	Name                string          `json:"supplier_name"`
	TotalPurchases      int64           `json:"total_purchases"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	AverageDeliveryTime float64         `json:"average_delivery_time"`
	// OrderAccuracy is the share of received lines that arrived complete
	// and without quality issues.
	OrderAccuracy  float64 `json:"order_accuracy"`
	OnTimeDelivery float64 `json:"on_time_delivery"`
}

// SupplierMetrics reports on the purchases visible to actor made from one
// supplier within w. A supplier without purchases gets zero metrics.
func (s *Service) SupplierMetrics(ctx context.Context, actor scope.Actor, supplierID uint, w report.Window) (*SupplierMetrics, error) {
	sup, err := s.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	purchases := purchasesOf(actor, w.OnDates("purchase_date"), entsql.EQ("supplier_id", supplierID))
	out := SupplierMetrics{SupplierID: sup.ID, Name: sup.Name, TotalAmount: decimal.Zero}

	totals, err := s.engine.Totals(ctx, purchases, "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to total supplier purchases: %w", err)
	}
	out.TotalPurchases, out.TotalAmount = totals.Count, totals.Sum
	if totals.Count == 0 {
		return &out, nil
	}

	spans, err := s.engine.Spans(ctx, purchases, "", "purchase_date", "actual_delivery_date")
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery times: %w", err)
	}
	out.AverageDeliveryTime = report.Mean(spans[""])

	receiving := purchases.And(entsql.In("status", receivingStatuses...))
	lines, err := s.engine.Count(ctx, s.itemsOf(receiving))
	if err != nil {
		return nil, fmt.Errorf("failed to count received lines: %w", err)
	}
	accurate, err := s.engine.Count(ctx, s.itemsOf(receiving,
		entsql.ColumnsGTE("received_quantity", "quantity"),
		entsql.EQ("quality_issues", 0),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to count accurate lines: %w", err)
	}
	out.OrderAccuracy = report.Rate(accurate, lines)

	arrived, err := s.engine.Count(ctx, delivered(purchases))
	if err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}
	punctual, err := s.engine.Count(ctx, onTime(purchases))
	if err != nil {
		return nil, fmt.Errorf("failed to count on-time deliveries: %w", err)
	}
	out.OnTimeDelivery = report.Rate(punctual, arrived)
	return &out, nil
}
