package sales

import (
	"context"
	"testing"
	"time"

	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSale(t *testing.T, db *gorm.DB, customerID, sellerID uint, date models.Date, status models.SaleStatus, amount int64) models.Sale {
	t.Helper()
	s := models.Sale{
		CustomerID:    customerID,
		SalesPersonID: sellerID,
		Date:          date,
		Status:        status,
		TotalAmount:   decimal.NewFromInt(amount),
		Version:       1,
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func TestDashboard(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice", models.RoleEmployee)
	bob := createUser(t, db, "bob", models.RoleEmployee)
	c := createCustomer(t, svc, "acme")
	today := models.Today()

	seedSale(t, db, c.ID, alice.UserID, today, models.SaleStatusCompleted, 100)
	seedSale(t, db, c.ID, alice.UserID, today, models.SaleStatusPending, 50)
	seedSale(t, db, c.ID, alice.UserID, today.AddDays(-90), models.SaleStatusCancelled, 70)
	seedSale(t, db, c.ID, bob.UserID, today, models.SaleStatusCompleted, 999)

	d, err := svc.Dashboard(ctx, alice)

	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Today.Count)
	assert.True(t, decimal.NewFromInt(150).Equal(d.Today.Sum), d.Today.Sum.String())
	assert.Equal(t, int64(2), d.Last30Days.Count)
	assert.Equal(t, int64(2), d.Month.Count)
	assert.Equal(t, report.Counts{"pending": 1, "completed": 1, "cancelled": 1}, d.StatusBreakdown)
}

func TestReport(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	admin := createUser(t, db, "admin", models.RoleAdmin)
	acme := createCustomer(t, svc, "acme")
	globex := createCustomer(t, svc, "globex")
	bolt := createProduct(t, svc, "B-1", 10, 100, 0)
	nut := createProduct(t, svc, "N-1", 1, 100, 0)

	_, err := svc.CreateSale(ctx, admin, SaleRequest{
		CustomerID: acme.ID,
		Date:       models.NewDate(2026, time.March, 3),
		Items:      []SaleItemRequest{{ProductID: bolt.ID, Quantity: 2}, {ProductID: nut.ID, Quantity: 5}},
	})
	require.NoError(t, err)
	_, err = svc.CreateSale(ctx, admin, SaleRequest{
		CustomerID: globex.ID,
		Date:       models.NewDate(2026, time.April, 1),
		Items:      []SaleItemRequest{{ProductID: bolt.ID, Quantity: 10}},
	})
	require.NoError(t, err)

	t.Run("Success - whole history", func(t *testing.T) {
		r, err := svc.Report(ctx, admin, report.Range{})

		require.NoError(t, err)
		assert.Equal(t, int64(2), r.Total.Count)
		assert.True(t, decimal.NewFromInt(125).Equal(r.Total.Sum))

		require.Len(t, r.ByProduct, 2)
		assert.Equal(t, bolt.ID, r.ByProduct[0].ProductID)
		assert.Equal(t, "product B-1", r.ByProduct[0].Name)
		assert.Equal(t, int64(12), r.ByProduct[0].Quantity)
		assert.True(t, decimal.NewFromInt(120).Equal(r.ByProduct[0].Revenue))
		assert.Equal(t, int64(2), r.ByProduct[0].Lines)

		require.Len(t, r.ByCustomer, 2)
		assert.Equal(t, globex.ID, r.ByCustomer[0].CustomerID)
		assert.Equal(t, "globex", r.ByCustomer[0].Name)
	})

	t.Run("Success - date range", func(t *testing.T) {
		rng, err := report.ParseRange("2026-03-01", "2026-03-31")
		require.NoError(t, err)

		r, err := svc.Report(ctx, admin, rng)

		require.NoError(t, err)
		assert.Equal(t, int64(1), r.Total.Count)
		require.Len(t, r.ByCustomer, 1)
		assert.Equal(t, acme.ID, r.ByCustomer[0].CustomerID)
	})
}

func TestAnalytics(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	admin := createUser(t, db, "admin", models.RoleAdmin)
	c := createCustomer(t, svc, "acme")
	today := models.Today()

	seedSale(t, db, c.ID, admin.UserID, today, models.SaleStatusCompleted, 100)
	seedSale(t, db, c.ID, admin.UserID, today.AddDays(-3), models.SaleStatusPending, 50)
	seedSale(t, db, c.ID, admin.UserID, today.AddDays(-60), models.SaleStatusCompleted, 1000)

	a, err := svc.Analytics(ctx, admin, report.TrailingDays(30, time.Now().UTC()))

	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Summary.TotalSales)
	assert.True(t, decimal.NewFromInt(150).Equal(a.Summary.TotalRevenue))
	assert.True(t, decimal.NewFromInt(75).Equal(a.Summary.AverageSaleValue))
	assert.Len(t, a.Trends.DailySales, 31)
	last := a.Trends.DailySales[len(a.Trends.DailySales)-1]
	assert.Equal(t, int64(1), last.Count)
	assert.Equal(t, int64(1), a.Trends.ByStatus["pending"].Count)
	assert.Equal(t, int64(0), a.Trends.ByStatus["cancelled"].Count)
	require.Len(t, a.TopCustomers, 1)
	assert.Equal(t, int64(2), a.TopCustomers[0].Count)
}

func TestProductPerformance(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	admin := createUser(t, db, "admin", models.RoleAdmin)
	c := createCustomer(t, svc, "acme")
	bolt := createProduct(t, svc, "B-1", 10, 100, 5)
	nut := createProduct(t, svc, "N-1", 1, 3, 5)
	createProduct(t, svc, "Z-1", 1, 50, 5)

	_, err := svc.CreateSale(ctx, admin, SaleRequest{
		CustomerID: c.ID,
		Date:       models.Today(),
		Items:      []SaleItemRequest{{ProductID: bolt.ID, Quantity: 4}, {ProductID: nut.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	perf, err := svc.ProductPerformance(ctx, admin, report.TrailingDays(30, time.Now().UTC()))

	require.NoError(t, err)
	require.Len(t, perf.Metrics, 3)
	assert.Equal(t, "product B-1", perf.Metrics[0].Name)
	assert.Equal(t, int64(4), perf.Metrics[0].UnitsSold)
	assert.Zero(t, perf.Metrics[2].UnitsSold)

	require.Len(t, perf.LowStockAlerts, 1)
	assert.Equal(t, "N-1", perf.LowStockAlerts[0].SKU)

	require.Len(t, perf.BestSellers, 2)
	assert.Equal(t, bolt.ID, perf.BestSellers[0].ProductID)
}

func TestCustomerInsights(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	admin := createUser(t, db, "admin", models.RoleAdmin)
	acme := createCustomer(t, svc, "acme")
	globex := createCustomer(t, svc, "globex")
	initech := createCustomer(t, svc, "initech")
	today := models.Today()

	seedSale(t, db, acme.ID, admin.UserID, today.AddDays(-50), models.SaleStatusCompleted, 100)
	seedSale(t, db, acme.ID, admin.UserID, today.AddDays(-10), models.SaleStatusCompleted, 200)
	seedSale(t, db, acme.ID, admin.UserID, today, models.SaleStatusCompleted, 300)
	seedSale(t, db, globex.ID, admin.UserID, today.AddDays(-5), models.SaleStatusCompleted, 900)
	seedSale(t, db, initech.ID, admin.UserID, today.AddDays(-45), models.SaleStatusCompleted, 40)

	t.Run("Success - segments and retention", func(t *testing.T) {
		in, err := svc.CustomerInsights(ctx, admin, report.TrailingDays(30, time.Now().UTC()))

		require.NoError(t, err)
		assert.Equal(t, int64(2), in.Segments.TotalCustomers)
		assert.Equal(t, int64(2), in.Segments.NewCustomers)
		assert.Equal(t, []FrequencyBucket{
			{PurchaseCount: 1, CustomerCount: 1},
			{PurchaseCount: 2, CustomerCount: 1},
		}, in.Patterns.Frequency)

		require.Len(t, in.Patterns.ValueSegments, 2)
		assert.Equal(t, "globex", in.Patterns.ValueSegments[0].Name)
		assert.True(t, decimal.NewFromInt(900).Equal(in.Patterns.ValueSegments[0].TotalSpent))

		assert.Equal(t, 1, in.Retention.RetainedCustomers)
		assert.Equal(t, 1, in.Retention.LostCustomers)
		assert.Equal(t, 1, in.Retention.NewCustomers)
		assert.Equal(t, 50.0, in.Retention.RetentionRate)
	})

	t.Run("Success - customer metrics", func(t *testing.T) {
		m, err := svc.CustomerMetrics(ctx, admin, acme.ID)

		require.NoError(t, err)
		assert.Equal(t, int64(3), m.TotalPurchases)
		assert.True(t, decimal.NewFromInt(600).Equal(m.TotalSpent))
		assert.True(t, decimal.NewFromInt(200).Equal(m.AveragePurchase))
		require.NotNil(t, m.FirstPurchaseDate)
		assert.Equal(t, today.AddDays(-50).String(), m.FirstPurchaseDate.String())
		assert.Equal(t, today.String(), m.LastPurchaseDate.String())
		assert.InDelta(t, 0.06, m.PurchaseFrequency, 0.001)
	})

	t.Run("Success - single purchase has no frequency", func(t *testing.T) {
		m, err := svc.CustomerMetrics(ctx, admin, globex.ID)

		require.NoError(t, err)
		assert.Equal(t, int64(1), m.TotalPurchases)
		assert.Zero(t, m.PurchaseFrequency)
	})

	t.Run("Error - unknown customer", func(t *testing.T) {
		_, err := svc.CustomerMetrics(ctx, admin, 9999)
		assert.True(t, domain.IsNotFound(err))
	})
}
