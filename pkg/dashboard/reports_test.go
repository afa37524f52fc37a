package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type world struct {
	svc          *Service
	admin, alice scope.Actor
	bob          scope.Actor
}

// seedWorld gives alice one record of every kind this month and bob a few
// of his own.
func seedWorld(t *testing.T) world {
	t.Helper()
	svc, db := setupService(t)
	w := world{
		svc:   svc,
		admin: createUser(t, db, "admin", models.RoleAdmin),
		alice: createUser(t, db, "alice", models.RoleEmployee),
		bob:   createUser(t, db, "bob", models.RoleEmployee),
	}
	today := models.Today()

	mine := seed(t, db, &models.Project{Name: "Apollo", ManagerID: w.alice.UserID, StartDate: today.AddDays(-10), EndDate: today.AddDays(10), Status: models.ProjectStatusInProgress})
	seed(t, db, &models.Project{Name: "Gemini", ManagerID: w.bob.UserID, StartDate: today, EndDate: today.AddDays(10), Status: models.ProjectStatusNew})

	task := func(status models.TaskStatus, priority models.TaskPriority, due int) {
		seed(t, db, &models.Task{
			ProjectID: mine.ID, Title: string(status), AssignedToID: &w.alice.UserID,
			Status: status, Priority: priority, StartDate: today.AddDays(-20), DueDate: today.AddDays(due),
		})
	}
	task(models.TaskStatusTodo, models.TaskPriorityHigh, -1)
	task(models.TaskStatusReview, models.TaskPriorityMedium, 1)
	task(models.TaskStatusCompleted, models.TaskPriorityMedium, -3)

	customer := seed(t, db, &models.Customer{Name: "Acme", Email: "acme@example.com", Phone: "+12024561111"})
	sale := func(seller uint, status models.SaleStatus, amount int64) {
		seed(t, db, &models.Sale{
			CustomerID: customer.ID, SalesPersonID: seller, Date: today,
			Status: status, TotalAmount: decimal.NewFromInt(amount), Version: 1,
		})
	}
	sale(w.alice.UserID, models.SaleStatusPending, 100)
	sale(w.bob.UserID, models.SaleStatusCompleted, 50)

	supplier := seed(t, db, &models.Supplier{Name: "Bolt", Company: "Bolt Inc", Email: "bolt@example.com", Phone: "+12024561111"})
	seed(t, db, &models.Purchase{
		SupplierID: supplier.ID, PurchaseDate: today, ReferenceNumber: "PO-1", Status: models.PurchaseStatusOrdered,
		TotalAmount: decimal.NewFromInt(30), TaxAmount: decimal.Zero, CreatedByID: w.alice.UserID, Version: 1,
	})

	lead := func(owner uint, status models.LeadStatus) {
		seed(t, db, &models.Lead{Name: "lead", Email: "lead@example.com", Phone: "+12024561111", Source: models.LeadSourceWebsite, Status: status, AssignedToID: &owner})
	}
	lead(w.alice.UserID, models.LeadStatusNew)
	lead(w.alice.UserID, models.LeadStatusWon)
	lead(w.bob.UserID, models.LeadStatusContacted)

	opp := func(owner uint, status models.OpportunityStatus, value int64) {
		seed(t, db, &models.Opportunity{
			CustomerID: customer.ID, Title: "deal", Value: decimal.NewFromInt(value), Status: status,
			ExpectedCloseDate: today, AssignedToID: &owner, Probability: 50,
		})
	}
	opp(w.alice.UserID, models.OpportunityStatusProposal, 1000)
	opp(w.alice.UserID, models.OpportunityStatusClosedWon, 500)

	return w
}

func seed[T any](t *testing.T, db *gorm.DB, row *T) *T {
	t.Helper()
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestSummary(t *testing.T) {
	w := seedWorld(t)
	ctx := context.Background()

	t.Run("Success - own records", func(t *testing.T) {
		s, err := w.svc.Summary(ctx, w.alice)

		require.NoError(t, err)
		assert.Equal(t, ProjectsSummary{TotalProjects: 1, ActiveProjects: 1, TotalTasks: 3, PendingTasks: 1, OverdueTasks: 1}, s.Projects)

		assert.Equal(t, int64(1), s.Sales.MonthlySales.Count)
		assert.True(t, decimal.NewFromInt(100).Equal(s.Sales.MonthlySales.Sum))
		assert.Equal(t, int64(1), s.Sales.PendingSales)

		assert.Equal(t, int64(1), s.Purchases.MonthlyPurchases.Count)
		assert.True(t, decimal.NewFromInt(30).Equal(s.Purchases.MonthlyPurchases.Sum))
		assert.Equal(t, int64(1), s.Purchases.PendingOrders)

		assert.Equal(t, int64(1), s.CRM.ActiveLeads)
		assert.Equal(t, int64(2), s.CRM.NewLeadsThisMonth)
		assert.Equal(t, int64(1), s.CRM.OpenOpportunities)
		assert.True(t, decimal.NewFromInt(1000).Equal(s.CRM.OpportunityValue), s.CRM.OpportunityValue.String())
	})

	t.Run("Success - administrators see everything", func(t *testing.T) {
		s, err := w.svc.Summary(ctx, w.admin)

		require.NoError(t, err)
		assert.Equal(t, int64(2), s.Projects.TotalProjects)
		assert.Equal(t, int64(2), s.Sales.MonthlySales.Count)
		assert.True(t, decimal.NewFromInt(150).Equal(s.Sales.MonthlySales.Sum))
		assert.Equal(t, int64(2), s.CRM.ActiveLeads)
	})

	t.Run("Success - nothing of someone else", func(t *testing.T) {
		s, err := w.svc.Summary(ctx, w.bob)

		require.NoError(t, err)
		assert.Zero(t, s.Projects.TotalTasks)
		assert.Zero(t, s.Purchases.MonthlyPurchases.Count)
		assert.True(t, s.Purchases.MonthlyPurchases.Sum.IsZero())
		assert.True(t, s.CRM.OpportunityValue.IsZero())
	})
}

func TestAnalytics(t *testing.T) {
	w := seedWorld(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a, err := w.svc.Analytics(ctx, w.alice)
	require.NoError(t, err)

	t.Run("Projects", func(t *testing.T) {
		assert.Equal(t, report.Counts{"new": 0, "in_progress": 1, "completed": 0, "on_hold": 0, "cancelled": 0}, a.Projects.ProjectsByStatus)
		assert.Equal(t, report.Counts{"low": 0, "medium": 2, "high": 1}, a.Projects.TasksByPriority)

		trend := a.Projects.TaskCompletionTrend
		require.Len(t, trend, 12)
		last := trend[11]
		assert.Equal(t, now.Format("2006-01"), last.Month)
		assert.Equal(t, int64(3), last.Total)
		assert.Equal(t, int64(1), last.Reached)
		assert.InDelta(t, 33.33, last.Rate, 0.001)
		assert.Zero(t, trend[0].Total)
		assert.Zero(t, trend[0].Rate)
	})

	t.Run("Sales", func(t *testing.T) {
		revenue := a.Sales.MonthlyRevenue
		require.Len(t, revenue, int(now.Month()))
		assert.Equal(t, now.Format("2006")+"-01", revenue[0].Month)
		last := revenue[len(revenue)-1]
		assert.Equal(t, int64(1), last.Count)
		assert.True(t, decimal.NewFromInt(100).Equal(last.Amount))

		require.Len(t, a.Sales.SalesByStatus, 3)
		assert.Equal(t, int64(1), a.Sales.SalesByStatus["pending"].Count)
		assert.Zero(t, a.Sales.SalesByStatus["completed"].Count)
	})

	t.Run("CRM", func(t *testing.T) {
		assert.Equal(t, int64(1), a.CRM.LeadConversion["new"])
		assert.Equal(t, int64(1), a.CRM.LeadConversion["won"])
		assert.Zero(t, a.CRM.LeadConversion["contacted"])
		assert.Len(t, a.CRM.LeadConversion, len(models.LeadStatuses))

		proposal := a.CRM.OpportunitiesByStage["proposal"]
		assert.Equal(t, int64(1), proposal.Count)
		assert.True(t, decimal.NewFromInt(1000).Equal(proposal.Sum))
		assert.True(t, a.CRM.OpportunitiesByStage["negotiation"].Sum.IsZero())

		trend := a.CRM.ConversionTrend
		require.Len(t, trend, 12)
		assert.Equal(t, TrendBucket{Month: now.Format("2006-01"), Total: 2, Reached: 1, Rate: 50}, trend[11])
	})
}
