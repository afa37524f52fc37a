package report_test

import (
	"context"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/database/dbtest"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{Username: username, Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createLead(t *testing.T, db *gorm.DB, status models.LeadStatus, source models.LeadSource, owner *uint) {
	t.Helper()
	l := models.Lead{
		Name:         "Lead " + string(status),
		Email:        "lead@example.com",
		Phone:        "+12024561111",
		Source:       source,
		Status:       status,
		AssignedToID: owner,
	}
	require.NoError(t, db.Create(&l).Error)
}

func TestEngine_CountByScoped(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	admin := createUser(t, db, "admin", models.RoleAdmin)
	alice := createUser(t, db, "alice", models.RoleEmployee)
	bob := createUser(t, db, "bob", models.RoleEmployee)

	createLead(t, db, models.LeadStatusNew, models.LeadSourceWebsite, &alice.ID)
	createLead(t, db, models.LeadStatusWon, models.LeadSourceReferral, &alice.ID)
	createLead(t, db, models.LeadStatusNew, models.LeadSourceWebsite, &bob.ID)
	createLead(t, db, models.LeadStatusLost, models.LeadSourceDirect, nil)

	engine := report.New(db)
	members := models.Strings(models.LeadStatuses)

	t.Run("Success - admin sees everything", func(t *testing.T) {
		actor := scope.Actor{UserID: admin.ID, Role: admin.Role}
		src := report.From("leads", scope.Leads.Predicate(actor))

		counts, err := engine.CountBy(ctx, src, "status", members)
		require.NoError(t, err)
		assert.Len(t, counts, len(models.LeadStatuses))
		assert.Equal(t, int64(2), counts["new"])
		assert.Equal(t, int64(0), counts["proposal"])
		assert.Equal(t, int64(4), counts.Total())
	})

	t.Run("Success - employee sees own and unassigned", func(t *testing.T) {
		actor := scope.Actor{UserID: alice.ID, Role: alice.Role}
		src := report.From("leads", scope.Leads.Predicate(actor))

		total, err := engine.Count(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)

		counts, err := engine.CountBy(ctx, src, "status", members)
		require.NoError(t, err)
		assert.Equal(t, total, counts.Total())
		assert.Equal(t, int64(1), counts["won"])
		assert.Equal(t, int64(1), counts["lost"])

		var listed []models.Lead
		require.NoError(t, scope.Leads.Apply(db.Model(&models.Lead{}), actor).Find(&listed).Error)
		assert.Len(t, listed, int(total))
	})

	t.Run("Success - strict ownership", func(t *testing.T) {
		actor := scope.Actor{UserID: bob.ID, Role: bob.Role}
		src := report.From("leads", scope.LeadOwnership.Predicate(actor))

		total, err := engine.Count(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})
}

func TestEngine_Totals(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	seller := createUser(t, db, "seller", models.RoleEmployee)
	customer := models.Customer{Name: "Acme", Email: "acme@example.com", Phone: "+12024561111"}
	require.NoError(t, db.Create(&customer).Error)

	for _, s := range []struct {
		status models.SaleStatus
		amount string
	}{
		{models.SaleStatusCompleted, "100.50"},
		{models.SaleStatusCompleted, "49.50"},
		{models.SaleStatusPending, "10.00"},
	} {
		sale := models.Sale{
			CustomerID:    customer.ID,
			SalesPersonID: seller.ID,
			Date:          models.Today(),
			Status:        s.status,
			TotalAmount:   decimal.RequireFromString(s.amount),
		}
		require.NoError(t, db.Create(&sale).Error)
	}

	engine := report.New(db)
	src := report.From("sales")

	t.Run("Success - totals", func(t *testing.T) {
		total, err := engine.Totals(ctx, src, "total_amount")
		require.NoError(t, err)
		assert.Equal(t, int64(3), total.Count)
		assert.Equal(t, "160.00", total.Sum.StringFixed(2))
	})

	t.Run("Success - empty sum is zero", func(t *testing.T) {
		sum, err := engine.Sum(ctx, src.And(entsql.EQ("status", "cancelled")), "total_amount")
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})

	t.Run("Success - totals by status", func(t *testing.T) {
		byStatus, err := engine.TotalsBy(ctx, src, "status", "total_amount", models.Strings(models.SaleStatuses))
		require.NoError(t, err)
		assert.Equal(t, int64(2), byStatus["completed"].Count)
		assert.Equal(t, "150.00", byStatus["completed"].Sum.StringFixed(2))
		assert.Equal(t, int64(0), byStatus["cancelled"].Count)
	})

	t.Run("Success - points and distinct", func(t *testing.T) {
		points, err := engine.Points(ctx, src, "date", "total_amount")
		require.NoError(t, err)
		assert.Len(t, points, 3)

		today := models.Today()
		buckets := report.Daily(points, today, today)
		require.Len(t, buckets, 1)
		assert.Equal(t, int64(3), buckets[0].Count)

		ids, err := engine.Distinct(ctx, src, "customer_id")
		require.NoError(t, err)
		assert.Equal(t, []int64{int64(customer.ID)}, ids)
	})

	t.Run("Success - window on date column", func(t *testing.T) {
		w := report.TrailingDays(7, time.Now().UTC())
		n, err := engine.Count(ctx, src.And(w.OnDates("date")))
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		old := report.TrailingDays(7, time.Now().UTC().AddDate(0, 0, -30))
		n, err = engine.Count(ctx, src.And(old.OnDates("date")))
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestEngine_MembershipScope(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	manager := createUser(t, db, "manager", models.RoleManager)
	member := createUser(t, db, "member", models.RoleEmployee)
	outsider := createUser(t, db, "outsider", models.RoleEmployee)

	today := models.Today()
	project := models.Project{
		Name: "Tower", ManagerID: manager.ID, StartDate: today, EndDate: today.AddDays(30),
		Status: models.ProjectStatusInProgress,
	}
	require.NoError(t, db.Create(&project).Error)
	require.NoError(t, db.Create(&models.ProjectMember{ProjectID: project.ID, UserID: member.ID}).Error)

	engine := report.New(db)
	for _, tc := range []struct {
		name string
		user models.User
		want int64
	}{
		{"manager", manager, 1},
		{"member", member, 1},
		{"outsider", outsider, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actor := scope.Actor{UserID: tc.user.ID, Role: tc.user.Role}

			n, err := engine.Count(ctx, report.From("projects", scope.Projects.Predicate(actor)))
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)

			var projects []models.Project
			require.NoError(t, scope.Projects.Apply(db.Model(&models.Project{}), actor).Find(&projects).Error)
			assert.Len(t, projects, int(tc.want))
		})
	}
}

func TestEngine_Group(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	owner := createUser(t, db, "owner", models.RoleEmployee)
	createLead(t, db, models.LeadStatusNew, models.LeadSourceWebsite, &owner.ID)
	createLead(t, db, models.LeadStatusNew, models.LeadSourceWebsite, nil)

	groups, err := report.New(db).Group(ctx, report.From("leads"), "assigned_to_id")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	keys := map[string]int64{}
	for _, g := range groups {
		keys[g.Key] = g.Count
	}
	assert.Equal(t, int64(1), keys[""])
	assert.Contains(t, keys, "1")
}

func TestEngine_Spans(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	qualified := created.Add(36 * time.Hour)
	leads := []models.Lead{
		{Name: "a", Email: "a@example.com", Phone: "+12024561111", Source: models.LeadSourceWebsite, Status: models.LeadStatusQualified, QualifiedAt: &qualified},
		{Name: "b", Email: "b@example.com", Phone: "+12024561111", Source: models.LeadSourceReferral, Status: models.LeadStatusNew},
	}
	for i := range leads {
		leads[i].CreatedAt = created
		require.NoError(t, db.Create(&leads[i]).Error)
	}

	spans, err := report.New(db).Spans(ctx, report.From("leads"), "source", "created_at", "qualified_at")
	require.NoError(t, err)
	require.Len(t, spans["website"], 1)
	assert.InDelta(t, 1.5, spans["website"][0], 0.001)
	assert.Empty(t, spans["referral"])
}
