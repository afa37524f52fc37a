package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jordanlanch/backoffice/pkg/database/dbtest"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/phone"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPhone = "+1 202-456-1111"

func setupService(t *testing.T) (*Service, *gorm.DB, *events.Recorder) {
	t.Helper()
	db := dbtest.Open(t)
	rec := &events.Recorder{}
	return NewService(db, phone.NewNormalizer("US"), rec, logger.Nop()), db, rec
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) scope.Actor {
	t.Helper()
	u := models.User{Username: username, Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return scope.Actor{UserID: u.ID, Role: u.Role}
}

func leadRequest(name string, owner *uint) LeadRequest {
	return LeadRequest{
		Name:       name,
		Company:    name + " Ltd",
		Email:      name + "@example.com",
		Phone:      testPhone,
		Source:     models.LeadSourceWebsite,
		AssignedTo: owner,
		Notes:      "met at the fair",
	}
}

func defaultParams(t *testing.T) listing.Params {
	t.Helper()
	p, err := listing.Parse("", "", "", "")
	require.NoError(t, err)
	return p
}

func TestCreateLead(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice", models.RoleEmployee)

	t.Run("Success - normalizes phone and defaults status", func(t *testing.T) {
		lead, err := svc.CreateLead(ctx, alice, leadRequest("acme", &alice.UserID))

		require.NoError(t, err)
		assert.NotZero(t, lead.ID)
		assert.Equal(t, "+12024561111", lead.Phone)
		assert.Equal(t, models.LeadStatusNew, lead.Status)
		assert.Nil(t, lead.QualifiedAt)
	})

	t.Run("Success - qualified lead gets qualified_at", func(t *testing.T) {
		req := leadRequest("globex", &alice.UserID)
		req.Status = models.LeadStatusQualified

		lead, err := svc.CreateLead(ctx, alice, req)

		require.NoError(t, err)
		assert.NotNil(t, lead.QualifiedAt)
	})

	t.Run("Error - invalid phone", func(t *testing.T) {
		req := leadRequest("initech", nil)
		req.Phone = "12"

		_, err := svc.CreateLead(ctx, alice, req)

		require.Error(t, err)
		de, ok := domain.AsDomainError(err)
		require.True(t, ok)
		assert.Contains(t, de.Fields, "phone")
	})

	t.Run("Error - unknown source", func(t *testing.T) {
		req := leadRequest("umbrella", nil)
		req.Source = "billboard"

		_, err := svc.CreateLead(ctx, alice, req)

		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Error - assignee does not exist", func(t *testing.T) {
		missing := uint(9999)
		_, err := svc.CreateLead(ctx, alice, leadRequest("hooli", &missing))

		assert.True(t, domain.IsConflict(err))
	})
}

func TestLeadScoping(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	admin := createUser(t, db, "admin", models.RoleAdmin)
	alice := createUser(t, db, "alice", models.RoleEmployee)
	bob := createUser(t, db, "bob", models.RoleManager)

	own, err := svc.CreateLead(ctx, admin, leadRequest("own", &alice.UserID))
	require.NoError(t, err)
	other, err := svc.CreateLead(ctx, admin, leadRequest("other", &bob.UserID))
	require.NoError(t, err)
	open, err := svc.CreateLead(ctx, admin, leadRequest("open", nil))
	require.NoError(t, err)

	t.Run("Success - employee sees own and unassigned leads", func(t *testing.T) {
		page, err := svc.ListLeads(ctx, alice, LeadFilter{}, defaultParams(t))

		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Pagination.Total)
	})

	t.Run("Success - admin sees every lead", func(t *testing.T) {
		page, err := svc.ListLeads(ctx, admin, LeadFilter{}, defaultParams(t))

		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Pagination.Total)
	})

	t.Run("Success - search and filter", func(t *testing.T) {
		p, err := listing.Parse("", "", "OTHER", "")
		require.NoError(t, err)

		page, err := svc.ListLeads(ctx, admin, LeadFilter{Source: "website"}, p)

		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.Equal(t, other.ID, page.Data[0].ID)
	})

	t.Run("Error - lead of another user is not found", func(t *testing.T) {
		_, err := svc.GetLead(ctx, alice, other.ID)

		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("Error - unassigned lead is listed but not opened by employee", func(t *testing.T) {
		_, err := svc.GetLead(ctx, alice, open.ID)
		assert.True(t, domain.IsNotFound(err))

		_, err = svc.UpdateLead(ctx, alice, open.ID, leadRequest("open", nil))
		assert.True(t, domain.IsNotFound(err))

		_, err = svc.ConvertLead(ctx, alice, open.ID, convertRequest(10))
		assert.True(t, domain.IsNotFound(err))

		got, err := svc.GetLead(ctx, admin, open.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusNew, got.Status)
	})

	t.Run("Success - activity can be logged on an unassigned lead", func(t *testing.T) {
		act, err := svc.CreateActivity(ctx, alice, ActivityRequest{
			LeadID: &open.ID, Type: models.ActivityTypeCall, Subject: "first call", Date: time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, &open.ID, act.LeadID)
	})

	t.Run("Error - unassigned lead cannot be deleted by employee", func(t *testing.T) {
		err := svc.DeleteLead(ctx, alice, open.ID)

		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("Success - owner deletes lead", func(t *testing.T) {
		require.NoError(t, svc.DeleteLead(ctx, alice, own.ID))

		_, err := svc.GetLead(ctx, admin, own.ID)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestUpdateLead(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice", models.RoleEmployee)

	lead, err := svc.CreateLead(ctx, alice, leadRequest("acme", &alice.UserID))
	require.NoError(t, err)

	req := leadRequest("acme", &alice.UserID)
	req.Status = models.LeadStatusQualified
	updated, err := svc.UpdateLead(ctx, alice, lead.ID, req)
	require.NoError(t, err)
	require.NotNil(t, updated.QualifiedAt)
	first := *updated.QualifiedAt

	req.Notes = "second call"
	again, err := svc.UpdateLead(ctx, alice, lead.ID, req)
	require.NoError(t, err)
	assert.True(t, first.Equal(*again.QualifiedAt))
	assert.Equal(t, "second call", again.Notes)
}

func TestActivities(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice", models.RoleEmployee)
	bob := createUser(t, db, "bob", models.RoleEmployee)

	lead, err := svc.CreateLead(ctx, alice, leadRequest("acme", &alice.UserID))
	require.NoError(t, err)

	t.Run("Error - activity without target", func(t *testing.T) {
		_, err := svc.CreateActivity(ctx, alice, ActivityRequest{
			Type: models.ActivityTypeCall, Subject: "intro", Date: time.Now(),
		})

		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Success - scoped to creator", func(t *testing.T) {
		act, err := svc.CreateActivity(ctx, alice, ActivityRequest{
			LeadID: &lead.ID, Type: models.ActivityTypeCall, Subject: "intro", Date: time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, act.CreatedByID)

		page, err := svc.ListActivities(ctx, bob, ActivityFilter{}, defaultParams(t))
		require.NoError(t, err)
		assert.Empty(t, page.Data)

		_, err = svc.GetActivity(ctx, bob, act.ID)
		assert.True(t, domain.IsNotFound(err))

		list, err := svc.LeadActivities(ctx, alice, lead.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("Success - deleting the lead cascades", func(t *testing.T) {
		require.NoError(t, svc.DeleteLead(ctx, alice, lead.ID))

		var n int64
		require.NoError(t, db.Model(&models.Activity{}).Count(&n).Error)
		assert.Zero(t, n)
	})
}

func TestOpportunities(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice", models.RoleEmployee)

	customer := models.Customer{Name: "Acme", Email: "buyer@acme.test", Phone: "+12024561111"}
	require.NoError(t, db.Create(&customer).Error)

	req := OpportunityRequest{
		CustomerID:        customer.ID,
		Title:             "Fleet renewal",
		Value:             decimal.NewFromInt(1200),
		ExpectedCloseDate: models.NewDate(2030, 1, 31),
		AssignedTo:        &alice.UserID,
	}

	opp, err := svc.CreateOpportunity(ctx, alice, req)
	require.NoError(t, err)
	assert.Equal(t, models.OpportunityStatusIdentified, opp.Status)
	assert.Equal(t, models.DefaultProbability, opp.Probability)
	assert.Nil(t, opp.ClosedAt)

	t.Run("Success - closing stamps closed_at and reopening clears it", func(t *testing.T) {
		req.Status = models.OpportunityStatusClosedWon
		closed, err := svc.UpdateOpportunity(ctx, alice, opp.ID, req)
		require.NoError(t, err)
		assert.NotNil(t, closed.ClosedAt)

		req.Status = models.OpportunityStatusNegotiation
		reopened, err := svc.UpdateOpportunity(ctx, alice, opp.ID, req)
		require.NoError(t, err)
		assert.Nil(t, reopened.ClosedAt)
	})

	t.Run("Success - search by customer name", func(t *testing.T) {
		p, err := listing.Parse("", "", "acme", "-value")
		require.NoError(t, err)

		page, err := svc.ListOpportunities(ctx, alice, OpportunityFilter{}, p)
		require.NoError(t, err)
		assert.Len(t, page.Data, 1)
	})

	t.Run("Error - negative value", func(t *testing.T) {
		bad := req
		bad.Value = decimal.NewFromInt(-1)

		_, err := svc.CreateOpportunity(ctx, alice, bad)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Error - probability out of range", func(t *testing.T) {
		bad := req
		p := 120
		bad.Probability = &p

		_, err := svc.CreateOpportunity(ctx, alice, bad)
		assert.True(t, domain.IsValidation(err))
	})
}

func convertRequest(value int64) ConvertLeadRequest {
	v := decimal.NewFromInt(value)
	return ConvertLeadRequest{
		CustomerName:      "Acme Holdings",
		OpportunityTitle:  "First order",
		OpportunityValue:  &v,
		ExpectedCloseDate: models.NewDate(2030, 6, 30),
	}
}

func TestConvertLead(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice", models.RoleEmployee)

	t.Run("Success - creates customer and qualified opportunity", func(t *testing.T) {
		lead, err := svc.CreateLead(ctx, alice, leadRequest("acme", &alice.UserID))
		require.NoError(t, err)

		before, err := svc.DashboardSummary(ctx, alice)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := svc.CreateActivity(ctx, alice, ActivityRequest{
				LeadID: &lead.ID, Type: models.ActivityTypeMeeting, Subject: "demo", Date: time.Now(),
			})
			require.NoError(t, err)
		}

		result, err := svc.ConvertLead(ctx, alice, lead.ID, convertRequest(5000))
		require.NoError(t, err)

		var customer models.Customer
		require.NoError(t, db.First(&customer, result.CustomerID).Error)
		assert.Equal(t, "Acme Holdings", customer.Name)
		assert.Equal(t, lead.Email, customer.Email)
		assert.Equal(t, "", customer.Address)

		var opp models.Opportunity
		require.NoError(t, db.First(&opp, result.OpportunityID).Error)
		assert.Equal(t, models.OpportunityStatusQualified, opp.Status)
		assert.Equal(t, 50, opp.Probability)
		assert.True(t, decimal.NewFromInt(5000).Equal(opp.Value))
		assert.Equal(t, lead.Notes, opp.Description)
		assert.Equal(t, &alice.UserID, opp.AssignedToID)

		converted, err := svc.GetLead(ctx, alice, lead.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusWon, converted.Status)
		assert.NotNil(t, converted.ConvertedAt)

		after, err := svc.DashboardSummary(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, before.Leads.ByStatus["won"]+1, after.Leads.ByStatus["won"])
		assert.Equal(t, before.Leads.BySource["website"], after.Leads.BySource["website"])
		assert.Equal(t, int64(3), after.Activities.Total)

		assert.Equal(t, []string{events.SubjectLeadConverted}, rec.Subjects())
	})

	t.Run("Error - converting a won lead is a conflict", func(t *testing.T) {
		req := leadRequest("won", &alice.UserID)
		req.Status = models.LeadStatusWon
		lead, err := svc.CreateLead(ctx, alice, req)
		require.NoError(t, err)

		_, err = svc.ConvertLead(ctx, alice, lead.ID, convertRequest(10))
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("Error - customer email collision rolls back", func(t *testing.T) {
		lead, err := svc.CreateLead(ctx, alice, leadRequest("taken", &alice.UserID))
		require.NoError(t, err)
		require.NoError(t, db.Create(&models.Customer{Name: "x", Email: lead.Email, Phone: "+12024561111"}).Error)

		_, err = svc.ConvertLead(ctx, alice, lead.ID, convertRequest(10))
		assert.True(t, domain.IsConflict(err))

		unchanged, err := svc.GetLead(ctx, alice, lead.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusNew, unchanged.Status)
	})

	t.Run("Error - missing fields", func(t *testing.T) {
		_, err := svc.ConvertLead(ctx, alice, 1, ConvertLeadRequest{})
		assert.True(t, domain.IsValidation(err))
	})
}

func TestConvertLead_OpportunityFailureLeavesNoCustomer(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice", models.RoleEmployee)

	lead, err := svc.CreateLead(ctx, alice, leadRequest("fragile", &alice.UserID))
	require.NoError(t, err)

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_opportunities", func(tx *gorm.DB) {
		if tx.Statement.Table == "opportunities" {
			_ = tx.AddError(errors.New("opportunity store unavailable"))
		}
	}))

	_, err = svc.ConvertLead(ctx, alice, lead.ID, convertRequest(100))
	require.Error(t, err)

	var customers int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&customers).Error)
	assert.Zero(t, customers)

	reloaded, err := svc.GetLead(ctx, alice, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNew, reloaded.Status)
	assert.Empty(t, rec.Events())
}
