package handlers

import (
	"net/http"
	"testing"

	"github.com/jordanlanch/backoffice/pkg/crm"
	"github.com/jordanlanch/backoffice/pkg/database/dbtest"
	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/phone"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCRMHandler(t *testing.T) (*CRMHandler, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc := crm.NewService(db, phone.NewNormalizer("US"), &events.Recorder{}, logger.Nop())
	return NewCRMHandler(svc, DefaultTimeouts()), db
}

func leadBody(name string) crm.LeadRequest {
	return crm.LeadRequest{
		Name:   name,
		Email:  "lead@example.com",
		Phone:  testPhone,
		Source: models.LeadSourceWebsite,
	}
}

func createLead(t *testing.T, h *CRMHandler, actor scope.Actor, name string) models.Lead {
	t.Helper()
	c, rec := newContext(t, request{method: http.MethodPost, target: "/crm/leads", body: leadBody(name), actor: &actor})
	require.NoError(t, h.CreateLead(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Lead](t, rec)
}

func TestCRMHandler_LeadLifecycle(t *testing.T) {
	h, db := setupCRMHandler(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)

	lead := createLead(t, h, admin, "Acme")
	assert.Equal(t, "+12024561111", lead.Phone)
	assert.Equal(t, models.LeadStatusNew, lead.Status)

	c, rec := newContext(t, request{method: http.MethodGet, target: "/crm/leads?search=acme", actor: &admin})
	require.NoError(t, h.ListLeads(c))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.ListResponse[models.Lead]](t, rec)
	require.Len(t, list.Data, 1)
	assert.Equal(t, lead.ID, list.Data[0].ID)

	update := leadBody("Acme Holdings")
	update.Status = models.LeadStatusContacted
	c, rec = newContext(t, request{method: http.MethodPut, target: "/crm/leads/" + idStr(lead.ID), body: update, actor: &admin, params: map[string]string{"id": idStr(lead.ID)}})
	require.NoError(t, h.UpdateLead(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Acme Holdings", decode[models.Lead](t, rec).Name)

	c, rec = newContext(t, request{method: http.MethodDelete, target: "/crm/leads/" + idStr(lead.ID), actor: &admin, params: map[string]string{"id": idStr(lead.ID)}})
	require.NoError(t, h.DeleteLead(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/crm/leads/" + idStr(lead.ID), actor: &admin, params: map[string]string{"id": idStr(lead.ID)}})
	require.NoError(t, h.GetLead(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[models.ErrorResponse](t, rec).Error)
}

func TestCRMHandler_CreateLead_Invalid(t *testing.T) {
	h, db := setupCRMHandler(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)

	body := leadBody("")
	body.Email = "not-an-email"
	c, rec := newContext(t, request{method: http.MethodPost, target: "/crm/leads", body: body, actor: &admin})
	require.NoError(t, h.CreateLead(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Error)
	assert.Contains(t, resp.Details, "name")
	assert.Contains(t, resp.Details, "email")
}

func TestCRMHandler_RequiresActor(t *testing.T) {
	h, _ := setupCRMHandler(t)

	c, rec := newContext(t, request{method: http.MethodGet, target: "/crm/leads"})
	require.NoError(t, h.ListLeads(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCRMHandler_EmployeeCannotSeeOthersLeads(t *testing.T) {
	h, db := setupCRMHandler(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	other := createUser(t, db, "other", models.RoleEmployee)
	employee := createUser(t, db, "employee", models.RoleEmployee)

	body := leadBody("Assigned")
	body.AssignedTo = &other.UserID
	c, rec := newContext(t, request{method: http.MethodPost, target: "/crm/leads", body: body, actor: &admin})
	require.NoError(t, h.CreateLead(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	lead := decode[models.Lead](t, rec)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/crm/leads/" + idStr(lead.ID), actor: &employee, params: map[string]string{"id": idStr(lead.ID)}})
	require.NoError(t, h.GetLead(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCRMHandler_ConvertLead(t *testing.T) {
	h, db := setupCRMHandler(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	lead := createLead(t, h, admin, "Convertible")

	value := decimal.RequireFromString("1500.00")
	body := crm.ConvertLeadRequest{
		CustomerName:      "Convertible Co",
		OpportunityTitle:  "First order",
		OpportunityValue:  &value,
		ExpectedCloseDate: models.Today().AddDays(30),
	}
	c, rec := newContext(t, request{
		method: http.MethodPost,
		target: "/crm/leads/" + idStr(lead.ID) + "/convert",
		body:   body,
		actor:  &admin,
		params: map[string]string{"id": idStr(lead.ID)},
		lang:   "ar",
	})
	require.NoError(t, h.ConvertLead(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[crm.ConversionResult](t, rec)
	assert.NotZero(t, res.CustomerID)
	assert.NotZero(t, res.OpportunityID)
	assert.Equal(t, "تم تحويل العميل المحتمل بنجاح", res.Message)

	c, rec = newContext(t, request{
		method: http.MethodPost,
		target: "/crm/leads/" + idStr(lead.ID) + "/convert",
		body:   body,
		actor:  &admin,
		params: map[string]string{"id": idStr(lead.ID)},
	})
	require.NoError(t, h.ConvertLead(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCRMHandler_Reports(t *testing.T) {
	h, db := setupCRMHandler(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	createLead(t, h, admin, "Reported")

	c, rec := newContext(t, request{method: http.MethodGet, target: "/crm/dashboard/summary", actor: &admin})
	require.NoError(t, h.DashboardSummary(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[crm.DashboardSummary](t, rec)
	assert.Equal(t, int64(1), summary.Leads.Total)
	assert.Equal(t, int64(1), summary.Leads.BySource[string(models.LeadSourceWebsite)])

	c, rec = newContext(t, request{method: http.MethodGet, target: "/crm/funnel?period=30", actor: &admin})
	require.NoError(t, h.Funnel(c))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c, rec = newContext(t, request{method: http.MethodGet, target: "/crm/dashboard/reports?start_date=2024-05-01&end_date=2024-04-01", actor: &admin})
	require.NoError(t, h.Report(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Details, "start_date")

	c, rec = newContext(t, request{method: http.MethodGet, target: "/crm/analytics?period=abc", actor: &admin})
	require.NoError(t, h.Analytics(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
