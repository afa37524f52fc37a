package handlers

import (
	"net/http"

	"github.com/jordanlanch/backoffice/pkg/api/errors"
	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/crm"
	"github.com/jordanlanch/backoffice/pkg/i18n"
	"github.com/labstack/echo/v4"
)

// CRMHandler handles lead, opportunity and activity endpoints.
type CRMHandler struct {
	service  *crm.Service
	timeouts Timeouts
}

// NewCRMHandler creates a new CRM handler
func NewCRMHandler(service *crm.Service, timeouts Timeouts) *CRMHandler {
	return &CRMHandler{service: service, timeouts: timeouts}
}

// ListLeads godoc
// @Summary List leads
// @Description Leads visible to the caller. Non-admins see leads assigned to them or unassigned.
// @Tags CRM
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search name, company, email or phone"
// @Param ordering query string false "created_at or name, prefix with - to reverse"
// @Param status query string false "Lead status"
// @Param source query string false "Lead source"
// @Success 200 {object} models.ListResponse[models.Lead]
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /crm/leads [get]
func (h *CRMHandler) ListLeads(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	filter := crm.LeadFilter{Status: c.QueryParam("status"), Source: c.QueryParam("source")}
	res, err := h.service.ListLeads(ctx, actor, filter, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetLead godoc
// @Summary Get a lead
// @Tags CRM
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} models.Lead
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/leads/{id} [get]
func (h *CRMHandler) GetLead(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	lead, err := h.service.GetLead(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// CreateLead godoc
// @Summary Create a lead
// @Tags CRM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body crm.LeadRequest true "Lead"
// @Success 201 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /crm/leads [post]
func (h *CRMHandler) CreateLead(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req crm.LeadRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	lead, err := h.service.CreateLead(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, lead)
}

// UpdateLead godoc
// @Summary Update a lead
// @Tags CRM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param request body crm.LeadRequest true "Lead"
// @Success 200 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/leads/{id} [put]
func (h *CRMHandler) UpdateLead(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req crm.LeadRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	lead, err := h.service.UpdateLead(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// DeleteLead godoc
// @Summary Delete a lead
// @Tags CRM
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /crm/leads/{id} [delete]
func (h *CRMHandler) DeleteLead(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteLead(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ConvertLead godoc
// @Summary Convert a lead
// @Description Creates a customer and a qualified opportunity from the lead and marks it won.
// @Tags CRM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param request body crm.ConvertLeadRequest true "Conversion details"
// @Success 201 {object} crm.ConversionResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /crm/leads/{id}/convert [post]
func (h *CRMHandler) ConvertLead(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req crm.ConvertLeadRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ConvertLead(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	if i18n.Has(res.Message) {
		res.Message = i18n.T(c, res.Message)
	}
	return c.JSON(http.StatusCreated, res)
}

// LeadActivities godoc
// @Summary List the activities of a lead
// @Tags CRM
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {array} models.Activity
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/leads/{id}/activities [get]
func (h *CRMHandler) LeadActivities(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	activities, err := h.service.LeadActivities(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, activities)
}

// ListOpportunities godoc
// @Summary List opportunities
// @Tags CRM
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search title, description or customer name"
// @Param ordering query string false "expected_close_date, value or probability"
// @Param status query string false "Opportunity status"
// @Success 200 {object} models.ListResponse[models.Opportunity]
// @Failure 400 {object} models.ErrorResponse
// @Router /crm/opportunities [get]
func (h *CRMHandler) ListOpportunities(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListOpportunities(ctx, actor, crm.OpportunityFilter{Status: c.QueryParam("status")}, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetOpportunity godoc
// @Summary Get an opportunity
// @Tags CRM
// @Produce json
// @Security BearerAuth
// @Param id path int true "Opportunity ID"
// @Success 200 {object} models.Opportunity
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/opportunities/{id} [get]
func (h *CRMHandler) GetOpportunity(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	opp, err := h.service.GetOpportunity(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

// CreateOpportunity godoc
// @Summary Create an opportunity
// @Tags CRM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body crm.OpportunityRequest true "Opportunity"
// @Success 201 {object} models.Opportunity
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /crm/opportunities [post]
func (h *CRMHandler) CreateOpportunity(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req crm.OpportunityRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	opp, err := h.service.CreateOpportunity(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, opp)
}

// UpdateOpportunity godoc
// @Summary Update an opportunity
// @Tags CRM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Opportunity ID"
// @Param request body crm.OpportunityRequest true "Opportunity"
// @Success 200 {object} models.Opportunity
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/opportunities/{id} [put]
func (h *CRMHandler) UpdateOpportunity(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req crm.OpportunityRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	opp, err := h.service.UpdateOpportunity(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

// DeleteOpportunity godoc
// @Summary Delete an opportunity
// @Tags CRM
// @Security BearerAuth
// @Param id path int true "Opportunity ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/opportunities/{id} [delete]
func (h *CRMHandler) DeleteOpportunity(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteOpportunity(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// OpportunityActivities godoc
// @Summary List the activities of an opportunity
// @Tags CRM
// @Produce json
// @Security BearerAuth
// @Param id path int true "Opportunity ID"
// @Success 200 {array} models.Activity
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/opportunities/{id}/activities [get]
func (h *CRMHandler) OpportunityActivities(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	activities, err := h.service.OpportunityActivities(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, activities)
}

// ListActivities godoc
// @Summary List my activities
// @Tags CRM
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param ordering query string false "date, prefix with - to reverse"
// @Param type query string false "Activity type"
// @Param lead_id query int false "Lead ID"
// @Param opportunity_id query int false "Opportunity ID"
// @Success 200 {object} models.ListResponse[models.Activity]
// @Failure 400 {object} models.ErrorResponse
// @Router /crm/activities [get]
func (h *CRMHandler) ListActivities(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	filter := crm.ActivityFilter{Type: c.QueryParam("type")}
	if filter.LeadID, err = optionalUint(c, "lead_id"); err != nil {
		return errors.FromDomain(c, err)
	}
	if filter.OpportunityID, err = optionalUint(c, "opportunity_id"); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListActivities(ctx, actor, filter, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetActivity godoc
// @Summary Get an activity
// @Tags CRM
// @Produce json
// @Security BearerAuth
// @Param id path int true "Activity ID"
// @Success 200 {object} models.Activity
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/activities/{id} [get]
func (h *CRMHandler) GetActivity(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	activity, err := h.service.GetActivity(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, activity)
}

// CreateActivity godoc
// @Summary Log an activity
// @Description The activity must reference a lead or an opportunity.
// @Tags CRM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body crm.ActivityRequest true "Activity"
// @Success 201 {object} models.Activity
// @Failure 400 {object} models.ErrorResponse
// @Router /crm/activities [post]
func (h *CRMHandler) CreateActivity(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req crm.ActivityRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	activity, err := h.service.CreateActivity(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, activity)
}

// UpdateActivity godoc
// @Summary Update an activity
// @Tags CRM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Activity ID"
// @Param request body crm.ActivityRequest true "Activity"
// @Success 200 {object} models.Activity
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/activities/{id} [put]
func (h *CRMHandler) UpdateActivity(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req crm.ActivityRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	activity, err := h.service.UpdateActivity(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, activity)
}

// DeleteActivity godoc
// @Summary Delete an activity
// @Tags CRM
// @Security BearerAuth
// @Param id path int true "Activity ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /crm/activities/{id} [delete]
func (h *CRMHandler) DeleteActivity(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteActivity(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DashboardSummary godoc
// @Summary CRM dashboard summary
// @Tags CRM Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} crm.DashboardSummary
// @Router /crm/dashboard/summary [get]
func (h *CRMHandler) DashboardSummary(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	summary, err := h.service.DashboardSummary(ctx, actor)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// Report godoc
// @Summary CRM report
// @Description Conversion, source and win-rate analysis over an optional date range.
// @Tags CRM Reports
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} crm.Report
// @Failure 400 {object} models.ErrorResponse
// @Router /crm/dashboard/reports [get]
func (h *CRMHandler) Report(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	rng, err := rangeParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	rep, err := h.service.Report(ctx, actor, rng)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// Analytics godoc
// @Summary CRM analytics
// @Tags CRM Reports
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days to look back" default(30)
// @Success 200 {object} crm.Analytics
// @Failure 400 {object} models.ErrorResponse
// @Router /crm/analytics [get]
func (h *CRMHandler) Analytics(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	w, err := periodParam(c, 30)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Analytics(ctx, actor, w)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Funnel godoc
// @Summary Sales funnel
// @Tags CRM Reports
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days to look back" default(90)
// @Success 200 {object} crm.Funnel
// @Failure 400 {object} models.ErrorResponse
// @Router /crm/funnel [get]
func (h *CRMHandler) Funnel(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	w, err := periodParam(c, 90)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Funnel(ctx, actor, w)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// LeadSources godoc
// @Summary Lead source analysis
// @Tags CRM Reports
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days to look back" default(180)
// @Success 200 {object} crm.LeadSourceAnalysis
// @Failure 400 {object} models.ErrorResponse
// @Router /crm/lead-sources [get]
func (h *CRMHandler) LeadSources(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	w, err := periodParam(c, 180)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.LeadSources(ctx, actor, w)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
