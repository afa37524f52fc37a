package handlers

import (
	"net/http"

	"github.com/jordanlanch/backoffice/pkg/api/errors"
	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/dashboard"
	"github.com/labstack/echo/v4"
)

// DashboardHandler handles widget, preference and cross-module summary
// endpoints.
type DashboardHandler struct {
	service  *dashboard.Service
	timeouts Timeouts
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *dashboard.Service, timeouts Timeouts) *DashboardHandler {
	return &DashboardHandler{service: service, timeouts: timeouts}
}

// ListWidgets godoc
// @Summary List active widgets
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DashboardWidget
// @Router /dashboard/widgets [get]
func (h *DashboardHandler) ListWidgets(c echo.Context) error {
	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	widgets, err := h.service.ListWidgets(ctx)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, widgets)
}

// GetWidget godoc
// @Summary Get a widget
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Widget ID"
// @Success 200 {object} models.DashboardWidget
// @Failure 404 {object} models.ErrorResponse
// @Router /dashboard/widgets/{id} [get]
func (h *DashboardHandler) GetWidget(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	widget, err := h.service.GetWidget(ctx, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, widget)
}

// CreateWidget godoc
// @Summary Create a widget
// @Description Requires admin role.
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dashboard.WidgetRequest true "Widget"
// @Success 201 {object} models.DashboardWidget
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /dashboard/widgets [post]
func (h *DashboardHandler) CreateWidget(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req dashboard.WidgetRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	widget, err := h.service.CreateWidget(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, widget)
}

// UpdateWidget godoc
// @Summary Update a widget
// @Description Requires admin role.
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Widget ID"
// @Param request body dashboard.WidgetRequest true "Widget"
// @Success 200 {object} models.DashboardWidget
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /dashboard/widgets/{id} [put]
func (h *DashboardHandler) UpdateWidget(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req dashboard.WidgetRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	widget, err := h.service.UpdateWidget(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, widget)
}

// DeleteWidget godoc
// @Summary Delete a widget
// @Description Requires admin role.
// @Tags Dashboard
// @Security BearerAuth
// @Param id path int true "Widget ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /dashboard/widgets/{id} [delete]
func (h *DashboardHandler) DeleteWidget(c echo.Context) error {
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

	if err := h.service.DeleteWidget(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetPreference godoc
// @Summary Get my dashboard preference
// @Description Created with an empty layout on first access.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserDashboardPreference
// @Router /dashboard/preferences [get]
func (h *DashboardHandler) GetPreference(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	pref, err := h.service.GetPreference(ctx, actor)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, pref)
}

// UpdatePreference godoc
// @Summary Update my dashboard layout
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dashboard.PreferenceRequest true "Layout"
// @Success 200 {object} models.UserDashboardPreference
// @Failure 400 {object} models.ErrorResponse
// @Router /dashboard/preferences [put]
func (h *DashboardHandler) UpdatePreference(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req dashboard.PreferenceRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	pref, err := h.service.UpdatePreference(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, pref)
}

// ListWidgetSettings godoc
// @Summary List my widget settings
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserWidgetSettings
// @Router /dashboard/widget-settings [get]
func (h *DashboardHandler) ListWidgetSettings(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	settings, err := h.service.ListWidgetSettings(ctx, actor)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// SaveWidgetSettings godoc
// @Summary Save my settings of a widget
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dashboard.WidgetSettingsRequest true "Widget settings"
// @Success 200 {object} models.UserWidgetSettings
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /dashboard/widget-settings [post]
func (h *DashboardHandler) SaveWidgetSettings(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req dashboard.WidgetSettingsRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	settings, err := h.service.SaveWidgetSettings(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// Summary godoc
// @Summary Cross-module summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dashboard.Summary
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Summary(ctx, actor)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Analytics godoc
// @Summary Twelve month trends
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dashboard.Analytics
// @Router /dashboard/analytics [get]
func (h *DashboardHandler) Analytics(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Analytics(ctx, actor)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
