package handlers

import (
	"context"
	"net/http"

	"github.com/jordanlanch/backoffice/pkg/api/errors"
	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/export"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/labstack/echo/v4"
)

// Exporter renders and stores report workbooks.
type Exporter interface {
	ReportWorkbook(ctx context.Context, actor scope.Actor) (*export.Result, error)
}

// ExportHandler handles report export endpoints.
type ExportHandler struct {
	exporter Exporter
	timeouts Timeouts
}

// NewExportHandler creates a new export handler
func NewExportHandler(exporter Exporter, timeouts Timeouts) *ExportHandler {
	return &ExportHandler{exporter: exporter, timeouts: timeouts}
}

// ExportReports godoc
// @Summary Export my reports to Excel
// @Description Renders the dashboard summary and trends visible to the caller into an xlsx workbook and stores it.
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Success 201 {object} export.Result
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /exports/reports [post]
func (h *ExportHandler) ExportReports(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.exporter.ReportWorkbook(ctx, actor)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
