// Package handlers exposes the back office services over HTTP.
package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/listing"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/labstack/echo/v4"
)

// Default request budgets.
const (
	DefaultReportTimeout = 10 * time.Second
	DefaultCRUDTimeout   = 5 * time.Second
)

// Timeouts bound the work a single request may do.
type Timeouts struct {
	Report time.Duration
	CRUD   time.Duration
}

// DefaultTimeouts returns the default request budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{Report: DefaultReportTimeout, CRUD: DefaultCRUDTimeout}
}

func (t Timeouts) crud(c echo.Context) (context.Context, context.CancelFunc) {
	d := t.CRUD
	if d <= 0 {
		d = DefaultCRUDTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

func (t Timeouts) report(c echo.Context) (context.Context, context.CancelFunc) {
	d := t.Report
	if d <= 0 {
		d = DefaultReportTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

// bind decodes the request body into req.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewBadRequestError("invalid request body")
	}
	return nil
}

// idParam reads a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, domain.NewFieldError(name, "must be a positive integer")
	}
	return uint(n), nil
}

func listParams(c echo.Context) (listing.Params, error) {
	return listing.Parse(c.QueryParam("page"), c.QueryParam("limit"), c.QueryParam("search"), c.QueryParam("ordering"))
}

func rangeParams(c echo.Context) (report.Range, error) {
	return report.ParseRange(c.QueryParam("start_date"), c.QueryParam("end_date"))
}

func periodParam(c echo.Context, def int) (report.Window, error) {
	return report.ParsePeriod(c.QueryParam("period"), def)
}

// optionalUint reads an optional positive integer query parameter.
func optionalUint(c echo.Context, name string) (*uint, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return nil, domain.NewFieldError(name, "must be a positive integer")
	}
	id := uint(n)
	return &id, nil
}

func optionalInt(c echo.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.NewFieldError(name, "must be an integer")
	}
	return &n, nil
}

func optionalDate(c echo.Context, name string) (*models.Date, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, domain.NewFieldError(name, "must be formatted as YYYY-MM-DD")
	}
	return &d, nil
}

// uintList reads a repeated query parameter. Comma separated values are
// accepted too.
func uintList(c echo.Context, name string) ([]uint, error) {
	var ids []uint
	for _, raw := range c.QueryParams()[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseUint(part, 10, 64)
			if err != nil || n == 0 {
				return nil, domain.NewFieldError(name, "must be a list of positive integers")
			}
			ids = append(ids, uint(n))
		}
	}
	return ids, nil
}
