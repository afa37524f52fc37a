package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jordanlanch/backoffice/pkg/export"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	actor scope.Actor
	err   error
}

func (f *fakeExporter) ReportWorkbook(_ context.Context, actor scope.Actor) (*export.Result, error) {
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &export.Result{Filename: "reports.xlsx", Location: "file:///tmp/reports.xlsx", Size: 2048, GeneratedAt: time.Now()}, nil
}

func TestExportHandler_ExportReports(t *testing.T) {
	exporter := &fakeExporter{}
	h := NewExportHandler(exporter, DefaultTimeouts())
	actor := scope.Actor{UserID: 7, Role: models.RoleManager}

	c, rec := newContext(t, request{method: http.MethodPost, target: "/exports/reports", actor: &actor})
	require.NoError(t, h.ExportReports(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "reports.xlsx", decode[export.Result](t, rec).Filename)
	assert.Equal(t, actor, exporter.actor)
}

func TestExportHandler_Failures(t *testing.T) {
	h := NewExportHandler(&fakeExporter{err: errors.New("bucket unavailable")}, DefaultTimeouts())

	c, rec := newContext(t, request{method: http.MethodPost, target: "/exports/reports"})
	require.NoError(t, h.ExportReports(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	actor := scope.Actor{UserID: 1, Role: models.RoleAdmin}
	c, rec = newContext(t, request{method: http.MethodPost, target: "/exports/reports", actor: &actor})
	require.NoError(t, h.ExportReports(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
