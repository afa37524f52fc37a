package handlers

import (
	"net/http"
	"testing"

	"github.com/jordanlanch/backoffice/pkg/dashboard"
	"github.com/jordanlanch/backoffice/pkg/database/dbtest"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupDashboardHandler(t *testing.T) (*DashboardHandler, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	return NewDashboardHandler(dashboard.NewService(db, logger.Nop()), DefaultTimeouts()), db
}

func TestDashboardHandler_Widgets(t *testing.T) {
	h, db := setupDashboardHandler(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	employee := createUser(t, db, "employee", models.RoleEmployee)

	body := dashboard.WidgetRequest{Title: "Revenue", WidgetType: models.WidgetRevenueChart, Position: 1}

	c, rec := newContext(t, request{method: http.MethodPost, target: "/dashboard/widgets", body: body, actor: &employee})
	require.NoError(t, h.CreateWidget(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newContext(t, request{method: http.MethodPost, target: "/dashboard/widgets", body: body, actor: &admin})
	require.NoError(t, h.CreateWidget(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	widget := decode[models.DashboardWidget](t, rec)
	assert.True(t, widget.IsActive)
	assert.Equal(t, models.DefaultRefreshInterval, widget.RefreshInterval)

	bad := body
	bad.WidgetType = "pie"
	c, rec = newContext(t, request{method: http.MethodPost, target: "/dashboard/widgets", body: bad, actor: &admin})
	require.NoError(t, h.CreateWidget(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Details, "widget_type")

	c, rec = newContext(t, request{method: http.MethodGet, target: "/dashboard/widgets", actor: &employee})
	require.NoError(t, h.ListWidgets(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.DashboardWidget](t, rec), 1)

	id := idStr(widget.ID)
	c, rec = newContext(t, request{method: http.MethodDelete, target: "/dashboard/widgets/" + id, actor: &admin, params: map[string]string{"id": id}})
	require.NoError(t, h.DeleteWidget(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/dashboard/widgets/" + id, actor: &admin, params: map[string]string{"id": id}})
	require.NoError(t, h.GetWidget(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardHandler_Preferences(t *testing.T) {
	h, db := setupDashboardHandler(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	user := createUser(t, db, "user", models.RoleEmployee)

	c, rec := newContext(t, request{method: http.MethodPost, target: "/dashboard/widgets", body: dashboard.WidgetRequest{Title: "Tasks", WidgetType: models.WidgetTasksSummary}, actor: &admin})
	require.NoError(t, h.CreateWidget(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	widget := decode[models.DashboardWidget](t, rec)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/dashboard/preferences", actor: &user})
	require.NoError(t, h.GetPreference(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, user.UserID, decode[models.UserDashboardPreference](t, rec).UserID)

	c, rec = newContext(t, request{method: http.MethodPut, target: "/dashboard/preferences", body: `{"layout": [1, 2]}`, actor: &user})
	require.NoError(t, h.UpdatePreference(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Details, "layout")

	hidden := false
	settings := dashboard.WidgetSettingsRequest{WidgetID: widget.ID, Position: 2, IsVisible: &hidden, Settings: datatypes.JSON(`{"compact": true}`)}
	c, rec = newContext(t, request{method: http.MethodPost, target: "/dashboard/widget-settings", body: settings, actor: &user})
	require.NoError(t, h.SaveWidgetSettings(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	settings.Position = 5
	c, rec = newContext(t, request{method: http.MethodPost, target: "/dashboard/widget-settings", body: settings, actor: &user})
	require.NoError(t, h.SaveWidgetSettings(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c, rec = newContext(t, request{method: http.MethodGet, target: "/dashboard/widget-settings", actor: &user})
	require.NoError(t, h.ListWidgetSettings(c))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.UserWidgetSettings](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Position)
	assert.False(t, list[0].IsVisible)

	settings.WidgetID = widget.ID + 100
	c, rec = newContext(t, request{method: http.MethodPost, target: "/dashboard/widget-settings", body: settings, actor: &user})
	require.NoError(t, h.SaveWidgetSettings(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandler_Summary(t *testing.T) {
	h, db := setupDashboardHandler(t)
	user := createUser(t, db, "user", models.RoleEmployee)

	c, rec := newContext(t, request{method: http.MethodGet, target: "/dashboard/summary", actor: &user})
	require.NoError(t, h.Summary(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[dashboard.Summary](t, rec)
	assert.Zero(t, summary.Projects.TotalProjects)
	assert.Zero(t, summary.Sales.PendingSales)

	c, rec = newContext(t, request{method: http.MethodGet, target: "/dashboard/analytics", actor: &user})
	require.NoError(t, h.Analytics(c))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c, rec = newContext(t, request{method: http.MethodGet, target: "/dashboard/summary"})
	require.NoError(t, h.Summary(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
