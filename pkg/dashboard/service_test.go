package dashboard

import (
	"context"
	"testing"

	"github.com/jordanlanch/backoffice/pkg/database/dbtest"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	return NewService(db, logger.Nop()), db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) scope.Actor {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return scope.Actor{UserID: u.ID, Role: u.Role}
}

func widgetRequest(title string, position int) WidgetRequest {
	return WidgetRequest{Title: title, WidgetType: models.WidgetSalesChart, Position: position}
}

func TestWidgets(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	admin := createUser(t, db, "admin", models.RoleAdmin)
	alice := createUser(t, db, "alice", models.RoleEmployee)

	t.Run("Success - defaults", func(t *testing.T) {
		w, err := svc.CreateWidget(ctx, admin, widgetRequest("Sales", 2))

		require.NoError(t, err)
		assert.NotZero(t, w.ID)
		assert.True(t, w.IsActive)
		assert.Equal(t, models.DefaultRefreshInterval, w.RefreshInterval)
		assert.JSONEq(t, `{}`, string(w.Settings))
	})

	t.Run("Error - not an administrator", func(t *testing.T) {
		_, err := svc.CreateWidget(ctx, alice, widgetRequest("Mine", 1))
		assert.True(t, domain.IsForbidden(err))
	})

	t.Run("Error - unknown type", func(t *testing.T) {
		req := widgetRequest("Odd", 1)
		req.WidgetType = "pie"
		_, err := svc.CreateWidget(ctx, admin, req)

		require.True(t, domain.IsValidation(err))
		de, _ := domain.AsDomainError(err)
		assert.Contains(t, de.Fields, "widget_type")
	})

	t.Run("Error - settings must be an object", func(t *testing.T) {
		req := widgetRequest("Odd", 1)
		req.Settings = datatypes.JSON(`[1, 2]`)
		_, err := svc.CreateWidget(ctx, admin, req)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Success - list keeps active widgets in position order", func(t *testing.T) {
		first, err := svc.CreateWidget(ctx, admin, widgetRequest("First", 0))
		require.NoError(t, err)
		hidden := widgetRequest("Hidden", 1)
		off := false
		hidden.IsActive = &off
		_, err = svc.CreateWidget(ctx, admin, hidden)
		require.NoError(t, err)

		widgets, err := svc.ListWidgets(ctx)

		require.NoError(t, err)
		require.Len(t, widgets, 2)
		assert.Equal(t, first.ID, widgets[0].ID)
		assert.Equal(t, "Sales", widgets[1].Title)
	})

	t.Run("Success - update and delete", func(t *testing.T) {
		w, err := svc.CreateWidget(ctx, admin, widgetRequest("Tasks", 5))
		require.NoError(t, err)

		req := widgetRequest("Tasks", 6)
		req.WidgetType = models.WidgetTasksSummary
		req.RefreshInterval = 60
		req.Settings = datatypes.JSON(`{"limit": 5}`)
		updated, err := svc.UpdateWidget(ctx, admin, w.ID, req)
		require.NoError(t, err)
		assert.Equal(t, models.WidgetTasksSummary, updated.WidgetType)
		assert.Equal(t, 60, updated.RefreshInterval)
		assert.JSONEq(t, `{"limit": 5}`, string(updated.Settings))

		_, err = svc.UpdateWidget(ctx, alice, w.ID, req)
		assert.True(t, domain.IsForbidden(err))

		require.NoError(t, svc.DeleteWidget(ctx, admin, w.ID))
		_, err = svc.GetWidget(ctx, w.ID)
		assert.True(t, domain.IsNotFound(err))
		assert.True(t, domain.IsNotFound(svc.DeleteWidget(ctx, admin, w.ID)))
	})
}

func TestPreferences(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	admin := createUser(t, db, "admin", models.RoleAdmin)
	alice := createUser(t, db, "alice", models.RoleEmployee)
	bob := createUser(t, db, "bob", models.RoleEmployee)

	sales, err := svc.CreateWidget(ctx, admin, widgetRequest("Sales", 0))
	require.NoError(t, err)
	tasks, err := svc.CreateWidget(ctx, admin, widgetRequest("Tasks", 1))
	require.NoError(t, err)

	t.Run("Success - created on first read", func(t *testing.T) {
		first, err := svc.GetPreference(ctx, alice)
		require.NoError(t, err)
		again, err := svc.GetPreference(ctx, alice)
		require.NoError(t, err)

		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, alice.UserID, first.UserID)
		assert.JSONEq(t, `{}`, string(first.Layout))
		assert.Empty(t, first.Widgets)
	})

	t.Run("Success - update layout", func(t *testing.T) {
		pref, err := svc.UpdatePreference(ctx, bob, PreferenceRequest{Layout: datatypes.JSON(`{"columns": 3}`)})

		require.NoError(t, err)
		assert.JSONEq(t, `{"columns": 3}`, string(pref.Layout))
	})

	t.Run("Error - layout must be an object", func(t *testing.T) {
		_, err := svc.UpdatePreference(ctx, bob, PreferenceRequest{Layout: datatypes.JSON(`"wide"`)})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Success - settings are upserted per widget", func(t *testing.T) {
		_, err := svc.SaveWidgetSettings(ctx, alice, WidgetSettingsRequest{WidgetID: tasks.ID, Position: 4})
		require.NoError(t, err)
		hidden := false
		saved, err := svc.SaveWidgetSettings(ctx, alice, WidgetSettingsRequest{
			WidgetID: tasks.ID, Position: 1, IsVisible: &hidden, Settings: datatypes.JSON(`{"color": "red"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, saved.Position)
		assert.False(t, saved.IsVisible)
		require.NotNil(t, saved.Widget)
		assert.Equal(t, "Tasks", saved.Widget.Title)

		_, err = svc.SaveWidgetSettings(ctx, alice, WidgetSettingsRequest{WidgetID: sales.ID, Position: 0})
		require.NoError(t, err)

		mine, err := svc.ListWidgetSettings(ctx, alice)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, sales.ID, mine[0].WidgetID)
		assert.True(t, mine[0].IsVisible)
		assert.Equal(t, tasks.ID, mine[1].WidgetID)
		assert.JSONEq(t, `{"color": "red"}`, string(mine[1].Settings))

		pref, err := svc.GetPreference(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, pref.Widgets, 2)
	})

	t.Run("Success - settings are private", func(t *testing.T) {
		theirs, err := svc.ListWidgetSettings(ctx, bob)

		require.NoError(t, err)
		assert.Empty(t, theirs)
	})

	t.Run("Error - unknown widget", func(t *testing.T) {
		_, err := svc.SaveWidgetSettings(ctx, alice, WidgetSettingsRequest{WidgetID: 9999})

		require.True(t, domain.IsValidation(err))
		de, _ := domain.AsDomainError(err)
		assert.Contains(t, de.Fields, "widget")
	})

	t.Run("Success - deleting a widget drops its settings", func(t *testing.T) {
		require.NoError(t, svc.DeleteWidget(ctx, admin, sales.ID))

		mine, err := svc.ListWidgetSettings(ctx, alice)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, tasks.ID, mine[0].WidgetID)
	})
}
