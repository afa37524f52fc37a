package dashboard

import (
	"context"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRequest replaces the layout of the actor's dashboard.
type PreferenceRequest struct {
	Layout datatypes.JSON `json:"layout" swaggertype:"object"`
}

// WidgetSettingsRequest customizes one widget for the actor. A nil
// IsVisible shows the widget.
type WidgetSettingsRequest struct {
	WidgetID  uint           `json:"widget" validate:"required"`
	Position  int            `json:"position" validate:"gte=0"`
	IsVisible *bool          `json:"is_visible"`
	Settings  datatypes.JSON `json:"settings" swaggertype:"object"`
}

// GetPreference returns the dashboard preference of actor, creating an
// empty one on first use.
func (s *Service) GetPreference(ctx context.Context, actor scope.Actor) (*models.UserDashboardPreference, error) {
	db := s.db.WithContext(ctx)
	if err := s.ensurePreference(db, actor); err != nil {
		return nil, err
	}

	var pref models.UserDashboardPreference
	err := db.
		Preload("Widgets", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC").Order("id ASC") }).
		Preload("Widgets.Widget").
		Where("user_id = ?", actor.UserID).
		First(&pref).Error
	if err != nil {
		return nil, database.Translate(err, resourcePreference)
	}
	return &pref, nil
}

// ensurePreference inserts the preference row unless it exists. Concurrent
// first requests race on the unique user index, not on a read.
func (s *Service) ensurePreference(db *gorm.DB, actor scope.Actor) error {
	pref := models.UserDashboardPreference{UserID: actor.UserID, Layout: emptyObject(nil)}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(&pref).Error
	if err != nil {
		return database.Translate(err, resourcePreference)
	}
	return nil
}

// UpdatePreference replaces the layout of the actor's dashboard.
func (s *Service) UpdatePreference(ctx context.Context, actor scope.Actor, req PreferenceRequest) (*models.UserDashboardPreference, error) {
	if err := checkDocument("layout", req.Layout); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if err := s.ensurePreference(db, actor); err != nil {
		return nil, err
	}
	err := db.Model(&models.UserDashboardPreference{}).
		Where("user_id = ?", actor.UserID).
		Update("layout", emptyObject(req.Layout)).Error
	if err != nil {
		return nil, database.Translate(err, resourcePreference)
	}
	return s.GetPreference(ctx, actor)
}

// ListWidgetSettings returns the widget customizations of actor.
func (s *Service) ListWidgetSettings(ctx context.Context, actor scope.Actor) ([]models.UserWidgetSettings, error) {
	settings := []models.UserWidgetSettings{}
	err := s.db.WithContext(ctx).
		Preload("Widget").
		Joins("JOIN user_dashboard_preferences ON user_dashboard_preferences.id = user_widget_settings.preference_id").
		Where("user_dashboard_preferences.user_id = ?", actor.UserID).
		Order("user_widget_settings.position ASC").Order("user_widget_settings.id ASC").
		Find(&settings).Error
	if err != nil {
		return nil, database.Translate(err, resourceSettings)
	}
	return settings, nil
}

// SaveWidgetSettings creates or replaces the actor's customization of a
// widget. There is at most one per user and widget.
func (s *Service) SaveWidgetSettings(ctx context.Context, actor scope.Actor, req WidgetSettingsRequest) (*models.UserWidgetSettings, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := checkDocument("settings", req.Settings); err != nil {
		return nil, err
	}

	var out models.UserWidgetSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.DashboardWidget{}).Where("id = ?", req.WidgetID).Count(&n).Error; err != nil {
			return database.Translate(err, resourceWidget)
		}
		if n == 0 {
			return domain.NewFieldError("widget", "unknown widget")
		}
		if err := s.ensurePreference(tx, actor); err != nil {
			return err
		}
		var pref models.UserDashboardPreference
		if err := tx.Where("user_id = ?", actor.UserID).First(&pref).Error; err != nil {
			return database.Translate(err, resourcePreference)
		}

		row := models.UserWidgetSettings{
			PreferenceID: pref.ID,
			WidgetID:     req.WidgetID,
			Position:     req.Position,
			IsVisible:    req.IsVisible == nil || *req.IsVisible,
			Settings:     emptyObject(req.Settings),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "preference_id"}, {Name: "widget_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "is_visible", "settings", "updated_at"}),
		}).Omit(clause.Associations).Create(&row).Error
		if err != nil {
			return database.Translate(err, resourceSettings)
		}

		return tx.Preload("Widget").
			Where("preference_id = ? AND widget_id = ?", pref.ID, req.WidgetID).
			First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
