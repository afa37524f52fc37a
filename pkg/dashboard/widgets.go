package dashboard

import (
	"context"
	"encoding/json"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"gorm.io/datatypes"
)

// WidgetRequest is the payload for creating or replacing a widget. A nil
// IsActive keeps the widget active and a zero refresh interval uses the
// default.
type WidgetRequest struct {
	Title           string            `json:"title" validate:"required,max=100"`
	WidgetType      models.WidgetType `json:"widget_type" validate:"required,oneof=sales_chart revenue_chart tasks_summary projects_status top_customers inventory_alerts"`
	Position        int               `json:"position" validate:"gte=0"`
	IsActive        *bool             `json:"is_active"`
	RefreshInterval int               `json:"refresh_interval" validate:"gte=0"`
	Settings        datatypes.JSON    `json:"settings" swaggertype:"object"`
}

func requireAdmin(actor scope.Actor) error {
	if !actor.Elevated() {
		return domain.NewForbiddenError("only administrators can change dashboard widgets")
	}
	return nil
}

// ListWidgets returns the active widgets in display order.
func (s *Service) ListWidgets(ctx context.Context) ([]models.DashboardWidget, error) {
	widgets := []models.DashboardWidget{}
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("position ASC").Order("id ASC").
		Find(&widgets).Error
	if err != nil {
		return nil, database.Translate(err, resourceWidget)
	}
	return widgets, nil
}

// GetWidget returns one widget, active or not.
func (s *Service) GetWidget(ctx context.Context, id uint) (*models.DashboardWidget, error) {
	var w models.DashboardWidget
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, database.Translate(err, resourceWidget)
	}
	return &w, nil
}

// CreateWidget adds a widget to the catalog.
func (s *Service) CreateWidget(ctx context.Context, actor scope.Actor, req WidgetRequest) (*models.DashboardWidget, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var w models.DashboardWidget
	if err := applyWidget(&w, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&w).Error; err != nil {
		return nil, database.Translate(err, resourceWidget)
	}
	s.log.Info("dashboard widget created", "widget_id", w.ID, "type", w.WidgetType)
	return &w, nil
}

// UpdateWidget replaces the fields of a widget.
func (s *Service) UpdateWidget(ctx context.Context, actor scope.Actor, id uint, req WidgetRequest) (*models.DashboardWidget, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	w, err := s.GetWidget(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyWidget(w, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(w).Error; err != nil {
		return nil, database.Translate(err, resourceWidget)
	}
	return w, nil
}

// DeleteWidget removes a widget and every user setting of it.
func (s *Service) DeleteWidget(ctx context.Context, actor scope.Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&models.DashboardWidget{}, id)
	if res.Error != nil {
		return database.Translate(res.Error, resourceWidget)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(resourceWidget)
	}
	s.log.Info("dashboard widget deleted", "widget_id", id)
	return nil
}

func applyWidget(w *models.DashboardWidget, req WidgetRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := checkDocument("settings", req.Settings); err != nil {
		return err
	}

	w.Title = req.Title
	w.WidgetType = req.WidgetType
	w.Position = req.Position
	w.IsActive = req.IsActive == nil || *req.IsActive
	w.RefreshInterval = req.RefreshInterval
	if w.RefreshInterval == 0 {
		w.RefreshInterval = models.DefaultRefreshInterval
	}
	w.Settings = emptyObject(req.Settings)
	return nil
}

// checkDocument accepts an absent document or a JSON object.
func checkDocument(field string, doc datatypes.JSON) error {
	var obj map[string]any
	if err := json.Unmarshal(emptyObject(doc), &obj); err != nil {
		return domain.NewFieldError(field, "must be a JSON object")
	}
	return nil
}
