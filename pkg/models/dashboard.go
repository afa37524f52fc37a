package models

import (
	"gorm.io/datatypes"
)

// WidgetType identifies what a dashboard widget renders.
type WidgetType string

const (
	WidgetSalesChart      WidgetType = "sales_chart"
	WidgetRevenueChart    WidgetType = "revenue_chart"
	WidgetTasksSummary    WidgetType = "tasks_summary"
	WidgetProjectsStatus  WidgetType = "projects_status"
	WidgetTopCustomers    WidgetType = "top_customers"
	WidgetInventoryAlerts WidgetType = "inventory_alerts"
)

// WidgetTypes lists every widget type.
var WidgetTypes = []WidgetType{
	WidgetSalesChart, WidgetRevenueChart, WidgetTasksSummary,
	WidgetProjectsStatus, WidgetTopCustomers, WidgetInventoryAlerts,
}

// DefaultRefreshInterval is the widget refresh period in seconds.
const DefaultRefreshInterval = 300

// DashboardWidget is a widget available on the dashboard.
type DashboardWidget struct {
	Base
	Title           string         `gorm:"size:100;not null" json:"title"`
	WidgetType      WidgetType     `gorm:"size:20;not null" json:"widget_type"`
	Position        int            `gorm:"not null;index" json:"position"`
	IsActive        bool           `gorm:"not null" json:"is_active"`
	RefreshInterval int            `gorm:"not null" json:"refresh_interval"`
	Settings        datatypes.JSON `json:"settings"`
}

// UserDashboardPreference stores the dashboard layout of one user.
type UserDashboardPreference struct {
	Base
	UserID  uint                 `gorm:"not null;uniqueIndex" json:"user_id"`
	User    *User                `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Layout  datatypes.JSON       `json:"layout"`
	Widgets []UserWidgetSettings `gorm:"foreignKey:PreferenceID;constraint:OnDelete:CASCADE" json:"widgets,omitempty"`
}

// UserWidgetSettings customizes one widget for one user.
type UserWidgetSettings struct {
	Base
	PreferenceID uint             `gorm:"not null;uniqueIndex:idx_preference_widget" json:"preference_id"`
	WidgetID     uint             `gorm:"not null;uniqueIndex:idx_preference_widget" json:"widget_id"`
	Widget       *DashboardWidget `gorm:"constraint:OnDelete:CASCADE" json:"widget,omitempty"`
	Position     int              `gorm:"not null" json:"position"`
	IsVisible    bool             `gorm:"not null" json:"is_visible"`
	Settings     datatypes.JSON   `json:"settings"`
}

// TableName pins the table name of UserWidgetSettings.
func (UserWidgetSettings) TableName() string {
	return "user_widget_settings"
}
