package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/export"
	"github.com/jordanlanch/backoffice/pkg/inventory"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/metrics"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/sales"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"gorm.io/gorm"
)

// Job names.
const (
	JobLowStock      = "low-stock"
	JobTaskReminders = "task-reminders"
	JobOverdueTasks  = "overdue-tasks"
	JobSalesStats    = "sales-stats"
	JobDailyReport   = "daily-report"
)

// System is the actor background work runs as.
var System = scope.Actor{Role: models.RoleAdmin}

// TaskNotifier publishes deadline notices for tasks.
type TaskNotifier interface {
	SendDueReminders(ctx context.Context) (int, error)
	FlagOverdueTasks(ctx context.Context) (int, error)
}

// SalesDashboard totals recent sales.
type SalesDashboard interface {
	Dashboard(ctx context.Context, actor scope.Actor) (*sales.Dashboard, error)
}

// Exporter stores report workbooks.
type Exporter interface {
	ReportWorkbook(ctx context.Context, actor scope.Actor) (*export.Result, error)
}

// Monitor holds what the jobs work on. Any dependency left nil disables the
// jobs that need it.
type Monitor struct {
	DB                *gorm.DB
	Tasks             TaskNotifier
	Sales             SalesDashboard
	Exporter          Exporter
	Metrics           *metrics.Metrics
	Events            events.Publisher
	Log               logger.Logger
	LowStockThreshold int
}

// Jobs returns the schedule of every job the monitor can run.
func (m *Monitor) Jobs() []Job {
	var jobs []Job
	if m.DB != nil {
		jobs = append(jobs, Job{Name: JobLowStock, Spec: "0 9 * * *", Every: 24 * time.Hour, Timeout: time.Minute, Run: m.CheckLowStock})
	}
	if m.Tasks != nil {
		jobs = append(jobs,
			Job{Name: JobTaskReminders, Spec: "0 8 * * *", Every: 24 * time.Hour, Timeout: time.Minute, Run: m.SendTaskReminders},
			Job{Name: JobOverdueTasks, Spec: "0 */2 * * *", Every: 2 * time.Hour, Timeout: time.Minute, Run: m.CheckOverdueTasks},
		)
	}
	if m.Sales != nil {
		jobs = append(jobs, Job{Name: JobSalesStats, Spec: "0 * * * *", Every: time.Hour, Timeout: 30 * time.Second, Run: m.RefreshSalesStats})
	}
	if m.Exporter != nil {
		jobs = append(jobs, Job{Name: JobDailyReport, Spec: "45 23 * * *", Every: 24 * time.Hour, Timeout: 5 * time.Minute, Run: m.ExportDailyReport})
	}
	return jobs
}

func (m *Monitor) logger() logger.Logger {
	if m.Log == nil {
		return logger.Default()
	}
	return m.Log
}

// CheckLowStock publishes the products at or below the threshold and
// exposes their number as a gauge.
func (m *Monitor) CheckLowStock(ctx context.Context) error {
	products, err := inventory.LowStock(ctx, m.DB, m.LowStockThreshold)
	if err != nil {
		return err
	}
	if m.Metrics != nil {
		m.Metrics.LowStock.Set(float64(len(products)))
	}
	m.logger().Info("low stock check", "threshold", m.LowStockThreshold, "products", len(products))
	if len(products) == 0 {
		return nil
	}
	events.Emit(ctx, m.Events, m.logger(), events.SubjectLowStock, inventory.LowStockEvent{Products: inventory.Alerts(products)})
	return nil
}

// SendTaskReminders notifies assignees of tasks due tomorrow.
func (m *Monitor) SendTaskReminders(ctx context.Context) error {
	_, err := m.Tasks.SendDueReminders(ctx)
	return err
}

// CheckOverdueTasks notifies assignees of tasks past their due date.
func (m *Monitor) CheckOverdueTasks(ctx context.Context) error {
	_, err := m.Tasks.FlagOverdueTasks(ctx)
	return err
}

// RefreshSalesStats copies the figures of the sales dashboard into gauges.
func (m *Monitor) RefreshSalesStats(ctx context.Context) error {
	d, err := m.Sales.Dashboard(ctx, System)
	if err != nil {
		return fmt.Errorf("failed to load sales statistics: %w", err)
	}
	if m.Metrics != nil {
		m.Metrics.SalesToday.Set(float64(d.Today.Count))
		m.Metrics.RevenueToday.Set(d.Today.Sum.InexactFloat64())
		m.Metrics.RevenueMonth.Set(d.Month.Sum.InexactFloat64())
		m.Metrics.PendingSales.Set(float64(d.StatusBreakdown[string(models.SaleStatusPending)]))
	}
	m.logger().Debug("sales statistics refreshed", "sales_today", d.Today.Count, "revenue_today", d.Today.Sum.String())
	return nil
}

// ExportDailyReport stores the company wide report workbook.
func (m *Monitor) ExportDailyReport(ctx context.Context) error {
	_, err := m.Exporter.ReportWorkbook(ctx, System)
	return err
}
