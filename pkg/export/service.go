// Package export renders the dashboard reports of an actor into an xlsx
// workbook and stores it locally or on S3.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/backoffice/pkg/dashboard"
	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/xuri/excelize/v2"
)

// ContentType of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Reports is the source of the exported figures.
type Reports interface {
	Summary(ctx context.Context, actor scope.Actor) (*dashboard.Summary, error)
	Analytics(ctx context.Context, actor scope.Actor) (*dashboard.Analytics, error)
}

// Service handles report exports.
type Service struct {
	reports Reports
	store   Store
	events  events.Publisher
	log     logger.Logger
	now     func() time.Time
}

// NewService creates a new export service.
func NewService(reports Reports, store Store, publisher events.Publisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		reports: reports,
		store:   store,
		events:  publisher,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Result describes a stored export.
type Result struct {
	Filename    string    `json:"filename"`
	Location    string    `json:"location"`
	Size        int       `json:"size"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ExportedEvent is published once a workbook is stored.
type ExportedEvent struct {
	UserID   uint   `json:"user_id"`
	Filename string `json:"filename"`
	Location string `json:"location"`
	Size     int    `json:"size"`
}

// ReportWorkbook renders the summary and analytics visible to actor and
// stores the workbook.
func (s *Service) ReportWorkbook(ctx context.Context, actor scope.Actor) (*Result, error) {
	summary, err := s.reports.Summary(ctx, actor)
	if err != nil {
		return nil, err
	}
	analytics, err := s.reports.Analytics(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	body, err := Workbook(summary, analytics, now)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("report-%d-%s.xlsx", actor.UserID, now.Format("20060102-150405"))
	key := fmt.Sprintf("reports/%s/%s", now.Format("2006-01-02"), filename)
	location, err := s.store.Put(ctx, key, body, ContentType)
	if err != nil {
		return nil, err
	}

	res := &Result{Filename: filename, Location: location, Size: len(body), GeneratedAt: now}
	s.log.Info("report exported", "user_id", actor.UserID, "location", location, "size", len(body))
	events.Emit(ctx, s.events, s.log, events.SubjectReportExported, ExportedEvent{
		UserID:   actor.UserID,
		Filename: filename,
		Location: location,
		Size:     len(body),
	})
	return res, nil
}

// Sheet names.
const (
	SheetSummary       = "Summary"
	SheetRevenue       = "Monthly Revenue"
	SheetSalesStatus   = "Sales by Status"
	SheetLeads         = "Lead Conversion"
	SheetOpportunities = "Opportunities"
	SheetTasks         = "Task Completion"
)

// Workbook lays the reports out over one sheet per table.
func Workbook(summary *dashboard.Summary, analytics *dashboard.Analytics, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	w := &sheetWriter{f: f, header: header}

	p, sl, pu, c := summary.Projects, summary.Sales, summary.Purchases, summary.CRM
	w.table(SheetSummary, []string{"Metric", "Value"}, [][]any{
		{"Generated at", generatedAt.Format(time.RFC3339)},
		{"Total projects", p.TotalProjects},
		{"Active projects", p.ActiveProjects},
		{"Total tasks", p.TotalTasks},
		{"Pending tasks", p.PendingTasks},
		{"Overdue tasks", p.OverdueTasks},
		{"Sales this month", sl.MonthlySales.Count},
		{"Revenue this month", sl.MonthlySales.Sum.StringFixed(2)},
		{"Pending sales", sl.PendingSales},
		{"Purchases this month", pu.MonthlyPurchases.Count},
		{"Spend this month", pu.MonthlyPurchases.Sum.StringFixed(2)},
		{"Pending orders", pu.PendingOrders},
		{"Active leads", c.ActiveLeads},
		{"New leads this month", c.NewLeadsThisMonth},
		{"Open opportunities", c.OpenOpportunities},
		{"Opportunity value", c.OpportunityValue.StringFixed(2)},
	})

	var rows [][]any
	for _, b := range analytics.Sales.MonthlyRevenue {
		rows = append(rows, []any{b.Month, b.Count, b.Amount.StringFixed(2)})
	}
	w.table(SheetRevenue, []string{"Month", "Sales", "Revenue"}, rows)

	rows = nil
	for _, status := range models.SaleStatuses {
		t := analytics.Sales.SalesByStatus[string(status)]
		rows = append(rows, []any{string(status), t.Count, t.Sum.StringFixed(2)})
	}
	w.table(SheetSalesStatus, []string{"Status", "Sales", "Amount"}, rows)

	rows = nil
	for _, status := range models.LeadStatuses {
		rows = append(rows, []any{string(status), analytics.CRM.LeadConversion[string(status)]})
	}
	w.table(SheetLeads, []string{"Status", "Leads"}, rows)

	rows = nil
	for _, stage := range models.OpportunityStatuses {
		t := analytics.CRM.OpportunitiesByStage[string(stage)]
		rows = append(rows, []any{string(stage), t.Count, t.Sum.StringFixed(2)})
	}
	w.table(SheetOpportunities, []string{"Stage", "Opportunities", "Value"}, rows)

	rows = nil
	for _, b := range analytics.Projects.TaskCompletionTrend {
		rows = append(rows, []any{b.Month, b.Total, b.Reached, b.Rate})
	}
	w.table(SheetTasks, []string{"Month", "Created", "Completed", "Rate"}, rows)

	if w.err != nil {
		return nil, w.err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so tables can be chained.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) table(sheet string, headers []string, rows [][]any) {
	if w.err != nil {
		return
	}
	if _, err := w.f.NewSheet(sheet); err != nil {
		w.err = fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		return
	}

	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	if err := w.f.SetSheetRow(sheet, "A1", &cells); err != nil {
		w.err = fmt.Errorf("failed to write header of %s: %w", sheet, err)
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = fmt.Errorf("failed to style header of %s: %w", sheet, err)
		return
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			w.err = fmt.Errorf("failed to write row of %s: %w", sheet, err)
			return
		}
	}
}
