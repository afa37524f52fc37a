package dashboard

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
)

var (
	projectStatuses     = models.Strings(models.ProjectStatuses)
	taskPriorities      = models.Strings(models.TaskPriorities)
	saleStatuses        = models.Strings(models.SaleStatuses)
	leadStatuses        = models.Strings(models.LeadStatuses)
	opportunityStatuses = models.Strings(models.OpportunityStatuses)
)

func anys[T ~string](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

var (
	pendingTasks = anys([]models.TaskStatus{models.TaskStatusTodo, models.TaskStatusInProgress})
	openTasks    = anys(models.OpenTaskStatuses)
	closedOpps   = anys([]models.OpportunityStatus{models.OpportunityStatusClosedWon, models.OpportunityStatusClosedLost})
	closedLeads  = anys([]models.LeadStatus{models.LeadStatusWon, models.LeadStatusLost})
)

// tasksOf is every task for administrators and the assigned ones otherwise.
func tasksOf(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	var own *entsql.Predicate
	if !actor.Elevated() {
		own = entsql.EQ("assigned_to_id", actor.UserID)
	}
	return report.From("tasks", own).And(preds...)
}

func projectsOf(actor scope.Actor) report.Source {
	return report.From("projects", scope.Projects.Predicate(actor))
}

func salesOf(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("sales", scope.Sales.Predicate(actor)).And(preds...)
}

func purchasesOf(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("purchases", scope.Purchases.Predicate(actor)).And(preds...)
}

// leadsOf only counts leads owned by the actor, unlike the CRM listings.
func leadsOf(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("leads", scope.LeadOwnership.Predicate(actor)).And(preds...)
}

func opportunitiesOf(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("opportunities", scope.Opportunities.Predicate(actor)).And(preds...)
}

// ProjectsSummary is the project block of the summary.
type ProjectsSummary struct {
	TotalProjects  int64 `json:"total_projects"`
	ActiveProjects int64 `json:"active_projects"`
	TotalTasks     int64 `json:"total_tasks"`
	PendingTasks   int64 `json:"pending_tasks"`
	OverdueTasks   int64 `json:"overdue_tasks"`
}

// SalesSummary is the sales block of the summary.
type SalesSummary struct {
	MonthlySales report.Total `json:"monthly_sales"`
	PendingSales int64        `json:"pending_sales"`
}

// PurchasesSummary is the purchasing block of the summary.
type PurchasesSummary struct {
	MonthlyPurchases report.Total `json:"monthly_purchases"`
	PendingOrders    int64        `json:"pending_orders"`
}

// CRMSummary is the CRM block of the summary.
type CRMSummary struct {
	ActiveLeads       int64           `json:"active_leads"`
	NewLeadsThisMonth int64           `json:"new_leads_this_month"`
	OpenOpportunities int64           `json:"open_opportunities"`
	OpportunityValue  decimal.Decimal `json:"opportunity_value"`
}

// Summary is the cross-module dashboard of one actor.
type Summary struct {
	Projects  ProjectsSummary  `json:"projects"`
	Sales     SalesSummary     `json:"sales"`
	Purchases PurchasesSummary `json:"purchases"`
	CRM       CRMSummary       `json:"crm"`
}

// Summary collects this month's figures of every module for actor.
func (s *Service) Summary(ctx context.Context, actor scope.Actor) (*Summary, error) {
	now := s.now()
	today := models.DateOf(now)
	month := report.LastMonths(1, now)[0]
	var (
		out Summary
		err error
	)

	p := &out.Projects
	if p.TotalProjects, err = s.engine.Count(ctx, projectsOf(actor)); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	active := projectsOf(actor).And(entsql.EQ("status", string(models.ProjectStatusInProgress)))
	if p.ActiveProjects, err = s.engine.Count(ctx, active); err != nil {
		return nil, fmt.Errorf("failed to count active projects: %w", err)
	}
	if p.TotalTasks, err = s.engine.Count(ctx, tasksOf(actor)); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	if p.PendingTasks, err = s.engine.Count(ctx, tasksOf(actor, entsql.In("status", pendingTasks...))); err != nil {
		return nil, fmt.Errorf("failed to count pending tasks: %w", err)
	}
	late := tasksOf(actor, entsql.In("status", openTasks...), entsql.LT("due_date", today.Time))
	if p.OverdueTasks, err = s.engine.Count(ctx, late); err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	if out.Sales.MonthlySales, err = s.engine.Totals(ctx, salesOf(actor, month.WithinDates("date")), "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total this month's sales: %w", err)
	}
	pending := salesOf(actor, entsql.EQ("status", string(models.SaleStatusPending)))
	if out.Sales.PendingSales, err = s.engine.Count(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to count pending sales: %w", err)
	}

	bought := purchasesOf(actor, month.WithinDates("purchase_date"))
	if out.Purchases.MonthlyPurchases, err = s.engine.Totals(ctx, bought, "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total this month's purchases: %w", err)
	}
	ordered := purchasesOf(actor, entsql.EQ("status", string(models.PurchaseStatusOrdered)))
	if out.Purchases.PendingOrders, err = s.engine.Count(ctx, ordered); err != nil {
		return nil, fmt.Errorf("failed to count pending orders: %w", err)
	}

	c := &out.CRM
	if c.ActiveLeads, err = s.engine.Count(ctx, leadsOf(actor, entsql.NotIn("status", closedLeads...))); err != nil {
		return nil, fmt.Errorf("failed to count active leads: %w", err)
	}
	if c.NewLeadsThisMonth, err = s.engine.Count(ctx, leadsOf(actor, month.Within("created_at"))); err != nil {
		return nil, fmt.Errorf("failed to count new leads: %w", err)
	}
	open, err := s.engine.Totals(ctx, opportunitiesOf(actor, entsql.NotIn("status", closedOpps...)), "value")
	if err != nil {
		return nil, fmt.Errorf("failed to total open opportunities: %w", err)
	}
	c.OpenOpportunities, c.OpportunityValue = open.Count, open.Sum

	return &out, nil
}

// TrendBucket counts the rows created in one month and how many of them
// reached the target status.
type TrendBucket struct {
	Month   string  `json:"month"`
	Total   int64   `json:"total"`
	Reached int64   `json:"reached"`
	Rate    float64 `json:"rate"`
}

// ProjectsAnalytics is the project block of the analytics.
type ProjectsAnalytics struct {
	ProjectsByStatus    report.Counts `json:"projects_by_status"`
	TasksByPriority     report.Counts `json:"tasks_by_priority"`
	TaskCompletionTrend []TrendBucket `json:"tasks_completion_trend"`
}

// SalesAnalytics is the sales block of the analytics.
type SalesAnalytics struct {
	MonthlyRevenue []report.MonthBucket    `json:"monthly_revenue"`
	SalesByStatus  map[string]report.Total `json:"sales_by_status"`
}

// CRMAnalytics is the CRM block of the analytics.
type CRMAnalytics struct {
	LeadConversion       report.Counts           `json:"lead_conversion"`
	OpportunitiesByStage map[string]report.Total `json:"opportunities_by_stage"`
	ConversionTrend      []TrendBucket           `json:"conversion_trend"`
}

// Analytics is the yearly view of the dashboard.
type Analytics struct {
	Projects ProjectsAnalytics `json:"projects_analytics"`
	Sales    SalesAnalytics    `json:"sales_analytics"`
	CRM      CRMAnalytics      `json:"crm_analytics"`
}

// Analytics breaks the records of actor down by status and follows them
// month by month over the last twelve months. Revenue covers the current
// calendar year.
func (s *Service) Analytics(ctx context.Context, actor scope.Actor) (*Analytics, error) {
	now := s.now()
	months := report.LastMonths(12, now)
	since := entsql.GTE("created_at", months[0].Start)
	var (
		out Analytics
		err error
	)

	pa := &out.Projects
	if pa.ProjectsByStatus, err = s.engine.CountBy(ctx, projectsOf(actor), "status", projectStatuses); err != nil {
		return nil, fmt.Errorf("failed to count projects by status: %w", err)
	}
	if pa.TasksByPriority, err = s.engine.CountBy(ctx, tasksOf(actor), "priority", taskPriorities); err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}
	completed := entsql.EQ("status", string(models.TaskStatusCompleted))
	if pa.TaskCompletionTrend, err = s.trend(ctx, tasksOf(actor, since), completed, months); err != nil {
		return nil, fmt.Errorf("failed to build task completion trend: %w", err)
	}

	sa := &out.Sales
	year := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	thisYear := salesOf(actor, entsql.GTE("date", models.DateOf(year).Time))
	points, err := s.engine.Points(ctx, thisYear, "date", "total_amount")
	if err != nil {
		return nil, fmt.Errorf("failed to load this year's sales: %w", err)
	}
	sa.MonthlyRevenue = report.Monthly(points, report.Months(year, now))
	if sa.SalesByStatus, err = s.engine.TotalsBy(ctx, salesOf(actor), "status", "total_amount", saleStatuses); err != nil {
		return nil, fmt.Errorf("failed to total sales by status: %w", err)
	}

	ca := &out.CRM
	if ca.LeadConversion, err = s.engine.CountBy(ctx, leadsOf(actor), "status", leadStatuses); err != nil {
		return nil, fmt.Errorf("failed to count leads by status: %w", err)
	}
	if ca.OpportunitiesByStage, err = s.engine.TotalsBy(ctx, opportunitiesOf(actor), "status", "value", opportunityStatuses); err != nil {
		return nil, fmt.Errorf("failed to total opportunities by stage: %w", err)
	}
	won := entsql.EQ("status", string(models.OpportunityStatusClosedWon))
	if ca.ConversionTrend, err = s.trend(ctx, opportunitiesOf(actor, since), won, months); err != nil {
		return nil, fmt.Errorf("failed to build conversion trend: %w", err)
	}

	return &out, nil
}

// trend buckets the rows of src by creation month next to the rows that
// also match reached.
func (s *Service) trend(ctx context.Context, src report.Source, reached *entsql.Predicate, months []report.Month) ([]TrendBucket, error) {
	all, err := s.engine.Points(ctx, src, "created_at", "")
	if err != nil {
		return nil, err
	}
	hit, err := s.engine.Points(ctx, src.And(reached), "created_at", "")
	if err != nil {
		return nil, err
	}

	totals := report.Monthly(all, months)
	reachedByMonth := report.Monthly(hit, months)
	out := make([]TrendBucket, len(months))
	for i := range months {
		out[i] = TrendBucket{
			Month:   totals[i].Month,
			Total:   totals[i].Count,
			Reached: reachedByMonth[i].Count,
			Rate:    report.Rate(reachedByMonth[i].Count, totals[i].Count),
		}
	}
	return out, nil
}
