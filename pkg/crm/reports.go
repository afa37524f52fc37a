package crm

import (
	"context"
	"fmt"
	"sort"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/report"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/shopspring/decimal"
)

var (
	leadStatuses        = models.Strings(models.LeadStatuses)
	leadSources         = models.Strings(models.LeadSources)
	opportunityStatuses = models.Strings(models.OpportunityStatuses)
	activityTypes       = models.Strings(models.ActivityTypes)
)

func (s *Service) leads(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("leads", scope.Leads.Predicate(actor)).And(preds...)
}

func (s *Service) opportunities(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("opportunities", scope.Opportunities.Predicate(actor)).And(preds...)
}

func (s *Service) activities(actor scope.Actor, preds ...*entsql.Predicate) report.Source {
	return report.From("activities", scope.Activities.Predicate(actor)).And(preds...)
}

// LeadsSummary is the lead block of the CRM dashboard.
type LeadsSummary struct {
	Total         int64         `json:"total"`
	NewLast30Days int64         `json:"new_last_30_days"`
	ByStatus      report.Counts `json:"by_status"`
	BySource      report.Counts `json:"by_source"`
}

// OpportunitiesSummary is the opportunity block of the CRM dashboard.
type OpportunitiesSummary struct {
	Total            int64           `json:"total"`
	TotalValue       decimal.Decimal `json:"total_value"`
	ByStatus         report.Counts   `json:"by_status"`
	ClosingThisMonth int64           `json:"closing_this_month"`
}

// ActivitiesSummary is the activity block of the CRM dashboard.
type ActivitiesSummary struct {
	Total  int64         `json:"total"`
	Today  int64         `json:"today"`
	ByType report.Counts `json:"by_type"`
}

// DashboardSummary is the CRM dashboard of one actor.
type DashboardSummary struct {
	Leads         LeadsSummary         `json:"leads_summary"`
	Opportunities OpportunitiesSummary `json:"opportunities_summary"`
	Activities    ActivitiesSummary    `json:"activities_summary"`
}

// DashboardSummary summarizes the leads, opportunities and activities
// visible to actor.
func (s *Service) DashboardSummary(ctx context.Context, actor scope.Actor) (*DashboardSummary, error) {
	now := s.now()
	var (
		out DashboardSummary
		err error
	)

	leads := s.leads(actor)
	if out.Leads.ByStatus, err = s.engine.CountBy(ctx, leads, "status", leadStatuses); err != nil {
		return nil, fmt.Errorf("failed to count leads by status: %w", err)
	}
	if out.Leads.BySource, err = s.engine.CountBy(ctx, leads, "source", leadSources); err != nil {
		return nil, fmt.Errorf("failed to count leads by source: %w", err)
	}
	if out.Leads.Total, err = s.engine.Count(ctx, leads); err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	recent := leads.And(report.TrailingDays(30, now).Since("created_at"))
	if out.Leads.NewLast30Days, err = s.engine.Count(ctx, recent); err != nil {
		return nil, fmt.Errorf("failed to count recent leads: %w", err)
	}

	opps := s.opportunities(actor)
	totals, err := s.engine.Totals(ctx, opps, "value")
	if err != nil {
		return nil, fmt.Errorf("failed to total opportunities: %w", err)
	}
	out.Opportunities.Total, out.Opportunities.TotalValue = totals.Count, totals.Sum
	if out.Opportunities.ByStatus, err = s.engine.CountBy(ctx, opps, "status", opportunityStatuses); err != nil {
		return nil, fmt.Errorf("failed to count opportunities by status: %w", err)
	}
	month := report.LastMonths(1, now)[0]
	closing := opps.And(month.WithinDates("expected_close_date"))
	if out.Opportunities.ClosingThisMonth, err = s.engine.Count(ctx, closing); err != nil {
		return nil, fmt.Errorf("failed to count opportunities closing this month: %w", err)
	}

	acts := s.activities(actor)
	if out.Activities.ByType, err = s.engine.CountBy(ctx, acts, "type", activityTypes); err != nil {
		return nil, fmt.Errorf("failed to count activities by type: %w", err)
	}
	out.Activities.Total = out.Activities.ByType.Total()
	today := models.DateOf(now)
	todays := acts.And(
		entsql.GTE("date", today.Time),
		entsql.LT("date", today.AddDays(1).Time),
	)
	if out.Activities.Today, err = s.engine.Count(ctx, todays); err != nil {
		return nil, fmt.Errorf("failed to count today's activities: %w", err)
	}

	return &out, nil
}

// SourceConversion is the lead count and win rate of one source.
type SourceConversion struct {
	Source         string  `json:"source"`
	Count          int64   `json:"count"`
	ConversionRate float64 `json:"conversion_rate"`
}

// LeadsAnalysis is the lead block of the CRM report.
type LeadsAnalysis struct {
	TotalLeads     int64              `json:"total_leads"`
	ConversionRate float64            `json:"conversion_rate"`
	BySource       []SourceConversion `json:"by_source"`
}

// OpportunitiesAnalysis is the opportunity block of the CRM report.
type OpportunitiesAnalysis struct {
	TotalOpportunities int64                   `json:"total_opportunities"`
	TotalValue         decimal.Decimal         `json:"total_value"`
	WinRate            float64                 `json:"win_rate"`
	ByStatus           map[string]report.Total `json:"by_status"`
}

// Report is the CRM report over an optional creation date range.
type Report struct {
	Range         report.Range          `json:"range"`
	Leads         LeadsAnalysis         `json:"leads_analysis"`
	Opportunities OpportunitiesAnalysis `json:"opportunities_analysis"`
}

// Report analyses leads and opportunities created within rng.
func (s *Service) Report(ctx context.Context, actor scope.Actor, rng report.Range) (*Report, error) {
	out := Report{Range: rng}

	leads := s.leads(actor, rng.Since("created_at")...)
	bySource, err := s.sourceConversions(ctx, leads)
	if err != nil {
		return nil, err
	}
	won, err := s.engine.Count(ctx, leads.And(entsql.EQ("status", string(models.LeadStatusWon))))
	if err != nil {
		return nil, fmt.Errorf("failed to count won leads: %w", err)
	}
	for _, sc := range bySource {
		out.Leads.TotalLeads += sc.Count
	}
	out.Leads.BySource = bySource
	out.Leads.ConversionRate = report.Rate(won, out.Leads.TotalLeads)

	opps := s.opportunities(actor, rng.Since("created_at")...)
	pipeline, err := s.engine.TotalsBy(ctx, opps, "status", "value", opportunityStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to total opportunities by status: %w", err)
	}
	out.Opportunities.ByStatus = pipeline
	out.Opportunities.TotalValue = decimal.Zero
	for _, t := range pipeline {
		out.Opportunities.TotalOpportunities += t.Count
		out.Opportunities.TotalValue = out.Opportunities.TotalValue.Add(t.Sum)
	}
	out.Opportunities.WinRate = report.Rate(
		pipeline[string(models.OpportunityStatusClosedWon)].Count,
		out.Opportunities.TotalOpportunities,
	)

	return &out, nil
}

func (s *Service) sourceConversions(ctx context.Context, leads report.Source) ([]SourceConversion, error) {
	all, err := s.engine.CountBy(ctx, leads, "source", leadSources)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads by source: %w", err)
	}
	won, err := s.engine.CountBy(ctx, leads.And(entsql.EQ("status", string(models.LeadStatusWon))), "source", leadSources)
	if err != nil {
		return nil, fmt.Errorf("failed to count won leads by source: %w", err)
	}

	out := make([]SourceConversion, 0, len(leadSources))
	for _, src := range leadSources {
		out = append(out, SourceConversion{
			Source:         src,
			Count:          all[src],
			ConversionRate: report.Rate(won[src], all[src]),
		})
	}
	return out, nil
}

// LeadMetrics describes the leads created in an analytics window.
type LeadMetrics struct {
	TotalLeads               int64         `json:"total_leads"`
	ByStatus                 report.Counts `json:"by_status"`
	BySource                 report.Counts `json:"by_source"`
	ConversionRate           float64       `json:"conversion_rate"`
	AverageQualificationDays float64       `json:"average_qualification_time"`
}

// OpportunityMetrics describes the opportunities created in a window.
type OpportunityMetrics struct {
	TotalOpportunities int64                   `json:"total_opportunities"`
	TotalValue         decimal.Decimal         `json:"total_value"`
	ByStatus           map[string]report.Total `json:"by_status"`
	WinRate            float64                 `json:"win_rate"`
	AverageDealSize    decimal.Decimal         `json:"average_deal_size"`
}

// ActivityMetrics describes the activities logged in a window.
type ActivityMetrics struct {
	TotalActivities int64              `json:"total_activities"`
	ByType          report.Counts      `json:"by_type"`
	CompletionRate  float64            `json:"completion_rate"`
	DailyActivity   []report.DayBucket `json:"daily_activity"`
}

// PipelineStage is the count and value of one opportunity status.
type PipelineStage struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Value  decimal.Decimal `json:"value"`
}

// Analytics is the CRM analytics of a trailing window.
type Analytics struct {
	Period        report.Window      `json:"period"`
	Leads         LeadMetrics        `json:"lead_metrics"`
	Opportunities OpportunityMetrics `json:"opportunity_metrics"`
	Activities    ActivityMetrics    `json:"activity_metrics"`
	SalesPipeline []PipelineStage    `json:"sales_pipeline"`
}

// Analytics computes lead, opportunity and activity metrics over w.
func (s *Service) Analytics(ctx context.Context, actor scope.Actor, w report.Window) (*Analytics, error) {
	out := Analytics{Period: w}
	var err error

	leads := s.leads(actor, w.Since("created_at"))
	if out.Leads.ByStatus, err = s.engine.CountBy(ctx, leads, "status", leadStatuses); err != nil {
		return nil, fmt.Errorf("failed to count leads by status: %w", err)
	}
	if out.Leads.BySource, err = s.engine.CountBy(ctx, leads, "source", leadSources); err != nil {
		return nil, fmt.Errorf("failed to count leads by source: %w", err)
	}
	out.Leads.TotalLeads = out.Leads.ByStatus.Total()
	out.Leads.ConversionRate = report.Rate(out.Leads.ByStatus[string(models.LeadStatusWon)], out.Leads.TotalLeads)
	spans, err := s.engine.Spans(ctx, leads, "", "created_at", "qualified_at")
	if err != nil {
		return nil, fmt.Errorf("failed to measure qualification time: %w", err)
	}
	out.Leads.AverageQualificationDays = report.Mean(spans[""])

	opps := s.opportunities(actor, w.Since("created_at"))
	pipeline, err := s.engine.TotalsBy(ctx, opps, "status", "value", opportunityStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to total opportunities by status: %w", err)
	}
	out.Opportunities.ByStatus = pipeline
	out.Opportunities.TotalValue = decimal.Zero
	for _, status := range opportunityStatuses {
		t := pipeline[status]
		out.Opportunities.TotalOpportunities += t.Count
		out.Opportunities.TotalValue = out.Opportunities.TotalValue.Add(t.Sum)
		out.SalesPipeline = append(out.SalesPipeline, PipelineStage{Status: status, Count: t.Count, Value: t.Sum})
	}
	won := pipeline[string(models.OpportunityStatusClosedWon)]
	out.Opportunities.WinRate = report.Rate(won.Count, out.Opportunities.TotalOpportunities)
	out.Opportunities.AverageDealSize = report.Average(won.Sum, won.Count)

	if out.Activities, err = s.activityMetrics(ctx, actor, w); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) activityMetrics(ctx context.Context, actor scope.Actor, w report.Window) (ActivityMetrics, error) {
	var (
		m   ActivityMetrics
		err error
	)
	acts := s.activities(actor, w.Since("created_at"))
	if m.ByType, err = s.engine.CountBy(ctx, acts, "type", activityTypes); err != nil {
		return m, fmt.Errorf("failed to count activities by type: %w", err)
	}
	m.TotalActivities = m.ByType.Total()

	done, err := s.engine.Count(ctx, acts.And(entsql.LTE("date", s.now())))
	if err != nil {
		return m, fmt.Errorf("failed to count completed activities: %w", err)
	}
	m.CompletionRate = report.Rate(done, m.TotalActivities)

	points, err := s.engine.Points(ctx, acts, "date", "")
	if err != nil {
		return m, fmt.Errorf("failed to load activity dates: %w", err)
	}
	m.DailyActivity = report.Daily(points, w.StartDate(), w.EndDate())
	return m, nil
}

// Funnel is the lead to deal funnel of a window.
type Funnel struct {
	Period           report.Window      `json:"period"`
	Stages           []report.Stage     `json:"funnel_stages"`
	ConversionRates  map[string]float64 `json:"conversion_rates"`
	AverageCycleDays float64            `json:"average_cycle_time"`
}

// Funnel counts each pipeline stage reached by records created within w.
func (s *Service) Funnel(ctx context.Context, actor scope.Actor, w report.Window) (*Funnel, error) {
	leads := s.leads(actor, w.Since("created_at"))
	opps := s.opportunities(actor, w.Since("created_at"))
	withStatus := func(src report.Source, status string) report.Source {
		return src.And(entsql.EQ("status", status))
	}

	steps := []struct {
		name string
		src  report.Source
	}{
		{"leads", leads},
		{"qualified_leads", withStatus(leads, string(models.LeadStatusQualified))},
		{"opportunities", opps},
		{"proposals", withStatus(opps, string(models.OpportunityStatusProposal))},
		{"negotiations", withStatus(opps, string(models.OpportunityStatusNegotiation))},
		{"won_deals", withStatus(opps, string(models.OpportunityStatusClosedWon))},
	}

	out := Funnel{Period: w}
	for _, step := range steps {
		n, err := s.engine.Count(ctx, step.src)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", step.name, err)
		}
		out.Stages = append(out.Stages, report.Stage{Name: step.name, Count: n})
	}
	out.ConversionRates = report.Funnel(out.Stages)

	cycles, err := s.engine.Spans(ctx, withStatus(opps, string(models.OpportunityStatusClosedWon)), "", "created_at", "closed_at")
	if err != nil {
		return nil, fmt.Errorf("failed to measure sales cycle: %w", err)
	}
	out.AverageCycleDays = report.Mean(cycles[""])
	return &out, nil
}

// SourcePerformance is the lead outcome of one source.
type SourcePerformance struct {
	Source                   string  `json:"source"`
	TotalLeads               int64   `json:"total_leads"`
	QualifiedLeads           int64   `json:"qualified_leads"`
	ConvertedLeads           int64   `json:"converted_leads"`
	ConversionRate           float64 `json:"conversion_rate"`
	AverageQualificationDays float64 `json:"average_qualification_time"`
}

// SourceTrend is the per-source breakdown of one month.
type SourceTrend struct {
	Month    string             `json:"month"`
	BySource []SourceConversion `json:"by_source"`
}

// LeadSourceAnalysis compares lead sources over a window.
type LeadSourceAnalysis struct {
	Period      report.Window       `json:"period"`
	Sources     []SourcePerformance `json:"source_performance"`
	BestSources []SourcePerformance `json:"best_performing_sources"`
	Trend       []SourceTrend       `json:"trend_analysis"`
}

// LeadSources measures how each lead source performs within w.
func (s *Service) LeadSources(ctx context.Context, actor scope.Actor, w report.Window) (*LeadSourceAnalysis, error) {
	leads := s.leads(actor, w.Since("created_at"))

	all, err := s.engine.CountBy(ctx, leads, "source", leadSources)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads by source: %w", err)
	}
	qualified, err := s.engine.CountBy(ctx, leads.And(entsql.EQ("status", string(models.LeadStatusQualified))), "source", leadSources)
	if err != nil {
		return nil, fmt.Errorf("failed to count qualified leads: %w", err)
	}
	converted, err := s.engine.CountBy(ctx, leads.And(entsql.EQ("status", string(models.LeadStatusWon))), "source", leadSources)
	if err != nil {
		return nil, fmt.Errorf("failed to count converted leads: %w", err)
	}
	spans, err := s.engine.Spans(ctx, leads, "source", "created_at", "qualified_at")
	if err != nil {
		return nil, fmt.Errorf("failed to measure qualification time: %w", err)
	}

	out := LeadSourceAnalysis{Period: w}
	for _, src := range leadSources {
		out.Sources = append(out.Sources, SourcePerformance{
			Source:                   src,
			TotalLeads:               all[src],
			QualifiedLeads:           qualified[src],
			ConvertedLeads:           converted[src],
			ConversionRate:           report.Rate(converted[src], all[src]),
			AverageQualificationDays: report.Mean(spans[src]),
		})
	}
	out.BestSources = bestSources(out.Sources, 5)

	for _, month := range report.Months(w.Start, w.End) {
		bySource, err := s.sourceConversions(ctx, leads.And(month.Within("created_at")))
		if err != nil {
			return nil, err
		}
		out.Trend = append(out.Trend, SourceTrend{Month: month.Label, BySource: bySource})
	}
	return &out, nil
}

// bestSources ranks sources with at least one lead by conversion rate, then
// volume.
func bestSources(sources []SourcePerformance, n int) []SourcePerformance {
	ranked := make([]SourcePerformance, 0, len(sources))
	for _, sp := range sources {
		if sp.TotalLeads > 0 {
			ranked = append(ranked, sp)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ConversionRate != ranked[j].ConversionRate {
			return ranked[i].ConversionRate > ranked[j].ConversionRate
		}
		return ranked[i].TotalLeads > ranked[j].TotalLeads
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
