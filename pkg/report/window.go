package report

import (
	"strconv"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/models"
)

// MaxPeriodDays bounds trailing windows to ten years.
const MaxPeriodDays = 3650

// Window is a trailing period of Days days ending at End.
type Window struct {
	Days  int       `json:"days"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParsePeriod parses the `period` query parameter. An empty value yields the
// default; anything that is not a positive day count is rejected.
func ParsePeriod(raw string, def int) (Window, error) {
	return ParsePeriodAt(raw, def, time.Now().UTC())
}

// ParsePeriodAt is ParsePeriod with an explicit clock.
func ParsePeriodAt(raw string, def int, now time.Time) (Window, error) {
	days := def
	if raw = strings.TrimSpace(raw); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Window{}, domain.NewFieldError("period", "must be a whole number of days")
		}
		days = n
	}
	if days <= 0 || days > MaxPeriodDays {
		return Window{}, domain.NewFieldError("period", "must be between 1 and 3650 days")
	}
	return TrailingDays(days, now), nil
}

// TrailingDays builds the window of the last n days ending at now.
func TrailingDays(n int, now time.Time) Window {
	now = now.UTC()
	return Window{Days: n, Start: now.AddDate(0, 0, -n), End: now}
}

// StartDate is the first calendar day of the window.
func (w Window) StartDate() models.Date { return models.DateOf(w.Start) }

// EndDate is the last calendar day of the window.
func (w Window) EndDate() models.Date { return models.DateOf(w.End) }

// Since restricts a timestamp column to the window.
func (w Window) Since(column string) *entsql.Predicate {
	return entsql.And(entsql.GTE(column, w.Start), entsql.LTE(column, w.End))
}

// OnDates restricts a date column to the calendar days of the window.
func (w Window) OnDates(column string) *entsql.Predicate {
	return entsql.And(
		entsql.GTE(column, dateArg(w.StartDate())),
		entsql.LTE(column, dateArg(w.EndDate())),
	)
}

// Previous returns the window of equal length right before w.
func (w Window) Previous() Window {
	return Window{Days: w.Days, Start: w.Start.AddDate(0, 0, -w.Days), End: w.Start}
}

// Range is an optional inclusive pair of calendar days.
type Range struct {
	Start *models.Date `json:"start_date"`
	End   *models.Date `json:"end_date"`
}

// ParseRange parses optional start_date and end_date parameters.
func ParseRange(start, end string) (Range, error) {
	var r Range
	if s := strings.TrimSpace(start); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			return Range{}, domain.NewFieldError("start_date", "must be formatted as YYYY-MM-DD")
		}
		r.Start = &d
	}
	if e := strings.TrimSpace(end); e != "" {
		d, err := models.ParseDate(e)
		if err != nil {
			return Range{}, domain.NewFieldError("end_date", "must be formatted as YYYY-MM-DD")
		}
		r.End = &d
	}
	if r.Start != nil && r.End != nil && r.Start.After(r.End.Time) {
		return Range{}, domain.NewFieldError("start_date", "must not be after end_date")
	}
	return r, nil
}

// IsZero reports whether no bound was given.
func (r Range) IsZero() bool { return r.Start == nil && r.End == nil }

// OnDates restricts a date column to the range.
func (r Range) OnDates(column string) []*entsql.Predicate {
	var preds []*entsql.Predicate
	if r.Start != nil {
		preds = append(preds, entsql.GTE(column, dateArg(*r.Start)))
	}
	if r.End != nil {
		preds = append(preds, entsql.LTE(column, dateArg(*r.End)))
	}
	return preds
}

// Spanning restricts rows that run from startColumn to endColumn to those
// starting on or after the range start and ending on or before its end.
func (r Range) Spanning(startColumn, endColumn string) []*entsql.Predicate {
	var preds []*entsql.Predicate
	if r.Start != nil {
		preds = append(preds, entsql.GTE(startColumn, dateArg(*r.Start)))
	}
	if r.End != nil {
		preds = append(preds, entsql.LTE(endColumn, dateArg(*r.End)))
	}
	return preds
}

// Since restricts a timestamp column to the days of the range.
func (r Range) Since(column string) []*entsql.Predicate {
	var preds []*entsql.Predicate
	if r.Start != nil {
		preds = append(preds, entsql.GTE(column, r.Start.Time))
	}
	if r.End != nil {
		preds = append(preds, entsql.LT(column, r.End.AddDays(1).Time))
	}
	return preds
}

// Month is one calendar month, End exclusive.
type Month struct {
	Label string
	Start time.Time
	End   time.Time
}

// Months lists the calendar months touched by [start, end], oldest first.
func Months(start, end time.Time) []Month {
	start, end = start.UTC(), end.UTC()
	if end.Before(start) {
		return nil
	}
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	var months []Month
	for !cur.After(end) {
		next := cur.AddDate(0, 1, 0)
		months = append(months, Month{Label: cur.Format("2006-01"), Start: cur, End: next})
		cur = next
	}
	return months
}

// LastMonths lists the n calendar months ending with the month of now.
func LastMonths(n int, now time.Time) []Month {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	return Months(first, now)
}

// Within restricts a timestamp column to the month.
func (m Month) Within(column string) *entsql.Predicate {
	return entsql.And(entsql.GTE(column, m.Start), entsql.LT(column, m.End))
}

// WithinDates restricts a date column to the month.
func (m Month) WithinDates(column string) *entsql.Predicate {
	last := models.DateOf(m.End).AddDays(-1)
	return entsql.And(
		entsql.GTE(column, dateArg(models.DateOf(m.Start))),
		entsql.LTE(column, dateArg(last)),
	)
}

// dateArg binds a calendar day the way date columns store it.
func dateArg(d models.Date) any {
	v, _ := d.Value()
	return v
}
