package report

import (
	"sort"
	"time"

	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/shopspring/decimal"
)

// DayBucket aggregates the points of one calendar day.
type DayBucket struct {
	Date   models.Date     `json:"date"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Daily buckets points per calendar day from start to end inclusive,
// emitting a zero bucket for days without points.
func Daily(points []Point, start, end models.Date) []DayBucket {
	if end.Before(start.Time) {
		return nil
	}
	index := make(map[string]int)
	var buckets []DayBucket
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		index[d.String()] = len(buckets)
		buckets = append(buckets, DayBucket{Date: d, Amount: decimal.Zero})
	}
	for _, p := range points {
		i, ok := index[models.DateOf(p.At).String()]
		if !ok {
			continue
		}
		buckets[i].Count++
		buckets[i].Amount = buckets[i].Amount.Add(p.Value)
	}
	return buckets
}

// MonthBucket aggregates the points of one calendar month.
type MonthBucket struct {
	Month  string          `json:"month"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Monthly buckets points into the given months, zero-filled.
func Monthly(points []Point, months []Month) []MonthBucket {
	buckets := make([]MonthBucket, len(months))
	for i, m := range months {
		buckets[i] = MonthBucket{Month: m.Label, Amount: decimal.Zero}
	}
	for _, p := range points {
		for i, m := range months {
			if !p.At.Before(m.Start) && p.At.Before(m.End) {
				buckets[i].Count++
				buckets[i].Amount = buckets[i].Amount.Add(p.Value)
				break
			}
		}
	}
	return buckets
}

// Top sorts groups by the given key, descending, and keeps at most n.
// Ties are broken by key so the order is stable.
func Top(groups []Group, n int, less func(a, b Group) bool) []Group {
	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		if less(sorted[j], sorted[i]) {
			return true
		}
		if less(sorted[i], sorted[j]) {
			return false
		}
		return sorted[i].Key < sorted[j].Key
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// BySum orders groups by their i-th summed column.
func BySum(i int) func(a, b Group) bool {
	return func(a, b Group) bool { return a.Sum(i).LessThan(b.Sum(i)) }
}

// ByCount orders groups by row count.
func ByCount(a, b Group) bool { return a.Count < b.Count }

// DaysBetween returns the fractional number of days from a to b.
func DaysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}

// Mean averages xs, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return Round2(sum / float64(len(xs)))
}
