// Package report runs scoped aggregations: a Source names a table and the
// predicates that scope it, and the Engine counts, sums and groups it.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Source is a table restricted by predicates.
type Source struct {
	Table string
	Preds []*entsql.Predicate
}

// From builds a Source, skipping nil predicates.
func From(table string, preds ...*entsql.Predicate) Source {
	return Source{Table: table}.And(preds...)
}

// And returns a copy of s further restricted by preds.
func (s Source) And(preds ...*entsql.Predicate) Source {
	out := Source{Table: s.Table, Preds: make([]*entsql.Predicate, 0, len(s.Preds)+len(preds))}
	out.Preds = append(out.Preds, s.Preds...)
	for _, p := range preds {
		if p != nil {
			out.Preds = append(out.Preds, p)
		}
	}
	return out
}

// Total is a row count with a money sum.
type Total struct {
	Count int64           `json:"count"`
	Sum   decimal.Decimal `json:"total"`
}

// Group is one row of a grouped aggregate.
type Group struct {
	Key   string
	Count int64
	Sums  []decimal.Decimal
}

// Sum returns the i-th summed column, zero when absent.
func (g Group) Sum(i int) decimal.Decimal {
	if i < len(g.Sums) {
		return g.Sums[i]
	}
	return decimal.Zero
}

// ID parses a key holding a row id, 0 when it holds none.
func (g Group) ID() uint {
	id, _ := strconv.ParseUint(g.Key, 10, 64)
	return uint(id)
}

// Counts is a zero-filled breakdown keyed by enum member.
type Counts map[string]int64

// Total sums every bucket.
func (c Counts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Point is one timestamped value.
type Point struct {
	At    time.Time
	Value decimal.Decimal
}

// Engine executes report queries on the connection of a gorm handle.
type Engine struct {
	db      *gorm.DB
	dialect string
}

// New creates an engine bound to db.
func New(db *gorm.DB) *Engine {
	d := dialect.Postgres
	if db.Dialector.Name() == "sqlite" {
		d = dialect.SQLite
	}
	return &Engine{db: db, dialect: d}
}

// WithTx runs subsequent queries inside tx.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	return &Engine{db: tx, dialect: e.dialect}
}

// Dialect returns the ent dialect name queries are built for.
func (e *Engine) Dialect() string { return e.dialect }

func (e *Engine) selector(src Source, columns ...string) *entsql.Selector {
	s := entsql.Dialect(e.dialect).Select(columns...).From(entsql.Table(src.Table))
	if len(src.Preds) > 0 {
		s.Where(entsql.And(src.Preds...))
	}
	return s
}

// Subquery selects column from src, for use with entsql.In.
func (e *Engine) Subquery(src Source, column string) *entsql.Selector {
	return e.selector(src, column)
}

// Query runs a custom selector and hands every row to scan. Rows are closed
// before Query returns.
func (e *Engine) Query(ctx context.Context, s *entsql.Selector, scan func(*sql.Rows) error) error {
	query, args := s.Query()
	rows, err := e.db.WithContext(ctx).Statement.ConnPool.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to run report query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan report row: %w", err)
		}
	}
	return rows.Err()
}

// Select builds a selector over src for custom queries.
func (e *Engine) Select(src Source, columns ...string) *entsql.Selector {
	return e.selector(src, columns...)
}

// Count returns the number of rows in src.
func (e *Engine) Count(ctx context.Context, src Source) (int64, error) {
	var n int64
	err := e.Query(ctx, e.selector(src, entsql.Count("*")), func(rows *sql.Rows) error {
		return rows.Scan(&n)
	})
	return n, err
}

// Sum returns the sum of column over src, treating NULL as zero.
func (e *Engine) Sum(ctx context.Context, src Source, column string) (decimal.Decimal, error) {
	t, err := e.Totals(ctx, src, column)
	return t.Sum, err
}

// Totals returns the row count and the sum of column over src.
func (e *Engine) Totals(ctx context.Context, src Source, column string) (Total, error) {
	var (
		t   Total
		sum decimal.NullDecimal
	)
	s := e.selector(src, entsql.Count("*"), entsql.Sum(column))
	err := e.Query(ctx, s, func(rows *sql.Rows) error {
		return rows.Scan(&t.Count, &sum)
	})
	t.Sum = money(sum)
	return t, err
}

// Group counts rows of src per distinct key and sums the given columns.
// Rows with a NULL key are grouped under "".
func (e *Engine) Group(ctx context.Context, src Source, key string, sums ...string) ([]Group, error) {
	columns := []string{key, entsql.Count("*")}
	for _, c := range sums {
		columns = append(columns, entsql.Sum(c))
	}
	s := e.selector(src, columns...).GroupBy(key)

	var groups []Group
	err := e.Query(ctx, s, func(rows *sql.Rows) error {
		var (
			k    sql.NullString
			g    Group
			vals = make([]decimal.NullDecimal, len(sums))
			dest = []any{&k, &g.Count}
		)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		g.Key = k.String
		for _, v := range vals {
			g.Sums = append(g.Sums, money(v))
		}
		groups = append(groups, g)
		return nil
	})
	return groups, err
}

// CountBy counts rows per enum member. The result holds exactly members,
// zero-filled; values outside members are ignored.
func (e *Engine) CountBy(ctx context.Context, src Source, key string, members []string) (Counts, error) {
	groups, err := e.Group(ctx, src, key)
	if err != nil {
		return nil, err
	}
	counts := make(Counts, len(members))
	for _, m := range members {
		counts[m] = 0
	}
	for _, g := range groups {
		if _, ok := counts[g.Key]; ok {
			counts[g.Key] = g.Count
		}
	}
	return counts, nil
}

// TotalsBy returns count and sum of column per enum member, zero-filled.
func (e *Engine) TotalsBy(ctx context.Context, src Source, key, column string, members []string) (map[string]Total, error) {
	groups, err := e.Group(ctx, src, key, column)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Total, len(members))
	for _, m := range members {
		out[m] = Total{Sum: decimal.Zero}
	}
	for _, g := range groups {
		if _, ok := out[g.Key]; ok {
			out[g.Key] = Total{Count: g.Count, Sum: g.Sum(0)}
		}
	}
	return out, nil
}

// Distinct returns the distinct non-NULL integer values of column in src.
func (e *Engine) Distinct(ctx context.Context, src Source, column string) ([]int64, error) {
	s := e.selector(src.And(entsql.NotNull(column)), column).Distinct()
	var ids []int64
	err := e.Query(ctx, s, func(rows *sql.Rows) error {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

// Points returns (timestamp, value) pairs of src. An empty valueColumn
// yields a value of 1 per row so points can be counted.
func (e *Engine) Points(ctx context.Context, src Source, timeColumn, valueColumn string) ([]Point, error) {
	columns := []string{timeColumn}
	if valueColumn != "" {
		columns = append(columns, valueColumn)
	}
	var points []Point
	err := e.Query(ctx, e.selector(src, columns...), func(rows *sql.Rows) error {
		var (
			at  any
			val decimal.NullDecimal
		)
		dest := []any{&at}
		if valueColumn != "" {
			dest = append(dest, &val)
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		t, err := asTime(at)
		if err != nil {
			return err
		}
		p := Point{At: t, Value: decimal.NewFromInt(1)}
		if valueColumn != "" {
			p.Value = money(val)
		}
		points = append(points, p)
		return nil
	})
	return points, err
}

// Spans returns the days elapsed from startColumn to endColumn for every row
// of src where both are set, grouped by key. An empty key puts every span
// under "".
func (e *Engine) Spans(ctx context.Context, src Source, key, startColumn, endColumn string) (map[string][]float64, error) {
	columns := []string{startColumn, endColumn}
	if key != "" {
		columns = append([]string{key}, columns...)
	}
	s := e.selector(src.And(entsql.NotNull(startColumn), entsql.NotNull(endColumn)), columns...)

	spans := make(map[string][]float64)
	err := e.Query(ctx, s, func(rows *sql.Rows) error {
		var (
			k          sql.NullString
			start, end any
		)
		dest := []any{&start, &end}
		if key != "" {
			dest = append([]any{&k}, dest...)
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		from, err := asTime(start)
		if err != nil {
			return err
		}
		to, err := asTime(end)
		if err != nil {
			return err
		}
		spans[k.String] = append(spans[k.String], DaysBetween(from, to))
		return nil
	})
	return spans, err
}

// Names loads the name column of the rows of table whose ids key groups.
func (e *Engine) Names(ctx context.Context, table string, groups []Group) (map[uint]string, error) {
	ids := make([]uint, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID())
	}
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var rows []struct {
		ID   uint
		Name string
	}
	if err := e.db.WithContext(ctx).Table(table).Select("id", "name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s names: %w", table, err)
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

func money(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal.Round(2)
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	}
	return time.Time{}, fmt.Errorf("unsupported time value %T", v)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}
