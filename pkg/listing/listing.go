// Package listing implements the paging, search and ordering shared by every
// list endpoint.
package listing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/models"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// Paging defaults
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params are the list query parameters.
type Params struct {
	Page     int
	Limit    int
	Search   string
	Ordering string
}

// Offset returns the row offset of the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads raw query values. Missing values fall back to defaults and
// limits above MaxLimit are capped.
func Parse(page, limit, search, ordering string) (Params, error) {
	p := Params{Page: 1, Limit: DefaultLimit, Search: NormalizeSearch(search), Ordering: strings.TrimSpace(ordering)}
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Params{}, domain.NewFieldError("page", "must be a positive integer")
		}
		p.Page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return Params{}, domain.NewFieldError("limit", "must be a positive integer")
		}
		p.Limit = min(n, MaxLimit)
	}
	return p, nil
}

// NormalizeSearch folds compatibility characters, e.g. Arabic presentation
// forms and full-width digits, and lowercases the term.
func NormalizeSearch(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// Like builds a case-insensitive substring condition on column.
func Like(column string) string {
	return fmt.Sprintf("LOWER(%s) LIKE ?", column)
}

// Spec describes the searchable and sortable columns of a resource.
type Spec struct {
	// Search holds conditions with a single placeholder, OR-ed together.
	Search []string
	// Orderings maps public field names to columns.
	Orderings map[string]string
	// Default is the ordering used when none is requested.
	Default string
}

// Apply adds search and ordering to db.
func (s Spec) Apply(db *gorm.DB, p Params) (*gorm.DB, error) {
	db = s.ApplySearch(db, p)
	return s.ApplyOrdering(db, p)
}

// ApplySearch adds the search condition to db.
func (s Spec) ApplySearch(db *gorm.DB, p Params) *gorm.DB {
	if p.Search == "" || len(s.Search) == 0 {
		return db
	}
	term := "%" + p.Search + "%"
	args := make([]any, len(s.Search))
	for i := range args {
		args[i] = term
	}
	return db.Where("("+strings.Join(s.Search, " OR ")+")", args...)
}

// ApplyOrdering adds ORDER BY to db. Unknown fields are rejected.
func (s Spec) ApplyOrdering(db *gorm.DB, p Params) (*gorm.DB, error) {
	ordering := p.Ordering
	if ordering == "" {
		ordering = s.Default
	}
	if ordering == "" {
		return db, nil
	}

	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		column, ok := s.Orderings[strings.TrimPrefix(field, "-")]
		if !ok {
			return nil, domain.NewFieldError("ordering", fmt.Sprintf("unsupported ordering %q", field))
		}
		if desc {
			column += " DESC"
		}
		db = db.Order(column)
	}
	return db, nil
}

// Page counts the rows of db, then loads one page into out.
func Page[T any](db *gorm.DB, spec Spec, p Params) (models.ListResponse[T], error) {
	db = spec.ApplySearch(db, p).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return models.ListResponse[T]{}, fmt.Errorf("failed to count rows: %w", err)
	}

	ordered, err := spec.ApplyOrdering(db, p)
	if err != nil {
		return models.ListResponse[T]{}, err
	}

	items := make([]T, 0)
	if err := ordered.Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return models.ListResponse[T]{}, fmt.Errorf("failed to list rows: %w", err)
	}

	return models.ListResponse[T]{
		Data:       items,
		Pagination: models.NewPaginationInfo(p.Page, p.Limit, total),
	}, nil
}
