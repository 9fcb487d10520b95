package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// Listing limits, matching the REST surface.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidPaging is returned for a negative skip or a limit outside
// [1, MaxLimit].
var ErrInvalidPaging = errors.New("invalid paging")

// timeLayout is how timestamps are stored; it sorts lexically.
const timeLayout = "2006-01-02 15:04:05"

// ListParams selects one page of a filtered listing.
type ListParams struct {
	Filters procurement.Filters
	Skip    int
	Limit   int
}

func (p ListParams) normalize() (ListParams, error) {
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Skip < 0 {
		return p, fmt.Errorf("%w: skip %d", ErrInvalidPaging, p.Skip)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, fmt.Errorf("%w: limit %d", ErrInvalidPaging, p.Limit)
	}
	return p, nil
}

// ListPage is one page of a listing plus the size of the filtered set.
type ListPage[T any] struct {
	Total int
	Items []T
	Skip  int
	Limit int
}

// FetchTarget is a stored notice whose description is still missing.
type FetchTarget struct {
	ID           int64
	NoticeNumber string
	URL          string
}

// where accumulates AND-ed SQL conditions and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// dateRange restricts column to [start 00:00:00, end 23:59:59].
func (w *where) dateRange(column string, f procurement.Filters) {
	if f.StartDate != nil {
		w.add(column+" >= ?", f.StartDate.Format(procurement.DateLayout))
	}
	if f.EndDate != nil {
		w.add(column+" <= ?", f.EndDate.Format(procurement.DateLayout)+" 23:59:59")
	}
}

func formatTime(ts *procurement.Timestamp) any {
	if ts == nil || ts.IsZero() {
		return nil
	}
	return ts.Format(timeLayout)
}

func parseTime(s sql.NullString) *procurement.Timestamp {
	if !s.Valid || s.String == "" {
		return nil
	}
	ts, err := procurement.ParseTimestamp(s.String)
	if err != nil {
		return nil
	}
	return &ts
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func now() string {
	return time.Now().Format(timeLayout)
}
