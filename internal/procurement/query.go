package procurement

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for date filters.
const DateLayout = "2006-01-02"

// DefaultPageSize is the page size used when none is given.
const DefaultPageSize = 20

// MaxPageSize is the largest limit the backend accepts.
const MaxPageSize = 100

// MaxPageNumber keeps Skip from overflowing at any valid page size.
const MaxPageNumber = math.MaxInt / MaxPageSize

// ErrInvalidPage is returned for a page number outside 1..MaxPageNumber or
// a size outside 1..MaxPageSize.
var ErrInvalidPage = errors.New("invalid page")

// Filters is the filter state of a list view. Every field is optional;
// zero values are not serialized.
type Filters struct {
	StartDate  *time.Time
	EndDate    *time.Time
	NoticeType string
	SearchText string
	MinBudget  *int64
	MaxBudget  *int64
	Category   string
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return len(f.Values()) == 0
}

// Values serializes the set filters. Blank strings count as unset.
func (f Filters) Values() url.Values {
	v := url.Values{}
	if f.StartDate != nil {
		v.Set("start_date", f.StartDate.Format(DateLayout))
	}
	if f.EndDate != nil {
		v.Set("end_date", f.EndDate.Format(DateLayout))
	}
	if s := strings.TrimSpace(f.NoticeType); s != "" {
		v.Set("notice_type", s)
	}
	if s := strings.TrimSpace(f.SearchText); s != "" {
		v.Set("search", s)
	}
	if f.MinBudget != nil {
		v.Set("min_budget", strconv.FormatInt(*f.MinBudget, 10))
	}
	if f.MaxBudget != nil {
		v.Set("max_budget", strconv.FormatInt(*f.MaxBudget, 10))
	}
	if s := strings.TrimSpace(f.Category); s != "" {
		v.Set("ai_category", s)
	}
	return v
}

// Page selects one page of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// FirstPage returns page 1 with the given size, or DefaultPageSize when size <= 0.
func FirstPage(size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Page{Number: 1, Size: size}
}

// Validate checks 1 <= Number <= MaxPageNumber and 0 < Size <= MaxPageSize.
func (p Page) Validate() error {
	if p.Number < 1 || p.Number > MaxPageNumber {
		return fmt.Errorf("%w: page number %d not in 1..%d", ErrInvalidPage, p.Number, MaxPageNumber)
	}
	if p.Size <= 0 || p.Size > MaxPageSize {
		return fmt.Errorf("%w: page size %d not in 1..%d", ErrInvalidPage, p.Size, MaxPageSize)
	}
	return nil
}

// Skip is the number of records before this page.
func (p Page) Skip() int {
	return (p.Number - 1) * p.Size
}

// EncodeQuery builds the list query string. Pagination is always sent as
// skip/limit; page/page_size is never emitted.
func EncodeQuery(f Filters, p Page) url.Values {
	v := f.Values()
	v.Set("skip", strconv.Itoa(p.Skip()))
	v.Set("limit", strconv.Itoa(p.Size))
	return v
}

// FiltersFromValues parses the keys produced by Filters.Values. Budget
// values may carry thousands separators ("1,000,000").
func FiltersFromValues(v url.Values) (Filters, error) {
	var f Filters
	var err error

	if f.StartDate, err = parseDate(v.Get("start_date")); err != nil {
		return f, fmt.Errorf("start_date: %w", err)
	}
	if f.EndDate, err = parseDate(v.Get("end_date")); err != nil {
		return f, fmt.Errorf("end_date: %w", err)
	}
	if f.MinBudget, err = ParseBudget(v.Get("min_budget")); err != nil {
		return f, fmt.Errorf("min_budget: %w", err)
	}
	if f.MaxBudget, err = ParseBudget(v.Get("max_budget")); err != nil {
		return f, fmt.Errorf("max_budget: %w", err)
	}
	f.NoticeType = strings.TrimSpace(v.Get("notice_type"))
	f.SearchText = strings.TrimSpace(v.Get("search"))
	f.Category = strings.TrimSpace(v.Get("ai_category"))

	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, fmt.Errorf("end_date %s is before start_date %s",
			f.EndDate.Format(DateLayout), f.StartDate.Format(DateLayout))
	}
	return f, nil
}

// ParseBudget parses a non-negative won amount, ignoring commas.
// An empty string yields nil.
func ParseBudget(s string) (*int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if n < 0 {
		return nil, fmt.Errorf("negative amount %d", n)
	}
	return &n, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return &t, nil
}
