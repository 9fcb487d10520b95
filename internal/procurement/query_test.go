package procurement

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestEncodeQueryOnlyNoticeType(t *testing.T) {
	q := EncodeQuery(Filters{NoticeType: "공사"}, Page{Number: 1, Size: 20})

	want := map[string]string{"notice_type": "공사", "skip": "0", "limit": "20"}
	if len(q) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, q)
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("expected %s=%q, got %q", k, v, q.Get(k))
		}
	}
	for _, k := range []string{"start_date", "end_date", "search", "min_budget", "max_budget", "ai_category", "page", "page_size"} {
		if _, ok := q[k]; ok {
			t.Errorf("unexpected key %q in %s", k, q.Encode())
		}
	}
}

func TestEncodeQueryAllFilters(t *testing.T) {
	start := time.Date(2025, 1, 3, 15, 0, 0, 0, time.Local)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.Local)
	minB, maxB := int64(1_000_000), int64(50_000_000)
	f := Filters{
		StartDate:  &start,
		EndDate:    &end,
		NoticeType: "용역",
		SearchText: "  소프트웨어 ",
		MinBudget:  &minB,
		MaxBudget:  &maxB,
		Category:   "IT",
	}

	q := EncodeQuery(f, Page{Number: 3, Size: 20})
	checks := map[string]string{
		"start_date":  "2025-01-03",
		"end_date":    "2025-01-31",
		"notice_type": "용역",
		"search":      "소프트웨어",
		"min_budget":  "1000000",
		"max_budget":  "50000000",
		"ai_category": "IT",
		"skip":        "40",
		"limit":       "20",
	}
	for k, v := range checks {
		if q.Get(k) != v {
			t.Errorf("expected %s=%q, got %q", k, v, q.Get(k))
		}
	}
}

func TestBlankFiltersAreUnset(t *testing.T) {
	f := Filters{NoticeType: " ", SearchText: "", Category: "\t"}
	if !f.IsZero() {
		t.Errorf("expected blank filters to be zero, got %v", f.Values())
	}
}

func TestPageValidate(t *testing.T) {
	tests := []struct {
		page Page
		ok   bool
	}{
		{Page{1, 20}, true},
		{Page{5, 100}, true},
		{Page{0, 20}, false},
		{Page{1, 0}, false},
		{Page{1, 101}, false},
		{Page{MaxPageNumber, 100}, true},
		{Page{MaxPageNumber + 1, 1}, false},
	}
	for _, tt := range tests {
		err := tt.page.Validate()
		if tt.ok && err != nil {
			t.Errorf("expected %+v valid, got %v", tt.page, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidPage) {
			t.Errorf("expected ErrInvalidPage for %+v, got %v", tt.page, err)
		}
	}
}

func TestFirstPageDefault(t *testing.T) {
	if p := FirstPage(0); p.Number != 1 || p.Size != DefaultPageSize {
		t.Errorf("unexpected default page %+v", p)
	}
}

func TestFiltersFromValuesRoundTrip(t *testing.T) {
	v := url.Values{
		"start_date":  {"2025-02-01"},
		"end_date":    {"2025-02-28"},
		"notice_type": {"물품"},
		"min_budget":  {"1,000,000"},
		"ai_category": {"의료"},
	}
	f, err := FiltersFromValues(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.MinBudget == nil || *f.MinBudget != 1_000_000 {
		t.Errorf("expected min budget 1000000, got %v", f.MinBudget)
	}
	if f.MaxBudget != nil {
		t.Error("expected nil max budget")
	}

	back := f.Values()
	for _, k := range []string{"start_date", "end_date", "notice_type", "ai_category"} {
		if back.Get(k) != v.Get(k) {
			t.Errorf("expected %s=%q after round trip, got %q", k, v.Get(k), back.Get(k))
		}
	}
	if back.Get("min_budget") != "1000000" {
		t.Errorf("expected normalized min_budget, got %q", back.Get("min_budget"))
	}
}

func TestFiltersFromValuesErrors(t *testing.T) {
	cases := []url.Values{
		{"start_date": {"2025/01/01"}},
		{"min_budget": {"abc"}},
		{"max_budget": {"-5"}},
		{"start_date": {"2025-03-01"}, "end_date": {"2025-02-01"}},
	}
	for _, v := range cases {
		if _, err := FiltersFromValues(v); err == nil {
			t.Errorf("expected error for %s", v.Encode())
		}
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"bid-notices": BidNotices,
		"biddings":    BidNotices,
		"awards":      Awards,
		"orderplans":  OrderPlans,
		"order-plans": OrderPlans,
	} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("contracts"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
