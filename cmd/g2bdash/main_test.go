package main

import "testing"

func TestListFilters(t *testing.T) {
	listType, listSearch, listFrom, listMin, listCategory = " 공사 ", "도로", "2025-01-01", "1,000,000", "건설"
	listTo, listMax = "", ""
	t.Cleanup(func() {
		listType, listSearch, listFrom, listMin, listCategory = "", "", "", "", ""
	})

	f, err := listFilters()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.NoticeType != "공사" || f.SearchText != "도로" || f.Category != "건설" {
		t.Errorf("unexpected filters: %+v", f)
	}
	if f.MinBudget == nil || *f.MinBudget != 1_000_000 {
		t.Errorf("expected min budget 1000000, got %v", f.MinBudget)
	}
	if f.StartDate == nil || f.EndDate != nil {
		t.Errorf("expected only a start date, got %v %v", f.StartDate, f.EndDate)
	}
}

func TestListFiltersInvalid(t *testing.T) {
	listFrom = "01/02/2025"
	t.Cleanup(func() { listFrom = "" })

	if _, err := listFilters(); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestDash(t *testing.T) {
	if got := dash("  "); got != "-" {
		t.Errorf("expected -, got %q", got)
	}
	if got := dash("조달청"); got != "조달청" {
		t.Errorf("expected 조달청, got %q", got)
	}
}
