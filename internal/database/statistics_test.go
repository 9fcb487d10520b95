package database

import (
	"fmt"
	"testing"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

func seedStatistics(t *testing.T, db *DB) {
	t.Helper()
	notices := []struct {
		number, typ, agency, date string
		budget                    *int64
	}{
		{"1", "공사", "서울특별시", "2025-01-10 09:00:00", amount(100)},
		{"2", "공사", "서울특별시", "2025-01-10 15:00:00", amount(300)},
		{"3", "용역", "부산광역시", "2025-01-12 09:00:00", nil},
		{"4", "물품", "서울특별시", "2025-01-13 09:00:00", amount(50)},
		{"5", "", "", "", nil},
	}
	for _, n := range notices {
		b := bidding(n.number, "공고 "+n.number)
		b.NoticeType = n.typ
		b.OrderingAgency = n.agency
		b.BudgetAmount = n.budget
		if n.date != "" {
			b.NoticeDate = ts(n.date)
		}
		insertBiddings(t, db, b)
	}
	if _, err := db.UpsertAward(procurement.Award{BidNoticeNumber: "1", NoticeType: "공사", AwardAmount: amount(90)}); err != nil {
		t.Fatalf("upsert award: %v", err)
	}
}

func TestSummary(t *testing.T) {
	db := openTestDB(t)
	seedStatistics(t, db)

	s, err := db.Summary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TotalBiddings != 5 || s.TotalAwards != 1 || s.TotalOrderPlans != 0 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.TotalBudget != 450 {
		t.Errorf("expected total budget 450, got %d", s.TotalBudget)
	}
	if s.TotalAwardAmount != 90 {
		t.Errorf("expected award total 90, got %d", s.TotalAwardAmount)
	}
	if len(s.BiddingByType) != 3 {
		t.Errorf("expected 3 types, got %+v", s.BiddingByType)
	}
}

func TestSummaryEmpty(t *testing.T) {
	db := openTestDB(t)
	s, err := db.Summary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TotalBiddings != 0 || s.TotalBudget != 0 || s.BiddingByType == nil {
		t.Errorf("expected zero summary with empty type list, got %+v", s)
	}
}

func TestDaily(t *testing.T) {
	db := openTestDB(t)
	seedStatistics(t, db)

	stats, err := db.Daily(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "[{2025-01-12 1} {2025-01-13 1}]"
	if got := fmt.Sprint(stats); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	all, _ := db.Daily(30)
	if len(all) != 3 || all[0].Date != "2025-01-10" || all[0].Count != 2 {
		t.Errorf("expected oldest first with 2 on 01-10, got %+v", all)
	}

	if _, err := db.Daily(91); err == nil {
		t.Error("expected error for days over 90")
	}
}

func TestByType(t *testing.T) {
	db := openTestDB(t)
	seedStatistics(t, db)

	stats, err := db.ByType()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 types, got %+v", stats)
	}
	top := stats[0]
	if top.Type != "공사" || top.Count != 2 || top.TotalBudget != 400 || top.AvgBudget != 200 {
		t.Errorf("unexpected 공사 stats: %+v", top)
	}
	for _, s := range stats {
		if s.Type == "용역" && (s.TotalBudget != 0 || s.AvgBudget != 0) {
			t.Errorf("expected zero budget for 용역, got %+v", s)
		}
	}
}

func TestTopAgencies(t *testing.T) {
	db := openTestDB(t)
	seedStatistics(t, db)

	stats, err := db.TopAgencies(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 agency, got %d", len(stats))
	}
	if stats[0].Agency != "서울특별시" || stats[0].Count != 3 || stats[0].TotalBudget != 450 {
		t.Errorf("unexpected top agency: %+v", stats[0])
	}

	if _, err := db.TopAgencies(0); err == nil {
		t.Error("expected error for limit 0")
	}
}

func TestTopCompanies(t *testing.T) {
	db := openTestDB(t)
	rate := func(r float64) *float64 { return &r }
	awards := []procurement.Award{
		{BidNoticeNumber: "1", NoticeType: "공사", CompanyName: "한빛건설", AwardAmount: amount(100), AwardRate: rate(87.5)},
		{BidNoticeNumber: "2", NoticeType: "공사", CompanyName: "한빛건설", AwardAmount: amount(300), AwardRate: rate(88.5)},
		{BidNoticeNumber: "3", NoticeType: "용역", CompanyName: "다온정보"},
		{BidNoticeNumber: "4", NoticeType: "물품"},
	}
	for _, a := range awards {
		if _, err := db.UpsertAward(a); err != nil {
			t.Fatalf("upsert award: %v", err)
		}
	}

	stats, err := db.TopCompanies(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 companies, got %+v", stats)
	}
	top := stats[0]
	if top.Company != "한빛건설" || top.Count != 2 || top.TotalAmount != 400 {
		t.Errorf("unexpected top company: %+v", top)
	}
	if top.AvgRate == nil || *top.AvgRate != 88 {
		t.Errorf("expected average rate 88, got %v", top.AvgRate)
	}
	if stats[1].AvgRate != nil || stats[1].TotalAmount != 0 {
		t.Errorf("expected no rate and zero amount for 다온정보, got %+v", stats[1])
	}

	if _, err := db.TopCompanies(51); err == nil {
		t.Error("expected error for limit over 50")
	}
}
