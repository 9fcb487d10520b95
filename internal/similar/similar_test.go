package similar

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTerms(t *testing.T) {
	got := terms("청사 신축 공사 A")
	want := []string{"청사", "신축", "공사", "청사 신축", "신축 공사"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRank(t *testing.T) {
	candidates := []string{"도로 포장 보수 공사", "사무용품 구매", "도로 포장 공사"}

	got := Rank("도로 포장 공사", candidates, 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(got), got)
	}
	if got[0].Index != 2 || got[1].Index != 0 {
		t.Errorf("expected order [2 0], got [%d %d]", got[0].Index, got[1].Index)
	}
	if math.Abs(got[0].Score-1) > 1e-9 {
		t.Errorf("expected identical title to score 1, got %f", got[0].Score)
	}
	if got[1].Score >= got[0].Score {
		t.Errorf("expected partial match below exact match")
	}

	if top := Rank("도로 포장 공사", candidates, 1); len(top) != 1 || top[0].Index != 2 {
		t.Errorf("expected only the exact match, got %v", top)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank("", []string{"a b"}, 3); got != nil {
		t.Errorf("expected nil for empty target, got %v", got)
	}
	if got := Rank("도로 공사", nil, 3); got != nil {
		t.Errorf("expected nil without candidates, got %v", got)
	}
}

func TestVocabularyCap(t *testing.T) {
	var docs [][]string
	for i := 0; i < 150; i++ {
		docs = append(docs, []string{string(rune('가' + i))})
	}
	if got := len(vocabulary(docs)); got != maxFeatures {
		t.Errorf("expected %d terms, got %d", maxFeatures, got)
	}
}

func TestFinderSimilar(t *testing.T) {
	db := openTestDB(t)
	titles := []string{"도로 포장 공사", "도로 포장 보수 공사", "교량 도색 공사", "청사 청소 용역"}
	for i, title := range titles {
		db.UpsertBidding(procurement.BidNotice{NoticeNumber: string(rune('A' + i)), Title: title})
	}
	for i, cat := range []string{"건설", "건설", "건설", "청소"} {
		b, _ := db.GetBidding(string(rune('A' + i)))
		db.UpdateBiddingClassification(b.ID, cat, nil, "저")
	}

	target, _ := db.GetBidding("A")
	f := NewFinder(db)
	got, similar, err := f.Similar(target.ID, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.NoticeNumber != "A" {
		t.Fatalf("expected target A, got %v", got)
	}
	if len(similar) != 2 {
		t.Fatalf("expected 2 similar notices, got %d", len(similar))
	}
	if similar[0].NoticeNumber != "B" {
		t.Errorf("expected B first, got %s", similar[0].NoticeNumber)
	}
	for _, s := range similar {
		if s.NoticeNumber == "A" || s.NoticeNumber == "D" {
			t.Errorf("unexpected notice %s", s.NoticeNumber)
		}
	}

	missing, none, err := f.Similar(9999, 5)
	if err != nil || missing != nil || none != nil {
		t.Errorf("expected nil for missing notice, got %v %v %v", missing, none, err)
	}
}

func TestFinderUnclassified(t *testing.T) {
	db := openTestDB(t)
	db.UpsertBidding(procurement.BidNotice{NoticeNumber: "A", Title: "도로 포장 공사"})
	db.UpsertBidding(procurement.BidNotice{NoticeNumber: "B", Title: "도로 포장 공사"})
	target, _ := db.GetBidding("A")

	_, similar, err := NewFinder(db).Similar(target.ID, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(similar) != 0 {
		t.Errorf("expected no matches for unclassified notice, got %d", len(similar))
	}
}
