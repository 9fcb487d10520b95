package pipeline

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/g2bdash/internal/config"
	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

var detailPage = `<html><head><title>입찰공고 상세</title></head><body>
<article><h1>청사 외벽 보수공사</h1>
<p>` + strings.Repeat("본 공사는 청사 외벽의 균열 보수 및 도장을 포함하며 입찰 참가자격은 지역제한 업체입니다. ", 8) + `</p>
</article></body></html>`

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRun(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, detailPage)
	}))
	defer page.Close()

	db := openTestDB(t)
	db.UpsertBidding(procurement.BidNotice{NoticeNumber: "P1", Title: "청사 외벽 보수공사", BiddingURL: page.URL + "/p1"})
	db.UpsertBidding(procurement.BidNotice{NoticeNumber: "P2", Title: "홈페이지 개발"})

	result := New(&config.Config{}, db).Run(Options{})
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	names := []string{"Collect", "Fetch", "Classify"}
	for i, step := range result.Steps {
		if step.Name != names[i] {
			t.Errorf("step %d: expected %s, got %s", i, names[i], step.Name)
		}
		if step.Err != nil {
			t.Errorf("step %s: unexpected error %v", step.Name, step.Err)
		}
	}
	if !strings.Contains(result.Steps[1].Summary, "Fetched 1") {
		t.Errorf("unexpected fetch summary %q", result.Steps[1].Summary)
	}
	if !strings.Contains(result.Steps[2].Summary, "Classified 2") {
		t.Errorf("unexpected classify summary %q", result.Steps[2].Summary)
	}

	b, _ := db.GetBidding("P1")
	if !strings.Contains(b.Description, "균열 보수") {
		t.Error("expected fetched description")
	}
	if b.AICategory != "건설" {
		t.Errorf("expected 건설, got %q", b.AICategory)
	}
}

func TestRunSkipFetch(t *testing.T) {
	db := openTestDB(t)
	db.UpsertBidding(procurement.BidNotice{NoticeNumber: "P1", Title: "공사", BiddingURL: "http://127.0.0.1:1/unreachable"})

	result := New(&config.Config{}, db).Run(Options{SkipFetch: true})
	if result.Steps[1].Summary != "Skipped" {
		t.Errorf("expected skipped fetch, got %q", result.Steps[1].Summary)
	}
	pending, _ := db.BiddingsNeedingDescription(0)
	if len(pending) != 1 {
		t.Errorf("expected description still pending, got %d", len(pending))
	}
}

func TestDryRun(t *testing.T) {
	db := openTestDB(t)
	db.UpsertBidding(procurement.BidNotice{NoticeNumber: "P1", Title: "공사", BiddingURL: "http://example.invalid/p1"})

	cfg := &config.Config{}
	cfg.Sources.Feeds = []config.Feed{{URL: "http://example.invalid/rss"}}
	cfg.Sources.OpenAPI.Enabled = true

	result := New(cfg, db).DryRun()
	want := []string{
		"[dry-run] 2 sources configured",
		"[dry-run] 1 notices need a description",
		"[dry-run] 1 notices need classification",
	}
	for i, step := range result.Steps {
		if step.Summary != want[i] {
			t.Errorf("step %s: expected %q, got %q", step.Name, want[i], step.Summary)
		}
	}

	b, _ := db.GetBidding("P1")
	if b.AICategory != "" {
		t.Error("dry run must not classify")
	}
}
