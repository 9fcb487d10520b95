package apiserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

func post(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, nil)
	w := httptest.NewRecorder()
	s.Echo.ServeHTTP(w, req)
	return w
}

func seedTitles(t *testing.T, s *Server, titles ...string) []int64 {
	t.Helper()
	ids := make([]int64, len(titles))
	for i, title := range titles {
		budget := int64(2_000_000_000)
		b := procurement.BidNotice{NoticeNumber: fmt.Sprintf("ML%03d", i+1), Title: title, BudgetAmount: &budget}
		if _, err := s.DB.UpsertBidding(b); err != nil {
			t.Fatalf("seed: %v", err)
		}
		stored, _ := s.DB.GetBidding(b.NoticeNumber)
		ids[i] = stored.ID
	}
	return ids
}

func TestAnalyzeAllAndCategories(t *testing.T) {
	s := newTestServer(t)
	seedTitles(t, s, "도로 포장 공사", "도로 포장 보수 공사", "홈페이지 구축")

	w := post(t, s, "/api/ml/analyze-all")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var all analyzeAllResponse
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if all.Processed != 3 || all.Categories["건설"] != 2 {
		t.Errorf("unexpected batch result: %+v", all)
	}

	w = get(t, s, "/api/ml/categories")
	var cats struct {
		Categories []database.CategoryCount `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats.Categories) != 2 || cats.Categories[0].Category != "건설" || cats.Categories[0].Count != 2 {
		t.Errorf("unexpected categories: %+v", cats.Categories)
	}

	w = get(t, s, "/api/ml/tags?limit=1")
	var tags struct {
		Tags []database.TagCount `json:"tags"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tags.Tags) != 1 || tags.Tags[0].Tag != "고액" || tags.Tags[0].Count != 3 {
		t.Errorf("unexpected tags: %+v", tags.Tags)
	}
}

func TestAnalyzeOne(t *testing.T) {
	s := newTestServer(t)
	ids := seedTitles(t, s, "CCTV 설치")

	w := post(t, s, fmt.Sprintf("/api/ml/analyze/%d", ids[0]))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		BiddingID int64 `json:"bidding_id"`
		Analysis  struct {
			Category         string   `json:"category"`
			Tags             []string `json:"tags"`
			CompetitionLevel string   `json:"competition_level"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.BiddingID != ids[0] || body.Analysis.Category != "보안" {
		t.Errorf("unexpected analysis: %+v", body)
	}

	if w := post(t, s, "/api/ml/analyze/999"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := post(t, s, "/api/ml/analyze/abc"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSimilarRoute(t *testing.T) {
	s := newTestServer(t)
	ids := seedTitles(t, s, "도로 포장 공사", "도로 포장 보수 공사", "교량 도색 공사", "홈페이지 구축")
	post(t, s, "/api/ml/analyze-all")

	w := get(t, s, fmt.Sprintf("/api/ml/similar/%d?limit=1", ids[0]))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body similarResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Similar) != 1 || body.Similar[0].NoticeNumber != "ML002" {
		t.Errorf("unexpected similar notices: %+v", body.Similar)
	}

	if w := get(t, s, fmt.Sprintf("/api/ml/similar/%d?limit=0", ids[0])); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := get(t, s, "/api/ml/similar/999"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
