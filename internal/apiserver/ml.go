package apiserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/TobiSchelling/g2bdash/internal/classify"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
	"github.com/TobiSchelling/g2bdash/internal/similar"
)

const (
	defaultTagLimit = 20
	maxTagLimit     = 100
	maxSimilar      = 50
)

type analyzeResponse struct {
	BiddingID int64              `json:"bidding_id"`
	Title     string             `json:"title"`
	Analysis  *classify.Analysis `json:"analysis"`
}

type analyzeAllResponse struct {
	Status     string         `json:"status"`
	Processed  int            `json:"processed"`
	Errors     int            `json:"errors"`
	Categories map[string]int `json:"categories"`
}

type similarResponse struct {
	BiddingID int64                   `json:"bidding_id"`
	Title     string                  `json:"title"`
	Similar   []procurement.BidNotice `json:"similar"`
}

const biddingNotFound = "공고를 찾을 수 없습니다."

func (s *Server) handleAnalyze(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	b, a, err := classify.NewClassifier(s.DB).ClassifyOne(id)
	if err != nil {
		return s.fail(c, "analyze bidding", err)
	}
	if b == nil {
		return c.JSON(http.StatusNotFound, errorResponse{biddingNotFound})
	}
	return c.JSON(http.StatusOK, analyzeResponse{BiddingID: id, Title: b.Title, Analysis: a})
}

// handleAnalyzeAll classifies every unclassified notice before responding.
func (s *Server) handleAnalyzeAll(c echo.Context) error {
	limit, err := intParam(c, "limit", 0, 0, -1)
	if err != nil {
		return badRequest(c, err)
	}
	r := classify.NewClassifier(s.DB).ClassifyPending(limit)
	return c.JSON(http.StatusOK, analyzeAllResponse{
		Status:     "completed",
		Processed:  r.Processed,
		Errors:     r.Errors,
		Categories: r.Categories,
	})
}

func (s *Server) handleSimilar(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	limit, err := intParam(c, "limit", similar.DefaultLimit, 1, maxSimilar)
	if err != nil {
		return badRequest(c, err)
	}
	target, matches, err := similar.NewFinder(s.DB).Similar(id, limit)
	if err != nil {
		return s.fail(c, "similar biddings", err)
	}
	if target == nil {
		return c.JSON(http.StatusNotFound, errorResponse{biddingNotFound})
	}
	return c.JSON(http.StatusOK, similarResponse{BiddingID: id, Title: target.Title, Similar: matches})
}

func (s *Server) handleCategories(c echo.Context) error {
	counts, err := s.DB.CategoryCounts()
	if err != nil {
		return s.fail(c, "category counts", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"categories": counts})
}

func (s *Server) handleTags(c echo.Context) error {
	limit, err := intParam(c, "limit", defaultTagLimit, 1, maxTagLimit)
	if err != nil {
		return badRequest(c, err)
	}
	counts, err := s.DB.TagCounts(limit)
	if err != nil {
		return s.fail(c, "tag counts", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"tags": counts})
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return id, nil
}
