// Package apiserver serves the procurement REST API from the local store.
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

type Server struct {
	DB   *database.DB
	Echo *echo.Echo
}

// listResponse is the envelope of every listing endpoint.
type listResponse[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewServer builds the echo app. allowOrigins lists the browser origins
// permitted by CORS; an empty list allows none.
func NewServer(db *database.DB, allowOrigins []string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(allowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: allowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	s := &Server{DB: db, Echo: e}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api")
	api.GET("/biddings", s.handleListBiddings)
	api.GET("/biddings/:notice_number", s.handleGetBidding)
	api.GET("/awards", s.handleListAwards)
	api.GET("/awards/statistics/top-companies", s.handleTopCompanies)
	api.GET("/awards/:id", s.handleGetAward)
	api.GET("/orderplans", s.handleListOrderPlans)
	api.GET("/orderplans/:id", s.handleGetOrderPlan)

	stats := api.Group("/statistics")
	stats.GET("/summary", s.handleSummary)
	stats.GET("/daily", s.handleDaily)
	stats.GET("/top-agencies", s.handleTopAgencies)
	stats.GET("/by-type", s.handleByType)

	ml := api.Group("/ml")
	ml.POST("/analyze/:id", s.handleAnalyze)
	ml.POST("/analyze-all", s.handleAnalyzeAll)
	ml.GET("/similar/:id", s.handleSimilar)
	ml.GET("/categories", s.handleCategories)
	ml.GET("/tags", s.handleTags)
}

// Start listens on addr until the server is shut down.
func (s *Server) Start(addr string) error {
	err := s.Echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.DB.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleListBiddings(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, err := s.DB.ListBiddings(p)
	if err != nil {
		return s.fail(c, "list biddings", err)
	}
	return c.JSON(http.StatusOK, listResponse[procurement.BidNotice]{page.Total, page.Items, page.Skip, page.Limit})
}

func (s *Server) handleGetBidding(c echo.Context) error {
	b, err := s.DB.GetBidding(c.Param("notice_number"))
	if err != nil {
		return s.fail(c, "get bidding", err)
	}
	if b == nil {
		return c.JSON(http.StatusNotFound, errorResponse{"입찰공고를 찾을 수 없습니다."})
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) handleListAwards(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, err := s.DB.ListAwards(p)
	if err != nil {
		return s.fail(c, "list awards", err)
	}
	return c.JSON(http.StatusOK, listResponse[procurement.Award]{page.Total, page.Items, page.Skip, page.Limit})
}

func (s *Server) handleGetAward(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, fmt.Errorf("invalid id %q", c.Param("id")))
	}
	a, err := s.DB.GetAward(id)
	if err != nil {
		return s.fail(c, "get award", err)
	}
	if a == nil {
		return c.JSON(http.StatusNotFound, errorResponse{"낙찰정보를 찾을 수 없습니다."})
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleListOrderPlans(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, err := s.DB.ListOrderPlans(p)
	if err != nil {
		return s.fail(c, "list order plans", err)
	}
	return c.JSON(http.StatusOK, listResponse[procurement.OrderPlan]{page.Total, page.Items, page.Skip, page.Limit})
}

func (s *Server) handleGetOrderPlan(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, fmt.Errorf("invalid id %q", c.Param("id")))
	}
	p, err := s.DB.GetOrderPlan(id)
	if err != nil {
		return s.fail(c, "get order plan", err)
	}
	if p == nil {
		return c.JSON(http.StatusNotFound, errorResponse{"발주계획을 찾을 수 없습니다."})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleSummary(c echo.Context) error {
	sum, err := s.DB.Summary()
	if err != nil {
		return s.fail(c, "summary", err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) handleDaily(c echo.Context) error {
	days, err := intParam(c, "days", database.DefaultDailyDays, 1, database.MaxDailyDays)
	if err != nil {
		return badRequest(c, err)
	}
	stats, err := s.DB.Daily(days)
	if err != nil {
		return s.fail(c, "daily statistics", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleTopAgencies(c echo.Context) error {
	limit, err := intParam(c, "limit", database.DefaultTopAgencies, 1, database.MaxTopAgencies)
	if err != nil {
		return badRequest(c, err)
	}
	stats, err := s.DB.TopAgencies(limit)
	if err != nil {
		return s.fail(c, "top agencies", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleTopCompanies(c echo.Context) error {
	limit, err := intParam(c, "limit", database.DefaultTopCompanies, 1, database.MaxTopCompanies)
	if err != nil {
		return badRequest(c, err)
	}
	stats, err := s.DB.TopCompanies(limit)
	if err != nil {
		return s.fail(c, "top companies", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleByType(c echo.Context) error {
	stats, err := s.DB.ByType()
	if err != nil {
		return s.fail(c, "type statistics", err)
	}
	return c.JSON(http.StatusOK, stats)
}

// listParams reads skip/limit and the listing filters from the query.
func listParams(c echo.Context) (database.ListParams, error) {
	var p database.ListParams
	var err error
	if p.Skip, err = intParam(c, "skip", 0, 0, -1); err != nil {
		return p, err
	}
	if p.Limit, err = intParam(c, "limit", database.DefaultLimit, 1, database.MaxLimit); err != nil {
		return p, err
	}
	if p.Filters, err = procurement.FiltersFromValues(c.QueryParams()); err != nil {
		return p, err
	}
	return p, nil
}

// intParam parses an integer query parameter in [lo, hi]; hi < 0 means
// unbounded. A missing parameter yields def.
func intParam(c echo.Context, name string, def, lo, hi int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", name, raw)
	}
	if n < lo || (hi >= 0 && n > hi) {
		if hi < 0 {
			return 0, fmt.Errorf("%s must be at least %d, got %d", name, lo, n)
		}
		return 0, fmt.Errorf("%s must be between %d and %d, got %d", name, lo, hi, n)
	}
	return n, nil
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
}

func (s *Server) fail(c echo.Context, op string, err error) error {
	log.Printf("%s failed: %v", op, err)
	return c.JSON(http.StatusInternalServerError, errorResponse{"internal server error"})
}
