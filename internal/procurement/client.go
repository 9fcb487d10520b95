package procurement

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/g2bdash/internal/format"
)

// DefaultTimeout applies to every request made by a Client.
const DefaultTimeout = 30 * time.Second

// Paths maps each endpoint to its path under the base URL.
type Paths struct {
	BidNotices   string
	Awards       string
	OrderPlans   string
	Summary      string
	Daily        string
	ByType       string
	TopAgencies  string
	TopCompanies string
}

// DefaultPaths returns the backend's REST layout.
func DefaultPaths() Paths {
	return Paths{
		BidNotices:   "/api/biddings",
		Awards:       "/api/awards",
		OrderPlans:   "/api/orderplans",
		Summary:      "/api/statistics/summary",
		Daily:        "/api/statistics/daily",
		ByType:       "/api/statistics/by-type",
		TopAgencies:  "/api/statistics/top-agencies",
		TopCompanies: "/api/awards/statistics/top-companies",
	}
}

func (p Paths) list(k Kind) string {
	switch k {
	case Awards:
		return p.Awards
	case OrderPlans:
		return p.OrderPlans
	}
	return p.BidNotices
}

// Client reads listings and statistics from the procurement API. It
// keeps no state between calls: no cache, no deduplication, no retries.
type Client struct {
	baseURL string
	paths   Paths
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithPaths overrides the endpoint layout.
func WithPaths(p Paths) Option {
	return func(c *Client) { c.paths = p }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   DefaultPaths(),
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListResult is one page of a listing. Exactly one of the item slices is
// populated, matching Kind.
type ListResult struct {
	Kind       Kind
	Page       Page
	Total      int
	BidNotices []BidNotice
	Awards     []Award
	OrderPlans []OrderPlan
}

// Len returns the number of items on the page.
func (r *ListResult) Len() int {
	switch r.Kind {
	case Awards:
		return len(r.Awards)
	case OrderPlans:
		return len(r.OrderPlans)
	}
	return len(r.BidNotices)
}

// PageCount is ceil(Total / Page.Size).
func (r *ListResult) PageCount() int {
	return format.PageCount(r.Total, r.Page.Size)
}

// EmptyResult is the fallback shown when a read fails.
func EmptyResult(kind Kind, page Page) *ListResult {
	return &ListResult{Kind: kind, Page: page}
}

type listEnvelope struct {
	Items json.RawMessage `json:"items"`
	Total *int            `json:"total"`
}

// FetchPage reads one page of kind filtered by f.
func (c *Client) FetchPage(ctx context.Context, kind Kind, f Filters, p Page) (*ListResult, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("fetch page: unknown kind %q", kind)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var env listEnvelope
	if err := c.get(ctx, "list "+string(kind), c.paths.list(kind), EncodeQuery(f, p), &env); err != nil {
		return nil, err
	}
	if env.Total == nil {
		return nil, &ValidationError{Kind: kind, Index: -1, Err: fieldError("total")}
	}
	if *env.Total < 0 {
		return nil, &ValidationError{Kind: kind, Index: -1, Err: fmt.Errorf("negative total %d", *env.Total)}
	}

	r := &ListResult{Kind: kind, Page: p, Total: *env.Total}
	var err error
	switch kind {
	case BidNotices:
		r.BidNotices, err = decodeItems[BidNotice](kind, env.Items)
	case Awards:
		r.Awards, err = decodeItems[Award](kind, env.Items)
	case OrderPlans:
		r.OrderPlans, err = decodeItems[OrderPlan](kind, env.Items)
	}
	if err != nil {
		return nil, err
	}
	if r.Len() > p.Size {
		return nil, &ValidationError{Kind: kind, Index: -1,
			Err: fmt.Errorf("%d items exceed page size %d", r.Len(), p.Size)}
	}
	return r, nil
}

// ListBidNotices is FetchPage for bid notices.
func (c *Client) ListBidNotices(ctx context.Context, f Filters, p Page) ([]BidNotice, int, error) {
	r, err := c.FetchPage(ctx, BidNotices, f, p)
	if err != nil {
		return nil, 0, err
	}
	return r.BidNotices, r.Total, nil
}

// ListAwards is FetchPage for awards.
func (c *Client) ListAwards(ctx context.Context, f Filters, p Page) ([]Award, int, error) {
	r, err := c.FetchPage(ctx, Awards, f, p)
	if err != nil {
		return nil, 0, err
	}
	return r.Awards, r.Total, nil
}

// ListOrderPlans is FetchPage for order plans.
func (c *Client) ListOrderPlans(ctx context.Context, f Filters, p Page) ([]OrderPlan, int, error) {
	r, err := c.FetchPage(ctx, OrderPlans, f, p)
	if err != nil {
		return nil, 0, err
	}
	return r.OrderPlans, r.Total, nil
}

// FetchBidNotice reads a single notice by its notice number.
func (c *Client) FetchBidNotice(ctx context.Context, noticeNumber string) (*BidNotice, error) {
	noticeNumber = strings.TrimSpace(noticeNumber)
	if noticeNumber == "" {
		return nil, fmt.Errorf("fetch bid notice: empty notice number")
	}
	var b BidNotice
	path := c.paths.BidNotices + "/" + url.PathEscape(noticeNumber)
	if err := c.get(ctx, "get bid notice", path, nil, &b); err != nil {
		return nil, err
	}
	if err := b.validate(); err != nil {
		return nil, &ValidationError{Kind: BidNotices, Index: -1, Err: err}
	}
	return &b, nil
}

// FetchSummary reads the overall totals.
func (c *Client) FetchSummary(ctx context.Context) (*Summary, error) {
	var s Summary
	if err := c.get(ctx, "summary", c.paths.Summary, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FetchDaily reads per-day notice counts for the trailing window.
// days <= 0 uses the backend default of 30.
func (c *Client) FetchDaily(ctx context.Context, days int) ([]DailyStat, error) {
	if days <= 0 {
		days = 30
	}
	var out []DailyStat
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.get(ctx, "daily statistics", c.paths.Daily, q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []DailyStat{}
	}
	return out, nil
}

// FetchByType reads notice counts grouped by notice type.
func (c *Client) FetchByType(ctx context.Context) ([]TypeStat, error) {
	var out []TypeStat
	if err := c.get(ctx, "type statistics", c.paths.ByType, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []TypeStat{}
	}
	return out, nil
}

// FetchTopAgencies reads the top-N agencies by notice count.
// limit <= 0 uses 10.
func (c *Client) FetchTopAgencies(ctx context.Context, limit int) ([]AgencyStat, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []AgencyStat
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "top agencies", c.paths.TopAgencies, q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []AgencyStat{}
	}
	return out, nil
}

// FetchTopCompanies reads the top-N awarded companies by award count.
// limit <= 0 uses 10.
func (c *Client) FetchTopCompanies(ctx context.Context, limit int) ([]CompanyStat, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []CompanyStat
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "top companies", c.paths.TopCompanies, q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []CompanyStat{}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, dst any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &FetchError{Op: op, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &FetchError{Op: op, URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &FetchError{Op: op, URL: u, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

type validator interface {
	validate() error
}

func decodeItems[T validator](kind Kind, raw json.RawMessage) ([]T, error) {
	items := []T{}
	if len(raw) == 0 || string(raw) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ValidationError{Kind: kind, Index: -1, Err: fmt.Errorf("decoding items: %w", err)}
	}
	if items == nil {
		items = []T{}
	}
	for i, it := range items {
		if err := it.validate(); err != nil {
			return nil, &ValidationError{Kind: kind, Index: i, Err: err}
		}
	}
	return items, nil
}
