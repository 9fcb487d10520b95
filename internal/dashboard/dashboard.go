// Package dashboard serves the read-only procurement dashboard: an overview
// page plus filterable, paginated lists backed by the listing API.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/g2bdash/internal/format"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
	"github.com/TobiSchelling/g2bdash/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Source is what the dashboard reads from. *procurement.Client satisfies it.
type Source interface {
	view.Source
	FetchBidNotice(ctx context.Context, noticeNumber string) (*procurement.BidNotice, error)
}

// Options sizes the overview and list pages.
type Options struct {
	PageSize  int
	DailyDays int
	TopN      int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 || o.PageSize > procurement.MaxPageSize {
		o.PageSize = procurement.DefaultPageSize
	}
	if o.DailyDays <= 0 {
		o.DailyDays = 30
	}
	if o.TopN <= 0 {
		o.TopN = 5
	}
	return o
}

// Server is the dashboard HTTP server.
type Server struct {
	src   Source
	opts  Options
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a Server reading from src.
func New(src Source, opts Options) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"amount":   format.FormatAmount,
		"won":      format.FormatWon,
		"count":    format.FormatCount,
		"rate":     format.FormatRate,
		"date":     func(t *procurement.Timestamp) string { return format.FormatDate(t.Ptr()) },
		"datetime": func(t *procurement.Timestamp) string { return format.FormatDateTime(t.Ptr()) },
		"dash":     dash,
		"bar":      barWidth,
		"inc":      func(i int) int { return i + 1 },
		"share": func(shares map[string]float64, key string) string {
			return fmt.Sprintf("%.1f%%", shares[key])
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so "title" and "content" don't collide.
	pageNames := []string{"index.html", "list.html", "detail.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{src: src, opts: opts.withDefaults(), pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/biddings", s.handleList(procurement.BidNotices))
	s.mux.HandleFunc("/awards", s.handleList(procurement.Awards))
	s.mux.HandleFunc("/orderplans", s.handleList(procurement.OrderPlans))
	s.mux.HandleFunc("/biddings/{notice_number}", s.handleDetail)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	o := view.LoadOverview(r.Context(), s.src, procurement.Filters{}, view.OverviewOptions{
		PageSize:  5,
		DailyDays: s.opts.DailyDays,
		TopN:      s.opts.TopN,
	})

	s.render(w, http.StatusOK, "index.html", map[string]any{
		"Nav":         "/",
		"Overview":    o,
		"Bids":        o.Lists[procurement.BidNotices],
		"Shares":      o.TypeShare(),
		"DailyMax":    o.DailyMax(),
		"DailyTotal":  o.DailyTotal(),
		"TopAgencies": o.TopAgenciesN(s.opts.TopN),
		"DailyDays":   s.opts.DailyDays,
	})
}

func (s *Server) handleList(kind procurement.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := map[string]any{
			"Nav":   listPath(kind),
			"Kind":  kind,
			"Name":  string(kind),
			"Query": q,
		}

		f, err := procurement.FiltersFromValues(q)
		if err != nil {
			data["FilterErr"] = err.Error()
			s.render(w, http.StatusBadRequest, "list.html", data)
			return
		}

		page := procurement.Page{Number: queryInt(q, "page", 1), Size: queryInt(q, "page_size", s.opts.PageSize)}
		if page.Number < 1 {
			page.Number = 1
		}
		if page.Size < 1 || page.Size > procurement.MaxPageSize {
			page.Size = s.opts.PageSize
		}
		if err := page.Validate(); err != nil {
			data["FilterErr"] = err.Error()
			s.render(w, http.StatusBadRequest, "list.html", data)
			return
		}

		st := view.Fetch(r.Context(), s.src, kind, f, page)
		data["State"] = st
		data["Status"] = st.Status().String()
		if st.HasPrev() {
			data["PrevURL"] = pageURL(kind, q, page.Number-1)
		}
		if st.HasNext() {
			data["NextURL"] = pageURL(kind, q, page.Number+1)
		}
		s.render(w, http.StatusOK, "list.html", data)
	}
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(r.PathValue("notice_number"))
	if number == "" {
		http.Redirect(w, r, "/biddings", http.StatusFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	data := map[string]any{"Nav": "/biddings", "NoticeNumber": number}
	b, err := s.src.FetchBidNotice(ctx, number)
	switch {
	case procurement.IsNotFound(err):
		data["NotFound"] = true
		s.render(w, http.StatusNotFound, "detail.html", data)
		return
	case err != nil:
		log.Printf("Failed to load bid notice %s: %v", number, err)
		data["Err"] = err
		s.render(w, http.StatusBadGateway, "detail.html", data)
		return
	}

	data["Notice"] = b
	data["Tags"] = b.Tags()
	s.render(w, http.StatusOK, "detail.html", data)
}

func (s *Server) render(w http.ResponseWriter, code int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func listPath(kind procurement.Kind) string {
	switch kind {
	case procurement.Awards:
		return "/awards"
	case procurement.OrderPlans:
		return "/orderplans"
	}
	return "/biddings"
}

// pageURL keeps the current filters and swaps the page number.
func pageURL(kind procurement.Kind, q url.Values, page int) string {
	v := url.Values{}
	for k, vals := range q {
		if k == "page" {
			continue
		}
		for _, val := range vals {
			if strings.TrimSpace(val) != "" {
				v.Add(k, val)
			}
		}
	}
	v.Set("page", strconv.Itoa(page))
	return listPath(kind) + "?" + v.Encode()
}

func queryInt(q url.Values, name string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Get(name)))
	if err != nil {
		return def
	}
	return n
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// barWidth scales n against top to a CSS percentage.
func barWidth(n, top int) int {
	if top <= 0 || n <= 0 {
		return 0
	}
	return n * 100 / top
}

// Serve starts the dashboard on the given port.
func Serve(src Source, opts Options, port int) error {
	srv, err := New(src, opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Dashboard listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
