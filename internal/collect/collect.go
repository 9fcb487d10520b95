package collect

import (
	"log"
	"time"

	"github.com/TobiSchelling/g2bdash/internal/config"
	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound int
	New        int
	Updated    int
	Failed     int
	Kinds      map[procurement.Kind]int
}

// Collector populates the store from RSS feeds and the open API.
type Collector struct {
	db         *database.DB
	feedParser *FeedParser
	openAPI    *OpenAPIClient
	daysBack   int
}

// NewCollector creates a new collector.
func NewCollector(cfg *config.Config, db *database.DB, daysBack int) *Collector {
	c := &Collector{
		db:       db,
		daysBack: daysBack,
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name, NoticeType: f.NoticeType}
		}
		c.feedParser = NewFeedParser(feeds)
	}

	apiCfg := cfg.Sources.OpenAPI
	if apiCfg.Enabled {
		c.openAPI = NewOpenAPIClient(apiCfg.BaseURL, apiCfg.APIKeyEnv)
	}

	return c
}

// Collect collects from all configured sources.
func (c *Collector) Collect() *Result {
	r := &Result{Kinds: make(map[procurement.Kind]int)}
	to := time.Now()
	from := to.AddDate(0, 0, -c.daysBack)

	if c.feedParser != nil {
		log.Println("Collecting from RSS feeds...")
		c.storeNotices(r, c.feedParser.ParseAll(c.daysBack))
	}

	if c.openAPI != nil && c.openAPI.IsConfigured() {
		log.Println("Collecting from the open API...")
		c.storeNotices(r, c.openAPI.BidNotices(from, to))

		for _, a := range c.openAPI.Awards(from, to) {
			r.TotalFound++
			created, err := c.db.UpsertAward(a)
			r.count(procurement.Awards, created, err)
		}
		for _, p := range c.openAPI.OrderPlans(from, to) {
			r.TotalFound++
			created, err := c.db.UpsertOrderPlan(p)
			r.count(procurement.OrderPlans, created, err)
		}
	} else if c.openAPI != nil {
		log.Println("Open API key not set, skipping")
	}

	log.Printf("Collection complete: %d found, %d new, %d updated, %d failed",
		r.TotalFound, r.New, r.Updated, r.Failed)
	return r
}

func (c *Collector) storeNotices(r *Result, notices []procurement.BidNotice) {
	for _, n := range notices {
		r.TotalFound++
		created, err := c.db.UpsertBidding(n)
		r.count(procurement.BidNotices, created, err)
	}
}

func (r *Result) count(kind procurement.Kind, created bool, err error) {
	switch {
	case err != nil:
		log.Printf("Failed to store %s: %v", kind, err)
		r.Failed++
	case created:
		r.New++
		r.Kinds[kind]++
	default:
		r.Updated++
	}
}
