// Package pipeline runs the ingest steps in order: collect listings,
// fetch missing descriptions, then classify new notices.
package pipeline

import (
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/g2bdash/internal/classify"
	"github.com/TobiSchelling/g2bdash/internal/collect"
	"github.com/TobiSchelling/g2bdash/internal/config"
	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/fetch"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Options bounds one run. Zero limits mean no limit.
type Options struct {
	DaysBack      int
	FetchLimit    int
	ClassifyLimit int
	FetchTimeout  time.Duration
	SkipFetch     bool
}

// Pipeline orchestrates the ingest steps.
type Pipeline struct {
	cfg *config.Config
	db  *database.DB
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{cfg: cfg, db: db}
}

// Run executes collect, fetch and classify. A failed collection still lets
// the later steps work on what is already stored.
func (p *Pipeline) Run(opts Options) *Result {
	if opts.DaysBack <= 0 {
		opts.DaysBack = 1
	}
	r := &Result{}
	r.Steps = append(r.Steps, p.runCollect(opts.DaysBack))
	if opts.SkipFetch {
		r.Steps = append(r.Steps, StepResult{Name: "Fetch", Summary: "Skipped"})
	} else {
		r.Steps = append(r.Steps, p.runFetch(opts.FetchLimit, opts.FetchTimeout))
	}
	r.Steps = append(r.Steps, p.runClassify(opts.ClassifyLimit))
	return r
}

// DryRun reports what a run would do without touching any source.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	sources := len(p.cfg.Sources.Feeds)
	if p.cfg.Sources.OpenAPI.Enabled {
		sources++
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] %d sources configured", sources),
	})

	needing, err := p.db.BiddingsNeedingDescription(0)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d notices need a description", len(needing)),
		Err:     err,
	})

	pending, err := p.db.BiddingsNeedingClassification(0)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("[dry-run] %d notices need classification", len(pending)),
		Err:     err,
	})
	return r
}

func (p *Pipeline) runCollect(daysBack int) StepResult {
	log.Println("Step 1/3: Collecting listings...")
	collector := collect.NewCollector(p.cfg, p.db, daysBack)
	result := collector.Collect()
	return StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("Found %d records: %d new, %d updated, %d failed",
			result.TotalFound, result.New, result.Updated, result.Failed),
	}
}

func (p *Pipeline) runFetch(limit int, timeout time.Duration) StepResult {
	log.Println("Step 2/3: Fetching notice descriptions...")
	fetcher := fetch.NewDescriptionFetcher(p.db, timeout)
	result := fetcher.FetchMissing(limit)
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d descriptions, %d failed, %d skipped", result.Fetched, result.Failed, result.Skipped),
	}
}

func (p *Pipeline) runClassify(limit int) StepResult {
	log.Println("Step 3/3: Classifying notices...")
	classifier := classify.NewClassifier(p.db)
	result := classifier.ClassifyPending(limit)
	step := StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("Classified %d notices, %d errors", result.Processed, result.Errors),
	}
	if result.Processed == 0 && result.Errors > 0 {
		step.Err = fmt.Errorf("classification failed for %d notices", result.Errors)
	}
	return step
}
