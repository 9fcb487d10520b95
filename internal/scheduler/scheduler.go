// Package scheduler re-runs the ingest pipeline on a fixed interval while
// the backend serves.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/TobiSchelling/g2bdash/internal/pipeline"
)

// Runner executes one pipeline run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(opts pipeline.Options) *pipeline.Result
}

// Config holds scheduler options.
type Config struct {
	// Interval between runs. Default: 1 hour.
	Interval time.Duration

	// DaysBack is the collection window of each run. Default: 2.
	DaysBack int

	// FetchTimeout bounds each description download.
	FetchTimeout time.Duration

	// RunOnStart runs a cycle as soon as Run is called. Default: true.
	RunOnStart bool
}

// DefaultConfig returns the hourly two-day collection schedule.
func DefaultConfig() Config {
	return Config{
		Interval:     time.Hour,
		DaysBack:     2,
		FetchTimeout: 30 * time.Second,
		RunOnStart:   true,
	}
}

// CycleStats summarizes one scheduled run.
type CycleStats struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Steps       int
	FailedSteps int
}

// Scheduler runs the pipeline every Interval until stopped.
type Scheduler struct {
	config Config
	runner Runner

	mu      sync.Mutex
	running bool
	cycles  int
	last    *CycleStats
}

// New creates a scheduler. Zero fields of cfg fall back to DefaultConfig.
func New(runner Runner, cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = def.DaysBack
	}
	return &Scheduler{config: cfg, runner: runner}
}

// Run blocks until stop is closed. A cycle in progress finishes first.
func (s *Scheduler) Run(stop <-chan struct{}) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("Scheduler already running")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Printf("Scheduler started (every %s, %d days back)", s.config.Interval, s.config.DaysBack)

	if s.config.RunOnStart {
		s.RunOnce()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			log.Println("Scheduler stopping")
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce executes a single cycle and records its stats.
func (s *Scheduler) RunOnce() CycleStats {
	stats := CycleStats{StartTime: time.Now()}
	result := s.runner.Run(pipeline.Options{
		DaysBack:     s.config.DaysBack,
		FetchTimeout: s.config.FetchTimeout,
	})
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if result != nil {
		stats.Steps = len(result.Steps)
		for _, step := range result.Steps {
			if step.Err != nil {
				stats.FailedSteps++
				log.Printf("Scheduled %s failed: %v", step.Name, step.Err)
			}
		}
	}
	log.Printf("Scheduled run complete in %s (%d steps, %d failed)",
		stats.Duration.Round(time.Millisecond), stats.Steps, stats.FailedSteps)

	s.mu.Lock()
	s.cycles++
	s.last = &stats
	s.mu.Unlock()
	return stats
}

// Cycles returns how many runs have completed.
func (s *Scheduler) Cycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// LastCycle returns the stats of the most recent run, or nil before the first.
func (s *Scheduler) LastCycle() *CycleStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	c := *s.last
	return &c
}

// Running reports whether Run is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
