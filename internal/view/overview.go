package view

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// Source is everything the overview needs from the API.
type Source interface {
	Fetcher
	FetchSummary(ctx context.Context) (*procurement.Summary, error)
	FetchDaily(ctx context.Context, days int) ([]procurement.DailyStat, error)
	FetchByType(ctx context.Context) ([]procurement.TypeStat, error)
	FetchTopAgencies(ctx context.Context, limit int) ([]procurement.AgencyStat, error)
}

// Overview is the initial dashboard load: the first page of every list
// plus the aggregate statistics. Each part fails independently; a failed
// aggregate is left empty and its error recorded.
type Overview struct {
	Lists       map[procurement.Kind]ListState
	Summary     procurement.Summary
	Daily       []procurement.DailyStat
	ByType      []procurement.TypeStat
	TopAgencies []procurement.AgencyStat

	SummaryErr     error
	DailyErr       error
	ByTypeErr      error
	TopAgenciesErr error
}

// OverviewOptions controls the size of each part of the overview.
type OverviewOptions struct {
	PageSize  int
	DailyDays int
	TopN      int
}

// LoadOverview fetches all lists and aggregates concurrently. The reads
// are independent, so one failure never cancels the others.
func LoadOverview(ctx context.Context, src Source, f procurement.Filters, opts OverviewOptions) *Overview {
	o := &Overview{
		Lists:       make(map[procurement.Kind]ListState, len(procurement.Kinds)),
		Daily:       []procurement.DailyStat{},
		ByType:      []procurement.TypeStat{},
		TopAgencies: []procurement.AgencyStat{},
	}
	states := make([]ListState, len(procurement.Kinds))

	var g errgroup.Group
	for i, kind := range procurement.Kinds {
		g.Go(func() error {
			states[i] = Fetch(ctx, src, kind, f, procurement.FirstPage(opts.PageSize))
			return nil
		})
	}
	g.Go(func() error {
		s, err := src.FetchSummary(ctx)
		if err != nil {
			o.SummaryErr = err
			log.Printf("Failed to load summary: %v", err)
			return nil
		}
		o.Summary = *s
		return nil
	})
	g.Go(func() error {
		d, err := src.FetchDaily(ctx, opts.DailyDays)
		if err != nil {
			o.DailyErr = err
			log.Printf("Failed to load daily statistics: %v", err)
			return nil
		}
		o.Daily = d
		return nil
	})
	g.Go(func() error {
		t, err := src.FetchByType(ctx)
		if err != nil {
			o.ByTypeErr = err
			log.Printf("Failed to load type statistics: %v", err)
			return nil
		}
		o.ByType = t
		return nil
	})
	g.Go(func() error {
		a, err := src.FetchTopAgencies(ctx, opts.TopN)
		if err != nil {
			o.TopAgenciesErr = err
			log.Printf("Failed to load top agencies: %v", err)
			return nil
		}
		o.TopAgencies = a
		return nil
	})
	_ = g.Wait()

	for i, kind := range procurement.Kinds {
		o.Lists[kind] = states[i]
	}
	return o
}

// DailyMax is the largest daily count, for scaling bars; 0 when empty.
func (o *Overview) DailyMax() int {
	max := 0
	for _, d := range o.Daily {
		if d.Count > max {
			max = d.Count
		}
	}
	return max
}

// DailyTotal sums the daily counts.
func (o *Overview) DailyTotal() int {
	total := 0
	for _, d := range o.Daily {
		total += d.Count
	}
	return total
}

// TypeShare returns each type's share of the total count in percent.
// An empty or all-zero input yields an empty map.
func (o *Overview) TypeShare() map[string]float64 {
	total := 0
	for _, t := range o.ByType {
		total += t.Count
	}
	shares := make(map[string]float64, len(o.ByType))
	if total == 0 {
		return shares
	}
	for _, t := range o.ByType {
		shares[t.Type] = float64(t.Count) * 100 / float64(total)
	}
	return shares
}

// TopAgenciesN returns at most n agencies.
func (o *Overview) TopAgenciesN(n int) []procurement.AgencyStat {
	if n < 0 || n >= len(o.TopAgencies) {
		return o.TopAgencies
	}
	return o.TopAgencies[:n]
}
