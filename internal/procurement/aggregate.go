package procurement

import (
	"context"
	"fmt"
)

// Aggregate names one of the unpaginated statistics reads.
type Aggregate string

const (
	AggregateDaily        Aggregate = "daily"
	AggregateByType       Aggregate = "by-type"
	AggregateTopAgencies  Aggregate = "top-agencies"
	AggregateTopCompanies Aggregate = "top-companies"
)

// ParseAggregate validates an aggregate name.
func ParseAggregate(s string) (Aggregate, error) {
	switch a := Aggregate(s); a {
	case AggregateDaily, AggregateByType, AggregateTopAgencies, AggregateTopCompanies:
		return a, nil
	}
	return "", fmt.Errorf("unknown aggregate %q (want daily, by-type, top-agencies or top-companies)", s)
}

// Aggregates holds the result of FetchAggregate; only the field for the
// requested aggregate is set, and it is never nil on success.
type Aggregates struct {
	Name         Aggregate
	Daily        []DailyStat
	ByType       []TypeStat
	TopAgencies  []AgencyStat
	TopCompanies []CompanyStat
}

// Len returns the number of rows in the requested aggregate.
func (a *Aggregates) Len() int {
	switch a.Name {
	case AggregateDaily:
		return len(a.Daily)
	case AggregateByType:
		return len(a.ByType)
	case AggregateTopCompanies:
		return len(a.TopCompanies)
	}
	return len(a.TopAgencies)
}

// FetchAggregate reads one statistics aggregate. n is the day window for
// daily and the top-N cutoff for top-agencies and top-companies; it is
// ignored for by-type.
func (c *Client) FetchAggregate(ctx context.Context, name Aggregate, n int) (*Aggregates, error) {
	a := &Aggregates{Name: name}
	var err error
	switch name {
	case AggregateDaily:
		a.Daily, err = c.FetchDaily(ctx, n)
	case AggregateByType:
		a.ByType, err = c.FetchByType(ctx)
	case AggregateTopAgencies:
		a.TopAgencies, err = c.FetchTopAgencies(ctx, n)
	case AggregateTopCompanies:
		a.TopCompanies, err = c.FetchTopCompanies(ctx, n)
	default:
		return nil, fmt.Errorf("fetch aggregate: unknown aggregate %q", name)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
