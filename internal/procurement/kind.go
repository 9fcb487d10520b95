// Package procurement is the typed client for the procurement listing API:
// bid notices, award results, order plans and their aggregate statistics.
package procurement

import (
	"fmt"
	"strings"
)

// Kind identifies one of the three listable record types.
type Kind string

const (
	BidNotices Kind = "bid-notices"
	Awards     Kind = "awards"
	OrderPlans Kind = "order-plans"
)

// Kinds lists every Kind in display order.
var Kinds = []Kind{BidNotices, Awards, OrderPlans}

// ParseKind accepts the canonical kind names plus the path-style
// spellings used by the backend ("biddings", "orderplans").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bid-notices", "biddings", "bids":
		return BidNotices, nil
	case "awards":
		return Awards, nil
	case "order-plans", "orderplans", "plans":
		return OrderPlans, nil
	}
	return "", fmt.Errorf("unknown kind %q (want bid-notices, awards or order-plans)", s)
}

// Label returns the Korean display name.
func (k Kind) Label() string {
	switch k {
	case BidNotices:
		return "입찰공고"
	case Awards:
		return "낙찰정보"
	case OrderPlans:
		return "발주계획"
	}
	return string(k)
}

func (k Kind) valid() bool {
	return k == BidNotices || k == Awards || k == OrderPlans
}
