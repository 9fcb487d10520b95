// Package similar finds stored bid notices whose titles resemble a given
// notice within the same category.
package similar

import (
	"fmt"

	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// candidatePool is how many same-category notices are compared.
const candidatePool = 100

// DefaultLimit is the number of similar notices returned by default.
const DefaultLimit = 5

// Finder looks up similar notices in the database.
type Finder struct {
	db *database.DB
}

// NewFinder creates a new finder.
func NewFinder(db *database.DB) *Finder {
	return &Finder{db: db}
}

// Similar returns the notice with the given row id and up to limit notices
// of the same category ranked by title similarity. The target is nil when
// no such notice exists. An unclassified target has no similar notices.
func (f *Finder) Similar(id int64, limit int) (*procurement.BidNotice, []procurement.BidNotice, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	target, err := f.db.GetBiddingByID(id)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		return nil, nil, nil
	}
	out := []procurement.BidNotice{}
	if target.AICategory == "" {
		return target, out, nil
	}

	pool, err := f.db.BiddingsInCategory(target.AICategory, id, candidatePool)
	if err != nil {
		return nil, nil, fmt.Errorf("loading candidates: %w", err)
	}
	titles := make([]string, len(pool))
	for i, b := range pool {
		titles[i] = b.Title
	}
	for _, m := range Rank(target.Title, titles, limit) {
		out = append(out, pool[m.Index])
	}
	return target, out, nil
}
