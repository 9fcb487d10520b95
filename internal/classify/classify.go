// Package classify derives a category, tags and an expected competition
// level for stored bid notices.
package classify

import (
	"fmt"
	"log"

	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// participantHistory caps how many past awards feed the competition level.
const participantHistory = 50

// Result holds the results of a classification run.
type Result struct {
	Processed  int
	Categories map[string]int
	Errors     int
}

// Classifier classifies stored bid notices.
type Classifier struct {
	db *database.DB
}

// NewClassifier creates a new classifier.
func NewClassifier(db *database.DB) *Classifier {
	return &Classifier{db: db}
}

// ClassifyPending classifies up to limit notices that have no category yet.
// A limit <= 0 classifies all of them.
func (c *Classifier) ClassifyPending(limit int) *Result {
	r := &Result{Categories: map[string]int{}}

	pending, err := c.db.BiddingsNeedingClassification(limit)
	if err != nil {
		log.Printf("Error getting unclassified notices: %v", err)
		r.Errors++
		return r
	}
	if len(pending) == 0 {
		log.Println("No notices pending classification")
		return r
	}

	for _, b := range pending {
		a, err := c.classify(b)
		if err != nil {
			log.Printf("Error classifying notice %s: %v", b.NoticeNumber, err)
			r.Errors++
			continue
		}
		r.Processed++
		r.Categories[a.Category]++
		if r.Processed%100 == 0 {
			log.Printf("Classified %d/%d", r.Processed, len(pending))
		}
	}

	log.Printf("Classification complete: %d processed, %d errors", r.Processed, r.Errors)
	return r
}

// ClassifyOne classifies the notice with the given row id and returns it
// as stored afterwards. It returns nil and no error when the notice does
// not exist.
func (c *Classifier) ClassifyOne(id int64) (*procurement.BidNotice, *Analysis, error) {
	b, err := c.db.GetBiddingByID(id)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, nil
	}
	a, err := c.classify(*b)
	if err != nil {
		return nil, nil, err
	}
	b, err = c.db.GetBiddingByID(id)
	if err != nil {
		return nil, nil, err
	}
	return b, a, nil
}

func (c *Classifier) classify(b procurement.BidNotice) (*Analysis, error) {
	participants, err := c.db.AgencyParticipants(b.OrderingAgency, participantHistory)
	if err != nil {
		return nil, fmt.Errorf("loading award history: %w", err)
	}
	a := Analyze(b, participants)
	if err := c.db.UpdateBiddingClassification(b.ID, a.Category, a.Tags, a.CompetitionLevel); err != nil {
		return nil, fmt.Errorf("storing classification: %w", err)
	}
	return &a, nil
}
