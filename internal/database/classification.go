package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// CategoryCount is the number of notices in one classified category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// TagCount is how many notices carry a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// GetBiddingByID returns the notice with the given row id, or nil if none.
func (db *DB) GetBiddingByID(id int64) (*procurement.BidNotice, error) {
	row := db.conn.QueryRow("SELECT "+biddingColumns+" FROM biddings WHERE id = ?", id)
	b, err := scanBidding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// BiddingsNeedingClassification returns notices without a category, oldest
// row first. A limit <= 0 returns all of them.
func (db *DB) BiddingsNeedingClassification(limit int) ([]procurement.BidNotice, error) {
	query := "SELECT " + biddingColumns + " FROM biddings WHERE ai_category IS NULL ORDER BY id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return db.queryBiddings(query, args...)
}

// UpdateBiddingClassification stores the category, the JSON-encoded tag
// list and the competition level of a notice.
func (db *DB) UpdateBiddingClassification(id int64, category string, tags []string, level string) error {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	_, err = db.conn.Exec(
		"UPDATE biddings SET ai_category = ?, ai_tags = ?, competition_level = ?, updated_at = ? WHERE id = ?",
		category, string(encoded), level, now(), id,
	)
	return err
}

// AgencyParticipants returns the participant counts of past awards placed
// by the agency, at most limit of them.
func (db *DB) AgencyParticipants(agency string, limit int) ([]int, error) {
	if agency == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(
		`SELECT prtcpt_cnum FROM awards
		WHERE ntce_instt_nm = ? AND prtcpt_cnum IS NOT NULL AND prtcpt_cnum > 0
		ORDER BY opening_date DESC LIMIT ?`, agency, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		counts = append(counts, n)
	}
	return counts, rows.Err()
}

// BiddingsInCategory returns up to limit notices of the category other than
// the excluded row, newest first.
func (db *DB) BiddingsInCategory(category string, excludeID int64, limit int) ([]procurement.BidNotice, error) {
	return db.queryBiddings(
		"SELECT "+biddingColumns+" FROM biddings WHERE ai_category = ? AND id != ? ORDER BY notice_date DESC, id DESC LIMIT ?",
		category, excludeID, limit,
	)
}

// CategoryCounts groups classified notices by category, largest first.
func (db *DB) CategoryCounts() ([]CategoryCount, error) {
	rows, err := db.conn.Query(
		`SELECT ai_category, COUNT(*) AS n FROM biddings
		WHERE ai_category IS NOT NULL
		GROUP BY ai_category ORDER BY n DESC, ai_category`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TagCounts tallies the stored tag lists and returns the limit most common.
// Rows whose tags do not decode are skipped.
func (db *DB) TagCounts(limit int) ([]TagCount, error) {
	rows, err := db.conn.Query("SELECT ai_tags FROM biddings WHERE ai_tags IS NOT NULL AND ai_tags != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tally := map[string]int{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var tags []string
		if json.Unmarshal([]byte(raw), &tags) != nil {
			continue
		}
		for _, t := range tags {
			tally[t]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make([]TagCount, 0, len(tally))
	for tag, n := range tally {
		counts = append(counts, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Tag < counts[j].Tag
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

func (db *DB) queryBiddings(query string, args ...any) ([]procurement.BidNotice, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []procurement.BidNotice
	for rows.Next() {
		b, err := scanBidding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
