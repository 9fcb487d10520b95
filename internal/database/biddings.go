package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

const biddingColumns = `id, notice_number, notice_type, title, ordering_agency, demanding_agency,
	contract_method, bidding_method, budget_amount, estimated_price, notice_date, bid_close_date,
	description, bidding_url, ai_category, ai_tags, competition_level`

// UpsertBidding inserts a bid notice or updates the stored one with the same
// notice number. It reports whether a new row was created. Fields the
// incoming notice leaves empty keep their stored values.
func (db *DB) UpsertBidding(b procurement.BidNotice) (bool, error) {
	var exists int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM biddings WHERE notice_number = ?", b.NoticeNumber).Scan(&exists)
	if err != nil {
		return false, err
	}

	_, err = db.conn.Exec(
		`INSERT INTO biddings (notice_number, notice_type, title, ordering_agency, demanding_agency,
			contract_method, bidding_method, budget_amount, estimated_price, notice_date, bid_close_date,
			description, bidding_url, ai_category, ai_tags, competition_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(notice_number) DO UPDATE SET
			notice_type = COALESCE(excluded.notice_type, notice_type),
			title = excluded.title,
			ordering_agency = COALESCE(excluded.ordering_agency, ordering_agency),
			demanding_agency = COALESCE(excluded.demanding_agency, demanding_agency),
			contract_method = COALESCE(excluded.contract_method, contract_method),
			bidding_method = COALESCE(excluded.bidding_method, bidding_method),
			budget_amount = COALESCE(excluded.budget_amount, budget_amount),
			estimated_price = COALESCE(excluded.estimated_price, estimated_price),
			notice_date = COALESCE(excluded.notice_date, notice_date),
			bid_close_date = COALESCE(excluded.bid_close_date, bid_close_date),
			description = COALESCE(excluded.description, description),
			bidding_url = COALESCE(excluded.bidding_url, bidding_url),
			ai_category = COALESCE(excluded.ai_category, ai_category),
			ai_tags = COALESCE(excluded.ai_tags, ai_tags),
			competition_level = COALESCE(excluded.competition_level, competition_level),
			updated_at = ?`,
		b.NoticeNumber, nullString(b.NoticeType), b.Title, nullString(b.OrderingAgency),
		nullString(b.DemandingAgency), nullString(b.ContractMethod), nullString(b.BiddingMethod),
		b.BudgetAmount, b.EstimatedPrice, formatTime(b.NoticeDate), formatTime(b.BidCloseDate),
		nullString(b.Description), nullString(b.BiddingURL), nullString(b.AICategory),
		nullString(b.AITags), nullString(b.CompetitionLevel), now(),
	)
	if err != nil {
		return false, fmt.Errorf("upserting bidding %s: %w", b.NoticeNumber, err)
	}
	return exists == 0, nil
}

// GetBidding returns the notice with the given number, or nil if none.
func (db *DB) GetBidding(noticeNumber string) (*procurement.BidNotice, error) {
	row := db.conn.QueryRow("SELECT "+biddingColumns+" FROM biddings WHERE notice_number = ?", noticeNumber)
	b, err := scanBidding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBiddings returns a page of bid notices, newest first.
//
// The budget filter matches a notice when either its budget or its
// estimated price falls in range. The end date includes the whole day.
func (db *DB) ListBiddings(p ListParams) (*ListPage[procurement.BidNotice], error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	var w where
	f := p.Filters
	if f.NoticeType != "" {
		w.add("notice_type = ?", f.NoticeType)
	}
	if f.SearchText != "" {
		w.add("instr(title, ?) > 0", f.SearchText)
	}
	switch {
	case f.MinBudget != nil && f.MaxBudget != nil:
		w.add("((budget_amount >= ? AND budget_amount <= ?) OR (estimated_price >= ? AND estimated_price <= ?))",
			*f.MinBudget, *f.MaxBudget, *f.MinBudget, *f.MaxBudget)
	case f.MinBudget != nil:
		w.add("(budget_amount >= ? OR estimated_price >= ?)", *f.MinBudget, *f.MinBudget)
	case f.MaxBudget != nil:
		w.add("(budget_amount <= ? OR estimated_price <= ?)", *f.MaxBudget, *f.MaxBudget)
	}
	w.dateRange("notice_date", f)
	if f.Category != "" {
		w.add("ai_category = ?", f.Category)
	}

	page := &ListPage[procurement.BidNotice]{Skip: p.Skip, Limit: p.Limit, Items: []procurement.BidNotice{}}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM biddings"+w.String(), w.args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting biddings: %w", err)
	}

	args := append(w.args, p.Limit, p.Skip)
	rows, err := db.conn.Query(
		"SELECT "+biddingColumns+" FROM biddings"+w.String()+
			" ORDER BY notice_date DESC, id DESC LIMIT ? OFFSET ?", args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing biddings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		b, err := scanBidding(rows)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *b)
	}
	return page, rows.Err()
}

// BiddingsNeedingDescription returns notices with a detail URL and no
// description that have not been attempted yet.
func (db *DB) BiddingsNeedingDescription(limit int) ([]FetchTarget, error) {
	query := `SELECT id, notice_number, bidding_url FROM biddings
		WHERE (description IS NULL OR description = '')
		AND bidding_url IS NOT NULL AND bidding_url != ''
		AND description_fetched = 0
		ORDER BY notice_date DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []FetchTarget
	for rows.Next() {
		var t FetchTarget
		if err := rows.Scan(&t.ID, &t.NoticeNumber, &t.URL); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// UpdateBiddingDescription stores a fetched description.
func (db *DB) UpdateBiddingDescription(id int64, description string) error {
	_, err := db.conn.Exec(
		"UPDATE biddings SET description = ?, description_fetched = 1, updated_at = ? WHERE id = ?",
		description, now(), id,
	)
	return err
}

// MarkDescriptionAttempted records a failed fetch so it is not retried.
func (db *DB) MarkDescriptionAttempted(id int64) error {
	_, err := db.conn.Exec("UPDATE biddings SET description_fetched = 1 WHERE id = ?", id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBidding(s scanner) (*procurement.BidNotice, error) {
	var (
		b                                                  procurement.BidNotice
		noticeType, ordering, demanding, contract, bidding sql.NullString
		description, url, category, tags, competition      sql.NullString
		noticeDate, closeDate                              sql.NullString
		budget, estimated                                  sql.NullInt64
	)
	if err := s.Scan(&b.ID, &b.NoticeNumber, &noticeType, &b.Title, &ordering, &demanding,
		&contract, &bidding, &budget, &estimated, &noticeDate, &closeDate,
		&description, &url, &category, &tags, &competition); err != nil {
		return nil, err
	}
	b.NoticeType = noticeType.String
	b.OrderingAgency = ordering.String
	b.DemandingAgency = demanding.String
	b.ContractMethod = contract.String
	b.BiddingMethod = bidding.String
	b.BudgetAmount = nullInt(budget)
	b.EstimatedPrice = nullInt(estimated)
	b.NoticeDate = parseTime(noticeDate)
	b.BidCloseDate = parseTime(closeDate)
	b.Description = description.String
	b.BiddingURL = url.String
	b.AICategory = category.String
	b.AITags = tags.String
	b.CompetitionLevel = competition.String
	return &b, nil
}
