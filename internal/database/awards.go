package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

const awardColumns = `id, bid_ntce_no, bid_ntce_nm, notice_type, award_company_name, award_business_no,
	award_ceo_name, award_amount, award_rate, opening_date, ntce_instt_nm, ntce_instt_cd, dminstt_cd,
	prtcpt_cnum`

// UpsertAward inserts or replaces the award for (bid_ntce_no, notice_type).
// It reports whether a new row was created.
func (db *DB) UpsertAward(a procurement.Award) (bool, error) {
	var exists int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM awards WHERE bid_ntce_no = ? AND notice_type = ?",
		a.BidNoticeNumber, a.NoticeType,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	_, err = db.conn.Exec(
		`INSERT INTO awards (bid_ntce_no, notice_type, bid_ntce_nm, opening_date, prtcpt_cnum,
			award_company_name, award_business_no, award_ceo_name, award_amount, award_rate,
			ntce_instt_cd, ntce_instt_nm, dminstt_cd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bid_ntce_no, notice_type) DO UPDATE SET
			bid_ntce_nm = excluded.bid_ntce_nm,
			opening_date = excluded.opening_date,
			prtcpt_cnum = excluded.prtcpt_cnum,
			award_company_name = excluded.award_company_name,
			award_business_no = excluded.award_business_no,
			award_ceo_name = excluded.award_ceo_name,
			award_amount = excluded.award_amount,
			award_rate = excluded.award_rate,
			ntce_instt_cd = excluded.ntce_instt_cd,
			ntce_instt_nm = excluded.ntce_instt_nm,
			dminstt_cd = excluded.dminstt_cd,
			updated_at = ?`,
		a.BidNoticeNumber, a.NoticeType, nullString(a.BidNoticeName), formatTime(a.OpeningDate),
		a.Participants, nullString(a.CompanyName), nullString(a.BusinessNumber),
		nullString(a.CEOName), a.AwardAmount, a.AwardRate, nullString(a.OrderingAgencyCd),
		nullString(a.OrderingAgency), nullString(a.DemandAgencyCd), now(),
	)
	if err != nil {
		return false, fmt.Errorf("upserting award %s: %w", a.BidNoticeNumber, err)
	}
	return exists == 0, nil
}

// GetAward returns the award with the given row ID, or nil if none.
func (db *DB) GetAward(id int64) (*procurement.Award, error) {
	a, err := scanAward(db.conn.QueryRow("SELECT "+awardColumns+" FROM awards WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAwards returns a page of awards by most recent opening. The search
// text matches the winning company name.
func (db *DB) ListAwards(p ListParams) (*ListPage[procurement.Award], error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	var w where
	if p.Filters.NoticeType != "" {
		w.add("notice_type = ?", p.Filters.NoticeType)
	}
	if p.Filters.SearchText != "" {
		w.add("instr(award_company_name, ?) > 0", p.Filters.SearchText)
	}
	w.dateRange("opening_date", p.Filters)

	page := &ListPage[procurement.Award]{Skip: p.Skip, Limit: p.Limit, Items: []procurement.Award{}}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM awards"+w.String(), w.args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting awards: %w", err)
	}

	args := append(w.args, p.Limit, p.Skip)
	rows, err := db.conn.Query(
		"SELECT "+awardColumns+" FROM awards"+w.String()+
			" ORDER BY opening_date DESC, id DESC LIMIT ? OFFSET ?", args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing awards: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *a)
	}
	return page, rows.Err()
}

func scanAward(s scanner) (*procurement.Award, error) {
	var (
		a                                  procurement.Award
		name, company, bizNo, ceo          sql.NullString
		agency, agencyCd, demandCd, opened sql.NullString
		amount                             sql.NullInt64
		rate                               sql.NullFloat64
		participants                       sql.NullInt64
	)
	if err := s.Scan(&a.ID, &a.BidNoticeNumber, &name, &a.NoticeType, &company, &bizNo,
		&ceo, &amount, &rate, &opened, &agency, &agencyCd, &demandCd, &participants); err != nil {
		return nil, err
	}
	a.BidNoticeName = name.String
	a.CompanyName = company.String
	a.BusinessNumber = bizNo.String
	a.CEOName = ceo.String
	a.AwardAmount = nullInt(amount)
	if rate.Valid {
		r := rate.Float64
		a.AwardRate = &r
	}
	a.OpeningDate = parseTime(opened)
	a.OrderingAgency = agency.String
	a.OrderingAgencyCd = agencyCd.String
	a.DemandAgencyCd = demandCd.String
	if participants.Valid {
		n := int(participants.Int64)
		a.Participants = &n
	}
	return &a, nil
}
