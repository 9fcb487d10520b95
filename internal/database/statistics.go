package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// Statistics bounds, matching the REST surface.
const (
	DefaultDailyDays    = 30
	MaxDailyDays        = 90
	DefaultTopAgencies  = 10
	MaxTopAgencies      = 50
	DefaultTopCompanies = 10
	MaxTopCompanies     = 50
)

// Summary returns overall counts and sums plus the notice count per type.
func (db *DB) Summary() (*procurement.Summary, error) {
	s := &procurement.Summary{}
	err := db.conn.QueryRow(`SELECT
		(SELECT COUNT(*) FROM biddings),
		(SELECT COUNT(*) FROM awards),
		(SELECT COUNT(*) FROM order_plans),
		(SELECT COALESCE(SUM(budget_amount), 0) FROM biddings),
		(SELECT COALESCE(SUM(award_amount), 0) FROM awards)`,
	).Scan(&s.TotalBiddings, &s.TotalAwards, &s.TotalOrderPlans, &s.TotalBudget, &s.TotalAwardAmount)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}

	rows, err := db.conn.Query(
		`SELECT notice_type, COUNT(*) FROM biddings WHERE notice_type IS NOT NULL
		GROUP BY notice_type ORDER BY notice_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting by type: %w", err)
	}
	defer rows.Close()
	s.BiddingByType = []procurement.TypeStat{}
	for rows.Next() {
		var ts procurement.TypeStat
		if err := rows.Scan(&ts.Type, &ts.Count); err != nil {
			return nil, err
		}
		s.BiddingByType = append(s.BiddingByType, ts)
	}
	return s, rows.Err()
}

// Daily returns notice counts for the most recent days that have notices,
// oldest first. Days without notices are not reported.
func (db *DB) Daily(days int) ([]procurement.DailyStat, error) {
	if days < 1 || days > MaxDailyDays {
		return nil, fmt.Errorf("days must be between 1 and %d, got %d", MaxDailyDays, days)
	}
	rows, err := db.conn.Query(
		`SELECT substr(notice_date, 1, 10) AS day, COUNT(*) FROM biddings
		WHERE notice_date IS NOT NULL AND notice_date != ''
		GROUP BY day ORDER BY day DESC LIMIT ?`, days,
	)
	if err != nil {
		return nil, fmt.Errorf("reading daily counts: %w", err)
	}
	defer rows.Close()

	stats := []procurement.DailyStat{}
	for rows.Next() {
		var d procurement.DailyStat
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}
		stats = append(stats, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(stats)-1; i < j; i, j = i+1, j-1 {
		stats[i], stats[j] = stats[j], stats[i]
	}
	return stats, nil
}

// ByType returns count, total and average budget per notice type.
func (db *DB) ByType() ([]procurement.TypeStat, error) {
	rows, err := db.conn.Query(
		`SELECT notice_type, COUNT(*), COALESCE(SUM(budget_amount), 0), COALESCE(AVG(budget_amount), 0)
		FROM biddings WHERE notice_type IS NOT NULL
		GROUP BY notice_type ORDER BY COUNT(*) DESC, notice_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading type statistics: %w", err)
	}
	defer rows.Close()

	stats := []procurement.TypeStat{}
	for rows.Next() {
		var (
			ts  procurement.TypeStat
			avg float64
		)
		if err := rows.Scan(&ts.Type, &ts.Count, &ts.TotalBudget, &avg); err != nil {
			return nil, err
		}
		ts.AvgBudget = int64(avg)
		stats = append(stats, ts)
	}
	return stats, rows.Err()
}

// TopAgencies returns the ordering agencies with the most notices.
func (db *DB) TopAgencies(limit int) ([]procurement.AgencyStat, error) {
	if limit < 1 || limit > MaxTopAgencies {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", MaxTopAgencies, limit)
	}
	rows, err := db.conn.Query(
		`SELECT ordering_agency, COUNT(*), COALESCE(SUM(budget_amount), 0)
		FROM biddings WHERE ordering_agency IS NOT NULL AND ordering_agency != ''
		GROUP BY ordering_agency ORDER BY COUNT(*) DESC, ordering_agency LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reading top agencies: %w", err)
	}
	defer rows.Close()

	stats := []procurement.AgencyStat{}
	for rows.Next() {
		var a procurement.AgencyStat
		if err := rows.Scan(&a.Agency, &a.Count, &a.TotalBudget); err != nil {
			return nil, err
		}
		stats = append(stats, a)
	}
	return stats, rows.Err()
}

// TopCompanies returns the awarded companies with the most awards.
// AvgRate is nil for a company whose awards carry no rate.
func (db *DB) TopCompanies(limit int) ([]procurement.CompanyStat, error) {
	if limit < 1 || limit > MaxTopCompanies {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", MaxTopCompanies, limit)
	}
	rows, err := db.conn.Query(
		`SELECT award_company_name, COUNT(*), COALESCE(SUM(award_amount), 0), AVG(award_rate)
		FROM awards WHERE award_company_name IS NOT NULL AND award_company_name != ''
		GROUP BY award_company_name ORDER BY COUNT(*) DESC, award_company_name LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reading top companies: %w", err)
	}
	defer rows.Close()

	stats := []procurement.CompanyStat{}
	for rows.Next() {
		var (
			c   procurement.CompanyStat
			avg sql.NullFloat64
		)
		if err := rows.Scan(&c.Company, &c.Count, &c.TotalAmount, &avg); err != nil {
			return nil, err
		}
		if avg.Valid {
			c.AvgRate = &avg.Float64
		}
		stats = append(stats, c)
	}
	return stats, rows.Err()
}
