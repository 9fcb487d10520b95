package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS biddings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    notice_number TEXT UNIQUE NOT NULL,
    notice_type TEXT,
    title TEXT NOT NULL,
    ordering_agency TEXT,
    demanding_agency TEXT,
    contract_method TEXT,
    bidding_method TEXT,
    budget_amount INTEGER,
    estimated_price INTEGER,
    notice_date TEXT,
    bid_close_date TEXT,
    order_instt_cd TEXT,
    order_instt_nm TEXT,
    description TEXT,
    bidding_url TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS awards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bid_ntce_no TEXT NOT NULL,
    notice_type TEXT NOT NULL DEFAULT '',
    bid_ntce_nm TEXT,
    opening_date TEXT,
    prtcpt_cnum INTEGER,
    award_company_name TEXT,
    award_business_no TEXT,
    award_ceo_name TEXT,
    award_amount INTEGER,
    award_rate REAL,
    ntce_instt_cd TEXT,
    ntce_instt_nm TEXT,
    dminstt_cd TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now')),
    UNIQUE (bid_ntce_no, notice_type)
);

CREATE TABLE IF NOT EXISTS order_plans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_plan_unty_no TEXT UNIQUE NOT NULL,
    biz_nm TEXT,
    order_instt_nm TEXT,
    dept_nm TEXT,
    prcrmnt_methd TEXT,
    cntrct_mthd_nm TEXT,
    sum_order_amt INTEGER,
    order_year TEXT,
    order_mnth TEXT,
    ntice_dt TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_biddings_notice_date ON biddings(notice_date);
CREATE INDEX IF NOT EXISTS idx_biddings_notice_type ON biddings(notice_type);
CREATE INDEX IF NOT EXISTS idx_awards_opening_date ON awards(opening_date);
CREATE INDEX IF NOT EXISTS idx_order_plans_ntice_dt ON order_plans(ntice_dt);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "classification fields and description fetch flag",
		Up: func(tx *sql.Tx) error {
			for _, c := range []struct{ name, decl string }{
				{"ai_category", "TEXT"},
				{"ai_tags", "TEXT"},
				{"competition_level", "TEXT"},
				{"description_fetched", "INTEGER DEFAULT 0"},
			} {
				if err := addColumn(tx, "biddings", c.name, c.decl); err != nil {
					return err
				}
			}
			_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_biddings_ai_category ON biddings(ai_category)")
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
