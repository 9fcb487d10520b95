package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

const orderPlanColumns = `id, order_plan_unty_no, biz_nm, order_instt_nm, dept_nm, prcrmnt_methd,
	cntrct_mthd_nm, sum_order_amt, order_year, order_mnth, ntice_dt`

// UpsertOrderPlan inserts or replaces the plan with the same unified
// number. It reports whether a new row was created.
func (db *DB) UpsertOrderPlan(p procurement.OrderPlan) (bool, error) {
	var exists int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM order_plans WHERE order_plan_unty_no = ?", p.PlanNumber).Scan(&exists)
	if err != nil {
		return false, err
	}

	_, err = db.conn.Exec(
		`INSERT INTO order_plans (order_plan_unty_no, biz_nm, order_instt_nm, dept_nm, prcrmnt_methd,
			cntrct_mthd_nm, sum_order_amt, order_year, order_mnth, ntice_dt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_plan_unty_no) DO UPDATE SET
			biz_nm = excluded.biz_nm,
			order_instt_nm = excluded.order_instt_nm,
			dept_nm = excluded.dept_nm,
			prcrmnt_methd = excluded.prcrmnt_methd,
			cntrct_mthd_nm = excluded.cntrct_mthd_nm,
			sum_order_amt = excluded.sum_order_amt,
			order_year = excluded.order_year,
			order_mnth = excluded.order_mnth,
			ntice_dt = excluded.ntice_dt,
			updated_at = ?`,
		p.PlanNumber, nullString(p.BusinessName), nullString(p.Institution), nullString(p.Department),
		nullString(p.ProcurementMethod), nullString(p.ContractMethod), p.TotalAmount,
		nullString(p.OrderYear), nullString(p.OrderMonth), formatTime(p.NoticeDate), now(),
	)
	if err != nil {
		return false, fmt.Errorf("upserting order plan %s: %w", p.PlanNumber, err)
	}
	return exists == 0, nil
}

// GetOrderPlan returns the plan with the given row ID, or nil if none.
func (db *DB) GetOrderPlan(id int64) (*procurement.OrderPlan, error) {
	p, err := scanOrderPlan(db.conn.QueryRow("SELECT "+orderPlanColumns+" FROM order_plans WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListOrderPlans returns a page of order plans by most recent notice. The
// search text matches the business name.
func (db *DB) ListOrderPlans(p ListParams) (*ListPage[procurement.OrderPlan], error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	var w where
	if p.Filters.SearchText != "" {
		w.add("instr(biz_nm, ?) > 0", p.Filters.SearchText)
	}
	w.dateRange("ntice_dt", p.Filters)

	page := &ListPage[procurement.OrderPlan]{Skip: p.Skip, Limit: p.Limit, Items: []procurement.OrderPlan{}}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM order_plans"+w.String(), w.args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting order plans: %w", err)
	}

	args := append(w.args, p.Limit, p.Skip)
	rows, err := db.conn.Query(
		"SELECT "+orderPlanColumns+" FROM order_plans"+w.String()+
			" ORDER BY ntice_dt DESC, id DESC LIMIT ? OFFSET ?", args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing order plans: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		op, err := scanOrderPlan(rows)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *op)
	}
	return page, rows.Err()
}

func scanOrderPlan(s scanner) (*procurement.OrderPlan, error) {
	var (
		p                                  procurement.OrderPlan
		biz, instt, dept, method, contract sql.NullString
		year, month, noticed               sql.NullString
		amount                             sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.PlanNumber, &biz, &instt, &dept, &method,
		&contract, &amount, &year, &month, &noticed); err != nil {
		return nil, err
	}
	p.BusinessName = biz.String
	p.Institution = instt.String
	p.Department = dept.String
	p.ProcurementMethod = method.String
	p.ContractMethod = contract.String
	p.TotalAmount = nullInt(amount)
	p.OrderYear = year.String
	p.OrderMonth = month.String
	p.NoticeDate = parseTime(noticed)
	return &p, nil
}
