// Package format renders procurement values for display.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	jo  = 1_000_000_000_000
	eok = 100_000_000
	man = 10_000
)

// FormatAmount renders a won amount using Korean denominations:
// 조원 and 억원 with one decimal, 만원 with none, plain won with
// thousands separators below that (including all negative amounts). A nil
// amount renders as "-".
func FormatAmount(amount *int64) string {
	if amount == nil {
		return "-"
	}
	return FormatWon(*amount)
}

// FormatWon is FormatAmount for a known amount.
func FormatWon(amount int64) string {
	// Thresholds compare the signed value, so every negative amount is
	// printed in plain won.
	switch {
	case amount >= jo:
		return scaled(float64(amount), jo, 1, "조원")
	case amount >= eok:
		return scaled(float64(amount), eok, 1, "억원")
	case amount >= man:
		return scaled(float64(amount), man, 0, "만원")
	default:
		return humanize.Comma(amount) + "원"
	}
}

// scaled rounds half away from zero on the scaled value (2.5만 -> 3만).
func scaled(v float64, unit float64, decimals int, suffix string) string {
	p := math.Pow(10, float64(decimals))
	r := math.Round(v/unit*p) / p
	return strconv.FormatFloat(r, 'f', decimals, 64) + suffix
}

// PageCount returns ceil(total / size), or 0 when there is nothing to page.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// FormatCount renders a count as "1,234건".
func FormatCount(n int) string {
	return humanize.Comma(int64(n)) + "건"
}

// FormatRate renders a winning rate percentage with two decimals.
func FormatRate(rate *float64) string {
	if rate == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *rate)
}

// FormatDate renders a timestamp the way ko-KR locales print dates.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("2006. 1. 2.")
}

// FormatDateTime renders a timestamp with hour and minute.
func FormatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("2006. 1. 2. 15:04")
}

// Deref returns the string or "-" for nil/empty, for table cells.
func Deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
