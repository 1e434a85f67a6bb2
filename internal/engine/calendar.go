// Package engine implements the billing-cycle and monthly aggregation
// engine: pure calendar arithmetic, installment scheduling, invoice cycle
// resolution, and month aggregation over an in-memory ledger snapshot.
//
// Every function in this package is a side-effect-free transformation.
// Nothing here reads the wall clock; entry points that depend on "today"
// take an explicit asOf argument so results are reproducible.
package engine

import (
	"fmt"
	"time"
)

// DaysInMonth returns the number of days in the given month, leap-year aware.
func DaysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay clamps a nominal day-of-month (1-31) to the length of the
// given month, so that e.g. day 31 in February becomes 28 or 29.
func ClampDay(day, year, month int) int {
	if last := DaysInMonth(year, month); day > last {
		return last
	}
	return day
}

// AddMonths adds n months (which may be negative) to a year/month pair,
// normalizing overflow and underflow across year boundaries.
func AddMonths(year, month, n int) (int, int) {
	idx := year*12 + (month - 1) + n
	y := idx / 12
	m := idx%12 + 1
	if m < 1 {
		// Go's integer division truncates toward zero; fix up negative wrap.
		m += 12
		y--
	}
	return y, m
}

// MonthKey returns the canonical "YYYY-MM" key for a calendar month.
// Keys are zero-padded so lexicographic order matches chronological order.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// monthsBetween returns the signed number of whole calendar months from
// (fromYear, fromMonth) to (toYear, toMonth).
func monthsBetween(fromYear, fromMonth, toYear, toMonth int) int {
	return (toYear-fromYear)*12 + (toMonth - fromMonth)
}
