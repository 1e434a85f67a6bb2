package engine

import (
	"time"

	"fatura/internal/core"
)

// IsDueInMonth reports whether a recurring obligation bills in the given
// month. A recurring obligation repeats every month by definition, so
// this is true for any active obligation.
func IsDueInMonth(o core.RecurringObligation, year, month int) bool {
	_ = year
	_ = month
	return o.Active
}

// IsOverdue reports whether the obligation's due day has passed without
// payment. The comparison is month/day only: the year is deliberately
// ignored, matching how the tracker treats obligations as belonging to
// the current period regardless of when they were created.
func IsOverdue(o core.RecurringObligation, asOf time.Time) bool {
	if !o.Active || o.PaidCurrentPeriod {
		return false
	}
	due := ClampDay(o.DueDay, asOf.Year(), int(asOf.Month()))
	return due < asOf.Day()
}

// NextDueDate returns the obligation's due date in asOf's month when it
// has not yet passed, otherwise the due date in the following month.
// The due day is clamped to each month's length.
func NextDueDate(o core.RecurringObligation, asOf time.Time) core.Date {
	year, month := asOf.Year(), int(asOf.Month())
	if due := ClampDay(o.DueDay, year, month); due >= asOf.Day() {
		return core.NewDate(year, month, due)
	}
	year, month = AddMonths(year, month, 1)
	return core.NewDate(year, month, ClampDay(o.DueDay, year, month))
}
