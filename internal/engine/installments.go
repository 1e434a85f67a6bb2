package engine

import (
	"fatura/internal/core"
)

// InvoiceCycle identifies the billing cycle a purchase date lands in for
// a given card, together with the cycle's closing and due dates.
type InvoiceCycle struct {
	Year        int
	Month       int
	PeriodKey   string
	ClosingDate core.Date
	DueDate     core.Date
}

// ResolveInvoiceCycle maps a purchase date to the card cycle that bills it.
//
// A purchase made on or before the card's closing day belongs to the
// current month's cycle; after the closing day it rolls to the next month.
// The due date is the card's due day clamped within the cycle month; when
// that would precede the closing date, the due date rolls one month
// forward. Deterministic and pure for the same (card, date).
func ResolveInvoiceCycle(card core.Card, date core.Date) InvoiceCycle {
	cycleYear, cycleMonth := date.Year(), date.Month()
	if date.Day() > card.ClosingDay {
		cycleYear, cycleMonth = AddMonths(cycleYear, cycleMonth, 1)
	}

	closing := core.NewDate(cycleYear, cycleMonth, ClampDay(card.ClosingDay, cycleYear, cycleMonth))
	due := core.NewDate(cycleYear, cycleMonth, ClampDay(card.DueDay, cycleYear, cycleMonth))
	if due.Before(closing.Time) {
		dueYear, dueMonth := AddMonths(cycleYear, cycleMonth, 1)
		due = core.NewDate(dueYear, dueMonth, ClampDay(card.DueDay, dueYear, dueMonth))
	}

	return InvoiceCycle{
		Year:        cycleYear,
		Month:       cycleMonth,
		PeriodKey:   MonthKey(cycleYear, cycleMonth),
		ClosingDate: closing,
		DueDate:     due,
	}
}

// ResolveInstallmentForMonth returns the 1-based installment index of a
// purchase billed in the target month, or ok=false when nothing is due.
//
// This is the single canonical formula: installment #1 is billed in the
// cycle containing the purchase date itself, installment #2 one month
// later, and so on. Not-due covers months before the first cycle, months
// past the last installment, and installments below CurrentInstallment
// (already paid).
func ResolveInstallmentForMonth(p core.InstallmentPurchase, card core.Card, year, month int) (int, bool) {
	cycle := ResolveInvoiceCycle(card, p.PurchaseDate)
	index := monthsBetween(cycle.Year, cycle.Month, year, month) + 1
	if index < 1 || index > p.InstallmentCount {
		return 0, false
	}
	if index < p.CurrentInstallment {
		return 0, false
	}
	return index, true
}

// InstallmentAmountAt returns the amount billed for one installment.
// Division remainder is concentrated in the final installment so the
// installments sum exactly to the purchase total.
func InstallmentAmountAt(p core.InstallmentPurchase, index int) core.Money {
	if p.InstallmentCount < 1 || index < 1 || index > p.InstallmentCount {
		return core.Money{}
	}
	base := p.TotalAmount.Cents / int64(p.InstallmentCount)
	if index == p.InstallmentCount {
		return core.Money{Cents: p.TotalAmount.Cents - base*int64(p.InstallmentCount-1)}
	}
	return core.Money{Cents: base}
}
