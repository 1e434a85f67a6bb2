package engine

import (
	"fmt"
	"time"

	"fatura/internal/core"
)

// invoiceTransitions is the allowed status transition set. Paid is the
// effective terminal state for a cycle, but reopening is always
// permitted, so no state is truly terminal.
var invoiceTransitions = map[core.InvoiceStatus][]core.InvoiceStatus{
	core.InvoiceOpen:   {core.InvoiceClosed, core.InvoicePaid},
	core.InvoiceClosed: {core.InvoicePaid},
	core.InvoicePaid:   {core.InvoiceOpen},
}

// CanTransition reports whether an invoice may move from one status to
// another. Users can mark an open invoice paid without closing it first.
func CanTransition(from, to core.InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a validation error for transitions outside
// the allowed set, including unknown statuses on either side.
func ValidateTransition(from, to core.InvoiceStatus) error {
	if err := from.Validate(); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return err
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, from, to)
	}
	return nil
}

// InvoiceIsOverdue reports whether an unpaid invoice's due date has
// passed as of the given moment. This is a derived flag: the engine
// never moves invoice status by itself.
func InvoiceIsOverdue(inv core.CardInvoice, asOf time.Time) bool {
	if inv.Status == core.InvoicePaid {
		return false
	}
	asOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return inv.DueDate.Time.Before(asOfDay)
}

// InvoiceIsClosable reports whether an open invoice's closing date has
// passed, meaning a billing pass may close it.
func InvoiceIsClosable(inv core.CardInvoice, asOf time.Time) bool {
	if inv.Status != core.InvoiceOpen {
		return false
	}
	asOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return inv.ClosingDate.Time.Before(asOfDay)
}

// NewOpenInvoice builds the open invoice row for a card cycle. Storage is
// responsible for the upsert that makes creation idempotent per
// (card, period key).
func NewOpenInvoice(card core.Card, cycle InvoiceCycle) core.CardInvoice {
	return core.CardInvoice{
		CardID:      card.ID,
		PeriodKey:   cycle.PeriodKey,
		ClosingDate: cycle.ClosingDate,
		DueDate:     cycle.DueDate,
		Status:      core.InvoiceOpen,
	}
}
