package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fatura/internal/core"
	"fatura/internal/engine"
	"fatura/internal/storage"
)

// BillingProcessor runs the periodic billing duties: closing invoices whose
// cycle has ended and resetting recurring paid flags at month rollover.
type BillingProcessor struct {
	store    *storage.LedgerStore
	invoices *InvoiceService
}

func NewBillingProcessor(store *storage.LedgerStore, invoices *InvoiceService) *BillingProcessor {
	return &BillingProcessor{
		store:    store,
		invoices: invoices,
	}
}

// recurringResetStateKey tracks the last period whose paid flags were
// cleared, so a worker outage on the first of the month never skips a reset.
const recurringResetStateKey = "recurring_reset_period"

// RunOnce performs a single billing pass at the given instant.
func (p *BillingProcessor) RunOnce(ctx context.Context, now time.Time) error {
	closed, err := p.CloseDueInvoices(ctx, now)
	if err != nil {
		return fmt.Errorf("close due invoices: %w", err)
	}

	period := engine.MonthKey(now.Year(), int(now.Month()))
	lastReset, err := p.store.GetWorkerState(ctx, recurringResetStateKey)
	if err != nil {
		return fmt.Errorf("read last reset period: %w", err)
	}
	if lastReset != period {
		reset, err := p.ResetRecurringFlags(ctx)
		if err != nil {
			return fmt.Errorf("reset recurring flags: %w", err)
		}
		if err := p.store.SetWorkerState(ctx, recurringResetStateKey, period); err != nil {
			return fmt.Errorf("record reset period: %w", err)
		}
		slog.InfoContext(ctx, "Month rollover processed",
			"period", period,
			"obligations_reset", reset)
	}

	slog.InfoContext(ctx, "Billing pass complete",
		"invoices_closed", closed,
		"as_of", now.Format("2006-01-02"))
	return nil
}

// CloseDueInvoices closes every open invoice whose closing date has passed
// and opens the card's next cycle so new charges have somewhere to land.
func (p *BillingProcessor) CloseDueInvoices(ctx context.Context, now time.Time) (int, error) {
	open, err := p.store.ListInvoicesByStatus(ctx, core.InvoiceOpen)
	if err != nil {
		return 0, err
	}

	closedCount := 0
	for _, inv := range open {
		if !engine.InvoiceIsClosable(inv, now) {
			continue
		}

		if _, err := p.invoices.SetStatus(ctx, inv.ID, core.InvoiceClosed); err != nil {
			slog.ErrorContext(ctx, "Failed to close invoice",
				"invoice_id", inv.ID,
				"period", inv.PeriodKey,
				"error", err)
			continue
		}
		closedCount++

		if err := p.openNextCycle(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to open next cycle",
				"invoice_id", inv.ID,
				"card_id", inv.CardID,
				"error", err)
		}
	}

	return closedCount, nil
}

func (p *BillingProcessor) openNextCycle(ctx context.Context, closed core.CardInvoice) error {
	card, err := p.store.GetCard(ctx, closed.CardID)
	if err != nil {
		return err
	}

	// The day after the closing date belongs to the next cycle.
	nextDay := core.Date{Time: closed.ClosingDate.AddDate(0, 0, 1)}
	cycle := engine.ResolveInvoiceCycle(card, nextDay)

	next, err := p.store.UpsertOpenInvoice(ctx, engine.NewOpenInvoice(card, cycle))
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Next invoice cycle opened",
		"card_id", card.ID,
		"period", next.PeriodKey)
	return nil
}

// ResetRecurringFlags clears every active obligation's paid marker.
func (p *BillingProcessor) ResetRecurringFlags(ctx context.Context) (int64, error) {
	return p.store.ResetPaidFlags(ctx)
}
