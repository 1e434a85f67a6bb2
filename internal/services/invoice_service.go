package services

import (
	"context"
	"fmt"
	"log/slog"

	"fatura/internal/core"
	"fatura/internal/engine"
	"fatura/internal/storage"
)

// InvoiceService manages card invoice lifecycle: opening invoices on demand,
// accepting charges and walking the status machine.
type InvoiceService struct {
	store *storage.LedgerStore
}

func NewInvoiceService(store *storage.LedgerStore) *InvoiceService {
	return &InvoiceService{store: store}
}

// OpenInvoiceFor returns the invoice that owns the given purchase date on the
// card, creating it as open if this is the first charge of its cycle.
func (s *InvoiceService) OpenInvoiceFor(ctx context.Context, cardID int64, date core.Date) (core.CardInvoice, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return core.CardInvoice{}, err
	}

	cycle := engine.ResolveInvoiceCycle(card, date)
	return s.store.UpsertOpenInvoice(ctx, engine.NewOpenInvoice(card, cycle))
}

// Charge adds a one-off card charge to the invoice of the date's cycle.
// Charges only land on open invoices.
func (s *InvoiceService) Charge(ctx context.Context, cardID int64, date core.Date, amount core.Money) (core.CardInvoice, error) {
	if err := amount.Validate(); err != nil {
		return core.CardInvoice{}, err
	}

	inv, err := s.OpenInvoiceFor(ctx, cardID, date)
	if err != nil {
		return core.CardInvoice{}, err
	}
	if inv.Status != core.InvoiceOpen {
		return core.CardInvoice{}, fmt.Errorf("invoice %d is %s: %w", inv.ID, inv.Status, core.ErrInvalidStatus)
	}

	if err := s.store.AddToInvoiceTotal(ctx, inv.ID, amount.Cents); err != nil {
		return core.CardInvoice{}, err
	}

	return s.store.GetInvoice(ctx, inv.ID)
}

// Invoices lists every invoice in the ledger.
func (s *InvoiceService) Invoices(ctx context.Context) ([]core.CardInvoice, error) {
	return s.store.ListInvoices(ctx)
}

func (s *InvoiceService) Invoice(ctx context.Context, id int64) (core.CardInvoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// SetStatus moves an invoice through its lifecycle. Illegal transitions are
// rejected before anything is written. Paying an invoice advances the
// installment counter of every purchase billed in its period.
func (s *InvoiceService) SetStatus(ctx context.Context, id int64, to core.InvoiceStatus) (core.CardInvoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return core.CardInvoice{}, err
	}

	if err := engine.ValidateTransition(inv.Status, to); err != nil {
		return core.CardInvoice{}, err
	}

	if err := s.store.UpdateInvoiceStatus(ctx, id, to); err != nil {
		return core.CardInvoice{}, err
	}
	inv.Status = to

	if to == core.InvoicePaid {
		if err := s.advanceInstallments(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to advance installments after payment",
				"invoice_id", inv.ID, "error", err)
		}
	}

	return inv, nil
}

func (s *InvoiceService) advanceInstallments(ctx context.Context, inv core.CardInvoice) error {
	var year, month int
	if _, err := fmt.Sscanf(inv.PeriodKey, "%d-%d", &year, &month); err != nil {
		return fmt.Errorf("parse period key %q: %w", inv.PeriodKey, err)
	}

	card, err := s.store.GetCard(ctx, inv.CardID)
	if err != nil {
		return err
	}

	purchases, err := s.store.ListPurchases(ctx)
	if err != nil {
		return err
	}

	for _, p := range purchases {
		if p.CardID != inv.CardID || p.Settled() {
			continue
		}
		idx, ok := engine.ResolveInstallmentForMonth(p, card, year, month)
		if !ok || idx != p.CurrentInstallment {
			continue
		}
		if err := s.store.SetPurchaseInstallment(ctx, p.ID, idx+1); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Installment advanced",
			"purchase_id", p.ID,
			"installment", idx,
			"of", p.InstallmentCount)
	}

	return nil
}
