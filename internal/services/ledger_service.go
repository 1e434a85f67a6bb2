// Package services orchestrates the ledger store, the billing engine and the
// export queue behind the operations the API exposes.
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

// ExportPublisher enqueues a backup request for a stored transaction.
// Satisfied by the AMQP client; nil disables publishing.
type ExportPublisher interface {
	PublishRecordExport(ctx context.Context, id int64) error
}

// LedgerService owns transaction, card, category and obligation operations
// plus the monthly views computed from them.
type LedgerService struct {
	store     *storage.LedgerStore
	publisher ExportPublisher
}

func NewLedgerService(store *storage.LedgerStore, publisher ExportPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// RecordTransaction saves the transaction locally first, then enqueues the
// spreadsheet export. A failed publish never fails the request; the worker's
// catch-up sweep picks the row up later.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "Export publisher not available, skipping export message")
		return saved, nil
	}
	if err := s.publisher.PublishRecordExport(ctx, saved.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"id", saved.ID, "error", err)
	}

	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	return s.store.DeleteTransaction(ctx, id)
}

func (s *LedgerService) Transactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, year, month)
}

func (s *LedgerService) AddCard(ctx context.Context, card core.Card) (core.Card, error) {
	return s.store.CreateCard(ctx, card)
}

func (s *LedgerService) Cards(ctx context.Context) ([]core.Card, error) {
	return s.store.ListCards(ctx)
}

func (s *LedgerService) AddCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	return s.store.CreateCategory(ctx, cat)
}

func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *LedgerService) SetCategoryLimit(ctx context.Context, id int64, limit core.Money) error {
	return s.store.SetCategoryLimit(ctx, id, limit.Cents)
}

// RecordPurchase stores an installment purchase and makes sure the cycle
// invoice of installment #1 exists. The invoice is opened with a zero total:
// installments are aggregated from the purchase itself, never posted to
// invoice totals. The per-installment amount is derived from the total when
// the caller leaves it zero.
func (s *LedgerService) RecordPurchase(ctx context.Context, p core.InstallmentPurchase) (core.InstallmentPurchase, error) {
	if p.CurrentInstallment == 0 {
		p.CurrentInstallment = 1
	}
	if p.InstallmentAmount.Cents == 0 && p.InstallmentCount > 0 {
		p.InstallmentAmount = core.Money{Cents: p.TotalAmount.Cents / int64(p.InstallmentCount)}
	}

	card, err := s.store.GetCard(ctx, p.CardID)
	if err != nil {
		return core.InstallmentPurchase{}, fmt.Errorf("purchase card: %w", err)
	}

	saved, err := s.store.CreatePurchase(ctx, p)
	if err != nil {
		return core.InstallmentPurchase{}, err
	}

	cycle := engine.ResolveInvoiceCycle(card, p.PurchaseDate)
	if _, err := s.store.UpsertOpenInvoice(ctx, engine.NewOpenInvoice(card, cycle)); err != nil {
		return core.InstallmentPurchase{}, fmt.Errorf("open cycle invoice: %w", err)
	}

	return saved, nil
}

func (s *LedgerService) Purchases(ctx context.Context) ([]core.InstallmentPurchase, error) {
	return s.store.ListPurchases(ctx)
}

func (s *LedgerService) DeletePurchase(ctx context.Context, id int64) error {
	return s.store.DeletePurchase(ctx, id)
}

func (s *LedgerService) AddObligation(ctx context.Context, o core.RecurringObligation) (core.RecurringObligation, error) {
	return s.store.CreateObligation(ctx, o)
}

func (s *LedgerService) Obligations(ctx context.Context) ([]core.RecurringObligation, error) {
	return s.store.ListObligations(ctx)
}

func (s *LedgerService) MarkObligationPaid(ctx context.Context, id int64, paid bool) error {
	return s.store.SetObligationPaid(ctx, id, paid)
}

func (s *LedgerService) SetObligationActive(ctx context.Context, id int64, active bool) error {
	return s.store.SetObligationActive(ctx, id, active)
}

func (s *LedgerService) DeleteObligation(ctx context.Context, id int64) error {
	return s.store.DeleteObligation(ctx, id)
}

// OverdueObligations returns the active unpaid obligations whose due day has
// passed as of the given instant.
func (s *LedgerService) OverdueObligations(ctx context.Context, asOf time.Time) ([]core.RecurringObligation, error) {
	obligations, err := s.store.ListObligations(ctx)
	if err != nil {
		return nil, err
	}

	var overdue []core.RecurringObligation
	for _, o := range obligations {
		if engine.IsOverdue(o, asOf) {
			overdue = append(overdue, o)
		}
	}
	return overdue, nil
}

// MonthOverview computes the aggregate for a month from a fresh snapshot.
func (s *LedgerService) MonthOverview(ctx context.Context, year, month int, asOf time.Time) (engine.MonthAggregate, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return engine.MonthAggregate{}, fmt.Errorf("load snapshot: %w", err)
	}
	return engine.ComputeMonth(year, month, snap, asOf), nil
}

// Projection runs the same aggregation against a future month.
func (s *LedgerService) Projection(ctx context.Context, year, month int, asOf time.Time) (engine.MonthAggregate, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return engine.MonthAggregate{}, fmt.Errorf("load snapshot: %w", err)
	}
	return engine.ProjectMonth(year, month, snap, asOf), nil
}

// Budgets reports per-category budget standing for a month.
func (s *LedgerService) Budgets(ctx context.Context, year, month int, asOf time.Time) ([]engine.BudgetLine, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	agg := engine.ComputeMonth(year, month, snap, asOf)
	return engine.ComputeBudgets(snap.Categories, agg), nil
}

func (s *LedgerService) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
