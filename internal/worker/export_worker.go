// Package worker moves stored transactions into the backup spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fatura/internal/amqp"
	"fatura/internal/core"
	"fatura/internal/sheets"
	"fatura/internal/storage"
)

// ExportWorker consumes export messages and appends the referenced
// transactions to the backup sheet. A periodic catch-up sweep covers rows
// whose messages were lost.
type ExportWorker struct {
	store     *storage.LedgerStore
	writer    sheets.RecordWriter
	batchSize int
}

func NewExportWorker(store *storage.LedgerStore, writer sheets.RecordWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes one export message from the queue.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.RecordExportMessage) error {
	slog.InfoContext(ctx, "Processing export message", "id", msg.ID)

	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.exportTransaction(ctx, tx); err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}

	return nil
}

// ProcessPendingExports sweeps rows that never made it to the sheet. Runs on
// a timer as a backup for lost queue messages.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, tx := range pending {
		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", tx.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCatchUp drains the pending backlog once at worker startup, with a
// larger batch to recover from downtime.
func (w *ExportWorker) StartupCatchUp(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports for startup: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, tx := range pending {
		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"id", tx.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup catch-up completed",
		"total", len(pending),
		"exported", exported,
		"failed", failed)

	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, tx core.Transaction) error {
	record := sheets.Record{
		Date:        tx.Date,
		Kind:        tx.Kind,
		Description: tx.Description,
		Amount:      tx.Amount,
		Category:    w.categoryName(ctx, tx.CategoryID),
	}

	ref, err := w.writer.Append(ctx, record)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, tx.ID); err != nil {
		// The append worked; the catch-up sweep may export the row again.
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"id", tx.ID,
		"sheet_ref", ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}

func (w *ExportWorker) categoryName(ctx context.Context, id int64) string {
	if id == 0 {
		return ""
	}
	cat, err := w.store.GetCategory(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Category lookup failed for export", "category_id", id, "error", err)
		return ""
	}
	return cat.Name
}
