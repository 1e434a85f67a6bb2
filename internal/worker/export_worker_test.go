package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fatura/internal/amqp"
	"fatura/internal/core"
	"fatura/internal/sheets"
	"fatura/internal/sheets/memory"
	"fatura/internal/storage"
)

func newTestStore(t *testing.T) *storage.LedgerStore {
	t.Helper()
	store, err := storage.NewLedgerStore(filepath.Join(t.TempDir(), "fatura.db"))
	if err != nil {
		t.Fatalf("NewLedgerStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedTransaction(t *testing.T, store *storage.LedgerStore, cents int64) core.Transaction {
	t.Helper()
	tx, err := store.CreateTransaction(context.Background(), core.Transaction{
		Kind:        core.Expense,
		Amount:      core.Money{Cents: cents},
		Date:        core.NewDate(2024, 2, 10),
		Description: "mercado",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return tx
}

func TestHandleExportMessage(t *testing.T) {
	store := newTestStore(t)
	sink := memory.New()
	w := NewExportWorker(store, sink, 10)
	ctx := context.Background()

	tx := seedTransaction(t, store, 4200)

	if err := w.HandleExportMessage(ctx, amqp.NewRecordExportMessage(tx.ID)); err != nil {
		t.Fatalf("HandleExportMessage: %v", err)
	}

	rows := sink.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Amount.Cents != 4200 || rows[0].Description != "mercado" {
		t.Errorf("row = %+v", rows[0])
	}

	// The row is no longer pending once exported.
	pending, err := store.ListPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingExports: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("still pending: %+v", pending)
	}
}

func TestHandleExportMessageMissingTransaction(t *testing.T) {
	store := newTestStore(t)
	w := NewExportWorker(store, memory.New(), 10)

	err := w.HandleExportMessage(context.Background(), amqp.NewRecordExportMessage(404))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

type failingWriter struct{}

func (failingWriter) Append(context.Context, sheets.Record) (string, error) {
	return "", errors.New("sheet unavailable")
}

func TestStartupCatchUp(t *testing.T) {
	store := newTestStore(t)
	sink := memory.New()
	w := NewExportWorker(store, sink, 10)
	ctx := context.Background()

	seedTransaction(t, store, 1000)
	seedTransaction(t, store, 2000)

	if err := w.StartupCatchUp(ctx); err != nil {
		t.Fatalf("StartupCatchUp: %v", err)
	}
	if got := len(sink.Rows()); got != 2 {
		t.Fatalf("exported %d rows, want 2", got)
	}

	// Nothing left for the periodic sweep.
	if err := w.ProcessPendingExports(ctx); err != nil {
		t.Fatalf("ProcessPendingExports: %v", err)
	}
	if got := len(sink.Rows()); got != 2 {
		t.Errorf("sweep re-exported rows: %d", got)
	}
}

func TestExportFailureKeepsRowPending(t *testing.T) {
	store := newTestStore(t)
	w := NewExportWorker(store, failingWriter{}, 10)
	ctx := context.Background()

	tx := seedTransaction(t, store, 1000)

	if err := w.HandleExportMessage(ctx, amqp.NewRecordExportMessage(tx.ID)); err == nil {
		t.Fatal("expected error from failing writer")
	}

	pending, err := store.ListPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingExports: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID {
		t.Errorf("pending = %+v, want the failed row", pending)
	}
}
