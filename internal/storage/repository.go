// Package storage persists the ledger in SQLite. All reads and writes go
// through LedgerStore; the engine itself never touches the database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fatura/internal/core"
	"fatura/internal/engine"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(dbPath string) (*LedgerStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &LedgerStore{db: db}, nil
}

func (s *LedgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func formatDate(d core.Date) string {
	return d.Format(dateLayout)
}

func parseDate(raw string) (core.Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return core.Date{Time: t}, nil
}

// category_id is NULL in the schema when a record is uncategorized; in the
// domain that is CategoryID zero.
func categoryParam(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func categoryValue(v sql.NullInt64) int64 {
	if !v.Valid {
		return 0
	}
	return v.Int64
}

// Cards

func (s *LedgerStore) CreateCard(ctx context.Context, card core.Card) (core.Card, error) {
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO cards (name, closing_day, due_day, credit_limit_cents)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		card.Name, card.ClosingDay, card.DueDay, card.CreditLimit.Cents,
	).Scan(&card.ID)
	if err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}

	slog.InfoContext(ctx, "Card created", "id", card.ID, "name", card.Name)
	return card, nil
}

func (s *LedgerStore) GetCard(ctx context.Context, id int64) (core.Card, error) {
	var card core.Card
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, closing_day, due_day, credit_limit_cents
		 FROM cards WHERE id = ?`, id,
	).Scan(&card.ID, &card.Name, &card.ClosingDay, &card.DueDay, &card.CreditLimit.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Card{}, fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

func (s *LedgerStore) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, closing_day, due_day, credit_limit_cents
		 FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []core.Card
	for rows.Next() {
		var card core.Card
		if err := rows.Scan(&card.ID, &card.Name, &card.ClosingDay, &card.DueDay, &card.CreditLimit.Cents); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// Categories

func (s *LedgerStore) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, kind, monthly_limit_cents)
		 VALUES (?, ?, ?) RETURNING id`,
		cat.Name, string(cat.Kind), cat.MonthlyLimit.Cents,
	).Scan(&cat.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return cat, nil
}

func (s *LedgerStore) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var cat core.Category
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, monthly_limit_cents FROM categories WHERE id = ?`, id,
	).Scan(&cat.ID, &cat.Name, &kind, &cat.MonthlyLimit.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	cat.Kind = core.TransactionKind(kind)
	return cat, nil
}

func (s *LedgerStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, monthly_limit_cents FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var cat core.Category
		var kind string
		if err := rows.Scan(&cat.ID, &cat.Name, &kind, &cat.MonthlyLimit.Cents); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cat.Kind = core.TransactionKind(kind)
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

func (s *LedgerStore) SetCategoryLimit(ctx context.Context, id int64, limitCents int64) error {
	if limitCents < 0 {
		return core.ErrInvalidAmount
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET monthly_limit_cents = ? WHERE id = ?`, limitCents, id)
	if err != nil {
		return fmt.Errorf("set category limit: %w", err)
	}
	return requireRow(res, "category", id)
}

// Transactions

func (s *LedgerStore) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO transactions (kind, amount_cents, occurred_on, category_id, description)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		string(tx.Kind), tx.Amount.Cents, formatDate(tx.Date), categoryParam(tx.CategoryID), tx.Description,
	).Scan(&tx.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"kind", tx.Kind,
		"amount_cents", tx.Amount.Cents,
		"occurred_on", formatDate(tx.Date))
	return tx, nil
}

func (s *LedgerStore) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var tx core.Transaction
	var kind, occurredOn string
	var categoryID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, amount_cents, occurred_on, category_id, description
		 FROM transactions WHERE id = ?`, id,
	).Scan(&tx.ID, &kind, &tx.Amount.Cents, &occurredOn, &categoryID, &tx.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	tx.Kind = core.TransactionKind(kind)
	tx.CategoryID = categoryValue(categoryID)
	if tx.Date, err = parseDate(occurredOn); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *LedgerStore) ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	from := fmt.Sprintf("%04d-%02d-01", year, month)
	nextYear, nextMonth := engine.AddMonths(year, month, 1)
	to := fmt.Sprintf("%04d-%02d-01", nextYear, nextMonth)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, amount_cents, occurred_on, category_id, description
		 FROM transactions
		 WHERE occurred_on >= ? AND occurred_on < ?
		 ORDER BY occurred_on, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *LedgerStore) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "transaction", id)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var kind, occurredOn string
		var categoryID sql.NullInt64
		if err := rows.Scan(&tx.ID, &kind, &tx.Amount.Cents, &occurredOn, &categoryID, &tx.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Kind = core.TransactionKind(kind)
		tx.CategoryID = categoryValue(categoryID)
		var err error
		if tx.Date, err = parseDate(occurredOn); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// ListPendingExports returns transactions that have not yet been appended to
// the backup spreadsheet, oldest first.
func (s *LedgerStore) ListPendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, amount_cents, occurred_on, category_id, description
		 FROM transactions
		 WHERE exported = 0
		 ORDER BY id
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *LedgerStore) MarkExported(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET exported = 1, export_error = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if err := requireRow(res, "transaction", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

func (s *LedgerStore) MarkExportError(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET export_error = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	if err := requireRow(res, "transaction", id); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}

// Installment purchases

func (s *LedgerStore) CreatePurchase(ctx context.Context, p core.InstallmentPurchase) (core.InstallmentPurchase, error) {
	if err := p.Validate(); err != nil {
		return core.InstallmentPurchase{}, err
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO installment_purchases
		 (card_id, description, total_amount_cents, installment_count,
		  installment_amount_cents, purchased_on, current_installment, category_id, is_recurring)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		p.CardID, p.Description, p.TotalAmount.Cents, p.InstallmentCount,
		p.InstallmentAmount.Cents, formatDate(p.PurchaseDate), p.CurrentInstallment,
		categoryParam(p.CategoryID), p.IsRecurring,
	).Scan(&p.ID)
	if err != nil {
		return core.InstallmentPurchase{}, fmt.Errorf("create purchase: %w", err)
	}

	slog.InfoContext(ctx, "Installment purchase saved",
		"id", p.ID,
		"card_id", p.CardID,
		"total_cents", p.TotalAmount.Cents,
		"installments", p.InstallmentCount)
	return p, nil
}

func (s *LedgerStore) GetPurchase(ctx context.Context, id int64) (core.InstallmentPurchase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, card_id, description, total_amount_cents, installment_count,
		        installment_amount_cents, purchased_on, current_installment, category_id, is_recurring
		 FROM installment_purchases WHERE id = ?`, id)

	p, err := scanPurchase(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.InstallmentPurchase{}, fmt.Errorf("purchase %d: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *LedgerStore) ListPurchases(ctx context.Context) ([]core.InstallmentPurchase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, card_id, description, total_amount_cents, installment_count,
		        installment_amount_cents, purchased_on, current_installment, category_id, is_recurring
		 FROM installment_purchases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []core.InstallmentPurchase
	for rows.Next() {
		p, err := scanPurchase(rows.Scan)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func scanPurchase(scan func(...any) error) (core.InstallmentPurchase, error) {
	var p core.InstallmentPurchase
	var purchasedOn string
	var categoryID sql.NullInt64
	err := scan(&p.ID, &p.CardID, &p.Description, &p.TotalAmount.Cents, &p.InstallmentCount,
		&p.InstallmentAmount.Cents, &purchasedOn, &p.CurrentInstallment, &categoryID, &p.IsRecurring)
	if errors.Is(err, sql.ErrNoRows) {
		return core.InstallmentPurchase{}, err
	}
	if err != nil {
		return core.InstallmentPurchase{}, fmt.Errorf("scan purchase: %w", err)
	}
	p.CategoryID = categoryValue(categoryID)
	if p.PurchaseDate, err = parseDate(purchasedOn); err != nil {
		return core.InstallmentPurchase{}, err
	}
	return p, nil
}

func (s *LedgerStore) SetPurchaseInstallment(ctx context.Context, id int64, current int) error {
	if current < 1 {
		return core.ErrInvalidInstallment
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE installment_purchases SET current_installment = ? WHERE id = ?`, current, id)
	if err != nil {
		return fmt.Errorf("set purchase installment: %w", err)
	}
	return requireRow(res, "purchase", id)
}

func (s *LedgerStore) DeletePurchase(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM installment_purchases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	return requireRow(res, "purchase", id)
}

// Recurring obligations

func (s *LedgerStore) CreateObligation(ctx context.Context, o core.RecurringObligation) (core.RecurringObligation, error) {
	if err := o.Validate(); err != nil {
		return core.RecurringObligation{}, err
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO recurring_obligations
		 (description, amount_cents, due_day, category_id, active, paid_current_period)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		o.Description, o.Amount.Cents, o.DueDay, categoryParam(o.CategoryID),
		o.Active, o.PaidCurrentPeriod,
	).Scan(&o.ID)
	if err != nil {
		return core.RecurringObligation{}, fmt.Errorf("create obligation: %w", err)
	}
	return o, nil
}

func (s *LedgerStore) ListObligations(ctx context.Context) ([]core.RecurringObligation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, due_day, category_id, active, paid_current_period
		 FROM recurring_obligations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []core.RecurringObligation
	for rows.Next() {
		var o core.RecurringObligation
		var categoryID sql.NullInt64
		if err := rows.Scan(&o.ID, &o.Description, &o.Amount.Cents, &o.DueDay,
			&categoryID, &o.Active, &o.PaidCurrentPeriod); err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		o.CategoryID = categoryValue(categoryID)
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

func (s *LedgerStore) SetObligationPaid(ctx context.Context, id int64, paid bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_obligations SET paid_current_period = ? WHERE id = ?`, paid, id)
	if err != nil {
		return fmt.Errorf("set obligation paid: %w", err)
	}
	return requireRow(res, "obligation", id)
}

func (s *LedgerStore) SetObligationActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_obligations SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set obligation active: %w", err)
	}
	return requireRow(res, "obligation", id)
}

// ResetPaidFlags clears the paid marker on every active obligation. Runs at
// month rollover; returns the number of obligations reset.
func (s *LedgerStore) ResetPaidFlags(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_obligations SET paid_current_period = 0
		 WHERE active = 1 AND paid_current_period = 1`)
	if err != nil {
		return 0, fmt.Errorf("reset paid flags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset paid flags: %w", err)
	}
	return n, nil
}

// GetWorkerState returns the persisted value under the given name, or the
// empty string when nothing has been stored yet.
func (s *LedgerStore) GetWorkerState(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM worker_state WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get worker state %q: %w", name, err)
	}
	return value, nil
}

// SetWorkerState stores a value under the given name, replacing any
// previous one.
func (s *LedgerStore) SetWorkerState(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO worker_state (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		name, value)
	if err != nil {
		return fmt.Errorf("set worker state %q: %w", name, err)
	}
	return nil
}

func (s *LedgerStore) DeleteObligation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recurring_obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	return requireRow(res, "obligation", id)
}

// Card invoices

// UpsertOpenInvoice inserts the invoice for its (card, period) slot if none
// exists and returns the stored row either way. The UNIQUE constraint makes
// concurrent upserts for the same slot converge on a single invoice.
func (s *LedgerStore) UpsertOpenInvoice(ctx context.Context, inv core.CardInvoice) (core.CardInvoice, error) {
	if err := inv.Validate(); err != nil {
		return core.CardInvoice{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO card_invoices (card_id, period_key, closing_date, due_date, status, total_amount_cents)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (card_id, period_key) DO NOTHING`,
		inv.CardID, inv.PeriodKey, formatDate(inv.ClosingDate), formatDate(inv.DueDate),
		string(inv.Status), inv.TotalAmount.Cents)
	if err != nil {
		return core.CardInvoice{}, fmt.Errorf("upsert invoice: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, card_id, period_key, closing_date, due_date, status, total_amount_cents
		 FROM card_invoices WHERE card_id = ? AND period_key = ?`,
		inv.CardID, inv.PeriodKey)

	stored, err := scanInvoice(row.Scan)
	if err != nil {
		return core.CardInvoice{}, err
	}
	return stored, nil
}

func (s *LedgerStore) GetInvoice(ctx context.Context, id int64) (core.CardInvoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, card_id, period_key, closing_date, due_date, status, total_amount_cents
		 FROM card_invoices WHERE id = ?`, id)

	inv, err := scanInvoice(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CardInvoice{}, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return inv, err
}

func (s *LedgerStore) ListInvoices(ctx context.Context) ([]core.CardInvoice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, card_id, period_key, closing_date, due_date, status, total_amount_cents
		 FROM card_invoices ORDER BY period_key, card_id`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

func (s *LedgerStore) ListInvoicesByStatus(ctx context.Context, status core.InvoiceStatus) ([]core.CardInvoice, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, card_id, period_key, closing_date, due_date, status, total_amount_cents
		 FROM card_invoices WHERE status = ? ORDER BY period_key, card_id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list invoices by status: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

func collectInvoices(rows *sql.Rows) ([]core.CardInvoice, error) {
	var invoices []core.CardInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(scan func(...any) error) (core.CardInvoice, error) {
	var inv core.CardInvoice
	var closingDate, dueDate, status string
	err := scan(&inv.ID, &inv.CardID, &inv.PeriodKey, &closingDate, &dueDate,
		&status, &inv.TotalAmount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CardInvoice{}, err
	}
	if err != nil {
		return core.CardInvoice{}, fmt.Errorf("scan invoice: %w", err)
	}
	inv.Status = core.InvoiceStatus(status)
	if inv.ClosingDate, err = parseDate(closingDate); err != nil {
		return core.CardInvoice{}, err
	}
	if inv.DueDate, err = parseDate(dueDate); err != nil {
		return core.CardInvoice{}, err
	}
	return inv, nil
}

func (s *LedgerStore) AddToInvoiceTotal(ctx context.Context, id int64, deltaCents int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE card_invoices SET total_amount_cents = total_amount_cents + ? WHERE id = ?`,
		deltaCents, id)
	if err != nil {
		return fmt.Errorf("add to invoice total: %w", err)
	}
	return requireRow(res, "invoice", id)
}

func (s *LedgerStore) UpdateInvoiceStatus(ctx context.Context, id int64, status core.InvoiceStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE card_invoices SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if err := requireRow(res, "invoice", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Invoice status updated", "id", id, "status", status)
	return nil
}

// LoadSnapshot reads every ledger table in one pass. The engine works on the
// snapshot in memory, so a single load serves a whole aggregation request.
func (s *LedgerStore) LoadSnapshot(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot
	var err error

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, amount_cents, occurred_on, category_id, description
		 FROM transactions ORDER BY occurred_on, id`)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("load transactions: %w", err)
	}
	snap.Transactions, err = scanTransactions(rows)
	rows.Close()
	if err != nil {
		return engine.Snapshot{}, err
	}

	if snap.Purchases, err = s.ListPurchases(ctx); err != nil {
		return engine.Snapshot{}, err
	}
	if snap.Invoices, err = s.ListInvoices(ctx); err != nil {
		return engine.Snapshot{}, err
	}
	if snap.Recurring, err = s.ListObligations(ctx); err != nil {
		return engine.Snapshot{}, err
	}
	if snap.Cards, err = s.ListCards(ctx); err != nil {
		return engine.Snapshot{}, err
	}
	if snap.Categories, err = s.ListCategories(ctx); err != nil {
		return engine.Snapshot{}, err
	}

	return snap, nil
}

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
