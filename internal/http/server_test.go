package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fatura/internal/services"
	"fatura/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewLedgerStore(filepath.Join(t.TempDir(), "fatura.db"))
	if err != nil {
		t.Fatalf("NewLedgerStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ledger := services.NewLedgerService(store, nil)
	invoices := services.NewInvoiceService(store)

	srv := NewServer(":0", ledger, invoices)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestCreateTransaction(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Kind:        "expense",
		Amount:      "45,90",
		Date:        "2024-02-10",
		Description: "mercado",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[transactionResponse](t, rec)
	if resp.ID == 0 {
		t.Error("expected assigned id")
	}
	if resp.Amount.Cents != 4590 {
		t.Errorf("Amount.Cents = %d, want 4590", resp.Amount.Cents)
	}
	if resp.Amount.Formatted != "R$ 45,90" {
		t.Errorf("Amount.Formatted = %q", resp.Amount.Formatted)
	}

	list := doJSON(t, srv, http.MethodGet, "/api/transactions?year=2024&month=2", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	items := decodeBody[[]transactionResponse](t, list)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		req  transactionRequest
		want int
	}{
		{"bad kind", transactionRequest{Kind: "transfer", Amount: "10,00", Date: "2024-02-10"}, http.StatusUnprocessableEntity},
		{"bad amount", transactionRequest{Kind: "expense", Amount: "abc", Date: "2024-02-10"}, http.StatusUnprocessableEntity},
		{"bad date", transactionRequest{Kind: "expense", Amount: "10,00", Date: "10/02/2024"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/transactions", tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestListTransactionsRejectsBadMonthQuery(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"non-numeric year", "/api/transactions?year=abc", http.StatusBadRequest},
		{"month out of range", "/api/transactions?year=2024&month=13", http.StatusBadRequest},
		{"non-numeric month", "/api/transactions?month=feb", http.StatusBadRequest},
		{"absent params default", "/api/transactions", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodGet, tt.path, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"kind":    "expense",
		"amount":  "10,00",
		"date":    "2024-02-10",
		"surpise": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodDelete, "/api/transactions/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func createCard(t *testing.T, srv *Server) cardResponse {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/cards", cardRequest{
		Name:       "Nubank",
		ClosingDay: 5,
		DueDay:     10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create card status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return decodeBody[cardResponse](t, rec)
}

func TestChargeFlow(t *testing.T) {
	srv := newTestServer(t)
	card := createCard(t, srv)

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/cards/%d/charges", card.ID), chargeRequest{
		Amount: "120,00",
		Date:   "2024-01-06",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("charge status = %d, body = %s", rec.Code, rec.Body.String())
	}

	inv := decodeBody[invoiceResponse](t, rec)
	if inv.PeriodKey != "2024-02" {
		t.Errorf("PeriodKey = %q, want 2024-02", inv.PeriodKey)
	}
	if inv.TotalAmount.Cents != 12000 {
		t.Errorf("TotalAmount.Cents = %d, want 12000", inv.TotalAmount.Cents)
	}
	if inv.Status != "open" {
		t.Errorf("Status = %q, want open", inv.Status)
	}
}

func TestInvoiceStatusTransition(t *testing.T) {
	srv := newTestServer(t)
	card := createCard(t, srv)

	charge := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/cards/%d/charges", card.ID), chargeRequest{
		Amount: "50,00",
		Date:   "2024-01-06",
	})
	inv := decodeBody[invoiceResponse](t, charge)

	rec := doJSON(t, srv, http.MethodPatch, fmt.Sprintf("/api/invoices/%d/status", inv.ID), invoiceStatusRequest{Status: "closed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPatch, fmt.Sprintf("/api/invoices/%d/status", inv.ID), invoiceStatusRequest{Status: "open"})
	if rec.Code != http.StatusConflict {
		t.Errorf("closed->open status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = doJSON(t, srv, http.MethodPatch, fmt.Sprintf("/api/invoices/%d/status", inv.ID), invoiceStatusRequest{Status: "refunded"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestPurchaseDerivesInstallmentAmount(t *testing.T) {
	srv := newTestServer(t)
	card := createCard(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/purchases", purchaseRequest{
		CardID:           card.ID,
		Description:      "notebook",
		TotalAmount:      "2400,00",
		InstallmentCount: 12,
		PurchaseDate:     "2024-01-06",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	p := decodeBody[purchaseResponse](t, rec)
	if p.InstallmentAmount.Cents != 20000 {
		t.Errorf("InstallmentAmount.Cents = %d, want 20000", p.InstallmentAmount.Cents)
	}
	if p.CurrentInstallment != 1 {
		t.Errorf("CurrentInstallment = %d, want 1", p.CurrentInstallment)
	}
}

func TestMonthOverviewIncludesInstallments(t *testing.T) {
	srv := newTestServer(t)
	card := createCard(t, srv)

	doJSON(t, srv, http.MethodPost, "/api/purchases", purchaseRequest{
		CardID:           card.ID,
		TotalAmount:      "1200,00",
		InstallmentCount: 12,
		PurchaseDate:     "2024-01-06",
	})
	doJSON(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Kind:   "income",
		Amount: "3000,00",
		Date:   "2024-02-05",
	})

	rec := doJSON(t, srv, http.MethodGet, "/api/months/2024/2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	overview := decodeBody[monthOverviewResponse](t, rec)
	if overview.Income.Cents != 300000 {
		t.Errorf("Income.Cents = %d, want 300000", overview.Income.Cents)
	}
	if overview.Expenses.Cents != 10000 {
		t.Errorf("Expenses.Cents = %d, want 10000", overview.Expenses.Cents)
	}
	if overview.Balance.Cents != 290000 {
		t.Errorf("Balance.Cents = %d, want 290000", overview.Balance.Cents)
	}
}

func TestOverviewCacheInvalidatedByMutation(t *testing.T) {
	srv := newTestServer(t)

	first := doJSON(t, srv, http.MethodGet, "/api/months/2024/3", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}
	if decodeBody[monthOverviewResponse](t, first).Expenses.Cents != 0 {
		t.Fatal("expected empty month")
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Kind:   "expense",
		Amount: "80,00",
		Date:   "2024-03-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	second := doJSON(t, srv, http.MethodGet, "/api/months/2024/3", nil)
	if got := decodeBody[monthOverviewResponse](t, second).Expenses.Cents; got != 8000 {
		t.Errorf("Expenses.Cents after mutation = %d, want 8000", got)
	}
}

func TestObligationLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/obligations", obligationRequest{
		Description: "aluguel",
		Amount:      "1500,00",
		DueDay:      5,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	o := decodeBody[obligationResponse](t, rec)
	if !o.Active {
		t.Error("expected new obligation active")
	}

	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/obligations/%d/paid", o.ID), obligationPaidRequest{Paid: true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("mark paid status = %d", rec.Code)
	}

	list := decodeBody[[]obligationResponse](t, doJSON(t, srv, http.MethodGet, "/api/obligations", nil))
	if len(list) != 1 || !list[0].PaidCurrentPeriod {
		t.Errorf("obligations = %+v, want single paid entry", list)
	}
}

func TestBudgetsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	cat := decodeBody[categoryResponse](t, doJSON(t, srv, http.MethodPost, "/api/categories", categoryRequest{
		Name:         "Eletronicos",
		Kind:         "expense",
		MonthlyLimit: "100,00",
	}))

	doJSON(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Kind:       "expense",
		Amount:     "150,00",
		Date:       "2024-04-10",
		CategoryID: cat.ID,
	})

	rec := doJSON(t, srv, http.MethodGet, "/api/months/2024/4/budgets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	lines := decodeBody[[]budgetLineJSON](t, rec)
	if len(lines) == 0 {
		t.Fatal("expected at least one budget line")
	}
	top := lines[0]
	if top.Category.ID != cat.ID {
		t.Errorf("top category = %d, want %d (over limit ranks first)", top.Category.ID, cat.ID)
	}
	if top.Percentage != 150.0 {
		t.Errorf("Percentage = %v, want 150", top.Percentage)
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := newLRUCache[int](2, 20*time.Millisecond)

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expected entry to expire")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := newLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a so b becomes the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a retained")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request 61 should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other clients should not be limited")
	}
}
