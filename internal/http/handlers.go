package http

import (
	"net/http"
	"time"

	"fatura/internal/core"
	"fatura/internal/engine"
)

// Wire representations. Amounts travel as decimal strings ("120,50") on the
// way in and as cents plus a formatted string on the way out, so clients
// never do float math on money.

type moneyJSON struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

func toMoneyJSON(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Formatted: m.String()}
}

type transactionRequest struct {
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	CategoryID  int64  `json:"category_id,omitempty"`
	Description string `json:"description,omitempty"`
}

type transactionResponse struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Amount      moneyJSON `json:"amount"`
	Date        string    `json:"date"`
	CategoryID  int64     `json:"category_id,omitempty"`
	Description string    `json:"description,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Amount:      toMoneyJSON(t.Amount),
		Date:        t.Date.Format("2006-01-02"),
		CategoryID:  t.CategoryID,
		Description: t.Description,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tx := core.Transaction{
		Kind:        core.TransactionKind(req.Kind),
		Amount:      amount,
		Date:        date,
		CategoryID:  req.CategoryID,
		Description: sanitizeInput(req.Description),
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.ledger.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateViews()
	writeJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := s.ledger.Transactions(r.Context(), year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateViews()
	writeJSON(w, http.StatusNoContent, nil)
}

type cardRequest struct {
	Name        string `json:"name"`
	ClosingDay  int    `json:"closing_day"`
	DueDay      int    `json:"due_day"`
	CreditLimit string `json:"credit_limit,omitempty"`
}

type cardResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ClosingDay  int       `json:"closing_day"`
	DueDay      int       `json:"due_day"`
	CreditLimit moneyJSON `json:"credit_limit"`
}

func toCardResponse(c core.Card) cardResponse {
	return cardResponse{
		ID:          c.ID,
		Name:        c.Name,
		ClosingDay:  c.ClosingDay,
		DueDay:      c.DueDay,
		CreditLimit: toMoneyJSON(c.CreditLimit),
	}
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card := core.Card{
		Name:       sanitizeInput(req.Name),
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
	}
	if req.CreditLimit != "" {
		limit, err := parseAmount(req.CreditLimit)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		card.CreditLimit = limit
	}
	if err := card.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.ledger.AddCard(r.Context(), card)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(saved))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.ledger.Cards(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type chargeRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req chargeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	inv, err := s.invoices.Charge(r.Context(), cardID, date, amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateViews()
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

type categoryRequest struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	MonthlyLimit string `json:"monthly_limit,omitempty"`
}

type categoryResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	MonthlyLimit moneyJSON `json:"monthly_limit"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Kind:         string(c.Kind),
		MonthlyLimit: toMoneyJSON(c.MonthlyLimit),
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cat := core.Category{
		Name: sanitizeInput(req.Name),
		Kind: core.TransactionKind(req.Kind),
	}
	if req.MonthlyLimit != "" {
		limit, err := parseAmount(req.MonthlyLimit)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		cat.MonthlyLimit = limit
	}
	if err := cat.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.ledger.AddCategory(r.Context(), cat)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(saved))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type categoryLimitRequest struct {
	MonthlyLimit string `json:"monthly_limit"`
}

func (s *Server) handleSetCategoryLimit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req categoryLimitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseAmount(req.MonthlyLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.ledger.SetCategoryLimit(r.Context(), id, limit); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateViews()
	writeJSON(w, http.StatusNoContent, nil)
}

type purchaseRequest struct {
	CardID           int64  `json:"card_id"`
	Description      string `json:"description,omitempty"`
	TotalAmount      string `json:"total_amount"`
	InstallmentCount int    `json:"installment_count"`
	PurchaseDate     string `json:"purchase_date"`
	CategoryID       int64  `json:"category_id,omitempty"`
	IsRecurring      bool   `json:"is_recurring,omitempty"`
}

type purchaseResponse struct {
	ID                 int64     `json:"id"`
	CardID             int64     `json:"card_id"`
	Description        string    `json:"description,omitempty"`
	TotalAmount        moneyJSON `json:"total_amount"`
	InstallmentCount   int       `json:"installment_count"`
	InstallmentAmount  moneyJSON `json:"installment_amount"`
	PurchaseDate       string    `json:"purchase_date"`
	CurrentInstallment int       `json:"current_installment"`
	CategoryID         int64     `json:"category_id,omitempty"`
	IsRecurring        bool      `json:"is_recurring"`
	Settled            bool      `json:"settled"`
}

func toPurchaseResponse(p core.InstallmentPurchase) purchaseResponse {
	return purchaseResponse{
		ID:                 p.ID,
		CardID:             p.CardID,
		Description:        p.Description,
		TotalAmount:        toMoneyJSON(p.TotalAmount),
		InstallmentCount:   p.InstallmentCount,
		InstallmentAmount:  toMoneyJSON(p.InstallmentAmount),
		PurchaseDate:       p.PurchaseDate.Format("2006-01-02"),
		CurrentInstallment: p.CurrentInstallment,
		CategoryID:         p.CategoryID,
		IsRecurring:        p.IsRecurring,
		Settled:            p.Settled(),
	}
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := parseAmount(req.TotalAmount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	date, err := parseDate(req.PurchaseDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	p := core.InstallmentPurchase{
		CardID:           req.CardID,
		Description:      sanitizeInput(req.Description),
		TotalAmount:      total,
		InstallmentCount: req.InstallmentCount,
		PurchaseDate:     date,
		CategoryID:       req.CategoryID,
		IsRecurring:      req.IsRecurring,
	}
	p.CurrentInstallment = 1
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.ledger.RecordPurchase(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateViews()
	writeJSON(w, http.StatusCreated, toPurchaseResponse(saved))
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := s.ledger.Purchases(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, toPurchaseResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.DeletePurchase(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateViews()
	writeJSON(w, http.StatusNoContent, nil)
}

type obligationRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	DueDay      int    `json:"due_day"`
	CategoryID  int64  `json:"category_id,omitempty"`
}

type obligationResponse struct {
	ID                int64     `json:"id"`
	Description       string    `json:"description"`
	Amount            moneyJSON `json:"amount"`
	DueDay            int       `json:"due_day"`
	CategoryID        int64     `json:"category_id,omitempty"`
	Active            bool      `json:"active"`
	PaidCurrentPeriod bool      `json:"paid_current_period"`
}

func toObligationResponse(o core.RecurringObligation) obligationResponse {
	return obligationResponse{
		ID:                o.ID,
		Description:       o.Description,
		Amount:            toMoneyJSON(o.Amount),
		DueDay:            o.DueDay,
		CategoryID:        o.CategoryID,
		Active:            o.Active,
		PaidCurrentPeriod: o.PaidCurrentPeriod,
	}
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	var req obligationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	o := core.RecurringObligation{
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		DueDay:      req.DueDay,
		CategoryID:  req.CategoryID,
		Active:      true,
	}
	if err := o.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.ledger.AddObligation(r.Context(), o)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateViews()
	writeJSON(w, http.StatusCreated, toObligationResponse(saved))
}

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	obligations, err := s.ledger.Obligations(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]obligationResponse, 0, len(obligations))
	for _, o := range obligations {
		out = append(out, toObligationResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOverdueObligations(w http.ResponseWriter, r *http.Request) {
	overdue, err := s.ledger.OverdueObligations(r.Context(), time.Now())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]obligationResponse, 0, len(overdue))
	for _, o := range overdue {
		out = append(out, toObligationResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type obligationPaidRequest struct {
	Paid bool `json:"paid"`
}

func (s *Server) handleSetObligationPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req obligationPaidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.MarkObligationPaid(r.Context(), id, req.Paid); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateViews()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteObligation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.DeleteObligation(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateViews()
	writeJSON(w, http.StatusNoContent, nil)
}

type invoiceResponse struct {
	ID          int64     `json:"id"`
	CardID      int64     `json:"card_id"`
	PeriodKey   string    `json:"period_key"`
	ClosingDate string    `json:"closing_date"`
	DueDate     string    `json:"due_date"`
	Status      string    `json:"status"`
	TotalAmount moneyJSON `json:"total_amount"`
}

func toInvoiceResponse(inv core.CardInvoice) invoiceResponse {
	return invoiceResponse{
		ID:          inv.ID,
		CardID:      inv.CardID,
		PeriodKey:   inv.PeriodKey,
		ClosingDate: inv.ClosingDate.Format("2006-01-02"),
		DueDate:     inv.DueDate.Format("2006-01-02"),
		Status:      string(inv.Status),
		TotalAmount: toMoneyJSON(inv.TotalAmount),
	}
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.invoices.Invoices(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := s.invoices.Invoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

type invoiceStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req invoiceStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := core.InvoiceStatus(req.Status)
	if err := status.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	inv, err := s.invoices.SetStatus(r.Context(), id, status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateViews()
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

type categoryTotalJSON struct {
	CategoryID int64     `json:"category_id,omitempty"`
	Name       string    `json:"name"`
	Amount     moneyJSON `json:"amount"`
}

type monthOverviewResponse struct {
	Year       int                 `json:"year"`
	Month      int                 `json:"month"`
	Income     moneyJSON           `json:"income"`
	Expenses   moneyJSON           `json:"expenses"`
	Balance    moneyJSON           `json:"balance"`
	ByCategory []categoryTotalJSON `json:"by_category"`
}

func toMonthOverviewResponse(agg engine.MonthAggregate) monthOverviewResponse {
	out := monthOverviewResponse{
		Year:       agg.Year,
		Month:      agg.Month,
		Income:     toMoneyJSON(agg.Income),
		Expenses:   toMoneyJSON(agg.Expenses),
		Balance:    toMoneyJSON(core.Money{Cents: agg.Income.Cents - agg.Expenses.Cents}),
		ByCategory: make([]categoryTotalJSON, 0, len(agg.ByCategory)),
	}
	for _, ct := range agg.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryTotalJSON{
			CategoryID: ct.CategoryID,
			Name:       ct.Name,
			Amount:     toMoneyJSON(ct.Amount),
		})
	}
	return out
}

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := s.cacheKey(year, month)
	if agg, ok := s.overviewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toMonthOverviewResponse(agg))
		return
	}

	agg, err := s.ledger.MonthOverview(r.Context(), year, month, time.Now())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.overviewCache.Set(key, agg)
	writeJSON(w, http.StatusOK, toMonthOverviewResponse(agg))
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	agg, err := s.ledger.Projection(r.Context(), year, month, time.Now())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthOverviewResponse(agg))
}

type budgetLineJSON struct {
	Category   categoryResponse `json:"category"`
	Limit      moneyJSON        `json:"limit"`
	Spent      moneyJSON        `json:"spent"`
	Percentage float64          `json:"percentage"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines, err := s.ledger.Budgets(r.Context(), year, month, time.Now())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]budgetLineJSON, 0, len(lines))
	for _, l := range lines {
		out = append(out, budgetLineJSON{
			Category:   toCategoryResponse(l.Category),
			Limit:      toMoneyJSON(l.Limit),
			Spent:      toMoneyJSON(l.Spent),
			Percentage: l.Percentage,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
