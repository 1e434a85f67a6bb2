package engine

import (
	"sort"
	"time"

	"fatura/internal/core"
)

// UncategorizedName is the fallback bucket for records without a category.
const UncategorizedName = "Uncategorized"

// Snapshot is the in-memory ledger view the aggregator computes over.
// Callers load it from the ledger store; the engine never fetches data.
type Snapshot struct {
	Transactions []core.Transaction
	Purchases    []core.InstallmentPurchase
	Invoices     []core.CardInvoice
	Recurring    []core.RecurringObligation
	Cards        []core.Card
	Categories   []core.Category
}

// CategoryTotal is one category's aggregated expense for a month.
// CategoryID zero identifies the uncategorized bucket.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Amount     core.Money
}

// MonthAggregate is the consolidated result for one calendar month.
type MonthAggregate struct {
	Year       int
	Month      int
	Income     core.Money
	Expenses   core.Money
	ByCategory []CategoryTotal
}

// ComputeMonth produces income, expense and per-category totals for an
// arbitrary calendar month from a ledger snapshot.
//
// Four record kinds contribute:
//  1. transactions dated in the target month;
//  2. installment purchases whose schedule bills an installment in the
//     target month (via ResolveInstallmentForMonth, the single formula);
//  3. card invoices whose cycle is the target month — regardless of
//     payment status, so paying an invoice never changes a month's
//     history — plus open invoices already overdue as of asOf;
//  4. active recurring obligations, which bill every month.
//
// The function is pure: identical snapshot and asOf yield identical
// output, with no wall-clock reads.
func ComputeMonth(year, month int, snap Snapshot, asOf time.Time) MonthAggregate {
	agg := MonthAggregate{Year: year, Month: month}
	buckets := newCategoryBuckets(snap.Categories)
	cardsByID := make(map[int64]core.Card, len(snap.Cards))
	for _, c := range snap.Cards {
		cardsByID[c.ID] = c
	}

	for _, t := range snap.Transactions {
		if t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		switch t.Kind {
		case core.Income:
			agg.Income = agg.Income.Add(t.Amount)
		case core.Expense:
			agg.Expenses = agg.Expenses.Add(t.Amount)
			buckets.add(t.CategoryID, t.Amount)
		}
	}

	for _, p := range snap.Purchases {
		index, ok := ResolveInstallmentForMonth(p, cardOrDefault(cardsByID, p.CardID), year, month)
		if !ok {
			continue
		}
		amount := InstallmentAmountAt(p, index)
		agg.Expenses = agg.Expenses.Add(amount)
		buckets.add(p.CategoryID, amount)
	}

	key := MonthKey(year, month)
	for _, inv := range snap.Invoices {
		// Zero-total invoices exist as landing spots for installment
		// cycles; they contribute nothing.
		if inv.TotalAmount.Cents == 0 {
			continue
		}
		carriedOver := inv.Status == core.InvoiceOpen && !inv.DueDate.After(asOf)
		if inv.PeriodKey != key && !carriedOver {
			continue
		}
		agg.Expenses = agg.Expenses.Add(inv.TotalAmount)
		buckets.add(0, inv.TotalAmount)
	}

	for _, o := range snap.Recurring {
		if !IsDueInMonth(o, year, month) {
			continue
		}
		agg.Expenses = agg.Expenses.Add(o.Amount)
		buckets.add(o.CategoryID, o.Amount)
	}

	agg.ByCategory = buckets.sorted()
	return agg
}

// ProjectMonth computes forward-looking totals for a month that has not
// fully elapsed. It is the same algorithm as ComputeMonth with no
// special-casing: every installment scheduled for the month, every
// active obligation and every invoice landing in the month is included
// whether or not asOf has reached it.
func ProjectMonth(year, month int, snap Snapshot, asOf time.Time) MonthAggregate {
	return ComputeMonth(year, month, snap, asOf)
}

// cardOrDefault returns the purchase's card, or a stand-in whose closing
// day never rolls the cycle forward when the card is missing from the
// snapshot.
func cardOrDefault(cards map[int64]core.Card, cardID int64) core.Card {
	if c, ok := cards[cardID]; ok {
		return c
	}
	return core.Card{ID: cardID, ClosingDay: 31, DueDay: 31}
}

// categoryBuckets accumulates per-category expense, routing unknown
// category IDs to the uncategorized bucket.
type categoryBuckets struct {
	names  map[int64]string
	totals map[int64]int64
}

func newCategoryBuckets(categories []core.Category) *categoryBuckets {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return &categoryBuckets{names: names, totals: make(map[int64]int64)}
}

func (b *categoryBuckets) add(categoryID int64, amount core.Money) {
	if _, known := b.names[categoryID]; !known {
		categoryID = 0
	}
	b.totals[categoryID] += amount.Cents
}

// sorted returns the buckets ordered by category ID with the
// uncategorized bucket last, so output is deterministic for a snapshot.
func (b *categoryBuckets) sorted() []CategoryTotal {
	out := make([]CategoryTotal, 0, len(b.totals))
	for id, cents := range b.totals {
		name := b.names[id]
		if id == 0 {
			name = UncategorizedName
		}
		out = append(out, CategoryTotal{CategoryID: id, Name: name, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].CategoryID == 0) != (out[j].CategoryID == 0) {
			return out[j].CategoryID == 0
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}
