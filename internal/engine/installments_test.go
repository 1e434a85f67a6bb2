package engine

import (
	"testing"

	"fatura/internal/core"
)

func TestResolveInvoiceCycle(t *testing.T) {
	card := core.Card{ID: 1, Name: "card", ClosingDay: 5, DueDay: 10}

	tests := []struct {
		name        string
		card        core.Card
		date        core.Date
		wantPeriod  string
		wantClosing core.Date
		wantDue     core.Date
	}{
		{
			name:        "purchase on closing day stays in month",
			card:        card,
			date:        core.NewDate(2024, 1, 5),
			wantPeriod:  "2024-01",
			wantClosing: core.NewDate(2024, 1, 5),
			wantDue:     core.NewDate(2024, 1, 10),
		},
		{
			name:        "purchase after closing day rolls to next month",
			card:        card,
			date:        core.NewDate(2024, 1, 6),
			wantPeriod:  "2024-02",
			wantClosing: core.NewDate(2024, 2, 5),
			wantDue:     core.NewDate(2024, 2, 10),
		},
		{
			name:        "cycle rollover across year boundary",
			card:        card,
			date:        core.NewDate(2023, 12, 20),
			wantPeriod:  "2024-01",
			wantClosing: core.NewDate(2024, 1, 5),
			wantDue:     core.NewDate(2024, 1, 10),
		},
		{
			name:        "due day before closing day rolls due one month forward",
			card:        core.Card{ID: 2, Name: "late due", ClosingDay: 25, DueDay: 5},
			date:        core.NewDate(2024, 3, 10),
			wantPeriod:  "2024-03",
			wantClosing: core.NewDate(2024, 3, 25),
			wantDue:     core.NewDate(2024, 4, 5),
		},
		{
			name:        "closing day clamped in february",
			card:        core.Card{ID: 3, Name: "end of month", ClosingDay: 31, DueDay: 31},
			date:        core.NewDate(2024, 2, 15),
			wantPeriod:  "2024-02",
			wantClosing: core.NewDate(2024, 2, 29),
			wantDue:     core.NewDate(2024, 2, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveInvoiceCycle(tt.card, tt.date)
			if got.PeriodKey != tt.wantPeriod {
				t.Errorf("PeriodKey = %q, want %q", got.PeriodKey, tt.wantPeriod)
			}
			if !got.ClosingDate.Equal(tt.wantClosing.Time) {
				t.Errorf("ClosingDate = %v, want %v", got.ClosingDate, tt.wantClosing)
			}
			if !got.DueDate.Equal(tt.wantDue.Time) {
				t.Errorf("DueDate = %v, want %v", got.DueDate, tt.wantDue)
			}
		})
	}
}

func TestResolveInvoiceCycleIdempotent(t *testing.T) {
	card := core.Card{ID: 1, Name: "card", ClosingDay: 5, DueDay: 10}
	date := core.NewDate(2024, 1, 6)

	first := ResolveInvoiceCycle(card, date)
	second := ResolveInvoiceCycle(card, date)
	if first != second {
		t.Errorf("two calls with identical input diverged: %+v vs %+v", first, second)
	}
}

func TestResolveInstallmentForMonth(t *testing.T) {
	card := core.Card{ID: 1, Name: "card", ClosingDay: 5, DueDay: 10}
	// Purchase on 2024-01-06 falls past the closing day, so the first
	// installment lands in the February cycle.
	purchase := core.InstallmentPurchase{
		ID:                 1,
		CardID:             1,
		TotalAmount:        core.Money{Cents: 30000},
		InstallmentCount:   3,
		InstallmentAmount:  core.Money{Cents: 10000},
		PurchaseDate:       core.NewDate(2024, 1, 6),
		CurrentInstallment: 1,
	}

	tests := []struct {
		name      string
		purchase  core.InstallmentPurchase
		year      int
		month     int
		wantIndex int
		wantOK    bool
	}{
		{"month before first cycle", purchase, 2024, 1, 0, false},
		{"first installment in cycle month", purchase, 2024, 2, 1, true},
		{"second installment", purchase, 2024, 3, 2, true},
		{"third installment", purchase, 2024, 4, 3, true},
		{"past the last installment", purchase, 2024, 5, 0, false},
		{"far in the past", purchase, 2023, 6, 0, false},
		{
			name: "installments below current are already paid",
			purchase: func() core.InstallmentPurchase {
				p := purchase
				p.CurrentInstallment = 3
				return p
			}(),
			year: 2024, month: 3, wantIndex: 0, wantOK: false,
		},
		{
			name: "fully settled purchase never bills",
			purchase: func() core.InstallmentPurchase {
				p := purchase
				p.CurrentInstallment = 4
				return p
			}(),
			year: 2024, month: 4, wantIndex: 0, wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, ok := ResolveInstallmentForMonth(tt.purchase, card, tt.year, tt.month)
			if index != tt.wantIndex || ok != tt.wantOK {
				t.Errorf("ResolveInstallmentForMonth(%d, %d) = (%d, %v), want (%d, %v)",
					tt.year, tt.month, index, ok, tt.wantIndex, tt.wantOK)
			}
		})
	}
}

func TestInstallmentAmountsSumToTotal(t *testing.T) {
	// The division remainder must land in the final installment so the
	// schedule sums exactly to the purchase total.
	tests := []struct {
		name  string
		total int64
		count int
	}{
		{"even split", 30000, 3},
		{"remainder of one cent", 10000, 3},
		{"remainder of several cents", 9999, 7},
		{"single installment", 4242, 1},
		{"more installments than cents pattern", 101, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := core.InstallmentPurchase{
				TotalAmount:        core.Money{Cents: tt.total},
				InstallmentCount:   tt.count,
				CurrentInstallment: 1,
				PurchaseDate:       core.NewDate(2024, 1, 2),
			}
			var sum int64
			base := tt.total / int64(tt.count)
			for i := 1; i <= tt.count; i++ {
				amount := InstallmentAmountAt(p, i)
				if i < tt.count && amount.Cents != base {
					t.Errorf("installment %d = %d, want base %d", i, amount.Cents, base)
				}
				sum += amount.Cents
			}
			if sum != tt.total {
				t.Errorf("installments sum to %d, want %d", sum, tt.total)
			}
		})
	}
}

func TestInstallmentAmountAtOutOfRange(t *testing.T) {
	p := core.InstallmentPurchase{
		TotalAmount:        core.Money{Cents: 30000},
		InstallmentCount:   3,
		CurrentInstallment: 1,
		PurchaseDate:       core.NewDate(2024, 1, 2),
	}
	for _, index := range []int{0, -1, 4} {
		if got := InstallmentAmountAt(p, index); got.Cents != 0 {
			t.Errorf("index %d: expected zero amount, got %d", index, got.Cents)
		}
	}
}
