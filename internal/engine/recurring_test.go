package engine

import (
	"testing"
	"time"

	"fatura/internal/core"
)

func TestIsDueInMonth(t *testing.T) {
	active := core.RecurringObligation{ID: 1, Amount: core.Money{Cents: 5000}, DueDay: 10, Active: true}
	inactive := active
	inactive.Active = false

	if !IsDueInMonth(active, 2024, 2) {
		t.Error("active obligation should be due in any month")
	}
	if !IsDueInMonth(active, 2031, 12) {
		t.Error("active obligation should be due in any future month")
	}
	if IsDueInMonth(inactive, 2024, 2) {
		t.Error("inactive obligation should never be due")
	}
}

func TestIsOverdue(t *testing.T) {
	tests := []struct {
		name string
		o    core.RecurringObligation
		asOf time.Time
		want bool
	}{
		{
			name: "due day passed and unpaid",
			o:    core.RecurringObligation{DueDay: 10, Active: true},
			asOf: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name: "due day not yet reached",
			o:    core.RecurringObligation{DueDay: 20, Active: true},
			asOf: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "due day is today",
			o:    core.RecurringObligation{DueDay: 15, Active: true},
			asOf: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "paid this period",
			o:    core.RecurringObligation{DueDay: 10, Active: true, PaidCurrentPeriod: true},
			asOf: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "inactive obligation",
			o:    core.RecurringObligation{DueDay: 10, Active: false},
			asOf: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "due day 31 clamps to end of february non-leap",
			o:    core.RecurringObligation{DueDay: 31, Active: true},
			asOf: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
			want: false, // clamped due date is the 28th, today
		},
		{
			name: "due day 31 clamped in leap february",
			o:    core.RecurringObligation{DueDay: 31, Active: true},
			asOf: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			want: false, // clamped due date is the 29th, today
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOverdue(tt.o, tt.asOf); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name string
		o    core.RecurringObligation
		asOf time.Time
		want core.Date
	}{
		{
			name: "due later this month",
			o:    core.RecurringObligation{DueDay: 20, Active: true},
			asOf: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: core.NewDate(2024, 3, 20),
		},
		{
			name: "due today",
			o:    core.RecurringObligation{DueDay: 15, Active: true},
			asOf: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: core.NewDate(2024, 3, 15),
		},
		{
			name: "already passed rolls to next month",
			o:    core.RecurringObligation{DueDay: 10, Active: true},
			asOf: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: core.NewDate(2024, 4, 10),
		},
		{
			name: "rolls across year boundary",
			o:    core.RecurringObligation{DueDay: 5, Active: true},
			asOf: time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
			want: core.NewDate(2025, 1, 5),
		},
		{
			name: "due day 31 clamps to february non-leap",
			o:    core.RecurringObligation{DueDay: 31, Active: true},
			asOf: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			want: core.NewDate(2023, 2, 28),
		},
		{
			name: "due day 31 clamps to february leap",
			o:    core.RecurringObligation{DueDay: 31, Active: true},
			asOf: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want: core.NewDate(2024, 2, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.o, tt.asOf)
			if !got.Equal(tt.want.Time) {
				t.Errorf("NextDueDate() = %v, want %v", got, tt.want)
			}
		})
	}
}
