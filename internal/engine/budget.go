package engine

import (
	"sort"

	"fatura/internal/core"
)

const (
	// defaultLimitFloorCents is the minimum heuristic budget assigned to a
	// category that has spend but no configured monthly limit (R$ 500).
	defaultLimitFloorCents int64 = 50000

	// warningThresholdPercent ranks categories approaching their limit
	// ahead of everything not yet in the warning band.
	warningThresholdPercent = 80.0
)

// BudgetLine is one category's budget consumption for a month.
type BudgetLine struct {
	Category   core.Category
	Limit      core.Money
	Spent      core.Money
	Percentage float64
}

// ComputeBudgets compares aggregated category spend against configured
// monthly limits and ranks the result for display.
//
// Categories without a configured limit get a heuristic default of 10% of
// the month's total expenses, floored at R$ 500 — but only when they have
// spend; a category with no limit and no spend is excluded entirely.
// The order is a stable total order: over-limit categories first, then
// those at or past the warning threshold, then by spent descending.
func ComputeBudgets(categories []core.Category, agg MonthAggregate) []BudgetLine {
	spentByID := make(map[int64]int64, len(agg.ByCategory))
	for _, ct := range agg.ByCategory {
		spentByID[ct.CategoryID] = ct.Amount.Cents
	}

	lines := make([]BudgetLine, 0, len(categories))
	for _, c := range categories {
		if c.Kind != core.Expense {
			continue
		}
		spent := spentByID[c.ID]
		limit := c.MonthlyLimit.Cents
		if limit <= 0 {
			if spent <= 0 {
				continue
			}
			limit = defaultLimit(agg.Expenses.Cents)
		}
		line := BudgetLine{
			Category: c,
			Limit:    core.Money{Cents: limit},
			Spent:    core.Money{Cents: spent},
		}
		if limit > 0 {
			line.Percentage = float64(spent) / float64(limit) * 100
		}
		lines = append(lines, line)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		ri, rj := budgetRank(lines[i]), budgetRank(lines[j])
		if ri != rj {
			return ri < rj
		}
		return lines[i].Spent.Cents > lines[j].Spent.Cents
	})
	return lines
}

func defaultLimit(totalExpenseCents int64) int64 {
	limit := totalExpenseCents / 10
	if limit < defaultLimitFloorCents {
		return defaultLimitFloorCents
	}
	return limit
}

// budgetRank orders over-limit categories before the warning band before
// everything else.
func budgetRank(l BudgetLine) int {
	switch {
	case l.Spent.Cents > l.Limit.Cents:
		return 0
	case l.Percentage >= warningThresholdPercent:
		return 1
	default:
		return 2
	}
}
