package aggregate

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// OverallBudgetName is the title of the whole-month budget card.
const OverallBudgetName = "Monthly budget"

// Compare evaluates spend against budget. A zero budget means "unset": it
// yields zero progress and is never over budget.
func Compare(budget, spend decimal.Decimal) core.BudgetStatus {
	status := core.BudgetStatus{
		Budget:    budget,
		Spend:     spend,
		Remaining: budget.Sub(spend),
	}
	if budget.IsPositive() {
		status.Progress = spend.Div(budget).InexactFloat64()
	}
	status.OverBudget = budget.IsPositive() && spend.GreaterThan(budget)
	status.DisplayPercent = int(math.Round(math.Min(1, status.Progress) * 100))
	return status
}

// BudgetAmount is the amount the overall card compares against: the sum of
// the category lines when there are any, otherwise the stored total.
func BudgetAmount(b core.Budget) decimal.Decimal {
	if len(b.Categories) > 0 {
		sum := decimal.Zero
		for _, line := range b.Categories {
			sum = sum.Add(line.Amount)
		}
		return sum
	}
	if b.Total.Valid {
		return b.Total.Decimal
	}
	return decimal.Zero
}

// Overview builds the overall budget card and one card per budgeted
// category. byCategory holds the month's expense per category id.
func Overview(b core.Budget, totalExpense decimal.Decimal, byCategory map[string]decimal.Decimal) core.BudgetOverview {
	amount := BudgetAmount(b)
	ov := core.BudgetOverview{
		Month:     b.Month,
		BudgetSet: amount.IsPositive(),
		Overall: core.BudgetCard{
			Name:   OverallBudgetName,
			Unset:  b.IsEmpty(),
			Status: Compare(amount, totalExpense),
		},
		Categories:  make([]core.BudgetCard, 0, len(b.Categories)),
		LastUpdated: b.LastUpdated,
	}

	for id, line := range b.Categories {
		spend, ok := byCategory[id]
		if !ok {
			spend = decimal.Zero
		}
		ov.Categories = append(ov.Categories, core.BudgetCard{
			CategoryID: id,
			Name:       line.Name,
			Icon:       line.Icon,
			Unset:      !line.Amount.IsPositive(),
			Status:     Compare(line.Amount, spend),
		})
	}
	sort.Slice(ov.Categories, func(i, j int) bool {
		a, c := ov.Categories[i], ov.Categories[j]
		if a.Name != c.Name {
			return a.Name < c.Name
		}
		return a.CategoryID < c.CategoryID
	})
	return ov
}
