package tracker

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Spending is the state of a budget against the expenses inside its window.
type Spending struct {
	Spent      decimal.Decimal
	Remaining  decimal.Decimal
	Percentage float64
}

// PeriodBounds returns the calendar month or year containing now. End is inclusive.
func PeriodBounds(period model.BudgetPeriod, now time.Time) (time.Time, time.Time) {
	year, month, _ := now.Date()
	if period == model.BudgetPeriodYearly {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// BudgetSpending sums the expenses that fall into the budget window and category.
// A nil budget yields zero values.
func BudgetSpending(budget *model.Budget, expenses []model.Expense) Spending {
	if budget == nil {
		return Spending{}
	}

	category := normalizeCategory(budget.Category)
	spent := decimal.Zero
	for _, expense := range expenses {
		if expense.Date.Before(budget.StartDate) || expense.Date.After(budget.EndDate) {
			continue
		}
		if category != "" && normalizeCategory(expense.Category) != category {
			continue
		}
		spent = spent.Add(expense.Amount)
	}

	remaining := budget.Amount.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Spending{
		Spent:      spent,
		Remaining:  remaining,
		Percentage: percentOf(spent, budget.Amount),
	}
}

// EvaluateBudgetAlert returns the alert level reached by spending.
func EvaluateBudgetAlert(budget model.Budget, spending Spending) model.AlertLevel {
	if !budget.EnableAlerts {
		return model.AlertNone
	}

	threshold := budget.AlertThreshold
	if threshold <= 0 {
		threshold = model.DefaultAlertThreshold
	}

	switch {
	case spending.Percentage >= 100:
		return model.AlertExceeded
	case spending.Percentage >= threshold:
		return model.AlertWarning
	default:
		return model.AlertNone
	}
}

// ShouldSendAlert is true only when level is above what was already sent in the current window.
func ShouldSendAlert(budget model.Budget, level model.AlertLevel) bool {
	return level.Rank() > budget.LastAlertLevel.Rank()
}

// RollBudget moves an expired budget into the window containing now and clears its alert state.
// It reports whether anything changed.
func RollBudget(budget *model.Budget, now time.Time) bool {
	if budget == nil || !now.After(budget.EndDate) {
		return false
	}
	budget.StartDate, budget.EndDate = PeriodBounds(budget.Period, now)
	budget.LastAlertLevel = model.AlertNone
	return true
}

// percentOf is 0 for a zero or negative whole.
func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
