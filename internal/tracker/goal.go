package tracker

import (
	"time"

	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
)

var daysPerMonth = decimal.NewFromInt(30)

// Progress describes how far a goal is from its target.
type Progress struct {
	Progress            decimal.Decimal
	Percentage          float64
	MonthlyContribution decimal.Decimal
	DaysRemaining       int
	RemainingAmount     decimal.Decimal
}

// GoalProgress computes the progress of goal at now. Without a target date, or once it has
// passed, the whole remaining amount is reported as the monthly contribution.
func GoalProgress(goal model.Goal, now time.Time) Progress {
	current := goal.CurrentAmount

	remaining := goal.GoalAmount.Sub(current)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	daysRemaining := 0
	if goal.TargetDate != nil {
		if days := DaysUntil(*goal.TargetDate, now); days > 0 {
			daysRemaining = days
		}
	}

	monthly := remaining
	if daysRemaining > 0 {
		// remaining / (days/30)
		monthly = remaining.Mul(daysPerMonth).Div(decimal.NewFromInt(int64(daysRemaining)))
	}

	return Progress{
		Progress:            current,
		Percentage:          percentOf(current, goal.GoalAmount),
		MonthlyContribution: monthly,
		DaysRemaining:       daysRemaining,
		RemainingAmount:     remaining,
	}
}

// AddContribution returns goal with amount added. Achieved never flips back to false.
func AddContribution(goal model.Goal, amount decimal.Decimal) model.Goal {
	updated := goal
	updated.CurrentAmount = goal.CurrentAmount.Add(amount)
	if goal.Achieved || updated.CurrentAmount.GreaterThanOrEqual(goal.GoalAmount) {
		updated.Achieved = true
	}
	return updated
}
