package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/tracker"
)

// BudgetInput represents data required to create a budget.
type BudgetInput struct {
	Name           string
	Amount         decimal.Decimal
	Period         model.BudgetPeriod
	Category       string
	AlertThreshold float64
	DisableAlerts  bool
}

// BudgetView pairs a budget with its spending and reached alert level.
type BudgetView struct {
	Budget   model.Budget
	Spending tracker.Spending
	Level    model.AlertLevel
}

// BudgetService wraps budget business logic.
type BudgetService struct {
	budgets    *repository.BudgetRepository
	ledger     *repository.LedgerRepository
	categories *CategoryService
}

func NewBudgetService(budgets *repository.BudgetRepository, ledger *repository.LedgerRepository, categories *CategoryService) *BudgetService {
	return &BudgetService{budgets: budgets, ledger: ledger, categories: categories}
}

func (s *BudgetService) Create(ctx context.Context, user *model.User, input BudgetInput, now time.Time) (*model.Budget, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if input.AlertThreshold < 0 || input.AlertThreshold > 100 {
		return nil, fmt.Errorf("%w: alert threshold must be within 0..100", ErrInvalidInput)
	}

	period := model.ParseBudgetPeriod(string(input.Period))
	start, end := tracker.PeriodBounds(period, now)

	threshold := input.AlertThreshold
	if threshold == 0 {
		threshold = model.DefaultAlertThreshold
	}

	budget := model.Budget{
		UserID:         user.ID,
		Name:           strings.TrimSpace(input.Name),
		Amount:         input.Amount,
		Period:         period,
		StartDate:      start,
		EndDate:        end,
		EnableAlerts:   !input.DisableAlerts,
		AlertThreshold: threshold,
	}

	if strings.TrimSpace(input.Category) != "" {
		name, err := s.categories.Canonical(ctx, user, input.Category)
		if err != nil {
			return nil, err
		}
		budget.Category = name
	}
	if budget.Name == "" {
		budget.Name = defaultBudgetName(budget)
	}

	if err := s.budgets.Create(ctx, &budget); err != nil {
		return nil, err
	}
	return &budget, nil
}

func (s *BudgetService) List(ctx context.Context, user *model.User) ([]model.Budget, error) {
	return s.budgets.ListByUser(ctx, user.ID)
}

func (s *BudgetService) Delete(ctx context.Context, user *model.User, budgetID uint) error {
	return notFound(s.budgets.Delete(ctx, user.ID, budgetID), ErrBudgetNotFound)
}

// TopUp raises the allocated amount of a budget.
func (s *BudgetService) TopUp(ctx context.Context, user *model.User, budgetID uint, amount decimal.Decimal) (*model.Budget, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	budget, err := s.budgets.FindByID(ctx, user.ID, budgetID)
	if err != nil {
		return nil, notFound(err, ErrBudgetNotFound)
	}
	budget.Amount = budget.Amount.Add(amount)
	if err := s.budgets.Save(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// Progress computes spending for every budget of the user. Budgets whose window has
// ended are evaluated in the current one, but nothing is written.
func (s *BudgetService) Progress(ctx context.Context, user *model.User, now time.Time) ([]BudgetView, error) {
	return s.progress(ctx, user, now, false)
}

// Refresh is Progress that also stores budgets rolled into a new window.
func (s *BudgetService) Refresh(ctx context.Context, user *model.User, now time.Time) ([]BudgetView, error) {
	return s.progress(ctx, user, now, true)
}

func (s *BudgetService) progress(ctx context.Context, user *model.User, now time.Time, persist bool) ([]BudgetView, error) {
	budgets, err := s.budgets.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	views := make([]BudgetView, 0, len(budgets))
	for i := range budgets {
		budget := &budgets[i]
		if tracker.RollBudget(budget, now) && persist {
			if err := s.budgets.Save(ctx, budget); err != nil {
				return nil, err
			}
		}

		expenses, err := s.ledger.ListExpenses(ctx, user.ID, budget.StartDate, budget.EndDate)
		if err != nil {
			return nil, err
		}
		spending := tracker.BudgetSpending(budget, expenses)
		views = append(views, BudgetView{
			Budget:   *budget,
			Spending: spending,
			Level:    tracker.EvaluateBudgetAlert(*budget, spending),
		})
	}
	return views, nil
}

// MarkAlerted stores the level that was announced for the current window.
func (s *BudgetService) MarkAlerted(ctx context.Context, budget *model.Budget, level model.AlertLevel) error {
	budget.LastAlertLevel = level
	return s.budgets.Save(ctx, budget)
}

func defaultBudgetName(budget model.Budget) string {
	label := "Общий"
	if budget.Category != "" {
		label = budget.Category
	}
	if budget.Period == model.BudgetPeriodYearly {
		return fmt.Sprintf("%s · %d", label, budget.StartDate.Year())
	}
	return fmt.Sprintf("%s · %s", label, budget.StartDate.Format("01.2006"))
}
