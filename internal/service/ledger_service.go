package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/tracker"
)

// EntryInput is a manual expense or revenue.
type EntryInput struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        time.Time
}

// MonthTotals summarizes money in and out for a calendar month.
type MonthTotals struct {
	Income  decimal.Decimal
	Spent   decimal.Decimal
	Balance decimal.Decimal
}

// LedgerService records expenses and revenues.
type LedgerService struct {
	ledger     *repository.LedgerRepository
	categories *CategoryService
}

func NewLedgerService(ledger *repository.LedgerRepository, categories *CategoryService) *LedgerService {
	return &LedgerService{ledger: ledger, categories: categories}
}

func (s *LedgerService) AddExpense(ctx context.Context, user *model.User, input EntryInput) (*model.Expense, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	expense := model.Expense{
		UserID:      user.ID,
		Amount:      input.Amount,
		Description: strings.TrimSpace(input.Description),
		Date:        input.Date,
	}
	if strings.TrimSpace(input.Category) != "" {
		name, err := s.categories.Canonical(ctx, user, input.Category)
		if err != nil {
			return nil, err
		}
		expense.Category = name
	}

	if err := s.ledger.CreateExpense(ctx, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *LedgerService) AddRevenue(ctx context.Context, user *model.User, input EntryInput) (*model.Revenue, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	revenue := model.Revenue{
		UserID:      user.ID,
		Amount:      input.Amount,
		Description: strings.TrimSpace(input.Description),
		Date:        input.Date,
	}
	if err := s.ledger.CreateRevenue(ctx, &revenue); err != nil {
		return nil, err
	}
	return &revenue, nil
}

// ListExpenses returns the expenses of the calendar month containing now.
func (s *LedgerService) ListExpenses(ctx context.Context, user *model.User, now time.Time) ([]model.Expense, error) {
	start, end := tracker.PeriodBounds(model.BudgetPeriodMonthly, now)
	return s.ledger.ListExpenses(ctx, user.ID, start, end)
}

// MonthTotals returns income, spending and their difference for the month containing now.
func (s *LedgerService) MonthTotals(ctx context.Context, user *model.User, now time.Time) (MonthTotals, error) {
	start, end := tracker.PeriodBounds(model.BudgetPeriodMonthly, now)

	expenses, err := s.ledger.ListExpenses(ctx, user.ID, start, end)
	if err != nil {
		return MonthTotals{}, err
	}
	revenues, err := s.ledger.ListRevenues(ctx, user.ID, start, end)
	if err != nil {
		return MonthTotals{}, err
	}

	totals := MonthTotals{Income: decimal.Zero, Spent: decimal.Zero}
	for _, e := range expenses {
		totals.Spent = totals.Spent.Add(e.Amount)
	}
	for _, r := range revenues {
		totals.Income = totals.Income.Add(r.Amount)
	}
	totals.Balance = totals.Income.Sub(totals.Spent)
	return totals, nil
}
