package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"obligation-tracker/internal/model"
)

// LedgerRepository stores expenses and revenues.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) CreateExpense(ctx context.Context, expense *model.Expense) error {
	expense.Date = expense.Date.UTC()
	if err := r.db.WithContext(ctx).Create(expense).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (r *LedgerRepository) CreateRevenue(ctx context.Context, revenue *model.Revenue) error {
	revenue.Date = revenue.Date.UTC()
	if err := r.db.WithContext(ctx).Create(revenue).Error; err != nil {
		return fmt.Errorf("create revenue: %w", err)
	}
	return nil
}

// ListExpenses returns expenses of the user dated within [from, to].
func (r *LedgerRepository) ListExpenses(ctx context.Context, userID uint, from, to time.Time) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from.UTC(), to.UTC()).
		Order("date ASC, id ASC").
		Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

// ListRevenues returns revenues of the user dated within [from, to].
func (r *LedgerRepository) ListRevenues(ctx context.Context, userID uint, from, to time.Time) ([]model.Revenue, error) {
	var revenues []model.Revenue
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from.UTC(), to.UTC()).
		Order("date ASC, id ASC").
		Find(&revenues).Error; err != nil {
		return nil, err
	}
	return revenues, nil
}
