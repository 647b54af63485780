package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"obligation-tracker/internal/model"
)

// BudgetRepository handles CRUD for budgets.
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Create(ctx context.Context, budget *model.Budget) error {
	if err := r.db.WithContext(ctx).Create(budget).Error; err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (r *BudgetRepository) ListByUser(ctx context.Context, userID uint) ([]model.Budget, error) {
	var budgets []model.Budget
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *BudgetRepository) FindByID(ctx context.Context, userID, budgetID uint) (*model.Budget, error) {
	var budget model.Budget
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, budgetID).First(&budget).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *BudgetRepository) Save(ctx context.Context, budget *model.Budget) error {
	if err := r.db.WithContext(ctx).Save(budget).Error; err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func (r *BudgetRepository) Delete(ctx context.Context, userID, budgetID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, budgetID).Delete(&model.Budget{})
	if res.Error != nil {
		return fmt.Errorf("delete budget: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
