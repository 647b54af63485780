package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"obligation-tracker/internal/model"
)

// GoalRepository handles goals and their contribution history.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Create(ctx context.Context, goal *model.Goal) error {
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) ListByUser(ctx context.Context, userID uint) ([]model.Goal, error) {
	var goals []model.Goal
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("achieved ASC, target_date NULLS LAST, id ASC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *GoalRepository) FindByID(ctx context.Context, userID, goalID uint) (*model.Goal, error) {
	var goal model.Goal
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, goalID).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

// SaveContribution stores the updated goal together with the contribution row.
func (r *GoalRepository) SaveContribution(ctx context.Context, goal *model.Goal, contribution *model.GoalContribution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contribution.GoalID = goal.ID
		if err := tx.Create(contribution).Error; err != nil {
			return fmt.Errorf("create contribution: %w", err)
		}
		if err := tx.Model(goal).Updates(map[string]any{
			"current_amount": goal.CurrentAmount,
			"achieved":       goal.Achieved,
		}).Error; err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		return nil
	})
}

func (r *GoalRepository) ListContributions(ctx context.Context, goalID uint) ([]model.GoalContribution, error) {
	var contributions []model.GoalContribution
	if err := r.db.WithContext(ctx).Where("goal_id = ?", goalID).Order("created_at ASC, id ASC").
		Find(&contributions).Error; err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *GoalRepository) Delete(ctx context.Context, userID, goalID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userID, goalID).Delete(&model.Goal{})
		if res.Error != nil {
			return fmt.Errorf("delete goal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("goal_id = ?", goalID).Delete(&model.GoalContribution{}).Error; err != nil {
			return fmt.Errorf("delete contributions: %w", err)
		}
		return nil
	})
}
