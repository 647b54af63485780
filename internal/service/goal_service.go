package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"obligation-tracker/internal/logger"
	"obligation-tracker/internal/model"
	"obligation-tracker/internal/repository"
	"obligation-tracker/internal/tracker"
)

// GoalInput represents data required to create a goal.
type GoalInput struct {
	Name          string
	Amount        decimal.Decimal
	CurrentAmount decimal.Decimal
	TargetDate    *time.Time
}

// GoalView pairs a goal with its progress at a moment.
type GoalView struct {
	Goal     model.Goal
	Progress tracker.Progress
}

// Contribution is the outcome of adding money to a goal.
type Contribution struct {
	Goal         model.Goal
	JustAchieved bool
}

// GoalService wraps savings goal business logic.
type GoalService struct {
	goals *repository.GoalRepository
}

func NewGoalService(goals *repository.GoalRepository) *GoalService {
	return &GoalService{goals: goals}
}

func (s *GoalService) Create(ctx context.Context, user *model.User, input GoalInput) (*model.Goal, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if input.CurrentAmount.IsNegative() {
		return nil, fmt.Errorf("%w: current amount cannot be negative", ErrInvalidInput)
	}

	goal := model.Goal{
		UserID:        user.ID,
		Name:          strings.TrimSpace(input.Name),
		GoalAmount:    input.Amount,
		CurrentAmount: input.CurrentAmount,
		TargetDate:    input.TargetDate,
		Achieved:      input.CurrentAmount.GreaterThanOrEqual(input.Amount),
	}
	if err := s.goals.Create(ctx, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

func (s *GoalService) List(ctx context.Context, user *model.User) ([]model.Goal, error) {
	return s.goals.ListByUser(ctx, user.ID)
}

func (s *GoalService) Delete(ctx context.Context, user *model.User, goalID uint) error {
	return notFound(s.goals.Delete(ctx, user.ID, goalID), ErrGoalNotFound)
}

// Contribute adds amount to the goal. It fails with ErrGoalNotFound for an unknown id.
func (s *GoalService) Contribute(ctx context.Context, user *model.User, goalID uint, amount decimal.Decimal) (*Contribution, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	goal, err := s.goals.FindByID(ctx, user.ID, goalID)
	if err != nil {
		return nil, notFound(err, ErrGoalNotFound)
	}

	updated := tracker.AddContribution(*goal, amount)
	if err := s.goals.SaveContribution(ctx, &updated, &model.GoalContribution{Amount: amount}); err != nil {
		return nil, err
	}

	result := &Contribution{Goal: updated, JustAchieved: updated.Achieved && !goal.Achieved}
	if result.JustAchieved {
		logger.Get().Info("goal achieved", zap.Uint("user_id", user.ID), zap.Uint("goal_id", goal.ID))
	}
	return result, nil
}

// Progress computes the state of every goal of the user at now.
func (s *GoalService) Progress(ctx context.Context, user *model.User, now time.Time) ([]GoalView, error) {
	goals, err := s.goals.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	views := make([]GoalView, 0, len(goals))
	for _, goal := range goals {
		views = append(views, GoalView{Goal: goal, Progress: tracker.GoalProgress(goal, now)})
	}
	return views, nil
}
