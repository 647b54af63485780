package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrBillNotFound   = errors.New("bill not found")
	ErrBudgetNotFound = errors.New("budget not found")
	ErrGoalNotFound   = errors.New("goal not found")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidInput   = errors.New("invalid input")
)

// notFound maps a missing row to the service-level sentinel and passes other errors through.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
