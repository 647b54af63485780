package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the calendar window a budget is measured over.
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

const DefaultAlertThreshold = 80

// ParseBudgetPeriod returns monthly for anything that is not "yearly".
func ParseBudgetPeriod(raw string) BudgetPeriod {
	if BudgetPeriod(strings.ToLower(strings.TrimSpace(raw))) == BudgetPeriodYearly {
		return BudgetPeriodYearly
	}
	return BudgetPeriodMonthly
}

// AlertLevel is the severity reached by a budget in its current window.
type AlertLevel string

const (
	AlertNone     AlertLevel = ""
	AlertWarning  AlertLevel = "warning"
	AlertExceeded AlertLevel = "exceeded"
)

// Rank orders levels so that a higher level can be detected.
func (l AlertLevel) Rank() int {
	switch l {
	case AlertWarning:
		return 1
	case AlertExceeded:
		return 2
	default:
		return 0
	}
}

// Budget caps spending over a period, optionally for one category only.
type Budget struct {
	ID             uint            `gorm:"primaryKey"`
	UserID         uint            `gorm:"index"`
	Name           string          `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Period         BudgetPeriod    `gorm:"type:varchar(10);not null"`
	Category       string
	StartDate      time.Time
	EndDate        time.Time
	EnableAlerts   bool
	AlertThreshold float64
	LastAlertLevel AlertLevel `gorm:"type:varchar(10)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
