package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the repeat rule of a recurring bill.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

const (
	DefaultReminderDays = 3
	DefaultBillCategory = "Bills"
)

// Frequencies lists the supported frequencies in display order.
var Frequencies = []Frequency{
	FrequencyDaily, FrequencyWeekly, FrequencyBiweekly,
	FrequencyMonthly, FrequencyQuarterly, FrequencyYearly,
}

func (f Frequency) IsValid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFrequency normalizes user input; anything unknown becomes monthly.
func ParseFrequency(raw string) Frequency {
	f := Frequency(strings.ToLower(strings.TrimSpace(raw)))
	if !f.IsValid() {
		return FrequencyMonthly
	}
	return f
}

// RecurringBill is an obligation that repeats on a schedule.
type RecurringBill struct {
	ID           uint            `gorm:"primaryKey"`
	UserID       uint            `gorm:"index"`
	Name         string          `gorm:"not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Category     string
	Frequency    Frequency `gorm:"type:varchar(20);not null"`
	NextDueDate  time.Time `gorm:"index"`
	ReminderDays int
	AutoProcess  bool

	LastProcessed *time.Time
	// ProcessedDueDate is the due date of the occurrence that was last turned into an expense.
	ProcessedDueDate *time.Time
	// ReminderSentFor is the due date of the occurrence a reminder was already sent for.
	ReminderSentFor *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecurringBill applies defaults for fields the caller left empty.
func NewRecurringBill(userID uint, name string, amount decimal.Decimal, frequency Frequency, nextDue time.Time) RecurringBill {
	if !frequency.IsValid() {
		frequency = FrequencyMonthly
	}
	return RecurringBill{
		UserID:       userID,
		Name:         strings.TrimSpace(name),
		Amount:       amount,
		Category:     DefaultBillCategory,
		Frequency:    frequency,
		NextDueDate:  nextDue,
		ReminderDays: DefaultReminderDays,
	}
}
