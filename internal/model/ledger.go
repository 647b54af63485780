package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is money spent. Expenses generated from a bill carry BillID and an IdempotencyKey.
type Expense struct {
	ID             uint            `gorm:"primaryKey"`
	UserID         uint            `gorm:"index"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Category       string          `gorm:"index"`
	Description    string
	Date           time.Time `gorm:"index"`
	BillID         *uint
	IdempotencyKey *string `gorm:"uniqueIndex"`
	CreatedAt      time.Time
}

// Revenue is money received.
type Revenue struct {
	ID          uint            `gorm:"primaryKey"`
	UserID      uint            `gorm:"index"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Description string
	Date        time.Time `gorm:"index"`
	CreatedAt   time.Time
}
