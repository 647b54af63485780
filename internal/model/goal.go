package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target the user contributes to over time.
type Goal struct {
	ID            uint            `gorm:"primaryKey"`
	UserID        uint            `gorm:"index"`
	Name          string          `gorm:"not null"`
	GoalAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TargetDate    *time.Time
	Achieved      bool `gorm:"default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Contributions []GoalContribution `gorm:"foreignKey:GoalID;constraint:OnDelete:CASCADE"`
}

// GoalContribution is one deposit into a goal.
type GoalContribution struct {
	ID        uint            `gorm:"primaryKey"`
	GoalID    uint            `gorm:"index"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	CreatedAt time.Time
}
