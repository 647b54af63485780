package model

import "time"

// Category groups expenses by area (food, rent, transport, etc.).
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index:idx_user_category_name,unique"`
	Name      string `gorm:"index:idx_user_category_name,unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
