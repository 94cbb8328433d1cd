package models

import "time"

// Supplier is managed by its own CRUD screens; the quote core only reads it.
type Supplier struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null;index"`
	ContactName  string
	ContactEmail string `gorm:"index"`
	Phone        string
	Rating       float64 `gorm:"default:0"` // 0..5 from past orders
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
