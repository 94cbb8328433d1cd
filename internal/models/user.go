package models

import "time"

// User & auth related models
type User struct {
	ID             uint   `gorm:"primaryKey"`
	Email          string `gorm:"unique;not null;index"`
	Password       string `gorm:"not null"` // bcrypt hash
	FirstName      string `gorm:"index"`
	LastName       string `gorm:"index"`
	OrganizationID uint   `gorm:"not null;index"`
	Organization   Organization
	RoleID         uint
	Role           Role `gorm:"foreignKey:RoleID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"unique;not null"` // admin, manager, requester
	Description string
	// Permissions is a comma-separated list of "resource:action" grants
	// consumed by the policy resolver (e.g. "quote:approve,quote:*").
	Permissions string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Organization scopes fleets, quotes and the monthly savings rollups.
type Organization struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
