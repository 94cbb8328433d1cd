package models

import (
	"time"

	"github.com/partsdesk/procurement-app/internal/money"
)

// CostSavingsRecord is the monthly per-organization rollup comparing list
// price cost to actual paid cost. Uniquely keyed by (organization, month,
// year); created lazily on the first delivered order of a month and never
// deleted. SavingsPercent and AvgOrderValue are derived: they are recomputed
// from the cumulative columns inside the same transaction as every increment,
// never incremented on their own.
type CostSavingsRecord struct {
	ID             uint `gorm:"primaryKey"`
	OrganizationID uint `gorm:"not null;uniqueIndex:idx_org_month_year,priority:1"`
	Month          int  `gorm:"not null;uniqueIndex:idx_org_month_year,priority:2"`
	Year           int  `gorm:"not null;uniqueIndex:idx_org_month_year,priority:3"`

	TotalSavings    money.Money `gorm:"type:numeric(14,2)"`
	ManualCost      money.Money `gorm:"type:numeric(14,2)"` // list-price equivalent
	PlatformCost    money.Money `gorm:"type:numeric(14,2)"` // actually paid
	OrdersProcessed int         `gorm:"not null;default:0"`

	SavingsPercent money.Money `gorm:"type:numeric(7,2)"`
	AvgOrderValue  money.Money `gorm:"type:numeric(14,2)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Strategy names recorded on each ledger row.
const (
	StrategyDelivery = "delivery"
	StrategyCreation = "creation"
)

// SavingsContribution is the append-only ledger of per-order contributions
// behind the monthly rollup. The unique order index makes finalization
// idempotent and the ledger lets the rollup be rebuilt from scratch.
type SavingsContribution struct {
	ID             uint `gorm:"primaryKey"`
	OrderID        uint `gorm:"not null;uniqueIndex"`
	OrganizationID uint `gorm:"not null;index"`
	Month          int  `gorm:"not null"`
	Year           int  `gorm:"not null"`
	ManualCost     money.Money `gorm:"type:numeric(14,2)"`
	PlatformCost   money.Money `gorm:"type:numeric(14,2)"`
	Savings        money.Money `gorm:"type:numeric(14,2)"`
	Strategy       string      `gorm:"size:16;not null"` // delivery, creation
	CreatedAt      time.Time
}
