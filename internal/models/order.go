package models

import (
	"time"

	"github.com/partsdesk/procurement-app/internal/money"
)

// Order lifecycle. Only the delivered transition matters to the savings
// aggregator; the intermediate steps mirror the fulfilment flow.
const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order is created exactly once per converted quote request.
type Order struct {
	ID             uint `gorm:"primaryKey"`
	OrganizationID uint `gorm:"not null;index"`
	QuoteRequestID uint `gorm:"not null;uniqueIndex"` // one order per quote, enforced by the store
	SupplierID     uint `gorm:"not null;index"`
	Status         string `gorm:"size:16;not null;default:'pending';index"`
	TotalAmount    money.Money `gorm:"type:numeric(14,2)"`
	Items          []OrderItem `gorm:"foreignKey:OrderID"`
	ActualDelivery *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem carries the committed commercial terms for one line.
type OrderItem struct {
	ID         uint   `gorm:"primaryKey"`
	OrderID    uint   `gorm:"not null;index"`
	PartNumber string `gorm:"size:64;not null;index"`
	Quantity   int    `gorm:"not null"`
	UnitPrice  money.Money `gorm:"type:numeric(14,4)"`
	TotalPrice money.Money `gorm:"type:numeric(14,2)"`
	CreatedAt  time.Time
}
