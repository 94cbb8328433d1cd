package models

import (
	"strings"
	"time"

	"github.com/partsdesk/procurement-app/internal/money"
)

// OperationalPrefix marks order lines that are not real parts (shipping, tax
// placeholders). Lines with this part-number prefix never count toward
// savings.
const OperationalPrefix = "OP-"

// Part is a catalog entry carrying the OEM list price used as the
// "would have cost" baseline for savings.
type Part struct {
	ID          uint   `gorm:"primaryKey"`
	PartNumber  string `gorm:"size:64;uniqueIndex;not null"`
	Description string
	Price       money.Money `gorm:"type:numeric(14,2)"` // OEM list price
	Cost        money.Money `gorm:"type:numeric(14,2)"` // fallback when Price is unset
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListPrice returns the savings baseline: Price when positive, else Cost.
// The second return is false when neither is usable.
func (p *Part) ListPrice() (money.Money, bool) {
	if p.Price.IsPositive() {
		return p.Price, true
	}
	if p.Cost.IsPositive() {
		return p.Cost, true
	}
	return money.Zero, false
}

// IsOperational reports whether a part number denotes a shipping/tax style
// placeholder line.
func IsOperational(partNumber string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(partNumber)), OperationalPrefix)
}
