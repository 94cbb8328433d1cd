package models

import (
	"time"

	"github.com/partsdesk/procurement-app/internal/money"
)

// Quote request lifecycle states. Transitions are owned by
// services.QuoteService; nothing else writes Status.
const (
	QuoteStatusDraft       = "draft"
	QuoteStatusSent        = "sent"
	QuoteStatusReceived    = "received"
	QuoteStatusUnderReview = "under_review"
	QuoteStatusApproved    = "approved"
	QuoteStatusRejected    = "rejected"
	QuoteStatusConverted   = "converted_to_order"
	QuoteStatusExpired     = "expired"
)

// QuoteRequest bundles a set of parts sent to one or more suppliers for
// pricing.
type QuoteRequest struct {
	ID             uint   `gorm:"primaryKey"`
	Number         string `gorm:"size:20;uniqueIndex;not null"` // e.g. QR-3F2A91C4
	OrganizationID uint   `gorm:"not null;index"`
	Status         string `gorm:"size:24;not null;default:'draft';index"`
	CreatedBy      uint   `gorm:"not null;index"`
	Creator        User   `gorm:"foreignKey:CreatedBy"`
	VehicleRef     string // free-form fleet vehicle reference, optional

	PrimarySupplierID uint             `gorm:"index"`
	Suppliers         []SupplierThread `gorm:"foreignKey:QuoteRequestID"`
	Items             []QuoteItem      `gorm:"foreignKey:QuoteRequestID"`

	RequiresApproval bool
	ApprovedBy       *uint
	ApprovalNotes    string
	ApprovedAt       *time.Time

	TotalAmount        money.NullMoney `gorm:"type:numeric(14,2)"`
	SelectedSupplierID *uint           `gorm:"index"`

	RequestDate time.Time
	ExpiryDate  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether no further transition is possible.
func (q *QuoteRequest) Terminal() bool {
	switch q.Status {
	case QuoteStatusRejected, QuoteStatusConverted, QuoteStatusExpired:
		return true
	}
	return false
}

// ExpiryDue reports whether the quote should fall to expired at the given time.
func (q *QuoteRequest) ExpiryDue(now time.Time) bool {
	return !q.Terminal() && q.ExpiryDate != nil && now.After(*q.ExpiryDate)
}

// QuoteItem is one requested part line. Mutable only while the quote is in
// draft, or under review for approval-authorized actors.
type QuoteItem struct {
	ID             uint   `gorm:"primaryKey"`
	QuoteRequestID uint   `gorm:"not null;index"`
	PartNumber     string `gorm:"size:64;not null"`
	Description    string
	Quantity       int             `gorm:"not null"`
	UnitPrice      money.NullMoney `gorm:"type:numeric(14,2)"` // per-line supplier price when quoted line by line
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
