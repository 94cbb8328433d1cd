package models

import (
	"time"

	"github.com/partsdesk/procurement-app/internal/money"
)

// Supplier thread states. A thread is created in "sent" when the quote fans
// out and only ever moves forward; threads are never deleted.
const (
	ThreadStatusPending   = "pending"
	ThreadStatusSent      = "sent"
	ThreadStatusResponded = "responded"
	ThreadStatusAccepted  = "accepted"
	ThreadStatusRejected  = "rejected"
)

// SupplierThread is the per-supplier communication and commercial-state
// record attached to a quote request. At most one exists per
// (quote, supplier) pair.
type SupplierThread struct {
	ID             uint     `gorm:"primaryKey"`
	QuoteRequestID uint     `gorm:"not null;index;uniqueIndex:idx_quote_supplier,priority:1"`
	SupplierID     uint     `gorm:"not null;uniqueIndex:idx_quote_supplier,priority:2"`
	Supplier       Supplier `gorm:"foreignKey:SupplierID"`
	Status         string   `gorm:"size:16;not null;default:'pending'"`
	// EmailRef identifies the conversation at the email collaborator.
	EmailRef     string          `gorm:"size:64;index"`
	QuotedAmount money.NullMoney `gorm:"type:numeric(14,2)"`
	ResponseDate *time.Time
	Messages     []ThreadMessage `gorm:"foreignKey:ThreadID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Responded is derived from status, never stored.
func (t *SupplierThread) Responded() bool {
	return t.Status == ThreadStatusResponded || t.Status == ThreadStatusAccepted
}

// ThreadMessage is one message in a supplier thread. Append-only: rows are
// inserted and never updated.
type ThreadMessage struct {
	ID         uint   `gorm:"primaryKey"`
	ThreadID   uint   `gorm:"not null;index"`
	ExternalID string `gorm:"size:128;index"` // message id at the email collaborator
	Direction  string `gorm:"size:8;not null"` // out, in
	Subject    string
	Body       string `gorm:"type:text"`
	ReceivedAt time.Time
	CreatedAt  time.Time
}
