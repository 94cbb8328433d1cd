package services

import (
	"fmt"
	"time"

	"github.com/partsdesk/procurement-app/internal/collab"
	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"

	"gorm.io/gorm"
)

// ThreadTracker owns the per-supplier communication threads of a quote:
// message history is append-only and the commercial state (quoted amount,
// responded flag) is only ever derived from thread status.
type ThreadTracker struct {
	DB *gorm.DB
}

func NewThreadTracker(db *gorm.DB) *ThreadTracker { return &ThreadTracker{DB: db} }

// AppendMessage records one message on a thread. Messages are never updated
// or deleted afterwards.
func (t *ThreadTracker) AppendMessage(tx *gorm.DB, threadID uint, direction string, msg collab.Message) error {
	row := models.ThreadMessage{
		ThreadID:   threadID,
		ExternalID: msg.ID,
		Direction:  direction,
		Subject:    msg.Subject,
		Body:       msg.Body,
		ReceivedAt: msg.ReceivedAt,
	}
	return tx.Create(&row).Error
}

// RecordQuotedAmount writes an extracted amount onto a thread, transitioning
// it to responded and stamping ResponseDate on first pricing. Re-recording
// the same amount is a no-op; a different amount returns ErrAmountConflict
// and leaves the stored value untouched.
func (t *ThreadTracker) RecordQuotedAmount(tx *gorm.DB, threadID uint, amount money.Money, at time.Time) error {
	var thread models.SupplierThread
	if err := tx.First(&thread, threadID).Error; err != nil {
		return err
	}
	if thread.QuotedAmount.Valid {
		if thread.QuotedAmount.Decimal.Equal(amount) {
			return nil
		}
		return fmt.Errorf("thread %d quoted %s, extraction returned %s: %w",
			threadID, thread.QuotedAmount.Decimal, amount, ErrAmountConflict)
	}
	updates := map[string]any{"quoted_amount": money.Some(amount)}
	if !thread.Responded() {
		updates["status"] = models.ThreadStatusResponded
	}
	if thread.ResponseDate == nil {
		updates["response_date"] = at
	}
	return tx.Model(&models.SupplierThread{}).Where("id = ?", threadID).Updates(updates).Error
}

// BestQuote is the winning thread of a best-price comparison.
type BestQuote struct {
	ThreadID     uint
	SupplierID   uint
	Amount       money.Money
	ResponseDate time.Time
}

// BestPrice picks the minimum quoted amount across the quote's threads,
// considering only threads with a non-null amount. Ties go to the earliest
// response. The second return is false when no thread has quoted yet.
func (t *ThreadTracker) BestPrice(quoteID uint) (BestQuote, bool, error) {
	var threads []models.SupplierThread
	if err := t.DB.Where("quote_request_id = ?", quoteID).Find(&threads).Error; err != nil {
		return BestQuote{}, false, err
	}
	var best BestQuote
	found := false
	for _, th := range threads {
		if !th.QuotedAmount.Valid {
			continue
		}
		respondedAt := th.UpdatedAt
		if th.ResponseDate != nil {
			respondedAt = *th.ResponseDate
		}
		if !found ||
			th.QuotedAmount.Decimal.LessThan(best.Amount) ||
			(th.QuotedAmount.Decimal.Equal(best.Amount) && respondedAt.Before(best.ResponseDate)) {
			best = BestQuote{
				ThreadID:     th.ID,
				SupplierID:   th.SupplierID,
				Amount:       th.QuotedAmount.Decimal,
				ResponseDate: respondedAt,
			}
			found = true
		}
	}
	return best, found, nil
}

// ThreadsByQuote returns the quote's threads with suppliers preloaded.
func (t *ThreadTracker) ThreadsByQuote(quoteID uint) ([]models.SupplierThread, error) {
	var threads []models.SupplierThread
	err := t.DB.Preload("Supplier").Where("quote_request_id = ?", quoteID).Order("id").Find(&threads).Error
	return threads, err
}
