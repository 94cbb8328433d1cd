package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/partsdesk/procurement-app/internal/collab"
	"github.com/partsdesk/procurement-app/internal/models"

	"gorm.io/gorm"
)

// Per-thread outcome labels in a batch report.
const (
	OutcomePriced   = "priced"
	OutcomeNoPrice  = "no_price_found"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "already_priced"
)

// ThreadOutcome reports what extraction did to one supplier thread.
type ThreadOutcome struct {
	ThreadID   uint   `json:"thread_id"`
	SupplierID uint   `json:"supplier_id"`
	Outcome    string `json:"outcome"`
	Detail     string `json:"detail,omitempty"`
}

// BatchResult summarizes an extraction run. One thread failing never aborts
// its siblings; the caller gets counts, not an exception.
type BatchResult struct {
	Priced    int             `json:"priced"`
	NoPrice   int             `json:"no_price"`
	Conflicts int             `json:"conflicts"`
	Failed    int             `json:"failed"`
	Threads   []ThreadOutcome `json:"threads"`
}

// Extractor orchestrates price extraction across the threads of a quote:
// pull new messages from the email collaborator, hand bodies and attachments
// to the extraction collaborator, and write any amount back idempotently.
type Extractor struct {
	DB        *gorm.DB
	Email     collab.EmailClient
	Prices    collab.PriceExtractor
	Tracker   *ThreadTracker
	Log       *slog.Logger
	// Timeout bounds each collaborator call; no store lock is held while
	// waiting.
	Timeout time.Duration
}

func NewExtractor(db *gorm.DB, email collab.EmailClient, prices collab.PriceExtractor, logger *slog.Logger, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		DB:      db,
		Email:   email,
		Prices:  prices,
		Tracker: NewThreadTracker(db),
		Log:     logger,
		Timeout: timeout,
	}
}

// Run processes every unresolved thread of the quote. Draft quotes have no
// threads to poll and are rejected.
func (e *Extractor) Run(ctx context.Context, quoteID uint) (*BatchResult, error) {
	var q models.QuoteRequest
	if err := e.DB.WithContext(ctx).First(&q, quoteID).Error; err != nil {
		return nil, err
	}
	if q.Status == models.QuoteStatusDraft {
		return nil, fmt.Errorf("quote %s not sent yet: %w", q.Number, ErrInvalidState)
	}
	var threads []models.SupplierThread
	if err := e.DB.WithContext(ctx).
		Where("quote_request_id = ?", q.ID).Order("id").Find(&threads).Error; err != nil {
		return nil, err
	}

	res := &BatchResult{}
	for _, th := range threads {
		outcome := e.processThread(ctx, &q, th)
		res.Threads = append(res.Threads, outcome)
		switch outcome.Outcome {
		case OutcomePriced:
			res.Priced++
		case OutcomeNoPrice:
			res.NoPrice++
		case OutcomeConflict:
			res.Conflicts++
		case OutcomeFailed:
			res.Failed++
		}
	}
	return res, nil
}

// processThread isolates collaborator failures to the thread at hand.
func (e *Extractor) processThread(ctx context.Context, q *models.QuoteRequest, th models.SupplierThread) ThreadOutcome {
	out := ThreadOutcome{ThreadID: th.ID, SupplierID: th.SupplierID}
	if th.Status == models.ThreadStatusRejected {
		out.Outcome = OutcomeSkipped
		return out
	}

	lctx, cancel := context.WithTimeout(ctx, e.Timeout)
	msgs, err := e.Email.ListNewMessages(lctx, th.EmailRef)
	cancel()
	if err != nil {
		out.Outcome = OutcomeFailed
		out.Detail = collab.Error{Collaborator: "email", Ref: th.EmailRef, Err: err}.Error()
		e.Log.Warn("extraction: listing messages failed", "quote", q.Number, "thread", th.ID, "err", err)
		return out
	}
	for _, m := range msgs {
		if err := e.Tracker.AppendMessage(e.DB, th.ID, "in", m); err != nil {
			out.Outcome = OutcomeFailed
			out.Detail = err.Error()
			return out
		}
	}
	if len(msgs) == 0 {
		if th.QuotedAmount.Valid {
			out.Outcome = OutcomeSkipped
		} else {
			out.Outcome = OutcomeNoPrice
		}
		return out
	}

	for _, m := range msgs {
		xctx, cancel := context.WithTimeout(ctx, e.Timeout)
		amount, err := e.Prices.ExtractAmount(xctx, m.Body, m.Attachments)
		cancel()
		if err != nil {
			out.Outcome = OutcomeFailed
			out.Detail = collab.Error{Collaborator: "extractor", Ref: th.EmailRef, Err: err}.Error()
			e.Log.Warn("extraction: collaborator failed", "quote", q.Number, "thread", th.ID, "err", err)
			return out
		}
		if amount == nil {
			continue
		}
		receivedAt := m.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now()
		}
		err = e.DB.Transaction(func(tx *gorm.DB) error {
			if err := e.Tracker.RecordQuotedAmount(tx, th.ID, *amount, receivedAt); err != nil {
				return err
			}
			// First response flips the quote sent -> received; losing the
			// race (or already being past sent) is fine.
			res := tx.Model(&models.QuoteRequest{}).
				Where("id = ? AND status = ?", q.ID, models.QuoteStatusSent).
				Update("status", models.QuoteStatusReceived)
			return res.Error
		})
		if errors.Is(err, ErrAmountConflict) {
			// A different amount for an already-priced thread is never
			// silently written; a human adjudicates.
			out.Outcome = OutcomeConflict
			out.Detail = err.Error()
			e.Log.Warn("extraction: conflicting amount", "quote", q.Number, "thread", th.ID, "err", err)
			return out
		}
		if err != nil {
			out.Outcome = OutcomeFailed
			out.Detail = err.Error()
			return out
		}
		out.Outcome = OutcomePriced
		return out
	}

	// Messages arrived but none carried a price.
	if th.QuotedAmount.Valid {
		out.Outcome = OutcomeSkipped
	} else {
		out.Outcome = OutcomeNoPrice
	}
	return out
}
