package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/partsdesk/procurement-app/internal/collab"
	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"
	"github.com/partsdesk/procurement-app/internal/policy"

	"gorm.io/gorm"
)

// QuoteService owns every status transition of a quote request. Transitions
// are linearized with a compare-and-swap on the status column: two
// concurrent calls racing on the same edge see exactly one winner.
type QuoteService struct {
	DB     *gorm.DB
	Authz  policy.Authorizer
	Email  collab.EmailClient
	// Timeout bounds every email collaborator wait. No store lock is held
	// while waiting: outbound mail goes out after the fan-out commits.
	Timeout time.Duration
}

func NewQuoteService(db *gorm.DB, authz policy.Authorizer, email collab.EmailClient, timeout time.Duration) *QuoteService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &QuoteService{DB: db, Authz: authz, Email: email, Timeout: timeout}
}

// CreateQuoteInput carries the fields a caller provides for a new draft.
type CreateQuoteInput struct {
	OrganizationID uint
	CreatedBy      uint
	VehicleRef     string
	ExpiryDate     *time.Time
}

// Create opens a new quote request in draft.
func (s *QuoteService) Create(ctx context.Context, in CreateQuoteInput) (*models.QuoteRequest, error) {
	if in.OrganizationID == 0 || in.CreatedBy == 0 {
		return nil, fmt.Errorf("organization and creator required: %w", ErrInvalidState)
	}
	q := models.QuoteRequest{
		Number:         newQuoteNumber(),
		OrganizationID: in.OrganizationID,
		Status:         models.QuoteStatusDraft,
		CreatedBy:      in.CreatedBy,
		VehicleRef:     in.VehicleRef,
		RequestDate:    time.Now(),
		ExpiryDate:     in.ExpiryDate,
	}
	if err := s.DB.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func newQuoteNumber() string {
	return "QR-" + strings.ToUpper(uuid.NewString()[:8])
}

// Get loads a quote with items and threads, applying the expiry guard first
// so callers never see a stale non-terminal status past its expiry date.
func (s *QuoteService) Get(ctx context.Context, quoteID uint) (*models.QuoteRequest, error) {
	q, err := s.loadCurrent(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("Suppliers.Supplier").
		First(q, q.ID).Error; err != nil {
		return nil, err
	}
	return q, nil
}

// loadCurrent fetches the quote and lets it fall to expired when its expiry
// date has elapsed (reachable from any non-terminal state).
func (s *QuoteService) loadCurrent(ctx context.Context, quoteID uint) (*models.QuoteRequest, error) {
	var q models.QuoteRequest
	if err := s.DB.WithContext(ctx).First(&q, quoteID).Error; err != nil {
		return nil, err
	}
	if q.ExpiryDue(time.Now()) {
		res := s.DB.WithContext(ctx).Model(&models.QuoteRequest{}).
			Where("id = ? AND status = ?", q.ID, q.Status).
			Update("status", models.QuoteStatusExpired)
		if res.Error != nil {
			return nil, res.Error
		}
		// Either we expired it or a concurrent writer moved it; reload.
		if err := s.DB.WithContext(ctx).First(&q, quoteID).Error; err != nil {
			return nil, err
		}
		if q.ExpiryDue(time.Now()) {
			q.Status = models.QuoteStatusExpired
		}
	}
	return &q, nil
}

// cas performs the compare-and-swap transition from -> to, with extra column
// updates applied atomically. RowsAffected == 0 means a concurrent writer
// won or the quote is not in the expected state.
func casStatus(tx *gorm.DB, quoteID uint, from, to string, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.QuoteRequest{}).
		Where("id = ? AND status = ?", quoteID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transition %s -> %s rejected: %w", from, to, ErrInvalidState)
	}
	return nil
}

// ItemInput is one requested part line.
type ItemInput struct {
	PartNumber  string
	Description string
	Quantity    int
	UnitPrice   *money.Money
}

func (s *QuoteService) editable(ctx context.Context, actorID uint, q *models.QuoteRequest) error {
	switch q.Status {
	case models.QuoteStatusDraft, models.QuoteStatusUnderReview:
	default:
		return fmt.Errorf("items frozen in status %s: %w", q.Status, ErrInvalidState)
	}
	if !s.Authz.CanEditQuoteItems(ctx, actorID, q) {
		return fmt.Errorf("actor %d may not edit items of quote %s: %w", actorID, q.Number, ErrPermissionDenied)
	}
	return nil
}

// AddItem appends a line to the quote. Permitted in draft, or under review
// for approval-authorized actors.
func (s *QuoteService) AddItem(ctx context.Context, actorID, quoteID uint, in ItemInput) (*models.QuoteItem, error) {
	q, err := s.loadCurrent(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if err := s.editable(ctx, actorID, q); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.PartNumber) == "" || in.Quantity <= 0 {
		return nil, fmt.Errorf("part number and positive quantity required: %w", ErrInvalidState)
	}
	item := models.QuoteItem{
		QuoteRequestID: q.ID,
		PartNumber:     strings.TrimSpace(in.PartNumber),
		Description:    in.Description,
		Quantity:       in.Quantity,
	}
	if in.UnitPrice != nil {
		item.UnitPrice = money.Some(*in.UnitPrice)
	}
	if err := s.DB.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem rewrites an existing line under the same editability rules.
func (s *QuoteService) UpdateItem(ctx context.Context, actorID, quoteID, itemID uint, in ItemInput) error {
	q, err := s.loadCurrent(ctx, quoteID)
	if err != nil {
		return err
	}
	if err := s.editable(ctx, actorID, q); err != nil {
		return err
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("positive quantity required: %w", ErrInvalidState)
	}
	updates := map[string]any{
		"description": in.Description,
		"quantity":    in.Quantity,
	}
	if strings.TrimSpace(in.PartNumber) != "" {
		updates["part_number"] = strings.TrimSpace(in.PartNumber)
	}
	if in.UnitPrice != nil {
		updates["unit_price"] = money.Some(*in.UnitPrice)
	}
	res := s.DB.WithContext(ctx).Model(&models.QuoteItem{}).
		Where("id = ? AND quote_request_id = ?", itemID, q.ID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveItem deletes a line under the same editability rules.
func (s *QuoteService) RemoveItem(ctx context.Context, actorID, quoteID, itemID uint) error {
	q, err := s.loadCurrent(ctx, quoteID)
	if err != nil {
		return err
	}
	if err := s.editable(ctx, actorID, q); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).
		Where("id = ? AND quote_request_id = ?", itemID, q.ID).
		Delete(&models.QuoteItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Send fans the quote out to the selected suppliers: draft -> sent, one
// thread per supplier created in the same transaction (all-or-nothing; zero
// suppliers or zero items reject before any thread exists). Outbound emails
// are dispatched after commit so no store lock is held during I/O; a
// transport failure is reported per supplier without undoing the send.
func (s *QuoteService) Send(ctx context.Context, actorID, quoteID uint, supplierIDs []uint) (*models.QuoteRequest, []collab.Error, error) {
	q, err := s.loadCurrent(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	if len(supplierIDs) == 0 {
		return nil, nil, fmt.Errorf("at least one supplier required: %w", ErrInvalidState)
	}
	var itemCount int64
	if err := s.DB.WithContext(ctx).Model(&models.QuoteItem{}).
		Where("quote_request_id = ?", q.ID).Count(&itemCount).Error; err != nil {
		return nil, nil, err
	}
	if itemCount == 0 {
		return nil, nil, fmt.Errorf("cannot send without items: %w", ErrInvalidState)
	}
	ids := dedupe(supplierIDs)
	var suppliers []models.Supplier
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&suppliers).Error; err != nil {
		return nil, nil, err
	}
	if len(suppliers) != len(ids) {
		return nil, nil, fmt.Errorf("unknown supplier in selection: %w", ErrInvalidState)
	}

	var threads []models.SupplierThread
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The caller's first pick is the primary, not whichever row the
		// store happened to return first.
		if err := casStatus(tx, q.ID, models.QuoteStatusDraft, models.QuoteStatusSent, map[string]any{
			"primary_supplier_id": ids[0],
			"request_date":        time.Now(),
		}); err != nil {
			return err
		}
		for _, sup := range suppliers {
			th := models.SupplierThread{
				QuoteRequestID: q.ID,
				SupplierID:     sup.ID,
				Status:         models.ThreadStatusSent,
				EmailRef:       uuid.NewString(),
			}
			if err := tx.Create(&th).Error; err != nil {
				return err
			}
			threads = append(threads, th)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	dispatchErrs := s.dispatch(ctx, q, threads)
	updated, err := s.Get(ctx, q.ID)
	if err != nil {
		return nil, dispatchErrs, err
	}
	return updated, dispatchErrs, nil
}

// dispatch sends the request email on every new thread with a bounded wait
// per message and records the outbound copy.
func (s *QuoteService) dispatch(ctx context.Context, q *models.QuoteRequest, threads []models.SupplierThread) []collab.Error {
	tracker := NewThreadTracker(s.DB)
	subject := fmt.Sprintf("Quote request %s", q.Number)
	body := fmt.Sprintf("Please quote your best price for request %s.", q.Number)
	var failures []collab.Error
	for _, th := range threads {
		cctx, cancel := context.WithTimeout(ctx, s.Timeout)
		msgID, err := s.Email.Send(cctx, th.EmailRef, subject, body)
		cancel()
		if err != nil {
			failures = append(failures, collab.Error{Collaborator: "email", Ref: th.EmailRef, Err: err})
			continue
		}
		_ = tracker.AppendMessage(s.DB, th.ID, "out", collab.Message{
			ID:         msgID,
			Subject:    subject,
			Body:       body,
			ReceivedAt: time.Now(),
		})
	}
	return failures
}

// RequestReview moves sent/received to under_review. Only a creator without
// approval authority needs (and may request) a manager review.
func (s *QuoteService) RequestReview(ctx context.Context, actorID, quoteID uint) error {
	q, err := s.loadCurrent(ctx, quoteID)
	if err != nil {
		return err
	}
	if q.Status == models.QuoteStatusUnderReview {
		return fmt.Errorf("already under review: %w", ErrInvalidState)
	}
	if q.CreatedBy != actorID {
		return fmt.Errorf("only the creator may request review: %w", ErrPermissionDenied)
	}
	if s.Authz.HasApprovalAuthority(ctx, actorID) {
		return fmt.Errorf("approval-authorized creators skip review: %w", ErrPermissionDenied)
	}
	from := q.Status
	if from != models.QuoteStatusSent && from != models.QuoteStatusReceived {
		return fmt.Errorf("review only from sent/received, got %s: %w", from, ErrInvalidState)
	}
	return casStatus(s.DB.WithContext(ctx), q.ID, from, models.QuoteStatusUnderReview, map[string]any{
		"requires_approval": true,
	})
}

// Approve records the manager decision on a quote under review.
func (s *QuoteService) Approve(ctx context.Context, actorID, quoteID uint, notes string) error {
	return s.decide(ctx, actorID, quoteID, models.QuoteStatusApproved, notes)
}

// Reject closes a quote under review. The reason is mandatory.
func (s *QuoteService) Reject(ctx context.Context, actorID, quoteID uint, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("rejection requires a reason: %w", ErrInvalidState)
	}
	return s.decide(ctx, actorID, quoteID, models.QuoteStatusRejected, reason)
}

func (s *QuoteService) decide(ctx context.Context, actorID, quoteID uint, to, notes string) error {
	q, err := s.loadCurrent(ctx, quoteID)
	if err != nil {
		return err
	}
	if !s.Authz.HasApprovalAuthority(ctx, actorID) {
		return fmt.Errorf("actor %d may not decide quote %s: %w", actorID, q.Number, ErrPermissionDenied)
	}
	now := time.Now()
	return casStatus(s.DB.WithContext(ctx), q.ID, models.QuoteStatusUnderReview, to, map[string]any{
		"approved_by":    actorID,
		"approved_at":    now,
		"approval_notes": notes,
	})
}

// SelectSupplier pins the winning supplier onto the quote. The supplier's
// thread must have responded with an amount.
func (s *QuoteService) SelectSupplier(ctx context.Context, actorID, quoteID, supplierID uint) error {
	q, err := s.loadCurrent(ctx, quoteID)
	if err != nil {
		return err
	}
	if q.Terminal() {
		return fmt.Errorf("quote %s is closed: %w", q.Number, ErrInvalidState)
	}
	var thread models.SupplierThread
	err = s.DB.WithContext(ctx).
		Where("quote_request_id = ? AND supplier_id = ?", q.ID, supplierID).
		First(&thread).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("supplier %d has no thread on quote %s: %w", supplierID, q.Number, ErrMissingSelection)
		}
		return err
	}
	if !thread.Responded() || !thread.QuotedAmount.Valid {
		return fmt.Errorf("supplier %d has not quoted on %s: %w", supplierID, q.Number, ErrMissingSelection)
	}
	return s.DB.WithContext(ctx).Model(&models.QuoteRequest{}).
		Where("id = ?", q.ID).
		Updates(map[string]any{
			"selected_supplier_id": supplierID,
			"total_amount":         thread.QuotedAmount,
		}).Error
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
