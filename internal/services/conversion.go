package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"
	"github.com/partsdesk/procurement-app/internal/policy"

	"gorm.io/gorm"
)

// PartCatalog is the read-only catalog collaborator. Nil part means "not in
// catalog", not an error.
type PartCatalog interface {
	GetPart(ctx context.Context, partNumber string) (*models.Part, error)
}

// DBPartCatalog looks parts up in the local parts table.
type DBPartCatalog struct {
	DB *gorm.DB
}

func NewDBPartCatalog(db *gorm.DB) *DBPartCatalog { return &DBPartCatalog{DB: db} }

func (c *DBPartCatalog) GetPart(ctx context.Context, partNumber string) (*models.Part, error) {
	var part models.Part
	err := c.DB.WithContext(ctx).Where("part_number = ?", partNumber).First(&part).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &part, nil
}

// Converter materializes an order from an accepted quote. The whole
// conversion is one transaction: the order, its items, the thread acceptance
// and the quote transition commit together or not at all.
type Converter struct {
	DB      *gorm.DB
	Authz   policy.Authorizer
	Catalog PartCatalog
}

func NewConverter(db *gorm.DB, authz policy.Authorizer, catalog PartCatalog) *Converter {
	return &Converter{DB: db, Authz: authz, Catalog: catalog}
}

// Convert turns an approved (or received, for approval-authorized flows)
// quote into exactly one order. Converting twice fails with
// ErrAlreadyConverted and creates nothing.
func (c *Converter) Convert(ctx context.Context, actorID, quoteID uint) (*models.Order, error) {
	var q models.QuoteRequest
	if err := c.DB.WithContext(ctx).Preload("Items").First(&q, quoteID).Error; err != nil {
		return nil, err
	}
	switch q.Status {
	case models.QuoteStatusConverted:
		return nil, fmt.Errorf("quote %s: %w", q.Number, ErrAlreadyConverted)
	case models.QuoteStatusApproved, models.QuoteStatusReceived:
	default:
		return nil, fmt.Errorf("quote %s in %s cannot convert: %w", q.Number, q.Status, ErrInvalidState)
	}
	if q.Status == models.QuoteStatusReceived && q.RequiresApproval {
		return nil, fmt.Errorf("quote %s awaits approval: %w", q.Number, ErrInvalidState)
	}
	if q.Status == models.QuoteStatusReceived && q.CreatedBy != actorID && !c.Authz.HasApprovalAuthority(ctx, actorID) {
		return nil, fmt.Errorf("actor %d may not convert quote %s: %w", actorID, q.Number, ErrPermissionDenied)
	}
	if q.SelectedSupplierID == nil {
		return nil, fmt.Errorf("quote %s has no selected supplier: %w", q.Number, ErrMissingSelection)
	}
	var thread models.SupplierThread
	err := c.DB.WithContext(ctx).
		Where("quote_request_id = ? AND supplier_id = ?", q.ID, *q.SelectedSupplierID).
		First(&thread).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("selected supplier has no thread: %w", ErrMissingSelection)
		}
		return nil, err
	}
	if !thread.Responded() || !thread.QuotedAmount.Valid {
		return nil, fmt.Errorf("selected supplier has not quoted: %w", ErrMissingSelection)
	}
	if len(q.Items) == 0 {
		return nil, fmt.Errorf("quote %s has no items: %w", q.Number, ErrInvalidState)
	}

	lines, total, err := c.priceLines(ctx, &q, thread.QuotedAmount.Decimal)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		OrganizationID: q.OrganizationID,
		QuoteRequestID: q.ID,
		SupplierID:     thread.SupplierID,
		Status:         models.OrderStatusPending,
		TotalAmount:    total,
	}
	from := q.Status
	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := casStatus(tx, q.ID, from, models.QuoteStatusConverted, map[string]any{
			"total_amount": thread.QuotedAmount,
		}); err != nil {
			return err
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		return tx.Model(&models.SupplierThread{}).
			Where("id = ?", thread.ID).
			Update("status", models.ThreadStatusAccepted).Error
	})
	if err != nil {
		// A lost CAS race means someone else converted first.
		if errors.Is(err, ErrInvalidState) {
			var check models.QuoteRequest
			if lerr := c.DB.WithContext(ctx).First(&check, q.ID).Error; lerr == nil && check.Status == models.QuoteStatusConverted {
				return nil, fmt.Errorf("quote %s: %w", q.Number, ErrAlreadyConverted)
			}
		}
		return nil, err
	}
	order.Items = lines
	return &order, nil
}

// priceLines builds the order lines. When every quote item carries its own
// quoted unit price those are used verbatim; otherwise the thread's lump
// total is pro-rated across lines proportionally to catalog list price
// (falling back to quantity when no line has a usable list price), with the
// cent remainder on the last line so the lines always sum to the quote.
func (c *Converter) priceLines(ctx context.Context, q *models.QuoteRequest, quoted money.Money) ([]models.OrderItem, money.Money, error) {
	allPriced := true
	for _, it := range q.Items {
		if !it.UnitPrice.Valid {
			allPriced = false
			break
		}
	}

	lines := make([]models.OrderItem, len(q.Items))
	total := money.Zero
	if allPriced {
		for i, it := range q.Items {
			lineTotal := money.Cents(it.UnitPrice.Decimal.Mul(money.FromInt(int64(it.Quantity))))
			lines[i] = models.OrderItem{
				PartNumber: it.PartNumber,
				Quantity:   it.Quantity,
				UnitPrice:  it.UnitPrice.Decimal,
				TotalPrice: lineTotal,
			}
			total = total.Add(lineTotal)
		}
		return lines, total, nil
	}

	weights := make([]money.Money, len(q.Items))
	usable := false
	for i, it := range q.Items {
		part, err := c.Catalog.GetPart(ctx, it.PartNumber)
		if err != nil {
			return nil, money.Zero, err
		}
		if part != nil {
			if lp, ok := part.ListPrice(); ok {
				weights[i] = lp.Mul(money.FromInt(int64(it.Quantity)))
				usable = true
				continue
			}
		}
		weights[i] = money.Zero
	}
	if !usable {
		for i, it := range q.Items {
			weights[i] = money.FromInt(int64(it.Quantity))
		}
	}

	shares := money.Allocate(quoted, weights)
	for i, it := range q.Items {
		unit := money.SafeDivide(shares[i], money.FromInt(int64(it.Quantity)), 4)
		lines[i] = models.OrderItem{
			PartNumber: it.PartNumber,
			Quantity:   it.Quantity,
			UnitPrice:  unit,
			TotalPrice: shares[i],
		}
		total = total.Add(shares[i])
	}
	return lines, total, nil
}
