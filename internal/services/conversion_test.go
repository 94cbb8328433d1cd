package services

import (
	"context"
	"errors"
	"testing"

	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"
)

func TestConvertUsesLineQuotesWhenAllItemsPriced(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, "requester@acme.test")
	sup := seedSupplier(t, db, "alpha-parts")

	pads := mustMoney(t, "120.00")
	discs := mustMoney(t, "90.00")
	q := seedQuote(t, db, org.ID, user.ID, models.QuoteStatusApproved,
		models.QuoteItem{PartNumber: "BRK-100", Quantity: 2, UnitPrice: money.Some(pads)},
		models.QuoteItem{PartNumber: "DSC-200", Quantity: 1, UnitPrice: money.Some(discs)},
	)
	total := mustMoney(t, "330.00")
	th := seedThread(t, db, q.ID, sup.ID, models.ThreadStatusResponded, &total)
	db.Model(&models.QuoteRequest{}).Where("id = ?", q.ID).Update("selected_supplier_id", sup.ID)

	conv := NewConverter(db, approverOnly(), NewDBPartCatalog(db))
	order, err := conv.Convert(context.Background(), user.ID, q.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if order.SupplierID != sup.ID || order.QuoteRequestID != q.ID {
		t.Fatalf("order = %+v", order)
	}
	assertMoney(t, order.TotalAmount, "330.00")
	if len(order.Items) != 2 {
		t.Fatalf("order items = %d, want 2", len(order.Items))
	}
	assertMoney(t, order.Items[0].UnitPrice, "120.00")
	assertMoney(t, order.Items[0].TotalPrice, "240.00")
	assertMoney(t, order.Items[1].TotalPrice, "90.00")

	assertQuoteStatus(t, db, q.ID, models.QuoteStatusConverted)
	var thread models.SupplierThread
	db.First(&thread, th.ID)
	if thread.Status != models.ThreadStatusAccepted {
		t.Fatalf("thread status = %s, want accepted", thread.Status)
	}
}

func TestConvertProRatesLumpTotalByListPrice(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, "requester@acme.test")
	sup := seedSupplier(t, db, "alpha-parts")
	seedPart(t, db, "BRK-100", mustMoney(t, "100.00"), money.Zero)
	seedPart(t, db, "DSC-200", mustMoney(t, "50.00"), money.Zero)

	// Unpriced lines; the supplier quoted one lump total.
	q := seedQuote(t, db, org.ID, user.ID, models.QuoteStatusApproved,
		models.QuoteItem{PartNumber: "BRK-100", Quantity: 2}, // list weight 200
		models.QuoteItem{PartNumber: "DSC-200", Quantity: 2}, // list weight 100
	)
	lump := mustMoney(t, "250.00")
	seedThread(t, db, q.ID, sup.ID, models.ThreadStatusResponded, &lump)
	db.Model(&models.QuoteRequest{}).Where("id = ?", q.ID).Update("selected_supplier_id", sup.ID)

	conv := NewConverter(db, approverOnly(), NewDBPartCatalog(db))
	order, err := conv.Convert(context.Background(), user.ID, q.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	// 2/3 versus 1/3 of 250.00, lines always summing to the lump exactly.
	assertMoney(t, order.Items[0].TotalPrice, "166.67")
	assertMoney(t, order.Items[1].TotalPrice, "83.33")
	assertMoney(t, order.Items[0].TotalPrice.Add(order.Items[1].TotalPrice), "250.00")
	assertMoney(t, order.TotalAmount, "250.00")
}

func TestConvertFallsBackToQuantityWeights(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, "requester@acme.test")
	sup := seedSupplier(t, db, "alpha-parts")

	// No catalog entries at all: weights fall back to quantities.
	q := seedQuote(t, db, org.ID, user.ID, models.QuoteStatusApproved,
		models.QuoteItem{PartNumber: "UNK-1", Quantity: 3},
		models.QuoteItem{PartNumber: "UNK-2", Quantity: 1},
	)
	lump := mustMoney(t, "100.00")
	seedThread(t, db, q.ID, sup.ID, models.ThreadStatusResponded, &lump)
	db.Model(&models.QuoteRequest{}).Where("id = ?", q.ID).Update("selected_supplier_id", sup.ID)

	conv := NewConverter(db, approverOnly(), NewDBPartCatalog(db))
	order, err := conv.Convert(context.Background(), user.ID, q.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	assertMoney(t, order.Items[0].TotalPrice, "75.00")
	assertMoney(t, order.Items[1].TotalPrice, "25.00")
}

func TestConvertTwiceCreatesNothing(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, "requester@acme.test")
	sup := seedSupplier(t, db, "alpha-parts")

	price := mustMoney(t, "10.00")
	q := seedQuote(t, db, org.ID, user.ID, models.QuoteStatusApproved,
		models.QuoteItem{PartNumber: "BRK-100", Quantity: 1, UnitPrice: money.Some(price)})
	seedThread(t, db, q.ID, sup.ID, models.ThreadStatusResponded, &price)
	db.Model(&models.QuoteRequest{}).Where("id = ?", q.ID).Update("selected_supplier_id", sup.ID)

	conv := NewConverter(db, approverOnly(), NewDBPartCatalog(db))
	if _, err := conv.Convert(context.Background(), user.ID, q.ID); err != nil {
		t.Fatalf("first convert: %v", err)
	}
	_, err := conv.Convert(context.Background(), user.ID, q.ID)
	if !errors.Is(err, ErrAlreadyConverted) {
		t.Fatalf("second convert err = %v, want ErrAlreadyConverted", err)
	}

	var orders int64
	db.Model(&models.Order{}).Where("quote_request_id = ?", q.ID).Count(&orders)
	if orders != 1 {
		t.Fatalf("orders = %d, want exactly 1", orders)
	}
}

func TestConvertNeedsRespondedSelection(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, "requester@acme.test")
	sup := seedSupplier(t, db, "alpha-parts")
	conv := NewConverter(db, approverOnly(), NewDBPartCatalog(db))
	ctx := context.Background()

	// No selected supplier.
	q := seedQuote(t, db, org.ID, user.ID, models.QuoteStatusApproved,
		models.QuoteItem{PartNumber: "BRK-100", Quantity: 1})
	if _, err := conv.Convert(ctx, user.ID, q.ID); !errors.Is(err, ErrMissingSelection) {
		t.Fatalf("no selection err = %v, want ErrMissingSelection", err)
	}

	// Selected, but the thread never quoted.
	q2 := seedQuote(t, db, org.ID, user.ID, models.QuoteStatusApproved,
		models.QuoteItem{PartNumber: "BRK-100", Quantity: 1})
	seedThread(t, db, q2.ID, sup.ID, models.ThreadStatusSent, nil)
	db.Model(&models.QuoteRequest{}).Where("id = ?", q2.ID).Update("selected_supplier_id", sup.ID)
	if _, err := conv.Convert(ctx, user.ID, q2.ID); !errors.Is(err, ErrMissingSelection) {
		t.Fatalf("unquoted selection err = %v, want ErrMissingSelection", err)
	}
}

func TestConvertHonorsApprovalGate(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	requester := seedUser(t, db, org.ID, "requester@acme.test")
	outsider := seedUser(t, db, org.ID, "outsider@acme.test")
	sup := seedSupplier(t, db, "alpha-parts")
	conv := NewConverter(db, approverOnly(), NewDBPartCatalog(db))
	ctx := context.Background()

	price := mustMoney(t, "10.00")
	q := seedQuote(t, db, org.ID, requester.ID, models.QuoteStatusReceived,
		models.QuoteItem{PartNumber: "BRK-100", Quantity: 1, UnitPrice: money.Some(price)})
	seedThread(t, db, q.ID, sup.ID, models.ThreadStatusResponded, &price)
	db.Model(&models.QuoteRequest{}).Where("id = ?", q.ID).Update("selected_supplier_id", sup.ID)

	// A received quote flagged for approval cannot skip the review.
	db.Model(&models.QuoteRequest{}).Where("id = ?", q.ID).Update("requires_approval", true)
	if _, err := conv.Convert(ctx, requester.ID, q.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("requires-approval err = %v, want ErrInvalidState", err)
	}
	db.Model(&models.QuoteRequest{}).Where("id = ?", q.ID).Update("requires_approval", false)

	// Unrelated actors without authority may not convert someone else's quote.
	if _, err := conv.Convert(ctx, outsider.ID, q.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("outsider err = %v, want ErrPermissionDenied", err)
	}

	// The creator converts their own received quote.
	if _, err := conv.Convert(ctx, requester.ID, q.ID); err != nil {
		t.Fatalf("creator convert: %v", err)
	}
}
