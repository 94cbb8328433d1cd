package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/partsdesk/procurement-app/internal/collab"
	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Organization{}, &models.Role{}, &models.User{},
		&models.Supplier{}, &models.Part{},
		&models.QuoteRequest{}, &models.QuoteItem{},
		&models.SupplierThread{}, &models.ThreadMessage{},
		&models.Order{}, &models.OrderItem{},
		&models.CostSavingsRecord{}, &models.SavingsContribution{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// stubAuthz grants approval authority to a fixed set of actors and mirrors
// the production edit rules: drafts are open to the creator and approvers,
// under review only to approvers.
type stubAuthz struct {
	approvers map[uint]bool
}

func (s *stubAuthz) HasApprovalAuthority(_ context.Context, actorID uint) bool {
	return s.approvers[actorID]
}

func (s *stubAuthz) CanEditQuoteItems(ctx context.Context, actorID uint, q *models.QuoteRequest) bool {
	switch q.Status {
	case models.QuoteStatusDraft:
		return q.CreatedBy == actorID || s.HasApprovalAuthority(ctx, actorID)
	case models.QuoteStatusUnderReview:
		return s.HasApprovalAuthority(ctx, actorID)
	}
	return false
}

func approverOnly(ids ...uint) *stubAuthz {
	m := map[uint]bool{}
	for _, id := range ids {
		m[id] = true
	}
	return &stubAuthz{approvers: m}
}

type sentMail struct {
	Ref     string
	Subject string
	Body    string
}

// stubEmail serves canned inbound messages per thread ref and records what
// was sent. Refs listed in failRefs error on every call.
type stubEmail struct {
	inbox    map[string][]collab.Message
	failRefs map[string]bool
	sent     []sentMail
	sendErr  error
}

func newStubEmail() *stubEmail {
	return &stubEmail{inbox: map[string][]collab.Message{}, failRefs: map[string]bool{}}
}

func (s *stubEmail) ListNewMessages(_ context.Context, ref string) ([]collab.Message, error) {
	if s.failRefs[ref] {
		return nil, context.DeadlineExceeded
	}
	msgs := s.inbox[ref]
	delete(s.inbox, ref)
	return msgs, nil
}

func (s *stubEmail) Send(_ context.Context, ref, subject, body string) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sent = append(s.sent, sentMail{Ref: ref, Subject: subject, Body: body})
	return "msg-" + ref, nil
}

// bodyExtractor parses the message body itself as a decimal amount. Bodies
// that do not parse, and non-positive amounts, mean "no price found".
var bodyExtractor = collab.ExtractorFunc(func(_ context.Context, body string, _ []collab.Attachment) (*money.Money, error) {
	m, err := money.Parse(strings.TrimSpace(body))
	if err != nil || !m.IsPositive() {
		return nil, nil
	}
	return &m, nil
})

func seedOrg(t *testing.T, db *gorm.DB) models.Organization {
	t.Helper()
	org := models.Organization{Name: "Acme Fleet"}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("org: %v", err)
	}
	return org
}

func seedUser(t *testing.T, db *gorm.DB, orgID uint, email string) models.User {
	t.Helper()
	role := models.Role{Name: "role-" + email, Permissions: "quote:*"}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("role: %v", err)
	}
	u := models.User{Email: email, Password: "x", OrganizationID: orgID, RoleID: role.ID}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return u
}

func seedSupplier(t *testing.T, db *gorm.DB, name string) models.Supplier {
	t.Helper()
	s := models.Supplier{Name: name, ContactEmail: name + "@suppliers.test"}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("supplier: %v", err)
	}
	return s
}

func seedPart(t *testing.T, db *gorm.DB, number string, price, cost money.Money) models.Part {
	t.Helper()
	p := models.Part{PartNumber: number, Price: price, Cost: cost}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("part: %v", err)
	}
	return p
}

// seedQuote inserts a quote directly in the given status with the given item
// lines, bypassing the service, for tests that start mid-lifecycle.
func seedQuote(t *testing.T, db *gorm.DB, orgID, createdBy uint, status string, items ...models.QuoteItem) models.QuoteRequest {
	t.Helper()
	q := models.QuoteRequest{
		Number:         newQuoteNumber(),
		OrganizationID: orgID,
		Status:         status,
		CreatedBy:      createdBy,
		RequestDate:    time.Now(),
		Items:          items,
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("quote: %v", err)
	}
	return q
}

func seedThread(t *testing.T, db *gorm.DB, quoteID, supplierID uint, status string, amount *money.Money) models.SupplierThread {
	t.Helper()
	th := models.SupplierThread{
		QuoteRequestID: quoteID,
		SupplierID:     supplierID,
		Status:         status,
		EmailRef:       fmt.Sprintf("ref-%s-%d-%d", t.Name(), quoteID, supplierID),
	}
	if amount != nil {
		th.QuotedAmount = money.Some(*amount)
		now := time.Now()
		th.ResponseDate = &now
	}
	if err := db.Create(&th).Error; err != nil {
		t.Fatalf("thread: %v", err)
	}
	return th
}

func mustMoney(t *testing.T, s string) money.Money {
	t.Helper()
	m, err := money.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return m
}

func assertMoney(t *testing.T, got money.Money, want string) {
	t.Helper()
	if !got.Equal(mustMoney(t, want)) {
		t.Fatalf("amount = %s, want %s", got, want)
	}
}
