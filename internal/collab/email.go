// Package collab defines the external collaborator contracts the quote core
// depends on: the email channel carrying supplier threads and the price
// extractor reading quoted amounts out of replies. Both are in-process
// interfaces; transport mechanics live behind them.
package collab

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Attachment is an opaque file pulled from a thread message.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// Message is one inbound message on a supplier thread.
type Message struct {
	ID          string
	Subject     string
	Body        string
	Attachments []Attachment
	ReceivedAt  time.Time
}

// EmailClient lists and sends messages on a per-supplier conversation
// identified by an opaque thread reference. A transport failure surfaces as
// *Error; an empty slice from ListNewMessages means "no new messages", not
// an error.
type EmailClient interface {
	ListNewMessages(ctx context.Context, threadRef string) ([]Message, error)
	Send(ctx context.Context, threadRef, subject, body string) (string, error)
}

// Error identifies which collaborator failed on which reference so batch
// reports can name the failing thread.
type Error struct {
	Collaborator string // "email", "extractor"
	Ref          string // thread ref or order id
	Err          error
}

func (e Error) Error() string {
	return fmt.Sprintf("%s collaborator failed for %s: %v", e.Collaborator, e.Ref, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// LogSender is the development EmailClient: outbound mail is written to the
// log and nothing is ever received. Production wires a real mailbox adapter.
type LogSender struct{}

func (LogSender) ListNewMessages(_ context.Context, _ string) ([]Message, error) {
	return nil, nil
}

func (LogSender) Send(_ context.Context, threadRef, subject, body string) (string, error) {
	id := uuid.NewString()
	log.Printf("--- OUTBOUND EMAIL (dev) thread=%s id=%s ---", threadRef, id)
	log.Printf("Subject: %s", subject)
	log.Println(body)
	return id, nil
}
