package collab

import (
	"context"

	"github.com/partsdesk/procurement-app/internal/money"
)

// PriceExtractor reads a quoted total out of a supplier reply. A nil amount
// with a nil error means "no price found" — that is an expected outcome, not
// a failure. Errors are reserved for transport/auth problems.
type PriceExtractor interface {
	ExtractAmount(ctx context.Context, body string, attachments []Attachment) (*money.Money, error)
}

// ExtractorFunc adapts a function to the PriceExtractor interface (tests,
// static fixtures).
type ExtractorFunc func(ctx context.Context, body string, attachments []Attachment) (*money.Money, error)

func (f ExtractorFunc) ExtractAmount(ctx context.Context, body string, attachments []Attachment) (*money.Money, error) {
	return f(ctx, body, attachments)
}
