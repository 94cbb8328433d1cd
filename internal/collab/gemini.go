package collab

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/partsdesk/procurement-app/internal/money"
	"google.golang.org/api/option"
)

const extractorInstruction = `You read supplier emails quoting prices for vehicle parts.
Reply with ONLY the total quoted price as a plain decimal number (e.g. 420.50).
Ignore currency symbols, thousands separators and shipping commentary.
If the message quotes no total price, reply with exactly NONE.`

var amountPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// GeminiExtractor implements PriceExtractor on the Gemini API.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates the extractor. modelName falls back to
// gemini-1.5-flash when empty.
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiExtractor{client: client, model: modelName}, nil
}

// Close releases the underlying client.
func (g *GeminiExtractor) Close() error { return g.client.Close() }

// ExtractAmount sends the message body (and any text attachments) to the
// model and parses the single-number reply. NONE maps to (nil, nil).
func (g *GeminiExtractor) ExtractAmount(ctx context.Context, body string, attachments []Attachment) (*money.Money, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(extractorInstruction)}}

	parts := []genai.Part{genai.Text(body)}
	for _, a := range attachments {
		if strings.HasPrefix(a.MimeType, "text/") {
			parts = append(parts, genai.Text(string(a.Data)))
		} else if a.MimeType != "" {
			parts = append(parts, genai.Blob{MIMEType: a.MimeType, Data: a.Data})
		}
	}

	res, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	reply := firstText(res)
	return parseAmountReply(reply)
}

func firstText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	for _, p := range res.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			return string(t)
		}
	}
	return ""
}

// parseAmountReply tolerates minor model chatter around the number but treats
// NONE (or an empty reply) as "no price found".
func parseAmountReply(reply string) (*money.Money, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, "NONE") {
		return nil, nil
	}
	match := amountPattern.FindString(reply)
	if match == "" {
		return nil, nil
	}
	amount, err := money.Parse(match)
	if err != nil {
		return nil, nil
	}
	if amount.Sign() <= 0 {
		return nil, nil
	}
	amount = money.Cents(amount)
	return &amount, nil
}
