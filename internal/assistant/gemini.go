package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"parchi/internal/core"
	"parchi/internal/log"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the part of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini parses text with a Gemini model constrained to a JSON schema.
type Gemini struct {
	models  generator
	model   string
	timeout time.Duration
	now     func() time.Time
	logger  *log.Logger
}

// NewGemini connects to the Gemini API with apiKey.
func NewGemini(ctx context.Context, apiKey, model string, logger *log.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(client.Models, model, logger), nil
}

func newGemini(models generator, model string, logger *log.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Gemini{
		models:  models,
		model:   model,
		timeout: 30 * time.Second,
		now:     time.Now,
		logger:  logger.WithComponent(log.ComponentAssistant),
	}
}

func (g *Gemini) Parse(ctx context.Context, text string) (core.Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Draft{}, fmt.Errorf("%w: empty text", ErrExternalParse)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := g.now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(text), g.config())
	if err != nil {
		g.logger.WarnContext(ctx, "Assistant request failed", log.FieldError, err, log.FieldOperation, log.OpParse)
		return core.Draft{}, fmt.Errorf("%w: %v", ErrExternalParse, err)
	}
	if resp == nil {
		return core.Draft{}, fmt.Errorf("%w: empty response", ErrExternalParse)
	}

	draft, err := DecodeDraft(resp.Text())
	if err != nil {
		g.logger.WarnContext(ctx, "Assistant reply rejected", log.FieldError, err, log.FieldOperation, log.OpValidate)
		return core.Draft{}, err
	}
	g.logger.DebugContext(ctx, "Assistant parsed entry",
		log.FieldCategory, draft.Category,
		log.FieldAmountCents, draft.TotalAmount.Cents,
		log.FieldDuration, g.now().Sub(start).Milliseconds())
	return draft, nil
}

func (g *Gemini) config() *genai.GenerateContentConfig {
	categories := make([]string, len(core.Categories))
	for i, c := range core.Categories {
		categories[i] = string(c)
	}
	date := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc + " as YYYY-MM-DD, empty when unknown"}
	}
	text := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}

	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category":        {Type: genai.TypeString, Enum: categories},
				"date":            date("Date the entry was recorded"),
				"transactionDate": date("Date of the underlying transaction"),
				"refNo":           text("Cheque or reference number"),
				"partyName":       text("Counterparty name"),
				"bankName":        {Type: genai.TypeString, Description: "Bank name, one of: " + strings.Join(core.Banks, ", ")},
				"bankAccountNum":  text("Bank account number"),
				"desc":            text("Short description"),
				"totalAmount":     {Type: genai.TypeNumber, Description: "Amount in rupees"},
				"dueDate":         date("Date the cheque or instalment is due"),
			},
			Required: []string{"category", "totalAmount"},
		},
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: g.instructions()}}},
	}
}

func (g *Gemini) instructions() string {
	return fmt.Sprintf(`You extract one ledger entry from a short note written by a shop owner.
Today is %s. Resolve relative dates against today.
A cheque received is "Chaque Receivables", a cheque issued is "Chaque Payables".
Loans and instalment plans are "Long Term Payables" or "Long Term Receivables".
A bank credit whose sender is not known is "Unknown Online".
Reply with the JSON object only.`, core.DateOf(g.now()))
}
