package invoiceparse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Extractor reads invoice fields from a PDF document.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (Fields, error)
}

// Generator is the part of the genai client the extractor uses.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini extracts fields by sending the PDF to a Gemini model.
type Gemini struct {
	gen   Generator
	model string
}

// NewGemini creates a Gemini extractor using credentials from the environment.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return NewGeminiWithGenerator(client.Models, model), nil
}

// NewGeminiWithGenerator creates a Gemini extractor over an existing generator.
func NewGeminiWithGenerator(gen Generator, model string) *Gemini {
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{gen: gen, model: model}
}

const invoicePrompt = "You are an invoice parser for Swedish PDF invoices.\n\n" +
	"Task:\n" +
	"- Read the attached invoice and extract its payment details.\n" +
	"- Output STRICT JSON only: one object with these fields:\n" +
	"- \"issuer\": string or null (company that sent the invoice)\n" +
	"- \"amount\": number or null (total amount to pay in SEK)\n" +
	"- \"due_date\": string or null, ISO format \"YYYY-MM-DD\"\n" +
	"- \"bankgiro\": string or null (format NNN-NNNN or NNNN-NNNN)\n" +
	"- \"plusgiro\": string or null\n" +
	"- \"ocr\": string or null (payment reference number, digits only)\n" +
	"- \"qr\": string or null (raw content of a payment QR code, if one is printed)\n" +
	"- \"text\": string (the full plain text of the document)\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

const modelOutputSchema = `{
  "type": "object",
  "properties": {
    "issuer":   {"type": ["string", "null"]},
    "amount":   {"type": ["number", "string", "null"]},
    "due_date": {"type": ["string", "null"]},
    "bankgiro": {"type": ["string", "null"]},
    "plusgiro": {"type": ["string", "null"]},
    "ocr":      {"type": ["string", "null"]},
    "qr":       {"type": ["string", "null"]},
    "text":     {"type": ["string", "null"]}
  }
}`

var (
	outputSchemaOnce sync.Once
	outputSchema     *jsonschema.Schema
	outputSchemaErr  error
)

func compiledOutputSchema() (*jsonschema.Schema, error) {
	outputSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("invoice_output.json", strings.NewReader(modelOutputSchema)); err != nil {
			outputSchemaErr = err
			return
		}
		outputSchema, outputSchemaErr = compiler.Compile("invoice_output.json")
	})
	return outputSchema, outputSchemaErr
}

type modelOutput struct {
	Issuer   *string      `json:"issuer"`
	Amount   *json.Number `json:"amount"`
	DueDate  *string      `json:"due_date"`
	Bankgiro *string      `json:"bankgiro"`
	Plusgiro *string      `json:"plusgiro"`
	OCR      *string      `json:"ocr"`
	QR       *string      `json:"qr"`
	Text     *string      `json:"text"`
}

// Extract implements Extractor. Fields the model leaves out are filled from
// the QR payload and then from the issuer text rules.
func (g *Gemini) Extract(ctx context.Context, pdf []byte) (Fields, error) {
	log := logger.FromContext(ctx)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: invoicePrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdf,
					},
				},
			},
		},
	}

	resp, err := g.gen.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return Fields{}, fmt.Errorf("Extract: generate content: %w", err)
	}
	rawText := resp.Text()
	if rawText == "" {
		return Fields{}, fmt.Errorf("Extract: empty response from model")
	}

	out, err := parseModelOutput(rawText)
	if err != nil {
		return Fields{}, fmt.Errorf("Extract: %w", err)
	}

	fields := out.fields()
	if out.QR != nil && *out.QR != "" {
		qr, err := FromQR(*out.QR)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring unreadable payment QR code")
		} else {
			fields = fields.Merge(qr)
		}
	}
	if out.Text != nil && *out.Text != "" {
		fields = fields.Merge(FromText(*out.Text))
	}
	return fields, nil
}

func parseModelOutput(raw string) (modelOutput, error) {
	clean := cleanModelJSON(raw)

	var generic any
	if err := json.Unmarshal([]byte(clean), &generic); err != nil {
		return modelOutput{}, fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	schema, err := compiledOutputSchema()
	if err != nil {
		return modelOutput{}, fmt.Errorf("compile output schema: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return modelOutput{}, fmt.Errorf("model output: %w", err)
	}

	var out modelOutput
	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return modelOutput{}, fmt.Errorf("decode model output: %w", err)
	}
	return out, nil
}

func (o modelOutput) fields() Fields {
	var f Fields
	if o.Issuer != nil {
		f.Issuer = strings.TrimSpace(*o.Issuer)
	}
	if o.Amount != nil {
		if m, err := domain.ParseMoney(o.Amount.String()); err == nil {
			f.Amount = &m
		}
	}
	if o.DueDate != nil {
		if d, err := domain.ParseDate(strings.TrimSpace(*o.DueDate)); err == nil {
			f.DueDate = d
		}
	}
	if o.Bankgiro != nil {
		f.Bankgiro = strings.TrimSpace(*o.Bankgiro)
	}
	if o.Plusgiro != nil {
		f.Plusgiro = strings.TrimSpace(*o.Plusgiro)
	}
	if o.OCR != nil {
		f.OCR = strings.TrimSpace(*o.OCR)
	}
	return f
}

// cleanModelJSON strips Markdown fences and any text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
