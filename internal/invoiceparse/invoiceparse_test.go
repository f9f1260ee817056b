package invoiceparse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/infra/inmemory"
	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/storage"
)

func money(t *testing.T, s string) domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func TestFromText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		issuer   string
		amount   string
		bankgiro string
		ocr      string
		due      domain.Date
	}{
		{
			name:     "american express",
			text:     "www.americanexpress.se Fakturans saldo 1.234,50 Bankgiro: 5127-5477 OCR: 3712345678901 betalningen oss tillhanda den 25.12.24",
			issuer:   "American Express",
			amount:   "1234.50",
			bankgiro: "5127-5477",
			ocr:      "3712345678901",
			due:      domain.NewDate(2024, 12, 25),
		},
		{
			name:     "telenor",
			text:     "Telenor Summa att betala 499,00 5534-1234 Telenor Sverige AB OCR-nummer: # 1234567890 Betalningen ska vara oss tillhanda 30 november 2024",
			issuer:   "Telenor",
			amount:   "499.00",
			bankgiro: "5534-1234",
			ocr:      "1234567890",
			due:      domain.NewDate(2024, 11, 30),
		},
		{
			name:     "lansforsakringar",
			text:     "Länsförsäkringar Summa att betala 2 340 OCR-nummer 98765432101 betala senast 2024-10-31 540-1234 Länsförsäkringar",
			issuer:   "Länsförsäkringar",
			amount:   "2340",
			bankgiro: "540-1234",
			ocr:      "98765432101",
			due:      domain.NewDate(2024, 10, 31),
		},
		{
			name:     "payment slip fallback",
			text:     "Faktura # 1234567890123 # 1500 00 5 > 5051055#41#",
			amount:   "1500.00",
			bankgiro: "505-1055",
			ocr:      "1234567890123",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FromText(tt.text)
			assert.Equal(t, tt.issuer, f.Issuer)
			require.NotNil(t, f.Amount)
			assert.True(t, money(t, tt.amount).Equal(*f.Amount), "amount %s", f.Amount)
			assert.Equal(t, tt.bankgiro, f.Bankgiro)
			assert.Equal(t, tt.ocr, f.OCR)
			assert.Equal(t, tt.due, f.DueDate)
		})
	}
}

func TestFromTextNothingFound(t *testing.T) {
	assert.True(t, FromText("hello world").Empty())
}

func TestFromQR(t *testing.T) {
	f, err := FromQR(`{"uqr":1,"tp":1,"nme":"Telenor","due":499.00,"acc":"5534-1234","pt":"BG","iref":"1234567890","ddt":"20241130"}`)
	require.NoError(t, err)
	assert.Equal(t, "Telenor", f.Issuer)
	assert.Equal(t, "5534-1234", f.Bankgiro)
	assert.Empty(t, f.Plusgiro)
	assert.Equal(t, "1234567890", f.OCR)
	assert.Equal(t, domain.NewDate(2024, 11, 30), f.DueDate)
	require.NotNil(t, f.Amount)
	assert.True(t, money(t, "499").Equal(*f.Amount))

	f, err = FromQR(`{"acc":"123456-7","pt":"PG"}`)
	require.NoError(t, err)
	assert.Equal(t, "123456-7", f.Plusgiro)
	assert.Empty(t, f.Bankgiro)

	_, err = FromQR(`{"ddt":"30/11/2024"}`)
	assert.Error(t, err)
}

func TestPatchNeverSetsStatus(t *testing.T) {
	amount := money(t, "10")
	p := Fields{Issuer: " Acme ", Amount: &amount, OCR: "123"}.Patch()
	assert.Nil(t, p.Status)
	require.NotNil(t, p.Issuer)
	assert.Equal(t, "Acme", *p.Issuer)
	assert.Nil(t, p.Bankgiro)
	assert.Nil(t, p.DueDate)
	require.NotNil(t, p.OCR)
}

func TestCleanModelJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanModelJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanModelJSON("Here you go: {\"a\":1} done"))
	assert.Equal(t, `{"a":1}`, cleanModelJSON(`{"a":1}`))
}

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func TestGeminiExtract(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n" + `{
		"issuer": null,
		"amount": 499.5,
		"due_date": "2024-11-30",
		"bankgiro": null,
		"plusgiro": null,
		"ocr": "111",
		"qr": null,
		"text": "Telenor 5534-1234 Telenor Sverige AB OCR-nummer: # 1234567890"
	}` + "\n```"}
	g := NewGeminiWithGenerator(gen, "")

	f, err := g.Extract(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Telenor", f.Issuer)
	assert.Equal(t, "5534-1234", f.Bankgiro)
	// Model values win over text rules.
	assert.Equal(t, "111", f.OCR)
	assert.Equal(t, domain.NewDate(2024, 11, 30), f.DueDate)
	require.NotNil(t, f.Amount)
	assert.True(t, money(t, "499.50").Equal(*f.Amount))
}

func TestGeminiExtractErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewGeminiWithGenerator(&fakeGenerator{err: errors.New("quota")}, "").Extract(ctx, nil)
	assert.ErrorContains(t, err, "quota")

	_, err = NewGeminiWithGenerator(&fakeGenerator{text: "not json"}, "").Extract(ctx, nil)
	assert.Error(t, err)

	_, err = NewGeminiWithGenerator(&fakeGenerator{text: `{"issuer": 42}`}, "").Extract(ctx, nil)
	assert.Error(t, err)
}

type staticExtractor struct{ fields Fields }

func (s staticExtractor) Extract(ctx context.Context, pdf []byte) (Fields, error) {
	return s.fields, nil
}

func TestHandlerPatchesInvoice(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	docs := storage.NewMemory()

	inv, err := store.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "Unknown", Amount: money(t, "0")})
	require.NoError(t, err)
	_, err = docs.Put(ctx, "invoices/a.pdf", bytesReader("%PDF"), "application/pdf")
	require.NoError(t, err)

	amount := money(t, "250")
	h := Handler(docs, store, staticExtractor{Fields{Issuer: "Acme", Amount: &amount, Bankgiro: "123-4567"}})
	require.NoError(t, h(ctx, &jobs.Job{Type: jobs.JobTypeParseInvoice, InvoiceID: inv.ID, ObjectName: "invoices/a.pdf"}))

	got, err := store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Issuer)
	assert.Equal(t, "123-4567", got.Bankgiro)
	assert.True(t, got.NeedsCompletion)
	assert.False(t, got.Status)
}

func TestHandlerMissingDocument(t *testing.T) {
	h := Handler(storage.NewMemory(), inmemory.NewStore(), staticExtractor{})
	err := h(context.Background(), &jobs.Job{InvoiceID: 1, ObjectName: "missing.pdf"})
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func bytesReader(s string) *strings.Reader { return strings.NewReader(s) }
