package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsCompletion(t *testing.T) {
	tests := []struct {
		bg, pg, ocr string
		want        bool
	}{
		{"123-4567", "12345-6", "1234567890", false},
		{"", "12345-6", "1234567890", true},
		{"123-4567", "", "1234567890", true},
		{"123-4567", "12345-6", "  ", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NeedsCompletion(tt.bg, tt.pg, tt.ocr), "bg=%q pg=%q ocr=%q", tt.bg, tt.pg, tt.ocr)
	}
}

func TestInvoicePatch_Apply(t *testing.T) {
	inv := Invoice{ID: 1, Issuer: "Telenor", Amount: MoneyFromInt(500), Plusgiro: "1-2", OCR: "99"}
	inv.Refresh()
	assert.True(t, inv.NeedsCompletion)

	bg := "5050-1055"
	out := InvoicePatch{Bankgiro: &bg}.Apply(inv)

	assert.False(t, out.NeedsCompletion)
	assert.Equal(t, "", inv.Bankgiro, "original must not change")
	assert.True(t, InvoicePatch{}.Empty())
}

func TestFlows(t *testing.T) {
	txs := []BankTransaction{
		{ID: 1, Amount: MoneyFromInt(3200)},
		{ID: 2, Amount: MoneyFromFloat(-85.32)},
		{ID: 3, Amount: Zero},
	}
	assert.Len(t, Inflows(txs), 1)
	assert.Len(t, Outflows(txs), 1)
	assert.Equal(t, int64(2), Outflows(txs)[0].ID)
}

func TestInvoicePatch_ApplyKeepsPaid(t *testing.T) {
	paid := Invoice{ID: 1, Issuer: "Telia", Status: true}
	unpaid, yes := false, true

	assert.True(t, InvoicePatch{Status: &unpaid}.Apply(paid).Status)
	assert.False(t, InvoicePatch{Status: &unpaid}.Apply(Invoice{ID: 2}).Status)
	assert.True(t, InvoicePatch{Status: &yes}.Apply(Invoice{ID: 2}).Status)
}
