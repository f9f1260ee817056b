package domain

import (
	"strings"
	"time"
)

// Invoice is a payable obligation with payment-routing details and a due date.
type Invoice struct {
	ID              int64     `json:"id"`
	Issuer          string    `json:"issuer"`
	Amount          Money     `json:"amount"`
	DueDate         Date      `json:"due_date"`
	Status          bool      `json:"status"` // true = paid, terminal
	NeedsCompletion bool      `json:"needs_completion"`
	Bankgiro        string    `json:"bankgiro"`
	Plusgiro        string    `json:"plusgiro"`
	OCR             string    `json:"ocr"`
	Filename        string    `json:"filename,omitempty"`
	PDFData         string    `json:"pdf_data,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NeedsCompletion reports whether any payment-routing field is missing.
func NeedsCompletion(bankgiro, plusgiro, ocr string) bool {
	return strings.TrimSpace(bankgiro) == "" ||
		strings.TrimSpace(plusgiro) == "" ||
		strings.TrimSpace(ocr) == ""
}

// Refresh recomputes the derived fields of the invoice.
func (inv *Invoice) Refresh() {
	inv.NeedsCompletion = NeedsCompletion(inv.Bankgiro, inv.Plusgiro, inv.OCR)
}

// Paid reports whether the invoice is in its terminal state.
func (inv Invoice) Paid() bool { return inv.Status }

// HasDocument reports whether a PDF payload is attached.
func (inv Invoice) HasDocument() bool { return inv.PDFData != "" }

// InvoicePatch is a partial invoice update. Nil fields are left unchanged.
type InvoicePatch struct {
	Issuer   *string `json:"issuer,omitempty"`
	Amount   *Money  `json:"amount,omitempty"`
	DueDate  *Date   `json:"due_date,omitempty"`
	Bankgiro *string `json:"bankgiro,omitempty"`
	Plusgiro *string `json:"plusgiro,omitempty"`
	OCR      *string `json:"ocr,omitempty"`
	Status   *bool   `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p InvoicePatch) Empty() bool {
	return p.Issuer == nil && p.Amount == nil && p.DueDate == nil &&
		p.Bankgiro == nil && p.Plusgiro == nil && p.OCR == nil && p.Status == nil
}

// Apply returns a copy of inv with the patch applied and derived fields
// refreshed. Status only moves to paid: a paid invoice stays paid whatever
// the patch says.
func (p InvoicePatch) Apply(inv Invoice) Invoice {
	out := inv
	if p.Issuer != nil {
		out.Issuer = *p.Issuer
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.DueDate != nil {
		out.DueDate = *p.DueDate
	}
	if p.Bankgiro != nil {
		out.Bankgiro = *p.Bankgiro
	}
	if p.Plusgiro != nil {
		out.Plusgiro = *p.Plusgiro
	}
	if p.OCR != nil {
		out.OCR = *p.OCR
	}
	if p.Status != nil {
		out.Status = out.Status || *p.Status
	}
	out.Refresh()
	return out
}

// InvoiceDraft is a manually entered invoice before it has an identity.
type InvoiceDraft struct {
	Issuer   string `json:"issuer"`
	Amount   Money  `json:"amount"`
	DueDate  Date   `json:"due_date"`
	Bankgiro string `json:"bankgiro"`
	Plusgiro string `json:"plusgiro"`
	OCR      string `json:"ocr"`
	Filename string `json:"filename,omitempty"`
}
