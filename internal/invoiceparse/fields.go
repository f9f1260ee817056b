// Package invoiceparse extracts payment fields from uploaded invoice PDFs.
package invoiceparse

import (
	"strings"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// Fields are the values read from an invoice document. Empty values were not
// found.
type Fields struct {
	Issuer   string
	Amount   *domain.Money
	DueDate  domain.Date
	Bankgiro string
	Plusgiro string
	OCR      string
}

// Empty reports whether nothing was found.
func (f Fields) Empty() bool {
	return f.Issuer == "" && f.Amount == nil && !f.DueDate.Valid() &&
		f.Bankgiro == "" && f.Plusgiro == "" && f.OCR == ""
}

// Merge fills fields missing in f from other.
func (f Fields) Merge(other Fields) Fields {
	if f.Issuer == "" {
		f.Issuer = other.Issuer
	}
	if f.Amount == nil {
		f.Amount = other.Amount
	}
	if !f.DueDate.Valid() {
		f.DueDate = other.DueDate
	}
	if f.Bankgiro == "" {
		f.Bankgiro = other.Bankgiro
	}
	if f.Plusgiro == "" {
		f.Plusgiro = other.Plusgiro
	}
	if f.OCR == "" {
		f.OCR = other.OCR
	}
	return f
}

// Patch converts the found fields into an invoice patch. Status is never
// touched by extraction.
func (f Fields) Patch() domain.InvoicePatch {
	var p domain.InvoicePatch
	if s := strings.TrimSpace(f.Issuer); s != "" {
		p.Issuer = &s
	}
	if f.Amount != nil {
		a := *f.Amount
		p.Amount = &a
	}
	if f.DueDate.Valid() {
		d := f.DueDate
		p.DueDate = &d
	}
	if s := strings.TrimSpace(f.Bankgiro); s != "" {
		p.Bankgiro = &s
	}
	if s := strings.TrimSpace(f.Plusgiro); s != "" {
		p.Plusgiro = &s
	}
	if s := strings.TrimSpace(f.OCR); s != "" {
		p.OCR = &s
	}
	return p
}
