package notionsync

import (
	"strconv"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// Property names of the invoices database.
const (
	PropInvoiceID       = "Invoice ID"
	PropIssuer          = "Issuer"
	PropAmount          = "Amount"
	PropDueDate         = "Due Date"
	PropPaid            = "Paid"
	PropNeedsCompletion = "Needs Completion"
	PropBankgiro        = "Bankgiro"
	PropPlusgiro        = "Plusgiro"
	PropOCR             = "OCR"
	PropUrgency         = "Urgency"
)

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
		},
	}
}

// InvoiceToNotionProperties converts an invoice to page properties. Urgency
// is computed against today and omitted for paid invoices.
func InvoiceToNotionProperties(inv domain.Invoice, today domain.Date) notionapi.Properties {
	props := notionapi.Properties{
		PropInvoiceID: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: strconv.FormatInt(inv.ID, 10)}},
			},
		},
		PropIssuer:          richText(inv.Issuer),
		PropAmount:          notionapi.NumberProperty{Number: inv.Amount.Float64()},
		PropPaid:            notionapi.CheckboxProperty{Checkbox: inv.Paid()},
		PropNeedsCompletion: notionapi.CheckboxProperty{Checkbox: inv.NeedsCompletion},
	}

	if inv.DueDate.Valid() {
		d := notionapi.Date(time.Date(inv.DueDate.Year, inv.DueDate.Month, inv.DueDate.Day, 0, 0, 0, 0, time.UTC))
		props[PropDueDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	}
	if inv.Bankgiro != "" {
		props[PropBankgiro] = richText(inv.Bankgiro)
	}
	if inv.Plusgiro != "" {
		props[PropPlusgiro] = richText(inv.Plusgiro)
	}
	if inv.OCR != "" {
		props[PropOCR] = richText(inv.OCR)
	}
	if !inv.Paid() {
		props[PropUrgency] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: domain.DueUrgency(inv.DueDate, today).String()},
		}
	}
	return props
}

// extractInvoiceID reads the invoice id from a page title. It returns 0 when
// the page has none.
func extractInvoiceID(page notionapi.Page) int64 {
	prop, ok := page.Properties[PropInvoiceID]
	if !ok {
		return 0
	}
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		return 0
	}
	id, err := strconv.ParseInt(title.Title[0].PlainText, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
