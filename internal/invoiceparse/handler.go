package invoiceparse

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
	"github.com/dvloznov/finance-overview/internal/storage"
)

// Handler returns the parse_invoice job handler. It reads the uploaded
// document, extracts fields and patches the invoice with whatever was found.
func Handler(docs storage.Documents, invoices repository.InvoiceRepository, ex Extractor) jobs.Handler {
	return func(ctx context.Context, job *jobs.Job) error {
		log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
			"invoice_id": job.InvoiceID,
			"object":     job.ObjectName,
		})

		pdf, err := docs.Get(ctx, job.ObjectName)
		if err != nil {
			return fmt.Errorf("parse invoice %d: read document: %w", job.InvoiceID, err)
		}

		fields, err := ex.Extract(ctx, pdf)
		if err != nil {
			return fmt.Errorf("parse invoice %d: %w", job.InvoiceID, err)
		}
		if fields.Empty() {
			log.Warn().Msg("No invoice fields found in document")
			return nil
		}

		inv, err := invoices.UpdateInvoice(ctx, job.InvoiceID, fields.Patch())
		if err != nil {
			return fmt.Errorf("parse invoice %d: update: %w", job.InvoiceID, err)
		}
		log.Info().
			Str("issuer", inv.Issuer).
			Bool("needs_completion", inv.NeedsCompletion).
			Msg("Invoice fields extracted")
		return nil
	}
}
