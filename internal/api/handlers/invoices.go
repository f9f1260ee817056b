package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/lifecycle"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/normalize"
	"github.com/dvloznov/finance-overview/internal/repository"
	"github.com/dvloznov/finance-overview/internal/storage"
)

// maxUpload bounds an uploaded invoice PDF.
const maxUpload = 32 << 20

// UploadIssuer names an uploaded invoice until extraction fills it in.
const UploadIssuer = "Unknown"

// InvoicesHandler handles invoice endpoints.
type InvoicesHandler struct {
	repo      repository.InvoiceRepository
	lifecycle *lifecycle.Controller
	docs      storage.Documents
	publisher jobs.Publisher
	now       func() time.Time
}

// NewInvoicesHandler creates an invoices handler. docs and publisher may be
// nil, which disables PDF storage and upload parsing.
func NewInvoicesHandler(repo repository.InvoiceRepository, docs storage.Documents, publisher jobs.Publisher) *InvoicesHandler {
	return &InvoicesHandler{
		repo:      repo,
		lifecycle: lifecycle.New(repo),
		docs:      docs,
		publisher: publisher,
		now:       time.Now,
	}
}

// invoiceResponse is a single invoice with pdf_data always present, null
// when no document is stored.
type invoiceResponse struct {
	domain.Invoice
	PDFData *string `json:"pdf_data"`
}

// ListInvoices handles GET /api/invoices
func (h *InvoicesHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.repo.ListInvoices(r.Context())
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list invoices")
		return
	}
	for i := range invoices {
		invoices[i].Refresh()
		invoices[i].PDFData = ""
	}
	normalize.SortInvoices(invoices)
	middleware.WriteJSON(w, http.StatusOK, nonNil(invoices))
}

// GetInvoice handles GET /api/invoices/{id}
func (h *InvoicesHandler) GetInvoice(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()

	inv, err := h.repo.GetInvoice(ctx, id)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to get invoice")
		return
	}
	inv.Refresh()

	resp := invoiceResponse{Invoice: inv}
	if inv.Filename != "" && h.docs != nil {
		data, err := h.docs.Get(ctx, inv.Filename)
		switch {
		case err == nil:
			encoded := base64.StdEncoding.EncodeToString(data)
			resp.PDFData = &encoded
		case errors.Is(err, storage.ErrNotExist):
			log := logger.FromContext(ctx)
			log.Warn().Int64("invoice_id", id).Str("object", inv.Filename).Msg("Invoice document missing")
		default:
			middleware.WriteAppError(w, r, err, "Failed to read invoice document")
			return
		}
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// CreateInvoice handles POST /api/invoices
func (h *InvoicesHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var draft domain.InvoiceDraft
	if err := decodeJSON(r, "CreateInvoice", &draft); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to create invoice")
		return
	}
	draft.Filename = ""

	inv, err := h.lifecycle.Create(r.Context(), draft)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to create invoice")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, inv)
}

// UpdateInvoice handles PATCH /api/invoices/{id}. A body carrying only
// {"status": true} is a payment; anything else is an edit.
func (h *InvoicesHandler) UpdateInvoice(w http.ResponseWriter, r *http.Request, id int64) {
	var patch domain.InvoicePatch
	if err := decodeJSON(r, "UpdateInvoice", &patch); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to update invoice")
		return
	}

	if isPayment(patch) {
		out, err := h.lifecycle.MarkPaid(r.Context(), id)
		if err != nil {
			middleware.WriteAppError(w, r, err, "Failed to mark invoice paid")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, out.Invoice)
		return
	}

	inv, err := h.lifecycle.Edit(r.Context(), id, patch)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to update invoice")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, inv)
}

func isPayment(p domain.InvoicePatch) bool {
	if p.Status == nil || !*p.Status {
		return false
	}
	p.Status = nil
	return p.Empty()
}

// DeleteInvoice handles DELETE /api/invoices/{id}. The stored PDF goes too.
func (h *InvoicesHandler) DeleteInvoice(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()

	inv, err := h.repo.GetInvoice(ctx, id)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to delete invoice")
		return
	}
	if err := h.lifecycle.Delete(ctx, id); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to delete invoice")
		return
	}
	if inv.Filename != "" && h.docs != nil {
		if err := h.docs.Delete(ctx, inv.Filename); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("object", inv.Filename).Msg("Failed to delete invoice document")
		}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Invoice deleted"})
}

// UploadInvoice handles POST /api/invoices/upload. The PDF in the multipart
// field "invoice" is stored, a placeholder invoice created and a parse job
// queued to fill in its fields.
func (h *InvoicesHandler) UploadInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.docs == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Document storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("invoice")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No file in the request")
		return
	}
	defer file.Close()

	filename := storage.CleanFilename(header.Filename)
	if !strings.EqualFold(path.Ext(filename), ".pdf") {
		middleware.WriteError(w, http.StatusBadRequest, "Allowed file types are pdf")
		return
	}

	object := storage.ObjectName(h.now(), filename)
	uri, err := h.docs.Put(ctx, object, file, "application/pdf")
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to store invoice document")
		return
	}

	inv, err := h.repo.CreateInvoice(ctx, domain.InvoiceDraft{
		Issuer:   UploadIssuer,
		Amount:   domain.MoneyFromInt(0),
		Filename: object,
	})
	if err != nil {
		if derr := h.docs.Delete(ctx, object); derr != nil {
			log.Warn().Err(derr).Str("object", object).Msg("Failed to clean up orphaned document")
		}
		middleware.WriteAppError(w, r, err, "Failed to create invoice")
		return
	}
	inv.Refresh()

	resp := struct {
		domain.Invoice
		JobID string `json:"job_id,omitempty"`
	}{Invoice: inv}

	if h.publisher != nil {
		job := &jobs.Job{Type: jobs.JobTypeParseInvoice, InvoiceID: inv.ID, ObjectName: object}
		if err := h.publisher.Publish(ctx, job); err != nil {
			// The invoice exists; it can still be completed by hand.
			log.Error().Err(err).Int64("invoice_id", inv.ID).Msg("Failed to enqueue parse job")
		} else {
			resp.JobID = job.JobID
		}
	}

	log.Info().
		Int64("invoice_id", inv.ID).
		Str("uri", uri).
		Str("job_id", resp.JobID).
		Msg("Invoice uploaded")
	middleware.WriteJSON(w, http.StatusCreated, resp)
}

// errNoID is returned for a path without a numeric id.
var errNoID = apperr.Validation("route", "id", "must be a positive integer")
