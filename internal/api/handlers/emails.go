package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// EmailsHandler handles candidate-bill endpoints.
type EmailsHandler struct {
	repo      repository.EmailRepository
	publisher jobs.Publisher
}

// NewEmailsHandler creates an emails handler. A nil publisher disables
// on-demand scanning.
func NewEmailsHandler(repo repository.EmailRepository, publisher jobs.Publisher) *EmailsHandler {
	return &EmailsHandler{repo: repo, publisher: publisher}
}

// ListEmails handles GET /api/emails
func (h *EmailsHandler) ListEmails(w http.ResponseWriter, r *http.Request) {
	bills, err := h.repo.ListEmails(r.Context())
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list emails")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, nonNil(bills))
}

// DeleteEmail handles DELETE /api/emails/{id}. Invoices and expenses are
// never touched.
func (h *EmailsHandler) DeleteEmail(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.repo.DeleteEmail(r.Context(), id); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to delete email")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Email deleted"})
}

// ScanEmails handles POST /api/scan-emails. An optional ?since=YYYY-MM-DD
// widens the scan; the default is today.
func (h *EmailsHandler) ScanEmails(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Email scanning is not configured")
		return
	}

	job := &jobs.Job{Type: jobs.JobTypeScanEmails}
	if s := r.URL.Query().Get("since"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "since must be a date in YYYY-MM-DD format")
			return
		}
		job.Since = d.In(time.Local)
	}

	if err := h.publisher.Publish(r.Context(), job); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to enqueue email scan")
		return
	}
	log := logger.FromContext(r.Context())
	log.Info().Str("job_id", job.JobID).Msg("Email scan enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}
