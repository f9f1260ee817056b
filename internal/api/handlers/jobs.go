package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/logger"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.Store
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.Store) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Debug().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.Filter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}
	if s := query.Get("invoice_id"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			filter.InvoiceID = id
		}
	}
	if s := query.Get("limit"); s != "" {
		if limit, err := strconv.Atoi(s); err == nil {
			filter.Limit = limit
		}
	}
	if s := query.Get("offset"); s != "" {
		if offset, err := strconv.Atoi(s); err == nil {
			filter.Offset = offset
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  nonNil(list),
		"count": len(list),
	})
}
