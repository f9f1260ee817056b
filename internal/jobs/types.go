package jobs

import (
	"context"
	"fmt"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeParseInvoice extracts fields from an uploaded invoice PDF.
	JobTypeParseInvoice JobType = "parse_invoice"
	// JobTypeScanEmails scans the mailbox for candidate bills.
	JobTypeScanEmails JobType = "scan_emails"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// Job is one unit of background work.
type Job struct {
	JobID string  `json:"job_id"`
	Type  JobType `json:"type"`

	// InvoiceID and ObjectName are set for parse_invoice jobs.
	InvoiceID  int64  `json:"invoice_id,omitempty"`
	ObjectName string `json:"object_name,omitempty"`

	// Since bounds a scan_emails job. Zero means the scanner default.
	Since time.Time `json:"since,omitzero"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job *Job) error
	Close() error
}

// Consumer runs a handler for every queued job.
type Consumer interface {
	// Start begins consuming jobs. It returns immediately.
	Start(ctx context.Context, handler Handler) error
	// Stop stops consuming and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// Handler processes a job. A returned error makes the job eligible for retry.
type Handler func(ctx context.Context, job *Job) error

// Mux routes jobs to a handler by type.
type Mux map[JobType]Handler

// Handle dispatches job to its registered handler.
func (m Mux) Handle(ctx context.Context, job *Job) error {
	h, ok := m[job.Type]
	if !ok {
		return fmt.Errorf("no handler for job type %q", job.Type)
	}
	return h(ctx, job)
}

// Store persists job state so it can be inspected over the API.
type Store interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	ListJobs(ctx context.Context, filter Filter) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// Filter narrows ListJobs.
type Filter struct {
	Type      JobType
	InvoiceID int64
	Status    JobStatus
	Limit     int
	Offset    int
}
