package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/repository"
	"github.com/dvloznov/finance-overview/internal/storage"
)

// Deps are the collaborators behind the API. Docs, Publisher and JobStore
// are optional.
type Deps struct {
	Store     repository.Store
	Bank      BankService
	Docs      storage.Documents
	Publisher jobs.Publisher
	JobStore  jobs.Store
}

// NewRouter registers every endpoint under root (e.g. "/api") plus /health.
func NewRouter(root string, d Deps) *http.ServeMux {
	root = "/" + strings.Trim(root, "/")

	invoicesHandler := NewInvoicesHandler(d.Store, d.Docs, d.Publisher)
	recordsHandler := NewRecordsHandler(d.Store, d.Store)
	bankHandler := NewBankHandler(d.Bank, d.Store)
	emailsHandler := NewEmailsHandler(d.Store, d.Publisher)

	mux := http.NewServeMux()

	// Invoices endpoints
	mux.HandleFunc(root+"/invoices", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			invoicesHandler.ListInvoices(w, r)
		case http.MethodPost:
			invoicesHandler.CreateInvoice(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/invoices/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			invoicesHandler.UploadInvoice(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/invoices/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, root+"/invoices/")
		if !ok {
			middleware.WriteAppError(w, r, errNoID, "")
			return
		}
		switch r.Method {
		case http.MethodGet:
			invoicesHandler.GetInvoice(w, r, id)
		case http.MethodPatch, http.MethodPut:
			invoicesHandler.UpdateInvoice(w, r, id)
		case http.MethodDelete:
			invoicesHandler.DeleteInvoice(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	// Expenses endpoints
	mux.HandleFunc(root+"/expenses", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			recordsHandler.ListExpenses(w, r)
		case http.MethodPost:
			recordsHandler.CreateExpense(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/expenses/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, root+"/expenses/")
		if !ok {
			middleware.WriteAppError(w, r, errNoID, "")
			return
		}
		switch r.Method {
		case http.MethodGet:
			recordsHandler.GetExpense(w, r, id)
		case http.MethodPatch, http.MethodPut:
			recordsHandler.UpdateExpense(w, r, id)
		case http.MethodDelete:
			recordsHandler.DeleteExpense(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	// Incomes endpoints
	mux.HandleFunc(root+"/incomes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			recordsHandler.ListIncomes(w, r)
		case http.MethodPost:
			recordsHandler.CreateIncome(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/incomes/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, root+"/incomes/")
		if !ok {
			middleware.WriteAppError(w, r, errNoID, "")
			return
		}
		switch r.Method {
		case http.MethodGet:
			recordsHandler.GetIncome(w, r, id)
		case http.MethodDelete:
			recordsHandler.DeleteIncome(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	// Bank endpoints
	mux.HandleFunc(root+"/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			bankHandler.ListTransactions(w, r, strings.TrimPrefix(r.URL.Path, root+"/transactions/"))
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			bankHandler.GetBalance(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/statistics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			bankHandler.GetStatistics(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/export.xlsx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			bankHandler.Export(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Emails endpoints
	mux.HandleFunc(root+"/emails", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			emailsHandler.ListEmails(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/emails/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, root+"/emails/")
		if !ok {
			middleware.WriteAppError(w, r, errNoID, "")
			return
		}
		if r.Method == http.MethodDelete {
			emailsHandler.DeleteEmail(w, r, id)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(root+"/scan-emails", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			emailsHandler.ScanEmails(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Jobs endpoints
	if d.JobStore != nil {
		jobsHandler := NewJobsHandler(d.JobStore)

		mux.HandleFunc(root+"/jobs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				jobsHandler.ListJobs(w, r)
			} else {
				methodNotAllowed(w)
			}
		})

		mux.HandleFunc(root+"/jobs/", func(w http.ResponseWriter, r *http.Request) {
			jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, root+"/jobs/"), "/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			if r.Method == http.MethodGet {
				jobsHandler.GetJob(w, r, jobID)
			} else {
				methodNotAllowed(w)
			}
		})
	}

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
