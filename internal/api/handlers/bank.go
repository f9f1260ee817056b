package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/export"
	"github.com/dvloznov/finance-overview/internal/summary"
)

// BankService is the part of bankfeed.Service the API needs.
type BankService interface {
	Balance(ctx context.Context) (domain.BankBalance, error)
	Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error)
}

// BankHandler handles balance, transactions, statistics and export, which
// all depend on the bank balance.
type BankHandler struct {
	bank    BankService
	records export.Source
	export  *export.Service
}

func NewBankHandler(bank BankService, records export.Source) *BankHandler {
	return &BankHandler{bank: bank, records: records, export: export.NewService(records)}
}

// GetBalance handles GET /api/balance
func (h *BankHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.bank.Balance(r.Context())
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to get balance")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

// ListTransactions handles GET /api/transactions/{from}/{to}
func (h *BankHandler) ListTransactions(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 {
		middleware.WriteError(w, http.StatusBadRequest, "Expected /transactions/{from}/{to}")
		return
	}
	from, err := domain.ParseDate(parts[0])
	if err != nil {
		middleware.WriteAppError(w, r, apperr.Validation("ListTransactions", "from", "must be a date in YYYY-MM-DD format"), "")
		return
	}
	to, err := domain.ParseDate(parts[1])
	if err != nil {
		middleware.WriteAppError(w, r, apperr.Validation("ListTransactions", "to", "must be a date in YYYY-MM-DD format"), "")
		return
	}
	if to.Before(from.Date) {
		middleware.WriteAppError(w, r, apperr.Validation("ListTransactions", "to", "must not be before from"), "")
		return
	}

	txs, err := h.bank.Transactions(r.Context(), from, to)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, nonNil(txs))
}

// GetStatistics handles GET /api/statistics
func (h *BankHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	b, err := h.bank.Balance(ctx)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to get balance")
		return
	}
	invoices, err := h.records.ListInvoices(ctx)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list invoices")
		return
	}
	expenses, err := h.records.ListExpenses(ctx)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list expenses")
		return
	}
	incomes, err := h.records.ListIncomes(ctx)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list incomes")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary.Statistics(b.Amount, invoices, expenses, incomes))
}

// Export handles GET /api/export.xlsx
func (h *BankHandler) Export(w http.ResponseWriter, r *http.Request) {
	b, err := h.bank.Balance(r.Context())
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to get balance")
		return
	}
	data, err := h.export.XLSX(r.Context(), b.Amount)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to build export")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="finance.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
