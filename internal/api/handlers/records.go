package handlers

import (
	"net/http"
	"strings"

	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// RecordsHandler handles expense and income endpoints.
type RecordsHandler struct {
	expenses repository.ExpenseRepository
	incomes  repository.IncomeRepository
}

func NewRecordsHandler(expenses repository.ExpenseRepository, incomes repository.IncomeRepository) *RecordsHandler {
	return &RecordsHandler{expenses: expenses, incomes: incomes}
}

func validateRecord(op, labelField, label string, amount domain.Money, date domain.Date) error {
	if strings.TrimSpace(label) == "" {
		return apperr.Validation(op, labelField, "is required")
	}
	if amount.IsNegative() {
		return apperr.Validation(op, "amount", "must not be negative")
	}
	if !date.Valid() {
		return apperr.Validation(op, "date", "must be a date in YYYY-MM-DD format")
	}
	return nil
}

// ListExpenses handles GET /api/expenses
func (h *RecordsHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.expenses.ListExpenses(r.Context())
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list expenses")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, nonNil(expenses))
}

// GetExpense handles GET /api/expenses/{id}
func (h *RecordsHandler) GetExpense(w http.ResponseWriter, r *http.Request, id int64) {
	e, err := h.expenses.GetExpense(r.Context(), id)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to get expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, e)
}

// CreateExpense handles POST /api/expenses
func (h *RecordsHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var draft domain.ExpenseDraft
	if err := decodeJSON(r, "CreateExpense", &draft); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to create expense")
		return
	}
	draft.Category = strings.TrimSpace(draft.Category)
	if err := validateRecord("CreateExpense", "category", draft.Category, draft.Amount, draft.Date); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to create expense")
		return
	}
	if draft.Recurring {
		log := logger.FromContext(r.Context())
		log.Debug().Msg("Recurring label ignored")
	}

	e, err := h.expenses.CreateExpense(r.Context(), draft)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to create expense")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, e)
}

// UpdateExpense handles PATCH /api/expenses/{id}
func (h *RecordsHandler) UpdateExpense(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()

	var patch domain.ExpensePatch
	if err := decodeJSON(r, "UpdateExpense", &patch); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to update expense")
		return
	}
	current, err := h.expenses.GetExpense(ctx, id)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to update expense")
		return
	}
	edited := patch.Apply(current)
	if err := validateRecord("UpdateExpense", "category", edited.Category, edited.Amount, edited.Date); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to update expense")
		return
	}

	e, err := h.expenses.UpdateExpense(ctx, id, patch)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to update expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, e)
}

// DeleteExpense handles DELETE /api/expenses/{id}
func (h *RecordsHandler) DeleteExpense(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.expenses.DeleteExpense(r.Context(), id); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to delete expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Expense deleted"})
}

// ListIncomes handles GET /api/incomes
func (h *RecordsHandler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := h.incomes.ListIncomes(r.Context())
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to list incomes")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, nonNil(incomes))
}

// GetIncome handles GET /api/incomes/{id}
func (h *RecordsHandler) GetIncome(w http.ResponseWriter, r *http.Request, id int64) {
	in, err := h.incomes.GetIncome(r.Context(), id)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to get income")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, in)
}

// CreateIncome handles POST /api/incomes
func (h *RecordsHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var draft domain.IncomeDraft
	if err := decodeJSON(r, "CreateIncome", &draft); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to create income")
		return
	}
	draft.Source = strings.TrimSpace(draft.Source)
	if err := validateRecord("CreateIncome", "source", draft.Source, draft.Amount, draft.Date); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to create income")
		return
	}
	if draft.Recurring {
		log := logger.FromContext(r.Context())
		log.Debug().Msg("Recurring label ignored")
	}

	in, err := h.incomes.CreateIncome(r.Context(), draft)
	if err != nil {
		middleware.WriteAppError(w, r, err, "Failed to create income")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, in)
}

// DeleteIncome handles DELETE /api/incomes/{id}
func (h *RecordsHandler) DeleteIncome(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.incomes.DeleteIncome(r.Context(), id); err != nil {
		middleware.WriteAppError(w, r, err, "Failed to delete income")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Income deleted"})
}
