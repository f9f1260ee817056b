package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/normalize"
)

func (c *Client) ListExpenses(ctx context.Context) ([]domain.Expense, []normalize.Rejection, error) {
	raw, err := c.do(ctx, "ListExpenses", http.MethodGet, "/expenses", nil, "")
	if err != nil {
		return nil, nil, err
	}
	expenses, rejections := normalize.Expenses(raw)
	return expenses, rejections, nil
}

func (c *Client) GetExpense(ctx context.Context, id int64) (domain.Expense, error) {
	raw, err := c.do(ctx, "GetExpense", http.MethodGet, fmt.Sprintf("/expenses/%d", id), nil, "")
	if err != nil {
		return domain.Expense{}, err
	}
	return one("GetExpense", normalize.Expense(raw))
}

func (c *Client) CreateExpense(ctx context.Context, draft domain.ExpenseDraft) (domain.Expense, error) {
	raw, err := c.sendJSON(ctx, "CreateExpense", http.MethodPost, "/expenses", draft)
	if err != nil {
		return domain.Expense{}, err
	}
	return one("CreateExpense", normalize.Expense(raw))
}

func (c *Client) UpdateExpense(ctx context.Context, id int64, patch domain.ExpensePatch) (domain.Expense, error) {
	raw, err := c.sendJSON(ctx, "UpdateExpense", http.MethodPatch, fmt.Sprintf("/expenses/%d", id), patch)
	if err != nil {
		return domain.Expense{}, err
	}
	return one("UpdateExpense", normalize.Expense(raw))
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "DeleteExpense", http.MethodDelete, fmt.Sprintf("/expenses/%d", id), nil, "")
	return err
}

func (c *Client) ListIncomes(ctx context.Context) ([]domain.Income, []normalize.Rejection, error) {
	raw, err := c.do(ctx, "ListIncomes", http.MethodGet, "/incomes", nil, "")
	if err != nil {
		return nil, nil, err
	}
	incomes, rejections := normalize.Incomes(raw)
	return incomes, rejections, nil
}

func (c *Client) CreateIncome(ctx context.Context, draft domain.IncomeDraft) (domain.Income, error) {
	raw, err := c.sendJSON(ctx, "CreateIncome", http.MethodPost, "/incomes", draft)
	if err != nil {
		return domain.Income{}, err
	}
	return one("CreateIncome", normalize.Income(raw))
}

func (c *Client) DeleteIncome(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "DeleteIncome", http.MethodDelete, fmt.Sprintf("/incomes/%d", id), nil, "")
	return err
}

// Transactions lists bank transactions dated within [from, to].
func (c *Client) Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, []normalize.Rejection, error) {
	if !from.Valid() || !to.Valid() {
		return nil, nil, apperr.Validation("Transactions", "date", "from and to must be YYYY-MM-DD dates")
	}
	raw, err := c.do(ctx, "Transactions", http.MethodGet, fmt.Sprintf("/transactions/%s/%s", from, to), nil, "")
	if err != nil {
		return nil, nil, err
	}
	txs, rejections := normalize.Transactions(raw)
	return txs, rejections, nil
}

// Balance returns the bank-reported balance.
func (c *Client) Balance(ctx context.Context) (domain.BankBalance, error) {
	raw, err := c.do(ctx, "Balance", http.MethodGet, "/balance", nil, "")
	if err != nil {
		return domain.BankBalance{}, err
	}
	return one("Balance", normalize.Balance(raw))
}

// Statistics returns the server-computed totals.
func (c *Client) Statistics(ctx context.Context) (domain.Statistics, error) {
	raw, err := c.do(ctx, "Statistics", http.MethodGet, "/statistics", nil, "")
	if err != nil {
		return domain.Statistics{}, err
	}
	return one("Statistics", normalize.Statistics(raw))
}

func (c *Client) ListEmails(ctx context.Context) ([]domain.CandidateBill, []normalize.Rejection, error) {
	raw, err := c.do(ctx, "ListEmails", http.MethodGet, "/emails", nil, "")
	if err != nil {
		return nil, nil, err
	}
	bills, rejections := normalize.CandidateBills(raw)
	return bills, rejections, nil
}

// DeleteEmail dismisses a candidate bill. Invoices and expenses are untouched.
func (c *Client) DeleteEmail(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "DeleteEmail", http.MethodDelete, fmt.Sprintf("/emails/%d", id), nil, "")
	return err
}

// ScanEmails asks the server to scan the mailbox now.
func (c *Client) ScanEmails(ctx context.Context) error {
	_, err := c.do(ctx, "ScanEmails", http.MethodPost, "/scan-emails", nil, "")
	return err
}
