// Package repository defines the persistence contracts shared by the HTTP
// handlers, the background jobs and both storage backends.
package repository

import (
	"context"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// InvoiceRepository stores invoices. Missing ids yield an apperr NotFound.
// It satisfies lifecycle.Store.
type InvoiceRepository interface {
	// ListInvoices returns all invoices without pdf_data.
	ListInvoices(ctx context.Context) ([]domain.Invoice, error)

	// GetInvoice returns one invoice. PDFData is filled by the caller from
	// document storage.
	GetInvoice(ctx context.Context, id int64) (domain.Invoice, error)

	CreateInvoice(ctx context.Context, draft domain.InvoiceDraft) (domain.Invoice, error)

	// UpdateInvoice applies patch and returns the stored result.
	UpdateInvoice(ctx context.Context, id int64, patch domain.InvoicePatch) (domain.Invoice, error)

	DeleteInvoice(ctx context.Context, id int64) error
}

// ExpenseRepository stores expenses.
type ExpenseRepository interface {
	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	GetExpense(ctx context.Context, id int64) (domain.Expense, error)
	CreateExpense(ctx context.Context, draft domain.ExpenseDraft) (domain.Expense, error)
	UpdateExpense(ctx context.Context, id int64, patch domain.ExpensePatch) (domain.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// IncomeRepository stores income entries.
type IncomeRepository interface {
	ListIncomes(ctx context.Context) ([]domain.Income, error)
	GetIncome(ctx context.Context, id int64) (domain.Income, error)
	CreateIncome(ctx context.Context, draft domain.IncomeDraft) (domain.Income, error)
	DeleteIncome(ctx context.Context, id int64) error
}

// TransactionRepository stores bank transactions from the feed.
type TransactionRepository interface {
	// ListTransactions returns transactions dated within [from, to], oldest first.
	ListTransactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error)

	// UpsertTransactions stores transactions not yet known by TransactionID
	// and returns how many were new.
	UpsertTransactions(ctx context.Context, txs []domain.BankTransaction) (int, error)
}

// BalanceRepository caches the last bank balance.
type BalanceRepository interface {
	// GetBalance returns the cached balance. A never-checked balance has a
	// zero LastCheck.
	GetBalance(ctx context.Context) (domain.BankBalance, error)
	SaveBalance(ctx context.Context, b domain.BankBalance) error
}

// EmailRepository stores candidate-bill emails.
type EmailRepository interface {
	ListEmails(ctx context.Context) ([]domain.CandidateBill, error)

	// InsertEmails stores bills whose MessageID is not yet known and returns
	// how many were new.
	InsertEmails(ctx context.Context, bills []domain.CandidateBill) (int, error)

	DeleteEmail(ctx context.Context, id int64) error
}

// Store groups every repository behind one backend.
type Store interface {
	InvoiceRepository
	ExpenseRepository
	IncomeRepository
	TransactionRepository
	BalanceRepository
	EmailRepository
	Close() error
}
