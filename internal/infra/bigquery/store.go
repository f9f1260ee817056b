// Package bigquery implements repository.Store on BigQuery tables created by
// cmd/migrate.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// Table names inside the dataset.
const (
	invoicesTable     = "invoices"
	expensesTable     = "expenses"
	incomesTable      = "incomes"
	transactionsTable = "bank_transactions"
	balanceTable      = "bank_balance"
	emailsTable       = "candidate_emails"
)

// Store is the BigQuery-backed repository.Store. It holds one shared client
// and delegates every operation to the matching ...WithClient function.
type Store struct {
	client  *bigquery.Client
	dataset string
}

var _ repository.Store = (*Store)(nil)

// NewStore connects to projectID and uses dataset for all tables.
func NewStore(ctx context.Context, projectID, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	return ListInvoicesWithClient(ctx, s.client, s.dataset)
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	return GetInvoiceWithClient(ctx, s.client, s.dataset, id)
}

func (s *Store) CreateInvoice(ctx context.Context, d domain.InvoiceDraft) (domain.Invoice, error) {
	return CreateInvoiceWithClient(ctx, s.client, s.dataset, d)
}

func (s *Store) UpdateInvoice(ctx context.Context, id int64, patch domain.InvoicePatch) (domain.Invoice, error) {
	return UpdateInvoiceWithClient(ctx, s.client, s.dataset, id, patch)
}

func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	return DeleteInvoiceWithClient(ctx, s.client, s.dataset, id)
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return ListExpensesWithClient(ctx, s.client, s.dataset)
}

func (s *Store) GetExpense(ctx context.Context, id int64) (domain.Expense, error) {
	return GetExpenseWithClient(ctx, s.client, s.dataset, id)
}

func (s *Store) CreateExpense(ctx context.Context, d domain.ExpenseDraft) (domain.Expense, error) {
	return CreateExpenseWithClient(ctx, s.client, s.dataset, d)
}

func (s *Store) UpdateExpense(ctx context.Context, id int64, patch domain.ExpensePatch) (domain.Expense, error) {
	return UpdateExpenseWithClient(ctx, s.client, s.dataset, id, patch)
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	return DeleteExpenseWithClient(ctx, s.client, s.dataset, id)
}

func (s *Store) ListIncomes(ctx context.Context) ([]domain.Income, error) {
	return ListIncomesWithClient(ctx, s.client, s.dataset)
}

func (s *Store) GetIncome(ctx context.Context, id int64) (domain.Income, error) {
	return GetIncomeWithClient(ctx, s.client, s.dataset, id)
}

func (s *Store) CreateIncome(ctx context.Context, d domain.IncomeDraft) (domain.Income, error) {
	return CreateIncomeWithClient(ctx, s.client, s.dataset, d)
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	return DeleteIncomeWithClient(ctx, s.client, s.dataset, id)
}

func (s *Store) ListTransactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error) {
	return ListTransactionsWithClient(ctx, s.client, s.dataset, from, to)
}

func (s *Store) UpsertTransactions(ctx context.Context, txs []domain.BankTransaction) (int, error) {
	return UpsertTransactionsWithClient(ctx, s.client, s.dataset, txs)
}

func (s *Store) GetBalance(ctx context.Context) (domain.BankBalance, error) {
	return GetBalanceWithClient(ctx, s.client, s.dataset)
}

func (s *Store) SaveBalance(ctx context.Context, b domain.BankBalance) error {
	return SaveBalanceWithClient(ctx, s.client, s.dataset, b)
}

func (s *Store) ListEmails(ctx context.Context) ([]domain.CandidateBill, error) {
	return ListEmailsWithClient(ctx, s.client, s.dataset)
}

func (s *Store) InsertEmails(ctx context.Context, bills []domain.CandidateBill) (int, error) {
	return InsertEmailsWithClient(ctx, s.client, s.dataset, bills)
}

func (s *Store) DeleteEmail(ctx context.Context, id int64) error {
	return DeleteEmailWithClient(ctx, s.client, s.dataset, id)
}

// table returns the dataset-qualified table name.
func table(dataset, name string) string {
	return fmt.Sprintf("`%s.%s`", dataset, name)
}

// runDML runs a DML statement and waits for it. It returns the number of
// affected rows, or -1 when BigQuery did not report it.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}
	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return -1, nil
}

// moneyParam renders an amount for a NUMERIC column. Amounts travel as
// strings and are cast in SQL so nullable columns need no typed-nil params.
func moneyParam(m domain.Money) string {
	return m.Decimal().String()
}

func optionalMoneyParam(m *domain.Money) string {
	if m == nil {
		return ""
	}
	return moneyParam(*m)
}

func dateParam(d domain.Date) string {
	return d.String()
}

func dateFromNull(d bigquery.NullDate) domain.Date {
	if !d.Valid {
		return domain.Date{}
	}
	return domain.Date{Date: d.Date}
}
