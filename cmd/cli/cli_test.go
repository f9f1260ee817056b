package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/api/handlers"
	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/infra/inmemory"
	"github.com/dvloznov/finance-overview/internal/storage"
)

type stubBank struct{ balance domain.Money }

func (b stubBank) Balance(ctx context.Context) (domain.BankBalance, error) {
	return domain.BankBalance{Amount: b.balance, LastCheck: time.Now().Add(-time.Hour)}, nil
}

func (b stubBank) Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error) {
	return []domain.BankTransaction{
		{ID: 1, TransactionID: "t1", Description: "Salary", Amount: domain.MoneyFromInt(25000), Date: to},
		{ID: 2, TransactionID: "t2", Description: "Rent", Amount: domain.MoneyFromInt(-9000), Date: to},
	}, nil
}

func newServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	router := handlers.NewRouter("/api", handlers.Deps{
		Store: inmemory.NewStore(),
		Bank:  stubBank{balance: domain.MoneyFromInt(1000)},
		Docs:  storage.NewMemory(),
	})
	srv := httptest.NewServer(middleware.Auth(token)(router))
	t.Cleanup(srv.Close)
	return srv
}

// run executes one CLI invocation against srv and returns stdout and stderr.
func run(t *testing.T, srv *httptest.Server, token string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&app{apiURL: srv.URL + "/api", token: token, log: zerolog.Nop()})
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

var createdRe = regexp.MustCompile(`(?:Created \w+|as invoice) (\d+)`)

// createdID pulls the new record id out of a create or upload message.
func createdID(t *testing.T, out string) string {
	t.Helper()
	m := createdRe.FindStringSubmatch(out)
	require.Len(t, m, 2, "no id in %q", out)
	return m[1]
}

func TestInvoiceWorkflow(t *testing.T) {
	srv := newServer(t, "")

	out, errOut, err := run(t, srv, "", "invoices", "add",
		"--issuer", "Vattenfall", "--amount", "250", "--due", "2030-01-31", "--bankgiro", "5050-1055")
	require.NoError(t, err)
	id := createdID(t, out)
	assert.Contains(t, errOut, "Invoice created.")

	out, _, err = run(t, srv, "", "invoices", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Vattenfall")
	assert.Contains(t, out, "250.00kr")
	assert.Contains(t, out, "incomplete")

	out, _, err = run(t, srv, "", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance:      1000.00kr")
	assert.Contains(t, out, "Outstanding:  250.00kr")

	out, _, err = run(t, srv, "", "invoices", "pay", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Invoice "+id+" marked as paid")

	out, _, err = run(t, srv, "", "invoices", "pay", id)
	require.NoError(t, err)
	assert.Contains(t, out, "already paid")

	out, _, err = run(t, srv, "", "invoices", "list", "--unpaid")
	require.NoError(t, err)
	assert.NotContains(t, out, "Vattenfall")

	out, _, err = run(t, srv, "", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Outstanding:  0.00kr")

	_, _, err = run(t, srv, "", "invoices", "delete", id)
	require.NoError(t, err)
}

func TestInvoiceEditSendsOnlyChangedFlags(t *testing.T) {
	srv := newServer(t, "")
	out, _, err := run(t, srv, "", "invoices", "add", "--issuer", "Telia", "--amount", "399", "--due", "2030-02-01")
	require.NoError(t, err)

	_, _, err = run(t, srv, "", "invoices", "edit", createdID(t, out), "--ocr", "123456789")
	require.NoError(t, err)

	out, _, err = run(t, srv, "", "invoices", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Telia")
	assert.Contains(t, out, "399.00kr")
	assert.Contains(t, out, "123456789")
}

func TestInvalidInput(t *testing.T) {
	srv := newServer(t, "")

	_, _, err := run(t, srv, "", "invoices", "add", "--issuer", "X", "--amount", "abc", "--due", "2030-01-01")
	assert.ErrorContains(t, err, "amount")

	_, _, err = run(t, srv, "", "invoices", "pay", "zero")
	assert.ErrorContains(t, err, "not a record id")

	_, _, err = run(t, srv, "", "invoices", "upload", "notes.txt")
	assert.ErrorContains(t, err, "only PDF")
}

func TestExpensesAndIncomes(t *testing.T) {
	srv := newServer(t, "")

	out, _, err := run(t, srv, "", "expenses", "add", "--category", "Food", "--amount", "120.50", "--date", "2030-01-10")
	require.NoError(t, err)
	expenseID := createdID(t, out)
	out, _, err = run(t, srv, "", "incomes", "add", "--source", "Salary", "--amount", "30000", "--date", "2030-01-25")
	require.NoError(t, err)
	incomeID := createdID(t, out)

	out, _, err = run(t, srv, "", "expenses", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "120.50kr")

	_, _, err = run(t, srv, "", "expenses", "edit", expenseID, "--amount", "99")
	require.NoError(t, err)
	out, _, err = run(t, srv, "", "expenses", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "99.00kr")

	out, _, err = run(t, srv, "", "incomes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Salary")

	_, _, err = run(t, srv, "", "incomes", "delete", incomeID)
	require.NoError(t, err)
	_, _, err = run(t, srv, "", "expenses", "delete", expenseID)
	require.NoError(t, err)
}

func TestTransactions(t *testing.T) {
	srv := newServer(t, "")

	out, _, err := run(t, srv, "", "transactions")
	require.NoError(t, err)
	assert.Contains(t, out, "Salary")
	assert.Contains(t, out, "Rent")
	assert.Contains(t, out, "Balance 1000.00kr")

	out, _, err = run(t, srv, "", "transactions", "--out")
	require.NoError(t, err)
	assert.NotContains(t, out, "Salary")
	assert.Contains(t, out, "Rent")
}

func TestViewWritesDocument(t *testing.T) {
	srv := newServer(t, "")
	dir := t.TempDir()
	pdf := filepath.Join(dir, "bill.pdf")
	content := []byte("%PDF-1.4 test")
	require.NoError(t, os.WriteFile(pdf, content, 0o644))

	out, _, err := run(t, srv, "", "invoices", "upload", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded bill.pdf as invoice ")

	dst := filepath.Join(dir, "copy.pdf")
	_, _, err = run(t, srv, "", "invoices", "view", createdID(t, out), "--out", dst)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestToken(t *testing.T) {
	srv := newServer(t, "s3cret")

	_, _, err := run(t, srv, "", "invoices", "add", "--issuer", "A", "--amount", "1", "--due", "2030-01-01")
	assert.Error(t, err)

	_, _, err = run(t, srv, "s3cret", "invoices", "add", "--issuer", "A", "--amount", "1", "--due", "2030-01-01")
	assert.NoError(t, err)
}
