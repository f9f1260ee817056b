package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/export"
	"github.com/dvloznov/finance-overview/internal/infra/inmemory"
	"github.com/dvloznov/finance-overview/internal/jobs"
	jobsmem "github.com/dvloznov/finance-overview/internal/jobs/inmemory"
	"github.com/dvloznov/finance-overview/internal/storage"
)

type fakeBank struct {
	balance domain.Money
	txs     []domain.BankTransaction
	from    domain.Date
	to      domain.Date
}

func (f *fakeBank) Balance(ctx context.Context) (domain.BankBalance, error) {
	return domain.BankBalance{Amount: f.balance, LastCheck: time.Now()}, nil
}

func (f *fakeBank) Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error) {
	f.from, f.to = from, to
	return f.txs, nil
}

type fixture struct {
	store    *inmemory.Store
	docs     *storage.Memory
	bank     *fakeBank
	jobStore *jobsmem.Store
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    inmemory.NewStore(),
		docs:     storage.NewMemory(),
		bank:     &fakeBank{balance: domain.MoneyFromInt(1000)},
		jobStore: jobsmem.NewStore(),
	}
	queue := jobsmem.NewQueue(10, f.jobStore)
	t.Cleanup(func() { queue.Close() })

	f.handler = NewRouter("/api", Deps{
		Store:     f.store,
		Bank:      f.bank,
		Docs:      f.docs,
		Publisher: queue,
		JobStore:  f.jobStore,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (f *fixture) createInvoice(t *testing.T, body string) domain.Invoice {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv domain.Invoice
	decodeBody(t, rec, &inv)
	return inv
}

func TestInvoiceCRUD(t *testing.T) {
	f := newFixture(t)

	inv := f.createInvoice(t, `{"issuer":"Telenor","amount":"499.50","due_date":"2024-06-30","bankgiro":"5051-6905","ocr":"1234567890"}`)
	assert.NotZero(t, inv.ID)
	assert.True(t, inv.NeedsCompletion, "plusgiro is missing")

	rec := f.do(t, http.MethodGet, "/api/invoices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Invoice
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "499.50", list[0].Amount.String())

	rec = f.do(t, http.MethodGet, "/api/invoices/"+itoa(inv.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]any
	decodeBody(t, rec, &raw)
	assert.Contains(t, raw, "pdf_data")
	assert.Nil(t, raw["pdf_data"])

	rec = f.do(t, http.MethodPatch, "/api/invoices/"+itoa(inv.ID), `{"issuer":"Telenor AB"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited domain.Invoice
	decodeBody(t, rec, &edited)
	assert.Equal(t, "Telenor AB", edited.Issuer)
	assert.False(t, edited.Status)

	rec = f.do(t, http.MethodDelete, "/api/invoices/"+itoa(inv.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/invoices/"+itoa(inv.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing issuer", `{"amount":10,"due_date":"2024-06-30"}`},
		{"bad due date", `{"issuer":"X","amount":10,"due_date":"30/06/2024"}`},
		{"negative amount", `{"issuer":"X","amount":-1,"due_date":"2024-06-30"}`},
		{"not json", `issuer=X`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestMarkPaidIsTerminal(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, `{"issuer":"Amex","amount":100,"due_date":"2024-06-30","bankgiro":"5127-5477","ocr":"1111111111"}`)
	path := "/api/invoices/" + itoa(inv.ID)

	rec := f.do(t, http.MethodPatch, path, `{"status":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid domain.Invoice
	decodeBody(t, rec, &paid)
	assert.True(t, paid.Status)

	// Paying again is a no-op.
	rec = f.do(t, http.MethodPatch, path, `{"status":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, path, `{"status":false}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := f.store.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status)
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("invoice", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadInvoice(t *testing.T) {
	f := newFixture(t)
	pdf := []byte("%PDF-1.4 fake")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, uploadRequest(t, "bill.pdf", pdf))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		domain.Invoice
		JobID string `json:"job_id"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, UploadIssuer, resp.Issuer)
	assert.True(t, resp.NeedsCompletion)
	assert.NotEmpty(t, resp.JobID)

	job, err := f.jobStore.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobTypeParseInvoice, job.Type)
	assert.Equal(t, resp.ID, job.InvoiceID)

	rec = f.do(t, http.MethodGet, "/api/invoices/"+itoa(resp.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		PDFData *string `json:"pdf_data"`
	}
	decodeBody(t, rec, &got)
	require.NotNil(t, got.PDFData)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pdf), *got.PDFData)

	// Deleting the invoice removes the stored document.
	rec = f.do(t, http.MethodDelete, "/api/invoices/"+itoa(resp.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, err = f.docs.Get(context.Background(), job.ObjectName)
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, uploadRequest(t, "bill.png", []byte("png")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list, err := f.store.ListInvoices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExpensesAndIncomes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/expenses", `{"category":"Rent","description":"June","amount":"8000","date":"2024-06-01","recurring":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e domain.Expense
	decodeBody(t, rec, &e)

	rec = f.do(t, http.MethodPatch, "/api/expenses/"+itoa(e.ID), `{"amount":8100}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &e)
	assert.Equal(t, "8100.00", e.Amount.String())

	rec = f.do(t, http.MethodPatch, "/api/expenses/"+itoa(e.ID), `{"amount":-5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/expenses", `{"category":"","amount":1,"date":"2024-06-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/incomes", `{"source":"Salary","amount":30000,"date":"2024-06-25"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var in domain.Income
	decodeBody(t, rec, &in)

	rec = f.do(t, http.MethodGet, "/api/incomes/"+itoa(in.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/incomes/"+itoa(in.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/incomes/"+itoa(in.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/expenses/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactions(t *testing.T) {
	f := newFixture(t)
	f.bank.txs = []domain.BankTransaction{
		{TransactionID: "t1", Amount: domain.MoneyFromInt(-50), Date: domain.NewDate(2024, time.June, 3)},
	}

	rec := f.do(t, http.MethodGet, "/api/transactions/2024-06-01/2024-06-30", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var txs []domain.BankTransaction
	decodeBody(t, rec, &txs)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.NewDate(2024, time.June, 1), f.bank.from)
	assert.Equal(t, domain.NewDate(2024, time.June, 30), f.bank.to)

	for _, path := range []string{
		"/api/transactions/2024-06-01",
		"/api/transactions/june/2024-06-30",
		"/api/transactions/2024-06-30/2024-06-01",
	} {
		rec := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, `{"issuer":"A","amount":200,"due_date":"2024-06-30"}`)
	paid := f.createInvoice(t, `{"issuer":"B","amount":300,"due_date":"2024-06-30"}`)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPatch, "/api/invoices/"+itoa(paid.ID), `{"status":true}`).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/expenses", `{"category":"Food","amount":150,"date":"2024-06-02"}`).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/incomes", `{"source":"Salary","amount":500,"date":"2024-06-25"}`).Code)

	rec := f.do(t, http.MethodGet, "/api/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.Statistics
	decodeBody(t, rec, &stats)

	assert.Equal(t, 2, stats.TotalInvoices)
	assert.Equal(t, "500.00", stats.TotalInvoicesAmount.String())
	assert.Equal(t, "200.00", stats.TotalUnpaidInvoicesAmount.String())
	// outstanding = 200 unpaid + 150 expenses; profit/loss = 1000 + 500 - 350
	assert.Equal(t, "350.00", stats.Outstanding.String())
	assert.Equal(t, "1150.00", stats.ProfitLoss.String())
	assert.Equal(t, "1000.00", stats.Balance.String())
}

func TestEmails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n, err := f.store.InsertEmails(ctx, []domain.CandidateBill{{MessageID: "m1", Sender: "a@b.se", Subject: "Faktura"}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rec := f.do(t, http.MethodGet, "/api/emails", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bills []domain.CandidateBill
	decodeBody(t, rec, &bills)
	require.Len(t, bills, 1)

	rec = f.do(t, http.MethodDelete, "/api/emails/"+itoa(bills[0].ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/emails", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/scan-emails?since=2024-06-01", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var queued map[string]string
	decodeBody(t, rec, &queued)
	job, err := f.jobStore.GetJob(ctx, queued["job_id"])
	require.NoError(t, err)
	assert.Equal(t, jobs.JobTypeScanEmails, job.Type)
	assert.Equal(t, 2024, job.Since.Year())

	rec = f.do(t, http.MethodPost, "/api/scan-emails?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportAndJobs(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, `{"issuer":"A","amount":200,"due_date":"2024-06-30"}`)

	rec := f.do(t, http.MethodGet, "/api/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = f.do(t, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jobs":[],"count":0}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodDelete, "/api/invoices", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
