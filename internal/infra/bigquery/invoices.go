package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// InvoiceRow is one row of the invoices table.
type InvoiceRow struct {
	InvoiceID int64               `bigquery:"invoice_id"` // REQUIRED
	Issuer    string              `bigquery:"issuer"`     // REQUIRED
	Amount    *big.Rat            `bigquery:"amount"`     // REQUIRED NUMERIC
	DueDate   bigquery.NullDate   `bigquery:"due_date"`   // NULLABLE
	Status    bool                `bigquery:"status"`     // REQUIRED, true = paid
	Bankgiro  string              `bigquery:"bankgiro"`
	Plusgiro  string              `bigquery:"plusgiro"`
	OCR       string              `bigquery:"ocr"`
	Filename  bigquery.NullString `bigquery:"filename"` // NULLABLE storage object key
	CreatedTS time.Time           `bigquery:"created_ts"`
}

func (r InvoiceRow) toDomain() domain.Invoice {
	inv := domain.Invoice{
		ID:        r.InvoiceID,
		Issuer:    r.Issuer,
		Amount:    domain.MoneyFromRat(r.Amount),
		DueDate:   dateFromNull(r.DueDate),
		Status:    r.Status,
		Bankgiro:  r.Bankgiro,
		Plusgiro:  r.Plusgiro,
		OCR:       r.OCR,
		CreatedAt: r.CreatedTS,
	}
	if r.Filename.Valid {
		inv.Filename = r.Filename.StringVal
	}
	inv.Refresh()
	return inv
}

const invoiceColumns = `invoice_id, issuer, amount, due_date, status, bankgiro, plusgiro, ocr, filename, created_ts`

func readInvoices(ctx context.Context, q *bigquery.Query, op string) ([]domain.Invoice, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}
	var out []domain.Invoice
	for {
		var r InvoiceRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}

// ListInvoicesWithClient returns all invoices ordered by due date, undated last.
func ListInvoicesWithClient(ctx context.Context, client *bigquery.Client, dataset string) ([]domain.Invoice, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY due_date IS NULL, due_date, invoice_id
	`, invoiceColumns, table(dataset, invoicesTable)))
	return readInvoices(ctx, q, "ListInvoices")
}

// GetInvoiceWithClient returns one invoice or an apperr NotFound.
func GetInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64) (domain.Invoice, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE invoice_id = @invoice_id
		LIMIT 1
	`, invoiceColumns, table(dataset, invoicesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "invoice_id", Value: id},
	}
	rows, err := readInvoices(ctx, q, "GetInvoice")
	if err != nil {
		return domain.Invoice{}, err
	}
	if len(rows) == 0 {
		return domain.Invoice{}, apperr.NotFound("GetInvoice", fmt.Sprintf("invoice %d", id))
	}
	return rows[0], nil
}

// CreateInvoiceWithClient inserts a new unpaid invoice. DML is used instead of
// the streaming inserter so the row can be updated right away.
func CreateInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset string, d domain.InvoiceDraft) (domain.Invoice, error) {
	inv := domain.Invoice{
		ID:        repository.NewID(),
		Issuer:    d.Issuer,
		Amount:    d.Amount,
		DueDate:   d.DueDate,
		Bankgiro:  d.Bankgiro,
		Plusgiro:  d.Plusgiro,
		OCR:       d.OCR,
		Filename:  d.Filename,
		CreatedAt: time.Now().UTC(),
	}
	inv.Refresh()

	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (
			@invoice_id, @issuer, CAST(@amount AS NUMERIC),
			SAFE_CAST(NULLIF(@due_date, '') AS DATE), FALSE,
			@bankgiro, @plusgiro, @ocr, NULLIF(@filename, ''), @created_ts
		)
	`, table(dataset, invoicesTable), invoiceColumns))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "invoice_id", Value: inv.ID},
		{Name: "issuer", Value: inv.Issuer},
		{Name: "amount", Value: moneyParam(inv.Amount)},
		{Name: "due_date", Value: dateParam(inv.DueDate)},
		{Name: "bankgiro", Value: inv.Bankgiro},
		{Name: "plusgiro", Value: inv.Plusgiro},
		{Name: "ocr", Value: inv.OCR},
		{Name: "filename", Value: inv.Filename},
		{Name: "created_ts", Value: inv.CreatedAt},
	}
	if _, err := runDML(ctx, q); err != nil {
		return domain.Invoice{}, fmt.Errorf("CreateInvoice: %w", err)
	}
	return inv, nil
}

// UpdateInvoiceWithClient applies patch to the stored invoice and writes back
// every editable column. Status is OR-ed in the statement so a paid row is
// never reverted, even by a patch computed from an older read. The row is
// read back after the write.
func UpdateInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64, patch domain.InvoicePatch) (domain.Invoice, error) {
	current, err := GetInvoiceWithClient(ctx, client, dataset, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	next := patch.Apply(current)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET issuer = @issuer,
		    amount = CAST(@amount AS NUMERIC),
		    due_date = SAFE_CAST(NULLIF(@due_date, '') AS DATE),
		    status = status OR @status,
		    bankgiro = @bankgiro,
		    plusgiro = @plusgiro,
		    ocr = @ocr
		WHERE invoice_id = @invoice_id
	`, table(dataset, invoicesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "issuer", Value: next.Issuer},
		{Name: "amount", Value: moneyParam(next.Amount)},
		{Name: "due_date", Value: dateParam(next.DueDate)},
		{Name: "status", Value: next.Status},
		{Name: "bankgiro", Value: next.Bankgiro},
		{Name: "plusgiro", Value: next.Plusgiro},
		{Name: "ocr", Value: next.OCR},
		{Name: "invoice_id", Value: id},
	}
	n, err := runDML(ctx, q)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("UpdateInvoice: %w", err)
	}
	if n == 0 {
		return domain.Invoice{}, apperr.NotFound("UpdateInvoice", fmt.Sprintf("invoice %d", id))
	}
	return GetInvoiceWithClient(ctx, client, dataset, id)
}

// DeleteInvoiceWithClient removes the invoice row. The stored document is the
// caller's to delete.
func DeleteInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE invoice_id = @invoice_id
	`, table(dataset, invoicesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "invoice_id", Value: id},
	}
	n, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteInvoice: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("DeleteInvoice", fmt.Sprintf("invoice %d", id))
	}
	return nil
}
