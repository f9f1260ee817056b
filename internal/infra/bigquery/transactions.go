package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// TransactionRow is one row of the bank_transactions table. Rows are
// append-only, so they are written with the streaming inserter.
type TransactionRow struct {
	TransactionID  string     `bigquery:"transaction_id"` // REQUIRED, provider id
	ID             int64      `bigquery:"id"`
	Description    string     `bigquery:"description"`
	AdditionalInfo string     `bigquery:"additional_info"`
	Debtor         string     `bigquery:"debtor"`
	Amount         *big.Rat   `bigquery:"amount"`       // REQUIRED NUMERIC, signed
	BookingDate    civil.Date `bigquery:"booking_date"` // REQUIRED
	CreatedTS      time.Time  `bigquery:"created_ts"`
}

func (r TransactionRow) toDomain() domain.BankTransaction {
	return domain.BankTransaction{
		ID:             r.ID,
		TransactionID:  r.TransactionID,
		Description:    r.Description,
		AdditionalInfo: r.AdditionalInfo,
		Debtor:         r.Debtor,
		Amount:         domain.MoneyFromRat(r.Amount),
		Date:           domain.Date{Date: r.BookingDate},
		CreatedAt:      r.CreatedTS,
	}
}

// ListTransactionsWithClient returns transactions booked within [from, to].
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, dataset string, from, to domain.Date) ([]domain.BankTransaction, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT transaction_id, id, description, additional_info, debtor, amount, booking_date, created_ts
		FROM %s
		WHERE booking_date >= @start_date
		  AND booking_date <= @end_date
		ORDER BY booking_date, transaction_id
	`, table(dataset, transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: from.Date},
		{Name: "end_date", Value: to.Date},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}
	var out []domain.BankTransaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}

// UpsertTransactionsWithClient inserts the transactions whose provider id is
// not stored yet and returns how many were inserted.
func UpsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, dataset string, txs []domain.BankTransaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		if tx.TransactionID == "" {
			return 0, fmt.Errorf("UpsertTransactions: transaction_id is required")
		}
		ids = append(ids, tx.TransactionID)
	}

	q := client.Query(fmt.Sprintf(`
		SELECT transaction_id
		FROM %s
		WHERE transaction_id IN UNNEST(@ids)
	`, table(dataset, transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "ids", Value: ids},
	}
	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("UpsertTransactions: query read: %w", err)
	}
	known := make(map[string]bool)
	for {
		var row struct {
			TransactionID string `bigquery:"transaction_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("UpsertTransactions: iter next: %w", err)
		}
		known[row.TransactionID] = true
	}

	now := time.Now().UTC()
	var rows []*TransactionRow
	for _, tx := range txs {
		if known[tx.TransactionID] {
			continue
		}
		known[tx.TransactionID] = true
		id := tx.ID
		if id == 0 {
			id = repository.NewID()
		}
		rows = append(rows, &TransactionRow{
			TransactionID:  tx.TransactionID,
			ID:             id,
			Description:    tx.Description,
			AdditionalInfo: tx.AdditionalInfo,
			Debtor:         tx.Debtor,
			Amount:         tx.Amount.Rat(),
			BookingDate:    tx.Date.Date,
			CreatedTS:      now,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	inserter := client.Dataset(dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return 0, fmt.Errorf("UpsertTransactions: inserting rows: %w", err)
	}
	return len(rows), nil
}
