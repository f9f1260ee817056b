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

// EmailRow is one row of the candidate_emails table.
type EmailRow struct {
	EmailID   int64               `bigquery:"email_id"`
	MessageID bigquery.NullString `bigquery:"message_id"`
	Sender    string              `bigquery:"sender"`
	Subject   string              `bigquery:"subject"`
	Body      string              `bigquery:"body"`
	Amount    *big.Rat            `bigquery:"amount"` // NULLABLE NUMERIC
	CreatedTS time.Time           `bigquery:"created_ts"`
}

func (r EmailRow) toDomain() domain.CandidateBill {
	b := domain.CandidateBill{
		ID:        r.EmailID,
		Sender:    r.Sender,
		Subject:   r.Subject,
		Body:      r.Body,
		CreatedAt: r.CreatedTS,
	}
	if r.MessageID.Valid {
		b.MessageID = r.MessageID.StringVal
	}
	if r.Amount != nil {
		m := domain.MoneyFromRat(r.Amount)
		b.Amount = &m
	}
	return b
}

// ListEmailsWithClient returns candidate bills, newest first.
func ListEmailsWithClient(ctx context.Context, client *bigquery.Client, dataset string) ([]domain.CandidateBill, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT email_id, message_id, sender, subject, body, amount, created_ts
		FROM %s
		ORDER BY created_ts DESC
	`, table(dataset, emailsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListEmails: query read: %w", err)
	}
	var out []domain.CandidateBill
	for {
		var r EmailRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListEmails: iter next: %w", err)
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}

// InsertEmailsWithClient stores bills whose message id is not yet known.
func InsertEmailsWithClient(ctx context.Context, client *bigquery.Client, dataset string, bills []domain.CandidateBill) (int, error) {
	if len(bills) == 0 {
		return 0, nil
	}

	var ids []string
	for _, b := range bills {
		if b.MessageID != "" {
			ids = append(ids, b.MessageID)
		}
	}
	known := make(map[string]bool)
	if len(ids) > 0 {
		q := client.Query(fmt.Sprintf(`
			SELECT message_id
			FROM %s
			WHERE message_id IN UNNEST(@ids)
		`, table(dataset, emailsTable)))
		q.Parameters = []bigquery.QueryParameter{
			{Name: "ids", Value: ids},
		}
		it, err := q.Read(ctx)
		if err != nil {
			return 0, fmt.Errorf("InsertEmails: query read: %w", err)
		}
		for {
			var row struct {
				MessageID string `bigquery:"message_id"`
			}
			err := it.Next(&row)
			if err == iterator.Done {
				break
			}
			if err != nil {
				return 0, fmt.Errorf("InsertEmails: iter next: %w", err)
			}
			known[row.MessageID] = true
		}
	}

	added := 0
	for _, b := range bills {
		if b.MessageID != "" && known[b.MessageID] {
			continue
		}
		known[b.MessageID] = true
		created := b.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}

		q := client.Query(fmt.Sprintf(`
			INSERT INTO %s (email_id, message_id, sender, subject, body, amount, created_ts)
			VALUES (@email_id, NULLIF(@message_id, ''), @sender, @subject, @body,
			        SAFE_CAST(NULLIF(@amount, '') AS NUMERIC), @created_ts)
		`, table(dataset, emailsTable)))
		q.Parameters = []bigquery.QueryParameter{
			{Name: "email_id", Value: repository.NewID()},
			{Name: "message_id", Value: b.MessageID},
			{Name: "sender", Value: b.Sender},
			{Name: "subject", Value: b.Subject},
			{Name: "body", Value: b.Body},
			{Name: "amount", Value: optionalMoneyParam(b.Amount)},
			{Name: "created_ts", Value: created},
		}
		if _, err := runDML(ctx, q); err != nil {
			return added, fmt.Errorf("InsertEmails: %w", err)
		}
		added++
	}
	return added, nil
}

func DeleteEmailWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE email_id = @email_id
	`, table(dataset, emailsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "email_id", Value: id},
	}
	n, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteEmail: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("DeleteEmail", fmt.Sprintf("email %d", id))
	}
	return nil
}
