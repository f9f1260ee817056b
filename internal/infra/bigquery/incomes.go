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

// IncomeRow is one row of the incomes table.
type IncomeRow struct {
	IncomeID    int64             `bigquery:"income_id"`
	Source      string            `bigquery:"source"`
	Description string            `bigquery:"description"`
	Amount      *big.Rat          `bigquery:"amount"`
	Date        bigquery.NullDate `bigquery:"date"`
	CreatedTS   time.Time         `bigquery:"created_ts"`
}

func (r IncomeRow) toDomain() domain.Income {
	return domain.Income{
		ID:          r.IncomeID,
		Source:      r.Source,
		Description: r.Description,
		Amount:      domain.MoneyFromRat(r.Amount),
		Date:        dateFromNull(r.Date),
		CreatedAt:   r.CreatedTS,
	}
}

const incomeColumns = `income_id, source, description, amount, date, created_ts`

func readIncomes(ctx context.Context, q *bigquery.Query, op string) ([]domain.Income, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}
	var out []domain.Income
	for {
		var r IncomeRow
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

func ListIncomesWithClient(ctx context.Context, client *bigquery.Client, dataset string) ([]domain.Income, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY date IS NULL, date, income_id
	`, incomeColumns, table(dataset, incomesTable)))
	return readIncomes(ctx, q, "ListIncomes")
}

func GetIncomeWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64) (domain.Income, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE income_id = @income_id
		LIMIT 1
	`, incomeColumns, table(dataset, incomesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "income_id", Value: id},
	}
	rows, err := readIncomes(ctx, q, "GetIncome")
	if err != nil {
		return domain.Income{}, err
	}
	if len(rows) == 0 {
		return domain.Income{}, apperr.NotFound("GetIncome", fmt.Sprintf("income %d", id))
	}
	return rows[0], nil
}

// CreateIncomeWithClient stores an income entry. The recurring label of the
// draft is not persisted.
func CreateIncomeWithClient(ctx context.Context, client *bigquery.Client, dataset string, d domain.IncomeDraft) (domain.Income, error) {
	in := domain.Income{
		ID:          repository.NewID(),
		Source:      d.Source,
		Description: d.Description,
		Amount:      d.Amount,
		Date:        d.Date,
		CreatedAt:   time.Now().UTC(),
	}
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@income_id, @source, @description, CAST(@amount AS NUMERIC),
		        SAFE_CAST(NULLIF(@date, '') AS DATE), @created_ts)
	`, table(dataset, incomesTable), incomeColumns))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "income_id", Value: in.ID},
		{Name: "source", Value: in.Source},
		{Name: "description", Value: in.Description},
		{Name: "amount", Value: moneyParam(in.Amount)},
		{Name: "date", Value: dateParam(in.Date)},
		{Name: "created_ts", Value: in.CreatedAt},
	}
	if _, err := runDML(ctx, q); err != nil {
		return domain.Income{}, fmt.Errorf("CreateIncome: %w", err)
	}
	return in, nil
}

func DeleteIncomeWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE income_id = @income_id
	`, table(dataset, incomesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "income_id", Value: id},
	}
	n, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteIncome: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("DeleteIncome", fmt.Sprintf("income %d", id))
	}
	return nil
}
