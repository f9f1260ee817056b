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

// ExpenseRow is one row of the expenses table.
type ExpenseRow struct {
	ExpenseID   int64             `bigquery:"expense_id"`
	Category    string            `bigquery:"category"`
	Description string            `bigquery:"description"`
	Amount      *big.Rat          `bigquery:"amount"` // NUMERIC, positive magnitude
	Date        bigquery.NullDate `bigquery:"date"`
	CreatedTS   time.Time         `bigquery:"created_ts"`
}

func (r ExpenseRow) toDomain() domain.Expense {
	return domain.Expense{
		ID:          r.ExpenseID,
		Category:    r.Category,
		Description: r.Description,
		Amount:      domain.MoneyFromRat(r.Amount),
		Date:        dateFromNull(r.Date),
		CreatedAt:   r.CreatedTS,
	}
}

const expenseColumns = `expense_id, category, description, amount, date, created_ts`

func readExpenses(ctx context.Context, q *bigquery.Query, op string) ([]domain.Expense, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}
	var out []domain.Expense
	for {
		var r ExpenseRow
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

// ListExpensesWithClient returns all expenses, oldest first.
func ListExpensesWithClient(ctx context.Context, client *bigquery.Client, dataset string) ([]domain.Expense, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY date IS NULL, date, expense_id
	`, expenseColumns, table(dataset, expensesTable)))
	return readExpenses(ctx, q, "ListExpenses")
}

func GetExpenseWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64) (domain.Expense, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE expense_id = @expense_id
		LIMIT 1
	`, expenseColumns, table(dataset, expensesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "expense_id", Value: id},
	}
	rows, err := readExpenses(ctx, q, "GetExpense")
	if err != nil {
		return domain.Expense{}, err
	}
	if len(rows) == 0 {
		return domain.Expense{}, apperr.NotFound("GetExpense", fmt.Sprintf("expense %d", id))
	}
	return rows[0], nil
}

func CreateExpenseWithClient(ctx context.Context, client *bigquery.Client, dataset string, d domain.ExpenseDraft) (domain.Expense, error) {
	e := domain.Expense{
		ID:          repository.NewID(),
		Category:    d.Category,
		Description: d.Description,
		Amount:      d.Amount,
		Date:        d.Date,
		CreatedAt:   time.Now().UTC(),
	}
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@expense_id, @category, @description, CAST(@amount AS NUMERIC),
		        SAFE_CAST(NULLIF(@date, '') AS DATE), @created_ts)
	`, table(dataset, expensesTable), expenseColumns))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "expense_id", Value: e.ID},
		{Name: "category", Value: e.Category},
		{Name: "description", Value: e.Description},
		{Name: "amount", Value: moneyParam(e.Amount)},
		{Name: "date", Value: dateParam(e.Date)},
		{Name: "created_ts", Value: e.CreatedAt},
	}
	if _, err := runDML(ctx, q); err != nil {
		return domain.Expense{}, fmt.Errorf("CreateExpense: %w", err)
	}
	return e, nil
}

func UpdateExpenseWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64, patch domain.ExpensePatch) (domain.Expense, error) {
	current, err := GetExpenseWithClient(ctx, client, dataset, id)
	if err != nil {
		return domain.Expense{}, err
	}
	next := patch.Apply(current)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET category = @category,
		    description = @description,
		    amount = CAST(@amount AS NUMERIC),
		    date = SAFE_CAST(NULLIF(@date, '') AS DATE)
		WHERE expense_id = @expense_id
	`, table(dataset, expensesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "category", Value: next.Category},
		{Name: "description", Value: next.Description},
		{Name: "amount", Value: moneyParam(next.Amount)},
		{Name: "date", Value: dateParam(next.Date)},
		{Name: "expense_id", Value: id},
	}
	n, err := runDML(ctx, q)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("UpdateExpense: %w", err)
	}
	if n == 0 {
		return domain.Expense{}, apperr.NotFound("UpdateExpense", fmt.Sprintf("expense %d", id))
	}
	return next, nil
}

func DeleteExpenseWithClient(ctx context.Context, client *bigquery.Client, dataset string, id int64) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE expense_id = @expense_id
	`, table(dataset, expensesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "expense_id", Value: id},
	}
	n, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteExpense: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("DeleteExpense", fmt.Sprintf("expense %d", id))
	}
	return nil
}
