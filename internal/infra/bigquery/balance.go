package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// BalanceRow is the single row of the bank_balance table.
type BalanceRow struct {
	Amount    *big.Rat  `bigquery:"amount"`
	LastCheck time.Time `bigquery:"last_check"`
}

// GetBalanceWithClient returns the cached balance. An empty table yields a
// zero balance with a zero LastCheck.
func GetBalanceWithClient(ctx context.Context, client *bigquery.Client, dataset string) (domain.BankBalance, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT amount, last_check
		FROM %s
		ORDER BY last_check DESC
		LIMIT 1
	`, table(dataset, balanceTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return domain.BankBalance{}, fmt.Errorf("GetBalance: query read: %w", err)
	}
	var r BalanceRow
	err = it.Next(&r)
	if err == iterator.Done {
		return domain.BankBalance{}, nil
	}
	if err != nil {
		return domain.BankBalance{}, fmt.Errorf("GetBalance: iter next: %w", err)
	}
	return domain.BankBalance{Amount: domain.MoneyFromRat(r.Amount), LastCheck: r.LastCheck}, nil
}

// SaveBalanceWithClient replaces the cached balance.
func SaveBalanceWithClient(ctx context.Context, client *bigquery.Client, dataset string, b domain.BankBalance) error {
	t := table(dataset, balanceTable)
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s WHERE TRUE;
		INSERT INTO %s (amount, last_check)
		VALUES (CAST(@amount AS NUMERIC), @last_check);
	`, t, t))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "amount", Value: moneyParam(b.Amount)},
		{Name: "last_check", Value: b.LastCheck},
	}
	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("SaveBalance: %w", err)
	}
	return nil
}
