package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/finance-overview/internal/domain"
)

func money(v int64) domain.Money { return domain.MoneyFromInt(v) }

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		balance     domain.Money
		invoices    []domain.Invoice
		expenses    []domain.Expense
		incomes     []domain.Income
		outstanding string
		profitLoss  string
	}{
		{
			name:        "empty",
			outstanding: "0.00",
			profitLoss:  "0.00",
		},
		{
			name:        "reference scenario",
			balance:     money(1000),
			invoices:    []domain.Invoice{{Amount: money(200)}},
			expenses:    []domain.Expense{{Amount: money(50)}},
			incomes:     []domain.Income{{Amount: money(300)}},
			outstanding: "250.00",
			profitLoss:  "1050.00",
		},
		{
			name:    "paid invoices drop out",
			balance: money(100),
			invoices: []domain.Invoice{
				{Amount: money(200), Status: true},
				{Amount: money(30)},
			},
			outstanding: "30.00",
			profitLoss:  "70.00",
		},
		{
			name:        "negative outstanding",
			expenses:    []domain.Expense{{Amount: money(-40)}},
			outstanding: "-40.00",
			profitLoss:  "40.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.balance, tt.invoices, tt.expenses, tt.incomes)

			assert.Equal(t, tt.outstanding, s.Outstanding.String())
			assert.Equal(t, tt.profitLoss, s.ProfitLoss.String())
			assert.True(t, s.Balance.Equal(tt.balance))
			assert.True(t, s.ProfitLoss.Equal(s.Balance.Add(IncomeTotal(tt.incomes)).Sub(s.Outstanding)))
		})
	}
}

func TestMarkPaidExcludesFromOutstanding(t *testing.T) {
	snap := domain.Snapshot{
		Balance:  money(0),
		Invoices: []domain.Invoice{{ID: 1, Amount: money(500)}},
	}
	assert.Equal(t, "500.00", FromSnapshot(snap).Outstanding.String())

	snap.Invoices[0].Status = true
	assert.Equal(t, "0.00", FromSnapshot(snap).Outstanding.String())
}

func TestCheckStatistics(t *testing.T) {
	invoices := []domain.Invoice{{Amount: money(200)}, {Amount: money(10), Status: true}}
	expenses := []domain.Expense{{Amount: money(50)}}
	incomes := []domain.Income{{Amount: money(300)}}
	local := Compute(money(1000), invoices, expenses, incomes)
	stats := Statistics(money(1000), invoices, expenses, incomes)

	assert.Empty(t, CheckStatistics(local, stats))
	assert.Equal(t, 2, stats.TotalInvoices)
	assert.Equal(t, "210.00", stats.TotalInvoicesAmount.String())

	stats.Balance = money(900)
	mismatches := CheckStatistics(local, stats)
	if assert.Len(t, mismatches, 2) {
		assert.Equal(t, "balance", mismatches[0].Field)
		assert.Equal(t, "profit_loss (formula)", mismatches[1].Field)
	}
}
