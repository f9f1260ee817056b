// Package summary derives the financial position from one snapshot of
// balance, invoices, expenses and income.
package summary

import (
	"fmt"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// Compute derives balance, outstanding and profit/loss together.
//
//	outstanding = Σ unpaid invoice amounts + Σ expense amounts
//	profitLoss  = balance + Σ income − outstanding
//
// Nil slices count as empty. Outstanding may be negative.
func Compute(balance domain.Money, invoices []domain.Invoice, expenses []domain.Expense, incomes []domain.Income) domain.Summary {
	outstanding := UnpaidTotal(invoices).Add(ExpenseTotal(expenses))
	return domain.Summary{
		Balance:     balance,
		Outstanding: outstanding,
		ProfitLoss:  balance.Add(IncomeTotal(incomes)).Sub(outstanding),
	}
}

// FromSnapshot computes the summary of a consistent snapshot.
func FromSnapshot(s domain.Snapshot) domain.Summary {
	return Compute(s.Balance, s.Invoices, s.Expenses, s.Incomes)
}

// UnpaidTotal sums the amounts of invoices that are not paid.
func UnpaidTotal(invoices []domain.Invoice) domain.Money {
	total := domain.Zero
	for _, inv := range invoices {
		if !inv.Status {
			total = total.Add(inv.Amount)
		}
	}
	return total
}

// InvoiceTotal sums all invoice amounts regardless of status.
func InvoiceTotal(invoices []domain.Invoice) domain.Money {
	total := domain.Zero
	for _, inv := range invoices {
		total = total.Add(inv.Amount)
	}
	return total
}

// ExpenseTotal sums expense amounts.
func ExpenseTotal(expenses []domain.Expense) domain.Money {
	total := domain.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// IncomeTotal sums income amounts.
func IncomeTotal(incomes []domain.Income) domain.Money {
	total := domain.Zero
	for _, in := range incomes {
		total = total.Add(in.Amount)
	}
	return total
}

// Statistics builds the server totals payload from the same inputs as Compute.
func Statistics(balance domain.Money, invoices []domain.Invoice, expenses []domain.Expense, incomes []domain.Income) domain.Statistics {
	s := Compute(balance, invoices, expenses, incomes)
	return domain.Statistics{
		TotalIncome:               IncomeTotal(incomes),
		TotalExpenses:             ExpenseTotal(expenses),
		TotalInvoices:             len(invoices),
		TotalInvoicesAmount:       InvoiceTotal(invoices),
		TotalUnpaidInvoicesAmount: UnpaidTotal(invoices),
		Balance:                   s.Balance,
		Outstanding:               s.Outstanding,
		ProfitLoss:                s.ProfitLoss,
	}
}

// Mismatch is one server figure that disagrees with the locally derived one.
type Mismatch struct {
	Field  string
	Server domain.Money
	Local  domain.Money
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: server %s, local %s", m.Field, m.Server, m.Local)
}

// CheckStatistics compares server totals with a locally computed summary.
// It also checks that the server figures agree with each other under the
// outstanding and profit/loss formulas.
func CheckStatistics(local domain.Summary, stats domain.Statistics) []Mismatch {
	var out []Mismatch
	check := func(field string, server, want domain.Money) {
		if !server.Equal(want) {
			out = append(out, Mismatch{Field: field, Server: server, Local: want})
		}
	}
	check("balance", stats.Balance, local.Balance)
	check("outstanding", stats.Outstanding, local.Outstanding)
	check("profit_loss", stats.ProfitLoss, local.ProfitLoss)

	check("outstanding (formula)", stats.Outstanding,
		stats.TotalUnpaidInvoicesAmount.Add(stats.TotalExpenses))
	check("profit_loss (formula)", stats.ProfitLoss,
		stats.Balance.Add(stats.TotalIncome).Sub(stats.Outstanding))
	return out
}
