package domain

// Summary is the derived financial position. It is never persisted and its
// three figures always come from the same Snapshot.
type Summary struct {
	Balance     Money `json:"balance"`
	Outstanding Money `json:"outstanding"`
	ProfitLoss  Money `json:"profit_loss"`
}

// Snapshot is one consistent view of the four summary inputs.
type Snapshot struct {
	Balance  Money
	Invoices []Invoice
	Expenses []Expense
	Incomes  []Income
}

// Statistics is the server-computed totals payload of GET /statistics.
type Statistics struct {
	TotalIncome               Money `json:"total_income"`
	TotalExpenses             Money `json:"total_expenses"`
	TotalInvoices             int   `json:"total_invoices"`
	TotalInvoicesAmount       Money `json:"total_invoices_amount"`
	TotalUnpaidInvoicesAmount Money `json:"total_unpaid_invoices_amount"`
	Balance                   Money `json:"balance"`
	Outstanding               Money `json:"outstanding"`
	ProfitLoss                Money `json:"profit_loss"`
}
