package domain

import "time"

// Expense is money out. Amount is a positive magnitude.
type Expense struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      Money     `json:"amount"`
	Date        Date      `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExpenseDraft is the create/update payload for an expense. Recurring is a
// creation-time label only; it does not change what is stored.
type ExpenseDraft struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
	Date        Date   `json:"date"`
	Recurring   bool   `json:"recurring,omitempty"`
}

// ExpensePatch is a partial expense update.
type ExpensePatch struct {
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	Amount      *Money  `json:"amount,omitempty"`
	Date        *Date   `json:"date,omitempty"`
}

// Apply returns a copy of e with the patch applied.
func (p ExpensePatch) Apply(e Expense) Expense {
	out := e
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	return out
}

// Income is money in.
type Income struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	Amount      Money     `json:"amount"`
	Date        Date      `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

// IncomeDraft is the create payload for an income entry.
type IncomeDraft struct {
	Source      string `json:"source"`
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
	Date        Date   `json:"date"`
	Recurring   bool   `json:"recurring,omitempty"`
}

// BankTransaction is a read-only entry from the bank feed.
// Amount is signed: positive = inflow, negative = outflow.
type BankTransaction struct {
	ID             int64     `json:"id"`
	TransactionID  string    `json:"transaction_id"`
	Description    string    `json:"description"`
	AdditionalInfo string    `json:"additional_info"`
	Debtor         string    `json:"debtor"`
	Amount         Money     `json:"amount"`
	Date           Date      `json:"date"`
	CreatedAt      time.Time `json:"created_at"`
}

// Inflow reports whether the transaction is money in.
func (t BankTransaction) Inflow() bool { return t.Amount.IsPositive() }

// Outflow reports whether the transaction is money out.
func (t BankTransaction) Outflow() bool { return t.Amount.IsNegative() }

// Inflows returns the transactions with a positive amount.
func Inflows(txs []BankTransaction) []BankTransaction {
	var out []BankTransaction
	for _, t := range txs {
		if t.Inflow() {
			out = append(out, t)
		}
	}
	return out
}

// Outflows returns the transactions with a negative amount.
func Outflows(txs []BankTransaction) []BankTransaction {
	var out []BankTransaction
	for _, t := range txs {
		if t.Outflow() {
			out = append(out, t)
		}
	}
	return out
}

// BankBalance is the single current balance reported by the bank.
type BankBalance struct {
	Amount    Money     `json:"amount"`
	LastCheck time.Time `json:"last_check"`
}

// CandidateBill is an email flagged as a possible bill. It needs human review
// and is never turned into an invoice automatically.
type CandidateBill struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id,omitempty"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body,omitempty"`
	Amount    *Money    `json:"amount,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
