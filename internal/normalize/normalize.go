// Package normalize turns raw API records into canonical domain records.
//
// Each record first passes a schema check at the boundary. A record that is not
// an object, or has no usable identity, is rejected with a reason. Everything
// else is accepted and coerced with fixed defaults: absent or invalid amounts
// become 0, invalid dates become the zero Date (sorted last), absent booleans
// become false and absent strings become "".
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// Result is a tagged normalization outcome.
type Result[T any] struct {
	Record   T
	Rejected bool
	Reason   string
}

// Rejection describes a list element that could not be used.
type Rejection struct {
	Index  int             `json:"index"`
	Reason string          `json:"reason"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

func rejected[T any](format string, args ...any) Result[T] {
	return Result[T]{Rejected: true, Reason: fmt.Sprintf(format, args...)}
}

// decode parses raw into generic JSON values and checks it against schema.
func decode(raw json.RawMessage, pick func(schemaSet) *jsonschema.Schema) (fields, error) {
	set, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if err := pick(set).Validate(v); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("record is not an object")
	}
	return fields(obj), nil
}

func withIdentity(s schemaSet) *jsonschema.Schema    { return s.identity }
func withTransaction(s schemaSet) *jsonschema.Schema { return s.transaction }
func anyObject(s schemaSet) *jsonschema.Schema       { return s.object }

// Invoice normalizes one invoice. NeedsCompletion is always recomputed from the
// routing fields; the wire value is ignored.
func Invoice(raw json.RawMessage) Result[domain.Invoice] {
	f, err := decode(raw, withIdentity)
	if err != nil {
		return rejected[domain.Invoice]("invoice: %v", err)
	}
	inv := domain.Invoice{
		ID:        f.id("id"),
		Issuer:    f.str("issuer"),
		Amount:    f.money("amount"),
		DueDate:   f.date("due_date"),
		Status:    f.boolean("status"),
		Bankgiro:  f.str("bankgiro"),
		Plusgiro:  f.str("plusgiro"),
		OCR:       f.str("ocr"),
		Filename:  f.str("filename"),
		PDFData:   f.str("pdf_data"),
		CreatedAt: f.timestamp("created_at"),
	}
	inv.Refresh()
	return Result[domain.Invoice]{Record: inv}
}

// Expense normalizes one expense.
func Expense(raw json.RawMessage) Result[domain.Expense] {
	f, err := decode(raw, withIdentity)
	if err != nil {
		return rejected[domain.Expense]("expense: %v", err)
	}
	return Result[domain.Expense]{Record: domain.Expense{
		ID:          f.id("id"),
		Category:    f.str("category"),
		Description: f.str("description"),
		Amount:      f.money("amount"),
		Date:        f.date("date"),
		CreatedAt:   f.timestamp("created_at"),
	}}
}

// Income normalizes one income entry.
func Income(raw json.RawMessage) Result[domain.Income] {
	f, err := decode(raw, withIdentity)
	if err != nil {
		return rejected[domain.Income]("income: %v", err)
	}
	return Result[domain.Income]{Record: domain.Income{
		ID:          f.id("id"),
		Source:      f.str("source"),
		Description: f.str("description"),
		Amount:      f.money("amount"),
		Date:        f.date("date"),
		CreatedAt:   f.timestamp("created_at"),
	}}
}

// Transaction normalizes one bank transaction. Either a numeric id or a bank
// transaction id is enough identity.
func Transaction(raw json.RawMessage) Result[domain.BankTransaction] {
	f, err := decode(raw, withTransaction)
	if err != nil {
		return rejected[domain.BankTransaction]("transaction: %v", err)
	}
	return Result[domain.BankTransaction]{Record: domain.BankTransaction{
		ID:             f.id("id"),
		TransactionID:  f.str("transaction_id"),
		Description:    f.str("description"),
		AdditionalInfo: f.str("additional_info"),
		Debtor:         f.str("debtor"),
		Amount:         f.money("amount"),
		Date:           f.date("date"),
		CreatedAt:      f.timestamp("created_at"),
	}}
}

// CandidateBill normalizes one candidate-bill email. The amount stays nil
// when the source did not provide one.
func CandidateBill(raw json.RawMessage) Result[domain.CandidateBill] {
	f, err := decode(raw, withIdentity)
	if err != nil {
		return rejected[domain.CandidateBill]("email: %v", err)
	}
	return Result[domain.CandidateBill]{Record: domain.CandidateBill{
		ID:        f.id("id"),
		MessageID: f.str("message_id"),
		Sender:    f.str("sender"),
		Subject:   f.str("subject"),
		Body:      f.str("body"),
		Amount:    f.optionalMoney("amount"),
		CreatedAt: f.timestamp("created_at"),
	}}
}

// Balance normalizes the bank balance payload. The API has used both
// {"amount": ...} and {"balance": ...}.
func Balance(raw json.RawMessage) Result[domain.BankBalance] {
	f, err := decode(raw, anyObject)
	if err != nil {
		return rejected[domain.BankBalance]("balance: %v", err)
	}
	key := "amount"
	if _, ok := f[key]; !ok {
		key = "balance"
	}
	return Result[domain.BankBalance]{Record: domain.BankBalance{
		Amount:    f.money(key),
		LastCheck: f.timestamp("last_check"),
	}}
}

// Statistics normalizes the server totals payload.
func Statistics(raw json.RawMessage) Result[domain.Statistics] {
	f, err := decode(raw, anyObject)
	if err != nil {
		return rejected[domain.Statistics]("statistics: %v", err)
	}
	return Result[domain.Statistics]{Record: domain.Statistics{
		TotalIncome:               f.money("total_income"),
		TotalExpenses:             f.money("total_expenses"),
		TotalInvoices:             int(f.id("total_invoices")),
		TotalInvoicesAmount:       f.money("total_invoices_amount"),
		TotalUnpaidInvoicesAmount: f.money("total_unpaid_invoices_amount"),
		Balance:                   f.money("balance"),
		Outstanding:               f.money("outstanding"),
		ProfitLoss:                f.money("profit_loss"),
	}}
}

// list normalizes every element of a JSON array. A corrupt element is reported
// and skipped; it never blocks the rest.
func list[T any](raw json.RawMessage, one func(json.RawMessage) Result[T]) ([]T, []Rejection) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, []Rejection{{Index: -1, Reason: fmt.Sprintf("not a list: %v", err)}}
	}
	out := make([]T, 0, len(elems))
	var rejections []Rejection
	for i, elem := range elems {
		res := one(elem)
		if res.Rejected {
			rejections = append(rejections, Rejection{Index: i, Reason: res.Reason, Raw: elem})
			continue
		}
		out = append(out, res.Record)
	}
	return out, rejections
}

// Invoices normalizes a list of invoices, sorted by due date ascending with
// absent due dates last.
func Invoices(raw json.RawMessage) ([]domain.Invoice, []Rejection) {
	out, rej := list(raw, Invoice)
	SortInvoices(out)
	return out, rej
}

// SortInvoices orders invoices by due date ascending, absent dates last.
func SortInvoices(invoices []domain.Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].DueDate.SortsBefore(invoices[j].DueDate)
	})
}

// Expenses normalizes a list of expenses, sorted by date ascending.
func Expenses(raw json.RawMessage) ([]domain.Expense, []Rejection) {
	out, rej := list(raw, Expense)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.SortsBefore(out[j].Date) })
	return out, rej
}

// Incomes normalizes a list of income entries, sorted by date ascending.
func Incomes(raw json.RawMessage) ([]domain.Income, []Rejection) {
	out, rej := list(raw, Income)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.SortsBefore(out[j].Date) })
	return out, rej
}

// Transactions normalizes a list of bank transactions in feed order.
func Transactions(raw json.RawMessage) ([]domain.BankTransaction, []Rejection) {
	return list(raw, Transaction)
}

// CandidateBills normalizes a list of candidate-bill emails in feed order.
func CandidateBills(raw json.RawMessage) ([]domain.CandidateBill, []Rejection) {
	return list(raw, CandidateBill)
}
