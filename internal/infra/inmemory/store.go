// Package inmemory is a process-local repository.Store for tests and local
// runs without GCP. Data is lost on restart.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// Store is safe for concurrent use. Every read returns copies.
type Store struct {
	mu           sync.RWMutex
	invoices     map[int64]domain.Invoice
	expenses     map[int64]domain.Expense
	incomes      map[int64]domain.Income
	transactions map[string]domain.BankTransaction
	emails       map[int64]domain.CandidateBill
	balance      domain.BankBalance
	now          func() time.Time
	newID        func() int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		invoices:     make(map[int64]domain.Invoice),
		expenses:     make(map[int64]domain.Expense),
		incomes:      make(map[int64]domain.Income),
		transactions: make(map[string]domain.BankTransaction),
		emails:       make(map[int64]domain.CandidateBill),
		now:          time.Now,
		newID:        repository.NewID,
	}
}

// freshID draws ids until one is not yet used in m. The caller holds s.mu.
func freshID[V any](s *Store, m map[int64]V) int64 {
	for {
		id := s.newID()
		if _, taken := m[id]; !taken {
			return id
		}
	}
}

// Close implements repository.Store.
func (s *Store) Close() error { return nil }

func (s *Store) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		inv.PDFData = ""
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate == out[j].DueDate {
			return out[i].ID < out[j].ID
		}
		return out[i].DueDate.SortsBefore(out[j].DueDate)
	})
	return out, nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return domain.Invoice{}, apperr.NotFound("GetInvoice", fmt.Sprintf("invoice %d", id))
	}
	return inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, d domain.InvoiceDraft) (domain.Invoice, error) {
	inv := domain.Invoice{
		Issuer:    d.Issuer,
		Amount:    d.Amount,
		DueDate:   d.DueDate,
		Bankgiro:  d.Bankgiro,
		Plusgiro:  d.Plusgiro,
		OCR:       d.OCR,
		Filename:  d.Filename,
		CreatedAt: s.now().UTC(),
	}
	inv.Refresh()

	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = freshID(s, s.invoices)
	s.invoices[inv.ID] = inv
	return inv, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, id int64, patch domain.InvoicePatch) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return domain.Invoice{}, apperr.NotFound("UpdateInvoice", fmt.Sprintf("invoice %d", id))
	}
	inv = patch.Apply(inv)
	s.invoices[id] = inv
	return inv, nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[id]; !ok {
		return apperr.NotFound("DeleteInvoice", fmt.Sprintf("invoice %d", id))
	}
	delete(s.invoices, id)
	return nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetExpense(ctx context.Context, id int64) (domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return domain.Expense{}, apperr.NotFound("GetExpense", fmt.Sprintf("expense %d", id))
	}
	return e, nil
}

func (s *Store) CreateExpense(ctx context.Context, d domain.ExpenseDraft) (domain.Expense, error) {
	e := domain.Expense{
		Category:    d.Category,
		Description: d.Description,
		Amount:      d.Amount,
		Date:        d.Date,
		CreatedAt:   s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = freshID(s, s.expenses)
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, id int64, patch domain.ExpensePatch) (domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return domain.Expense{}, apperr.NotFound("UpdateExpense", fmt.Sprintf("expense %d", id))
	}
	e = patch.Apply(e)
	s.expenses[id] = e
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return apperr.NotFound("DeleteExpense", fmt.Sprintf("expense %d", id))
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListIncomes(ctx context.Context) ([]domain.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Income, 0, len(s.incomes))
	for _, in := range s.incomes {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetIncome(ctx context.Context, id int64) (domain.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.incomes[id]
	if !ok {
		return domain.Income{}, apperr.NotFound("GetIncome", fmt.Sprintf("income %d", id))
	}
	return in, nil
}

func (s *Store) CreateIncome(ctx context.Context, d domain.IncomeDraft) (domain.Income, error) {
	in := domain.Income{
		Source:      d.Source,
		Description: d.Description,
		Amount:      d.Amount,
		Date:        d.Date,
		CreatedAt:   s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = freshID(s, s.incomes)
	s.incomes[in.ID] = in
	return in, nil
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incomes[id]; !ok {
		return apperr.NotFound("DeleteIncome", fmt.Sprintf("income %d", id))
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BankTransaction
	for _, tx := range s.transactions {
		if !tx.Date.Valid() || tx.Date.Before(from.Date) || tx.Date.After(to.Date) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].TransactionID < out[j].TransactionID
		}
		return out[i].Date.Before(out[j].Date.Date)
	})
	return out, nil
}

func (s *Store) UpsertTransactions(ctx context.Context, txs []domain.BankTransaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, tx := range txs {
		if tx.TransactionID == "" {
			return added, fmt.Errorf("UpsertTransactions: transaction_id is required")
		}
		if _, ok := s.transactions[tx.TransactionID]; ok {
			continue
		}
		if tx.ID == 0 {
			tx.ID = s.newID()
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = s.now().UTC()
		}
		s.transactions[tx.TransactionID] = tx
		added++
	}
	return added, nil
}

func (s *Store) GetBalance(ctx context.Context) (domain.BankBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, nil
}

func (s *Store) SaveBalance(ctx context.Context, b domain.BankBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = b
	return nil
}

func (s *Store) ListEmails(ctx context.Context) ([]domain.CandidateBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CandidateBill, 0, len(s.emails))
	for _, e := range s.emails {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertEmails(ctx context.Context, bills []domain.CandidateBill) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := make(map[string]bool, len(s.emails))
	for _, e := range s.emails {
		if e.MessageID != "" {
			known[e.MessageID] = true
		}
	}
	added := 0
	for _, b := range bills {
		if b.MessageID != "" && known[b.MessageID] {
			continue
		}
		b.ID = freshID(s, s.emails)
		if b.CreatedAt.IsZero() {
			b.CreatedAt = s.now().UTC()
		}
		s.emails[b.ID] = b
		known[b.MessageID] = true
		added++
	}
	return added, nil
}

func (s *Store) DeleteEmail(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[id]; !ok {
		return apperr.NotFound("DeleteEmail", fmt.Sprintf("email %d", id))
	}
	delete(s.emails, id)
	return nil
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
