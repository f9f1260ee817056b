package inmemory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/lifecycle"
)

func TestInvoices_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	inv, err := s.CreateInvoice(ctx, domain.InvoiceDraft{
		Issuer: "Telia", Amount: domain.MoneyFromInt(500), DueDate: domain.NewDate(2024, 6, 1),
	})
	require.NoError(t, err)
	assert.NotZero(t, inv.ID)
	assert.True(t, inv.NeedsCompletion)

	ocr := "123"
	bg := "5050-1055"
	pg := "1234-5"
	updated, err := s.UpdateInvoice(ctx, inv.ID, domain.InvoicePatch{OCR: &ocr, Bankgiro: &bg, Plusgiro: &pg})
	require.NoError(t, err)
	assert.False(t, updated.NeedsCompletion)

	list, err := s.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteInvoice(ctx, inv.ID))
	_, err = s.GetInvoice(ctx, inv.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestStore_SatisfiesLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	inv, err := s.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "A", Amount: domain.MoneyFromInt(1), DueDate: domain.NewDate(2024, 1, 1)})
	require.NoError(t, err)

	c := lifecycle.New(s)
	out, err := c.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, out.Invoice.Status)

	unpaid := false
	_, err = c.Edit(ctx, inv.ID, domain.InvoicePatch{Status: &unpaid})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	got, _ := s.GetInvoice(ctx, inv.ID)
	assert.True(t, got.Status)
}

func TestTransactions_RangeAndDedupe(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	txs := []domain.BankTransaction{
		{TransactionID: "a", Amount: domain.MoneyFromInt(-10), Date: domain.NewDate(2024, 1, 5)},
		{TransactionID: "b", Amount: domain.MoneyFromInt(20), Date: domain.NewDate(2024, 1, 20)},
		{TransactionID: "c", Amount: domain.MoneyFromInt(30), Date: domain.NewDate(2024, 2, 1)},
	}

	n, err := s.UpsertTransactions(ctx, txs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = s.UpsertTransactions(ctx, txs[:1])
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.ListTransactions(ctx, domain.NewDate(2024, 1, 1), domain.NewDate(2024, 1, 31))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].TransactionID)
	assert.Equal(t, "b", got[1].TransactionID)
}

func TestEmails_DedupeAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	n, err := s.InsertEmails(ctx, []domain.CandidateBill{{MessageID: "m1", Subject: "Faktura"}, {MessageID: "m1", Subject: "dup"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	emails, _ := s.ListEmails(ctx)
	require.Len(t, emails, 1)
	require.NoError(t, s.DeleteEmail(ctx, emails[0].ID))
	assert.True(t, errors.Is(s.DeleteEmail(ctx, emails[0].ID), apperr.ErrNotFound))
}

func TestUpdateInvoice_PaidStaysPaid(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	inv, err := s.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "Vattenfall", Amount: domain.MoneyFromInt(800), DueDate: domain.NewDate(2024, 3, 1)})
	require.NoError(t, err)

	paid, unpaid := true, false
	_, err = s.UpdateInvoice(ctx, inv.ID, domain.InvoicePatch{Status: &paid})
	require.NoError(t, err)

	issuer := "Vattenfall AB"
	got, err := s.UpdateInvoice(ctx, inv.ID, domain.InvoicePatch{Issuer: &issuer, Status: &unpaid})
	require.NoError(t, err)
	assert.True(t, got.Status)
	assert.Equal(t, "Vattenfall AB", got.Issuer)

	stored, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status)
}

// payAfterRead pays the invoice right after the controller has read it, the
// way a concurrent MarkPaid from another client would.
type payAfterRead struct {
	*Store
	once bool
}

func (p *payAfterRead) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	inv, err := p.Store.GetInvoice(ctx, id)
	if err == nil && !p.once {
		p.once = true
		paid := true
		_, err = p.Store.UpdateInvoice(ctx, id, domain.InvoicePatch{Status: &paid})
	}
	return inv, err
}

func TestEdit_ConcurrentPaymentIsKept(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	inv, err := s.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "Telia", Amount: domain.MoneyFromInt(399), DueDate: domain.NewDate(2024, 5, 1)})
	require.NoError(t, err)

	unpaid := false
	ocr := "4455"
	got, err := lifecycle.New(&payAfterRead{Store: s}).Edit(ctx, inv.ID, domain.InvoicePatch{Status: &unpaid, OCR: &ocr})
	require.NoError(t, err)
	assert.True(t, got.Status)

	stored, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status, "paid invoice reverted to unpaid")
	assert.Equal(t, "4455", stored.OCR)
}

func TestCreate_RetriesTakenIDs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ids := []int64{7, 7, 7, 8, 8, 9}
	s.newID = func() int64 {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	a, err := s.CreateExpense(ctx, domain.ExpenseDraft{Category: "Food", Amount: domain.MoneyFromInt(10)})
	require.NoError(t, err)
	b, err := s.CreateExpense(ctx, domain.ExpenseDraft{Category: "Rent", Amount: domain.MoneyFromInt(20)})
	require.NoError(t, err)
	c, err := s.CreateExpense(ctx, domain.ExpenseDraft{Category: "Gym", Amount: domain.MoneyFromInt(30)})
	require.NoError(t, err)

	assert.Equal(t, []int64{7, 8, 9}, []int64{a.ID, b.ID, c.ID})
	list, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
