package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/jobs"
)

func TestSelectPending(t *testing.T) {
	invoices := []domain.Invoice{
		{ID: 1, Issuer: "Unknown", Filename: "a.pdf"},
		{ID: 2, Issuer: "Paid", Filename: "b.pdf", Status: true},
		{ID: 3, Issuer: "Manual"},
		{ID: 4, Issuer: "Complete", Filename: "d.pdf", Bankgiro: "1", Plusgiro: "2", OCR: "3"},
		{ID: 5, Issuer: "Unknown", Filename: "e.pdf", Bankgiro: "5050-1055"},
	}

	got := selectPending(invoices, 0)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(5), got[1].ID)

	got = selectPending(invoices, 5)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].ID)

	assert.Empty(t, selectPending(invoices, 4))
}

func TestBackfill(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64]string{}
	handler := func(ctx context.Context, job *jobs.Job) error {
		mu.Lock()
		seen[job.InvoiceID] = job.ObjectName
		mu.Unlock()
		if job.InvoiceID == 2 {
			return errors.New("model returned nothing")
		}
		return nil
	}

	res, err := backfill(context.Background(), []domain.Invoice{
		{ID: 1, Filename: "invoices/a.pdf"},
		{ID: 2, Filename: "invoices/b.pdf"},
		{ID: 3, Filename: "invoices/c.pdf"},
	}, handler, 2)
	require.NoError(t, err)
	assert.Equal(t, result{Completed: 2, Failed: 1}, res)
	assert.Equal(t, map[int64]string{1: "invoices/a.pdf", 2: "invoices/b.pdf", 3: "invoices/c.pdf"}, seen)
}

func TestBackfillCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := func(ctx context.Context, job *jobs.Job) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := backfill(ctx, []domain.Invoice{{ID: 1, Filename: "a.pdf"}}, handler, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
