package document

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
)

type fetcherFunc func(ctx context.Context, id int64) (domain.Invoice, error)

func (f fetcherFunc) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	return f(ctx, id)
}

func staticInvoice(inv domain.Invoice) InvoiceFetcher {
	return fetcherFunc(func(context.Context, int64) (domain.Invoice, error) { return inv, nil })
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var pdf = append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 2000)...)

func TestDecode_Chunked(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pdf)
	require.Greater(t, len(encoded), 2*ChunkSize)

	got, err := Decode(encoded)

	require.NoError(t, err)
	assert.Equal(t, pdf, got)
}

func TestDecode_DataURLAndWhitespace(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("hello pdf"))
	got, err := Decode("data:application/pdf;base64," + encoded[:4] + "\n" + encoded[4:])

	require.NoError(t, err)
	assert.Equal(t, "hello pdf", string(got))
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode("abc")
	assert.Error(t, err)

	_, err = Decode("!!!!")
	assert.Error(t, err)
}

func TestResolve_NoDocument(t *testing.T) {
	r := NewResolver(staticInvoice(domain.Invoice{ID: 4}))

	h, err := r.Resolve(context.Background(), 4)

	assert.Nil(t, h)
	assert.True(t, errors.Is(err, ErrNoDocument))
	assert.True(t, errors.Is(err, apperr.ErrDecode))
	assert.Equal(t, "No PDF data available.", apperr.Notify(err).Description)
	assert.Zero(t, r.Live())
}

func TestResolve_FetchFailurePassesThrough(t *testing.T) {
	r := NewResolver(fetcherFunc(func(context.Context, int64) (domain.Invoice, error) {
		return domain.Invoice{}, apperr.NotFound("GetInvoice", "invoice 9")
	}))

	_, err := r.Resolve(context.Background(), 9)

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestResolve_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	r := NewResolver(staticInvoice(domain.Invoice{
		ID:       1,
		Filename: "telia.pdf",
		PDFData:  base64.StdEncoding.EncodeToString(pdf),
	}), WithClock(clock.Now))
	defer r.Close()

	h, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "telia.pdf", h.Filename)
	assert.Equal(t, clock.Now().Add(TTL), h.ExpiresAt)

	_, content, err := r.Open(h.Token)
	require.NoError(t, err)
	assert.Equal(t, pdf, content)

	clock.Advance(TTL)
	_, _, err = r.Open(h.Token)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Zero(t, r.Live())
}

func TestResolve_TimerInvalidatesUnopenedHandle(t *testing.T) {
	r := NewResolver(staticInvoice(domain.Invoice{ID: 1, PDFData: base64.StdEncoding.EncodeToString(pdf)}),
		WithTTL(20*time.Millisecond))

	_, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return r.Live() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRevokeAndClose(t *testing.T) {
	r := NewResolver(staticInvoice(domain.Invoice{ID: 1, PDFData: base64.StdEncoding.EncodeToString(pdf)}))

	h1, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	h2, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.NotEqual(t, h1.Token, h2.Token)

	r.Revoke(h1.Token)
	_, _, err = r.Open(h1.Token)
	assert.ErrorIs(t, err, ErrExpired)

	r.Close()
	_, _, err = r.Open(h2.Token)
	assert.ErrorIs(t, err, ErrExpired)
	_, err = r.Resolve(context.Background(), 1)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestHandler(t *testing.T) {
	r := NewResolver(staticInvoice(domain.Invoice{ID: 1, PDFData: base64.StdEncoding.EncodeToString(pdf)}))
	defer r.Close()
	h, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/"+h.Token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, pdf, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/unknown", nil))
	assert.Equal(t, http.StatusGone, rec.Code)
}
