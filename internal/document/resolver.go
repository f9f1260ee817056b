// Package document resolves invoice PDF payloads into short-lived,
// process-local viewing handles.
package document

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
)

const (
	// TTL is how long a handle stays valid, consumed or not.
	TTL = 60 * time.Second
	// ChunkSize is the number of encoded characters decoded per step. It is a
	// multiple of 4 so every chunk but the last is padding free.
	ChunkSize = 512 * 4
)

var (
	// ErrNoDocument is returned when the invoice carries no payload.
	ErrNoDocument = errors.New("no document available")
	// ErrExpired is returned for a handle past its TTL or revoked.
	ErrExpired = errors.New("document handle expired")
)

// InvoiceFetcher loads a single invoice including its pdf_data.
type InvoiceFetcher interface {
	GetInvoice(ctx context.Context, id int64) (domain.Invoice, error)
}

// Handle is a scoped reference to decoded document bytes.
type Handle struct {
	Token     string    `json:"token"`
	InvoiceID int64     `json:"invoice_id"`
	Filename  string    `json:"filename"`
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

type entry struct {
	handle  Handle
	content []byte
	timer   *time.Timer
}

// Resolver owns the live handles.
type Resolver struct {
	fetcher InvoiceFetcher
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithTTL overrides the handle lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// NewResolver creates a Resolver reading invoices from fetcher.
func NewResolver(fetcher InvoiceFetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		ttl:     TTL,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches the invoice document and registers it under a new handle.
// The handle is invalidated after the TTL whether or not it was opened.
func (r *Resolver) Resolve(ctx context.Context, invoiceID int64) (*Handle, error) {
	inv, err := r.fetcher.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(inv.PDFData) == "" {
		return nil, apperr.Decode("Resolve", fmt.Sprintf("invoice %d has no document", invoiceID), ErrNoDocument)
	}
	content, err := Decode(inv.PDFData)
	if err != nil {
		return nil, apperr.Decode("Resolve", fmt.Sprintf("invoice %d document is malformed", invoiceID), err)
	}

	filename := path.Base(inv.Filename)
	if inv.Filename == "" {
		filename = fmt.Sprintf("invoice-%d.pdf", invoiceID)
	}
	h := Handle{
		Token:     uuid.NewString(),
		InvoiceID: invoiceID,
		Filename:  filename,
		Size:      len(content),
		ExpiresAt: r.now().Add(r.ttl),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrExpired
	}
	e := &entry{handle: h, content: content}
	e.timer = time.AfterFunc(r.ttl, func() { r.Revoke(h.Token) })
	r.entries[h.Token] = e

	log := logger.FromContext(ctx)
	log.Debug().
		Str("token", h.Token).
		Int64("invoice_id", invoiceID).
		Int("bytes", h.Size).
		Msg("document handle created")
	return &h, nil
}

// Open returns the content of a live handle.
func (r *Resolver) Open(token string) (Handle, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[token]
	if !ok {
		return Handle{}, nil, ErrExpired
	}
	if !r.now().Before(e.handle.ExpiresAt) {
		r.dropLocked(token, e)
		return Handle{}, nil, ErrExpired
	}
	return e.handle, e.content, nil
}

// Revoke invalidates a handle early. Unknown tokens are ignored.
func (r *Resolver) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[token]; ok {
		r.dropLocked(token, e)
	}
}

// Live returns the number of handles currently registered.
func (r *Resolver) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close revokes every handle and refuses new ones.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, e := range r.entries {
		r.dropLocked(token, e)
	}
	r.closed = true
}

func (r *Resolver) dropLocked(token string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(r.entries, token)
}

// Decode decodes a base64 payload in ChunkSize steps. A data URL prefix and
// embedded whitespace are tolerated.
func Decode(payload string) ([]byte, error) {
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return nil, ErrNoDocument
	}
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("decode: payload length %d is not a multiple of 4", len(payload))
	}

	out := make([]byte, 0, base64.StdEncoding.DecodedLen(len(payload)))
	buf := make([]byte, base64.StdEncoding.DecodedLen(ChunkSize))
	for start := 0; start < len(payload); start += ChunkSize {
		end := min(start+ChunkSize, len(payload))
		n, err := base64.StdEncoding.Decode(buf, []byte(payload[start:end]))
		if err != nil {
			return nil, fmt.Errorf("decode chunk at %d: %w", start, err)
		}
		out = append(out, buf[:n]...)
	}
	return out, nil
}
