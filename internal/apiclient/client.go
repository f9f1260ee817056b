// Package apiclient talks to the finance API over HTTP and hands every
// response through the normalizer.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/normalize"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the API root, e.g. "http://localhost:8080/api".
type Client struct {
	root  string
	token string
	http  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the given API root.
func New(root string, opts ...Option) *Client {
	c := &Client{
		root: strings.TrimRight(root, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one request and returns the raw body of a 2xx response. Non-2xx
// statuses map to 404 NotFound, 400 Validation and anything else Transport.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.root+path, body)
	if err != nil {
		return nil, apperr.Transport(op, 0, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Transport(op, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transport(op, resp.StatusCode, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	msg := errorMessage(raw, resp.Status)
	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, apperr.NotFound(op, msg)
	case http.StatusBadRequest:
		return nil, apperr.Validation(op, "", msg)
	default:
		return nil, apperr.Transport(op, resp.StatusCode, errors.New(msg))
	}
}

func errorMessage(raw []byte, status string) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return status
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, payload any) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Validation(op, "", fmt.Sprintf("cannot encode request: %v", err))
	}
	return c.do(ctx, op, method, path, bytes.NewReader(b), "application/json")
}

// one unwraps a single normalized record. A rejected record is a contract
// violation by the server.
func one[T any](op string, res normalize.Result[T]) (T, error) {
	if res.Rejected {
		var zero T
		return zero, apperr.Transport(op, 0, fmt.Errorf("malformed response: %s", res.Reason))
	}
	return res.Record, nil
}

// ListInvoices returns normalized invoices sorted by due date, plus any
// elements the normalizer rejected.
func (c *Client) ListInvoices(ctx context.Context) ([]domain.Invoice, []normalize.Rejection, error) {
	raw, err := c.do(ctx, "ListInvoices", http.MethodGet, "/invoices", nil, "")
	if err != nil {
		return nil, nil, err
	}
	invoices, rejections := normalize.Invoices(raw)
	return invoices, rejections, nil
}

// GetInvoice returns one invoice including its pdf_data.
func (c *Client) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	raw, err := c.do(ctx, "GetInvoice", http.MethodGet, fmt.Sprintf("/invoices/%d", id), nil, "")
	if err != nil {
		return domain.Invoice{}, err
	}
	return one("GetInvoice", normalize.Invoice(raw))
}

// CreateInvoice stores a manually entered invoice.
func (c *Client) CreateInvoice(ctx context.Context, draft domain.InvoiceDraft) (domain.Invoice, error) {
	raw, err := c.sendJSON(ctx, "CreateInvoice", http.MethodPost, "/invoices", draft)
	if err != nil {
		return domain.Invoice{}, err
	}
	return one("CreateInvoice", normalize.Invoice(raw))
}

// UpdateInvoice sends a patch and returns the stored result.
func (c *Client) UpdateInvoice(ctx context.Context, id int64, patch domain.InvoicePatch) (domain.Invoice, error) {
	raw, err := c.sendJSON(ctx, "UpdateInvoice", http.MethodPatch, fmt.Sprintf("/invoices/%d", id), patch)
	if err != nil {
		return domain.Invoice{}, err
	}
	return one("UpdateInvoice", normalize.Invoice(raw))
}

// DeleteInvoice removes an invoice and its stored document.
func (c *Client) DeleteInvoice(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "DeleteInvoice", http.MethodDelete, fmt.Sprintf("/invoices/%d", id), nil, "")
	return err
}

// UploadInvoice sends a PDF as the multipart field "invoice". The server
// stores it and schedules field extraction.
func (c *Client) UploadInvoice(ctx context.Context, filename string, pdf io.Reader) (domain.Invoice, error) {
	if !strings.EqualFold(strings.TrimSpace(filenameExt(filename)), ".pdf") {
		return domain.Invoice{}, apperr.Validation("UploadInvoice", "invoice", "only PDF files are accepted")
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("invoice", filename)
	if err != nil {
		return domain.Invoice{}, apperr.Transport("UploadInvoice", 0, err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return domain.Invoice{}, apperr.Transport("UploadInvoice", 0, err)
	}
	if err := mw.Close(); err != nil {
		return domain.Invoice{}, apperr.Transport("UploadInvoice", 0, err)
	}
	raw, err := c.do(ctx, "UploadInvoice", http.MethodPost, "/invoices/upload", &body, mw.FormDataContentType())
	if err != nil {
		return domain.Invoice{}, err
	}
	return one("UploadInvoice", normalize.Invoice(raw))
}

func filenameExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
