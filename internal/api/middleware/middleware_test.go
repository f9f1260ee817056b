package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/logger"
)

func TestRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)

	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		reqLog := logger.FromContext(r.Context())
		reqLog.Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})
	h := RequestID(Logger(log)(inner))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))

	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"request_id":"`+seen+`"`)
	assert.Contains(t, buf.String(), `"message":"inside"`)
	assert.Contains(t, buf.String(), `"status":418`)

	// A caller-supplied id is kept.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
}

func TestAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name   string
		token  string
		path   string
		header string
		want   int
	}{
		{"open when unset", "", "/api/invoices", "", http.StatusOK},
		{"missing header", "s3cret", "/api/invoices", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "/api/invoices", "Bearer nope", http.StatusUnauthorized},
		{"right token", "s3cret", "/api/invoices", "Bearer s3cret", http.StatusOK},
		{"health is public", "s3cret", "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(tt.token)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(logger.NewWithWriter(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	assert.Contains(t, buf.String(), "Panic recovered")
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight reached the handler")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/invoices/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		body string
	}{
		{"validation", apperr.Validation("Create", "issuer", "is required"), http.StatusBadRequest, "Create: issuer: is required"},
		{"not found", apperr.NotFound("Get", "invoice 1"), http.StatusNotFound, "Get: invoice 1 not found"},
		{"other", errors.New("bigquery: dataset gone"), http.StatusInternalServerError, "Failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAppError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, "Failed")
			assert.Equal(t, tt.want, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.body+`"}`, rec.Body.String())
		})
	}
}

func TestWriteAppErrorLogsServerFailures(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithContext(req.Context(), logger.NewWithWriter(&buf)))

	WriteAppError(httptest.NewRecorder(), req, errors.New("bigquery: dataset gone"), "Failed to list invoices")
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "dataset gone")
	assert.Contains(t, buf.String(), `"message":"Failed to list invoices"`)

	buf.Reset()
	WriteAppError(httptest.NewRecorder(), req, apperr.Validation("Create", "issuer", "is required"), "Failed")
	assert.Empty(t, buf.String())
}
