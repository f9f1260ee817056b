package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("GetInvoice", "invoice 7"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestTransportUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transport("ListInvoices", 0, cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Contains(t, err.Error(), "ListInvoices")
}

func TestNotify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Notification
	}{
		{
			name: "validation",
			err:  Validation("Edit", "issuer", "is required"),
			want: Notification{Title: "Invalid input", Description: "issuer: is required", Severity: SeverityDestructive, Field: "issuer"},
		},
		{
			name: "decode",
			err:  Decode("Resolve", "no document", nil),
			want: Notification{Title: "Error", Description: "No PDF data available.", Severity: SeverityDestructive},
		},
		{
			name: "transport",
			err:  Transport("MarkPaid", 502, errors.New("bad gateway")),
			want: Notification{Title: "Error", Description: "Request failed during MarkPaid.", Severity: SeverityDestructive},
		},
		{
			name: "unclassified",
			err:  errors.New("boom"),
			want: Notification{Title: "Error", Description: "An unexpected error occurred.", Severity: SeverityDestructive},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Notify(tt.err))
		})
	}
	assert.Equal(t, SeverityInfo, Notify(nil).Severity)
}
