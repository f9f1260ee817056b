// Package handlers implements the finance HTTP API on top of the
// repositories, the invoice lifecycle and the bank feed service.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/finance-overview/internal/api/middleware"
	"github.com/dvloznov/finance-overview/internal/apperr"
)

// maxJSONBody bounds request bodies for JSON endpoints.
const maxJSONBody = 1 << 20

// decodeJSON reads a JSON body into v. Unknown fields are allowed.
func decodeJSON(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(op, "", "request body is required")
		}
		return apperr.Validation(op, "", "invalid request body: "+err.Error())
	}
	return nil
}

// pathID parses the numeric id after prefix, e.g. "/api/invoices/" + "42".
func pathID(r *http.Request, prefix string) (int64, bool) {
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
