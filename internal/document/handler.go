package document

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/finance-overview/internal/api/middleware"
)

// Handler serves GET /documents/{token} as application/pdf while the handle
// is live.
func (r *Resolver) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		token := strings.Trim(strings.TrimPrefix(req.URL.Path, "/documents/"), "/")
		if token == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Document token is required")
			return
		}
		h, content, err := r.Open(token)
		if err != nil {
			middleware.WriteError(w, http.StatusGone, "Document is no longer available")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", h.Filename))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	})
}
