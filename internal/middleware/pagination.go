package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
)

const defaultPageLimit = 10

const pageKey contextKey = "page"

// Page is the validated pagination window for a list request.
type Page struct {
	Limit int64
	Skip  int64
}

// CountFunc reports the total number of records a paginated listing walks.
type CountFunc func(ctx context.Context) (int64, error)

// ValidatePagination checks the limit and startIndex query parameters before
// the list handler runs and stashes the resulting Page in the request
// context. A startIndex beyond the record count is rejected up front.
func ValidatePagination(count CountFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page := Page{Limit: defaultPageLimit}

			if s := r.URL.Query().Get("limit"); s != "" {
				v, err := strconv.ParseInt(s, 10, 64)
				if err != nil || v <= 0 {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
					return
				}
				page.Limit = v
			}

			if s := r.URL.Query().Get("startIndex"); s != "" {
				v, err := strconv.ParseInt(s, 10, 64)
				if err != nil || v < 0 {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid startIndex"})
					return
				}
				page.Skip = v
			}

			if page.Skip > 0 {
				total, err := count(r.Context())
				if err != nil {
					log.Printf("ERROR: count records for pagination: %v", err)
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
					return
				}
				if page.Skip >= total {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "startIndex out of range"})
					return
				}
			}

			ctx := context.WithValue(r.Context(), pageKey, page)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PageFromContext returns the validated Page, or the default window when the
// middleware did not run.
func PageFromContext(ctx context.Context) Page {
	if p, ok := ctx.Value(pageKey).(Page); ok {
		return p
	}
	return Page{Limit: defaultPageLimit}
}
