package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds the context of every request to d. Handlers see the
// deadline through r.Context() and report the failure themselves.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
