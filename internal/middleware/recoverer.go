package middleware

import (
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Recoverer turns a panic in any handler into the response written by fail.
// The stack trace goes to the log only.
func Recoverer(log *zap.SugaredLogger, fail http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log.Errorw("Recovered from panic",
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", chimw.GetReqID(r.Context()),
					"panic", rvr,
					"stack", string(debug.Stack()),
				)
				fail(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
