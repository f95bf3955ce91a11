package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/folio/folio/internal/access"
)

// Recoverer is a middleware that recovers from panics.
// It logs the panic with its stack and answers 500 with the standard error body.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
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

				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("path", access.RedactPath(r.URL.Path)),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error","code":"INTERNAL_ERROR"}` + "\n"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
