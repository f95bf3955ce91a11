package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/folio/folio/internal/access"
	"github.com/folio/folio/internal/ratelimit"
)

// RateLimitConfig holds configuration for the per-IP rate limit middleware.
type RateLimitConfig struct {
	Logger *slog.Logger
	Store  ratelimit.Store
	// Window is advertised in Retry-After when a caller is blocked.
	Window time.Duration
	// OnLimited runs when a request is rejected, e.g. to count it.
	OnLimited func(r *http.Request)
}

// RateLimitIP limits requests per client IP using cfg.Store.
//
// A unit of quota is reserved before the handler runs and given back when
// it answers with a 5xx, so upstream failures do not lock the caller out.
// Store errors fail open.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := access.ClientIP(r)
			if ip == "unknown" {
				ip = r.RemoteAddr
			}

			allowed, err := cfg.Store.Reserve(r.Context(), ip)
			reserved := allowed
			if err != nil {
				cfg.Logger.Error("rate limit reserve failed",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
				)
				allowed = true
			}

			if !allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+access.RedactPath(r.URL.Path)),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				if cfg.OnLimited != nil {
					cfg.OnLimited(r)
				}
				writeRateLimitError(w, cfg.Window)
				return
			}

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			if !reserved || wrapped.status < http.StatusInternalServerError {
				return
			}
			if err := cfg.Store.Release(context.WithoutCancel(r.Context()), ip); err != nil {
				cfg.Logger.Error("rate limit release failed",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
				)
			}
		})
	}
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Too many requests. Please try again later.","code":"RATE_LIMITED"}` + "\n"))
}
