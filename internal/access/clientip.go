package access

import (
	"net/http"
	"strings"
)

// ClientIP returns the caller address for security logs: the first
// X-Forwarded-For entry, else X-Real-IP, else "unknown".
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return "unknown"
}
