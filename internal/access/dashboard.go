package access

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// DashboardPrefix is the fixed prefix of the dashboard route family.
const DashboardPrefix = "/dashboard/"

// DashboardPolicy treats the first path segment after /dashboard/ as a
// capability. Anything but an exact match is sent to the site root.
type DashboardPolicy struct {
	secret string
}

// NewDashboardPolicy creates the dashboard policy. An empty secret
// redirects every request.
func NewDashboardPolicy(secret string) *DashboardPolicy {
	return &DashboardPolicy{secret: secret}
}

// Name implements Policy.
func (p *DashboardPolicy) Name() string { return "dashboard" }

// Matches implements Policy.
func (p *DashboardPolicy) Matches(path string) bool {
	return path == strings.TrimSuffix(DashboardPrefix, "/") || strings.HasPrefix(path, DashboardPrefix)
}

// Decide implements Policy.
func (p *DashboardPolicy) Decide(r *http.Request) Decision {
	var segment string
	if rest, ok := strings.CutPrefix(r.URL.Path, DashboardPrefix); ok {
		segment, _, _ = strings.Cut(rest, "/")
	}

	if p.secret == "" || segment == "" ||
		subtle.ConstantTimeCompare([]byte(segment), []byte(p.secret)) != 1 {
		return redirect("/")
	}
	return allow()
}

// RedactPath replaces the dashboard capability segment so a path can be
// logged. Other paths are returned unchanged.
func RedactPath(path string) string {
	rest, ok := strings.CutPrefix(path, DashboardPrefix)
	if !ok || rest == "" {
		return path
	}
	_, tail, hasTail := strings.Cut(rest, "/")
	redacted := DashboardPrefix + "[redacted]"
	if hasTail {
		redacted += "/" + tail
	}
	return redacted
}
