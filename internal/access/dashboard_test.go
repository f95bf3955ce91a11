package access

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDashboardPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		secret   string
		path     string
		want     Outcome
		location string
	}{
		{"match", "dash", "/dashboard/dash", Allow, ""},
		{"match nested", "dash", "/dashboard/dash/stats", Allow, ""},
		{"mismatch", "dash", "/dashboard/nope/stats", Redirect, "/"},
		{"missing segment", "dash", "/dashboard/", Redirect, "/"},
		{"bare prefix", "dash", "/dashboard", Redirect, "/"},
		{"no secret configured", "", "/dashboard/dash", Redirect, "/"},
		{"case sensitive", "dash", "/dashboard/DASH", Redirect, "/"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewDashboardPolicy(tt.secret)
			if !p.Matches(tt.path) {
				t.Fatalf("Matches(%q) = false", tt.path)
			}

			d := p.Decide(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if d.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", d.Outcome, tt.want)
			}
			if d.Location != tt.location {
				t.Errorf("Location = %q, want %q", d.Location, tt.location)
			}
			if len(d.Cookies) != 0 {
				t.Errorf("dashboard policy must not set cookies")
			}
		})
	}
}

func TestDashboardPolicy_DoesNotMatchOtherPaths(t *testing.T) {
	t.Parallel()

	p := NewDashboardPolicy("dash")
	for _, path := range []string{"/", "/dashboards", "/api/analytics/stats"} {
		if p.Matches(path) {
			t.Errorf("Matches(%q) = true", path)
		}
	}
}

func TestRedactPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/dashboard/topsecret/stats", "/dashboard/[redacted]/stats"},
		{"/dashboard/topsecret", "/dashboard/[redacted]"},
		{"/dashboard/topsecret/", "/dashboard/[redacted]/"},
		{"/dashboard/", "/dashboard/"},
		{"/dashboard", "/dashboard"},
		{"/api/analytics/stats", "/api/analytics/stats"},
		{"/dashboards/x", "/dashboards/x"},
	}

	for _, tt := range tests {
		if got := RedactPath(tt.path); got != tt.want {
			t.Errorf("RedactPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
