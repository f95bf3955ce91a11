package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	checks []namedCheck
}

type namedCheck struct {
	name    string
	checker HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for db or cache if they are not initialized.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		checks: []namedCheck{
			{name: "postgres", checker: db},
			{name: "redis", checker: cache},
		},
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. No dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if every configured dependency answers.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true

	for _, c := range h.checks {
		if c.checker == nil {
			checks[c.name] = "not configured"
			continue
		}
		if err := c.checker.Ping(ctx); err != nil {
			checks[c.name] = "error: " + err.Error()
			healthy = false
			continue
		}
		checks[c.name] = "ok"
	}

	response := HealthResponse{Status: "ok", Checks: checks}
	statusCode := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, response)
}
