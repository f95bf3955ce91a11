package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/folio/folio/internal/handler/dto"
	"github.com/folio/folio/internal/model"
)

// ProjectCounter summarizes projects.
type ProjectCounter interface {
	Counts(ctx context.Context) (model.ProjectCounts, error)
}

// AdminHandler serves the admin index.
type AdminHandler struct {
	projects ProjectCounter
	prefix   string
	site     string
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler mounted at prefix.
func NewAdminHandler(projects ProjectCounter, prefix, site string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		projects: projects,
		prefix:   prefix,
		site:     site,
		logger:   logger.With("component", "handler.admin"),
	}
}

// Index handles GET <admin>/.
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	counts, err := h.projects.Counts(ctx)
	if err != nil {
		h.logger.Error("failed to count projects", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.AdminIndexResponse{
		Site:     h.site,
		Projects: counts,
		Links: map[string]string{
			"projects": h.prefix + "/api/projects",
			"upload":   h.prefix + "/api/upload",
			"metrics":  h.prefix + "/metrics",
			"stats":    "/api/analytics/stats",
		},
	})
}
