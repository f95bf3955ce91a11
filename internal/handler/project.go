package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/folio/folio/internal/handler/dto"
	"github.com/folio/folio/internal/service"
)

// ProjectHandler handles public and admin project requests.
type ProjectHandler struct {
	svc    *service.ProjectService
	logger *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(svc *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		svc:    svc,
		logger: logger.With("component", "handler.project"),
	}
}

// ListPublished handles GET /api/projects.
func (h *ProjectHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListPublished(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewProjectListResponse(projects))
}

// GetPublished handles GET /api/projects/{slug}.
func (h *ProjectHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.GetPublished(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// List handles GET <admin>/api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewProjectListResponse(projects))
}

// Get handles GET <admin>/api/projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Create handles POST <admin>/api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := h.svc.Create(r.Context(), toProjectInput(req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// Update handles PUT <admin>/api/projects/{id}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.ProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), toProjectInput(req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Delete handles DELETE <admin>/api/projects/{id}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toProjectInput(req dto.ProjectRequest) service.ProjectInput {
	return service.ProjectInput{
		Slug:      req.Slug,
		Title:     req.Title,
		Summary:   req.Summary,
		Content:   req.Content,
		Tags:      req.Tags,
		ImageURL:  req.ImageURL,
		RepoURL:   req.RepoURL,
		LiveURL:   req.LiveURL,
		Featured:  req.Featured,
		Published: req.Published,
		SortOrder: req.SortOrder,
	}
}

// handleServiceError maps service errors to HTTP responses.
func (h *ProjectHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
	case errors.Is(err, service.ErrSlugExists):
		writeError(w, http.StatusConflict, "SLUG_TAKEN", "Slug already exists")
	case errors.Is(err, service.ErrInvalidTitle),
		errors.Is(err, service.ErrInvalidSlug),
		errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrTooManyTags),
		errors.Is(err, service.ErrInvalidTag):
		writeError(w, http.StatusBadRequest, "INVALID_PROJECT", err.Error())
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
