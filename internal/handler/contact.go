package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/folio/folio/internal/handler/dto"
	"github.com/folio/folio/internal/model"
	"github.com/folio/folio/internal/service"
)

// ContactSubmitter accepts contact form messages.
type ContactSubmitter interface {
	Submit(ctx context.Context, msg model.ContactMessage) error
}

// ContactHandler handles the contact form. Rate limiting is applied by
// middleware.RateLimitIP in front of it.
type ContactHandler struct {
	svc    ContactSubmitter
	logger *slog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(svc ContactSubmitter, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		svc:    svc,
		logger: logger.With("component", "handler.contact"),
	}
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.svc.Submit(r.Context(), model.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
	case errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, "INVALID_CONTACT", err.Error())
	case errors.Is(err, service.ErrRelayFailed):
		writeError(w, http.StatusBadGateway, "RELAY_FAILED", "Failed to send message")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
