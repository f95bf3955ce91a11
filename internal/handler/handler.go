// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/folio/folio/internal/handler/dto"
)

// Version is the API version reported by the site endpoint.
const Version = "1.0.0"

// SiteInfo describes the portfolio owner for the public site endpoint.
type SiteInfo struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Version string `json:"version"`
}

// Handler serves the site-level endpoints.
type Handler struct {
	site SiteInfo
}

// New creates a new Handler instance.
func New(site SiteInfo) *Handler {
	if site.Version == "" {
		site.Version = Version
	}
	return &Handler{site: site}
}

// Site returns public site information.
// GET /
func (h *Handler) Site(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.site)
}

// NotFound handles 404 responses. The access gate renders hidden routes with
// it too, so a gated path is indistinguishable from a missing one.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"error": "resource not found",
	}
	writeJSON(w, http.StatusNotFound, response)
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"error": "method not allowed",
	}
	writeJSON(w, http.StatusMethodNotAllowed, response)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON decodes a request body into dst. An oversized body is reported
// as 413, anything else malformed as 400. It reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "EMPTY_BODY", "Request body is required")
	default:
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	}
	return false
}
