package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/folio/folio/internal/access"
	"github.com/folio/folio/internal/analytics"
	"github.com/folio/folio/internal/handler/dto"
	"github.com/folio/folio/internal/metrics"
	"github.com/folio/folio/internal/model"
)

const (
	maxSlugLength       = 100
	maxTitleLength      = 200
	maxDurationSeconds  = 24 * 60 * 60
	statsRequestTimeout = 10 * time.Second
)

// StatsComputer builds dashboard summaries.
type StatsComputer interface {
	ComputeStats(ctx context.Context, period string) (*model.StatsSummary, error)
}

// EventWriter stores project views and engagement updates.
type EventWriter interface {
	InsertProjectView(ctx context.Context, view *model.ProjectView) error
	UpdateEngagement(ctx context.Context, e model.Engagement) (bool, error)
}

// AnalyticsHandler handles analytics capture and reporting requests.
type AnalyticsHandler struct {
	stats    StatsComputer
	sink     analytics.Sink
	events   EventWriter
	siteHost string
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler. siteHost is the
// portfolio's own hostname; referrers pointing at it are dropped.
func NewAnalyticsHandler(stats StatsComputer, sink analytics.Sink, events EventWriter, siteHost string, logger *slog.Logger, recorder metrics.Recorder) *AnalyticsHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AnalyticsHandler{
		stats:    stats,
		sink:     sink,
		events:   events,
		siteHost: siteHost,
		logger:   logger.With("component", "handler.analytics"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// Stats handles GET /api/analytics/stats?period={7d|30d|90d|1y}.
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statsRequestTimeout)
	defer cancel()

	summary, err := h.stats.ComputeStats(ctx, r.URL.Query().Get("period"))
	if err != nil {
		h.logger.Error("failed to compute analytics stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to fetch analytics",
		})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, summary)
}

// Track handles POST /api/analytics/track.
func (h *AnalyticsHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req dto.TrackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userAgent := r.UserAgent()
	if analytics.IsBot(userAgent) {
		h.metrics.IncPageViewRecorded("bot")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	now := h.now()
	ip := requestIP(r)

	referrer := analytics.SanitizeReferrer(req.Referrer)
	if analytics.IsSelfReferral(referrer, h.siteHost) {
		referrer = ""
	}

	visitorID := strings.TrimSpace(req.VisitorID)
	if visitorID == "" {
		visitorID = analytics.VisitorHash(ip, userAgent, now)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = visitorID
	}

	device := analytics.ParseUserAgent(userAgent)
	payload := analytics.PageViewPayload{
		VisitorID:  visitorID,
		SessionID:  sessionID,
		PagePath:   analytics.NormalizePath(strings.TrimSpace(req.PagePath)),
		Referrer:   referrer,
		Country:    countryCode(r),
		DeviceType: device.DeviceType,
		Browser:    device.Browser,
		OS:         device.OS,
		ViewedAt:   now.UnixMilli(),
	}

	if err := analytics.ValidatePageViewPayload(payload); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGE_VIEW", strings.TrimPrefix(err.Error(), analytics.ErrInvalidPayload.Error()+": "))
		return
	}

	if err := h.sink.RecordPageView(r.Context(), payload); err != nil {
		h.logger.Error("failed to record page view", "page_path", payload.PagePath, "error", err)
		writeError(w, http.StatusServiceUnavailable, "CAPTURE_UNAVAILABLE", "Failed to record page view")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ProjectView handles POST /api/analytics/project-view.
func (h *AnalyticsHandler) ProjectView(w http.ResponseWriter, r *http.Request) {
	var req dto.ProjectViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if analytics.IsBot(r.UserAgent()) {
		h.metrics.IncProjectViewRecorded("bot")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	slug := strings.TrimSpace(req.ProjectSlug)
	title := strings.TrimSpace(req.ProjectTitle)
	if slug == "" || len(slug) > maxSlugLength || len(title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "INVALID_PROJECT_VIEW", "project_slug is required and title at most 200 characters")
		return
	}
	if title == "" {
		title = slug
	}

	view := &model.ProjectView{
		ProjectSlug:  slug,
		ProjectTitle: title,
		ViewedAt:     h.now().UTC(),
	}
	if err := h.events.InsertProjectView(r.Context(), view); err != nil {
		h.metrics.IncProjectViewRecorded("failed")
		h.logger.Error("failed to record project view", "project_slug", slug, "error", err)
		writeError(w, http.StatusServiceUnavailable, "CAPTURE_UNAVAILABLE", "Failed to record project view")
		return
	}

	h.metrics.IncProjectViewRecorded("stored")
	w.WriteHeader(http.StatusNoContent)
}

// Engagement handles POST /api/analytics/engagement.
func (h *AnalyticsHandler) Engagement(w http.ResponseWriter, r *http.Request) {
	var req dto.EngagementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e := model.Engagement{
		SessionID:       strings.TrimSpace(req.SessionID),
		PagePath:        analytics.NormalizePath(strings.TrimSpace(req.PagePath)),
		IsBounce:        req.IsBounce,
		DurationSeconds: req.DurationSeconds,
	}

	switch {
	case e.SessionID == "" || !strings.HasPrefix(e.PagePath, "/"):
		writeError(w, http.StatusBadRequest, "INVALID_ENGAGEMENT", "session_id and page_path are required")
		return
	case e.IsBounce == nil && e.DurationSeconds == nil:
		writeError(w, http.StatusBadRequest, "INVALID_ENGAGEMENT", "is_bounce or duration_seconds is required")
		return
	case e.DurationSeconds != nil && (*e.DurationSeconds < 0 || *e.DurationSeconds > maxDurationSeconds):
		writeError(w, http.StatusBadRequest, "INVALID_ENGAGEMENT", "duration_seconds out of range")
		return
	}

	matched, err := h.events.UpdateEngagement(r.Context(), e)
	if err != nil {
		h.logger.Error("failed to record engagement", "page_path", e.PagePath, "error", err)
		writeError(w, http.StatusServiceUnavailable, "CAPTURE_UNAVAILABLE", "Failed to record engagement")
		return
	}
	if !matched {
		h.logger.Debug("engagement without matching page view", "page_path", e.PagePath)
	}

	w.WriteHeader(http.StatusNoContent)
}

// countryCode reads the CDN geo header.
func countryCode(r *http.Request) string {
	for _, header := range []string{"CF-IPCountry", "X-Vercel-IP-Country"} {
		if cc := analytics.ExtractCountryCode(r.Header.Get(header)); cc != "" {
			return cc
		}
	}
	return ""
}

// requestIP returns the proxy-reported client IP, falling back to the
// connection address.
func requestIP(r *http.Request) string {
	if ip := access.ClientIP(r); ip != "unknown" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
