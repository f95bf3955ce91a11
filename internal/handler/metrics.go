package handler

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/folio/folio/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeLabeled(w, "folio_stats_requests_total", "status", snap.StatsRequests)
	writeMetric(w, "folio_stats_duration_seconds_count %d\n", snap.StatsDurationCount)
	writeMetric(w, "folio_stats_duration_seconds_sum %.6f\n", float64(snap.StatsDurationTotalNs)/1e9)
	writeLabeled(w, "folio_stats_dimension_failures_total", "dimension", snap.StatsDimensionFailures)

	writeLabeled(w, "folio_page_views_total", "status", snap.PageViews)
	writeLabeled(w, "folio_project_views_total", "status", snap.ProjectViews)
	writeAccessDecisions(w, snap.AccessDecisions)
	writeLabeled(w, "folio_contact_messages_total", "status", snap.ContactMessages)
	writeLabeled(w, "folio_uploads_total", "status", snap.Uploads)

	writeLabeled(w, "folio_ingest_processed_total", "status", snap.IngestProcessed)
	writeMetric(w, "folio_ingest_batches_total %d\n", snap.IngestBatchCount)
	writeMetric(w, "folio_ingest_batch_events_total %d\n", snap.IngestBatchEvents)
	writeMetric(w, "folio_ingest_batch_duration_seconds_sum %.6f\n", float64(snap.IngestBatchDurationNs)/1e9)
	writeMetric(w, "folio_ingest_queue_depth %d\n", snap.IngestQueueDepth)
}

func writeLabeled(w io.Writer, name, label string, values map[string]uint64) {
	for _, key := range sortedKeys(values) {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, key, values[key])
	}
}

// Access decisions are keyed "policy/outcome".
func writeAccessDecisions(w io.Writer, values map[string]uint64) {
	for _, key := range sortedKeys(values) {
		policy, outcome, _ := strings.Cut(key, "/")
		writeMetric(w, "folio_access_decisions_total{policy=%q,outcome=%q} %d\n", policy, outcome, values[key])
	}
}

func sortedKeys(values map[string]uint64) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeMetric(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
