// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Stats endpoint
	IncStatsRequest(status string) // "success" or "error"
	ObserveStatsDuration(duration time.Duration)
	IncStatsDimensionFailure(dimension string)

	// Capture
	IncPageViewRecorded(status string) // "queued", "stored", "dropped", "failed", "bot"
	IncProjectViewRecorded(status string)

	// Gated access, outcome is "allow", "redirect" or "not_found"
	IncAccessDecision(policy, outcome string)

	// Admin and contact surfaces
	IncContactMessage(status string) // "sent", "invalid", "rate_limited", "failed"
	IncUpload(status string)

	// Stream ingest
	IncIngestProcessed(status string) // "success", "failed", "dead_lettered"
	ObserveIngestBatchSize(size int)
	ObserveIngestBatchDuration(duration time.Duration)
	SetIngestQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
