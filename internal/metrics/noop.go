package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncStatsRequest(string) {}
func (n *NoopRecorder) ObserveStatsDuration(time.Duration) {}
func (n *NoopRecorder) IncStatsDimensionFailure(string) {}
func (n *NoopRecorder) IncPageViewRecorded(string) {}
func (n *NoopRecorder) IncProjectViewRecorded(string) {}
func (n *NoopRecorder) IncAccessDecision(string, string) {}
func (n *NoopRecorder) IncContactMessage(string) {}
func (n *NoopRecorder) IncUpload(string) {}
func (n *NoopRecorder) IncIngestProcessed(string) {}
func (n *NoopRecorder) ObserveIngestBatchSize(int) {}
func (n *NoopRecorder) ObserveIngestBatchDuration(time.Duration) {}
func (n *NoopRecorder) SetIngestQueueDepth(int64) {}
