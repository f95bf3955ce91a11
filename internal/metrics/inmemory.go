package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
// Labeled counters are keyed by label value; access decisions by "policy/outcome".
type Snapshot struct {
	StatsRequests          map[string]uint64
	StatsDurationCount     uint64
	StatsDurationTotalNs   int64
	StatsDimensionFailures map[string]uint64
	PageViews              map[string]uint64
	ProjectViews           map[string]uint64
	AccessDecisions        map[string]uint64
	ContactMessages        map[string]uint64
	Uploads                map[string]uint64
	IngestProcessed        map[string]uint64
	IngestBatchCount       uint64
	IngestBatchEvents      uint64
	IngestBatchDurationNs  int64
	IngestQueueDepth       int64
}

// InMemoryRecorder stores metrics in memory. It backs the admin /metrics
// endpoint and is safe for concurrent use.
type InMemoryRecorder struct {
	statsDurationCount    uint64
	statsDurationTotalNs  int64
	ingestBatchCount      uint64
	ingestBatchEvents     uint64
	ingestBatchDurationNs int64
	ingestQueueDepth      int64

	mu       sync.Mutex
	counters map[string]map[string]uint64
}

const (
	familyStatsRequests   = "stats_requests"
	familyStatsFailures   = "stats_dimension_failures"
	familyPageViews       = "page_views"
	familyProjectViews    = "project_views"
	familyAccess          = "access_decisions"
	familyContact         = "contact_messages"
	familyUploads         = "uploads"
	familyIngestProcessed = "ingest_processed"
)

var _ Recorder = (*InMemoryRecorder)(nil)

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{counters: make(map[string]map[string]uint64)}
}

func (m *InMemoryRecorder) inc(family, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[family]
	if !ok {
		c = make(map[string]uint64)
		m.counters[family] = c
	}
	c[label]++
}

func (m *InMemoryRecorder) family(name string) map[string]uint64 {
	if c, ok := m.counters[name]; ok {
		return maps.Clone(c)
	}
	return map[string]uint64{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		StatsRequests:          m.family(familyStatsRequests),
		StatsDurationCount:     atomic.LoadUint64(&m.statsDurationCount),
		StatsDurationTotalNs:   atomic.LoadInt64(&m.statsDurationTotalNs),
		StatsDimensionFailures: m.family(familyStatsFailures),
		PageViews:              m.family(familyPageViews),
		ProjectViews:           m.family(familyProjectViews),
		AccessDecisions:        m.family(familyAccess),
		ContactMessages:        m.family(familyContact),
		Uploads:                m.family(familyUploads),
		IngestProcessed:        m.family(familyIngestProcessed),
		IngestBatchCount:       atomic.LoadUint64(&m.ingestBatchCount),
		IngestBatchEvents:      atomic.LoadUint64(&m.ingestBatchEvents),
		IngestBatchDurationNs:  atomic.LoadInt64(&m.ingestBatchDurationNs),
		IngestQueueDepth:       atomic.LoadInt64(&m.ingestQueueDepth),
	}
}

// IncStatsRequest counts a stats computation by status.
func (m *InMemoryRecorder) IncStatsRequest(status string) {
	m.inc(familyStatsRequests, status)
}

// ObserveStatsDuration records how long a stats computation took.
func (m *InMemoryRecorder) ObserveStatsDuration(duration time.Duration) {
	atomic.AddUint64(&m.statsDurationCount, 1)
	atomic.AddInt64(&m.statsDurationTotalNs, duration.Nanoseconds())
}

// IncStatsDimensionFailure counts a failed dimension read.
func (m *InMemoryRecorder) IncStatsDimensionFailure(dimension string) {
	m.inc(familyStatsFailures, dimension)
}

// IncPageViewRecorded counts a captured page view by outcome.
func (m *InMemoryRecorder) IncPageViewRecorded(status string) {
	m.inc(familyPageViews, status)
}

// IncProjectViewRecorded counts a captured project view by outcome.
func (m *InMemoryRecorder) IncProjectViewRecorded(status string) {
	m.inc(familyProjectViews, status)
}

// IncAccessDecision counts a gate decision.
func (m *InMemoryRecorder) IncAccessDecision(policy, outcome string) {
	m.inc(familyAccess, policy+"/"+outcome)
}

// IncContactMessage counts a contact submission by outcome.
func (m *InMemoryRecorder) IncContactMessage(status string) {
	m.inc(familyContact, status)
}

// IncUpload counts an upload by outcome.
func (m *InMemoryRecorder) IncUpload(status string) {
	m.inc(familyUploads, status)
}

// IncIngestProcessed counts a stream message by outcome.
func (m *InMemoryRecorder) IncIngestProcessed(status string) {
	m.inc(familyIngestProcessed, status)
}

// ObserveIngestBatchSize records the size of a stored batch.
func (m *InMemoryRecorder) ObserveIngestBatchSize(size int) {
	atomic.AddUint64(&m.ingestBatchCount, 1)
	atomic.AddUint64(&m.ingestBatchEvents, uint64(size))
}

// ObserveIngestBatchDuration records batch insert time.
func (m *InMemoryRecorder) ObserveIngestBatchDuration(duration time.Duration) {
	atomic.AddInt64(&m.ingestBatchDurationNs, duration.Nanoseconds())
}

// SetIngestQueueDepth sets pending plus lagging messages of the consumer group.
func (m *InMemoryRecorder) SetIngestQueueDepth(depth int64) {
	atomic.StoreInt64(&m.ingestQueueDepth, depth)
}
