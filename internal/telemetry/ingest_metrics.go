package telemetry

import (
	"sync"
	"time"
)

// IngestOutcome labels the result of one pipeline run.
type IngestOutcome string

const (
	OutcomeIndexed IngestOutcome = "indexed"
	OutcomeError   IngestOutcome = "error"
	OutcomeRetry   IngestOutcome = "retry"
)

// IngestBucket is a duration histogram bucket for pipeline runs, which are
// seconds-scale rather than the milliseconds of query latency.
type IngestBucket string

const (
	IngestS1  IngestBucket = "s1"  // <1s
	IngestS5  IngestBucket = "s5"  // 1-5s
	IngestS15 IngestBucket = "s15" // 5-15s
	IngestS60 IngestBucket = "s60" // 15-60s
	IngestMax IngestBucket = "max" // >=60s
)

// DurationToIngestBucket converts a pipeline duration to its bucket.
func DurationToIngestBucket(d time.Duration) IngestBucket {
	s := d.Seconds()
	switch {
	case s < 1:
		return IngestS1
	case s < 5:
		return IngestS5
	case s < 15:
		return IngestS15
	case s < 60:
		return IngestS60
	default:
		return IngestMax
	}
}

// IngestEvent records one completed pipeline run.
type IngestEvent struct {
	FileID    string
	Outcome   IngestOutcome
	Chunks    int    // Chunks stored on success
	Stage     string // Failing stage on error: "extract", "chunk", "embed", "store", "validate"
	Duration  time.Duration
	Timestamp time.Time
}

// IngestMetricsSnapshot is an immutable snapshot of ingestion metrics.
type IngestMetricsSnapshot struct {
	FilesIndexed         int64                  `json:"files_indexed"`
	FilesFailed          int64                  `json:"files_failed"`
	Retries              int64                  `json:"retries"`
	ChunksIndexed        int64                  `json:"chunks_indexed"`
	FailuresByStage      map[string]int64       `json:"failures_by_stage"`
	DurationDistribution map[IngestBucket]int64 `json:"duration_distribution"`
	Since                time.Time              `json:"since"`
}

// IngestMetricsStore defines persistence operations for ingest metrics.
type IngestMetricsStore interface {
	// SaveIngestCounts upserts daily outcome counts.
	SaveIngestCounts(date string, counts map[IngestOutcome]int64) error

	// GetIngestCounts retrieves outcome counts for a date range.
	GetIngestCounts(from, to string) (map[IngestOutcome]int64, error)

	// SaveIngestDurations upserts daily duration histogram counts.
	SaveIngestDurations(date string, counts map[IngestBucket]int64) error
}

// IngestMetrics collects ingestion telemetry. Thread-safe.
type IngestMetrics struct {
	mu sync.RWMutex

	filesIndexed    int64
	filesFailed     int64
	retries         int64
	chunksIndexed   int64
	failuresByStage map[string]int64
	durations       map[IngestBucket]int64
	startTime       time.Time

	// Deltas not yet flushed to the store.
	pendingOutcomes  map[IngestOutcome]int64
	pendingDurations map[IngestBucket]int64

	store IngestMetricsStore
}

// NewIngestMetrics creates a collector. A nil store keeps metrics in memory.
func NewIngestMetrics(store IngestMetricsStore) *IngestMetrics {
	return &IngestMetrics{
		failuresByStage:  make(map[string]int64),
		durations:        make(map[IngestBucket]int64),
		pendingOutcomes:  make(map[IngestOutcome]int64),
		pendingDurations: make(map[IngestBucket]int64),
		startTime:        time.Now(),
		store:            store,
	}
}

// Record captures one completed pipeline run.
func (m *IngestMetrics) Record(event IngestEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch event.Outcome {
	case OutcomeIndexed:
		m.filesIndexed++
		m.chunksIndexed += int64(event.Chunks)
	case OutcomeError:
		m.filesFailed++
		if event.Stage != "" {
			m.failuresByStage[event.Stage]++
		}
	case OutcomeRetry:
		m.retries++
	}

	bucket := DurationToIngestBucket(event.Duration)
	m.durations[bucket]++
	m.pendingOutcomes[event.Outcome]++
	m.pendingDurations[bucket]++
}

// Snapshot returns current metrics for reporting.
func (m *IngestMetrics) Snapshot() *IngestMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stages := make(map[string]int64, len(m.failuresByStage))
	for k, v := range m.failuresByStage {
		stages[k] = v
	}
	durations := make(map[IngestBucket]int64, len(m.durations))
	for k, v := range m.durations {
		durations[k] = v
	}

	return &IngestMetricsSnapshot{
		FilesIndexed:         m.filesIndexed,
		FilesFailed:          m.filesFailed,
		Retries:              m.retries,
		ChunksIndexed:        m.chunksIndexed,
		FailuresByStage:      stages,
		DurationDistribution: durations,
		Since:                m.startTime,
	}
}

// Flush persists deltas accumulated since the previous flush.
func (m *IngestMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	outcomes := m.pendingOutcomes
	durations := m.pendingDurations
	m.pendingOutcomes = make(map[IngestOutcome]int64)
	m.pendingDurations = make(map[IngestBucket]int64)
	m.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if err := m.store.SaveIngestCounts(today, outcomes); err != nil {
		return err
	}
	return m.store.SaveIngestDurations(today, durations)
}
