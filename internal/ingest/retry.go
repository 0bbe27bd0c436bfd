package ingest

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/servibot/docindex/internal/status"
	"github.com/servibot/docindex/internal/telemetry"
)

// RetryWorker periodically rescans the status store and resubmits
// failed documents that still have retry budget left. Permanent
// failures, recognized by their message, are never retried.
type RetryWorker struct {
	service     *Service
	statusStore *status.Store
	metrics     *telemetry.IngestMetrics
	resolvePath func(status.Record) (string, error)

	interval   time.Duration
	maxRetries int

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// RetryWorkerConfig configures a RetryWorker. ResolvePath maps a
// status record back to the stored upload on disk.
type RetryWorkerConfig struct {
	Service     *Service
	Status      *status.Store
	Metrics     *telemetry.IngestMetrics
	ResolvePath func(status.Record) (string, error)
	Interval    time.Duration
	MaxRetries  int
}

// NewRetryWorker builds a stopped worker. Call Start to begin scanning.
func NewRetryWorker(cfg RetryWorkerConfig) *RetryWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &RetryWorker{
		service:     cfg.Service,
		statusStore: cfg.Status,
		metrics:     cfg.Metrics,
		resolvePath: cfg.ResolvePath,
		interval:    cfg.Interval,
		maxRetries:  cfg.MaxRetries,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the scan loop in its own goroutine. Repeated calls
// have no effect.
func (w *RetryWorker) Start() {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go func() {
			defer close(w.doneCh)
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()

			for {
				select {
				case <-w.stopCh:
					return
				case <-ticker.C:
					w.scan()
				}
			}
		}()
	})
}

// Stop halts the loop and waits for an in-progress pass to finish. It
// is safe to call repeatedly and on a worker that was never started.
func (w *RetryWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	if w.started.Load() {
		<-w.doneCh
	}
}

// scan resubmits every errored record that is still retryable.
func (w *RetryWorker) scan() {
	for _, rec := range w.statusStore.Snapshot() {
		if rec.Status != status.StateError {
			continue
		}
		if rec.Attempts >= w.maxRetries {
			continue
		}
		if IsPermanentMessage(rec.Message) {
			continue
		}
		w.retry(rec)
	}
}

func (w *RetryWorker) retry(rec status.Record) {
	path, err := w.resolvePath(rec)
	if err != nil {
		slog.Warn("cannot resolve upload for retry", "file_id", rec.FileID, "error", err)
		return
	}

	err = w.statusStore.Update(rec.FileID, func(r *status.Record) {
		r.Status = status.StateRetrying
		r.Attempts++
	})
	if err != nil {
		slog.Warn("failed to mark record as retrying", "file_id", rec.FileID, "error", err)
		return
	}

	if w.metrics != nil {
		w.metrics.Record(telemetry.IngestEvent{
			FileID:    rec.FileID,
			Outcome:   telemetry.OutcomeRetry,
			Stage:     "retry",
			Timestamp: time.Now(),
		})
	}

	slog.Info("retrying failed document", "file_id", rec.FileID,
		"attempt", rec.Attempts+1, "max", w.maxRetries)
	// A dropped submission means the file is already in flight, which
	// is fine: that run will settle the record either way.
	w.service.Submit(path, rec.FileID)
}
