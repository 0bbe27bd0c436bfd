package ingest

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Service runs pipeline work on a bounded pool and guarantees at most
// one ingestion attempt in flight per file_id. A second submission for
// the same file while one is running is dropped, not queued.
type Service struct {
	pipeline *Pipeline
	sem      *semaphore.Weighted

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewService wraps a pipeline with a worker pool of the given size.
func NewService(pipeline *Pipeline, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(int64(workers)),
		inflight: make(map[string]struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Submit schedules path for indexing under fileID. It returns false
// when the same fileID is already in flight or the service is stopped.
// The in-flight claim is taken synchronously so concurrent submissions
// for one file cannot both proceed.
func (s *Service) Submit(path, fileID string) bool {
	s.mu.Lock()
	if s.inflight == nil {
		s.mu.Unlock()
		return false
	}
	if _, busy := s.inflight[fileID]; busy {
		s.mu.Unlock()
		slog.Debug("submission dropped, file already in flight", "file_id", fileID)
		return false
	}
	s.inflight[fileID] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.release(fileID)

		if err := s.sem.Acquire(s.baseCtx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)

		s.pipeline.IndexFile(s.baseCtx, path, fileID)
	}()
	return true
}

// InFlight reports the file IDs currently claimed by a submission.
func (s *Service) InFlight() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		ids = append(ids, id)
	}
	return ids
}

// Stop refuses new submissions and waits for running work until ctx
// expires, then cancels whatever is still in flight. It returns the
// context error when the drain deadline was reached.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		slog.Warn("ingest service stop deadline reached, cancelling in-flight work")
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Service) release(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		delete(s.inflight, fileID)
	}
}
