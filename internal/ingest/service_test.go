package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servibot/docindex/internal/chunk"
	"github.com/servibot/docindex/internal/embed"
	"github.com/servibot/docindex/internal/status"
	"github.com/servibot/docindex/internal/store"
)

// gatedExtractor blocks every Extract call until released, so tests
// can hold a pipeline run in flight deterministically.
type gatedExtractor struct {
	entered chan struct{}
	release chan struct{}
}

func newGatedExtractor() *gatedExtractor {
	return &gatedExtractor{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedExtractor) Extract(ctx context.Context, path string) (string, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "Extracted text that is long enough to produce at least one chunk of content.", nil
}

func newGatedService(t *testing.T, workers int) (*Service, *gatedExtractor, *status.Store) {
	t.Helper()
	ctx := context.Background()

	embedder := embed.NewStaticEmbedder()
	vs, err := store.Open(ctx, store.Config{
		Backend:    "memory",
		Collection: "test_docs",
		Dimensions: embedder.Dimensions(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })

	ss, err := status.Open(filepath.Join(t.TempDir(), "status.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	extractor := newGatedExtractor()
	p, err := NewPipeline(PipelineConfig{
		Extractor: extractor,
		Splitter:  chunk.NewSplitter(chunk.Options{}),
		Embedder:  embedder,
		Store:     vs,
		Status:    ss,
	})
	require.NoError(t, err)

	svc := NewService(p, workers)
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Stop(stopCtx)
	})
	return svc, extractor, ss
}

func TestService_Submit_SingleFlightPerFile(t *testing.T) {
	svc, extractor, _ := newGatedService(t, 4)
	path := writeDoc(t, "report.txt", "content")

	// Given a submission held in flight by the extractor gate
	require.True(t, svc.Submit(path, "file-a"))
	select {
	case <-extractor.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline never reached extraction")
	}

	// When the same file is submitted again
	// Then the duplicate is dropped while a different file is accepted
	assert.False(t, svc.Submit(path, "file-a"))
	assert.True(t, svc.Submit(path, "file-b"))

	close(extractor.release)
}

func TestService_InFlight(t *testing.T) {
	svc, extractor, _ := newGatedService(t, 2)
	path := writeDoc(t, "report.txt", "content")

	require.True(t, svc.Submit(path, "file-a"))
	<-extractor.entered

	assert.Contains(t, svc.InFlight(), "file-a")

	close(extractor.release)
}

func TestService_Stop_RefusesNewWork(t *testing.T) {
	svc, extractor, _ := newGatedService(t, 2)
	close(extractor.release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))

	assert.False(t, svc.Submit(writeDoc(t, "late.txt", "content"), "file-late"))
	assert.Empty(t, svc.InFlight())
}

func TestService_Stop_DeadlineCancelsInFlight(t *testing.T) {
	svc, extractor, _ := newGatedService(t, 2)
	path := writeDoc(t, "report.txt", "content")

	// Given a run held in flight past the drain deadline
	require.True(t, svc.Submit(path, "file-a"))
	<-extractor.entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Then Stop cancels the run and reports the missed deadline
	err := svc.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, svc.InFlight())
}

func TestService_Submit_CompletesIndexing(t *testing.T) {
	svc, extractor, ss := newGatedService(t, 2)
	close(extractor.release)
	path := writeDoc(t, "report.txt", "content")

	require.True(t, svc.Submit(path, "file-a"))

	require.Eventually(t, func() bool {
		rec, ok := ss.Get("file-a")
		return ok && rec.Status == status.StateIndexed
	}, 5*time.Second, 10*time.Millisecond)
}
