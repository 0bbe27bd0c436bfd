package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/servibot/docindex/internal/embed"
	"github.com/servibot/docindex/internal/store"
	"github.com/servibot/docindex/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Engine answers similarity queries against the indexed collection.
type Engine struct {
	embedder embed.Embedder
	store    store.Store
	config   Config
	metrics  *telemetry.QueryMetrics
}

// EngineOption configures the query engine.
type EngineOption func(*Engine)

// WithMetrics sets an optional query metrics collector.
// When set, query terms, latency, and zero-result queries are tracked.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a new query engine with the given dependencies.
// Returns an error if any required dependency is nil.
func NewEngine(embedder embed.Embedder, st store.Store, config Config, opts ...EngineOption) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrNilDependency)
	}
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = DefaultConfig().DefaultTopK
	}
	if config.MaxTopK <= 0 {
		config.MaxTopK = DefaultConfig().MaxTopK
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	e := &Engine{
		embedder: embedder,
		store:    st,
		config:   config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search embeds the query and returns the nearest chunks, ascending by
// distance. An empty or whitespace-only query returns an empty slice
// without touching the embedder.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}

	topK := e.config.clampTopK(opts.TopK)

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	// Single-item batch keeps the adapter on its batched code path.
	vectors, err := e.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}

	hits, err := e.store.Query(ctx, vectors[0], topK, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	results := normalizeHits(hits, topK)

	e.recordMetrics(query, vectors[0], len(results), time.Since(start))
	return results, nil
}

// recordMetrics feeds the optional telemetry collector.
func (e *Engine) recordMetrics(query string, embedding []float32, resultCount int, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
	e.metrics.RecordQueryEmbedding(embedding)

	if resultCount == 0 {
		slog.Debug("zero-result query", slog.String("query", query))
	}
}
