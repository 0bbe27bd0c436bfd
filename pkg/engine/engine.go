// Package engine wires the docindex components into one service object.
// The CLI and the MCP server are thin layers over this facade; anything
// they can do goes through an Engine method.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/servibot/docindex/internal/chunk"
	"github.com/servibot/docindex/internal/config"
	"github.com/servibot/docindex/internal/embed"
	"github.com/servibot/docindex/internal/extract"
	"github.com/servibot/docindex/internal/ingest"
	"github.com/servibot/docindex/internal/search"
	"github.com/servibot/docindex/internal/status"
	"github.com/servibot/docindex/internal/store"
	"github.com/servibot/docindex/internal/telemetry"
)

// Engine owns every long-lived component: the vector store, the status
// store, the embedder, the ingest worker pool, the retry worker, and the
// query engine. Construct with New, release with Close.
type Engine struct {
	cfg *config.Config

	embedder  embed.Embedder
	store     store.Store
	status    *status.Store
	extractor *extract.Extractor
	splitter  *chunk.Splitter

	pipeline *ingest.Pipeline
	service  *ingest.Service
	retry    *ingest.RetryWorker
	intake   *ingest.Intake

	searcher *search.Engine

	metricsStore  *telemetry.SQLiteMetricsStore
	queryMetrics  *telemetry.QueryMetrics
	ingestMetrics *telemetry.IngestMetrics
}

// Options tunes construction beyond what the config file carries.
type Options struct {
	// EmbedderOverride replaces the configured embedder. Used by tests
	// and by the --embedder CLI flag.
	EmbedderOverride embed.Embedder

	// DisableRetryWorker leaves the retry loop stopped. One-shot commands
	// (add, search) do not need a background scanner.
	DisableRetryWorker bool

	// DisableTelemetry skips opening the metrics database.
	DisableTelemetry bool
}

// New builds a fully wired engine from cfg. The data directory and its
// substructure are created on first use.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	for _, dir := range []string{cfg.Storage.DataDir, cfg.UploadsPath(), cfg.VectorPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	e := &Engine{cfg: cfg}

	statusStore, err := status.Open(cfg.StatusPath())
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}
	e.status = statusStore

	embedder := opts.EmbedderOverride
	if embedder == nil {
		embedder, err = e.buildEmbedder(ctx)
		if err != nil {
			e.closePartial()
			return nil, err
		}
	}
	e.embedder = embedder

	// The store is sized off the live embedder so a model change is
	// caught at open time rather than on the first Add.
	vectorStore, err := store.Open(ctx, store.Config{
		Backend:     cfg.Storage.Backend,
		Dir:         cfg.VectorPath(),
		Collection:  cfg.Storage.Collection,
		Dimensions:  embedder.Dimensions(),
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		e.closePartial()
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	e.store = vectorStore

	e.extractor = extract.New(extract.Config{
		OCRBinary:    cfg.Ingest.OCRBinary,
		OCRLanguages: cfg.Ingest.OCRLanguages,
		Timeout:      cfg.ExtractTimeoutDuration(),
	})

	e.splitter = chunk.NewSplitter(chunk.Options{
		ChunkSize:   cfg.Chunking.ChunkSize,
		Overlap:     cfg.Chunking.Overlap,
		MinChunkLen: cfg.Chunking.MinChunkLen,
		Strategy:    chunk.Strategy(cfg.Chunking.Strategy),
	})

	if !opts.DisableTelemetry {
		if err := e.openTelemetry(); err != nil {
			// Metrics are never load-bearing. Log and run without them.
			slog.Warn("telemetry disabled", "error", err)
		}
	}

	pipeline, err := ingest.NewPipeline(ingest.PipelineConfig{
		Extractor:    e.extractor,
		Splitter:     e.splitter,
		Embedder:     e.embedder,
		Store:        e.store,
		Status:       e.status,
		Metrics:      e.ingestMetrics,
		EmbedTimeout: cfg.EmbedTimeoutDuration(),
	})
	if err != nil {
		e.closePartial()
		return nil, err
	}
	e.pipeline = pipeline
	e.service = ingest.NewService(pipeline, cfg.Ingest.Workers)

	e.retry = ingest.NewRetryWorker(ingest.RetryWorkerConfig{
		Service:     e.service,
		Status:      e.status,
		Metrics:     e.ingestMetrics,
		ResolvePath: e.resolveUploadPath,
		Interval:    cfg.RetryIntervalDuration(),
		MaxRetries:  cfg.Ingest.RetryMax,
	})
	if !opts.DisableRetryWorker {
		e.retry.Start()
	}

	e.intake = ingest.NewIntake(e.validator(), func(ctx context.Context, path string) error {
		_, err := e.SubmitUpload(ctx, path, filepath.Base(path))
		return err
	})

	searcher, err := search.NewEngine(e.embedder, e.store, search.Config{
		DefaultTopK: cfg.Search.TopK,
		MaxTopK:     cfg.Search.MaxTopK,
		Timeout:     10 * time.Second,
	}, search.WithMetrics(e.queryMetrics))
	if err != nil {
		e.closePartial()
		return nil, err
	}
	e.searcher = searcher

	slog.Info("engine_ready",
		"collection", e.store.Collection(),
		"backend", e.store.Backend(),
		"embedder", e.embedder.ModelName(),
		"workers", cfg.Ingest.Workers)

	return e, nil
}

func (e *Engine) buildEmbedder(ctx context.Context) (embed.Embedder, error) {
	provider, err := embed.ParseProvider(e.cfg.Embeddings.Provider)
	if err != nil {
		return nil, err
	}
	return embed.NewEmbedder(ctx, embed.FactoryOptions{
		Provider: provider,
		Ollama: embed.OllamaConfig{
			Host:          e.cfg.Embeddings.OllamaHost,
			Model:         e.cfg.Embeddings.Model,
			Dimensions:    e.cfg.Embeddings.Dimensions,
			BatchSize:     e.cfg.Embeddings.BatchSize,
			Timeout:       e.cfg.EmbedTimeoutDuration(),
			WarmupTimeout: e.cfg.WarmupTimeoutDuration(),
		},
		CacheDisabled: e.cfg.Embeddings.CacheDisabled,
		CacheSize:     e.cfg.Embeddings.CacheSize,
	})
}

func (e *Engine) openTelemetry() error {
	ms, err := telemetry.OpenSQLiteMetricsStore(e.cfg.TelemetryPath())
	if err != nil {
		return err
	}
	e.metricsStore = ms
	e.queryMetrics = telemetry.NewQueryMetrics(ms)
	e.ingestMetrics = telemetry.NewIngestMetrics(ms)
	return nil
}

// validator builds the upload validator from config.
func (e *Engine) validator() ingest.Validator {
	return ingest.Validator{
		MaxSize:           e.cfg.Ingest.MaxUploadSize,
		AllowedExtensions: e.cfg.Ingest.AllowedExtensions,
	}
}

// resolveUploadPath maps a status record back to its stored upload file.
// Uploads are stored as {file_id}{ext}, so the extension comes from the
// original filename.
func (e *Engine) resolveUploadPath(rec status.Record) (string, error) {
	ext := filepath.Ext(rec.OriginalName)
	path := filepath.Join(e.cfg.UploadsPath(), rec.FileID+ext)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("upload file for %s: %w", rec.FileID, err)
	}
	return path, nil
}

// Config returns the configuration the engine runs with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Store exposes the vector store for introspection commands.
func (e *Engine) Store() store.Store {
	return e.store
}

// StatusStore exposes the status store for read-side rendering.
func (e *Engine) StatusStore() *status.Store {
	return e.status
}

// Embedder exposes the active embedder for preflight probes.
func (e *Engine) Embedder() embed.Embedder {
	return e.embedder
}

// Extractor exposes the text extractor for preflight probes.
func (e *Engine) Extractor() *extract.Extractor {
	return e.extractor
}

// QueryMetrics returns the query metrics collector, or nil when
// telemetry is disabled.
func (e *Engine) QueryMetrics() *telemetry.QueryMetrics {
	return e.queryMetrics
}

// IngestMetrics returns the ingest metrics collector, or nil when
// telemetry is disabled.
func (e *Engine) IngestMetrics() *telemetry.IngestMetrics {
	return e.ingestMetrics
}

// Close drains in-flight ingestion and releases every resource. The
// context bounds the drain; work still running when it expires is
// cancelled.
func (e *Engine) Close(ctx context.Context) error {
	if e.retry != nil {
		e.retry.Stop()
	}
	if e.service != nil {
		if err := e.service.Stop(ctx); err != nil {
			slog.Warn("ingest drain incomplete", "error", err)
		}
	}

	var firstErr error
	if e.queryMetrics != nil {
		if err := e.queryMetrics.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.ingestMetrics != nil {
		if err := e.ingestMetrics.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.metricsStore != nil {
		if err := e.metricsStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.embedder != nil {
		if err := e.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.status != nil {
		if err := e.status.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// closePartial tears down whatever New managed to open before failing.
func (e *Engine) closePartial() {
	if e.metricsStore != nil {
		_ = e.metricsStore.Close()
	}
	if e.embedder != nil {
		_ = e.embedder.Close()
	}
	if e.store != nil {
		_ = e.store.Close()
	}
	if e.status != nil {
		_ = e.status.Close()
	}
}
