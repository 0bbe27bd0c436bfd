package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/servibot/docindex/internal/chunk"
	"github.com/servibot/docindex/internal/embed"
	dxerrors "github.com/servibot/docindex/internal/errors"
	"github.com/servibot/docindex/internal/status"
	"github.com/servibot/docindex/internal/store"
	"github.com/servibot/docindex/internal/telemetry"
)

// maxStatusMessageLen caps the diagnostic message written to a status
// record. The full failure is preserved in the record's debug payload.
const maxStatusMessageLen = 200

// PipelineConfig carries the stage dependencies for a Pipeline.
type PipelineConfig struct {
	Extractor    Extractor
	Splitter     *chunk.Splitter
	Embedder     embed.Embedder
	Store        store.Store
	Status       *status.Store
	Metrics      *telemetry.IngestMetrics
	EmbedTimeout time.Duration
}

// Extractor converts a document on disk to plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Outcome summarizes one pipeline run for the caller.
type Outcome struct {
	Status       string `json:"status"`
	IndexedCount int    `json:"indexed_count,omitempty"`
	Message      string `json:"message"`
}

// Pipeline runs a single document through extract, chunk, embed, and
// store, recording progress and the final result in the status store.
type Pipeline struct {
	cfg PipelineConfig
}

// NewPipeline validates dependencies and builds a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Extractor == nil || cfg.Splitter == nil || cfg.Embedder == nil ||
		cfg.Store == nil || cfg.Status == nil {
		return nil, errors.New("ingest: pipeline requires extractor, splitter, embedder, store, and status")
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 60 * time.Second
	}
	return &Pipeline{cfg: cfg}, nil
}

// IndexFile indexes one document. Failures never escape as panics;
// every exit path leaves the status record in indexed or error state.
func (p *Pipeline) IndexFile(ctx context.Context, path, fileID string) (outcome Outcome) {
	start := time.Now()
	stage := "validate"

	defer func() {
		if r := recover(); r != nil {
			err := dxerrors.InternalError(fmt.Sprintf("pipeline panic: %v", r), nil)
			outcome = p.fail(fileID, stage, err, start)
		}
	}()

	p.markIndexing(fileID, filepath.Base(path))

	info, err := os.Stat(path)
	if err != nil {
		return p.fail(fileID, stage,
			dxerrors.New(dxerrors.ErrCodeFileNotFound, "file not found", err), start)
	}
	if info.Size() == 0 {
		return p.fail(fileID, stage,
			dxerrors.New(dxerrors.ErrCodeFileEmpty, "file is empty", nil), start)
	}

	stage = "extract"
	text, err := p.cfg.Extractor.Extract(ctx, path)
	if err != nil {
		return p.fail(fileID, stage, err, start)
	}
	if strings.TrimSpace(text) == "" {
		return p.fail(fileID, stage,
			dxerrors.New(dxerrors.ErrCodeNoTextExtracted, "no text could be extracted", nil), start)
	}

	stage = "chunk"
	chunks := p.cfg.Splitter.Split(text)
	if len(chunks) == 0 {
		return p.fail(fileID, stage,
			dxerrors.New(dxerrors.ErrCodeNoChunks, "no chunks created from extracted text", nil), start)
	}

	stage = "embed"
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	vectors, err := p.cfg.Embedder.EmbedBatch(embedCtx, texts)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = dxerrors.New(dxerrors.ErrCodeEmbedTimeout,
				fmt.Sprintf("embedding timed out after %s", p.cfg.EmbedTimeout), err)
		}
		return p.fail(fileID, stage, err, start)
	}
	if len(vectors) != len(chunks) {
		return p.fail(fileID, stage,
			dxerrors.EmbeddingError(fmt.Sprintf("embedder returned %d vectors for %d chunks",
				len(vectors), len(chunks)), nil), start)
	}

	stage = "store"
	// Metadata carries the submitted file name, not the UUID name the
	// upload is stored under, so search results read like the corpus.
	source := filepath.Base(path)
	if rec, ok := p.cfg.Status.Get(fileID); ok && rec.OriginalName != "" {
		source = rec.OriginalName
	}
	entries := make([]store.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = store.Entry{
			ID:        fmt.Sprintf("%s_%d", fileID, c.Index),
			Text:      c.Text,
			Embedding: vectors[i],
			Metadata: store.Metadata{
				FileID:     fileID,
				ChunkIndex: c.Index,
				Source:     source,
			},
		}
	}
	// Delete-then-add keeps reindexing idempotent: stale chunks from a
	// previous run never survive alongside the new set.
	if _, err := p.cfg.Store.DeleteWhere(ctx, store.Filter{FileID: fileID}); err != nil {
		return p.fail(fileID, stage, dxerrors.StoreError("failed to clear previous index entries", err), start)
	}
	if err := p.cfg.Store.Add(ctx, entries); err != nil {
		return p.fail(fileID, stage, dxerrors.StoreError("failed to add index entries", err), start)
	}

	count := len(entries)
	message := fmt.Sprintf("indexed %d chunks", count)
	if err := p.cfg.Status.Update(fileID, func(r *status.Record) {
		r.Status = status.StateIndexed
		r.Message = message
		r.IndexedCount = count
		r.Debug = ""
	}); err != nil {
		slog.Warn("failed to record indexed status", "file_id", fileID, "error", err)
	}
	p.record(fileID, telemetry.OutcomeIndexed, count, stage, start)

	slog.Info("document indexed", "file_id", fileID, "source", source, "chunks", count,
		"duration", time.Since(start).Round(time.Millisecond))
	return Outcome{Status: "success", IndexedCount: count, Message: message}
}

// markIndexing moves a fresh upload to indexing. A record already in
// retrying stays there so the retry lifecycle is visible to observers.
func (p *Pipeline) markIndexing(fileID, originalName string) {
	err := p.cfg.Status.Update(fileID, func(r *status.Record) {
		if r.OriginalName == "" {
			r.OriginalName = originalName
		}
		if r.Status != status.StateRetrying {
			r.Status = status.StateIndexing
		}
		r.Message = ""
	})
	if err != nil {
		slog.Warn("failed to mark file as indexing", "file_id", fileID, "error", err)
	}
}

func (p *Pipeline) fail(fileID, stage string, cause error, start time.Time) Outcome {
	message := statusMessage(cause)
	var debug string
	if payload, jsonErr := dxerrors.FormatJSON(cause); jsonErr == nil {
		debug = string(payload)
	}

	if err := p.cfg.Status.Update(fileID, func(r *status.Record) {
		r.Status = status.StateError
		r.Message = message
		r.Debug = debug
	}); err != nil {
		slog.Warn("failed to record error status", "file_id", fileID, "error", err)
	}
	p.record(fileID, telemetry.OutcomeError, 0, stage, start)

	slog.Warn("document indexing failed", "file_id", fileID, "stage", stage, "error", cause)
	return Outcome{Status: "error", Message: message}
}

func (p *Pipeline) record(fileID string, outcome telemetry.IngestOutcome, chunks int, stage string, start time.Time) {
	if p.cfg.Metrics == nil {
		return
	}
	p.cfg.Metrics.Record(telemetry.IngestEvent{
		FileID:    fileID,
		Outcome:   outcome,
		Chunks:    chunks,
		Stage:     stage,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})
}

// statusMessage extracts the human-readable message from an error,
// truncated to fit a status record.
func statusMessage(err error) string {
	var engineErr *dxerrors.EngineError
	if errors.As(err, &engineErr) {
		return dxerrors.Truncate(engineErr.Message, maxStatusMessageLen)
	}
	return dxerrors.Truncate(err.Error(), maxStatusMessageLen)
}
