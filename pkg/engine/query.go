package engine

import (
	"context"

	dxerrors "github.com/servibot/docindex/internal/errors"
	"github.com/servibot/docindex/internal/search"
	"github.com/servibot/docindex/internal/store"
)

// samplePreviewLen bounds document previews in collection introspection.
const samplePreviewLen = 300

// maxSamples is the number of sample entries returned per collection.
const maxSamples = 5

// CollectionInfo describes one vector collection for introspection.
type CollectionInfo struct {
	Name    string         `json:"name"`
	Backend string         `json:"backend"`
	Count   int            `json:"count"`
	Samples []SampleEntry  `json:"samples"`
}

// SampleEntry is one stored entry with its text truncated for display.
type SampleEntry struct {
	ID       string         `json:"id"`
	Preview  string         `json:"document_preview"`
	Metadata store.Metadata `json:"metadata"`
}

// Search embeds query and returns the nearest chunks. topK <= 0 uses the
// configured default; values above the cap are clamped. A non-empty
// fileID restricts results to that document.
func (e *Engine) Search(ctx context.Context, query string, topK int, fileID string) ([]search.Result, error) {
	opts := search.Options{TopK: topK}
	if fileID != "" {
		opts.Filter = &store.Filter{FileID: fileID}
	}
	return e.searcher.Search(ctx, query, opts)
}

// ContextForQuery searches for query and formats the hits into a single
// source-attributed context block bounded by maxTokens. maxTokens <= 0
// uses the configured default.
func (e *Engine) ContextForQuery(ctx context.Context, query string, topK, maxTokens int) (string, error) {
	results, err := e.Search(ctx, query, topK, "")
	if err != nil {
		return "", err
	}
	if maxTokens <= 0 {
		maxTokens = e.cfg.Search.ContextMaxTokens
	}
	return search.BuildContext(results, maxTokens), nil
}

// Collections reports the active collection with its entry count and a
// handful of sample entries. Never called on the query hot path.
func (e *Engine) Collections(ctx context.Context) ([]CollectionInfo, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return nil, dxerrors.StoreError("failed to count entries", err)
	}

	entries, err := e.store.Sample(ctx, maxSamples)
	if err != nil {
		return nil, dxerrors.StoreError("failed to sample entries", err)
	}

	samples := make([]SampleEntry, 0, len(entries))
	for _, entry := range entries {
		samples = append(samples, SampleEntry{
			ID:       entry.ID,
			Preview:  truncatePreview(entry.Text, samplePreviewLen),
			Metadata: entry.Metadata,
		})
	}

	return []CollectionInfo{{
		Name:    e.store.Collection(),
		Backend: e.store.Backend(),
		Count:   count,
		Samples: samples,
	}}, nil
}

func truncatePreview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
