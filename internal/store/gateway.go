package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Open builds the configured Store. A persistent backend that cannot be
// established degrades to an ephemeral in-memory store instead of failing
// the process; the degradation is logged. Indexed data then lives only
// until restart, but uploads and statuses survive, so documents can be
// reindexed once persistence is back.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Backend == "" {
		cfg.Backend = "hnsw"
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("store: dimensions must be positive, got %d", cfg.Dimensions)
	}

	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return newLocalStore(ctx, cfg, "")

	case "pgvector":
		st, err := OpenPG(ctx, cfg)
		if err == nil {
			return st, nil
		}
		slog.Warn("vector_store_degraded",
			slog.String("backend", "pgvector"),
			slog.String("fallback", "memory"),
			slog.String("error", err.Error()))
		return newLocalStore(ctx, cfg, "")

	case "hnsw":
		st, err := newLocalStore(ctx, cfg, cfg.Dir)
		if err == nil {
			return st, nil
		}
		slog.Warn("vector_store_degraded",
			slog.String("backend", "hnsw"),
			slog.String("dir", cfg.Dir),
			slog.String("fallback", "memory"),
			slog.String("error", err.Error()))
		return newLocalStore(ctx, cfg, "")

	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}

// LocalStore backs the hnsw and memory backends: an HNSW graph answers
// nearest-neighbor queries while a SQLite document store holds text,
// metadata, and raw embeddings. With no directory configured nothing
// touches disk and Close discards everything.
type LocalStore struct {
	mu         sync.RWMutex
	collection string
	dir        string
	dims       int
	index      *HNSWIndex
	docs       *DocStore
	closed     bool
}

var _ Store = (*LocalStore)(nil)

func newLocalStore(ctx context.Context, cfg Config, dir string) (*LocalStore, error) {
	var docsPath, indexPath string
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		docsPath = filepath.Join(dir, cfg.Collection+".db")
		indexPath = filepath.Join(dir, cfg.Collection+".hnsw")
	}

	docs, err := NewDocStore(docsPath)
	if err != nil {
		return nil, err
	}

	index, err := NewHNSWIndex(DefaultHNSWConfig(cfg.Dimensions))
	if err != nil {
		_ = docs.Close()
		return nil, err
	}

	if indexPath != "" {
		snapDims, err := ReadHNSWDimensions(indexPath)
		if err != nil {
			slog.Warn("vector_snapshot_unreadable",
				slog.String("path", indexPath),
				slog.String("error", err.Error()))
		} else if snapDims != 0 && snapDims != cfg.Dimensions {
			_ = docs.Close()
			return nil, ErrDimensionMismatch{Expected: cfg.Dimensions, Got: snapDims}
		} else if snapDims != 0 {
			if err := index.Load(indexPath); err != nil {
				// Start from an empty graph; reconcile rebuilds it from the
				// document rows below.
				slog.Warn("vector_snapshot_unreadable",
					slog.String("path", indexPath),
					slog.String("error", err.Error()))
				_ = index.Close()
				index, err = NewHNSWIndex(DefaultHNSWConfig(cfg.Dimensions))
				if err != nil {
					_ = docs.Close()
					return nil, err
				}
			}
		}
	}

	s := &LocalStore{
		collection: cfg.Collection,
		dir:        dir,
		dims:       cfg.Dimensions,
		index:      index,
		docs:       docs,
	}

	if err := s.reconcile(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// reconcile repairs drift between the graph and the document rows after a
// crash or a lost snapshot. Document rows are the source of truth: graph
// entries without a row are dropped, and rows missing from the graph are
// re-added from their stored embedding.
func (s *LocalStore) reconcile(ctx context.Context) error {
	docIDs, err := s.docs.AllIDs(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	docSet := make(map[string]bool, len(docIDs))
	for _, id := range docIDs {
		docSet[id] = true
	}

	indexIDs := s.index.AllIDs()
	indexSet := make(map[string]bool, len(indexIDs))
	for _, id := range indexIDs {
		indexSet[id] = true
	}

	var orphans []string
	for _, id := range indexIDs {
		if !docSet[id] {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) > 0 {
		if err := s.index.Delete(ctx, orphans); err != nil {
			return fmt.Errorf("reconcile: drop orphan vectors: %w", err)
		}
	}

	var missing []string
	for _, id := range docIDs {
		if !indexSet[id] {
			missing = append(missing, id)
		}
	}

	var restored, dropped int
	if len(missing) > 0 {
		embeddings, err := s.docs.AllEmbeddings(ctx)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}

		var restoreIDs []string
		var restoreVecs [][]float32
		var unusable []string
		for _, id := range missing {
			vec, ok := embeddings[id]
			if !ok || len(vec) != s.dims {
				// A row whose embedding is gone or has the wrong shape can
				// never be searched again.
				unusable = append(unusable, id)
				continue
			}
			restoreIDs = append(restoreIDs, id)
			restoreVecs = append(restoreVecs, vec)
		}

		if len(restoreIDs) > 0 {
			if err := s.index.Add(ctx, restoreIDs, restoreVecs); err != nil {
				return fmt.Errorf("reconcile: restore vectors: %w", err)
			}
			restored = len(restoreIDs)
		}
		if len(unusable) > 0 {
			n, err := s.docs.DeleteIDs(ctx, unusable)
			if err != nil {
				return fmt.Errorf("reconcile: drop unusable rows: %w", err)
			}
			dropped = n
		}
	}

	if len(orphans) > 0 || restored > 0 || dropped > 0 {
		slog.Info("vector_store_reconciled",
			slog.String("collection", s.collection),
			slog.Int("orphans_dropped", len(orphans)),
			slog.Int("vectors_restored", restored),
			slog.Int("rows_dropped", dropped))
		if err := s.persist(); err != nil {
			return err
		}
	}

	return nil
}

func (s *LocalStore) indexPath() string {
	if s.dir == "" {
		return ""
	}
	return filepath.Join(s.dir, s.collection+".hnsw")
}

// persist rewrites the graph snapshot. Mutations call it before returning
// so a crash never loses more than the in-flight call; document rows are
// already durable through SQLite's WAL.
func (s *LocalStore) persist() error {
	path := s.indexPath()
	if path == "" {
		return nil
	}
	if err := s.index.Save(path); err != nil {
		return fmt.Errorf("persist vector snapshot: %w", err)
	}
	return nil
}

// Add implements Store. Entries for an already-indexed ID replace the old
// entry in both halves.
func (s *LocalStore) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	rows := make([]DocRow, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry %d has an empty ID", i)
		}
		ids[i] = e.ID
		vectors[i] = e.Embedding
		rows[i] = DocRow{
			ID:         e.ID,
			FileID:     e.Metadata.FileID,
			ChunkIndex: e.Metadata.ChunkIndex,
			Source:     e.Metadata.Source,
			Text:       e.Text,
			Embedding:  e.Embedding,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	if err := s.docs.Put(ctx, rows); err != nil {
		// Keep both halves aligned; reconcile would drop these at the next
		// open anyway.
		_ = s.index.Delete(ctx, ids)
		return fmt.Errorf("add documents: %w", err)
	}

	return s.persist()
}

// Query implements Store.
func (s *LocalStore) Query(ctx context.Context, embedding []float32, topK int, filter *Filter) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	k := topK
	if filter != nil && !filter.IsZero() {
		// The metadata filter is applied after the ANN search, so fetch the
		// whole live set to avoid missing matches. Collections stay small
		// enough for this to be cheap.
		k = s.index.Count()
		if k == 0 {
			return []Result{}, nil
		}
	}

	hits, err := s.index.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}

	hitIDs := make([]string, len(hits))
	for i, h := range hits {
		hitIDs[i] = h.ID
	}
	rows, err := s.docs.Get(ctx, hitIDs)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	results := make([]Result, 0, topK)
	for _, h := range hits {
		row, ok := rows[h.ID]
		if !ok {
			// Vector without a row; dropped at the next reconcile.
			continue
		}
		meta := row.Metadata()
		if filter != nil && !filter.Matches(meta) {
			continue
		}
		results = append(results, Result{
			ID:       h.ID,
			Text:     row.Text,
			Distance: h.Distance,
			Score:    h.Score,
			Metadata: meta,
		})
		if len(results) == topK {
			break
		}
	}

	return results, nil
}

// DeleteWhere implements Store. An empty filter is refused; use Clear to
// drop the whole collection.
func (s *LocalStore) DeleteWhere(ctx context.Context, filter Filter) (int, error) {
	if filter.IsZero() {
		return 0, fmt.Errorf("refusing to delete with an empty filter (use Clear)")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.docs.IDsMatching(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("resolve filter: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.index.Delete(ctx, ids); err != nil {
		return 0, fmt.Errorf("delete vectors: %w", err)
	}
	n, err := s.docs.DeleteIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}

	if err := s.persist(); err != nil {
		return n, err
	}
	return n, nil
}

// Clear implements Store. The graph is rebuilt empty rather than emptied
// node by node.
func (s *LocalStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.docs.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}

	fresh, err := NewHNSWIndex(DefaultHNSWConfig(s.dims))
	if err != nil {
		return n, fmt.Errorf("recreate vector index: %w", err)
	}
	_ = s.index.Close()
	s.index = fresh

	if err := s.persist(); err != nil {
		return n, err
	}
	return n, nil
}

// Count implements Store. Document rows are authoritative.
func (s *LocalStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs.Count(ctx)
}

// CountFiles returns the number of distinct documents in the collection.
func (s *LocalStore) CountFiles(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs.CountFiles(ctx)
}

// Sample implements Store.
func (s *LocalStore) Sample(ctx context.Context, n int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.docs.Sample(ctx, n)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			ID:       row.ID,
			Text:     row.Text,
			Metadata: row.Metadata(),
		})
	}
	return entries, nil
}

// Collection implements Store.
func (s *LocalStore) Collection() string {
	return s.collection
}

// Backend implements Store.
func (s *LocalStore) Backend() string {
	if s.dir == "" {
		return "memory"
	}
	return "hnsw"
}

// IndexStats returns graph occupancy, including nodes orphaned by lazy
// deletion. Used by the compact command.
func (s *LocalStore) IndexStats() HNSWStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Stats()
}

// Compact rebuilds the graph from the stored embeddings, dropping nodes
// orphaned by lazy deletion. Returns the number of orphans removed.
func (s *LocalStore) Compact(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orphans := s.index.Stats().Orphans

	embeddings, err := s.docs.AllEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("compact: %w", err)
	}

	ids := make([]string, 0, len(embeddings))
	for id, vec := range embeddings {
		if len(vec) != s.dims {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i] = embeddings[id]
	}

	fresh, err := NewHNSWIndex(DefaultHNSWConfig(s.dims))
	if err != nil {
		return 0, fmt.Errorf("compact: %w", err)
	}
	if err := fresh.Add(ctx, ids, vectors); err != nil {
		_ = fresh.Close()
		return 0, fmt.Errorf("compact: rebuild graph: %w", err)
	}

	_ = s.index.Close()
	s.index = fresh

	if err := s.persist(); err != nil {
		return orphans, err
	}
	return orphans, nil
}

// Close persists a final snapshot and releases both halves. Idempotent.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	saveErr := s.persist()
	docsErr := s.docs.Close()
	_ = s.index.Close()

	if saveErr != nil {
		return saveErr
	}
	return docsErr
}
