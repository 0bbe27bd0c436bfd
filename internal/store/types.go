// Package store provides vector storage (HNSW), chunk persistence (SQLite),
// and an optional pgvector backend behind a single gateway.
// This is the persistence layer for all indexed documents.
package store

import (
	"context"
	"fmt"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "servibot_docs"

// Metadata carries the per-chunk fields persisted alongside each vector.
type Metadata struct {
	// FileID identifies the document the chunk came from.
	FileID string `json:"file_id"`
	// ChunkIndex is the chunk's position within its document, starting at 0.
	ChunkIndex int `json:"chunk_index"`
	// Source is the original file name, without directories.
	Source string `json:"source"`
}

// Entry is one chunk submitted for indexing.
type Entry struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  Metadata
}

// Result is one query hit. Result slices are ordered by ascending cosine
// distance, nearest first.
type Result struct {
	ID       string
	Text     string
	Distance float32
	Score    float32
	Metadata Metadata
}

// Filter restricts queries and deletions to chunks whose metadata matches
// every non-empty field. The zero Filter matches everything.
type Filter struct {
	FileID string
	Source string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.FileID == "" && f.Source == ""
}

// Matches reports whether the metadata satisfies the filter.
func (f Filter) Matches(m Metadata) bool {
	if f.FileID != "" && m.FileID != f.FileID {
		return false
	}
	if f.Source != "" && m.Source != f.Source {
		return false
	}
	return true
}

// Store is the gateway every indexing and query path goes through. A Store
// owns exactly one collection. Implementations are safe for concurrent use.
type Store interface {
	// Add inserts entries. A duplicate ID overwrites the existing entry so
	// reindexing the same file stays idempotent.
	Add(ctx context.Context, entries []Entry) error

	// Query returns up to topK entries nearest to the embedding, ascending
	// by cosine distance. A nil filter matches everything.
	Query(ctx context.Context, embedding []float32, topK int, filter *Filter) ([]Result, error)

	// DeleteWhere removes every entry matching the filter and returns the
	// number removed. Zero is a valid outcome, not an error.
	DeleteWhere(ctx context.Context, filter Filter) (int, error)

	// Clear removes every entry and returns the number removed.
	Clear(ctx context.Context) (int, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Sample returns up to n entries for collection introspection.
	// Embeddings are not populated.
	Sample(ctx context.Context, n int) ([]Entry, error)

	// Collection returns the logical collection name.
	Collection() string

	// Backend names the active backend: "hnsw", "memory", or "pgvector".
	Backend() string

	Close() error
}

// Config selects and parameterizes a store backend.
type Config struct {
	// Backend is "hnsw" (persistent local, the default), "memory"
	// (ephemeral), or "pgvector" (PostgreSQL with the pgvector extension).
	Backend string

	// Dir is the directory holding local store files. Ignored by pgvector.
	Dir string

	// Collection is the logical collection name. For local backends it is
	// also the base name of the on-disk files.
	Collection string

	// Dimensions is the embedding dimensionality. Must match the embedder.
	Dimensions int

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string
}

// ErrDimensionMismatch indicates an embedding with the wrong dimensionality,
// usually after switching embedding models without reindexing.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'docindex clear' and reindex after changing embedding models)", e.Expected, e.Got)
}
