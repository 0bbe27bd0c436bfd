// Package search implements the query side of the index: embed the query,
// run nearest-neighbor retrieval through the store gateway, and normalize
// whatever result shape the backend produced into one flat, distance-ordered
// view.
package search

import (
	"time"

	"github.com/servibot/docindex/internal/store"
)

// Result is a single query hit handed back to callers.
type Result struct {
	// Document is the chunk text that matched.
	Document string `json:"document"`

	// Distance is the cosine distance to the query, lower is closer.
	Distance float32 `json:"distance"`

	// Metadata identifies where the chunk came from.
	Metadata store.Metadata `json:"metadata"`
}

// Options configures a single search call.
type Options struct {
	// TopK is the maximum number of results to return.
	// Zero means the engine default.
	TopK int

	// Filter restricts results by chunk metadata. Nil matches everything.
	Filter *store.Filter
}

// Config configures the query engine.
type Config struct {
	// DefaultTopK is used when a caller passes TopK <= 0 (default: 5).
	DefaultTopK int

	// MaxTopK caps the number of results per query (default: 100).
	MaxTopK int

	// Timeout bounds one search call end to end, embedding included
	// (default: 10s).
	Timeout time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTopK: 5,
		MaxTopK:     100,
		Timeout:     10 * time.Second,
	}
}

// clampTopK applies the default and the upper bound.
func (c Config) clampTopK(topK int) int {
	if topK <= 0 {
		topK = c.DefaultTopK
	}
	if topK > c.MaxTopK {
		topK = c.MaxTopK
	}
	return topK
}
