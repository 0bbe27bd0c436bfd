// Package embed provides text embedding for document indexing and search.
package embed

import (
	"context"
	"fmt"
	"strings"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses the Ollama API for embeddings (default)
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings. Deterministic and fully
	// offline, with reduced semantic quality. Useful for air-gapped
	// deployments and tests.
	ProviderStatic ProviderType = "static"
)

// ParseProvider converts a configuration string into a ProviderType.
// An empty string selects the default provider (ollama).
func ParseProvider(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ollama":
		return ProviderOllama, nil
	case "static":
		return ProviderStatic, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q (valid: ollama, static)", s)
	}
}

// FactoryOptions configures embedder construction. Environment and file
// configuration are resolved by the caller before this point.
type FactoryOptions struct {
	// Provider selects the embedder implementation.
	Provider ProviderType

	// Ollama configures the ollama provider. Ignored for static.
	Ollama OllamaConfig

	// CacheDisabled turns off the LRU embedding cache wrapper.
	CacheDisabled bool

	// CacheSize is the LRU cache capacity (0 = default).
	CacheSize int
}

// NewEmbedder creates an embedder for the given provider.
//
// There is no silent fallback between providers: if Ollama is selected and
// unreachable, the error says so and names the alternatives. A deployment
// that silently degraded to hash embeddings would return plausible-looking
// but much worse search results.
func NewEmbedder(ctx context.Context, opts FactoryOptions) (Embedder, error) {
	var embedder Embedder

	switch opts.Provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder()

	case ProviderOllama, "":
		e, err := NewOllamaEmbedder(ctx, opts.Ollama)
		if err != nil {
			return nil, fmt.Errorf("ollama unavailable: %w\n\nTo fix:\n  1. Start Ollama: ollama serve\n  2. Pull the model: ollama pull %s\n  3. Or use offline hashing: docindex serve --embedder=static", err, modelOrDefault(opts.Ollama.Model))
		}
		embedder = e

	default:
		return nil, fmt.Errorf("unknown embedding provider %q (valid: ollama, static)", opts.Provider)
	}

	// Wrap with cache unless disabled: repeated queries and re-indexed
	// unchanged chunks skip the provider round trip.
	if !opts.CacheDisabled {
		embedder = NewCachedEmbedder(embedder, opts.CacheSize)
	}

	return embedder, nil
}

func modelOrDefault(model string) string {
	if model == "" {
		return DefaultOllamaModel
	}
	return model
}
