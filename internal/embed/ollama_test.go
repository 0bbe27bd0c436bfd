package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOllamaTestServer fakes the two Ollama endpoints the embedder uses.
// Returned embeddings encode the input text length in the first component
// so order-preservation can be asserted after normalization.
func newOllamaTestServer(t *testing.T, models []string, failEmbeds int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var embedCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		resp := OllamaModelListResponse{}
		for _, m := range models {
			resp.Models = append(resp.Models, OllamaModelInfo{Name: m})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		n := embedCalls.Add(1)
		if n <= failEmbeds {
			http.Error(w, "model is loading", http.StatusInternalServerError)
			return
		}

		var req OllamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var texts []string
		switch v := req.Input.(type) {
		case string:
			texts = []string{v}
		case []any:
			for _, x := range v {
				texts = append(texts, x.(string))
			}
		}

		resp := OllamaEmbedResponse{Model: req.Model}
		for _, text := range texts {
			resp.Embeddings = append(resp.Embeddings, []float64{float64(len(text)), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &embedCalls
}

func TestNewOllamaEmbedder_HealthCheckAndDimensionDetection(t *testing.T) {
	srv, _ := newOllamaTestServer(t, []string{"nomic-embed-text"}, 0)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "nomic-embed-text", e.ModelName())
	assert.Equal(t, 2, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestNewOllamaEmbedder_FallsBackToInstalledModel(t *testing.T) {
	srv, _ := newOllamaTestServer(t, []string{"llama3:8b", "mxbai-embed-large:latest"}, 0)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "mxbai-embed-large:latest", e.ModelName())
}

func TestNewOllamaEmbedder_NoEmbeddingModel(t *testing.T) {
	srv, _ := newOllamaTestServer(t, []string{"llama3:8b"}, 0)

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding model available")
}

func TestOllamaEmbedder_EmbedBatchPreservesOrder(t *testing.T) {
	srv, embedCalls := newOllamaTestServer(t, nil, 0)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      2,
		BatchSize:       2,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	texts := []string{"a", "bb", "   ", "cccc", "ddddd"}
	results, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, results, len(texts))

	// The blank entry never reaches the API and embeds to a zero vector
	assert.Equal(t, []float32{0, 0}, results[2])

	// Non-empty results come back in input order: the first component
	// encodes len(text), preserved as a ratio after normalization
	for i, text := range texts {
		if i == 2 {
			continue
		}
		require.NotZero(t, results[i][1], "index %d", i)
		ratio := results[i][0] / results[i][1]
		assert.InDelta(t, float32(len(text)), ratio, 1e-4, "index %d", i)
	}

	// Four non-empty texts at batch size two means two API calls
	assert.Equal(t, int32(2), embedCalls.Load())
}

func TestOllamaEmbedder_EmptyBatch(t *testing.T) {
	srv, embedCalls := newOllamaTestServer(t, nil, 0)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      2,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	results, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), embedCalls.Load())
}

func TestOllamaEmbedder_RetriesTransientFailures(t *testing.T) {
	srv, embedCalls := newOllamaTestServer(t, nil, 2)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      2,
		MaxRetries:      3,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.Equal(t, int32(3), embedCalls.Load())
}

func TestOllamaEmbedder_FailsAfterMaxRetries(t *testing.T) {
	srv, _ := newOllamaTestServer(t, nil, 100)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      2,
		MaxRetries:      2,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Embed(context.Background(), "never works")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestOllamaEmbedder_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	srv, calls := newOllamaTestServer(t, nil, 1000)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      2,
		MaxRetries:      1,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// Default breaker trips after 5 failures; one retry per call means
	// one recorded failure per call.
	for i := 0; i < 5; i++ {
		_, err = e.Embed(context.Background(), "down")
		require.Error(t, err)
	}
	require.Equal(t, int32(5), calls.Load())

	_, err = e.Embed(context.Background(), "still down")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit")
	assert.Equal(t, int32(5), calls.Load(), "open circuit must not issue HTTP requests")
}

func TestOllamaEmbedder_Closed(t *testing.T) {
	srv, _ := newOllamaTestServer(t, nil, 0)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      2,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	assert.False(t, e.Available(context.Background()))
	assert.NoError(t, e.Close(), "close is idempotent")
}

func TestOllamaEmbedder_EmbedNormalizesVectors(t *testing.T) {
	srv, _ := newOllamaTestServer(t, nil, 0)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      2,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "normalize this")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vectorMagnitude(vec), 1e-5)
}
