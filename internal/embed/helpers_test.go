package embed

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// cosineSimilarity computes cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, magA, magB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(magA) * math.Sqrt(magB))
}

// vectorMagnitude computes the magnitude of a vector
func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// mockEmbedder is a deterministic in-memory Embedder for wrapper tests.
type mockEmbedder struct {
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	lastBatch  []string
	failNext   bool
	closed     bool
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	return []float32{float32(len(text)), 1, 0, 0}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return nil, fmt.Errorf("mock embed failure")
	}
	m.embedCalls++
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return nil, fmt.Errorf("mock batch failure")
	}
	m.batchCalls++
	m.lastBatch = append([]string(nil), texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int     { return 4 }
func (m *mockEmbedder) ModelName() string   { return "mock-model" }
func (m *mockEmbedder) Available(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *mockEmbedder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
