package preflight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/servibot/docindex/internal/embed"
	"github.com/servibot/docindex/internal/extract"
)

type stubEmbedder struct {
	available bool
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return nil, nil }
func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (s *stubEmbedder) Dimensions() int                  { return 768 }
func (s *stubEmbedder) ModelName() string                { return "nomic-embed-text" }
func (s *stubEmbedder) Available(_ context.Context) bool { return s.available }
func (s *stubEmbedder) Close() error                     { return nil }

func TestChecker_CheckEmbedder_Ready(t *testing.T) {
	// Given: a checker and a reachable embedder
	checker := New()
	embedder := &stubEmbedder{available: true}

	// When: I check the embedder
	result := checker.CheckEmbedder(context.Background(), embedder)

	// Then: status is pass with the model name
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "embedder", result.Name)
	assert.Contains(t, result.Message, "nomic-embed-text")
	assert.Contains(t, result.Message, "768")
}

func TestChecker_CheckEmbedder_Unavailable(t *testing.T) {
	// Given: a checker and an unreachable embedder
	checker := New()
	embedder := &stubEmbedder{available: false}

	// When: I check the embedder
	result := checker.CheckEmbedder(context.Background(), embedder)

	// Then: status is warn (not critical; static fallback exists)
	assert.Equal(t, StatusWarn, result.Status)
	assert.False(t, result.Required, "embedder check should not be required")
	assert.Contains(t, result.Message, "unavailable")
}

func TestChecker_CheckEmbedder_Nil(t *testing.T) {
	// Given: a checker with no embedder configured
	checker := New()

	// When: I check a nil embedder
	result := checker.CheckEmbedder(context.Background(), nil)

	// Then: status is warn
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "no embedder configured")
}

func TestChecker_CheckEmbedder_StaticAlwaysReady(t *testing.T) {
	// Given: the static embedder, which needs no external service
	checker := New()
	embedder := embed.NewStaticEmbedder()

	// When: I check it
	result := checker.CheckEmbedder(context.Background(), embedder)

	// Then: status is pass
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "static")
}

func TestChecker_CheckOCR_Nil(t *testing.T) {
	// Given: a checker with no extractor configured
	checker := New()

	// When: I check OCR with a nil extractor
	result := checker.CheckOCR(context.Background(), nil)

	// Then: status is warn
	assert.Equal(t, StatusWarn, result.Status)
	assert.Equal(t, "ocr", result.Name)
	assert.False(t, result.Required)
}

func TestChecker_CheckOCR_ResultFormat(t *testing.T) {
	// Given: a checker and a real extractor
	checker := New()
	extractor := extract.New(extract.Config{})

	// When: I check OCR (tesseract may or may not be installed)
	result := checker.CheckOCR(context.Background(), extractor)

	// Then: result has expected structure either way
	assert.Equal(t, "ocr", result.Name)
	assert.False(t, result.Required, "OCR check should not be required")
	assert.NotEmpty(t, result.Message)
}
