package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/servibot/docindex/internal/embed"
	"github.com/servibot/docindex/internal/extract"
)

// embedderProbeTimeout bounds the availability probe so doctor never
// hangs on an unreachable Ollama endpoint.
const embedderProbeTimeout = 5 * time.Second

// CheckEmbedder probes the configured embedder for availability.
// Non-critical: indexing can fall back to the static embedder.
func (c *Checker) CheckEmbedder(ctx context.Context, embedder embed.Embedder) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: false,
	}

	if embedder == nil {
		result.Status = StatusWarn
		result.Message = "no embedder configured"
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, embedderProbeTimeout)
	defer cancel()

	if !embedder.Available(probeCtx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable (static fallback will be used)", embedder.ModelName())
		result.Details = "Check that the Ollama endpoint is reachable and the model is pulled"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s ready (%d dims)", embedder.ModelName(), embedder.Dimensions())
	return result
}

// CheckOCR reports whether the tesseract binary is on PATH.
// Non-critical: without OCR, image documents fail with a clear error
// but text and PDF ingestion still works.
func (c *Checker) CheckOCR(ctx context.Context, extractor *extract.Extractor) CheckResult {
	result := CheckResult{
		Name:     "ocr",
		Required: false,
	}

	if extractor == nil {
		result.Status = StatusWarn
		result.Message = "no extractor configured"
		return result
	}

	binary, ok := extractor.OCRAvailable()
	if !ok {
		result.Status = StatusWarn
		result.Message = "tesseract not found (image documents cannot be indexed)"
		result.Details = "Install tesseract-ocr to enable PNG/JPEG ingestion"
		return result
	}

	result.Status = StatusPass
	if version, err := extractor.OCRVersion(ctx); err == nil && version != "" {
		result.Message = fmt.Sprintf("%s (%s)", binary, version)
	} else {
		result.Message = binary
	}
	return result
}
