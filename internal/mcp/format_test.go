package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/servibot/docindex/internal/search"
	"github.com/servibot/docindex/internal/store"
)

func TestFormatSearchResults_Empty(t *testing.T) {
	out := FormatSearchResults("missing topic", nil)

	assert.Contains(t, out, `"missing topic"`)
	assert.Contains(t, out, "No matching documents found.")
}

func TestFormatSearchResults_RendersResults(t *testing.T) {
	// Given: two results from different chunks
	results := []search.Result{
		{
			Document: "First chunk of the report.",
			Distance: 0.12,
			Metadata: store.Metadata{FileID: "abc", ChunkIndex: 0, Source: "report.txt"},
		},
		{
			Document: "Second chunk covering appendix tables.",
			Distance: 0.34,
			Metadata: store.Metadata{FileID: "abc", ChunkIndex: 3, Source: "report.txt"},
		},
	}

	// When: formatting them
	out := FormatSearchResults("appendix", results)

	// Then: headers carry source, chunk index, and distance
	assert.Contains(t, out, "Found 2 result(s):")
	assert.Contains(t, out, "### 1. report.txt (chunk 0, distance 0.1200)")
	assert.Contains(t, out, "### 2. report.txt (chunk 3, distance 0.3400)")
	assert.Contains(t, out, "First chunk of the report.")
	assert.Contains(t, out, "Second chunk covering appendix tables.")
}

func TestSnippet_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("x", snippetLen+100)

	got := snippet(long)

	assert.Len(t, []rune(got), snippetLen+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSnippet_ShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "short text", snippet("  short text  "))
}
