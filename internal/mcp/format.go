package mcp

import (
	"fmt"
	"strings"

	"github.com/servibot/docindex/internal/search"
	"github.com/servibot/docindex/pkg/engine"
)

// snippetLen bounds chunk text in markdown-formatted results.
const snippetLen = 400

// buildContextBlock formats already-fetched results into the engine's
// token-budgeted context block.
func buildContextBlock(eng *engine.Engine, results []search.Result) string {
	return search.BuildContext(results, eng.Config().Search.ContextMaxTokens)
}

// FormatSearchResults renders results as markdown for human readers.
func FormatSearchResults(query string, results []search.Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Search Results for %q\n\n", query))

	if len(results) == 0 {
		sb.WriteString("No matching documents found.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("### %d. %s (chunk %d, distance %.4f)\n\n",
			i+1, r.Metadata.Source, r.Metadata.ChunkIndex, r.Distance))
		sb.WriteString(snippet(r.Document))
		sb.WriteString("\n\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen]) + "..."
}
