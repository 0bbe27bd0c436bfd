package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultContextTokens bounds a context block when no budget is given.
const DefaultContextTokens = 1800

// contextEncoding is the tokenizer used to measure context blocks.
const contextEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoder() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(contextEncoding)
	})
	return enc, encErr
}

// CountTokens returns the token count of text under the context encoding.
// Falls back to a bytes/4 estimate if the encoding cannot be loaded, so an
// offline first run still produces a bounded block.
func CountTokens(text string) int {
	e, err := encoder()
	if err != nil {
		return len(text) / 4
	}
	return len(e.Encode(text, nil, nil))
}

// BuildContext joins query results into a source-attributed context block
// suitable for prompting an answering model, keeping whole results until
// the token budget would be exceeded. Results arrive distance-ordered, so
// the budget spends itself on the best matches first.
func BuildContext(results []Result, maxTokens int) string {
	if len(results) == 0 {
		return ""
	}
	if maxTokens <= 0 {
		maxTokens = DefaultContextTokens
	}

	var b strings.Builder
	used := 0
	for _, r := range results {
		block := fmt.Sprintf("Source: %s (chunk %d)\n%s",
			r.Metadata.Source, r.Metadata.ChunkIndex, strings.TrimSpace(r.Document))
		cost := CountTokens(block)

		// Always keep the first result even if it alone blows the budget;
		// an empty context helps nobody.
		if used > 0 && used+cost > maxTokens {
			break
		}
		if used > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(block)
		used += cost
	}
	return b.String()
}
