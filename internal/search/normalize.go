package search

import (
	"sort"

	"github.com/servibot/docindex/internal/store"
)

// normalizeHits converts whatever result shape a backend produced into the
// flat, distance-ordered view callers see, truncated to topK.
//
// Backends answer a single query with a flat []store.Result; some answer a
// batched query with one list per submitted embedding ([][]store.Result).
// Both shapes collapse to the same output here so no caller has to care.
func normalizeHits(hits any, topK int) []Result {
	var flat []store.Result

	switch h := hits.(type) {
	case nil:
		return []Result{}
	case []store.Result:
		flat = h
	case [][]store.Result:
		for _, list := range h {
			flat = append(flat, list...)
		}
	default:
		return []Result{}
	}

	results := make([]Result, 0, len(flat))
	for _, hit := range flat {
		results = append(results, Result{
			Document: hit.Text,
			Distance: hit.Distance,
			Metadata: hit.Metadata,
		})
	}

	// A merged nested shape may interleave distances; restore global order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
