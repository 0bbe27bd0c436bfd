package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/mcp"
	"github.com/servibot/docindex/pkg/engine"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK        int
	fileID      string
	format      string // "text", "json"
	withContext bool
	maxTokens   int
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents",
		Long: `Semantic search over every indexed document.

The query is embedded and matched against stored chunks; results come
back ordered by vector distance with their source file attribution.
With --context the matches are assembled into a single token-budgeted
context block ready to paste into a prompt.`,
		Example: `  docindex search "termination clause"
  docindex search "quarterly revenue" -n 3 --format json
  docindex search "payment terms" --file 1f0e9c2a --context`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&opts.fileID, "file", "", "Restrict results to one document by file_id")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.withContext, "context", false, "Print an assembled context block instead of a result list")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "Token budget for --context (default from config)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	slog.Info("search_started", slog.String("query", query), slog.Int("top_k", opts.topK))

	eng, err := openEngine(ctx, engine.Options{})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	if opts.withContext {
		block, err := eng.ContextForQuery(ctx, query, opts.topK, opts.maxTokens)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), block)
		return err
	}

	results, err := eng.Search(ctx, query, opts.topK, opts.fileID)
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "text":
		_, err = fmt.Fprint(cmd.OutOrStdout(), mcp.FormatSearchResults(query, results))
		return err
	default:
		return fmt.Errorf("unknown format: %s (supported: text, json)", opts.format)
	}
}
