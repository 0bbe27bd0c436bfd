package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/telemetry"
	"github.com/servibot/docindex/internal/ui"
	"github.com/servibot/docindex/pkg/engine"
)

// statsOptions holds CLI flags for stats.
type statsOptions struct {
	jsonOutput bool
}

// statsPayload is the JSON shape of the stats command.
type statsPayload struct {
	Status ui.StatusInfo                    `json:"status"`
	Query  *telemetry.QueryMetricsSnapshot  `json:"query,omitempty"`
	Ingest *telemetry.IngestMetricsSnapshot `json:"ingest,omitempty"`
}

func newStatsCmd() *cobra.Command {
	var opts statsOptions

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index and telemetry statistics",
		Long: `Show index statistics together with telemetry: ingest outcomes,
query volume, zero-result rate, and top query terms since the engine
started recording.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, opts statsOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	info, err := eng.StatusInfo(ctx)
	if err != nil {
		return err
	}

	payload := statsPayload{Status: info}
	if qm := eng.QueryMetrics(); qm != nil {
		payload.Query = qm.Snapshot()
	}
	if im := eng.IngestMetrics(); im != nil {
		payload.Ingest = im.Snapshot()
	}

	if opts.jsonOutput {
		return encodeJSON(cmd, payload)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Collection: %s (%s)\n", info.Collection, info.StoreBackend)
	fmt.Fprintf(w, "  Documents: %d\n", info.TotalDocuments)
	fmt.Fprintf(w, "  Chunks:    %d\n", info.TotalChunks)
	fmt.Fprintf(w, "  Storage:   %s\n", ui.FormatBytes(info.TotalSize))
	fmt.Fprintln(w)

	if payload.Ingest != nil {
		fmt.Fprintln(w, "Ingest:")
		fmt.Fprintf(w, "  Indexed: %d\n", payload.Ingest.FilesIndexed)
		fmt.Fprintf(w, "  Failed:  %d\n", payload.Ingest.FilesFailed)
		fmt.Fprintf(w, "  Retries: %d\n", payload.Ingest.Retries)
		fmt.Fprintf(w, "  Chunks:  %d\n", payload.Ingest.ChunksIndexed)
		fmt.Fprintln(w)
	}

	if payload.Query != nil {
		fmt.Fprintln(w, "Queries:")
		fmt.Fprintf(w, "  Total:       %d\n", payload.Query.TotalQueries)
		fmt.Fprintf(w, "  Zero-result: %d (%.1f%%)\n",
			payload.Query.ZeroResultCount, payload.Query.ZeroResultPercentage())
		if len(payload.Query.TopTerms) > 0 {
			fmt.Fprintln(w, "  Top terms:")
			for _, term := range payload.Query.TopTerms {
				fmt.Fprintf(w, "    %-20s %d\n", term.Term, term.Count)
			}
		}
	}

	return nil
}
