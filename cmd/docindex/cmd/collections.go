package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/pkg/engine"
)

// collectionsOptions holds CLI flags for collections.
type collectionsOptions struct {
	jsonOutput bool
}

func newCollectionsCmd() *cobra.Command {
	var opts collectionsOptions

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Inspect the vector collection",
		Long: `Show the vector collection: backend, entry count, and a handful of
sample entries with document previews. Useful for verifying what
actually got indexed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollections(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runCollections(cmd *cobra.Command, opts collectionsOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true, DisableTelemetry: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	infos, err := eng.Collections(ctx)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return encodeJSON(cmd, infos)
	}

	w := cmd.OutOrStdout()
	for _, info := range infos {
		fmt.Fprintf(w, "%s (%s): %d entries\n", info.Name, info.Backend, info.Count)
		for _, sample := range info.Samples {
			fmt.Fprintf(w, "  %s  [%s chunk %d]\n", sample.ID, sample.Metadata.Source, sample.Metadata.ChunkIndex)
			fmt.Fprintf(w, "    %s\n", sample.Preview)
		}
	}
	return nil
}
