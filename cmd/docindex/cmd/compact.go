package cmd

import (
	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/output"
	"github.com/servibot/docindex/pkg/engine"
)

func newCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact the vector store",
		Long: `Rebuild the vector index without tombstoned entries.

Deleting documents marks their vectors as removed but leaves them in
the on-disk graph until compaction. Run this after large deletes to
reclaim space and keep query latency flat.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompact(cmd)
		},
	}

	return cmd
}

func runCompact(cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := output.NewAuto(cmd.OutOrStdout())

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true, DisableTelemetry: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	removed, err := eng.Compact(ctx)
	if err != nil {
		return err
	}

	out.Successf("Compaction removed %d tombstoned entr%s", removed, plural(removed, "y", "ies"))
	return nil
}
