package cmd

import (
	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/output"
	"github.com/servibot/docindex/pkg/engine"
)

func newReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <file_id> [file_id...]",
		Short: "Re-run indexing for documents",
		Long: `Re-run indexing for documents from their stored upload files.

Existing index entries are replaced, not duplicated, and the retry
budget resets. Use this after fixing the cause of a permanent failure,
or after changing the embedding model.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd, args)
		},
	}

	return cmd
}

func runReindex(cmd *cobra.Command, fileIDs []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := output.NewAuto(cmd.OutOrStdout())

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	for _, fileID := range fileIDs {
		submitted, err := eng.Reindex(ctx, fileID)
		if err != nil {
			out.Errorf("%s: %v", fileID, err)
			continue
		}
		if submitted {
			out.Statusf("+", "%s resubmitted", fileID)
		} else {
			out.Detailf("%s already indexing", fileID)
		}
	}

	// closeEngine drains the worker pool, so submitted runs finish
	// before the command exits.
	return nil
}
