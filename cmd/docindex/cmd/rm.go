package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/output"
	"github.com/servibot/docindex/pkg/engine"
)

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <file_id> [file_id...]",
		Short: "Remove documents",
		Long: `Remove documents: their index entries, status records, and stored
upload files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(cmd, args)
		},
	}

	return cmd
}

func runRm(cmd *cobra.Command, fileIDs []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := output.NewAuto(cmd.OutOrStdout())

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true, DisableTelemetry: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	failed := 0
	for _, fileID := range fileIDs {
		deleted, err := eng.Delete(ctx, fileID)
		if err != nil {
			failed++
			out.Errorf("%s: %v", fileID, err)
			continue
		}
		out.Successf("%s removed (%d index entries)", fileID, deleted)
	}

	if failed > 0 {
		return fmt.Errorf("failed to remove %d of %d documents", failed, len(fileIDs))
	}
	return nil
}
