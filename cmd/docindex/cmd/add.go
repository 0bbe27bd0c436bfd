package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/output"
	"github.com/servibot/docindex/internal/status"
	"github.com/servibot/docindex/pkg/engine"
)

// addOptions holds CLI flags for add.
type addOptions struct {
	wait    bool
	timeout time.Duration
}

func newAddCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add <file> [file...]",
		Short: "Upload and index documents",
		Long: `Upload one or more documents and index them.

Each file is validated against the extension allowlist and size cap,
copied into the uploads directory under a fresh file_id, and indexed in
the background. With --wait the command polls until every document
reaches a terminal state (indexed or error).`,
		Example: `  # Index a PDF
  docindex add report.pdf

  # Index several files and wait for completion
  docindex add notes.md scan.png --wait`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Wait until indexing completes")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Maximum time to wait with --wait")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string, opts addOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := output.NewAuto(cmd.OutOrStdout())

	eng, err := openEngine(ctx, engine.Options{})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	var fileIDs []string
	for _, path := range args {
		doc, err := eng.SubmitUpload(ctx, path, "")
		if err != nil {
			out.Errorf("%s: %v", path, err)
			continue
		}
		out.Statusf("+", "%s accepted (file_id: %s)", doc.OriginalName, doc.FileID)
		fileIDs = append(fileIDs, doc.FileID)
	}

	if len(fileIDs) == 0 {
		return fmt.Errorf("no files accepted")
	}

	if !opts.wait {
		out.Detail("Indexing runs in the background; check progress with 'docindex status'.")
		return nil
	}

	deadline := time.Now().Add(opts.timeout)
	failed := 0
	for _, fileID := range fileIDs {
		rec, err := waitForTerminal(ctx, eng, fileID, deadline)
		if err != nil {
			return err
		}
		switch rec.Status {
		case status.StateIndexed:
			out.Successf("%s indexed (%d chunks)", rec.OriginalName, rec.IndexedCount)
		default:
			failed++
			out.Errorf("%s failed: %s", rec.OriginalName, rec.Message)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to index", failed, len(fileIDs))
	}
	return nil
}

// waitForTerminal polls until the record leaves the active states.
func waitForTerminal(ctx context.Context, eng *engine.Engine, fileID string, deadline time.Time) (status.Record, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		rec, err := eng.Status(fileID)
		if err != nil {
			return status.Record{}, err
		}
		switch rec.Status {
		case status.StateIndexed, status.StateError:
			return rec, nil
		}

		if time.Now().After(deadline) {
			return rec, fmt.Errorf("timed out waiting for %s (last status: %s)", fileID, rec.Status)
		}

		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-ticker.C:
		}
	}
}
