package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/output"
	"github.com/servibot/docindex/pkg/engine"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	watch bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <directory>",
		Short: "Index every supported document in a directory",
		Long: `Walk a directory and index every file with an allowed extension.

Unsupported files are skipped. With --watch the command keeps running
and indexes files as they are dropped into the directory, debounced so
partially written files settle first.`,
		Example: `  # One-shot batch index
  docindex index ./inbox

  # Keep watching for new files (Ctrl-C to stop)
  docindex index ./inbox --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "W", false, "Watch the directory and index new files as they appear")

	return cmd
}

func runIndex(cmd *cobra.Command, dir string, opts indexOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := output.NewAuto(cmd.OutOrStdout())

	eng, err := openEngine(ctx, engine.Options{})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	submitted, err := eng.IndexDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", dir, err)
	}
	out.Successf("Submitted %d file(s) from %s", submitted, dir)

	if !opts.watch {
		out.Detail("Indexing runs in the background; check progress with 'docindex status'.")
		return nil
	}

	out.Statusf("*", "Watching %s for new files (Ctrl-C to stop)", dir)
	if err := eng.Watch(ctx, dir); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watcher stopped: %w", err)
	}
	return nil
}
