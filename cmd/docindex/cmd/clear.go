package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/output"
	"github.com/servibot/docindex/pkg/engine"
)

// clearOptions holds CLI flags for clear.
type clearOptions struct {
	force bool
}

func newClearCmd() *cobra.Command {
	var opts clearOptions

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove ALL documents",
		Long: `Remove every document: uploads, index entries, and status records.

This is irreversible. Without --force the command asks for
confirmation on the terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClear(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}

func runClear(cmd *cobra.Command, opts clearOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := output.NewAuto(cmd.OutOrStdout())

	if !opts.force {
		out.Warning("This removes every document, index entry, and status record.")
		fmt.Fprint(cmd.OutOrStdout(), "Type 'yes' to continue: ")
		var answer string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil || strings.ToLower(answer) != "yes" {
			out.Detail("Aborted.")
			return nil
		}
	}

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true, DisableTelemetry: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	result, err := eng.ClearAll(ctx)
	if err != nil {
		return err
	}

	out.Successf("Cleared %d file(s) and %d index entr%s",
		result.FilesDeleted, result.VectorsCleared, plural(result.VectorsCleared, "y", "ies"))
	return nil
}

func plural(n int, singular, other string) string {
	if n == 1 {
		return singular
	}
	return other
}
