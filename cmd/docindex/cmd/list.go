package cmd

import (
	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/ui"
	"github.com/servibot/docindex/pkg/engine"
)

// listOptions holds CLI flags for list.
type listOptions struct {
	jsonOutput bool
	noColor    bool
}

func newListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all documents and their indexing status",
		Example: `  docindex list
  docindex list --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runList(cmd *cobra.Command, opts listOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true, DisableTelemetry: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	records := eng.ListStatuses()

	if opts.jsonOutput {
		return encodeJSON(cmd, records)
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), opts.noColor || ui.DetectNoColor())
	return renderer.RenderDocuments(records)
}
