package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/ui"
	"github.com/servibot/docindex/pkg/engine"
)

// statusOptions holds CLI flags for status.
type statusOptions struct {
	jsonOutput bool
	follow     bool
	interval   time.Duration
	noColor    bool
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status [file_id]",
		Short: "Show engine status or one document's indexing progress",
		Long: `Without arguments, show engine health: document counts, storage
sizes, and embedder availability. With a file_id, show that document's
indexing record. With --follow, render a live-updating table of all
documents until interrupted.`,
		Example: `  docindex status
  docindex status 1f0e9c2a-77aa-4b02-9c70-1bdf1c2d9e51
  docindex status --follow`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID := ""
			if len(args) > 0 {
				fileID = args[0]
			}
			return runStatus(cmd, fileID, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "F", false, "Live-updating document table")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "Refresh interval for --follow")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runStatus(cmd *cobra.Command, fileID string, opts statusOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true, DisableTelemetry: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	noColor := opts.noColor || ui.DetectNoColor()
	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)

	if fileID != "" {
		rec, err := eng.Status(fileID)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return encodeJSON(cmd, rec)
		}
		return renderer.RenderDocument(rec)
	}

	if opts.follow {
		model := ui.NewFollowModel(eng.ListStatuses, opts.interval, noColor)
		program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
		_, err := program.Run()
		return err
	}

	info, err := eng.StatusInfo(ctx)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}
