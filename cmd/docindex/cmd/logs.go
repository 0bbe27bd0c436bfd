package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/logging"
	"github.com/servibot/docindex/internal/ui"
)

// logsOptions holds CLI flags for logs.
type logsOptions struct {
	file    string
	lines   int
	follow  bool
	level   string
	pattern string
	noColor bool
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View engine logs",
		Long: `View the JSON engine log with level and pattern filters.

The log lives at ~/.docindex/logs/docindex.log by default and rotates
by size. With --follow the command tails new entries until
interrupted.`,
		Example: `  # Last 50 entries
  docindex logs

  # Only warnings and errors, live
  docindex logs --level warn --follow

  # Entries mentioning one file_id
  docindex logs --grep 1f0e9c2a`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Log file path (default: ~/.docindex/logs/docindex.log)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "F", false, "Tail new entries until interrupted")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.pattern, "grep", "", "Only entries matching this regexp")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.pattern != "" {
		pattern, err = regexp.Compile(opts.pattern)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor || ui.DetectNoColor(),
	}, cmd.OutOrStdout())

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ch := make(chan logging.LogEntry, 64)
	go func() {
		for entry := range ch {
			fmt.Fprintln(cmd.OutOrStdout(), viewer.FormatEntry(entry))
		}
	}()
	return viewer.Follow(ctx, path, ch)
}
