package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/logging"
	"github.com/servibot/docindex/internal/mcp"
	"github.com/servibot/docindex/internal/preflight"
	"github.com/servibot/docindex/pkg/engine"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport string
	skipCheck bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the document indexing engine as an MCP server.

The stdio transport speaks JSON-RPC on stdout, so all logging goes to
the log file only. Use 'docindex status' or 'docindex logs' from
another terminal for diagnostics.

Exposed tools: index_document, document_status, list_documents,
reindex_document, delete_document, clear_documents, search_documents.
Resources: docindex://collections, docindex://metrics.`,
		Example: `  # Serve over stdio (for MCP clients)
  docindex serve

  # Skip the pre-flight system check
  docindex serve --skip-check`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport to serve on (stdio)")
	cmd.Flags().BoolVar(&opts.skipCheck, "skip-check", false, "Skip pre-flight system checks")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	// stdout belongs to JSON-RPC from here on; logs go to file only.
	logCleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCleanup()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	eng, err := openEngine(ctx, engine.Options{})
	if err != nil {
		slog.Error("engine startup failed", slog.String("error", err.Error()))
		return err
	}
	defer closeEngine(eng)

	if !opts.skipCheck && preflight.NeedsCheck(eng.Config().Storage.DataDir) {
		checker := preflight.New(preflight.WithOutput(io.Discard))
		results := checker.RunAll(ctx, eng.Config().Storage.DataDir, eng.Embedder(), eng.Extractor())
		if checker.HasCriticalFailures(results) {
			slog.Error("System check failed - run 'docindex doctor' for diagnostics")
			return fmt.Errorf("system check failed")
		}
		if err := preflight.MarkPassed(eng.Config().Storage.DataDir); err != nil {
			slog.Debug("Failed to mark preflight as passed", slog.String("error", err.Error()))
		}
	}

	server, err := mcp.NewServer(eng)
	if err != nil {
		return err
	}

	return server.Serve(ctx, opts.transport)
}
