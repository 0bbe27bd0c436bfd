package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/embed"
	"github.com/servibot/docindex/internal/extract"
	"github.com/servibot/docindex/internal/output"
	"github.com/servibot/docindex/internal/preflight"
	"github.com/servibot/docindex/pkg/engine"
)

// doctorOptions holds CLI flags for doctor.
type doctorOptions struct {
	jsonOutput  bool
	consistency bool
	repair      bool
}

func newDoctorCmd() *cobra.Command {
	var opts doctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run system diagnostics.

Checks:
  - Disk space (100MB minimum)
  - Memory availability (1GB minimum)
  - Write permissions on the data directory
  - File descriptor limits (1024 minimum)
  - Embedder reachability (Ollama; static fallback always works)
  - OCR availability (tesseract, for image documents)

With --consistency the stored index is cross-checked against status
records and upload files; --repair removes orphaned index entries,
flags records with missing entries for reindex, and deletes stranded
uploads.`,
		Example: `  # Run diagnostics
  docindex doctor

  # Machine-readable output
  docindex doctor --json

  # Cross-check index, status records, and uploads
  docindex doctor --consistency --repair`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.consistency, "consistency", false, "Cross-check index entries, status records, and uploads")
	cmd.Flags().BoolVar(&opts.repair, "repair", false, "Repair inconsistencies found with --consistency")

	return cmd
}

func runDoctor(cmd *cobra.Command, opts doctorOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Disk and permission probes need the data directory to exist.
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// The embedder probe is advisory. An unreachable Ollama surfaces as
	// a warning from the checker, not a command failure.
	var embedder embed.Embedder
	if provider, perr := embed.ParseProvider(cfg.Embeddings.Provider); perr == nil {
		embedder, _ = embed.NewEmbedder(ctx, embed.FactoryOptions{
			Provider: provider,
			Ollama: embed.OllamaConfig{
				Host:          cfg.Embeddings.OllamaHost,
				Model:         cfg.Embeddings.Model,
				Dimensions:    cfg.Embeddings.Dimensions,
				Timeout:       cfg.EmbedTimeoutDuration(),
				WarmupTimeout: cfg.WarmupTimeoutDuration(),
			},
			CacheDisabled: true,
		})
	}
	if embedder != nil {
		defer embedder.Close()
	}

	extractor := extract.New(extract.Config{
		OCRBinary:    cfg.Ingest.OCRBinary,
		OCRLanguages: cfg.Ingest.OCRLanguages,
		Timeout:      cfg.ExtractTimeoutDuration(),
	})

	checkerOut := io.Writer(cmd.OutOrStdout())
	if opts.jsonOutput {
		checkerOut = io.Discard
	}
	checker := preflight.New(preflight.WithOutput(checkerOut))

	results := checker.RunAll(ctx, cfg.Storage.DataDir, embedder, extractor)

	if opts.jsonOutput {
		if err := encodeJSON(cmd, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return fmt.Errorf("system check failed")
	}

	if opts.consistency {
		return runConsistency(cmd, opts.repair)
	}
	return nil
}

func runConsistency(cmd *cobra.Command, repair bool) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := output.NewAuto(cmd.OutOrStdout())

	eng, err := openEngine(ctx, engine.Options{DisableRetryWorker: true, DisableTelemetry: true})
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	report, err := eng.CheckConsistency(ctx, repair)
	if err != nil {
		return err
	}

	if report.Clean() {
		out.Success("Index, status records, and uploads are consistent.")
		return nil
	}

	if len(report.OrphanFileIDs) > 0 {
		out.Warningf("%d document(s) have index entries but no status record: %v",
			len(report.OrphanFileIDs), report.OrphanFileIDs)
	}
	if len(report.MissingFileIDs) > 0 {
		out.Warningf("%d indexed document(s) have no index entries: %v",
			len(report.MissingFileIDs), report.MissingFileIDs)
	}
	if len(report.StrandedUploads) > 0 {
		out.Warningf("%d upload file(s) have no status record: %v",
			len(report.StrandedUploads), report.StrandedUploads)
	}

	if repair {
		out.Successf("Repaired %d inconsistenc%s", report.Repaired, plural(report.Repaired, "y", "ies"))
		return nil
	}

	out.Detail("Run 'docindex doctor --consistency --repair' to fix.")
	return fmt.Errorf("consistency check found problems")
}
