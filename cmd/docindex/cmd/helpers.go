package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/internal/config"
	"github.com/servibot/docindex/pkg/engine"
)

// engineCloseTimeout bounds the ingestion drain on shutdown.
const engineCloseTimeout = 30 * time.Second

// loadConfig resolves configuration for a command run: defaults, user
// config, deployment config (or --config), env overrides, then the
// --data-dir flag on top.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if embedderProvider != "" {
		cfg.Embeddings.Provider = embedderProvider
	}

	return cfg, nil
}

// openEngine loads config and constructs a full engine.
func openEngine(ctx context.Context, opts engine.Options) (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(ctx, cfg, opts)
}

// closeEngine shuts the engine down with a bounded drain.
func closeEngine(eng *engine.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), engineCloseTimeout)
	defer cancel()
	_ = eng.Close(ctx)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// encodeJSON writes v to the command's stdout as indented JSON.
func encodeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
