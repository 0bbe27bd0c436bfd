package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/servibot/docindex/configs"
	"github.com/servibot/docindex/internal/output"
)

// projectConfigName is the deployment config file written by init.
const projectConfigName = "docindex.yaml"

// initOptions holds CLI flags for init.
type initOptions struct {
	force bool
}

func newInitCmd() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a docindex.yaml config file",
		Long: `Write the default deployment configuration to docindex.yaml in the
working directory. The file documents every setting; edit it and rerun
your command. Machine-level settings (Ollama host, log level) belong
in the user config instead: see 'docindex config init'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite an existing docindex.yaml")

	return cmd
}

func runInit(cmd *cobra.Command, opts initOptions) error {
	out := output.NewAuto(cmd.OutOrStdout())

	if _, err := os.Stat(projectConfigName); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", projectConfigName)
	}

	if err := os.WriteFile(projectConfigName, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", projectConfigName, err)
	}

	out.Successf("Created %s", projectConfigName)
	out.Detail("Edit it to set the data directory, chunking, and retry policy.")
	return nil
}
