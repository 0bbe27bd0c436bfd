package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/servibot/docindex/configs"
	"github.com/servibot/docindex/internal/config"
	"github.com/servibot/docindex/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		Long: `Show the effective configuration after merging defaults, the user
config, the deployment config, and environment overrides.

Subcommands:
  show    Print the effective configuration (default)
  init    Create the user config at ` + "`~/.config/docindex/config.yaml`" + `
  path    Print the config file locations`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, false)
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			return runConfigShow(cmd, jsonOutput)
		},
	}
	show.Flags().Bool("json", false, "Output as JSON")
	cmd.AddCommand(show)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd)
		},
	}
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing user config")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print config file locations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigPath(cmd)
		},
	})

	return cmd
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if jsonOutput {
		return encodeJSON(cmd, cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command) error {
	out := output.NewAuto(cmd.OutOrStdout())
	force, _ := cmd.Flags().GetBool("force")

	path := config.GetUserConfigPath()
	if config.UserConfigExists() && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	out.Successf("Created %s", path)
	out.Detail("Machine-level settings (Ollama host, log level) live here.")
	return nil
}

func runConfigPath(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	userPath := config.GetUserConfigPath()
	marker := " (missing)"
	if config.UserConfigExists() {
		marker = ""
	}
	fmt.Fprintf(w, "user:       %s%s\n", userPath, marker)

	deployPath := projectConfigName
	if configPath != "" {
		deployPath = configPath
	}
	marker = " (missing)"
	if _, err := os.Stat(deployPath); err == nil {
		marker = ""
	}
	fmt.Fprintf(w, "deployment: %s%s\n", deployPath, marker)

	return nil
}
