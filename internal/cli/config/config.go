// Package config implements the 'hookprof config' command family.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/hookprof/internal/cli/helpers"
	"github.com/coral-mesh/hookprof/internal/config"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd(env *helpers.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage hookprof configuration",
		Long: `Manage hookprof configuration.

Configuration Priority:
  1. Command-line flags (highest)
  2. HOOKPROF_* environment variables
  3. Project config (.hookprof/config.yaml in current directory)
  4. User config ($HOOKPROF_CONFIG or ~/.hookprof/config.yaml)
  5. Built-in defaults

Environment Variables:
  HOOKPROF_CONFIG        Config file to use instead of ~/.hookprof/config.yaml
  HOOKPROF_URL           Request URL to profile
  HOOKPROF_DATABASE      DuckDB database of the site (default: in-memory)
  HOOKPROF_SAVE_QUERIES  Query logging; false makes profiling refuse to run
  HOOKPROF_REMOTE_URL    URL the remote plugin fetches on every request
  HOOKPROF_LOG_LEVEL     Log level (trace, debug, info, warn, error)`,
	}

	cmd.AddCommand(newViewCmd(env))
	cmd.AddCommand(newInitCmd(env))
	cmd.AddCommand(newValidateCmd(env))
	cmd.AddCommand(newPathCmd(env))

	return cmd
}

func newViewCmd(env *helpers.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Long: `Display the configuration after every source has been merged and
validated, as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# User config: %s (%s)\n", env.Loader.Path(), presence(env.Loader.Path()))
			if p := env.Loader.ProjectConfigPath(); p != "" {
				fmt.Fprintf(out, "# Project config: %s (%s)\n", p, presence(p))
			}
			if vars := env.Loader.EnvOverrides(); len(vars) > 0 {
				fmt.Fprintf(out, "# Environment overrides: %s\n", strings.Join(vars, ", "))
			}

			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(env.Config); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

func newInitCmd(env *helpers.Env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := env.Loader.Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := env.Loader.Save(config.DefaultConfig()); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func newValidateCmd(env *helpers.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a config file",
		Long: `Check that a config file parses and holds valid values. Without a file,
the effective configuration is checked, which already happened when the
command started.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := env.Loader.Path()
			if len(args) == 1 {
				path = args[0]
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("'%s' does not exist", path)
				}
				if _, err := config.NewLoaderWithPath(path).Load(); err != nil {
					return err
				}
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}
}

func newPathCmd(env *helpers.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path of the user config file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(env.Loader.Path())
		},
	}
}

func presence(path string) string {
	if _, err := os.Stat(path); err != nil {
		return "not present"
	}
	return "present"
}
