// Package cli wires the hookprof command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	clicfg "github.com/coral-mesh/hookprof/internal/cli/config"
	"github.com/coral-mesh/hookprof/internal/cli/helpers"
	"github.com/coral-mesh/hookprof/internal/cli/profile"
	"github.com/coral-mesh/hookprof/pkg/version"
)

// NewRootCmd creates the hookprof command tree.
func NewRootCmd() *cobra.Command {
	var (
		env        helpers.Env
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "hookprof",
		Short: "Find out where a request spends its time, hook by hook",
		Long: `hookprof serves one request of a hook-driven site and reports where the
time went: per stage, per hook, or per callback, with the database queries,
object cache lookups and outbound HTTP requests each of them caused.

Start with 'hookprof stage' for an overview, then drill down with
'hookprof stage <stage>' and 'hookprof hook <hook>'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.Load(configPath, logLevel, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOOKPROF_CONFIG or ~/.hookprof/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	for _, c := range profile.NewCommands(&env) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(clicfg.NewConfigCmd(&env))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
