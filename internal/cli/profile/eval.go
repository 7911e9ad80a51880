package profile

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/hookprof/internal/cli/helpers"
	errs "github.com/coral-mesh/hookprof/internal/errors"
	"github.com/coral-mesh/hookprof/internal/profiler"
)

// NewEvalCmd creates the eval command.
func NewEvalCmd(env *helpers.Env) *cobra.Command {
	var (
		flags helpers.ReportFlags
		hook  string
	)

	cmd := &cobra.Command{
		Use:   "eval <script>",
		Short: "Profile a script run against the loaded site",
		Long: `Profile a script run after the site has served its request.

A script is a list of statements separated by semicolons. Statements are SQL
run against the site database, or directives:

  @do <hook>          fire an action
  @filter <hook> <v>  apply a filter to <v>
  @get <url>          fetch a URL through the site's HTTP client
  @option <name>      read an option through the object cache

Without --hook the script is timed as a whole. A bare --hook reports every
hook the script fires; --hook=<hook> breaks that hook down per callback.`,
		Example: `  hookprof eval "SELECT * FROM posts; @option blogname"
  hookprof eval "@do init" --hook=init`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), env, &flags, hook, args[0], cmd.OutOrStdout())
		},
	}

	flags.AddFlags(cmd, false)
	addHookFlag(cmd, &hook)

	return cmd
}

// NewEvalFileCmd creates the eval-file command.
func NewEvalFileCmd(env *helpers.Env) *cobra.Command {
	var (
		flags helpers.ReportFlags
		hook  string
	)

	cmd := &cobra.Command{
		Use:   "eval-file <file>",
		Short: "Profile a script file run against the loaded site",
		Long: `Profile the statements of a script file, as the eval command does.

See 'hookprof eval --help' for the script syntax.`,
		Example: `  hookprof eval-file warmup.sql --fields=time,cache_ratio,request_count`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			//nolint:gosec // G304: The user names the file to run.
			script, err := os.ReadFile(args[0])
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("'%s' does not exist", args[0])
				}
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			return runEval(cmd.Context(), env, &flags, hook, string(script), cmd.OutOrStdout())
		},
	}

	flags.AddFlags(cmd, false)
	addHookFlag(cmd, &hook)

	return cmd
}

// addHookFlag adds --hook, whose bare form selects every hook.
func addHookFlag(cmd *cobra.Command, hook *string) {
	cmd.Flags().StringVar(hook, "hook", "", "Report hooks fired by the script, or the callbacks of the named hook")
	helpers.AllowBare(cmd.Flags(), "hook", profiler.AllFocus)
}

// evalScope maps --hook to a scope and the report's identity fields.
func evalScope(hook string) (profiler.Scope, []string) {
	switch hook {
	case "":
		return profiler.None(), nil
	case profiler.AllFocus:
		return profiler.AllHooks(), []string{profiler.FieldHook}
	default:
		return profiler.Hook(hook), []string{profiler.FieldCallback, profiler.FieldLocation}
	}
}

func runEval(ctx context.Context, env *helpers.Env, flags *helpers.ReportFlags, hook, script string, out io.Writer) (err error) {
	if err := flags.Resolve(env.Config); err != nil {
		return err
	}

	scope, base := evalScope(hook)
	sess, err := newSession(env, flags.URL, scope)
	if err != nil {
		return err
	}
	defer errs.CloseInto(&err, sess, "failed to close site")

	if err := sess.profiler.Run(ctx); err != nil {
		return err
	}

	loggers, err := sess.profiler.Measure(func() error {
		return sess.site.Eval(ctx, script)
	})
	if err != nil {
		return err
	}

	report := helpers.NewReport(append(base, profiler.UnitMetrics...), flags.Fields, false)
	report.Rows = loggerRows(loggers)
	return flags.Write(report, out)
}
