package profile

import (
	"context"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/hookprof/internal/cli/helpers"
	errs "github.com/coral-mesh/hookprof/internal/errors"
	"github.com/coral-mesh/hookprof/internal/profiler"
	"github.com/coral-mesh/hookprof/internal/site"
)

// NewHookCmd creates the hook command.
func NewHookCmd(env *helpers.Env) *cobra.Command {
	var (
		flags helpers.ReportFlags
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "hook [<hook>]",
		Short: "Profile hooks, or the callbacks of one hook",
		Long: `Profile every hook fired during the request.

Naming a hook breaks it down per callback, with each callback's source
location. Use --all to break down every hook. The shutdown hook is fired
after the request so that its callbacks can be profiled too.`,
		Example: `  # Every hook of the request
  hookprof hook --spotlight

  # Callbacks of the_content
  hookprof hook the_content --fields=callback,location,time

  # Callbacks of every hook, slowest first
  hookprof hook --all --orderby=time --order=DESC`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			focus := ""
			switch {
			case all:
				focus = profiler.AllFocus
			case len(args) == 1:
				focus = args[0]
			}
			return runHook(cmd.Context(), env, &flags, focus, cmd.OutOrStdout())
		},
	}

	flags.AddFlags(cmd, true)
	cmd.Flags().BoolVar(&all, "all", false, "Break down the callbacks of every hook")

	return cmd
}

func runHook(ctx context.Context, env *helpers.Env, flags *helpers.ReportFlags, focus string, out io.Writer) (err error) {
	if err := flags.Resolve(env.Config); err != nil {
		return err
	}

	sess, err := newSession(env, flags.URL, profiler.Hook(focus))
	if err != nil {
		return err
	}
	defer errs.CloseInto(&err, sess, "failed to close site")

	if err := sess.profiler.Run(ctx); err != nil {
		return err
	}

	loggers := sess.profiler.Loggers()
	if focus == site.EventShutdown {
		// Shutdown fires once the request is over, so fire it here and
		// keep it from firing again.
		loggers, err = sess.profiler.Measure(func() error {
			sess.site.Shutdown(ctx)
			return nil
		})
		if err != nil {
			return err
		}
		sess.site.Hooks().RemoveAll(site.EventShutdown)
	}

	base := []string{profiler.FieldHook, profiler.FieldCallbackCount}
	if focus != "" {
		base = []string{profiler.FieldCallback, profiler.FieldLocation}
	}
	metrics := profiler.UnitMetrics

	rows := loggerRows(loggers)
	if flags.Spotlight {
		rows = helpers.Spotlight(rows, metrics)
	}
	report := helpers.NewReport(slices.Concat(base, metrics), flags.Fields, true)
	report.Rows = rows
	return flags.Write(report, out)
}
