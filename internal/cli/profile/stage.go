package profile

import (
	"context"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/hookprof/internal/cli/helpers"
	errs "github.com/coral-mesh/hookprof/internal/errors"
	"github.com/coral-mesh/hookprof/internal/profiler"
)

// NewStageCmd creates the stage command.
func NewStageCmd(env *helpers.Env) *cobra.Command {
	var (
		flags helpers.ReportFlags
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "stage [<stage>]",
		Short: "Profile each stage of the request",
		Long: `Profile the request in three stages: bootstrap, main_query and template.

Without a stage, each stage is reported as a whole. Naming a stage reports
its boundary hooks and the time between them. Use --all to report the
boundary hooks of every stage.`,
		Example: `  # Overview of the three stages
  hookprof stage

  # Hooks of the bootstrap stage, sorted by time
  hookprof stage bootstrap --orderby=time --order=DESC

  # Only rows with something worth looking at
  hookprof stage --all --spotlight --fields=hook,time,cache_ratio`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: profiler.StageNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			focus := ""
			switch {
			case all:
				focus = profiler.AllFocus
			case len(args) == 1:
				focus = args[0]
			}
			return runStage(cmd.Context(), env, &flags, focus, cmd.OutOrStdout())
		},
	}

	flags.AddFlags(cmd, true)
	cmd.Flags().BoolVar(&all, "all", false, "Report the boundary hooks of every stage")

	return cmd
}

func runStage(ctx context.Context, env *helpers.Env, flags *helpers.ReportFlags, focus string, out io.Writer) (err error) {
	if err := flags.Resolve(env.Config); err != nil {
		return err
	}

	sess, err := newSession(env, flags.URL, profiler.Stage(focus))
	if err != nil {
		return err
	}
	defer errs.CloseInto(&err, sess, "failed to close site")

	if err := sess.profiler.Run(ctx); err != nil {
		return err
	}

	base := []string{profiler.FieldStage}
	metrics := profiler.StageMetrics
	if focus != "" {
		base = []string{profiler.FieldHook, profiler.FieldCallbackCount}
		metrics = profiler.UnitMetrics
	}

	rows := loggerRows(sess.profiler.Loggers())
	if flags.Spotlight {
		rows = helpers.Spotlight(rows, metrics)
	}
	report := helpers.NewReport(slices.Concat(base, metrics), flags.Fields, true)
	report.Rows = rows
	return flags.Write(report, out)
}
