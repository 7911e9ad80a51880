package profile

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/hookprof/internal/cli/helpers"
	errs "github.com/coral-mesh/hookprof/internal/errors"
	"github.com/coral-mesh/hookprof/internal/profiler"
)

// NewQueriesCmd creates the queries command.
func NewQueriesCmd(env *helpers.Env) *cobra.Command {
	var (
		flags  helpers.ReportFlags
		filter profiler.QueryFilter
	)

	cmd := &cobra.Command{
		Use:   "queries",
		Short: "List the database queries of the request",
		Long: `List every database query the request ran, with its time and caller.

--hook keeps the queries run while that hook fired and names the callback
that ran each one. --callback keeps the queries of callbacks whose name
contains the given text, ignoring case.`,
		Example: `  hookprof queries --orderby=time --order=DESC
  hookprof queries --hook=the_posts
  hookprof queries --callback=related`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueries(cmd.Context(), env, &flags, filter, cmd.OutOrStdout())
		},
	}

	flags.AddFlags(cmd, false)
	cmd.Flags().StringVar(&filter.Hook, "hook", "", "Only queries run while this hook fired")
	cmd.Flags().StringVar(&filter.Callback, "callback", "", "Only queries run by matching callbacks")

	return cmd
}

// queryFields returns the columns for a filter.
func queryFields(filter profiler.QueryFilter) []string {
	switch {
	case filter.Hook != "" && filter.Callback != "":
		return []string{"query", "time", "hook", "callback", "caller"}
	case filter.Hook != "":
		return []string{"query", "time", "callback", "caller"}
	case filter.Callback != "":
		return []string{"query", "time", "hook", "caller"}
	default:
		return []string{"query", "time", "caller"}
	}
}

func runQueries(ctx context.Context, env *helpers.Env, flags *helpers.ReportFlags, filter profiler.QueryFilter, out io.Writer) (err error) {
	if err := flags.Resolve(env.Config); err != nil {
		return err
	}

	sess, err := newSession(env, flags.URL, filter.ScopeFor())
	if err != nil {
		return err
	}
	defer errs.CloseInto(&err, sess, "failed to close site")

	if err := sess.profiler.Run(ctx); err != nil {
		return err
	}

	records := sess.profiler.Queries(filter)
	rows := make([]helpers.Row, 0, len(records))
	for _, q := range records {
		rows = append(rows, q.Record())
	}

	report := helpers.NewReport(queryFields(filter), flags.Fields, true)
	report.Rows = rows
	return flags.Write(report, out)
}
