package profile

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/hookprof/internal/cli/helpers"
)

// NewCommands creates the profiling commands. They read env once the root
// command has loaded it.
func NewCommands(env *helpers.Env) []*cobra.Command {
	return []*cobra.Command{
		NewStageCmd(env),
		NewHookCmd(env),
		NewEvalCmd(env),
		NewEvalFileCmd(env),
		NewQueriesCmd(env),
	}
}
