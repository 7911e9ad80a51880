package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hookprof/internal/cli/helpers"
	"github.com/coral-mesh/hookprof/internal/profiler"
	"github.com/coral-mesh/hookprof/internal/site"
)

func newTestEnv(t *testing.T) *helpers.Env {
	t.Helper()
	t.Setenv("HOOKPROF_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))

	env := &helpers.Env{}
	require.NoError(t, env.Load("", "", io.Discard))
	return env
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeRows(t *testing.T, out string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	return rows
}

func TestStageCmd_Table(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewStageCmd(env))
	require.NoError(t, err)

	for _, stage := range profiler.StageNames {
		assert.Contains(t, out, stage)
	}
	assert.Contains(t, out, "total (3)")
	assert.Contains(t, out, "cache_ratio")
}

func TestStageCmd_JSON(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewStageCmd(env), "--format=json", "--fields=stage,hook_count,query_count")
	require.NoError(t, err)

	rows := decodeRows(t, out)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, profiler.StageNames[i], row["stage"])
		assert.Len(t, row, 3)
		assert.Positive(t, row["hook_count"])
	}
}

func TestStageCmd_Focus(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewStageCmd(env), profiler.StageBootstrap, "--format=json")
	require.NoError(t, err)

	var hooks []string
	for _, row := range decodeRows(t, out) {
		hooks = append(hooks, row["hook"].(string))
	}
	assert.Contains(t, hooks, site.EventInit)
	assert.Contains(t, hooks, site.EventInit+":before")
	assert.NotContains(t, hooks, site.EventTheContent)
}

func TestStageCmd_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, NewStageCmd(env), "checkout")
	assert.ErrorIs(t, err, profiler.ErrInvalidStage)

	_, err = execute(t, NewStageCmd(env), "--fields=stage,nonsense")
	assert.EqualError(t, err, "invalid field: nonsense")

	_, err = execute(t, NewStageCmd(env), "--format=xml")
	assert.Error(t, err)
}

func TestStageCmd_SaveQueriesDisabled(t *testing.T) {
	env := newTestEnv(t)
	off := false
	env.Config.Site.SaveQueries = &off

	_, err := execute(t, NewStageCmd(env))
	assert.ErrorIs(t, err, profiler.ErrSaveQueriesDisabled)
}

func TestNewSession_InvalidScope(t *testing.T) {
	env := newTestEnv(t)

	sess, err := newSession(env, "", profiler.Stage("checkout"))
	assert.ErrorIs(t, err, profiler.ErrInvalidStage)
	assert.Nil(t, sess)
}

func TestHookCmd_Callbacks(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewHookCmd(env), site.EventTheContent, "--format=json", "--orderby=callback")
	require.NoError(t, err)

	rows := decodeRows(t, out)
	var callbacks []string
	for _, row := range rows {
		callbacks = append(callbacks, row["callback"].(string))
		assert.Contains(t, row, "location")
	}
	assert.Contains(t, callbacks, "site.autop()")
	assert.True(t, slices.IsSorted(callbacks), callbacks)
}

func TestHookCmd_Shutdown(t *testing.T) {
	env := newTestEnv(t)
	env.Config.Site.Plugins = []string{site.PluginStats}

	out, err := execute(t, NewHookCmd(env), site.EventShutdown, "--format=json")
	require.NoError(t, err)

	rows := decodeRows(t, out)
	require.Len(t, rows, 1, "only the stats plugin listens on shutdown")
	assert.Equal(t, "closure", rows[0]["callback"])
	assert.EqualValues(t, 1, rows[0]["query_count"])
}

func TestHookCmd_Spotlight(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewHookCmd(env), "--format=json")
	require.NoError(t, err)
	all := decodeRows(t, out)

	out, err = execute(t, NewHookCmd(env), "--format=json", "--spotlight")
	require.NoError(t, err)
	lit := decodeRows(t, out)

	assert.Less(t, len(lit), len(all))
}

func TestEvalCmd(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewEvalCmd(env), "SELECT * FROM posts; @option blogname", "--format=json")
	require.NoError(t, err)

	rows := decodeRows(t, out)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["query_count"])
	assert.NotContains(t, rows[0], "hook")
}

func TestEvalCmd_HookFlag(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewEvalCmd(env), "@do custom_event; @do custom_event", "--hook", "--format=json")
	require.NoError(t, err)

	var hooks []string
	for _, row := range decodeRows(t, out) {
		hooks = append(hooks, row["hook"].(string))
		assert.NotContains(t, row, "callback")
	}
	assert.Contains(t, hooks, "custom_event")
	assert.Contains(t, hooks, site.EventInit, "hooks of the request are reported too")
}

func TestEvalFileCmd(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "script.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1;\nSELECT 2;\n"), 0o600))

	out, err := execute(t, NewEvalFileCmd(env), path, "--format=json")
	require.NoError(t, err)
	rows := decodeRows(t, out)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0]["query_count"])

	missing := filepath.Join(t.TempDir(), "missing.sql")
	_, err = execute(t, NewEvalFileCmd(env), missing)
	assert.EqualError(t, err, "'"+missing+"' does not exist")
}

func TestQueriesCmd(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewQueriesCmd(env), "--format=json")
	require.NoError(t, err)
	all := decodeRows(t, out)
	require.NotEmpty(t, all)
	for _, row := range all {
		assert.Len(t, row, 3)
		assert.Contains(t, row, "query")
	}

	out, err = execute(t, NewQueriesCmd(env), "--format=json", "--hook="+site.EventThePosts)
	require.NoError(t, err)
	posts := decodeRows(t, out)
	require.NotEmpty(t, posts)
	assert.Less(t, len(posts), len(all))
	for _, row := range posts {
		assert.Contains(t, row, "callback")
	}
}

func TestQueryFields(t *testing.T) {
	assert.Equal(t, []string{"query", "time", "caller"}, queryFields(profiler.QueryFilter{}))
	assert.Equal(t, []string{"query", "time", "callback", "caller"}, queryFields(profiler.QueryFilter{Hook: "init"}))
	assert.Equal(t, []string{"query", "time", "hook", "caller"}, queryFields(profiler.QueryFilter{Callback: "seo"}))
}
