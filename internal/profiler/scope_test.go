package profiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_Validate(t *testing.T) {
	assert.NoError(t, Stage("").Validate())
	assert.NoError(t, Stage(AllFocus).Validate())
	assert.NoError(t, Stage(StageMainQuery).Validate())
	assert.NoError(t, Hook("anything").Validate())

	err := Stage("teardown").Validate()
	assert.True(t, errors.Is(err, ErrInvalidStage))
	assert.Contains(t, err.Error(), "bootstrap, main_query, template")
}

func TestScope_Tracks(t *testing.T) {
	boundary := []string{"init", "loaded"}

	assert.True(t, AllHooks().Tracks("anything", nil))
	assert.True(t, Stage(StageBootstrap).Tracks("init", boundary))
	assert.False(t, Stage(StageBootstrap).Tracks("the_content", boundary))
	assert.False(t, Stage("").Tracks("init", boundary), "overview tracks stages only")
	assert.False(t, Hook("init").Tracks("init", boundary))
	assert.False(t, None().Tracks("init", boundary))
}

func TestScope_Wraps(t *testing.T) {
	assert.True(t, Hook("init").Wraps("init"))
	assert.False(t, Hook("init").Wraps("loaded"))
	assert.True(t, Hook(AllFocus).Wraps("loaded"))
	assert.False(t, AllHooks().Wraps("init"))
	assert.False(t, Stage(AllFocus).Wraps("init"))
}

func TestHook_EmptyNameTracksEveryHook(t *testing.T) {
	assert.Equal(t, AllHooks(), Hook(""))
	assert.True(t, Hook("").HookScoped())
	assert.False(t, Stage("").HookScoped())
	assert.True(t, Stage("").Overview())
}

func TestStageHooks_Merged(t *testing.T) {
	merged := DefaultStageHooks().Merged()
	assert.Len(t, merged, 17)
	assert.Equal(t, "mu_plugins_loaded", merged[0])
	assert.Equal(t, "footer", merged[len(merged)-1])
}
