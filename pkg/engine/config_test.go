package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/pkg/engine"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	c := engine.NewConfig()
	assert.Equal(t, engine.DefaultCooldown, c.Cooldown.Duration)
	assert.Equal(t, engine.DefaultSelectResetDelay, c.SelectResetDelay.Duration)
	assert.Equal(t, engine.DefaultRetryDelay, c.RetryDelay.Duration)
	assert.Equal(t, "All", c.DefaultCandidate)
	assert.Zero(t, *c.MinMatchScore)
	require.NoError(t, c.Validate())

	bad := 1.5
	c.MinMatchScore = &bad
	require.Error(t, c.Validate())
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	c := &engine.Config{Cooldown: v1beta1.NewDuration(5 * time.Second), DefaultCandidate: "Everything"}
	c.EnsureDefaults()

	f := newFixture(t, global("Music"), []string{"Everything", "Music"}, c.Options()...)

	f.ctrl.Apply(ctx)
	f.src.Mark("Music", false)
	f.clock.Advance(3 * time.Second)
	f.ctrl.Apply(ctx)

	assert.Equal(t, []string{"Music"}, f.src.Clicks())
}
