package preference_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/rule"
)

// monday is 2024-01-01 08:30 UTC, a Monday.
var monday = time.Date(2024, time.January, 1, 8, 30, 0, 0, time.UTC)

func TestMemory_Resolution(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	clock := clockwork.NewFakeClockAt(monday)

	p := preferences.New()
	p.Global = "Music"
	p.TimeRules = rule.Set{rule.MustNew("work", "Programming", []int{1, 2, 3, 4, 5}, 9, 17)}

	m := preference.NewMemory(preference.WithClock(clock), preference.WithPreferences(p))

	global, err := m.GlobalPreference(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Music", global)

	active, err := m.ActiveTimePreference(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	clock.Advance(time.Hour)

	active, err = m.ActiveTimePreference(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "Programming", active.Preference)

	// The store holds its own copy.
	p.Global = "News"
	global, err = m.GlobalPreference(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Music", global)
}

func TestMemory_Fallback(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := preference.NewMemory()

	assert.True(t, m.TemporaryFallback().IsZero())

	f := preference.Fallback{Value: "Jazz", Source: preference.SourceGlobal}
	m.SetTemporaryFallback(ctx, f)
	assert.Equal(t, f, m.TemporaryFallback())
	assert.False(t, m.TemporaryFallback().IsZero())

	m.SetTemporaryFallback(ctx, preference.Fallback{})
	assert.True(t, m.TemporaryFallback().IsZero())
}

func TestMemory_TimeRuleCRUD(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := preference.NewMemory()

	require.NoError(t, m.AddTimeRule(ctx, rule.MustNew("a", "Music", []int{1}, 9, 12)))

	err := m.AddTimeRule(ctx, rule.MustNew("b", "News", []int{1}, 11, 14))
	require.ErrorIs(t, err, rule.ErrOverlap)
	assert.Len(t, m.TimeRules(), 1)

	require.NoError(t, m.AddTimeRule(ctx, rule.MustNew("b", "News", []int{1}, 12, 14)))
	require.NoError(t, m.UpdateTimeRule(ctx, rule.MustNew("a", "Jazz", []int{1}, 8, 12)))

	r, err := m.TimeRules().Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Jazz", r.Preference)

	err = m.UpdateTimeRule(ctx, rule.MustNew("c", "Jazz", []int{2}, 8, 12))
	require.ErrorIs(t, err, rule.ErrNotFound)

	require.NoError(t, m.DeleteTimeRule(ctx, "a"))
	require.ErrorIs(t, m.DeleteTimeRule(ctx, "a"), rule.ErrNotFound)
	assert.Len(t, m.TimeRules(), 1)

	require.NoError(t, m.SetGlobal(ctx, "Gaming"))
	assert.Equal(t, "Gaming", m.Preferences().Global)
}
