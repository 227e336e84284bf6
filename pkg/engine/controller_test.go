package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/analytics"
	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/engine"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/rule"
	"github.com/macropower/chipper/pkg/session"
)

// monday is 2024-01-01 10:00 UTC, a Monday.
var monday = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

type recorded struct {
	data analytics.Payload
	kind analytics.Kind
}

type recorder struct {
	events []recorded
	mu     sync.Mutex
}

func (r *recorder) Record(_ context.Context, kind analytics.Kind, data analytics.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, recorded{kind: kind, data: data})
}

func (r *recorder) kinds() []analytics.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]analytics.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.kind)
	}

	return out
}

func (r *recorder) find(kind analytics.Kind) (analytics.Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		if e.kind == kind {
			return e.data, true
		}
	}

	return nil, false
}

type fixture struct {
	clock *clockwork.FakeClock
	src   *chip.Static
	store *preference.Memory
	rec   *recorder
	ctrl  *engine.Controller
}

func newFixture(t *testing.T, prefs *preferences.Preferences, texts []string, opts ...engine.ControllerOpt) *fixture {
	t.Helper()

	f := &fixture{
		clock: clockwork.NewFakeClockAt(monday),
		src:   chip.NewStatic(texts...),
		rec:   &recorder{},
	}

	if prefs == nil {
		prefs = preferences.New()
	}

	f.store = preference.NewMemory(preference.WithClock(f.clock), preference.WithPreferences(prefs))

	opts = append([]engine.ControllerOpt{
		engine.WithClock(f.clock),
		engine.WithRecorder(f.rec),
	}, opts...)

	f.ctrl = engine.NewController(chip.NewRegistry(f.src), f.store, opts...)

	return f
}

func global(value string) *preferences.Preferences {
	p := preferences.New()
	p.Global = value

	return p
}

func TestController_Apply(t *testing.T) {
	t.Parallel()

	workRule := rule.MustNew("work", "News", []int{1}, 9, 17)

	tcs := map[string]struct {
		prefs        *preferences.Preferences
		texts        []string
		opts         []engine.ControllerOpt
		wantClicks   []string
		wantSession  session.Session
		wantFallback preference.Fallback
	}{
		"exact global": {
			prefs:       global("Music"),
			texts:       []string{"All", "Gaming", "Music"},
			wantClicks:  []string{"Music"},
			wantSession: session.Session{SelectedText: "Music", Source: session.SourceManual},
		},
		"case-insensitive global": {
			prefs:        global("music"),
			texts:        []string{"All", "Gaming", "Music"},
			wantClicks:   []string{"Music"},
			wantSession:  session.Session{SelectedText: "Music", Source: session.SourceManual},
			wantFallback: preference.Fallback{Value: "Music", Source: preference.SourceGlobal},
		},
		"time rule overrides global": {
			prefs: &preferences.Preferences{
				TypeMeta:  preferences.New().TypeMeta,
				Global:    "Music",
				TimeRules: rule.Set{workRule},
			},
			texts:       []string{"All", "News", "Music"},
			wantClicks:  []string{"News"},
			wantSession: session.Session{SelectedText: "News", Source: session.SourceTimeScoped},
		},
		"similar candidate": {
			prefs:        global("Gaminng"),
			texts:        []string{"All", "Gaming", "Music", "News"},
			wantClicks:   []string{"Gaming"},
			wantSession:  session.Session{SelectedText: "Gaming", Source: session.SourceManual},
			wantFallback: preference.Fallback{Value: "Gaming", Source: preference.SourceGlobal},
		},
		"similar candidate for time rule": {
			prefs: &preferences.Preferences{
				TypeMeta:  preferences.New().TypeMeta,
				TimeRules: rule.Set{workRule},
			},
			texts:        []string{"All", "World News", "Music"},
			wantClicks:   []string{"World News"},
			wantSession:  session.Session{SelectedText: "World News", Source: session.SourceTimeScoped},
			wantFallback: preference.Fallback{Value: "World News", Source: preference.SourceTime},
		},
		"no match above minimum score": {
			prefs:       global("Cooking"),
			texts:       []string{"All", "Gaming"},
			opts:        []engine.ControllerOpt{engine.WithMinMatchScore(0.9)},
			wantSession: session.Session{SelectedText: "All", Source: session.SourceNone},
		},
		"no preference": {
			texts:       []string{"All", "Gaming"},
			wantSession: session.Session{SelectedText: "All", Source: session.SourceNone},
		},
		"already selected": {
			prefs:       global("Gaming"),
			texts:       []string{"Gaming", "All"},
			wantSession: session.Session{SelectedText: "Gaming", Source: session.SourceManual},
		},
		"default is always clicked": {
			prefs:       global("All"),
			texts:       []string{"All", "Gaming"},
			wantClicks:  []string{"All"},
			wantSession: session.Session{SelectedText: "All", Source: session.SourceManual},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			f := newFixture(t, tc.prefs, tc.texts, tc.opts...)

			f.ctrl.Apply(ctx)

			assert.Equal(t, tc.wantClicks, f.src.Clicks())
			assert.Equal(t, tc.wantFallback, f.store.TemporaryFallback())
			assert.True(t, f.ctrl.State().AppliedThisPage)
			assert.Equal(t, engine.PhaseApplied, f.ctrl.Phase())

			got, ok := f.ctrl.Session()
			require.True(t, ok)
			tc.wantSession.StartedAt = f.clock.Now()
			assert.Equal(t, tc.wantSession, got)
		})
	}
}

func TestController_TimeRuleSelectionIsRecorded(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	p := preferences.New()
	p.TimeRules = rule.Set{rule.MustNew("work", "News", []int{1}, 9, 17)}

	f := newFixture(t, p, []string{"All", "News"})
	f.ctrl.Apply(ctx)

	data, ok := f.rec.find(analytics.KindTimePrefSelected)
	require.True(t, ok)
	assert.Equal(t, analytics.Payload{
		analytics.KeyChipText:  "News",
		analytics.KeySource:    analytics.ChipSourceTimePref,
		analytics.KeyTimeRange: "09:00-17:00",
	}, data)
}

func TestController_Cooldown(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, global("Music"), []string{"All", "Music"})

	f.ctrl.Apply(ctx)

	// The user switches back to All; a second apply inside the cooldown
	// must not fight them.
	f.src.Mark("Music", false)
	f.src.Mark("All", true)
	f.clock.Advance(time.Second)

	// The selection reset runs on its own goroutine. Only the cooldown may
	// block the next apply.
	require.Eventually(t, func() bool {
		return !f.ctrl.State().ExternalActionInFlight
	}, time.Second, time.Millisecond)

	f.ctrl.Apply(ctx)
	assert.Equal(t, []string{"Music"}, f.src.Clicks())
	assert.Equal(t, engine.PhaseCooldownBlocked, f.ctrl.Phase())

	f.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return !f.ctrl.State().ExternalActionInFlight
	}, time.Second, time.Millisecond)

	f.ctrl.Apply(ctx)
	assert.Equal(t, []string{"Music", "Music"}, f.src.Clicks())
}

func TestController_InFlightGuard(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, global("Music"), []string{"All", "Music"}, engine.WithCooldown(0))

	f.ctrl.Apply(ctx)
	require.True(t, f.ctrl.State().ExternalActionInFlight)

	f.src.Mark("Music", false)
	f.ctrl.Apply(ctx)
	assert.Equal(t, []string{"Music"}, f.src.Clicks())

	f.clock.Advance(engine.DefaultSelectResetDelay)
	require.Eventually(t, func() bool {
		return !f.ctrl.State().ExternalActionInFlight
	}, time.Second, time.Millisecond)

	f.ctrl.Apply(ctx)
	assert.Equal(t, []string{"Music", "Music"}, f.src.Clicks())
}

func TestController_RetryWhenEmpty(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		appear      []string
		wantClicks  []string
		wantSession session.Session
	}{
		"still empty": {
			wantSession: session.Session{SelectedText: "All", Source: session.SourceNone},
		},
		"chips appear": {
			appear:      []string{"All", "Music"},
			wantClicks:  []string{"Music"},
			wantSession: session.Session{SelectedText: "Music", Source: session.SourceManual},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			f := newFixture(t, global("Music"), nil)

			done := make(chan struct{})
			go func() {
				defer close(done)
				f.ctrl.Apply(ctx)
			}()

			require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
			assert.Equal(t, engine.PhaseResolving, f.ctrl.Phase())

			if tc.appear != nil {
				f.src.SetTexts(tc.appear...)
			}

			f.clock.Advance(engine.DefaultRetryDelay)
			<-done

			assert.Equal(t, tc.wantClicks, f.src.Clicks())

			got, ok := f.ctrl.Session()
			require.True(t, ok)
			assert.Equal(t, tc.wantSession.SelectedText, got.SelectedText)
			assert.Equal(t, tc.wantSession.Source, got.Source)
		})
	}
}

func TestController_RetryCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	f := newFixture(t, global("Music"), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.ctrl.Apply(ctx)
	}()

	require.NoError(t, f.clock.BlockUntilContext(t.Context(), 1))
	cancel()
	<-done

	_, ok := f.ctrl.Session()
	assert.False(t, ok)
	assert.Equal(t, engine.PhaseIdle, f.ctrl.Phase())
}

type failingStore struct {
	*preference.Memory

	failTime   bool
	failGlobal bool
}

func (s *failingStore) GlobalPreference(ctx context.Context) (string, error) {
	if s.failGlobal {
		return "", preference.ErrStoreUnavailable
	}

	return s.Memory.GlobalPreference(ctx)
}

func (s *failingStore) ActiveTimePreference(ctx context.Context) (*rule.TimeRule, error) {
	if s.failTime {
		return nil, preference.ErrStoreUnavailable
	}

	return s.Memory.ActiveTimePreference(ctx)
}

func TestController_StoreUnavailable(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		store       *failingStore
		wantSession session.Session
	}{
		"time rules unavailable falls back to global": {
			store:       &failingStore{failTime: true},
			wantSession: session.Session{SelectedText: "Music", Source: session.SourceManual},
		},
		"everything unavailable": {
			store:       &failingStore{failTime: true, failGlobal: true},
			wantSession: session.Session{SelectedText: "All", Source: session.SourceNone},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			clock := clockwork.NewFakeClockAt(monday)
			tc.store.Memory = preference.NewMemory(preference.WithClock(clock), preference.WithPreferences(global("Music")))

			src := chip.NewStatic("All", "Music")
			ctrl := engine.NewController(chip.NewRegistry(src), tc.store, engine.WithClock(clock))

			ctrl.Apply(ctx)

			got, ok := ctrl.Session()
			require.True(t, ok)
			assert.Equal(t, tc.wantSession.SelectedText, got.SelectedText)
			assert.Equal(t, tc.wantSession.Source, got.Source)
		})
	}
}

func TestController_EnvironmentUnavailable(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, global("Music"), []string{"All", "Music"})
	f.src.SetError(errors.New("container missing"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.ctrl.Apply(ctx)
	}()

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(engine.DefaultRetryDelay)
	<-done

	got, ok := f.ctrl.Session()
	require.True(t, ok)
	assert.Equal(t, "All", got.SelectedText)
	assert.Equal(t, session.SourceNone, got.Source)
}

func TestController_ResetForNavigation(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, global("Music"), []string{"All", "Music"})

	f.ctrl.Apply(ctx)
	require.True(t, f.ctrl.State().AppliedThisPage)

	f.ctrl.ResetForNavigation(ctx)
	assert.False(t, f.ctrl.State().AppliedThisPage)
	assert.True(t, f.src.Hidden())
	assert.Equal(t, engine.PhaseIdle, f.ctrl.Phase())
}

func TestController_SessionsAreNotChurned(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, global("Music"), []string{"All", "Music"})

	f.ctrl.Apply(ctx)
	first, ok := f.ctrl.Session()
	require.True(t, ok)

	f.clock.Advance(time.Minute)
	f.ctrl.Apply(ctx)

	second, ok := f.ctrl.Session()
	require.True(t, ok)
	assert.Equal(t, first.StartedAt, second.StartedAt)
	assert.NotContains(t, f.rec.kinds(), analytics.KindUsage)
}

func TestController_DurableSessionsFitVisit(t *testing.T) {
	t.Parallel()

	type step struct {
		selectText string
		wait       time.Duration
	}

	tcs := map[string]struct {
		steps []step
		want  time.Duration
	}{
		"whole seconds": {
			// The 3s Music session is below the minimum and discarded.
			steps: []step{{"", 3 * time.Second}, {"News", 40 * time.Second}, {"All", 10 * time.Second}},
			want:  50 * time.Second,
		},
		"half seconds": {
			steps: []step{{"", 5500 * time.Millisecond}, {"News", 5500 * time.Millisecond}},
			want:  10 * time.Second,
		},
		"many fractional sessions": {
			steps: []step{
				{"", 5999 * time.Millisecond},
				{"News", 6999 * time.Millisecond},
				{"All", 7999 * time.Millisecond},
				{"Music", 5001 * time.Millisecond},
			},
			want: 23 * time.Second,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			f := newFixture(t, global("Music"), []string{"All", "Music", "News"})
			start := f.clock.Now()

			f.ctrl.Apply(ctx)
			for _, s := range tc.steps {
				if s.selectText != "" {
					f.ctrl.Select(ctx, s.selectText, false)
				}
				f.clock.Advance(s.wait)
			}
			f.ctrl.Close(ctx)

			visit := f.clock.Since(start)

			var total time.Duration

			f.rec.mu.Lock()
			for _, e := range f.rec.events {
				if e.kind == analytics.KindUsage {
					secs, ok := e.data[analytics.KeyDurationSeconds].(int64)
					require.True(t, ok)
					total += time.Duration(secs) * time.Second
				}
			}
			f.rec.mu.Unlock()

			assert.Equal(t, tc.want, total)
			assert.LessOrEqual(t, total, visit)
		})
	}
}

func TestController_Close(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, global("Music"), []string{"All", "Music"})

	f.ctrl.Apply(ctx)
	f.clock.Advance(time.Minute)
	f.ctrl.Close(ctx)

	assert.Equal(t, engine.PhaseClosed, f.ctrl.Phase())

	data, ok := f.rec.find(analytics.KindUsage)
	require.True(t, ok)
	assert.Equal(t, int64(60), data[analytics.KeyDurationSeconds])

	f.src.Mark("Music", false)
	f.ctrl.Apply(ctx)
	f.ctrl.ResetForNavigation(ctx)
	assert.Equal(t, []string{"Music"}, f.src.Clicks())
	assert.False(t, f.ctrl.Select(ctx, "Music", false).Success)
	assert.Equal(t, engine.PhaseClosed, f.ctrl.Phase())
}

func TestController_SelectFailureIsRecorded(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	f := newFixture(t, global("Gaminng"), []string{"All", "Gaming"})

	// Snapshots work, but clicks fail.
	env := &clickFailEnv{Registry: chip.NewRegistry(f.src)}
	ctrl := engine.NewController(env, f.store, engine.WithClock(f.clock), engine.WithRecorder(f.rec))

	ctrl.Apply(ctx)

	data, ok := f.rec.find(analytics.KindError)
	require.True(t, ok)
	assert.Equal(t, "Gaming", data[analytics.KeyChipText])
	assert.Contains(t, data[analytics.KeyErrorMessage], engine.ErrCandidateNotFound.Error())

	got, ok := ctrl.Session()
	require.True(t, ok)
	assert.Equal(t, session.SourceNone, got.Source)
}

type clickFailEnv struct {
	*chip.Registry
}

func (clickFailEnv) SelectCandidate(context.Context, string) bool {
	return false
}
