// Package session accounts for how long each chip stays selected.
//
// A [Tracker] holds at most one open [Session]. Starting a new one closes
// the previous session, and sessions that lasted at least the minimum
// duration are recorded as usage events.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/pkg/analytics"
	"github.com/macropower/chipper/pkg/log"
)

// DefaultMinimumDuration is the shortest session that is recorded.
const DefaultMinimumDuration = 5 * time.Second

// Source is what caused a chip to be selected.
type Source string

const (
	// SourceNone means no preference was applied.
	SourceNone Source = ""
	// SourceManual is a selection the user made.
	SourceManual Source = "manual"
	// SourceTimeScoped is a selection made for an active time rule.
	SourceTimeScoped Source = "time_pref"
)

// Session is an interval during which one chip was selected.
type Session struct {
	StartedAt    time.Time
	Source       Source
	SelectedText string
}

// Config configures a [Tracker].
type Config struct {
	// MinimumDuration is the shortest session that is recorded.
	MinimumDuration *v1beta1.Duration `json:"minimumDuration,omitempty" jsonschema:"title=Minimum Duration"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults sets default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MinimumDuration == nil {
		c.MinimumDuration = v1beta1.NewDuration(DefaultMinimumDuration)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MinimumDuration != nil && c.MinimumDuration.Duration < 0 {
		return errors.New("minimumDuration must not be negative")
	}

	return nil
}

// Tracker opens and closes sessions.
type Tracker struct {
	clock    clockwork.Clock
	recorder analytics.Recorder
	current  *Session
	minimum  time.Duration
	mu       sync.Mutex
}

// TrackerOpt configures a [Tracker].
type TrackerOpt func(*Tracker)

// WithClock sets the tracker's clock.
func WithClock(c clockwork.Clock) TrackerOpt {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithMinimumDuration sets the shortest session that is recorded.
func WithMinimumDuration(d time.Duration) TrackerOpt {
	return func(t *Tracker) {
		t.minimum = d
	}
}

// NewTracker creates a new [Tracker] that records usage to recorder.
func NewTracker(recorder analytics.Recorder, opts ...TrackerOpt) *Tracker {
	t := &Tracker{
		clock:    clockwork.NewRealClock(),
		recorder: recorder,
		minimum:  DefaultMinimumDuration,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Start closes the open session, if any, and opens a new one for text.
func (t *Tracker) Start(ctx context.Context, text string, source Source) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked(ctx)

	t.current = &Session{
		StartedAt:    t.clock.Now(),
		Source:       source,
		SelectedText: text,
	}

	log.WithContext(ctx).DebugContext(ctx, "start session",
		slog.String("chip", text),
		slog.String("source", string(source)),
	)
}

// CloseOnTeardown closes the open session without opening another.
func (t *Tracker) CloseOnTeardown(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked(ctx)
}

// Current returns the open session.
func (t *Tracker) Current() (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return Session{}, false
	}

	return *t.current, true
}

func (t *Tracker) closeLocked(ctx context.Context) {
	s := t.current
	if s == nil {
		return
	}

	t.current = nil

	d := t.clock.Since(s.StartedAt)
	if d < t.minimum {
		log.WithContext(ctx).DebugContext(ctx, "discard short session",
			slog.String("chip", s.SelectedText),
			slog.Duration("duration", d),
		)

		return
	}

	// Whole seconds only, so recorded sessions never add up to more than
	// the time actually spent.
	t.recorder.Record(ctx, analytics.KindUsage, analytics.Payload{
		analytics.KeyDurationSeconds: int64(d / time.Second),
		analytics.KeyChipSource:      string(s.Source),
		analytics.KeyChipText:        s.SelectedText,
	})
}
