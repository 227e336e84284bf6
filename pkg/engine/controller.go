package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/chipper/pkg/analytics"
	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/match"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/rule"
	"github.com/macropower/chipper/pkg/session"
)

// ErrCandidateNotFound is reported when neither the preferred chip nor a
// similar one could be selected.
var ErrCandidateNotFound = errors.New("candidate not found")

// Environment exposes the page's chips. It is implemented by
// [chip.Registry].
type Environment interface {
	ListCandidates(ctx context.Context) []chip.Candidate
	IsSelected(ctx context.Context, text string) bool
	Selected(ctx context.Context) (chip.Candidate, bool)
	SelectCandidate(ctx context.Context, text string) bool
	Hide(ctx context.Context)
}

var _ Environment = (*chip.Registry)(nil)

// Controller applies preferences to an [Environment].
type Controller struct {
	clock       clockwork.Clock
	env         Environment
	store       preference.Store
	recorder    analytics.Recorder
	sessions    *session.Tracker
	matcher     *match.Matcher
	tracer      trace.Tracer
	resetTimer  clockwork.Timer
	state       State
	defaultText string
	matchOpts   []match.MatcherOpt
	cooldown    time.Duration
	resetDelay  time.Duration
	retryDelay  time.Duration
	resetGen    uint64
	phase       Phase
	mu          sync.Mutex
}

// ControllerOpt configures a [Controller].
type ControllerOpt func(*Controller)

// WithClock sets the controller's clock.
func WithClock(c clockwork.Clock) ControllerOpt {
	return func(ctrl *Controller) {
		ctrl.clock = c
	}
}

// WithRecorder sets where analytics events are recorded.
func WithRecorder(r analytics.Recorder) ControllerOpt {
	return func(ctrl *Controller) {
		ctrl.recorder = r
	}
}

// WithSessionTracker sets the session tracker. By default the controller
// creates one that shares its clock and recorder.
func WithSessionTracker(t *session.Tracker) ControllerOpt {
	return func(ctrl *Controller) {
		ctrl.sessions = t
	}
}

// WithCooldown sets the minimum time between two applications.
func WithCooldown(d time.Duration) ControllerOpt {
	return func(ctrl *Controller) {
		ctrl.cooldown = d
	}
}

// WithSelectResetDelay sets how long a programmatic selection suppresses
// re-entry.
func WithSelectResetDelay(d time.Duration) ControllerOpt {
	return func(ctrl *Controller) {
		ctrl.resetDelay = d
	}
}

// WithRetryDelay sets how long to wait before fetching candidates again.
func WithRetryDelay(d time.Duration) ControllerOpt {
	return func(ctrl *Controller) {
		ctrl.retryDelay = d
	}
}

// WithDefaultCandidate sets the canonical chip.
func WithDefaultCandidate(text string) ControllerOpt {
	return func(ctrl *Controller) {
		ctrl.defaultText = text
	}
}

// WithMinMatchScore rejects similar chips that score below score.
func WithMinMatchScore(score float64) ControllerOpt {
	return func(ctrl *Controller) {
		ctrl.matchOpts = append(ctrl.matchOpts, match.WithMinScore(score))
	}
}

// NewController creates a new [Controller].
func NewController(env Environment, store preference.Store, opts ...ControllerOpt) *Controller {
	c := &Controller{
		clock:       clockwork.NewRealClock(),
		env:         env,
		store:       store,
		recorder:    analytics.Discard,
		tracer:      otel.Tracer("engine"),
		defaultText: chip.DefaultText,
		cooldown:    DefaultCooldown,
		resetDelay:  DefaultSelectResetDelay,
		retryDelay:  DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.matcher = match.NewMatcher(c.matchOpts...)

	if c.sessions == nil {
		c.sessions = session.NewTracker(c.recorder, session.WithClock(c.clock))
	}

	return c
}

// Phase returns the controller's current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.phase
}

// State returns a copy of the controller's state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Session returns the open usage session.
func (c *Controller) Session() (session.Session, bool) {
	return c.sessions.Current()
}

// Apply selects the preferred chip, or the most similar available one.
// It does nothing while a programmatic selection is in flight, within the
// cooldown of the previous application, or after [Controller.Close].
func (c *Controller) Apply(ctx context.Context) {
	ctx, span := c.tracer.Start(ctx, "apply")
	defer span.End()

	logger := log.WithContext(ctx)

	if !c.begin(ctx) {
		return
	}

	candidates := c.env.ListCandidates(ctx)
	if len(candidates) == 0 {
		logger.DebugContext(ctx, "no candidates, retrying", slog.Duration("delay", c.retryDelay))

		select {
		case <-ctx.Done():
			c.finish(PhaseIdle)
			return
		case <-c.clock.After(c.retryDelay):
		}

		candidates = c.env.ListCandidates(ctx)
	}

	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseClosed {
		return
	}

	defer func() {
		c.phase = PhaseApplied
	}()

	if len(candidates) == 0 {
		logger.InfoContext(ctx, "no candidates available")
		c.startSession(ctx, c.defaultText, session.SourceNone)

		return
	}

	c.resolveLocked(ctx, candidates, span)
	c.state.AppliedThisPage = true
}

// begin checks the guards and, if they pass, marks the start of an
// application.
func (c *Controller) begin(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := log.WithContext(ctx)

	switch {
	case c.phase == PhaseClosed:
		return false

	case c.state.ExternalActionInFlight:
		logger.DebugContext(ctx, "skip apply, selection in flight")
		return false
	}

	now := c.clock.Now()
	if !c.state.LastAppliedAt.IsZero() && now.Sub(c.state.LastAppliedAt) < c.cooldown {
		logger.DebugContext(ctx, "skip apply, cooling down",
			slog.Duration("since", now.Sub(c.state.LastAppliedAt)),
		)
		if c.phase != PhaseResolving {
			c.phase = PhaseCooldownBlocked
		}

		return false
	}

	c.state.LastAppliedAt = now
	c.phase = PhaseResolving

	return true
}

func (c *Controller) finish(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseClosed {
		c.phase = p
	}
}

func (c *Controller) resolveLocked(ctx context.Context, candidates []chip.Candidate, span trace.Span) {
	logger := log.WithContext(ctx)

	desired, source, active := c.desired(ctx)
	span.SetAttributes(
		attribute.String("preference", desired),
		attribute.String("source", string(source)),
	)

	if desired == "" {
		logger.DebugContext(ctx, "no preference set")
		c.startSession(ctx, c.currentOrDefault(ctx), session.SourceNone)

		return
	}

	if c.selectLocked(ctx, desired) {
		logger.InfoContext(ctx, "applied preference",
			slog.String("chip", desired),
			slog.String("source", string(source)),
		)
		c.store.SetTemporaryFallback(ctx, preference.Fallback{})
		c.applied(ctx, desired, source, active)

		return
	}

	result, ok := c.matcher.Best(desired, candidates)
	if !ok {
		logger.InfoContext(ctx, "no similar candidate",
			slog.String("preference", desired),
			slog.Any("error", ErrCandidateNotFound),
		)
		c.store.SetTemporaryFallback(ctx, preference.Fallback{})
		c.startSession(ctx, c.currentOrDefault(ctx), session.SourceNone)

		return
	}

	text := result.Candidate.Text
	c.store.SetTemporaryFallback(ctx, preference.Fallback{Value: text, Source: source})

	if !c.selectLocked(ctx, text) {
		err := fmt.Errorf("select %q for %q: %w", text, desired, ErrCandidateNotFound)
		logger.WarnContext(ctx, "select similar candidate", slog.Any("error", err))
		span.RecordError(err)
		c.recorder.Record(ctx, analytics.KindError, analytics.Payload{
			analytics.KeyErrorMessage: err.Error(),
			analytics.KeyChipText:     text,
		})
		c.startSession(ctx, c.currentOrDefault(ctx), session.SourceNone)

		return
	}

	logger.InfoContext(ctx, "applied similar candidate",
		slog.String("chip", text),
		slog.String("preference", desired),
		slog.Float64("score", result.Score),
	)
	c.applied(ctx, text, source, active)
}

// desired resolves the preferred chip. Store failures are logged and
// treated as an absent preference.
func (c *Controller) desired(ctx context.Context) (string, preference.Source, *rule.TimeRule) {
	logger := log.WithContext(ctx)

	active, err := c.store.ActiveTimePreference(ctx)
	if err != nil {
		logger.WarnContext(ctx, "read active time preference", slog.Any("error", err))
	} else if active != nil && active.Preference != "" {
		return active.Preference, preference.SourceTime, active
	}

	global, err := c.store.GlobalPreference(ctx)
	if err != nil {
		logger.WarnContext(ctx, "read global preference", slog.Any("error", err))
		return "", preference.SourceNone, nil
	}

	if global == "" {
		return "", preference.SourceNone, nil
	}

	return global, preference.SourceGlobal, nil
}

// applied opens the session for an automatic selection, and records time
// rule selections.
func (c *Controller) applied(ctx context.Context, text string, source preference.Source, active *rule.TimeRule) {
	if source == preference.SourceTime && active != nil {
		c.recorder.Record(ctx, analytics.KindTimePrefSelected, analytics.Payload{
			analytics.KeyChipText:  text,
			analytics.KeySource:    analytics.ChipSourceTimePref,
			analytics.KeyTimeRange: fmt.Sprintf("%02d:00-%02d:00", active.StartHour, active.EndHour),
		})
	}

	c.startSession(ctx, text, sessionSource(source))
}

// selectLocked selects text and, if a click was issued, suppresses re-entry
// for the reset delay. A chip that is already selected counts as success
// without a click, except for the default chip, which is always clicked.
func (c *Controller) selectLocked(ctx context.Context, text string) bool {
	if text != c.defaultText && c.env.IsSelected(ctx, text) {
		return true
	}

	if !c.env.SelectCandidate(ctx, text) {
		return false
	}

	c.state.ExternalActionInFlight = true
	c.state.AppliedThisPage = true

	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}

	c.resetGen++
	gen := c.resetGen

	c.resetTimer = c.clock.AfterFunc(c.resetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.resetGen == gen {
			c.state.ExternalActionInFlight = false
		}
	})

	return true
}

// startSession opens a session unless one with the same chip and source is
// already open.
func (c *Controller) startSession(ctx context.Context, text string, source session.Source) {
	cur, ok := c.sessions.Current()
	if ok && cur.SelectedText == text && cur.Source == source {
		return
	}

	c.sessions.Start(ctx, text, source)
}

func (c *Controller) currentOrDefault(ctx context.Context) string {
	selected, ok := c.env.Selected(ctx)
	if ok {
		return selected.Text
	}

	return c.defaultText
}

// ResetForNavigation prepares for a new page: the preference may be applied
// again, and the chip bar is hidden until then.
func (c *Controller) ResetForNavigation(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseClosed {
		return
	}

	c.state.AppliedThisPage = false
	c.phase = PhaseIdle
	c.env.Hide(ctx)

	log.WithContext(ctx).DebugContext(ctx, "reset for navigation")
}

// Close closes the open session. Later calls to Apply do nothing.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseClosed {
		return
	}

	c.phase = PhaseClosed

	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}

	c.sessions.CloseOnTeardown(ctx)
}

func sessionSource(s preference.Source) session.Source {
	switch s {
	case preference.SourceGlobal:
		return session.SourceManual
	case preference.SourceTime:
		return session.SourceTimeScoped
	case preference.SourceNone:
		return session.SourceNone
	}

	return session.SourceNone
}
