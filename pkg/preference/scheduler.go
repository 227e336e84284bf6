package preference

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/rule"
)

// Scheduler watches for changes to the active time rule. It re-evaluates
// the store every interval and whenever [Scheduler.Trigger] is called, and
// calls its change handler when the active rule, or the preference it
// selects, differs from the last one it saw.
type Scheduler struct {
	clock    clockwork.Clock
	store    Store
	onChange func(ctx context.Context, active *rule.TimeRule)
	trigger  chan struct{}
	last     string
	interval time.Duration
}

// SchedulerOpt configures a [Scheduler].
type SchedulerOpt func(*Scheduler)

// WithSchedulerClock sets the scheduler's clock.
func WithSchedulerClock(c clockwork.Clock) SchedulerOpt {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithInterval sets how often the active rule is re-evaluated.
func WithInterval(d time.Duration) SchedulerOpt {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewScheduler creates a new [Scheduler]. The onChange handler receives the
// newly active rule, which is nil when no rule applies anymore.
func NewScheduler(store Store, onChange func(ctx context.Context, active *rule.TimeRule), opts ...SchedulerOpt) *Scheduler {
	s := &Scheduler{
		clock:    clockwork.NewRealClock(),
		store:    store,
		onChange: onChange,
		interval: DefaultInterval,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Trigger requests a re-evaluation. It never blocks.
func (s *Scheduler) Trigger(_ context.Context) {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run evaluates the active rule once to establish a baseline, then keeps
// re-evaluating until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.last = s.activeKey(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.check(ctx)
		case <-s.trigger:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	active, err := s.store.ActiveTimePreference(ctx)
	if err != nil {
		log.WithContext(ctx).WarnContext(ctx, "read active time rule", slog.Any("error", err))
		return
	}

	key := ruleKey(active)
	if key == s.last {
		return
	}

	log.WithContext(ctx).InfoContext(ctx, "active time rule changed",
		slog.String("from", s.last),
		slog.String("to", key),
	)

	s.last = key

	if s.onChange != nil {
		s.onChange(ctx, active)
	}
}

func (s *Scheduler) activeKey(ctx context.Context) string {
	active, err := s.store.ActiveTimePreference(ctx)
	if err != nil {
		return ""
	}

	return ruleKey(active)
}

func ruleKey(r *rule.TimeRule) string {
	if r == nil {
		return ""
	}

	return r.ID + "/" + r.Preference
}
