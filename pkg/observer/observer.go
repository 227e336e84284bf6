// Package observer turns page changes into preference applications.
//
// An [Observer] watches a [ChangeSource] for two kinds of change. A
// navigation resets the controller immediately and applies the preference
// after the page had time to load. An insertion of chips applies the
// preference shortly after, unless the controller is mid-selection or has
// already applied on this page. The controller's own guards collapse bursts
// of changes into a single application.
package observer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/pkg/engine"
	"github.com/macropower/chipper/pkg/log"
)

const (
	// DefaultInitialDelay is how long after start the first application
	// runs.
	DefaultInitialDelay = 1500 * time.Millisecond
	// DefaultNavigationDelay is how long after a navigation the preference
	// is applied.
	DefaultNavigationDelay = time.Second
	// DefaultInsertionDelay is how long after chips appear the preference
	// is applied.
	DefaultInsertionDelay = 500 * time.Millisecond
)

// Navigation is a change of page.
type Navigation struct {
	URL   string
	Title string
}

// Insertion is a batch of nodes added to the page.
type Insertion struct {
	// CandidatePresent reports whether the page has chips after the
	// insertion.
	CandidatePresent bool
}

// ChangeSource delivers page changes. Closing both channels ends
// [Observer.Run].
type ChangeSource interface {
	Navigations() <-chan Navigation
	Insertions() <-chan Insertion
}

// ActionSource is implemented by change sources that also report user
// actions.
type ActionSource interface {
	Actions() <-chan engine.Action
}

// Controller is the part of [engine.Controller] the observer drives.
type Controller interface {
	Apply(ctx context.Context)
	ResetForNavigation(ctx context.Context)
	RecordAction(ctx context.Context, a engine.Action)
	State() engine.State
}

var _ Controller = (*engine.Controller)(nil)

// Config configures an [Observer].
type Config struct {
	// InitialDelay is how long after start the first application runs.
	InitialDelay *v1beta1.Duration `json:"initialDelay,omitempty" jsonschema:"title=Initial Delay"`
	// NavigationDelay is how long after a navigation the preference is
	// applied.
	NavigationDelay *v1beta1.Duration `json:"navigationDelay,omitempty" jsonschema:"title=Navigation Delay"`
	// InsertionDelay is how long after chips appear the preference is
	// applied.
	InsertionDelay *v1beta1.Duration `json:"insertionDelay,omitempty" jsonschema:"title=Insertion Delay"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults sets default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.InitialDelay == nil {
		c.InitialDelay = v1beta1.NewDuration(DefaultInitialDelay)
	}
	if c.NavigationDelay == nil {
		c.NavigationDelay = v1beta1.NewDuration(DefaultNavigationDelay)
	}
	if c.InsertionDelay == nil {
		c.InsertionDelay = v1beta1.NewDuration(DefaultInsertionDelay)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for name, d := range map[string]*v1beta1.Duration{
		"initialDelay":    c.InitialDelay,
		"navigationDelay": c.NavigationDelay,
		"insertionDelay":  c.InsertionDelay,
	} {
		if d != nil && d.Duration < 0 {
			return errors.New(name + " must not be negative")
		}
	}

	return nil
}

// Options returns the observer options for c.
func (c *Config) Options() []ObserverOpt {
	return []ObserverOpt{
		WithInitialDelay(c.InitialDelay.Get(DefaultInitialDelay)),
		WithNavigationDelay(c.NavigationDelay.Get(DefaultNavigationDelay)),
		WithInsertionDelay(c.InsertionDelay.Get(DefaultInsertionDelay)),
	}
}

// Observer schedules applications in response to page changes.
type Observer struct {
	clock           clockwork.Clock
	ctrl            Controller
	src             ChangeSource
	pending         map[uint64]clockwork.Timer
	wg              sync.WaitGroup
	initialDelay    time.Duration
	navigationDelay time.Duration
	insertionDelay  time.Duration
	nextID          uint64
	mu              sync.Mutex
}

// ObserverOpt configures an [Observer].
type ObserverOpt func(*Observer)

// WithClock sets the observer's clock.
func WithClock(c clockwork.Clock) ObserverOpt {
	return func(o *Observer) {
		o.clock = c
	}
}

// WithInitialDelay sets how long after start the first application runs.
func WithInitialDelay(d time.Duration) ObserverOpt {
	return func(o *Observer) {
		o.initialDelay = d
	}
}

// WithNavigationDelay sets how long after a navigation the preference is
// applied.
func WithNavigationDelay(d time.Duration) ObserverOpt {
	return func(o *Observer) {
		o.navigationDelay = d
	}
}

// WithInsertionDelay sets how long after chips appear the preference is
// applied.
func WithInsertionDelay(d time.Duration) ObserverOpt {
	return func(o *Observer) {
		o.insertionDelay = d
	}
}

// New creates a new [Observer].
func New(ctrl Controller, src ChangeSource, opts ...ObserverOpt) *Observer {
	o := &Observer{
		clock:           clockwork.NewRealClock(),
		ctrl:            ctrl,
		src:             src,
		pending:         map[uint64]clockwork.Timer{},
		initialDelay:    DefaultInitialDelay,
		navigationDelay: DefaultNavigationDelay,
		insertionDelay:  DefaultInsertionDelay,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run schedules the initial application, then reacts to changes until ctx
// is done or the source closes. Pending applications are canceled, and
// running ones waited for, before it returns.
func (o *Observer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer o.stop()

	logger := log.WithContext(ctx)

	o.schedule(ctx, o.initialDelay)

	navs := o.src.Navigations()
	inss := o.src.Insertions()

	var acts <-chan engine.Action
	if as, ok := o.src.(ActionSource); ok {
		acts = as.Actions()
	}

	for navs != nil || inss != nil {
		select {
		case <-ctx.Done():
			return nil

		case nav, ok := <-navs:
			if !ok {
				navs = nil
				continue
			}

			logger.DebugContext(ctx, "navigation",
				slog.String("url", nav.URL),
				slog.String("title", nav.Title),
			)

			o.ctrl.ResetForNavigation(ctx)
			o.schedule(ctx, o.navigationDelay)

		case ins, ok := <-inss:
			if !ok {
				inss = nil
				continue
			}

			if !ins.CandidatePresent {
				continue
			}

			st := o.ctrl.State()
			if st.ExternalActionInFlight || st.AppliedThisPage {
				continue
			}

			o.schedule(ctx, o.insertionDelay)

		case act, ok := <-acts:
			if !ok {
				acts = nil
				continue
			}

			o.ctrl.RecordAction(ctx, act)
		}
	}

	logger.DebugContext(ctx, "change source closed")

	return nil
}

// Pending returns the number of scheduled applications that have not run.
func (o *Observer) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.pending)
}

func (o *Observer) schedule(ctx context.Context, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID

	o.wg.Add(1)

	o.pending[id] = o.clock.AfterFunc(d, func() {
		defer o.wg.Done()

		o.mu.Lock()
		delete(o.pending, id)
		o.mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		o.ctrl.Apply(ctx)
	})
}

func (o *Observer) stop() {
	o.mu.Lock()
	for id, t := range o.pending {
		if t.Stop() {
			o.wg.Done()
		}

		delete(o.pending, id)
	}
	o.mu.Unlock()

	o.wg.Wait()
}
