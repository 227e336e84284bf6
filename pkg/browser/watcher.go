package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/macropower/chipper/pkg/engine"
	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/observer"
)

// EventType is the kind of a buffered page event.
type EventType string

const (
	EventNavigation EventType = "navigation"
	EventInsertion  EventType = "insertion"
	EventSearch     EventType = "search"
	EventClick      EventType = "click"
)

// Event is one row of the page's event buffer.
type Event struct {
	Type    EventType `json:"type"`
	URL     string    `json:"url,omitempty"`
	Title   string    `json:"title,omitempty"`
	Query   string    `json:"query,omitempty"`
	Href    string    `json:"href,omitempty"`
	TS      float64   `json:"ts,omitempty"`
	Present bool      `json:"present,omitempty"`
}

// ParseEvents decodes the result of the drain script. A null result means
// the page lost its hook, and is reported as ok == false.
func ParseEvents(raw []byte) (events []Event, ok bool, err error) {
	if string(raw) == "null" {
		return nil, false, nil
	}

	err = json.Unmarshal(raw, &events)
	if err != nil {
		return nil, false, fmt.Errorf("decode events: %w", err)
	}

	return events, true, nil
}

// ItemID extracts the item ID from a link: the v query parameter of a watch
// link, or the last path segment of a shorts link.
func ItemID(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if v := u.Query().Get("v"); v != "" {
		return v
	}

	if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
		return strings.Trim(rest, "/")
	}

	return ""
}

// Action converts a search or click event into an [engine.Action].
func (e Event) Action() (engine.Action, bool) {
	switch e.Type {
	case EventSearch:
		return engine.Action{Kind: engine.ActionSearch, Query: e.Query}, true
	case EventClick:
		return engine.Action{Kind: engine.ActionClick, ItemID: ItemID(e.Href), ItemTitle: e.Title}, true
	case EventNavigation, EventInsertion:
	}

	return engine.Action{}, false
}

var (
	_ observer.ChangeSource = (*Watcher)(nil)
	_ observer.ActionSource = (*Watcher)(nil)
)

// Watcher polls a [Browser] page for changes and user actions.
type Watcher struct {
	clock    clockwork.Clock
	b        *Browser
	navs     chan observer.Navigation
	inss     chan observer.Insertion
	acts     chan engine.Action
	interval time.Duration
}

// WatcherOpt configures a [Watcher].
type WatcherOpt func(*Watcher)

// WithClock sets the clock driving the poll ticker.
func WithClock(clock clockwork.Clock) WatcherOpt {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// WithPollInterval sets how often the page's event buffer is drained.
func WithPollInterval(d time.Duration) WatcherOpt {
	return func(w *Watcher) {
		w.interval = d
	}
}

// NewWatcher creates a new [Watcher] for b.
func NewWatcher(b *Browser, opts ...WatcherOpt) *Watcher {
	w := &Watcher{
		b:        b,
		clock:    clockwork.NewRealClock(),
		interval: DefaultPollInterval,
		navs:     make(chan observer.Navigation, 8),
		inss:     make(chan observer.Insertion, 8),
		acts:     make(chan engine.Action, 32),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Navigations implements [observer.ChangeSource].
func (w *Watcher) Navigations() <-chan observer.Navigation { return w.navs }

// Insertions implements [observer.ChangeSource].
func (w *Watcher) Insertions() <-chan observer.Insertion { return w.inss }

// Actions implements [observer.ActionSource].
func (w *Watcher) Actions() <-chan engine.Action { return w.acts }

// Run installs the page hook and polls it until ctx is done. All channels
// are closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.navs)
	defer close(w.inss)
	defer close(w.acts)

	err := w.hook(ctx)
	if err != nil {
		return err
	}

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			w.poll(ctx)
		}
	}
}

func (w *Watcher) hook(ctx context.Context) error {
	_, err := w.b.eval(ctx, hookJS, w.b.sel)
	if err != nil {
		return fmt.Errorf("install page hook: %w", err)
	}

	return nil
}

func (w *Watcher) poll(ctx context.Context) {
	logger := log.WithContext(ctx)

	raw, err := w.b.eval(ctx, drainJS)
	if err != nil {
		logger.DebugContext(ctx, "drain page events", slog.Any("error", err))
		return
	}

	events, ok, err := ParseEvents(raw)
	if err != nil {
		logger.DebugContext(ctx, "drain page events", slog.Any("error", err))
		return
	}

	if !ok {
		// The document was replaced, so the page navigated.
		err := w.hook(ctx)
		if err != nil {
			logger.DebugContext(ctx, "reinstall page hook", slog.Any("error", err))
			return
		}

		events = []Event{{Type: EventNavigation}}
	}

	w.Dispatch(ctx, events)
}

// Dispatch delivers events to the watcher's channels in order. It returns
// early when ctx is done.
func (w *Watcher) Dispatch(ctx context.Context, events []Event) {
	for _, e := range events {
		var err error

		switch e.Type {
		case EventNavigation:
			err = send(ctx, w.navs, observer.Navigation{URL: e.URL, Title: e.Title})
		case EventInsertion:
			err = send(ctx, w.inss, observer.Insertion{CandidatePresent: e.Present})
		case EventSearch, EventClick:
			a, _ := e.Action()
			err = send(ctx, w.acts, a)
		default:
			log.WithContext(ctx).DebugContext(ctx, "unknown page event", slog.String("type", string(e.Type)))
		}

		if err != nil {
			return
		}
	}
}

func send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // Context errors are returned as is.
	}
}
