package observer

import (
	"context"
	"sync"

	"github.com/macropower/chipper/pkg/engine"
)

var (
	_ ChangeSource = (*Feed)(nil)
	_ ActionSource = (*Feed)(nil)
)

// Feed is a [ChangeSource] driven by method calls.
type Feed struct {
	navs chan Navigation
	inss chan Insertion
	acts chan engine.Action
	once sync.Once
}

// NewFeed creates a [Feed] whose channels buffer size changes each.
func NewFeed(size int) *Feed {
	return &Feed{
		navs: make(chan Navigation, size),
		inss: make(chan Insertion, size),
		acts: make(chan engine.Action, size),
	}
}

// Navigations implements [ChangeSource].
func (f *Feed) Navigations() <-chan Navigation { return f.navs }

// Insertions implements [ChangeSource].
func (f *Feed) Insertions() <-chan Insertion { return f.inss }

// Actions implements [ActionSource].
func (f *Feed) Actions() <-chan engine.Action { return f.acts }

// Navigate delivers a navigation. It blocks until the navigation is
// buffered or ctx is done.
func (f *Feed) Navigate(ctx context.Context, n Navigation) error {
	return send(ctx, f.navs, n)
}

// Insert delivers an insertion.
func (f *Feed) Insert(ctx context.Context, i Insertion) error {
	return send(ctx, f.inss, i)
}

// Act delivers a user action.
func (f *Feed) Act(ctx context.Context, a engine.Action) error {
	return send(ctx, f.acts, a)
}

// Close closes every channel. The feed must not be used afterwards.
func (f *Feed) Close() {
	f.once.Do(func() {
		close(f.navs)
		close(f.inss)
		close(f.acts)
	})
}

func send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // Context errors are returned as is.
	}
}
