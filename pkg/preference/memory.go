package preference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/rule"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process [Store].
type Memory struct {
	clock    clockwork.Clock
	prefs    *preferences.Preferences
	persist  func(p *preferences.Preferences) error
	fallback Fallback
	mu       sync.RWMutex
}

// MemoryOpt configures a [Memory] store.
type MemoryOpt func(*Memory)

// WithClock sets the clock used to decide which time rule is active.
func WithClock(c clockwork.Clock) MemoryOpt {
	return func(m *Memory) {
		m.clock = c
	}
}

// WithPreferences sets the initial preferences.
func WithPreferences(p *preferences.Preferences) MemoryOpt {
	return func(m *Memory) {
		m.prefs = p.Clone()
	}
}

// NewMemory creates a new [Memory] store.
func NewMemory(opts ...MemoryOpt) *Memory {
	m := &Memory{
		clock: clockwork.NewRealClock(),
		prefs: preferences.New(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// GlobalPreference implements [Store].
func (m *Memory) GlobalPreference(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.prefs.Global, nil
}

// ActiveTimePreference implements [Store].
func (m *Memory) ActiveTimePreference(_ context.Context) (*rule.TimeRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.prefs.TimeRules.Active(m.clock.Now()), nil
}

// SetTemporaryFallback implements [Store].
func (m *Memory) SetTemporaryFallback(ctx context.Context, f Fallback) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fallback == f {
		return
	}

	m.fallback = f

	log.WithContext(ctx).DebugContext(ctx, "set temporary fallback",
		slog.String("value", f.Value),
		slog.String("source", string(f.Source)),
	)
}

// TemporaryFallback implements [Store].
func (m *Memory) TemporaryFallback() Fallback {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.fallback
}

// Preferences returns a copy of the stored preferences.
func (m *Memory) Preferences() *preferences.Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.prefs.Clone()
}

// TimeRules returns the stored time rules.
func (m *Memory) TimeRules() rule.Set {
	return m.Preferences().TimeRules
}

// SetGlobal sets the global preference. An empty value clears it.
func (m *Memory) SetGlobal(_ context.Context, value string) error {
	return m.update(func(p *preferences.Preferences) error {
		p.Global = value
		return nil
	})
}

// AddTimeRule adds r. It fails if r is invalid or overlaps an enabled rule.
func (m *Memory) AddTimeRule(_ context.Context, r *rule.TimeRule) error {
	return m.update(func(p *preferences.Preferences) error {
		rules, err := p.TimeRules.Add(r)
		if err != nil {
			return fmt.Errorf("add time rule: %w", err)
		}

		p.TimeRules = rules

		return nil
	})
}

// UpdateTimeRule replaces the rule with r's ID.
func (m *Memory) UpdateTimeRule(_ context.Context, r *rule.TimeRule) error {
	return m.update(func(p *preferences.Preferences) error {
		rules, err := p.TimeRules.Update(r)
		if err != nil {
			return fmt.Errorf("update time rule: %w", err)
		}

		p.TimeRules = rules

		return nil
	})
}

// DeleteTimeRule removes the rule with the given ID.
func (m *Memory) DeleteTimeRule(_ context.Context, id string) error {
	return m.update(func(p *preferences.Preferences) error {
		rules, err := p.TimeRules.Delete(id)
		if err != nil {
			return fmt.Errorf("delete time rule: %w", err)
		}

		p.TimeRules = rules

		return nil
	})
}

// Replace swaps in a new set of preferences. The fallback is kept.
func (m *Memory) Replace(p *preferences.Preferences) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prefs = p.Clone()
}

// update applies fn to a copy of the preferences, persists the copy when the
// store has a persist hook, and stores it only if both succeed.
func (m *Memory) update(fn func(p *preferences.Preferences) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.prefs.Clone()

	err := fn(next)
	if err != nil {
		return err
	}

	if m.persist != nil {
		err = m.persist(next)
		if err != nil {
			return err
		}
	}

	m.prefs = next

	return nil
}
