package chip

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Static is an in-memory [Source]. Clicking a chip selects it and deselects
// every other chip.
type Static struct {
	err    error
	states []State
	clicks []string
	hidden bool
	mu     sync.Mutex
}

// NewStatic creates a [Static] source with the given chip texts, in order.
// The first chip starts selected.
func NewStatic(texts ...string) *Static {
	s := &Static{}
	s.SetTexts(texts...)

	return s
}

// SetTexts replaces the chips. The first chip becomes selected.
func (s *Static) SetTexts(texts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = make([]State, 0, len(texts))
	for i, text := range texts {
		s.states = append(s.states, State{
			Candidate: Candidate{Text: text, Position: i},
			Selected:  i == 0,
		})
	}

	s.hidden = false
}

// SetError makes subsequent calls fail with err. Pass nil to recover.
func (s *Static) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// Snapshot implements [Source].
func (s *Static) Snapshot(_ context.Context) ([]State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	return slices.Clone(s.states), nil
}

// Click implements [Source].
func (s *Static) Click(_ context.Context, c Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	idx := slices.IndexFunc(s.states, func(st State) bool {
		return st.Text == c.Text
	})
	if idx < 0 {
		return fmt.Errorf("chip %q: not found", c.Text)
	}

	for i := range s.states {
		s.states[i].Selected = i == idx
	}

	s.clicks = append(s.clicks, c.Text)

	return nil
}

// Hide implements [Source].
func (s *Static) Hide(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hidden = true

	return s.err
}

// Clicks returns the texts of all clicked chips, in order.
func (s *Static) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.clicks)
}

// Hidden reports whether the container has been hidden since the last
// [Static.SetTexts].
func (s *Static) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hidden
}

// Mark sets the selection state of a chip without recording a click. Other
// chips are left unchanged.
func (s *Static) Mark(text string, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.states {
		if s.states[i].Text == text {
			s.states[i].Selected = selected
		}
	}
}
