package rule

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrNotFound is returned when no rule has the requested ID.
var ErrNotFound = errors.New("time rule not found")

// Set is an ordered collection of [TimeRule]s in which no two enabled rules
// overlap.
type Set []*TimeRule

// Active returns the first rule active at t, or nil.
func (s Set) Active(t time.Time) *TimeRule {
	for _, r := range s {
		if r.ActiveAt(t) {
			return r
		}
	}

	return nil
}

// Get returns the rule with the given ID.
func (s Set) Get(id string) (*TimeRule, error) {
	idx := s.index(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return s[idx], nil
}

// Validate validates every rule, and checks that IDs are unique and no two
// enabled rules overlap.
func (s Set) Validate() error {
	for i, r := range s {
		err := r.Validate()
		if err != nil {
			return err
		}

		for _, other := range s[:i] {
			if other.ID == r.ID {
				return fmt.Errorf("%w %q: duplicate id", ErrInvalid, r.ID)
			}

			if Overlaps(other, r) {
				return fmt.Errorf("%w: %q and %q", ErrOverlap, other.ID, r.ID)
			}
		}
	}

	return nil
}

// Add returns a copy of s with r appended. It fails if r is invalid, its ID is
// taken, or it overlaps an enabled rule.
func (s Set) Add(r *TimeRule) (Set, error) {
	if s.index(r.ID) >= 0 {
		return nil, fmt.Errorf("%w %q: duplicate id", ErrInvalid, r.ID)
	}

	return s.put(-1, r)
}

// Update returns a copy of s with the rule of the same ID replaced by r.
func (s Set) Update(r *TimeRule) (Set, error) {
	idx := s.index(r.ID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, r.ID)
	}

	return s.put(idx, r)
}

// Delete returns a copy of s without the rule with the given ID.
func (s Set) Delete(id string) (Set, error) {
	idx := s.index(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return slices.Delete(slices.Clone(s), idx, idx+1), nil
}

// put validates r against every rule except the one at skip, then stores it
// there (or appends it when skip is negative).
func (s Set) put(skip int, r *TimeRule) (Set, error) {
	err := r.Validate()
	if err != nil {
		return nil, err
	}

	for i, other := range s {
		if i != skip && Overlaps(other, r) {
			return nil, fmt.Errorf("%w: %q and %q", ErrOverlap, other.ID, r.ID)
		}
	}

	out := slices.Clone(s)
	if skip < 0 {
		return append(out, r), nil
	}

	out[skip] = r

	return out, nil
}

func (s Set) index(id string) int {
	return slices.IndexFunc(s, func(r *TimeRule) bool {
		return r.ID == id
	})
}
