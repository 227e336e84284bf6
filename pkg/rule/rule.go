package rule

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/macropower/chipper/pkg/expr"
)

var (
	// ErrInvalid is returned by [TimeRule.Validate].
	ErrInvalid = errors.New("invalid time rule")
	// ErrOverlap is returned when two enabled rules share an active hour.
	ErrOverlap = errors.New("time rules overlap")

	envOnce sync.Once
	env     *expr.Environment
	envErr  error
)

func environment() (*expr.Environment, error) {
	envOnce.Do(func() {
		env, envErr = expr.NewEnvironment()
	})

	return env, envErr
}

// TimeRule is a preference that applies on some days during a range of
// hours.
type TimeRule struct {
	program cel.Program // Compiled When expression, if any.

	// ID identifies the rule.
	ID string `json:"id" jsonschema:"required,title=ID"`
	// Preference is the chip text to select while the rule is active.
	Preference string `json:"preference" jsonschema:"required,title=Preference"`
	// When is an optional CEL condition that must also be true.
	When string `json:"when,omitempty" jsonschema:"title=Condition"`
	// Days lists the weekdays the rule applies on, 0 (Sunday) to 6.
	Days []int `json:"days" jsonschema:"required,title=Days,minItems=1,uniqueItems=true"`
	// StartHour is the first hour of the range, 0-23.
	StartHour int `json:"startHour" jsonschema:"required,title=Start Hour,minimum=0,maximum=23"`
	// EndHour is the hour the range ends before, 0-23.
	EndHour int `json:"endHour" jsonschema:"required,title=End Hour,minimum=0,maximum=23"`
	// Disabled rules are never active.
	Disabled bool `json:"disabled,omitempty" jsonschema:"title=Disabled"`
}

// New creates and validates a [TimeRule].
func New(id, preference string, days []int, startHour, endHour int) (*TimeRule, error) {
	r := &TimeRule{
		ID:         id,
		Preference: preference,
		Days:       days,
		StartHour:  startHour,
		EndHour:    endHour,
	}

	err := r.Validate()
	if err != nil {
		return nil, err
	}

	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(id, preference string, days []int, startHour, endHour int) *TimeRule {
	r, err := New(id, preference, days, startHour, endHour)
	if err != nil {
		panic(err)
	}

	return r
}

// Validate checks the rule's fields and compiles its condition.
func (r *TimeRule) Validate() error {
	var errs []error

	if r.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(r.Preference) == "" {
		errs = append(errs, errors.New("preference is required"))
	}
	if len(r.Days) == 0 {
		errs = append(errs, errors.New("at least one day is required"))
	}

	for _, d := range r.Days {
		if d < 0 || d > 6 {
			errs = append(errs, fmt.Errorf("day %d: must be between 0 and 6", d))
		}
	}

	for name, h := range map[string]int{"startHour": r.StartHour, "endHour": r.EndHour} {
		if h < 0 || h > 23 {
			errs = append(errs, fmt.Errorf("%s %d: must be between 0 and 23", name, h))
		}
	}

	if r.StartHour == r.EndHour {
		errs = append(errs, fmt.Errorf("hours %d-%d: range is empty", r.StartHour, r.EndHour))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalid, r.ID, errors.Join(errs...))
	}

	err := r.Compile()
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalid, r.ID, err)
	}

	return nil
}

// Compile compiles the rule's When expression, if it has one.
func (r *TimeRule) Compile() error {
	if r.When == "" || r.program != nil {
		return nil
	}

	e, err := environment()
	if err != nil {
		return err
	}

	prg, err := e.Compile(r.When)
	if err != nil {
		return fmt.Errorf("when: %w", err)
	}

	r.program = prg

	return nil
}

// Covers reports whether the schedule includes the given weekday and hour,
// ignoring Disabled and When.
func (r *TimeRule) Covers(day time.Weekday, hour int) bool {
	return slices.Contains(r.Days, int(day)) && expr.InHours(hour, r.StartHour, r.EndHour)
}

// ActiveAt reports whether the rule applies at t. A When expression that
// fails to compile or evaluate counts as false.
func (r *TimeRule) ActiveAt(t time.Time) bool {
	if r.Disabled || !r.Covers(t.Weekday(), t.Hour()) {
		return false
	}

	if r.When == "" {
		return true
	}

	if r.Compile() != nil {
		return false
	}

	ok, err := expr.EvalAt(r.program, t)

	return err == nil && ok
}

// Overlaps reports whether a and b share any (weekday, hour) in their
// schedules. Disabled rules overlap nothing. When conditions are not
// considered, so two rules that are mutually exclusive only by condition
// still count as overlapping.
func Overlaps(a, b *TimeRule) bool {
	if a.Disabled || b.Disabled {
		return false
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		for h := range 24 {
			if a.Covers(d, h) && b.Covers(d, h) {
				return true
			}
		}
	}

	return false
}

func (r *TimeRule) String() string {
	days := make([]string, 0, len(r.Days))
	for _, d := range r.Days {
		if d >= 0 && d <= 6 {
			days = append(days, time.Weekday(d).String()[:3])
		}
	}

	s := fmt.Sprintf("%s %02d:00-%02d:00 %s", strings.Join(days, ","), r.StartHour, r.EndHour, r.Preference)
	if r.When != "" {
		s += " when " + r.When
	}

	return s
}
