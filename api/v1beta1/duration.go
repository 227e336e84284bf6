package v1beta1

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
)

// Duration is a [time.Duration] written as a Go duration string, such as
// "1500ms" or "1h".
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) *Duration {
	return &Duration{Duration: d}
}

// Get returns the wrapped duration, or fallback if d is nil.
func (d *Duration) Get(fallback time.Duration) time.Duration {
	if d == nil {
		return fallback
	}

	return d.Duration
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	if v < 0 {
		return fmt.Errorf("duration %q: must not be negative", text)
	}

	d.Duration = v

	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML reads the duration from a string.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string

	err := unmarshal(&s)
	if err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}

	return d.UnmarshalText([]byte(s))
}

// JSONSchema describes [Duration] as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "string",
		Title:    "Duration",
		Pattern:  `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Examples: []any{"500ms", "1.5s", "1h"},
	}
}
