package preference

import (
	"context"
	"errors"

	"github.com/macropower/chipper/pkg/rule"
)

// ErrStoreUnavailable is returned when preferences cannot be read.
var ErrStoreUnavailable = errors.New("preference store unavailable")

// Source identifies where a resolved preference came from.
type Source string

const (
	// SourceNone means no preference applied.
	SourceNone Source = ""
	// SourceGlobal is the global preference.
	SourceGlobal Source = "global"
	// SourceTime is an active time rule.
	SourceTime Source = "time"
)

// Fallback records a substitute chip that was selected because the preferred
// one was not available. The zero value means no fallback.
type Fallback struct {
	Value  string `json:"value,omitempty"`
	Source Source `json:"source,omitempty"`
}

// IsZero reports whether f is cleared.
func (f Fallback) IsZero() bool {
	return f == Fallback{}
}

// Store provides the preferences an engine applies.
type Store interface {
	// GlobalPreference returns the global preference, or "" when unset.
	GlobalPreference(ctx context.Context) (string, error)
	// ActiveTimePreference returns the time rule active now, or nil.
	ActiveTimePreference(ctx context.Context) (*rule.TimeRule, error)
	// SetTemporaryFallback records or, with the zero value, clears the
	// fallback.
	SetTemporaryFallback(ctx context.Context, f Fallback)
	// TemporaryFallback returns the current fallback.
	TemporaryFallback() Fallback
}
