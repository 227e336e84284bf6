package chip

import (
	"context"
	"errors"
)

// DefaultText is the canonical "no filter" chip.
const DefaultText = "All"

// ErrEnvironmentUnavailable indicates the chip container could not be read.
var ErrEnvironmentUnavailable = errors.New("environment unavailable")

// Candidate is a chip the environment currently exposes.
type Candidate struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// State is one row of a [Source] snapshot.
type State struct {
	Candidate

	Selected bool `json:"selected"`
}

// Source is the raw chip environment.
type Source interface {
	// Snapshot returns the chips in presentation order.
	Snapshot(ctx context.Context) ([]State, error)
	// Click issues a selection action for the given chip.
	Click(ctx context.Context, c Candidate) error
	// Hide hides the chip container.
	Hide(ctx context.Context) error
}
