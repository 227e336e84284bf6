package engine

import "time"

// Phase is the controller's position in its application cycle.
type Phase int

const (
	// PhaseIdle means no application has run since start or navigation.
	PhaseIdle Phase = iota
	// PhaseCooldownBlocked means the last application was suppressed by
	// the cooldown.
	PhaseCooldownBlocked
	// PhaseResolving means an application is in progress.
	PhaseResolving
	// PhaseApplied means the last application completed.
	PhaseApplied
	// PhaseClosed means the controller has shut down.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCooldownBlocked:
		return "cooldown-blocked"
	case PhaseResolving:
		return "resolving"
	case PhaseApplied:
		return "applied"
	case PhaseClosed:
		return "closed"
	}

	return "unknown"
}

// State is the controller's mutable state.
type State struct {
	// LastAppliedAt is when the last application started.
	LastAppliedAt time.Time
	// ExternalActionInFlight is set briefly after each programmatic
	// selection, so that the page's reaction to it is ignored.
	ExternalActionInFlight bool
	// AppliedThisPage is set once a preference has been applied on the
	// current page, and cleared by navigation.
	AppliedThisPage bool
}
