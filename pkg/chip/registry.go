package chip

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/macropower/chipper/pkg/log"
)

// Registry is a read adapter over a [Source].
type Registry struct {
	src         Source
	defaultText string
}

// RegistryOpt configures a [Registry].
type RegistryOpt func(*Registry)

// WithDefaultText overrides [DefaultText] for exclusivity checks.
func WithDefaultText(text string) RegistryOpt {
	return func(r *Registry) {
		r.defaultText = text
	}
}

// NewRegistry creates a new [Registry].
func NewRegistry(src Source, opts ...RegistryOpt) *Registry {
	r := &Registry{
		src:         src,
		defaultText: DefaultText,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// snapshot reads the source, dropping empty and duplicate texts. The first
// occurrence of a text wins, and positions are kept as reported.
func (r *Registry) snapshot(ctx context.Context) ([]State, error) {
	states, err := r.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvironmentUnavailable, err)
	}

	seen := make(map[string]bool, len(states))
	out := make([]State, 0, len(states))

	for _, s := range states {
		if s.Text == "" || seen[s.Text] {
			continue
		}

		seen[s.Text] = true
		out = append(out, s)
	}

	return out, nil
}

// ListCandidates returns the current chips in presentation order. An
// unavailable environment is reported as zero candidates.
func (r *Registry) ListCandidates(ctx context.Context) []Candidate {
	states, err := r.snapshot(ctx)
	if err != nil {
		log.WithContext(ctx).DebugContext(ctx, "list candidates", slog.Any("error", err))
		return nil
	}

	out := make([]Candidate, 0, len(states))
	for _, s := range states {
		out = append(out, s.Candidate)
	}

	return out
}

// IsSelected reports whether the chip with the given text is selected. The
// default chip is never selected while any other chip is.
func (r *Registry) IsSelected(ctx context.Context, text string) bool {
	states, err := r.snapshot(ctx)
	if err != nil {
		log.WithContext(ctx).DebugContext(ctx, "check selection", slog.Any("error", err))
		return false
	}

	return isSelected(states, text, r.defaultText)
}

// Selected returns the chip that is currently selected, if any.
func (r *Registry) Selected(ctx context.Context) (Candidate, bool) {
	states, err := r.snapshot(ctx)
	if err != nil {
		log.WithContext(ctx).DebugContext(ctx, "read selection", slog.Any("error", err))
		return Candidate{}, false
	}

	for _, s := range states {
		if isSelected(states, s.Text, r.defaultText) {
			return s.Candidate, true
		}
	}

	return Candidate{}, false
}

// SelectCandidate clicks the chip with the given text. It returns true if the
// chip exists and an action was issued, or if it is already selected. The
// default chip is always clicked.
func (r *Registry) SelectCandidate(ctx context.Context, text string) bool {
	logger := log.WithContext(ctx)

	states, err := r.snapshot(ctx)
	if err != nil {
		logger.DebugContext(ctx, "select candidate", slog.Any("error", err))
		return false
	}

	for _, s := range states {
		if s.Text != text {
			continue
		}

		if text != r.defaultText && isSelected(states, text, r.defaultText) {
			logger.DebugContext(ctx, "candidate already selected", slog.String("text", text))
			return true
		}

		err := r.src.Click(ctx, s.Candidate)
		if err != nil {
			logger.WarnContext(ctx, "click candidate",
				slog.String("text", text),
				slog.Any("error", err),
			)

			return false
		}

		return true
	}

	return false
}

// Hide hides the chip container.
func (r *Registry) Hide(ctx context.Context) {
	err := r.src.Hide(ctx)
	if err != nil {
		log.WithContext(ctx).DebugContext(ctx, "hide chips", slog.Any("error", err))
	}
}

func isSelected(states []State, text, defaultText string) bool {
	if text == defaultText {
		for _, s := range states {
			if s.Text != defaultText && s.Selected {
				return false
			}
		}
	}

	for _, s := range states {
		if s.Text == text {
			return s.Selected
		}
	}

	return false
}
