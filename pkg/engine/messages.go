package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/macropower/chipper/pkg/analytics"
	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/session"
)

// ErrUnknownRequest is returned by [Controller.Handle] for request types it
// does not know.
var ErrUnknownRequest = errors.New("unknown request")

// Request is a message to the controller. It is one of [GetCandidates] or
// [SelectCandidate].
type Request interface {
	request()
}

// Response is the controller's reply to a [Request]. It is one of
// [CandidatesResponse] or [SelectResponse].
type Response interface {
	response()
}

// GetCandidates asks for the available chips.
type GetCandidates struct{}

// SelectCandidate asks the controller to select a chip on the user's
// behalf.
type SelectCandidate struct {
	Text                   string `json:"text"`
	ClearTemporaryFallback bool   `json:"clearTemporaryFallback,omitempty"`
}

// CandidatesResponse answers [GetCandidates].
type CandidatesResponse struct {
	TemporaryFallback       string            `json:"temporaryFallback,omitempty"`
	TemporaryFallbackSource preference.Source `json:"temporaryFallbackSource,omitempty"`
	Candidates              []chip.Candidate  `json:"candidates"`
}

// SelectResponse answers [SelectCandidate].
type SelectResponse struct {
	Success bool `json:"success"`
}

func (GetCandidates) request()   {}
func (SelectCandidate) request() {}

func (CandidatesResponse) response() {}
func (SelectResponse) response()     {}

// Handle answers a request.
//
//nolint:ireturn // Closed set of response variants.
func (c *Controller) Handle(ctx context.Context, req Request) (Response, error) {
	switch r := req.(type) {
	case GetCandidates:
		return c.Candidates(ctx), nil
	case *GetCandidates:
		return c.Candidates(ctx), nil
	case SelectCandidate:
		return c.Select(ctx, r.Text, r.ClearTemporaryFallback), nil
	case *SelectCandidate:
		return c.Select(ctx, r.Text, r.ClearTemporaryFallback), nil
	}

	return nil, fmt.Errorf("%w: %T", ErrUnknownRequest, req)
}

// Candidates lists the available chips along with the temporary fallback.
func (c *Controller) Candidates(ctx context.Context) CandidatesResponse {
	fallback := c.store.TemporaryFallback()

	candidates := c.env.ListCandidates(ctx)
	if candidates == nil {
		candidates = []chip.Candidate{}
	}

	return CandidatesResponse{
		Candidates:              candidates,
		TemporaryFallback:       fallback.Value,
		TemporaryFallbackSource: fallback.Source,
	}
}

// Select selects text on the user's behalf. Unlike [Controller.Apply], it
// ignores the in-flight guard and the cooldown, and a successful selection
// opens a manual session.
func (c *Controller) Select(ctx context.Context, text string, clearFallback bool) SelectResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseClosed || text == "" {
		return SelectResponse{}
	}

	c.state.ExternalActionInFlight = false
	c.state.AppliedThisPage = false

	if clearFallback {
		c.store.SetTemporaryFallback(ctx, preference.Fallback{})
	}

	if !c.selectLocked(ctx, text) {
		log.WithContext(ctx).InfoContext(ctx, "select candidate",
			slog.String("chip", text),
			slog.Any("error", ErrCandidateNotFound),
		)

		return SelectResponse{}
	}

	c.recorder.Record(ctx, analytics.KindManualSelected, analytics.Payload{
		analytics.KeyChipText: text,
		analytics.KeySource:   analytics.ChipSourceManual,
	})
	c.startSession(ctx, text, session.SourceManual)

	return SelectResponse{Success: true}
}
