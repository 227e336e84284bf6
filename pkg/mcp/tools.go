package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/engine"
	"github.com/macropower/chipper/pkg/preference"
)

// GetCandidatesParams defines parameters for the get_candidates tool.
type GetCandidatesParams struct{}

// GetCandidatesResult contains the result of listing candidates.
type GetCandidatesResult struct {
	Message                 string            `json:"message"`
	TemporaryFallback       string            `json:"temporaryFallback,omitempty"`
	TemporaryFallbackSource preference.Source `json:"temporaryFallbackSource,omitempty"`
	Candidates              []chip.Candidate  `json:"candidates"`
}

// SelectCandidateParams defines parameters for the select_candidate tool.
type SelectCandidateParams struct {
	Text     string `json:"text" jsonschema:"the exact text of the chip to select"`
	Remember bool   `json:"remember,omitempty" jsonschema:"also save the chip as the global preference"`
}

// SelectCandidateResult contains the result of selecting a candidate.
type SelectCandidateResult struct {
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	Remembered bool   `json:"remembered"`
}

func (s *Server) handleGetCandidates(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetCandidatesParams,
) (*mcp.CallToolResult, GetCandidatesResult, error) {
	resp, err := s.handler.Handle(ctx, engine.GetCandidates{})
	if err != nil {
		return nil, GetCandidatesResult{}, fmt.Errorf("get candidates: %w", err)
	}

	cr, ok := resp.(engine.CandidatesResponse)
	if !ok {
		return nil, GetCandidatesResult{}, fmt.Errorf("get candidates: unexpected response %T", resp)
	}

	result := GetCandidatesResult{
		Candidates:              cr.Candidates,
		TemporaryFallback:       cr.TemporaryFallback,
		TemporaryFallbackSource: cr.TemporaryFallbackSource,
	}

	texts := make([]string, 0, len(cr.Candidates))
	for _, c := range cr.Candidates {
		texts = append(texts, c.Text)
	}

	result.Message = fmt.Sprintf("Found %d chips.", len(texts))
	if len(texts) > 0 {
		result.Message += " " + strings.Join(texts, ", ") + "."
	}
	if cr.TemporaryFallback != "" {
		result.Message += fmt.Sprintf(" Showing %q in place of the %s preference.",
			cr.TemporaryFallback, cr.TemporaryFallbackSource)
	}

	return textResult(result.Message), result, nil
}

func (s *Server) handleSelectCandidate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	params SelectCandidateParams,
) (*mcp.CallToolResult, SelectCandidateResult, error) {
	if params.Text == "" {
		return nil, SelectCandidateResult{}, fmt.Errorf("select candidate: %w", engine.ErrCandidateNotFound)
	}

	result := SelectCandidateResult{}

	if params.Remember {
		err := s.remember(ctx, params.Text)
		if err != nil {
			return nil, SelectCandidateResult{}, fmt.Errorf("remember %q: %w", params.Text, err)
		}

		result.Remembered = true
	}

	resp, err := s.handler.Handle(ctx, engine.SelectCandidate{
		Text:                   params.Text,
		ClearTemporaryFallback: params.Remember,
	})
	if err != nil {
		return nil, SelectCandidateResult{}, fmt.Errorf("select candidate: %w", err)
	}

	sr, ok := resp.(engine.SelectResponse)
	if !ok {
		return nil, SelectCandidateResult{}, fmt.Errorf("select candidate: unexpected response %T", resp)
	}

	result.Success = sr.Success

	switch {
	case sr.Success:
		result.Message = fmt.Sprintf("Selected %q.", params.Text)
	default:
		result.Message = fmt.Sprintf("Could not select %q; it is not on the page.", params.Text)
	}
	if result.Remembered {
		result.Message += fmt.Sprintf(" Saved %q as the global preference.", params.Text)
	}

	return textResult(result.Message), result, nil
}

func (s *Server) remember(ctx context.Context, text string) error {
	if s.prefs == nil {
		return ErrNoPreferences
	}

	active, err := s.prefs.ActiveTimePreference(ctx)
	if err != nil {
		return fmt.Errorf("read time rules: %w", err)
	}
	if active != nil {
		return fmt.Errorf("%w: %s", ErrTimeRuleActive, active)
	}

	err = s.prefs.SetGlobal(ctx, text)
	if err != nil {
		return fmt.Errorf("set global preference: %w", err)
	}

	return nil
}

func textResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
