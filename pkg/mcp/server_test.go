package mcp_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/engine"
	"github.com/macropower/chipper/pkg/mcp"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/rule"
)

// monday is 2024-01-01 10:00 UTC, a Monday.
var monday = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	src     *chip.Static
	store   *preference.Memory
	session *sdk.ClientSession
}

func newHarness(t *testing.T, prefs *preferences.Preferences, remember bool) *harness {
	t.Helper()

	ctx := t.Context()
	clock := clockwork.NewFakeClockAt(monday)

	if prefs == nil {
		prefs = preferences.New()
	}

	h := &harness{
		src:   chip.NewStatic("All", "Music", "News"),
		store: preference.NewMemory(preference.WithClock(clock), preference.WithPreferences(prefs)),
	}

	ctrl := engine.NewController(chip.NewRegistry(h.src), h.store, engine.WithClock(clock))
	t.Cleanup(func() { ctrl.Close(ctx) })

	var opts []mcp.ServerOpt
	if remember {
		opts = append(opts, mcp.WithPreferences(h.store))
	}

	srv := mcp.NewServer(ctrl, opts...)

	serverTransport, clientTransport := sdk.NewInMemoryTransports()

	serverSession, err := srv.Server().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "client", Version: "v0.0.1"}, nil)

	h.session, err = client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.session.Close() })

	return h
}

func callTool[T any](t *testing.T, h *harness, name string, args map[string]any) (T, *sdk.CallToolResult) {
	t.Helper()

	var out T

	res, err := h.session.CallTool(t.Context(), &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)

	if res.IsError || res.StructuredContent == nil {
		return out, res
	}

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))

	return out, res
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, false)

	res, err := h.session.ListTools(t.Context(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}

	assert.ElementsMatch(t, []string{"get_candidates", "select_candidate"}, names)
}

func TestServer_GetCandidates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, false)
	h.store.SetTemporaryFallback(t.Context(), preference.Fallback{Value: "Music", Source: preference.SourceGlobal})

	out, res := callTool[mcp.GetCandidatesResult](t, h, "get_candidates", map[string]any{})
	require.False(t, res.IsError)

	assert.Equal(t, []chip.Candidate{
		{Text: "All", Position: 0},
		{Text: "Music", Position: 1},
		{Text: "News", Position: 2},
	}, out.Candidates)
	assert.Equal(t, "Music", out.TemporaryFallback)
	assert.Equal(t, preference.SourceGlobal, out.TemporaryFallbackSource)
	assert.Contains(t, out.Message, "Found 3 chips")

	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	assert.Equal(t, out.Message, text.Text)
}

func TestServer_SelectCandidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		prefs      *preferences.Preferences
		args       map[string]any
		wantGlobal string
		wantClicks []string
		remember   bool
		wantError  bool
		wantOK     bool
	}{
		"select": {
			args:       map[string]any{"text": "Music"},
			wantClicks: []string{"Music"},
			wantOK:     true,
		},
		"missing chip": {
			args: map[string]any{"text": "Gaming"},
		},
		"empty text": {
			args:      map[string]any{"text": ""},
			wantError: true,
		},
		"remember": {
			args:       map[string]any{"text": "News", "remember": true},
			remember:   true,
			wantGlobal: "News",
			wantClicks: []string{"News"},
			wantOK:     true,
		},
		"remember without store": {
			args:      map[string]any{"text": "News", "remember": true},
			wantError: true,
		},
		"remember during time rule": {
			prefs: &preferences.Preferences{
				TimeRules: rule.Set{rule.MustNew("work", "News", []int{1}, 9, 17)},
			},
			args:      map[string]any{"text": "Music", "remember": true},
			remember:  true,
			wantError: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tc.prefs, tc.remember)

			out, res := callTool[mcp.SelectCandidateResult](t, h, "select_candidate", tc.args)
			if tc.wantError {
				assert.True(t, res.IsError)
				assert.Empty(t, h.src.Clicks())

				return
			}

			require.False(t, res.IsError)
			assert.Equal(t, tc.wantOK, out.Success)
			assert.Equal(t, tc.remember, out.Remembered)
			assert.Equal(t, tc.wantClicks, h.src.Clicks())

			global, err := h.store.GlobalPreference(t.Context())
			require.NoError(t, err)
			assert.Equal(t, tc.wantGlobal, global)
		})
	}
}
