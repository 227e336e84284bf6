package chip_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/chipper/pkg/chip"
)

func TestRegistry_ListCandidates(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err   error
		texts []string
		want  []chip.Candidate
	}{
		"presentation order": {
			texts: []string{"All", "Gaming", "Music"},
			want: []chip.Candidate{
				{Text: "All", Position: 0},
				{Text: "Gaming", Position: 1},
				{Text: "Music", Position: 2},
			},
		},
		"duplicates and empty texts dropped": {
			texts: []string{"All", "", "Music", "All"},
			want: []chip.Candidate{
				{Text: "All", Position: 0},
				{Text: "Music", Position: 2},
			},
		},
		"environment unavailable": {
			texts: []string{"All"},
			err:   errors.New("no container"),
			want:  []chip.Candidate{},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := chip.NewStatic(tc.texts...)
			src.SetError(tc.err)

			got := chip.NewRegistry(src).ListCandidates(t.Context())
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRegistry_IsSelected(t *testing.T) {
	t.Parallel()

	src := chip.NewStatic("All", "Gaming", "Music")
	reg := chip.NewRegistry(src)

	assert.True(t, reg.IsSelected(t.Context(), "All"))
	assert.False(t, reg.IsSelected(t.Context(), "Gaming"))

	// Both marked, as some pages leave the default highlighted.
	src.Mark("Gaming", true)

	assert.False(t, reg.IsSelected(t.Context(), "All"))
	assert.True(t, reg.IsSelected(t.Context(), "Gaming"))
	assert.False(t, reg.IsSelected(t.Context(), "Podcasts"))

	got, ok := reg.Selected(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Gaming", got.Text)
}

func TestRegistry_SelectCandidate(t *testing.T) {
	t.Parallel()

	src := chip.NewStatic("All", "Gaming", "Music")
	reg := chip.NewRegistry(src)
	ctx := t.Context()

	assert.True(t, reg.SelectCandidate(ctx, "Gaming"))
	assert.True(t, reg.IsSelected(ctx, "Gaming"))

	// Already selected: no second click.
	assert.True(t, reg.SelectCandidate(ctx, "Gaming"))

	// The default is always clicked.
	assert.True(t, reg.SelectCandidate(ctx, "All"))
	assert.True(t, reg.SelectCandidate(ctx, "All"))

	assert.False(t, reg.SelectCandidate(ctx, "Podcasts"))
	assert.Equal(t, []string{"Gaming", "All", "All"}, src.Clicks())

	src.SetError(errors.New("detached"))
	assert.False(t, reg.SelectCandidate(ctx, "Music"))
}

func TestRegistry_Hide(t *testing.T) {
	t.Parallel()

	src := chip.NewStatic("All")
	chip.NewRegistry(src).Hide(t.Context())

	assert.True(t, src.Hidden())
}

func TestRegistry_WithDefaultText(t *testing.T) {
	t.Parallel()

	src := chip.NewStatic("Todos", "Música")
	src.Mark("Música", true)

	reg := chip.NewRegistry(src, chip.WithDefaultText("Todos"))

	assert.False(t, reg.IsSelected(t.Context(), "Todos"))
}
