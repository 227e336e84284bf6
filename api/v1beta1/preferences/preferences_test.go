package preferences_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/rule"
)

const header = "apiVersion: " + v1beta1.APIVersion + "\nkind: Preferences\n"

func TestParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		check func(t *testing.T, p *preferences.Preferences)
		input string
		err   string
	}{
		"empty": {
			input: header,
			check: func(t *testing.T, p *preferences.Preferences) {
				t.Helper()
				assert.Empty(t, p.Global)
				assert.Empty(t, p.TimeRules)
			},
		},
		"global and rules": {
			input: header + `global: Music
timeRules:
  - id: work
    preference: Programming
    days: [1, 2, 3, 4, 5]
    startHour: 9
    endHour: 17
  - id: night
    preference: Podcasts
    days: [0, 6]
    startHour: 22
    endHour: 6
    when: minute < 45
`,
			check: func(t *testing.T, p *preferences.Preferences) {
				t.Helper()
				assert.Equal(t, "Music", p.Global)
				require.Len(t, p.TimeRules, 2)
				assert.Equal(t, "night", p.TimeRules[1].ID)
				assert.Equal(t, "minute < 45", p.TimeRules[1].When)
			},
		},
		"wrong kind": {
			input: "apiVersion: " + v1beta1.APIVersion + "\nkind: Configuration\n",
			err:   "kind",
		},
		"hour out of range": {
			input: header + `timeRules:
  - id: bad
    preference: Music
    days: [1]
    startHour: 9
    endHour: 25
`,
			err: "endHour",
		},
		"missing preference": {
			input: header + `timeRules:
  - id: bad
    days: [1]
    startHour: 9
    endHour: 10
`,
			err: "preference",
		},
		"overlapping rules": {
			input: header + `timeRules:
  - id: a
    preference: Music
    days: [1]
    startHour: 9
    endHour: 12
  - id: b
    preference: News
    days: [1]
    startHour: 11
    endHour: 13
`,
			err: "overlap",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p, err := preferences.Parse([]byte(tc.input))
			if tc.err != "" {
				require.ErrorContains(t, err, tc.err)

				return
			}

			require.NoError(t, err)
			tc.check(t, p)
		})
	}
}

func TestWriteLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "preferences.yaml")

	p := preferences.New()
	p.Global = "Gaming"
	p.TimeRules = rule.Set{rule.MustNew("evening", "Music", []int{5}, 18, 23)}

	require.NoError(t, p.Write(path))

	got, err := preferences.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Gaming", got.Global)
	require.Len(t, got.TimeRules, 1)
	assert.Equal(t, "evening", got.TimeRules[0].ID)
	assert.Equal(t, 18, got.TimeRules[0].StartHour)
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := preferences.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestClone(t *testing.T) {
	t.Parallel()

	p := preferences.New()
	p.TimeRules = rule.Set{rule.MustNew("a", "Music", []int{1}, 1, 2)}

	c := p.Clone()
	c.TimeRules = append(c.TimeRules[:0], rule.MustNew("b", "News", []int{2}, 1, 2))

	assert.Equal(t, "a", p.TimeRules[0].ID)
}
