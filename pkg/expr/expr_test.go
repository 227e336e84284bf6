package expr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/pkg/expr"
)

func TestEnvironment_Compile(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment()

	tcs := map[string]struct {
		expression string
		wantErr    bool
	}{
		"bool":          {expression: `hour >= 9`},
		"weekday const": {expression: `weekday in [SATURDAY, SUNDAY]`},
		"function":      {expression: `inHours(hour, 22, 6)`},
		"timestamp":     {expression: `now.getMonth() == 11`},
		"strings ext":   {expression: `"abc".upperAscii() == "ABC"`},
		"not bool":      {expression: `hour + 1`, wantErr: true},
		"unknown var":   {expression: `files.exists(f, true)`, wantErr: true},
		"syntax":        {expression: `hour >=`, wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			prg, err := env.Compile(tc.expression)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, prg)
		})
	}
}

func TestEvalAt(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment()

	// Saturday, 23:45 UTC.
	at := time.Date(2025, time.December, 13, 23, 45, 0, 0, time.UTC)

	tcs := map[string]struct {
		expression string
		want       bool
	}{
		"weekend":          {expression: `weekday in [SATURDAY, SUNDAY]`, want: true},
		"weekday":          {expression: `weekday == MONDAY`, want: false},
		"overnight":        {expression: `inHours(hour, 22, 6)`, want: true},
		"daytime":          {expression: `inHours(hour, 9, 17)`, want: false},
		"minute":           {expression: `minute >= 30`, want: true},
		"december (0-idx)": {expression: `now.getMonth() == 11`, want: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			prg, err := env.Compile(tc.expression)
			require.NoError(t, err)

			got, err := expr.EvalAt(prg, at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInHours(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		start, end int
		in         []int
		out        []int
	}{
		"same day":  {start: 9, end: 17, in: []int{9, 12, 16}, out: []int{8, 17, 23, 0}},
		"overnight": {start: 22, end: 6, in: []int{22, 23, 0, 2, 5}, out: []int{6, 10, 21}},
		"empty":     {start: 8, end: 8, out: []int{0, 7, 8, 9, 23}},
		"to end":    {start: 20, end: 0, in: []int{20, 23}, out: []int{0, 19}},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			for _, h := range tc.in {
				assert.True(t, expr.InHours(h, tc.start, tc.end), "hour %d", h)
			}

			for _, h := range tc.out {
				assert.False(t, expr.InHours(h, tc.start, tc.end), "hour %d", h)
			}
		})
	}
}
