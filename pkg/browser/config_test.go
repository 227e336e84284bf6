package browser_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/pkg/browser"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	c := browser.NewConfig()
	assert.Equal(t, browser.DefaultURL, c.URL)
	assert.Equal(t, browser.DefaultPollInterval, c.PollInterval.Duration)
	assert.False(t, c.IsHeadless())
	assert.Equal(t, "yt-chip-cloud-chip-renderer", c.Selectors.Chip)
	assert.Equal(t, `form[action="/results"]`, c.Selectors.SearchForm)
	require.NoError(t, c.Validate())
}

func TestConfig_KeepsSelectors(t *testing.T) {
	t.Parallel()

	c := &browser.Config{Selectors: &browser.Selectors{Chip: "button.chip"}}
	c.EnsureDefaults()

	assert.Equal(t, "button.chip", c.Selectors.Chip)
	assert.Equal(t, "ytd-feed-filter-chip-bar-renderer", c.Selectors.ChipContainer)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cfg *browser.Config
		err bool
	}{
		"defaults": {
			cfg: &browser.Config{},
		},
		"relative url": {
			cfg: &browser.Config{URL: "/feed"},
			err: true,
		},
		"zero poll interval": {
			cfg: &browser.Config{PollInterval: v1beta1.NewDuration(0)},
			err: true,
		},
		"unterminated args": {
			cfg: &browser.Config{Args: `--user-data-dir="/tmp/x`},
			err: true,
		},
		"args": {
			cfg: &browser.Config{Args: `--window-size=1280,720 --mute-audio`},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if tc.cfg.PollInterval == nil {
				tc.cfg.PollInterval = v1beta1.NewDuration(time.Second)
			}

			err := tc.cfg.Validate()
			if tc.err {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestConfig_LaunchArgs(t *testing.T) {
	t.Parallel()

	c := &browser.Config{Args: `--user-data-dir="/tmp/chrome profile" --mute-audio`}

	args, err := c.LaunchArgs()
	require.NoError(t, err)
	assert.Equal(t, []string{"--user-data-dir=/tmp/chrome profile", "--mute-audio"}, args)
}
