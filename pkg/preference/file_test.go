package preference_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/rule"
)

const header = "apiVersion: " + v1beta1.APIVersion + "\nkind: Preferences\n"

func TestFileStore_MissingFile(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "preferences.yaml")

	s, err := preference.NewFileStore(path)
	require.NoError(t, err)

	global, err := s.GlobalPreference(ctx)
	require.NoError(t, err)
	assert.Empty(t, global)

	require.NoError(t, s.SetGlobal(ctx, "Music"))
	require.NoError(t, s.AddTimeRule(ctx, rule.MustNew("night", "Podcasts", []int{0}, 22, 6)))

	got, err := preferences.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Music", got.Global)
	require.Len(t, got.TimeRules, 1)
}

func TestFileStore_Unavailable(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global: [\n"), 0o600))

	s, err := preference.NewFileStore(path)
	require.ErrorIs(t, err, preference.ErrStoreUnavailable)

	_, err = s.GlobalPreference(ctx)
	require.ErrorIs(t, err, preference.ErrStoreUnavailable)

	_, err = s.ActiveTimePreference(ctx)
	require.ErrorIs(t, err, preference.ErrStoreUnavailable)

	// A broken file is not overwritten.
	err = s.SetGlobal(ctx, "Music")
	require.ErrorIs(t, err, preference.ErrStoreUnavailable)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "global: [\n", string(data))

	require.NoError(t, os.WriteFile(path, []byte(header+"global: News\n"), 0o600))
	require.NoError(t, s.Reload())

	global, err := s.GlobalPreference(ctx)
	require.NoError(t, err)
	assert.Equal(t, "News", global)
}

func TestFileStore_Watch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	path := filepath.Join(t.TempDir(), "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte(header+"global: Music\n"), 0o600))

	s, err := preference.NewFileStore(path)
	require.NoError(t, err)

	var reloads atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(context.Context) {
			reloads.Add(1)
		})
	}()

	// Keep rewriting until the watcher has started and noticed.
	require.Eventually(t, func() bool {
		err := os.WriteFile(path, []byte(header+"global: Gaming\n"), 0o600)
		if err != nil {
			return false
		}

		global, err := s.GlobalPreference(ctx)

		return err == nil && global == "Gaming" && reloads.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestFileStore_WatchMissingDirectory(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	path := filepath.Join(t.TempDir(), "chipper", "preferences.yaml")

	s, err := preference.NewFileStore(path)
	require.NoError(t, err)

	var reloads atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(context.Context) {
			reloads.Add(1)
		})
	}()

	// Another process writes the first preferences file after the watch
	// has started.
	require.Eventually(t, func() bool {
		err := os.WriteFile(path, []byte(header+"global: News\n"), 0o600)
		if err != nil {
			return false
		}

		global, err := s.GlobalPreference(ctx)

		return err == nil && global == "News" && reloads.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
