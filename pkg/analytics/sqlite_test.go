package analytics_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/pkg/analytics"
)

func TestSQLiteSink(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "state", "events.db")

	_, err := analytics.OpenSQLite(ctx, "  ")
	require.Error(t, err)

	s, err := analytics.OpenSQLite(ctx, path)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	usage := func(id, text, source string, seconds int, at time.Time) analytics.Event {
		return analytics.Event{
			ID:        id,
			UserID:    "user",
			Kind:      analytics.KindUsage,
			Version:   "test",
			CreatedAt: at,
			Data: analytics.Payload{
				analytics.KeyChipText:        text,
				analytics.KeyChipSource:      source,
				analytics.KeyDurationSeconds: seconds,
			},
		}
	}

	for _, evt := range []analytics.Event{
		usage("1", "Music", analytics.ChipSourceManual, 30, start),
		usage("2", "Music", analytics.ChipSourceManual, 90, start.Add(time.Hour)),
		usage("3", "News", analytics.ChipSourceTimePref, 600, start.Add(2*time.Hour)),
		usage("4", "Old", "", 1000, start.Add(-time.Hour)),
		{ID: "5", Kind: analytics.KindSearch, CreatedAt: start, Data: analytics.Payload{analytics.KeySearchQuery: "go"}},
	} {
		require.NoError(t, s.Write(ctx, evt))
	}

	// Duplicate IDs are rejected.
	err = s.Write(ctx, usage("1", "Music", "", 1, start))
	require.ErrorIs(t, err, analytics.ErrLoggingFailure)

	got, err := s.Usage(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, []analytics.Usage{
		{ChipText: "News", ChipSource: analytics.ChipSourceTimePref, Sessions: 1, Total: 10 * time.Minute},
		{ChipText: "Music", ChipSource: analytics.ChipSourceManual, Sessions: 2, Total: 2 * time.Minute},
	}, got)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[analytics.Kind]int{analytics.KindUsage: 4, analytics.KindSearch: 1}, counts)
}

func TestSQLiteSink_Memory(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	s, err := analytics.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)

	defer s.Close()

	require.NoError(t, s.Write(ctx, analytics.Event{ID: "a", Kind: analytics.KindError, CreatedAt: time.Now()}))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[analytics.KindError])
}
