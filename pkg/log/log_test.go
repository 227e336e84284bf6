package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/chipper/pkg/log"
)

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level   string
		format  string
		wantErr bool
	}{
		"json":           {level: "info", format: "json"},
		"logfmt":         {level: "debug", format: "logfmt"},
		"text":           {level: "warn", format: "text"},
		"warning alias":  {level: "WARNING", format: "json"},
		"unknown level":  {level: "loud", format: "json", wantErr: true},
		"unknown format": {level: "info", format: "xml", wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, err := log.CreateHandlerWithStrings(&bytes.Buffer{}, tc.level, tc.format)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrInvalidArgument)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(log.CreateHandler(buf, slog.LevelInfo, log.FormatJSON))

	ctx := log.NewContext(context.Background(), logger)
	log.WithContext(ctx).InfoContext(ctx, "stored logger")
	assert.Contains(t, buf.String(), "stored logger")
	assert.NotContains(t, buf.String(), "trace_id")

	buf.Reset()

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(ctx, "span")
	defer span.End()

	log.WithContext(ctx).InfoContext(ctx, "traced")
	assert.Contains(t, buf.String(), `"trace_id"`)
}

func TestCreateHandler_Attributes(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(log.CreateHandler(buf, slog.LevelDebug, log.FormatJSON))

	logger.Debug("waited", slog.Duration("delay", 1500*time.Millisecond))

	var record struct {
		Source string `json:"source"`
		Delay  string `json:"delay"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "1.5s", record.Delay)
	assert.Regexp(t, `^log/log_test\.go:\d+$`, record.Source)
}

func TestGetLevel(t *testing.T) {
	t.Parallel()

	lvl, err := log.GetLevel("Debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, err = log.GetLevel("trace")
	require.ErrorIs(t, err, log.ErrUnknownLogLevel)
	assert.ErrorContains(t, err, `"trace"`)
}
