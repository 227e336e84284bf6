// Package log builds [slog.Handler]s for chipper and carries loggers through
// a [context.Context].
package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"go.opentelemetry.io/otel/trace"

	charmlog "github.com/charmbracelet/log"
)

type (
	Format string
	Level  string

	contextKey string
)

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
	FormatText   Format = "text"

	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"

	loggerContextKey contextKey = "logger"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")

	AllFormats = []string{
		string(FormatJSON),
		string(FormatLogfmt),
		string(FormatText),
	}
	AllLevels = []string{
		string(LevelError),
		string(LevelWarn),
		string(LevelInfo),
		string(LevelDebug),
	}
)

// levels maps every accepted level name to its [slog.Level].
var levels = map[Level]slog.Level{
	LevelError: slog.LevelError,
	LevelWarn:  slog.LevelWarn,
	"warning":  slog.LevelWarn,
	LevelInfo:  slog.LevelInfo,
	LevelDebug: slog.LevelDebug,
}

// CreateHandlerWithStrings creates a [slog.Handler] from a level and format
// name, as given on the command line.
func CreateHandlerWithStrings(w io.Writer, logLevel, logFormat string) (slog.Handler, error) {
	logLvl, err := GetLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	logFmt, err := GetFormat(logFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return CreateHandler(w, logLvl, logFmt), nil
}

// CreateHandler creates a [slog.Handler] for the given level and format. It
// returns nil for an unknown format; use [GetFormat] to validate first.
//
// Structured formats report the source as file:line relative to its
// package directory, and durations as strings such as "1.5s".
func CreateHandler(w io.Writer, logLvl slog.Level, logFmt Format) slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource:   true,
		Level:       logLvl,
		ReplaceAttr: replaceAttr,
	}

	switch logFmt {
	case FormatJSON:
		return slog.NewJSONHandler(w, opts)
	case FormatLogfmt:
		return slog.NewTextHandler(w, opts)
	case FormatText:
		return newCharmLogHandler(w, logLvl)
	}

	return nil
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch v := a.Value.Any().(type) {
	case *slog.Source:
		dir, file := filepath.Split(v.File)
		a.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Join(filepath.Base(dir), file), v.Line))
	case time.Duration:
		a.Value = slog.StringValue(v.String())
	}

	return a
}

// GetLevel parses a level name, case-insensitively.
func GetLevel(level string) (slog.Level, error) {
	lvl, ok := levels[Level(strings.ToLower(level))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, level)
	}

	return lvl, nil
}

// GetFormat parses a format name, case-insensitively.
func GetFormat(format string) (Format, error) {
	logFmt := Format(strings.ToLower(format))
	if !slices.Contains(AllFormats, string(logFmt)) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLogFormat, format)
	}

	return logFmt, nil
}

func newCharmLogHandler(w io.Writer, level slog.Level) slog.Handler {
	//nolint:gosec // G115: input from GetLevel.
	lvl := int32(level)

	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		Formatter:       charmlog.TextFormatter,
		ReportTimestamp: true,
		ReportCaller:    level <= slog.LevelDebug,
		TimeFormat:      time.TimeOnly,
	})
	logger.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())

	return logger
}

// NewContext returns a copy of ctx carrying logger. [WithContext] prefers it
// over the default logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// WithContext returns the logger for ctx: the logger stored by [NewContext],
// or the default logger. Either way, the active span's trace ID is attached.
func WithContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerContextKey).(*slog.Logger)
	if !ok {
		logger = slog.Default()
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}

	traceID := span.SpanContext().TraceID().String()
	if len(traceID) > 8 {
		traceID = traceID[:8]
	}

	return logger.With(slog.String("trace_id", traceID))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
