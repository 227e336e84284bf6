package analytics

import (
	"context"
	"errors"
	"log/slog"
)

// LogSink writes events to a logger.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a [LogSink] that logs at level.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	return &LogSink{logger: logger, level: level}
}

// Write implements [Sink].
func (s *LogSink) Write(ctx context.Context, evt Event) error {
	attrs := make([]slog.Attr, 0, len(evt.Data)+2)
	attrs = append(attrs,
		slog.String("id", evt.ID),
		slog.String("kind", string(evt.Kind)),
	)

	for k, v := range evt.Data {
		attrs = append(attrs, slog.Any(k, v))
	}

	s.logger.LogAttrs(ctx, s.level, "analytics event", attrs...)

	return nil
}

// Multi writes every event to all of its sinks. Failures are joined.
type Multi []Sink

// Write implements [Sink].
func (m Multi) Write(ctx context.Context, evt Event) error {
	var errs []error

	for _, s := range m {
		err := s.Write(ctx, evt)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
