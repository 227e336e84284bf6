package analytics

import (
	"context"
	"errors"
	"time"
)

// ErrLoggingFailure is returned by sinks that could not store an event.
var ErrLoggingFailure = errors.New("analytics logging failure")

// Kind names an event type.
type Kind string

const (
	KindManualSelected   Kind = "manual_chip_selected"
	KindTimePrefSelected Kind = "timepref_chip_selected"
	KindUsage            Kind = "youtube_usage"
	KindSearch           Kind = "search_query_entered"
	KindMainPageAction   Kind = "mainpage_action"
	KindItemOpened       Kind = "video_clicked"
	KindInstalled        Kind = "extension_installed"
	KindError            Kind = "error_occurred"
)

// Kinds lists every event kind.
var Kinds = []Kind{
	KindManualSelected,
	KindTimePrefSelected,
	KindUsage,
	KindSearch,
	KindMainPageAction,
	KindItemOpened,
	KindInstalled,
	KindError,
}

// Payload keys shared by several kinds.
const (
	KeyChipText        = "chip_text"
	KeyChipSource      = "chip_source"
	KeySource          = "source"
	KeyTimeRange       = "time_range"
	KeyDurationSeconds = "duration_seconds"
	KeyAction          = "action"
	KeySearchQuery     = "search_query"
	KeyItemID          = "video_id"
	KeyItemTitle       = "video_title"
	KeyErrorMessage    = "error_message"
	KeyUserID          = "user_id"
)

// Chip sources, as reported in payloads.
const (
	ChipSourceManual   = "manual"
	ChipSourceTimePref = "time_pref"
)

// Payload is an event's kind-specific data.
type Payload map[string]any

// Event is a recorded event.
type Event struct {
	CreatedAt time.Time `json:"createdAt"`
	Data      Payload   `json:"data,omitempty"`
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      Kind      `json:"eventType"`
	Version   string    `json:"version"`
}

// Recorder records events.
type Recorder interface {
	Record(ctx context.Context, kind Kind, data Payload)
}

// Discard is a [Recorder] that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, Kind, Payload) {}

// Sink stores events.
type Sink interface {
	Write(ctx context.Context, evt Event) error
}

// SinkFunc adapts a function to a [Sink].
type SinkFunc func(ctx context.Context, evt Event) error

// Write implements [Sink].
func (f SinkFunc) Write(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
