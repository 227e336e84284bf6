package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/version"
)

// DefaultQueueSize is the default number of events an [Emitter] buffers.
const DefaultQueueSize = 64

var _ Recorder = (*Emitter)(nil)

// Emitter is a [Recorder] that writes to a [Sink] in the background.
// Events are dropped when the queue is full or the emitter is closed.
type Emitter struct {
	clock   clockwork.Clock
	sink    Sink
	logger  *slog.Logger
	queue   chan Event
	done    chan struct{}
	userID  string
	version string
	size    int
	mu      sync.RWMutex
	closed  bool
}

// EmitterOpt configures an [Emitter].
type EmitterOpt func(*Emitter)

// WithClock sets the clock used to timestamp events.
func WithClock(c clockwork.Clock) EmitterOpt {
	return func(e *Emitter) {
		e.clock = c
	}
}

// WithUserID sets the user ID attached to every event.
func WithUserID(id string) EmitterOpt {
	return func(e *Emitter) {
		e.userID = id
	}
}

// WithVersion overrides the version attached to every event.
func WithVersion(v string) EmitterOpt {
	return func(e *Emitter) {
		e.version = v
	}
}

// WithQueueSize sets how many events may wait for the sink.
func WithQueueSize(n int) EmitterOpt {
	return func(e *Emitter) {
		if n > 0 {
			e.size = n
		}
	}
}

// WithLogger sets the logger used for sink failures and dropped events.
func WithLogger(l *slog.Logger) EmitterOpt {
	return func(e *Emitter) {
		e.logger = l
	}
}

// NewEmitter creates an [Emitter] and starts its worker. Call
// [Emitter.Close] to flush queued events and stop it.
func NewEmitter(sink Sink, opts ...EmitterOpt) *Emitter {
	e := &Emitter{
		clock:   clockwork.NewRealClock(),
		sink:    sink,
		logger:  slog.Default(),
		version: version.GetVersion(),
		size:    DefaultQueueSize,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.queue = make(chan Event, e.size)

	go e.run()

	return e
}

// Record queues an event. It never blocks.
func (e *Emitter) Record(ctx context.Context, kind Kind, data Payload) {
	evt := Event{
		ID:        uuid.NewString(),
		UserID:    e.userID,
		Kind:      kind,
		Version:   e.version,
		CreatedAt: e.clock.Now().UTC(),
		Data:      data,
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		log.WithContext(ctx).DebugContext(ctx, "drop event, emitter closed", slog.String("kind", string(kind)))
		return
	}

	select {
	case e.queue <- evt:
	default:
		log.WithContext(ctx).DebugContext(ctx, "drop event, queue full", slog.String("kind", string(kind)))
	}
}

// Close stops accepting events and waits for queued events to be written.
func (e *Emitter) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	<-e.done
}

func (e *Emitter) run() {
	defer close(e.done)

	for evt := range e.queue {
		// Sinks get a fresh context: the recording call has long returned.
		err := e.sink.Write(context.Background(), evt)
		if err != nil {
			e.logger.Warn("write analytics event",
				slog.String("kind", string(evt.Kind)),
				slog.Any("error", err),
			)
		}
	}
}
