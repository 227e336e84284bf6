// Package analytics records usage events.
//
// Recording is fire-and-forget: an [Emitter] accepts events without
// blocking and hands them to a [Sink] from a single background goroutine.
// Failures are logged and never returned to the caller, nor recorded as
// events themselves.
package analytics
