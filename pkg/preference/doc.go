// Package preference stores the user's chip preferences and resolves which
// of them applies now.
//
// A [Store] exposes the global preference, the time rule active at the
// current instant, and the temporary fallback: the substitute chip recorded
// when the preferred one was not available. [Memory] keeps everything in
// process; [FileStore] persists a Preferences document and reloads it when
// the file changes. A [Scheduler] notices when the active time rule changes.
package preference
