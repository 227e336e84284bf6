// Package browser drives chips on a live page through the Chrome DevTools
// Protocol.
//
// A [Browser] opens the configured page and implements [chip.Source] with
// small page scripts. A [Watcher] installs an in-page hook that buffers
// title changes, chip insertions, searches, and item clicks, and drains the
// buffer on a ticker into [observer] notifications.
package browser
