// Package chip reads the selectable category options ("chips") that a page
// currently exposes, and issues selection actions against them.
//
// A [Source] is the raw environment (a browser tab, or a [Static] set of chips
// in tests). A [Registry] wraps a [Source] and applies the read rules the rest
// of the engine relies on: deduplication by text, presentation order, and the
// exclusivity of the canonical default chip.
package chip
