// Package engine decides when and what to select in a page's chip bar.
//
// A [Controller] applies the user's preference each time it is asked to,
// subject to a cooldown and to an in-flight guard that ignores the echoes of
// its own clicks. Preferences resolve by precedence: an active time rule wins
// over the global preference. When the preferred chip is missing, the most
// similar chip is selected instead and recorded as the temporary fallback.
//
// Every outcome degrades to a safe default. Nothing the controller does
// returns an error to its caller, and the only visible effect of a failure
// is an unchanged or mis-selected chip.
package engine
