// Package rule defines time rules: preferences that apply on certain days
// during a range of hours, optionally narrowed by a CEL condition.
//
// A rule is active at an instant iff the instant's weekday is one of its days
// and its hour falls in [StartHour, EndHour). When StartHour > EndHour the
// range wraps past midnight, so 22-6 covers 22:00 through 05:59. A range with
// StartHour == EndHour would be empty and is rejected.
//
// The schedule is evaluated in the instant's own location; callers decide the
// time zone by the [time.Time] they pass.
package rule
