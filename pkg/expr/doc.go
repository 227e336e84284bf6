// Package expr provides the CEL (Common Expression Language) environment used
// by time rule conditions.
//
// Expressions have access to variables describing the instant being checked:
//   - `hour` (int): hour of day, 0-23
//   - `minute` (int): minute of hour, 0-59
//   - `weekday` (int): day of week, 0 (Sunday) to 6 (Saturday)
//   - `now` (timestamp): the instant itself
//
// Weekday constants SUNDAY through SATURDAY are defined, along with
// inHours(hour, start, end), which is true when hour is in [start, end),
// wrapping past midnight when start > end.
//
// Expressions must return a boolean:
//   - weekday in [SATURDAY, SUNDAY]
//   - inHours(hour, 22, 6) && minute >= 30
//   - now.getMonth() == 11
package expr
