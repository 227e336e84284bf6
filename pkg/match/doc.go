// Package match resolves a desired chip text to the most similar chip that is
// actually available.
//
// Scoring is case-insensitive and combines two strategies, taking the higher:
//
//   - Substring: containment in either direction, then word overlap. Chips
//     shorter than four runes only ever score on an exact match, so "All"
//     never fuzzy-matches anything.
//   - Edit distance: normalized [Levenshtein] distance, weighted at 0.3.
//
// An exact (case-folded) match always wins with a score of 1.
package match
