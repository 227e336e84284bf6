package match

// Levenshtein returns the unit-cost edit distance between a and b, counted in
// runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i

		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = min(
				prev[j]+1,      // Deletion.
				curr[j-1]+1,    // Insertion.
				prev[j-1]+cost, // Substitution.
			)
		}

		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
