package match

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/macropower/chipper/pkg/chip"
)

const (
	ScoreExact          = 1.0
	ScoreExactSubstring = 0.9
	ScoreSubstring      = 0.7
	ScorePartial        = 0.5
	WeightEditDistance  = 0.3

	// Chips shorter than this only score on an exact match.
	minFuzzyLength = 4
)

// Result is a scored candidate.
type Result struct {
	Candidate chip.Candidate `json:"candidate"`
	Score     float64        `json:"score"`
}

// Matcher finds the best candidate for a preferred text.
type Matcher struct {
	minScore float64
}

// MatcherOpt configures a [Matcher].
type MatcherOpt func(*Matcher)

// WithMinScore rejects candidates scoring below score. The default of zero
// always returns the best candidate when there is at least one.
func WithMinScore(score float64) MatcherOpt {
	return func(m *Matcher) {
		m.minScore = score
	}
}

// NewMatcher creates a new [Matcher].
func NewMatcher(opts ...MatcherOpt) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Best returns the highest scoring candidate. Ties go to the candidate that
// appears first. It returns false when preferred is empty, there are no
// candidates, or the best score is below the minimum.
func (m *Matcher) Best(preferred string, candidates []chip.Candidate) (Result, bool) {
	if preferred == "" || len(candidates) == 0 {
		return Result{}, false
	}

	p := fold(preferred)

	for _, c := range candidates {
		if fold(c.Text) == p {
			return Result{Candidate: c, Score: ScoreExact}, true
		}
	}

	best := Result{Score: -1}

	for _, c := range candidates {
		score := combined(p, fold(c.Text))
		if score > best.Score {
			best = Result{Candidate: c, Score: score}
		}
	}

	if best.Score < m.minScore {
		return Result{}, false
	}

	return best, true
}

// Match is like [Matcher.Best] but returns only the candidate.
func (m *Matcher) Match(preferred string, candidates []chip.Candidate) (chip.Candidate, bool) {
	r, ok := m.Best(preferred, candidates)

	return r.Candidate, ok
}

// Rank scores every candidate, in input order.
func (m *Matcher) Rank(preferred string, candidates []chip.Candidate) []Result {
	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Result{Candidate: c, Score: Score(preferred, c.Text)})
	}

	return out
}

// Score returns the combined similarity of candidate to preferred.
func Score(preferred, candidate string) float64 {
	p, c := fold(preferred), fold(candidate)
	if p == c {
		return ScoreExact
	}

	return combined(p, c)
}

// SubstringScore returns the substring strategy score of candidate.
func SubstringScore(preferred, candidate string) float64 {
	return substringScore(fold(preferred), fold(candidate))
}

// EditScore returns the edit distance strategy score of candidate.
func EditScore(preferred, candidate string) float64 {
	return editScore(fold(preferred), fold(candidate))
}

func combined(p, c string) float64 {
	return max(substringScore(p, c), editScore(p, c))
}

func substringScore(p, c string) float64 {
	if utf8.RuneCountInString(c) < minFuzzyLength {
		if c == p {
			return ScoreExact
		}

		return 0
	}

	if strings.Contains(c, p) {
		return ScoreExactSubstring
	}

	if strings.Contains(p, c) {
		ratio := float64(utf8.RuneCountInString(c)) / float64(utf8.RuneCountInString(p))
		if ratio < 0.5 {
			return ScoreSubstring * ratio
		}

		return ScoreSubstring
	}

	pWords, cWords := strings.Fields(p), strings.Fields(c)
	if len(pWords) == 0 || len(cWords) == 0 {
		return 0
	}

	common := 0

	for _, pw := range pWords {
		for _, cw := range cWords {
			if strings.Contains(cw, pw) || strings.Contains(pw, cw) {
				common++
				break
			}
		}
	}

	if common == 0 {
		return 0
	}

	return ScorePartial * float64(common) / float64(max(len(pWords), len(cWords)))
}

func editScore(p, c string) float64 {
	longest := max(utf8.RuneCountInString(p), utf8.RuneCountInString(c))
	if longest == 0 {
		return 0
	}

	return (1 - float64(Levenshtein(p, c))/float64(longest)) * WeightEditDistance
}

// fold returns s case-folded. A [cases.Caser] is stateful, so one is made per
// call.
func fold(s string) string {
	return cases.Fold().String(s)
}
