package ranking

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FuzzyThreshold is the similarity a field must exceed to count as a fuzzy match.
const FuzzyThreshold = 0.3

type trigramSet map[string]struct{}

// newLowerer returns a Unicode lower-case mapper. Casers are stateful, so each search gets its own.
func newLowerer() cases.Caser {
	return cases.Lower(language.Und)
}

// trigrams extracts the trigram set of an already lower-cased string using the pg_trgm convention:
// words are runs of letters and digits, each padded with two leading spaces and one trailing space.
func trigrams(lower string) trigramSet {
	set := make(trigramSet)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b|, or 0 when either set is empty.
func jaccard(a, b trigramSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for t := range small {
		if _, ok := large[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// Similarity returns the case-insensitive trigram similarity of a and b in [0, 1].
// It matches PostgreSQL's pg_trgm similarity() for alphanumeric input.
func Similarity(a, b string) float64 {
	lower := newLowerer()
	return jaccard(trigrams(lower.String(a)), trigrams(lower.String(b)))
}
