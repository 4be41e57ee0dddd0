package ranking

import "fmt"

// Tier is the match category a member achieves against a query. Lower is better.
type Tier int

const (
	noMatch Tier = iota
	ExactMatch
	PrefixMatch
	SubstringMatch
	FuzzyMatch
)

var tierNames = map[Tier]string{
	ExactMatch:     "EXACT_MATCH",
	PrefixMatch:    "PREFIX_MATCH",
	SubstringMatch: "SUBSTRING_MATCH",
	FuzzyMatch:     "FUZZY_MATCH",
}

func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Valid reports whether t is one of the four match tiers.
func (t Tier) Valid() bool {
	return t >= ExactMatch && t <= FuzzyMatch
}

// better reports whether t beats other; noMatch never beats anything.
func (t Tier) better(other Tier) bool {
	if t == noMatch {
		return false
	}
	return other == noMatch || t < other
}
