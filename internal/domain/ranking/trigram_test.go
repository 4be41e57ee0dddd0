package ranking

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "Anna Schmidt", b: "Anna Schmidt", want: 1},
		{name: "case insensitive", a: "ANNA", b: "anna", want: 1},
		{name: "one character dropped", a: "Anna Schmidt", b: "Anna Schmid", want: 11.0 / 14.0},
		{name: "punctuation splits words", a: "a-b", b: "a b", want: 1},
		{name: "email words", a: "schmitt", b: "schmidt@a.de", want: 5.0 / 16.0},
		{name: "disjoint", a: "Anna Schmidt", b: "Bernd Müller", want: 0},
		{name: "empty", a: "", b: "anna", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
		{name: "only punctuation", a: "@@", b: "@@", want: 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Similarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Similarity(%q, %q)=%v, want %v", tc.a, tc.b, got, tc.want)
			}
			if back := Similarity(tc.b, tc.a); back != got {
				t.Fatalf("Similarity not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestTrigrams_PaddingConvention(t *testing.T) {
	t.Parallel()

	got := trigrams("cat")
	want := []string{"  c", " ca", "cat", "at "}
	if len(got) != len(want) {
		t.Fatalf("trigrams(cat)=%v, want %v", got, want)
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			t.Fatalf("trigrams(cat) missing %q: %v", w, got)
		}
	}
}

func TestTrigrams_Multibyte(t *testing.T) {
	t.Parallel()

	got := trigrams("müller")
	if _, ok := got["mül"]; !ok {
		t.Fatalf("expected rune-based trigram %q in %v", "mül", got)
	}
}
