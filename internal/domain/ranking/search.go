// Package ranking implements the ranked fuzzy member search: four-tier classification
// (exact, prefix, substring, trigram similarity), deterministic ordering, and pagination.
//
// Everything here is a pure function of its inputs and safe for concurrent use.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/museum-members/member-registry-api/internal/domain"
)

// ErrInvalidArgument is matched (errors.Is) by every query validation failure.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError reports which query field was rejected.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

// Query is a single ranked search request.
type Query struct {
	// Text is the free-text query; nil means the caller sent no query at all.
	Text *string

	Status     domain.ActiveStatus
	PageNumber int
	PageSize   int
}

// Validate checks the query for the documented InvalidArgument conditions.
func (q Query) Validate() error {
	switch {
	case q.Text == nil:
		return &ArgumentError{Field: "query", Reason: "must not be null"}
	case !q.Status.Valid():
		return &ArgumentError{Field: "status", Reason: fmt.Sprintf("unknown status %q", q.Status)}
	case q.PageSize <= 0:
		return &ArgumentError{Field: "pageSize", Reason: "must be greater than 0"}
	case q.PageNumber < 0:
		return &ArgumentError{Field: "pageNumber", Reason: "must be at least 0"}
	}
	return nil
}

// Offset is the index of the first result on the requested page.
// It saturates at math.MaxInt instead of overflowing.
func (q Query) Offset() int {
	if q.PageSize > 0 && q.PageNumber > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return q.PageNumber * q.PageSize
}

// Result is a matched member with its best tier and its best similarity score.
// Tier and Score may come from different fields.
type Result struct {
	Member domain.Member
	Tier   Tier
	Score  float64
}

// Page is one slice of the ordered result set.
type Page struct {
	Content       []Result
	PageNumber    int
	PageSize      int
	TotalElements int
	TotalPages    int
}

// NewPage assembles page metadata around an already sliced content.
func NewPage(content []Result, pageNumber, pageSize, totalElements int) Page {
	if content == nil {
		content = []Result{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = totalElements / pageSize
		if totalElements%pageSize != 0 {
			totalPages++
		}
	}
	return Page{
		Content:       content,
		PageNumber:    pageNumber,
		PageSize:      pageSize,
		TotalElements: totalElements,
		TotalPages:    totalPages,
	}
}

// Matcher classifies members against one query. It is not safe for concurrent use.
type Matcher struct {
	lower cases.Caser
	q     string
	grams trigramSet
}

// NewMatcher prepares a matcher for the query text.
func NewMatcher(query string) *Matcher {
	lower := newLowerer()
	q := lower.String(query)
	return &Matcher{lower: lower, q: q, grams: trigrams(q)}
}

func (mt *Matcher) field(v string) (Tier, float64) {
	f := mt.lower.String(v)
	score := jaccard(trigrams(f), mt.grams)
	if mt.q == "" {
		return noMatch, score
	}
	switch {
	case f == mt.q:
		return ExactMatch, score
	case strings.HasPrefix(f, mt.q):
		return PrefixMatch, score
	case strings.Contains(f, mt.q):
		return SubstringMatch, score
	case score > FuzzyThreshold:
		return FuzzyMatch, score
	}
	return noMatch, score
}

// Match classifies m. ok is false when no field reaches any tier.
func (mt *Matcher) Match(m domain.Member) (res Result, ok bool) {
	fields := []string{m.Name, m.Email}
	if m.Phone != nil {
		fields = append(fields, *m.Phone)
	}

	best := noMatch
	score := 0.0
	for _, f := range fields {
		t, s := mt.field(f)
		if t.better(best) {
			best = t
		}
		if s > score {
			score = s
		}
	}
	if best == noMatch {
		return Result{}, false
	}
	return Result{Member: m.Clone(), Tier: best, Score: score}, true
}

// Less is the result ordering: tier ascending, score descending, name ascending, then ID.
func Less(a, b Result) bool {
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Member.Name != b.Member.Name {
		return a.Member.Name < b.Member.Name
	}
	return a.Member.ID < b.Member.ID
}

// Search ranks the candidates passing the status filter and returns the requested page.
// candidates is never modified.
func Search(q Query, candidates []domain.Member) (Page, error) {
	if err := q.Validate(); err != nil {
		return Page{}, err
	}

	mt := NewMatcher(*q.Text)
	results := make([]Result, 0)
	for _, m := range candidates {
		if !q.Status.Includes(m.IsDeleted) {
			continue
		}
		if r, ok := mt.Match(m); ok {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool { return Less(results[i], results[j]) })

	return Paginate(results, q.PageNumber, q.PageSize), nil
}

// Paginate slices fully ordered results. Pages past the end are empty.
func Paginate(ordered []Result, pageNumber, pageSize int) Page {
	total := len(ordered)
	page := NewPage(nil, pageNumber, pageSize, total)
	if pageSize <= 0 || pageNumber < 0 || pageNumber >= page.TotalPages {
		return page
	}
	start := pageNumber * pageSize
	end := total
	if pageSize < total-start {
		end = start + pageSize
	}
	page.Content = append([]Result(nil), ordered[start:end]...)
	return page
}
