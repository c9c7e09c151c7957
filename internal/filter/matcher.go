package filter

// This file implements the Strategy Pattern for predicate resolution.
// Each predicate type has a Matcher that compiles the predicate text once
// into a Condition evaluated against many subjects.

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Condition reports whether a subject satisfies one compiled predicate.
type Condition func(s *Subject) bool

// Matcher is the strategy interface for one predicate type.
type Matcher interface {
	// Compile prepares the predicate text for repeated evaluation.
	Compile(text string) Condition
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(text string) Condition

func (f MatcherFunc) Compile(text string) Condition { return f(text) }

// MerchantMatcher matches the merchant id or display name exactly.
type MerchantMatcher struct{}

func (MerchantMatcher) Compile(text string) Condition {
	want := fold(text)
	return func(s *Subject) bool {
		return want != "" && (s.MerchantID == want || s.MerchantName == want)
	}
}

// CategoryMatcher matches a substring of the category, subcategory or path.
type CategoryMatcher struct{}

func (CategoryMatcher) Compile(text string) Condition {
	want := fold(text)
	return func(s *Subject) bool {
		return strings.Contains(s.Category, want) ||
			strings.Contains(s.Subcategory, want) ||
			strings.Contains(s.CategoryPath, want)
	}
}

// LocationMatcher matches the location exactly. A missing location never
// matches.
type LocationMatcher struct{}

func (LocationMatcher) Compile(text string) Condition {
	want := fold(text)
	return func(s *Subject) bool {
		return s.Location != "" && s.Location == want
	}
}

// MonthMatcher matches one YYYY-MM month or any month of a START..END range.
type MonthMatcher struct{}

func (MonthMatcher) Compile(text string) Condition {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "..") {
		want := fold(text)
		return func(s *Subject) bool { return s.Month == want }
	}
	months := make(map[string]struct{})
	for _, m := range ExpandMonthRange(text) {
		months[m] = struct{}{}
	}
	return func(s *Subject) bool {
		_, ok := months[s.Month]
		return ok
	}
}

// TagMatcher tests tag membership.
type TagMatcher struct{}

func (TagMatcher) Compile(text string) Condition {
	return func(s *Subject) bool { return s.HasTag(text) }
}

// TextMatcher matches a substring of the transaction description.
type TextMatcher struct{}

func (TextMatcher) Compile(text string) Condition {
	want := fold(text)
	return func(s *Subject) bool { return strings.Contains(s.Description, want) }
}

// matchers maps predicate types to their strategies. Register custom types
// during initialization; the registry is read concurrently afterwards.
var matchers = map[Type]Matcher{
	TypeMerchant: MerchantMatcher{},
	TypeCategory: CategoryMatcher{},
	TypeLocation: LocationMatcher{},
	TypeMonth:    MonthMatcher{},
	TypeTag:      TagMatcher{},
	TypeText:     TextMatcher{},
}

// LookupMatcher returns the strategy for a predicate type.
func LookupMatcher(t Type) (Matcher, error) {
	m, ok := matchers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return m, nil
}

// RegisterMatcher installs a strategy for a new or existing predicate type.
func RegisterMatcher(t Type, m Matcher) {
	matchers[t] = m
}

// never is the condition of predicates without a matcher.
func never(*Subject) bool { return false }

// fold applies Unicode case folding for case-insensitive comparison.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
