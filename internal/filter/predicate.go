// Package filter implements the predicate language used to narrow the
// transaction catalog: typed include/exclude predicates, a per-type matcher
// registry and the evaluator combining them.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tally/internal/core"
)

type (
	Type string
	Mode string
)

const (
	TypeMerchant Type = "merchant"
	TypeCategory Type = "category"
	TypeLocation Type = "location"
	TypeMonth    Type = "month"
	TypeTag      Type = "tag"
	TypeText     Type = "text"
)

const (
	ModeInclude Mode = "include"
	ModeExclude Mode = "exclude"
)

var (
	ErrNoSuchPredicate = errors.New("no such predicate")
	ErrEmptyText       = errors.New("empty predicate text")
	ErrUnknownType     = errors.New("unknown predicate type")
	ErrUnknownMode     = errors.New("unknown predicate mode")
)

// Predicate constrains transaction visibility.
type Predicate struct {
	Type        Type   `json:"type"`
	Text        string `json:"text"`
	Mode        Mode   `json:"mode"`
	DisplayText string `json:"displayText,omitempty"`
}

// IsExclude reports whether p rejects what it matches. Anything that is not
// an explicit exclude admits.
func (p Predicate) IsExclude() bool { return p.Mode == ModeExclude }

// Label returns the text shown to the user.
func (p Predicate) Label() string {
	if strings.TrimSpace(p.DisplayText) != "" {
		return p.DisplayText
	}
	return p.Text
}

// Validate checks a predicate coming from an untrusted caller.
func (p Predicate) Validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return ErrEmptyText
	}
	if _, err := LookupMatcher(p.Type); err != nil {
		return err
	}
	switch p.Mode {
	case ModeInclude, ModeExclude:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, p.Mode)
	}
}

func (p Predicate) key() string { return string(p.Type) + "\x00" + p.Text }

// Set is an ordered list of predicates. Sets are treated as values: every
// mutating helper returns a new slice and leaves the receiver untouched.
type Set []Predicate

// Includes returns the include predicates in order.
func (s Set) Includes() []Predicate {
	var out []Predicate
	for _, p := range s {
		if !p.IsExclude() {
			out = append(out, p)
		}
	}
	return out
}

// Excludes returns the exclude predicates in order.
func (s Set) Excludes() []Predicate {
	var out []Predicate
	for _, p := range s {
		if p.IsExclude() {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports whether a predicate with the same type and text exists.
func (s Set) Contains(p Predicate) bool {
	k := p.key()
	for _, q := range s {
		if q.key() == k {
			return true
		}
	}
	return false
}

// Add appends p unless a predicate with the same type and text is present.
func (s Set) Add(p Predicate) (Set, bool) {
	if s.Contains(p) {
		return s.Clone(), false
	}
	out := make(Set, 0, len(s)+1)
	out = append(out, s...)
	return append(out, p), true
}

// Remove drops the predicate at index i.
func (s Set) Remove(i int) (Set, error) {
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchPredicate, i)
	}
	out := make(Set, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...), nil
}

// ToggleMode flips the predicate at index i between include and exclude.
func (s Set) ToggleMode(i int) (Set, error) {
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchPredicate, i)
	}
	out := s.Clone()
	if out[i].IsExclude() {
		out[i].Mode = ModeInclude
	} else {
		out[i].Mode = ModeExclude
	}
	return out, nil
}

// Dedup keeps the first predicate of every (type, text) pair.
func (s Set) Dedup() Set {
	seen := make(map[string]struct{}, len(s))
	out := make(Set, 0, len(s))
	for _, p := range s {
		k := p.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Unrecognized returns the predicates whose type has no registered matcher.
// They never match, so an include of that kind hides every result.
func (s Set) Unrecognized() []Predicate {
	var out []Predicate
	for _, p := range s {
		if _, err := LookupMatcher(p.Type); err != nil {
			out = append(out, p)
		}
	}
	return out
}

// MonthIncludes returns the sorted months selected by month include
// predicates, with ranges expanded. It is empty when no month include is set.
func (s Set) MonthIncludes() []string {
	seen := make(map[string]struct{})
	for _, p := range s {
		if p.IsExclude() || p.Type != TypeMonth {
			continue
		}
		for _, m := range ExpandMonthRange(p.Text) {
			seen[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// ExpandMonthRange expands "START..END" into the literal sequence of
// calendar months, inclusive, wrapping December into January of the next
// year. A single YYYY-MM expands to itself. Malformed input, unparsable
// bounds and inverted ranges yield an empty slice.
func ExpandMonthRange(s string) []string {
	start, end, isRange := strings.Cut(strings.TrimSpace(s), "..")
	from, err := core.ParseYearMonth(start)
	if err != nil {
		return []string{}
	}
	if !isRange {
		return []string{from.String()}
	}
	to, err := core.ParseYearMonth(end)
	if err != nil || to.Before(from) {
		return []string{}
	}
	var out []string
	for cur := from; len(out) < maxRangeMonths; cur = cur.Next() {
		out = append(out, cur.String())
		if cur == to {
			break
		}
	}
	return out
}

const maxRangeMonths = 1200
