// Package urlstate encodes a filter set into the compact string kept in the
// page URL fragment and persisted between sessions.
//
// Each predicate becomes one token, {sign}{type}:{text}, where sign is "+"
// for include and "-" for exclude, and tokens are joined with "&":
//
//	+c:Food&-t:Business%20Travel&+d:2024-11..2025-02
package urlstate

import (
	"net/url"
	"strings"

	"tally/internal/filter"
)

const (
	tokenSep = "&"
	typeSep  = ":"
)

var typeChars = map[filter.Type]byte{
	filter.TypeCategory: 'c',
	filter.TypeMerchant: 'm',
	filter.TypeLocation: 'l',
	filter.TypeMonth:    'd',
	filter.TypeTag:      't',
	filter.TypeText:     's',
}

var charTypes = func() map[byte]filter.Type {
	m := make(map[byte]filter.Type, len(typeChars))
	for t, c := range typeChars {
		m[c] = t
	}
	return m
}()

// Resolver recovers the display text of a decoded predicate.
type Resolver interface {
	DisplayText(t filter.Type, value string) (string, bool)
}

// Encode renders set. Predicates of a type without a short code are
// skipped. An empty set encodes to "".
func Encode(set filter.Set) string {
	tokens := make([]string, 0, len(set))
	for _, p := range set {
		c, ok := typeChars[p.Type]
		if !ok {
			continue
		}
		sign := "+"
		if p.IsExclude() {
			sign = "-"
		}
		tokens = append(tokens, sign+string(c)+typeSep+escape(p.Text))
	}
	return strings.Join(tokens, tokenSep)
}

// Decode parses s back into a filter set. A leading "#" is ignored, a missing
// sign means include, and malformed tokens are skipped. Identical
// (type, text) pairs are kept once. resolver may be nil.
func Decode(s string, resolver Resolver) filter.Set {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return nil
	}
	var set filter.Set
	for _, token := range strings.Split(s, tokenSep) {
		p, ok := decodeToken(token)
		if !ok {
			continue
		}
		if resolver != nil {
			if display, found := resolver.DisplayText(p.Type, p.Text); found {
				p.DisplayText = display
			}
		}
		if p.DisplayText == "" {
			p.DisplayText = p.Text
		}
		set, _ = set.Add(p)
	}
	return set
}

func decodeToken(token string) (filter.Predicate, bool) {
	if token == "" {
		return filter.Predicate{}, false
	}
	mode := filter.ModeInclude
	switch token[0] {
	case '-':
		mode = filter.ModeExclude
		token = token[1:]
	case '+':
		token = token[1:]
	}
	code, raw, ok := strings.Cut(token, typeSep)
	if !ok || len(code) != 1 {
		return filter.Predicate{}, false
	}
	t, ok := charTypes[code[0]]
	if !ok {
		return filter.Predicate{}, false
	}
	text, err := url.PathUnescape(raw)
	if err != nil {
		text = raw
	}
	if strings.TrimSpace(text) == "" {
		return filter.Predicate{}, false
	}
	return filter.Predicate{Type: t, Text: text, Mode: mode}, true
}

// escape percent-encodes everything except unreserved characters, matching
// encodeURIComponent for the characters that matter here (space is %20).
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
