// Package autocomplete indexes the searchable tokens of the catalog for the
// filter input.
package autocomplete

import (
	"strings"
	"unicode/utf8"

	"tally/internal/core"
	"tally/internal/filter"
)

// MaxResults caps the catalog matches returned by Query.
const MaxResults = 8

// minTextQuery is the trimmed length from which the full-text entry is offered.
const minTextQuery = 2

// Entry is one suggestion. Value is the predicate text, Display what the
// user sees.
type Entry struct {
	Type    filter.Type `json:"type"`
	Value   string      `json:"value"`
	Display string      `json:"display"`
}

// Predicate turns the entry into an include predicate.
func (e Entry) Predicate() filter.Predicate {
	return filter.Predicate{Type: e.Type, Text: e.Value, Mode: filter.ModeInclude, DisplayText: e.Display}
}

// Index is an immutable, deduplicated catalog of suggestions.
type Index struct {
	entries []Entry
	search  []string // lower-cased display text, parallel to entries
	byKey   map[string]int
}

func entryKey(t filter.Type, value string) string {
	return string(t) + "\x00" + strings.ToLower(strings.TrimSpace(value))
}

// Build scans the unfiltered category tree and the excluded pool. Tokens that
// only occur in excluded transactions stay searchable.
func Build(h *core.Hierarchy) *Index {
	idx := &Index{byKey: make(map[string]int)}

	categories := make(map[string]struct{})
	for _, c := range h.Categories {
		categories[strings.ToLower(c.Name)] = struct{}{}
	}
	for _, ex := range h.Excluded {
		if ex.Category != "" {
			categories[strings.ToLower(ex.Category)] = struct{}{}
		}
	}

	for _, c := range h.Categories {
		idx.add(filter.TypeCategory, c.Name, c.Name)
		for _, s := range c.Subcategories {
			if _, clash := categories[strings.ToLower(s.Name)]; !clash {
				idx.add(filter.TypeCategory, s.Name, s.Name)
			}
			for _, m := range s.Merchants {
				idx.add(filter.TypeMerchant, m.ID, m.Name())
				for _, tag := range m.Tags.Sorted() {
					idx.add(filter.TypeTag, tag, tag)
				}
				for _, txn := range m.Transactions {
					idx.add(filter.TypeLocation, txn.Location, txn.Location)
					for _, tag := range txn.Tags.Sorted() {
						idx.add(filter.TypeTag, tag, tag)
					}
				}
			}
		}
	}

	for _, ex := range h.Excluded {
		idx.add(filter.TypeMerchant, ex.Merchant, ex.Merchant)
		idx.add(filter.TypeCategory, ex.Category, ex.Category)
		if _, clash := categories[strings.ToLower(ex.Subcategory)]; !clash {
			idx.add(filter.TypeCategory, ex.Subcategory, ex.Subcategory)
		}
		idx.add(filter.TypeLocation, ex.Location, ex.Location)
		for _, tag := range ex.Tags.Sorted() {
			idx.add(filter.TypeTag, tag, tag)
		}
	}
	return idx
}

func (idx *Index) add(t filter.Type, value, display string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	k := entryKey(t, value)
	if _, ok := idx.byKey[k]; ok {
		return
	}
	if strings.TrimSpace(display) == "" {
		display = value
	}
	idx.byKey[k] = len(idx.entries)
	idx.entries = append(idx.entries, Entry{Type: t, Value: value, Display: display})
	idx.search = append(idx.search, strings.ToLower(display))
}

// Len returns the number of catalog entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Query returns up to MaxResults catalog entries whose display text contains
// text, ignoring case, in catalog order. When the trimmed text has at least
// two characters a trailing full-text entry is appended.
func (idx *Index) Query(text string) []Entry {
	q := strings.TrimSpace(text)
	if q == "" {
		return nil
	}
	needle := strings.ToLower(q)

	var out []Entry
	for i, s := range idx.search {
		if len(out) == MaxResults {
			break
		}
		if strings.Contains(s, needle) {
			out = append(out, idx.entries[i])
		}
	}
	if utf8.RuneCountInString(q) >= minTextQuery {
		out = append(out, Entry{Type: filter.TypeText, Value: q, Display: `Search descriptions for "` + q + `"`})
	}
	return out
}

// DisplayText resolves the display text of a predicate value.
func (idx *Index) DisplayText(t filter.Type, value string) (string, bool) {
	i, ok := idx.byKey[entryKey(t, value)]
	if !ok {
		return "", false
	}
	return idx.entries[i].Display, true
}
