// Package engine runs the view pipeline and owns the mutable filter and sort
// state that drives it.
package engine

import (
	"fmt"
	"strings"

	"tally/internal/autocomplete"
	"tally/internal/charts"
	"tally/internal/core"
	"tally/internal/filter"
	"tally/internal/sorting"
	"tally/internal/urlstate"
	"tally/internal/views"
)

// Section keys addressing the independently sorted lists of a Result.
const (
	SectionCategories = "categories"
	SectionCredits    = "credits"
	SectionExcluded   = "excluded"

	categoryPrefix = "category:"
	sectionPrefix  = "section:"
)

// CategoryKey is the sort key of the merchant lists inside a category.
func CategoryKey(name string) string { return categoryPrefix + name }

// SectionKey is the sort key of a declared section.
func SectionKey(key string) string { return sectionPrefix + key }

// Result is everything derived from one (catalog, filters, sorts) triple.
// It is never modified after Compute returns.
type Result struct {
	Views    *views.Views    `json:"views"`
	Charts   *charts.Charts  `json:"charts"`
	Encoded  string          `json:"encoded"`
	Sorts    sorting.Configs `json:"sorts"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Compute runs the pipeline: project, sort, aggregate, encode, warn.
// index may be nil, in which case predicate labels are left as given.
func Compute(h *core.Hierarchy, index *autocomplete.Index, set filter.Set, sorts sorting.Configs, opts ...sorting.Option) *Result {
	if h == nil {
		h = &core.Hierarchy{}
	}
	if sorts == nil {
		sorts = sorting.Configs{}
	}

	v := views.Project(h, set)
	label(v.Filters, index)
	sortViews(v, sorts, opts)

	return &Result{
		Views:    v,
		Charts:   charts.Build(v, set),
		Encoded:  urlstate.Encode(set),
		Sorts:    sorts.Clone(),
		Warnings: warnings(set),
	}
}

func label(set filter.Set, index *autocomplete.Index) {
	if index == nil {
		return
	}
	for i := range set {
		if strings.TrimSpace(set[i].DisplayText) != "" {
			continue
		}
		if display, ok := index.DisplayText(set[i].Type, set[i].Text); ok {
			set[i].DisplayText = display
		}
	}
}

func sortViews(v *views.Views, sorts sorting.Configs, opts []sorting.Option) {
	v.Categories = sorting.Sort(v.Categories, sorts.Get(SectionCategories), opts...)
	for i := range v.Categories {
		cfg := sorts.Get(CategoryKey(v.Categories[i].Name))
		subs := v.Categories[i].Subcategories
		for j := range subs {
			subs[j].Merchants = sorting.Sort(subs[j].Merchants, cfg, opts...)
		}
	}
	for i := range v.Sections {
		v.Sections[i].Merchants = sorting.Sort(v.Sections[i].Merchants, sorts.Get(SectionKey(v.Sections[i].Key)), opts...)
	}

	abs := append(append([]sorting.Option(nil), opts...), sorting.WithAbsoluteTotals())
	v.Credits = sorting.Sort(v.Credits, sorts.Get(SectionCredits), abs...)

	excluded := sorts.Get(SectionExcluded)
	v.Excluded.Entries = sorting.Sort(v.Excluded.Entries, excluded, abs...)
	v.Excluded.Income.Entries = sorting.Sort(v.Excluded.Income.Entries, excluded, abs...)
	v.Excluded.Transfers.Entries = sorting.Sort(v.Excluded.Transfers.Entries, excluded, abs...)
}

func warnings(set filter.Set) []string {
	var out []string
	for _, p := range set.Unrecognized() {
		out = append(out, fmt.Sprintf("unrecognized filter type %q on %q matches nothing", p.Type, p.Text))
	}
	return out
}

// KnownSections returns every sort key a Result built from h exposes.
func KnownSections(h *core.Hierarchy) map[string]struct{} {
	keys := map[string]struct{}{
		SectionCategories: {},
		SectionCredits:    {},
		SectionExcluded:   {},
	}
	if h == nil {
		return keys
	}
	for _, c := range h.Categories {
		keys[CategoryKey(c.Name)] = struct{}{}
	}
	for _, s := range h.Sections {
		keys[SectionKey(s.Key)] = struct{}{}
	}
	return keys
}
