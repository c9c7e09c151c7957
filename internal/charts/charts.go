// Package charts derives the numeric tables behind the report charts.
// Everything is computed from the category view so chart sums always agree
// with the grand total, whether or not sections are configured.
package charts

import (
	"sort"

	"tally/internal/core"
	"tally/internal/filter"
	"tally/internal/views"
)

// MaxCategorySeries caps the category-by-month chart.
const MaxCategorySeries = 8

// Tables are the raw aggregates.
type Tables struct {
	ByMonth           map[string]core.Money            `json:"byMonth"`
	ByCategory        map[string]core.Money            `json:"byCategory"`
	ByCategoryByMonth map[string]map[string]core.Money `json:"byCategoryByMonth"`

	// categoryOrder is the category view order, used to break ties.
	categoryOrder []string
}

// Series is one category line of the category-by-month chart, aligned with
// the month axis.
type Series struct {
	Category string       `json:"category"`
	Total    core.Money   `json:"total"`
	Values   []core.Money `json:"values"`
}

// Charts bundles everything a chart renderer needs.
type Charts struct {
	Tables
	Axis   []string `json:"axis"`
	Series []Series `json:"series"`
}

// Aggregate sums the category view by month, by category and by both.
func Aggregate(categories []views.CategoryView) Tables {
	t := Tables{
		ByMonth:           make(map[string]core.Money),
		ByCategory:        make(map[string]core.Money),
		ByCategoryByMonth: make(map[string]map[string]core.Money),
	}
	for _, c := range categories {
		t.categoryOrder = append(t.categoryOrder, c.Name)
		perMonth := make(map[string]core.Money)
		for _, mp := range c.Merchants() {
			for _, txn := range mp.Txns {
				t.ByMonth[txn.Month] = t.ByMonth[txn.Month].Add(txn.Amount)
				perMonth[txn.Month] = perMonth[txn.Month].Add(txn.Amount)
			}
		}
		t.ByCategory[c.Name] = t.ByCategory[c.Name].Add(c.Total)
		t.ByCategoryByMonth[c.Name] = perMonth
	}
	return t
}

// MonthAxis returns the months charts are drawn over: the expanded months of
// the active month includes when there are any, otherwise every known month.
func MonthAxis(set filter.Set, known []string) []string {
	if months := set.MonthIncludes(); len(months) > 0 {
		return months
	}
	out := make([]string, len(known))
	copy(out, known)
	sort.Strings(out)
	return out
}

// TopCategories returns up to n categories with the largest absolute totals.
// Ties keep category view order.
func TopCategories(t Tables, n int) []string {
	order := t.categoryOrder
	if len(order) == 0 {
		for name := range t.ByCategory {
			order = append(order, name)
		}
		sort.Strings(order)
	}
	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return t.ByCategory[ranked[i]].Abs().Cents > t.ByCategory[ranked[j]].Abs().Cents
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// CategorySeries builds one series per top category over axis. Categories
// beyond the cap are left out entirely rather than folded into an "Other"
// line.
func CategorySeries(t Tables, axis []string, limit int) []Series {
	top := TopCategories(t, limit)
	out := make([]Series, 0, len(top))
	for _, name := range top {
		s := Series{Category: name, Values: make([]core.Money, len(axis))}
		perMonth := t.ByCategoryByMonth[name]
		for i, m := range axis {
			s.Values[i] = perMonth[m]
			s.Total = s.Total.Add(perMonth[m])
		}
		out = append(out, s)
	}
	return out
}

// Build derives the chart tables, axis and series from projected views.
func Build(v *views.Views, set filter.Set) *Charts {
	t := Aggregate(v.Categories)
	axis := MonthAxis(set, v.Months)
	return &Charts{
		Tables: t,
		Axis:   axis,
		Series: CategorySeries(t, axis, MaxCategorySeries),
	}
}
