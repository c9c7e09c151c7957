// Package sorting orders view entries by a per-section column and direction.
package sorting

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type (
	Column    string
	Direction string
)

const (
	ColumnMerchant    Column = "merchant"
	ColumnSubcategory Column = "subcategory"
	ColumnCount       Column = "count"
	ColumnTotal       Column = "total"
)

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Config is the sort state of one view section.
type Config struct {
	Column    Column    `json:"column"`
	Direction Direction `json:"direction"`
}

// Default is the sort state of a section that was never toggled.
var Default = Config{Column: ColumnTotal, Direction: Desc}

// IsString reports whether the column compares text.
func (c Column) IsString() bool {
	return c == ColumnMerchant || c == ColumnSubcategory
}

// ParseColumn validates a column name coming from a caller.
func ParseColumn(s string) (Column, error) {
	switch c := Column(strings.ToLower(strings.TrimSpace(s))); c {
	case ColumnMerchant, ColumnSubcategory, ColumnCount, ColumnTotal:
		return c, nil
	default:
		return "", fmt.Errorf("unknown sort column %q", s)
	}
}

// Entry is anything that can be placed in a sorted view section.
type Entry interface {
	SortName() string
	SortSubcategory() string
	SortCount() int
	SortTotal() int64
}

type options struct {
	lang     language.Tag
	absolute bool
}

// Option customizes Sort.
type Option func(*options)

// WithLanguage selects the collation used for string columns.
func WithLanguage(tag language.Tag) Option {
	return func(o *options) { o.lang = tag }
}

// WithAbsoluteTotals compares totals by magnitude, for credit-oriented lists.
func WithAbsoluteTotals() Option {
	return func(o *options) { o.absolute = true }
}

// Sort returns entries ordered by cfg. The sort is stable: entries comparing
// equal keep their relative input order. The input slice is not modified.
func Sort[T Entry](entries []T, cfg Config, opts ...Option) []T {
	o := options{lang: language.Und}
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]T, len(entries))
	copy(out, entries)

	cmp := comparator[T](cfg.Column, o)
	desc := cfg.Direction == Desc
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func comparator[T Entry](col Column, o options) func(a, b T) int {
	switch col {
	case ColumnMerchant, ColumnSubcategory:
		// Collators keep internal buffers, so each Sort call gets its own.
		coll := collate.New(o.lang, collate.IgnoreCase)
		key := func(e T) string { return e.SortName() }
		if col == ColumnSubcategory {
			key = func(e T) string { return e.SortSubcategory() }
		}
		return func(a, b T) int { return coll.CompareString(key(a), key(b)) }
	case ColumnCount:
		return func(a, b T) int { return compareInt(int64(a.SortCount()), int64(b.SortCount())) }
	default:
		return func(a, b T) int {
			x, y := a.SortTotal(), b.SortTotal()
			if o.absolute {
				x, y = abs(x), abs(y)
			}
			return compareInt(x, y)
		}
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
