package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Special tags that move a transaction out of spending and into the excluded pool.
const (
	TagIncome   = "income"
	TagTransfer = "transfer"
)

// UncategorizedName is the category the classifier assigns when no rule matched.
const UncategorizedName = "Unknown"

// DefaultNumMonths is the divisor of monthly values when the report does not
// set one: a full year, however many months have data so far.
const DefaultNumMonths = 12

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// TagSet is a case-insensitive set of tags. Keys are stored lower-cased.
	TagSet map[string]struct{}

	// Transaction is a single classified movement of money. Positive amounts
	// are expenses, negative amounts are refunds or credits.
	Transaction struct {
		ID          string
		Date        Date
		Month       string // YYYY-MM
		Amount      Money
		Description string
		Location    string // empty when unknown
		Tags        TagSet
		Source      string
	}

	// Merchant groups the transactions of a normalized merchant. It lives in
	// exactly one category/subcategory cell and in any number of sections.
	Merchant struct {
		ID           string
		DisplayName  string
		Category     string
		Subcategory  string
		CategoryPath string
		Tags         TagSet
		Transactions []Transaction
	}

	// ExcludedTransaction is an income or transfer movement kept out of the
	// spending rollups. Merchant and category data are carried inline.
	ExcludedTransaction struct {
		Transaction
		Merchant    string
		Category    string
		Subcategory string
		Reason      string
	}

	SubcategoryNode struct {
		Name      string
		Merchants []*Merchant
	}

	CategoryNode struct {
		Name          string
		Subcategories []SubcategoryNode
	}

	// SectionNode is a user-defined cross-cutting group. A merchant may be
	// listed in several sections.
	SectionNode struct {
		Key       string
		Name      string
		Merchants []*Merchant
	}

	Metadata struct {
		Year           int      `json:"year"`
		NumMonths      int      `json:"numMonths"`
		HomeLocation   string   `json:"homeLocation,omitempty"`
		CurrencyFormat string   `json:"currencyFormat,omitempty"`
		DataSources    []string `json:"dataSources,omitempty"`
	}

	// Hierarchy is the read-only catalog every view is projected from.
	Hierarchy struct {
		Categories []CategoryNode
		Sections   []SectionNode
		Excluded   []ExcludedTransaction
		Metadata   Metadata
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyMerchant   = errors.New("empty merchant")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidMonthKey = errors.New("invalid month key")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// MonthKey returns the YYYY-MM key of the date.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

// NewTagSet builds a set from the given tags, ignoring blanks.
func NewTagSet(tags ...string) TagSet {
	set := make(TagSet, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// Has reports whether tag is in the set, ignoring case. Nil sets are empty.
func (s TagSet) Has(tag string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[strings.ToLower(strings.TrimSpace(tag))]
	return ok
}

// Union returns a new set holding the tags of both sets.
func (s TagSet) Union(other TagSet) TagSet {
	out := make(TagSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Sorted returns the tags in lexical order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the set as a sorted array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return marshalStrings(s.Sorted())
}

// UnmarshalJSON accepts an array of strings.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := unmarshalStrings(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// Name returns the display name, falling back to the id.
func (m *Merchant) Name() string {
	if strings.TrimSpace(m.DisplayName) != "" {
		return m.DisplayName
	}
	return m.ID
}

// IsUncategorized reports whether the merchant was left without a category.
func (m *Merchant) IsUncategorized() bool {
	c := strings.TrimSpace(m.Category)
	return c == "" || strings.EqualFold(c, UncategorizedName)
}

// Merchants returns every merchant of the category view in hierarchy order.
func (h *Hierarchy) Merchants() []*Merchant {
	var out []*Merchant
	for _, c := range h.Categories {
		for _, s := range c.Subcategories {
			out = append(out, s.Merchants...)
		}
	}
	return out
}

// Months returns every distinct month seen in the hierarchy, sorted.
func (h *Hierarchy) Months() []string {
	seen := make(map[string]struct{})
	for _, m := range h.Merchants() {
		for _, t := range m.Transactions {
			if t.Month != "" {
				seen[t.Month] = struct{}{}
			}
		}
	}
	for _, e := range h.Excluded {
		if e.Month != "" {
			seen[e.Month] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
