// Package views projects the catalog through a filter set into the
// category, section and excluded views along with their scalar totals.
package views

import (
	"tally/internal/core"
	"tally/internal/filter"
)

// MerchantProjection is a merchant seen through the active filter set.
// Merchants without matching transactions never get a projection.
type MerchantProjection struct {
	Merchant *core.Merchant     `json:"-"`
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Sub      string             `json:"subcategory"`
	// Tags merges the classifier tags with those of the matched transactions.
	Tags     core.TagSet        `json:"tags"`
	Txns     []core.Transaction `json:"-"`
	Total    core.Money         `json:"total"`
	Count    int                `json:"count"`
	Months   []string           `json:"months"`

	MonthsActive  int        `json:"monthsActive"`
	AvgWhenActive core.Money `json:"avgWhenActive"`
	MonthlyValue  core.Money `json:"monthlyValue"`
	MaxPayment    core.Money `json:"maxPayment"`
	CV            float64    `json:"cv"`
	IsConsistent  bool       `json:"isConsistent"`
}

// SortName, SortSubcategory, SortCount and SortTotal make projections sortable.
func (p MerchantProjection) SortName() string        { return p.Name }
func (p MerchantProjection) SortSubcategory() string { return p.Sub }
func (p MerchantProjection) SortCount() int          { return p.Count }
func (p MerchantProjection) SortTotal() int64        { return p.Total.Cents }

type SubcategoryView struct {
	Name      string               `json:"name"`
	Total     core.Money           `json:"total"`
	Count     int                  `json:"count"`
	Merchants []MerchantProjection `json:"merchants"`
}

type CategoryView struct {
	Name          string            `json:"name"`
	Total         core.Money        `json:"total"`
	Count         int               `json:"count"`
	Percentage    float64           `json:"percentage"`
	Subcategories []SubcategoryView `json:"subcategories"`
}

// SortName, SortSubcategory, SortCount and SortTotal make categories sortable.
func (c CategoryView) SortName() string        { return c.Name }
func (c CategoryView) SortSubcategory() string { return c.Name }
func (c CategoryView) SortCount() int          { return c.Count }
func (c CategoryView) SortTotal() int64        { return c.Total.Cents }

// Merchants returns every merchant projection of the category in order.
func (c CategoryView) Merchants() []MerchantProjection {
	var out []MerchantProjection
	for _, s := range c.Subcategories {
		out = append(out, s.Merchants...)
	}
	return out
}

// Credit is a merchant whose filtered total is negative.
type Credit struct {
	MerchantID string     `json:"merchantId"`
	Merchant   string     `json:"merchant"`
	Category   string     `json:"category"`
	Amount     core.Money `json:"amount"`
	Count      int        `json:"count"`
}

func (c Credit) SortName() string        { return c.Merchant }
func (c Credit) SortSubcategory() string { return c.Category }
func (c Credit) SortCount() int          { return c.Count }
func (c Credit) SortTotal() int64        { return c.Amount.Cents }

type SectionView struct {
	Key       string               `json:"key"`
	Name      string               `json:"name"`
	Total     core.Money           `json:"total"`
	Count     int                  `json:"count"`
	Merchants []MerchantProjection `json:"merchants"`
}

// ExcludedEntry is an excluded transaction that passed the filter.
type ExcludedEntry struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	Month       string      `json:"month"`
	Description string      `json:"description"`
	Merchant    string      `json:"merchant"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	Location    string      `json:"location,omitempty"`
	Amount      core.Money  `json:"amount"`
	Tags        core.TagSet `json:"tags"`
	Reason      string      `json:"reason"`
	Source      string      `json:"source,omitempty"`
}

func (e ExcludedEntry) SortName() string        { return e.Merchant }
func (e ExcludedEntry) SortSubcategory() string { return e.Subcategory }
func (e ExcludedEntry) SortCount() int          { return 1 }
func (e ExcludedEntry) SortTotal() int64        { return e.Amount.Cents }

// Bucket totals one tag-defined slice of the excluded view. Total is the
// absolute value of the summed amounts.
type Bucket struct {
	Entries []ExcludedEntry `json:"entries"`
	Total   core.Money      `json:"total"`
	Count   int             `json:"count"`
}

type ExcludedView struct {
	Entries   []ExcludedEntry `json:"entries"`
	Income    Bucket          `json:"income"`
	Transfers Bucket          `json:"transfers"`
}

// Totals are the scalars derived alongside the views.
type Totals struct {
	GrandTotal         core.Money `json:"grandTotal"`
	CreditsTotal       core.Money `json:"creditsTotal"`
	GrossSpending      core.Money `json:"grossSpending"`
	UncategorizedTotal core.Money `json:"uncategorizedTotal"`
	NetCashFlow        core.Money `json:"netCashFlow"`
	IncomeTotal        core.Money `json:"incomeTotal"`
	IncomeCount        int        `json:"incomeCount"`
	TransfersTotal     core.Money `json:"transfersTotal"`
	TransfersCount     int        `json:"transfersCount"`
	MonthlyAverage     core.Money `json:"monthlyAverage"`
	TransactionCount   int        `json:"transactionCount"`
	MerchantCount      int        `json:"merchantCount"`
}

// Views is every projection computed against one filter set.
type Views struct {
	Categories []CategoryView `json:"categories"`
	Credits    []Credit       `json:"credits"`
	Sections   []SectionView  `json:"sections"`
	Excluded   ExcludedView   `json:"excluded"`
	Totals     Totals         `json:"totals"`
	Months     []string       `json:"months"`
	Filters    filter.Set     `json:"filters"`
}
