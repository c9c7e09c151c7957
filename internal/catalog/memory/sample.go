package memory

import (
	"fmt"

	"tally/internal/core"
)

func SampleMetadata() core.Metadata {
	return core.Metadata{
		Year:           2024,
		HomeLocation:   "WA",
		CurrencyFormat: "USD",
		DataSources:    []string{"sample"},
	}
}

func SampleSections() []string {
	return []string{"Recurring", "Travel", "Online"}
}

// SampleRecords is a small year of classified spending covering every view:
// recurring merchants, a shared section member, a credit, an uncategorized
// merchant, income and a transfer.
func SampleRecords() []core.Record {
	var out []core.Record
	add := func(date string, cents int64, merchantID, name, category, sub, location string, tags []string, sections ...string) {
		out = append(out, core.Record{
			ID:           fmt.Sprintf("s%03d", len(out)+1),
			Date:         date,
			Amount:       core.Money{Cents: cents},
			Description:  name,
			Location:     location,
			Tags:         tags,
			Source:       "sample",
			MerchantID:   merchantID,
			MerchantName: name,
			Category:     category,
			Subcategory:  sub,
			Sections:     sections,
		})
	}

	for m := 1; m <= 12; m++ {
		month := fmt.Sprintf("2024-%02d", m)
		add(month+"-03", 1599, "netflix", "Netflix", "Subscriptions", "Streaming", "", []string{"subscription"}, "Recurring", "Online")
		add(month+"-05", 18500+int64(m*120), "safeway", "Safeway", "Food", "Grocery", "WA", nil)
		add(month+"-12", 640, "starbucks", "Starbucks", "Food", "Coffee", "WA", []string{"coffee"})
		add(month+"-28", -520000, "acme", "Acme Corp", "Income", "Salary", "", []string{"income"})
	}
	add("2024-03-14", 42000, "alaska", "Alaska Airlines", "Travel", "Air", "WA", []string{"business travel"}, "Travel")
	add("2024-03-16", 61000, "marriott", "Marriott", "Travel", "Lodging", "CA", []string{"business travel"}, "Travel")
	add("2024-07-02", 18000, "hertz", "Hertz", "Travel", "Car", "OR", nil, "Travel")
	add("2024-05-09", 8999, "amazon", "Amazon", "Shopping", "Online", "", nil, "Online")
	add("2024-05-20", -3499, "amazon", "Amazon", "Shopping", "Online", "", []string{"refund"}, "Online")
	add("2024-08-11", 2300, "sq-market", "SQ *MARKET", "", "", "WA", nil)
	add("2024-06-01", 100000, "savings", "Savings Transfer", "Transfers", "Savings", "", []string{"transfer"})
	add("2024-11-30", 12999, "rei", "REI", "Shopping", "Outdoor", "WA", nil)
	add("2024-12-18", 25900, "costco", "Costco", "Food", "Grocery", "WA", []string{"bulk"})
	return out
}
