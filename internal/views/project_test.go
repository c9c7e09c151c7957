package views

import (
	"reflect"
	"testing"

	"tally/internal/core"
	"tally/internal/filter"
)

func record(id, date string, cents int64, merchant, category, sub string, tags []string, sections ...string) core.Record {
	return core.Record{
		ID:           id,
		Date:         date,
		Amount:       core.Money{Cents: cents},
		Description:  merchant + " " + id,
		MerchantID:   merchant,
		MerchantName: merchant,
		Category:     category,
		Subcategory:  sub,
		Tags:         tags,
		Sections:     sections,
	}
}

func sampleHierarchy(t *testing.T) *core.Hierarchy {
	t.Helper()
	b := core.NewHierarchyBuilder(core.Metadata{Year: 2024})
	records := []core.Record{
		record("1", "2024-01-10", 10000, "Costco", "Food", "Grocery", nil, "Everyday", "Bulk"),
		record("2", "2024-02-10", 10000, "Costco", "Food", "Grocery", nil, "Everyday", "Bulk"),
		record("3", "2024-01-12", 500, "Starbucks", "Food", "Coffee", []string{"coffee"}, "Everyday"),
		record("4", "2024-02-12", 700, "Starbucks", "Food", "Coffee", []string{"coffee"}, "Everyday"),
		record("5", "2024-02-01", 30000, "Delta", "Travel", "Air", []string{"business"}),
		record("6", "2024-02-15", -4000, "Amazon", "Shopping", "Online", nil),
		record("7", "2024-01-20", 1500, "Amazon", "Shopping", "Online", nil),
		record("8", "2024-01-30", 900, "Mystery", "", "", nil),
		record("9", "2024-01-31", -250000, "Acme", "Income", "Salary", []string{"income"}),
		record("10", "2024-02-28", -250000, "Acme", "Income", "Salary", []string{"income"}),
		record("11", "2024-02-03", 50000, "Savings", "Transfer", "", []string{"transfer"}),
	}
	if err := b.AddAll(records); err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	b.DeclareSection("Empty")
	return b.Build()
}

func TestProjectUnfiltered(t *testing.T) {
	h := sampleHierarchy(t)
	v := Project(h, nil)

	gotOrder := make([]string, 0, len(v.Categories))
	for _, c := range v.Categories {
		gotOrder = append(gotOrder, c.Name)
	}
	wantOrder := []string{"Travel", "Food", "Unknown", "Shopping"}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Fatalf("category order = %v, want %v", gotOrder, wantOrder)
	}

	food := v.Categories[1]
	if food.Total.Cents != 21200 || food.Count != 4 || len(food.Subcategories) != 2 {
		t.Fatalf("food = %+v", food)
	}

	tot := v.Totals
	if tot.GrandTotal.Cents != 30000+21200+900-2500 {
		t.Fatalf("GrandTotal = %d", tot.GrandTotal.Cents)
	}
	if tot.CreditsTotal.Cents != 2500 {
		t.Fatalf("CreditsTotal = %d", tot.CreditsTotal.Cents)
	}
	if tot.GrossSpending.Cents != tot.GrandTotal.Cents+2500 {
		t.Fatalf("GrossSpending = %d", tot.GrossSpending.Cents)
	}
	if tot.UncategorizedTotal.Cents != 900 {
		t.Fatalf("UncategorizedTotal = %d", tot.UncategorizedTotal.Cents)
	}
	if tot.IncomeTotal.Cents != 500000 || tot.IncomeCount != 2 {
		t.Fatalf("income = %d/%d", tot.IncomeTotal.Cents, tot.IncomeCount)
	}
	if tot.TransfersTotal.Cents != 50000 || tot.TransfersCount != 1 {
		t.Fatalf("transfers = %d/%d", tot.TransfersTotal.Cents, tot.TransfersCount)
	}
	wantNet := int64(500000) - tot.GrandTotal.Cents - 50000
	if tot.NetCashFlow.Cents != wantNet {
		t.Fatalf("NetCashFlow = %d, want %d", tot.NetCashFlow.Cents, wantNet)
	}
	if tot.TransactionCount != 8 || tot.MerchantCount != 5 {
		t.Fatalf("counts = %d txns / %d merchants", tot.TransactionCount, tot.MerchantCount)
	}

	if len(v.Credits) != 1 || v.Credits[0].Merchant != "Amazon" || v.Credits[0].Amount.Cents != 2500 {
		t.Fatalf("credits = %+v", v.Credits)
	}

	if want := []string{"2024-01", "2024-02"}; !reflect.DeepEqual(v.Months, want) {
		t.Fatalf("months = %v", v.Months)
	}
}

func TestGrandTotalCountsSharedMerchantsOnce(t *testing.T) {
	h := sampleHierarchy(t)
	v := Project(h, filter.Set{{Type: filter.TypeMerchant, Text: "costco", Mode: filter.ModeInclude}})

	if v.Totals.GrandTotal.Cents != 20000 {
		t.Fatalf("GrandTotal = %d, want 20000", v.Totals.GrandTotal.Cents)
	}
	var sectionSum int64
	for _, s := range v.Sections {
		sectionSum += s.Total.Cents
	}
	if sectionSum != 40000 {
		t.Fatalf("sections should each count costco fully, sum = %d", sectionSum)
	}
}

func TestProjectSections(t *testing.T) {
	h := sampleHierarchy(t)
	v := Project(h, nil)
	if len(v.Sections) != 3 {
		t.Fatalf("sections = %d", len(v.Sections))
	}
	everyday := v.Sections[0]
	if everyday.Key != "everyday" || everyday.Total.Cents != 21200 || len(everyday.Merchants) != 2 {
		t.Fatalf("everyday = %+v", everyday)
	}
	empty := v.Sections[2]
	if empty.Key != "empty" || len(empty.Merchants) != 0 || empty.Total.Cents != 0 {
		t.Fatalf("declared empty section = %+v", empty)
	}
}

func TestProjectOmitsFilteredMerchants(t *testing.T) {
	h := sampleHierarchy(t)
	set := filter.Set{{Type: filter.TypeTag, Text: "coffee", Mode: filter.ModeInclude}}
	v := Project(h, set)

	if len(v.Categories) != 1 || len(v.Categories[0].Subcategories) != 1 {
		t.Fatalf("expected only the coffee cell, got %+v", v.Categories)
	}
	mp := v.Categories[0].Subcategories[0].Merchants[0]
	if mp.Name != "Starbucks" || mp.Count != 2 || mp.Total.Cents != 1200 {
		t.Fatalf("projection = %+v", mp)
	}
	for _, s := range v.Sections {
		for _, m := range s.Merchants {
			if m.Name != "Starbucks" {
				t.Fatalf("section %s leaked %s", s.Key, m.Name)
			}
		}
	}
	if len(v.Excluded.Entries) != 0 {
		t.Fatalf("excluded entries should be filtered too: %+v", v.Excluded.Entries)
	}
	if v.Totals.IncomeTotal.Cents != 0 || v.Totals.NetCashFlow.Cents != -1200 {
		t.Fatalf("totals = %+v", v.Totals)
	}
}

func TestExcludeDominatesEveryView(t *testing.T) {
	h := sampleHierarchy(t)
	set := filter.Set{
		{Type: filter.TypeCategory, Text: "food", Mode: filter.ModeInclude},
		{Type: filter.TypeMonth, Text: "2024-02", Mode: filter.ModeExclude},
	}
	v := Project(h, set)
	for _, c := range v.Categories {
		for _, mp := range c.Merchants() {
			for _, txn := range mp.Txns {
				if txn.Month == "2024-02" {
					t.Fatalf("excluded month leaked into category view via %s", mp.Name)
				}
			}
		}
	}
	if v.Totals.GrandTotal.Cents != 10500 {
		t.Fatalf("GrandTotal = %d, want 10500", v.Totals.GrandTotal.Cents)
	}
}

func TestCreditsDependOnFilteredTotal(t *testing.T) {
	h := sampleHierarchy(t)

	v := Project(h, filter.Set{{Type: filter.TypeMonth, Text: "2024-01", Mode: filter.ModeInclude}})
	if len(v.Credits) != 0 {
		t.Fatalf("amazon is positive in January, credits = %+v", v.Credits)
	}
	v = Project(h, filter.Set{{Type: filter.TypeMonth, Text: "2024-02", Mode: filter.ModeInclude}})
	if len(v.Credits) != 1 || v.Credits[0].Amount.Cents != 4000 {
		t.Fatalf("credits = %+v", v.Credits)
	}
}

func TestProjectMerchantStats(t *testing.T) {
	h := sampleHierarchy(t)
	v := Project(h, nil)
	var starbucks, delta MerchantProjection
	for _, c := range v.Categories {
		for _, mp := range c.Merchants() {
			switch mp.Name {
			case "Starbucks":
				starbucks = mp
			case "Delta":
				delta = mp
			}
		}
	}
	if starbucks.MonthsActive != 2 || starbucks.AvgWhenActive.Cents != 600 || starbucks.MaxPayment.Cents != 700 {
		t.Fatalf("starbucks stats = %+v", starbucks)
	}
	if starbucks.MonthlyValue.Cents != 100 { // 1200 over a full year
		t.Fatalf("MonthlyValue = %d", starbucks.MonthlyValue.Cents)
	}
	if starbucks.CV != 0.17 || !starbucks.IsConsistent {
		t.Fatalf("cv = %v consistent = %v", starbucks.CV, starbucks.IsConsistent)
	}
	if delta.CV != 0 || !delta.IsConsistent {
		t.Fatalf("single month merchant must be consistent, got %+v", delta)
	}
	if !reflect.DeepEqual(starbucks.Months, []string{"2024-01", "2024-02"}) {
		t.Fatalf("months = %v", starbucks.Months)
	}
}

func TestProjectPercentages(t *testing.T) {
	h := sampleHierarchy(t)
	v := Project(h, nil)
	if v.Categories[0].Name != "Travel" || v.Categories[0].Percentage != 57.6 {
		t.Fatalf("travel share = %v, want 57.6", v.Categories[0].Percentage)
	}
	if v.Categories[3].Percentage >= 0 {
		t.Fatalf("a net-credit category has a negative share, got %v", v.Categories[3].Percentage)
	}

	credit := Project(h, filter.Set{{Type: filter.TypeMonth, Text: "2024-02", Mode: filter.ModeInclude}, {Type: filter.TypeMerchant, Text: "amazon", Mode: filter.ModeInclude}})
	if credit.Totals.GrossSpending.Cents != 0 {
		t.Fatalf("GrossSpending = %d", credit.Totals.GrossSpending.Cents)
	}
	if credit.Categories[0].Percentage != 0 {
		t.Fatalf("zero gross spending must yield 0%%, got %v", credit.Categories[0].Percentage)
	}
}

func TestProjectEmptyHierarchy(t *testing.T) {
	h := core.NewHierarchyBuilder(core.Metadata{}).Build()
	v := Project(h, filter.Set{{Type: filter.TypeTag, Text: "x", Mode: filter.ModeInclude}})
	if len(v.Categories) != 0 || len(v.Sections) != 0 || len(v.Excluded.Entries) != 0 {
		t.Fatalf("expected empty views, got %+v", v)
	}
	if v.Totals != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", v.Totals)
	}
}

func TestProjectDeterministic(t *testing.T) {
	h := sampleHierarchy(t)
	set := filter.Set{{Type: filter.TypeCategory, Text: "o", Mode: filter.ModeInclude}}
	a := Project(h, set)
	b := Project(h, set)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Project is not deterministic")
	}
}

func TestTagPredicatesMatchEachTransaction(t *testing.T) {
	b := core.NewHierarchyBuilder(core.Metadata{Year: 2024})
	err := b.AddAll([]core.Record{
		record("1", "2024-01-10", 500, "Starbucks", "Food", "Coffee", []string{"coffee"}),
		record("2", "2024-01-20", 900, "Starbucks", "Food", "Coffee", nil),
	})
	if err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	h := b.Build()

	tests := []struct {
		name      string
		set       filter.Set
		wantTotal int64
		wantCount int
	}{
		{
			"include keeps the tagged transaction",
			filter.Set{
				{Type: filter.TypeCategory, Text: "Food", Mode: filter.ModeInclude},
				{Type: filter.TypeTag, Text: "coffee", Mode: filter.ModeInclude},
			},
			500, 1,
		},
		{
			"exclude drops only the tagged transaction",
			filter.Set{{Type: filter.TypeTag, Text: "coffee", Mode: filter.ModeExclude}},
			900, 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Project(h, tt.set)
			if v.Totals.GrandTotal.Cents != tt.wantTotal || v.Totals.TransactionCount != tt.wantCount {
				t.Errorf("grand = %d count = %d, want %d and %d",
					v.Totals.GrandTotal.Cents, v.Totals.TransactionCount, tt.wantTotal, tt.wantCount)
			}
		})
	}

	v := Project(h, nil)
	mp := v.Categories[0].Subcategories[0].Merchants[0]
	if !mp.Tags.Has("coffee") {
		t.Errorf("projection tags should show transaction tags, got %v", mp.Tags.Sorted())
	}
}
