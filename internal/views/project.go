package views

import (
	"math"
	"sort"

	"tally/internal/core"
	"tally/internal/filter"
)

// consistencyThreshold is the coefficient of variation below which a
// merchant's monthly spend counts as steady.
const consistencyThreshold = 0.3

// Project computes every view of h through set. It is pure: the same inputs
// always produce the same output and h is never modified.
func Project(h *core.Hierarchy, set filter.Set) *Views {
	p := &projector{
		eval:      filter.Compile(set),
		numMonths: h.Metadata.NumMonths,
		memo:      make(map[string]*MerchantProjection),
	}

	v := &Views{
		Filters: set.Clone(),
		Months:  h.Months(),
	}
	v.Categories = p.categories(h.Categories)
	v.Sections = p.sections(h.Sections)
	v.Excluded = p.excluded(h.Excluded)
	v.Credits = credits(v.Categories)
	v.Totals = totals(v)

	for i := range v.Categories {
		v.Categories[i].Percentage = percentage(v.Categories[i].Total, v.Totals.GrossSpending)
	}
	return v
}

type projector struct {
	eval      *filter.Evaluator
	numMonths int
	// memo holds one projection per merchant id so that a merchant listed
	// in several sections is evaluated once. A nil entry records omission.
	memo map[string]*MerchantProjection
}

func (p *projector) merchant(m *core.Merchant) *MerchantProjection {
	if mp, ok := p.memo[m.ID]; ok {
		return mp
	}
	mp := p.project(m)
	p.memo[m.ID] = mp
	return mp
}

func (p *projector) project(m *core.Merchant) *MerchantProjection {
	base := filter.MerchantSubject(m)
	var txns []core.Transaction
	for _, txn := range m.Transactions {
		s := base.WithTransaction(txn)
		if p.eval.Match(&s) {
			txns = append(txns, txn)
		}
	}
	if len(txns) == 0 {
		return nil
	}

	mp := &MerchantProjection{
		Merchant: m,
		ID:       m.ID,
		Name:     m.Name(),
		Category: m.Category,
		Sub:      m.Subcategory,
		Tags:     m.Tags.Union(nil),
		Txns:     txns,
		Count:    len(txns),
	}
	monthly := make(map[string]int64)
	var monthOrder []string
	for _, txn := range txns {
		for tag := range txn.Tags {
			mp.Tags[tag] = struct{}{}
		}
		mp.Total = mp.Total.Add(txn.Amount)
		if txn.Amount.Cents > mp.MaxPayment.Cents {
			mp.MaxPayment = txn.Amount
		}
		if _, ok := monthly[txn.Month]; !ok {
			monthOrder = append(monthOrder, txn.Month)
		}
		monthly[txn.Month] += txn.Amount.Cents
	}
	sort.Strings(monthOrder)
	mp.Months = monthOrder
	mp.MonthsActive = len(monthOrder)
	mp.AvgWhenActive = core.Money{Cents: divRound(mp.Total.Cents, mp.MonthsActive)}
	mp.MonthlyValue = core.Money{Cents: divRound(mp.Total.Cents, p.numMonths)}
	mp.CV, mp.IsConsistent = consistency(monthly)
	return mp
}

func (p *projector) categories(nodes []core.CategoryNode) []CategoryView {
	var out []CategoryView
	for _, c := range nodes {
		cv := CategoryView{Name: c.Name}
		for _, s := range c.Subcategories {
			sv := SubcategoryView{Name: s.Name}
			for _, m := range s.Merchants {
				mp := p.merchant(m)
				if mp == nil {
					continue
				}
				sv.Merchants = append(sv.Merchants, *mp)
				sv.Total = sv.Total.Add(mp.Total)
				sv.Count += mp.Count
			}
			if len(sv.Merchants) == 0 {
				continue
			}
			cv.Subcategories = append(cv.Subcategories, sv)
			cv.Total = cv.Total.Add(sv.Total)
			cv.Count += sv.Count
		}
		if len(cv.Subcategories) == 0 {
			continue
		}
		out = append(out, cv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out
}

// sections keeps every declared section, even when the filter leaves it
// empty, so section tabs stay stable while filtering.
func (p *projector) sections(nodes []core.SectionNode) []SectionView {
	out := make([]SectionView, 0, len(nodes))
	for _, s := range nodes {
		sv := SectionView{Key: s.Key, Name: s.Name}
		for _, m := range s.Merchants {
			mp := p.merchant(m)
			if mp == nil {
				continue
			}
			sv.Merchants = append(sv.Merchants, *mp)
			sv.Total = sv.Total.Add(mp.Total)
			sv.Count += mp.Count
		}
		out = append(out, sv)
	}
	return out
}

func (p *projector) excluded(pool []core.ExcludedTransaction) ExcludedView {
	var v ExcludedView
	var income, transfers core.Money
	for _, ex := range pool {
		s := filter.ExcludedSubject(ex)
		if !p.eval.Match(&s) {
			continue
		}
		e := ExcludedEntry{
			ID:          ex.ID,
			Date:        ex.Date.Format("2006-01-02"),
			Month:       ex.Month,
			Description: ex.Description,
			Merchant:    ex.Merchant,
			Category:    ex.Category,
			Subcategory: ex.Subcategory,
			Location:    ex.Location,
			Amount:      ex.Amount,
			Tags:        ex.Tags,
			Reason:      ex.Reason,
			Source:      ex.Source,
		}
		v.Entries = append(v.Entries, e)
		if ex.Tags.Has(core.TagIncome) {
			v.Income.Entries = append(v.Income.Entries, e)
			v.Income.Count++
			income = income.Add(ex.Amount)
		}
		if ex.Tags.Has(core.TagTransfer) {
			v.Transfers.Entries = append(v.Transfers.Entries, e)
			v.Transfers.Count++
			transfers = transfers.Add(ex.Amount)
		}
	}
	v.Income.Total = income.Abs()
	v.Transfers.Total = transfers.Abs()
	return v
}

func credits(categories []CategoryView) []Credit {
	var out []Credit
	for _, c := range categories {
		for _, mp := range c.Merchants() {
			if !mp.Total.IsNegative() {
				continue
			}
			out = append(out, Credit{
				MerchantID: mp.ID,
				Merchant:   mp.Name,
				Category:   mp.Category,
				Amount:     mp.Total.Abs(),
				Count:      mp.Count,
			})
		}
	}
	return out
}

// totals derives the scalars. The grand total comes from the category view
// only, so merchants shared by several sections are counted once.
func totals(v *Views) Totals {
	var t Totals
	for _, c := range v.Categories {
		t.GrandTotal = t.GrandTotal.Add(c.Total)
		for _, mp := range c.Merchants() {
			t.MerchantCount++
			t.TransactionCount += mp.Count
			t.MonthlyAverage = t.MonthlyAverage.Add(mp.MonthlyValue)
			if mp.Merchant != nil && mp.Merchant.IsUncategorized() {
				t.UncategorizedTotal = t.UncategorizedTotal.Add(mp.Total)
			}
		}
	}
	for _, c := range v.Credits {
		t.CreditsTotal = t.CreditsTotal.Add(c.Amount)
	}
	t.GrossSpending = t.GrandTotal.Add(t.CreditsTotal)
	t.IncomeTotal = v.Excluded.Income.Total
	t.IncomeCount = v.Excluded.Income.Count
	t.TransfersTotal = v.Excluded.Transfers.Total
	t.TransfersCount = v.Excluded.Transfers.Count
	t.NetCashFlow = core.Money{Cents: t.IncomeTotal.Cents - t.GrandTotal.Cents - t.TransfersTotal.Cents}
	return t
}

// percentage returns part as a share of whole, rounded to one decimal. It
// is 0 when whole is not positive.
func percentage(part, whole core.Money) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	return math.Round(float64(part.Cents)/float64(whole.Cents)*1000) / 10
}

// consistency returns the coefficient of variation of the monthly amounts.
// Fewer than two months, or a non-positive mean, count as consistent.
func consistency(monthly map[string]int64) (float64, bool) {
	if len(monthly) < 2 {
		return 0, true
	}
	var sum float64
	for _, c := range monthly {
		sum += float64(c)
	}
	mean := sum / float64(len(monthly))
	if mean <= 0 {
		return 0, true
	}
	var variance float64
	for _, c := range monthly {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= float64(len(monthly))
	cv := math.Sqrt(variance) / mean
	return math.Round(cv*100) / 100, cv < consistencyThreshold
}

// divRound divides cents by n rounding half away from zero. It is 0 for n <= 0.
func divRound(cents int64, n int) int64 {
	if n <= 0 {
		return 0
	}
	return int64(math.Round(float64(cents) / float64(n)))
}
