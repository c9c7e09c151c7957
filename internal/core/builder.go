package core

import (
	"fmt"
	"strings"
	"time"
)

// Record is a flat classified transaction row as produced by the classifier.
// Catalog sources read records and fold them into a Hierarchy.
type Record struct {
	ID             string   `json:"id"`
	Date           string   `json:"date"` // YYYY-MM-DD
	Amount         Money    `json:"amount"`
	Description    string   `json:"description"`
	Location       string   `json:"location,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Source         string   `json:"source,omitempty"`
	MerchantID     string   `json:"merchant_id"`
	MerchantName   string   `json:"merchant_name,omitempty"`
	Category       string   `json:"category"`
	Subcategory    string   `json:"subcategory,omitempty"`
	CategoryPath   string   `json:"category_path,omitempty"`
	MerchantTags   []string `json:"merchant_tags,omitempty"`
	Sections       []string `json:"sections,omitempty"`
	ExcludedReason string   `json:"excluded_reason,omitempty"`
}

// Transaction converts the row into an immutable Transaction.
func (r Record) Transaction() (Transaction, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
	if err != nil {
		return Transaction{}, fmt.Errorf("record %q: invalid date %q: %w", r.ID, r.Date, err)
	}
	d := Date{Time: parsed}
	return Transaction{
		ID:          r.ID,
		Date:        d,
		Month:       d.MonthKey(),
		Amount:      r.Amount,
		Description: r.Description,
		Location:    strings.TrimSpace(r.Location),
		Tags:        NewTagSet(r.Tags...),
		Source:      r.Source,
	}, nil
}

type subBuild struct {
	name      string
	merchants []*Merchant
}

type catBuild struct {
	name   string
	subs   []*subBuild
	subIdx map[string]int
}

type sectionBuild struct {
	key     string
	name    string
	members map[string]struct{}
	list    []*Merchant
}

// HierarchyBuilder folds classified records into a Hierarchy. Categories,
// subcategories, merchants and sections keep first-seen order.
type HierarchyBuilder struct {
	meta       Metadata
	cats       []*catBuild
	catIdx     map[string]int
	merchants  map[string]*Merchant
	sections   []*sectionBuild
	sectionIdx map[string]int
	excluded   []ExcludedTransaction
}

// NewHierarchyBuilder creates a builder seeded with report metadata.
func NewHierarchyBuilder(meta Metadata) *HierarchyBuilder {
	return &HierarchyBuilder{
		meta:       meta,
		catIdx:     make(map[string]int),
		merchants:  make(map[string]*Merchant),
		sectionIdx: make(map[string]int),
	}
}

// SectionKey derives the stable key of a section name.
func SectionKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// DeclareSection registers a section up front so it is listed even when no
// merchant falls into it, and fixes its position in the section order.
func (b *HierarchyBuilder) DeclareSection(name string) {
	b.section(name)
}

func (b *HierarchyBuilder) section(name string) *sectionBuild {
	key := SectionKey(name)
	if i, ok := b.sectionIdx[key]; ok {
		return b.sections[i]
	}
	s := &sectionBuild{key: key, name: strings.TrimSpace(name), members: make(map[string]struct{})}
	b.sectionIdx[key] = len(b.sections)
	b.sections = append(b.sections, s)
	return s
}

// Add folds one record into the hierarchy.
func (b *HierarchyBuilder) Add(r Record) error {
	txn, err := r.Transaction()
	if err != nil {
		return err
	}

	if reason := excludedReason(r.ExcludedReason, txn.Tags); reason != "" {
		name := strings.TrimSpace(r.MerchantName)
		if name == "" {
			name = strings.TrimSpace(r.MerchantID)
		}
		b.excluded = append(b.excluded, ExcludedTransaction{
			Transaction: txn,
			Merchant:    name,
			Category:    r.Category,
			Subcategory: r.Subcategory,
			Reason:      reason,
		})
		return nil
	}

	id := strings.TrimSpace(r.MerchantID)
	if id == "" {
		id = strings.TrimSpace(r.MerchantName)
	}
	if id == "" {
		return fmt.Errorf("record %q: %w", r.ID, ErrEmptyMerchant)
	}

	m, ok := b.merchants[id]
	if !ok {
		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = UncategorizedName
		}
		m = &Merchant{
			ID:           id,
			DisplayName:  strings.TrimSpace(r.MerchantName),
			Category:     category,
			Subcategory:  strings.TrimSpace(r.Subcategory),
			CategoryPath: strings.TrimSpace(r.CategoryPath),
			Tags:         NewTagSet(),
		}
		b.merchants[id] = m
		b.place(m)
	}
	m.Transactions = append(m.Transactions, txn)
	// Transaction tags stay on the transaction; only classifier tags apply
	// to every transaction of the merchant.
	m.Tags = m.Tags.Union(NewTagSet(r.MerchantTags...))

	for _, name := range r.Sections {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s := b.section(name)
		if _, seen := s.members[m.ID]; seen {
			continue
		}
		s.members[m.ID] = struct{}{}
		s.list = append(s.list, m)
	}
	return nil
}

// AddAll folds every record, stopping at the first invalid one.
func (b *HierarchyBuilder) AddAll(records []Record) error {
	for _, r := range records {
		if err := b.Add(r); err != nil {
			return err
		}
	}
	return nil
}

func (b *HierarchyBuilder) place(m *Merchant) {
	ci, ok := b.catIdx[m.Category]
	if !ok {
		ci = len(b.cats)
		b.catIdx[m.Category] = ci
		b.cats = append(b.cats, &catBuild{name: m.Category, subIdx: make(map[string]int)})
	}
	c := b.cats[ci]
	si, ok := c.subIdx[m.Subcategory]
	if !ok {
		si = len(c.subs)
		c.subIdx[m.Subcategory] = si
		c.subs = append(c.subs, &subBuild{name: m.Subcategory})
	}
	c.subs[si].merchants = append(c.subs[si].merchants, m)
}

// Build returns the finished hierarchy. The builder must not be used afterwards.
func (b *HierarchyBuilder) Build() *Hierarchy {
	h := &Hierarchy{Metadata: b.meta, Excluded: b.excluded}
	for _, c := range b.cats {
		node := CategoryNode{Name: c.name}
		for _, s := range c.subs {
			node.Subcategories = append(node.Subcategories, SubcategoryNode{Name: s.name, Merchants: s.merchants})
		}
		h.Categories = append(h.Categories, node)
	}
	for _, s := range b.sections {
		h.Sections = append(h.Sections, SectionNode{Key: s.key, Name: s.name, Merchants: s.list})
	}
	if h.Metadata.NumMonths <= 0 {
		h.Metadata.NumMonths = DefaultNumMonths
	}
	return h
}

func excludedReason(explicit string, tags TagSet) string {
	if r := strings.TrimSpace(explicit); r != "" {
		return r
	}
	switch {
	case tags.Has(TagIncome):
		return "tagged-" + TagIncome
	case tags.Has(TagTransfer):
		return "tagged-" + TagTransfer
	}
	return ""
}
