package filter

import (
	"tally/internal/core"
)

// Subject is the normalized, case-folded view of one filterable transaction.
type Subject struct {
	MerchantID   string
	MerchantName string
	Category     string
	Subcategory  string
	CategoryPath string
	Location     string
	Month        string
	Description  string

	merchantTags core.TagSet
	txnTags      core.TagSet
}

// HasTag reports whether the transaction carries tag or the classifier
// tagged its merchant with it.
func (s *Subject) HasTag(tag string) bool {
	return s.txnTags.Has(tag) || s.merchantTags.Has(tag)
}

// MerchantSubject builds the merchant part of a subject. Combine it with
// each transaction through WithTransaction.
func MerchantSubject(m *core.Merchant) Subject {
	return Subject{
		MerchantID:   fold(m.ID),
		MerchantName: fold(m.DisplayName),
		Category:     fold(m.Category),
		Subcategory:  fold(m.Subcategory),
		CategoryPath: fold(m.CategoryPath),
		merchantTags: m.Tags,
	}
}

// WithTransaction returns a copy of s describing txn.
func (s Subject) WithTransaction(txn core.Transaction) Subject {
	s.Location = fold(txn.Location)
	s.Month = fold(txn.Month)
	s.Description = fold(txn.Description)
	s.txnTags = txn.Tags
	return s
}

// ExcludedSubject reads every field directly off an excluded transaction.
func ExcludedSubject(ex core.ExcludedTransaction) Subject {
	name := fold(ex.Merchant)
	return Subject{
		MerchantID:   name,
		MerchantName: name,
		Category:     fold(ex.Category),
		Subcategory:  fold(ex.Subcategory),
		Location:     fold(ex.Location),
		Month:        fold(ex.Month),
		Description:  fold(ex.Description),
		txnTags:      ex.Tags,
	}
}

// Evaluator is a compiled filter set.
//
// Excludes form a global AND-NOT gate checked first. Includes are grouped by
// type: a subject must match at least one include of every type present.
type Evaluator struct {
	excludes []Condition
	groups   [][]Condition
}

// Compile prepares set for evaluation. Predicates without a registered
// matcher never match.
func Compile(set Set) *Evaluator {
	e := &Evaluator{}
	groupIdx := make(map[Type]int)
	for _, p := range set {
		cond := Condition(never)
		if m, err := LookupMatcher(p.Type); err == nil {
			cond = m.Compile(p.Text)
		}
		if p.IsExclude() {
			e.excludes = append(e.excludes, cond)
			continue
		}
		i, ok := groupIdx[p.Type]
		if !ok {
			i = len(e.groups)
			groupIdx[p.Type] = i
			e.groups = append(e.groups, nil)
		}
		e.groups[i] = append(e.groups[i], cond)
	}
	return e
}

// Empty reports whether the evaluator admits everything.
func (e *Evaluator) Empty() bool {
	return len(e.excludes) == 0 && len(e.groups) == 0
}

// Match evaluates the compiled set against s.
func (e *Evaluator) Match(s *Subject) bool {
	for _, cond := range e.excludes {
		if cond(s) {
			return false
		}
	}
	for _, group := range e.groups {
		if !anyMatch(group, s) {
			return false
		}
	}
	return true
}

func anyMatch(group []Condition, s *Subject) bool {
	for _, cond := range group {
		if cond(s) {
			return true
		}
	}
	return false
}

// Evaluate reports whether s passes set.
func Evaluate(s *Subject, set Set) bool {
	return Compile(set).Match(s)
}

// EvaluateTransaction reports whether txn of merchant m passes set.
func EvaluateTransaction(txn core.Transaction, m *core.Merchant, set Set) bool {
	s := MerchantSubject(m).WithTransaction(txn)
	return Evaluate(&s, set)
}

// EvaluateExcluded reports whether an excluded transaction passes set.
func EvaluateExcluded(ex core.ExcludedTransaction, set Set) bool {
	s := ExcludedSubject(ex)
	return Evaluate(&s, set)
}
