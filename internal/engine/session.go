package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"tally/internal/autocomplete"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/filter"
	"tally/internal/log"
	"tally/internal/sorting"
	"tally/internal/urlstate"
)

var (
	ErrFilterIndex      = errors.New("filter index out of range")
	ErrInvalidPredicate = errors.New("invalid predicate")
	ErrUnknownSection   = errors.New("unknown sort section")
)

// Snapshot is one committed generation of the session state.
type Snapshot struct {
	Generation uint64     `json:"generation"`
	Filters    filter.Set `json:"filters"`
	*Result
}

// Observer is notified after every committed generation.
type Observer func(*Snapshot)

// Session is the single writer of the filter set and sort configuration.
// Mutations are serialized; readers take the current Snapshot without
// locking and always see a fully computed generation.
type Session struct {
	h        *core.Hierarchy
	index    *autocomplete.Index
	sections map[string]struct{}
	sortOpts []sorting.Option
	results  cache.Cache[*Result]
	logger   *log.Logger
	slog     *log.StructuredLogger

	mu         sync.Mutex
	set        filter.Set
	sorts      sorting.Configs
	generation uint64
	observers  []Observer

	current atomic.Pointer[Snapshot]
}

// Option configures a Session.
type Option func(*Session)

// WithCache memoizes results. Compute is pure, so any (filters, sorts) pair
// seen before is served from c.
func WithCache(c cache.Cache[*Result]) Option {
	return func(s *Session) { s.results = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSortOptions passes collation options through to every sort.
func WithSortOptions(opts ...sorting.Option) Option {
	return func(s *Session) { s.sortOpts = append(s.sortOpts, opts...) }
}

// NewSession commits the first generation: no filters, default sorting.
func NewSession(h *core.Hierarchy, index *autocomplete.Index, opts ...Option) *Session {
	if h == nil {
		h = &core.Hierarchy{}
	}
	if index == nil {
		index = autocomplete.Build(h)
	}
	s := &Session{
		h:        h,
		index:    index,
		sections: KnownSections(h),
		sorts:    sorting.Configs{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentEngine)
	s.slog = log.NewStructuredLogger(s.logger)

	s.mu.Lock()
	s.commitLocked(nil, s.sorts)
	s.mu.Unlock()
	return s
}

// Snapshot returns the current generation.
func (s *Session) Snapshot() *Snapshot {
	return s.current.Load()
}

// Hierarchy returns the catalog the session projects.
func (s *Session) Hierarchy() *core.Hierarchy { return s.h }

// Index returns the autocomplete index built for the catalog.
func (s *Session) Index() *autocomplete.Index { return s.index }

// Subscribe registers fn to run after every commit, in registration order,
// on the committing goroutine. fn must not mutate the session.
func (s *Session) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// AddFilter appends p. Adding a predicate whose type and text are already
// present leaves the state unchanged and reports added=false.
func (s *Session) AddFilter(p filter.Predicate) (snap *Snapshot, added bool, err error) {
	if err := p.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidPredicate, err)
	}
	if p.DisplayText == "" {
		if display, ok := s.index.DisplayText(p.Type, p.Text); ok {
			p.DisplayText = display
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, added := s.set.Add(p)
	if !added {
		return s.current.Load(), false, nil
	}
	return s.commitLocked(next, s.sorts), true, nil
}

// RemoveFilter drops the predicate at index i.
func (s *Session) RemoveFilter(i int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.set.Remove(i)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrFilterIndex, i)
	}
	return s.commitLocked(next, s.sorts), nil
}

// ToggleFilterMode flips the predicate at index i between include and exclude.
func (s *Session) ToggleFilterMode(i int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.set.ToggleMode(i)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrFilterIndex, i)
	}
	return s.commitLocked(next, s.sorts), nil
}

// ClearFilters removes every predicate.
func (s *Session) ClearFilters() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(nil, s.sorts)
}

// ReplaceFilters installs set wholesale after validating every predicate.
// Duplicate (type, text) pairs keep their first occurrence.
func (s *Session) ReplaceFilters(set filter.Set) (*Snapshot, error) {
	for i, p := range set {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w at %d: %w", ErrInvalidPredicate, i, err)
		}
	}
	next := set.Dedup()
	for i := range next {
		if next[i].DisplayText == "" {
			if display, ok := s.index.DisplayText(next[i].Type, next[i].Text); ok {
				next[i].DisplayText = display
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(next, s.sorts), nil
}

// ApplyEncoded replaces the filters with the decoded form of encoded.
// Malformed tokens are dropped, so this never fails.
func (s *Session) ApplyEncoded(encoded string) *Snapshot {
	next := urlstate.Decode(encoded, s.index)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(next, s.sorts)
}

// ToggleSort applies a column click on section.
func (s *Session) ToggleSort(section string, column sorting.Column) (*Snapshot, error) {
	if _, ok := s.sections[section]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.sorts.Clone()
	next.Toggle(section, column)
	return s.commitLocked(s.set, next), nil
}

// Filters returns a copy of the active filter set.
func (s *Session) Filters() filter.Set {
	return s.current.Load().Filters.Clone()
}

// commitLocked computes the next generation and publishes it. The caller
// holds s.mu.
func (s *Session) commitLocked(set filter.Set, sorts sorting.Configs) *Snapshot {
	set = set.Clone()
	label(set, s.index)
	key := resultKey(set, sorts)

	var res *Result
	hit := false
	if s.results != nil {
		res, hit = s.results.Get(key)
	}
	if !hit {
		res = Compute(s.h, s.index, set, sorts, s.sortOpts...)
		if s.results != nil {
			s.results.Set(key, res)
		}
	}

	s.set = set
	s.sorts = sorts
	s.generation++
	snap := &Snapshot{
		Generation: s.generation,
		Filters:    set.Clone(),
		Result:     res,
	}
	s.current.Store(snap)
	s.slog.LogViewComputed(context.Background(), res.Encoded, len(set), snap.Generation, hit)

	for _, w := range res.Warnings {
		s.logger.Warn("filter ignored", log.FieldError, w)
	}
	for _, fn := range s.observers {
		fn(snap)
	}
	return snap
}

// resultKey identifies a computed result. Labels are part of the key because
// the result carries them: the same predicate re-added under another label
// must not be served the old one.
func resultKey(set filter.Set, sorts sorting.Configs) string {
	var b strings.Builder
	b.WriteString(urlstate.Encode(set))
	for _, p := range set {
		b.WriteByte(0)
		b.WriteString(p.DisplayText)
	}
	b.WriteByte('|')
	b.WriteString(sorts.Canonical())
	return b.String()
}
