package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tally/internal/amqp"
	"tally/internal/autocomplete"
	"tally/internal/engine"
	"tally/internal/filter"
	"tally/internal/log"
	"tally/internal/sorting"
)

// StateStore persists the encoded filter string between runs.
type StateStore interface {
	LoadFilterState(ctx context.Context) (string, error)
	SaveFilterState(ctx context.Context, encoded string) error
}

// Publisher announces committed view generations.
type Publisher interface {
	PublishViewUpdated(ctx context.Context, msg *amqp.ViewUpdatedMessage) error
}

// ViewService orchestrates the interaction layer: it drives the session,
// keeps the persisted filter state in step and publishes view updates.
type ViewService struct {
	session   *engine.Session
	store     StateStore
	publisher Publisher
	logger    *log.Logger

	// mu keeps persistence in commit order across concurrent callers.
	mu        sync.Mutex
	persisted string
}

// NewViewService wires session to an optional store and publisher. Either
// may be nil.
func NewViewService(session *engine.Session, store StateStore, publisher Publisher, logger *log.Logger) *ViewService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ViewService{
		session:   session,
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentViews),
		persisted: session.Snapshot().Encoded,
	}
}

func (s *ViewService) Session() *engine.Session { return s.session }

// Snapshot returns the current generation without blocking writers.
func (s *ViewService) Snapshot() *engine.Snapshot { return s.session.Snapshot() }

// Restore applies the persisted filter state, if any.
func (s *ViewService) Restore(ctx context.Context) (*engine.Snapshot, error) {
	if s.store == nil {
		return s.session.Snapshot(), nil
	}
	encoded, err := s.store.LoadFilterState(ctx)
	if err != nil {
		return s.session.Snapshot(), fmt.Errorf("restore filter state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.session.ApplyEncoded(encoded)
	s.persisted = snap.Encoded
	s.logger.Info("Filter state restored",
		log.FieldEncoded, snap.Encoded,
		log.FieldFilters, len(snap.Filters),
		log.FieldGeneration, snap.Generation,
	)
	return snap, nil
}

func (s *ViewService) AddFilter(ctx context.Context, p filter.Predicate) (*engine.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, added, err := s.session.AddFilter(p)
	if err != nil || !added {
		return snap, added, err
	}
	return snap, true, s.afterCommit(ctx, snap)
}

func (s *ViewService) RemoveFilter(ctx context.Context, i int) (*engine.Snapshot, error) {
	return s.mutate(ctx, func() (*engine.Snapshot, error) { return s.session.RemoveFilter(i) })
}

func (s *ViewService) ToggleFilterMode(ctx context.Context, i int) (*engine.Snapshot, error) {
	return s.mutate(ctx, func() (*engine.Snapshot, error) { return s.session.ToggleFilterMode(i) })
}

func (s *ViewService) ClearFilters(ctx context.Context) (*engine.Snapshot, error) {
	return s.mutate(ctx, func() (*engine.Snapshot, error) { return s.session.ClearFilters(), nil })
}

func (s *ViewService) ReplaceFilters(ctx context.Context, set filter.Set) (*engine.Snapshot, error) {
	return s.mutate(ctx, func() (*engine.Snapshot, error) { return s.session.ReplaceFilters(set) })
}

// ApplyEncoded replaces the filters with a decoded state string.
func (s *ViewService) ApplyEncoded(ctx context.Context, encoded string) (*engine.Snapshot, error) {
	return s.mutate(ctx, func() (*engine.Snapshot, error) { return s.session.ApplyEncoded(encoded), nil })
}

// ToggleSort changes the ordering of one section. Sort state is not
// persisted, but the new generation is still published.
func (s *ViewService) ToggleSort(ctx context.Context, section string, column sorting.Column) (*engine.Snapshot, error) {
	return s.mutate(ctx, func() (*engine.Snapshot, error) { return s.session.ToggleSort(section, column) })
}

// Autocomplete returns suggestions for the filter input.
func (s *ViewService) Autocomplete(query string) []autocomplete.Entry {
	return s.session.Index().Query(query)
}

func (s *ViewService) mutate(ctx context.Context, fn func() (*engine.Snapshot, error)) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := fn()
	if err != nil {
		return nil, err
	}
	return snap, s.afterCommit(ctx, snap)
}

// afterCommit persists and publishes snap. The in-memory generation stands
// even when either step fails. The caller holds s.mu.
func (s *ViewService) afterCommit(ctx context.Context, snap *engine.Snapshot) error {
	var errs []error

	if s.store != nil && snap.Encoded != s.persisted {
		if err := s.store.SaveFilterState(ctx, snap.Encoded); err != nil {
			s.logger.Error("Failed to persist filter state",
				log.FieldEncoded, snap.Encoded,
				log.FieldGeneration, snap.Generation,
				log.FieldError, err,
			)
			errs = append(errs, fmt.Errorf("persist filter state: %w", err))
		} else {
			s.persisted = snap.Encoded
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishViewUpdated(ctx, newViewUpdatedMessage(snap)); err != nil {
			s.logger.Warn("Failed to publish view update",
				log.FieldGeneration, snap.Generation,
				log.FieldError, err,
			)
			errs = append(errs, fmt.Errorf("publish view update: %w", err))
		}
	}

	return errors.Join(errs...)
}

func newViewUpdatedMessage(snap *engine.Snapshot) *amqp.ViewUpdatedMessage {
	msg := amqp.NewViewUpdatedMessage(snap.Generation, snap.Encoded, len(snap.Filters))
	totals := snap.Views.Totals
	msg.GrandTotal = totals.GrandTotal.Cents
	msg.NetCashFlow = totals.NetCashFlow.Cents
	msg.Transactions = totals.TransactionCount
	msg.Merchants = totals.MerchantCount
	return msg
}

// Close releases the store and publisher when they hold resources.
func (s *ViewService) Close() error {
	var errs []error
	if c, ok := s.store.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("state store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close view service: %w", err)
	}
	return nil
}
