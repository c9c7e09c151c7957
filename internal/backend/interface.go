package backend

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/catalog"
	"tally/internal/core"
	"tally/internal/services"
)

// Backend is everything the application needs from the outside world: the
// loaded catalog, where filter state is kept and where view updates go.
type Backend struct {
	Source    catalog.Source
	Catalog   *catalog.Catalog
	Hierarchy *core.Hierarchy

	// State and Publisher are nil when not configured.
	State     services.StateStore
	Publisher services.Publisher

	checks []Checker
}

// Checker reports whether a dependency is usable.
type Checker interface {
	Ping(ctx context.Context) error
}

// Ready pings every dependency that supports it.
func (b *Backend) Ready(ctx context.Context) error {
	var errs []error
	for _, c := range b.checks {
		if err := c.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("backend not ready: %w", err)
	}
	return nil
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// SourceType names a catalog source.
type SourceType string

const (
	MemorySource   SourceType = "memory"
	JSONSource     SourceType = "json"
	SQLiteSource   SourceType = "sqlite"
	PostgresSource SourceType = "postgres"
	SheetsSource   SourceType = "sheets"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case MemorySource, JSONSource, SQLiteSource, PostgresSource, SheetsSource:
		return true
	default:
		return false
	}
}
