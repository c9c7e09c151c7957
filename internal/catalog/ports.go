// Package catalog defines where classified transactions come from. Every
// source yields the same flat Catalog, which is folded into a Hierarchy once
// at startup.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tally/internal/core"
)

// ErrNotFound is returned when the configured catalog does not exist.
var ErrNotFound = errors.New("catalog not found")

// Catalog is the flat form of a classified transaction set.
type Catalog struct {
	Metadata core.Metadata `json:"metadata"`
	Sections []string      `json:"sections,omitempty"`
	Records  []core.Record `json:"records"`
}

// Source loads a catalog. Sources are read-only.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Catalog, error)

func (f SourceFunc) Load(ctx context.Context) (*Catalog, error) { return f(ctx) }

// Hierarchy folds the catalog. Declared sections are registered first so
// they keep their order and are listed even when empty.
func (c *Catalog) Hierarchy() (*core.Hierarchy, error) {
	b := core.NewHierarchyBuilder(c.Metadata)
	for _, s := range c.Sections {
		if strings.TrimSpace(s) != "" {
			b.DeclareSection(s)
		}
	}
	if err := b.AddAll(c.Records); err != nil {
		return nil, fmt.Errorf("build hierarchy: %w", err)
	}
	return b.Build(), nil
}

// MergeMetadata overwrites metadata fields with the non-zero fields of
// override.
func (c *Catalog) MergeMetadata(override core.Metadata) {
	m := &c.Metadata
	if override.Year != 0 {
		m.Year = override.Year
	}
	if override.NumMonths != 0 {
		m.NumMonths = override.NumMonths
	}
	if override.HomeLocation != "" {
		m.HomeLocation = override.HomeLocation
	}
	if override.CurrencyFormat != "" {
		m.CurrencyFormat = override.CurrencyFormat
	}
	if len(override.DataSources) > 0 {
		m.DataSources = append([]string(nil), override.DataSources...)
	}
}
