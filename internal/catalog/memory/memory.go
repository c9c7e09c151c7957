// Package memory is an in-process catalog source, used for demos and tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tally/internal/catalog"
	"tally/internal/core"
)

type Store struct {
	mu       sync.Mutex
	meta     core.Metadata
	sections []string
	records  []core.Record
}

var _ catalog.Source = (*Store)(nil)

func New(meta core.Metadata, sections []string, records []core.Record) *Store {
	return &Store{
		meta:     meta,
		sections: dedupe(sections),
		records:  append([]core.Record(nil), records...),
	}
}

// NewFromFiles seeds a store from base/sections.txt, one section per line.
// Without that file the sample sections are used. Records always start
// from the sample set.
func NewFromFiles(base string) *Store {
	sections := readLines(filepath.Join(base, "sections.txt"))
	if len(sections) == 0 {
		sections = SampleSections()
	}
	return New(SampleMetadata(), sections, SampleRecords())
}

// Append adds a record. It is visible to the next Load.
func (s *Store) Append(_ context.Context, r core.Record) error {
	if _, err := r.Transaction(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

// Load returns a copy of the stored catalog.
func (s *Store) Load(_ context.Context) (*catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &catalog.Catalog{
		Metadata: s.meta,
		Sections: append([]string(nil), s.sections...),
		Records:  append([]core.Record(nil), s.records...),
	}, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
