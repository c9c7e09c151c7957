// Package jsonfile reads a catalog exported as a single JSON document:
//
//	{"metadata": {...}, "sections": ["..."], "records": [{...}]}
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"tally/internal/catalog"
)

type Source struct {
	path string
}

var _ catalog.Source = (*Source)(nil)

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Load(ctx context.Context) (*catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if len(c.Metadata.DataSources) == 0 {
		c.Metadata.DataSources = []string{s.path}
	}
	return c, nil
}

// Decode parses a catalog document. Unknown fields are ignored.
func Decode(r io.Reader) (*catalog.Catalog, error) {
	var c catalog.Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// Encode writes c in the format Decode reads.
func Encode(w io.Writer, c *catalog.Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
