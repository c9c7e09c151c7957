package sorting

import (
	"sort"
	"strings"
)

// Configs maps a view section key to its sort state. Each section sorts
// independently; a missing entry means Default.
type Configs map[string]Config

// Get returns the sort state of section.
func (c Configs) Get(section string) Config {
	if cfg, ok := c[section]; ok {
		return cfg
	}
	return Default
}

// Set stores the sort state of section.
func (c Configs) Set(section string, cfg Config) {
	c[section] = cfg
}

// Toggle applies a click on column in section and returns the new state.
// Clicking the active column flips the direction; any other column becomes
// active ascending for text and descending for numbers.
func (c Configs) Toggle(section string, column Column) Config {
	cur := c.Get(section)
	var next Config
	if cur.Column == column {
		next = Config{Column: column, Direction: flip(cur.Direction)}
	} else {
		next = Config{Column: column, Direction: Desc}
		if column.IsString() {
			next.Direction = Asc
		}
	}
	c[section] = next
	return next
}

func (c Configs) Clone() Configs {
	out := make(Configs, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns the configured section keys in lexical order.
func (c Configs) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Canonical renders the configuration deterministically, for cache keys.
func (c Configs) Canonical() string {
	var b strings.Builder
	for i, k := range c.Keys() {
		if i > 0 {
			b.WriteByte(';')
		}
		cfg := c[k]
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(string(cfg.Column))
		b.WriteByte(':')
		b.WriteString(string(cfg.Direction))
	}
	return b.String()
}

func flip(d Direction) Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}
