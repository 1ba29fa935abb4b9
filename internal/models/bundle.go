package models

import (
	"fmt"
	"sort"
	"strings"
)

// ContextBundle is the set of named facts handed to a persona call. Bundles are
// never mutated in place: each pipeline stage derives a new bundle that is a
// superset of the previous one.
type ContextBundle map[string]string

// NewContextBundle creates a bundle seeded with the ticker under analysis.
func NewContextBundle(ticker string) ContextBundle {
	return ContextBundle{"ticker": ticker}
}

// With returns a copy of the bundle extended with the given key/value pairs.
func (b ContextBundle) With(pairs ...string) ContextBundle {
	if len(pairs)%2 != 0 {
		panic("ContextBundle.With: odd number of arguments")
	}
	next := make(ContextBundle, len(b)+len(pairs)/2)
	for k, v := range b {
		next[k] = v
	}
	for i := 0; i < len(pairs); i += 2 {
		next[pairs[i]] = pairs[i+1]
	}
	return next
}

// Merge returns a copy of the bundle extended with every entry of other.
func (b ContextBundle) Merge(other ContextBundle) ContextBundle {
	next := make(ContextBundle, len(b)+len(other))
	for k, v := range b {
		next[k] = v
	}
	for k, v := range other {
		next[k] = v
	}
	return next
}

// Get returns the value for key, or "" when absent.
func (b ContextBundle) Get(key string) string {
	return b[key]
}

// Format renders the bundle as "key: value" lines in deterministic key order,
// skipping empty values.
func (b ContextBundle) Format() string {
	keys := make([]string, 0, len(b))
	for k, v := range b {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s: %s", k, b[k])
	}
	return sb.String()
}
