package types

import (
	"maps"
	"slices"
)

// Stats counts named events during generation (rejection reasons,
// trials, cache hits). The zero value is ready to use after Add.
type Stats map[string]int

// Add increments key by n, allocating s if needed.
func (s *Stats) Add(key string, n int) {
	if *s == nil {
		*s = Stats{}
	}
	(*s)[key] += n
}

// Inc increments key by one.
func (s *Stats) Inc(key string) { s.Add(key, 1) }

// Merge adds every counter of o under prefix.
func (s *Stats) Merge(prefix string, o Stats) {
	for k, v := range o {
		s.Add(prefix+k, v)
	}
}

// Keys returns the counter names, sorted.
func (s Stats) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}
