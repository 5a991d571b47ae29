// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package interpret generates and applies symbol substitutions between
// formulas: instantiating abstract arguments against the symbols of a
// growing proof tree, and generalising concrete formulas into new prototypes.
package interpret

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"sort"
	"strings"
)

// ErrNoMapping is returned when no mapping from the source symbols onto the
// target symbols can exist.
var ErrNoMapping = errors.New("no possible mapping")

// Mapping substitutes symbols: predicate to predicate (or to a compound
// sub-expression), constant to constant (or to a variable).
type Mapping map[string]string

// Clone copies m.
func (m Mapping) Clone() Mapping {
	c := make(Mapping, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Merge returns a copy of m overlaid with o.
func (m Mapping) Merge(o Mapping) Mapping {
	c := m.Clone()
	for k, v := range o {
		c[k] = v
	}
	return c
}

// IsIdentity reports whether every symbol maps to itself.
func (m Mapping) IsIdentity() bool {
	for k, v := range m {
		if k != v {
			return false
		}
	}
	return true
}

func (m Mapping) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "->" + m[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Identity maps each symbol to itself.
func Identity(symbols ...[]string) Mapping {
	m := Mapping{}
	for _, syms := range symbols {
		for _, s := range syms {
			m[s] = s
		}
	}
	return m
}

// MappingOptions controls GenerateMappings.
type MappingOptions struct {
	// Constraints pins a source symbol to a specific target.
	Constraints Mapping

	// Shuffle yields mappings in random order without enumerating the full
	// product up front. Requires Rand.
	Shuffle bool

	// AllowManyToOne lets distinct source symbols share a target.
	AllowManyToOne bool

	Rand *rand.Rand
}

// GenerateMappings enumerates mappings from source predicates and constants
// onto target predicates and constants. Predicates and constants are assigned
// independently; the result is their cross product. With an empty source the
// single empty mapping is produced.
func GenerateMappings(srcPreds, srcConsts, tgtPreds, tgtConsts []string, opts MappingOptions) (iter.Seq[Mapping], error) {
	if opts.Shuffle && opts.Rand == nil {
		return nil, fmt.Errorf("shuffle requested without a random source")
	}
	slots := make([]slot, 0, len(srcPreds)+len(srcConsts))
	for _, group := range []struct {
		src, tgt []string
		kind     int
	}{{srcPreds, tgtPreds, 0}, {srcConsts, tgtConsts, 1}} {
		free := 0
		for _, s := range group.src {
			if t, ok := opts.Constraints[s]; ok {
				slots = append(slots, slot{src: s, candidates: []string{t}, kind: group.kind})
				continue
			}
			if len(group.tgt) == 0 {
				return nil, fmt.Errorf("%w: %s has no target symbols", ErrNoMapping, s)
			}
			free++
			slots = append(slots, slot{src: s, candidates: group.tgt, kind: group.kind})
		}
		if !opts.AllowManyToOne && free > len(group.tgt) {
			return nil, fmt.Errorf("%w: %d source symbols onto %d targets", ErrNoMapping, free, len(group.tgt))
		}
	}

	// Pinned slots go first so free slots never claim a pinned target.
	sort.SliceStable(slots, func(a, b int) bool {
		return len(slots[a].candidates) == 1 && len(slots[b].candidates) != 1
	})

	return func(yield func(Mapping) bool) {
		g := &mappingGen{slots: slots, opts: opts, cur: Mapping{}, used: [2]map[string]bool{{}, {}}}
		g.run(0, yield)
	}, nil
}

type slot struct {
	src        string
	candidates []string
	kind       int
}

type mappingGen struct {
	slots []slot
	opts  MappingOptions
	cur   Mapping
	used  [2]map[string]bool
}

// run assigns slot i and recurses; it returns false once the consumer stops.
func (g *mappingGen) run(i int, yield func(Mapping) bool) bool {
	if i == len(g.slots) {
		return yield(g.cur.Clone())
	}
	s := g.slots[i]
	cands := s.candidates
	if g.opts.Shuffle && len(cands) > 1 {
		cands = append([]string(nil), cands...)
		g.opts.Rand.Shuffle(len(cands), func(a, b int) { cands[a], cands[b] = cands[b], cands[a] })
	}
	for _, t := range cands {
		if !g.opts.AllowManyToOne {
			if g.used[s.kind][t] {
				continue
			}
			g.used[s.kind][t] = true
		}
		g.cur[s.src] = t
		cont := g.run(i+1, yield)
		delete(g.cur, s.src)
		if !g.opts.AllowManyToOne {
			delete(g.used[s.kind], t)
		}
		if !cont {
			return false
		}
	}
	return true
}

// Take collects at most n mappings from seq.
func Take(seq iter.Seq[Mapping], n int) []Mapping {
	var out []Mapping
	if n <= 0 {
		return out
	}
	for m := range seq {
		out = append(out, m)
		if len(out) >= n {
			break
		}
	}
	return out
}

func sortStrings(ss []string) { sort.Strings(ss) }
