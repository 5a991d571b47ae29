// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checker

import (
	"strings"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

// Truth is a set of truth values a PAS must take for a formula to hold.
type Truth uint8

const (
	True Truth = 1 << iota
	False
	Unknown
)

// Has reports whether v is in t.
func (t Truth) Has(v Truth) bool { return t&v != 0 }

// Conflicting reports whether t requires the PAS to be both true and false.
func (t Truth) Conflicting() bool { return t.Has(True) && t.Has(False) }

func (t Truth) String() string {
	var parts []string
	if t.Has(True) {
		parts = append(parts, "T")
	}
	if t.Has(False) {
		parts = append(parts, "F")
	}
	if t.Has(Unknown) || t == 0 {
		parts = append(parts, "Unknown")
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// combine merges requirements of conjoined parts. Known values win over Unknown.
func combine(a, b Truth) Truth {
	c := a | b
	if c.Has(True) || c.Has(False) {
		c &^= Unknown
	}
	return c
}

// requirement computes the truth values pas must take for n to hold.
// Disjunctions, implications and negated conjunctions are Unknown. That
// incompleteness is deliberate and must not be tightened without
// revalidating generated corpora.
func requirement(n *formula.Node, pas *formula.Node) Truth {
	switch n.Kind {
	case formula.KindPAS:
		if n.Predicate == pas.Predicate && n.Argument == pas.Argument {
			return True
		}
		return Unknown
	case formula.KindNot:
		return negatedRequirement(n.Operands[0], pas)
	case formula.KindAnd:
		t := Unknown
		for _, o := range n.Operands {
			t = combine(t, requirement(o, pas))
		}
		return t
	case formula.KindForAll:
		body := n.Operands[0]
		if pas.Argument != "" && pas.Argument != n.Variable {
			body = body.Substitute(n.Variable, pas.Argument)
		}
		return requirement(body, pas)
	case formula.KindExists:
		if pas.Argument == n.Variable {
			return Unknown
		}
		return requirement(n.Operands[0], pas)
	}
	return Unknown
}

func negatedRequirement(n *formula.Node, pas *formula.Node) Truth {
	switch n.Kind {
	case formula.KindPAS:
		if n.Predicate == pas.Predicate && n.Argument == pas.Argument {
			return False
		}
		return Unknown
	case formula.KindNot:
		return requirement(n.Operands[0], pas)
	case formula.KindOr:
		t := Unknown
		for _, o := range n.Operands {
			t = combine(t, negatedRequirement(o, pas))
		}
		return t
	case formula.KindImplies:
		return combine(requirement(n.Operands[0], pas), negatedRequirement(n.Operands[1], pas))
	}
	return Unknown
}

// TruthRequirement returns the truth values pas must take for f to hold.
func (c *Checker) TruthRequirement(f *formula.Formula, pas string) Truth {
	key := f.Rep() + "\x00" + pas
	if t, ok := c.caches.truth.get(key); ok {
		return t
	}
	t := Unknown
	n, err := f.Node()
	p, perr := formula.Parse(pas)
	if err == nil && perr == nil && p.Kind == formula.KindPAS {
		t = requirement(n, p)
	}
	c.caches.truth.put(key, t)
	return t
}
