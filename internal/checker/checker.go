// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checker decides consistency, nonsense and provability for sets of
// formulas. The heuristic layer is fast and deliberately incomplete; the
// exact layer grounds formulas to propositional logic and asks a SAT solver.
package checker

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// DefaultMaxProofDepth bounds the forward-chaining closure.
const DefaultMaxProofDepth = 12

// Checker owns the memoization caches for one generation context.
type Checker struct {
	caches   *Caches
	maxDepth int
	log      logrus.FieldLogger
}

// New returns a Checker with fresh caches.
func New(cfg types.CheckerConfig, log logrus.FieldLogger) *Checker {
	return NewWithCaches(cfg, NewCaches(cfg.CacheSize), log)
}

// NewWithCaches returns a Checker backed by caches.
func NewWithCaches(cfg types.CheckerConfig, caches *Caches, log logrus.FieldLogger) *Checker {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	maxDepth := cfg.MaxProofDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxProofDepth
	}
	return &Checker{caches: caches, maxDepth: maxDepth, log: log}
}

// Caches exposes the Checker's memoization tables.
func (c *Checker) Caches() *Caches { return c.caches }

// IsInconsistent reports whether fs is inconsistent according to the
// heuristic layer: some formula forces a PAS both ways on its own, or one
// formula forces a PAS true and another forces it false. Interactions among
// three or more formulas and through disjunctions are not detected.
func (c *Checker) IsInconsistent(fs []*formula.Formula) bool {
	for _, f := range fs {
		if f.IsContradiction() || c.selfInconsistent(f) {
			return true
		}
	}
	if len(fs) < 2 {
		return false
	}
	for _, pas := range groundingPASs(fs) {
		var forcedTrue, forcedFalse bool
		for _, f := range fs {
			t := c.TruthRequirement(f, pas)
			forcedTrue = forcedTrue || t.Has(True)
			forcedFalse = forcedFalse || t.Has(False)
			if forcedTrue && forcedFalse {
				c.log.WithFields(logrus.Fields{
					"pas":      pas,
					"formulas": formula.Reps(fs),
				}).Debug("inconsistent formula set")
				return true
			}
		}
	}
	return false
}

// IsConsistent is the negation of IsInconsistent.
func (c *Checker) IsConsistent(fs []*formula.Formula) bool { return !c.IsInconsistent(fs) }

func (c *Checker) selfInconsistent(f *formula.Formula) bool {
	if v, ok := c.caches.inconsistent.get(f.Rep()); ok {
		return v
	}
	v := false
	for _, pas := range groundingPASs([]*formula.Formula{f}) {
		if c.TruthRequirement(f, pas).Conflicting() {
			v = true
			break
		}
	}
	c.caches.inconsistent.put(f.Rep(), v)
	return v
}

// groundingPASs returns the PASs of fs together with each unary predicate
// applied to each constant of fs, so universals are checked against every
// constant they could be instantiated with.
func groundingPASs(fs []*formula.Formula) []string {
	seen := map[string]bool{}
	for _, p := range formula.UnionPASs(fs) {
		seen[p] = true
	}
	consts := formula.UnionConstants(fs)
	for _, f := range fs {
		if len(f.QuantifiedVariables()) == 0 {
			continue
		}
		for _, p := range f.PASs() {
			pred, arg, err := formula.SplitPAS(p)
			if err != nil || !formula.IsVariable(arg) {
				continue
			}
			for _, k := range consts {
				seen[pred+k] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsNonsense reports whether f is degenerate: self-contradictory, a
// tautology by complementary operands, a junction or implication with
// identical operands, or a quantifier binding nothing.
func (c *Checker) IsNonsense(f *formula.Formula) bool {
	if v, ok := c.caches.nonsense.get(f.Rep()); ok {
		return v
	}
	v := c.nonsense(f)
	c.caches.nonsense.put(f.Rep(), v)
	return v
}

func (c *Checker) nonsense(f *formula.Formula) bool {
	if f.IsContradiction() {
		return false
	}
	n, err := f.Node()
	if err != nil {
		return true
	}
	if c.selfInconsistent(f) {
		return true
	}
	bad := false
	n.Walk(func(m *formula.Node) {
		if bad {
			return
		}
		switch m.Kind {
		case formula.KindAnd, formula.KindOr, formula.KindImplies:
			for i := 0; i < len(m.Operands) && !bad; i++ {
				for j := i + 1; j < len(m.Operands); j++ {
					if sameOrComplementary(m.Operands[i], m.Operands[j]) {
						bad = true
						break
					}
				}
			}
		case formula.KindForAll, formula.KindExists:
			if !bindsVariable(m.Operands[0], m.Variable) {
				bad = true
			}
		}
	})
	return bad
}

func sameOrComplementary(a, b *formula.Node) bool {
	as, bs := a.String(), b.String()
	if as == bs {
		return true
	}
	if a.Kind == formula.KindNot && a.Operands[0].String() == bs {
		return true
	}
	return b.Kind == formula.KindNot && b.Operands[0].String() == as
}

func bindsVariable(n *formula.Node, v string) bool {
	found := false
	n.Walk(func(m *formula.Node) {
		if m.Kind == formula.KindPAS && m.Argument == v {
			found = true
		}
	})
	return found
}

// FilterNonsense drops nonsense formulas from fs.
func (c *Checker) FilterNonsense(fs []*formula.Formula) []*formula.Formula {
	var out []*formula.Formula
	for _, f := range fs {
		if !c.IsNonsense(f) {
			out = append(out, f)
		}
	}
	return out
}

func logTrail(lines []string) string { return strings.Join(lines, "\n") }
