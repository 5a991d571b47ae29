// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checker

import (
	"fmt"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

// maxWitnesses caps fresh constants so nested quantifiers cannot feed
// each other forever.
const maxWitnesses = 64

// proofState is a forward-chaining closure over ground formulas. Existential
// witnessing and double-negation elimination are free; every other rule,
// universal instantiation included, costs one round.
type proofState struct {
	known         map[string]*formula.Node
	consts        []string
	witnessed     map[string]bool
	witnesses     int
	contradiction bool
}

func newProofState(facts []*formula.Formula, extraConsts []string) *proofState {
	s := &proofState{known: map[string]*formula.Node{}, witnessed: map[string]bool{}}
	s.addConsts(formula.UnionConstants(facts)...)
	s.addConsts(extraConsts...)
	for _, f := range facts {
		if f.IsContradiction() {
			s.contradiction = true
			continue
		}
		if n, err := f.Node(); err == nil {
			s.add(n)
		}
	}
	return s
}

func (s *proofState) clone() *proofState {
	c := &proofState{
		known:         make(map[string]*formula.Node, len(s.known)),
		consts:        append([]string(nil), s.consts...),
		witnessed:     make(map[string]bool, len(s.witnessed)),
		witnesses:     s.witnesses,
		contradiction: s.contradiction,
	}
	for k, v := range s.known {
		c.known[k] = v
	}
	for k := range s.witnessed {
		c.witnessed[k] = true
	}
	return c
}

func (s *proofState) addConsts(cs ...string) {
	for _, k := range cs {
		dup := false
		for _, e := range s.consts {
			if e == k {
				dup = true
				break
			}
		}
		if !dup {
			s.consts = append(s.consts, k)
		}
	}
}

func (s *proofState) has(n *formula.Node) bool {
	_, ok := s.known[n.String()]
	return ok
}

func (s *proofState) add(n *formula.Node) bool {
	if n.Kind == formula.KindContradiction {
		s.contradiction = true
		return false
	}
	key := n.String()
	if _, ok := s.known[key]; ok {
		return false
	}
	s.known[key] = n
	if s.has(negation(n)) {
		s.contradiction = true
	}
	return true
}

func negation(n *formula.Node) *formula.Node {
	if n.Kind == formula.KindNot {
		return n.Operands[0]
	}
	return formula.NotNode(n)
}

func (s *proofState) fresh(prefix string) string {
	for {
		s.witnesses++
		k := fmt.Sprintf("{%s_%d}", prefix, s.witnesses)
		used := false
		for _, e := range s.consts {
			if e == k {
				used = true
				break
			}
		}
		if !used {
			return k
		}
	}
}

// saturate applies the free rules to a fixed point.
func (s *proofState) saturate() {
	for changed := true; changed; {
		changed = false
		for _, n := range s.snapshot() {
			switch n.Kind {
			case formula.KindExists:
				key := n.String()
				if s.witnessed[key] || s.witnesses >= maxWitnesses {
					continue
				}
				s.witnessed[key] = true
				w := s.fresh("w")
				s.addConsts(w)
				s.add(n.Operands[0].Substitute(n.Variable, w))
				changed = true
			case formula.KindNot:
				if inner := n.Operands[0]; inner.Kind == formula.KindNot {
					if s.add(inner.Operands[0]) {
						changed = true
					}
				}
			}
		}
	}
}

func (s *proofState) snapshot() []*formula.Node {
	out := make([]*formula.Node, 0, len(s.known))
	for _, n := range s.known {
		out = append(out, n)
	}
	return out
}

// step applies one round of universal instantiation, modus ponens, modus
// tollens, conjunction elimination, disjunctive syllogism and De Morgan.
// It reports whether anything new was derived.
func (s *proofState) step() bool {
	var derived []*formula.Node
	for _, n := range s.snapshot() {
		switch n.Kind {
		case formula.KindForAll:
			for _, k := range s.consts {
				derived = append(derived, n.Operands[0].Substitute(n.Variable, k))
			}
		case formula.KindAnd:
			derived = append(derived, n.Operands...)
		case formula.KindImplies:
			p, c := n.Operands[0], n.Operands[1]
			if s.has(p) {
				derived = append(derived, c)
			}
			if s.has(negation(c)) {
				derived = append(derived, negation(p))
			}
		case formula.KindOr:
			var open []*formula.Node
			for _, o := range n.Operands {
				if !s.has(negation(o)) {
					open = append(open, o)
				}
			}
			if len(open) == 1 {
				derived = append(derived, open[0])
			}
		case formula.KindNot:
			if inner := n.Operands[0]; inner.Kind == formula.KindOr {
				for _, o := range inner.Operands {
					derived = append(derived, negation(o))
				}
			}
		}
	}
	changed := false
	for _, d := range derived {
		if s.add(d) {
			changed = true
		}
	}
	return changed
}

// depthFrom returns the fewest rounds needed to reach goal from s.
func (s *proofState) depthFrom(goal *formula.Node, budget int) (int, bool) {
	st := s.clone()
	best := -1
	for r := 0; r <= budget; r++ {
		st.saturate()
		if d, ok := st.goal(goal, budget-r); ok && (best < 0 || r+d < best) {
			best = r + d
		}
		if best >= 0 && best <= r+1 {
			break
		}
		if !st.step() {
			break
		}
	}
	return best, best >= 0
}

// goal checks goal against the current closure, allowing introduction
// rules, each costing one round.
func (s *proofState) goal(g *formula.Node, budget int) (int, bool) {
	if s.has(g) {
		return 0, true
	}
	if s.contradiction {
		return 1, true
	}
	if budget <= 0 {
		return 0, false
	}
	switch g.Kind {
	case formula.KindAnd:
		worst := 0
		for _, o := range g.Operands {
			d, ok := s.goal(o, budget-1)
			if !ok {
				return 0, false
			}
			worst = max(worst, d)
		}
		return worst + 1, true
	case formula.KindOr:
		best := -1
		for _, o := range g.Operands {
			if d, ok := s.goal(o, budget-1); ok && (best < 0 || d < best) {
				best = d
			}
		}
		return best + 1, best >= 0
	case formula.KindNot:
		if inner := g.Operands[0]; inner.Kind == formula.KindNot {
			d, ok := s.goal(inner.Operands[0], budget-1)
			return d + 1, ok
		}
	case formula.KindExists:
		best := -1
		for _, k := range s.consts {
			if d, ok := s.goal(g.Operands[0].Substitute(g.Variable, k), budget-1); ok && (best < 0 || d < best) {
				best = d
			}
		}
		return best + 1, best >= 0
	case formula.KindForAll:
		sub := s.clone()
		k := sub.fresh("u")
		sub.addConsts(k)
		d, ok := sub.depthFrom(g.Operands[0].Substitute(g.Variable, k), budget-1)
		return d + 1, ok
	case formula.KindImplies:
		sub := s.clone()
		sub.add(g.Operands[0])
		d, ok := sub.depthFrom(g.Operands[1], budget-1)
		return d + 1, ok
	}
	return 0, false
}

// ProofDepth returns the length of the shortest derivation of target from
// facts that the forward-chaining closure finds, bounded by MaxProofDepth.
func (c *Checker) ProofDepth(facts []*formula.Formula, target *formula.Formula) (int, bool) {
	if formula.Contains(facts, target) {
		return 0, true
	}
	g, err := target.Node()
	if err != nil {
		return 0, false
	}
	s := newProofState(facts, target.Constants())
	return s.depthFrom(g, c.maxDepth)
}

// IsProvable reports whether target follows from facts.
func (c *Checker) IsProvable(facts []*formula.Formula, target *formula.Formula) bool {
	_, ok := c.ProofDepth(facts, target)
	return ok
}

// IsNew reports whether f adds information to existing: it is neither
// already present nor derivable from existing.
func (c *Checker) IsNew(f *formula.Formula, existing []*formula.Formula) (bool, []string) {
	if formula.Contains(existing, f) {
		return false, []string{fmt.Sprintf("%s is already present", f)}
	}
	if d, ok := c.ProofDepth(existing, f); ok {
		return false, []string{fmt.Sprintf("%s is derivable from %v in %d steps", f, formula.Reps(existing), d)}
	}
	return true, nil
}

// ProvableFromIncompleteFacts reports whether target stays provable after
// dropping any single fact.
func (c *Checker) ProvableFromIncompleteFacts(facts []*formula.Formula, target *formula.Formula) (bool, []string) {
	for i := range facts {
		rest := make([]*formula.Formula, 0, len(facts)-1)
		rest = append(rest, facts[:i]...)
		rest = append(rest, facts[i+1:]...)
		if d, ok := c.ProofDepth(rest, target); ok {
			return true, []string{fmt.Sprintf("%s is provable in %d steps without %s", target, d, facts[i])}
		}
	}
	return false, nil
}

// HaveSmallerProofs reports whether facts derive hypothesis in fewer than
// depth steps, or derive its negation at all.
func (c *Checker) HaveSmallerProofs(facts []*formula.Formula, hypothesis *formula.Formula, depth int) (bool, []string) {
	var logs []string
	if d, ok := c.ProofDepth(facts, hypothesis); ok {
		logs = append(logs, fmt.Sprintf("hypothesis %s is derivable in %d steps", hypothesis, d))
		if d < depth {
			logs = append(logs, fmt.Sprintf("shorter than the tree depth %d", depth))
			return true, logs
		}
	}
	if !hypothesis.IsContradiction() {
		if neg, err := formula.Negate(hypothesis); err == nil {
			neg = formula.EliminateDoubleNegation(neg)
			if d, ok := c.ProofDepth(facts, neg); ok {
				logs = append(logs, fmt.Sprintf("negated hypothesis %s is derivable in %d steps", neg, d))
				return true, logs
			}
		}
	}
	if len(logs) > 0 {
		c.log.Debug(logTrail(logs))
	}
	return false, logs
}
