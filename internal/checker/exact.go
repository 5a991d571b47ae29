// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checker

import (
	"fmt"

	"github.com/crillab/gophersat/bf"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

// The exact layer grounds monadic formulas over a finite domain and asks
// gophersat whether the result is satisfiable. The domain holds every
// constant mentioned, one fresh element per quantifier occurrence and one
// default element, which is enough for the monadic fragment.

type grounder struct {
	domain []string
}

func newGrounder(nodes []*formula.Node, consts []string) *grounder {
	g := &grounder{domain: append([]string(nil), consts...)}
	quantifiers := 0
	for _, n := range nodes {
		n.Walk(func(m *formula.Node) {
			if m.Kind == formula.KindForAll || m.Kind == formula.KindExists {
				quantifiers++
			}
		})
	}
	for i := 0; i <= quantifiers; i++ {
		g.domain = append(g.domain, fmt.Sprintf("{_e%d}", i))
	}
	return g
}

func (g *grounder) ground(n *formula.Node) bf.Formula {
	switch n.Kind {
	case formula.KindPAS:
		return bf.Var(n.Predicate + n.Argument)
	case formula.KindContradiction:
		return falsum()
	case formula.KindNot:
		return bf.Not(g.ground(n.Operands[0]))
	case formula.KindAnd:
		return bf.And(g.groundAll(n.Operands)...)
	case formula.KindOr:
		return bf.Or(g.groundAll(n.Operands)...)
	case formula.KindImplies:
		return bf.Implies(g.ground(n.Operands[0]), g.ground(n.Operands[1]))
	case formula.KindForAll, formula.KindExists:
		inst := make([]bf.Formula, len(g.domain))
		for i, d := range g.domain {
			inst[i] = g.ground(n.Operands[0].Substitute(n.Variable, d))
		}
		if n.Kind == formula.KindForAll {
			return bf.And(inst...)
		}
		return bf.Or(inst...)
	}
	return falsum()
}

// falsum is an explicit contradiction. bf folds an empty conjunction to
// False, so constants are kept out of the formulas handed to it.
func falsum() bf.Formula {
	v := bf.Var("#F#")
	return bf.And(v, bf.Not(v))
}

func (g *grounder) groundAll(ns []*formula.Node) []bf.Formula {
	out := make([]bf.Formula, len(ns))
	for i, n := range ns {
		out[i] = g.ground(n)
	}
	return out
}

// closeFreeVariables universally quantifies the free variables of n.
func closeFreeVariables(f *formula.Formula, n *formula.Node) *formula.Node {
	for _, v := range f.FreeVariables() {
		n = &formula.Node{Kind: formula.KindForAll, Variable: v, Operands: []*formula.Node{n}}
	}
	return n
}

func parseAll(fs []*formula.Formula) ([]*formula.Node, error) {
	out := make([]*formula.Node, len(fs))
	for i, f := range fs {
		n, err := f.Node()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		out[i] = closeFreeVariables(f, n)
	}
	return out, nil
}

// satisfiable grounds the conjunction of pos and the negations of neg.
func satisfiable(pos, neg []*formula.Formula) (bool, error) {
	pn, err := parseAll(pos)
	if err != nil {
		return false, err
	}
	nn, err := parseAll(neg)
	if err != nil {
		return false, err
	}
	all := append(append([]*formula.Formula(nil), pos...), neg...)
	g := newGrounder(append(append([]*formula.Node(nil), pn...), nn...), formula.UnionConstants(all))
	var parts []bf.Formula
	for _, n := range pn {
		parts = append(parts, g.ground(n))
	}
	for _, n := range nn {
		parts = append(parts, bf.Not(g.ground(n)))
	}
	if len(parts) == 0 {
		return true, nil
	}
	return bf.Solve(bf.And(parts...)) != nil, nil
}

// CheckSat reports whether fs has a model.
func CheckSat(fs ...*formula.Formula) (bool, error) {
	return satisfiable(fs, nil)
}

// Entails reports whether every model of facts satisfies target.
func Entails(facts []*formula.Formula, target *formula.Formula) (bool, error) {
	sat, err := satisfiable(facts, []*formula.Formula{target})
	return !sat, err
}

// IsStronger reports whether a entails b.
func IsStronger(a, b *formula.Formula) (bool, error) {
	return Entails([]*formula.Formula{a}, b)
}

// IsWeaker reports whether b entails a.
func IsWeaker(a, b *formula.Formula) (bool, error) { return IsStronger(b, a) }

// IsEquiv reports whether a and b entail each other.
func IsEquiv(a, b *formula.Formula) (bool, error) {
	ab, err := IsStronger(a, b)
	if err != nil || !ab {
		return false, err
	}
	return IsStronger(b, a)
}
