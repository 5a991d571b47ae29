// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interpret

import (
	"github.com/pdiddy/deduction-engine/internal/formula"
)

// GenerateSimplifiedFormulas returns every one-step simplification of f:
// one negation removed, or one binary operator collapsed to one of its
// operands. Quantifiers whose variable disappears are dropped. The result is
// deduplicated and never contains f itself.
func GenerateSimplifiedFormulas(f *formula.Formula, elimDoubleNegation bool) []*formula.Formula {
	n, err := f.Node()
	if err != nil {
		return nil
	}
	var out []*formula.Formula
	seen := map[string]bool{f.Rep(): true}
	for _, v := range simplifications(n) {
		s := formula.FromNode(v)
		if elimDoubleNegation {
			s = formula.EliminateDoubleNegation(s)
		}
		if seen[s.Rep()] {
			continue
		}
		seen[s.Rep()] = true
		out = append(out, s)
	}
	return out
}

func simplifications(n *formula.Node) []*formula.Node {
	var out []*formula.Node
	switch n.Kind {
	case formula.KindNot:
		out = append(out, n.Operands[0])
		for _, v := range simplifications(n.Operands[0]) {
			out = append(out, formula.NotNode(v))
		}
	case formula.KindAnd, formula.KindOr, formula.KindImplies:
		out = append(out, n.Operands...)
		for i, op := range n.Operands {
			for _, v := range simplifications(op) {
				c := n.Clone()
				c.Operands[i] = v
				out = append(out, c)
			}
		}
	case formula.KindForAll, formula.KindExists:
		for _, v := range simplifications(n.Operands[0]) {
			if mentionsArgument(v, n.Variable) {
				out = append(out, &formula.Node{Kind: n.Kind, Variable: n.Variable, Operands: []*formula.Node{v}})
			} else {
				out = append(out, v)
			}
		}
	}
	return out
}

func mentionsArgument(n *formula.Node, arg string) bool {
	found := false
	n.Walk(func(m *formula.Node) {
		if m.Kind == formula.KindPAS && m.Argument == arg {
			found = true
		}
	})
	return found
}
