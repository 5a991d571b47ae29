// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generator

import (
	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/interpret"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
)

// candidates returns the arguments to try at leaf: the library in random
// order, preceded by quantifier axioms built for the leaf with probability
// QuantifierAxiomWeight. complete reports whether every source of
// arguments was consulted.
func (g *Generator) candidates(tree *prooftree.ProofTree, leaf *prooftree.ProofNode) (args []*formula.Argument, complete bool) {
	lib := append([]*formula.Argument(nil), g.arguments...)
	g.rng.Shuffle(len(lib), func(i, j int) { lib[i], lib[j] = lib[j], lib[i] })
	if g.cfg.QuantifierAxiomWeight <= 0 {
		return lib, true
	}
	if len(lib) > 0 && g.rng.Float64() >= g.cfg.QuantifierAxiomWeight {
		return lib, false
	}
	quant := g.quantifierArguments(tree, leaf.Formula)
	g.rng.Shuffle(len(quant), func(i, j int) { quant[i], quant[j] = quant[j], quant[i] })
	return append(quant, lib...), true
}

// quantifierArguments builds the quantifier axioms whose conclusion is f.
func (g *Generator) quantifierArguments(tree *prooftree.ProofTree, f *formula.Formula) []*formula.Argument {
	n, err := f.Node()
	if err != nil {
		return nil
	}
	treePreds := formula.UnionPredicates(tree.Formulas())
	treeConsts := formula.UnionConstants(tree.Formulas())
	freshConsts := g.fresh(g.constants, treeConsts, nil)

	var out []*formula.Argument
	for _, ax := range g.axioms {
		switch ax {
		case interpret.UniversalElim:
			if len(f.Constants()) == 0 {
				continue
			}
			args, _ := interpret.GenerateQuantifierAxiomArguments(ax, f, "q", g.cfg.QuantifyAllAtOnce, nil)
			out = append(out, args...)

		case interpret.UniversalIntro, interpret.ExistentialIntro:
			want := formula.KindForAll
			if ax == interpret.ExistentialIntro {
				want = formula.KindExists
			}
			if n.Kind != want || len(freshConsts) == 0 {
				continue
			}
			k := freshConsts[0]
			if ax == interpret.ExistentialIntro && len(treeConsts) > 0 && g.rng.IntN(2) == 0 {
				k = treeConsts[g.rng.IntN(len(treeConsts))]
			}
			body := formula.FromNode(n.Operands[0].Substitute(n.Variable, k))
			args, _ := interpret.GenerateQuantifierAxiomArguments(ax, body, "q", false, nil)
			for _, a := range args {
				if a.Conclusion.Rep() == f.Rep() {
					out = append(out, a)
				}
			}

		case interpret.ExistentialElim:
			if len(f.Variables()) > 0 || len(freshConsts) == 0 {
				continue
			}
			preds := g.fresh(g.predicates, treePreds, nil)
			if len(preds) == 0 {
				continue
			}
			witness := formula.New(preds[0] + freshConsts[0])
			args, err := interpret.GenerateQuantifierAxiomArguments(ax, witness, "q", false, f)
			if err == nil {
				out = append(out, args...)
			}
		}
	}
	return out
}

// maybeComplicate replaces a by one of its complications with probability
// ComplicationRate.
func (g *Generator) maybeComplicate(a *formula.Argument) *formula.Argument {
	if g.cfg.ComplicationRate <= 0 || g.rng.Float64() >= g.cfg.ComplicationRate {
		return a
	}
	used := map[string]bool{}
	for _, p := range a.Predicates() {
		used[p] = true
	}
	var unused []string
	for _, p := range g.predicates {
		if !used[p] {
			unused = append(unused, p)
			if len(unused) == 2 {
				break
			}
		}
	}
	ms := interpret.GenerateComplicationMappings(a.Formulas(), unused)
	if len(ms) == 0 {
		return a
	}
	if c, ok := interpret.ComplicateArgument(a, ms[g.rng.IntN(len(ms))]); ok {
		return c
	}
	return a
}
