// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/interpret"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
)

// rejection is returned when a candidate extension fails a gate.
type rejection struct {
	reason string
	logs   []string
}

func (r *rejection) Error() string {
	if len(r.logs) == 0 {
		return "rejected: " + r.reason
	}
	return "rejected: " + r.reason + ": " + strings.Join(r.logs, "; ")
}

func reject(reason string, logs ...string) error { return &rejection{reason: reason, logs: logs} }

// extendOnce samples (leaf, argument) pairs until one extension is accepted
// or MaxStepTrials pairs have been tried. Only arguments whose conclusion
// unifies with the leaf cost a trial. A leaf with no such argument is
// dropped from the draw.
func (g *Generator) extendOnce(ctx context.Context, tree *prooftree.ProofTree, leaves []*prooftree.ProofNode) (*prooftree.ProofTree, bool) {
	open := slices.Clone(leaves)
	budget := g.cfg.MaxStepTrials
	for budget > 0 && len(open) > 0 {
		i := g.pickLeaf(open)
		leaf := open[i]
		cands, complete := g.candidates(tree, leaf)
		cands = g.unifiable(leaf, cands)
		if len(cands) == 0 {
			budget--
			if complete {
				g.stats.Inc("dead_leaf")
				open = slices.Delete(open, i, i+1)
			}
			continue
		}
		for _, a := range cands {
			if budget == 0 || ctx.Err() != nil {
				return nil, false
			}
			budget--
			next, err := g.Extend(ctx, tree, leaf, a)
			if err == nil {
				return next, true
			}
			var r *rejection
			if errors.As(err, &r) {
				g.stats.Inc("rejected." + r.reason)
			}
		}
	}
	return nil, false
}

// unifiable complicates each candidate at ComplicationRate and keeps the
// ones whose conclusion can be mapped onto the leaf.
func (g *Generator) unifiable(leaf *prooftree.ProofNode, cands []*formula.Argument) []*formula.Argument {
	var out []*formula.Argument
	for _, a := range cands {
		a = g.maybeComplicate(a)
		if a.Conclusion.Rep() == leaf.Formula.Rep() {
			out = append(out, a)
			continue
		}
		if _, ok := interpret.UnifyConclusion(a, leaf.Formula); ok {
			out = append(out, a)
		}
	}
	return out
}

// Extend applies arg backwards at leaf and returns the extended copy of
// tree. tree itself is never modified.
func (g *Generator) Extend(ctx context.Context, tree *prooftree.ProofTree, leaf *prooftree.ProofNode, arg *formula.Argument) (*prooftree.ProofTree, error) {
	if leaf.Tree() != tree || !leaf.IsLeaf() {
		return nil, fmt.Errorf("%s is not a leaf of the tree", leaf)
	}
	m := interpret.Identity(arg.Conclusion.Predicates(), arg.Conclusion.Constants())
	if arg.Conclusion.Rep() != leaf.Formula.Rep() {
		var ok bool
		if m, ok = interpret.UnifyConclusion(arg, leaf.Formula); !ok {
			return nil, reject("no_unification", arg.ID)
		}
	}
	var lastErr error = reject("no_mapping", arg.ID)
	for _, full := range g.premiseMappings(tree, arg, m) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		inst := interpret.InterpretArgument(arg, full, true)
		if inst.Conclusion.Rep() != leaf.Formula.Rep() {
			continue
		}
		next, err := g.attach(tree, leaf, inst)
		if err == nil {
			g.log.WithFields(logrus.Fields{
				"leaf":     leaf.Formula.Rep(),
				"argument": inst.ID,
				"premises": formula.Reps(inst.Premises),
			}).Debug("extended proof tree")
			return next, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// premiseMappings completes the conclusion mapping m with targets for the
// symbols that only occur in the premises. Intermediate constants always
// get fresh constants; the other symbols reuse tree symbols or take fresh
// ones from the vocabulary.
func (g *Generator) premiseMappings(tree *prooftree.ProofTree, arg *formula.Argument, m interpret.Mapping) []interpret.Mapping {
	treePreds := formula.UnionPredicates(tree.Formulas())
	treeConsts := formula.UnionConstants(tree.Formulas())
	pinned := map[string]bool{}
	for _, v := range m {
		pinned[v] = true
	}

	var srcPreds, srcConsts, inter []string
	for _, p := range arg.Predicates() {
		if _, ok := m[p]; !ok {
			srcPreds = append(srcPreds, p)
		}
	}
	for _, c := range arg.Constants() {
		if _, ok := m[c]; ok {
			continue
		}
		if arg.IsIntermediate(c) {
			inter = append(inter, c)
		} else {
			srcConsts = append(srcConsts, c)
		}
	}

	freshConsts := g.fresh(g.constants, treeConsts, pinned)
	if len(freshConsts) < len(inter) {
		return nil
	}
	base := m.Clone()
	for i, c := range inter {
		base[c] = freshConsts[i]
		pinned[freshConsts[i]] = true
	}

	tgtPreds := g.targets(treePreds, g.fresh(g.predicates, treePreds, pinned), pinned, len(srcPreds))
	tgtConsts := g.targets(treeConsts, g.fresh(g.constants, treeConsts, pinned), pinned, len(srcConsts))
	seq, err := interpret.GenerateMappings(srcPreds, srcConsts, tgtPreds, tgtConsts,
		interpret.MappingOptions{Shuffle: true, Rand: g.rng})
	if err != nil {
		return nil
	}
	var out []interpret.Mapping
	for _, mm := range interpret.Take(seq, g.cfg.MaxMappingsPerArgument) {
		out = append(out, base.Merge(mm))
	}
	return out
}

// fresh returns the pool symbols not used by the tree and not pinned, shuffled.
func (g *Generator) fresh(pool, used []string, pinned map[string]bool) []string {
	inUse := map[string]bool{}
	for _, u := range used {
		inUse[u] = true
	}
	var out []string
	for _, s := range pool {
		if !inUse[s] && !pinned[s] {
			out = append(out, s)
		}
	}
	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// targets mixes reusable tree symbols with n fresh ones.
func (g *Generator) targets(reuse, fresh []string, pinned map[string]bool, n int) []string {
	var out []string
	for _, s := range reuse {
		if !pinned[s] {
			out = append(out, s)
		}
	}
	if n > len(fresh) {
		n = len(fresh)
	}
	return append(out, fresh[:n]...)
}

// attach hangs the premises of inst under the copy of leaf, repairs
// intermediate constants if configured, and runs the gates.
func (g *Generator) attach(tree *prooftree.ProofTree, leaf *prooftree.ProofNode, inst *formula.Argument) (*prooftree.ProofTree, error) {
	oldLen := tree.Len()
	cp, align := tree.Copy()
	cl := align[leaf]
	cl.Argument = inst
	for i, p := range inst.Premises {
		n := cp.AddNode(p.Copy())
		if err := cl.AddChild(n); err != nil {
			return nil, err
		}
		if a, ok := inst.Assumptions[i]; ok {
			if err := n.AddAssumptionChild(cp.AddNode(a.Copy())); err != nil {
				return nil, err
			}
		}
	}
	if err := g.fixIntermediateConstants(cp); err != nil {
		return nil, err
	}
	if limit := g.depthLimit(); limit > 0 && cp.Depth() > limit {
		return nil, reject("too_deep", fmt.Sprintf("depth %d exceeds %d", cp.Depth(), limit))
	}
	if err := g.gate(cp, oldLen); err != nil {
		return nil, err
	}
	return cp, nil
}

// fixIntermediateConstants derives every leaf that mentions an intermediate
// constant from its universal closure over that constant.
func (g *Generator) fixIntermediateConstants(t *prooftree.ProofTree) error {
	err := t.Validate()
	if err == nil {
		return nil
	}
	if !errors.Is(err, prooftree.ErrIllegalIntermediateConstant) {
		return err
	}
	if !g.cfg.ForceFixIllegalIntermediateConstants {
		return reject("intermediate_constant", err.Error())
	}
	illegal := map[string]bool{}
	for _, c := range t.IntermediateConstants() {
		illegal[c] = true
	}
	for _, l := range t.Leaves() {
		var bad []string
		for _, c := range l.Formula.Constants() {
			if illegal[c] {
				bad = append(bad, c)
			}
		}
		if len(bad) == 0 {
			continue
		}
		if len(bad) > 1 {
			return reject("intermediate_constant", l.Formula.Rep())
		}
		fix := universalElimOver(l.Formula, bad[0])
		if fix == nil {
			return reject("intermediate_constant", l.Formula.Rep())
		}
		l.Argument = fix
		if err := l.AddChild(t.AddNode(fix.Premises[0])); err != nil {
			return err
		}
		g.stats.Inc("fixed.intermediate_constant")
	}
	if err := t.Validate(); err != nil {
		return reject("intermediate_constant", err.Error())
	}
	return nil
}

func universalElimOver(f *formula.Formula, c string) *formula.Argument {
	args, err := interpret.GenerateQuantifierAxiomArguments(interpret.UniversalElim, f, "fix", false, nil)
	if err != nil {
		return nil
	}
	for _, a := range args {
		if !strings.Contains(a.Premises[0].Rep(), c) {
			return a
		}
	}
	return nil
}

// gate runs the checker over t. Nodes with an index at or beyond oldLen
// are the ones the extension added.
func (g *Generator) gate(t *prooftree.ProofTree, oldLen int) error {
	leaves := t.Leaves()
	leafFormulas := t.LeafFormulas()
	for i, l := range leaves {
		if l.ID() < oldLen {
			continue
		}
		if g.check.IsNonsense(l.Formula) {
			return reject("nonsense", l.Formula.Rep())
		}
		for _, a := range l.Ancestors() {
			if a.Formula.Rep() == l.Formula.Rep() {
				return reject("circular", l.Formula.Rep())
			}
		}
		others := make([]*formula.Formula, 0, len(leafFormulas)-1)
		others = append(others, leafFormulas[:i]...)
		others = append(others, leafFormulas[i+1:]...)
		if ok, logs := g.check.IsNew(l.Formula, others); !ok {
			return reject("not_new", logs...)
		}
	}

	if !g.cfg.AllowInconsistency {
		facts := append([]*formula.Formula(nil), leafFormulas...)
		for _, a := range t.Assumptions() {
			facts = append(facts, a.Formula)
		}
		if g.check.IsInconsistent(facts) {
			return reject("inconsistent", formula.Reps(facts)...)
		}
	}

	if !g.cfg.AllowSmallerProofs {
		root, err := t.Root()
		if err != nil {
			return err
		}
		if ok, logs := g.check.HaveSmallerProofs(leafFormulas, root.Formula, t.Depth()); ok {
			return reject("smaller_proof", logs...)
		}
		if ok, logs := g.check.ProvableFromIncompleteFacts(leafFormulas, root.Formula); ok {
			return reject("redundant_leaf", logs...)
		}
	}
	return nil
}
