// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distractor

import (
	"context"
	"iter"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/interpret"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/internal/retry"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

const (
	trialsPerDistractor = 20
	mappingsPerTrial    = 8
)

// VariousForm rewrites prototype formulas with a mix of tree symbols and
// symbols the tree does not use. Candidates whose every PAS already occurs
// in the tree are never produced.
type VariousForm struct {
	deps       Deps
	policy     retry.Policy
	prototypes []*formula.Formula
}

func newVariousForm(cfg types.DistractorConfig, deps Deps, policy retry.Policy) *VariousForm {
	return &VariousForm{deps: deps, policy: policy, prototypes: formula.NewAll(cfg.PrototypeFormulas...)}
}

// Kind implements Generator.
func (v *VariousForm) Kind() types.DistractorKind { return types.DistractorVariousForm }

// Generate implements Generator.
func (v *VariousForm) Generate(ctx context.Context, req Request) (*Output, error) {
	k, err := newGatekeeper(v.deps.Checker, v.deps.Log, req)
	if err != nil {
		return nil, err
	}
	return runHarness(ctx, v.policy, req, func(actx context.Context, stats *types.Stats) ([]*formula.Formula, error) {
		var out []*formula.Formula
		for f := range v.forms(actx, req.Tree, k, req.Size*trialsPerDistractor) {
			stats.Inc("candidates")
			if k.accept(f, out, stats) {
				out = append(out, f)
				if len(out) >= req.Size {
					break
				}
			}
		}
		return out, actx.Err()
	})
}

// forms yields up to budget rewritten prototypes that mention at least one
// PAS absent from tree.
func (v *VariousForm) forms(ctx context.Context, tree *prooftree.ProofTree, k *gatekeeper, budget int) iter.Seq[*formula.Formula] {
	pool := v.prototypes
	if len(pool) == 0 {
		pool = tree.Formulas()
	}
	treeFormulas := tree.Formulas()
	treePreds := formula.UnionPredicates(treeFormulas)
	treeConsts := formula.UnionConstants(treeFormulas)
	vocabPreds, vocabConsts := v.deps.Trees.Vocabulary()
	tgtPreds := union(treePreds, vocabPreds)
	tgtConsts := union(treeConsts, vocabConsts)
	inTree := map[string]bool{}
	for _, s := range append(append([]string(nil), treePreds...), treeConsts...) {
		inTree[s] = true
	}

	return func(yield func(*formula.Formula) bool) {
		rng := v.deps.Rand
		for range budget {
			if ctx.Err() != nil {
				return
			}
			proto := pool[rng.IntN(len(pool))]
			if proto.IsContradiction() {
				continue
			}
			seq, err := interpret.GenerateMappings(proto.Predicates(), proto.Constants(), tgtPreds, tgtConsts,
				interpret.MappingOptions{Shuffle: true, Rand: rng})
			if err != nil {
				continue
			}
			m, ok := pickMixed(interpret.Take(seq, mappingsPerTrial), inTree)
			if !ok {
				continue
			}
			f := interpret.InterpretFormula(proto, m, true)
			if k.coversTree(f) {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// pickMixed prefers a mapping whose image holds both tree symbols and fresh
// ones. Mappings of a single symbol are always mixed enough.
func pickMixed(ms []interpret.Mapping, inTree map[string]bool) (interpret.Mapping, bool) {
	for _, m := range ms {
		if len(m) < 2 {
			return m, true
		}
		reused, fresh := false, false
		for _, t := range m {
			if inTree[t] {
				reused = true
			} else {
				fresh = true
			}
		}
		if reused && fresh {
			return m, true
		}
	}
	return nil, false
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
