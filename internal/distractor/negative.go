// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/generator"
	"github.com/pdiddy/deduction-engine/internal/retry"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// NegativeTree grows an auxiliary tree rooted at the negated hypothesis (or
// at a VariousForm sample) and publishes some of its leaves. At least one
// leaf is always withheld so the auxiliary root stays unprovable.
type NegativeTree struct {
	deps   Deps
	policy retry.Policy
	depth  int
	rate   float64
	roots  *VariousForm
}

func newNegativeTree(cfg types.DistractorConfig, deps Deps, policy retry.Policy) (*NegativeTree, error) {
	if cfg.NegatedHypothesisRate < 0 || cfg.NegatedHypothesisRate > 1 {
		return nil, fmt.Errorf("%w: negated hypothesis rate %v out of [0, 1]", ErrDistractorImpossible, cfg.NegatedHypothesisRate)
	}
	depth := cfg.NegativeTreeDepth
	if depth <= 0 {
		depth = 1
	}
	return &NegativeTree{
		deps:   deps,
		policy: policy,
		depth:  depth,
		rate:   cfg.NegatedHypothesisRate,
		roots:  newVariousForm(cfg, deps, policy),
	}, nil
}

// Kind implements Generator.
func (n *NegativeTree) Kind() types.DistractorKind { return types.DistractorNegativeTree }

// Generate implements Generator. It shares the tree generator of Deps, so
// it must not run concurrently with other users of that generator.
func (n *NegativeTree) Generate(ctx context.Context, req Request) (*Output, error) {
	k, err := newGatekeeper(n.deps.Checker, n.deps.Log, req)
	if err != nil {
		return nil, err
	}
	neg, err := formula.Negate(k.hypothesis)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDistractorImpossible, err)
	}
	neg = formula.EliminateDoubleNegation(neg)

	return runHarness(ctx, n.policy, req, func(actx context.Context, stats *types.Stats) ([]*formula.Formula, error) {
		root, negated := n.pickRoot(actx, k, neg)
		if root == nil {
			return nil, fmt.Errorf("%w: no root for the negative tree", ErrDistractorFailure)
		}
		res, err := n.deps.Trees.Generate(actx, generator.Request{Hypothesis: root, Depth: n.depth, BestEffort: true})
		stats.Merge("negative_tree.", n.deps.Trees.Stats())
		if err != nil {
			if negated && errors.Is(err, generator.ErrGenerationImpossible) && n.rate >= 1 {
				return nil, fmt.Errorf("%w: %w", ErrDistractorImpossible, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrDistractorFailure, err)
		}
		return n.publish(res.Tree.LeafFormulas(), root, k, req.Size, stats), nil
	})
}

func (n *NegativeTree) pickRoot(ctx context.Context, k *gatekeeper, neg *formula.Formula) (*formula.Formula, bool) {
	if n.rate > 0 && n.deps.Rand.Float64() < n.rate {
		return neg, true
	}
	for f := range n.roots.forms(ctx, k.req.Tree, k, trialsPerDistractor) {
		if !n.deps.Checker.IsNonsense(f) && len(f.FreeVariables()) == 0 {
			return f, false
		}
	}
	return nil, false
}

// publish picks at most size leaves, always leaving one out, and keeps only
// those that pass the gates without making root provable.
func (n *NegativeTree) publish(leaves []*formula.Formula, root *formula.Formula, k *gatekeeper, size int, stats *types.Stats) []*formula.Formula {
	if len(leaves) < 2 {
		stats.Inc("rejected.single_leaf")
		return nil
	}
	n.deps.Rand.Shuffle(len(leaves), func(a, b int) { leaves[a], leaves[b] = leaves[b], leaves[a] })
	limit := min(size, len(leaves)-1)

	var out []*formula.Formula
	for _, l := range leaves {
		if len(out) >= limit {
			break
		}
		if !k.accept(l, out, stats) {
			continue
		}
		if n.deps.Checker.IsProvable(k.facts(out, l), root) {
			stats.Inc("rejected.proves_negative_root")
			continue
		}
		out = append(out, l)
	}
	return out
}
