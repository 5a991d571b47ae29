// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distractor

import (
	"context"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/interpret"
	"github.com/pdiddy/deduction-engine/internal/retry"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// SimplifiedFormula offers one-step simplifications of the tree formulas.
// The candidate set is deterministic so a single attempt is made.
type SimplifiedFormula struct {
	deps Deps
}

// Kind implements Generator.
func (s *SimplifiedFormula) Kind() types.DistractorKind { return types.DistractorSimplifiedFormula }

// Generate implements Generator.
func (s *SimplifiedFormula) Generate(ctx context.Context, req Request) (*Output, error) {
	k, err := newGatekeeper(s.deps.Checker, s.deps.Log, req)
	if err != nil {
		return nil, err
	}
	policy := retry.Policy{MaxRetries: -1, Log: s.deps.Log}
	return runHarness(ctx, policy, req, func(actx context.Context, stats *types.Stats) ([]*formula.Formula, error) {
		var out []*formula.Formula
		for _, n := range req.Tree.Nodes() {
			for _, f := range interpret.GenerateSimplifiedFormulas(n.Formula, true) {
				if err := actx.Err(); err != nil {
					return out, err
				}
				stats.Inc("candidates")
				if k.accept(f, out, stats) {
					out = append(out, f)
					if len(out) >= req.Size {
						return out, nil
					}
				}
			}
		}
		return out, nil
	})
}
