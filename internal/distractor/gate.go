// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distractor

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/deduction-engine/internal/checker"
	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// gatekeeper decides whether a candidate may join the distractors of a tree.
type gatekeeper struct {
	chk        *checker.Checker
	log        logrus.FieldLogger
	hypothesis *formula.Formula
	depth      int
	leaves     []*formula.Formula
	nodes      []*formula.Formula
	pass       map[string]bool
	req        Request
}

func newGatekeeper(chk *checker.Checker, log logrus.FieldLogger, req Request) (*gatekeeper, error) {
	if req.Tree == nil {
		return nil, fmt.Errorf("%w: no tree", ErrDistractorImpossible)
	}
	root, err := req.Tree.Root()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDistractorImpossible, err)
	}
	k := &gatekeeper{
		chk:        chk,
		log:        log,
		hypothesis: root.Formula,
		depth:      req.Tree.Depth(),
		leaves:     req.Tree.LeafFormulas(),
		nodes:      req.Tree.Formulas(),
		pass:       map[string]bool{},
		req:        req,
	}
	for _, p := range formula.UnionPASs(k.nodes) {
		k.pass[p] = true
	}
	if d, ok := chk.ProofDepth(k.facts(nil, nil), k.hypothesis); ok && d > k.depth {
		k.depth = d
	}
	return k, nil
}

// coversTree reports whether every PAS of f already occurs in the tree.
func (k *gatekeeper) coversTree(f *formula.Formula) bool {
	pass := f.PASs()
	if len(pass) == 0 {
		return true
	}
	for _, p := range pass {
		if !k.pass[p] {
			return false
		}
	}
	return true
}

// facts are the formulas a reader would see next to f.
func (k *gatekeeper) facts(accepted []*formula.Formula, f *formula.Formula) []*formula.Formula {
	out := make([]*formula.Formula, 0, len(k.leaves)+len(k.req.Existing)+len(accepted)+1)
	out = append(out, k.leaves...)
	out = append(out, k.req.Existing...)
	out = append(out, accepted...)
	if f != nil {
		out = append(out, f)
	}
	return out
}

// accept applies every gate to f and counts the rejection reason.
func (k *gatekeeper) accept(f *formula.Formula, accepted []*formula.Formula, stats *types.Stats) bool {
	reason, logs := k.check(f, accepted)
	if reason == "" {
		return true
	}
	stats.Inc("rejected." + reason)
	if len(logs) > 0 {
		k.log.WithFields(logrus.Fields{"formula": f.Rep(), "reason": reason}).Trace(strings.Join(logs, "; "))
	}
	return false
}

func (k *gatekeeper) check(f *formula.Formula, accepted []*formula.Formula) (string, []string) {
	switch {
	case len(f.FreeVariables()) > 0:
		return "free_variable", nil
	case k.chk.IsNonsense(f):
		return "nonsense", nil
	case formula.Contains(k.nodes, f), formula.Contains(k.req.Existing, f), formula.Contains(accepted, f):
		return "duplicate", nil
	}
	facts := k.facts(accepted, f)
	if !k.req.AllowInconsistency && k.chk.IsInconsistent(facts) {
		return "inconsistent", nil
	}
	if !k.req.AllowSmallerProofs {
		if smaller, logs := k.chk.HaveSmallerProofs(facts, k.hypothesis, k.depth); smaller {
			return "smaller_proof", logs
		}
	}
	return "", nil
}
