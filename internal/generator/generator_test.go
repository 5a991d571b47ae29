// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generator

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deduction-engine/internal/checker"
	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/interpret"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// --- test helpers ---

func newTestGenerator(t *testing.T, cfg types.TreeConfig, args []*formula.Argument) *Generator {
	t.Helper()
	g, err := New(cfg, args, checker.New(types.CheckerConfig{}, nil), rand.New(rand.NewPCG(1, 2)), nil)
	require.NoError(t, err)
	return g
}

func argumentByID(t *testing.T, id string) *formula.Argument {
	t.Helper()
	for _, a := range formula.DefaultArguments() {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("argument %s not in the default library", id)
	return nil
}

func rejectionReason(err error) string {
	var r *rejection
	if errors.As(err, &r) {
		return r.reason
	}
	return ""
}

func TestExtendSingleChild(t *testing.T) {
	rule := formula.NewArgument("instantiate", formula.NewAll("(x): {A}x"), formula.New("{A}{a}"), nil, nil)
	g := newTestGenerator(t, types.TreeConfig{Depth: 1}, []*formula.Argument{rule})

	tree := Seed(formula.New("{A}{a}"))
	root, err := tree.Root()
	require.NoError(t, err)

	next, err := g.Extend(context.Background(), tree, root, rule)
	require.NoError(t, err)

	newRoot, err := next.Root()
	require.NoError(t, err)
	require.Len(t, newRoot.Children(), 1)
	assert.Equal(t, "(x): {A}x", newRoot.Children()[0].Formula.Rep())
	require.NotNil(t, newRoot.Argument)
	assert.Equal(t, "instantiate", newRoot.Argument.ID)
	assert.Equal(t, 1, next.Depth())

	// The input tree is untouched.
	assert.Equal(t, 1, tree.Len())
	assert.Nil(t, root.Argument)
}

func TestExtendRejectsNonsensePremise(t *testing.T) {
	dup := formula.NewArgument("dup", formula.NewAll("{A}{a} & {A}{a}"), formula.New("{A}{a}"), nil, nil)
	g := newTestGenerator(t, types.TreeConfig{Depth: 1}, []*formula.Argument{dup})

	tree := Seed(formula.New("{B}{b}"))
	root, _ := tree.Root()
	_, err := g.Extend(context.Background(), tree, root, dup)
	assert.Equal(t, "nonsense", rejectionReason(err))
}

func TestExtendRejectsNonUnifiable(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 1}, formula.DefaultArguments())
	tree := Seed(formula.New("{B}{b}"))
	root, _ := tree.Root()
	_, err := g.Extend(context.Background(), tree, root, argumentByID(t, "and.intro"))
	assert.Equal(t, "no_unification", rejectionReason(err))
}

func TestExtendModusPonens(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 1}, formula.DefaultArguments())
	tree := Seed(formula.New("{B}{b}"))
	root, _ := tree.Root()

	next, err := g.Extend(context.Background(), tree, root, argumentByID(t, "mp.unary"))
	require.NoError(t, err)

	leaves := next.LeafFormulas()
	require.Len(t, leaves, 2)
	assert.Equal(t, []string{"{b}"}, leaves[0].Constants())
	assert.Contains(t, leaves[1].Rep(), "-> {B}x")
	assert.NotContains(t, leaves[0].Predicates(), "{B}")
}

func TestIntermediateConstantRepair(t *testing.T) {
	elim := argumentByID(t, "existential.elim")

	g := newTestGenerator(t, types.TreeConfig{Depth: 2}, []*formula.Argument{elim})
	tree := Seed(formula.New("{C}"))
	root, _ := tree.Root()
	_, err := g.Extend(context.Background(), tree, root, elim)
	assert.Equal(t, "intermediate_constant", rejectionReason(err))

	g = newTestGenerator(t, types.TreeConfig{Depth: 2, ForceFixIllegalIntermediateConstants: true}, []*formula.Argument{elim})
	next, err := g.Extend(context.Background(), tree, root, elim)
	require.NoError(t, err)
	require.NoError(t, next.Validate())
	assert.Equal(t, 2, next.Depth())
	for _, l := range next.LeafFormulas() {
		assert.Empty(t, l.Constants(), "leaf %s mentions a constant", l)
	}
	assert.Equal(t, 1, g.Stats()["fixed.intermediate_constant"])
}

func TestGenerateReachesDepth(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 2, MaxStepTrials: 200}, formula.DefaultArguments())

	res, err := g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}{c}")})
	require.NoError(t, err)
	require.NoError(t, res.Tree.Validate())
	assert.Equal(t, 2, res.Tree.Depth())

	root, err := res.Tree.Root()
	require.NoError(t, err)
	assert.Equal(t, "{C}{c}", root.Formula.Rep())

	require.NotEmpty(t, res.Trials)
	for i := 1; i < len(res.Trials); i++ {
		assert.LessOrEqual(t, res.Trials[i-1].Depth(), res.Trials[i].Depth())
	}
	assert.Equal(t, 2, res.Trials[len(res.Trials)-1].Depth())

	for _, n := range res.Tree.Nodes() {
		if !n.IsLeaf() && !n.IsAssumption() {
			assert.NotNil(t, n.Argument, "internal node %s has no argument", n)
		}
	}
	assert.True(t, g.Checker().IsConsistent(res.Tree.LeafFormulas()))
}

func TestGenerateReachesDepthAcrossSeeds(t *testing.T) {
	for seed := range uint64(20) {
		g, err := New(types.TreeConfig{Depth: 2, MaxStepTrials: 50}, formula.DefaultArguments(),
			checker.New(types.CheckerConfig{}, nil), rand.New(rand.NewPCG(seed, seed+1)), nil)
		require.NoError(t, err)
		res, err := g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}{c}")})
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, 2, res.Tree.Depth(), "seed %d", seed)
	}
}

// deadEndLibrary holds one rule that keeps growing and one whose premise no
// rule can derive.
func deadEndLibrary() []*formula.Argument {
	return []*formula.Argument{
		formula.NewArgument("step", formula.NewAll("{B}"), formula.New("{A}"), nil, nil),
		formula.NewArgument("dead", formula.NewAll("{A} & {B}"), formula.New("{A}"), nil, nil),
	}
}

func TestGenerateBacktracksFromDeadEnds(t *testing.T) {
	backtracks := 0
	for seed := range uint64(10) {
		g, err := New(types.TreeConfig{Depth: 3, MaxStepTrials: 20}, deadEndLibrary(),
			checker.New(types.CheckerConfig{}, nil), rand.New(rand.NewPCG(seed, 7)), nil)
		require.NoError(t, err)
		res, err := g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}")})
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, 3, res.Tree.Depth())
		backtracks += g.Stats()["backtracks"]
	}
	assert.Positive(t, backtracks)
}

func TestExtendSkipsNonUnifiableArguments(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 1, MaxStepTrials: 3}, formula.DefaultArguments())
	tree := Seed(formula.New("{C}{c}"))

	next, ok := g.extendOnce(context.Background(), tree, tree.Leaves())
	require.True(t, ok)
	assert.Equal(t, 1, next.Depth())
	assert.Zero(t, g.Stats()["rejected.no_unification"])
}

func TestGenerateBestEffortKeepsDeepest(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 5, MaxStepTrials: 20, MaxBacktracks: 2}, deadEndLibrary()[1:])
	res, err := g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}"), BestEffort: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tree.Depth())
	assert.Len(t, res.Trials, 3)
	assert.Equal(t, 2, g.Stats()["backtracks"])

	_, err = g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}")})
	assert.ErrorIs(t, err, ErrGenerationFailure)
}

func TestIntermediateConstantRepairRespectsDepth(t *testing.T) {
	elim := argumentByID(t, "existential.elim")
	g := newTestGenerator(t, types.TreeConfig{Depth: 1, MaxStepTrials: 5, ForceFixIllegalIntermediateConstants: true},
		[]*formula.Argument{elim})

	tree := Seed(formula.New("{C}"))
	root, _ := tree.Root()
	_, err := g.Extend(context.Background(), tree, root, elim)
	assert.Equal(t, "too_deep", rejectionReason(err))

	_, err = g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}")})
	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.Positive(t, g.Stats()["rejected.too_deep"])

	res, err := g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}"), Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tree.Depth())
}

func TestGenerateSamplesHypothesis(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 1, MaxStepTrials: 200}, formula.DefaultArguments())
	res, err := g.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tree.Depth())
}

func TestGenerateFailure(t *testing.T) {
	only := formula.NewArgument("and", formula.NewAll("{A}", "{B}"), formula.New("{A} & {B}"), nil, nil)
	g := newTestGenerator(t, types.TreeConfig{Depth: 1, MaxStepTrials: 5}, []*formula.Argument{only})

	_, err := g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}{c}")})
	assert.ErrorIs(t, err, ErrGenerationFailure)

	_, err = g.Generate(context.Background(), Request{Hypothesis: formula.New("{C}{c}"), BestEffort: true})
	assert.ErrorIs(t, err, ErrGenerationFailure)
}

func TestGenerateCancelled(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 3}, formula.DefaultArguments())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, Request{Hypothesis: formula.New("{C}{c}")})
	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewImpossible(t *testing.T) {
	_, err := New(types.TreeConfig{Depth: 1}, nil, checker.New(types.CheckerConfig{}, nil), nil, nil)
	assert.ErrorIs(t, err, ErrGenerationImpossible)

	_, err = New(types.TreeConfig{Depth: 1, QuantifierAxioms: []string{"bogus"}}, formula.DefaultArguments(), checker.New(types.CheckerConfig{}, nil), nil, nil)
	assert.ErrorIs(t, err, ErrGenerationImpossible)

	_, err = New(types.TreeConfig{Depth: 1, QuantifierAxiomWeight: 1}, nil, checker.New(types.CheckerConfig{}, nil), nil, nil)
	assert.NoError(t, err)
}

func TestNonsenseHypothesisIsImpossible(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 1}, formula.DefaultArguments())
	_, err := g.Generate(context.Background(), Request{Hypothesis: formula.New("{A} & {A}")})
	assert.ErrorIs(t, err, ErrGenerationImpossible)
}

func TestPickLeafPrefersDepthOne(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 2, Depth1ReferenceWeight: 1e9}, formula.DefaultArguments())

	tree := prooftree.New()
	root := tree.AddNode(formula.New("{A}"))
	shallow := tree.AddNode(formula.New("{B}"))
	mid := tree.AddNode(formula.New("{C}"))
	deep := tree.AddNode(formula.New("{D}"))
	require.NoError(t, root.AddChild(shallow))
	require.NoError(t, root.AddChild(mid))
	require.NoError(t, mid.AddChild(deep))

	leaves := tree.Leaves()
	hits := 0
	for range 1000 {
		if leaves[g.pickLeaf(leaves)] == shallow {
			hits++
		}
	}
	assert.Greater(t, hits, 990)
}

func TestQuantifierArguments(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 1, QuantifierAxiomWeight: 1}, nil)
	tree := Seed(formula.New("{A}{a}"))

	args := g.quantifierArguments(tree, formula.New("{A}{a}"))
	var premises []string
	for _, a := range args {
		assert.Equal(t, "{A}{a}", a.Conclusion.Rep())
		premises = append(premises, a.Premises[0].Rep())
	}
	assert.Contains(t, premises, "(x): {A}x")

	args = g.quantifierArguments(tree, formula.New("(Ex): {A}x"))
	require.NotEmpty(t, args)
	for _, a := range args {
		assert.Contains(t, a.ID, string(interpret.ExistentialIntro))
	}
}

func TestSampleHypothesis(t *testing.T) {
	g := newTestGenerator(t, types.TreeConfig{Depth: 1}, formula.DefaultArguments())
	for range 20 {
		h, err := g.SampleHypothesis()
		require.NoError(t, err)
		assert.Empty(t, h.FreeVariables())
		assert.False(t, g.Checker().IsNonsense(h))
	}
}
