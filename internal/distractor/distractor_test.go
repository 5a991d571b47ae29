// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distractor

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deduction-engine/internal/checker"
	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/generator"
	"github.com/pdiddy/deduction-engine/internal/interpret"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/internal/retry"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// --- test helpers ---

func testDeps(t *testing.T) Deps {
	t.Helper()
	chk := checker.New(types.CheckerConfig{}, nil)
	rng := rand.New(rand.NewPCG(3, 4))
	g, err := generator.New(types.TreeConfig{Depth: 1, MaxStepTrials: 200}, formula.DefaultArguments(), chk, rng, nil)
	require.NoError(t, err)
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return Deps{Checker: chk, Trees: g, Rand: rng, Log: log}
}

// buildTree returns root with every leaf as a direct child.
func buildTree(t *testing.T, root string, leaves ...string) *prooftree.ProofTree {
	t.Helper()
	tree := prooftree.New()
	r := tree.AddNode(formula.New(root))
	for _, l := range leaves {
		require.NoError(t, r.AddChild(tree.AddNode(formula.New(l))))
	}
	return tree
}

func mpTree(t *testing.T) *prooftree.ProofTree {
	return buildTree(t, "{B}{b}", "{A}{b}", "(x): {A}x -> {B}x")
}

type fixedGen struct {
	kind  types.DistractorKind
	reps  []string
	err   error
	calls int
}

func (f *fixedGen) Kind() types.DistractorKind { return f.kind }

func (f *fixedGen) Generate(_ context.Context, req Request) (*Output, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []*formula.Formula
	for _, r := range f.reps {
		if len(out) >= req.Size {
			break
		}
		fm := formula.New(r)
		if !formula.Contains(req.Existing, fm) {
			out = append(out, fm)
		}
	}
	return &Output{Formulas: out, Stats: types.Stats{"calls": 1}}, nil
}

// --- tests ---

func TestNew(t *testing.T) {
	deps := testDeps(t)
	tests := []struct {
		name string
		cfg  types.DistractorConfig
		kind types.DistractorKind
		err  error
	}{
		{"various form", types.DistractorConfig{Kind: types.DistractorVariousForm}, types.DistractorVariousForm, nil},
		{"simplified", types.DistractorConfig{Kind: types.DistractorSimplifiedFormula}, types.DistractorSimplifiedFormula, nil},
		{"negative tree", types.DistractorConfig{Kind: types.DistractorNegativeTree, NegatedHypothesisRate: 0.5}, types.DistractorNegativeTree, nil},
		{"mixture", types.DistractorConfig{Kind: types.DistractorMixture, Children: []types.DistractorConfig{{Kind: types.DistractorVariousForm}}}, types.DistractorMixture, nil},
		{"fallback", types.DistractorConfig{Kind: types.DistractorFallback, Children: []types.DistractorConfig{{Kind: types.DistractorSimplifiedFormula}}}, types.DistractorFallback, nil},
		{"unknown kind", types.DistractorConfig{Kind: "bogus"}, "", ErrDistractorImpossible},
		{"composite without children", types.DistractorConfig{Kind: types.DistractorMixture}, "", ErrDistractorImpossible},
		{"rate out of range", types.DistractorConfig{Kind: types.DistractorNegativeTree, NegatedHypothesisRate: 1.5}, "", ErrDistractorImpossible},
		{"bad child", types.DistractorConfig{Kind: types.DistractorFallback, Children: []types.DistractorConfig{{Kind: "bogus"}}}, "", ErrDistractorImpossible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.cfg, deps)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, g.Kind())
		})
	}
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		maxRetry int
		want     int
	}{
		{0, 2},
		{1, -1},
		{4, 3},
	}
	for _, tt := range tests {
		p := newPolicy(types.DistractorConfig{MaxRetry: tt.maxRetry}, nil)
		assert.Equal(t, tt.want, p.MaxRetries, "max retry %d", tt.maxRetry)
		assert.Equal(t, defaultTimeout, p.Timeout)
	}
}

func TestHarnessKeepsBestAttempt(t *testing.T) {
	sizes := []int{2, 1, 1}
	call := 0
	fn := func(context.Context, *types.Stats) ([]*formula.Formula, error) {
		n := sizes[call]
		call++
		return formula.NewAll([]string{"{A}{a}", "{B}{b}"}[:n]...), nil
	}
	policy := retry.Policy{MaxRetries: 2}

	out, err := runHarness(context.Background(), policy, Request{Size: 3, BestEffort: true}, fn)
	require.NoError(t, err)
	assert.Len(t, out.Formulas, 2)
	assert.Equal(t, 3, out.Stats["attempts"])

	call = 0
	_, err = runHarness(context.Background(), policy, Request{Size: 3}, fn)
	assert.ErrorIs(t, err, ErrDistractorFailure)
}

func TestHarnessZeroSize(t *testing.T) {
	out, err := runHarness(context.Background(), retry.Policy{}, Request{}, func(context.Context, *types.Stats) ([]*formula.Formula, error) {
		t.Fatal("attempt ran for an empty request")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out.Formulas)
}

func TestHarnessImpossibleIsFatal(t *testing.T) {
	calls := 0
	_, err := runHarness(context.Background(), retry.Policy{MaxRetries: 5}, Request{Size: 1, BestEffort: true},
		func(context.Context, *types.Stats) ([]*formula.Formula, error) {
			calls++
			return nil, ErrDistractorImpossible
		})
	assert.ErrorIs(t, err, ErrDistractorImpossible)
	assert.Equal(t, 1, calls)
}

func TestGatekeeper(t *testing.T) {
	deps := testDeps(t)
	k, err := newGatekeeper(deps.Checker, deps.Log, Request{Tree: mpTree(t)})
	require.NoError(t, err)

	tests := []struct {
		rep    string
		reason string
	}{
		{"{C}{c}", ""},
		{"{A}{b}", "duplicate"},
		{"{A}x", "free_variable"},
		{"{C}{c} & {C}{c}", "nonsense"},
		{"¬{A}{b}", "inconsistent"},
		{"{B}{b}", "duplicate"},
		{"{A}{b} -> {B}{b}", "smaller_proof"},
		{"¬{B}{b}", "smaller_proof"},
	}
	for _, tt := range tests {
		t.Run(tt.rep, func(t *testing.T) {
			reason, _ := k.check(formula.New(tt.rep), nil)
			assert.Equal(t, tt.reason, reason)
		})
	}

	stats := types.Stats{}
	assert.False(t, k.accept(formula.New("{A}{b}"), nil, &stats))
	assert.Equal(t, 1, stats["rejected.duplicate"])
}

func TestGatekeeperRequiresRootedTree(t *testing.T) {
	deps := testDeps(t)
	_, err := newGatekeeper(deps.Checker, deps.Log, Request{Tree: prooftree.New()})
	assert.ErrorIs(t, err, ErrDistractorImpossible)
	_, err = newGatekeeper(deps.Checker, deps.Log, Request{})
	assert.ErrorIs(t, err, ErrDistractorImpossible)
}

func TestPickMixed(t *testing.T) {
	inTree := map[string]bool{"{A}": true, "{a}": true}
	tests := []struct {
		name string
		ms   []interpret.Mapping
		ok   bool
	}{
		{"single symbol", []interpret.Mapping{{"{A}": "{A}"}}, true},
		{"all reused", []interpret.Mapping{{"{A}": "{A}", "{a}": "{a}"}}, false},
		{"all fresh", []interpret.Mapping{{"{A}": "{Q}", "{a}": "{q}"}}, false},
		{"mixed second", []interpret.Mapping{{"{A}": "{Q}", "{a}": "{q}"}, {"{A}": "{A}", "{a}": "{q}"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := pickMixed(tt.ms, inTree)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestVariousForm(t *testing.T) {
	deps := testDeps(t)
	g, err := New(types.DistractorConfig{Kind: types.DistractorVariousForm}, deps)
	require.NoError(t, err)

	tree := mpTree(t)
	out, err := g.Generate(context.Background(), Request{Tree: tree, Size: 3})
	require.NoError(t, err)
	require.Len(t, out.Formulas, 3)

	treePASs := map[string]bool{}
	for _, p := range formula.UnionPASs(tree.Formulas()) {
		treePASs[p] = true
	}
	hypothesis := formula.New("{B}{b}")
	for _, f := range out.Formulas {
		novel := false
		for _, p := range f.PASs() {
			novel = novel || !treePASs[p]
		}
		assert.True(t, novel, "%s only mentions tree PASs", f)
		assert.False(t, formula.Contains(tree.Formulas(), f))
	}
	facts := append(tree.LeafFormulas(), out.Formulas...)
	assert.True(t, deps.Checker.IsConsistent(facts))
	smaller, logs := deps.Checker.HaveSmallerProofs(facts, hypothesis, 2)
	assert.False(t, smaller, "%v", logs)
	assert.Len(t, formula.Dedup(out.Formulas), 3)
}

func TestSimplifiedFormula(t *testing.T) {
	deps := testDeps(t)
	g, err := New(types.DistractorConfig{Kind: types.DistractorSimplifiedFormula}, deps)
	require.NoError(t, err)

	tree := buildTree(t, "{C}{c}", "{A}{c} & {B}{c}", "(x): ({A}x & {B}x) -> {C}x")
	var pool []*formula.Formula
	for _, f := range tree.Formulas() {
		pool = append(pool, interpret.GenerateSimplifiedFormulas(f, true)...)
	}

	out, err := g.Generate(context.Background(), Request{Tree: tree, Size: 50, BestEffort: true})
	require.NoError(t, err)
	require.NotEmpty(t, out.Formulas)
	assert.Equal(t, 1, out.Stats["attempts"])
	for _, f := range out.Formulas {
		assert.True(t, formula.Contains(pool, f), "%s is not a simplification", f)
		assert.False(t, formula.Contains(tree.Formulas(), f))
	}

	again, err := g.Generate(context.Background(), Request{Tree: tree, Size: 50, BestEffort: true})
	require.NoError(t, err)
	assert.Equal(t, formula.Reps(out.Formulas), formula.Reps(again.Formulas))

	_, err = g.Generate(context.Background(), Request{Tree: tree, Size: 50})
	assert.ErrorIs(t, err, ErrDistractorFailure)
}

func TestNegativeTreePublishWithholdsALeaf(t *testing.T) {
	deps := testDeps(t)
	g, err := New(types.DistractorConfig{Kind: types.DistractorNegativeTree, NegatedHypothesisRate: 1}, deps)
	require.NoError(t, err)
	nt := g.(*NegativeTree)

	k, err := newGatekeeper(deps.Checker, deps.Log, Request{Tree: mpTree(t)})
	require.NoError(t, err)

	root := formula.New("{D}{d}")
	leaves := formula.NewAll("{C}{d}", "(x): {C}x -> {D}x")
	stats := types.Stats{}
	out := nt.publish(leaves, root, k, 5, &stats)
	require.Len(t, out, 1)
	assert.False(t, deps.Checker.IsProvable(append(k.facts(nil, nil), out...), root))

	assert.Empty(t, nt.publish(formula.NewAll("{C}{d}"), root, k, 5, &stats))
	assert.Equal(t, 1, stats["rejected.single_leaf"])
}

func TestNegativeTreeKeepsNegationUnprovable(t *testing.T) {
	deps := testDeps(t)
	g, err := New(types.DistractorConfig{Kind: types.DistractorNegativeTree, NegatedHypothesisRate: 1, MaxRetry: 10}, deps)
	require.NoError(t, err)

	tree := mpTree(t)
	out, err := g.Generate(context.Background(), Request{Tree: tree, Size: 2, BestEffort: true})
	require.NoError(t, err)

	facts := append(tree.LeafFormulas(), out.Formulas...)
	assert.False(t, deps.Checker.IsProvable(facts, formula.New("¬{B}{b}")))
	assert.True(t, deps.Checker.IsConsistent(facts))
}

func TestFallbackUnion(t *testing.T) {
	deps := testDeps(t)
	first := &fixedGen{kind: types.DistractorSimplifiedFormula, reps: []string{"{C}{c}"}}
	second := &fixedGen{kind: types.DistractorVariousForm, reps: []string{"{C}{c}", "{D}{d}", "{E}{e}", "{F}{f}"}}
	fb := &Fallback{children: []Generator{first, second}, deps: deps}

	out, err := fb.Generate(context.Background(), Request{Tree: mpTree(t), Size: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"{C}{c}", "{D}{d}", "{E}{e}"}, formula.Reps(out.Formulas))
	assert.Equal(t, 1, out.Stats["simplified_formula.calls"])
	assert.Equal(t, 1, out.Stats["various_form.calls"])
}

func TestFallbackStopsWhenSatisfied(t *testing.T) {
	deps := testDeps(t)
	first := &fixedGen{kind: types.DistractorVariousForm, reps: []string{"{C}{c}", "{D}{d}"}}
	second := &fixedGen{kind: types.DistractorSimplifiedFormula}
	fb := &Fallback{children: []Generator{first, second}, deps: deps}

	_, err := fb.Generate(context.Background(), Request{Tree: mpTree(t), Size: 2})
	require.NoError(t, err)
	assert.Zero(t, second.calls)
}

func TestFallbackAllImpossible(t *testing.T) {
	deps := testDeps(t)
	fb := &Fallback{children: []Generator{
		&fixedGen{kind: types.DistractorVariousForm, err: ErrDistractorImpossible},
		&fixedGen{kind: types.DistractorNegativeTree, err: ErrDistractorImpossible},
	}, deps: deps}

	_, err := fb.Generate(context.Background(), Request{Tree: mpTree(t), Size: 2})
	assert.ErrorIs(t, err, ErrDistractorImpossible)
}

func TestMixture(t *testing.T) {
	deps := testDeps(t)
	broken := &fixedGen{kind: types.DistractorNegativeTree, err: ErrDistractorImpossible}
	good := &fixedGen{kind: types.DistractorVariousForm, reps: []string{"{C}{c}", "{D}{d}"}}
	m := &Mixture{children: []Generator{broken, good}, maxRepetitions: 10, deps: deps}

	out, err := m.Generate(context.Background(), Request{Tree: mpTree(t), Size: 2})
	require.NoError(t, err)
	assert.Len(t, out.Formulas, 2)
	assert.LessOrEqual(t, broken.calls, 1)
}

func TestMixtureFailure(t *testing.T) {
	deps := testDeps(t)
	flaky := &fixedGen{kind: types.DistractorVariousForm, err: errors.New("boom")}
	m := &Mixture{children: []Generator{flaky}, maxRepetitions: 3, deps: deps}

	_, err := m.Generate(context.Background(), Request{Tree: mpTree(t), Size: 1})
	assert.ErrorIs(t, err, ErrDistractorFailure)
	assert.Equal(t, 3, flaky.calls)

	out, err := m.Generate(context.Background(), Request{Tree: mpTree(t), Size: 1, BestEffort: true})
	require.NoError(t, err)
	assert.Empty(t, out.Formulas)
}
