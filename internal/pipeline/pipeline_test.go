// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deduction-engine/internal/distractor"
	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/generator"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/internal/treebank"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// --- test helpers ---

func testConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Tree:       types.TreeConfig{Depth: 1, MaxStepTrials: 200},
		Distractor: types.DistractorConfig{Kind: types.DistractorVariousForm, Size: 1},
		Translation: types.TranslationConfig{
			Variants:       2,
			DistractorSize: 1,
			Sentences:      []string{"The sky is green.", "Every fish sings."},
		},
		Retry: types.RetryConfig{MaxRetries: 3},
	}
}

func testPipeline(t *testing.T, cfg types.PipelineConfig, bank *treebank.Store) *Pipeline {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	p, err := New(cfg, formula.DefaultArguments(), Options{
		Bank: bank,
		Rand: rand.New(rand.NewPCG(5, 6)),
		Log:  log,
	})
	require.NoError(t, err)
	return p
}

// run retries sample-level failures the way the CLI does.
func run(t *testing.T, p *Pipeline, depth int) []*Sample {
	t.Helper()
	var err error
	for range 10 {
		var out []*Sample
		if out, err = p.Run(context.Background(), depth); err == nil {
			return out
		}
		require.ErrorIs(t, err, ErrFailure)
	}
	require.NoError(t, err)
	return nil
}

// --- tests ---

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		edit func(*types.PipelineConfig)
		args []*formula.Argument
	}{
		{"label rates above one", func(c *types.PipelineConfig) { c.UnknownRate, c.DisprovedRate = 0.6, 0.6 }, formula.DefaultArguments()},
		{"negative rate", func(c *types.PipelineConfig) { c.UnknownRate = -0.1 }, formula.DefaultArguments()},
		{"no arguments", func(*types.PipelineConfig) {}, nil},
		{"unknown distractor", func(c *types.PipelineConfig) { c.Distractor.Kind = "bogus" }, formula.DefaultArguments()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.edit(&cfg)
			_, err := New(cfg, tt.args, Options{})
			assert.ErrorIs(t, err, ErrImpossible)
		})
	}
}

func TestRunProved(t *testing.T) {
	cfg := testConfig()
	cfg.ExactValidation = true
	p := testPipeline(t, cfg, nil)

	samples := run(t, p, 0)
	require.Len(t, samples, 2)
	a, b := samples[0], samples[1]

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 0, a.Variant)
	assert.Equal(t, 1, b.Variant)
	assert.Equal(t, a.Hypothesis, b.Hypothesis)
	assert.Equal(t, LabelProved, a.Label)
	assert.Equal(t, 1, a.Depth)
	assert.Len(t, a.Distractors, 1)
	assert.Len(t, a.Sentences, len(a.Facts)+len(a.Distractors)+1)
	assert.NotEqual(t, a.Sentences[0].Name, b.Sentences[0].Name)
	assert.Len(t, a.TranslationDistractors, 1)
	assert.True(t, p.Checker().IsProvable(formula.NewAll(a.Facts...), formula.New(a.Hypothesis)))
	assert.Equal(t, a.Tree.String(), a.Proof)
}

func TestRunDisproved(t *testing.T) {
	cfg := testConfig()
	cfg.DisprovedRate = 1
	p := testPipeline(t, cfg, nil)

	s := run(t, p, 0)[0]
	assert.Equal(t, LabelDisproved, s.Label)
	root, err := s.Tree.Root()
	require.NoError(t, err)
	assert.Equal(t, root.Formula.Rep(), s.NegatedHypothesis)
	assert.True(t, p.Checker().IsProvable(formula.NewAll(s.Facts...), formula.New(s.NegatedHypothesis)))
}

func TestRunUnknown(t *testing.T) {
	cfg := testConfig()
	cfg.UnknownRate = 1
	p := testPipeline(t, cfg, nil)

	s := run(t, p, 0)[0]
	assert.Equal(t, LabelUnknown, s.Label)
	assert.Len(t, s.Facts, len(s.Tree.Leaves())-1)
	facts := formula.NewAll(append(s.Facts, s.Distractors...)...)
	assert.False(t, p.Checker().IsProvable(facts, formula.New(s.Hypothesis)))
	assert.False(t, p.Checker().IsProvable(facts, formula.New(s.NegatedHypothesis)))
}

func TestRunReusesShallowTrials(t *testing.T) {
	cfg := testConfig()
	cfg.Tree.Depth = 2
	cfg.Distractor.Size = 0
	p := testPipeline(t, cfg, nil)

	s := run(t, p, 2)[0]
	assert.Equal(t, 2, s.Depth)
	assert.Positive(t, s.Stats["tree.cached"])
	for key, bucket := range p.cache.buckets {
		assert.Equal(t, p.key(key.Depth), key)
		assert.Less(t, key.Depth, 2)
		for _, tr := range bucket {
			assert.Equal(t, key.Depth, tr.Depth())
		}
	}

	mp := prooftree.New()
	root := mp.AddNode(formula.New("{B}{b}"))
	require.NoError(t, root.AddChild(mp.AddNode(formula.New("{A}{b}"))))
	require.NoError(t, root.AddChild(mp.AddNode(formula.New("(x): {A}x -> {B}x"))))
	p.cache = newTreeCache(0)
	p.cache.put(p.key(1), mp)

	s = run(t, p, 1)[0]
	assert.Equal(t, "{B}{b}", s.Hypothesis)
	assert.Equal(t, 1, s.Stats["tree.cache_hit"])
	assert.Zero(t, p.cache.len())
}

func testBank(t *testing.T) *treebank.Store {
	t.Helper()
	bank, err := treebank.Open(types.TreeBankConfig{Path: filepath.Join(t.TempDir(), "trees.db")})
	require.NoError(t, err)
	t.Cleanup(func() { bank.Close() })
	return bank
}

func bankedTrees(t *testing.T, bank *treebank.Store) []*treebank.Entry {
	t.Helper()
	entries, err := bank.Entries(context.Background())
	require.NoError(t, err)
	return entries
}

func TestRunBanksShallowTrials(t *testing.T) {
	bank := testBank(t)
	cfg := testConfig()
	cfg.Tree.Depth = 2
	cfg.Distractor.Size = 0
	first := testPipeline(t, cfg, bank)

	s := run(t, first, 2)[0]
	assert.Zero(t, s.Stats["tree.bank_hit"])
	assert.Zero(t, first.cache.len())

	banked := bankedTrees(t, bank)
	require.NotEmpty(t, banked)
	for _, e := range banked {
		assert.Equal(t, 1, e.Depth)
		assert.Equal(t, first.key(1).String(), e.Bucket)
	}

	second := testPipeline(t, cfg, bank)
	s = run(t, second, 1)[0]
	assert.Equal(t, 1, s.Stats["tree.bank_hit"])
	assert.Len(t, bankedTrees(t, bank), len(banked)-1)
}

func TestRunDoesNotReuseBankedTree(t *testing.T) {
	bank := testBank(t)
	cfg := testConfig()
	cfg.Distractor.Size = 0
	p := testPipeline(t, cfg, bank)

	mp := prooftree.New()
	root := mp.AddNode(formula.New("{B}{b}"))
	require.NoError(t, root.AddChild(mp.AddNode(formula.New("{A}{b}"))))
	require.NoError(t, root.AddChild(mp.AddNode(formula.New("(x): {A}x -> {B}x"))))
	_, err := bank.Put(context.Background(), p.key(1), mp)
	require.NoError(t, err)

	s := run(t, p, 1)[0]
	assert.Equal(t, 1, s.Stats["tree.bank_hit"])
	assert.Equal(t, "{B}{b}", s.Hypothesis)

	for range 5 {
		s = run(t, p, 1)[0]
		assert.Zero(t, s.Stats["tree.bank_hit"])
	}
	assert.Empty(t, bankedTrees(t, bank))
}

// shortLibrary only grows trees of depth one.
func shortLibrary() []*formula.Argument {
	return []*formula.Argument{
		formula.NewArgument("dead", formula.NewAll("{A} & {B}"), formula.New("{A}"), nil, nil),
	}
}

func TestRunKeepsTrialsOfShortAttempts(t *testing.T) {
	for _, withBank := range []bool{false, true} {
		cfg := testConfig()
		cfg.Tree.Depth = 2
		cfg.Tree.MaxBacktracks = 1
		cfg.Retry.MaxRetries = 1
		var bank *treebank.Store
		if withBank {
			bank = testBank(t)
		}
		p, err := New(cfg, shortLibrary(), Options{Bank: bank, Rand: rand.New(rand.NewPCG(5, 6))})
		require.NoError(t, err)

		_, err = p.Run(context.Background(), 2)
		require.ErrorIs(t, err, ErrFailure)
		assert.ErrorIs(t, err, generator.ErrGenerationFailure)

		if withBank {
			banked := bankedTrees(t, bank)
			require.NotEmpty(t, banked)
			for _, e := range banked {
				assert.Equal(t, p.key(1).String(), e.Bucket)
			}
			continue
		}
		require.Positive(t, p.cache.len())
		for key := range p.cache.buckets {
			assert.Equal(t, p.key(1), key)
		}
	}
}

func TestExactValidationRejectsUnsatisfiableSets(t *testing.T) {
	tree := prooftree.New()
	root := tree.AddNode(formula.New("{B}"))
	require.NoError(t, root.AddChild(tree.AddNode(formula.New("{K}"))))
	require.NoError(t, root.AddChild(tree.AddNode(formula.New("{K} -> {B}"))))
	facts := tree.LeafFormulas()
	distractors := formula.NewAll("¬{B} v ¬{S}", "{K} -> {S}")
	hypothesis, negated := formula.New("{B}"), formula.New("¬{B}")

	cfg := testConfig()
	p := testPipeline(t, cfg, nil)
	assert.NoError(t, p.validate(LabelProved, tree, facts, distractors, hypothesis, negated))

	cfg.ExactValidation = true
	p = testPipeline(t, cfg, nil)
	assert.ErrorIs(t, p.validate(LabelProved, tree, facts, distractors, hypothesis, negated), ErrFailure)
	assert.NoError(t, p.validate(LabelProved, tree, facts, distractors[1:], hypothesis, negated))
}

func TestNewDefaultsAttemptTimeout(t *testing.T) {
	p := testPipeline(t, testConfig(), nil)
	assert.Equal(t, DefaultAttemptTimeout, p.policy.Timeout)

	cfg := testConfig()
	cfg.Retry.Timeout = time.Second
	p = testPipeline(t, cfg, nil)
	assert.Equal(t, time.Second, p.policy.Timeout)
}

func TestLabelRates(t *testing.T) {
	cfg := testConfig()
	cfg.UnknownRate, cfg.DisprovedRate = 0.5, 0.5
	p := testPipeline(t, cfg, nil)
	seen := map[Label]int{}
	for range 200 {
		seen[p.label()]++
	}
	assert.Zero(t, seen[LabelProved])
	assert.Positive(t, seen[LabelUnknown])
	assert.Positive(t, seen[LabelDisproved])
}

func TestTreeCache(t *testing.T) {
	c := newTreeCache(2)
	tree := func(depth int) *prooftree.ProofTree {
		tr := prooftree.New()
		cur := tr.AddNode(formula.New("{A}{a}"))
		for range depth {
			next := tr.AddNode(formula.New("{A}{a}"))
			require.NoError(t, cur.AddChild(next))
			cur = next
		}
		return tr
	}

	one, two := treebank.Key{Depth: 1}, treebank.Key{Depth: 2}
	c.put(one, tree(1))
	c.put(one, tree(1))
	c.put(two, tree(2))
	assert.Equal(t, 3, c.len())

	c.put(one, tree(1))
	assert.Equal(t, 2, c.len())

	_, ok := c.pop(treebank.Key{Depth: 2, Flags: "other"})
	assert.False(t, ok)
	got, ok := c.pop(two)
	require.True(t, ok)
	assert.Equal(t, 2, got.Depth())
	_, ok = c.pop(two)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	err := classify(errors.Join(generator.ErrGenerationImpossible), generator.ErrGenerationImpossible)
	assert.ErrorIs(t, err, ErrImpossible)
	assert.ErrorIs(t, err, generator.ErrGenerationImpossible)

	err = classify(distractor.ErrDistractorFailure, distractor.ErrDistractorImpossible)
	assert.ErrorIs(t, err, ErrFailure)
	assert.NotErrorIs(t, err, ErrImpossible)
}
