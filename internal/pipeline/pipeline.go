// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline assembles deduction samples: it obtains a proof tree,
// adds distractors, labels the sample and translates it into sentences.
// A Pipeline owns its caches and random source and is not safe for
// concurrent use; run one Pipeline per worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/deduction-engine/internal/checker"
	"github.com/pdiddy/deduction-engine/internal/distractor"
	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/generator"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/internal/retry"
	"github.com/pdiddy/deduction-engine/internal/translate"
	"github.com/pdiddy/deduction-engine/internal/treebank"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

var (
	// ErrFailure means this sample could not be produced; a new attempt may succeed.
	ErrFailure = errors.New("sample generation failed")

	// ErrImpossible means the configuration can never produce a sample.
	ErrImpossible = errors.New("sample generation is impossible")
)

// DefaultAttemptTimeout bounds one tree growth attempt when
// RetryConfig.Timeout is unset.
const DefaultAttemptTimeout = 30 * time.Second

// Options carries the optional collaborators of a Pipeline.
type Options struct {
	// Bank persists grown trees and serves them back. Nil disables it.
	Bank *treebank.Store

	// Translators, one per variant. Empty selects the symbolic phrasebooks.
	Translators []translate.Translator

	// Sentences supplies translation distractors. Nil draws from
	// TranslationConfig.Sentences.
	Sentences translate.Distractor

	// Caches are shared checker caches. Nil gives the pipeline its own.
	Caches *checker.Caches

	Rand *rand.Rand
	Log  logrus.FieldLogger
}

// Pipeline produces samples.
type Pipeline struct {
	cfg         types.PipelineConfig
	check       *checker.Checker
	trees       *generator.Generator
	distractors distractor.Generator
	translators []translate.Translator
	sentences   translate.Distractor
	bank        *treebank.Store
	cache       *treeCache
	rng         *rand.Rand
	log         logrus.FieldLogger
	policy      retry.Policy
}

// New wires a Pipeline from cfg and the argument library.
func New(cfg types.PipelineConfig, args []*formula.Argument, opts Options) (*Pipeline, error) {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.UnknownRate < 0 || cfg.DisprovedRate < 0 || cfg.UnknownRate+cfg.DisprovedRate > 1 {
		return nil, fmt.Errorf("%w: label rates %v and %v", ErrImpossible, cfg.UnknownRate, cfg.DisprovedRate)
	}

	var chk *checker.Checker
	if opts.Caches != nil {
		chk = checker.NewWithCaches(cfg.Checker, opts.Caches, opts.Log)
	} else {
		chk = checker.New(cfg.Checker, opts.Log)
	}
	trees, err := generator.New(cfg.Tree, args, chk, opts.Rand, opts.Log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImpossible, err)
	}
	dcfg := cfg.Distractor
	if dcfg.Kind == "" {
		dcfg.Kind = types.DistractorVariousForm
	}
	ds, err := distractor.New(dcfg, distractor.Deps{Checker: chk, Trees: trees, Rand: opts.Rand, Log: opts.Log})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImpossible, err)
	}

	translators := opts.Translators
	if len(translators) == 0 {
		n := max(cfg.Translation.Variants, 1)
		for v := range n {
			tr, err := translate.NewSymbolic(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrImpossible, err)
			}
			translators = append(translators, tr)
		}
	}
	sentences := opts.Sentences
	if sentences == nil {
		sentences = translate.NewSentencePool(cfg.Translation.Sentences, opts.Rand)
	}

	timeout := cfg.Retry.Timeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}

	return &Pipeline{
		cfg:         cfg,
		check:       chk,
		trees:       trees,
		distractors: ds,
		translators: translators,
		sentences:   sentences,
		bank:        opts.Bank,
		cache:       newTreeCache(cfg.TreeCacheSize),
		rng:         opts.Rand,
		log:         opts.Log,
		policy:      retry.Policy{MaxRetries: cfg.Retry.MaxRetries, Timeout: timeout, Log: opts.Log},
	}, nil
}

// Checker returns the checker shared by every stage.
func (p *Pipeline) Checker() *checker.Checker { return p.check }

// Run produces one sample per translation variant. depth overrides the
// configured tree depth when positive.
func (p *Pipeline) Run(ctx context.Context, depth int) ([]*Sample, error) {
	if depth <= 0 {
		depth = p.cfg.Tree.Depth
	}
	stats := types.Stats{}

	tree, err := p.tree(ctx, depth, &stats)
	if err != nil {
		return nil, err
	}
	root, err := tree.Root()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImpossible, err)
	}
	neg, err := formula.Negate(root.Formula)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailure, err)
	}
	neg = formula.EliminateDoubleNegation(neg)

	dout, err := p.distractors.Generate(ctx, distractor.Request{
		Tree:               tree,
		Size:               p.cfg.Distractor.Size,
		AllowInconsistency: p.cfg.Tree.AllowInconsistency,
		AllowSmallerProofs: p.cfg.Tree.AllowSmallerProofs,
	})
	if err != nil {
		return nil, classify(err, distractor.ErrDistractorImpossible)
	}
	stats.Merge("distractor.", dout.Stats)

	label := p.label()
	facts := tree.LeafFormulas()
	hypothesis, negated := root.Formula, neg
	switch label {
	case LabelDisproved:
		hypothesis, negated = neg, root.Formula
	case LabelUnknown:
		drop := p.rng.IntN(len(facts))
		facts = slices.Delete(slices.Clone(facts), drop, drop+1)
		if p.rng.IntN(2) == 1 {
			hypothesis, negated = neg, root.Formula
		}
	}

	if err := p.validate(label, tree, facts, dout.Formulas, hypothesis, negated); err != nil {
		return nil, err
	}

	return p.assemble(ctx, tree, label, facts, dout.Formulas, hypothesis, negated, stats)
}

// tree pops a reusable tree of the wanted depth from the bank, or from the
// in-memory cache when no bank is configured, and grows a new one when
// there is none. Growth runs best effort: the deepest tree is used, every
// shallower snapshot is kept for later requests of its own depth, and a
// run that falls short is retried.
func (p *Pipeline) tree(ctx context.Context, depth int, stats *types.Stats) (*prooftree.ProofTree, error) {
	key := p.key(depth)
	if p.bank != nil {
		e, ok, err := p.bank.Pop(ctx, key)
		if err != nil {
			p.log.WithError(err).Warn("tree bank lookup failed")
		} else if ok {
			stats.Inc("tree.bank_hit")
			return e.Tree, nil
		}
	} else if t, ok := p.cache.pop(key); ok {
		stats.Inc("tree.cache_hit")
		return t, nil
	}

	tree, err := retry.Do(ctx, p.policy, func(actx context.Context) retry.Result[*prooftree.ProofTree] {
		res, err := p.trees.Generate(actx, generator.Request{Depth: depth, BestEffort: true})
		stats.Merge("tree.", p.trees.Stats())
		if err != nil {
			return retry.Classify[*prooftree.ProofTree](nil, err, generator.ErrGenerationImpossible)
		}
		p.stash(ctx, res.Trials, depth, stats)
		if res.Tree.Depth() < depth {
			stats.Inc("tree.short")
			return retry.Again[*prooftree.ProofTree](nil, fmt.Errorf("%w: reached depth %d of %d",
				generator.ErrGenerationFailure, res.Tree.Depth(), depth))
		}
		return retry.Ok(res.Tree)
	})
	if err != nil {
		return nil, classify(err, generator.ErrGenerationImpossible)
	}
	return tree, nil
}

// stash keeps the trials shallower than depth under their own key.
func (p *Pipeline) stash(ctx context.Context, trials []*prooftree.ProofTree, depth int, stats *types.Stats) {
	for _, t := range trials {
		if t.Depth() >= depth || t.Depth() == 0 {
			continue
		}
		key := p.key(t.Depth())
		if p.bank == nil {
			p.cache.put(key, t)
			stats.Inc("tree.cached")
			continue
		}
		if _, err := p.bank.Put(ctx, key, t); err != nil {
			p.log.WithError(err).Warn("tree bank insert failed")
			continue
		}
		stats.Inc("tree.banked")
	}
}

func (p *Pipeline) key(depth int) treebank.Key {
	return treebank.Key{Depth: depth, Flags: p.flags()}
}

// flags identifies the generation settings a banked tree depends on.
func (p *Pipeline) flags() string {
	t := p.cfg.Tree
	return fmt.Sprintf("args=%s|inconsistent=%t|smaller=%t|complication=%g|quantifier=%g",
		t.ArgumentsFile, t.AllowInconsistency, t.AllowSmallerProofs, t.ComplicationRate, t.QuantifierAxiomWeight)
}

func (p *Pipeline) label() Label {
	r := p.rng.Float64()
	switch {
	case r < p.cfg.UnknownRate:
		return LabelUnknown
	case r < p.cfg.UnknownRate+p.cfg.DisprovedRate:
		return LabelDisproved
	}
	return LabelProved
}

// validate confirms the label. UNKNOWN samples must decide neither way
// with the heuristic checker; with ExactValidation the SAT layer confirms
// every label.
func (p *Pipeline) validate(label Label, tree *prooftree.ProofTree, facts, distractors []*formula.Formula, hypothesis, negated *formula.Formula) error {
	all := append(slices.Clone(facts), distractors...)
	if label == LabelUnknown {
		if p.check.IsProvable(all, hypothesis) || p.check.IsProvable(all, negated) {
			return fmt.Errorf("%w: unknown sample is decidable from %v", ErrFailure, formula.Reps(all))
		}
	}
	if !p.cfg.ExactValidation {
		return nil
	}

	var (
		ok  bool
		err error
	)
	switch label {
	case LabelProved:
		ok, err = checker.Entails(all, hypothesis)
	case LabelDisproved:
		ok, err = checker.Entails(all, hypothesis)
		if err == nil {
			ok = !ok
			if ok {
				ok, err = checker.Entails(all, negated)
			}
		}
	case LabelUnknown:
		var pos, negd bool
		if pos, err = checker.Entails(all, hypothesis); err == nil {
			negd, err = checker.Entails(all, negated)
		}
		ok = !pos && !negd
	}
	if err == nil && !p.cfg.Tree.AllowInconsistency {
		var sat bool
		if sat, err = checker.CheckSat(all...); err == nil && !sat {
			ok = false
		}
	}
	if err != nil {
		return fmt.Errorf("%w: exact validation: %w", ErrFailure, err)
	}
	if !ok {
		p.log.WithFields(logrus.Fields{
			"label":      label,
			"hypothesis": hypothesis.Rep(),
			"facts":      formula.Reps(all),
			"tree":       tree.String(),
		}).Warn("sample rejected by exact validation")
		return fmt.Errorf("%w: %s label not confirmed by exact validation", ErrFailure, label)
	}
	return nil
}

func (p *Pipeline) assemble(ctx context.Context, tree *prooftree.ProofTree, label Label, facts, distractors []*formula.Formula, hypothesis, negated *formula.Formula, stats types.Stats) ([]*Sample, error) {
	all := append(slices.Clone(facts), distractors...)
	all = append(all, hypothesis)
	intermediates := tree.IntermediateConstants()

	out := make([]*Sample, 0, len(p.translators))
	for v, tr := range p.translators {
		sentences, tstats, err := tr.Translate(ctx, all, intermediates, true)
		if err != nil {
			return nil, classify(err, translate.ErrTranslationImpossible)
		}
		texts := make([]string, len(sentences))
		for i, s := range sentences {
			texts[i] = s.Text
		}
		extra, err := p.sentences.Generate(ctx, texts, p.cfg.Translation.DistractorSize, true)
		if err != nil && !errors.Is(err, translate.ErrTranslationImpossible) {
			return nil, classify(err, translate.ErrTranslationImpossible)
		}

		s := &Sample{
			ID:                     uuid.NewString(),
			Variant:                v,
			Label:                  label,
			Depth:                  tree.Depth(),
			Hypothesis:             hypothesis.Rep(),
			NegatedHypothesis:      negated.Rep(),
			Facts:                  formula.Reps(facts),
			Distractors:            formula.Reps(distractors),
			Proof:                  tree.String(),
			Tree:                   tree,
			Sentences:              sentences,
			TranslationDistractors: extra,
			Stats:                  types.Stats{},
		}
		s.Stats.Merge("", stats)
		s.Stats.Merge("translation.", tstats)
		out = append(out, s)
	}
	return out, nil
}

// classify maps a stage error onto ErrImpossible when it wraps impossible,
// and onto ErrFailure otherwise.
func classify(err, impossible error) error {
	if errors.Is(err, impossible) {
		return fmt.Errorf("%w: %w", ErrImpossible, err)
	}
	return fmt.Errorf("%w: %w", ErrFailure, err)
}
