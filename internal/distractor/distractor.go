// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package distractor manufactures formulas that look relevant to a proof
// tree but neither shorten its proof nor prove the negated hypothesis.
// Each strategy implements Generator; Mixture and Fallback compose them.
package distractor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/deduction-engine/internal/checker"
	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/generator"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/internal/retry"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

var (
	// ErrDistractorFailure means too few distractors were found. Retrying may succeed.
	ErrDistractorFailure = errors.New("distractor generation failed")

	// ErrDistractorImpossible means the strategy can never produce distractors
	// for this configuration.
	ErrDistractorImpossible = errors.New("distractor generation is impossible")
)

const (
	defaultMaxRetry = 3
	defaultTimeout  = 10 * time.Second
)

// Request describes one distractor generation call.
type Request struct {
	Tree *prooftree.ProofTree

	// Size is the number of distractors wanted.
	Size int

	// Existing distractors count as facts when gating new ones.
	Existing []*formula.Formula

	AllowInconsistency bool
	AllowSmallerProofs bool

	// BestEffort returns what was found instead of failing below Size.
	BestEffort bool
}

// Output is the result of a distractor generation call.
type Output struct {
	Formulas []*formula.Formula
	Stats    types.Stats
}

// Generator is one distractor strategy.
type Generator interface {
	Kind() types.DistractorKind
	Generate(ctx context.Context, req Request) (*Output, error)
}

// Deps are the collaborators shared by all strategies.
type Deps struct {
	Checker *checker.Checker

	// Trees grows auxiliary trees for NegativeTree and supplies the symbol
	// vocabulary.
	Trees *generator.Generator

	Rand *rand.Rand
	Log  logrus.FieldLogger
}

// New builds the strategy described by cfg.
func New(cfg types.DistractorConfig, deps Deps) (Generator, error) {
	if deps.Checker == nil || deps.Trees == nil {
		return nil, fmt.Errorf("%w: checker and tree generator are required", ErrDistractorImpossible)
	}
	if deps.Rand == nil {
		deps.Rand = deps.Trees.Rand()
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	policy := newPolicy(cfg, deps.Log)

	switch cfg.Kind {
	case types.DistractorVariousForm:
		return newVariousForm(cfg, deps, policy), nil
	case types.DistractorSimplifiedFormula:
		return &SimplifiedFormula{deps: deps}, nil
	case types.DistractorNegativeTree:
		nt, err := newNegativeTree(cfg, deps, policy)
		if err != nil {
			return nil, err
		}
		return nt, nil
	case types.DistractorMixture, types.DistractorFallback:
		children, err := newChildren(cfg.Children, deps)
		if err != nil {
			return nil, err
		}
		if cfg.Kind == types.DistractorMixture {
			reps := cfg.MaxRepetitions
			if reps <= 0 {
				reps = 3 * len(children)
			}
			return &Mixture{children: children, maxRepetitions: reps, deps: deps}, nil
		}
		return &Fallback{children: children, deps: deps}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrDistractorImpossible, cfg.Kind)
}

// newPolicy converts an attempt count into a retry policy.
func newPolicy(cfg types.DistractorConfig, log logrus.FieldLogger) retry.Policy {
	attempts := cfg.MaxRetry
	if attempts <= 0 {
		attempts = defaultMaxRetry
	}
	p := retry.Policy{MaxRetries: attempts - 1, Timeout: cfg.Timeout, Log: log}
	if p.MaxRetries == 0 {
		p.MaxRetries = -1
	}
	if p.Timeout == 0 {
		p.Timeout = defaultTimeout
	}
	return p
}

func newChildren(cfgs []types.DistractorConfig, deps Deps) ([]Generator, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: composite strategy without children", ErrDistractorImpossible)
	}
	out := make([]Generator, 0, len(cfgs))
	for _, c := range cfgs {
		g, err := New(c, deps)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// attemptFunc runs one bounded attempt and returns what it found.
type attemptFunc func(ctx context.Context, stats *types.Stats) ([]*formula.Formula, error)

// runHarness retries fn under policy, keeping the most numerous attempt.
func runHarness(ctx context.Context, policy retry.Policy, req Request, fn attemptFunc) (*Output, error) {
	stats := types.Stats{}
	if req.Size <= 0 {
		return &Output{Stats: stats}, nil
	}
	var best []*formula.Formula
	_, err := retry.Do(ctx, policy, func(actx context.Context) retry.Result[[]*formula.Formula] {
		stats.Inc("attempts")
		out, err := fn(actx, &stats)
		if len(out) > len(best) {
			best = out
		}
		if errors.Is(err, ErrDistractorImpossible) {
			return retry.Fail[[]*formula.Formula](err)
		}
		if len(out) >= req.Size {
			return retry.Ok(out)
		}
		if err == nil {
			err = fmt.Errorf("%w: found %d of %d", ErrDistractorFailure, len(out), req.Size)
		}
		return retry.Again(out, err)
	})
	if len(best) > req.Size {
		best = best[:req.Size]
	}
	switch {
	case err == nil:
		return &Output{Formulas: best, Stats: stats}, nil
	case errors.Is(err, ErrDistractorImpossible):
		return nil, err
	case req.BestEffort:
		return &Output{Formulas: best, Stats: stats}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrDistractorFailure, err)
}
