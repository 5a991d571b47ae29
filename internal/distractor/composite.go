// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distractor

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// Mixture runs randomly chosen children until enough distractors are found
// or the repetitions run out. Children that report ErrDistractorImpossible
// are dropped.
type Mixture struct {
	children       []Generator
	maxRepetitions int
	deps           Deps
}

// Kind implements Generator.
func (m *Mixture) Kind() types.DistractorKind { return types.DistractorMixture }

// Generate implements Generator.
func (m *Mixture) Generate(ctx context.Context, req Request) (*Output, error) {
	stats := types.Stats{}
	var out []*formula.Formula
	alive := slices.Clone(m.children)
	for rep := 0; rep < m.maxRepetitions && len(out) < req.Size && len(alive) > 0; rep++ {
		if ctx.Err() != nil {
			break
		}
		i := m.deps.Rand.IntN(len(alive))
		found, err := runChild(ctx, alive[i], req, out, &stats, m.deps.Log)
		if errors.Is(err, ErrDistractorImpossible) {
			alive = slices.Delete(alive, i, i+1)
			continue
		}
		out = append(out, found...)
	}
	return finishComposite(req, out, stats, len(alive) == 0)
}

// Fallback runs its children in order, each asked for what is still
// missing, and returns their union.
type Fallback struct {
	children []Generator
	deps     Deps
}

// Kind implements Generator.
func (f *Fallback) Kind() types.DistractorKind { return types.DistractorFallback }

// Generate implements Generator.
func (f *Fallback) Generate(ctx context.Context, req Request) (*Output, error) {
	stats := types.Stats{}
	var out []*formula.Formula
	impossible := 0
	for _, c := range f.children {
		if len(out) >= req.Size || ctx.Err() != nil {
			break
		}
		found, err := runChild(ctx, c, req, out, &stats, f.deps.Log)
		if errors.Is(err, ErrDistractorImpossible) {
			impossible++
		}
		out = append(out, found...)
	}
	return finishComposite(req, out, stats, impossible == len(f.children))
}

// runChild asks c for the distractors still missing, treating everything
// found so far as existing.
func runChild(ctx context.Context, c Generator, req Request, found []*formula.Formula, stats *types.Stats, log logrus.FieldLogger) ([]*formula.Formula, error) {
	sub := req
	sub.Size = req.Size - len(found)
	sub.Existing = append(slices.Clone(req.Existing), found...)
	sub.BestEffort = true

	kind := string(c.Kind())
	res, err := c.Generate(ctx, sub)
	if err != nil {
		stats.Inc("child_failed." + kind)
		log.WithField("kind", kind).WithError(err).Debug("distractor child failed")
		return nil, err
	}
	stats.Merge(kind+".", res.Stats)
	return res.Formulas, nil
}

func finishComposite(req Request, out []*formula.Formula, stats types.Stats, allImpossible bool) (*Output, error) {
	if len(out) > req.Size {
		out = out[:req.Size]
	}
	switch {
	case len(out) >= req.Size, req.BestEffort && len(out) > 0:
		return &Output{Formulas: out, Stats: stats}, nil
	case allImpossible:
		return nil, fmt.Errorf("%w: every child is impossible", ErrDistractorImpossible)
	case req.BestEffort:
		return &Output{Stats: stats}, nil
	}
	return nil, fmt.Errorf("%w: found %d of %d", ErrDistractorFailure, len(out), req.Size)
}
