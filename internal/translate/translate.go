// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package translate defines the capabilities that turn formulas into
// natural-language sentences and supplies sentence-level distractors, plus
// a symbolic reference translator used by the CLI and tests.
package translate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

var (
	// ErrTranslationFailure means a formula could not be translated this time.
	ErrTranslationFailure = errors.New("translation failed")

	// ErrTranslationImpossible means the translator can never serve the request.
	ErrTranslationImpossible = errors.New("translation is impossible")
)

// Sentence is the translation of one formula.
type Sentence struct {
	Formula string `json:"formula" yaml:"formula"`
	Text    string `json:"text" yaml:"text"`
	Name    string `json:"translation_name" yaml:"translation_name"`
}

// Translator turns formulas into sentences. Intermediate constants are
// rendered as indefinite references. With raiseIfNotFound, a formula that
// cannot be translated fails the whole call; otherwise it is skipped and
// counted.
type Translator interface {
	Translate(ctx context.Context, fs []*formula.Formula, intermediateConstants []string, raiseIfNotFound bool) ([]Sentence, types.Stats, error)
}

// Distractor produces sentences that appear in no formula translation.
type Distractor interface {
	Generate(ctx context.Context, sentences []string, size int, bestEffort bool) ([]string, error)
}

// phrasebook is one rendering style.
type phrasebook struct {
	name         string
	pas          string // subject, predicate
	atom         string // predicate
	not          string
	and, or      string
	implies      string // premise, conclusion
	forAll       string // variable, body
	exists       string // variable, body
	intermediate string
	falsum       string
}

var phrasebooks = []phrasebook{
	{
		name:         "plain",
		pas:          "%s is %s",
		atom:         "%s happens",
		not:          "it is not the case that %s",
		and:          " and ",
		or:           " or ",
		implies:      "if %s then %s",
		forAll:       "for every %s, %s",
		exists:       "there is some %s such that %s",
		intermediate: "a certain %s",
		falsum:       "this is a contradiction",
	},
	{
		name:         "formal",
		pas:          "%s satisfies %s",
		atom:         "%s occurs",
		not:          "not (%s)",
		and:          ", and also ",
		or:           ", or else ",
		implies:      "%s implies that %s",
		forAll:       "whatever %s is, %s",
		exists:       "at least one %s is such that %s",
		intermediate: "some %s",
		falsum:       "a contradiction holds",
	},
}

// Symbolic renders formulas with a fixed phrasebook.
type Symbolic struct {
	book phrasebook
}

// NewSymbolic returns the translator for the given variant.
func NewSymbolic(variant int) (*Symbolic, error) {
	if variant < 0 || variant >= len(phrasebooks) {
		return nil, fmt.Errorf("%w: variant %d of %d", ErrTranslationImpossible, variant, len(phrasebooks))
	}
	return &Symbolic{book: phrasebooks[variant]}, nil
}

// Variants is the number of phrasebooks NewSymbolic accepts.
func Variants() int { return len(phrasebooks) }

// Translate implements Translator.
func (s *Symbolic) Translate(ctx context.Context, fs []*formula.Formula, intermediateConstants []string, raiseIfNotFound bool) ([]Sentence, types.Stats, error) {
	stats := types.Stats{}
	out := make([]Sentence, 0, len(fs))
	for _, f := range fs {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		n, err := f.Node()
		if err != nil {
			if raiseIfNotFound {
				return nil, stats, fmt.Errorf("%w: %s: %w", ErrTranslationFailure, f, err)
			}
			stats.Inc("not_found")
			continue
		}
		var sb strings.Builder
		s.render(&sb, n, intermediateConstants)
		text := sb.String()
		out = append(out, Sentence{Formula: f.Rep(), Text: strings.ToUpper(text[:1]) + text[1:] + ".", Name: s.book.name})
		stats.Inc("translated")
	}
	return out, stats, nil
}

func (s *Symbolic) render(sb *strings.Builder, n *formula.Node, intermediates []string) {
	b := s.book
	switch n.Kind {
	case formula.KindPAS:
		pred := word(n.Predicate)
		if n.Argument == "" {
			fmt.Fprintf(sb, b.atom, pred)
			return
		}
		subj := word(n.Argument)
		if slices.Contains(intermediates, n.Argument) {
			subj = fmt.Sprintf(b.intermediate, subj)
		}
		fmt.Fprintf(sb, b.pas, subj, pred)
	case formula.KindContradiction:
		sb.WriteString(b.falsum)
	case formula.KindNot:
		fmt.Fprintf(sb, b.not, s.sub(n.Operands[0], intermediates))
	case formula.KindAnd, formula.KindOr:
		sep := b.and
		if n.Kind == formula.KindOr {
			sep = b.or
		}
		for i, o := range n.Operands {
			if i > 0 {
				sb.WriteString(sep)
			}
			sb.WriteString(s.sub(o, intermediates))
		}
	case formula.KindImplies:
		fmt.Fprintf(sb, b.implies, s.sub(n.Operands[0], intermediates), s.sub(n.Operands[1], intermediates))
	case formula.KindForAll:
		fmt.Fprintf(sb, b.forAll, n.Variable, s.sub(n.Operands[0], intermediates))
	case formula.KindExists:
		fmt.Fprintf(sb, b.exists, n.Variable, s.sub(n.Operands[0], intermediates))
	}
}

func (s *Symbolic) sub(n *formula.Node, intermediates []string) string {
	var sb strings.Builder
	s.render(&sb, n, intermediates)
	return sb.String()
}

// word strips the braces of a symbol.
func word(sym string) string {
	return strings.TrimSuffix(strings.TrimPrefix(sym, "{"), "}")
}

// SentencePool draws distractor sentences from a fixed pool.
type SentencePool struct {
	pool []string
	rng  *rand.Rand
}

// NewSentencePool returns a Distractor over pool.
func NewSentencePool(pool []string, rng *rand.Rand) *SentencePool {
	return &SentencePool{pool: slices.Clone(pool), rng: rng}
}

// Generate implements Distractor.
func (p *SentencePool) Generate(ctx context.Context, sentences []string, size int, bestEffort bool) ([]string, error) {
	if size <= 0 {
		return nil, nil
	}
	if len(p.pool) == 0 {
		return nil, fmt.Errorf("%w: empty sentence pool", ErrTranslationImpossible)
	}
	var cands []string
	for _, s := range p.pool {
		if !slices.Contains(sentences, s) && !slices.Contains(cands, s) {
			cands = append(cands, s)
		}
	}
	p.rng.Shuffle(len(cands), func(a, b int) { cands[a], cands[b] = cands[b], cands[a] })
	if len(cands) > size {
		cands = cands[:size]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(cands) < size && !bestEffort {
		return nil, fmt.Errorf("%w: %d of %d distractor sentences", ErrTranslationFailure, len(cands), size)
	}
	return cands, nil
}
