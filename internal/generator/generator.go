// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generator grows proof trees backwards from a hypothesis by
// instantiating deduction rules at the leaves. Every candidate extension is
// applied to a copy of the tree and accepted only if the checker gates pass.
package generator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/deduction-engine/internal/checker"
	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/interpret"
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

var (
	// ErrGenerationFailure means the sampling budget ran out. Retrying may succeed.
	ErrGenerationFailure = errors.New("proof tree generation failed")

	// ErrGenerationImpossible means no configuration of the arguments can
	// satisfy the request. Retrying cannot help.
	ErrGenerationImpossible = errors.New("proof tree generation is impossible")
)

const (
	defaultMaxStepTrials          = 50
	defaultMaxMappingsPerArgument = 5
	defaultMaxBacktracks          = 20
)

// DefaultPredicates and DefaultConstants are the symbol pools used when the
// vocabulary is not configured.
var (
	DefaultPredicates = symbolRange('A', 'Z')
	DefaultConstants  = symbolRange('a', 'u')
)

func symbolRange(from, to byte) []string {
	var out []string
	for c := from; c <= to; c++ {
		out = append(out, "{"+string(c)+"}")
	}
	return out
}

// Generator grows proof trees. It is not safe for concurrent use.
type Generator struct {
	cfg        types.TreeConfig
	arguments  []*formula.Argument
	axioms     []interpret.QuantifierAxiom
	predicates []string
	constants  []string
	check      *checker.Checker
	rng        *rand.Rand
	log        logrus.FieldLogger
	stats      types.Stats

	// target is the depth limit of the running Generate call.
	target int
}

// New validates cfg against the argument library and returns a Generator.
func New(cfg types.TreeConfig, arguments []*formula.Argument, chk *checker.Checker, rng *rand.Rand, log logrus.FieldLogger) (*Generator, error) {
	if cfg.Depth < 0 {
		return nil, fmt.Errorf("%w: negative depth %d", ErrGenerationImpossible, cfg.Depth)
	}
	if cfg.MaxStepTrials <= 0 {
		cfg.MaxStepTrials = defaultMaxStepTrials
	}
	if cfg.MaxMappingsPerArgument <= 0 {
		cfg.MaxMappingsPerArgument = defaultMaxMappingsPerArgument
	}
	if cfg.MaxBacktracks <= 0 {
		cfg.MaxBacktracks = defaultMaxBacktracks
	}
	if cfg.Depth1ReferenceWeight <= 0 {
		cfg.Depth1ReferenceWeight = 1
	}
	axioms, err := parseAxioms(cfg.QuantifierAxioms)
	if err != nil {
		return nil, err
	}
	if len(arguments) == 0 && (cfg.QuantifierAxiomWeight <= 0 || len(axioms) == 0) {
		return nil, fmt.Errorf("%w: no arguments to grow trees with", ErrGenerationImpossible)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	g := &Generator{
		cfg:        cfg,
		arguments:  arguments,
		axioms:     axioms,
		predicates: cfg.Vocabulary.Predicates,
		constants:  cfg.Vocabulary.Constants,
		check:      chk,
		rng:        rng,
		log:        log,
	}
	if len(g.predicates) == 0 {
		g.predicates = DefaultPredicates
	}
	if len(g.constants) == 0 {
		g.constants = DefaultConstants
	}
	return g, nil
}

func parseAxioms(names []string) ([]interpret.QuantifierAxiom, error) {
	if len(names) == 0 {
		return interpret.QuantifierAxioms, nil
	}
	var out []interpret.QuantifierAxiom
	for _, n := range names {
		a := interpret.QuantifierAxiom(n)
		if !slices.Contains(interpret.QuantifierAxioms, a) {
			return nil, fmt.Errorf("%w: unknown quantifier axiom %q", ErrGenerationImpossible, n)
		}
		out = append(out, a)
	}
	return out, nil
}

// Config returns the effective configuration.
func (g *Generator) Config() types.TreeConfig { return g.cfg }

// Checker returns the checker guarding extensions.
func (g *Generator) Checker() *checker.Checker { return g.check }

// Rand returns the generator's random source.
func (g *Generator) Rand() *rand.Rand { return g.rng }

// Arguments returns the argument library.
func (g *Generator) Arguments() []*formula.Argument { return g.arguments }

// Vocabulary returns the predicate and constant pools.
func (g *Generator) Vocabulary() (predicates, constants []string) { return g.predicates, g.constants }

// Stats returns the counters of the last Generate call.
func (g *Generator) Stats() types.Stats { return g.stats }

// Seed returns a tree holding hypothesis as its only node.
func Seed(hypothesis *formula.Formula) *prooftree.ProofTree {
	t := prooftree.New()
	t.AddNode(hypothesis)
	return t
}

// SampleHypothesis instantiates the conclusion of a random library argument
// with random vocabulary symbols.
func (g *Generator) SampleHypothesis() (*formula.Formula, error) {
	if len(g.arguments) == 0 {
		return nil, fmt.Errorf("%w: no argument to sample a hypothesis from", ErrGenerationImpossible)
	}
	for range g.cfg.MaxStepTrials {
		a := g.arguments[g.rng.IntN(len(g.arguments))]
		c := a.Conclusion
		if c.IsContradiction() {
			continue
		}
		seq, err := interpret.GenerateMappings(c.Predicates(), c.Constants(), g.predicates, g.constants,
			interpret.MappingOptions{Shuffle: true, Rand: g.rng})
		if err != nil {
			continue
		}
		for _, m := range interpret.Take(seq, 1) {
			h := interpret.InterpretFormula(c, m, true)
			if len(h.FreeVariables()) == 0 && !g.check.IsNonsense(h) {
				return h, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: could not sample a hypothesis", ErrGenerationFailure)
}

// Request describes one generation call.
type Request struct {
	// Hypothesis roots the tree. Nil samples one.
	Hypothesis *formula.Formula

	// Depth overrides the configured depth when positive.
	Depth int

	// BranchExtensionSteps overrides the configured steps when positive.
	BranchExtensionSteps int

	// BestEffort returns whatever was grown instead of failing short of Depth.
	BestEffort bool
}

// Result is a grown tree together with every snapshot taken when some
// attempt got deeper, including branches abandoned by backtracking,
// shallowest first.
type Result struct {
	Tree   *prooftree.ProofTree
	Trials []*prooftree.ProofTree
}

// Generate grows one tree. A tree short of the requested depth is an
// ErrGenerationFailure unless req.BestEffort is set, in which case the
// deepest tree reached is returned. A depth step that finds no extension
// falls back to the previous snapshot, or re-samples the hypothesis when
// the caller did not fix one.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	g.stats = types.Stats{}
	depth := g.cfg.Depth
	if req.Depth > 0 {
		depth = req.Depth
	}
	g.target = depth
	defer func() { g.target = 0 }()
	branchSteps := g.cfg.BranchExtensionSteps
	if req.BranchExtensionSteps > 0 {
		branchSteps = req.BranchExtensionSteps
	}

	h := req.Hypothesis
	if h == nil {
		var err error
		if h, err = g.SampleHypothesis(); err != nil {
			return nil, err
		}
	}
	if g.check.IsNonsense(h) {
		return nil, fmt.Errorf("%w: nonsense hypothesis %s", ErrGenerationImpossible, h)
	}

	res := &Result{}
	path := []*prooftree.ProofTree{Seed(h)}
	backtracks := 0
	for path[len(path)-1].Depth() < depth {
		tree := path[len(path)-1]
		if err := ctx.Err(); err != nil {
			return g.finish(res, g.fallback(res, tree, req.BestEffort), depth, req.BestEffort, err)
		}
		next, ok := g.extendOnce(ctx, tree, g.deepestLeaves(tree))
		if ok {
			path = append(path, next)
			snap, _ := next.Copy()
			res.Trials = append(res.Trials, snap)
			continue
		}
		g.stats.Inc("depth_extension_failed")
		if backtracks >= g.cfg.MaxBacktracks {
			break
		}
		if len(path) > 1 {
			path = path[:len(path)-1]
		} else if req.Hypothesis == nil {
			fresh, err := g.SampleHypothesis()
			if err != nil || g.check.IsNonsense(fresh) {
				break
			}
			path[0] = Seed(fresh)
			g.stats.Inc("reseeds")
		} else {
			break
		}
		backtracks++
		g.stats.Inc("backtracks")
	}
	tree := path[len(path)-1]
	if tree.Depth() >= depth {
		for range branchSteps {
			if ctx.Err() != nil {
				break
			}
			leaves := g.shallowLeaves(tree)
			if len(leaves) == 0 {
				break
			}
			if next, ok := g.extendOnce(ctx, tree, leaves); ok {
				tree = next
				g.stats.Inc("branch_extensions")
			} else {
				g.stats.Inc("branch_extension_failed")
			}
		}
	}
	return g.finish(res, g.fallback(res, tree, req.BestEffort), depth, req.BestEffort, nil)
}

// fallback swaps tree for the deepest snapshot when a best-effort run
// ended on a shallower branch.
func (g *Generator) fallback(res *Result, tree *prooftree.ProofTree, bestEffort bool) *prooftree.ProofTree {
	if !bestEffort || len(res.Trials) == 0 {
		return tree
	}
	deepest := slices.MaxFunc(res.Trials, func(a, b *prooftree.ProofTree) int {
		return cmp.Compare(a.Depth(), b.Depth())
	})
	if deepest.Depth() > tree.Depth() {
		cp, _ := deepest.Copy()
		return cp
	}
	return tree
}

func (g *Generator) finish(res *Result, tree *prooftree.ProofTree, depth int, bestEffort bool, cause error) (*Result, error) {
	res.Tree = tree
	slices.SortStableFunc(res.Trials, func(a, b *prooftree.ProofTree) int {
		return cmp.Compare(a.Depth(), b.Depth())
	})
	if tree.Depth() > depth {
		return nil, fmt.Errorf("%w: depth %d overshoots %d", ErrGenerationFailure, tree.Depth(), depth)
	}
	if tree.Depth() == depth || (bestEffort && tree.Depth() > 0) {
		if err := tree.Validate(); err != nil {
			return nil, err
		}
		return res, nil
	}
	if cause == nil {
		cause = fmt.Errorf("reached depth %d of %d", tree.Depth(), depth)
	}
	g.log.WithFields(logrus.Fields{
		"hypothesis": mustRoot(tree),
		"depth":      tree.Depth(),
		"target":     depth,
	}).Debug("tree generation fell short")
	return nil, fmt.Errorf("%w: %w", ErrGenerationFailure, cause)
}

// depthLimit is the deepest tree an extension may produce; zero is unbounded.
func (g *Generator) depthLimit() int {
	if g.target > 0 {
		return g.target
	}
	return g.cfg.Depth
}

func mustRoot(t *prooftree.ProofTree) string {
	r, err := t.Root()
	if err != nil {
		return err.Error()
	}
	return r.Formula.Rep()
}

func (g *Generator) deepestLeaves(t *prooftree.ProofTree) []*prooftree.ProofNode {
	d := t.Depth()
	var out []*prooftree.ProofNode
	for _, l := range t.Leaves() {
		if l.Depth() == d {
			out = append(out, l)
		}
	}
	return out
}

func (g *Generator) shallowLeaves(t *prooftree.ProofTree) []*prooftree.ProofNode {
	d := t.Depth()
	var out []*prooftree.ProofNode
	for _, l := range t.Leaves() {
		if l.Depth() < d {
			out = append(out, l)
		}
	}
	return out
}

// pickLeaf draws the index of a leaf, weighting leaves directly under the
// root by Depth1ReferenceWeight.
func (g *Generator) pickLeaf(leaves []*prooftree.ProofNode) int {
	total := 0.0
	weights := make([]float64, len(leaves))
	for i, l := range leaves {
		weights[i] = 1
		if l.Depth() == 1 {
			weights[i] = g.cfg.Depth1ReferenceWeight
		}
		total += weights[i]
	}
	r := g.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(leaves) - 1
}
