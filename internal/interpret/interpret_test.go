// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interpret

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

func collect(t *testing.T, srcP, srcC, tgtP, tgtC []string, opts MappingOptions) []Mapping {
	t.Helper()
	seq, err := GenerateMappings(srcP, srcC, tgtP, tgtC, opts)
	require.NoError(t, err)
	return Take(seq, 1<<20)
}

func TestGenerateMappings_Injective(t *testing.T) {
	ms := collect(t, []string{"{A}", "{B}"}, []string{"{a}"}, []string{"{C}", "{D}", "{E}"}, []string{"{c}", "{d}"}, MappingOptions{})
	// 3P2 predicate permutations times 2 constant choices.
	assert.Len(t, ms, 12)
	for _, m := range ms {
		assert.NotEqual(t, m["{A}"], m["{B}"], "repeated target in %s", m)
	}
}

func TestGenerateMappings_ManyToOne(t *testing.T) {
	ms := collect(t, []string{"{A}", "{B}"}, nil, []string{"{C}", "{D}"}, nil, MappingOptions{AllowManyToOne: true})
	assert.Len(t, ms, 4)
}

func TestGenerateMappings_Constraints(t *testing.T) {
	ms := collect(t, []string{"{A}", "{B}"}, nil, []string{"{C}", "{D}", "{E}"}, nil,
		MappingOptions{Constraints: Mapping{"{A}": "{D}"}})
	require.Len(t, ms, 2)
	for _, m := range ms {
		assert.Equal(t, "{D}", m["{A}"])
		assert.NotEqual(t, "{D}", m["{B}"])
	}
}

func TestGenerateMappings_ShuffleIsLazyAndComplete(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	ms := collect(t, []string{"{A}", "{B}", "{C}"}, nil, []string{"{D}", "{E}", "{F}", "{G}"}, nil,
		MappingOptions{Shuffle: true, Rand: r})
	assert.Len(t, ms, 24)
	seen := map[string]bool{}
	for _, m := range ms {
		seen[m.String()] = true
	}
	assert.Len(t, seen, 24)

	seq, err := GenerateMappings([]string{"{A}"}, nil, []string{"{B}", "{C}"}, nil, MappingOptions{Shuffle: true, Rand: r})
	require.NoError(t, err)
	assert.Len(t, Take(seq, 1), 1)
}

func TestGenerateMappings_EmptyAndImpossible(t *testing.T) {
	ms := collect(t, nil, nil, nil, nil, MappingOptions{})
	require.Len(t, ms, 1)
	assert.Empty(t, ms[0])

	_, err := GenerateMappings([]string{"{A}"}, nil, nil, nil, MappingOptions{})
	assert.ErrorIs(t, err, ErrNoMapping)
	_, err = GenerateMappings([]string{"{A}", "{B}"}, nil, []string{"{C}"}, nil, MappingOptions{})
	assert.ErrorIs(t, err, ErrNoMapping)
}

func TestInterpretFormula_Simultaneous(t *testing.T) {
	f := formula.New("{A}{a} -> {B}{b}")
	got := InterpretFormula(f, Mapping{"{A}": "{B}", "{B}": "{A}", "{a}": "{b}", "{b}": "{a}"}, false)
	assert.Equal(t, "{B}{b} -> {A}{a}", got.Rep())
}

func TestInterpretFormula_ExpandOperator(t *testing.T) {
	f := formula.New("(x): {A}x -> {B}x")
	got := InterpretFormula(f, Mapping{"{A}": "({C} v ¬{D})"}, false)
	assert.Equal(t, "(x): ({C}x v ¬{D}x) -> {B}x", got.Rep())

	got = InterpretFormula(formula.New("¬{A}{a}"), Mapping{"{A}": "¬{C}"}, true)
	assert.Equal(t, "{C}{a}", got.Rep())
}

func TestInterpretArgument_Identity(t *testing.T) {
	for _, a := range formula.DefaultArguments() {
		m := Identity(a.Predicates(), a.Constants())
		got := InterpretArgument(a, m, false)
		assert.Equal(t, formula.Reps(a.Premises), formula.Reps(got.Premises), a.ID)
		assert.Equal(t, a.Conclusion.Rep(), got.Conclusion.Rep(), a.ID)
		assert.Equal(t, a.String(), got.String(), a.ID)
	}
}

func TestGenerateComplicationMappings(t *testing.T) {
	fs := formula.NewAll("{A}{a}", "{A}{a} -> {B}{a}")
	ms := GenerateComplicationMappings(fs, []string{"{X}", "{Y}"})
	// 4 polarity subsets times (1 + 2 predicates * 2 operators) minus identity.
	assert.Len(t, ms, 4*5-1)

	got := InterpretFormula(fs[0], Mapping{"{A}": "¬({X} & {Y})", "{B}": "{B}"}, true)
	assert.Equal(t, "¬({X}{a} & {Y}{a})", got.Rep())
}

func TestGenerateSimplifiedFormulas(t *testing.T) {
	got := formula.Reps(GenerateSimplifiedFormulas(formula.New("¬{A}{a} & {B}{a}"), true))
	assert.ElementsMatch(t, []string{"¬{A}{a}", "{B}{a}", "{A}{a} & {B}{a}"}, got)

	got = formula.Reps(GenerateSimplifiedFormulas(formula.New("(x): {A}x -> {B}"), true))
	assert.ElementsMatch(t, []string{"(x): {A}x", "{B}"}, got)
}

func TestGenerateQuantifierAxiomArguments(t *testing.T) {
	f := formula.New("{A}{a} -> {B}{a}")

	args, err := GenerateQuantifierAxiomArguments(UniversalElim, f, "q", true, nil)
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, "(x): {A}x -> {B}x", args[0].Premises[0].Rep())
	assert.Equal(t, f.Rep(), args[0].Conclusion.Rep())

	args, err = GenerateQuantifierAxiomArguments(ExistentialIntro, formula.New("{A}{a} & {B}{b}"), "q", false, nil)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "(Ex): {A}x & {B}{b}", args[0].Conclusion.Rep())

	args, err = GenerateQuantifierAxiomArguments(UniversalIntro, formula.New("{A}{a}"), "q", false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"{a}"}, args[0].IntermediateConstants)

	args, err = GenerateQuantifierAxiomArguments(ExistentialElim, formula.New("{A}{a}"), "q", false, formula.New("{C}{c}"))
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, []string{"(Ex): {A}x", "{A}{a} -> {C}{c}"}, formula.Reps(args[0].Premises))
	assert.Equal(t, "{C}{c}", args[0].Conclusion.Rep())

	_, err = GenerateQuantifierAxiomArguments(ExistentialElim, formula.New("{A}{a}"), "q", false, formula.New("{A}{c}"))
	assert.ErrorIs(t, err, ErrEntangledPrototype)
}

func TestFormulaIsIdenticalTo(t *testing.T) {
	assert.True(t, FormulaIsIdenticalTo(formula.New("{A}{a} -> {B}{a}"), formula.New("{C}{c} -> {D}{c}")))
	assert.False(t, FormulaIsIdenticalTo(formula.New("{A}{a} -> {B}{a}"), formula.New("{C}{c} -> {C}{c}")))
	assert.False(t, FormulaIsIdenticalTo(formula.New("{A}{a} & {B}{a}"), formula.New("{A}{a} v {B}{a}")))
	assert.False(t, FormulaIsIdenticalTo(formula.New("{A}{a}"), formula.New("¬{A}{a}")))
}

func TestArgumentIsIdenticalTo(t *testing.T) {
	a := formula.NewArgument("a", formula.NewAll("{A}", "{A} -> {B}"), formula.New("{B}"), nil, nil)
	b := formula.NewArgument("b", formula.NewAll("{C}", "{C} -> {D}"), formula.New("{D}"), nil, nil)
	c := formula.NewArgument("c", formula.NewAll("{C}", "{D} -> {C}"), formula.New("{D}"), nil, nil)
	assert.True(t, ArgumentIsIdenticalTo(a, b))
	assert.False(t, ArgumentIsIdenticalTo(a, c))
}

func TestUnifyConclusion(t *testing.T) {
	var mp *formula.Argument
	for _, a := range formula.DefaultArguments() {
		if a.ID == "mp.unary" {
			mp = a
		}
	}
	require.NotNil(t, mp)
	m, ok := UnifyConclusion(mp, formula.New("{C}{c}"))
	require.True(t, ok)
	assert.Equal(t, "{C}", m["{B}"])
	assert.Equal(t, "{c}", m["{a}"])

	_, ok = UnifyConclusion(mp, formula.New("{C}"))
	assert.False(t, ok)
}
