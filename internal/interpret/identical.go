// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interpret

import (
	"strings"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

// maxUnifyCandidates bounds the mapping search of FindMapping.
const maxUnifyCandidates = 5000

// FindMapping searches for a mapping of the symbols of srcs onto the symbols
// of tgts such that interpreting srcs yields tgts exactly, position by
// position. Cheap shape checks reject most pairs before any search.
func FindMapping(srcs, tgts []*formula.Formula, allowManyToOne bool) (Mapping, bool) {
	if len(srcs) != len(tgts) {
		return nil, false
	}
	for i := range srcs {
		if !sameShape(srcs[i], tgts[i], allowManyToOne) {
			return nil, false
		}
	}
	srcPreds, srcConsts := formula.UnionPredicates(srcs), formula.UnionConstants(srcs)
	tgtPreds, tgtConsts := formula.UnionPredicates(tgts), formula.UnionConstants(tgts)
	if len(srcPreds)+len(srcConsts) == 0 {
		for i := range srcs {
			if srcs[i].Rep() != tgts[i].Rep() {
				return nil, false
			}
		}
		return Mapping{}, true
	}
	seq, err := GenerateMappings(srcPreds, srcConsts, tgtPreds, tgtConsts, MappingOptions{AllowManyToOne: allowManyToOne})
	if err != nil {
		return nil, false
	}
	tried := 0
	for m := range seq {
		if matchesAll(srcs, tgts, m) {
			return m, true
		}
		tried++
		if tried >= maxUnifyCandidates {
			break
		}
	}
	return nil, false
}

func matchesAll(srcs, tgts []*formula.Formula, m Mapping) bool {
	for i := range srcs {
		if InterpretFormula(srcs[i], m, false).Rep() != tgts[i].Rep() {
			return false
		}
	}
	return true
}

// sameShape compares operator counts and, unless many-to-one mappings are
// allowed, symbol-type counts.
func sameShape(a, b *formula.Formula, allowManyToOne bool) bool {
	if !allowManyToOne {
		if len(a.Predicates()) != len(b.Predicates()) || len(a.Constants()) != len(b.Constants()) {
			return false
		}
	} else if len(a.Predicates()) < len(b.Predicates()) || len(a.Constants()) < len(b.Constants()) {
		return false
	}
	if len(a.Variables()) != len(b.Variables()) {
		return false
	}
	for _, op := range []string{formula.Negation, formula.Conjunction, formula.Implication, " " + formula.Disjunction + " ", "(E", "#F#"} {
		if strings.Count(a.Rep(), op) != strings.Count(b.Rep(), op) {
			return false
		}
	}
	return true
}

// FormulaIsIdenticalTo reports whether a equals b up to an injective renaming
// of predicates and constants.
func FormulaIsIdenticalTo(a, b *formula.Formula) bool {
	if a.Rep() == b.Rep() {
		return true
	}
	_, ok := FindMapping([]*formula.Formula{a}, []*formula.Formula{b}, false)
	return ok
}

// ArgumentIsIdenticalTo reports whether a equals b up to an injective
// renaming applied consistently to premises, conclusion and assumptions.
func ArgumentIsIdenticalTo(a, b *formula.Argument) bool {
	if len(a.Premises) != len(b.Premises) || len(a.Assumptions) != len(b.Assumptions) ||
		len(a.IntermediateConstants) != len(b.IntermediateConstants) {
		return false
	}
	for i := range a.Assumptions {
		if _, ok := b.Assumptions[i]; !ok {
			return false
		}
	}
	m, ok := FindMapping(a.Formulas(), b.Formulas(), false)
	if !ok {
		return false
	}
	for i, c := range a.IntermediateConstants {
		if m[c] != b.IntermediateConstants[i] {
			return false
		}
	}
	return true
}

// UnifyConclusion finds a mapping that turns a's conclusion into target.
// Symbols of a that do not occur in its conclusion stay unmapped.
func UnifyConclusion(a *formula.Argument, target *formula.Formula) (Mapping, bool) {
	return FindMapping([]*formula.Formula{a.Conclusion}, []*formula.Formula{target}, true)
}
