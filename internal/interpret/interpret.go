// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interpret

import (
	"regexp"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

var (
	symbolPattern = regexp.MustCompile(`\{[A-Za-z][A-Za-z0-9_]*\}`)

	// A parenthesised group without nested parentheses followed directly by
	// an argument, e.g. "({A} v {B}){a}".
	groupArgPattern = regexp.MustCompile(`\(([^()]*)\)(\{[a-z][A-Za-z0-9_]*\}|[x-z]\b)`)

	bareArgPredPattern = regexp.MustCompile(`(\{[A-Z][A-Za-z0-9_]*\})(\{[a-z][A-Za-z0-9_]*\}|[x-z]\b)?`)

	danglingArgPattern = regexp.MustCompile(`\)(\{[a-z]|[x-z]\b)`)
)

// InterpretFormula applies m to f by simultaneous substitution, so symbols
// swapped by m never collide. Groups left in front of an argument are
// expanded, e.g. "({A} v {B}){a}" becomes "{A}{a} v {B}{a}".
func InterpretFormula(f *formula.Formula, m Mapping, elimDoubleNegation bool) *formula.Formula {
	rep := substitute(f.Rep(), m)
	rep = expandOperators(rep)
	out := formula.New(rep)
	if elimDoubleNegation {
		out = formula.EliminateDoubleNegation(out)
	}
	return out
}

// InterpretFormulas applies InterpretFormula to each formula.
func InterpretFormulas(fs []*formula.Formula, m Mapping, elimDoubleNegation bool) []*formula.Formula {
	out := make([]*formula.Formula, len(fs))
	for i, f := range fs {
		out[i] = InterpretFormula(f, m, elimDoubleNegation)
	}
	return out
}

// InterpretArgument applies m to every formula and intermediate constant of a.
// The result keeps a's ID.
func InterpretArgument(a *formula.Argument, m Mapping, elimDoubleNegation bool) *formula.Argument {
	premises := InterpretFormulas(a.Premises, m, elimDoubleNegation)
	conclusion := InterpretFormula(a.Conclusion, m, elimDoubleNegation)
	assumptions := make(map[int]*formula.Formula, len(a.Assumptions))
	for i, as := range a.Assumptions {
		assumptions[i] = InterpretFormula(as, m, elimDoubleNegation)
	}
	var intermediates []string
	for _, c := range a.IntermediateConstants {
		if t, ok := m[c]; ok {
			intermediates = append(intermediates, t)
		} else {
			intermediates = append(intermediates, c)
		}
	}
	return formula.NewArgument(a.ID, premises, conclusion, assumptions, intermediates)
}

func substitute(rep string, m Mapping) string {
	if len(m) == 0 {
		return rep
	}
	return symbolPattern.ReplaceAllStringFunc(rep, func(sym string) string {
		if t, ok := m[sym]; ok {
			return t
		}
		return sym
	})
}

// expandOperators distributes an argument over a preceding group until no
// such group remains.
func expandOperators(rep string) string {
	expanded := false
	for {
		next := groupArgPattern.ReplaceAllStringFunc(rep, func(match string) string {
			sub := groupArgPattern.FindStringSubmatch(match)
			inner, arg := sub[1], sub[2]
			inner = bareArgPredPattern.ReplaceAllStringFunc(inner, func(pas string) string {
				parts := bareArgPredPattern.FindStringSubmatch(pas)
				if parts[2] != "" {
					return pas
				}
				return parts[1] + arg
			})
			return "(" + inner + ")"
		})
		if next == rep {
			break
		}
		rep = next
		expanded = true
	}
	if !expanded && !danglingArgPattern.MatchString(rep) {
		return rep
	}
	// Canonicalise; the parser also handles groups with nested parentheses.
	if n, err := formula.Parse(rep); err == nil {
		return n.String()
	}
	return rep
}
