// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interpret

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

// QuantifierAxiom names one of the four quantifier rule shapes.
type QuantifierAxiom string

const (
	UniversalIntro   QuantifierAxiom = "universal_quantifier_intro"
	UniversalElim    QuantifierAxiom = "universal_quantifier_elim"
	ExistentialIntro QuantifierAxiom = "existential_quantifier_intro"
	ExistentialElim  QuantifierAxiom = "existential_quantifier_elim"
)

// QuantifierAxioms lists every shape.
var QuantifierAxioms = []QuantifierAxiom{UniversalIntro, UniversalElim, ExistentialIntro, ExistentialElim}

// ErrEntangledPrototype is returned when the existential-elimination
// conclusion prototype shares symbols with the quantified formula.
var ErrEntangledPrototype = errors.New("conclusion prototype shares symbols with the quantified formula")

// FreshVariable returns the first of x, y, z not used by f.
func FreshVariable(f *formula.Formula) (string, bool) {
	used := map[string]bool{}
	for _, v := range f.Variables() {
		used[v] = true
	}
	for _, v := range []string{"x", "y", "z"} {
		if !used[v] {
			return v, true
		}
	}
	return "", false
}

// GenerateQuantifierMappings returns constant-to-variable mappings for f:
// one per constant, or, when quantifyAllAtOnce is set, a single mapping over
// all constants (restricted to constants shared by premise and conclusion
// when f is an implication).
func GenerateQuantifierMappings(f *formula.Formula, variable string, quantifyAllAtOnce bool) []Mapping {
	consts := f.Constants()
	if len(consts) == 0 {
		return nil
	}
	if !quantifyAllAtOnce {
		out := make([]Mapping, len(consts))
		for i, c := range consts {
			out[i] = Mapping{c: variable}
		}
		return out
	}
	if p, ok := f.Premise(); ok {
		c, _ := f.Conclusion()
		shared := intersect(p.Constants(), c.Constants())
		if len(shared) > 0 {
			consts = shared
		}
	}
	m := Mapping{}
	for _, c := range consts {
		m[c] = variable
	}
	return []Mapping{m}
}

func intersect(a, b []string) []string {
	in := map[string]bool{}
	for _, s := range b {
		in[s] = true
	}
	var out []string
	for _, s := range a {
		if in[s] {
			out = append(out, s)
		}
	}
	return out
}

// Quantify prefixes the interpretation of f under m with a quantifier.
func Quantify(f *formula.Formula, m Mapping, variable string, existential bool) *formula.Formula {
	body := InterpretFormula(f, m, false).Rep()
	prefix := "(" + variable + "): "
	if existential {
		prefix = "(E" + variable + "): "
	}
	return formula.New(prefix + body)
}

// GenerateQuantifierAxiomArguments builds the arguments of the given shape
// that introduce or eliminate one quantifier over the constants of f:
//
//	universal intro:    f[c]                       |- (x): f[x]   (c intermediate)
//	universal elim:     (x): f[x]                  |- f[c]
//	existential intro:  f[c]                       |- (Ex): f[x]
//	existential elim:   (Ex): f[x], f[c] -> proto  |- proto       (c intermediate)
//
// proto is only used by existential elimination and must not share any
// symbol with f.
func GenerateQuantifierAxiomArguments(axiom QuantifierAxiom, f *formula.Formula, idPrefix string, quantifyAllAtOnce bool, proto *formula.Formula) ([]*formula.Argument, error) {
	variable, ok := FreshVariable(f)
	if !ok {
		return nil, nil
	}
	if axiom == ExistentialElim {
		if proto == nil {
			return nil, fmt.Errorf("%s needs a conclusion prototype", axiom)
		}
		if len(intersect(f.Predicates(), proto.Predicates())) > 0 || len(intersect(f.Constants(), proto.Constants())) > 0 {
			return nil, fmt.Errorf("%w: %s / %s", ErrEntangledPrototype, f, proto)
		}
	}

	var out []*formula.Argument
	for _, m := range GenerateQuantifierMappings(f, variable, quantifyAllAtOnce) {
		consts := mappedConstants(m)
		id := idPrefix + "." + string(axiom) + "." + strings.Join(trimBraces(consts), "")
		switch axiom {
		case UniversalIntro:
			out = append(out, formula.NewArgument(id,
				[]*formula.Formula{f}, Quantify(f, m, variable, false), nil, consts))
		case UniversalElim:
			out = append(out, formula.NewArgument(id,
				[]*formula.Formula{Quantify(f, m, variable, false)}, f, nil, nil))
		case ExistentialIntro:
			out = append(out, formula.NewArgument(id,
				[]*formula.Formula{f}, Quantify(f, m, variable, true), nil, nil))
		case ExistentialElim:
			link := formula.New(wrap(f.Rep()) + " " + formula.Implication + " " + wrap(proto.Rep()))
			out = append(out, formula.NewArgument(id,
				[]*formula.Formula{Quantify(f, m, variable, true), link}, proto, nil, consts))
		default:
			return nil, fmt.Errorf("unknown quantifier axiom %q", axiom)
		}
	}
	return out, nil
}

func mappedConstants(m Mapping) []string {
	var out []string
	for c := range m {
		out = append(out, c)
	}
	sortStrings(out)
	return out
}

func trimBraces(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.Trim(s, "{}")
	}
	return out
}

// wrap parenthesises compound formulas used as an implication operand.
func wrap(rep string) string {
	n, err := formula.Parse(rep)
	if err != nil || !n.IsCompound() {
		return rep
	}
	return "(" + rep + ")"
}
