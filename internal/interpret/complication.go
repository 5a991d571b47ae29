// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package interpret

import (
	"github.com/pdiddy/deduction-engine/internal/formula"
)

// GenerateComplicationMappings enumerates systematic complications of fs:
// every subset of predicates with flipped negation polarity, combined with
// optionally replacing one predicate by a fresh "(P v Q)" or "(P & Q)" built
// from the first two unused predicates. The identity mapping is omitted.
// Applying a complication with InterpretFormula and double-negation
// elimination yields a harder but equally valid variant.
func GenerateComplicationMappings(fs []*formula.Formula, unusedPreds []string) []Mapping {
	preds := formula.UnionPredicates(fs)
	if len(preds) == 0 {
		return nil
	}

	type compound struct {
		pred, expr string
	}
	compounds := []compound{{}}
	if len(unusedPreds) >= 2 {
		p, q := unusedPreds[0], unusedPreds[1]
		for _, pred := range preds {
			compounds = append(compounds,
				compound{pred, "(" + p + " " + formula.Disjunction + " " + q + ")"},
				compound{pred, "(" + p + " " + formula.Conjunction + " " + q + ")"},
			)
		}
	}

	var out []Mapping
	for mask := 0; mask < 1<<len(preds); mask++ {
		for _, c := range compounds {
			if mask == 0 && c.pred == "" {
				continue
			}
			m := Mapping{}
			for i, pred := range preds {
				target := pred
				if c.pred == pred {
					target = c.expr
				}
				if mask&(1<<i) != 0 {
					target = formula.Negation + target
				}
				m[pred] = target
			}
			out = append(out, m)
		}
	}
	return out
}

// ComplicateArgument applies m to a and checks that the result is still a
// well-formed argument.
func ComplicateArgument(a *formula.Argument, m Mapping) (*formula.Argument, bool) {
	out := InterpretArgument(a, m, true)
	for _, f := range out.Formulas() {
		if _, err := f.Node(); err != nil {
			return nil, false
		}
	}
	out.ID = a.ID + ".complicated"
	return out, true
}
