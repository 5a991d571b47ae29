// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package formula defines the formula and argument model for the deduction
// engine: a string-backed Formula over a small first-order grammar, its
// lazily computed symbol projections, and named deduction rules (Arguments).
package formula

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Grammar symbols.
const (
	Contradiction = "#F#"
	Implication   = "->"
	Conjunction   = "&"
	Disjunction   = "v"
	Negation      = "¬"
)

var (
	// ErrContradictionNegation is returned when negating the contradiction symbol.
	ErrContradictionNegation = errors.New("contradiction cannot be negated")

	// ErrMalformedPAS is returned when a PAS holds more than one predicate.
	ErrMalformedPAS = errors.New("malformed predicate-argument structure")
)

// Formula is an immutable wrapper over a formula string. Only the translation
// fields may be set after construction, and only by a translator.
type Formula struct {
	rep string

	once sync.Once
	syms symbols

	// Translation is the natural-language rendering assigned by a translator.
	Translation string

	// TranslationName identifies the template that produced Translation.
	TranslationName string
}

type symbols struct {
	predicates []string
	constants  []string
	variables  []string
	quantified []string
	pass       []string
}

// New wraps rep. No validation is performed.
func New(rep string) *Formula {
	return &Formula{rep: strings.TrimSpace(rep)}
}

// NewAll wraps each string in reps.
func NewAll(reps ...string) []*Formula {
	out := make([]*Formula, len(reps))
	for i, r := range reps {
		out[i] = New(r)
	}
	return out
}

// FromNode renders n into a Formula.
func FromNode(n *Node) *Formula { return New(n.String()) }

// Rep returns the underlying string.
func (f *Formula) Rep() string { return f.rep }

func (f *Formula) String() string { return f.rep }

// Node parses the formula.
func (f *Formula) Node() (*Node, error) { return Parse(f.rep) }

// IsContradiction reports whether f is the contradiction symbol.
func (f *Formula) IsContradiction() bool { return f.rep == Contradiction }

// Predicates returns the sorted, deduplicated predicate symbols.
func (f *Formula) Predicates() []string { return f.symbols().predicates }

// Constants returns the sorted, deduplicated constant symbols.
func (f *Formula) Constants() []string { return f.symbols().constants }

// Variables returns the sorted, deduplicated variables, bound or free.
func (f *Formula) Variables() []string { return f.symbols().variables }

// QuantifiedVariables returns the variables bound by a quantifier prefix.
func (f *Formula) QuantifiedVariables() []string { return f.symbols().quantified }

// FreeVariables returns the variables not bound by any quantifier.
func (f *Formula) FreeVariables() []string {
	bound := make(map[string]bool)
	for _, v := range f.QuantifiedVariables() {
		bound[v] = true
	}
	var free []string
	for _, v := range f.Variables() {
		if !bound[v] {
			free = append(free, v)
		}
	}
	return free
}

// PASs returns the sorted, deduplicated predicate-argument structures.
func (f *Formula) PASs() []string { return f.symbols().pass }

func (f *Formula) symbols() *symbols {
	f.once.Do(func() {
		f.syms = extractSymbols(f.rep)
	})
	return &f.syms
}

func extractSymbols(rep string) symbols {
	toks, _ := lex(rep)
	preds := map[string]bool{}
	consts := map[string]bool{}
	vars := map[string]bool{}
	quant := map[string]bool{}
	pass := map[string]bool{}
	for i, t := range toks {
		switch t.kind {
		case tokPredicate:
			preds[t.text] = true
			if i+1 < len(toks) && (toks[i+1].kind == tokConstant || toks[i+1].kind == tokVariable) {
				pass[t.text+toks[i+1].text] = true
			} else {
				pass[t.text] = true
			}
		case tokConstant:
			consts[t.text] = true
		case tokVariable:
			vars[t.text] = true
		case tokForAll, tokExists:
			vars[t.text] = true
			quant[t.text] = true
		}
	}
	return symbols{
		predicates: sortedKeys(preds),
		constants:  sortedKeys(consts),
		variables:  sortedKeys(vars),
		quantified: sortedKeys(quant),
		pass:       sortedKeys(pass),
	}
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SplitPAS splits a PAS into its predicate and argument (possibly empty).
func SplitPAS(pas string) (pred, arg string, err error) {
	toks, lexErr := lex(pas)
	if lexErr != nil {
		return "", "", fmt.Errorf("%w: %q: %v", ErrMalformedPAS, pas, lexErr)
	}
	npred := 0
	for _, t := range toks {
		switch t.kind {
		case tokPredicate:
			npred++
			pred = t.text
		case tokConstant, tokVariable:
			arg = t.text
		default:
			return "", "", fmt.Errorf("%w: %q", ErrMalformedPAS, pas)
		}
	}
	if npred != 1 {
		return "", "", fmt.Errorf("%w: %q has %d predicates", ErrMalformedPAS, pas, npred)
	}
	return pred, arg, nil
}

// Premise returns the left side of the top-level implication, split at its
// last occurrence, after stripping any quantifier prefix.
func (f *Formula) Premise() (*Formula, bool) {
	left, _, ok := splitImplication(f.rep)
	if !ok {
		return nil, false
	}
	return New(left), true
}

// Conclusion returns the right side of the top-level implication.
func (f *Formula) Conclusion() (*Formula, bool) {
	_, right, ok := splitImplication(f.rep)
	if !ok {
		return nil, false
	}
	return New(right), true
}

// StripQuantifierPrefix removes leading "(x): " and "(Ex): " prefixes.
func StripQuantifierPrefix(rep string) string {
	for {
		_, _, n := quantifierAt(rep, 0)
		if n == 0 {
			return rep
		}
		rep = strings.TrimSpace(rep[n:])
	}
}

func splitImplication(rep string) (string, string, bool) {
	body := StripQuantifierPrefix(rep)
	depth := 0
	last := -1
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '-':
			if depth == 0 && hasPrefixAt(body, i, Implication) {
				last = i
			}
		}
	}
	if last < 0 {
		return "", "", false
	}
	return unwrapParens(strings.TrimSpace(body[:last])), unwrapParens(strings.TrimSpace(body[last+len(Implication):])), true
}

// HasImplication reports whether f has a top-level implication.
func (f *Formula) HasImplication() bool {
	_, _, ok := splitImplication(f.rep)
	return ok
}

// unwrapParens removes one pair of parentheses enclosing all of s.
func unwrapParens(s string) string {
	if isWhollyParenthesized(s) {
		return s[1 : len(s)-1]
	}
	return s
}

func isWhollyParenthesized(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	if _, _, n := quantifierAt(s, 0); n > 0 {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return true
}

// RequiresOuterBrace reports whether rep must be parenthesized when used as
// the operand of a negation: a single PAS, a negation or an already
// parenthesized formula does not.
func RequiresOuterBrace(rep string) bool {
	if isWhollyParenthesized(rep) {
		return false
	}
	n, err := Parse(rep)
	if err != nil {
		return true
	}
	switch n.Kind {
	case KindPAS, KindNot, KindContradiction:
		return false
	}
	return true
}

// Negate prepends a negation to f.
func Negate(f *Formula) (*Formula, error) {
	if f.IsContradiction() {
		return nil, ErrContradictionNegation
	}
	if RequiresOuterBrace(f.rep) {
		return New(Negation + "(" + f.rep + ")"), nil
	}
	return New(Negation + f.rep), nil
}

// EliminateDoubleNegation removes every pair of directly nested negations.
// Formulas that do not parse or contain no such pair are returned as is.
func EliminateDoubleNegation(f *Formula) *Formula {
	if !strings.Contains(f.rep, Negation) {
		return f
	}
	n, err := Parse(f.rep)
	if err != nil {
		return f
	}
	changed := false
	out := stripDoubleNegation(n, &changed)
	if !changed {
		return f
	}
	return FromNode(out)
}

func stripDoubleNegation(n *Node, changed *bool) *Node {
	for n.Kind == KindNot && n.Operands[0].Kind == KindNot {
		n = n.Operands[0].Operands[0]
		*changed = true
	}
	if len(n.Operands) == 0 {
		return n
	}
	c := *n
	c.Operands = make([]*Node, len(n.Operands))
	for i, o := range n.Operands {
		c.Operands[i] = stripDoubleNegation(o, changed)
	}
	return &c
}

// Reps returns the string of each formula.
func Reps(fs []*Formula) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.rep
	}
	return out
}

// Contains reports whether fs holds a formula with the same string as f.
func Contains(fs []*Formula, f *Formula) bool {
	for _, g := range fs {
		if g.rep == f.rep {
			return true
		}
	}
	return false
}

// Dedup removes formulas with duplicate strings, keeping the first.
func Dedup(fs []*Formula) []*Formula {
	seen := make(map[string]bool, len(fs))
	out := make([]*Formula, 0, len(fs))
	for _, f := range fs {
		if seen[f.rep] {
			continue
		}
		seen[f.rep] = true
		out = append(out, f)
	}
	return out
}

// Copy returns a fresh Formula with the same string and translation fields.
func (f *Formula) Copy() *Formula {
	c := New(f.rep)
	c.Translation = f.Translation
	c.TranslationName = f.TranslationName
	return c
}
