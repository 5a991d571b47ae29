// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package formula

import (
	"fmt"
	"strings"
)

// Kind identifies the syntactic category of a Node.
type Kind int

const (
	KindPAS Kind = iota
	KindNot
	KindAnd
	KindOr
	KindImplies
	KindForAll
	KindExists
	KindContradiction
)

// Node is a parsed formula. And/Or nodes hold two or more operands,
// Implies exactly two, Not and the quantifiers exactly one.
type Node struct {
	Kind      Kind
	Predicate string
	Argument  string
	Variable  string
	Operands  []*Node
}

// PAS builds a predicate-argument-structure node. arg may be empty.
func PAS(pred, arg string) *Node { return &Node{Kind: KindPAS, Predicate: pred, Argument: arg} }

// NotNode negates n.
func NotNode(n *Node) *Node { return &Node{Kind: KindNot, Operands: []*Node{n}} }

// AndNode conjoins the operands.
func AndNode(ops ...*Node) *Node { return &Node{Kind: KindAnd, Operands: ops} }

// OrNode disjoins the operands.
func OrNode(ops ...*Node) *Node { return &Node{Kind: KindOr, Operands: ops} }

// ImpliesNode builds premise -> conclusion.
func ImpliesNode(premise, conclusion *Node) *Node {
	return &Node{Kind: KindImplies, Operands: []*Node{premise, conclusion}}
}

// Parse parses rep into a Node.
func Parse(rep string) (*Node, error) {
	toks, err := lex(rep)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty formula")
	}
	p := &parser{toks: toks, rep: rep}
	n, err := p.formula()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q after position %d in %q", p.toks[p.pos].text, p.pos, rep)
	}
	return n, nil
}

// MustParse is like Parse but panics on error. Intended for literals.
func MustParse(rep string) *Node {
	n, err := Parse(rep)
	if err != nil {
		panic(err)
	}
	return n
}

type parser struct {
	toks []token
	pos  int
	rep  string
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) formula() (*Node, error) {
	if t, ok := p.peek(); ok && (t.kind == tokForAll || t.kind == tokExists) {
		p.pos++
		body, err := p.formula()
		if err != nil {
			return nil, err
		}
		kind := KindForAll
		if t.kind == tokExists {
			kind = KindExists
		}
		return &Node{Kind: kind, Variable: t.text, Operands: []*Node{body}}, nil
	}
	return p.implication()
}

func (p *parser) implication() (*Node, error) {
	left, err := p.junction()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokImplies {
			return left, nil
		}
		p.pos++
		right, err := p.junction()
		if err != nil {
			return nil, err
		}
		left = ImpliesNode(left, right)
	}
}

func (p *parser) junction() (*Node, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok || (t.kind != tokAnd && t.kind != tokOr) {
		return first, nil
	}
	op := t.kind
	operands := []*Node{first}
	for {
		t, ok := p.peek()
		if !ok || (t.kind != tokAnd && t.kind != tokOr) {
			break
		}
		if t.kind != op {
			return nil, fmt.Errorf("mixed & and v without parentheses in %q", p.rep)
		}
		p.pos++
		next, err := p.unary()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if op == tokAnd {
		return AndNode(operands...), nil
	}
	return OrNode(operands...), nil
}

func (p *parser) unary() (*Node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of %q", p.rep)
	}
	switch t.kind {
	case tokNot:
		p.pos++
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return NotNode(inner), nil
	case tokForAll, tokExists:
		return p.formula()
	case tokContradiction:
		p.pos++
		return &Node{Kind: KindContradiction}, nil
	case tokPredicate:
		p.pos++
		n := PAS(t.text, "")
		if a, ok := p.argument(); ok {
			n.Argument = a
		}
		return n, nil
	case tokLParen:
		p.pos++
		inner, err := p.formula()
		if err != nil {
			return nil, err
		}
		if c, ok := p.peek(); !ok || c.kind != tokRParen {
			return nil, fmt.Errorf("missing ) in %q", p.rep)
		}
		p.pos++
		if a, ok := p.argument(); ok {
			inner = applyArgument(inner, a)
		}
		return inner, nil
	}
	return nil, fmt.Errorf("unexpected %q in %q", t.text, p.rep)
}

func (p *parser) argument() (string, bool) {
	t, ok := p.peek()
	if ok && (t.kind == tokConstant || t.kind == tokVariable) {
		p.pos++
		return t.text, true
	}
	return "", false
}

// applyArgument distributes arg over every zero-ary PAS of n.
func applyArgument(n *Node, arg string) *Node {
	out := n.Clone()
	out.Walk(func(m *Node) {
		if m.Kind == KindPAS && m.Argument == "" {
			m.Argument = arg
		}
	})
	return out
}

// Clone deep-copies n.
func (n *Node) Clone() *Node {
	c := *n
	if n.Operands != nil {
		c.Operands = make([]*Node, len(n.Operands))
		for i, o := range n.Operands {
			c.Operands[i] = o.Clone()
		}
	}
	return &c
}

// Walk visits n and its descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, o := range n.Operands {
		o.Walk(fn)
	}
}

// Equal reports structural equality.
func (n *Node) Equal(o *Node) bool {
	return n.String() == o.String()
}

// IsCompound reports whether n needs parentheses when used as an operand.
func (n *Node) IsCompound() bool {
	switch n.Kind {
	case KindAnd, KindOr, KindImplies, KindForAll, KindExists:
		return true
	}
	return false
}

// String renders n in canonical form.
func (n *Node) String() string {
	var sb strings.Builder
	n.render(&sb)
	return sb.String()
}

func (n *Node) render(sb *strings.Builder) {
	switch n.Kind {
	case KindPAS:
		sb.WriteString(n.Predicate)
		sb.WriteString(n.Argument)
	case KindContradiction:
		sb.WriteString(Contradiction)
	case KindNot:
		sb.WriteString(Negation)
		n.Operands[0].renderOperand(sb)
	case KindAnd, KindOr, KindImplies:
		sep := " " + Conjunction + " "
		if n.Kind == KindOr {
			sep = " " + Disjunction + " "
		} else if n.Kind == KindImplies {
			sep = " " + Implication + " "
		}
		for i, o := range n.Operands {
			if i > 0 {
				sb.WriteString(sep)
			}
			o.renderOperand(sb)
		}
	case KindForAll:
		sb.WriteString("(" + n.Variable + "): ")
		n.Operands[0].render(sb)
	case KindExists:
		sb.WriteString("(E" + n.Variable + "): ")
		n.Operands[0].render(sb)
	}
}

func (n *Node) renderOperand(sb *strings.Builder) {
	if n.IsCompound() {
		sb.WriteByte('(')
		n.render(sb)
		sb.WriteByte(')')
		return
	}
	n.render(sb)
}

// StripQuantifiers returns the body under any leading quantifier prefixes
// together with the prefixes, outermost first.
func (n *Node) StripQuantifiers() (*Node, []*Node) {
	var prefixes []*Node
	cur := n
	for cur.Kind == KindForAll || cur.Kind == KindExists {
		prefixes = append(prefixes, &Node{Kind: cur.Kind, Variable: cur.Variable})
		cur = cur.Operands[0]
	}
	return cur, prefixes
}

// Substitute replaces a variable or constant argument by another throughout n,
// without descending into quantifiers that rebind from.
func (n *Node) Substitute(from, to string) *Node {
	out := n.Clone()
	out.substitute(from, to)
	return out
}

func (n *Node) substitute(from, to string) {
	if (n.Kind == KindForAll || n.Kind == KindExists) && n.Variable == from {
		return
	}
	if n.Kind == KindPAS && n.Argument == from {
		n.Argument = to
	}
	for _, o := range n.Operands {
		o.substitute(from, to)
	}
}
