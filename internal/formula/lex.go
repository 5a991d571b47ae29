// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package formula

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokPredicate tokenKind = iota
	tokConstant
	tokVariable
	tokNot
	tokAnd
	tokOr
	tokImplies
	tokLParen
	tokRParen
	tokForAll
	tokExists
	tokContradiction
)

type token struct {
	kind tokenKind
	text string
}

// IsVariable reports whether s is one of the single-letter variables.
func IsVariable(s string) bool {
	return len(s) == 1 && s[0] >= 'x' && s[0] <= 'z'
}

// lex splits rep into tokens. It stops at the first character it cannot
// classify and returns the tokens read so far together with the error.
func lex(rep string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(rep) {
		c := rep[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case hasPrefixAt(rep, i, Contradiction):
			toks = append(toks, token{tokContradiction, Contradiction})
			i += len(Contradiction)
		case hasPrefixAt(rep, i, Implication):
			toks = append(toks, token{tokImplies, Implication})
			i += len(Implication)
		case hasPrefixAt(rep, i, Negation):
			toks = append(toks, token{tokNot, Negation})
			i += len(Negation)
		case c == '&':
			toks = append(toks, token{tokAnd, Conjunction})
			i++
		case c == '(':
			if kind, v, n := quantifierAt(rep, i); n > 0 {
				toks = append(toks, token{kind, v})
				i += n
				continue
			}
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '{':
			end := indexFrom(rep, i, '}')
			if end < 0 {
				return toks, fmt.Errorf("unterminated symbol at offset %d in %q", i, rep)
			}
			sym := rep[i : end+1]
			if len(sym) < 3 {
				return toks, fmt.Errorf("empty symbol at offset %d in %q", i, rep)
			}
			r, _ := utf8.DecodeRuneInString(sym[1:])
			if unicode.IsUpper(r) {
				toks = append(toks, token{tokPredicate, sym})
			} else {
				toks = append(toks, token{tokConstant, sym})
			}
			i = end + 1
		case c == 'v' && isStandalone(rep, i):
			toks = append(toks, token{tokOr, Disjunction})
			i++
		case c >= 'x' && c <= 'z' && isStandalone(rep, i):
			toks = append(toks, token{tokVariable, string(c)})
			i++
		default:
			return toks, fmt.Errorf("unexpected character %q at offset %d in %q", rep[i:i+1], i, rep)
		}
	}
	return toks, nil
}

// quantifierAt recognises "(x):" and "(Ex):" at offset i.
func quantifierAt(rep string, i int) (tokenKind, string, int) {
	rest := rep[i:]
	if len(rest) >= 4 && rest[2] == ')' && rest[3] == ':' && IsVariable(rest[1:2]) {
		return tokForAll, rest[1:2], 4
	}
	if len(rest) >= 5 && rest[1] == 'E' && rest[3] == ')' && rest[4] == ':' && IsVariable(rest[2:3]) {
		return tokExists, rest[2:3], 5
	}
	return 0, "", 0
}

func isStandalone(rep string, i int) bool {
	if i > 0 && isWordByte(rep[i-1]) {
		return false
	}
	if i+1 < len(rep) && isWordByte(rep[i+1]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func hasPrefixAt(s string, i int, prefix string) bool {
	return len(s)-i >= len(prefix) && s[i:i+len(prefix)] == prefix
}

func indexFrom(s string, i int, b byte) int {
	for j := i; j < len(s); j++ {
		if s[j] == b {
			return j
		}
	}
	return -1
}
