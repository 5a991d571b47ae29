// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package formula

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	_ "embed"

	"go.yaml.in/yaml/v3"
)

// ErrInvalidArgument is returned when an argument definition is malformed.
var ErrInvalidArgument = errors.New("invalid argument")

// Argument is a named deduction rule. Arguments loaded from configuration are
// read-only templates; interpretation always produces a new Argument.
type Argument struct {
	ID         string
	Premises   []*Formula
	Conclusion *Formula

	// Assumptions maps a premise index to the hypothesis discharged by the
	// sub-proof that derives that premise.
	Assumptions map[int]*Formula

	// IntermediateConstants are the constants the rule introduces
	// existentially. They must never reach a leaf.
	IntermediateConstants []string
}

// NewArgument builds an Argument.
func NewArgument(id string, premises []*Formula, conclusion *Formula, assumptions map[int]*Formula, intermediates []string) *Argument {
	if assumptions == nil {
		assumptions = map[int]*Formula{}
	}
	return &Argument{
		ID:                    id,
		Premises:              premises,
		Conclusion:            conclusion,
		Assumptions:           assumptions,
		IntermediateConstants: intermediates,
	}
}

// Formulas returns premises, conclusion and assumptions in that order.
func (a *Argument) Formulas() []*Formula {
	out := append([]*Formula{}, a.Premises...)
	out = append(out, a.Conclusion)
	for _, i := range a.AssumptionIndices() {
		out = append(out, a.Assumptions[i])
	}
	return out
}

// AssumptionIndices returns the premise indices carrying an assumption, sorted.
func (a *Argument) AssumptionIndices() []int {
	idx := make([]int, 0, len(a.Assumptions))
	for i := range a.Assumptions {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Predicates returns the predicates of every formula in the argument.
func (a *Argument) Predicates() []string {
	return unionOf(a.Formulas(), (*Formula).Predicates)
}

// Constants returns the constants of every formula plus the intermediate constants.
func (a *Argument) Constants() []string {
	cs := unionOf(a.Formulas(), (*Formula).Constants)
	m := map[string]bool{}
	for _, c := range cs {
		m[c] = true
	}
	for _, c := range a.IntermediateConstants {
		m[c] = true
	}
	return sortedKeys(m)
}

// IsIntermediate reports whether c is one of the argument's intermediate constants.
func (a *Argument) IsIntermediate(c string) bool {
	for _, ic := range a.IntermediateConstants {
		if ic == c {
			return true
		}
	}
	return false
}

func (a *Argument) String() string {
	var sb strings.Builder
	sb.WriteString(a.ID)
	sb.WriteString(": ")
	for i, p := range a.Premises {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.rep)
		if as, ok := a.Assumptions[i]; ok {
			sb.WriteString(" [assume " + as.rep + "]")
		}
	}
	sb.WriteString(" |- ")
	sb.WriteString(a.Conclusion.rep)
	if len(a.IntermediateConstants) > 0 {
		sb.WriteString(" (intermediate " + strings.Join(a.IntermediateConstants, ",") + ")")
	}
	return sb.String()
}

// UnionPredicates returns the sorted predicates used by fs.
func UnionPredicates(fs []*Formula) []string { return unionOf(fs, (*Formula).Predicates) }

// UnionConstants returns the sorted constants used by fs.
func UnionConstants(fs []*Formula) []string { return unionOf(fs, (*Formula).Constants) }

// UnionPASs returns the sorted PASs used by fs.
func UnionPASs(fs []*Formula) []string { return unionOf(fs, (*Formula).PASs) }

func unionOf(fs []*Formula, get func(*Formula) []string) []string {
	m := map[string]bool{}
	for _, f := range fs {
		for _, s := range get(f) {
			m[s] = true
		}
	}
	return sortedKeys(m)
}

// argumentDoc is the YAML form of an Argument.
type argumentDoc struct {
	ID                    string         `yaml:"id"`
	Premises              []string       `yaml:"premises"`
	Conclusion            string         `yaml:"conclusion"`
	Assumptions           map[int]string `yaml:"assumptions,omitempty"`
	IntermediateConstants []string       `yaml:"intermediate_constants,omitempty"`
}

//go:embed arguments.yaml
var defaultArguments []byte

// DefaultArguments returns the built-in deduction rule library.
func DefaultArguments() []*Argument {
	args, err := decodeArguments(defaultArguments)
	if err != nil {
		panic(fmt.Sprintf("built-in argument library: %v", err))
	}
	return args
}

// LoadArgumentsFile reads an argument library from a YAML file.
func LoadArgumentsFile(path string) ([]*Argument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading arguments: %w", err)
	}
	return decodeArguments(data)
}

// LoadArguments reads an argument library from r.
func LoadArguments(r io.Reader) ([]*Argument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading arguments: %w", err)
	}
	return decodeArguments(data)
}

func decodeArguments(data []byte) ([]*Argument, error) {
	var docs []argumentDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing arguments: %w", err)
	}
	seen := map[string]bool{}
	args := make([]*Argument, 0, len(docs))
	for i, s := range docs {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidArgument, i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidArgument, s.ID)
		}
		seen[s.ID] = true
		if len(s.Premises) == 0 || s.Conclusion == "" {
			return nil, fmt.Errorf("%w: %q needs premises and a conclusion", ErrInvalidArgument, s.ID)
		}
		for _, rep := range append(append([]string{}, s.Premises...), s.Conclusion) {
			if _, err := Parse(rep); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, s.ID, err)
			}
		}
		assumptions := map[int]*Formula{}
		for idx, rep := range s.Assumptions {
			if idx < 0 || idx >= len(s.Premises) {
				return nil, fmt.Errorf("%w: %q: assumption index %d out of range", ErrInvalidArgument, s.ID, idx)
			}
			assumptions[idx] = New(rep)
		}
		args = append(args, NewArgument(s.ID, NewAll(s.Premises...), New(s.Conclusion), assumptions, s.IntermediateConstants))
	}
	return args, nil
}

// EncodeArguments writes args as YAML.
func EncodeArguments(w io.Writer, args []*Argument) error {
	docs := make([]argumentDoc, len(args))
	for i, a := range args {
		s := argumentDoc{
			ID:                    a.ID,
			Premises:              Reps(a.Premises),
			Conclusion:            a.Conclusion.rep,
			IntermediateConstants: a.IntermediateConstants,
		}
		if len(a.Assumptions) > 0 {
			s.Assumptions = map[int]string{}
			for idx, f := range a.Assumptions {
				s.Assumptions[idx] = f.rep
			}
		}
		docs[i] = s
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(docs)
}
