// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prooftree

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

// NodeRecord is the serialized form of a node. Parent and AssumptionParent
// are node indices, -1 when absent.
type NodeRecord struct {
	Formula          string          `json:"formula" yaml:"formula"`
	Translation      string          `json:"translation,omitempty" yaml:"translation,omitempty"`
	Parent           int             `json:"parent" yaml:"parent"`
	AssumptionParent int             `json:"assumption_parent" yaml:"assumption_parent"`
	Argument         *ArgumentRecord `json:"argument,omitempty" yaml:"argument,omitempty"`
}

// ArgumentRecord is the serialized form of the argument deriving a node.
type ArgumentRecord struct {
	ID                    string         `json:"id" yaml:"id"`
	Premises              []string       `json:"premises" yaml:"premises"`
	Conclusion            string         `json:"conclusion" yaml:"conclusion"`
	Assumptions           map[int]string `json:"assumptions,omitempty" yaml:"assumptions,omitempty"`
	IntermediateConstants []string       `json:"intermediate_constants,omitempty" yaml:"intermediate_constants,omitempty"`
}

// Records converts t to its serialized form. Children are listed by parent
// index so the ordering of siblings survives a round trip.
func (t *ProofTree) Records() []NodeRecord {
	out := make([]NodeRecord, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = NodeRecord{
			Formula:          n.Formula.Rep(),
			Translation:      n.Formula.Translation,
			Parent:           n.parent,
			AssumptionParent: n.assumpParent,
			Argument:         argumentRecord(n.Argument),
		}
	}
	return out
}

func argumentRecord(a *formula.Argument) *ArgumentRecord {
	if a == nil {
		return nil
	}
	r := &ArgumentRecord{
		ID:                    a.ID,
		Premises:              formula.Reps(a.Premises),
		Conclusion:            a.Conclusion.Rep(),
		IntermediateConstants: a.IntermediateConstants,
	}
	if len(a.Assumptions) > 0 {
		r.Assumptions = make(map[int]string, len(a.Assumptions))
		for i, f := range a.Assumptions {
			r.Assumptions[i] = f.Rep()
		}
	}
	return r
}

// FromRecords rebuilds a tree from records produced by Records.
func FromRecords(recs []NodeRecord) (*ProofTree, error) {
	t := New()
	for _, r := range recs {
		n := t.AddNode(formula.New(r.Formula))
		n.Formula.Translation = r.Translation
		if r.Argument != nil {
			assumptions := make(map[int]*formula.Formula, len(r.Argument.Assumptions))
			for i, rep := range r.Argument.Assumptions {
				assumptions[i] = formula.New(rep)
			}
			n.Argument = formula.NewArgument(r.Argument.ID, formula.NewAll(r.Argument.Premises...),
				formula.New(r.Argument.Conclusion), assumptions, r.Argument.IntermediateConstants)
		}
	}
	for i, r := range recs {
		if err := link(t, i, r.Parent, (*ProofNode).AddChild); err != nil {
			return nil, err
		}
		if err := link(t, i, r.AssumptionParent, (*ProofNode).AddAssumptionChild); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func link(t *ProofTree, child, parent int, add func(*ProofNode, *ProofNode) error) error {
	if parent == none {
		return nil
	}
	if parent < 0 || parent >= len(t.nodes) {
		return fmt.Errorf("node %d: parent index %d out of range", child, parent)
	}
	return add(t.nodes[parent], t.nodes[child])
}

// MarshalJSON implements json.Marshaler.
func (t *ProofTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Depth int          `json:"depth" yaml:"depth"`
		Nodes []NodeRecord `json:"nodes" yaml:"nodes"`
	}{Depth: t.Depth(), Nodes: t.Records()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *ProofTree) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes []NodeRecord `json:"nodes" yaml:"nodes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := FromRecords(raw.Nodes)
	if err != nil {
		return err
	}
	t.nodes = built.nodes
	for _, n := range t.nodes {
		n.tree = t
	}
	return nil
}

// Arguments returns the distinct argument IDs used in t, sorted.
func (t *ProofTree) Arguments() []string {
	seen := map[string]bool{}
	for _, n := range t.nodes {
		if n.Argument != nil {
			seen[n.Argument.ID] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
