// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prooftree holds proof trees. A ProofTree owns its nodes in an
// arena; derivation and assumption edges are indices into that arena.
package prooftree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

var (
	ErrMultipleParents             = errors.New("node already has a parent")
	ErrNoRoot                      = errors.New("proof tree has no root")
	ErrMultipleRoots               = errors.New("proof tree has multiple roots")
	ErrForeignNode                 = errors.New("node belongs to another tree")
	ErrIllegalIntermediateConstant = errors.New("intermediate constant on a leaf or assumption node")
)

const none = -1

// ProofNode holds one formula and, once derived, the argument that derives it.
type ProofNode struct {
	tree *ProofTree
	id   int

	Formula  *formula.Formula
	Argument *formula.Argument

	parent         int
	children       []int
	assumpParent   int
	assumpChildren []int
}

// ProofTree owns a set of ProofNodes.
type ProofTree struct {
	nodes []*ProofNode
}

// New returns an empty tree.
func New() *ProofTree { return &ProofTree{} }

// AddNode creates a parentless node holding f.
func (t *ProofTree) AddNode(f *formula.Formula) *ProofNode {
	n := &ProofNode{tree: t, id: len(t.nodes), Formula: f, parent: none, assumpParent: none}
	t.nodes = append(t.nodes, n)
	return n
}

// ID is the node's index in its tree.
func (n *ProofNode) ID() int { return n.id }

// Tree returns the owning tree.
func (n *ProofNode) Tree() *ProofTree { return n.tree }

// AddChild links c as a derivation child of n.
func (n *ProofNode) AddChild(c *ProofNode) error {
	if c.tree != n.tree {
		return ErrForeignNode
	}
	if c.parent != none {
		return fmt.Errorf("%w: %s", ErrMultipleParents, c.Formula)
	}
	c.parent = n.id
	n.children = append(n.children, c.id)
	return nil
}

// AddAssumptionChild marks c as a hypothesis discharged by the sub-proof of n.
func (n *ProofNode) AddAssumptionChild(c *ProofNode) error {
	if c.tree != n.tree {
		return ErrForeignNode
	}
	if c.assumpParent != none {
		return fmt.Errorf("%w: assumption %s", ErrMultipleParents, c.Formula)
	}
	c.assumpParent = n.id
	n.assumpChildren = append(n.assumpChildren, c.id)
	return nil
}

// Parent returns the derivation parent or nil.
func (n *ProofNode) Parent() *ProofNode { return n.tree.at(n.parent) }

// AssumptionParent returns the assumption parent or nil.
func (n *ProofNode) AssumptionParent() *ProofNode { return n.tree.at(n.assumpParent) }

// Children returns the derivation children in insertion order.
func (n *ProofNode) Children() []*ProofNode { return n.tree.all(n.children) }

// AssumptionChildren returns the assumption children in insertion order.
func (n *ProofNode) AssumptionChildren() []*ProofNode { return n.tree.all(n.assumpChildren) }

// IsLeaf reports whether n has no children and no assumption parent.
func (n *ProofNode) IsLeaf() bool { return len(n.children) == 0 && n.assumpParent == none }

// IsAssumption reports whether n has no children and an assumption parent.
func (n *ProofNode) IsAssumption() bool { return len(n.children) == 0 && n.assumpParent != none }

// Depth counts derivation edges from n up to its topmost ancestor.
func (n *ProofNode) Depth() int {
	d := 0
	for cur := n; cur.parent != none; cur = n.tree.nodes[cur.parent] {
		d++
	}
	return d
}

// Ancestors returns the derivation ancestors of n, nearest first.
func (n *ProofNode) Ancestors() []*ProofNode {
	var out []*ProofNode
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		out = append(out, cur)
	}
	return out
}

// Descendants returns every node below n along derivation edges.
func (n *ProofNode) Descendants() []*ProofNode {
	var out []*ProofNode
	for _, c := range n.Children() {
		out = append(out, c)
		out = append(out, c.Descendants()...)
	}
	return out
}

func (n *ProofNode) String() string { return n.Formula.Rep() }

func (t *ProofTree) at(id int) *ProofNode {
	if id == none {
		return nil
	}
	return t.nodes[id]
}

func (t *ProofTree) all(ids []int) []*ProofNode {
	out := make([]*ProofNode, len(ids))
	for i, id := range ids {
		out[i] = t.nodes[id]
	}
	return out
}

// Nodes returns every node in creation order.
func (t *ProofTree) Nodes() []*ProofNode { return append([]*ProofNode(nil), t.nodes...) }

// Len is the number of nodes.
func (t *ProofTree) Len() int { return len(t.nodes) }

// Root returns the unique parentless node that is not an assumption.
func (t *ProofTree) Root() (*ProofNode, error) {
	var root *ProofNode
	for _, n := range t.nodes {
		if n.parent != none || n.IsAssumption() {
			continue
		}
		if root != nil {
			return nil, ErrMultipleRoots
		}
		root = n
	}
	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

// Leaves returns the leaf nodes in creation order.
func (t *ProofTree) Leaves() []*ProofNode {
	var out []*ProofNode
	for _, n := range t.nodes {
		if n.IsLeaf() {
			out = append(out, n)
		}
	}
	return out
}

// Assumptions returns the assumption nodes in creation order.
func (t *ProofTree) Assumptions() []*ProofNode {
	var out []*ProofNode
	for _, n := range t.nodes {
		if n.IsAssumption() {
			out = append(out, n)
		}
	}
	return out
}

// LeafFormulas returns the formulas of the leaves.
func (t *ProofTree) LeafFormulas() []*formula.Formula { return formulasOf(t.Leaves()) }

// Formulas returns the formula of every node.
func (t *ProofTree) Formulas() []*formula.Formula { return formulasOf(t.nodes) }

func formulasOf(ns []*ProofNode) []*formula.Formula {
	out := make([]*formula.Formula, len(ns))
	for i, n := range ns {
		out[i] = n.Formula
	}
	return out
}

// Depth is the maximum number of derivation edges from the root to a leaf.
func (t *ProofTree) Depth() int {
	d := 0
	for _, l := range t.Leaves() {
		if ld := l.Depth(); ld > d {
			d = ld
		}
	}
	return d
}

// AssumptionEdges counts assumption edges.
func (t *ProofTree) AssumptionEdges() int {
	c := 0
	for _, n := range t.nodes {
		if n.assumpParent != none {
			c++
		}
	}
	return c
}

// DepthFirstTraverse visits nodes post-order from the root: derivation
// children first, then assumption children, then the node itself.
func (t *ProofTree) DepthFirstTraverse() []*ProofNode {
	root, err := t.Root()
	if err != nil {
		return nil
	}
	var out []*ProofNode
	visited := make([]bool, len(t.nodes))
	var visit func(*ProofNode)
	visit = func(n *ProofNode) {
		if visited[n.id] {
			return
		}
		visited[n.id] = true
		for _, c := range n.Children() {
			visit(c)
		}
		for _, c := range n.AssumptionChildren() {
			visit(c)
		}
		out = append(out, n)
	}
	visit(root)
	return out
}

// IntermediateConstants collects the intermediate constants of every
// argument used in the tree.
func (t *ProofTree) IntermediateConstants() []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range t.nodes {
		if n.Argument == nil {
			continue
		}
		for _, c := range n.Argument.IntermediateConstants {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Validate checks the structural invariants: exactly one root, and no leaf
// or assumption node mentioning an intermediate constant.
func (t *ProofTree) Validate() error {
	if _, err := t.Root(); err != nil {
		return err
	}
	illegal := map[string]bool{}
	for _, c := range t.IntermediateConstants() {
		illegal[c] = true
	}
	for _, n := range t.nodes {
		if !n.IsLeaf() && !n.IsAssumption() {
			continue
		}
		for _, c := range n.Formula.Constants() {
			if illegal[c] {
				return fmt.Errorf("%w: %s in %s", ErrIllegalIntermediateConstant, c, n.Formula)
			}
		}
	}
	return nil
}

// Copy deep-copies t, preserving both edge relations. The alignment map
// sends each original node to its copy.
func (t *ProofTree) Copy() (*ProofTree, map[*ProofNode]*ProofNode) {
	c := &ProofTree{nodes: make([]*ProofNode, len(t.nodes))}
	align := make(map[*ProofNode]*ProofNode, len(t.nodes))
	for i, n := range t.nodes {
		cn := &ProofNode{
			tree:           c,
			id:             i,
			Formula:        n.Formula.Copy(),
			Argument:       n.Argument,
			parent:         n.parent,
			children:       append([]int(nil), n.children...),
			assumpParent:   n.assumpParent,
			assumpChildren: append([]int(nil), n.assumpChildren...),
		}
		c.nodes[i] = cn
		align[n] = cn
	}
	return c, align
}

// String renders the tree one node per line, indented by depth.
func (t *ProofTree) String() string {
	root, err := t.Root()
	if err != nil {
		return "<invalid tree: " + err.Error() + ">"
	}
	var sb strings.Builder
	var write func(n *ProofNode, indent int, marker string)
	write = func(n *ProofNode, indent int, marker string) {
		sb.WriteString(strings.Repeat("  ", indent))
		sb.WriteString(marker)
		sb.WriteString(n.Formula.Rep())
		if n.Argument != nil {
			sb.WriteString("   [" + n.Argument.ID + "]")
		}
		sb.WriteByte('\n')
		for _, c := range n.Children() {
			write(c, indent+1, "")
		}
		for _, c := range n.AssumptionChildren() {
			if c.parent == none {
				write(c, indent+1, "assume: ")
			}
		}
	}
	write(root, 0, "")
	return sb.String()
}
