package cip

import "fmt"

// NodeType describes the role of a node in the search tree. Nodes change
// type as the focus moves: children become leaves, the old focus becomes a
// fork, junction, or dead end.
type NodeType uint8

const (
	// NodeFocus is the node currently being processed.
	NodeFocus NodeType = iota
	// NodeChild is an unprocessed child of the focus node.
	NodeChild
	// NodeSibling is an unprocessed sibling of the focus node.
	NodeSibling
	// NodeLeaf is an open node waiting in the leaf queue.
	NodeLeaf
	// NodeProbing is a temporary node of the probing path.
	NodeProbing
	// NodeFork is a former focus node on the active path whose LP data is
	// still valid for its subtree.
	NodeFork
	// NodeJunction is a former focus node on the active path without LP
	// data.
	NodeJunction
	// NodeDeadEnd is a former focus node whose subtree is exhausted.
	NodeDeadEnd
)

// String returns the node type name.
func (t NodeType) String() string {
	switch t {
	case NodeFocus:
		return "focus"
	case NodeChild:
		return "child"
	case NodeSibling:
		return "sibling"
	case NodeLeaf:
		return "leaf"
	case NodeProbing:
		return "probing"
	case NodeFork:
		return "fork"
	case NodeJunction:
		return "junction"
	case NodeDeadEnd:
		return "deadend"
	default:
		return fmt.Sprintf("NodeType(%d)", uint8(t))
	}
}

// Node is a subproblem of the search tree, defined by its parent plus the
// bound changes and constraints attached to it.
type Node struct {
	parent *Node
	ntype  NodeType

	number int64 // creation sequence number, 1-based
	depth  int

	lowerbound float64 // dual bound of the subtree, internal frame
	estimate   float64 // estimated best solution value in the subtree

	// bdchgs are the bound changes defining this node relative to its
	// parent, including those applied while it was the focus.
	bdchgs []boundChange

	// conss are constraints valid only in this subtree; they are added to
	// the transformed problem while the node is on the active path.
	conss []*Cons

	active bool // on the path from the root to the focus node
	cutoff bool
	reprop bool // domain propagation must be repeated when refocused

	// branching record for pseudo-cost updates after the child's first LP
	branchVar   *Var
	branchDir   BranchDir
	branchFrac  float64
	parentLPObj float64
}

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Type returns the current node type.
func (n *Node) Type() NodeType { return n.ntype }

// Number returns the creation sequence number.
func (n *Node) Number() int64 { return n.number }

// Depth returns the depth in the tree; the root has depth 0.
func (n *Node) Depth() int { return n.depth }

// Lowerbound returns the node's dual bound in the internal frame.
func (n *Node) Lowerbound() float64 { return n.lowerbound }

// Estimate returns the node selection estimate.
func (n *Node) Estimate() float64 { return n.estimate }

// IsActive reports whether the node lies on the current focus path.
func (n *Node) IsActive() bool { return n.active }

// NDomchgs returns the number of bound changes attached to the node.
func (n *Node) NDomchgs() int { return len(n.bdchgs) }

// UpdateLowerbound raises the node's dual bound; bounds never decrease.
func (n *Node) UpdateLowerbound(lb float64) {
	if lb > n.lowerbound {
		n.lowerbound = lb
	}
}

// MarkRepropagate requests domain propagation to run again when the node
// (or a descendant) becomes the focus.
func (n *Node) MarkRepropagate() { n.reprop = true }

// onPathTo reports whether n is an ancestor of (or equal to) m.
func (n *Node) onPathTo(m *Node) bool {
	for ; m != nil && m.depth >= n.depth; m = m.parent {
		if m == n {
			return true
		}
	}

	return false
}
