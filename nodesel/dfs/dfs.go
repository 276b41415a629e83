// Package dfs provides depth-first node selection: children are explored
// before siblings, and deeper open nodes before shallower ones. It keeps
// the open-node set small and finds feasible solutions early.
package dfs

import "github.com/optimiq/gociap/cip"

// Sel is the depth-first node selector.
type Sel struct{}

// New returns the selector.
func New() *Sel { return &Sel{} }

// Name returns "dfs".
func (n *Sel) Name() string { return "dfs" }

// StdPriority ranks depth-first below best-first in standard mode.
func (n *Sel) StdPriority() int { return 0 }

// MemSavePriority makes depth-first the selector of choice in memory-save
// mode.
func (n *Sel) MemSavePriority() int { return 100000 }

// Select dives: the preferred child first, then a sibling, then the
// deepest queued leaf.
func (n *Sel) Select(s *cip.Solver) (*cip.Node, error) {
	if pick := n.bestOf(s, s.Children()); pick != nil {
		return pick, nil
	}
	if pick := n.bestOf(s, s.Siblings()); pick != nil {
		return pick, nil
	}

	return s.BestLeaf(), nil
}

func (n *Sel) bestOf(s *cip.Solver, nodes []*cip.Node) *cip.Node {
	var best *cip.Node
	for _, nd := range nodes {
		if best == nil || n.Compare(s, nd, best) < 0 {
			best = nd
		}
	}

	return best
}

// Compare prefers deeper nodes, breaking ties toward the most recently
// created one.
func (n *Sel) Compare(s *cip.Solver, a, b *cip.Node) int {
	switch {
	case a.Depth() > b.Depth():
		return -1
	case a.Depth() < b.Depth():
		return 1
	case a.Number() > b.Number():
		return -1
	case a.Number() < b.Number():
		return 1
	default:
		return 0
	}
}
