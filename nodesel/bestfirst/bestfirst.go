// Package bestfirst provides best-first node selection: the open node with
// the smallest lower bound is explored next, keeping the global dual bound
// moving as fast as possible.
package bestfirst

import "github.com/optimiq/gociap/cip"

// Sel is the best-first node selector.
type Sel struct{}

// New returns the selector.
func New() *Sel { return &Sel{} }

// Name returns "bestfirst".
func (n *Sel) Name() string { return "bestfirst" }

// StdPriority makes best-first the default selector.
func (n *Sel) StdPriority() int { return 100000 }

// MemSavePriority demotes best-first when memory is tight; its leaf queue
// grows much faster than depth-first's.
func (n *Sel) MemSavePriority() int { return 0 }

// Select returns the best child, then the best sibling, then the best
// queued leaf.
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

// Compare orders by lower bound, breaking ties toward the earlier node.
func (n *Sel) Compare(s *cip.Solver, a, b *cip.Node) int {
	switch {
	case a.Lowerbound() < b.Lowerbound():
		return -1
	case a.Lowerbound() > b.Lowerbound():
		return 1
	case a.Number() < b.Number():
		return -1
	case a.Number() > b.Number():
		return 1
	default:
		return 0
	}
}
