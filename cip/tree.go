package cip

import (
	"container/heap"
	"fmt"
	"math"
)

// tree is the branch-and-bound search tree. It keeps the active path from
// the root to the focus node, the focus node's unprocessed children and
// siblings, and a priority queue of leaves ordered by the active node
// selector.
type tree struct {
	s *Solver

	root  *Node
	focus *Node

	children []*Node
	siblings []*Node
	leaves   leafQueue

	// bdchgStack holds the bound changes applied along the active path, in
	// application order. Conflict analysis walks it backwards.
	bdchgStack []boundChange

	// effectiveRootDepth is the deepest path depth every open node lies
	// below; bound changes above it hold globally.
	effectiveRootDepth int

	// probing state, nil depth marker while inactive
	probingRoot  *Node
	probingNodes []*Node
	probingStack []probingMark

	pathReprop bool // a reactivated path node requested repropagation
}

func newTree(s *Solver) *tree {
	t := &tree{s: s}
	t.leaves.s = s

	return t
}

// leafQueue is a heap of open leaves ordered by the active node selector's
// Compare, with the creation number as deterministic tie-break.
type leafQueue struct {
	s     *Solver
	nodes []*Node
}

func (q *leafQueue) Len() int { return len(q.nodes) }

func (q *leafQueue) Less(i, j int) bool {
	c := q.s.activeNodesel().Compare(q.s, q.nodes[i], q.nodes[j])
	if c != 0 {
		return c < 0
	}

	return q.nodes[i].number < q.nodes[j].number
}

func (q *leafQueue) Swap(i, j int) { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }

func (q *leafQueue) Push(x any) { q.nodes = append(q.nodes, x.(*Node)) }

func (q *leafQueue) Pop() any {
	n := q.nodes[len(q.nodes)-1]
	q.nodes[len(q.nodes)-1] = nil
	q.nodes = q.nodes[:len(q.nodes)-1]

	return n
}

// createRoot builds the root node; called once during transformation.
func (t *tree) createRoot() *Node {
	t.s.stat.NNodes++
	t.root = &Node{
		ntype:      NodeLeaf,
		number:     t.s.stat.NNodes,
		lowerbound: -t.s.tol.Infinity(),
		estimate:   -t.s.tol.Infinity(),
	}

	return t.root
}

// CreateChild creates a new child of the focus node with the given node
// selection estimate. The child inherits the focus node's dual bound.
func (s *Solver) CreateChild(estimate float64) (*Node, error) {
	if err := s.checkStage("CreateChild", stagesSolvingOnly); err != nil {
		return nil, err
	}
	t := s.tree
	if t.focus == nil {
		return nil, fmt.Errorf("%w: CreateChild without a focus node", ErrInvalidCall)
	}
	if t.probingRoot != nil {
		return nil, fmt.Errorf("%w: CreateChild during probing", ErrInvalidCall)
	}
	s.stat.NNodes++
	n := &Node{
		parent:     t.focus,
		ntype:      NodeChild,
		number:     s.stat.NNodes,
		depth:      t.focus.depth + 1,
		lowerbound: t.focus.lowerbound,
		estimate:   estimate,
	}
	t.children = append(t.children, n)

	return n, nil
}

// NChildren returns the number of unprocessed children of the focus node.
func (s *Solver) NChildren() int { return len(s.tree.children) }

// NSiblings returns the number of unprocessed siblings of the focus node.
func (s *Solver) NSiblings() int { return len(s.tree.siblings) }

// NLeaves returns the number of open leaves in the queue.
func (s *Solver) NLeaves() int { return len(s.tree.leaves.nodes) }

// NOpenNodes returns the total number of open (unprocessed) nodes.
func (s *Solver) NOpenNodes() int {
	t := s.tree

	return len(t.children) + len(t.siblings) + len(t.leaves.nodes)
}

// FocusNode returns the node currently being processed, nil outside the
// solving loop.
func (s *Solver) FocusNode() *Node { return s.tree.focus }

// RootNode returns the root of the search tree.
func (s *Solver) RootNode() *Node { return s.tree.root }

// Children returns the focus node's unprocessed children. Shared slice.
func (s *Solver) Children() []*Node { return s.tree.children }

// Siblings returns the focus node's unprocessed siblings. Shared slice.
func (s *Solver) Siblings() []*Node { return s.tree.siblings }

// BestLeaf returns the best open leaf without removing it, nil if none.
func (s *Solver) BestLeaf() *Node {
	if len(s.tree.leaves.nodes) == 0 {
		return nil
	}

	return s.tree.leaves.nodes[0]
}

// Dualbound returns the global dual bound in the external frame.
func (s *Solver) Dualbound() float64 {
	return s.retransformObj(s.dualboundInternal())
}

// dualboundInternal is the minimum dual bound over all open nodes and the
// focus node; +infinity once the tree is exhausted.
func (s *Solver) dualboundInternal() float64 {
	t := s.tree
	lb := math.Inf(1)
	if t.focus != nil && t.focus.lowerbound < lb {
		lb = t.focus.lowerbound
	}
	for _, n := range t.children {
		if n.lowerbound < lb {
			lb = n.lowerbound
		}
	}
	for _, n := range t.siblings {
		if n.lowerbound < lb {
			lb = n.lowerbound
		}
	}
	for _, n := range t.leaves.nodes {
		if n.lowerbound < lb {
			lb = n.lowerbound
		}
	}
	if math.IsInf(lb, 1) {
		return s.primal.upperbound
	}

	return lb
}

// applyBound tightens a local bound at the focus (or probing) node: the
// change is recorded on the node and pushed onto the active-path stack.
func (t *tree) applyBound(n *Node, v *Var, btype BoundType, newbound float64, kind bdchgKind, rcons *Cons, rprop Propagator, info int) error {
	bc := boundChange{
		v:        v,
		btype:    btype,
		newbound: newbound,
		kind:     kind,
		rcons:    rcons,
		rprop:    rprop,
		info:     info,
		depth:    n.depth,
	}
	n.bdchgs = append(n.bdchgs, bc)

	return t.pushBound(bc)
}

// pushBound applies one bound change to the variable and the stack.
func (t *tree) pushBound(bc boundChange) error {
	v := bc.v
	ev := Event{Var: v, BType: bc.btype, NewBound: bc.newbound}
	switch bc.btype {
	case BoundLower:
		bc.oldbound = v.locLb
		bc.prevIdx = v.lbchgidx
		v.locLb = bc.newbound
		v.lbchgidx = len(t.bdchgStack)
		ev.Type = EventLocLbTightened
	case BoundUpper:
		bc.oldbound = v.locUb
		bc.prevIdx = v.ubchgidx
		v.locUb = bc.newbound
		v.ubchgidx = len(t.bdchgStack)
		ev.Type = EventLocUbTightened
	}
	ev.OldBound = bc.oldbound
	t.bdchgStack = append(t.bdchgStack, bc)

	return t.s.publishEvent(&ev)
}

// undoTo pops all bound changes applied at depths greater than depth,
// restoring the variables' previous local bounds.
func (t *tree) undoTo(depth int) error {
	for len(t.bdchgStack) > 0 {
		bc := t.bdchgStack[len(t.bdchgStack)-1]
		if bc.depth <= depth {
			break
		}
		t.bdchgStack = t.bdchgStack[:len(t.bdchgStack)-1]
		v := bc.v
		ev := Event{Var: v, BType: bc.btype, NewBound: bc.oldbound, OldBound: bc.newbound}
		switch bc.btype {
		case BoundLower:
			v.locLb = bc.oldbound
			v.lbchgidx = bc.prevIdx
			ev.Type = EventLocLbRelaxed
		case BoundUpper:
			v.locUb = bc.oldbound
			v.ubchgidx = bc.prevIdx
			ev.Type = EventLocUbRelaxed
		}
		if err := t.s.publishEvent(&ev); err != nil {
			return err
		}
	}

	return nil
}

// activate re-applies a node's stored bound changes when it rejoins the
// active path.
func (t *tree) activate(n *Node) error {
	n.active = true
	if n.reprop {
		t.pathReprop = true
		n.reprop = false
	}
	for _, bc := range n.bdchgs {
		bc.depth = n.depth
		if err := t.pushBound(bc); err != nil {
			return err
		}
	}

	return nil
}

// focusNode makes next the new focus node. next must be a child or sibling
// of the current focus, an open leaf, or nil to finish the search. The
// active path is rewound to the deepest common ancestor and rebuilt.
func (t *tree) focusNode(next *Node) error {
	s := t.s
	old := t.focus

	fromChildren := false
	fromSiblings := false
	if next != nil {
		switch next.ntype {
		case NodeChild:
			fromChildren = true
		case NodeSibling:
			fromSiblings = true
		case NodeLeaf:
			t.removeLeaf(next)
		default:
			return fmt.Errorf("%w: cannot focus %s node #%d", ErrInvalidCall, next.ntype, next.number)
		}
	}

	// Requeue the open nodes that lose their child/sibling role.
	if fromChildren {
		for _, c := range t.children {
			if c != next {
				c.ntype = NodeSibling
			}
		}
		newSiblings := append(t.siblings[:0:0], t.children...)
		newSiblings = removeNode(newSiblings, next)
		for _, n := range t.siblings {
			t.queueLeaf(n)
		}
		t.siblings = newSiblings
		t.children = nil
	} else {
		for _, n := range t.children {
			t.queueLeaf(n)
		}
		t.children = nil
		if fromSiblings {
			t.siblings = removeNode(t.siblings, next)
		} else {
			for _, n := range t.siblings {
				t.queueLeaf(n)
			}
			t.siblings = nil
		}
	}

	// Retire the old focus: with live descendants it becomes a fork or
	// junction on the former path, otherwise a dead end.
	if old != nil {
		switch {
		case old.cutoff:
			old.ntype = NodeDeadEnd
		case fromChildren || hasDescendantOpen(old, t):
			if s.lp != nil && s.lp.solved {
				old.ntype = NodeFork
			} else {
				old.ntype = NodeJunction
			}
		default:
			old.ntype = NodeDeadEnd
		}
	}

	// Rewind to the deepest active ancestor of next.
	forkDepth := -1
	var fork *Node
	if next != nil {
		for a := next.parent; a != nil; a = a.parent {
			if a.active {
				fork = a
				forkDepth = a.depth

				break
			}
		}
	}
	if err := t.undoTo(forkDepth); err != nil {
		return err
	}
	for n := old; n != nil && n != fork; n = n.parent {
		n.active = false
	}

	// Rebuild the path from the fork down to next.
	if next != nil {
		var down []*Node
		for n := next.parent; n != nil && n != fork; n = n.parent {
			down = append(down, n)
		}
		for i := len(down) - 1; i >= 0; i-- {
			if err := t.activate(down[i]); err != nil {
				return err
			}
		}
		next.ntype = NodeFocus
		if err := t.activate(next); err != nil {
			return err
		}
	}
	t.focus = next
	if s.lp != nil {
		s.lp.solved = false
	}

	if next != nil {
		if t.focus != t.root && s.NOpenNodes() == 0 {
			// The focus is the only remaining node: everything above it
			// holds for the rest of the search.
			t.effectiveRootDepth = next.depth
		}

		return s.publishEvent(&Event{Type: EventNodeFocused, Node: next})
	}

	return nil
}

func hasDescendantOpen(n *Node, t *tree) bool {
	for _, c := range t.children {
		if n.onPathTo(c) {
			return true
		}
	}
	for _, c := range t.siblings {
		if n.onPathTo(c) {
			return true
		}
	}
	for _, c := range t.leaves.nodes {
		if n.onPathTo(c) {
			return true
		}
	}

	return false
}

func removeNode(list []*Node, n *Node) []*Node {
	for i, m := range list {
		if m == n {
			return append(list[:i], list[i+1:]...)
		}
	}

	return list
}

// queueLeaf pushes an open node into the leaf queue, pruning it right away
// when its dual bound already exceeds the cutoff bound.
func (t *tree) queueLeaf(n *Node) {
	if n.cutoff || n.lowerbound >= t.s.primal.cutoffbound {
		t.freeNode(n)

		return
	}
	n.ntype = NodeLeaf
	heap.Push(&t.leaves, n)
}

func (t *tree) removeLeaf(n *Node) {
	for i, m := range t.leaves.nodes {
		if m == n {
			heap.Remove(&t.leaves, i)

			return
		}
	}
}

// cutoffAbove prunes every open node whose dual bound is not below bound.
func (t *tree) cutoffAbove(bound float64) {
	t.children = pruneList(t, t.children, bound)
	t.siblings = pruneList(t, t.siblings, bound)
	kept := t.leaves.nodes[:0]
	pruned := false
	for _, n := range t.leaves.nodes {
		if n.lowerbound >= bound {
			t.freeNode(n)
			pruned = true

			continue
		}
		kept = append(kept, n)
	}
	for i := len(kept); i < len(t.leaves.nodes); i++ {
		t.leaves.nodes[i] = nil
	}
	t.leaves.nodes = kept
	if pruned {
		heap.Init(&t.leaves)
	}
}

func pruneList(t *tree, list []*Node, bound float64) []*Node {
	kept := list[:0]
	for _, n := range list {
		if n.lowerbound >= bound {
			t.freeNode(n)

			continue
		}
		kept = append(kept, n)
	}

	return kept
}

// CutoffNode marks a node's subtree as pruned.
func (s *Solver) CutoffNode(n *Node) error {
	if err := s.checkStage("CutoffNode", stagesSolvingOnly); err != nil {
		return err
	}
	n.cutoff = true
	n.lowerbound = s.primal.cutoffbound
	if n == s.tree.focus {
		s.stat.NNodesCutoff++
	}

	return nil
}

// freeNode releases the node-local constraints of a pruned node.
func (t *tree) freeNode(n *Node) {
	t.s.stat.NNodesPruned++
	for _, c := range n.conss {
		_ = c.Release()
	}
	n.conss = nil
}

// AddConsNode attaches a constraint to a node's subtree; it takes part in
// enforcement and propagation only while the node is on the active path.
func (s *Solver) AddConsNode(n *Node, c *Cons) error {
	if err := s.checkStage("AddConsNode", stagesSolvingOnly); err != nil {
		return err
	}
	if c.original {
		return fmt.Errorf("%w: original constraint <%s> in the search tree", ErrInvalidCall, c.name)
	}
	c.addedAt = n
	c.validdepth = n.depth
	n.conss = append(n.conss, c)
	c.active = true
	c.Capture()

	return c.addLocks(s, 1, 0)
}

// localConss collects the constraints of h valid at the focus node: the
// transformed problem's plus those attached to active path nodes.
func (s *Solver) localConss(h Conshdlr, checkOnly bool) []*Cons {
	out := s.transprob.consOfHdlr(h, checkOnly)
	for n := s.tree.focus; n != nil; n = n.parent {
		for _, c := range n.conss {
			if c.hdlr != h || c.deleted || !c.active {
				continue
			}
			if checkOnly && !c.flags.Check {
				continue
			}
			out = append(out, c)
		}
	}

	return out
}

// ChgVarLbNode tightens the lower bound of v in node n's subtree. With the
// focus (or a probing) node the change applies immediately; with an
// unprocessed child it is recorded for activation.
func (s *Solver) ChgVarLbNode(n *Node, v *Var, newbound float64) error {
	return s.chgVarBoundNode(n, v, BoundLower, newbound)
}

// ChgVarUbNode is the upper-bound companion of ChgVarLbNode.
func (s *Solver) ChgVarUbNode(n *Node, v *Var, newbound float64) error {
	return s.chgVarBoundNode(n, v, BoundUpper, newbound)
}

func (s *Solver) chgVarBoundNode(n *Node, v *Var, btype BoundType, newbound float64) error {
	if err := s.checkStage("ChgVarBoundNode", stagesSolvingOnly); err != nil {
		return err
	}
	if n == nil {
		n = s.tree.focus
	}
	if v.vtype.IsIntegral() {
		if btype == BoundLower {
			newbound = s.tol.FeasCeil(newbound)
		} else {
			newbound = s.tol.FeasFloor(newbound)
		}
	}
	if n.active {
		return s.tree.applyBound(n, v, btype, newbound, bdchgBranching, nil, nil, 0)
	}
	n.bdchgs = append(n.bdchgs, boundChange{
		v:        v,
		btype:    btype,
		newbound: newbound,
		kind:     bdchgBranching,
		depth:    n.depth,
	})

	return nil
}

// TightenVarLb tightens v's local lower bound at the focus node as a
// deduction of the given constraint (inference propagation). Returns
// (infeasible, tightened); infeasible means the domain became empty.
func (s *Solver) TightenVarLb(v *Var, newbound float64, rcons *Cons, info int) (bool, bool, error) {
	return s.tightenBound(v, BoundLower, newbound, bdchgConsInfer, rcons, nil, info)
}

// TightenVarUb is the upper-bound companion of TightenVarLb.
func (s *Solver) TightenVarUb(v *Var, newbound float64, rcons *Cons, info int) (bool, bool, error) {
	return s.tightenBound(v, BoundUpper, newbound, bdchgConsInfer, rcons, nil, info)
}

// TightenVarLbProp tightens v's local lower bound as a deduction of a
// propagator.
func (s *Solver) TightenVarLbProp(v *Var, newbound float64, rprop Propagator, info int) (bool, bool, error) {
	return s.tightenBound(v, BoundLower, newbound, bdchgPropInfer, nil, rprop, info)
}

// TightenVarUbProp is the upper-bound companion of TightenVarLbProp.
func (s *Solver) TightenVarUbProp(v *Var, newbound float64, rprop Propagator, info int) (bool, bool, error) {
	return s.tightenBound(v, BoundUpper, newbound, bdchgPropInfer, nil, rprop, info)
}

func (s *Solver) tightenBound(v *Var, btype BoundType, newbound float64, kind bdchgKind, rcons *Cons, rprop Propagator, info int) (infeasible, tightened bool, err error) {
	if err := s.checkStage("TightenVarBound", Stages(StagePresolving, StageSolving)); err != nil {
		return false, false, err
	}
	if s.stage == StagePresolving {
		// Presolving tightens global bounds.
		return s.tightenGlobal(v, btype, newbound)
	}
	if v.vtype.IsIntegral() {
		if btype == BoundLower {
			newbound = s.tol.FeasCeil(newbound)
		} else {
			newbound = s.tol.FeasFloor(newbound)
		}
	}
	n := s.tree.focus
	if len(s.tree.probingNodes) > 0 {
		n = s.tree.probingNodes[len(s.tree.probingNodes)-1]
	}
	switch btype {
	case BoundLower:
		if !s.boundImproves(v, BoundLower, newbound) {
			return false, false, nil
		}
		if s.tol.FeasGt(newbound, v.locUb) {
			return true, false, nil
		}
	case BoundUpper:
		if !s.boundImproves(v, BoundUpper, newbound) {
			return false, false, nil
		}
		if s.tol.FeasLt(newbound, v.locLb) {
			return true, false, nil
		}
	}
	if err := s.tree.applyBound(n, v, btype, newbound, kind, rcons, rprop, info); err != nil {
		return false, false, err
	}

	return false, true, nil
}

// boundImproves reports whether newbound is a genuine tightening over the
// current local bound.
func (s *Solver) boundImproves(v *Var, btype BoundType, newbound float64) bool {
	if btype == BoundLower {
		if s.tol.IsNegInfinity(newbound) {
			return false
		}
		if v.vtype.IsIntegral() {
			return newbound > v.locLb+0.5
		}

		return s.tol.Gt(newbound, v.locLb)
	}
	if s.tol.IsInfinity(newbound) {
		return false
	}
	if v.vtype.IsIntegral() {
		return newbound < v.locUb-0.5
	}

	return s.tol.Lt(newbound, v.locUb)
}

func (s *Solver) tightenGlobal(v *Var, btype BoundType, newbound float64) (infeasible, tightened bool, err error) {
	if btype == BoundLower {
		if v.vtype.IsIntegral() {
			newbound = s.tol.FeasCeil(newbound)
		}
		if s.tol.FeasGt(newbound, v.glbUb) {
			return true, false, nil
		}
		if newbound <= v.glbLb+s.tol.Epsilon() {
			return false, false, nil
		}

		return false, true, s.ChgVarLbGlobal(v, newbound)
	}
	if v.vtype.IsIntegral() {
		newbound = s.tol.FeasFloor(newbound)
	}
	if s.tol.FeasLt(newbound, v.glbLb) {
		return true, false, nil
	}
	if newbound >= v.glbUb-s.tol.Epsilon() {
		return false, false, nil
	}

	return false, true, s.ChgVarUbGlobal(v, newbound)
}
