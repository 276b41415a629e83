package cip

import "fmt"

// probingMark remembers the bound-stack length at a probing node's
// creation, so backtracking can restore the exact previous state.
type probingMark struct {
	stackLen int
}

// InProbing reports whether a probing path is active.
func (s *Solver) InProbing() bool { return s.tree.probingRoot != nil }

// StartProbing opens a temporary dive below the focus node. All bound
// changes applied until EndProbing are undone exactly, leaving the focus
// node's state untouched.
func (s *Solver) StartProbing() error {
	if err := s.checkStage("StartProbing", stagesSolvingOnly); err != nil {
		return err
	}
	t := s.tree
	if t.probingRoot != nil {
		return fmt.Errorf("%w: probing already in progress", ErrInvalidCall)
	}
	if t.focus == nil {
		return fmt.Errorf("%w: StartProbing without a focus node", ErrInvalidCall)
	}
	t.probingRoot = t.focus

	return s.NewProbingNode()
}

// NewProbingNode opens the next layer of the probing path; subsequent
// tightenings are attributed to it and undone by a matching backtrack.
func (s *Solver) NewProbingNode() error {
	if err := s.checkStage("NewProbingNode", stagesSolvingOnly); err != nil {
		return err
	}
	t := s.tree
	if t.probingRoot == nil {
		return fmt.Errorf("%w: NewProbingNode outside probing", ErrInvalidCall)
	}
	parent := t.focus
	if len(t.probingNodes) > 0 {
		parent = t.probingNodes[len(t.probingNodes)-1]
	}
	n := &Node{
		parent:     parent,
		ntype:      NodeProbing,
		depth:      parent.depth + 1,
		lowerbound: parent.lowerbound,
		active:     true,
	}
	t.probingNodes = append(t.probingNodes, n)
	t.probingStack = append(t.probingStack, probingMark{stackLen: len(t.bdchgStack)})

	return nil
}

// ProbingDepth returns the number of open probing layers.
func (s *Solver) ProbingDepth() int { return len(s.tree.probingNodes) }

// BacktrackProbing undoes probing layers until only depth of them remain.
func (s *Solver) BacktrackProbing(depth int) error {
	if err := s.checkStage("BacktrackProbing", stagesSolvingOnly); err != nil {
		return err
	}
	t := s.tree
	if t.probingRoot == nil {
		return fmt.Errorf("%w: BacktrackProbing outside probing", ErrInvalidCall)
	}
	if depth < 0 || depth >= len(t.probingNodes) {
		return fmt.Errorf("%w: backtrack to probing depth %d of %d", ErrInvalidData, depth, len(t.probingNodes))
	}

	return t.popProbingTo(depth + 1)
}

// EndProbing closes the probing path and restores the focus node's bounds
// exactly as they were at StartProbing.
func (s *Solver) EndProbing() error {
	if err := s.checkStage("EndProbing", stagesSolvingOnly); err != nil {
		return err
	}
	t := s.tree
	if t.probingRoot == nil {
		return fmt.Errorf("%w: EndProbing outside probing", ErrInvalidCall)
	}
	if err := t.popProbingTo(0); err != nil {
		return err
	}
	t.probingRoot = nil
	if s.lp != nil {
		s.lp.solved = false
	}

	return nil
}

// popProbingTo discards probing layers until keep of them remain,
// rewinding the bound stack to each layer's creation mark.
func (t *tree) popProbingTo(keep int) error {
	for len(t.probingNodes) > keep {
		last := len(t.probingNodes) - 1
		if err := t.undoToLen(t.probingStack[last].stackLen); err != nil {
			return err
		}
		t.probingNodes[last] = nil
		t.probingNodes = t.probingNodes[:last]
		t.probingStack = t.probingStack[:last]
	}

	return nil
}

// undoToLen pops bound changes until the stack is target entries long.
func (t *tree) undoToLen(target int) error {
	for len(t.bdchgStack) > target {
		bc := t.bdchgStack[len(t.bdchgStack)-1]
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

// FixVarProbing fixes a variable within the current probing layer.
func (s *Solver) FixVarProbing(v *Var, val float64) error {
	if s.tree.probingRoot == nil {
		return fmt.Errorf("%w: FixVarProbing outside probing", ErrInvalidCall)
	}
	if v.vtype.IsIntegral() && !s.tol.FeasIntegral(val) {
		return fmt.Errorf("%w: fractional fixing %g of integral variable <%s>", ErrInvalidData, val, v.name)
	}
	n := s.tree.probingNodes[len(s.tree.probingNodes)-1]
	if s.tol.Gt(val, v.locLb) {
		if err := s.tree.applyBound(n, v, BoundLower, val, bdchgBranching, nil, nil, 0); err != nil {
			return err
		}
	}
	if s.tol.Lt(val, v.locUb) {
		if err := s.tree.applyBound(n, v, BoundUpper, val, bdchgBranching, nil, nil, 0); err != nil {
			return err
		}
	}

	return nil
}
