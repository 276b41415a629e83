package cip

// BoundType distinguishes the two bounds of a variable.
type BoundType uint8

const (
	// BoundLower addresses the lower bound.
	BoundLower BoundType = iota
	// BoundUpper addresses the upper bound.
	BoundUpper
)

// String returns "lower" or "upper".
func (b BoundType) String() string {
	if b == BoundUpper {
		return "upper"
	}

	return "lower"
}

// bdchgKind tags why a bound change happened; conflict analysis resolves
// inferences through the recorded reason and keeps decisions as conflict
// literals.
type bdchgKind uint8

const (
	bdchgBranching bdchgKind = iota
	bdchgConsInfer
	bdchgPropInfer
)

// boundChange is one applied local bound change on the focus path. The
// stack of these, kept by the tree, is the input of conflict analysis; the
// per-variable prev chain makes "bound at index" queries cheap.
type boundChange struct {
	v        *Var
	btype    BoundType
	newbound float64
	oldbound float64

	kind  bdchgKind
	rcons *Cons      // reason for bdchgConsInfer
	rprop Propagator // reason for bdchgPropInfer
	info  int        // handler-private inference tag

	depth   int // tree depth the change was applied at
	prevIdx int // previous change of the same var+bound, -1 at chain end
}

// varLbAtIndex returns v's lower bound as it was valid before the bound
// change at stack index idx was applied (idx == len(stack): current bound).
func (s *Solver) varLbAtIndex(v *Var, idx int) float64 {
	bound := v.locLb
	for i := v.lbchgidx; i >= 0 && i >= idx; i = s.tree.bdchgStack[i].prevIdx {
		bound = s.tree.bdchgStack[i].oldbound
	}

	return bound
}

// varUbAtIndex is the upper-bound companion of varLbAtIndex.
func (s *Solver) varUbAtIndex(v *Var, idx int) float64 {
	bound := v.locUb
	for i := v.ubchgidx; i >= 0 && i >= idx; i = s.tree.bdchgStack[i].prevIdx {
		bound = s.tree.bdchgStack[i].oldbound
	}

	return bound
}
