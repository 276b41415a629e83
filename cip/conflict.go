package cip

import (
	"container/heap"
	"fmt"

	"github.com/optimiq/gociap/lpi"
)

// conflictAnalysis holds the state of one conflict analysis run: a queue of
// bound-change stack indices still to be resolved (latest first) and the
// literals already fixed into the conflict set.
type conflictAnalysis struct {
	cands      candHeap
	inQueue    map[int]bool
	set        []ConflictBound
	resolveIdx int // stack index currently being resolved; premises must precede it
	active     bool
}

// candHeap is a max-heap of bound-change stack indices.
type candHeap []int

func (h candHeap) Len() int            { return len(h) }
func (h candHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h candHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candHeap) Push(x any)         { *h = append(*h, x.(int)) }
func (h *candHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

// InitConflictAnalysis starts collecting a conflict set. Handlers seed it
// with the bounds that together are infeasible, then call AnalyzeConflict.
func (s *Solver) InitConflictAnalysis() error {
	if err := s.checkStage("InitConflictAnalysis", stagesSolvingOnly); err != nil {
		return err
	}
	c := &s.conflict
	c.cands = c.cands[:0]
	c.inQueue = make(map[int]bool)
	c.set = c.set[:0]
	c.resolveIdx = len(s.tree.bdchgStack)
	c.active = true

	return nil
}

// AddConflictLb adds the current reason-side lower bound of v to the
// conflict candidates. During resolution only changes applied before the
// resolved inference qualify; a variable still at its global bound
// contributes nothing.
func (s *Solver) AddConflictLb(v *Var) error {
	return s.addConflictBound(v, BoundLower)
}

// AddConflictUb is the upper-bound companion of AddConflictLb.
func (s *Solver) AddConflictUb(v *Var) error {
	return s.addConflictBound(v, BoundUpper)
}

// AddConflictBd adds the bound of the given type.
func (s *Solver) AddConflictBd(v *Var, btype BoundType) error {
	return s.addConflictBound(v, btype)
}

// AddConflictBinvar adds the fixing of a binary variable: the upper bound
// when it is fixed to zero, the lower bound when fixed to one.
func (s *Solver) AddConflictBinvar(v *Var) error {
	if v.vtype != VarBinary {
		return fmt.Errorf("%w: AddConflictBinvar on non-binary <%s>", ErrInvalidData, v.name)
	}
	if v.locLb > 0.5 {
		return s.addConflictBound(v, BoundLower)
	}
	if v.locUb < 0.5 {
		return s.addConflictBound(v, BoundUpper)
	}

	return nil
}

func (s *Solver) addConflictBound(v *Var, btype BoundType) error {
	c := &s.conflict
	if !c.active {
		return fmt.Errorf("%w: conflict analysis not initialized", ErrInvalidCall)
	}
	idx := v.lbchgidx
	if btype == BoundUpper {
		idx = v.ubchgidx
	}
	for idx >= c.resolveIdx {
		idx = s.tree.bdchgStack[idx].prevIdx
	}
	if idx < 0 {
		// Global bound, holds everywhere: not part of the conflict.
		return nil
	}
	if !c.inQueue[idx] {
		c.inQueue[idx] = true
		heap.Push(&c.cands, idx)
	}

	return nil
}

// AnalyzeConflict runs First-UIP resolution on the seeded candidates and
// hands the resulting conflict set to the conflict handlers. validdepth is
// the shallowest depth the infeasibility is known to hold at. Returns
// whether a conflict constraint was created.
func (s *Solver) AnalyzeConflict(validdepth int) (bool, error) {
	if err := s.checkStage("AnalyzeConflict", stagesSolvingOnly); err != nil {
		return false, err
	}
	c := &s.conflict
	if !c.active {
		return false, fmt.Errorf("%w: conflict analysis not initialized", ErrInvalidCall)
	}
	defer func() { c.active = false }()
	if len(c.cands) == 0 {
		return false, nil
	}
	s.stat.NConflictsAnalyzed++

	stack := s.tree.bdchgStack
	conflictDepth := stack[c.cands[0]].depth

	maxLits := s.intParamOr("conflict/maxsize", 0)
	for len(c.cands) > 0 {
		idx := heap.Pop(&c.cands).(int)
		delete(c.inQueue, idx)
		bc := stack[idx]

		deepCands := 0
		for _, j := range c.cands {
			if stack[j].depth >= conflictDepth {
				deepCands++
			}
		}

		keep := bc.kind == bdchgBranching ||
			bc.depth <= validdepth ||
			(bc.depth >= conflictDepth && deepCands == 0) // first UIP of the conflict depth
		if !keep {
			c.resolveIdx = idx
			resolved, err := s.resolveBoundChange(bc, idx)
			if err != nil {
				return false, err
			}
			if resolved {
				continue
			}
		}
		c.set = append(c.set, ConflictBound{
			Var:       bc.v,
			BType:     bc.btype,
			Bound:     bc.newbound,
			RelaxedBd: bc.newbound,
		})
		if maxLits > 0 && len(c.set) > maxLits {
			return false, nil
		}
	}

	if len(c.set) == 0 {
		return false, nil
	}

	// The constraint is attached at the deepest depth all literals except
	// the propagated tail are decided at.
	node := s.tree.focus
	for node != nil && node.depth > validdepth {
		node = node.parent
	}
	if node == nil {
		node = s.tree.root
	}

	created := false
	for _, h := range s.reg.conflicthdlrs {
		res, err := h.Exec(s, node, validdepth, c.set)
		if err != nil {
			return false, err
		}
		switch res {
		case ResultConsAdded:
			created = true
		case ResultDidNotFind, ResultDidNotRun:
		default:
			return false, fmt.Errorf("%w: conflict handler <%s> returned %s", ErrInvalidData, h.Name(), res)
		}
	}
	if created {
		s.stat.NConflictsApplied++
	}

	return created, nil
}

// AnalyzeConflictCons analyzes a conflict detected by a constraint, taking
// the valid depth from the constraint's own validity tag. Globally valid
// constraints produce globally valid conflict constraints.
func (s *Solver) AnalyzeConflictCons(c *Cons) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("%w: AnalyzeConflictCons on nil constraint", ErrInvalidData)
	}

	return s.AnalyzeConflict(c.ValidDepth())
}

// resolveBoundChange asks the reason of an inferred bound change to add its
// premises to the candidate queue. Branching decisions cannot be resolved.
func (s *Solver) resolveBoundChange(bc boundChange, idx int) (bool, error) {
	switch bc.kind {
	case bdchgConsInfer:
		r, ok := bc.rcons.hdlr.(ConsResolver)
		if !ok {
			return false, nil
		}
		res, err := r.ResProp(s, bc.rcons, bc.v, bc.btype, bc.info, idx)
		if err != nil {
			return false, err
		}

		return res == ResultSuccess, nil
	case bdchgPropInfer:
		r, ok := bc.rprop.(PropResolver)
		if !ok {
			return false, nil
		}
		res, err := r.ResProp(s, bc.v, bc.btype, bc.info, idx)
		if err != nil {
			return false, err
		}

		return res == ResultSuccess, nil
	default:
		return false, nil
	}
}

// AnalyzeConflictLP analyzes an infeasible or bound-exceeding LP at the
// focus node. The conflict candidates are seeded from the rows the LP
// certificate assigns nonzero weight to, through the local bounds of their
// variables.
func (s *Solver) AnalyzeConflictLP() (bool, error) {
	if err := s.checkStage("AnalyzeConflictLP", stagesSolvingOnly); err != nil {
		return false, err
	}
	l := s.lp
	if !l.solved {
		return false, fmt.Errorf("%w: AnalyzeConflictLP without a solved LP", ErrInvalidCall)
	}
	weights, err := l.certificateWeights()
	if err != nil || weights == nil {
		return false, err
	}
	if err := s.InitConflictAnalysis(); err != nil {
		return false, err
	}
	seeded := false
	for i, w := range weights {
		if w == 0 || i >= len(l.rows) {
			continue
		}
		for _, v := range l.rows[i].vars {
			if err := s.AddConflictLb(v); err != nil {
				return false, err
			}
			if err := s.AddConflictUb(v); err != nil {
				return false, err
			}
			seeded = true
		}
	}
	if !seeded {
		// Pure bound infeasibility: every tightened column bound may be
		// part of the conflict.
		for _, v := range l.cols {
			if err := s.AddConflictLb(v); err != nil {
				return false, err
			}
			if err := s.AddConflictUb(v); err != nil {
				return false, err
			}
		}
	}

	return s.AnalyzeConflict(s.tree.effectiveRootDepth)
}

// certificateWeights returns the row weights of the LP's infeasibility or
// objective-limit certificate, nil when the LP provides none.
func (l *lpData) certificateWeights() ([]float64, error) {
	switch l.stat {
	case lpi.StatInfeasible:
		return l.lpi.FarkasRay()
	case lpi.StatObjLimit:
		return l.lpi.DualSol()
	default:
		return nil, nil
	}
}
