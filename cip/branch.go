package cip

import (
	"fmt"
	"math"
)

// BranchCands returns the LP branching candidates: integral variables with
// a fractional value in the current LP solution, plus their values and
// fractionalities.
func (s *Solver) BranchCands() (vars []*Var, vals, fracs []float64, err error) {
	if err := s.checkStage("BranchCands", stagesSolvingOnly); err != nil {
		return nil, nil, nil, err
	}
	if !s.lp.solved {
		return nil, nil, nil, fmt.Errorf("%w: BranchCands without a solved LP", ErrInvalidCall)
	}
	for _, v := range s.transprob.vars {
		if !v.vtype.IsIntegral() {
			continue
		}
		val := s.VarLPVal(v)
		if s.tol.FeasIntegral(val) {
			continue
		}
		vars = append(vars, v)
		vals = append(vals, val)
		fracs = append(fracs, s.tol.Frac(val))
	}

	return vars, vals, fracs, nil
}

// PseudoCands returns the branching candidates of the pseudo solution:
// integral variables whose local domain is not fixed.
func (s *Solver) PseudoCands() []*Var {
	var out []*Var
	for _, v := range s.transprob.vars {
		if !v.vtype.IsIntegral() {
			continue
		}
		if v.locUb-v.locLb > 0.5 {
			out = append(out, v)
		}
	}

	return out
}

// BranchVar splits the focus node on v around value val. Fractional values
// give two children (floor / ceil); an integral value sitting on a bound of
// a finite domain halves the domain; other integral values give three
// children (below / equal / above); continuous variables are split at val,
// clamped away from the bounds by branching/clamp.
func (s *Solver) BranchVar(v *Var, val float64) error {
	if err := s.checkStage("BranchVar", stagesSolvingOnly); err != nil {
		return err
	}
	if !v.IsActive() {
		return fmt.Errorf("%w: branching on %s variable <%s>", ErrInvalidCall, v.status, v.name)
	}
	if v.locUb-v.locLb < s.tol.Epsilon() {
		return fmt.Errorf("%w: branching on fixed variable <%s>", ErrInvalidCall, v.name)
	}

	focus := s.tree.focus
	lpobj := focus.lowerbound
	if s.lp.solved {
		lpobj = s.lp.objval + s.transOffset()
	}

	if !v.vtype.IsIntegral() {
		return s.branchContinuous(v, val, lpobj)
	}

	if s.tol.FeasIntegral(val) {
		val = math.Round(val)
		lb, ub := v.locLb, v.locUb
		atBound := s.tol.FeasEq(val, lb) || s.tol.FeasEq(val, ub)
		if atBound && !s.tol.IsNegInfinity(lb) && !s.tol.IsInfinity(ub) {
			return s.branchMidpoint(v, lpobj)
		}

		return s.branchIntegralValue(v, val, lpobj)
	}

	frac := val - math.Floor(val)

	down, err := s.CreateChild(estimateAfterBranch(focus, v, 0, frac))
	if err != nil {
		return err
	}
	if err := s.ChgVarUbNode(down, v, math.Floor(val)); err != nil {
		return err
	}
	tagBranch(down, v, BranchDirDown, frac, lpobj)

	up, err := s.CreateChild(estimateAfterBranch(focus, v, 1, 1-frac))
	if err != nil {
		return err
	}
	if err := s.ChgVarLbNode(up, v, math.Ceil(val)); err != nil {
		return err
	}
	tagBranch(up, v, BranchDirUp, 1-frac, lpobj)

	return s.publishEvent(&Event{Type: EventNodeBranched, Node: focus, Var: v})
}

// branchMidpoint halves a finite integral domain: the branching value sits
// on a bound, so a child fixed there would reproduce the LP solution and
// leave the rest of the domain in one piece.
func (s *Solver) branchMidpoint(v *Var, lpobj float64) error {
	focus := s.tree.focus
	mid := math.Floor(v.locLb + (v.locUb-v.locLb)/2)

	down, err := s.CreateChild(estimateAfterBranch(focus, v, 0, 0.5))
	if err != nil {
		return err
	}
	if err := s.ChgVarUbNode(down, v, mid); err != nil {
		return err
	}
	tagBranch(down, v, BranchDirDown, 0.5, lpobj)

	up, err := s.CreateChild(estimateAfterBranch(focus, v, 1, 0.5))
	if err != nil {
		return err
	}
	if err := s.ChgVarLbNode(up, v, mid+1); err != nil {
		return err
	}
	tagBranch(up, v, BranchDirUp, 0.5, lpobj)

	return s.publishEvent(&Event{Type: EventNodeBranched, Node: focus, Var: v})
}

// branchIntegralValue creates the three-way split x ≤ val−1, x = val,
// x ≥ val+1, skipping children that fall outside the local domain.
func (s *Solver) branchIntegralValue(v *Var, val, lpobj float64) error {
	focus := s.tree.focus
	created := 0

	if val-1 >= v.locLb-s.tol.FeasTol() {
		down, err := s.CreateChild(focus.estimate)
		if err != nil {
			return err
		}
		if err := s.ChgVarUbNode(down, v, val-1); err != nil {
			return err
		}
		tagBranch(down, v, BranchDirDown, 1, lpobj)
		created++
	}

	if val >= v.locLb-s.tol.FeasTol() && val <= v.locUb+s.tol.FeasTol() {
		eq, err := s.CreateChild(focus.estimate)
		if err != nil {
			return err
		}
		if err := s.ChgVarLbNode(eq, v, val); err != nil {
			return err
		}
		if err := s.ChgVarUbNode(eq, v, val); err != nil {
			return err
		}
		tagBranch(eq, v, BranchDirFixed, 1, lpobj)
		created++
	}

	if val+1 <= v.locUb+s.tol.FeasTol() {
		up, err := s.CreateChild(focus.estimate)
		if err != nil {
			return err
		}
		if err := s.ChgVarLbNode(up, v, val+1); err != nil {
			return err
		}
		tagBranch(up, v, BranchDirUp, 1, lpobj)
		created++
	}

	if created == 0 {
		return fmt.Errorf("%w: three-way branch on <%s> at %g created no children", ErrInternal, v.name, val)
	}

	return s.publishEvent(&Event{Type: EventNodeBranched, Node: focus, Var: v})
}

// branchContinuous splits a continuous domain at val, clamped so each
// child shrinks the domain by at least the clamp fraction.
func (s *Solver) branchContinuous(v *Var, val, lpobj float64) error {
	focus := s.tree.focus
	clamp := s.realParamOr("branching/clamp", 0.2)
	lb, ub := v.locLb, v.locUb
	if !s.tol.IsNegInfinity(lb) && !s.tol.IsInfinity(ub) {
		width := ub - lb
		val = math.Max(val, lb+clamp*width)
		val = math.Min(val, ub-clamp*width)
	}

	down, err := s.CreateChild(focus.estimate)
	if err != nil {
		return err
	}
	if err := s.ChgVarUbNode(down, v, val); err != nil {
		return err
	}
	tagBranch(down, v, BranchDirDown, 1, lpobj)

	up, err := s.CreateChild(focus.estimate)
	if err != nil {
		return err
	}
	if err := s.ChgVarLbNode(up, v, val); err != nil {
		return err
	}
	tagBranch(up, v, BranchDirUp, 1, lpobj)

	return s.publishEvent(&Event{Type: EventNodeBranched, Node: focus, Var: v})
}

// tagBranch records the branching decision on the child for later
// pseudo-cost updates.
func tagBranch(n *Node, v *Var, dir BranchDir, frac, parentLPObj float64) {
	n.branchVar = v
	n.branchDir = dir
	n.branchFrac = frac
	n.parentLPObj = parentLPObj
}

// estimateAfterBranch predicts the child's solution value from the
// variable's pseudo costs.
func estimateAfterBranch(focus *Node, v *Var, dir int, frac float64) float64 {
	return focus.estimate + frac*v.history.PseudoCost(dir)
}

// updatePseudocost credits the focus node's branching variable with the LP
// objective gain observed relative to its parent.
func (s *Solver) updatePseudocost(lpobj float64) {
	n := s.tree.focus
	if n == nil || n.branchVar == nil || n.branchFrac <= 0 {
		return
	}
	gain := lpobj - n.parentLPObj
	if gain < 0 {
		gain = 0
	}
	dir := 0
	if n.branchDir == BranchDirUp {
		dir = 1
	} else if n.branchDir != BranchDirDown {
		return
	}
	h := &n.branchVar.history
	h.PseudoCostSum[dir] += gain / n.branchFrac
	h.PseudoCostCount[dir]++
	// One update per node.
	n.branchVar = nil
}

// BranchLP asks the branching rules to split the focus node on the LP
// solution; without an applicable rule the most fractional candidate is
// taken.
func (s *Solver) BranchLP() (Result, error) {
	if err := s.checkStage("BranchLP", stagesSolvingOnly); err != nil {
		return ResultDidNotRun, err
	}
	bounddist := s.focusBoundDist()
	for _, b := range s.branchrulesByPriority() {
		if !s.branchruleApplies(b, s.tree.focus.depth, bounddist) {
			continue
		}
		res, err := b.ExecLP(s)
		if err != nil {
			return res, fmt.Errorf("branchrule <%s>: %w", b.Name(), err)
		}
		switch res {
		case ResultBranched, ResultCutoff, ResultReducedDom, ResultConsAdded, ResultSeparated:
			return res, nil
		case ResultDidNotRun:
		default:
			return res, fmt.Errorf("%w: branchrule <%s> returned %s", ErrInvalidData, b.Name(), res)
		}
	}

	return s.branchMostFractional()
}

// BranchPseudo branches without LP information.
func (s *Solver) BranchPseudo() (Result, error) {
	if err := s.checkStage("BranchPseudo", stagesSolvingOnly); err != nil {
		return ResultDidNotRun, err
	}
	bounddist := s.focusBoundDist()
	for _, b := range s.branchrulesByPriority() {
		if !s.branchruleApplies(b, s.tree.focus.depth, bounddist) {
			continue
		}
		res, err := b.ExecPS(s)
		if err != nil {
			return res, fmt.Errorf("branchrule <%s>: %w", b.Name(), err)
		}
		switch res {
		case ResultBranched, ResultCutoff, ResultReducedDom, ResultConsAdded:
			return res, nil
		case ResultDidNotRun:
		default:
			return res, fmt.Errorf("%w: branchrule <%s> returned %s", ErrInvalidData, b.Name(), res)
		}
	}

	cands := s.PseudoCands()
	if len(cands) == 0 {
		return ResultDidNotRun, nil
	}
	v := cands[0]
	for _, c := range cands[1:] {
		if c.branchPriority > v.branchPriority {
			v = c
		}
	}
	mid := s.branchPointPseudo(v)
	if err := s.BranchVar(v, mid); err != nil {
		return ResultDidNotRun, err
	}

	return ResultBranched, nil
}

// branchPointPseudo picks a split value inside the local domain of v when
// no LP value is available.
func (s *Solver) branchPointPseudo(v *Var) float64 {
	lb, ub := v.locLb, v.locUb
	switch {
	case !s.tol.IsNegInfinity(lb) && !s.tol.IsInfinity(ub):
		return lb + (ub-lb)/2
	case !s.tol.IsNegInfinity(lb):
		return lb
	case !s.tol.IsInfinity(ub):
		return ub
	default:
		return 0
	}
}

// branchMostFractional is the kernel's built-in fallback: branch on the LP
// candidate closest to one half.
func (s *Solver) branchMostFractional() (Result, error) {
	vars, vals, fracs, err := s.BranchCands()
	if err != nil {
		return ResultDidNotRun, err
	}
	if len(vars) == 0 {
		return ResultDidNotRun, nil
	}
	best := 0
	bestDist := math.Abs(fracs[0] - 0.5)
	for i := 1; i < len(vars); i++ {
		if d := math.Abs(fracs[i] - 0.5); d < bestDist {
			best = i
			bestDist = d
		}
	}
	if err := s.BranchVar(vars[best], vals[best]); err != nil {
		return ResultDidNotRun, err
	}

	return ResultBranched, nil
}

// branchrulesByPriority returns the branching rules in priority order.
func (s *Solver) branchrulesByPriority() []Branchrule {
	out := append([]Branchrule(nil), s.reg.branchrules...)
	sortByPriority(out, func(b Branchrule) int { return b.Priority() })

	return out
}

// focusBoundDist is the focus node's relative distance between the global
// dual bound and the primal bound, in [0,1]; 0 means best node.
func (s *Solver) focusBoundDist() float64 {
	lb := s.dualboundInternal()
	ub := s.primal.upperbound
	n := s.tree.focus
	if n == nil || s.tol.IsInfinity(ub) || ub <= lb {
		return 0
	}

	return (n.lowerbound - lb) / (ub - lb)
}
