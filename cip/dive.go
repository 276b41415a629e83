package cip

import (
	"fmt"

	"github.com/optimiq/gociap/lpi"
)

// The dive API lets a heuristic temporarily tighten LP column bounds and
// re-solve without touching the node's domains. StartDive snapshots the LP;
// every ChgVar*Dive call goes straight to the LP interface; EndDive restores
// the snapshot and marks the LP unsolved so the node LP is re-solved before
// anything else reads it.

// InDive reports whether an LP dive is in progress.
func (s *Solver) InDive() bool { return s.lp != nil && s.lp.diving }

// StartDive begins an LP dive on the current node LP.
func (s *Solver) StartDive() error {
	if err := s.checkStage("StartDive", Stages(StageSolving)); err != nil {
		return err
	}

	return s.lp.startDive()
}

// EndDive restores the LP bounds and objective captured by StartDive.
func (s *Solver) EndDive() error {
	if err := s.checkStage("EndDive", Stages(StageSolving)); err != nil {
		return err
	}

	return s.lp.endDive()
}

// ChgVarLbDive changes a column variable's lower bound inside a dive.
func (s *Solver) ChgVarLbDive(v *Var, lb float64) error {
	col, ub, err := s.diveCol(v)
	if err != nil {
		return err
	}
	s.lp.solved = false

	return s.lp.lpi.ChgBounds([]int{col}, []float64{s.lp.clipLb(lb)}, []float64{ub})
}

// ChgVarUbDive changes a column variable's upper bound inside a dive.
func (s *Solver) ChgVarUbDive(v *Var, ub float64) error {
	col, _, err := s.diveCol(v)
	if err != nil {
		return err
	}
	lb, _ := s.lp.lpi.ColBounds(col)
	s.lp.solved = false

	return s.lp.lpi.ChgBounds([]int{col}, []float64{lb}, []float64{s.lp.clipUb(ub)})
}

// ChgVarObjDive changes a column variable's objective coefficient inside a
// dive.
func (s *Solver) ChgVarObjDive(v *Var, obj float64) error {
	col, _, err := s.diveCol(v)
	if err != nil {
		return err
	}
	s.lp.solved = false

	return s.lp.lpi.ChgObj([]int{col}, []float64{obj})
}

// VarLbDive returns a column variable's current lower bound in the dive LP.
func (s *Solver) VarLbDive(v *Var) float64 {
	lb, _ := s.lp.lpi.ColBounds(v.col)

	return lb
}

// VarUbDive returns a column variable's current upper bound in the dive LP.
func (s *Solver) VarUbDive(v *Var) float64 {
	_, ub := s.lp.lpi.ColBounds(v.col)

	return ub
}

// SolveDiveLP solves the dive LP with the given iteration limit (-1 for
// unlimited) and caches the solution for VarLPVal and LPObjval.
func (s *Solver) SolveDiveLP(itlim int) (lpi.SolStat, error) {
	if s.lp == nil || !s.lp.diving {
		return lpi.StatError, fmt.Errorf("%w: SolveDiveLP outside a dive", ErrInvalidCall)
	}

	return s.lp.solve(itlim)
}

func (s *Solver) diveCol(v *Var) (col int, ub float64, err error) {
	if s.lp == nil || !s.lp.diving {
		return 0, 0, fmt.Errorf("%w: dive bound change outside a dive", ErrInvalidCall)
	}
	if v.col < 0 {
		return 0, 0, fmt.Errorf("%w: variable <%s> is not an LP column", ErrInvalidData, v.name)
	}
	_, ub = s.lp.lpi.ColBounds(v.col)

	return v.col, ub, nil
}
