package cip

import (
	"fmt"
	"math"

	"github.com/optimiq/gociap/lpi"
)

// Row is a linear row of the kernel LP: lhs ≤ Σ vals[i]·vars[i] ≤ rhs.
// Rows are contributed by constraint handlers (relaxation rows) and by
// separators (cutting planes).
type Row struct {
	name string
	vars []*Var
	vals []float64
	lhs  float64
	rhs  float64

	local      bool // valid only in the current subtree
	removable  bool // may be aged out of the LP
	lppos      int  // position in the LP, -1 while detached
	originName string
}

// NewRow builds a detached LP row over transformed variables.
func (s *Solver) NewRow(name string, vars []*Var, vals []float64, lhs, rhs float64, local, removable bool) (*Row, error) {
	if len(vars) != len(vals) {
		return nil, fmt.Errorf("%w: row <%s> with %d variables but %d coefficients", ErrInvalidData, name, len(vars), len(vals))
	}

	return &Row{
		name:      name,
		vars:      append([]*Var(nil), vars...),
		vals:      append([]float64(nil), vals...),
		lhs:       lhs,
		rhs:       rhs,
		local:     local,
		removable: removable,
		lppos:     -1,
	}, nil
}

// Name returns the row name.
func (r *Row) Name() string { return r.name }

// Lhs returns the left-hand side.
func (r *Row) Lhs() float64 { return r.lhs }

// Rhs returns the right-hand side.
func (r *Row) Rhs() float64 { return r.rhs }

// IsLocal reports whether the row is valid only in the current subtree.
func (r *Row) IsLocal() bool { return r.local }

// IsInLP reports whether the row is currently part of the LP.
func (r *Row) IsInLP() bool { return r.lppos >= 0 }

// Activity returns the row's activity under the given variable values.
func (r *Row) Activity(val func(*Var) float64) float64 {
	var act float64
	for i, v := range r.vars {
		act += r.vals[i] * val(v)
	}

	return act
}

// Feasibility returns min(act−lhs, rhs−act), negative when violated.
func (r *Row) Feasibility(s *Solver, val func(*Var) float64) float64 {
	act := r.Activity(val)
	f := math.Inf(1)
	if !s.tol.IsNegInfinity(r.lhs) {
		f = act - r.lhs
	}
	if !s.tol.IsInfinity(r.rhs) && r.rhs-act < f {
		f = r.rhs - act
	}

	return f
}

// norm returns the row's coefficient norm used for efficacy scaling:
// 'e' Euclidean, 'm' maximum, 's' sum, 'd' discrete (1 for nonempty rows).
func (r *Row) norm(kind byte) float64 {
	switch kind {
	case 'm':
		var m float64
		for _, v := range r.vals {
			if a := math.Abs(v); a > m {
				m = a
			}
		}

		return m
	case 's':
		var sum float64
		for _, v := range r.vals {
			sum += math.Abs(v)
		}

		return sum
	case 'd':
		if len(r.vals) > 0 {
			return 1
		}

		return 0
	default:
		var sq float64
		for _, v := range r.vals {
			sq += v * v
		}

		return math.Sqrt(sq)
	}
}

// lpData wraps the LP interface with the variable↔column and row
// bookkeeping of the kernel.
type lpData struct {
	s   *Solver
	lpi lpi.Interface

	cols []*Var
	rows []*Row

	solved  bool
	stat    lpi.SolStat
	objval  float64
	colsol  []float64
	redcost []float64
	rowdual []float64
	rowact  []float64

	cutoff float64

	diving     bool
	diveBounds [][2]float64
	diveObj    []float64

	nlpSolves int64
	nlpIters  int64

	rootBuilt bool // initial rows of the root relaxation were created
}

func newLPData(s *Solver) *lpData {
	return &lpData{
		s:      s,
		lpi:    lpi.NewDenseSimplex(),
		cutoff: s.tol.Infinity(),
	}
}

// addCol enters a transformed variable into the LP as a new column.
func (l *lpData) addCol(v *Var) error {
	if v.col >= 0 {
		return nil
	}
	v.col = len(l.cols)
	l.cols = append(l.cols, v)
	v.status = StatusColumn
	l.solved = false

	return l.lpi.AddCols(
		[]float64{v.obj},
		[]float64{l.clipLb(v.locLb)},
		[]float64{l.clipUb(v.locUb)},
		[]string{v.name},
	)
}

func (l *lpData) clipLb(b float64) float64 {
	if l.s.tol.IsNegInfinity(b) {
		return math.Inf(-1)
	}

	return b
}

func (l *lpData) clipUb(b float64) float64 {
	if l.s.tol.IsInfinity(b) {
		return math.Inf(1)
	}

	return b
}

// AddRowLP appends a row to the LP.
func (s *Solver) AddRowLP(r *Row) error {
	if err := s.checkStage("AddRowLP", stagesSolvingOnly); err != nil {
		return err
	}

	return s.lp.addRow(r)
}

func (l *lpData) addRow(r *Row) error {
	if r.lppos >= 0 {
		return nil
	}
	entries := make([]lpi.Nonzero, 0, len(r.vars))
	for i, v := range r.vars {
		if v.col < 0 {
			if err := l.addCol(v); err != nil {
				return err
			}
		}
		entries = append(entries, lpi.Nonzero{Col: v.col, Val: r.vals[i]})
	}
	r.lppos = len(l.rows)
	l.rows = append(l.rows, r)
	l.solved = false

	return l.lpi.AddRows(
		[]float64{l.clipLb(r.lhs)},
		[]float64{l.clipUb(r.rhs)},
		[][]lpi.Nonzero{entries},
		[]string{r.name},
	)
}

// clearRows drops all local rows (used when the focus moves to a node the
// rows are not valid at).
func (l *lpData) clearLocalRows() error {
	// Local rows are appended after global ones inside each separation
	// round; scan from the back to drop contiguous local tails first.
	for i := len(l.rows) - 1; i >= 0; i-- {
		if !l.rows[i].local {
			continue
		}
		if err := l.lpi.DelRows(i, i); err != nil {
			return err
		}
		l.rows[i].lppos = -1
		l.rows = append(l.rows[:i], l.rows[i+1:]...)
	}
	for i, r := range l.rows {
		r.lppos = i
	}
	l.solved = false

	return nil
}

// syncBounds pushes the current local bounds and objective coefficients of
// all columns into the LP.
func (l *lpData) syncBounds() error {
	if len(l.cols) == 0 {
		return nil
	}
	idx := make([]int, len(l.cols))
	lb := make([]float64, len(l.cols))
	ub := make([]float64, len(l.cols))
	obj := make([]float64, len(l.cols))
	for j, v := range l.cols {
		idx[j] = j
		lb[j] = l.clipLb(v.locLb)
		ub[j] = l.clipUb(v.locUb)
		obj[j] = v.obj
	}
	if err := l.lpi.ChgBounds(idx, lb, ub); err != nil {
		return err
	}

	return l.lpi.ChgObj(idx, obj)
}

// setCutoff installs the primal cutoff as the LP objective limit. The LP
// objective carries no constant part, so the transformed offset is
// subtracted first. While diving the limit is lifted so heuristics can
// inspect worse LPs.
func (l *lpData) setCutoff(bound float64) {
	if !l.s.tol.IsInfinity(bound) {
		bound -= l.s.transOffset()
	}
	l.cutoff = bound
	if !l.diving {
		l.lpi.SetObjLimit(bound)
	}
}

// startDive snapshots column bounds and objective so a heuristic can
// modify them freely; endDive restores the snapshot.
func (l *lpData) startDive() error {
	if l.diving {
		return fmt.Errorf("%w: LP dive already in progress", ErrInvalidCall)
	}
	l.diving = true
	l.diveBounds = make([][2]float64, len(l.cols))
	l.diveObj = make([]float64, len(l.cols))
	for j := range l.cols {
		clb, cub := l.lpi.ColBounds(j)
		l.diveBounds[j] = [2]float64{clb, cub}
		l.diveObj[j] = l.lpi.ObjCoef(j)
	}
	l.lpi.SetObjLimit(math.Inf(1))

	return nil
}

func (l *lpData) endDive() error {
	if !l.diving {
		return fmt.Errorf("%w: endDive without startDive", ErrInvalidCall)
	}
	idx := make([]int, len(l.diveBounds))
	lb := make([]float64, len(l.diveBounds))
	ub := make([]float64, len(l.diveBounds))
	for j := range l.diveBounds {
		idx[j] = j
		lb[j] = l.diveBounds[j][0]
		ub[j] = l.diveBounds[j][1]
	}
	if err := l.lpi.ChgBounds(idx, lb, ub); err != nil {
		return err
	}
	if err := l.lpi.ChgObj(idx, l.diveObj); err != nil {
		return err
	}
	l.diving = false
	l.diveBounds = nil
	l.diveObj = nil
	l.solved = false
	l.lpi.SetObjLimit(l.cutoff)

	return nil
}

// solve runs the LP to completion and caches the solution vectors.
func (l *lpData) solve(itlim int) (lpi.SolStat, error) {
	// While diving the bounds and objective in the LP interface are the
	// dive's own; syncing would wipe them.
	if !l.diving {
		if err := l.syncBounds(); err != nil {
			return lpi.StatError, err
		}
	}
	if err := l.lpi.Solve(itlim); err != nil {
		return lpi.StatError, fmt.Errorf("%w: %v", ErrLP, err)
	}
	l.stat = l.lpi.SolStat()
	l.solved = true
	l.nlpSolves++
	l.nlpIters += int64(l.lpi.Iterations())
	l.colsol = nil
	l.redcost = nil
	l.rowdual = nil
	l.rowact = nil
	if l.stat == lpi.StatOptimal || l.stat == lpi.StatObjLimit || l.stat == lpi.StatIterLimit {
		var err error
		if l.objval, err = l.lpi.ObjVal(); err != nil {
			return l.stat, err
		}
		if l.colsol, err = l.lpi.PrimalSol(); err != nil {
			return l.stat, err
		}
		if l.redcost, err = l.lpi.RedCost(); err != nil {
			return l.stat, err
		}
		if l.rowdual, err = l.lpi.DualSol(); err != nil {
			return l.stat, err
		}
		if l.rowact, err = l.lpi.RowActivity(); err != nil {
			return l.stat, err
		}
	}

	return l.stat, nil
}

// lpVal returns a variable's value in the last LP solution; loose
// variables sit at their best bound.
func (l *lpData) lpVal(v *Var) float64 {
	if v.col >= 0 && l.colsol != nil {
		return l.colsol[v.col]
	}

	return l.s.pseudoVal(v)
}

// LPObjval returns the objective of the last LP solve (internal frame).
func (s *Solver) LPObjval() (float64, error) {
	if !s.lp.solved {
		return 0, lpi.ErrNotSolved
	}

	return s.lp.objval, nil
}

// LPSolstat returns the status of the last LP solve.
func (s *Solver) LPSolstat() lpi.SolStat {
	if s.lp == nil || !s.lp.solved {
		return lpi.StatNotSolved
	}

	return s.lp.stat
}

// VarLPVal returns v's value in the last LP solution.
func (s *Solver) VarLPVal(v *Var) float64 { return v.Val(s.lp.lpVal) }

// VarRedCost returns the reduced cost of v in the last LP solution, 0 for
// loose variables.
func (s *Solver) VarRedCost(v *Var) float64 {
	if v.col < 0 || s.lp.redcost == nil {
		return 0
	}

	return s.lp.redcost[v.col]
}

// RowDual returns the dual multiplier of an LP row, 0 when detached.
func (s *Solver) RowDual(r *Row) float64 {
	if r.lppos < 0 || s.lp.rowdual == nil {
		return 0
	}

	return s.lp.rowdual[r.lppos]
}

// NLPSolves returns the number of LP solves so far.
func (s *Solver) NLPSolves() int64 { return s.lp.nlpSolves }

// NLPIterations returns the total simplex iteration count.
func (s *Solver) NLPIterations() int64 { return s.lp.nlpIters }
