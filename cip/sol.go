package cip

import (
	"fmt"
	"time"
)

// SolOrigin tags how a solution came to be.
type SolOrigin uint8

const (
	// SolOriginVector is a plainly assembled value vector.
	SolOriginVector SolOrigin = iota
	// SolOriginLP snapshots the LP solution of the focus node.
	SolOriginLP
	// SolOriginPseudo snapshots the pseudo solution (best bounds).
	SolOriginPseudo
	// SolOriginOriginal is a value map over original variables.
	SolOriginOriginal
)

// Sol is a primal solution candidate. Transformed solutions carry values of
// active transformed variables and an objective in the internal
// (minimization) frame; original solutions carry original-variable values
// and the external objective.
type Sol struct {
	solver *Solver
	vals   map[*Var]float64
	obj    float64
	origin SolOrigin

	heur      Heur
	index     int // position handed out by the store; -1 until stored
	nodenum   int64
	runnum    int
	depth     int
	foundTime time.Duration
}

// newSol assembles an empty transformed solution tagged with the current
// search position.
func (s *Solver) newSol(origin SolOrigin, heur Heur) *Sol {
	sol := &Sol{
		solver:  s,
		vals:    make(map[*Var]float64),
		origin:  origin,
		heur:    heur,
		index:   -1,
		runnum:  s.stat.NRuns,
		nodenum: s.stat.NNodes,
	}
	if s.tree != nil && s.tree.focus != nil {
		sol.depth = s.tree.focus.depth
	}
	sol.foundTime = time.Since(s.solveStart)

	return sol
}

// NewSol returns an empty transformed solution attributed to heur (nil for
// no heuristic).
func (s *Solver) NewSol(heur Heur) (*Sol, error) {
	if err := s.checkStage("NewSol", stagesTransSolving); err != nil {
		return nil, err
	}

	return s.newSol(SolOriginVector, heur), nil
}

// NewSolFromLP snapshots the current LP solution.
func (s *Solver) NewSolFromLP(heur Heur) (*Sol, error) {
	if err := s.checkStage("NewSolFromLP", stagesSolvingOnly); err != nil {
		return nil, err
	}
	if !s.lp.solved {
		return nil, fmt.Errorf("%w: no LP solution available", ErrInvalidCall)
	}
	sol := s.newSol(SolOriginLP, heur)
	for _, v := range s.transprob.vars {
		if v.col >= 0 {
			sol.SetVal(v, s.lp.colsol[v.col])
		}
	}

	return sol, nil
}

// NewSolFromPseudo snapshots the pseudo solution: every active variable at
// its best bound (objective-wise), zero for free variables.
func (s *Solver) NewSolFromPseudo(heur Heur) (*Sol, error) {
	if err := s.checkStage("NewSolFromPseudo", stagesSolvingOnly); err != nil {
		return nil, err
	}
	sol := s.newSol(SolOriginPseudo, heur)
	for _, v := range s.transprob.vars {
		sol.SetVal(v, s.pseudoVal(v))
	}

	return sol, nil
}

// NewOrigSol returns an empty solution in the original space; it is checked
// against the original constraints and bounds when added.
func (s *Solver) NewOrigSol(heur Heur) (*Sol, error) {
	if err := s.checkStage("NewOrigSol", stagesWithProblem); err != nil {
		return nil, err
	}
	sol := s.newSol(SolOriginOriginal, heur)
	sol.origin = SolOriginOriginal

	return sol, nil
}

// pseudoVal is the pseudo-solution value of an active variable.
func (s *Solver) pseudoVal(v *Var) float64 {
	inf := s.tol.Infinity()
	switch {
	case v.locLb > -inf && (v.obj >= 0 || v.locUb >= inf):
		return v.locLb
	case v.locUb < inf:
		return v.locUb
	default:
		return 0
	}
}

// VarPseudoVal returns v's value in the current pseudo solution, resolving
// fixings and aggregations.
func (s *Solver) VarPseudoVal(v *Var) float64 { return v.Val(s.pseudoVal) }

// Origin returns the solution's origin tag.
func (sol *Sol) Origin() SolOrigin { return sol.origin }

// Heur returns the finding heuristic, nil when none.
func (sol *Sol) Heur() Heur { return sol.heur }

// Index returns the store position, -1 while unstored.
func (sol *Sol) Index() int { return sol.index }

// Depth returns the tree depth the solution was found at.
func (sol *Sol) Depth() int { return sol.depth }

// NodeNum returns the node count at find time.
func (sol *Sol) NodeNum() int64 { return sol.nodenum }

// RunNum returns the solve run (restart counter) at find time.
func (sol *Sol) RunNum() int { return sol.runnum }

// FoundTime returns the solving time elapsed when the solution was found.
func (sol *Sol) FoundTime() time.Duration { return sol.foundTime }

// SetVal assigns v's value, keeping the objective incremental. Only active
// (or original, for original-space solutions) variables may be assigned.
func (sol *Sol) SetVal(v *Var, val float64) {
	old := sol.vals[v]
	sol.vals[v] = val
	sol.obj += v.obj * (val - old)
}

// Val resolves v's value in this solution, computing fixed, aggregated and
// negated variables from their links.
func (sol *Sol) Val(v *Var) float64 {
	return v.Val(func(a *Var) float64 { return sol.vals[a] })
}

// Obj returns the solution objective: internal frame for transformed
// solutions (including the fixed-variable offset), external frame for
// original-space ones.
func (sol *Sol) Obj() float64 {
	if sol.origin == SolOriginOriginal {
		return sol.obj
	}

	return sol.obj + sol.solver.transOffset()
}

// ObjExternal maps the objective to the user's frame.
func (sol *Sol) ObjExternal() float64 {
	if sol.origin == SolOriginOriginal {
		return sol.obj
	}

	return sol.solver.retransformObj(sol.Obj())
}
