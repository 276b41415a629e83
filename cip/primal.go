package cip

import (
	"fmt"
	"math"
	"sort"
)

// primalStore keeps the accepted primal solutions ordered by objective
// (internal frame, ascending; creation index breaks ties
// deterministically), and maintains the upper and cutoff bounds.
type primalStore struct {
	sols []*Sol

	upperbound  float64 // min(transformed objlimit, best solution)
	cutoffbound float64 // bound handed to the LP and the tree

	nSolsFound     int64
	nBestSolsFound int64
	nextIndex      int
}

func newPrimalStore(inf float64) *primalStore {
	return &primalStore{upperbound: inf, cutoffbound: inf}
}

// NSols returns the number of stored solutions.
func (s *Solver) NSols() int {
	if s.primal == nil {
		return 0
	}

	return len(s.primal.sols)
}

// NSolsFound returns the number of accepted solutions over the whole solve.
func (s *Solver) NSolsFound() int64 {
	if s.primal == nil {
		return 0
	}

	return s.primal.nSolsFound
}

// BestSol returns the incumbent, or nil.
func (s *Solver) BestSol() *Sol {
	if s.primal == nil || len(s.primal.sols) == 0 {
		return nil
	}

	return s.primal.sols[0]
}

// Sols returns the stored solutions, best first. The slice is shared; do
// not mutate.
func (s *Solver) Sols() []*Sol {
	if s.primal == nil {
		return nil
	}

	return s.primal.sols
}

// UpperBound returns the internal-frame upper bound.
func (s *Solver) UpperBound() float64 {
	if s.primal == nil {
		return s.tol.Infinity()
	}

	return s.primal.upperbound
}

// CutoffBound returns the internal-frame cutoff bound the tree prunes
// against.
func (s *Solver) CutoffBound() float64 {
	if s.primal == nil {
		return s.tol.Infinity()
	}

	return s.primal.cutoffbound
}

// PrimalBound returns the external-frame primal bound.
func (s *Solver) PrimalBound() float64 {
	ub := s.UpperBound()
	if s.tol.IsInfinity(ub) {
		if s.objsense == Maximize {
			return math.Inf(-1)
		}

		return math.Inf(1)
	}

	return s.retransformObj(ub)
}

// TrySol submits sol to the store: it is checked, and accepted only when it
// strictly improves the upper bound. Rejection is not an error; the stored
// flag reports the outcome.
func (s *Solver) TrySol(sol *Sol, printReason bool) (stored bool, err error) {
	if err = s.checkStage("TrySol", stagesTransSolving); err != nil {
		return false, err
	}

	tsol, obj, err := s.solInternalObj(sol)
	if err != nil {
		return false, err
	}
	// Improvement gate before the possibly expensive check.
	if !s.tol.Lt(obj, s.primal.upperbound) {
		return false, nil
	}
	feasible, err := s.CheckSol(sol, true, false, printReason)
	if err != nil || !feasible {
		return false, err
	}

	return true, s.addSol(tsol, obj)
}

// AddSolFree is TrySol for callers done with the solution either way.
func (s *Solver) AddSolFree(sol *Sol, printReason bool) (bool, error) {
	return s.TrySol(sol, printReason)
}

// solInternalObj maps sol to a transformed solution and its internal
// objective. Original-space solutions are translated through the variable
// links.
func (s *Solver) solInternalObj(sol *Sol) (*Sol, float64, error) {
	if sol.origin != SolOriginOriginal {
		return sol, sol.Obj(), nil
	}
	if s.transprob == nil {
		return nil, 0, fmt.Errorf("%w: original solution needs a transformed problem", ErrInvalidCall)
	}
	tsol := s.newSol(SolOriginVector, sol.heur)
	for _, v := range s.transprob.vars {
		ov := v.origvar
		if ov == nil {
			continue
		}
		tsol.SetVal(v, sol.vals[ov])
	}
	tsol.obj = s.transformObjVal(sol.obj) - s.transOffset()

	return tsol, tsol.Obj(), nil
}

// CheckSol verifies sol: original solutions against original constraints
// and bounds, transformed solutions against transformed bounds,
// integrality, the check-flagged constraints, and optionally the LP rows.
func (s *Solver) CheckSol(sol *Sol, checkIntegrality, checkLPRows, printReason bool) (bool, error) {
	if err := s.checkStage("CheckSol", stagesTransSolving); err != nil {
		return false, err
	}

	prob := s.transprob
	if sol.origin == SolOriginOriginal {
		prob = s.origprob
	}

	for _, v := range prob.vars {
		val := sol.Val(v)
		lb, ub := v.glbLb, v.glbUb
		if s.tol.FeasLt(val, lb) || s.tol.FeasGt(val, ub) {
			if printReason {
				s.log.Debug().Str("var", v.name).Float64("val", val).
					Float64("lb", lb).Float64("ub", ub).Msg("solution violates bounds")
			}

			return false, nil
		}
		if checkIntegrality && v.vtype.IsIntegral() && !s.tol.FeasIntegral(val) {
			if printReason {
				s.log.Debug().Str("var", v.name).Float64("val", val).Msg("solution violates integrality")
			}

			return false, nil
		}
	}

	for _, h := range s.conshdlrsByCheck() {
		conss := prob.consOfHdlr(h, true /* checkOnly */)
		if len(conss) == 0 {
			continue
		}
		res, err := h.Check(s, conss, sol, checkIntegrality, checkLPRows, printReason)
		if err != nil {
			return false, err
		}
		if res == ResultInfeasible {
			return false, nil
		}
		if res != ResultFeasible {
			return false, fmt.Errorf("%w: handler <%s> returned %s from Check", ErrInvalidData, h.Name(), res)
		}
	}

	return true, nil
}

// addSol inserts an already-checked improving solution and updates the
// bounds.
func (s *Solver) addSol(sol *Sol, obj float64) error {
	p := s.primal
	sol.index = p.nextIndex
	p.nextIndex++

	pos := sort.Search(len(p.sols), func(i int) bool {
		if p.sols[i].Obj() != obj {
			return p.sols[i].Obj() > obj
		}

		return p.sols[i].index > sol.index
	})
	p.sols = append(p.sols, nil)
	copy(p.sols[pos+1:], p.sols[pos:])
	p.sols[pos] = sol

	p.nSolsFound++
	s.stat.NSolsFound++
	best := pos == 0

	if best {
		p.nBestSolsFound++
		s.stat.NBestSolsFound++
		s.run.lastImprove = s.stat.NNodes
		p.upperbound = obj
		p.cutoffbound = s.cutoffFromUpper(obj)
		if s.lp != nil {
			s.lp.setCutoff(p.cutoffbound)
		}
		if s.tree != nil {
			s.tree.cutoffAbove(p.cutoffbound)
		}
		if err := s.publishEvent(&Event{Type: EventBestSolFound, Sol: sol}); err != nil {
			return err
		}
		s.logSolutionFound(sol)
	}

	return s.publishEvent(&Event{Type: EventSolFound, Sol: sol})
}

// cutoffFromUpper derives the tree/LP cutoff from an incumbent objective:
// with a fully integral objective the cutoff may be pulled below the next
// reachable value.
func (s *Solver) cutoffFromUpper(upper float64) float64 {
	if s.transprob != nil && s.transprob.objIsIntegral(s) {
		return s.tol.Ceil(upper) - 1 + s.tol.FeasTol()
	}

	return upper
}

// setObjlimitBound installs the transformed objective limit as the initial
// upper bound.
func (s *Solver) setObjlimitBound() {
	limit := s.transformObjVal(s.objlimit)
	if limit < s.primal.upperbound {
		s.primal.upperbound = limit
		s.primal.cutoffbound = limit
		if s.lp != nil {
			s.lp.setCutoff(limit)
		}
	}
}
