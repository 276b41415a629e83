// Package rounding provides a primal heuristic that rounds the fractional
// values of the LP solution, choosing the rounding direction with fewer
// locks, and submits the result as a candidate incumbent.
package rounding

import (
	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/lpi"
)

// Heur is the rounding heuristic.
type Heur struct {
	nCalls, nFound int64
}

// New returns the rounding heuristic.
func New() *Heur { return &Heur{} }

// Name returns "rounding".
func (h *Heur) Name() string { return "rounding" }

// DispChar tags solutions found by this heuristic.
func (h *Heur) DispChar() byte { return 'R' }

// Priority orders the heuristic among its timing peers.
func (h *Heur) Priority() int { return -1000 }

// Freq runs the heuristic at every depth.
func (h *Heur) Freq() int { return 1 }

// FreqOffset returns the depth offset.
func (h *Heur) FreqOffset() int { return 0 }

// MaxDepth does not limit the heuristic.
func (h *Heur) MaxDepth() int { return -1 }

// Timing runs after the node's LP.
func (h *Heur) Timing() cip.HeurTiming { return cip.HeurAfterLP }

// NCalls returns the number of executions.
func (h *Heur) NCalls() int64 { return h.nCalls }

// NFound returns the number of accepted solutions.
func (h *Heur) NFound() int64 { return h.nFound }

// Exec rounds the LP solution and offers it to the solution store.
func (h *Heur) Exec(s *cip.Solver, timing cip.HeurTiming) (cip.Result, error) {
	if s.LPSolstat() != lpi.StatOptimal {
		return cip.ResultDidNotRun, nil
	}
	h.nCalls++

	sol, err := s.NewSolFromLP(h)
	if err != nil {
		return cip.ResultDidNotRun, err
	}

	tol := s.Tolerances()
	rounded := false
	for _, v := range s.TransProb().Vars() {
		if !v.Type().IsIntegral() {
			continue
		}
		val := sol.Val(v)
		if tol.FeasIntegral(val) {
			continue
		}

		// Round against the smaller lock count: fewer constraints can be
		// violated in that direction.
		var target float64
		if v.NLocksUp() < v.NLocksDown() {
			target = tol.FeasCeil(val)
		} else {
			target = tol.FeasFloor(val)
		}
		if target < v.LocLb() {
			target = v.LocLb()
		}
		if target > v.LocUb() {
			target = v.LocUb()
		}
		sol.SetVal(v, target)
		rounded = true
	}
	if !rounded {
		return cip.ResultDidNotFind, nil
	}

	stored, err := s.TrySol(sol, false)
	if err != nil {
		return cip.ResultDidNotFind, err
	}
	if stored {
		h.nFound++

		return cip.ResultSuccess, nil
	}

	return cip.ResultDidNotFind, nil
}
