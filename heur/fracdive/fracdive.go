// Package fracdive provides a primal heuristic that dives on the LP: it
// repeatedly fixes the integral variable closest to an integer value to its
// nearest integer inside an LP dive and re-solves, hoping to reach an
// integral solution without touching the node's domains.
package fracdive

import (
	"math"

	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/lpi"
)

// maxDiveDepth caps the number of fix-and-resolve rounds per call.
const maxDiveDepth = 100

// Heur is the fractional diving heuristic.
type Heur struct {
	nCalls, nFound int64
}

// New returns the fractional diving heuristic.
func New() *Heur { return &Heur{} }

// Name returns "fracdive".
func (h *Heur) Name() string { return "fracdive" }

// DispChar tags solutions found by this heuristic.
func (h *Heur) DispChar() byte { return 'F' }

// Priority orders the heuristic among its timing peers.
func (h *Heur) Priority() int { return -1003 }

// Freq runs the heuristic every tenth depth.
func (h *Heur) Freq() int { return 10 }

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

// Exec dives on the LP, fixing the least fractional variable each round,
// and offers any integral LP solution it reaches to the solution store.
func (h *Heur) Exec(s *cip.Solver, timing cip.HeurTiming) (cip.Result, error) {
	if s.LPSolstat() != lpi.StatOptimal {
		return cip.ResultDidNotRun, nil
	}
	if pickCandidate(s) == nil {
		// The LP solution is already integral; enforcement handles it.
		return cip.ResultDidNotRun, nil
	}
	h.nCalls++

	if err := s.StartDive(); err != nil {
		return cip.ResultDidNotRun, err
	}
	res, err := h.dive(s)
	if enderr := s.EndDive(); err == nil {
		err = enderr
	}
	if err != nil {
		return cip.ResultDidNotFind, err
	}

	return res, nil
}

func (h *Heur) dive(s *cip.Solver) (cip.Result, error) {
	for depth := 0; depth < maxDiveDepth; depth++ {
		v := pickCandidate(s)
		if v == nil {
			// Integral dive LP: submit it as a candidate incumbent.
			sol, err := s.NewSolFromLP(h)
			if err != nil {
				return cip.ResultDidNotFind, err
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

		target := math.Round(s.VarLPVal(v))
		if target < s.VarLbDive(v) {
			target = s.VarLbDive(v)
		}
		if target > s.VarUbDive(v) {
			target = s.VarUbDive(v)
		}
		if err := s.ChgVarLbDive(v, target); err != nil {
			return cip.ResultDidNotFind, err
		}
		if err := s.ChgVarUbDive(v, target); err != nil {
			return cip.ResultDidNotFind, err
		}

		stat, err := s.SolveDiveLP(-1)
		if err != nil {
			return cip.ResultDidNotFind, err
		}
		if stat != lpi.StatOptimal {
			// The dive ran into infeasibility or the cutoff; give up.
			return cip.ResultDidNotFind, nil
		}
	}

	return cip.ResultDidNotFind, nil
}

// pickCandidate returns the integral column variable whose LP value is
// fractional but closest to an integer, or nil if the LP solution is
// integral on all of them.
func pickCandidate(s *cip.Solver) *cip.Var {
	tol := s.Tolerances()
	var best *cip.Var
	bestDist := math.Inf(1)
	for _, v := range s.TransProb().Vars() {
		if !v.Type().IsIntegral() {
			continue
		}
		val := s.VarLPVal(v)
		if tol.FeasIntegral(val) {
			continue
		}
		dist := math.Abs(val - math.Round(val))
		if dist < bestDist {
			bestDist = dist
			best = v
		}
	}

	return best
}
