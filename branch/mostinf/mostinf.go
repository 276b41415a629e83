// Package mostinf provides most-infeasible branching: among the integer
// variables with fractional LP values, the one whose fractionality is
// closest to one half is split.
package mostinf

import (
	"math"

	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/numerics"
)

// Rule is the most-infeasible branching rule.
type Rule struct{}

// New returns the rule.
func New() *Rule { return &Rule{} }

// Name returns "mostinf".
func (r *Rule) Name() string { return "mostinf" }

// Priority orders the rule among the registered branching rules.
func (r *Rule) Priority() int { return 100 }

// MaxDepth does not limit the rule.
func (r *Rule) MaxDepth() int { return -1 }

// MaxBoundDist allows the rule at every open node.
func (r *Rule) MaxBoundDist() float64 { return 1 }

// ExecLP branches on the most fractional LP candidate.
func (r *Rule) ExecLP(s *cip.Solver) (cip.Result, error) {
	vars, vals, fracs, err := s.BranchCands()
	if err != nil {
		return cip.ResultDidNotRun, err
	}
	if len(vars) == 0 {
		return cip.ResultDidNotRun, nil
	}

	best := 0
	bestInf := infeasibility(fracs[0])
	for i := 1; i < len(vars); i++ {
		if inf := infeasibility(fracs[i]); inf > bestInf ||
			(inf == bestInf && vars[i].BranchPriority() > vars[best].BranchPriority()) {
			best = i
			bestInf = inf
		}
	}

	if err := s.BranchVar(vars[best], vals[best]); err != nil {
		return cip.ResultDidNotRun, err
	}

	return cip.ResultBranched, nil
}

// ExecPS branches on the unfixed integer variable with the widest local
// domain, splitting it in the middle.
func (r *Rule) ExecPS(s *cip.Solver) (cip.Result, error) {
	cands := s.PseudoCands()
	if len(cands) == 0 {
		return cip.ResultDidNotRun, nil
	}

	tol := s.Tolerances()
	var (
		best      *cip.Var
		bestWidth = -1.0
	)
	for _, v := range cands {
		width := v.LocUb() - v.LocLb()
		if tol.IsInfinity(v.LocUb()) || tol.IsNegInfinity(v.LocLb()) {
			width = tol.Infinity()
		}
		if width > bestWidth {
			best = v
			bestWidth = width
		}
	}

	if err := s.BranchVar(best, midpoint(tol, best)); err != nil {
		return cip.ResultDidNotRun, err
	}

	return cip.ResultBranched, nil
}

// infeasibility is the distance of the fractional part from the nearest
// integer, maximal at one half.
func infeasibility(frac float64) float64 {
	return math.Min(frac, 1-frac)
}

func midpoint(tol *numerics.Tolerances, v *cip.Var) float64 {
	lb, ub := v.LocLb(), v.LocUb()
	switch {
	case !tol.IsNegInfinity(lb) && !tol.IsInfinity(ub):
		return lb + (ub-lb)/2
	case !tol.IsNegInfinity(lb):
		return lb
	case !tol.IsInfinity(ub):
		return ub
	default:
		return 0
	}
}
