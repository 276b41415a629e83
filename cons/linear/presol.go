package linear

import (
	"math"

	"github.com/optimiq/gociap/cip"
)

// Presol applies the linear reductions: folding of inactive variables,
// infeasibility and redundancy detection, singleton fixing and bound
// tightening, pairwise aggregation of two-variable equalities, and global
// activity-based bound tightening.
func (h *Hdlr) Presol(s *cip.Solver, conss []*cip.Cons, nrounds int, res *cip.PresolStats) (cip.Result, error) {
	tol := s.Tolerances()
	result := cip.ResultDidNotFind

	for _, c := range conss {
		if c.IsDeleted() || !c.IsActive() {
			continue
		}
		d, err := consdata(c)
		if err != nil {
			return cip.ResultDidNotRun, err
		}

		if normalizeCons(s, d, res) {
			result = cip.ResultSuccess
		}

		minact, maxact := activityBounds(s, d, globalBounds)

		if tol.FeasGt(minact, d.rhs) || tol.FeasLt(maxact, d.lhs) {
			return cip.ResultCutoff, nil
		}

		if err := extractClique(s, d); err != nil {
			return cip.ResultDidNotRun, err
		}

		lhsRedundant := tol.IsNegInfinity(d.lhs) || !tol.FeasLt(minact, d.lhs)
		rhsRedundant := tol.IsInfinity(d.rhs) || !tol.FeasGt(maxact, d.rhs)
		if lhsRedundant && rhsRedundant {
			if err := s.DelCons(c); err != nil {
				return cip.ResultDidNotRun, err
			}
			res.NDelConss++
			result = cip.ResultSuccess
			continue
		}

		switch len(d.vars) {
		case 0:
			// Non-redundant empty constraint: 0 outside [lhs,rhs].
			return cip.ResultCutoff, nil

		case 1:
			done, infeasible, err := h.presolSingleton(s, c, d, res)
			if err != nil {
				return cip.ResultDidNotRun, err
			}
			if infeasible {
				return cip.ResultCutoff, nil
			}
			if done {
				result = cip.ResultSuccess
				continue
			}

		case 2:
			if tol.FeasEq(d.lhs, d.rhs) {
				infeasible, aggregated, err := s.AggregateVars(d.vars[0], d.vars[1], d.vals[0], d.vals[1], d.rhs)
				if err != nil {
					return cip.ResultDidNotRun, err
				}
				if infeasible {
					return cip.ResultCutoff, nil
				}
				if aggregated {
					if err := s.DelCons(c); err != nil {
						return cip.ResultDidNotRun, err
					}
					res.NAggrVars++
					res.NDelConss++
					result = cip.ResultSuccess
					continue
				}
			}
		}

		n, infeasible, err := h.tightenGlobalBounds(s, d, minact, maxact)
		if err != nil {
			return cip.ResultDidNotRun, err
		}
		if infeasible {
			return cip.ResultCutoff, nil
		}
		if n > 0 {
			res.NChgBds += n
			result = cip.ResultSuccess
		}
	}

	return result, nil
}

// extractClique recognizes the set-packing form of a row: unit
// coefficients over binaries with a right-hand side of one mean at most
// one member may be at its upper bound, which feeds the solver's clique
// table and implication graph.
func extractClique(s *cip.Solver, d *ConsData) error {
	if d.cliqued || len(d.vars) < 2 {
		return nil
	}
	tol := s.Tolerances()
	if !tol.FeasEq(d.rhs, 1) {
		return nil
	}
	values := make([]bool, len(d.vars))
	for i, v := range d.vars {
		if v.Type() != cip.VarBinary || !tol.FeasEq(d.vals[i], 1) {
			return nil
		}
		values[i] = true
	}
	d.cliqued = true
	_, err := s.AddClique(d.vars, values)

	return err
}

// normalizeCons folds fixed, aggregated and negated variables into active
// ones, moving constants to the sides and merging duplicate entries.
func normalizeCons(s *cip.Solver, d *ConsData, res *cip.PresolStats) bool {
	tol := s.Tolerances()
	needs := false
	for _, v := range d.vars {
		if !v.IsActive() {
			needs = true
			break
		}
	}
	if !needs {
		return false
	}

	pos := make(map[*cip.Var]int)
	var (
		vars  []*cip.Var
		vals  []float64
		shift float64
	)
	for i, v := range d.vars {
		avars, ascalars, aconst := v.ActiveRepresentation()
		shift += d.vals[i] * aconst
		for j, av := range avars {
			coef := d.vals[i] * ascalars[j]
			if k, ok := pos[av]; ok {
				vals[k] += coef
				continue
			}
			pos[av] = len(vars)
			vars = append(vars, av)
			vals = append(vals, coef)
		}
	}

	// Drop entries that cancelled out.
	kept := 0
	for i := range vars {
		if tol.Zero(vals[i]) {
			continue
		}
		vars[kept] = vars[i]
		vals[kept] = vals[i]
		kept++
	}
	d.vars = vars[:kept]
	d.vals = vals[:kept]

	if shift != 0 {
		if !tol.IsNegInfinity(d.lhs) {
			d.lhs -= shift
		}
		if !tol.IsInfinity(d.rhs) {
			d.rhs -= shift
		}
		res.NChgSides++
	}
	res.NChgCoefs++

	return true
}

// presolSingleton turns a one-variable constraint into bounds or a fixing
// and removes it.
func (h *Hdlr) presolSingleton(s *cip.Solver, c *cip.Cons, d *ConsData, res *cip.PresolStats) (done, infeasible bool, err error) {
	tol := s.Tolerances()
	v := d.vars[0]
	a := d.vals[0]
	if !v.IsActive() {
		return false, false, nil
	}

	lo, hi := math.Inf(-1), math.Inf(1)
	if !tol.IsNegInfinity(d.lhs) {
		lo = d.lhs / a
	}
	if !tol.IsInfinity(d.rhs) {
		hi = d.rhs / a
	}
	if a < 0 {
		lo, hi = hi, lo
	}

	if tol.FeasEq(d.lhs, d.rhs) {
		infeasible, fixed, err := s.FixVar(v, d.rhs/a)
		if err != nil || infeasible {
			return false, infeasible, err
		}
		if fixed {
			res.NFixedVars++
		}
	} else {
		if !math.IsInf(lo, -1) && tol.Gt(lo, v.GlbLb()) {
			if tol.FeasGt(lo, v.GlbUb()) {
				return false, true, nil
			}
			if err := s.ChgVarLbGlobal(v, lo); err != nil {
				return false, false, err
			}
			res.NChgBds++
		}
		if !math.IsInf(hi, 1) && tol.Lt(hi, v.GlbUb()) {
			if tol.FeasLt(hi, v.GlbLb()) {
				return false, true, nil
			}
			if err := s.ChgVarUbGlobal(v, hi); err != nil {
				return false, false, err
			}
			res.NChgBds++
		}
		if tol.FeasEq(v.GlbLb(), v.GlbUb()) {
			infeasible, fixed, err := s.FixVar(v, v.GlbLb())
			if err != nil || infeasible {
				return false, infeasible, err
			}
			if fixed {
				res.NFixedVars++
			}
		}
	}

	if err := s.DelCons(c); err != nil {
		return false, false, err
	}
	res.NDelConss++

	return true, false, nil
}

// tightenGlobalBounds mirrors the node propagation on the global domain.
func (h *Hdlr) tightenGlobalBounds(s *cip.Solver, d *ConsData, minact, maxact float64) (int, bool, error) {
	tol := s.Tolerances()
	tightened := 0
	for i, v := range d.vars {
		a := d.vals[i]
		if a == 0 || !v.IsActive() {
			continue
		}
		lb, ub := clipInf(tol, v.GlbLb(), v.GlbUb())
		lo, hi := a*lb, a*ub
		if a < 0 {
			lo, hi = hi, lo
		}
		minres, maxres := math.Inf(-1), math.Inf(1)
		if !math.IsInf(lo, 0) {
			minres = residual(minact, lo)
		}
		if !math.IsInf(hi, 0) {
			maxres = residual(maxact, hi)
		}

		if !tol.IsInfinity(d.rhs) && !math.IsInf(minres, -1) {
			bound := (d.rhs - minres) / a
			if a > 0 {
				if v.Type().IsIntegral() {
					bound = tol.FeasFloor(bound)
				}
				if tol.Lt(bound, v.GlbUb()) {
					if tol.FeasLt(bound, v.GlbLb()) {
						return tightened, true, nil
					}
					if err := s.ChgVarUbGlobal(v, bound); err != nil {
						return tightened, false, err
					}
					tightened++
				}
			} else {
				if v.Type().IsIntegral() {
					bound = tol.FeasCeil(bound)
				}
				if tol.Gt(bound, v.GlbLb()) {
					if tol.FeasGt(bound, v.GlbUb()) {
						return tightened, true, nil
					}
					if err := s.ChgVarLbGlobal(v, bound); err != nil {
						return tightened, false, err
					}
					tightened++
				}
			}
		}
		if !tol.IsNegInfinity(d.lhs) && !math.IsInf(maxres, 1) {
			bound := (d.lhs - maxres) / a
			if a > 0 {
				if v.Type().IsIntegral() {
					bound = tol.FeasCeil(bound)
				}
				if tol.Gt(bound, v.GlbLb()) {
					if tol.FeasGt(bound, v.GlbUb()) {
						return tightened, true, nil
					}
					if err := s.ChgVarLbGlobal(v, bound); err != nil {
						return tightened, false, err
					}
					tightened++
				}
			} else {
				if v.Type().IsIntegral() {
					bound = tol.FeasFloor(bound)
				}
				if tol.Lt(bound, v.GlbUb()) {
					if tol.FeasLt(bound, v.GlbLb()) {
						return tightened, true, nil
					}
					if err := s.ChgVarUbGlobal(v, bound); err != nil {
						return tightened, false, err
					}
					tightened++
				}
			}
		}
	}

	return tightened, false, nil
}
