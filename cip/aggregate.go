package cip

import (
	"fmt"
	"math"
)

// FixVar fixes a transformed variable to val during presolving. It returns
// (infeasible, fixed): infeasible when val contradicts the domain or an
// earlier fixing, fixed when the variable actually changed status.
func (s *Solver) FixVar(v *Var, val float64) (infeasible, fixed bool, err error) {
	if err := s.checkStage("FixVar", stagesPresolvingOnly); err != nil {
		return false, false, err
	}
	if v.original {
		return false, false, fmt.Errorf("%w: FixVar on original variable <%s>", ErrInvalidCall, v.name)
	}
	if v.vtype.IsIntegral() && !s.tol.FeasIntegral(val) {
		return true, false, nil
	}
	switch v.status {
	case StatusFixed:
		return !s.tol.FeasEq(v.fixedVal, val), false, nil
	case StatusAggregated, StatusMultiAggr, StatusNegated:
		return false, false, fmt.Errorf("%w: FixVar on %s variable <%s>", ErrInvalidCall, v.status, v.name)
	case StatusOriginal, StatusLoose, StatusColumn:
	}
	if s.tol.FeasLt(val, v.glbLb) || s.tol.FeasGt(val, v.glbUb) {
		return true, false, nil
	}
	if v.vtype.IsIntegral() {
		val = math.Round(val)
	}

	v.status = StatusFixed
	v.fixedVal = val
	v.glbLb, v.glbUb = val, val
	v.locLb, v.locUb = val, val
	s.transprob.objoffset += v.obj * val
	v.obj = 0
	s.transprob.removeVar(v)
	s.transprob.fixedVars = append(s.transprob.fixedVars, v)
	if err := s.publishEvent(&Event{Type: EventVarFixed, Var: v}); err != nil {
		return false, false, err
	}
	s.stat.NRootFixings++

	return false, true, nil
}

// AggregateVars eliminates one of x, y using the equality a·x + b·y = c.
// For an integer pair where neither scaled coefficient is ±1 an auxiliary
// integer variable is introduced and both x and y are aggregated onto it.
// Returns (infeasible, aggregated).
func (s *Solver) AggregateVars(x, y *Var, a, b, c float64) (infeasible, aggregated bool, err error) {
	if err := s.checkStage("AggregateVars", stagesPresolvingOnly); err != nil {
		return false, false, err
	}
	if a == 0 && b == 0 {
		return !s.tol.FeasZero(c), false, nil
	}
	if x == y {
		if s.tol.Zero(a + b) {
			return !s.tol.FeasZero(c), false, nil
		}
		infeasible, _, err = s.FixVar(x, c/(a+b))

		return infeasible, false, err
	}
	if a == 0 {
		infeasible, _, err = s.FixVar(y, c/b)

		return infeasible, false, err
	}
	if b == 0 {
		infeasible, _, err = s.FixVar(x, c/a)

		return infeasible, false, err
	}
	if !x.IsActive() || !y.IsActive() {
		return false, false, fmt.Errorf("%w: aggregation of inactive variable <%s>/<%s>", ErrInvalidCall, x.name, y.name)
	}

	// Prefer eliminating the less constrained variable: continuous before
	// implicit-integer before integer before binary.
	if aggRank(x.vtype) < aggRank(y.vtype) ||
		(aggRank(x.vtype) == aggRank(y.vtype) && x.index > y.index) {
		x, y = y, x
		a, b = b, a
	}
	// Now y is the elimination candidate: y := (c − a·x)/b.
	scalar := -a / b
	constant := c / b
	if !y.vtype.IsIntegral() {
		return s.aggregateVar(y, x, scalar, constant)
	}
	if y.vtype == VarImplInt {
		// Fractional links would lose the implied integrality, so keep
		// the pair unless the link is integral.
		if !s.tol.Integral(scalar) || !s.tol.Integral(constant) {
			return false, false, nil
		}

		return s.aggregateVar(y, x, scalar, constant)
	}
	if s.tol.Integral(scalar) && s.tol.Integral(constant) {
		return s.aggregateVar(y, x, scalar, constant)
	}
	if !x.vtype.IsIntegral() {
		// x is continuous and its coefficient nonzero: eliminate x instead.
		return s.aggregateVar(x, y, -b/a, c/a)
	}

	return s.aggregateIntPair(x, y, a, b, c)
}

func aggRank(t VarType) int {
	switch t {
	case VarContinuous:
		return 0
	case VarImplInt:
		return 1
	case VarInteger:
		return 2
	default:
		return 3
	}
}

// aggregateIntPair handles a·x + b·y = c for two integer variables where
// the direct substitution would be fractional. The coefficients are scaled
// by their gcd; if the scaled right-hand side is fractional the equation
// has no integer solution. Otherwise an auxiliary integer z parameterizes
// the solution set: x = x₀ + b′·z, y = y₀ − a′·z with 0 ≤ y₀ < |a′|.
func (s *Solver) aggregateIntPair(x, y *Var, a, b, c float64) (infeasible, aggregated bool, err error) {
	if !s.tol.Integral(a) || !s.tol.Integral(b) || !s.tol.Integral(c) {
		return false, false, nil
	}
	ai, bi, ci := int64(math.Round(a)), int64(math.Round(b)), int64(math.Round(c))
	g := gcd64(abs64(ai), abs64(bi))
	if ci%g != 0 {
		return true, false, nil
	}
	ai /= g
	bi /= g
	ci /= g
	if abs64(ai) == 1 {
		// x = (c′ − b′·y)/a′ is integral again after scaling.
		return s.aggregateVar(x, y, float64(-bi)/float64(ai), float64(ci)/float64(ai))
	}
	if abs64(bi) == 1 {
		return s.aggregateVar(y, x, float64(-ai)/float64(bi), float64(ci)/float64(bi))
	}

	// Extended Euclid: u·a′ + v·b′ = 1, so (u·c′, v·c′) solves the
	// equation. Shift into the representative with 0 ≤ y₀ < |a′|.
	_, v := extGCD(ai, bi)
	m := abs64(ai)
	y0 := ((v * ci % m) + m) % m
	x0 := (ci - bi*y0) / ai

	// Bounds of z from x = x0 + b′·z and y = y0 − a′·z.
	zlb := math.Inf(-1)
	zub := math.Inf(1)
	zlb, zub = intersectLinearRange(zlb, zub, float64(bi), v2lb(s, x), v2ub(s, x), float64(x0))
	zlb, zub = intersectLinearRange(zlb, zub, float64(-ai), v2lb(s, y), v2ub(s, y), float64(y0))
	zlb = math.Ceil(zlb - s.tol.FeasTol())
	zub = math.Floor(zub + s.tol.FeasTol())
	if zlb > zub {
		return true, false, nil
	}
	if math.IsInf(zlb, -1) {
		zlb = -s.tol.Infinity()
	}
	if math.IsInf(zub, 1) {
		zub = s.tol.Infinity()
	}

	z := &Var{
		name:         fmt.Sprintf("aggr_%s_%s", x.name, y.name),
		vtype:        VarInteger,
		status:       StatusLoose,
		glbLb:        zlb,
		glbUb:        zub,
		locLb:        zlb,
		locUb:        zub,
		probindex:    -1,
		index:        s.nextVarIndex(),
		col:          -1,
		branchFactor: 1,
		lbchgidx:     -1,
		ubchgidx:     -1,
		nuses:        1,
		solver:       s,
	}
	if err := s.addTransVar(z); err != nil {
		return false, false, err
	}
	infeasible, aggregated, err = s.aggregateVar(x, z, float64(bi), float64(x0))
	if err != nil || infeasible {
		return infeasible, false, err
	}
	if !aggregated {
		// z's range is a single value, so x was fixed along with z;
		// finish the reduction by fixing y too.
		infeasible, _, err = s.FixVar(y, float64(y0)-float64(ai)*z.fixedVal)
		if err != nil || infeasible {
			return infeasible, false, err
		}

		return false, true, nil
	}
	infeasible, aggregated, err = s.aggregateVar(y, z, float64(-ai), float64(y0))
	if err != nil || infeasible {
		return infeasible, false, err
	}
	if !aggregated && !y.IsActive() {
		// Aggregating y collapsed z: x now resolves through the fixed z
		// and y is fixed, so the pair reduction still happened.
		return false, true, nil
	}

	return false, aggregated, nil
}

func v2lb(s *Solver, v *Var) float64 {
	if s.tol.IsNegInfinity(v.glbLb) {
		return math.Inf(-1)
	}

	return v.glbLb
}

func v2ub(s *Solver, v *Var) float64 {
	if s.tol.IsInfinity(v.glbUb) {
		return math.Inf(1)
	}

	return v.glbUb
}

// intersectLinearRange narrows [zlb,zub] with lb ≤ coef·z + off ≤ ub.
func intersectLinearRange(zlb, zub, coef, lb, ub, off float64) (float64, float64) {
	lo := (lb - off) / coef
	hi := (ub - off) / coef
	if coef < 0 {
		lo, hi = hi, lo
	}
	if lo > zlb {
		zlb = lo
	}
	if hi < zub {
		zub = hi
	}

	return zlb, zub
}

// aggregateVar performs v := scalar·target + constant, moving objective,
// locks, and bounds onto target.
func (s *Solver) aggregateVar(v, target *Var, scalar, constant float64) (infeasible, aggregated bool, err error) {
	if scalar == 0 {
		infeasible, _, err = s.FixVar(v, constant)

		return infeasible, false, err
	}
	if !target.IsActive() {
		return false, false, fmt.Errorf("%w: aggregation target <%s> is not active", ErrInvalidCall, target.name)
	}

	// Tighten target's global bounds from v's domain.
	tlb := math.Inf(-1)
	tub := math.Inf(1)
	tlb, tub = intersectLinearRange(tlb, tub, scalar, v2lb(s, v), v2ub(s, v), constant)
	if target.vtype.IsIntegral() {
		tlb = math.Ceil(tlb - s.tol.FeasTol())
		tub = math.Floor(tub + s.tol.FeasTol())
	}
	if s.tol.FeasLt(tub, target.glbLb) || s.tol.FeasGt(tlb, target.glbUb) {
		return true, false, nil
	}
	if tlb > target.glbLb && !math.IsInf(tlb, -1) {
		if err := s.ChgVarLbGlobal(target, tlb); err != nil {
			return false, false, err
		}
	}
	if tub < target.glbUb && !math.IsInf(tub, 1) {
		if err := s.ChgVarUbGlobal(target, tub); err != nil {
			return false, false, err
		}
	}
	if s.tol.FeasEq(target.glbLb, target.glbUb) {
		if infeasible, _, err = s.FixVar(target, target.glbLb); err != nil || infeasible {
			return infeasible, false, err
		}
		infeasible, _, err = s.FixVar(v, scalar*target.fixedVal+constant)

		return infeasible, false, err
	}

	// Move the objective: obj(v)·(scalar·t + constant).
	target.obj += scalar * v.obj
	s.transprob.objoffset += constant * v.obj
	v.obj = 0

	// Transfer the lock counters through the sign of the link.
	down, up := v.nlocksDown, v.nlocksUp
	if scalar > 0 {
		target.nlocksDown += down
		target.nlocksUp += up
	} else {
		target.nlocksDown += up
		target.nlocksUp += down
	}

	v.status = StatusAggregated
	v.aggr = aggregate{v: target, scalar: scalar, constant: constant}
	s.transprob.removeVar(v)
	s.transprob.fixedVars = append(s.transprob.fixedVars, v)
	if err := s.publishEvent(&Event{Type: EventVarFixed, Var: v}); err != nil {
		return false, false, err
	}
	s.stat.NRootFixings++

	return false, true, nil
}

// MultiAggregateVar performs v := Σ scalars[i]·vars[i] + constant. The
// variable leaves the active problem but stays resolvable; it must not be
// referenced by branching afterwards.
func (s *Solver) MultiAggregateVar(v *Var, vars []*Var, scalars []float64, constant float64) (infeasible, aggregated bool, err error) {
	if err := s.checkStage("MultiAggregateVar", stagesPresolvingOnly); err != nil {
		return false, false, err
	}
	if len(vars) != len(scalars) {
		return false, false, fmt.Errorf("%w: multi-aggregation with %d variables but %d scalars", ErrInvalidData, len(vars), len(scalars))
	}
	switch len(vars) {
	case 0:
		infeasible, _, err := s.FixVar(v, constant)

		return infeasible, false, err
	case 1:
		return s.aggregateVar(v, vars[0], scalars[0], constant)
	}
	if !v.IsActive() {
		return false, false, fmt.Errorf("%w: multi-aggregation of inactive variable <%s>", ErrInvalidCall, v.name)
	}
	for _, av := range vars {
		if !av.IsActive() {
			return false, false, fmt.Errorf("%w: multi-aggregation over inactive variable <%s>", ErrInvalidCall, av.name)
		}
		if av == v {
			return false, false, fmt.Errorf("%w: multi-aggregation of <%s> over itself", ErrInvalidData, v.name)
		}
	}

	// Move the objective onto the active members.
	for i, av := range vars {
		av.obj += scalars[i] * v.obj
	}
	s.transprob.objoffset += constant * v.obj
	v.obj = 0

	// Multi-aggregated variables are locked on both sides of every member;
	// the aggregation can push any of them either way.
	for _, av := range vars {
		av.nlocksDown += v.nlocksDown + v.nlocksUp
		av.nlocksUp += v.nlocksDown + v.nlocksUp
	}

	v.status = StatusMultiAggr
	v.multaggr = multiAggregate{
		vars:     append([]*Var(nil), vars...),
		scalars:  append([]float64(nil), scalars...),
		constant: constant,
	}
	s.transprob.removeVar(v)
	s.transprob.fixedVars = append(s.transprob.fixedVars, v)
	if err := s.publishEvent(&Event{Type: EventVarFixed, Var: v}); err != nil {
		return false, false, err
	}
	s.stat.NRootFixings++

	return false, true, nil
}

// flattenAggregations rewrites multi-aggregations whose members were
// themselves fixed or aggregated in later rounds, so that every stored
// link references active variables only.
func (s *Solver) flattenAggregations() {
	for _, v := range s.transprob.fixedVars {
		if v.status != StatusMultiAggr {
			continue
		}
		var (
			vars     []*Var
			scalars  []float64
			constant = v.multaggr.constant
			changed  bool
		)
		for i, mv := range v.multaggr.vars {
			sc := v.multaggr.scalars[i]
			switch mv.status {
			case StatusFixed:
				constant += sc * mv.fixedVal
				changed = true
			case StatusAggregated:
				vars = append(vars, mv.aggr.v)
				scalars = append(scalars, sc*mv.aggr.scalar)
				constant += sc * mv.aggr.constant
				changed = true
			case StatusNegated:
				vars = append(vars, mv.negvar)
				scalars = append(scalars, -sc)
				constant += sc * mv.negConst
				changed = true
			default:
				vars = append(vars, mv)
				scalars = append(scalars, sc)
			}
		}
		if changed {
			v.multaggr = multiAggregate{vars: vars, scalars: scalars, constant: constant}
		}
	}
}

func gcd64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}

	return a
}

func abs64(a int64) int64 {
	if a < 0 {
		return -a
	}

	return a
}

// extGCD returns u, v with u·a + v·b = gcd(a, b) for nonzero a, b.
func extGCD(a, b int64) (int64, int64) {
	u0, v0 := int64(1), int64(0)
	u1, v1 := int64(0), int64(1)
	for b != 0 {
		q := a / b
		a, b = b, a-q*b
		u0, u1 = u1, u0-q*u1
		v0, v1 = v1, v0-q*v1
	}
	if a < 0 {
		u0, v0 = -u0, -v0
	}

	return u0, v0
}
