package linear

import (
	"fmt"
	"math"

	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/numerics"
)

// Plugin priorities follow the convention that integrality is enforced
// before linear feasibility.
const (
	checkPriority = -1000000
	enfoPriority  = -1000000
	sepaPriority  = 100
	sepaFreq      = 1
	propFreq      = 1
)

// ConsData is the payload of one linear constraint.
type ConsData struct {
	vars []*cip.Var
	vals []float64
	lhs  float64
	rhs  float64

	row *cip.Row // LP representation, built lazily

	cliqued bool // the set-packing clique was already extracted
}

// Vars returns the constraint's variables.
func (d *ConsData) Vars() []*cip.Var { return d.vars }

// Vals returns the coefficients, aligned with Vars.
func (d *ConsData) Vals() []float64 { return d.vals }

// Lhs returns the left-hand side.
func (d *ConsData) Lhs() float64 { return d.lhs }

// Rhs returns the right-hand side.
func (d *ConsData) Rhs() float64 { return d.rhs }

// Activity returns the constraint activity under the given values.
func (d *ConsData) Activity(val func(*cip.Var) float64) float64 {
	var act float64
	for i, v := range d.vars {
		act += d.vals[i] * val(v)
	}

	return act
}

// Hdlr is the linear constraint handler.
type Hdlr struct{}

// NewHdlr returns the linear constraint handler.
func NewHdlr() *Hdlr { return &Hdlr{} }

// Name returns "linear".
func (h *Hdlr) Name() string { return "linear" }

// Desc describes the handler.
func (h *Hdlr) Desc() string { return "linear constraints lhs <= a^T x <= rhs" }

// CheckPriority returns the feasibility-check priority.
func (h *Hdlr) CheckPriority() int { return checkPriority }

// EnfoPriority returns the enforcement priority.
func (h *Hdlr) EnfoPriority() int { return enfoPriority }

// SepaPriority returns the separation priority.
func (h *Hdlr) SepaPriority() int { return sepaPriority }

// SepaFreq returns the separation frequency.
func (h *Hdlr) SepaFreq() int { return sepaFreq }

// PropFreq returns the propagation frequency.
func (h *Hdlr) PropFreq() int { return propFreq }

// NewCons creates a linear constraint with the default flags (initial,
// separated, enforced, checked, propagated).
func NewCons(s *cip.Solver, name string, vars []*cip.Var, vals []float64, lhs, rhs float64) (*cip.Cons, error) {
	return NewConsFlags(s, name, vars, vals, lhs, rhs, cip.ConsFlags{
		Initial:   true,
		Separate:  true,
		Enforce:   true,
		Check:     true,
		Propagate: true,
	})
}

// NewConsFlags creates a linear constraint with explicit flags.
func NewConsFlags(s *cip.Solver, name string, vars []*cip.Var, vals []float64, lhs, rhs float64, flags cip.ConsFlags) (*cip.Cons, error) {
	if len(vars) != len(vals) {
		return nil, fmt.Errorf("linear constraint <%s>: %d variables but %d coefficients", name, len(vars), len(vals))
	}
	if lhs > rhs {
		return nil, fmt.Errorf("linear constraint <%s>: lhs %g exceeds rhs %g", name, lhs, rhs)
	}
	h, err := s.FindConshdlr("linear")
	if err != nil {
		return nil, err
	}
	data := &ConsData{
		vars: append([]*cip.Var(nil), vars...),
		vals: append([]float64(nil), vals...),
		lhs:  lhs,
		rhs:  rhs,
	}

	return s.NewCons(name, h, data, flags)
}

// consdata extracts the payload, guarding against foreign constraints.
func consdata(c *cip.Cons) (*ConsData, error) {
	d, ok := c.Data().(*ConsData)
	if !ok {
		return nil, fmt.Errorf("constraint <%s> carries no linear data", c.Name())
	}

	return d, nil
}

// Check tests feasibility of sol for all given linear constraints.
func (h *Hdlr) Check(s *cip.Solver, conss []*cip.Cons, sol *cip.Sol, checkIntegrality, checkLPRows, printReason bool) (cip.Result, error) {
	tol := s.Tolerances()
	for _, c := range conss {
		if !c.Flags().Check {
			continue
		}
		d, err := consdata(c)
		if err != nil {
			return cip.ResultDidNotRun, err
		}
		act := d.Activity(sol.Val)
		if tol.FeasLt(act, d.lhs) || tol.FeasGt(act, d.rhs) {
			if printReason {
				log := s.Logger()
				log.Info().
					Str("cons", c.Name()).
					Float64("activity", act).
					Float64("lhs", d.lhs).
					Float64("rhs", d.rhs).
					Msg("linear constraint violated")
			}

			return cip.ResultInfeasible, nil
		}
	}

	return cip.ResultFeasible, nil
}

// EnfoLP enforces the LP solution. A violated constraint whose row is not
// yet in the LP is separated; a violated constraint already represented in
// the LP is reported infeasible.
func (h *Hdlr) EnfoLP(s *cip.Solver, conss []*cip.Cons) (cip.Result, error) {
	tol := s.Tolerances()
	for _, c := range conss {
		if !c.Flags().Enforce {
			continue
		}
		d, err := consdata(c)
		if err != nil {
			return cip.ResultDidNotRun, err
		}
		act := d.Activity(s.VarLPVal)
		if !tol.FeasLt(act, d.lhs) && !tol.FeasGt(act, d.rhs) {
			continue
		}
		if d.row == nil || !d.row.IsInLP() {
			if err := h.addRowCut(s, c, d, true); err != nil {
				return cip.ResultDidNotRun, err
			}

			return cip.ResultSeparated, nil
		}

		return cip.ResultInfeasible, nil
	}

	return cip.ResultFeasible, nil
}

// EnfoPS enforces the pseudo solution.
func (h *Hdlr) EnfoPS(s *cip.Solver, conss []*cip.Cons, objinfeasible bool) (cip.Result, error) {
	if objinfeasible {
		return cip.ResultDidNotRun, nil
	}
	tol := s.Tolerances()
	for _, c := range conss {
		if !c.Flags().Enforce {
			continue
		}
		d, err := consdata(c)
		if err != nil {
			return cip.ResultDidNotRun, err
		}
		act := d.Activity(s.VarPseudoVal)
		if tol.FeasLt(act, d.lhs) || tol.FeasGt(act, d.rhs) {
			return cip.ResultInfeasible, nil
		}
	}

	return cip.ResultFeasible, nil
}

// Lock registers the rounding locks implied by the finite sides.
func (h *Hdlr) Lock(s *cip.Solver, c *cip.Cons, nlockspos, nlocksneg int) error {
	d, err := consdata(c)
	if err != nil {
		return err
	}
	tol := s.Tolerances()
	lhsFinite := !tol.IsNegInfinity(d.lhs)
	rhsFinite := !tol.IsInfinity(d.rhs)
	for i, v := range d.vars {
		if d.vals[i] > 0 {
			if lhsFinite {
				v.AddLocks(nlockspos, nlocksneg)
			}
			if rhsFinite {
				v.AddLocks(nlocksneg, nlockspos)
			}
		} else {
			if lhsFinite {
				v.AddLocks(nlocksneg, nlockspos)
			}
			if rhsFinite {
				v.AddLocks(nlockspos, nlocksneg)
			}
		}
	}

	return nil
}

// TransCons maps the constraint onto the transformed variables.
func (h *Hdlr) TransCons(s *cip.Solver, src *cip.Cons) (*cip.Cons, error) {
	d, err := consdata(src)
	if err != nil {
		return nil, err
	}
	tvars := make([]*cip.Var, len(d.vars))
	for i, v := range d.vars {
		tv := v.TransVar()
		if tv == nil {
			return nil, fmt.Errorf("constraint <%s>: variable <%s> has no transformed counterpart", src.Name(), v.Name())
		}
		tvars[i] = tv
	}
	data := &ConsData{
		vars: tvars,
		vals: append([]float64(nil), d.vals...),
		lhs:  d.lhs,
		rhs:  d.rhs,
	}

	return s.NewCons("t_"+src.Name(), h, data, src.Flags())
}

// InitLP contributes the initial rows.
func (h *Hdlr) InitLP(s *cip.Solver, conss []*cip.Cons) error {
	for _, c := range conss {
		if !c.Flags().Initial {
			continue
		}
		d, err := consdata(c)
		if err != nil {
			return err
		}
		if err := h.ensureRow(s, c, d); err != nil {
			return err
		}
		if !d.row.IsInLP() {
			if err := s.AddRowLP(d.row); err != nil {
				return err
			}
		}
	}

	return nil
}

// SepaLP separates the LP solution with the constraints' own rows.
func (h *Hdlr) SepaLP(s *cip.Solver, conss []*cip.Cons) (cip.Result, error) {
	tol := s.Tolerances()
	found := false
	for _, c := range conss {
		if !c.Flags().Separate {
			continue
		}
		d, err := consdata(c)
		if err != nil {
			return cip.ResultDidNotRun, err
		}
		if d.row != nil && d.row.IsInLP() {
			continue
		}
		act := d.Activity(s.VarLPVal)
		if !tol.FeasLt(act, d.lhs) && !tol.FeasGt(act, d.rhs) {
			continue
		}
		if err := h.addRowCut(s, c, d, false); err != nil {
			return cip.ResultDidNotRun, err
		}
		found = true
	}
	if found {
		return cip.ResultSeparated, nil
	}

	return cip.ResultDidNotFind, nil
}

func (h *Hdlr) ensureRow(s *cip.Solver, c *cip.Cons, d *ConsData) error {
	if d.row != nil {
		return nil
	}
	row, err := s.NewRow(c.Name(), d.vars, d.vals, d.lhs, d.rhs, c.Flags().Local, c.Flags().Removable)
	if err != nil {
		return err
	}
	d.row = row

	return nil
}

func (h *Hdlr) addRowCut(s *cip.Solver, c *cip.Cons, d *ConsData, force bool) error {
	if err := h.ensureRow(s, c, d); err != nil {
		return err
	}

	return s.AddCut(d.row, force)
}

// Prop performs activity-based bound propagation. A provably violated
// constraint initializes and analyzes a conflict before reporting cutoff.
func (h *Hdlr) Prop(s *cip.Solver, conss []*cip.Cons) (cip.Result, error) {
	tol := s.Tolerances()
	reduced := false
	for _, c := range conss {
		if !c.Flags().Propagate {
			continue
		}
		d, err := consdata(c)
		if err != nil {
			return cip.ResultDidNotRun, err
		}
		minact, maxact := activityBounds(s, d, localBounds)
		if tol.FeasGt(minact, d.rhs) || tol.FeasLt(maxact, d.lhs) {
			if err := h.analyzeInfeasibleCons(s, d, tol.FeasGt(minact, d.rhs)); err != nil {
				return cip.ResultDidNotRun, err
			}

			return cip.ResultCutoff, nil
		}

		n, infeasible, err := h.propagateCons(s, c, d, minact, maxact)
		if err != nil {
			return cip.ResultDidNotRun, err
		}
		if infeasible {
			return cip.ResultCutoff, nil
		}
		if n > 0 {
			reduced = true
		}
	}
	if reduced {
		return cip.ResultReducedDom, nil
	}

	return cip.ResultDidNotFind, nil
}

// propagateCons tightens the variable bounds of one constraint from its
// residual activities.
func (h *Hdlr) propagateCons(s *cip.Solver, c *cip.Cons, d *ConsData, minact, maxact float64) (int, bool, error) {
	tol := s.Tolerances()
	tightened := 0
	for i, v := range d.vars {
		a := d.vals[i]
		if a == 0 || !v.IsActive() {
			continue
		}
		lb, ub := clipInf(tol, v.LocLb(), v.LocUb())

		// Residual activity without v's own contribution; an infinite own
		// contribution leaves the residual unknown, which blocks the
		// corresponding tightening.
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
			// a*x ≤ rhs − minres
			bound := (d.rhs - minres) / a
			if a > 0 {
				inf, tight, err := s.TightenVarUb(v, bound, c, i)
				if err != nil {
					return tightened, false, err
				}
				if inf {
					return tightened, true, nil
				}
				if tight {
					tightened++
				}
			} else {
				inf, tight, err := s.TightenVarLb(v, bound, c, i)
				if err != nil {
					return tightened, false, err
				}
				if inf {
					return tightened, true, nil
				}
				if tight {
					tightened++
				}
			}
		}
		if !tol.IsNegInfinity(d.lhs) && !math.IsInf(maxres, 1) {
			// a*x ≥ lhs − maxres
			bound := (d.lhs - maxres) / a
			if a > 0 {
				inf, tight, err := s.TightenVarLb(v, bound, c, i)
				if err != nil {
					return tightened, false, err
				}
				if inf {
					return tightened, true, nil
				}
				if tight {
					tightened++
				}
			} else {
				inf, tight, err := s.TightenVarUb(v, bound, c, i)
				if err != nil {
					return tightened, false, err
				}
				if inf {
					return tightened, true, nil
				}
				if tight {
					tightened++
				}
			}
		}
	}

	return tightened, false, nil
}

// residual subtracts one term from an activity bound, keeping infinities
// absorbing.
func residual(act, term float64) float64 {
	if math.IsInf(act, 0) {
		return act
	}

	return act - term
}

// analyzeInfeasibleCons starts conflict analysis from the bounds that make
// the constraint violated.
func (h *Hdlr) analyzeInfeasibleCons(s *cip.Solver, d *ConsData, minExceedsRhs bool) error {
	if err := s.InitConflictAnalysis(); err != nil {
		return nil // outside the solving stage, nothing to analyze
	}
	for i, v := range d.vars {
		if !v.IsActive() {
			continue
		}
		positive := d.vals[i] > 0
		if minExceedsRhs == positive {
			if err := s.AddConflictLb(v); err != nil {
				return err
			}
		} else {
			if err := s.AddConflictUb(v); err != nil {
				return err
			}
		}
	}
	_, err := s.AnalyzeConflict(0)

	return err
}

// ResProp explains a bound deduced by propagateCons: the antecedents are
// the opposite bounds of all other variables in the constraint.
func (h *Hdlr) ResProp(s *cip.Solver, c *cip.Cons, v *cip.Var, btype cip.BoundType, inferinfo int, bdchgidx int) (cip.Result, error) {
	d, err := consdata(c)
	if err != nil {
		return cip.ResultDidNotFind, err
	}
	if inferinfo < 0 || inferinfo >= len(d.vars) || d.vars[inferinfo] != v {
		return cip.ResultDidNotFind, nil
	}
	a := d.vals[inferinfo]

	// The upper bound of v with a>0 (or lower with a<0) was deduced from
	// the minimum residual activity, which rests on the lower bounds of
	// positive and the upper bounds of negative coefficients; the mirrored
	// deduction rests on the maximum residual.
	fromMin := (btype == cip.BoundUpper) == (a > 0)
	for i, w := range d.vars {
		if i == inferinfo {
			continue
		}
		positive := d.vals[i] > 0
		if fromMin == positive {
			if err := s.AddConflictLb(w); err != nil {
				return cip.ResultDidNotFind, err
			}
		} else {
			if err := s.AddConflictUb(w); err != nil {
				return cip.ResultDidNotFind, err
			}
		}
	}

	return cip.ResultSuccess, nil
}

// boundSource selects which bounds an activity computation reads.
type boundSource func(v *cip.Var) (lb, ub float64)

func localBounds(v *cip.Var) (float64, float64)  { return v.LocLb(), v.LocUb() }
func globalBounds(v *cip.Var) (float64, float64) { return v.GlbLb(), v.GlbUb() }

// activityBounds computes the minimum and maximum activity of d over the
// given bounds.
func activityBounds(s *cip.Solver, d *ConsData, bounds boundSource) (minact, maxact float64) {
	tol := s.Tolerances()
	for i, v := range d.vars {
		a := d.vals[i]
		if a == 0 {
			continue
		}
		lb, ub := bounds(v)
		lb, ub = clipInf(tol, lb, ub)
		lo, hi := a*lb, a*ub
		if a < 0 {
			lo, hi = hi, lo
		}
		minact = addAbsorbing(minact, lo, -1)
		maxact = addAbsorbing(maxact, hi, 1)
	}

	return minact, maxact
}

// clipInf maps solver infinities onto IEEE infinities so that activity
// arithmetic absorbs them.
func clipInf(tol *numerics.Tolerances, lb, ub float64) (float64, float64) {
	if tol.IsNegInfinity(lb) {
		lb = math.Inf(-1)
	}
	if tol.IsInfinity(ub) {
		ub = math.Inf(1)
	}

	return lb, ub
}

// addAbsorbing adds term to sum where an infinite term of the given sign
// makes the sum stick to that infinity.
func addAbsorbing(sum, term float64, sign int) float64 {
	if math.IsInf(sum, sign) || math.IsInf(term, sign) {
		return math.Inf(sign)
	}

	return sum + term
}
