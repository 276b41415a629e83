package cip

import (
	"fmt"
	"math"

	"github.com/optimiq/gociap/numerics"
)

// VarType classifies a variable's domain.
type VarType uint8

const (
	// VarBinary is an integer variable restricted to {0,1}.
	VarBinary VarType = iota
	// VarInteger is a general integer variable.
	VarInteger
	// VarImplInt is continuous in the model but provably integral in any
	// optimal solution.
	VarImplInt
	// VarContinuous is a continuous variable.
	VarContinuous
)

// String returns the lowercase type name.
func (t VarType) String() string {
	names := [...]string{"binary", "integer", "implint", "continuous"}
	if int(t) < len(names) {
		return names[t]
	}

	return "invalid"
}

// IsIntegral reports whether the type demands integral values.
func (t VarType) IsIntegral() bool { return t != VarContinuous }

// VarStatus describes where a variable lives and how its value is derived.
type VarStatus uint8

const (
	// StatusOriginal marks a variable of the user's problem.
	StatusOriginal VarStatus = iota
	// StatusLoose marks a transformed variable without an LP column.
	StatusLoose
	// StatusColumn marks a transformed variable with an LP column.
	StatusColumn
	// StatusFixed marks a variable fixed to a single value.
	StatusFixed
	// StatusAggregated marks x ≡ a·y + c.
	StatusAggregated
	// StatusMultiAggr marks x ≡ Σ aᵢ·yᵢ + c.
	StatusMultiAggr
	// StatusNegated marks x ≡ offset − y.
	StatusNegated
)

// String returns the lowercase status name.
func (st VarStatus) String() string {
	names := [...]string{"original", "loose", "column", "fixed", "aggregated", "multiaggr", "negated"}
	if int(st) < len(names) {
		return names[st]
	}

	return "invalid"
}

// BranchDir is a variable's preferred branching direction.
type BranchDir uint8

const (
	// BranchDirAuto lets the branching rule decide.
	BranchDirAuto BranchDir = iota
	// BranchDirDown prefers the down (upper-bound) child first.
	BranchDirDown
	// BranchDirUp prefers the up (lower-bound) child first.
	BranchDirUp
	// BranchDirFixed marks the middle child of a three-way split.
	BranchDirFixed
)

// History accumulates the pseudo-cost and inference statistics of one
// variable; index 0 is the down direction, index 1 the up direction.
type History struct {
	// PseudoCostSum is the accumulated objective gain per unit of domain
	// change, weighted by PseudoCostCount.
	PseudoCostSum [2]float64
	// PseudoCostCount is the weight of the pseudo-cost observations.
	PseudoCostCount [2]float64
	// Inferences counts domain reductions triggered after branching.
	Inferences [2]float64
	// Cutoffs counts infeasible subproblems after branching.
	Cutoffs [2]float64
}

// PseudoCost returns the average unit gain in the given direction (0 when
// no observation exists).
func (h *History) PseudoCost(dir int) float64 {
	if h.PseudoCostCount[dir] <= 0 {
		return 0
	}

	return h.PseudoCostSum[dir] / h.PseudoCostCount[dir]
}

// aggregate is the x ≡ a·y + c link of an aggregated variable.
type aggregate struct {
	v        *Var
	scalar   float64
	constant float64
}

// multiAggregate is the x ≡ Σ aᵢ·yᵢ + c link.
type multiAggregate struct {
	vars      []*Var
	scalars   []float64
	constant  float64
}

// Var is a problem variable. Original and transformed variables are
// distinct objects linked through origvar/transvar; a variable is owned by
// the problem it was added to and released when its use count drops to
// zero.
type Var struct {
	name  string
	vtype VarType

	status VarStatus
	obj    float64

	glbLb, glbUb float64 // global bounds
	locLb, locUb float64 // local bounds along the current focus path

	probindex int // position in the owning problem; -1 if detached
	index     int // creation index, stable for deterministic tie-breaks
	col       int // LP column; -1 while loose

	nuses    int
	original bool
	deleted  bool

	transvar *Var // original → transformed counterpart
	origvar  *Var // transformed → original counterpart
	negvar   *Var // negation partner, shared both ways
	negConst float64

	aggr     aggregate
	multaggr multiAggregate
	fixedVal float64

	branchPriority int
	branchFactor   float64
	branchDir      BranchDir

	nlocksDown, nlocksUp int

	history History

	// Tops of the per-bound change chains in the tree's bound stack;
	// -1 while the variable sits at its global bound.
	lbchgidx, ubchgidx int

	// Implications x=0/1 ⇒ bound changes on others (binary vars only).
	implics [2][]Implic

	// Cliques this variable participates in, per fixation value.
	cliques [2][]*Clique

	solver *Solver
}

// Name returns the variable's unique name.
func (v *Var) Name() string { return v.name }

// Type returns the variable type.
func (v *Var) Type() VarType { return v.vtype }

// Status returns the variable status.
func (v *Var) Status() VarStatus { return v.status }

// Obj returns the objective coefficient in the variable's own space.
func (v *Var) Obj() float64 { return v.obj }

// GlbLb returns the global lower bound.
func (v *Var) GlbLb() float64 { return v.glbLb }

// GlbUb returns the global upper bound.
func (v *Var) GlbUb() float64 { return v.glbUb }

// LocLb returns the local lower bound at the current focus.
func (v *Var) LocLb() float64 { return v.locLb }

// LocUb returns the local upper bound at the current focus.
func (v *Var) LocUb() float64 { return v.locUb }

// ProbIndex returns the position in the owning problem, or -1.
func (v *Var) ProbIndex() int { return v.probindex }

// Index returns the creation index (stable tie-break key).
func (v *Var) Index() int { return v.index }

// IsOriginal reports whether the variable lives in the original problem.
func (v *Var) IsOriginal() bool { return v.original }

// IsActive reports whether the variable is a loose or column member of the
// transformed problem (the only states propagation may act on).
func (v *Var) IsActive() bool { return v.status == StatusLoose || v.status == StatusColumn }

// BranchPriority returns the branching priority.
func (v *Var) BranchPriority() int { return v.branchPriority }

// SetBranchPriority sets the branching priority.
func (v *Var) SetBranchPriority(p int) { v.branchPriority = p }

// BranchFactor returns the branching factor.
func (v *Var) BranchFactor() float64 { return v.branchFactor }

// SetBranchFactor sets the branching factor.
func (v *Var) SetBranchFactor(f float64) { v.branchFactor = f }

// BranchDirection returns the preferred branching direction.
func (v *Var) BranchDirection() BranchDir { return v.branchDir }

// SetBranchDirection sets the preferred branching direction.
func (v *Var) SetBranchDirection(d BranchDir) { v.branchDir = d }

// NLocksDown returns the down-rounding lock count.
func (v *Var) NLocksDown() int { return v.nlocksDown }

// NLocksUp returns the up-rounding lock count.
func (v *Var) NLocksUp() int { return v.nlocksUp }

// History returns the mutable pseudo-cost and inference history.
func (v *Var) History() *History { return &v.history }

// TransVar returns the transformed counterpart of an original variable.
func (v *Var) TransVar() *Var { return v.transvar }

// OrigVar returns the original counterpart of a transformed variable.
func (v *Var) OrigVar() *Var { return v.origvar }

// AddLocks adds (possibly negative) rounding locks; aggregation forwards
// them to the active representatives with the proper sign flips.
func (v *Var) AddLocks(down, up int) {
	switch v.status {
	case StatusAggregated:
		if v.aggr.scalar > 0 {
			v.aggr.v.AddLocks(down, up)
		} else {
			v.aggr.v.AddLocks(up, down)
		}
	case StatusMultiAggr:
		for i, mv := range v.multaggr.vars {
			if v.multaggr.scalars[i] > 0 {
				mv.AddLocks(down, up)
			} else {
				mv.AddLocks(up, down)
			}
		}
	case StatusNegated:
		v.negvar.AddLocks(up, down)
	case StatusOriginal, StatusLoose, StatusColumn, StatusFixed:
		v.nlocksDown += down
		v.nlocksUp += up
	}
}

// Capture increments the use count.
func (v *Var) Capture() *Var {
	v.nuses++

	return v
}

// Release decrements the use count. Releasing the last use of an original
// variable while a transformed problem exists fails: the transformed
// counterpart still dereferences through it.
func (v *Var) Release() error {
	if v.nuses <= 0 {
		return fmt.Errorf("%w: release of unused variable <%s>", ErrInvalidData, v.name)
	}
	if v.nuses == 1 && v.original && v.transvar != nil {
		return fmt.Errorf("%w: original variable <%s> still referenced by transformed problem", ErrInvalidCall, v.name)
	}
	v.nuses--

	return nil
}

// checkBounds validates lb ≤ ub and integrality of integer-type bounds.
func checkBounds(tol *numerics.Tolerances, vtype VarType, lb, ub float64) error {
	if lb > ub {
		return fmt.Errorf("%w: bounds [%g,%g] cross", ErrInvalidData, lb, ub)
	}
	if vtype.IsIntegral() && vtype != VarImplInt {
		if !tol.IsNegInfinity(lb) && !tol.Integral(lb) {
			return fmt.Errorf("%w: non-integral lower bound %g on %s variable", ErrInvalidData, lb, vtype)
		}
		if !tol.IsInfinity(ub) && !tol.Integral(ub) {
			return fmt.Errorf("%w: non-integral upper bound %g on %s variable", ErrInvalidData, ub, vtype)
		}
	}

	return nil
}

// Val resolves the variable's value from an assignment of active variables.
// Fixed, aggregated, multi-aggregated and negated variables are computed
// from their links; original variables defer to their transformed
// counterpart when one exists.
func (v *Var) Val(get func(*Var) float64) float64 {
	switch v.status {
	case StatusOriginal:
		if v.transvar != nil {
			return v.transvar.Val(get)
		}

		return get(v)
	case StatusLoose, StatusColumn:
		return get(v)
	case StatusFixed:
		return v.fixedVal
	case StatusAggregated:
		return v.aggr.scalar*v.aggr.v.Val(get) + v.aggr.constant
	case StatusMultiAggr:
		val := v.multaggr.constant
		for i, mv := range v.multaggr.vars {
			val += v.multaggr.scalars[i] * mv.Val(get)
		}

		return val
	case StatusNegated:
		return v.negConst - v.negvar.Val(get)
	default:
		return math.NaN()
	}
}

// ActiveRepresentation resolves v into an equivalent affine combination of
// active variables: v ≡ Σ scalars[i]·vars[i] + constant. Repeated active
// variables are merged.
func (v *Var) ActiveRepresentation() (vars []*Var, scalars []float64, constant float64) {
	pos := make(map[*Var]int)
	v.collectActive(1, &vars, &scalars, &constant, pos)

	return vars, scalars, constant
}

func (v *Var) collectActive(scale float64, vars *[]*Var, scalars *[]float64, constant *float64, pos map[*Var]int) {
	switch v.status {
	case StatusOriginal:
		if v.transvar != nil {
			v.transvar.collectActive(scale, vars, scalars, constant, pos)
			return
		}
		fallthrough
	case StatusLoose, StatusColumn:
		if i, ok := pos[v]; ok {
			(*scalars)[i] += scale
			return
		}
		pos[v] = len(*vars)
		*vars = append(*vars, v)
		*scalars = append(*scalars, scale)
	case StatusFixed:
		*constant += scale * v.fixedVal
	case StatusAggregated:
		*constant += scale * v.aggr.constant
		v.aggr.v.collectActive(scale*v.aggr.scalar, vars, scalars, constant, pos)
	case StatusMultiAggr:
		*constant += scale * v.multaggr.constant
		for i, mv := range v.multaggr.vars {
			mv.collectActive(scale*v.multaggr.scalars[i], vars, scalars, constant, pos)
		}
	case StatusNegated:
		*constant += scale * v.negConst
		v.negvar.collectActive(-scale, vars, scalars, constant, pos)
	}
}

// WorstBoundObj returns obj·(worst finite bound): the contribution of this
// variable to the trivial primal bound. Returns +inf when the worst bound
// is infinite and the objective coefficient nonzero.
func (v *Var) WorstBoundObj(inf float64) float64 {
	switch {
	case v.obj > 0:
		if v.glbUb >= inf {
			return math.Inf(1)
		}

		return v.obj * v.glbUb
	case v.obj < 0:
		if v.glbLb <= -inf {
			return math.Inf(1)
		}

		return v.obj * v.glbLb
	default:
		return 0
	}
}

// NegatedVar returns (creating on first use) the negation partner
// x' = offset − x with offset = lb+ub for integers and binaries.
func (v *Var) NegatedVar() (*Var, error) {
	if v.negvar != nil && v.status != StatusNegated {
		return v.negvar, nil
	}
	if v.status == StatusNegated {
		return v.negvar, nil
	}
	if v.solver == nil {
		return nil, fmt.Errorf("%w: detached variable <%s>", ErrInvalidData, v.name)
	}
	offset := 1.0
	if v.vtype != VarBinary {
		inf := v.solver.tol.Infinity()
		if v.glbLb <= -inf || v.glbUb >= inf {
			return nil, fmt.Errorf("%w: negation of unbounded variable <%s>", ErrInvalidData, v.name)
		}
		offset = v.glbLb + v.glbUb
	}
	neg := &Var{
		name:           "~" + v.name,
		vtype:          v.vtype,
		status:         StatusNegated,
		glbLb:          offset - v.glbUb,
		glbUb:          offset - v.glbLb,
		locLb:          offset - v.locUb,
		locUb:          offset - v.locLb,
		probindex:      -1,
		index:          v.solver.nextVarIndex(),
		col:            -1,
		branchFactor:   1,
		lbchgidx:       -1,
		ubchgidx:       -1,
		negvar:         v,
		negConst:       offset,
		original:       v.original,
		solver:         v.solver,
		nuses:          1,
	}
	v.negvar = neg

	return neg, nil
}
