package cip

import (
	"fmt"
	"math"

	"github.com/optimiq/gociap/numerics"
)

// ObjSense is the optimization direction of the original problem.
type ObjSense int8

const (
	// Minimize is the default sense.
	Minimize ObjSense = 1
	// Maximize negates the internal objective (internal frame always
	// minimizes).
	Maximize ObjSense = -1
)

// Problem is one of the two parallel stores: the original (user-facing)
// problem or the transformed working copy. Variables are grouped in the
// stable order binary, integer, implicit-integer, continuous.
type Problem struct {
	name     string
	original bool

	vars       []*Var
	varsByName map[string]*Var
	nbin       int
	nint       int
	nimpl      int

	// fixedVars keeps fixed and aggregated variables alive for value
	// resolution after they left the active array.
	fixedVars []*Var

	// deletedVars is the pending-deletion buffer flushed between
	// presolving steps.
	deletedVars []*Var

	conss      []*Cons
	consByName map[string]*Cons

	// objoffset accumulates internal-frame objective contributions of
	// fixed variables (transformed problem only).
	objoffset float64
}

func newProblem(name string, original bool) *Problem {
	return &Problem{
		name:       name,
		original:   original,
		varsByName: make(map[string]*Var),
		consByName: make(map[string]*Cons),
	}
}

// Name returns the problem name.
func (p *Problem) Name() string { return p.name }

// NVars returns the number of active variables.
func (p *Problem) NVars() int { return len(p.vars) }

// NBinVars returns the number of active binary variables.
func (p *Problem) NBinVars() int { return p.nbin }

// NIntVars returns the number of active general-integer variables.
func (p *Problem) NIntVars() int { return p.nint }

// NImplVars returns the number of active implicit-integer variables.
func (p *Problem) NImplVars() int { return p.nimpl }

// NContVars returns the number of active continuous variables.
func (p *Problem) NContVars() int { return len(p.vars) - p.nbin - p.nint - p.nimpl }

// NConss returns the number of active constraints.
func (p *Problem) NConss() int { return len(p.conss) }

// Vars returns the active variables in their stable type-grouped order.
// The slice is shared; do not mutate.
func (p *Problem) Vars() []*Var { return p.vars }

// Conss returns the active constraints. The slice is shared; do not mutate.
func (p *Problem) Conss() []*Cons { return p.conss }

// FindVar returns the variable registered under name, or nil.
func (p *Problem) FindVar(name string) *Var { return p.varsByName[name] }

// FindCons returns the constraint registered under name, or nil.
func (p *Problem) FindCons(name string) *Cons { return p.consByName[name] }

// groupEnd returns the index one past the group a variable of type t is
// inserted at.
func (p *Problem) groupEnd(t VarType) int {
	switch t {
	case VarBinary:
		return p.nbin
	case VarInteger:
		return p.nbin + p.nint
	case VarImplInt:
		return p.nbin + p.nint + p.nimpl
	default:
		return len(p.vars)
	}
}

// insertVar places v at the end of its type group, shifting later groups.
func (p *Problem) insertVar(v *Var) error {
	if _, dup := p.varsByName[v.name]; dup {
		return fmt.Errorf("%w: variable <%s> already in problem <%s>", ErrInvalidData, v.name, p.name)
	}
	pos := p.groupEnd(v.vtype)
	p.vars = append(p.vars, nil)
	copy(p.vars[pos+1:], p.vars[pos:])
	p.vars[pos] = v
	for i := pos; i < len(p.vars); i++ {
		p.vars[i].probindex = i
	}
	switch v.vtype {
	case VarBinary:
		p.nbin++
	case VarInteger:
		p.nint++
	case VarImplInt:
		p.nimpl++
	case VarContinuous:
		// continuous group is the tail; no counter needed
	}
	p.varsByName[v.name] = v
	v.Capture()

	return nil
}

// removeVar unlinks v from the active array, keeping later indices dense.
func (p *Problem) removeVar(v *Var) {
	pos := v.probindex
	if pos < 0 || pos >= len(p.vars) || p.vars[pos] != v {
		return
	}
	copy(p.vars[pos:], p.vars[pos+1:])
	p.vars = p.vars[:len(p.vars)-1]
	for i := pos; i < len(p.vars); i++ {
		p.vars[i].probindex = i
	}
	switch v.vtype {
	case VarBinary:
		p.nbin--
	case VarInteger:
		p.nint--
	case VarImplInt:
		p.nimpl--
	case VarContinuous:
	}
	v.probindex = -1
	delete(p.varsByName, v.name)
}

// consOfHdlr collects the active constraints owned by h; with checkOnly
// only check-flagged constraints qualify.
func (p *Problem) consOfHdlr(h Conshdlr, checkOnly bool) []*Cons {
	var out []*Cons
	for _, c := range p.conss {
		if c.hdlr != h || c.deleted || !c.active {
			continue
		}
		if checkOnly && !c.flags.Check {
			continue
		}
		out = append(out, c)
	}

	return out
}

// objIsIntegral reports whether every active variable has an integral
// objective coefficient and continuous variables carry none.
func (p *Problem) objIsIntegral(s *Solver) bool {
	for _, v := range p.vars {
		if v.obj == 0 {
			continue
		}
		if !v.vtype.IsIntegral() || !s.tol.Integral(v.obj) {
			return false
		}
	}

	return s.tol.Integral(p.objoffset)
}

// CreateVar creates an original variable owned by the caller (one
// reference). It is not part of the problem until AddVar.
func (s *Solver) CreateVar(name string, vtype VarType, lb, ub, obj float64) (*Var, error) {
	if err := s.checkStage("CreateVar", stagesBeforeTrans); err != nil {
		return nil, err
	}
	if err := checkBounds(s.tol, vtype, lb, ub); err != nil {
		return nil, fmt.Errorf("variable <%s>: %w", name, err)
	}
	if vtype == VarBinary && (lb < 0 || ub > 1) {
		return nil, fmt.Errorf("%w: binary variable <%s> with bounds [%g,%g]", ErrInvalidData, name, lb, ub)
	}
	if s.stage == StageInit {
		// Creating the first variable implies creating a problem.
		if err := s.CreateProb("unnamed"); err != nil {
			return nil, err
		}
	}

	return &Var{
		name:           name,
		vtype:          vtype,
		status:         StatusOriginal,
		obj:            obj,
		glbLb:          lb,
		glbUb:          ub,
		locLb:          lb,
		locUb:          ub,
		probindex:      -1,
		index:          s.nextVarIndex(),
		col:            -1,
		original:       true,
		branchFactor:   1,
		lbchgidx:       -1,
		ubchgidx:       -1,
		nuses:          1,
		solver:         s,
	}, nil
}

// AddVar adds an original variable to the original problem. Adding a
// non-original variable here, or adding in transformed stages, fails.
func (s *Solver) AddVar(v *Var) error {
	if err := s.checkStage("AddVar", stagesProblemOnly); err != nil {
		return err
	}
	if !v.original || v.status != StatusOriginal {
		return fmt.Errorf("%w: cannot add %s variable <%s> to the original problem", ErrInvalidCall, v.status, v.name)
	}

	return s.origprob.insertVar(v)
}

// addTransVar adds a transformed variable to the transformed problem.
func (s *Solver) addTransVar(v *Var) error {
	if v.original {
		return fmt.Errorf("%w: cannot add original variable <%s> to the transformed problem", ErrInvalidCall, v.name)
	}
	if err := s.transprob.insertVar(v); err != nil {
		return err
	}

	return s.publishEvent(&Event{Type: EventVarAdded, Var: v})
}

// DelVar requests removal of a variable from its problem. Removing the
// direct transformed counterpart of an original variable is a no-op (the
// original-facing accessors keep dereferencing through it).
func (s *Solver) DelVar(v *Var) error {
	if err := s.checkStage("DelVar", Stages(StageProblem, StageTransformed, StagePresolving)); err != nil {
		return err
	}
	if !v.original && v.origvar != nil {
		return nil
	}
	if v.original && s.stage != StageProblem {
		return fmt.Errorf("%w: DelVar on original variable <%s> outside problem stage", ErrInvalidCall, v.name)
	}
	prob := s.origprob
	if !v.original {
		prob = s.transprob
	}
	v.deleted = true
	prob.deletedVars = append(prob.deletedVars, v)

	return nil
}

// flushDeletions removes the pending variable deletions from the problem.
func (p *Problem) flushDeletions(s *Solver) error {
	for _, v := range p.deletedVars {
		p.removeVar(v)
		if !p.original {
			if err := s.publishEvent(&Event{Type: EventVarDeleted, Var: v}); err != nil {
				return err
			}
		}
	}
	p.deletedVars = p.deletedVars[:0]

	return nil
}

// AddCons adds a constraint globally: to the original problem in stage
// Problem, to the transformed problem in transformed stages.
func (s *Solver) AddCons(c *Cons) error {
	if err := s.checkStage("AddCons", Stages(StageProblem, StageTransformed, StagePresolving, StagePresolved, StageInitSolve, StageSolving)); err != nil {
		return err
	}
	switch {
	case s.stage == StageProblem:
		if !c.original {
			return fmt.Errorf("%w: transformed constraint <%s> in problem stage", ErrInvalidCall, c.name)
		}

		return s.origprob.addCons(s, c)
	default:
		if c.original {
			return fmt.Errorf("%w: original constraint <%s> in transformed stages", ErrInvalidCall, c.name)
		}

		return s.transprob.addCons(s, c)
	}
}

// DelCons marks a constraint deleted and removes it from its problem.
func (s *Solver) DelCons(c *Cons) error {
	if err := s.checkStage("DelCons", Stages(StageProblem, StageTransformed, StagePresolving, StagePresolved, StageSolving)); err != nil {
		return err
	}
	prob := s.origprob
	if !c.original {
		prob = s.transprob
	}

	return prob.delCons(s, c)
}

func (p *Problem) addCons(s *Solver, c *Cons) error {
	if _, dup := p.consByName[c.name]; dup {
		return fmt.Errorf("%w: constraint <%s> already in problem <%s>", ErrInvalidData, c.name, p.name)
	}
	c.probindex = len(p.conss)
	p.conss = append(p.conss, c)
	p.consByName[c.name] = c
	c.active = true
	c.Capture()
	if !p.original {
		if err := c.addLocks(s, 1, 0); err != nil {
			return err
		}
	}

	return nil
}

func (p *Problem) delCons(s *Solver, c *Cons) error {
	if c.probindex < 0 || c.probindex >= len(p.conss) || p.conss[c.probindex] != c {
		return fmt.Errorf("%w: constraint <%s> not in problem <%s>", ErrInvalidData, c.name, p.name)
	}
	pos := c.probindex
	copy(p.conss[pos:], p.conss[pos+1:])
	p.conss = p.conss[:len(p.conss)-1]
	for i := pos; i < len(p.conss); i++ {
		p.conss[i].probindex = i
	}
	delete(p.consByName, c.name)
	c.active = false
	c.deleted = true
	c.probindex = -1
	if !p.original {
		if err := c.addLocks(s, -1, 0); err != nil {
			return err
		}
	}

	return c.Release()
}

// SetObjsense fixes the optimization direction; legal in stage Problem
// only.
func (s *Solver) SetObjsense(sense ObjSense) error {
	if err := s.checkStage("SetObjsense", stagesProblemOnly); err != nil {
		return err
	}
	if sense != Minimize && sense != Maximize {
		return fmt.Errorf("%w: objective sense %d", ErrInvalidData, sense)
	}
	// An unset limit means "no limit" in either direction; keep it that
	// way across the sense change so only user-set limits ever cut off.
	if s.objlimit == defaultObjlimit(s.tol, s.objsense) {
		s.objlimit = defaultObjlimit(s.tol, sense)
	}
	s.objsense = sense

	return nil
}

// defaultObjlimit is the external value of an unset objective limit: the
// unreachable side of the given sense.
func defaultObjlimit(tol *numerics.Tolerances, sense ObjSense) float64 {
	if sense == Maximize {
		return -tol.Infinity()
	}

	return tol.Infinity()
}

// Objsense returns the optimization direction.
func (s *Solver) Objsense() ObjSense { return s.objsense }

// SetObjlimit installs the user objective limit (external frame). After
// transformation the limit may only be tightened; relaxing fails.
func (s *Solver) SetObjlimit(limit float64) error {
	if err := s.checkStage("SetObjlimit", Stages(StageProblem, StageTransformed, StagePresolving, StagePresolved, StageSolving)); err != nil {
		return err
	}
	if s.stage != StageProblem {
		// Tightening-only: internally both frames minimize, so "looser"
		// means a larger transformed value.
		if s.transformObjVal(limit) > s.transformObjVal(s.objlimit)+s.tol.Epsilon() {
			return fmt.Errorf("%w: new limit %g is looser than %g", ErrObjLimitRelax, limit, s.objlimit)
		}
	}
	s.objlimit = limit
	if s.primal != nil {
		s.setObjlimitBound()
	}

	return nil
}

// Objlimit returns the user objective limit (external frame).
func (s *Solver) Objlimit() float64 { return s.objlimit }

// transformObjVal maps an external objective value into the internal
// always-minimize frame.
func (s *Solver) transformObjVal(ext float64) float64 {
	if math.IsInf(ext, 0) || s.tol.IsInfinity(math.Abs(ext)) {
		// An infinite limit stays infinite in both frames; the sign flips
		// with the sense.
		if s.objsense == Maximize {
			return -ext
		}

		return ext
	}

	return ext * float64(s.objsense)
}

// retransformObj maps an internal objective value back to the user frame,
// the round-trip inverse of transformObjVal.
func (s *Solver) retransformObj(internal float64) float64 {
	return internal * float64(s.objsense)
}

// transOffset returns the internal objective offset of the transformed
// problem.
func (s *Solver) transOffset() float64 {
	if s.transprob == nil {
		return 0
	}

	return s.transprob.objoffset
}

// ChgVarObj changes a variable's objective coefficient: original variables
// in stage Problem, transformed ones while presolving.
func (s *Solver) ChgVarObj(v *Var, obj float64) error {
	if err := s.checkStage("ChgVarObj", Stages(StageProblem, StageTransforming, StagePresolving)); err != nil {
		return err
	}
	v.obj = obj

	return s.publishEvent(&Event{Type: EventObjChanged, Var: v})
}

// ChgVarType changes a variable's type; bounds must already satisfy the
// target type's integrality.
func (s *Solver) ChgVarType(v *Var, vtype VarType) error {
	if err := s.checkStage("ChgVarType", Stages(StageProblem, StageTransforming, StagePresolving)); err != nil {
		return err
	}
	if v.vtype == vtype {
		return nil
	}
	if err := checkBounds(s.tol, vtype, v.glbLb, v.glbUb); err != nil {
		return fmt.Errorf("variable <%s>: %w", v.name, err)
	}
	prob := s.origprob
	if !v.original {
		prob = s.transprob
	}
	inProb := v.probindex >= 0
	if inProb {
		prob.removeVar(v)
	}
	v.vtype = vtype
	if inProb {
		if err := prob.insertVar(v); err != nil {
			return err
		}
		// insertVar recaptures; drop the duplicate reference.
		v.nuses--
	}

	return s.publishEvent(&Event{Type: EventTypeChanged, Var: v})
}

// ChgVarLbGlobal tightens/sets the global (and local) lower bound outside
// the search.
func (s *Solver) ChgVarLbGlobal(v *Var, lb float64) error {
	if err := s.checkStage("ChgVarLbGlobal", Stages(StageProblem, StageTransforming, StageTransformed, StagePresolving)); err != nil {
		return err
	}
	if v.vtype.IsIntegral() && v.vtype != VarImplInt {
		lb = s.tol.FeasCeil(lb)
	}
	if lb > v.glbUb+s.tol.FeasTol() {
		return fmt.Errorf("%w: new lower bound %g above upper bound %g of <%s>", ErrInvalidData, lb, v.glbUb, v.name)
	}
	old := v.glbLb
	v.glbLb = lb
	if v.locLb < lb {
		v.locLb = lb
	}

	return s.publishEvent(&Event{Type: EventGlbLbChanged, Var: v, BType: BoundLower, OldBound: old, NewBound: lb})
}

// ChgVarUbGlobal is the upper-bound companion of ChgVarLbGlobal.
func (s *Solver) ChgVarUbGlobal(v *Var, ub float64) error {
	if err := s.checkStage("ChgVarUbGlobal", Stages(StageProblem, StageTransforming, StageTransformed, StagePresolving)); err != nil {
		return err
	}
	if v.vtype.IsIntegral() && v.vtype != VarImplInt {
		ub = s.tol.FeasFloor(ub)
	}
	if ub < v.glbLb-s.tol.FeasTol() {
		return fmt.Errorf("%w: new upper bound %g below lower bound %g of <%s>", ErrInvalidData, ub, v.glbLb, v.name)
	}
	old := v.glbUb
	v.glbUb = ub
	if v.locUb > ub {
		v.locUb = ub
	}

	return s.publishEvent(&Event{Type: EventGlbUbChanged, Var: v, BType: BoundUpper, OldBound: old, NewBound: ub})
}
