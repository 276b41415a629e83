package cip

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"
)

// Transform builds the transformed problem: a copy of the original problem
// in the internal always-minimize frame, with variables and constraints
// linked to their originals. Plugins receive their Init callbacks.
func (s *Solver) Transform() error {
	if err := s.checkStage("Transform", stagesProblemOnly); err != nil {
		return err
	}
	if s.origprob == nil || s.origprob.NVars() == 0 && s.origprob.NConss() == 0 {
		return fmt.Errorf("%w: nothing to transform", ErrNoProblem)
	}
	if err := s.setStage(StageTransforming); err != nil {
		return err
	}

	s.transprob = newProblem("t_"+s.origprob.name, false)
	s.primal = newPrimalStore(s.tol.Infinity())
	s.tree = newTree(s)
	s.lp = newLPData(s)
	s.stat.NRuns = 1

	for _, ov := range s.origprob.vars {
		tv := &Var{
			name:         "t_" + ov.name,
			vtype:        ov.vtype,
			status:       StatusLoose,
			obj:          ov.obj * float64(s.objsense),
			glbLb:        ov.glbLb,
			glbUb:        ov.glbUb,
			locLb:        ov.locLb,
			locUb:        ov.locUb,
			probindex:    -1,
			index:        s.nextVarIndex(),
			col:          -1,
			branchFactor: ov.branchFactor,
			branchDir:    ov.branchDir,
			lbchgidx:     -1,
			ubchgidx:     -1,
			nuses:        1,
			solver:       s,
		}
		tv.branchPriority = ov.branchPriority
		tv.origvar = ov
		ov.transvar = tv
		if err := s.addTransVar(tv); err != nil {
			return err
		}
	}

	for _, oc := range s.origprob.conss {
		tc, err := s.transformCons(oc)
		if err != nil {
			return err
		}
		if err := s.transprob.addCons(s, tc); err != nil {
			return err
		}
	}

	s.tree.createRoot()
	s.setObjlimitBound()

	if err := s.callInitHooks(); err != nil {
		return err
	}

	s.log.Info().
		Int("vars", s.transprob.NVars()).
		Int("conss", s.transprob.NConss()).
		Msg("problem transformed")

	return s.setStage(StageTransformed)
}

// transformCons produces the transformed counterpart of an original
// constraint, through the handler's TransCons when it provides one.
func (s *Solver) transformCons(oc *Cons) (*Cons, error) {
	var (
		tc  *Cons
		err error
	)
	if tr, ok := oc.hdlr.(ConsTransformer); ok {
		tc, err = tr.TransCons(s, oc)
		if err != nil {
			return nil, fmt.Errorf("conshdlr <%s>: transforming <%s>: %w", oc.hdlr.Name(), oc.name, err)
		}
	} else {
		tc = &Cons{
			name:  "t_" + oc.name,
			hdlr:  oc.hdlr,
			data:  oc.data,
			flags: oc.flags,
			nuses: 1,
		}
	}
	tc.original = false
	tc.orgcons = oc
	oc.transcons = tc

	return tc, nil
}

// callInitHooks delivers Init to every plugin that wants it.
func (s *Solver) callInitHooks() error {
	for _, p := range s.allPlugins() {
		if in, ok := p.(Initer); ok {
			if err := in.Init(s); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Solver) callExitHooks() error {
	for _, p := range s.allPlugins() {
		if ex, ok := p.(Exiter); ok {
			if err := ex.Exit(s); err != nil {
				return err
			}
		}
	}

	return nil
}

// allPlugins enumerates every registered plugin for lifecycle dispatch.
func (s *Solver) allPlugins() []any {
	r := s.reg
	out := make([]any, 0,
		len(r.conshdlrs)+len(r.presolvers)+len(r.propagators)+len(r.separators)+
			len(r.pricers)+len(r.heurs)+len(r.branchrules)+len(r.nodesels)+
			len(r.conflicthdlrs)+len(r.relaxators)+len(r.eventhdlrs)+len(r.readers))
	for _, p := range r.conshdlrs {
		out = append(out, p)
	}
	for _, p := range r.presolvers {
		out = append(out, p)
	}
	for _, p := range r.propagators {
		out = append(out, p)
	}
	for _, p := range r.separators {
		out = append(out, p)
	}
	for _, p := range r.pricers {
		out = append(out, p)
	}
	for _, p := range r.heurs {
		out = append(out, p)
	}
	for _, p := range r.branchrules {
		out = append(out, p)
	}
	for _, p := range r.nodesels {
		out = append(out, p)
	}
	for _, p := range r.conflicthdlrs {
		out = append(out, p)
	}
	for _, p := range r.relaxators {
		out = append(out, p)
	}
	for _, p := range r.eventhdlrs {
		out = append(out, p)
	}
	for _, p := range r.readers {
		out = append(out, p)
	}

	return out
}

// Presolve transforms (if needed) and presolves the problem, stopping
// before the branch-and-bound search.
func (s *Solver) Presolve() error {
	if err := s.checkStage("Presolve", Stages(StageProblem, StageTransformed)); err != nil {
		return err
	}
	if s.stage == StageProblem {
		if err := s.Transform(); err != nil {
			return err
		}
	}
	outcome, err := s.presolve()
	if err != nil {
		return err
	}
	s.applyPresolveOutcome(outcome)

	return nil
}

// applyPresolveOutcome maps a conclusive presolve result to a final
// status. A cutoff with an incumbent means the incumbent is optimal.
func (s *Solver) applyPresolveOutcome(outcome presolveOutcome) {
	switch outcome {
	case presolveCutoff:
		if s.primal.nSolsFound > 0 {
			s.status = StatusOptimal
		} else {
			s.status = StatusInfeasible
		}
	case presolveUnbounded:
		if s.primal.nSolsFound > 0 {
			s.status = StatusUnbounded
		} else {
			s.status = StatusInfOrUnbounded
		}
	case presolveReduced:
	}
}

// solveCtx carries the cooperative-stop state of one Solve call.
type solveCtx struct {
	ctx         context.Context
	unbounded   bool
	lastImprove int64 // NNodes at the last incumbent improvement
}

// Solve runs the full pipeline: transformation, presolving, and the
// branch-and-bound loop, honoring ctx cancellation and the limits/*
// parameters. The returned status is also available through Status.
func (s *Solver) Solve(ctx context.Context) (Status, error) {
	if err := s.checkStage("Solve", Stages(StageProblem, StageTransformed, StagePresolved)); err != nil {
		return StatusUnknown, err
	}
	s.solveStart = time.Now()
	s.interrupted.Store(false)
	s.run = solveCtx{ctx: ctx}

	if s.stage == StageProblem {
		if err := s.Transform(); err != nil {
			return StatusUnknown, err
		}
	}
	if s.stage == StageTransformed {
		outcome, err := s.presolve()
		if err != nil {
			return StatusUnknown, err
		}
		if outcome != presolveReduced {
			s.applyPresolveOutcome(outcome)

			return s.finishSolve()
		}
	}

	if err := s.initSolve(); err != nil {
		return StatusUnknown, err
	}

	status, err := s.solveLoop()
	if err != nil {
		return status, err
	}
	s.status = status

	return s.finishSolve()
}

// initSolve moves into the solving stage: solver hooks, the trivial primal
// bound, and the root node focus.
func (s *Solver) initSolve() error {
	if err := s.setStage(StageInitSolve); err != nil {
		return err
	}
	for _, p := range s.allPlugins() {
		if is, ok := p.(InitSolver); ok {
			if err := is.InitSol(s); err != nil {
				return err
			}
		}
	}
	if err := s.setStage(StageSolving); err != nil {
		return err
	}

	// Without pricing, the worst finite bounds give a valid primal bound.
	if len(s.reg.activePricers) == 0 {
		trivial := 0.0
		for _, v := range s.transprob.vars {
			w := v.WorstBoundObj(s.tol.Infinity())
			if s.tol.IsInfinity(w) || s.tol.IsNegInfinity(w) {
				trivial = s.tol.Infinity()

				break
			}
			trivial += w
		}
		trivial += s.transOffset()
		if !s.tol.IsInfinity(trivial) && trivial+s.tol.FeasTol() < s.primal.upperbound {
			s.primal.upperbound = trivial + s.tol.FeasTol()
		}
	}

	return nil
}

// solveLoop is the main branch-and-bound loop: select, focus, process.
func (s *Solver) solveLoop() (Status, error) {
	if err := s.tree.focusNode(s.tree.root); err != nil {
		return StatusUnknown, err
	}
	if err := s.processEvents(); err != nil {
		return StatusUnknown, err
	}

	nodesProcessed := int64(0)
	for s.tree.focus != nil {
		if st, stopped := s.stopStatus(nodesProcessed); stopped {
			return st, nil
		}

		if err := s.processNode(); err != nil {
			return StatusUnknown, err
		}
		if err := s.processEvents(); err != nil {
			return StatusUnknown, err
		}
		nodesProcessed++
		if nodesProcessed%100 == 0 {
			s.displayLine()
		}

		if s.restartWanted() {
			if err := s.restart(); err != nil {
				return StatusUnknown, err
			}

			continue
		}

		next, err := s.activeNodesel().Select(s)
		if err != nil {
			return StatusUnknown, err
		}
		if err := s.tree.focusNode(next); err != nil {
			return StatusUnknown, err
		}
		if err := s.processEvents(); err != nil {
			return StatusUnknown, err
		}
	}

	return s.exhaustedStatus(), nil
}

// exhaustedStatus classifies a fully explored tree.
func (s *Solver) exhaustedStatus() Status {
	switch {
	case s.run.unbounded:
		if s.primal.nSolsFound > 0 {
			return StatusUnbounded
		}

		return StatusInfOrUnbounded
	case s.primal.nSolsFound > 0:
		return StatusOptimal
	case !s.tol.IsInfinity(s.transformObjVal(s.objlimit)):
		// No solution, but the cutoff was induced by the objective limit:
		// feasible solutions beyond the limit may exist.
		return StatusObjLimit
	default:
		return StatusInfeasible
	}
}

// stopStatus polls the cooperative stop conditions in their precedence
// order; the node loop checks it between nodes.
func (s *Solver) stopStatus(nodesProcessed int64) (Status, bool) {
	if s.interrupted.Load() {
		return StatusUserInterrupt, true
	}
	if s.run.ctx != nil {
		select {
		case <-s.run.ctx.Done():
			return StatusUserInterrupt, true
		default:
		}
	}
	if lim := s.longParamOr("limits/nodes", -1); lim >= 0 && nodesProcessed >= lim {
		return StatusNodeLimit, true
	}
	if lim := s.longParamOr("limits/stallnodes", -1); lim >= 0 && s.stat.NNodes-s.run.lastImprove >= lim {
		return StatusStallNodeLimit, true
	}
	if lim := s.realParamOr("limits/time", 1e20); lim < 1e20 &&
		time.Since(s.solveStart).Seconds() >= lim {
		return StatusTimeLimit, true
	}
	if lim := s.realParamOr("limits/memory", 0); lim > 0 && heapMB() >= lim {
		return StatusMemLimit, true
	}
	if lim := s.intParamOr("limits/solutions", -1); lim >= 0 && s.stat.NSolsFound >= int64(lim) {
		return StatusSolLimit, true
	}
	if lim := s.intParamOr("limits/bestsol", -1); lim >= 0 && s.stat.NBestSolsFound >= int64(lim) {
		return StatusBestSolLimit, true
	}
	if lim := s.realParamOr("limits/gap", 0); lim > 0 && s.Gap() <= lim {
		return StatusGapLimit, true
	}
	if lim := s.realParamOr("limits/absgap", 0); lim > 0 &&
		math.Abs(s.primalBoundInternal()-s.dualboundInternalSafe()) <= lim {
		return StatusGapLimit, true
	}

	return StatusUnknown, false
}

// heapMB reports the live heap size in megabytes.
func heapMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return float64(m.HeapAlloc) / (1 << 20)
}

// isStopped is the cheap poll plugins and inner loops use.
func (s *Solver) isStopped() bool {
	if s.interrupted.Load() {
		return true
	}
	if s.run.ctx != nil {
		select {
		case <-s.run.ctx.Done():
			return true
		default:
		}
	}

	return false
}

// restartWanted checks the root-fixing restart criterion.
func (s *Solver) restartWanted() bool {
	maxrestarts := s.intParamOr("restarts/maxrestarts", -1)
	if maxrestarts >= 0 && s.stat.NRuns > maxrestarts {
		return false
	}
	if s.tree.focus == nil || s.tree.focus.depth != 0 {
		return false
	}
	frac := s.realParamOr("restarts/fixingfrac", 0.05)
	n := s.transprob.NVars()
	if n == 0 {
		return false
	}

	return float64(s.stat.NRootFixings) >= frac*float64(n) && s.stat.NRootFixings > 0
}

// restart abandons the current tree, keeps the incumbents, and starts a
// fresh run with another presolve over the tightened problem.
func (s *Solver) restart() error {
	s.log.Info().Int("run", s.stat.NRuns+1).
		Int64("rootfixings", s.stat.NRootFixings).
		Msg("restarting")

	// Keep the incumbents across the rebuild of the primal store.
	kept := append([]*Sol(nil), s.primal.sols...)
	upper := s.primal.upperbound

	if err := s.tree.focusNode(nil); err != nil {
		return err
	}
	s.tree = newTree(s)
	s.detachLP()
	s.lp = newLPData(s)
	s.clearCuts()
	s.primal = newPrimalStore(s.tol.Infinity())
	s.primal.upperbound = upper
	s.primal.cutoffbound = s.cutoffFromUpper(upper)
	s.lp.setCutoff(s.primal.cutoffbound)
	for _, sol := range kept {
		sol.runnum = s.stat.NRuns + 1
		s.primal.sols = append(s.primal.sols, sol)
	}
	s.primal.nSolsFound = int64(len(kept))
	s.primal.nextIndex = len(kept)

	s.stat.NRuns++
	s.stat.NRootFixings = 0

	// Another presolving pass over the globally tightened problem.
	if err := s.setStage(StageTransformed); err != nil {
		return err
	}
	outcome, err := s.presolve()
	if err != nil {
		return err
	}
	if outcome != presolveReduced {
		s.applyPresolveOutcome(outcome)
		s.tree.focus = nil

		return nil
	}
	if err := s.setStage(StageSolving); err != nil {
		return err
	}

	s.tree.createRoot()

	return s.tree.focusNode(s.tree.root)
}

// finishSolve leaves the solving stage: exit hooks, final log line.
func (s *Solver) finishSolve() (Status, error) {
	s.stat.SolvingTime = time.Since(s.solveStart)
	if err := s.processEvents(); err != nil {
		return s.status, err
	}
	for _, p := range s.allPlugins() {
		if es, ok := p.(ExitSolver); ok {
			if err := es.ExitSol(s); err != nil {
				return s.status, err
			}
		}
	}
	if err := s.setStage(StageSolved); err != nil {
		return s.status, err
	}
	s.log.Info().
		Stringer("status", s.status).
		Int64("nodes", s.stat.NNodes).
		Dur("time", s.stat.SolvingTime).
		Str("primalbound", boundString(s, s.PrimalBound())).
		Str("dualbound", boundString(s, s.Dualbound())).
		Msg("solving finished")

	return s.status, nil
}

// detachLP unlinks every column variable and row from the LP about to be
// discarded, the inverse of addCol/addRow, so a fresh LP starts empty.
func (s *Solver) detachLP() {
	if s.lp == nil {
		return
	}
	for _, v := range s.lp.cols {
		v.col = -1
		if v.status == StatusColumn {
			v.status = StatusLoose
		}
	}
	for _, r := range s.lp.rows {
		r.lppos = -1
	}
}

// FreeSolve discards the search tree and LP and returns to the transformed
// stage; the transformed problem, plugins, and solutions survive.
func (s *Solver) FreeSolve() error {
	if err := s.checkStage("FreeSolve", Stages(StageSolved, StagePresolved)); err != nil {
		return err
	}
	if err := s.setStage(StageFreeSolve); err != nil {
		return err
	}
	if s.tree != nil {
		if err := s.tree.focusNode(nil); err != nil {
			return err
		}
	}
	s.tree = newTree(s)
	s.tree.createRoot()
	s.detachLP()
	s.lp = newLPData(s)
	s.clearCuts()

	return s.setStage(StageTransformed)
}

// FreeTransform tears down the transformed problem entirely: solutions are
// translated into original space, plugins get their Exit callbacks, and
// the solver returns to the problem stage.
func (s *Solver) FreeTransform() error {
	if err := s.checkStage("FreeTransform", Stages(StageTransformed, StagePresolved, StageSolved)); err != nil {
		return err
	}
	if err := s.setStage(StageFreeTrans); err != nil {
		return err
	}

	// Translate the stored solutions into the original space.
	origSols := make([]*Sol, 0, len(s.primal.sols))
	for _, sol := range s.primal.sols {
		osol := &Sol{
			solver:    s,
			vals:      make(map[*Var]float64, s.origprob.NVars()),
			origin:    SolOriginOriginal,
			heur:      sol.heur,
			index:     sol.index,
			nodenum:   sol.nodenum,
			runnum:    sol.runnum,
			foundTime: sol.foundTime,
		}
		for _, ov := range s.origprob.vars {
			if ov.transvar == nil {
				continue
			}
			osol.SetVal(ov, sol.Val(ov.transvar))
		}
		origSols = append(origSols, osol)
	}

	if err := s.callExitHooks(); err != nil {
		return err
	}

	for _, ov := range s.origprob.vars {
		ov.transvar = nil
	}
	for _, oc := range s.origprob.conss {
		oc.transcons = nil
	}
	s.transprob = nil
	s.tree = nil
	s.lp = nil
	s.cliques = nil
	s.clearCuts()
	s.evfilter = eventFilter{}
	s.evqueue = eventQueue{}
	s.stat = Statistics{}

	s.primal = newPrimalStore(s.tol.Infinity())
	s.primal.sols = origSols
	s.primal.nSolsFound = int64(len(origSols))

	return s.setStage(StageProblem)
}
