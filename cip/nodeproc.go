package cip

import (
	"errors"
	"fmt"
	"math"

	"github.com/optimiq/gociap/lpi"
)

// Safety caps against plugins that keep reporting progress without
// converging.
const (
	maxNodePasses    = 1000
	maxPropRounds    = 100
	maxPricingRounds = 50
)

// processNode runs the focus node through propagation, the price-and-cut
// loop, and constraint enforcement until the node is branched, pruned, or
// proven feasible.
func (s *Solver) processNode() error {
	focus := s.tree.focus
	if focus == nil {
		return fmt.Errorf("%w: processNode without a focus node", ErrInternal)
	}
	s.tree.pathReprop = false
	focus.reprop = false

	if focus.cutoff || !s.tol.Lt(focus.lowerbound, s.primal.cutoffbound) {
		return s.nodeCutoff(focus)
	}

	// Cuts and local rows of the previous focus are stale here.
	s.clearCuts()
	if err := s.lp.clearLocalRows(); err != nil {
		return err
	}
	s.lp.setCutoff(s.primal.cutoffbound)

	if err := s.runHeuristics(HeurBeforeNode); err != nil {
		return err
	}

	lpUsable := true
	lpRetried := false
	for pass := 0; ; pass++ {
		if pass >= maxNodePasses {
			return fmt.Errorf("%w: node %d did not settle after %d passes", ErrInternal, focus.number, maxNodePasses)
		}
		if s.isStopped() {
			return nil
		}

		res, err := s.propagateDomains()
		if err != nil {
			return err
		}
		if res == ResultCutoff {
			return s.nodeCutoff(focus)
		}
		if err := s.processEvents(); err != nil {
			return err
		}

		haveLP := false
		if lpUsable {
			done, solved, err := s.priceAndCutLoop()
			switch {
			case errors.Is(err, ErrLP) && !lpRetried:
				// One retry from scratch before giving up on the LP.
				lpRetried = true
				s.lp.solved = false
				s.log.Warn().Err(err).Int64("node", focus.number).
					Msg("LP solve failed, retrying")

				continue
			case errors.Is(err, ErrLP):
				s.log.Warn().Err(err).Int64("node", focus.number).
					Msg("LP solve failed, falling back to the pseudo solution")
				lpUsable = false
			case err != nil:
				return err
			case done:
				return nil
			default:
				haveLP = solved
			}
			if err := s.processEvents(); err != nil {
				return err
			}
		}

		done, err := s.runRelaxators()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if haveLP {
			if err := s.runHeuristics(HeurAfterLP); err != nil {
				return err
			}
			if !s.lp.solved {
				// A diving heuristic modified the LP; restore the node
				// solution before enforcement reads it.
				itlim := s.intParamOr("lp/iterlim", -1)
				stat, err := s.lp.solve(itlim)
				if err != nil {
					return err
				}
				if stat != lpi.StatOptimal {
					haveLP = false
				}
			}
		}

		objinfeasible := !haveLP && !s.tol.Lt(s.pseudoObj(), s.primal.cutoffbound)

		eres, err := s.enforceConstraints(haveLP, objinfeasible)
		if err != nil {
			return err
		}
		switch eres {
		case ResultFeasible:
			if objinfeasible {
				// The pseudo solution satisfies all constraints but its
				// objective already exceeds the cutoff.
				return s.nodeCutoff(focus)
			}

			return s.nodeFeasible(haveLP)
		case ResultCutoff:
			return s.nodeCutoff(focus)
		case ResultBranched:
			return s.nodeDone(haveLP)
		case ResultInfeasible:
			bres, err := s.branchOnNode(haveLP)
			if err != nil {
				return err
			}
			switch bres {
			case ResultBranched:
				return s.nodeDone(haveLP)
			case ResultCutoff:
				return s.nodeCutoff(focus)
			case ResultReducedDom, ResultConsAdded, ResultSeparated:
				continue
			case ResultDidNotRun:
				// No branching candidate is left; the violated subproblem
				// cannot be split any further.
				return s.nodeCutoff(focus)
			}
		case ResultReducedDom, ResultConsAdded, ResultSeparated, ResultSolveLP:
			continue
		}
	}
}

// nodeCutoff prunes the focus node.
func (s *Solver) nodeCutoff(n *Node) error {
	n.cutoff = true
	s.stat.NNodesCutoff++

	return s.publishEvent(&Event{Type: EventNodeInfeasible, Node: n})
}

// nodeFeasible turns the focus node's relaxation solution into a candidate
// incumbent.
func (s *Solver) nodeFeasible(haveLP bool) error {
	var (
		sol *Sol
		err error
	)
	if haveLP {
		sol, err = s.NewSolFromLP(nil)
	} else {
		sol, err = s.NewSolFromPseudo(nil)
	}
	if err != nil {
		return err
	}
	if _, err := s.TrySol(sol, false); err != nil {
		return err
	}
	if err := s.publishEvent(&Event{Type: EventNodeFeasible, Node: s.tree.focus, Sol: sol}); err != nil {
		return err
	}

	return s.nodeDone(haveLP)
}

// nodeDone fires the after-node heuristics once the focus node settled.
func (s *Solver) nodeDone(haveLP bool) error {
	if err := s.runHeuristics(HeurAfterNode); err != nil {
		return err
	}
	if !haveLP {
		return s.runHeuristics(HeurAfterPseudo)
	}

	return nil
}

// branchOnNode splits the focus node, preferring LP information when it is
// available.
func (s *Solver) branchOnNode(haveLP bool) (Result, error) {
	if haveLP {
		res, err := s.BranchLP()
		if err != nil || res != ResultDidNotRun {
			return res, err
		}
	}

	return s.BranchPseudo()
}

// propagateDomains runs the propagators and the constraint handlers'
// propagation callbacks to a fixed point.
func (s *Solver) propagateDomains() (Result, error) {
	depth := s.tree.focus.depth
	agg := ResultDidNotFind
	for round := 0; round < maxPropRounds; round++ {
		reduced := false

		for _, p := range s.propagatorsByPriority() {
			if !depthFires(p.Freq(), depth) {
				continue
			}
			res, err := p.Prop(s)
			if err != nil {
				return res, fmt.Errorf("propagator <%s>: %w", p.Name(), err)
			}
			switch res {
			case ResultCutoff:
				return ResultCutoff, nil
			case ResultReducedDom:
				reduced = true
			case ResultDidNotRun, ResultDidNotFind, ResultDelayed:
			default:
				return res, fmt.Errorf("%w: propagator <%s> returned %s", ErrInvalidData, p.Name(), res)
			}
		}

		for _, h := range s.conshdlrsByEnfo() {
			cp, ok := h.(ConsPropagator)
			if !ok || !depthFires(h.PropFreq(), depth) {
				continue
			}
			res, err := cp.Prop(s, s.localConss(h, false))
			if err != nil {
				return res, fmt.Errorf("conshdlr <%s> propagation: %w", h.Name(), err)
			}
			switch res {
			case ResultCutoff:
				return ResultCutoff, nil
			case ResultReducedDom:
				reduced = true
			case ResultDidNotRun, ResultDidNotFind, ResultDelayed:
			default:
				return res, fmt.Errorf("%w: conshdlr <%s> propagation returned %s", ErrInvalidData, h.Name(), res)
			}
		}

		res, err := s.propagateImplications()
		if err != nil {
			return res, err
		}
		switch res {
		case ResultCutoff:
			return ResultCutoff, nil
		case ResultReducedDom:
			reduced = true
		}

		if !reduced {
			break
		}
		agg = ResultReducedDom
	}

	return agg, nil
}

// constructLP enters all problem variables as columns and, once per run,
// collects the initial rows from the constraint handlers.
func (s *Solver) constructLP() error {
	for _, v := range s.transprob.vars {
		if err := s.lp.addCol(v); err != nil {
			return err
		}
	}
	if !s.lp.rootBuilt {
		for _, h := range s.reg.conshdlrs {
			il, ok := h.(ConsInitLPer)
			if !ok {
				continue
			}
			if err := il.InitLP(s, s.transprob.consOfHdlr(h, false)); err != nil {
				return fmt.Errorf("conshdlr <%s> initial LP: %w", h.Name(), err)
			}
		}
		s.lp.rootBuilt = true
	}

	return nil
}

// priceAndCutLoop solves the node relaxation: initial solve, pricing
// rounds, then separation rounds. done means the node was fully handled
// (pruned or proven unbounded); solved means an optimal LP solution is
// available for enforcement.
func (s *Solver) priceAndCutLoop() (done, solved bool, err error) {
	if err := s.constructLP(); err != nil {
		return false, false, err
	}

	done, err = s.solveLPAndCheck()
	if done || err != nil {
		return done, false, err
	}
	if !s.lpOptimal() {
		return false, false, nil
	}

	done, err = s.priceLoop()
	if done || err != nil {
		return done, false, err
	}
	if !s.lpOptimal() {
		return false, false, nil
	}

	done, err = s.separationLoop()
	if done || err != nil {
		return done, false, err
	}

	return false, s.lpOptimal(), nil
}

func (s *Solver) lpOptimal() bool {
	return s.lp.solved && s.lp.stat == lpi.StatOptimal
}

// solveLPAndCheck runs one LP solve and classifies the outcome; done means
// the node needs no further processing.
func (s *Solver) solveLPAndCheck() (bool, error) {
	focus := s.tree.focus
	itlim := s.intParamOr("lp/iterlim", -1)

	stat, err := s.lp.solve(itlim)
	if err != nil {
		return false, err
	}

	switch stat {
	case lpi.StatOptimal:
		lb := s.lp.objval + s.transOffset()
		s.updatePseudocost(lb)
		if len(s.reg.activePricers) == 0 {
			focus.UpdateLowerbound(lb)
		}
		if !s.tol.Lt(focus.lowerbound, s.primal.cutoffbound) {
			return true, s.nodeCutoff(focus)
		}

		return false, nil

	case lpi.StatInfeasible:
		if err := s.farkasPricing(); err != nil {
			return true, err
		}
		if s.lp.stat != lpi.StatInfeasible {
			// Farkas pricing repaired the LP; continue with the new solve.
			return s.classifyRepairedLP()
		}
		if _, err := s.AnalyzeConflictLP(); err != nil {
			return true, err
		}

		return true, s.nodeCutoff(focus)

	case lpi.StatObjLimit:
		if _, err := s.AnalyzeConflictLP(); err != nil {
			return true, err
		}
		focus.UpdateLowerbound(s.primal.cutoffbound)

		return true, s.nodeCutoff(focus)

	case lpi.StatUnbounded:
		// The relaxation admits an improving ray, so no finite optimum
		// exists anywhere below this node. A feasible pseudo solution
		// settles unbounded versus infeasible-or-unbounded.
		s.run.unbounded = true
		if sol, serr := s.NewSolFromPseudo(nil); serr == nil {
			if _, terr := s.TrySol(sol, false); terr != nil {
				return true, terr
			}
		}
		s.tree.cutoffAbove(math.Inf(-1))

		return true, s.nodeCutoff(focus)

	case lpi.StatIterLimit:
		return false, nil

	default:
		return false, fmt.Errorf("%w: unexpected solve status %d", ErrLP, stat)
	}
}

// classifyRepairedLP re-examines the LP status after Farkas pricing added
// columns and resolved.
func (s *Solver) classifyRepairedLP() (bool, error) {
	switch s.lp.stat {
	case lpi.StatOptimal, lpi.StatIterLimit:
		return false, nil
	case lpi.StatInfeasible:
		if _, err := s.AnalyzeConflictLP(); err != nil {
			return true, err
		}

		return true, s.nodeCutoff(s.tree.focus)
	default:
		return s.solveLPAndCheck()
	}
}

// farkasPricing lets the active pricers repair an infeasible LP; without
// pricers it is a no-op.
func (s *Solver) farkasPricing() error {
	if len(s.reg.activePricers) == 0 {
		return nil
	}
	for round := 0; round < maxPricingRounds; round++ {
		before := len(s.lp.cols)
		for _, p := range s.reg.activePricers {
			res, err := p.Farkas(s)
			if err != nil {
				return fmt.Errorf("pricer <%s> farkas: %w", p.Name(), err)
			}
			if res != ResultDidNotRun && res != ResultSuccess {
				return fmt.Errorf("%w: pricer <%s> farkas returned %s", ErrInvalidData, p.Name(), res)
			}
		}
		if len(s.lp.cols) == before {
			return nil
		}
		itlim := s.intParamOr("lp/iterlim", -1)
		if _, err := s.lp.solve(itlim); err != nil {
			return err
		}
		if s.lp.stat != lpi.StatInfeasible {
			return nil
		}
	}

	return nil
}

// priceLoop asks the active pricers for improving columns until none show
// up; the best pricer-provided bound becomes the node's lower bound.
func (s *Solver) priceLoop() (bool, error) {
	if len(s.reg.activePricers) == 0 {
		return false, nil
	}
	focus := s.tree.focus
	for round := 0; round < maxPricingRounds; round++ {
		before := len(s.lp.cols)
		lowerbound := math.Inf(-1)
		for _, p := range s.reg.activePricers {
			res, lb, err := p.RedCost(s)
			if err != nil {
				return false, fmt.Errorf("pricer <%s>: %w", p.Name(), err)
			}
			if res != ResultDidNotRun && res != ResultSuccess {
				return false, fmt.Errorf("%w: pricer <%s> returned %s", ErrInvalidData, p.Name(), res)
			}
			if res == ResultSuccess && lb > lowerbound {
				lowerbound = lb
			}
		}
		if len(s.lp.cols) == before {
			if !math.IsInf(lowerbound, -1) {
				focus.UpdateLowerbound(lowerbound)
				if !s.tol.Lt(focus.lowerbound, s.primal.cutoffbound) {
					return true, s.nodeCutoff(focus)
				}
			}

			return false, nil
		}
		done, err := s.solveLPAndCheck()
		if done || err != nil {
			return done, err
		}
		if !s.lpOptimal() {
			return false, nil
		}
	}

	return false, nil
}

// separationLoop runs cutting-plane rounds on the optimal LP solution.
func (s *Solver) separationLoop() (bool, error) {
	focus := s.tree.focus
	depth := focus.depth
	maxrounds := s.intParamOr("separating/maxrounds", 5)
	if depth == 0 {
		maxrounds = s.intParamOr("separating/maxroundsroot", -1)
	}
	if maxrounds < 0 {
		maxrounds = maxNodePasses
	}
	bounddist := s.focusBoundDist()

	for round := 0; round < maxrounds; round++ {
		if !s.lpOptimal() {
			return false, nil
		}

		cutoffFound := false
		for _, h := range s.conshdlrsBySepa() {
			cs, ok := h.(ConsSeparator)
			if !ok || !depthFires(h.SepaFreq(), depth) {
				continue
			}
			res, err := cs.SepaLP(s, s.localConss(h, false))
			if err != nil {
				return false, fmt.Errorf("conshdlr <%s> separation: %w", h.Name(), err)
			}
			if res == ResultCutoff {
				cutoffFound = true
				break
			}
		}
		if !cutoffFound {
			for _, sp := range s.separatorsByPriority() {
				if !depthFires(sp.Freq(), depth) {
					continue
				}
				if depth > 0 && bounddist > sp.MaxBoundDist()+s.tol.Epsilon() {
					continue
				}
				res, err := sp.SepaLP(s)
				if err != nil {
					return false, fmt.Errorf("separator <%s>: %w", sp.Name(), err)
				}
				if res == ResultCutoff {
					cutoffFound = true
					break
				}
			}
		}
		if cutoffFound {
			s.clearCuts()

			return true, s.nodeCutoff(focus)
		}

		applied, err := s.applyCuts()
		if err != nil {
			return false, err
		}
		if applied == 0 {
			return false, nil
		}

		if err := s.runHeuristics(HeurDuringLP); err != nil {
			return false, err
		}

		done, err := s.solveLPAndCheck()
		if done || err != nil {
			return done, err
		}
	}

	return false, nil
}

// runRelaxators executes the relaxators registered for the current depth.
func (s *Solver) runRelaxators() (bool, error) {
	focus := s.tree.focus
	for _, rx := range s.reg.relaxators {
		if !depthFires(rx.Freq(), focus.depth) {
			continue
		}
		res, lb, err := rx.Exec(s)
		if err != nil {
			return false, fmt.Errorf("relaxator <%s>: %w", rx.Name(), err)
		}
		switch res {
		case ResultCutoff:
			return true, s.nodeCutoff(focus)
		case ResultSuccess:
			focus.UpdateLowerbound(lb)
			if !s.tol.Lt(focus.lowerbound, s.primal.cutoffbound) {
				return true, s.nodeCutoff(focus)
			}
		case ResultSeparated, ResultReducedDom, ResultConsAdded, ResultDidNotRun, ResultDelayed:
		default:
			return false, fmt.Errorf("%w: relaxator <%s> returned %s", ErrInvalidData, rx.Name(), res)
		}
	}

	return false, nil
}

// enforceConstraints walks the handlers in enforcement-priority order. A
// handler's resolving result short-circuits the chain; plain Infeasible is
// remembered and only reported when nobody downstream resolves it.
func (s *Solver) enforceConstraints(haveLP, objinfeasible bool) (Result, error) {
	agg := ResultFeasible
	for _, h := range s.conshdlrsByEnfo() {
		conss := s.localConss(h, false)
		var (
			res Result
			err error
		)
		if haveLP {
			res, err = h.EnfoLP(s, conss)
		} else {
			res, err = h.EnfoPS(s, conss, objinfeasible)
		}
		if err != nil {
			return res, fmt.Errorf("conshdlr <%s> enforcement: %w", h.Name(), err)
		}
		switch res {
		case ResultCutoff, ResultBranched, ResultReducedDom, ResultConsAdded, ResultSeparated, ResultSolveLP:
			return res, nil
		case ResultInfeasible:
			agg = ResultInfeasible
		case ResultFeasible:
		case ResultDidNotRun:
			if haveLP || !objinfeasible {
				return res, fmt.Errorf("%w: conshdlr <%s> skipped enforcement", ErrInvalidData, h.Name())
			}
		default:
			return res, fmt.Errorf("%w: conshdlr <%s> enforcement returned %s", ErrInvalidData, h.Name(), res)
		}
	}

	return agg, nil
}

// pseudoObj is the transformed objective value of the pseudo solution,
// -inf when an unbounded direction leaves it undefined.
func (s *Solver) pseudoObj() float64 {
	sum := s.transOffset()
	for _, v := range s.transprob.vars {
		if v.obj == 0 {
			continue
		}
		term := v.obj * s.pseudoVal(v)
		if math.IsInf(term, -1) || math.IsNaN(term) {
			return math.Inf(-1)
		}
		sum += term
	}

	return sum
}

// runHeuristics executes the heuristics subscribed to the given timing at
// the focus depth.
func (s *Solver) runHeuristics(timing HeurTiming) error {
	depth := s.tree.focus.depth
	for _, h := range s.reg.heurs {
		if h.Timing()&timing == 0 || !heurFires(h, depth) {
			continue
		}
		res, err := h.Exec(s, timing)
		if err != nil {
			return fmt.Errorf("heuristic <%s>: %w", h.Name(), err)
		}
		switch res {
		case ResultDidNotRun, ResultDidNotFind, ResultDelayed, ResultSuccess:
		default:
			return fmt.Errorf("%w: heuristic <%s> returned %s", ErrInvalidData, h.Name(), res)
		}
	}

	return nil
}

// heurFires gates a heuristic by frequency, offset and depth limit.
func heurFires(h Heur, depth int) bool {
	freq := h.Freq()
	if freq < 0 {
		return false
	}
	if h.MaxDepth() >= 0 && depth > h.MaxDepth() {
		return false
	}
	if freq == 0 {
		return depth == h.FreqOffset()
	}

	return depth >= h.FreqOffset() && (depth-h.FreqOffset())%freq == 0
}

// depthFires is the plain frequency gate of propagators, separators and
// constraint handlers: -1 never, 0 root only, f every f-th depth.
func depthFires(freq, depth int) bool {
	if freq < 0 {
		return false
	}
	if freq == 0 {
		return depth == 0
	}

	return depth%freq == 0
}
