// Package integral provides the constraint handler that enforces the
// integrality of integer variables. It owns no constraints of its own:
// feasibility is a property of the variable set, and enforcement resolves
// fractional relaxation values by branching.
package integral

import "github.com/optimiq/gociap/cip"

// Hdlr is the integrality handler.
type Hdlr struct{}

// NewHdlr returns the integrality handler.
func NewHdlr() *Hdlr { return &Hdlr{} }

// Name returns "integral".
func (h *Hdlr) Name() string { return "integral" }

// Desc describes the handler.
func (h *Hdlr) Desc() string { return "integrality of integer variables" }

// CheckPriority places the integrality check before the structural
// handlers.
func (h *Hdlr) CheckPriority() int { return 0 }

// EnfoPriority places integrality enforcement before the structural
// handlers, so branching happens on an LP solution that is otherwise
// feasible.
func (h *Hdlr) EnfoPriority() int { return 0 }

// SepaPriority is unused; the handler never separates.
func (h *Hdlr) SepaPriority() int { return 0 }

// SepaFreq disables separation.
func (h *Hdlr) SepaFreq() int { return -1 }

// PropFreq disables propagation.
func (h *Hdlr) PropFreq() int { return -1 }

func (h *Hdlr) problemVars(s *cip.Solver) []*cip.Var {
	if p := s.TransProb(); p != nil {
		return p.Vars()
	}
	if p := s.OrigProb(); p != nil {
		return p.Vars()
	}

	return nil
}

// Check verifies that all integer variables take integral values in sol.
func (h *Hdlr) Check(s *cip.Solver, conss []*cip.Cons, sol *cip.Sol, checkIntegrality, checkLPRows, printReason bool) (cip.Result, error) {
	if !checkIntegrality {
		return cip.ResultFeasible, nil
	}
	tol := s.Tolerances()
	for _, v := range h.problemVars(s) {
		if !v.Type().IsIntegral() || v.Type() == cip.VarImplInt {
			continue
		}
		val := sol.Val(v)
		if !tol.FeasIntegral(val) {
			if printReason {
				log := s.Logger()
				log.Info().
					Str("var", v.Name()).
					Float64("value", val).
					Msg("integrality violated")
			}

			return cip.ResultInfeasible, nil
		}
	}

	return cip.ResultFeasible, nil
}

// EnfoLP branches on a fractional variable of the LP solution.
func (h *Hdlr) EnfoLP(s *cip.Solver, conss []*cip.Cons) (cip.Result, error) {
	cands, _, _, err := s.BranchCands()
	if err != nil {
		return cip.ResultDidNotRun, err
	}
	if len(cands) == 0 {
		return cip.ResultFeasible, nil
	}

	res, err := s.BranchLP()
	if err != nil {
		return cip.ResultDidNotRun, err
	}
	if res == cip.ResultDidNotRun {
		return cip.ResultInfeasible, nil
	}

	return res, nil
}

// EnfoPS branches on an integer variable with a fractional pseudo value or
// an unfixed domain.
func (h *Hdlr) EnfoPS(s *cip.Solver, conss []*cip.Cons, objinfeasible bool) (cip.Result, error) {
	if objinfeasible {
		return cip.ResultDidNotRun, nil
	}
	tol := s.Tolerances()
	fractional := false
	for _, v := range h.problemVars(s) {
		if !v.Type().IsIntegral() || v.Type() == cip.VarImplInt {
			continue
		}
		if !tol.FeasIntegral(s.VarPseudoVal(v)) {
			fractional = true
			break
		}
	}
	if !fractional {
		return cip.ResultFeasible, nil
	}

	res, err := s.BranchPseudo()
	if err != nil {
		return cip.ResultDidNotRun, err
	}
	if res == cip.ResultDidNotRun {
		return cip.ResultInfeasible, nil
	}

	return res, nil
}

// Lock is a no-op: the handler owns no constraints.
func (h *Hdlr) Lock(s *cip.Solver, c *cip.Cons, nlockspos, nlocksneg int) error { return nil }
