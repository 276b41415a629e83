package gociap

import (
	"github.com/optimiq/gociap/branch/mostinf"
	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/cons/integral"
	"github.com/optimiq/gociap/cons/linear"
	"github.com/optimiq/gociap/heur/fracdive"
	"github.com/optimiq/gociap/heur/rounding"
	"github.com/optimiq/gociap/nodesel/bestfirst"
	"github.com/optimiq/gociap/nodesel/dfs"
)

// NewDefaultSolver returns a solver with all built-in plugins registered.
func NewDefaultSolver() (*cip.Solver, error) {
	s := cip.NewSolver()
	if err := IncludeDefaults(s); err != nil {
		return nil, err
	}

	return s, nil
}

// IncludeDefaults registers the built-in plugin set: the linear and
// integrality constraint handlers, the linear conflict handler, the
// rounding and fractional diving heuristics, most-infeasible branching,
// the best-first and depth-first node selectors, and the cip-format reader.
func IncludeDefaults(s *cip.Solver) error {
	if err := s.IncludeConshdlr(integral.NewHdlr()); err != nil {
		return err
	}
	if err := s.IncludeConshdlr(linear.NewHdlr()); err != nil {
		return err
	}
	if err := s.IncludeConflicthdlr(linear.NewConflictHdlr()); err != nil {
		return err
	}
	if err := s.IncludeHeur(rounding.New()); err != nil {
		return err
	}
	if err := s.IncludeHeur(fracdive.New()); err != nil {
		return err
	}
	if err := s.IncludeBranchrule(mostinf.New()); err != nil {
		return err
	}
	if err := s.IncludeNodesel(bestfirst.New()); err != nil {
		return err
	}
	if err := s.IncludeNodesel(dfs.New()); err != nil {
		return err
	}

	return s.IncludeReader(NewReader())
}
