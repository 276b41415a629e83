package cip

import (
	"sort"
	"strconv"
)

// logSolutionFound reports a new incumbent, tagged with the display
// character of the finding heuristic ('*' for solutions from the tree).
func (s *Solver) logSolutionFound(sol *Sol) {
	tag := byte('*')
	if sol.heur != nil {
		tag = sol.heur.DispChar()
	}
	s.log.Info().
		Str("found", string(tag)).
		Int64("node", sol.nodenum).
		Float64("primalbound", sol.ObjExternal()).
		Float64("dualbound", s.Dualbound()).
		Float64("gap", s.Gap()).
		Msg("new incumbent")
}

// displayLine emits one periodic progress line built from the registered
// display columns, ordered by position.
func (s *Solver) displayLine() {
	cols := append([]DispColumn(nil), s.reg.dispcols...)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position() < cols[j].Position() })

	ev := s.log.Info()
	for _, c := range cols {
		ev = ev.Str(c.Header(), c.Value(s))
	}
	if len(cols) == 0 {
		ev = ev.
			Int64("nodes", s.stat.NNodes).
			Int("open", s.NOpenNodes()).
			Str("primalbound", boundString(s, s.PrimalBound())).
			Str("dualbound", boundString(s, s.Dualbound())).
			Float64("gap", s.Gap())
	}
	ev.Msg("progress")
}

func boundString(s *Solver, v float64) string {
	if s.tol.IsInfinity(v) {
		return "+inf"
	}
	if s.tol.IsNegInfinity(v) {
		return "-inf"
	}

	return strconv.FormatFloat(v, 'g', 10, 64)
}
