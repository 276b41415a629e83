package gociap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	gociap "github.com/optimiq/gociap"
	"github.com/optimiq/gociap/branch/mostinf"
	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/cons/integral"
	"github.com/optimiq/gociap/cons/linear"
	"github.com/optimiq/gociap/heur/fracdive"
	"github.com/optimiq/gociap/nodesel/dfs"
)

// SolveSuite runs the full pipeline on small models with the default
// plugin set.
type SolveSuite struct {
	suite.Suite
	s *cip.Solver
}

func (s *SolveSuite) SetupTest() {
	solver, err := gociap.NewDefaultSolver()
	require.NoError(s.T(), err)
	s.s = solver
}

func (s *SolveSuite) addVar(name string, t cip.VarType, lb, ub, obj float64) *cip.Var {
	v, err := s.s.CreateVar(name, t, lb, ub, obj)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(v))

	return v
}

func (s *SolveSuite) addLinear(name string, vars []*cip.Var, vals []float64, lhs, rhs float64) {
	c, err := linear.NewCons(s.s, name, vars, vals, lhs, rhs)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddCons(c))
}

func (s *SolveSuite) solve() cip.Status {
	st, err := s.s.Solve(context.Background())
	require.NoError(s.T(), err)
	require.Equal(s.T(), cip.StageSolved, s.s.Stage())

	return st
}

// TestSetCover solves min x+y subject to x+y >= 1 over binaries.
func (s *SolveSuite) TestSetCover() {
	require.NoError(s.T(), s.s.CreateProb("cover"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	s.addLinear("cover", []*cip.Var{x, y}, []float64{1, 1}, 1, s.s.Infinity())

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	sol := s.s.BestSol()
	require.NotNil(s.T(), sol)
	require.InDelta(s.T(), 1.0, sol.ObjExternal(), 1e-6)
	require.InDelta(s.T(), 1.0, sol.Val(x)+sol.Val(y), 1e-6)
}

// TestInfeasibleByActivity detects x+y >= 3 over two binaries during
// presolving.
func (s *SolveSuite) TestInfeasibleByActivity() {
	require.NoError(s.T(), s.s.CreateProb("inf"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	s.addLinear("c", []*cip.Var{x, y}, []float64{1, 1}, 3, s.s.Infinity())

	require.Equal(s.T(), cip.StatusInfeasible, s.solve())
	require.Nil(s.T(), s.s.BestSol())
}

// TestUnbounded detects min -x with x >= 0 free upward.
func (s *SolveSuite) TestUnbounded() {
	require.NoError(s.T(), s.s.CreateProb("unbd"))
	s.addVar("x", cip.VarContinuous, 0, s.s.Infinity(), -1)

	require.Equal(s.T(), cip.StatusUnbounded, s.solve())
}

// TestMaximize checks the external objective frame on max x+y with
// x+y <= 1.
func (s *SolveSuite) TestMaximize() {
	require.NoError(s.T(), s.s.CreateProb("max"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	require.NoError(s.T(), s.s.SetObjsense(cip.Maximize))
	s.addLinear("pack", []*cip.Var{x, y}, []float64{1, 1}, -s.s.Infinity(), 1)

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	require.InDelta(s.T(), 1.0, s.s.BestSol().ObjExternal(), 1e-6)
}

// TestPresolveFixesUnitClause fixes x through the singleton constraint
// x >= 1 and solves the rest.
func (s *SolveSuite) TestPresolveFixesUnitClause() {
	require.NoError(s.T(), s.s.CreateProb("unit"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	s.addLinear("unit", []*cip.Var{x}, []float64{1}, 1, s.s.Infinity())

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	sol := s.s.BestSol()
	require.InDelta(s.T(), 1.0, sol.ObjExternal(), 1e-6)
	require.InDelta(s.T(), 1.0, sol.Val(x), 1e-6)
	require.InDelta(s.T(), 0.0, sol.Val(y), 1e-6)
}

// TestAggregationWithAuxiliary solves min x+y subject to 2x+3y = 5 over
// integers: presolving parameterizes the pair by an auxiliary integer
// whose derived range pins both variables.
func (s *SolveSuite) TestAggregationWithAuxiliary() {
	require.NoError(s.T(), s.s.CreateProb("dioph"))
	x := s.addVar("x", cip.VarInteger, 0, 5, 1)
	y := s.addVar("y", cip.VarInteger, 0, 5, 1)
	s.addLinear("eq", []*cip.Var{x, y}, []float64{2, 3}, 5, 5)

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	sol := s.s.BestSol()
	require.InDelta(s.T(), 2.0, sol.ObjExternal(), 1e-6)
	require.InDelta(s.T(), 1.0, sol.Val(x), 1e-6)
	require.InDelta(s.T(), 1.0, sol.Val(y), 1e-6)
}

// TestAggregationParityInfeasible detects that 2x+2y = 5 has no integer
// solution.
func (s *SolveSuite) TestAggregationParityInfeasible() {
	require.NoError(s.T(), s.s.CreateProb("parity"))
	x := s.addVar("x", cip.VarInteger, 0, 10, 1)
	y := s.addVar("y", cip.VarInteger, 0, 10, 1)
	s.addLinear("eq", []*cip.Var{x, y}, []float64{2, 2}, 5, 5)

	require.Equal(s.T(), cip.StatusInfeasible, s.solve())
}

// TestBranching solves a knapsack whose LP relaxation is fractional, so
// the integrality handler has to branch.
func (s *SolveSuite) TestBranching() {
	require.NoError(s.T(), s.s.CreateProb("knap"))
	require.NoError(s.T(), s.s.SetObjsense(cip.Maximize))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	z := s.addVar("z", cip.VarBinary, 0, 1, 1)
	s.addLinear("cap", []*cip.Var{x, y, z}, []float64{2, 2, 2}, -s.s.Infinity(), 3)

	// The LP relaxation packs 1.5 units; only one item fits integrally.
	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	sol := s.s.BestSol()
	require.InDelta(s.T(), 1.0, sol.ObjExternal(), 1e-6)
	require.Greater(s.T(), s.s.NNodes(), int64(1), "the root alone cannot settle this model")
}

// TestRestartKeepsSolutions forces a root restart after the unit-clause
// fixing and checks the incumbent survives into the second run.
func (s *SolveSuite) TestRestartKeepsSolutions() {
	require.NoError(s.T(), s.s.CreateProb("restart"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	s.addLinear("unit", []*cip.Var{x}, []float64{1}, 1, s.s.Infinity())
	s.addLinear("cover", []*cip.Var{x, y}, []float64{1, 1}, 1, s.s.Infinity())

	require.NoError(s.T(), s.s.Params().SetInt("restarts/maxrestarts", 1))
	require.NoError(s.T(), s.s.Params().SetReal("restarts/fixingfrac", 0))

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	require.Equal(s.T(), 2, s.s.Stats().NRuns)
	require.InDelta(s.T(), 1.0, s.s.BestSol().ObjExternal(), 1e-6)
}

// TestNodeLimit stops before the first node when limits/nodes is zero.
func (s *SolveSuite) TestNodeLimit() {
	require.NoError(s.T(), s.s.CreateProb("lim"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	s.addLinear("c", []*cip.Var{x}, []float64{1}, 1, s.s.Infinity())

	require.NoError(s.T(), s.s.Params().SetLong("limits/nodes", 0))
	st, err := s.s.Solve(context.Background())
	require.NoError(s.T(), err)
	require.Equal(s.T(), cip.StatusNodeLimit, st)
}

// TestCancelledContext reports a user interrupt without touching a node.
func (s *SolveSuite) TestCancelledContext() {
	require.NoError(s.T(), s.s.CreateProb("cancel"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	s.addLinear("cover", []*cip.Var{x, y}, []float64{1, 1}, 1, s.s.Infinity())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := s.s.Solve(ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), cip.StatusUserInterrupt, st)
}

// TestFreeSolveResolves solves, frees the search, and solves again from
// the transformed stage.
func (s *SolveSuite) TestFreeSolveResolves() {
	require.NoError(s.T(), s.s.CreateProb("resolve"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	s.addLinear("cover", []*cip.Var{x, y}, []float64{1, 1}, 1, s.s.Infinity())

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	require.NoError(s.T(), s.s.FreeSolve())
	require.Equal(s.T(), cip.StageTransformed, s.s.Stage())

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	require.InDelta(s.T(), 1.0, s.s.BestSol().ObjExternal(), 1e-6)
}

// TestReaderRoundTrip writes a model file, reads it back, and solves it.
func (s *SolveSuite) TestReaderRoundTrip() {
	model := `# tiny cover model
problem tiny
minimize
var x binary 0 1 1
var y binary 0 1 1
cons cover 1 inf 1 x 1 y
`
	path := filepath.Join(s.T().TempDir(), "tiny.cip")
	require.NoError(s.T(), os.WriteFile(path, []byte(model), 0o644))

	require.NoError(s.T(), s.s.ReadProb(path))
	require.Equal(s.T(), "tiny", s.s.OrigProb().Name())
	require.Equal(s.T(), 2, s.s.OrigProb().NVars())
	require.Equal(s.T(), 1, s.s.OrigProb().NConss())

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	require.InDelta(s.T(), 1.0, s.s.BestSol().ObjExternal(), 1e-6)
}

// countingEventhdlr tallies delivered events by type.
type countingEventhdlr struct {
	seen map[cip.EventType]int
}

func (h *countingEventhdlr) Name() string { return "counter" }

func (h *countingEventhdlr) Exec(s *cip.Solver, ev *cip.Event, data any) error {
	h.seen[ev.Type]++

	return nil
}

// TestEventDelivery checks that a subscribed handler receives both the
// synchronously delivered variable events and the queued tree and
// solution events during a solve.
func (s *SolveSuite) TestEventDelivery() {
	require.NoError(s.T(), s.s.CreateProb("events"))
	x := s.addVar("x", cip.VarBinary, 0, 1, 1)
	y := s.addVar("y", cip.VarBinary, 0, 1, 1)
	s.addLinear("cover", []*cip.Var{x, y}, []float64{1, 1}, 1, s.s.Infinity())

	require.NoError(s.T(), s.s.Transform())
	rec := &countingEventhdlr{seen: make(map[cip.EventType]int)}
	_, err := s.s.CatchEvent(cip.EventNodeFocused|cip.EventBestSolFound|cip.EventSolFound, rec, nil)
	require.NoError(s.T(), err)

	require.Equal(s.T(), cip.StatusOptimal, s.solve())
	require.Greater(s.T(), rec.seen[cip.EventNodeFocused], 0)
	require.Greater(s.T(), rec.seen[cip.EventBestSolFound], 0)
	require.Greater(s.T(), rec.seen[cip.EventSolFound], 0)
}

// TestDivingHeuristicRuns builds a solver with an explicit fracdive handle
// and checks the dive actually executes on a model with a fractional root
// relaxation.
func (s *SolveSuite) TestDivingHeuristicRuns() {
	solver := cip.NewSolver()
	require.NoError(s.T(), solver.IncludeConshdlr(integral.NewHdlr()))
	require.NoError(s.T(), solver.IncludeConshdlr(linear.NewHdlr()))
	require.NoError(s.T(), solver.IncludeBranchrule(mostinf.New()))
	require.NoError(s.T(), solver.IncludeNodesel(dfs.New()))
	h := fracdive.New()
	require.NoError(s.T(), solver.IncludeHeur(h))

	require.NoError(s.T(), solver.CreateProb("divek"))
	require.NoError(s.T(), solver.SetObjsense(cip.Maximize))
	vars := make([]*cip.Var, 3)
	vals := make([]float64, 3)
	for i, name := range []string{"x", "y", "z"} {
		v, err := solver.CreateVar(name, cip.VarBinary, 0, 1, 1)
		require.NoError(s.T(), err)
		require.NoError(s.T(), solver.AddVar(v))
		vars[i] = v
		vals[i] = 2
	}
	c, err := linear.NewCons(solver, "cap", vars, vals, -solver.Infinity(), 3)
	require.NoError(s.T(), err)
	require.NoError(s.T(), solver.AddCons(c))

	st, err := solver.Solve(context.Background())
	require.NoError(s.T(), err)
	require.Equal(s.T(), cip.StatusOptimal, st)
	require.InDelta(s.T(), 1.0, solver.BestSol().ObjExternal(), 1e-6)
	require.Positive(s.T(), h.NCalls(), "the fractional root LP must trigger a dive")
}

func TestSolveSuite(t *testing.T) {
	suite.Run(t, new(SolveSuite))
}
