package cip

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// AggregateSuite exercises variable fixing and aggregation, including the
// diophantine pair aggregation that introduces an auxiliary variable.
type AggregateSuite struct {
	suite.Suite
	s *Solver
}

func (s *AggregateSuite) SetupTest() {
	s.s = NewSolver()
	require.NoError(s.T(), s.s.CreateProb("aggr"))
}

// addIntVar creates and adds an original integer variable and returns its
// transformed counterpart lookup closure for after Transform.
func (s *AggregateSuite) addIntVar(name string, lb, ub, obj float64) *Var {
	v, err := s.s.CreateVar(name, VarInteger, lb, ub, obj)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(v))

	return v
}

// enterPresolving transforms the problem and forces the presolving stage,
// which is where fixings and aggregations are legal.
func (s *AggregateSuite) enterPresolving() {
	require.NoError(s.T(), s.s.Transform())
	require.NoError(s.T(), s.s.setStage(StagePresolving))
}

// TestGCD checks the integer gcd helper on signs and zero.
func (s *AggregateSuite) TestGCD() {
	require.Equal(s.T(), int64(6), gcd64(12, 18))
	require.Equal(s.T(), int64(1), gcd64(7, 13))
	require.Equal(s.T(), int64(5), gcd64(5, 0))
	require.Equal(s.T(), int64(5), gcd64(0, 5))
	require.Equal(s.T(), int64(4), gcd64(abs64(-8), abs64(12)))
}

// TestExtGCD verifies the Bézout identity u·a + v·b = gcd(a, b).
func (s *AggregateSuite) TestExtGCD() {
	for _, tc := range [][2]int64{{2, 3}, {3, 5}, {6, 9}, {-4, 6}, {35, 15}} {
		a, b := tc[0], tc[1]
		u, v := extGCD(a, b)
		g := gcd64(abs64(a), abs64(b))
		require.Equal(s.T(), g, u*a+v*b, "extGCD(%d, %d)", a, b)
	}
}

// TestFixVarMovesObjectiveToOffset fixes a variable and checks that its
// objective contribution lands in the transformed offset.
func (s *AggregateSuite) TestFixVarMovesObjectiveToOffset() {
	x := s.addIntVar("x", 0, 10, 3)
	s.addIntVar("y", 0, 10, 1)
	s.enterPresolving()

	tx := x.TransVar()
	infeasible, fixed, err := s.s.FixVar(tx, 4)
	require.NoError(s.T(), err)
	require.False(s.T(), infeasible)
	require.True(s.T(), fixed)
	require.Equal(s.T(), StatusFixed, tx.Status())
	require.Equal(s.T(), 1, s.s.TransProb().NVars())
	require.InDelta(s.T(), 12.0, s.s.transprob.objoffset, 1e-9)
	require.Zero(s.T(), tx.Obj())
}

// TestFixVarOutsideDomain reports infeasibility without touching the
// variable.
func (s *AggregateSuite) TestFixVarOutsideDomain() {
	x := s.addIntVar("x", 0, 10, 1)
	s.enterPresolving()

	infeasible, fixed, err := s.s.FixVar(x.TransVar(), 11)
	require.NoError(s.T(), err)
	require.True(s.T(), infeasible)
	require.False(s.T(), fixed)
	require.Equal(s.T(), StatusLoose, x.TransVar().Status())
}

// TestAggregateDirect eliminates y through x + y = 3 where the
// substitution is integral.
func (s *AggregateSuite) TestAggregateDirect() {
	x := s.addIntVar("x", 0, 3, 1)
	y := s.addIntVar("y", 0, 3, 1)
	s.enterPresolving()

	tx, ty := x.TransVar(), y.TransVar()
	infeasible, aggregated, err := s.s.AggregateVars(tx, ty, 1, 1, 3)
	require.NoError(s.T(), err)
	require.False(s.T(), infeasible)
	require.True(s.T(), aggregated)
	require.Equal(s.T(), 1, s.s.TransProb().NVars())

	// One of the pair survives, the other resolves to 3 − survivor.
	eliminated, survivor := tx, ty
	if ty.Status() == StatusAggregated {
		eliminated, survivor = ty, tx
	}
	require.Equal(s.T(), StatusAggregated, eliminated.Status())
	vars, scalars, constant := eliminated.ActiveRepresentation()
	require.Len(s.T(), vars, 1)
	require.Same(s.T(), survivor, vars[0])
	require.InDelta(s.T(), -1.0, scalars[0], 1e-9)
	require.InDelta(s.T(), 3.0, constant, 1e-9)
}

// TestAggregateDiophantine exercises 2x + 3y = 5: neither substitution is
// integral, so an auxiliary integer parameterizes the solution set and
// both x and y hang off it. The domains are wide enough for several
// solutions, so the auxiliary stays a genuine variable.
func (s *AggregateSuite) TestAggregateDiophantine() {
	x := s.addIntVar("x", -10, 10, 1)
	y := s.addIntVar("y", -10, 10, 1)
	s.enterPresolving()

	tx, ty := x.TransVar(), y.TransVar()
	infeasible, aggregated, err := s.s.AggregateVars(tx, ty, 2, 3, 5)
	require.NoError(s.T(), err)
	require.False(s.T(), infeasible)
	require.True(s.T(), aggregated)
	require.Equal(s.T(), StatusAggregated, tx.Status())
	require.Equal(s.T(), StatusAggregated, ty.Status())

	// Only the auxiliary remains active.
	require.Equal(s.T(), 1, s.s.TransProb().NVars())
	z := s.s.TransProb().Vars()[0]
	require.Equal(s.T(), VarInteger, z.Type())

	// Every z in its domain must satisfy 2x + 3y = 5 with x, y in range.
	require.Less(s.T(), z.GlbLb(), z.GlbUb())
	for zv := z.GlbLb(); zv <= z.GlbUb(); zv++ {
		get := func(v *Var) float64 { return zv }
		xv, yv := tx.Val(get), ty.Val(get)
		require.InDelta(s.T(), 5.0, 2*xv+3*yv, 1e-9)
		require.GreaterOrEqual(s.T(), xv, -10.0)
		require.LessOrEqual(s.T(), xv, 10.0)
		require.GreaterOrEqual(s.T(), yv, -10.0)
		require.LessOrEqual(s.T(), yv, 10.0)
	}
}

// TestAggregateDiophantineCollapsed exercises 2x + 3y = 5 on [0, 5]
// domains: the auxiliary's derived range is the single value 0, so the
// reduction degenerates into fixing x = 1 and y = 1.
func (s *AggregateSuite) TestAggregateDiophantineCollapsed() {
	x := s.addIntVar("x", 0, 5, 1)
	y := s.addIntVar("y", 0, 5, 1)
	s.enterPresolving()

	tx, ty := x.TransVar(), y.TransVar()
	infeasible, aggregated, err := s.s.AggregateVars(tx, ty, 2, 3, 5)
	require.NoError(s.T(), err)
	require.False(s.T(), infeasible)
	require.True(s.T(), aggregated)
	require.Equal(s.T(), StatusFixed, tx.Status())
	require.Equal(s.T(), StatusFixed, ty.Status())
	require.Equal(s.T(), 0, s.s.TransProb().NVars())

	get := func(v *Var) float64 { return 0 }
	require.InDelta(s.T(), 1.0, tx.Val(get), 1e-9)
	require.InDelta(s.T(), 1.0, ty.Val(get), 1e-9)
}

// TestAggregateInfeasibleParity detects that 2x + 2y = 5 has no integer
// solution.
func (s *AggregateSuite) TestAggregateInfeasibleParity() {
	x := s.addIntVar("x", 0, 10, 1)
	y := s.addIntVar("y", 0, 10, 1)
	s.enterPresolving()

	infeasible, aggregated, err := s.s.AggregateVars(x.TransVar(), y.TransVar(), 2, 2, 5)
	require.NoError(s.T(), err)
	require.True(s.T(), infeasible)
	require.False(s.T(), aggregated)
}

// TestAggregateRequiresPresolving rejects aggregation outside the
// presolving stage.
func (s *AggregateSuite) TestAggregateRequiresPresolving() {
	x := s.addIntVar("x", 0, 5, 1)
	y := s.addIntVar("y", 0, 5, 1)
	require.NoError(s.T(), s.s.Transform())

	_, _, err := s.s.AggregateVars(x.TransVar(), y.TransVar(), 1, 1, 2)
	require.ErrorIs(s.T(), err, ErrInvalidCall)
}

func TestAggregateSuite(t *testing.T) {
	suite.Run(t, new(AggregateSuite))
}
