package linear_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/cons/linear"
)

// LinearSuite exercises constraint creation and the data accessors of the
// linear handler.
type LinearSuite struct {
	suite.Suite
	s    *cip.Solver
	x, y *cip.Var
}

func (s *LinearSuite) SetupTest() {
	s.s = cip.NewSolver()
	require.NoError(s.T(), s.s.IncludeConshdlr(linear.NewHdlr()))
	require.NoError(s.T(), s.s.CreateProb("lin"))

	var err error
	s.x, err = s.s.CreateVar("x", cip.VarBinary, 0, 1, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(s.x))
	s.y, err = s.s.CreateVar("y", cip.VarBinary, 0, 1, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(s.y))
}

// TestNewConsCopiesData stores an independent copy of the coefficient
// arrays.
func (s *LinearSuite) TestNewConsCopiesData() {
	vars := []*cip.Var{s.x, s.y}
	vals := []float64{2, 3}
	c, err := linear.NewCons(s.s, "c", vars, vals, 1, 5)
	require.NoError(s.T(), err)

	vals[0] = 99
	d := c.Data().(*linear.ConsData)
	require.Equal(s.T(), []float64{2, 3}, d.Vals())
	require.Equal(s.T(), 1.0, d.Lhs())
	require.Equal(s.T(), 5.0, d.Rhs())
	require.Len(s.T(), d.Vars(), 2)
}

// TestNewConsValidation rejects mismatched arrays and crossing sides.
func (s *LinearSuite) TestNewConsValidation() {
	_, err := linear.NewCons(s.s, "bad", []*cip.Var{s.x}, []float64{1, 2}, 0, 1)
	require.Error(s.T(), err)

	_, err = linear.NewCons(s.s, "crossed", []*cip.Var{s.x}, []float64{1}, 2, 1)
	require.Error(s.T(), err)
}

// TestActivity evaluates the row activity under an assignment.
func (s *LinearSuite) TestActivity() {
	c, err := linear.NewCons(s.s, "c", []*cip.Var{s.x, s.y}, []float64{2, -1}, -10, 10)
	require.NoError(s.T(), err)

	d := c.Data().(*linear.ConsData)
	act := d.Activity(func(v *cip.Var) float64 {
		if v == s.x {
			return 1
		}

		return 0.5
	})
	require.InDelta(s.T(), 1.5, act, 1e-9)
}

// TestLocksFollowCoefficientSigns checks the rounding locks installed for
// a two-sided constraint.
func (s *LinearSuite) TestLocksFollowCoefficientSigns() {
	c, err := linear.NewCons(s.s, "c", []*cip.Var{s.x, s.y}, []float64{1, -1}, 0, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddCons(c))
	require.NoError(s.T(), s.s.Transform())

	// Both sides are finite: each rounding direction violates exactly one
	// side, so every variable carries one lock per direction. Locks live
	// on the transformed variables.
	tx, ty := s.x.TransVar(), s.y.TransVar()
	require.Equal(s.T(), 1, tx.NLocksDown())
	require.Equal(s.T(), 1, tx.NLocksUp())
	require.Equal(s.T(), 1, ty.NLocksDown())
	require.Equal(s.T(), 1, ty.NLocksUp())
}

// TestOneSidedLocks locks only against the violating direction of an
// inequality.
func (s *LinearSuite) TestOneSidedLocks() {
	inf := s.s.Infinity()
	c, err := linear.NewCons(s.s, "ge", []*cip.Var{s.x, s.y}, []float64{1, 1}, 1, inf)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddCons(c))
	require.NoError(s.T(), s.s.Transform())

	// x + y >= 1: rounding down can violate, rounding up cannot.
	require.Equal(s.T(), 1, s.x.TransVar().NLocksDown())
	require.Equal(s.T(), 0, s.x.TransVar().NLocksUp())
}

// TestPresolExtractsClique feeds a set-packing row through presolving and
// checks that it lands in the clique table.
func (s *LinearSuite) TestPresolExtractsClique() {
	c, err := linear.NewCons(s.s, "pack", []*cip.Var{s.x, s.y}, []float64{1, 1}, -s.s.Infinity(), 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddCons(c))
	require.NoError(s.T(), s.s.Transform())

	h := linear.NewHdlr()
	var stats cip.PresolStats
	res, err := h.Presol(s.s, s.s.TransProb().Conss(), 0, &stats)
	require.NoError(s.T(), err)
	require.NotEqual(s.T(), cip.ResultCutoff, res)
	require.Equal(s.T(), 1, s.s.NCliques())

	// A second pass must not register the same row again.
	res, err = h.Presol(s.s, s.s.TransProb().Conss(), 1, &stats)
	require.NoError(s.T(), err)
	require.NotEqual(s.T(), cip.ResultCutoff, res)
	require.Equal(s.T(), 1, s.s.NCliques())
}

func TestLinearSuite(t *testing.T) {
	suite.Run(t, new(LinearSuite))
}
