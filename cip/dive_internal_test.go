package cip

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/optimiq/gociap/lpi"
)

// DiveSuite exercises the LP dive API on a solver forced into the solving
// stage with a hand-built relaxation.
type DiveSuite struct {
	suite.Suite
	s    *Solver
	x, y *Var
}

func (s *DiveSuite) SetupTest() {
	s.s = NewSolver()
	require.NoError(s.T(), s.s.CreateProb("dive"))

	x, err := s.s.CreateVar("x", VarInteger, 0, 4, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(x))
	y, err := s.s.CreateVar("y", VarInteger, 0, 4, 2)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(y))

	require.NoError(s.T(), s.s.Transform())
	require.NoError(s.T(), s.s.setStage(StageSolving))
	require.NoError(s.T(), s.s.tree.focusNode(s.s.tree.root))
	s.x = x.TransVar()
	s.y = y.TransVar()

	require.NoError(s.T(), s.s.constructLP())
	r, err := s.s.NewRow("cov", []*Var{s.x, s.y}, []float64{2, 2}, 3, s.s.Infinity(), false, false)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddRowLP(r))

	stat, err := s.s.lp.solve(-1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), lpi.StatOptimal, stat)
	require.InDelta(s.T(), 1.5, s.s.VarLPVal(s.x), 1e-9)
}

// TestDiveFixAndRestore fixes the fractional column inside a dive,
// re-solves, and checks EndDive brings the original relaxation back.
func (s *DiveSuite) TestDiveFixAndRestore() {
	require.NoError(s.T(), s.s.StartDive())
	require.True(s.T(), s.s.InDive())

	require.NoError(s.T(), s.s.ChgVarLbDive(s.x, 2))
	require.NoError(s.T(), s.s.ChgVarUbDive(s.x, 2))
	require.Equal(s.T(), 2.0, s.s.VarLbDive(s.x))
	require.Equal(s.T(), 2.0, s.s.VarUbDive(s.x))

	stat, err := s.s.SolveDiveLP(-1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), lpi.StatOptimal, stat)
	require.InDelta(s.T(), 2.0, s.s.VarLPVal(s.x), 1e-9)
	require.InDelta(s.T(), 0.0, s.s.VarLPVal(s.y), 1e-9)

	require.NoError(s.T(), s.s.EndDive())
	require.False(s.T(), s.s.InDive())
	require.False(s.T(), s.s.lp.solved, "the node LP must be re-solved after a dive")

	lb, ub := s.s.lp.lpi.ColBounds(s.x.col)
	require.Equal(s.T(), 0.0, lb)
	require.Equal(s.T(), 4.0, ub)

	stat, err = s.s.lp.solve(-1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), lpi.StatOptimal, stat)
	require.InDelta(s.T(), 1.5, s.s.VarLPVal(s.x), 1e-9)
}

// TestDiveGuards rejects dive calls outside a dive and nested dives.
func (s *DiveSuite) TestDiveGuards() {
	require.ErrorIs(s.T(), s.s.ChgVarLbDive(s.x, 1), ErrInvalidCall)
	_, err := s.s.SolveDiveLP(-1)
	require.ErrorIs(s.T(), err, ErrInvalidCall)
	require.ErrorIs(s.T(), s.s.EndDive(), ErrInvalidCall)

	require.NoError(s.T(), s.s.StartDive())
	require.ErrorIs(s.T(), s.s.StartDive(), ErrInvalidCall)
	require.NoError(s.T(), s.s.EndDive())
}

// TestDiveKeepsDomains leaves the node's variable bounds untouched no
// matter what the dive does to the LP columns.
func (s *DiveSuite) TestDiveKeepsDomains() {
	require.NoError(s.T(), s.s.StartDive())
	require.NoError(s.T(), s.s.ChgVarUbDive(s.x, 1))
	_, err := s.s.SolveDiveLP(-1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.EndDive())

	require.Equal(s.T(), 0.0, s.x.LocLb())
	require.Equal(s.T(), 4.0, s.x.LocUb())
}

func TestDiveSuite(t *testing.T) {
	suite.Run(t, new(DiveSuite))
}
