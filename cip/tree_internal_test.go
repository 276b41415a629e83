package cip

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// TreeSuite exercises local bound tightening and the probing mode on a
// solver forced into the solving stage with the root node in focus.
type TreeSuite struct {
	suite.Suite
	s    *Solver
	x, y *Var
}

func (s *TreeSuite) SetupTest() {
	s.s = NewSolver()
	require.NoError(s.T(), s.s.CreateProb("tree"))

	ox, err := s.s.CreateVar("x", VarInteger, 0, 10, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(ox))
	oy, err := s.s.CreateVar("y", VarContinuous, -5, 5, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(oy))

	require.NoError(s.T(), s.s.Transform())
	require.NoError(s.T(), s.s.setStage(StageSolving))
	require.NoError(s.T(), s.s.tree.focusNode(s.s.tree.root))

	s.x = ox.TransVar()
	s.y = oy.TransVar()
}

// bounds snapshots the exact local and global bounds of both variables.
func (s *TreeSuite) bounds() [8]float64 {
	return [8]float64{
		s.x.LocLb(), s.x.LocUb(), s.x.GlbLb(), s.x.GlbUb(),
		s.y.LocLb(), s.y.LocUb(), s.y.GlbLb(), s.y.GlbUb(),
	}
}

// TestTightenMonotonic checks that only genuine improvements change the
// local bound and that integral bounds are rounded.
func (s *TreeSuite) TestTightenMonotonic() {
	infeasible, tightened, err := s.s.TightenVarLb(s.x, 2.3, nil, 0)
	require.NoError(s.T(), err)
	require.False(s.T(), infeasible)
	require.True(s.T(), tightened)
	require.Equal(s.T(), 3.0, s.x.LocLb(), "integral lower bounds round up")

	// A weaker bound must not loosen the domain.
	_, tightened, err = s.s.TightenVarLb(s.x, 1.0, nil, 0)
	require.NoError(s.T(), err)
	require.False(s.T(), tightened)
	require.Equal(s.T(), 3.0, s.x.LocLb())

	// Global bounds stay untouched by local tightening.
	require.Equal(s.T(), 0.0, s.x.GlbLb())
}

// TestTightenCrossingBoundsIsInfeasible reports an empty domain instead of
// applying the change.
func (s *TreeSuite) TestTightenCrossingBoundsIsInfeasible() {
	infeasible, tightened, err := s.s.TightenVarLb(s.x, 10.6, nil, 0)
	require.NoError(s.T(), err)
	require.True(s.T(), infeasible)
	require.False(s.T(), tightened)
	require.Equal(s.T(), 0.0, s.x.LocLb())
}

// TestProbingRestoresBoundsExactly runs a probing dive with several layers
// of tightenings and verifies the restored state is bit-identical.
func (s *TreeSuite) TestProbingRestoresBoundsExactly() {
	before := s.bounds()

	require.NoError(s.T(), s.s.StartProbing())
	require.True(s.T(), s.s.InProbing())
	require.NoError(s.T(), s.s.FixVarProbing(s.x, 4))
	require.Equal(s.T(), 4.0, s.x.LocLb())
	require.Equal(s.T(), 4.0, s.x.LocUb())

	require.NoError(s.T(), s.s.NewProbingNode())
	_, _, err := s.s.TightenVarUb(s.y, 1.25, nil, 0)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1.25, s.y.LocUb())

	require.NoError(s.T(), s.s.EndProbing())
	require.False(s.T(), s.s.InProbing())
	require.Equal(s.T(), before, s.bounds())
	require.Empty(s.T(), s.s.tree.bdchgStack)
}

// TestProbingBacktrackPartially undoes only the layers above the target
// depth.
func (s *TreeSuite) TestProbingBacktrackPartially() {
	require.NoError(s.T(), s.s.StartProbing())
	require.NoError(s.T(), s.s.FixVarProbing(s.x, 2))

	require.NoError(s.T(), s.s.NewProbingNode())
	require.NoError(s.T(), s.s.FixVarProbing(s.y, -1))
	require.Equal(s.T(), 2, s.s.ProbingDepth())

	require.NoError(s.T(), s.s.BacktrackProbing(0))
	require.Equal(s.T(), 1, s.s.ProbingDepth())
	require.Equal(s.T(), 2.0, s.x.LocLb(), "the first layer survives")
	require.Equal(s.T(), -5.0, s.y.LocLb(), "the second layer is undone")

	require.NoError(s.T(), s.s.EndProbing())
	require.Equal(s.T(), 0.0, s.x.LocLb())
}

// TestProbingGuards rejects probing calls in the wrong order.
func (s *TreeSuite) TestProbingGuards() {
	require.ErrorIs(s.T(), s.s.EndProbing(), ErrInvalidCall)
	require.ErrorIs(s.T(), s.s.NewProbingNode(), ErrInvalidCall)
	require.NoError(s.T(), s.s.StartProbing())
	require.ErrorIs(s.T(), s.s.StartProbing(), ErrInvalidCall)
	require.NoError(s.T(), s.s.EndProbing())
}

func TestTreeSuite(t *testing.T) {
	suite.Run(t, new(TreeSuite))
}
