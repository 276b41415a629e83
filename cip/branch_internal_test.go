package cip

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// BranchSuite exercises the child creation of BranchVar and the
// BranchPseudo fallback on a solver forced into the solving stage.
type BranchSuite struct {
	suite.Suite
	s       *Solver
	x, y, h *Var
}

func (s *BranchSuite) SetupTest() {
	s.s = NewSolver()
	require.NoError(s.T(), s.s.CreateProb("branch"))

	ox, err := s.s.CreateVar("x", VarInteger, 0, 10, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(ox))
	oy, err := s.s.CreateVar("y", VarInteger, 0, 10, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(oy))
	oh, err := s.s.CreateVar("h", VarInteger, 0, s.s.Infinity(), 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(oh))

	require.NoError(s.T(), s.s.Transform())
	require.NoError(s.T(), s.s.setStage(StageSolving))
	require.NoError(s.T(), s.s.tree.focusNode(s.s.tree.root))

	s.x = ox.TransVar()
	s.y = oy.TransVar()
	s.h = oh.TransVar()
}

// child returns the i-th unprocessed child of the focus node.
func (s *BranchSuite) child(i int) *Node {
	require.Greater(s.T(), s.s.NChildren(), i)

	return s.s.tree.children[i]
}

// TestBranchFractionalSplitsFloorCeil creates the floor and ceil children
// for a fractional branching value.
func (s *BranchSuite) TestBranchFractionalSplitsFloorCeil() {
	require.NoError(s.T(), s.s.BranchVar(s.x, 2.5))
	require.Equal(s.T(), 2, s.s.NChildren())

	down := s.child(0)
	require.Equal(s.T(), BoundUpper, down.bdchgs[0].btype)
	require.Equal(s.T(), 2.0, down.bdchgs[0].newbound)

	up := s.child(1)
	require.Equal(s.T(), BoundLower, up.bdchgs[0].btype)
	require.Equal(s.T(), 3.0, up.bdchgs[0].newbound)
}

// TestBranchIntegralAtBoundHalvesDomain checks that an integral branching
// value on a bound of a finite domain yields the midpoint split instead of
// the three-way one.
func (s *BranchSuite) TestBranchIntegralAtBoundHalvesDomain() {
	require.NoError(s.T(), s.s.BranchVar(s.x, 0))
	require.Equal(s.T(), 2, s.s.NChildren())

	down := s.child(0)
	require.Equal(s.T(), BoundUpper, down.bdchgs[0].btype)
	require.Equal(s.T(), 5.0, down.bdchgs[0].newbound)

	up := s.child(1)
	require.Equal(s.T(), BoundLower, up.bdchgs[0].btype)
	require.Equal(s.T(), 6.0, up.bdchgs[0].newbound)
}

// TestBranchIntegralInteriorThreeWay keeps the below/equal/above split for
// integral values strictly inside the domain.
func (s *BranchSuite) TestBranchIntegralInteriorThreeWay() {
	require.NoError(s.T(), s.s.BranchVar(s.x, 5))
	require.Equal(s.T(), 3, s.s.NChildren())
}

// TestBranchIntegralAtInfiniteSideBound branches on the bound of a
// half-infinite domain: the out-of-domain child is dropped and the
// remaining split is value / above.
func (s *BranchSuite) TestBranchIntegralAtInfiniteSideBound() {
	require.NoError(s.T(), s.s.BranchVar(s.h, 0))
	require.Equal(s.T(), 2, s.s.NChildren())

	eq := s.child(0)
	require.Equal(s.T(), BranchDirFixed, eq.branchDir)

	up := s.child(1)
	require.Equal(s.T(), BoundLower, up.bdchgs[0].btype)
	require.Equal(s.T(), 1.0, up.bdchgs[0].newbound)
}

// TestBranchPseudoPrefersPriority picks the pseudo candidate with the
// highest branching priority, not the first one.
func (s *BranchSuite) TestBranchPseudoPrefersPriority() {
	s.y.SetBranchPriority(10)

	res, err := s.s.BranchPseudo()
	require.NoError(s.T(), err)
	require.Equal(s.T(), ResultBranched, res)
	require.Same(s.T(), s.y, s.child(0).branchVar)
}

func TestBranchSuite(t *testing.T) {
	suite.Run(t, new(BranchSuite))
}
