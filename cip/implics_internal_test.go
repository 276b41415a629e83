package cip

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ImplicsSuite exercises the implication graph and the clique table on a
// solver forced into the solving stage with the root node in focus.
type ImplicsSuite struct {
	suite.Suite
	s       *Solver
	x, y, z *Var
}

func (s *ImplicsSuite) SetupTest() {
	s.s = NewSolver()
	require.NoError(s.T(), s.s.CreateProb("impl"))

	orig := make([]*Var, 3)
	for i, name := range []string{"x", "y", "z"} {
		v, err := s.s.CreateVar(name, VarBinary, 0, 1, 1)
		require.NoError(s.T(), err)
		require.NoError(s.T(), s.s.AddVar(v))
		orig[i] = v
	}

	require.NoError(s.T(), s.s.Transform())
	require.NoError(s.T(), s.s.setStage(StageSolving))
	require.NoError(s.T(), s.s.tree.focusNode(s.s.tree.root))

	s.x = orig[0].TransVar()
	s.y = orig[1].TransVar()
	s.z = orig[2].TransVar()
}

// TestImplicationForcesBound fixes the premise of a stored implication and
// checks that propagation applies the implied bound at the focus node.
func (s *ImplicsSuite) TestImplicationForcesBound() {
	require.NoError(s.T(), s.s.AddImplic(s.x, true, s.y, BoundUpper, 0))
	require.Equal(s.T(), 1, s.s.NImplics(s.x, true))

	infeasible, tightened, err := s.s.TightenVarLb(s.x, 1, nil, 0)
	require.NoError(s.T(), err)
	require.False(s.T(), infeasible)
	require.True(s.T(), tightened)

	res, err := s.s.propagateImplications()
	require.NoError(s.T(), err)
	require.Equal(s.T(), ResultReducedDom, res)
	require.Equal(s.T(), 0.0, s.y.LocUb())
	require.Equal(s.T(), 1.0, s.y.GlbUb(), "global bounds stay untouched")
}

// TestImplicationDetectsInfeasibility propagates an implication whose
// implied bound crosses the current domain.
func (s *ImplicsSuite) TestImplicationDetectsInfeasibility() {
	require.NoError(s.T(), s.s.AddImplic(s.x, true, s.y, BoundLower, 1))

	_, _, err := s.s.TightenVarLb(s.x, 1, nil, 0)
	require.NoError(s.T(), err)
	_, _, err = s.s.TightenVarUb(s.y, 0, nil, 0)
	require.NoError(s.T(), err)

	res, err := s.s.propagateImplications()
	require.NoError(s.T(), err)
	require.Equal(s.T(), ResultCutoff, res)
}

// TestCliquePropagation fixes one clique member to true and checks that
// the other members are forced to false.
func (s *ImplicsSuite) TestCliquePropagation() {
	cl, err := s.s.AddClique([]*Var{s.x, s.y, s.z}, []bool{true, true, true})
	require.NoError(s.T(), err)
	require.NotNil(s.T(), cl)
	require.Equal(s.T(), 1, s.s.NCliques())

	_, _, err = s.s.TightenVarLb(s.x, 1, nil, 0)
	require.NoError(s.T(), err)

	res, err := s.s.propagateImplications()
	require.NoError(s.T(), err)
	require.Equal(s.T(), ResultReducedDom, res)
	require.Equal(s.T(), 0.0, s.y.LocUb())
	require.Equal(s.T(), 0.0, s.z.LocUb())
}

// TestTwoCliqueBecomesImplications runs the clique cleanup over a
// two-member clique and checks the pairwise exclusion lands in the
// implication graph.
func (s *ImplicsSuite) TestTwoCliqueBecomesImplications() {
	_, err := s.s.AddClique([]*Var{s.x, s.y}, []bool{true, true})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.s.cleanupCliques())
	require.Equal(s.T(), 0, s.s.NCliques())
	require.Equal(s.T(), 1, s.s.NImplics(s.x, true))
	require.Equal(s.T(), 1, s.s.NImplics(s.y, true))
}

func TestImplicsSuite(t *testing.T) {
	suite.Run(t, new(ImplicsSuite))
}
