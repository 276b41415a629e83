package cip_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/optimiq/gociap/cip"
)

// ProbSuite exercises problem building and the objective frame mapping.
type ProbSuite struct {
	suite.Suite
	s *cip.Solver
}

func (s *ProbSuite) SetupTest() {
	s.s = cip.NewSolver()
	require.NoError(s.T(), s.s.CreateProb("prob"))
}

func (s *ProbSuite) addVar(name string, t cip.VarType, lb, ub, obj float64) *cip.Var {
	v, err := s.s.CreateVar(name, t, lb, ub, obj)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(v))

	return v
}

// TestVarGrouping counts variables by type and keeps name lookup working.
func (s *ProbSuite) TestVarGrouping() {
	s.addVar("b", cip.VarBinary, 0, 1, 1)
	s.addVar("i", cip.VarInteger, 0, 7, 1)
	s.addVar("c", cip.VarContinuous, -1, 1, 1)

	p := s.s.OrigProb()
	require.Equal(s.T(), 3, p.NVars())
	require.Equal(s.T(), 1, p.NBinVars())
	require.Equal(s.T(), 1, p.NIntVars())
	require.Equal(s.T(), 1, p.NContVars())
	require.Equal(s.T(), "i", p.FindVar("i").Name())
	require.Nil(s.T(), p.FindVar("missing"))
}

// TestCreateVarRejectsCrossingBounds refuses lb > ub at creation.
func (s *ProbSuite) TestCreateVarRejectsCrossingBounds() {
	_, err := s.s.CreateVar("bad", cip.VarContinuous, 2, 1, 0)
	require.ErrorIs(s.T(), err, cip.ErrInvalidData)
}

// TestDuplicateVarName rejects a second variable of the same name.
func (s *ProbSuite) TestDuplicateVarName() {
	s.addVar("x", cip.VarBinary, 0, 1, 0)
	v, err := s.s.CreateVar("x", cip.VarBinary, 0, 1, 0)
	require.NoError(s.T(), err)
	require.Error(s.T(), s.s.AddVar(v))
}

// TestMinimizeKeepsObjective checks the internal frame under the default
// sense.
func (s *ProbSuite) TestMinimizeKeepsObjective() {
	v := s.addVar("x", cip.VarContinuous, 0, 1, 2.5)
	require.NoError(s.T(), s.s.Transform())
	require.Equal(s.T(), 2.5, v.TransVar().Obj())
}

// TestMaximizeNegatesInternally checks that maximization flips the
// transformed objective while the external view is unchanged.
func (s *ProbSuite) TestMaximizeNegatesInternally() {
	v := s.addVar("x", cip.VarContinuous, 0, 1, 2.5)
	require.NoError(s.T(), s.s.SetObjsense(cip.Maximize))
	require.NoError(s.T(), s.s.Transform())

	require.Equal(s.T(), cip.Maximize, s.s.Objsense())
	require.Equal(s.T(), -2.5, v.TransVar().Obj())
	require.Equal(s.T(), 2.5, v.Obj(), "the original variable keeps the user frame")
}

// TestNegatedVarOfBinary builds the complement x' = 1 - x and resolves
// values through it.
func (s *ProbSuite) TestNegatedVarOfBinary() {
	v := s.addVar("x", cip.VarBinary, 0, 1, 0)
	require.NoError(s.T(), s.s.Transform())

	tv := v.TransVar()
	neg, err := tv.NegatedVar()
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1.0, neg.Val(func(*cip.Var) float64 { return 0 }))
	require.Equal(s.T(), 0.0, neg.Val(func(*cip.Var) float64 { return 1 }))

	again, err := tv.NegatedVar()
	require.NoError(s.T(), err)
	require.Same(s.T(), neg, again, "the negation is shared")
}

func TestProbSuite(t *testing.T) {
	suite.Run(t, new(ProbSuite))
}
