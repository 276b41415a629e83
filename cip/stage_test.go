package cip_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/optimiq/gociap/cip"
)

// StageSuite exercises the lifecycle stage machine and its call guards.
type StageSuite struct {
	suite.Suite
	s *cip.Solver
}

func (s *StageSuite) SetupTest() {
	s.s = cip.NewSolver()
}

// buildProblem creates a one-variable problem ready for transformation.
func (s *StageSuite) buildProblem() *cip.Var {
	require.NoError(s.T(), s.s.CreateProb("stage"))
	v, err := s.s.CreateVar("x", cip.VarBinary, 0, 1, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(v))

	return v
}

// TestInitialStage starts in the init stage with nothing to solve.
func (s *StageSuite) TestInitialStage() {
	require.Equal(s.T(), cip.StageInit, s.s.Stage())
	require.Equal(s.T(), cip.StatusUnknown, s.s.Status())
	require.Nil(s.T(), s.s.OrigProb())
}

// TestCreateProbEntersProblemStage moves init -> problem.
func (s *StageSuite) TestCreateProbEntersProblemStage() {
	require.NoError(s.T(), s.s.CreateProb("p"))
	require.Equal(s.T(), cip.StageProblem, s.s.Stage())
	require.NotNil(s.T(), s.s.OrigProb())
	require.Equal(s.T(), "p", s.s.OrigProb().Name())
}

// TestTransformNeedsProblem rejects transformation of an empty solver.
func (s *StageSuite) TestTransformNeedsProblem() {
	require.ErrorIs(s.T(), s.s.Transform(), cip.ErrInvalidCall)

	require.NoError(s.T(), s.s.CreateProb("empty"))
	require.ErrorIs(s.T(), s.s.Transform(), cip.ErrNoProblem)
}

// TestTransformClosesProblemEditing verifies that problem-stage mutators
// fail after transformation.
func (s *StageSuite) TestTransformClosesProblemEditing() {
	s.buildProblem()
	require.NoError(s.T(), s.s.Transform())
	require.Equal(s.T(), cip.StageTransformed, s.s.Stage())

	_, err := s.s.CreateVar("late", cip.VarBinary, 0, 1, 0)
	require.ErrorIs(s.T(), err, cip.ErrInvalidCall)
	require.ErrorIs(s.T(), s.s.SetObjsense(cip.Maximize), cip.ErrInvalidCall)
	require.ErrorIs(s.T(), s.s.Transform(), cip.ErrInvalidCall)
}

// TestTransformedProblemMirrorsOriginal checks the var/cons linkage built
// by the transformation.
func (s *StageSuite) TestTransformedProblemMirrorsOriginal() {
	v := s.buildProblem()
	require.NoError(s.T(), s.s.Transform())

	tp := s.s.TransProb()
	require.NotNil(s.T(), tp)
	require.Equal(s.T(), 1, tp.NVars())

	tv := v.TransVar()
	require.NotNil(s.T(), tv)
	require.Equal(s.T(), "t_x", tv.Name())
	require.Same(s.T(), v, tv.OrigVar())
	require.False(s.T(), tv.IsOriginal())
	require.True(s.T(), v.IsOriginal())
}

// TestObjlimitTighteningOnly allows relaxing the limit only while the
// problem is still being built.
func (s *StageSuite) TestObjlimitTighteningOnly() {
	s.buildProblem()
	require.NoError(s.T(), s.s.SetObjlimit(5))
	require.NoError(s.T(), s.s.SetObjlimit(10), "free while in the problem stage")

	require.NoError(s.T(), s.s.Transform())
	require.NoError(s.T(), s.s.SetObjlimit(3), "tightening stays allowed")
	require.ErrorIs(s.T(), s.s.SetObjlimit(7), cip.ErrObjLimitRelax)
	require.Equal(s.T(), 3.0, s.s.Objlimit())
}

// TestFreeTransformReopensProblem tears the transformation down and lets
// the problem be edited again.
func (s *StageSuite) TestFreeTransformReopensProblem() {
	s.buildProblem()
	require.NoError(s.T(), s.s.Transform())
	require.NoError(s.T(), s.s.FreeTransform())
	require.Equal(s.T(), cip.StageProblem, s.s.Stage())

	v, err := s.s.CreateVar("y", cip.VarContinuous, 0, 2, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(v))
	require.Equal(s.T(), 2, s.s.OrigProb().NVars())
}

func TestStageSuite(t *testing.T) {
	suite.Run(t, new(StageSuite))
}
