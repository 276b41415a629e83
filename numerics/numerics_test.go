package numerics_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/optimiq/gociap/numerics"
)

// TolerancesSuite exercises the comparison predicates and rounding helpers.
type TolerancesSuite struct {
	suite.Suite
	tol *numerics.Tolerances
}

func (s *TolerancesSuite) SetupTest() {
	s.tol = numerics.New()
}

// TestDefaultEquality verifies the Epsilon flavour on near-equal values.
func (s *TolerancesSuite) TestDefaultEquality() {
	require.True(s.T(), s.tol.Eq(1.0, 1.0+1e-10))
	require.False(s.T(), s.tol.Eq(1.0, 1.0+1e-8))
	require.True(s.T(), s.tol.Le(1.0+1e-10, 1.0))
	require.False(s.T(), s.tol.Lt(1.0, 1.0+1e-10))
	require.True(s.T(), s.tol.Lt(1.0, 1.0+1e-8))
}

// TestFeasFlavour verifies the looser feasibility comparisons.
func (s *TolerancesSuite) TestFeasFlavour() {
	require.True(s.T(), s.tol.FeasEq(2.0, 2.0+1e-7))
	require.False(s.T(), s.tol.Eq(2.0, 2.0+1e-7))
	require.True(s.T(), s.tol.FeasIntegral(0.9999995))
	require.False(s.T(), s.tol.Integral(0.9999995))
}

// TestInfinityNeverEqual checks that two distinct infinities never compare
// equal under any tolerance operator.
func (s *TolerancesSuite) TestInfinityNeverEqual() {
	inf := s.tol.Infinity()
	require.False(s.T(), s.tol.Eq(inf, -inf))
	require.False(s.T(), s.tol.FeasEq(inf, -inf))
	require.False(s.T(), s.tol.SumEq(inf, -inf))
	require.True(s.T(), s.tol.Eq(inf, inf))
	require.True(s.T(), s.tol.Eq(2*inf, inf), "values beyond the threshold collapse to one infinity")
	require.True(s.T(), s.tol.Lt(-inf, inf))
	require.False(s.T(), s.tol.RelEq(inf, -inf))
}

// TestRounding verifies Floor/Ceil/Frac slack behavior.
func (s *TolerancesSuite) TestRounding() {
	require.Equal(s.T(), 2.0, s.tol.Floor(2.0-1e-10))
	require.Equal(s.T(), 1.0, s.tol.Floor(2.0-1e-7))
	require.Equal(s.T(), 2.0, s.tol.Ceil(2.0+1e-10))
	require.Equal(s.T(), 2.0, s.tol.FeasFloor(2.0-1e-7))
	require.InDelta(s.T(), 0.25, s.tol.Frac(3.25), 1e-12)
}

// TestRelative verifies the scale-free comparisons.
func (s *TolerancesSuite) TestRelative() {
	require.True(s.T(), s.tol.RelEq(1e12, 1e12+1.0))
	require.False(s.T(), s.tol.Eq(1e12, 1e12+1.0))
	require.True(s.T(), s.tol.RelLt(1e12, 2e12))
}

// TestSetterRange verifies the (0,1) range contract.
func (s *TolerancesSuite) TestSetterRange() {
	require.ErrorIs(s.T(), s.tol.SetFeasTol(0), numerics.ErrTolOutOfRange)
	require.ErrorIs(s.T(), s.tol.SetEpsilon(1), numerics.ErrTolOutOfRange)
	require.NoError(s.T(), s.tol.SetFeasTol(1e-7))
	require.Equal(s.T(), 1e-7, s.tol.FeasTol())
}

// TestInvalidationHook verifies the hook fires only on tightening.
func (s *TolerancesSuite) TestInvalidationHook() {
	fired := 0
	s.tol.SetInvalidationHook(func() { fired++ })

	require.NoError(s.T(), s.tol.SetFeasTol(1e-5)) // loosen: no fire
	require.Equal(s.T(), 0, fired)
	require.NoError(s.T(), s.tol.SetFeasTol(1e-8)) // tighten: fire
	require.Equal(s.T(), 1, fired)
	require.NoError(s.T(), s.tol.SetDualFeasTol(1e-9))
	require.Equal(s.T(), 2, fired)
}

func TestTolerancesSuite(t *testing.T) {
	suite.Run(t, new(TolerancesSuite))
}
