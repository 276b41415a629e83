package lpi_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/optimiq/gociap/lpi"
)

// SimplexSuite exercises the built-in dense simplex against tiny LPs with
// known optima.
type SimplexSuite struct {
	suite.Suite
	lp *lpi.DenseSimplex
}

func (s *SimplexSuite) SetupTest() {
	s.lp = lpi.NewDenseSimplex()
}

func (s *SimplexSuite) addCols(obj, lb, ub []float64) {
	require.NoError(s.T(), s.lp.AddCols(obj, lb, ub, nil))
}

func (s *SimplexSuite) addRow(lhs, rhs float64, entries ...lpi.Nonzero) {
	require.NoError(s.T(), s.lp.AddRows([]float64{lhs}, []float64{rhs}, [][]lpi.Nonzero{entries}, nil))
}

// TestBoundsOnly verifies pure bound minimization without rows.
func (s *SimplexSuite) TestBoundsOnly() {
	inf := math.Inf(1)
	s.addCols([]float64{1, -2, 0}, []float64{0, 0, -1}, []float64{5, 3, inf})
	require.NoError(s.T(), s.lp.Solve(0))
	require.Equal(s.T(), lpi.StatOptimal, s.lp.SolStat())

	obj, err := s.lp.ObjVal()
	require.NoError(s.T(), err)
	require.InDelta(s.T(), -6.0, obj, 1e-9)

	x, err := s.lp.PrimalSol()
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 0.0, x[0], 1e-9)
	require.InDelta(s.T(), 3.0, x[1], 1e-9)
}

// TestCoveringLP verifies min x+y s.t. x+y >= 1 on [0,1]² relaxes to 1.
func (s *SimplexSuite) TestCoveringLP() {
	inf := math.Inf(1)
	s.addCols([]float64{1, 1}, []float64{0, 0}, []float64{1, 1})
	s.addRow(1, inf, lpi.Nonzero{Col: 0, Val: 1}, lpi.Nonzero{Col: 1, Val: 1})

	require.NoError(s.T(), s.lp.Solve(0))
	require.Equal(s.T(), lpi.StatOptimal, s.lp.SolStat())
	obj, _ := s.lp.ObjVal()
	require.InDelta(s.T(), 1.0, obj, 1e-8)

	act, err := s.lp.RowActivity()
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 1.0, act[0], 1e-8)
}

// TestTwoRowLP verifies a classic two-constraint maximization, stated as
// minimization of the negated objective.
func (s *SimplexSuite) TestTwoRowLP() {
	// max 3x+5y s.t. x<=4, 2y<=12, 3x+2y<=18, x,y>=0 → opt (2,6), value 36.
	inf := math.Inf(1)
	s.addCols([]float64{-3, -5}, []float64{0, 0}, []float64{inf, inf})
	s.addRow(-inf, 4, lpi.Nonzero{Col: 0, Val: 1})
	s.addRow(-inf, 12, lpi.Nonzero{Col: 1, Val: 2})
	s.addRow(-inf, 18, lpi.Nonzero{Col: 0, Val: 3}, lpi.Nonzero{Col: 1, Val: 2})

	require.NoError(s.T(), s.lp.Solve(0))
	require.Equal(s.T(), lpi.StatOptimal, s.lp.SolStat())
	obj, _ := s.lp.ObjVal()
	require.InDelta(s.T(), -36.0, obj, 1e-8)

	x, _ := s.lp.PrimalSol()
	require.InDelta(s.T(), 2.0, x[0], 1e-8)
	require.InDelta(s.T(), 6.0, x[1], 1e-8)

	// Duals: binding rows 2y<=12 and 3x+2y<=18 carry the objective.
	y, err := s.lp.DualSol()
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 0.0, y[0], 1e-8)
}

// TestInfeasible verifies detection plus a nonzero Farkas certificate.
func (s *SimplexSuite) TestInfeasible() {
	inf := math.Inf(1)
	s.addCols([]float64{1, 1}, []float64{0, 0}, []float64{1, 1})
	s.addRow(3, inf, lpi.Nonzero{Col: 0, Val: 1}, lpi.Nonzero{Col: 1, Val: 1})

	require.NoError(s.T(), s.lp.Solve(0))
	require.Equal(s.T(), lpi.StatInfeasible, s.lp.SolStat())

	ray, err := s.lp.FarkasRay()
	require.NoError(s.T(), err)
	require.Len(s.T(), ray, 1)
	require.NotZero(s.T(), ray[0])
}

// TestUnbounded verifies ray extraction on min -x with x unbounded above.
func (s *SimplexSuite) TestUnbounded() {
	inf := math.Inf(1)
	s.addCols([]float64{-1}, []float64{0}, []float64{inf})

	require.NoError(s.T(), s.lp.Solve(0))
	require.Equal(s.T(), lpi.StatUnbounded, s.lp.SolStat())

	ray, err := s.lp.PrimalRay()
	require.NoError(s.T(), err)
	require.Positive(s.T(), ray[0])
}

// TestObjLimit verifies the cutoff status.
func (s *SimplexSuite) TestObjLimit() {
	s.addCols([]float64{1}, []float64{2}, []float64{5})
	s.lp.SetObjLimit(1.5) // optimum is 2 >= 1.5

	require.NoError(s.T(), s.lp.Solve(0))
	require.Equal(s.T(), lpi.StatObjLimit, s.lp.SolStat())
}

// TestEqualityRow verifies ranged rows collapse to equations.
func (s *SimplexSuite) TestEqualityRow() {
	inf := math.Inf(1)
	s.addCols([]float64{1, 2}, []float64{0, 0}, []float64{inf, inf})
	s.addRow(4, 4, lpi.Nonzero{Col: 0, Val: 1}, lpi.Nonzero{Col: 1, Val: 1})

	require.NoError(s.T(), s.lp.Solve(0))
	require.Equal(s.T(), lpi.StatOptimal, s.lp.SolStat())
	obj, _ := s.lp.ObjVal()
	require.InDelta(s.T(), 4.0, obj, 1e-8) // all weight on the cheap column

	x, _ := s.lp.PrimalSol()
	require.InDelta(s.T(), 4.0, x[0], 1e-8)
	require.InDelta(s.T(), 0.0, x[1], 1e-8)
}

// TestBoundChangeResolve verifies editing invalidates and resolving works.
func (s *SimplexSuite) TestBoundChangeResolve() {
	inf := math.Inf(1)
	s.addCols([]float64{1, 1}, []float64{0, 0}, []float64{1, 1})
	s.addRow(1, inf, lpi.Nonzero{Col: 0, Val: 1}, lpi.Nonzero{Col: 1, Val: 1})
	require.NoError(s.T(), s.lp.Solve(0))

	// Fix x to 0: optimum moves fully onto y.
	require.NoError(s.T(), s.lp.ChgBounds([]int{0}, []float64{0}, []float64{0}))
	require.Equal(s.T(), lpi.StatNotSolved, s.lp.SolStat())
	require.NoError(s.T(), s.lp.Solve(0))

	x, _ := s.lp.PrimalSol()
	require.InDelta(s.T(), 0.0, x[0], 1e-8)
	require.InDelta(s.T(), 1.0, x[1], 1e-8)
}

// TestBInvProducts sanity-checks basis-inverse row products on an equality.
func (s *SimplexSuite) TestBInvProducts() {
	inf := math.Inf(1)
	s.addCols([]float64{1, 2}, []float64{0, 0}, []float64{inf, inf})
	s.addRow(4, 4, lpi.Nonzero{Col: 0, Val: 1}, lpi.Nonzero{Col: 1, Val: 1})
	require.NoError(s.T(), s.lp.Solve(0))

	row, err := s.lp.BInvARow(0)
	require.NoError(s.T(), err)
	require.Len(s.T(), row, 2)
	// The basic column of the row must map to a unit coefficient.
	require.InDelta(s.T(), 1.0, math.Abs(row[0]), 1e-8)
}

func TestSimplexSuite(t *testing.T) {
	suite.Run(t, new(SimplexSuite))
}
