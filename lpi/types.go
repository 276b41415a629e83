package lpi

import "errors"

// Sentinel errors for adapter operations.
var (
	// ErrNotSolved indicates solution access before a successful Solve.
	ErrNotSolved = errors.New("lpi: LP not solved")

	// ErrDimension indicates mismatched slice lengths or indices out of range.
	ErrDimension = errors.New("lpi: dimension mismatch")

	// ErrSingular indicates a numerically singular basis.
	ErrSingular = errors.New("lpi: singular basis")

	// ErrBadBounds indicates a column with lb > ub.
	ErrBadBounds = errors.New("lpi: crossing bounds")
)

// SolStat describes the outcome of the last Solve.
type SolStat uint8

const (
	// StatNotSolved means no solve has happened since the last change.
	StatNotSolved SolStat = iota
	// StatOptimal means a provably optimal basic solution is available.
	StatOptimal
	// StatInfeasible means the LP is primal infeasible; FarkasRay is valid.
	StatInfeasible
	// StatUnbounded means the LP is primal unbounded; PrimalRay is valid.
	StatUnbounded
	// StatObjLimit means the objective limit was reached before optimality.
	StatObjLimit
	// StatIterLimit means the iteration limit was hit.
	StatIterLimit
	// StatError means the solve failed numerically.
	StatError
)

// String returns the lowercase status name.
func (s SolStat) String() string {
	switch s {
	case StatNotSolved:
		return "notsolved"
	case StatOptimal:
		return "optimal"
	case StatInfeasible:
		return "infeasible"
	case StatUnbounded:
		return "unbounded"
	case StatObjLimit:
		return "objlimit"
	case StatIterLimit:
		return "iterlimit"
	case StatError:
		return "error"
	default:
		return "invalid"
	}
}

// BasisStatus tags a column or row in the current basis.
type BasisStatus uint8

const (
	// BasisLower marks a nonbasic column/row at its lower bound.
	BasisLower BasisStatus = iota
	// BasisBasic marks a basic column/row.
	BasisBasic
	// BasisUpper marks a nonbasic column/row at its upper bound.
	BasisUpper
	// BasisZero marks a nonbasic free column at value zero.
	BasisZero
)

// Nonzero is one constraint-matrix entry (column index, coefficient).
type Nonzero struct {
	Col int
	Val float64
}

// Interface is the adapter contract between the kernel and any LP backend.
//
// Implementations are single-threaded; the kernel never calls concurrently.
// All editing verbs invalidate the cached solution (SolStat resets to
// StatNotSolved).
type Interface interface {
	// NCols returns the number of columns.
	NCols() int
	// NRows returns the number of rows.
	NRows() int

	// AddCols appends columns with objective coefficients and bounds.
	AddCols(obj, lb, ub []float64, names []string) error
	// AddRows appends ranged rows lhs <= a·x <= rhs with sparse entries.
	AddRows(lhs, rhs []float64, entries [][]Nonzero, names []string) error
	// DelRows removes rows first..last (inclusive), shifting the remainder.
	DelRows(first, last int) error

	// ChgBounds updates bounds of the listed columns.
	ChgBounds(cols []int, lb, ub []float64) error
	// ChgObj updates objective coefficients of the listed columns.
	ChgObj(cols []int, obj []float64) error
	// ChgSides updates sides of the listed rows.
	ChgSides(rows []int, lhs, rhs []float64) error

	// ColBounds returns the bounds of column j.
	ColBounds(j int) (lb, ub float64)
	// ObjCoef returns the objective coefficient of column j.
	ObjCoef(j int) float64
	// RowSides returns the sides of row i.
	RowSides(i int) (lhs, rhs float64)

	// SetObjLimit installs an upper objective cutoff for minimization; a
	// solve whose optimum meets or exceeds it reports StatObjLimit.
	SetObjLimit(limit float64)

	// Solve runs the backend for at most itlim iterations (<=0: unlimited).
	Solve(itlim int) error
	// SolStat reports the outcome of the last Solve.
	SolStat() SolStat
	// Iterations reports the iteration count of the last Solve.
	Iterations() int

	// ObjVal returns the objective of the last solution.
	ObjVal() (float64, error)
	// PrimalSol returns column values of the last solution.
	PrimalSol() ([]float64, error)
	// RowActivity returns row activities of the last solution.
	RowActivity() ([]float64, error)
	// DualSol returns row dual multipliers of the last solution.
	DualSol() ([]float64, error)
	// RedCost returns column reduced costs of the last solution.
	RedCost() ([]float64, error)
	// FarkasRay returns row multipliers certifying primal infeasibility.
	FarkasRay() ([]float64, error)
	// PrimalRay returns an unbounded improving direction on the columns.
	PrimalRay() ([]float64, error)

	// Basis returns per-column and per-row basis statuses.
	Basis() (cols, rows []BasisStatus, err error)
	// SetBasis installs a starting basis hint for the next Solve.
	SetBasis(cols, rows []BasisStatus) error

	// BInvRow returns row r of the basis inverse.
	BInvRow(r int) ([]float64, error)
	// BInvCol returns column c of the basis inverse.
	BInvCol(c int) ([]float64, error)
	// BInvARow returns row r of B^-1 · A over the structural columns.
	BInvARow(r int) ([]float64, error)
	// BInvACol returns column c of B^-1 · A.
	BInvACol(c int) ([]float64, error)

	// Clear removes all columns and rows.
	Clear()
}
