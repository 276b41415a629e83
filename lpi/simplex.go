package lpi

import (
	"fmt"
	"math"
)

// Internal tolerances of the dense simplex. These are backend tolerances,
// intentionally independent of the kernel's configurable ones.
const (
	pivotTol = 1e-9
	feasTol  = 1e-8
	dualTol  = 1e-9
)

// varStat is the state of one working variable (structural, slack or
// artificial) during the simplex iteration.
type varStat uint8

const (
	atLower varStat = iota
	atUpper
	atZero // free variable resting at 0
	basic
)

// DenseSimplex is the built-in LP backend: a bounded-variable primal simplex
// with Bland's rule, phase-I artificials and an explicit dense basis inverse.
// The zero value is an empty LP ready for use.
type DenseSimplex struct {
	ncols int
	nrows int

	obj     []float64
	collb   []float64
	colub   []float64
	rowlhs  []float64
	rowrhs  []float64
	rows    [][]Nonzero // sparse row-major matrix
	objlim  float64
	haslim  bool
	hintCol []BasisStatus

	// Last-solve cache.
	stat    SolStat
	iters   int
	objval  float64
	colsol  []float64
	rowact  []float64
	dualsol []float64
	redcost []float64
	farkas  []float64
	ray     []float64

	// Basis snapshot of the last factorization (valid while stat is
	// Optimal/ObjLimit): basis[i] = working-variable index basic in row i.
	basis []int
	binv  [][]float64
	stats []varStat
	vals  []float64
}

// NewDenseSimplex returns an empty LP.
func NewDenseSimplex() *DenseSimplex {
	return &DenseSimplex{stat: StatNotSolved}
}

// NCols returns the number of structural columns.
func (d *DenseSimplex) NCols() int { return d.ncols }

// NRows returns the number of rows.
func (d *DenseSimplex) NRows() int { return d.nrows }

func (d *DenseSimplex) invalidate() { d.stat = StatNotSolved }

// AddCols appends structural columns. Names are accepted for symmetry with
// external backends and ignored.
func (d *DenseSimplex) AddCols(obj, lb, ub []float64, names []string) error {
	if len(obj) != len(lb) || len(obj) != len(ub) {
		return ErrDimension
	}
	for j := range obj {
		if lb[j] > ub[j] {
			return fmt.Errorf("%w: col %d [%g,%g]", ErrBadBounds, d.ncols+j, lb[j], ub[j])
		}
	}
	d.obj = append(d.obj, obj...)
	d.collb = append(d.collb, lb...)
	d.colub = append(d.colub, ub...)
	d.ncols += len(obj)
	d.hintCol = nil
	d.invalidate()

	return nil
}

// AddRows appends ranged rows.
func (d *DenseSimplex) AddRows(lhs, rhs []float64, entries [][]Nonzero, names []string) error {
	if len(lhs) != len(rhs) || len(lhs) != len(entries) {
		return ErrDimension
	}
	for i := range entries {
		for _, nz := range entries[i] {
			if nz.Col < 0 || nz.Col >= d.ncols {
				return fmt.Errorf("%w: row entry col %d of %d", ErrDimension, nz.Col, d.ncols)
			}
		}
		row := make([]Nonzero, len(entries[i]))
		copy(row, entries[i])
		d.rows = append(d.rows, row)
	}
	d.rowlhs = append(d.rowlhs, lhs...)
	d.rowrhs = append(d.rowrhs, rhs...)
	d.nrows += len(lhs)
	d.invalidate()

	return nil
}

// DelRows removes rows first..last inclusive.
func (d *DenseSimplex) DelRows(first, last int) error {
	if first < 0 || last >= d.nrows || first > last {
		return ErrDimension
	}
	d.rows = append(d.rows[:first], d.rows[last+1:]...)
	d.rowlhs = append(d.rowlhs[:first], d.rowlhs[last+1:]...)
	d.rowrhs = append(d.rowrhs[:first], d.rowrhs[last+1:]...)
	d.nrows -= last - first + 1
	d.invalidate()

	return nil
}

// ChgBounds updates bounds of the listed columns.
func (d *DenseSimplex) ChgBounds(cols []int, lb, ub []float64) error {
	if len(cols) != len(lb) || len(cols) != len(ub) {
		return ErrDimension
	}
	for k, j := range cols {
		if j < 0 || j >= d.ncols {
			return ErrDimension
		}
		if lb[k] > ub[k] {
			return fmt.Errorf("%w: col %d [%g,%g]", ErrBadBounds, j, lb[k], ub[k])
		}
		d.collb[j], d.colub[j] = lb[k], ub[k]
	}
	d.invalidate()

	return nil
}

// ChgObj updates objective coefficients of the listed columns.
func (d *DenseSimplex) ChgObj(cols []int, obj []float64) error {
	if len(cols) != len(obj) {
		return ErrDimension
	}
	for k, j := range cols {
		if j < 0 || j >= d.ncols {
			return ErrDimension
		}
		d.obj[j] = obj[k]
	}
	d.invalidate()

	return nil
}

// ChgSides updates sides of the listed rows.
func (d *DenseSimplex) ChgSides(rows []int, lhs, rhs []float64) error {
	if len(rows) != len(lhs) || len(rows) != len(rhs) {
		return ErrDimension
	}
	for k, i := range rows {
		if i < 0 || i >= d.nrows {
			return ErrDimension
		}
		d.rowlhs[i], d.rowrhs[i] = lhs[k], rhs[k]
	}
	d.invalidate()

	return nil
}

// ColBounds returns the bounds of column j.
func (d *DenseSimplex) ColBounds(j int) (float64, float64) { return d.collb[j], d.colub[j] }

// ObjCoef returns the objective coefficient of column j.
func (d *DenseSimplex) ObjCoef(j int) float64 { return d.obj[j] }

// RowSides returns the sides of row i.
func (d *DenseSimplex) RowSides(i int) (float64, float64) { return d.rowlhs[i], d.rowrhs[i] }

// SetObjLimit installs the objective cutoff.
func (d *DenseSimplex) SetObjLimit(limit float64) {
	d.objlim = limit
	d.haslim = limit < math.Inf(1)
}

// SolStat reports the last solve status.
func (d *DenseSimplex) SolStat() SolStat { return d.stat }

// Iterations reports the iteration count of the last solve.
func (d *DenseSimplex) Iterations() int { return d.iters }

// Clear removes all columns and rows.
func (d *DenseSimplex) Clear() {
	*d = DenseSimplex{stat: StatNotSolved}
}

// SetBasis stores the column statuses as a warm-start hint: nonbasic columns
// start at the hinted bound. Row statuses are accepted and ignored; the
// phase-I artificial basis is rebuilt regardless.
func (d *DenseSimplex) SetBasis(cols, rows []BasisStatus) error {
	if len(cols) != d.ncols {
		return ErrDimension
	}
	d.hintCol = append([]BasisStatus(nil), cols...)

	return nil
}

// Working-variable layout: structural 0..n-1, slack n..n+m-1, artificial
// n+m+2i (plus side) and n+m+2i+1 (minus side) for row i. The equality
// system is  a_i·x − s_i + t⁺_i − t⁻_i = 0  for every row i.

func (d *DenseSimplex) nwork() int { return d.ncols + d.nrows + 2*d.nrows }

// coef returns the coefficient of working variable k in equation i.
func (d *DenseSimplex) coef(i, k int) float64 {
	switch {
	case k < d.ncols:
		for _, nz := range d.rows[i] {
			if nz.Col == k {
				return nz.Val
			}
		}

		return 0
	case k < d.ncols+d.nrows:
		if k-d.ncols == i {
			return -1
		}

		return 0
	default:
		a := k - d.ncols - d.nrows
		if a/2 != i {
			return 0
		}
		if a%2 == 0 {
			return 1 // t⁺
		}

		return -1 // t⁻
	}
}

// workBounds returns the bounds of working variable k in the given phase.
func (d *DenseSimplex) workBounds(k int, phase1 bool) (float64, float64) {
	switch {
	case k < d.ncols:
		return d.collb[k], d.colub[k]
	case k < d.ncols+d.nrows:
		return d.rowlhs[k-d.ncols], d.rowrhs[k-d.ncols]
	default:
		if phase1 {
			return 0, math.Inf(1)
		}

		return 0, 0
	}
}

// Solve runs the simplex. itlim <= 0 means unlimited.
func (d *DenseSimplex) Solve(itlim int) error {
	n, m := d.ncols, d.nrows
	d.iters = 0
	d.farkas, d.ray = nil, nil

	// Nonbasic placement of structural columns and slacks.
	nw := d.nwork()
	d.stats = make([]varStat, nw)
	d.vals = make([]float64, nw)
	for j := 0; j < n; j++ {
		d.placeAtBound(j, d.hintCol)
	}
	for i := 0; i < m; i++ {
		d.placeAtBound(n+i, nil)
	}

	// Artificial basis absorbing the per-row residuals.
	d.basis = make([]int, m)
	for i := 0; i < m; i++ {
		r := -d.vals[n+i]
		for _, nz := range d.rows[i] {
			r += nz.Val * d.vals[nz.Col]
		}
		plus, minus := n+m+2*i, n+m+2*i+1
		if r >= 0 {
			d.basis[i] = minus
			d.stats[minus] = basic
			d.vals[minus] = r
		} else {
			d.basis[i] = plus
			d.stats[plus] = basic
			d.vals[plus] = -r
		}
	}

	// Phase I: minimize the artificial sum.
	stat := d.iterate(itlim, true)
	if stat == StatError || stat == StatIterLimit {
		d.stat = stat

		return nil
	}
	if d.phaseObj(true) > feasTol {
		d.stat = StatInfeasible
		d.farkas = d.dualVector(true)

		return nil
	}

	// Phase II: artificials pinned at zero, true costs.
	stat = d.iterate(itlim, false)
	d.stat = stat
	if stat != StatOptimal {
		return nil
	}

	d.extractSolution()
	if d.haslim && d.objval >= d.objlim {
		d.stat = StatObjLimit
	}

	return nil
}

// placeAtBound rests working variable k at a finite bound (hint preferred),
// or at zero when free.
func (d *DenseSimplex) placeAtBound(k int, hint []BasisStatus) {
	lb, ub := d.workBounds(k, true)
	if hint != nil && k < len(hint) {
		switch hint[k] {
		case BasisUpper:
			if !math.IsInf(ub, 1) {
				d.stats[k], d.vals[k] = atUpper, ub

				return
			}
		case BasisLower, BasisBasic, BasisZero:
			// fall through to the default placement
		}
	}
	switch {
	case !math.IsInf(lb, -1):
		d.stats[k], d.vals[k] = atLower, lb
	case !math.IsInf(ub, 1):
		d.stats[k], d.vals[k] = atUpper, ub
	default:
		d.stats[k], d.vals[k] = atZero, 0
	}
}

// phaseCost returns the cost of working variable k in the given phase.
func (d *DenseSimplex) phaseCost(k int, phase1 bool) float64 {
	if phase1 {
		if k >= d.ncols+d.nrows {
			return 1
		}

		return 0
	}
	if k < d.ncols {
		return d.obj[k]
	}

	return 0
}

// phaseObj evaluates the phase objective at the current point.
func (d *DenseSimplex) phaseObj(phase1 bool) float64 {
	var v float64
	for k := 0; k < d.nwork(); k++ {
		v += d.phaseCost(k, phase1) * d.vals[k]
	}

	return v
}

// factorize rebuilds the dense basis inverse by Gauss-Jordan elimination.
func (d *DenseSimplex) factorize() bool {
	m := d.nrows
	if m == 0 {
		d.binv = nil

		return true
	}
	// aug = [B | I]
	aug := make([][]float64, m)
	for i := 0; i < m; i++ {
		aug[i] = make([]float64, 2*m)
		for p := 0; p < m; p++ {
			aug[i][p] = d.coef(i, d.basis[p])
		}
		aug[i][m+i] = 1
	}
	for col := 0; col < m; col++ {
		// Partial pivoting keeps the elimination stable.
		piv, pmax := -1, pivotTol
		for r := col; r < m; r++ {
			if a := math.Abs(aug[r][col]); a > pmax {
				piv, pmax = r, a
			}
		}
		if piv < 0 {
			return false
		}
		aug[col], aug[piv] = aug[piv], aug[col]
		pv := aug[col][col]
		for q := 0; q < 2*m; q++ {
			aug[col][q] /= pv
		}
		for r := 0; r < m; r++ {
			if r == col || aug[r][col] == 0 {
				continue
			}
			f := aug[r][col]
			for q := 0; q < 2*m; q++ {
				aug[r][q] -= f * aug[col][q]
			}
		}
	}
	d.binv = make([][]float64, m)
	for i := 0; i < m; i++ {
		d.binv[i] = aug[i][m : 2*m]
	}

	return true
}

// recomputeBasics refreshes the basic values from the nonbasic placement:
// x_B = −B⁻¹ · Σ_{k nonbasic} A_k x_k.
func (d *DenseSimplex) recomputeBasics() {
	m := d.nrows
	r := make([]float64, m)
	for k := 0; k < d.nwork(); k++ {
		if d.stats[k] == basic || d.vals[k] == 0 {
			continue
		}
		for i := 0; i < m; i++ {
			if c := d.coef(i, k); c != 0 {
				r[i] += c * d.vals[k]
			}
		}
	}
	for i := 0; i < m; i++ {
		var v float64
		for p := 0; p < m; p++ {
			v -= d.binv[i][p] * r[p]
		}
		d.vals[d.basis[i]] = v
	}
}

// dualVector returns y = c_B · B⁻¹ for the given phase's costs.
func (d *DenseSimplex) dualVector(phase1 bool) []float64 {
	m := d.nrows
	y := make([]float64, m)
	for i := 0; i < m; i++ {
		for p := 0; p < m; p++ {
			y[p] += d.phaseCost(d.basis[i], phase1) * d.binv[i][p]
		}
	}

	return y
}

// iterate runs Bland-rule iterations for one phase until optimality,
// unboundedness, the iteration limit, or a numerical failure.
func (d *DenseSimplex) iterate(itlim int, phase1 bool) SolStat {
	m := d.nrows
	for {
		if !d.factorize() {
			return StatError
		}
		d.recomputeBasics()
		y := d.dualVector(phase1)

		// Pricing: Bland's smallest improving index.
		enter, dir := -1, 1.0
		for k := 0; k < d.nwork() && enter < 0; k++ {
			if d.stats[k] == basic {
				continue
			}
			lb, ub := d.workBounds(k, phase1)
			if lb == ub {
				continue
			}
			rc := d.phaseCost(k, phase1)
			for i := 0; i < m; i++ {
				if c := d.coef(i, k); c != 0 {
					rc -= y[i] * c
				}
			}
			switch d.stats[k] {
			case atLower:
				if rc < -dualTol {
					enter, dir = k, 1
				}
			case atUpper:
				if rc > dualTol {
					enter, dir = k, -1
				}
			case atZero:
				if rc < -dualTol {
					enter, dir = k, 1
				} else if rc > dualTol {
					enter, dir = k, -1
				}
			case basic:
				// unreachable: basics are skipped above
			}
		}
		if enter < 0 {
			return StatOptimal
		}

		if itlim > 0 && d.iters >= itlim {
			return StatIterLimit
		}
		d.iters++

		// Direction of the basics: x_B moves by −dir·B⁻¹A_enter per unit.
		delta := make([]float64, m)
		col := make([]float64, m)
		for i := 0; i < m; i++ {
			col[i] = d.coef(i, enter)
		}
		for i := 0; i < m; i++ {
			var v float64
			for p := 0; p < m; p++ {
				v += d.binv[i][p] * col[p]
			}
			delta[i] = -dir * v
		}

		// Ratio test: entering-bound flip vs first basic hitting a bound.
		elb, eub := d.workBounds(enter, phase1)
		tmax := math.Inf(1)
		if !math.IsInf(elb, -1) && !math.IsInf(eub, 1) {
			tmax = eub - elb
		}
		leave := -1
		for i := 0; i < m; i++ {
			bk := d.basis[i]
			blb, bub := d.workBounds(bk, phase1)
			var t float64
			switch {
			case delta[i] > pivotTol:
				if math.IsInf(bub, 1) {
					continue
				}
				t = (bub - d.vals[bk]) / delta[i]
			case delta[i] < -pivotTol:
				if math.IsInf(blb, -1) {
					continue
				}
				t = (blb - d.vals[bk]) / delta[i]
			default:
				continue
			}
			if t < 0 {
				t = 0
			}
			// Strict improvement keeps the smallest basis index on ties
			// (Bland's rule companion on the leaving side).
			if t < tmax-pivotTol {
				tmax, leave = t, i
			}
		}

		if math.IsInf(tmax, 1) {
			if phase1 {
				// Phase-I objective is bounded below by 0; this is numeric.
				return StatError
			}
			d.buildRay(enter, dir, delta)

			return StatUnbounded
		}

		// Apply the step.
		d.vals[enter] += dir * tmax
		for i := 0; i < m; i++ {
			d.vals[d.basis[i]] += delta[i] * tmax
		}
		if leave < 0 {
			// Bound flip: entering moved to its opposite bound.
			if dir > 0 {
				d.stats[enter] = atUpper
			} else {
				d.stats[enter] = atLower
			}

			continue
		}
		out := d.basis[leave]
		blb, _ := d.workBounds(out, phase1)
		if delta[leave] < 0 || d.vals[out] <= blb+feasTol {
			d.stats[out], d.vals[out] = atLower, blb
		} else {
			_, bub := d.workBounds(out, phase1)
			d.stats[out], d.vals[out] = atUpper, bub
		}
		d.basis[leave] = enter
		d.stats[enter] = basic
	}
}

// buildRay records the structural components of the unbounded direction.
func (d *DenseSimplex) buildRay(enter int, dir float64, delta []float64) {
	ray := make([]float64, d.ncols)
	if enter < d.ncols {
		ray[enter] = dir
	}
	for i := 0; i < d.nrows; i++ {
		if bk := d.basis[i]; bk < d.ncols {
			ray[bk] = delta[i]
		}
	}
	d.ray = ray
}

// extractSolution caches primal, dual and reduced-cost vectors.
func (d *DenseSimplex) extractSolution() {
	n, m := d.ncols, d.nrows
	d.colsol = make([]float64, n)
	for j := 0; j < n; j++ {
		d.colsol[j] = d.vals[j]
	}
	d.rowact = make([]float64, m)
	for i := 0; i < m; i++ {
		d.rowact[i] = d.vals[n+i]
	}
	y := d.dualVector(false)
	d.dualsol = y
	d.redcost = make([]float64, n)
	for j := 0; j < n; j++ {
		rc := d.obj[j]
		for _, i := range d.rowsOf(j) {
			rc -= y[i] * d.coef(i, j)
		}
		d.redcost[j] = rc
	}
	d.objval = 0
	for j := 0; j < n; j++ {
		d.objval += d.obj[j] * d.colsol[j]
	}
}

// rowsOf lists the rows with a nonzero in column j.
func (d *DenseSimplex) rowsOf(j int) []int {
	var out []int
	for i := 0; i < d.nrows; i++ {
		for _, nz := range d.rows[i] {
			if nz.Col == j {
				out = append(out, i)

				break
			}
		}
	}

	return out
}

func (d *DenseSimplex) solved() bool {
	return d.stat == StatOptimal || d.stat == StatObjLimit
}

// ObjVal returns the objective of the last solution.
func (d *DenseSimplex) ObjVal() (float64, error) {
	if !d.solved() {
		return 0, ErrNotSolved
	}

	return d.objval, nil
}

// PrimalSol returns the column values of the last solution.
func (d *DenseSimplex) PrimalSol() ([]float64, error) {
	if !d.solved() {
		return nil, ErrNotSolved
	}

	return d.colsol, nil
}

// RowActivity returns the row activities of the last solution.
func (d *DenseSimplex) RowActivity() ([]float64, error) {
	if !d.solved() {
		return nil, ErrNotSolved
	}

	return d.rowact, nil
}

// DualSol returns the row duals of the last solution.
func (d *DenseSimplex) DualSol() ([]float64, error) {
	if !d.solved() {
		return nil, ErrNotSolved
	}

	return d.dualsol, nil
}

// RedCost returns the reduced costs of the last solution.
func (d *DenseSimplex) RedCost() ([]float64, error) {
	if !d.solved() {
		return nil, ErrNotSolved
	}

	return d.redcost, nil
}

// FarkasRay returns the infeasibility certificate of the last solve.
func (d *DenseSimplex) FarkasRay() ([]float64, error) {
	if d.stat != StatInfeasible || d.farkas == nil {
		return nil, ErrNotSolved
	}

	return d.farkas, nil
}

// PrimalRay returns the unbounded direction of the last solve.
func (d *DenseSimplex) PrimalRay() ([]float64, error) {
	if d.stat != StatUnbounded || d.ray == nil {
		return nil, ErrNotSolved
	}

	return d.ray, nil
}

// Basis returns per-column and per-row statuses of the last factorization.
func (d *DenseSimplex) Basis() ([]BasisStatus, []BasisStatus, error) {
	if !d.solved() {
		return nil, nil, ErrNotSolved
	}
	cols := make([]BasisStatus, d.ncols)
	for j := 0; j < d.ncols; j++ {
		cols[j] = toBasisStatus(d.stats[j])
	}
	rows := make([]BasisStatus, d.nrows)
	for i := 0; i < d.nrows; i++ {
		rows[i] = toBasisStatus(d.stats[d.ncols+i])
	}

	return cols, rows, nil
}

func toBasisStatus(s varStat) BasisStatus {
	switch s {
	case basic:
		return BasisBasic
	case atUpper:
		return BasisUpper
	case atZero:
		return BasisZero
	default:
		return BasisLower
	}
}

// BInvRow returns row r of the basis inverse.
func (d *DenseSimplex) BInvRow(r int) ([]float64, error) {
	if !d.solved() || r < 0 || r >= d.nrows {
		return nil, ErrNotSolved
	}

	return append([]float64(nil), d.binv[r]...), nil
}

// BInvCol returns column c of the basis inverse.
func (d *DenseSimplex) BInvCol(c int) ([]float64, error) {
	if !d.solved() || c < 0 || c >= d.nrows {
		return nil, ErrNotSolved
	}
	out := make([]float64, d.nrows)
	for i := 0; i < d.nrows; i++ {
		out[i] = d.binv[i][c]
	}

	return out, nil
}

// BInvARow returns row r of B⁻¹·A over the structural columns.
func (d *DenseSimplex) BInvARow(r int) ([]float64, error) {
	if !d.solved() || r < 0 || r >= d.nrows {
		return nil, ErrNotSolved
	}
	out := make([]float64, d.ncols)
	for j := 0; j < d.ncols; j++ {
		var v float64
		for i := 0; i < d.nrows; i++ {
			if c := d.coef(i, j); c != 0 {
				v += d.binv[r][i] * c
			}
		}
		out[j] = v
	}

	return out, nil
}

// BInvACol returns column c of B⁻¹·A.
func (d *DenseSimplex) BInvACol(c int) ([]float64, error) {
	if !d.solved() || c < 0 || c >= d.ncols {
		return nil, ErrNotSolved
	}
	out := make([]float64, d.nrows)
	for i := 0; i < d.nrows; i++ {
		var v float64
		for p := 0; p < d.nrows; p++ {
			if cf := d.coef(p, c); cf != 0 {
				v += d.binv[i][p] * cf
			}
		}
		out[i] = v
	}

	return out, nil
}

// interface conformance
var _ Interface = (*DenseSimplex)(nil)
