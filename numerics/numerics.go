package numerics

import (
	"errors"
	"math"
)

// Default tolerance values; chosen to match common double-precision solver
// practice (roughly sqrt of machine epsilon for equality, 1e-6 feasibility).
const (
	DefaultEpsilon        = 1e-9
	DefaultSumEpsilon     = 1e-6
	DefaultFeasTol        = 1e-6
	DefaultDualFeasTol    = 1e-7
	DefaultBarrierConvTol = 1e-10
	DefaultInfinity       = 1e20
)

// ErrTolOutOfRange is returned when a tolerance setter receives a value
// outside (0, 1).
var ErrTolOutOfRange = errors.New("numerics: tolerance out of range (0,1)")

// Tolerances carries the named tolerances and the infinity threshold.
// The zero value is unusable; construct with New.
type Tolerances struct {
	epsilon        float64
	sumEpsilon     float64
	feasTol        float64
	dualFeasTol    float64
	barrierConvTol float64
	infinity       float64

	// onTighten fires after FeasTol or DualFeasTol is tightened, so the
	// owner can drop a cached LP solution that was validated against the
	// looser tolerance.
	onTighten func()
}

// New returns Tolerances initialized with the package defaults.
func New() *Tolerances {
	return &Tolerances{
		epsilon:        DefaultEpsilon,
		sumEpsilon:     DefaultSumEpsilon,
		feasTol:        DefaultFeasTol,
		dualFeasTol:    DefaultDualFeasTol,
		barrierConvTol: DefaultBarrierConvTol,
		infinity:       DefaultInfinity,
	}
}

// SetInvalidationHook registers fn to run whenever FeasTol or DualFeasTol is
// tightened. A nil fn clears the hook.
func (t *Tolerances) SetInvalidationHook(fn func()) { t.onTighten = fn }

// Epsilon returns the default equality tolerance.
func (t *Tolerances) Epsilon() float64 { return t.epsilon }

// SumEpsilon returns the tolerance used for large sums.
func (t *Tolerances) SumEpsilon() float64 { return t.sumEpsilon }

// FeasTol returns the primal feasibility tolerance.
func (t *Tolerances) FeasTol() float64 { return t.feasTol }

// DualFeasTol returns the dual feasibility (reduced-cost) tolerance.
func (t *Tolerances) DualFeasTol() float64 { return t.dualFeasTol }

// BarrierConvTol returns the barrier convergence tolerance.
func (t *Tolerances) BarrierConvTol() float64 { return t.barrierConvTol }

// Infinity returns the threshold at which values count as unbounded.
func (t *Tolerances) Infinity() float64 { return t.infinity }

// SetEpsilon sets the default equality tolerance.
func (t *Tolerances) SetEpsilon(v float64) error {
	if v <= 0 || v >= 1 {
		return ErrTolOutOfRange
	}
	t.epsilon = v

	return nil
}

// SetSumEpsilon sets the sum tolerance.
func (t *Tolerances) SetSumEpsilon(v float64) error {
	if v <= 0 || v >= 1 {
		return ErrTolOutOfRange
	}
	t.sumEpsilon = v

	return nil
}

// SetFeasTol sets the feasibility tolerance. Tightening it invalidates any
// cached LP solution through the registered hook.
func (t *Tolerances) SetFeasTol(v float64) error {
	if v <= 0 || v >= 1 {
		return ErrTolOutOfRange
	}
	tightened := v < t.feasTol
	t.feasTol = v
	if tightened && t.onTighten != nil {
		t.onTighten()
	}

	return nil
}

// SetDualFeasTol sets the dual feasibility tolerance, with the same
// invalidation rule as SetFeasTol.
func (t *Tolerances) SetDualFeasTol(v float64) error {
	if v <= 0 || v >= 1 {
		return ErrTolOutOfRange
	}
	tightened := v < t.dualFeasTol
	t.dualFeasTol = v
	if tightened && t.onTighten != nil {
		t.onTighten()
	}

	return nil
}

// SetBarrierConvTol sets the barrier convergence tolerance.
func (t *Tolerances) SetBarrierConvTol(v float64) error {
	if v <= 0 || v >= 1 {
		return ErrTolOutOfRange
	}
	t.barrierConvTol = v

	return nil
}

// IsInfinity reports whether v counts as +infinity.
func (t *Tolerances) IsInfinity(v float64) bool { return v >= t.infinity }

// IsNegInfinity reports whether v counts as -infinity.
func (t *Tolerances) IsNegInfinity(v float64) bool { return v <= -t.infinity }

// isAnyInf reports whether either operand is at or beyond an infinity
// threshold. Comparisons between infinite operands bypass tolerances:
// equal only when both lie on the same side.
func (t *Tolerances) isAnyInf(a, b float64) bool {
	return t.IsInfinity(a) || t.IsNegInfinity(a) || t.IsInfinity(b) || t.IsNegInfinity(b)
}

// infEq is the infinity-aware equality used by all Eq flavours.
func (t *Tolerances) infEq(a, b float64) bool {
	return (t.IsInfinity(a) && t.IsInfinity(b)) || (t.IsNegInfinity(a) && t.IsNegInfinity(b))
}

// eq is the shared absolute-difference implementation.
func (t *Tolerances) eq(a, b, tol float64) bool {
	if t.isAnyInf(a, b) {
		return t.infEq(a, b)
	}

	return math.Abs(a-b) <= tol
}

// lt is the shared strict-less implementation.
func (t *Tolerances) lt(a, b, tol float64) bool {
	if t.isAnyInf(a, b) {
		return !t.infEq(a, b) && a < b
	}

	return a < b-tol
}

// Eq reports a == b within Epsilon.
func (t *Tolerances) Eq(a, b float64) bool { return t.eq(a, b, t.epsilon) }

// Lt reports a < b beyond Epsilon.
func (t *Tolerances) Lt(a, b float64) bool { return t.lt(a, b, t.epsilon) }

// Le reports a <= b within Epsilon.
func (t *Tolerances) Le(a, b float64) bool { return !t.lt(b, a, t.epsilon) }

// Gt reports a > b beyond Epsilon.
func (t *Tolerances) Gt(a, b float64) bool { return t.lt(b, a, t.epsilon) }

// Ge reports a >= b within Epsilon.
func (t *Tolerances) Ge(a, b float64) bool { return !t.lt(a, b, t.epsilon) }

// Zero reports |v| <= Epsilon.
func (t *Tolerances) Zero(v float64) bool { return math.Abs(v) <= t.epsilon }

// Positive reports v > Epsilon.
func (t *Tolerances) Positive(v float64) bool { return v > t.epsilon }

// Negative reports v < -Epsilon.
func (t *Tolerances) Negative(v float64) bool { return v < -t.epsilon }

// Integral reports whether v is integral within Epsilon.
func (t *Tolerances) Integral(v float64) bool { return t.eq(v, math.Round(v), t.epsilon) }

// Floor rounds v down, treating values within Epsilon of the next integer
// as that integer.
func (t *Tolerances) Floor(v float64) float64 { return math.Floor(v + t.epsilon) }

// Ceil rounds v up with the symmetric Epsilon slack.
func (t *Tolerances) Ceil(v float64) float64 { return math.Ceil(v - t.epsilon) }

// Frac returns the fractional part v - Floor(v).
func (t *Tolerances) Frac(v float64) float64 { return v - t.Floor(v) }

// FeasEq reports a == b within FeasTol.
func (t *Tolerances) FeasEq(a, b float64) bool { return t.eq(a, b, t.feasTol) }

// FeasLt reports a < b beyond FeasTol.
func (t *Tolerances) FeasLt(a, b float64) bool { return t.lt(a, b, t.feasTol) }

// FeasLe reports a <= b within FeasTol.
func (t *Tolerances) FeasLe(a, b float64) bool { return !t.lt(b, a, t.feasTol) }

// FeasGt reports a > b beyond FeasTol.
func (t *Tolerances) FeasGt(a, b float64) bool { return t.lt(b, a, t.feasTol) }

// FeasGe reports a >= b within FeasTol.
func (t *Tolerances) FeasGe(a, b float64) bool { return !t.lt(a, b, t.feasTol) }

// FeasZero reports |v| <= FeasTol.
func (t *Tolerances) FeasZero(v float64) bool { return math.Abs(v) <= t.feasTol }

// FeasPositive reports v > FeasTol.
func (t *Tolerances) FeasPositive(v float64) bool { return v > t.feasTol }

// FeasNegative reports v < -FeasTol.
func (t *Tolerances) FeasNegative(v float64) bool { return v < -t.feasTol }

// FeasIntegral reports whether v is integral within FeasTol.
func (t *Tolerances) FeasIntegral(v float64) bool { return t.eq(v, math.Round(v), t.feasTol) }

// FeasFloor rounds v down with FeasTol slack.
func (t *Tolerances) FeasFloor(v float64) float64 { return math.Floor(v + t.feasTol) }

// FeasCeil rounds v up with FeasTol slack.
func (t *Tolerances) FeasCeil(v float64) float64 { return math.Ceil(v - t.feasTol) }

// FeasFrac returns v - FeasFloor(v).
func (t *Tolerances) FeasFrac(v float64) float64 { return v - t.FeasFloor(v) }

// SumEq reports a == b within SumEpsilon.
func (t *Tolerances) SumEq(a, b float64) bool { return t.eq(a, b, t.sumEpsilon) }

// SumLt reports a < b beyond SumEpsilon.
func (t *Tolerances) SumLt(a, b float64) bool { return t.lt(a, b, t.sumEpsilon) }

// SumLe reports a <= b within SumEpsilon.
func (t *Tolerances) SumLe(a, b float64) bool { return !t.lt(b, a, t.sumEpsilon) }

// SumGt reports a > b beyond SumEpsilon.
func (t *Tolerances) SumGt(a, b float64) bool { return t.lt(b, a, t.sumEpsilon) }

// SumGe reports a >= b within SumEpsilon.
func (t *Tolerances) SumGe(a, b float64) bool { return !t.lt(a, b, t.sumEpsilon) }

// SumZero reports |v| <= SumEpsilon.
func (t *Tolerances) SumZero(v float64) bool { return math.Abs(v) <= t.sumEpsilon }

// SumPositive reports v > SumEpsilon.
func (t *Tolerances) SumPositive(v float64) bool { return v > t.sumEpsilon }

// SumNegative reports v < -SumEpsilon.
func (t *Tolerances) SumNegative(v float64) bool { return v < -t.sumEpsilon }

// SumIntegral reports whether v is integral within SumEpsilon.
func (t *Tolerances) SumIntegral(v float64) bool { return t.eq(v, math.Round(v), t.sumEpsilon) }

// SumFloor rounds v down with SumEpsilon slack.
func (t *Tolerances) SumFloor(v float64) float64 { return math.Floor(v + t.sumEpsilon) }

// SumCeil rounds v up with SumEpsilon slack.
func (t *Tolerances) SumCeil(v float64) float64 { return math.Ceil(v - t.sumEpsilon) }

// SumFrac returns v - SumFloor(v).
func (t *Tolerances) SumFrac(v float64) float64 { return v - t.SumFloor(v) }

// DualFeasLt reports a < b beyond DualFeasTol.
func (t *Tolerances) DualFeasLt(a, b float64) bool { return t.lt(a, b, t.dualFeasTol) }

// DualFeasGt reports a > b beyond DualFeasTol.
func (t *Tolerances) DualFeasGt(a, b float64) bool { return t.lt(b, a, t.dualFeasTol) }

// DualFeasZero reports |v| <= DualFeasTol.
func (t *Tolerances) DualFeasZero(v float64) bool { return math.Abs(v) <= t.dualFeasTol }

// relDiff is the scale-free difference (a-b)/max(|a|,|b|,1).
func relDiff(a, b float64) float64 {
	quot := math.Max(math.Abs(a), math.Abs(b))
	if quot < 1.0 {
		quot = 1.0
	}

	return (a - b) / quot
}

// RelEq reports relative equality of a and b within Epsilon.
func (t *Tolerances) RelEq(a, b float64) bool {
	if t.isAnyInf(a, b) {
		return t.infEq(a, b)
	}

	return math.Abs(relDiff(a, b)) <= t.epsilon
}

// RelLt reports a relatively smaller than b beyond Epsilon.
func (t *Tolerances) RelLt(a, b float64) bool {
	if t.isAnyInf(a, b) {
		return !t.infEq(a, b) && a < b
	}

	return relDiff(a, b) < -t.epsilon
}

// RelGt reports a relatively greater than b beyond Epsilon.
func (t *Tolerances) RelGt(a, b float64) bool { return t.RelLt(b, a) }

// RelLe reports a relatively less-or-equal b within Epsilon.
func (t *Tolerances) RelLe(a, b float64) bool { return !t.RelLt(b, a) }

// RelGe reports a relatively greater-or-equal b within Epsilon.
func (t *Tolerances) RelGe(a, b float64) bool { return !t.RelLt(a, b) }
