// Package numerics provides the tolerance-parametrized floating-point
// predicates every hot path of the solver relies on.
//
// Five named tolerances govern all comparisons:
//
//   - Epsilon        — default equality of two values
//   - SumEpsilon     — equality of large sums (row activities, objective sums)
//   - FeasTol        — primal feasibility of bounds and constraint sides
//   - DualFeasTol    — dual feasibility (reduced costs)
//   - BarrierConvTol — convergence of barrier-type relaxation backends
//
// Every predicate family (Eq/Lt/Le/Gt/Ge/Zero/Positive/Negative/Integral,
// Floor/Ceil/Frac) exists in a default, a Feas, and a Sum flavour, plus
// relative variants for the default and dual tolerance. An Infinity threshold
// marks values the solver treats as unbounded; two infinities of opposite
// sign are never equal under any tolerance, no matter how the operands are
// scaled.
//
// Tolerances live on a Tolerances value owned by the solver handle; inner
// loops receive the pointer once instead of re-reading configuration per
// comparison. Tightening FeasTol or DualFeasTol invokes the registered
// invalidation hook so a cached LP solution is never trusted across a
// tolerance change.
package numerics
