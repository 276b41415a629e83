// Package linear provides the constraint handler for linear constraints
//
//	lhs ≤ a₁x₁ + … + aₙxₙ ≤ rhs
//
// covering feasibility checking, LP enforcement, separation, activity-based
// domain propagation with conflict explanations, and presolving reductions
// (redundancy removal, singleton fixing, bound tightening, and pairwise
// aggregation of equality constraints).
package linear
