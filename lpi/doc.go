// Package lpi defines the LP-adapter contract the solving kernel talks to,
// and ships a dense bounded-variable primal simplex as the default backend.
//
// The contract is deliberately narrow: column/row editing, a single Solve
// verb with an iteration limit, solution/dual/Farkas extraction, basis
// access, and basis-inverse row/column products for cut generation. Diving
// and probing snapshots are the kernel's business; the adapter only has to
// apply and report plain column and side changes.
//
// The built-in DenseSimplex targets correctness and determinism, not scale:
//
//   - Bounded-variable primal simplex with Bland's rule (no cycling).
//   - Phase I via artificial variables; a positive phase-I optimum yields a
//     dual Farkas certificate of infeasibility.
//   - Dense explicit basis inverse, recomputed by Gauss-Jordan per factorize.
//
// Complexity per Solve is O(iters · m³) with m rows; intended for problem
// sizes where the search tree, not the relaxation, is the bottleneck, and as
// the reference implementation of the adapter contract. Production setups
// plug an external simplex behind the same interface.
package lpi
