// Package cip implements the solving kernel for Constraint Integer
// Programs: the stage machine, the problem model, the search tree, the
// conflict engine, presolving, the primal store and the plugin registry.
//
// # Solver lifecycle
//
// A Solver moves through stages
//
//	Init → Problem → Transforming → Transformed → Presolving → Presolved
//	     → InitSolve → Solving → Solved → FreeSolve → Transformed (restart)
//	     → … → FreeTrans → Problem
//
// and every public operation declares the stages it is callable in;
// violations return ErrInvalidCall without mutating state. The user builds
// the problem in stage Problem (variables, constraints, objective sense),
// then calls Solve, which drives transformation, presolving and
// branch-and-bound search, and ends in one of thirteen public statuses.
//
// # Plugins
//
// All solver behavior beyond the bare orchestration is pluggable:
// constraint handlers own the semantics of their constraints, presolvers
// reduce the problem, propagators tighten bounds, separators produce cuts,
// pricers generate columns, heuristics hunt for primal solutions, branching
// rules split domains, node selectors pick the next open node, conflict
// handlers turn conflict sets into constraints, and event handlers observe
// the solve. Plugins are registered before transformation, execute strictly
// priority-ordered, and report through a shared Result enum.
//
// # Determinism
//
// The kernel is single-threaded and cooperative. The only asynchronous
// input is the interrupt flag (Interrupt or context cancellation), polled
// at node boundaries, between presolving rounds and between LP resolves.
// Given a fixed plugin set, fixed parameters and the same input, a solve
// replays identically.
package cip
