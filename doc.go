// Package gociap is a branch-and-bound framework for Constraint Integer
// Programs (CIPs): mixed-integer optimization problems whose constraints are
// supplied by pluggable handlers rather than a fixed constraint matrix.
//
// 🚀 What is gociap?
//
//	A deterministic, single-threaded solving kernel that brings together:
//		• A stage machine driving transform → presolve → search → teardown
//		• A plugin registry for constraint handlers, presolvers, propagators,
//		  separators, pricers, heuristics, branching rules, node selectors,
//		  conflict handlers, relaxators, event handlers and display columns
//		• A search tree with focus-path bound replay, probing and diving
//		• Conflict analysis with First-UIP resolution
//		• A primal solution store with objective-limit handling
//		• A bounded-variable simplex as the default LP relaxation backend
//
// Under the hood, everything is organized under these subpackages:
//
//	numerics/  — tolerance-parametrized comparisons, rounding, infinity
//	params/    — typed, range-checked, dot-path configuration
//	lpi/       — LP adapter contract + built-in dense simplex
//	cip/       — problem model, tree, conflict engine, presolving, orchestrator
//	cons/      — built-in constraint handlers (linear, integral)
//	heur/      — built-in primal heuristics (rounding)
//	branch/    — built-in branching rules (most-infeasible)
//	nodesel/   — built-in node selectors (best-first, depth-first)
//	cmd/       — batch command-line front end
//
// Quick example:
//
//	s, _ := gociap.NewDefaultSolver()
//	x, _ := s.CreateVar("x", cip.VarBinary, 0, 1, 1.0)
//	y, _ := s.CreateVar("y", cip.VarBinary, 0, 1, 1.0)
//	_, _ = s.AddVar(x), s.AddVar(y)
//	c, _ := linear.NewCons(s, "cover", []*cip.Var{x, y}, []float64{1, 1}, 1, s.Infinity())
//	_ = s.AddCons(c)
//	status, _ := s.Solve(context.Background())
//	// status == cip.StatusOptimal, s.BestSol() has objective 1.
//
// All solver state lives on the Solver handle; there are no package-level
// globals, and a fixed instance always replays the same search.
package gociap
