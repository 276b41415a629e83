package cip

import "io"

// This file declares the plugin contracts. Every kind is an interface whose
// callbacks receive the Solver handle; the handle's stage checks decide
// which mutating operations a callback may use. Optional behavior (lifecycle
// hooks, separation, presolving, …) lives in small side interfaces the
// dispatcher probes with type assertions, so a plugin implements exactly
// what it needs.

// Lifecycle side interfaces, shared by all plugin kinds. The orchestrator
// invokes them at the matching stage transitions.
type (
	// Initer runs when the problem is transformed.
	Initer interface {
		Init(s *Solver) error
	}
	// Exiter runs when the transformed problem is freed.
	Exiter interface {
		Exit(s *Solver) error
	}
	// InitPresolver runs when presolving starts.
	InitPresolver interface {
		InitPre(s *Solver) error
	}
	// ExitPresolver runs when presolving ends.
	ExitPresolver interface {
		ExitPre(s *Solver) error
	}
	// InitSolver runs when the branch-and-bound search starts.
	InitSolver interface {
		InitSol(s *Solver) error
	}
	// ExitSolver runs when the branch-and-bound search ends.
	ExitSolver interface {
		ExitSol(s *Solver) error
	}
	// Freer runs when the solver itself is torn down.
	Freer interface {
		Free(s *Solver) error
	}
)

// Conshdlr is a constraint handler: the owner of one constraint family's
// semantics. The four mandatory callbacks make a handler usable in checking
// and enforcement; everything else is optional.
type Conshdlr interface {
	// Name returns the unique handler name.
	Name() string
	// Desc returns a one-line description.
	Desc() string
	// CheckPriority orders handlers in feasibility checks (higher first).
	CheckPriority() int
	// EnfoPriority orders handlers in enforcement (higher first).
	EnfoPriority() int
	// SepaPriority orders handlers in separation (higher first).
	SepaPriority() int
	// SepaFreq returns the separation frequency (-1: never, 0: root only).
	SepaFreq() int
	// PropFreq returns the propagation frequency (-1: never).
	PropFreq() int

	// Check decides feasibility of sol for the handler's constraints.
	// Legal results: Feasible, Infeasible.
	Check(s *Solver, conss []*Cons, sol *Sol, checkIntegrality, checkLPRows, printReason bool) (Result, error)
	// EnfoLP enforces the current LP solution. Legal results: Feasible,
	// Infeasible, Cutoff, ConsAdded, ReducedDom, Separated, Branched,
	// SolveLP.
	EnfoLP(s *Solver, conss []*Cons) (Result, error)
	// EnfoPS enforces the current pseudo solution. Legal results as EnfoLP,
	// plus DidNotRun when objinfeasible already prunes the node.
	EnfoPS(s *Solver, conss []*Cons, objinfeasible bool) (Result, error)
	// Lock registers rounding locks for one constraint's variables.
	Lock(s *Solver, c *Cons, nlockspos, nlocksneg int) error
}

// Optional constraint-handler callbacks.
type (
	// ConsTransformer builds the transformed counterpart of a constraint.
	// Handlers without it share the original payload.
	ConsTransformer interface {
		TransCons(s *Solver, src *Cons) (*Cons, error)
	}
	// ConsInitLPer contributes rows of initial constraints to a fresh LP.
	ConsInitLPer interface {
		InitLP(s *Solver, conss []*Cons) error
	}
	// ConsSeparator separates the current LP solution.
	ConsSeparator interface {
		SepaLP(s *Solver, conss []*Cons) (Result, error)
	}
	// ConsPropagator tightens variable domains.
	ConsPropagator interface {
		Prop(s *Solver, conss []*Cons) (Result, error)
	}
	// ConsPresolver reduces the problem before search; reductions are
	// reported through res.
	ConsPresolver interface {
		Presol(s *Solver, conss []*Cons, nrounds int, res *PresolStats) (Result, error)
	}
	// ConsResolver explains an inference for conflict analysis: the handler
	// adds the antecedent bounds of the deduction identified by inferinfo
	// through the solver's AddConflict* methods. Legal results: Success,
	// DidNotFind.
	ConsResolver interface {
		ResProp(s *Solver, c *Cons, v *Var, btype BoundType, inferinfo int, bdchgidx int) (Result, error)
	}
	// ConsActiver is told when a constraint becomes active at a node.
	ConsActiver interface {
		Active(s *Solver, c *Cons) error
	}
	// ConsDeactiver is told when a constraint is deactivated.
	ConsDeactiver interface {
		Deactive(s *Solver, c *Cons) error
	}
)

// Presolver reduces the problem in presolving rounds.
type Presolver interface {
	// Name returns the unique presolver name.
	Name() string
	// Priority orders presolvers; nonnegative priorities run before the
	// constraint handlers' presolve callbacks, negative ones after.
	Priority() int
	// MaxRounds caps the rounds this presolver joins (-1: unlimited).
	MaxRounds() int
	// Presol performs reductions. Legal results: DidNotRun, DidNotFind,
	// Cutoff, Unbounded, Delayed, Success.
	Presol(s *Solver, nrounds int, res *PresolStats) (Result, error)
}

// Propagator tightens domains during the search.
type Propagator interface {
	// Name returns the unique propagator name.
	Name() string
	// Priority orders propagators (higher first).
	Priority() int
	// Freq returns the calling frequency over tree depth (-1: never).
	Freq() int
	// Prop performs propagation at the focus node. Legal results:
	// DidNotRun, DidNotFind, Cutoff, ReducedDom, Delayed.
	Prop(s *Solver) (Result, error)
}

// PropResolver explains a propagator inference for conflict analysis.
type PropResolver interface {
	ResProp(s *Solver, v *Var, btype BoundType, inferinfo int, bdchgidx int) (Result, error)
}

// Separator produces cutting planes from the current LP solution.
type Separator interface {
	// Name returns the unique separator name.
	Name() string
	// Priority orders separators (higher first).
	Priority() int
	// Freq returns the calling frequency over tree depth (-1: never).
	Freq() int
	// MaxBoundDist caps the node's relative bound distance (0: root only).
	MaxBoundDist() float64
	// SepaLP separates; cuts go to the separation store. Legal results:
	// DidNotRun, DidNotFind, Separated, NewRound, Cutoff.
	SepaLP(s *Solver) (Result, error)
}

// Pricer introduces new columns during search. Only activated pricers take
// part; activation happens through Solver.ActivatePricer.
type Pricer interface {
	// Name returns the unique pricer name.
	Name() string
	// Priority orders pricers (higher first).
	Priority() int
	// RedCost prices the current LP solution and may add variables; the
	// returned float is a valid lower bound on the node (or -inf). Legal
	// results: DidNotRun, Success.
	RedCost(s *Solver) (Result, float64, error)
	// Farkas prices an infeasible LP using the Farkas certificate. Legal
	// results: DidNotRun, Success.
	Farkas(s *Solver) (Result, error)
}

// HeurTiming is a bitmask of the points a heuristic may run at.
type HeurTiming uint16

const (
	// HeurBeforeNode runs before the node's relaxation is touched.
	HeurBeforeNode HeurTiming = 1 << iota
	// HeurDuringLP runs between LP resolves.
	HeurDuringLP
	// HeurAfterLP runs after the node's final LP.
	HeurAfterLP
	// HeurAfterNode runs after enforcement settled the node.
	HeurAfterNode
	// HeurAfterPseudo runs after a node processed without LP.
	HeurAfterPseudo
	// HeurBeforePresol runs before presolving.
	HeurBeforePresol
	// HeurDuringPresol runs between presolving rounds.
	HeurDuringPresol
)

// Heur is a primal heuristic.
type Heur interface {
	// Name returns the unique heuristic name.
	Name() string
	// DispChar is the single-character tag shown for found solutions.
	DispChar() byte
	// Priority orders heuristics (higher first).
	Priority() int
	// Freq returns the depth frequency (-1: never, 0: root only).
	Freq() int
	// FreqOffset shifts the depths the frequency fires at.
	FreqOffset() int
	// MaxDepth caps the depth the heuristic runs at (-1: unlimited).
	MaxDepth() int
	// Timing returns the timing mask the heuristic subscribes to.
	Timing() HeurTiming
	// Exec runs the heuristic. Legal results: DidNotRun, DidNotFind,
	// FoundSol (reported as Success), Delayed.
	Exec(s *Solver, timing HeurTiming) (Result, error)
}

// Branchrule splits the focus node's domain.
type Branchrule interface {
	// Name returns the unique rule name.
	Name() string
	// Priority orders rules (higher first).
	Priority() int
	// MaxDepth caps the depth the rule applies at (-1: unlimited).
	MaxDepth() int
	// MaxBoundDist caps the node's relative bound distance for the rule.
	MaxBoundDist() float64
	// ExecLP branches on an LP solution. Legal results: DidNotRun,
	// Cutoff, ConsAdded, ReducedDom, Separated, Branched.
	ExecLP(s *Solver) (Result, error)
	// ExecPS branches without LP solution. Legal results as ExecLP minus
	// Separated.
	ExecPS(s *Solver) (Result, error)
}

// Nodesel picks the next open node.
type Nodesel interface {
	// Name returns the unique selector name.
	Name() string
	// StdPriority ranks the selector in standard mode.
	StdPriority() int
	// MemSavePriority ranks the selector in memory-saving mode.
	MemSavePriority() int
	// Select returns the next node to focus, or nil when the tree is done.
	Select(s *Solver) (*Node, error)
	// Compare orders two open nodes (<0: a before b).
	Compare(s *Solver, a, b *Node) int
}

// ConflictBound is one member of a conflict set: "the bound btype of v was
// at most/at least this value" jointly being infeasible.
type ConflictBound struct {
	Var   *Var
	BType BoundType
	Bound float64

	// RelaxedBd is the weakest bound with which the conflict still holds;
	// handlers may use it to build wider, more reusable constraints.
	RelaxedBd float64
}

// Conflicthdlr turns a conflict set into a constraint.
type Conflicthdlr interface {
	// Name returns the unique handler name.
	Name() string
	// Priority orders conflict handlers (higher first).
	Priority() int
	// Exec receives the conflict set; validdepth tells where the resulting
	// constraint is valid (0: globally). Legal results: DidNotFind,
	// ConsAdded.
	Exec(s *Solver, node *Node, validdepth int, bounds []ConflictBound) (Result, error)
}

// Relaxator solves a relaxation other than the default LP.
type Relaxator interface {
	// Name returns the unique relaxator name.
	Name() string
	// Priority orders relaxators; negative priorities run after the LP.
	Priority() int
	// Freq returns the depth frequency (-1: never).
	Freq() int
	// Exec solves the relaxation; the returned float is a lower bound for
	// the node. Legal results: DidNotRun, Cutoff, Separated, ReducedDom,
	// ConsAdded, Success, Delayed.
	Exec(s *Solver) (Result, float64, error)
}

// Eventhdlr observes solver events; subscription happens through
// Solver.CatchEvent with a type mask.
type Eventhdlr interface {
	// Name returns the unique handler name.
	Name() string
	// Exec handles one delivered event with the subscription's data.
	Exec(s *Solver, ev *Event, data any) error
}

// Reader parses or writes problem files; dispatch is by file extension.
type Reader interface {
	// Name returns the unique reader name.
	Name() string
	// Extension returns the file extension served (without dot).
	Extension() string
	// Read parses path into the solver's original problem. Legal results:
	// DidNotRun (format not supported after all), Success.
	Read(s *Solver, path string) (Result, error)
	// Write dumps the current problem. Legal results: DidNotRun, Success.
	Write(s *Solver, w io.Writer, genericNames bool) (Result, error)
}

// DispColumn is one column of the periodic display line.
type DispColumn interface {
	// Name returns the unique column name.
	Name() string
	// Header returns the column caption.
	Header() string
	// Priority decides which columns fit the display width (higher first).
	Priority() int
	// Position orders the shown columns left to right (smaller first).
	Position() int
	// Value renders the current cell content.
	Value(s *Solver) string
}
