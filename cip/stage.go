package cip

import "fmt"

// Stage is the solver's lifecycle position. Transitions are monotone within
// one solve and cycle back through FreeSolve (restart) or FreeTrans (full
// teardown to the original problem).
type Stage uint8

const (
	// StageInit is the freshly created solver without a problem.
	StageInit Stage = iota
	// StageProblem is the user-facing modeling stage.
	StageProblem
	// StageTransforming is the transient copy into the transformed space.
	StageTransforming
	// StageTransformed means the transformed problem exists untouched.
	StageTransformed
	// StagePresolving means presolving rounds are running.
	StagePresolving
	// StagePresolved means presolving finished without deciding the problem.
	StagePresolved
	// StageInitSolve is the transient setup of the branch-and-bound data.
	StageInitSolve
	// StageSolving means the search loop is active.
	StageSolving
	// StageSolved means a final status is available.
	StageSolved
	// StageFreeSolve is the transient teardown of the search data.
	StageFreeSolve
	// StageFreeTrans is the transient teardown of the transformed problem.
	StageFreeTrans

	numStages = int(StageFreeTrans) + 1
)

// String returns the lowercase stage name.
func (s Stage) String() string {
	names := [...]string{
		"init", "problem", "transforming", "transformed", "presolving",
		"presolved", "initsolve", "solving", "solved", "freesolve", "freetrans",
	}
	if int(s) < len(names) {
		return names[s]
	}

	return "invalid"
}

// StageSet is a bitset of stages; operations declare their legal stages as
// one StageSet so the contract is auditable in a single expression.
type StageSet uint16

// Stages builds a StageSet from its members.
func Stages(members ...Stage) StageSet {
	var set StageSet
	for _, m := range members {
		set |= 1 << m
	}

	return set
}

// Contains reports whether the set holds s.
func (set StageSet) Contains(s Stage) bool { return set&(1<<s) != 0 }

// Frequently used stage sets.
var (
	stagesProblemOnly    = Stages(StageProblem)
	stagesBeforeTrans    = Stages(StageInit, StageProblem)
	stagesTransSolving   = Stages(StageTransformed, StagePresolving, StagePresolved, StageInitSolve, StageSolving)
	stagesWithProblem    = Stages(StageProblem, StageTransforming, StageTransformed, StagePresolving, StagePresolved, StageInitSolve, StageSolving, StageSolved, StageFreeSolve, StageFreeTrans)
	stagesWithTransProb  = Stages(StageTransforming, StageTransformed, StagePresolving, StagePresolved, StageInitSolve, StageSolving, StageSolved, StageFreeSolve)
	stagesSolvingOnly    = Stages(StageSolving)
	stagesPresolvingOnly = Stages(StagePresolving)
)

// Stage returns the solver's current stage.
func (s *Solver) Stage() Stage { return s.stage }

// checkStage guards a public operation: outside its declared set the call
// fails with ErrInvalidCall and must not have mutated anything.
func (s *Solver) checkStage(op string, set StageSet) error {
	if !set.Contains(s.stage) {
		return fmt.Errorf("%w: %s in stage <%s>", ErrInvalidCall, op, s.stage)
	}

	return nil
}

// setStage moves the solver to the next lifecycle stage.
func (s *Solver) setStage(st Stage) error {
	s.stage = st
	s.log.Debug().Stringer("stage", st).Msg("stage change")

	return nil
}

// Status is the public termination reason of a solve.
type Status uint8

const (
	// StatusUnknown means no solve has concluded yet.
	StatusUnknown Status = iota
	// StatusUserInterrupt means the user interrupted the solve.
	StatusUserInterrupt
	// StatusNodeLimit means the node limit was reached.
	StatusNodeLimit
	// StatusStallNodeLimit means too many nodes passed without improvement.
	StatusStallNodeLimit
	// StatusTimeLimit means the time limit was reached.
	StatusTimeLimit
	// StatusMemLimit means the memory limit was reached.
	StatusMemLimit
	// StatusGapLimit means the relative gap dropped below the limit.
	StatusGapLimit
	// StatusSolLimit means enough solutions were found.
	StatusSolLimit
	// StatusBestSolLimit means enough improving solutions were found.
	StatusBestSolLimit
	// StatusObjLimit means the search was exhausted below the objective
	// limit without finding a solution beating it.
	StatusObjLimit
	// StatusOptimal means an optimal solution was found and proven.
	StatusOptimal
	// StatusInfeasible means the problem has no feasible solution (within
	// the objective limit).
	StatusInfeasible
	// StatusUnbounded means the objective is unbounded.
	StatusUnbounded
	// StatusInfOrUnbounded means infeasibility and unboundedness could not
	// be told apart.
	StatusInfOrUnbounded
)

// String returns the lowercase status name.
func (st Status) String() string {
	names := [...]string{
		"unknown", "userinterrupt", "nodelimit", "stallnodelimit", "timelimit",
		"memlimit", "gaplimit", "sollimit", "bestsollimit", "objlimit",
		"optimal", "infeasible", "unbounded", "inforunbd",
	}
	if int(st) < len(names) {
		return names[st]
	}

	return "invalid"
}
