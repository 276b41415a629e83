package cip

import "time"

// Statistics collects the counters of the solving process. A snapshot is
// available through Solver.Stats at any stage; the counters survive
// FreeSolve and reset on FreeTransform.
type Statistics struct {
	NRuns          int   // solve runs, restarts included
	NNodes         int64 // nodes created over all runs
	NNodesCutoff   int64 // focus nodes pruned by bound
	NNodesPruned   int64 // open nodes discarded without processing
	NSolsFound     int64
	NBestSolsFound int64
	NRootFixings   int64 // global fixings and aggregations since the last restart

	NLPSolves     int64
	NLPIterations int64

	NConflictsAnalyzed int64
	NConflictsApplied  int64

	NCutsApplied int64

	NPresolRounds int
	Presol        PresolStats

	SolvingTime time.Duration
}

// Stats returns a snapshot of the solving statistics.
func (s *Solver) Stats() Statistics {
	st := s.stat
	if s.lp != nil {
		st.NLPSolves = s.lp.nlpSolves
		st.NLPIterations = s.lp.nlpIters
	}
	if !s.solveStart.IsZero() && s.stage == StageSolving {
		st.SolvingTime = time.Since(s.solveStart)
	}

	return st
}

// NNodes returns the number of nodes created so far.
func (s *Solver) NNodes() int64 { return s.stat.NNodes }

// NRuns returns the number of solve runs (1 + restarts).
func (s *Solver) NRuns() int { return s.stat.NRuns }

// SolvingTime returns the wall time of the current or last solve.
func (s *Solver) SolvingTime() time.Duration {
	if s.solveStart.IsZero() {
		return 0
	}
	if s.stat.SolvingTime > 0 && s.stage != StageSolving {
		return s.stat.SolvingTime
	}

	return time.Since(s.solveStart)
}

// Gap returns the relative primal-dual gap, infinity while unbounded in
// either direction or when the bounds disagree in sign.
func (s *Solver) Gap() float64 {
	pb := s.primalBoundInternal()
	db := s.dualboundInternalSafe()
	if s.tol.IsInfinity(abs(pb)) || s.tol.IsInfinity(abs(db)) {
		return s.tol.Infinity()
	}
	if s.tol.Zero(pb) && s.tol.Zero(db) {
		return 0
	}
	if pb*db < 0 {
		return s.tol.Infinity()
	}
	den := max(abs(pb), abs(db))

	return abs(pb-db) / den
}

func (s *Solver) primalBoundInternal() float64 {
	if s.primal == nil {
		return s.tol.Infinity()
	}

	return s.primal.upperbound
}

func (s *Solver) dualboundInternalSafe() float64 {
	if s.tree == nil {
		return -s.tol.Infinity()
	}

	return s.dualboundInternal()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
