package cip

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/optimiq/gociap/numerics"
	"github.com/optimiq/gociap/params"
)

// Solver is the constraint-integer-programming kernel: it owns the problem
// stores, the plugin registry, the search tree, and the solving state
// machine. A Solver is not safe for concurrent use; plugins are called back
// on the goroutine that runs Solve.
type Solver struct {
	stage  Stage
	status Status

	tol    *numerics.Tolerances
	params *params.Set
	reg    *registry
	log    zerolog.Logger

	origprob  *Problem
	transprob *Problem

	objsense ObjSense
	objlimit float64

	primal    *primalStore
	tree      *tree
	lp        *lpData
	conflict  conflictAnalysis
	sepastore sepaStore
	cliques   []*Clique

	evfilter eventFilter
	evqueue  eventQueue

	stat       Statistics
	solveStart time.Time

	memSaveMode bool
	interrupted atomic.Bool
	run         solveCtx

	varindex int
}

// NewSolver creates a solver with default tolerances and the kernel
// parameters registered. Plugins are added through the Include* methods
// before the problem is transformed.
func NewSolver() *Solver {
	s := &Solver{
		stage:    StageInit,
		tol:      numerics.New(),
		params:   params.NewSet(),
		reg:      newRegistry(),
		log:      zerolog.Nop(),
		objsense: Minimize,
	}
	s.objlimit = s.tol.Infinity()
	s.registerKernelParams()

	return s
}

// SetLogger installs the structured logger used for solver output.
func (s *Solver) SetLogger(log zerolog.Logger) { s.log = log }

// Logger returns the solver's logger.
func (s *Solver) Logger() zerolog.Logger { return s.log }

// Tolerances returns the numerical tolerance set.
func (s *Solver) Tolerances() *numerics.Tolerances { return s.tol }

// Params returns the parameter set.
func (s *Solver) Params() *params.Set { return s.params }

// Infinity returns the solver's infinity threshold.
func (s *Solver) Infinity() float64 { return s.tol.Infinity() }

// Status returns the termination status of the last solve.
func (s *Solver) Status() Status { return s.status }

// Interrupt requests a graceful stop; safe to call from another goroutine.
func (s *Solver) Interrupt() { s.interrupted.Store(true) }

// nextVarIndex hands out creation indices for deterministic tie-breaking.
func (s *Solver) nextVarIndex() int {
	s.varindex++

	return s.varindex - 1
}

// CreateProb starts a fresh original problem, dropping any previous one.
func (s *Solver) CreateProb(name string) error {
	if err := s.checkStage("CreateProb", stagesBeforeTrans); err != nil {
		return err
	}
	s.origprob = newProblem(name, true)
	s.stage = StageProblem
	s.status = StatusUnknown

	return nil
}

// ProbName returns the original problem's name.
func (s *Solver) ProbName() string {
	if s.origprob == nil {
		return ""
	}

	return s.origprob.name
}

// OrigProb returns the original problem store, nil before CreateProb.
func (s *Solver) OrigProb() *Problem { return s.origprob }

// TransProb returns the transformed problem store, nil before Transform.
func (s *Solver) TransProb() *Problem { return s.transprob }

// NCutsApplied returns the number of separated cuts entered into the LP.
func (s *Solver) NCutsApplied() int64 { return s.stat.NCutsApplied }

// registerKernelParams installs the kernel's built-in parameters. Numerics
// parameters forward into the tolerance set so plugins observe changes.
func (s *Solver) registerKernelParams() {
	p := s.params
	tol := s.tol

	must := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("kernel parameter registration: %v", err))
		}
	}

	must(p.AddReal("numerics/epsilon", "absolute comparison tolerance", tol.Epsilon(), 1e-20, 1e-3, true,
		func(ps *params.Set, q *params.Param) error {
			v, _ := ps.GetReal(q.Name())

			return tol.SetEpsilon(v)
		}))
	must(p.AddReal("numerics/sumepsilon", "tolerance for sums of values", tol.SumEpsilon(), 1e-17, 1e-3, true,
		func(ps *params.Set, q *params.Param) error {
			v, _ := ps.GetReal(q.Name())

			return tol.SetSumEpsilon(v)
		}))
	must(p.AddReal("numerics/feastol", "primal feasibility tolerance", tol.FeasTol(), 1e-17, 1e-3, false,
		func(ps *params.Set, q *params.Param) error {
			v, _ := ps.GetReal(q.Name())

			return tol.SetFeasTol(v)
		}))
	must(p.AddReal("numerics/dualfeastol", "dual feasibility tolerance", tol.DualFeasTol(), 1e-17, 1e-3, false,
		func(ps *params.Set, q *params.Param) error {
			v, _ := ps.GetReal(q.Name())

			return tol.SetDualFeasTol(v)
		}))

	must(p.AddLong("limits/nodes", "maximal number of processed nodes (-1: unlimited)", -1, -1, 1<<62, false, nil))
	must(p.AddLong("limits/stallnodes", "nodes without incumbent improvement before stopping (-1: unlimited)", -1, -1, 1<<62, false, nil))
	must(p.AddReal("limits/time", "time limit in seconds", 1e20, 0, 1e20, false, nil))
	must(p.AddReal("limits/memory", "memory limit in MB (0: unlimited)", 0, 0, 1e20, false, nil))
	must(p.AddReal("limits/gap", "relative gap to stop at", 0, 0, 1e20, false, nil))
	must(p.AddReal("limits/absgap", "absolute gap to stop at", 0, 0, 1e20, false, nil))
	must(p.AddInt("limits/solutions", "number of solutions to stop after (-1: unlimited)", -1, -1, 1<<30, false, nil))
	must(p.AddInt("limits/bestsol", "number of incumbent improvements to stop after (-1: unlimited)", -1, -1, 1<<30, false, nil))

	must(p.AddInt("presolving/maxrounds", "maximal number of presolving rounds (-1: unlimited)", -1, -1, 1<<30, false, nil))
	must(p.AddReal("presolving/abortfac", "stop presolving below this fraction of changed elements", 8e-4, 0, 1, true, nil))

	must(p.AddInt("separating/maxrounds", "separation rounds per node (-1: unlimited)", 5, -1, 1<<30, false, nil))
	must(p.AddInt("separating/maxroundsroot", "separation rounds at the root (-1: unlimited)", -1, -1, 1<<30, false, nil))
	must(p.AddInt("separating/maxcuts", "maximal cuts entered per round", 100, 0, 1<<30, false, nil))
	must(p.AddInt("separating/maxcutsroot", "maximal cuts entered per root round", 2000, 0, 1<<30, false, nil))
	must(p.AddReal("separating/minefficacy", "minimal efficacy of an accepted cut", 1e-4, 0, 1e20, false, nil))
	must(p.AddChar("separating/efficacynorm", "norm for cut efficacy (e)uclidean, (m)aximum, (s)um, (d)iscrete", 'e', "emsd", true, nil))

	must(p.AddBool("conflict/enable", "use conflict analysis", true, false, nil))
	must(p.AddInt("conflict/maxsize", "maximal size of stored conflict sets (0: unlimited)", 0, 0, 1<<30, true, nil))

	must(p.AddBool("branching/preferbinary", "prefer binary variables for branching", false, false, nil))
	must(p.AddReal("branching/clamp", "fraction to clamp continuous branching points away from the bounds", 0.2, 0, 0.5, true, nil))

	must(p.AddInt("restarts/maxrestarts", "maximal number of restarts (-1: unlimited)", -1, -1, 1<<30, false, nil))
	must(p.AddReal("restarts/fixingfrac", "fraction of root fixings that triggers a restart", 0.05, 0, 1, true, nil))

	must(p.AddInt("lp/iterlim", "simplex iteration limit per LP solve (-1: unlimited)", -1, -1, 1<<30, true, nil))
	must(p.AddBool("misc/memsave", "use memory-saving node selection", false, true,
		func(ps *params.Set, q *params.Param) error {
			v, _ := ps.GetBool(q.Name())
			s.memSaveMode = v

			return nil
		}))
}

// ReadParams loads parameter values from a settings file.
func (s *Solver) ReadParams(path string) error {
	return s.params.ReadFile(path)
}

// WriteParams saves the parameters to a settings file; onlyChanged skips
// parameters still at their default.
func (s *Solver) WriteParams(path string, onlyChanged bool) error {
	return s.params.WriteFile(path, onlyChanged)
}

// ReadProb reads a problem file, dispatching on the file extension to a
// registered reader.
func (s *Solver) ReadProb(path string) error {
	if err := s.checkStage("ReadProb", stagesBeforeTrans); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrNoFile, path)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, r := range s.reg.readers {
		if r.Extension() != ext {
			continue
		}
		res, err := r.Read(s, path)
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrRead, path, err)
		}
		if res == ResultDidNotRun {
			continue
		}
		s.log.Info().Str("file", path).
			Int("vars", s.origprob.NVars()).
			Int("conss", s.origprob.NConss()).
			Msg("problem read")

		return nil
	}

	return fmt.Errorf("%w: no reader for extension <%s>", ErrPluginNotFound, ext)
}

// WriteProb writes the original problem in the format matching ext.
func (s *Solver) WriteProb(w io.Writer, ext string, genericNames bool) error {
	if err := s.checkStage("WriteProb", stagesWithProblem); err != nil {
		return err
	}
	for _, r := range s.reg.readers {
		if r.Extension() != ext {
			continue
		}
		res, err := r.Write(s, w, genericNames)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		if res == ResultDidNotRun {
			continue
		}

		return nil
	}

	return fmt.Errorf("%w: no writer for extension <%s>", ErrPluginNotFound, ext)
}

// WriteProbFile is WriteProb to a created file, dispatching on the path's
// extension.
func (s *Solver) WriteProbFile(path string, genericNames bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileCreate, err)
	}
	defer f.Close()

	return s.WriteProb(f, strings.TrimPrefix(filepath.Ext(path), "."), genericNames)
}
