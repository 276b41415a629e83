// Command cip solves a Constraint Integer Program given in the plain-text
// cip model format and prints the solving status, bounds and the best
// solution found.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/optimiq/gociap"
	"github.com/optimiq/gociap/cip"
)

type options struct {
	paramsFile string
	timeLimit  time.Duration
	nodeLimit  int64
	quiet      bool
	verbose    bool
	writeProb  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "cip <model.cip>",
		Short: "solve a constraint integer program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&opts.paramsFile, "params", "", "parameter file to load before solving")
	cmd.Flags().DurationVar(&opts.timeLimit, "time-limit", 0, "wall-clock limit (0: none)")
	cmd.Flags().Int64Var(&opts.nodeLimit, "nodes", -1, "node limit (-1: none)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress solver log output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug-level solver log output")
	cmd.Flags().StringVar(&opts.writeProb, "write-prob", "", "write the problem back to this file and exit")

	return cmd
}

func run(cmd *cobra.Command, opts *options, path string) error {
	s, err := gociap.NewDefaultSolver()
	if err != nil {
		return err
	}

	if !opts.quiet {
		level := zerolog.InfoLevel
		if opts.verbose {
			level = zerolog.DebugLevel
		}
		log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
			Level(level).With().Timestamp().Logger()
		s.SetLogger(log)
	}

	if opts.paramsFile != "" {
		if err := s.ReadParams(opts.paramsFile); err != nil {
			return err
		}
	}
	if opts.timeLimit > 0 {
		if err := s.Params().SetReal("limits/time", opts.timeLimit.Seconds()); err != nil {
			return err
		}
	}
	if opts.nodeLimit >= 0 {
		if err := s.Params().SetLong("limits/nodes", opts.nodeLimit); err != nil {
			return err
		}
	}

	if err := s.ReadProb(path); err != nil {
		return err
	}

	if opts.writeProb != "" {
		return s.WriteProbFile(opts.writeProb, false)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status, err := s.Solve(ctx)
	if err != nil {
		return err
	}

	report(cmd, s, status)

	return nil
}

func report(cmd *cobra.Command, s *cip.Solver, status cip.Status) {
	out := cmd.OutOrStdout()
	stats := s.Stats()

	fmt.Fprintf(out, "status      : %s\n", status)
	fmt.Fprintf(out, "nodes       : %d\n", stats.NNodes)
	fmt.Fprintf(out, "lp solves   : %d (%d iterations)\n", stats.NLPSolves, stats.NLPIterations)
	fmt.Fprintf(out, "time        : %s\n", stats.SolvingTime.Round(time.Millisecond))
	fmt.Fprintf(out, "primal bound: %g\n", s.PrimalBound())
	fmt.Fprintf(out, "dual bound  : %g\n", s.Dualbound())
	fmt.Fprintf(out, "gap         : %g\n", s.Gap())

	best := s.BestSol()
	if best == nil {
		return
	}
	fmt.Fprintf(out, "objective   : %g\n", best.ObjExternal())
	fmt.Fprintln(out, "solution:")
	for _, v := range s.OrigProb().Vars() {
		val := best.Val(v)
		if s.Tolerances().Zero(val) {
			continue
		}
		fmt.Fprintf(out, "  %-20s %g\n", v.Name(), val)
	}
}
