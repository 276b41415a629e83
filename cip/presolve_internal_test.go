package cip

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// stubPresol scripts one result per round and optionally reports side
// changes without performing any.
type stubPresol struct {
	name    string
	results []Result
	fixes   []int
	sides   []int
	calls   int
}

func (p *stubPresol) Name() string   { return p.name }
func (p *stubPresol) Priority() int  { return 0 }
func (p *stubPresol) MaxRounds() int { return -1 }

func (p *stubPresol) Presol(s *Solver, nrounds int, res *PresolStats) (Result, error) {
	i := p.calls
	p.calls++
	if i < len(p.fixes) {
		res.NFixedVars += p.fixes[i]
	}
	if i < len(p.sides) {
		res.NChgSides += p.sides[i]
	}
	if i < len(p.results) {
		return p.results[i], nil
	}

	return ResultDidNotFind, nil
}

// PresolveSuite exercises the round scheduler of the presolving loop.
type PresolveSuite struct {
	suite.Suite
	s *Solver
}

func (s *PresolveSuite) SetupTest() {
	s.s = NewSolver()
	require.NoError(s.T(), s.s.CreateProb("pre"))
	for _, name := range []string{"a", "b", "c", "d"} {
		v, err := s.s.CreateVar(name, VarInteger, 0, 10, 1)
		require.NoError(s.T(), err)
		require.NoError(s.T(), s.s.AddVar(v))
	}
}

func (s *PresolveSuite) presolve() presolveOutcome {
	require.NoError(s.T(), s.s.Transform())
	out, err := s.s.presolve()
	require.NoError(s.T(), err)

	return out
}

// TestSideChangesKeepRoundsAlive checks that side changes are measured
// against their own threshold: with no constraints in the problem any side
// change demands another round, however small its weight.
func (s *PresolveSuite) TestSideChangesKeepRoundsAlive() {
	p := &stubPresol{name: "sides", sides: []int{3}}
	require.NoError(s.T(), s.s.IncludePresol(p))
	require.NoError(s.T(), s.s.Params().SetReal("presolving/abortfac", 0.25))

	require.Equal(s.T(), presolveReduced, s.presolve())
	require.Equal(s.T(), 2, p.calls, "the side changes of round one earn a second round")
	require.Equal(s.T(), 2, s.s.stat.NPresolRounds)
}

// TestFixingsKeepRoundsAlive measures variable fixings against the
// variable count.
func (s *PresolveSuite) TestFixingsKeepRoundsAlive() {
	p := &stubPresol{name: "fixer", fixes: []int{1, 1, 1}}
	require.NoError(s.T(), s.s.IncludePresol(p))
	require.NoError(s.T(), s.s.Params().SetInt("presolving/maxrounds", 3))

	require.Equal(s.T(), presolveReduced, s.presolve())
	require.Equal(s.T(), 3, p.calls)
	require.Equal(s.T(), 3, s.s.stat.NPresolRounds)
}

// TestDelayedRoundRunsOnlyDelayedPlugins gives the plugins that reported
// Delayed one round of their own and keeps everyone else out of it.
func (s *PresolveSuite) TestDelayedRoundRunsOnlyDelayedPlugins() {
	eager := &stubPresol{name: "eager"}
	lazy := &stubPresol{name: "lazy", results: []Result{ResultDelayed}}
	require.NoError(s.T(), s.s.IncludePresol(eager))
	require.NoError(s.T(), s.s.IncludePresol(lazy))

	require.Equal(s.T(), presolveReduced, s.presolve())
	require.Equal(s.T(), 1, eager.calls, "non-delayed plugins sit out the delayed round")
	require.Equal(s.T(), 2, lazy.calls)
	require.Equal(s.T(), 2, s.s.stat.NPresolRounds)
}

func TestPresolveSuite(t *testing.T) {
	suite.Run(t, new(PresolveSuite))
}
