package params_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/optimiq/gociap/params"
)

// SetSuite exercises registration, typed access, ranges and callbacks.
type SetSuite struct {
	suite.Suite
	set *params.Set
}

func (s *SetSuite) SetupTest() {
	s.set = params.NewSet()
	require.NoError(s.T(), s.set.AddBool("conflict/enable", "use conflict analysis", true, false, nil))
	require.NoError(s.T(), s.set.AddInt("presolving/maxrounds", "maximal presolving rounds (-1: unlimited)", -1, -1, 1<<30, false, nil))
	require.NoError(s.T(), s.set.AddLong("limits/nodes", "maximal number of nodes (-1: unlimited)", -1, -1, 1<<62, false, nil))
	require.NoError(s.T(), s.set.AddReal("limits/gap", "relative gap to stop at", 0, 0, 1e20, false, nil))
	require.NoError(s.T(), s.set.AddChar("separating/efficacynorm", "cut efficacy norm (e,m,s,d)", 'e', "emsd", true, nil))
	require.NoError(s.T(), s.set.AddString("vbc/filename", "file for tree output", "-", true, nil))
}

// TestDuplicateFails verifies duplicate registration is rejected.
func (s *SetSuite) TestDuplicateFails() {
	err := s.set.AddBool("conflict/enable", "again", false, false, nil)
	require.ErrorIs(s.T(), err, params.ErrDuplicate)
}

// TestUnknownFails verifies access to absent names fails.
func (s *SetSuite) TestUnknownFails() {
	_, err := s.set.GetBool("no/such/param")
	require.ErrorIs(s.T(), err, params.ErrUnknown)
	require.ErrorIs(s.T(), s.set.SetInt("no/such/param", 1), params.ErrUnknown)
}

// TestWrongType verifies typed accessors enforce the parameter type.
func (s *SetSuite) TestWrongType() {
	_, err := s.set.GetInt("conflict/enable")
	require.ErrorIs(s.T(), err, params.ErrWrongType)
	require.ErrorIs(s.T(), s.set.SetReal("presolving/maxrounds", 2.5), params.ErrWrongType)
}

// TestRangeChecks verifies out-of-range values are rejected untouched.
func (s *SetSuite) TestRangeChecks() {
	require.ErrorIs(s.T(), s.set.SetInt("presolving/maxrounds", -2), params.ErrOutOfRange)
	got, err := s.set.GetInt("presolving/maxrounds")
	require.NoError(s.T(), err)
	require.Equal(s.T(), -1, got, "rejected set must not mutate the store")

	require.ErrorIs(s.T(), s.set.SetChar("separating/efficacynorm", 'x'), params.ErrOutOfRange)
	require.NoError(s.T(), s.set.SetChar("separating/efficacynorm", 'm'))
}

// TestCallbackAfterStore verifies the change callback observes the already
// updated value.
func (s *SetSuite) TestCallbackAfterStore() {
	var seen int64
	require.NoError(s.T(), s.set.AddLong("limits/stallnodes", "stall node limit", -1, -1, 1<<62, false,
		func(set *params.Set, p *params.Param) error {
			v, err := set.GetLong(p.Name())
			seen = v

			return err
		}))
	require.NoError(s.T(), s.set.SetLong("limits/stallnodes", 500))
	require.Equal(s.T(), int64(500), seen)
}

// TestResetAll verifies defaults are restored.
func (s *SetSuite) TestResetAll() {
	require.NoError(s.T(), s.set.SetBool("conflict/enable", false))
	require.NoError(s.T(), s.set.SetLong("limits/nodes", 100))
	require.NoError(s.T(), s.set.ResetAll())

	b, _ := s.set.GetBool("conflict/enable")
	n, _ := s.set.GetLong("limits/nodes")
	require.True(s.T(), b)
	require.Equal(s.T(), int64(-1), n)
}

// TestFileRoundTrip verifies write-then-read restores non-default values.
func (s *SetSuite) TestFileRoundTrip() {
	require.NoError(s.T(), s.set.SetLong("limits/nodes", 1234))
	require.NoError(s.T(), s.set.SetString("vbc/filename", "tree out.vbc"))

	path := filepath.Join(s.T().TempDir(), "gociap.set")
	require.NoError(s.T(), s.set.WriteFile(path, true))

	require.NoError(s.T(), s.set.ResetAll())
	require.NoError(s.T(), s.set.ReadFile(path))

	n, _ := s.set.GetLong("limits/nodes")
	f, _ := s.set.GetString("vbc/filename")
	require.Equal(s.T(), int64(1234), n)
	require.Equal(s.T(), "tree out.vbc", f)
}

func TestSetSuite(t *testing.T) {
	suite.Run(t, new(SetSuite))
}
