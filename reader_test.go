package gociap_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	gociap "github.com/optimiq/gociap"
	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/cons/linear"
)

// ReaderSuite exercises the cip-format reader and writer.
type ReaderSuite struct {
	suite.Suite
	s *cip.Solver
}

func (s *ReaderSuite) SetupTest() {
	solver, err := gociap.NewDefaultSolver()
	require.NoError(s.T(), err)
	s.s = solver
}

// varRecord is the comparable shape of one variable for diffing.
type varRecord struct {
	Name   string
	Type   cip.VarType
	Lb, Ub float64
	Obj    float64
}

// consRecord is the comparable shape of one linear constraint.
type consRecord struct {
	Name     string
	Lhs, Rhs float64
	Vars     []string
	Vals     []float64
}

func snapshot(s *cip.Solver) (vars []varRecord, conss []consRecord) {
	p := s.OrigProb()
	for _, v := range p.Vars() {
		vars = append(vars, varRecord{
			Name: v.Name(), Type: v.Type(),
			Lb: v.GlbLb(), Ub: v.GlbUb(), Obj: v.Obj(),
		})
	}
	for _, c := range p.Conss() {
		d := c.Data().(*linear.ConsData)
		rec := consRecord{Name: c.Name(), Lhs: d.Lhs(), Rhs: d.Rhs(), Vals: d.Vals()}
		for _, v := range d.Vars() {
			rec.Vars = append(rec.Vars, v.Name())
		}
		conss = append(conss, rec)
	}

	return vars, conss
}

// TestWriteReadFidelity writes a model, reads it into a second solver, and
// diffs the two problems structurally.
func (s *ReaderSuite) TestWriteReadFidelity() {
	require.NoError(s.T(), s.s.CreateProb("model"))
	x, err := s.s.CreateVar("x", cip.VarBinary, 0, 1, 2)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(x))
	y, err := s.s.CreateVar("y", cip.VarInteger, -2, 8, -1.5)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(y))
	z, err := s.s.CreateVar("z", cip.VarContinuous, 0, s.s.Infinity(), 0.25)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(z))

	c, err := linear.NewCons(s.s, "mix",
		[]*cip.Var{x, y, z}, []float64{1, 2, -0.5}, 1, s.s.Infinity())
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddCons(c))

	var buf bytes.Buffer
	require.NoError(s.T(), s.s.WriteProb(&buf, "cip", false))

	path := filepath.Join(s.T().TempDir(), "model.cip")
	require.NoError(s.T(), os.WriteFile(path, buf.Bytes(), 0o644))

	other, err := gociap.NewDefaultSolver()
	require.NoError(s.T(), err)
	require.NoError(s.T(), other.ReadProb(path))

	wantVars, wantConss := snapshot(s.s)
	gotVars, gotConss := snapshot(other)
	require.Empty(s.T(), cmp.Diff(wantVars, gotVars))
	require.Empty(s.T(), cmp.Diff(wantConss, gotConss))
}

// TestGenericNames writes probindex-derived names instead of user names.
func (s *ReaderSuite) TestGenericNames() {
	require.NoError(s.T(), s.s.CreateProb("generic"))
	v, err := s.s.CreateVar("long_user_name", cip.VarBinary, 0, 1, 1)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.s.AddVar(v))

	var buf bytes.Buffer
	require.NoError(s.T(), s.s.WriteProb(&buf, "cip", true))
	require.Contains(s.T(), buf.String(), "var x0 binary")
	require.NotContains(s.T(), buf.String(), "long_user_name")
}

// TestReadErrorsCarryLineNumbers rejects malformed input with a position.
func (s *ReaderSuite) TestReadErrorsCarryLineNumbers() {
	path := filepath.Join(s.T().TempDir(), "bad.cip")
	require.NoError(s.T(), os.WriteFile(path, []byte("var x binary 0 1\n"), 0o644))

	err := s.s.ReadProb(path)
	require.ErrorIs(s.T(), err, cip.ErrRead)
	require.Contains(s.T(), err.Error(), "bad.cip:1:")
}

func TestReaderSuite(t *testing.T) {
	suite.Run(t, new(ReaderSuite))
}
