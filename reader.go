package gociap

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/optimiq/gociap/cip"
	"github.com/optimiq/gociap/cons/linear"
)

// Reader parses and writes the plain-text cip model format:
//
//	# comment
//	problem <name>
//	minimize | maximize
//	var <name> binary|integer|implint|continuous <lb> <ub> <obj>
//	cons <name> <lhs> <rhs> <coef> <var> [<coef> <var> ...]
//
// Bounds and sides accept inf, +inf and -inf.
type Reader struct{}

// NewReader returns the cip-format reader.
func NewReader() *Reader { return &Reader{} }

// Name returns "cipreader".
func (r *Reader) Name() string { return "cipreader" }

// Extension returns "cip".
func (r *Reader) Extension() string { return "cip" }

// Read parses path into the solver's original problem.
func (r *Reader) Read(s *cip.Solver, path string) (cip.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return cip.ResultDidNotRun, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := s.CreateProb(name); err != nil {
		return cip.ResultDidNotRun, err
	}

	vars := make(map[string]*cip.Var)
	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if err := r.parseLine(s, fields, vars); err != nil {
			return cip.ResultDidNotRun, fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
	}
	if err := sc.Err(); err != nil {
		return cip.ResultDidNotRun, err
	}

	return cip.ResultSuccess, nil
}

func (r *Reader) parseLine(s *cip.Solver, fields []string, vars map[string]*cip.Var) error {
	switch fields[0] {
	case "problem":
		// The problem was already created from the file name; the inline
		// name is validated but the file name wins.
		if len(fields) != 2 {
			return fmt.Errorf("problem line wants a single name")
		}

		return nil

	case "minimize":
		return s.SetObjsense(cip.Minimize)

	case "maximize":
		return s.SetObjsense(cip.Maximize)

	case "var":
		if len(fields) != 6 {
			return fmt.Errorf("var line wants: var <name> <type> <lb> <ub> <obj>")
		}
		vtype, err := parseVarType(fields[2])
		if err != nil {
			return err
		}
		lb, err := parseValue(s, fields[3])
		if err != nil {
			return err
		}
		ub, err := parseValue(s, fields[4])
		if err != nil {
			return err
		}
		obj, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return fmt.Errorf("bad objective %q: %w", fields[5], err)
		}
		v, err := s.CreateVar(fields[1], vtype, lb, ub, obj)
		if err != nil {
			return err
		}
		if err := s.AddVar(v); err != nil {
			return err
		}
		vars[fields[1]] = v

		return nil

	case "cons":
		if len(fields) < 6 || len(fields)%2 != 0 {
			return fmt.Errorf("cons line wants: cons <name> <lhs> <rhs> <coef> <var> ...")
		}
		lhs, err := parseValue(s, fields[2])
		if err != nil {
			return err
		}
		rhs, err := parseValue(s, fields[3])
		if err != nil {
			return err
		}
		var (
			cvars []*cip.Var
			cvals []float64
		)
		for i := 4; i < len(fields); i += 2 {
			coef, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return fmt.Errorf("bad coefficient %q: %w", fields[i], err)
			}
			v, ok := vars[fields[i+1]]
			if !ok {
				return fmt.Errorf("unknown variable %q", fields[i+1])
			}
			cvars = append(cvars, v)
			cvals = append(cvals, coef)
		}
		c, err := linear.NewCons(s, fields[1], cvars, cvals, lhs, rhs)
		if err != nil {
			return err
		}

		return s.AddCons(c)

	default:
		return fmt.Errorf("unknown keyword %q", fields[0])
	}
}

// Write dumps the original problem in the cip format.
func (r *Reader) Write(s *cip.Solver, w io.Writer, genericNames bool) (cip.Result, error) {
	p := s.OrigProb()
	if p == nil {
		return cip.ResultDidNotRun, nil
	}

	varName := func(v *cip.Var) string {
		if genericNames {
			return fmt.Sprintf("x%d", v.ProbIndex())
		}

		return v.Name()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "problem %s\n", p.Name())
	if s.Objsense() == cip.Maximize {
		b.WriteString("maximize\n")
	} else {
		b.WriteString("minimize\n")
	}
	for _, v := range p.Vars() {
		fmt.Fprintf(&b, "var %s %s %s %s %g\n",
			varName(v), varTypeName(v.Type()),
			formatValue(s, v.GlbLb()), formatValue(s, v.GlbUb()), v.Obj())
	}
	for _, c := range p.Conss() {
		d, ok := c.Data().(*linear.ConsData)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "cons %s %s %s", c.Name(), formatValue(s, d.Lhs()), formatValue(s, d.Rhs()))
		for i, v := range d.Vars() {
			fmt.Fprintf(&b, " %g %s", d.Vals()[i], varName(v))
		}
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return cip.ResultDidNotRun, err
	}

	return cip.ResultSuccess, nil
}

func parseVarType(s string) (cip.VarType, error) {
	switch s {
	case "binary":
		return cip.VarBinary, nil
	case "integer":
		return cip.VarInteger, nil
	case "implint":
		return cip.VarImplInt, nil
	case "continuous":
		return cip.VarContinuous, nil
	default:
		return 0, fmt.Errorf("unknown variable type %q", s)
	}
}

func varTypeName(t cip.VarType) string {
	switch t {
	case cip.VarBinary:
		return "binary"
	case cip.VarInteger:
		return "integer"
	case cip.VarImplInt:
		return "implint"
	default:
		return "continuous"
	}
}

func parseValue(s *cip.Solver, tok string) (float64, error) {
	switch tok {
	case "inf", "+inf":
		return s.Infinity(), nil
	case "-inf":
		return -s.Infinity(), nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", tok, err)
	}
	if math.IsInf(v, 1) {
		v = s.Infinity()
	}
	if math.IsInf(v, -1) {
		v = -s.Infinity()
	}

	return v, nil
}

func formatValue(s *cip.Solver, v float64) string {
	tol := s.Tolerances()
	switch {
	case tol.IsInfinity(v):
		return "+inf"
	case tol.IsNegInfinity(v):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
