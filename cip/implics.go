package cip

import (
	"fmt"
	"sort"
)

// Implic is one edge of the implication graph: fixing the owning binary
// variable to the stored value forces a bound on Var.
type Implic struct {
	Var   *Var
	BType BoundType
	Bound float64
}

// Clique is a set of binary literals of which at most one may be true. A
// literal is (var, value): value true means the variable itself, false its
// negation.
type Clique struct {
	id     int
	vars   []*Var
	values []bool
}

// ID returns the clique's creation id.
func (c *Clique) ID() int { return c.id }

// NVars returns the number of literals in the clique.
func (c *Clique) NVars() int { return len(c.vars) }

// Vars returns the clique members. The slice is shared; do not mutate.
func (c *Clique) Vars() []*Var { return c.vars }

// Values returns the member fixation values, parallel to Vars.
func (c *Clique) Values() []bool { return c.values }

// AddImplic records the implication (x = value) ⇒ (y ≤/≥ bound) on both
// binary endpoints' adjacency lists. An implication that contradicts an
// existing one on the same pair tightens instead of duplicating.
func (s *Solver) AddImplic(x *Var, value bool, y *Var, btype BoundType, bound float64) error {
	if err := s.checkStage("AddImplic", Stages(StageTransformed, StagePresolving, StagePresolved, StageSolving)); err != nil {
		return err
	}
	if x.vtype != VarBinary {
		return fmt.Errorf("%w: implication premise <%s> is not binary", ErrInvalidData, x.name)
	}
	side := 0
	if value {
		side = 1
	}
	list := x.implics[side]
	for i := range list {
		if list[i].Var == y && list[i].BType == btype {
			// Keep only the tighter of the two bounds.
			if btype == BoundLower && bound > list[i].Bound {
				x.implics[side][i].Bound = bound
			} else if btype == BoundUpper && bound < list[i].Bound {
				x.implics[side][i].Bound = bound
			}

			return nil
		}
	}
	x.implics[side] = append(x.implics[side], Implic{Var: y, BType: btype, Bound: bound})

	return s.publishEvent(&Event{Type: EventImplAdded, Var: x})
}

// NImplics returns the number of implications stored for x = value.
func (s *Solver) NImplics(x *Var, value bool) int {
	side := 0
	if value {
		side = 1
	}

	return len(x.implics[side])
}

// Implics returns the implications stored for x = value. The slice is
// shared; do not mutate.
func (s *Solver) Implics(x *Var, value bool) []Implic {
	side := 0
	if value {
		side = 1
	}

	return x.implics[side]
}

// AddClique stores an at-most-one constraint over binary literals and links
// it to every member. Cliques with fewer than two members are ignored.
func (s *Solver) AddClique(vars []*Var, values []bool) (*Clique, error) {
	if err := s.checkStage("AddClique", Stages(StageTransformed, StagePresolving, StagePresolved, StageSolving)); err != nil {
		return nil, err
	}
	if len(vars) != len(values) {
		return nil, fmt.Errorf("%w: clique with %d variables but %d values", ErrInvalidData, len(vars), len(values))
	}
	if len(vars) < 2 {
		return nil, nil
	}
	for _, v := range vars {
		if v.vtype != VarBinary {
			return nil, fmt.Errorf("%w: clique member <%s> is not binary", ErrInvalidData, v.name)
		}
	}
	cl := &Clique{
		id:     len(s.cliques),
		vars:   append([]*Var(nil), vars...),
		values: append([]bool(nil), values...),
	}
	for i, v := range cl.vars {
		side := 0
		if cl.values[i] {
			side = 1
		}
		v.cliques[side] = append(v.cliques[side], cl)
	}
	s.cliques = append(s.cliques, cl)

	return cl, nil
}

// NCliques returns the number of stored cliques.
func (s *Solver) NCliques() int { return len(s.cliques) }

// Cliques returns the clique table. The slice is shared; do not mutate.
func (s *Solver) Cliques() []*Clique { return s.cliques }

// cleanupCliques removes fixed and aggregated members from the table,
// drops empty and single-member cliques, and converts two-member cliques
// into plain implications.
func (s *Solver) cleanupCliques() error {
	keep := s.cliques[:0]
	for _, cl := range s.cliques {
		for i := 0; i < len(cl.vars); {
			v := cl.vars[i]
			if v.IsActive() && v.status != StatusNegated {
				i++

				continue
			}
			side := 0
			if cl.values[i] {
				side = 1
			}
			dropClique(v, side, cl)
			cl.vars = append(cl.vars[:i], cl.vars[i+1:]...)
			cl.values = append(cl.values[:i], cl.values[i+1:]...)
		}
		switch {
		case len(cl.vars) < 2:
			for i, v := range cl.vars {
				side := 0
				if cl.values[i] {
					side = 1
				}
				dropClique(v, side, cl)
			}
		case len(cl.vars) == 2:
			// (x=a) and (y=b) exclude each other: x=a forces y to the
			// opposite of b and vice versa.
			x, y := cl.vars[0], cl.vars[1]
			if err := addExclusion(s, x, cl.values[0], y, cl.values[1]); err != nil {
				return err
			}
			if err := addExclusion(s, y, cl.values[1], x, cl.values[0]); err != nil {
				return err
			}
			dropClique(x, sideOf(cl.values[0]), cl)
			dropClique(y, sideOf(cl.values[1]), cl)
		default:
			keep = append(keep, cl)
		}
	}
	for i := len(keep); i < len(s.cliques); i++ {
		s.cliques[i] = nil
	}
	s.cliques = keep
	for i, cl := range s.cliques {
		cl.id = i
	}

	return nil
}

// addExclusion records "x = xval forbids y = yval" as an implication
// fixing y to the opposite of yval.
func addExclusion(s *Solver, x *Var, xval bool, y *Var, yval bool) error {
	if yval {
		return s.AddImplic(x, xval, y, BoundUpper, 0)
	}

	return s.AddImplic(x, xval, y, BoundLower, 1)
}

func sideOf(value bool) int {
	if value {
		return 1
	}

	return 0
}

func dropClique(v *Var, side int, cl *Clique) {
	list := v.cliques[side]
	for i, c := range list {
		if c == cl {
			v.cliques[side] = append(list[:i], list[i+1:]...)

			return
		}
	}
}

// propagateImplications applies the implication graph and the clique table
// at the focus node: a binary fixed locally forces the bounds its
// implications name, and a satisfied clique literal forces every other
// member of the clique to false.
func (s *Solver) propagateImplications() (Result, error) {
	agg := ResultDidNotFind
	for _, x := range s.transprob.vars {
		if x.vtype != VarBinary {
			continue
		}
		var side int
		switch {
		case x.locLb > 0.5:
			side = 1
		case x.locUb < 0.5:
			side = 0
		default:
			continue
		}

		for _, im := range x.implics[side] {
			if !im.Var.IsActive() {
				continue
			}
			infeasible, tightened, err := s.tightenBound(im.Var, im.BType, im.Bound, bdchgPropInfer, nil, nil, 0)
			if err != nil {
				return agg, err
			}
			if infeasible {
				return ResultCutoff, nil
			}
			if tightened {
				agg = ResultReducedDom
			}
		}

		for _, cl := range x.cliques[side] {
			for i, m := range cl.vars {
				if m == x || !m.IsActive() {
					continue
				}
				btype, bound := BoundUpper, 0.0
				if !cl.values[i] {
					btype, bound = BoundLower, 1.0
				}
				infeasible, tightened, err := s.tightenBound(m, btype, bound, bdchgPropInfer, nil, nil, 0)
				if err != nil {
					return agg, err
				}
				if infeasible {
					return ResultCutoff, nil
				}
				if tightened {
					agg = ResultReducedDom
				}
			}
		}
	}

	return agg, nil
}

// sortImplics orders every adjacency list by implied-variable index so that
// propagation visits implications deterministically.
func (s *Solver) sortImplics() {
	for _, v := range s.transprob.vars {
		for side := 0; side < 2; side++ {
			list := v.implics[side]
			sort.SliceStable(list, func(i, j int) bool {
				if list[i].Var.index != list[j].Var.index {
					return list[i].Var.index < list[j].Var.index
				}

				return list[i].BType < list[j].BType
			})
		}
	}
}
