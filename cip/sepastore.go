package cip

import (
	"fmt"
	"sort"
)

// sepaStore buffers the cuts found in one separation round. Cuts below the
// efficacy threshold are rejected at add time; applyCuts moves the best
// survivors into the LP ordered by decreasing efficacy.
type sepaStore struct {
	cuts   []*Row
	effs   []float64
	forced []bool
}

// AddCut offers a separated row to the cut store. The cut's efficacy is
// its violation under the current LP solution scaled by the coefficient
// norm selected through the separating/efficacynorm parameter; cuts below
// separating/minefficacy are dropped unless forced.
func (s *Solver) AddCut(r *Row, force bool) error {
	if err := s.checkStage("AddCut", stagesSolvingOnly); err != nil {
		return err
	}
	if r.lppos >= 0 {
		return fmt.Errorf("%w: cut <%s> is already in the LP", ErrInvalidData, r.name)
	}
	eff := s.cutEfficacy(r)
	if !force && eff < s.sepaMinEfficacy() {
		return nil
	}
	s.sepastore.cuts = append(s.sepastore.cuts, r)
	s.sepastore.effs = append(s.sepastore.effs, eff)
	s.sepastore.forced = append(s.sepastore.forced, force)

	return nil
}

// NCutsStored returns the number of cuts waiting in the store.
func (s *Solver) NCutsStored() int { return len(s.sepastore.cuts) }

// cutEfficacy is the negative feasibility of the row under the current LP
// solution divided by the configured norm.
func (s *Solver) cutEfficacy(r *Row) float64 {
	feas := r.Feasibility(s, s.VarLPVal)
	norm := r.norm(s.sepaNormKind())
	if norm <= 0 {
		norm = 1
	}

	return -feas / norm
}

func (s *Solver) sepaMinEfficacy() float64 {
	v, err := s.params.GetReal("separating/minefficacy")
	if err != nil {
		return 1e-4
	}

	return v
}

func (s *Solver) sepaNormKind() byte {
	v, err := s.params.GetChar("separating/efficacynorm")
	if err != nil {
		return 'e'
	}

	return byte(v)
}

// applyCuts enters the stored cuts into the LP, best efficacy first, up to
// separating/maxcutsroot at the root and separating/maxcuts elsewhere.
// Forced cuts always enter. Returns the number of cuts applied.
func (s *Solver) applyCuts() (int, error) {
	st := &s.sepastore
	if len(st.cuts) == 0 {
		return 0, nil
	}
	maxcuts := s.intParamOr("separating/maxcuts", 100)
	if s.tree.focus != nil && s.tree.focus.depth == 0 {
		maxcuts = s.intParamOr("separating/maxcutsroot", 2000)
	}

	order := make([]int, len(st.cuts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if st.forced[ia] != st.forced[ib] {
			return st.forced[ia]
		}

		return st.effs[ia] > st.effs[ib]
	})

	applied := 0
	for _, i := range order {
		if !st.forced[i] && applied >= maxcuts {
			continue
		}
		if err := s.lp.addRow(st.cuts[i]); err != nil {
			return applied, err
		}
		applied++
		s.stat.NCutsApplied++
	}
	st.cuts = st.cuts[:0]
	st.effs = st.effs[:0]
	st.forced = st.forced[:0]

	return applied, nil
}

// clearCuts discards the stored cuts without applying them.
func (s *Solver) clearCuts() {
	st := &s.sepastore
	st.cuts = st.cuts[:0]
	st.effs = st.effs[:0]
	st.forced = st.forced[:0]
}

func (s *Solver) intParamOr(name string, def int) int {
	v, err := s.params.GetInt(name)
	if err != nil {
		return def
	}

	return v
}

func (s *Solver) realParamOr(name string, def float64) float64 {
	v, err := s.params.GetReal(name)
	if err != nil {
		return def
	}

	return v
}

func (s *Solver) boolParamOr(name string, def bool) bool {
	v, err := s.params.GetBool(name)
	if err != nil {
		return def
	}

	return v
}

func (s *Solver) longParamOr(name string, def int64) int64 {
	v, err := s.params.GetLong(name)
	if err != nil {
		return def
	}

	return v
}
