package linear

import (
	"fmt"

	"github.com/optimiq/gociap/cip"
)

// ConflictHdlr turns conflict sets over binary variables into linear
// no-good constraints: at least one of the conflicting bounds must be
// violated, which for binary literals reads Σ xᵢ + Σ (1−xⱼ) ≥ 1.
type ConflictHdlr struct {
	nCreated int
}

// NewConflictHdlr returns the linear conflict handler.
func NewConflictHdlr() *ConflictHdlr { return &ConflictHdlr{} }

// Name returns "linear-conflict".
func (ch *ConflictHdlr) Name() string { return "linear-conflict" }

// Priority orders conflict handlers.
func (ch *ConflictHdlr) Priority() int { return 100 }

// NCreated returns the number of conflict constraints produced.
func (ch *ConflictHdlr) NCreated() int { return ch.nCreated }

// Exec builds the no-good constraint. Conflict sets containing a
// non-binary member are skipped.
func (ch *ConflictHdlr) Exec(s *cip.Solver, node *cip.Node, validdepth int, bounds []cip.ConflictBound) (cip.Result, error) {
	if len(bounds) == 0 {
		return cip.ResultDidNotFind, nil
	}

	vars := make([]*cip.Var, 0, len(bounds))
	vals := make([]float64, 0, len(bounds))
	lhs := 1.0
	for _, cb := range bounds {
		if cb.Var.Type() != cip.VarBinary {
			return cip.ResultDidNotFind, nil
		}
		if cb.BType == cip.BoundUpper {
			// Conflict contains x ≤ 0, so the escape literal is x = 1.
			vars = append(vars, cb.Var)
			vals = append(vals, 1)
		} else {
			// Conflict contains x ≥ 1; escape literal is x = 0, i.e. 1−x.
			vars = append(vars, cb.Var)
			vals = append(vals, -1)
			lhs--
		}
	}

	ch.nCreated++
	name := fmt.Sprintf("conflict_%d", ch.nCreated)
	c, err := NewConsFlags(s, name, vars, vals, lhs, s.Infinity(), cip.ConsFlags{
		Separate:  true,
		Enforce:   true,
		Check:     true,
		Propagate: true,
		Local:     validdepth > 0,
		Dynamic:   true,
		Removable: true,
	})
	if err != nil {
		return cip.ResultDidNotFind, err
	}

	if validdepth <= 0 {
		if err := s.AddCons(c); err != nil {
			return cip.ResultDidNotFind, err
		}
	} else {
		if err := s.AddConsNode(node, c); err != nil {
			return cip.ResultDidNotFind, err
		}
	}

	return cip.ResultConsAdded, nil
}
