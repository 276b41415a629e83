package cip

import (
	"fmt"
	"sort"
)

// registry holds the named, priority-ordered plugin collections. Insertion
// is only legal before transformation; all orderings are stable across
// priority ties, so insertion order is the deterministic tie-break.
type registry struct {
	conshdlrs     []Conshdlr
	presolvers    []Presolver
	propagators   []Propagator
	separators    []Separator
	pricers       []Pricer
	activePricers []Pricer
	heurs         []Heur
	branchrules   []Branchrule
	nodesels      []Nodesel
	conflicthdlrs []Conflicthdlr
	relaxators    []Relaxator
	eventhdlrs    []Eventhdlr
	readers       []Reader
	dispcols      []DispColumn

	names map[string]string // plugin name → kind, for duplicate detection
}

func newRegistry() *registry {
	return &registry{names: make(map[string]string)}
}

func (r *registry) claim(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty %s name", ErrInvalidData, kind)
	}
	if have, ok := r.names[name]; ok {
		return fmt.Errorf("%w: <%s> already registered as %s", ErrDuplicatePlugin, name, have)
	}
	r.names[name] = kind

	return nil
}

// checkInclude guards every Include* method: plugins join before
// transformation only.
func (s *Solver) checkInclude(kind, name string) error {
	if err := s.checkStage("Include"+kind, stagesBeforeTrans); err != nil {
		return err
	}

	return s.reg.claim(kind, name)
}

// IncludeConshdlr registers a constraint handler.
func (s *Solver) IncludeConshdlr(h Conshdlr) error {
	if err := s.checkInclude("Conshdlr", h.Name()); err != nil {
		return err
	}
	s.reg.conshdlrs = append(s.reg.conshdlrs, h)

	return nil
}

// IncludePresol registers a presolver.
func (s *Solver) IncludePresol(p Presolver) error {
	if err := s.checkInclude("Presol", p.Name()); err != nil {
		return err
	}
	s.reg.presolvers = append(s.reg.presolvers, p)

	return nil
}

// IncludeProp registers a propagator.
func (s *Solver) IncludeProp(p Propagator) error {
	if err := s.checkInclude("Prop", p.Name()); err != nil {
		return err
	}
	s.reg.propagators = append(s.reg.propagators, p)
	sortByPriority(s.reg.propagators, func(x Propagator) int { return x.Priority() })

	return nil
}

// IncludeSepa registers a separator.
func (s *Solver) IncludeSepa(p Separator) error {
	if err := s.checkInclude("Sepa", p.Name()); err != nil {
		return err
	}
	s.reg.separators = append(s.reg.separators, p)
	sortByPriority(s.reg.separators, func(x Separator) int { return x.Priority() })

	return nil
}

// IncludePricer registers a pricer; it stays inactive until
// ActivatePricer is called for the problem at hand.
func (s *Solver) IncludePricer(p Pricer) error {
	if err := s.checkInclude("Pricer", p.Name()); err != nil {
		return err
	}
	s.reg.pricers = append(s.reg.pricers, p)

	return nil
}

// ActivatePricer marks a registered pricer active for the current problem.
func (s *Solver) ActivatePricer(name string) error {
	if err := s.checkStage("ActivatePricer", stagesProblemOnly); err != nil {
		return err
	}
	for _, p := range s.reg.pricers {
		if p.Name() != name {
			continue
		}
		for _, a := range s.reg.activePricers {
			if a.Name() == name {
				return nil // already active
			}
		}
		s.reg.activePricers = append(s.reg.activePricers, p)
		sortByPriority(s.reg.activePricers, func(x Pricer) int { return x.Priority() })

		return nil
	}

	return fmt.Errorf("%w: pricer <%s>", ErrPluginNotFound, name)
}

// IncludeHeur registers a primal heuristic.
func (s *Solver) IncludeHeur(h Heur) error {
	if err := s.checkInclude("Heur", h.Name()); err != nil {
		return err
	}
	s.reg.heurs = append(s.reg.heurs, h)
	sortByPriority(s.reg.heurs, func(x Heur) int { return x.Priority() })

	return nil
}

// IncludeBranchrule registers a branching rule.
func (s *Solver) IncludeBranchrule(b Branchrule) error {
	if err := s.checkInclude("Branchrule", b.Name()); err != nil {
		return err
	}
	s.reg.branchrules = append(s.reg.branchrules, b)
	sortByPriority(s.reg.branchrules, func(x Branchrule) int { return x.Priority() })

	return nil
}

// IncludeNodesel registers a node selector.
func (s *Solver) IncludeNodesel(n Nodesel) error {
	if err := s.checkInclude("Nodesel", n.Name()); err != nil {
		return err
	}
	s.reg.nodesels = append(s.reg.nodesels, n)

	return nil
}

// IncludeConflicthdlr registers a conflict handler.
func (s *Solver) IncludeConflicthdlr(c Conflicthdlr) error {
	if err := s.checkInclude("Conflicthdlr", c.Name()); err != nil {
		return err
	}
	s.reg.conflicthdlrs = append(s.reg.conflicthdlrs, c)
	sortByPriority(s.reg.conflicthdlrs, func(x Conflicthdlr) int { return x.Priority() })

	return nil
}

// IncludeRelax registers a relaxator.
func (s *Solver) IncludeRelax(rx Relaxator) error {
	if err := s.checkInclude("Relax", rx.Name()); err != nil {
		return err
	}
	s.reg.relaxators = append(s.reg.relaxators, rx)
	sortByPriority(s.reg.relaxators, func(x Relaxator) int { return x.Priority() })

	return nil
}

// IncludeEventhdlr registers an event handler (subscription is separate;
// see CatchEvent).
func (s *Solver) IncludeEventhdlr(e Eventhdlr) error {
	if err := s.checkInclude("Eventhdlr", e.Name()); err != nil {
		return err
	}
	s.reg.eventhdlrs = append(s.reg.eventhdlrs, e)

	return nil
}

// IncludeReader registers a file reader/writer.
func (s *Solver) IncludeReader(r Reader) error {
	if err := s.checkInclude("Reader", r.Name()); err != nil {
		return err
	}
	s.reg.readers = append(s.reg.readers, r)

	return nil
}

// IncludeDisp registers a display column.
func (s *Solver) IncludeDisp(dc DispColumn) error {
	if err := s.checkInclude("Disp", dc.Name()); err != nil {
		return err
	}
	s.reg.dispcols = append(s.reg.dispcols, dc)
	sort.SliceStable(s.reg.dispcols, func(i, j int) bool {
		return s.reg.dispcols[i].Position() < s.reg.dispcols[j].Position()
	})

	return nil
}

// FindConshdlr returns the registered constraint handler of that name.
func (s *Solver) FindConshdlr(name string) (Conshdlr, error) {
	for _, h := range s.reg.conshdlrs {
		if h.Name() == name {
			return h, nil
		}
	}

	return nil, fmt.Errorf("%w: constraint handler <%s>", ErrPluginNotFound, name)
}

// FindNodesel returns the registered node selector of that name.
func (s *Solver) FindNodesel(name string) (Nodesel, error) {
	for _, n := range s.reg.nodesels {
		if n.Name() == name {
			return n, nil
		}
	}

	return nil, fmt.Errorf("%w: node selector <%s>", ErrPluginNotFound, name)
}

// activeNodesel returns the highest-priority node selector for the current
// memory mode; nil without any registered selector.
func (s *Solver) activeNodesel() Nodesel {
	var best Nodesel
	for _, n := range s.reg.nodesels {
		if best == nil || s.nodeselPrio(n) > s.nodeselPrio(best) {
			best = n
		}
	}

	return best
}

func (s *Solver) nodeselPrio(n Nodesel) int {
	if s.memSaveMode {
		return n.MemSavePriority()
	}

	return n.StdPriority()
}

// conshdlrsByEnfo returns the handlers in enforcement priority order.
func (s *Solver) conshdlrsByEnfo() []Conshdlr {
	out := append([]Conshdlr(nil), s.reg.conshdlrs...)
	sortByPriority(out, func(h Conshdlr) int { return h.EnfoPriority() })

	return out
}

// conshdlrsByCheck returns the handlers in check priority order.
func (s *Solver) conshdlrsByCheck() []Conshdlr {
	out := append([]Conshdlr(nil), s.reg.conshdlrs...)
	sortByPriority(out, func(h Conshdlr) int { return h.CheckPriority() })

	return out
}

// conshdlrsBySepa returns the handlers in separation priority order.
func (s *Solver) conshdlrsBySepa() []Conshdlr {
	out := append([]Conshdlr(nil), s.reg.conshdlrs...)
	sortByPriority(out, func(h Conshdlr) int { return h.SepaPriority() })

	return out
}

// presolversByPriority returns the presolvers in priority order.
func (s *Solver) presolversByPriority() []Presolver {
	out := append([]Presolver(nil), s.reg.presolvers...)
	sortByPriority(out, func(p Presolver) int { return p.Priority() })

	return out
}

// propagatorsByPriority returns the propagators in priority order.
func (s *Solver) propagatorsByPriority() []Propagator {
	out := append([]Propagator(nil), s.reg.propagators...)
	sortByPriority(out, func(p Propagator) int { return p.Priority() })

	return out
}

// separatorsByPriority returns the separators in priority order.
func (s *Solver) separatorsByPriority() []Separator {
	out := append([]Separator(nil), s.reg.separators...)
	sortByPriority(out, func(p Separator) int { return p.Priority() })

	return out
}

// branchruleApplies gates a branching rule by its depth window and bound
// distance; maxbounddist is the node's relative distance to the best bound.
func (s *Solver) branchruleApplies(b Branchrule, depth int, bounddist float64) bool {
	if b.MaxDepth() >= 0 && depth > b.MaxDepth() {
		return false
	}

	return bounddist <= b.MaxBoundDist()+s.tol.Epsilon()
}

// sortByPriority stable-sorts descending by the priority key.
func sortByPriority[T any](items []T, prio func(T) int) {
	sort.SliceStable(items, func(i, j int) bool { return prio(items[i]) > prio(items[j]) })
}
