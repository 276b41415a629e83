package cip

import "fmt"

// PresolStats accumulates the reductions of the presolving loop. Plugins
// increment the counters for every reduction they perform; the round
// scheduler reads the deltas to decide whether another round pays off.
type PresolStats struct {
	NFixedVars   int
	NAggrVars    int
	NChgVarTypes int
	NChgBds      int
	NAddHoles    int
	NDelConss    int
	NAddConss    int
	NUpgdConss   int
	NChgCoefs    int
	NChgSides    int
}

// progressed reports whether one round's reductions justify another round.
// Each reduction class is measured against its own share of the problem:
// variable reductions against the variable count, constraint reductions
// against the constraint count, and the cheap coefficient and side changes
// against ten times the constraint count.
func (p PresolStats) progressed(abortfac float64, nvars, nconss int) bool {
	nv := abortfac * float64(nvars)
	nc := abortfac * float64(nconss)
	switch {
	case float64(p.NFixedVars+p.NAggrVars) > nv:
	case float64(p.NChgVarTypes+p.NChgBds+p.NAddHoles) > nv:
	case float64(p.NDelConss+p.NAddConss+p.NUpgdConss) > nc:
	case float64(p.NChgCoefs) > 10*nc:
	case float64(p.NChgSides) > 10*nc:
	default:
		return false
	}

	return true
}

func (p *PresolStats) sub(q PresolStats) PresolStats {
	return PresolStats{
		NFixedVars:   p.NFixedVars - q.NFixedVars,
		NAggrVars:    p.NAggrVars - q.NAggrVars,
		NChgVarTypes: p.NChgVarTypes - q.NChgVarTypes,
		NChgBds:      p.NChgBds - q.NChgBds,
		NAddHoles:    p.NAddHoles - q.NAddHoles,
		NDelConss:    p.NDelConss - q.NDelConss,
		NAddConss:    p.NAddConss - q.NAddConss,
		NUpgdConss:   p.NUpgdConss - q.NUpgdConss,
		NChgCoefs:    p.NChgCoefs - q.NChgCoefs,
		NChgSides:    p.NChgSides - q.NChgSides,
	}
}

// presolveOutcome is the aggregated result of the presolving loop.
type presolveOutcome uint8

const (
	presolveReduced presolveOutcome = iota
	presolveCutoff
	presolveUnbounded
)

// presolve runs the presolving loop: rounds of presolver and constraint
// handler reductions, repeated while any reduction class clears its
// presolving/abortfac share of the problem, capped by
// presolving/maxrounds.
func (s *Solver) presolve() (presolveOutcome, error) {
	if err := s.setStage(StagePresolving); err != nil {
		return presolveReduced, err
	}

	for _, p := range s.reg.presolvers {
		if ip, ok := p.(InitPresolver); ok {
			if err := ip.InitPre(s); err != nil {
				return presolveReduced, err
			}
		}
	}
	for _, h := range s.reg.conshdlrs {
		if ip, ok := h.(InitPresolver); ok {
			if err := ip.InitPre(s); err != nil {
				return presolveReduced, err
			}
		}
	}

	maxrounds := s.intParamOr("presolving/maxrounds", -1)
	abortfac := s.realParamOr("presolving/abortfac", 8e-4)

	outcome := presolveReduced
	var total PresolStats
	round := 0
	var delayedOnly map[string]bool

rounds:
	for {
		if maxrounds >= 0 && round >= maxrounds {
			break
		}
		round++
		s.stat.NPresolRounds = round
		before := total
		nvars, nconss := s.transprob.NVars(), s.transprob.NConss()

		res, delayed, err := s.presolveRound(round, &total, delayedOnly)
		if err != nil {
			return presolveReduced, err
		}
		switch res {
		case ResultCutoff:
			outcome = presolveCutoff

			break rounds
		case ResultUnbounded:
			outcome = presolveUnbounded

			break rounds
		}
		if err := s.transprob.flushDeletions(s); err != nil {
			return presolveReduced, err
		}
		s.flattenAggregations()
		if err := s.cleanupCliques(); err != nil {
			return presolveReduced, err
		}
		if err := s.publishEvent(&Event{Type: EventPresolveRound}); err != nil {
			return presolveReduced, err
		}
		if err := s.processEvents(); err != nil {
			return presolveReduced, err
		}

		delta := total.sub(before)
		s.log.Debug().Int("round", round).
			Int("fixed", delta.NFixedVars).Int("aggregated", delta.NAggrVars).
			Int("chgbds", delta.NChgBds).Int("delconss", delta.NDelConss).
			Msg("presolving round finished")
		if delta.progressed(abortfac, nvars, nconss) {
			delayedOnly = nil

			continue
		}
		if delayedOnly == nil && res == ResultDelayed && len(delayed) > 0 {
			// Give the delayed plugins one round of their own before
			// stopping.
			delayedOnly = delayed

			continue
		}

		break
	}
	s.stat.Presol = total
	s.sortImplics()

	for _, h := range s.reg.conshdlrs {
		if ep, ok := h.(ExitPresolver); ok {
			if err := ep.ExitPre(s); err != nil {
				return outcome, err
			}
		}
	}
	for _, p := range s.reg.presolvers {
		if ep, ok := p.(ExitPresolver); ok {
			if err := ep.ExitPre(s); err != nil {
				return outcome, err
			}
		}
	}
	if outcome == presolveReduced {
		if err := s.setStage(StagePresolved); err != nil {
			return outcome, err
		}
	}

	return outcome, nil
}

// presolveRound runs one pass: presolvers with nonnegative priority, the
// constraint handlers' presolve callbacks, then the negative-priority
// presolvers. The presolver list is re-sorted by priority each round. A
// non-nil only set restricts the pass to the plugins it names, keyed as
// recorded in the returned delayed set.
func (s *Solver) presolveRound(round int, total *PresolStats, only map[string]bool) (Result, map[string]bool, error) {
	aggregate := ResultDidNotFind
	delayed := make(map[string]bool)

	runList := func(negative bool) (Result, error) {
		for _, p := range s.presolversByPriority() {
			if (p.Priority() < 0) != negative {
				continue
			}
			if p.MaxRounds() >= 0 && round > p.MaxRounds() {
				continue
			}
			key := "presol/" + p.Name()
			if only != nil && !only[key] {
				continue
			}
			res, err := p.Presol(s, round, total)
			if err != nil {
				return res, fmt.Errorf("presolver <%s>: %w", p.Name(), err)
			}
			switch res {
			case ResultCutoff, ResultUnbounded:
				return res, nil
			case ResultSuccess:
				aggregate = ResultSuccess
			case ResultDelayed:
				delayed[key] = true
				if aggregate != ResultSuccess {
					aggregate = ResultDelayed
				}
			case ResultDidNotRun, ResultDidNotFind:
			default:
				return res, fmt.Errorf("%w: presolver <%s> returned %s", ErrInvalidData, p.Name(), res)
			}
			if s.isStopped() {
				return aggregate, nil
			}
		}

		return ResultDidNotFind, nil
	}

	if res, err := runList(false); err != nil || res == ResultCutoff || res == ResultUnbounded {
		return res, delayed, err
	}

	for _, h := range s.reg.conshdlrs {
		cp, ok := h.(ConsPresolver)
		if !ok {
			continue
		}
		key := "cons/" + h.Name()
		if only != nil && !only[key] {
			continue
		}
		conss := s.transprob.consOfHdlr(h, false)
		res, err := cp.Presol(s, conss, round, total)
		if err != nil {
			return res, delayed, fmt.Errorf("conshdlr <%s>: %w", h.Name(), err)
		}
		switch res {
		case ResultCutoff, ResultUnbounded:
			return res, delayed, nil
		case ResultSuccess:
			aggregate = ResultSuccess
		case ResultDelayed:
			delayed[key] = true
			if aggregate != ResultSuccess {
				aggregate = ResultDelayed
			}
		case ResultDidNotRun, ResultDidNotFind:
		default:
			return res, delayed, fmt.Errorf("%w: conshdlr <%s> returned %s from Presol", ErrInvalidData, h.Name(), res)
		}
		if s.isStopped() {
			return aggregate, delayed, nil
		}
	}

	if res, err := runList(true); err != nil || res == ResultCutoff || res == ResultUnbounded {
		return res, delayed, err
	}

	return aggregate, delayed, nil
}
