package cip

import "fmt"

// EventType is a bitmask of observable solver events; subscriptions combine
// the bits they care about.
type EventType uint32

const (
	// EventVarAdded fires when a variable joins the transformed problem.
	EventVarAdded EventType = 1 << iota
	// EventVarDeleted fires when a variable leaves the transformed problem.
	EventVarDeleted
	// EventVarFixed fires when a variable is fixed or aggregated away.
	EventVarFixed
	// EventTypeChanged fires on a variable type change.
	EventTypeChanged
	// EventObjChanged fires on an objective coefficient change.
	EventObjChanged
	// EventGlbLbChanged fires on a global lower bound change.
	EventGlbLbChanged
	// EventGlbUbChanged fires on a global upper bound change.
	EventGlbUbChanged
	// EventLocLbTightened fires on a local lower bound tightening.
	EventLocLbTightened
	// EventLocLbRelaxed fires when a local lower bound is undone.
	EventLocLbRelaxed
	// EventLocUbTightened fires on a local upper bound tightening.
	EventLocUbTightened
	// EventLocUbRelaxed fires when a local upper bound is undone.
	EventLocUbRelaxed
	// EventImplAdded fires when an implication joins the graph.
	EventImplAdded
	// EventHoleAdded fires when a domain hole is added.
	EventHoleAdded
	// EventLPSolved fires after each LP solve at the focus node.
	EventLPSolved
	// EventFirstLPSolved fires after the first LP solve of a node.
	EventFirstLPSolved
	// EventNodeFocused fires when a node becomes the focus.
	EventNodeFocused
	// EventNodeBranched fires when the focus node was split.
	EventNodeBranched
	// EventNodeFeasible fires when the focus node yielded a solution.
	EventNodeFeasible
	// EventNodeInfeasible fires when the focus node was pruned.
	EventNodeInfeasible
	// EventBestSolFound fires when the incumbent improves.
	EventBestSolFound
	// EventSolFound fires for every stored solution.
	EventSolFound
	// EventPresolveRound fires after each presolving round.
	EventPresolveRound
	// EventUser is free for user-defined payloads.
	EventUser
)

// Masks combining related event bits.
const (
	// EventLbChanged covers local lower bound moves in both directions.
	EventLbChanged = EventLocLbTightened | EventLocLbRelaxed
	// EventUbChanged covers local upper bound moves in both directions.
	EventUbChanged = EventLocUbTightened | EventLocUbRelaxed
	// EventBoundTightened covers local tightenings of either bound.
	EventBoundTightened = EventLocLbTightened | EventLocUbTightened
	// EventVarEvent covers everything attached to a single variable.
	EventVarEvent = EventVarAdded | EventVarDeleted | EventVarFixed |
		EventTypeChanged | EventObjChanged | EventGlbLbChanged | EventGlbUbChanged |
		EventLbChanged | EventUbChanged | EventImplAdded | EventHoleAdded
)

// Event is one observation; only the fields matching Type are set.
type Event struct {
	Type EventType

	Var      *Var
	BType    BoundType
	OldBound float64
	NewBound float64

	Node *Node
	Sol  *Sol

	Data any // user payload for EventUser
}

// filterEntry is one subscription; dropped entries leave a nil hole so
// positions stay stable, exactly mirroring the position handed out on
// subscribe.
type filterEntry struct {
	mask EventType
	hdlr Eventhdlr
	data any
}

// eventFilter dispatches events to subscriptions by type mask.
type eventFilter struct {
	entries []*filterEntry
}

// eventQueue buffers non-variable events for in-order delivery between
// solver phases; variable-bound events bypass it and deliver synchronously
// with the modification.
type eventQueue struct {
	pending []*Event
	delayed bool
}

// CatchEvent subscribes hdlr to all events matching mask and returns the
// filter position to use for DropEvent.
func (s *Solver) CatchEvent(mask EventType, hdlr Eventhdlr, data any) (int, error) {
	if err := s.checkStage("CatchEvent", stagesWithTransProb); err != nil {
		return -1, err
	}
	if hdlr == nil {
		return -1, fmt.Errorf("%w: nil event handler", ErrInvalidData)
	}
	e := &filterEntry{mask: mask, hdlr: hdlr, data: data}
	// Reuse the first hole to keep the filter dense under churn.
	for i, old := range s.evfilter.entries {
		if old == nil {
			s.evfilter.entries[i] = e

			return i, nil
		}
	}
	s.evfilter.entries = append(s.evfilter.entries, e)

	return len(s.evfilter.entries) - 1, nil
}

// DropEvent cancels the subscription at the given filter position.
func (s *Solver) DropEvent(pos int) error {
	if pos < 0 || pos >= len(s.evfilter.entries) || s.evfilter.entries[pos] == nil {
		return fmt.Errorf("%w: no event subscription at position %d", ErrInvalidData, pos)
	}
	s.evfilter.entries[pos] = nil

	return nil
}

// publishEvent routes ev: variable events deliver immediately, everything
// else queues until the next processEvents drain point.
func (s *Solver) publishEvent(ev *Event) error {
	if ev.Type&EventVarEvent != 0 {
		return s.deliverEvent(ev)
	}
	s.evqueue.pending = append(s.evqueue.pending, ev)

	return nil
}

// deliverEvent hands ev to every matching subscription in filter order.
func (s *Solver) deliverEvent(ev *Event) error {
	for _, e := range s.evfilter.entries {
		if e == nil || e.mask&ev.Type == 0 {
			continue
		}
		if err := e.hdlr.Exec(s, ev, e.data); err != nil {
			return err
		}
	}

	return nil
}

// processEvents drains the queue in enqueue order. Called between solver
// phases (after propagation, after LP solves, after node switches).
func (s *Solver) processEvents() error {
	for len(s.evqueue.pending) > 0 {
		ev := s.evqueue.pending[0]
		s.evqueue.pending = s.evqueue.pending[1:]
		if err := s.deliverEvent(ev); err != nil {
			return err
		}
	}

	return nil
}
