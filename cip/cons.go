package cip

import "fmt"

// ConsFlags steer where a constraint takes part in the solving process.
type ConsFlags struct {
	// Initial constraints contribute rows to the first LP of a node.
	Initial bool
	// Separate enables the handler's separation callback for it.
	Separate bool
	// Enforce enables enforcement of LP/pseudo solutions.
	Enforce bool
	// Check enables feasibility checking of candidate solutions.
	Check bool
	// Propagate enables domain propagation.
	Propagate bool
	// Local constraints are valid only in their subtree.
	Local bool
	// Modifiable constraints may change during solving (column generation).
	Modifiable bool
	// Dynamic constraints are subject to aging and removal.
	Dynamic bool
	// Removable cut-like constraints may be cleaned from the LP.
	Removable bool
	// StickingAtNode pins the constraint to the node it was added at.
	StickingAtNode bool
}

// Cons is one constraint: a name, the handler owning its semantics, and a
// handler-private payload.
type Cons struct {
	name  string
	hdlr  Conshdlr
	data  any
	flags ConsFlags

	nlocksPos, nlocksNeg int
	age                  float64
	validdepth           int
	addedAt              *Node // nil: global problem
	active               bool
	enabled              bool
	original             bool
	deleted              bool
	nuses                int

	transcons *Cons // original → transformed
	orgcons   *Cons // transformed → original

	probindex int
}

// Name returns the constraint name.
func (c *Cons) Name() string { return c.name }

// Hdlr returns the owning constraint handler.
func (c *Cons) Hdlr() Conshdlr { return c.hdlr }

// Data returns the handler-private payload.
func (c *Cons) Data() any { return c.data }

// SetData replaces the handler-private payload.
func (c *Cons) SetData(d any) { c.data = d }

// Flags returns the constraint flags.
func (c *Cons) Flags() ConsFlags { return c.flags }

// IsOriginal reports whether the constraint belongs to the original problem.
func (c *Cons) IsOriginal() bool { return c.original }

// IsActive reports whether the constraint is currently active.
func (c *Cons) IsActive() bool { return c.active }

// IsEnabled reports whether propagation/separation currently consider it.
func (c *Cons) IsEnabled() bool { return c.active && c.enabled }

// IsDeleted reports whether the constraint is marked for removal.
func (c *Cons) IsDeleted() bool { return c.deleted }

// Age returns the constraint's age counter.
func (c *Cons) Age() float64 { return c.age }

// IncAge ages the constraint (called when it was useless at a node).
func (c *Cons) IncAge() { c.age++ }

// ResetAge resets the age counter (called when the constraint was useful).
func (c *Cons) ResetAge() { c.age = 0 }

// ValidDepth returns the depth from which on the constraint is valid.
func (c *Cons) ValidDepth() int { return c.validdepth }

// SetValidDepth tags the constraint's validity depth once; re-tagging to a
// different depth fails.
func (c *Cons) SetValidDepth(depth int) error {
	if c.validdepth != 0 && c.validdepth != depth {
		return fmt.Errorf("%w: constraint <%s> already valid at depth %d", ErrInvalidCall, c.name, c.validdepth)
	}
	c.validdepth = depth

	return nil
}

// TransCons returns the transformed counterpart of an original constraint.
func (c *Cons) TransCons() *Cons { return c.transcons }

// Capture increments the use count.
func (c *Cons) Capture() *Cons {
	c.nuses++

	return c
}

// Release decrements the use count; the last release of an original
// constraint with a live transformed counterpart fails.
func (c *Cons) Release() error {
	if c.nuses <= 0 {
		return fmt.Errorf("%w: release of unused constraint <%s>", ErrInvalidData, c.name)
	}
	if c.nuses == 1 && c.original && c.transcons != nil {
		return fmt.Errorf("%w: original constraint <%s> still referenced by transformed problem", ErrInvalidCall, c.name)
	}
	c.nuses--

	return nil
}

// addLocks applies the constraint's rounding locks via the handler.
func (c *Cons) addLocks(s *Solver, nlockspos, nlocksneg int) error {
	c.nlocksPos += nlockspos
	c.nlocksNeg += nlocksneg

	return c.hdlr.Lock(s, c, nlockspos, nlocksneg)
}

// NewCons creates a constraint owned by handler hdlr with payload data.
// The constraint starts with one reference held by the caller.
func (s *Solver) NewCons(name string, hdlr Conshdlr, data any, flags ConsFlags) (*Cons, error) {
	if hdlr == nil {
		return nil, fmt.Errorf("%w: constraint <%s> without handler", ErrInvalidData, name)
	}

	return &Cons{
		name:      name,
		hdlr:      hdlr,
		data:      data,
		flags:     flags,
		original:  s.stage == StageProblem || s.stage == StageInit,
		nuses:     1,
		probindex: -1,
		enabled:   true,
	}, nil
}
