package cip

import "errors"

// Sentinel errors shared across the kernel. These are the §-"error kinds"
// a caller is expected to test with errors.Is; packages building on the
// kernel wrap them with context.
var (
	// ErrInvalidCall indicates an operation invoked in a stage outside its
	// declared stage set.
	ErrInvalidCall = errors.New("cip: method not callable in this stage")

	// ErrInvalidData indicates semantically broken input (crossing bounds,
	// non-integral bounds on an integer variable, mismatched slices).
	ErrInvalidData = errors.New("cip: invalid data")

	// ErrPluginNotFound indicates a lookup of an unregistered plugin.
	ErrPluginNotFound = errors.New("cip: plugin not found")

	// ErrDuplicatePlugin indicates a second registration under a used name.
	ErrDuplicatePlugin = errors.New("cip: duplicate plugin name")

	// ErrNoFile indicates a missing input file.
	ErrNoFile = errors.New("cip: file not found")

	// ErrParse indicates unparsable input.
	ErrParse = errors.New("cip: parse error")

	// ErrRead indicates a failed read operation.
	ErrRead = errors.New("cip: read error")

	// ErrWrite indicates a failed write operation.
	ErrWrite = errors.New("cip: write error")

	// ErrFileCreate indicates the output file could not be created.
	ErrFileCreate = errors.New("cip: cannot create file")

	// ErrLP indicates an error inside the LP backend. A node retries once
	// with a fresh basis before the error propagates.
	ErrLP = errors.New("cip: LP solve error")

	// ErrNoProblem indicates an operation that needs a problem before one
	// was created.
	ErrNoProblem = errors.New("cip: no problem exists")

	// ErrObjLimitRelax indicates an attempt to loosen the objective limit
	// after transformation.
	ErrObjLimitRelax = errors.New("cip: objective limit cannot be relaxed")

	// ErrInternal indicates a broken kernel invariant.
	ErrInternal = errors.New("cip: internal error")
)
