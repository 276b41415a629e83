// Package params implements the typed, hierarchical configuration store of
// the solver.
//
// A parameter has a dot-path name ("limits/nodes" style paths use '/', the
// convention kept throughout), a type (Bool, Int, Long, Real, Char, String),
// a default, optional range constraints, an "advanced" flag, and an optional
// change callback that runs after the store has been updated.
//
// Contracts:
//   - Registering two parameters under one name fails with ErrDuplicate.
//   - Reading or writing an absent name fails with ErrUnknown.
//   - Accessing a parameter with the wrong typed accessor fails with
//     ErrWrongType.
//   - Setting a value outside its declared range fails with ErrOutOfRange
//     and leaves the stored value untouched.
//
// The whole set can be dumped to and reloaded from a flat "name = value"
// text file; writing emits parameters in registration order so files diff
// cleanly across runs.
package params
