package anntree

import "errors"

// ErrCapacityInvariant represents a broken tree invariant detected during a
// split: an internal-node arity mismatch. Treated as a bug, not a
// recoverable condition.
var ErrCapacityInvariant = errors.New("anntree: capacity invariant violated")

// ErrNodeNotFound is returned when a block id does not resolve to a node.
var ErrNodeNotFound = errors.New("anntree: node not found")
