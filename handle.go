package framegraph

import "math"

// InvalidRef is the sentinel value for an unresolved reference.
// Both [ResourceRef] and [NodeRef] use it as their invalid marker.
const InvalidRef = math.MaxUint32

// ResourceRef is an index into the builder's resource pool.
// Identity is purely positional; resources are never moved, only replaced
// in place by index. The zero value refers to the first resource created.
type ResourceRef uint32

// InvalidResource returns the sentinel reference for "no resource".
func InvalidResource() ResourceRef { return ResourceRef(InvalidRef) }

// IsValid returns true if the reference is valid (not InvalidRef).
func (r ResourceRef) IsValid() bool { return uint32(r) != InvalidRef }

// NodeRef is an index into the builder's node pool.
// Node identity is stable across recompiles: compiling reorders the
// execution list, never the pool.
type NodeRef uint32

// InvalidNode returns the sentinel reference for "no node".
func InvalidNode() NodeRef { return NodeRef(InvalidRef) }

// IsValid returns true if the reference is valid (not InvalidRef).
func (r NodeRef) IsValid() bool { return uint32(r) != InvalidRef }
