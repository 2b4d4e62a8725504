// Package typegraph holds the arena of inferred types.
//
// Types never point at each other. They hold TypeRefs: generation-stamped
// indices into the Graph that produced them. A Builder constructs one
// generation, hands out forward references for recursive types and seals
// into an immutable Graph. Rewrites build the next generation from the
// previous one; a reference from another generation is a consistency
// violation and panics.
//
// Key invariants:
//   - a forward reference is resolved exactly once
//   - class property names are unique and keep insertion order
//   - no union has two members of the same structural kind
//   - attribute Combine funcs are commutative and associative
package typegraph
