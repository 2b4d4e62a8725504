// Package transform holds the transformer IR: a language-independent
// description of how a value of a type is decoded from a raw token value
// and encoded back.
//
// A Transformer is a tree. Decoding variants start from a raw token
// (Decoding, DecodingChoice, ArrayDecoding); value variants take the value
// produced so far and hand it, possibly changed, to their consumer. A nil
// consumer means the value is finished: it is a value of the
// Transformation's target type. A variant that does not apply to a value
// (a failed parse, a range check, a string that is not the matched case)
// does not match, and the enclosing Choice tries its next member.
//
// Transformations are attached to types as the Transformation attribute by
// MakeTransformations. Renderers read them with ForType and walk the trees
// with Visit.
//
// INVARIANTS:
//   - a DecodingChoice has at most one branch per token kind
//   - Encoding and UnionMemberMatch are never reversed
//   - UnionInstantiation only finishes values of union target types
package transform
