// Package raw models serialized token values and their JSON encodings.
//
// A raw Value is what a decode tree starts from and what an encode tree
// produces. It keeps the token kind a value was read from, so a decoding
// choice can dispatch on it, and it keeps object member order.
//
// The package also owns the canonical (RFC 8785) serialization used for
// generation snapshots and their content hashes. Nothing in raw imports
// another internal package.
package raw
