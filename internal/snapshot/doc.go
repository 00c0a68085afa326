// Package snapshot renders a built model into a canonical, order-preserving
// description of every type's index set and hashes it.
//
// Two builds of one domain render byte-identical canonical JSON and
// therefore hash equally. The hash identifies a build in the catalog.
//
// CRITICAL: MarshalCanonical is the only serialization used for hashing.
package snapshot
