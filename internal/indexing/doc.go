// Package indexing derives the real and virtual indexes of a resolved
// model.
//
// Build runs once per model, single-threaded, and leaves every type with
// its IndexSet, every entity with its affected indexes and every partial
// real index with a compiled filter. The model is locked afterwards and is
// safe for concurrent readers.
//
// How an index is derived depends on the storage schema of its hierarchy:
//
//   - ClassTable: one table per type. Rows are reassembled with Join
//     indexes over the ancestors' tables, restricted by a type Filter on
//     the root table.
//   - SingleTable: one table for the hierarchy. Every real index lives on
//     the root; other types see Filter indexes over it.
//   - ConcreteTable: one self-contained table per concrete type. Types
//     with descendants see Union indexes over Views of the descendants.
//
// Interfaces without a table of their own compose their indexes from their
// implementors, grouped by hierarchy.
package indexing
