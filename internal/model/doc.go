// Package model holds the resolved domain graph the index builder works on.
//
// This package contains type definitions and graph navigation only. It
// imports nothing internal except predicate; every other package imports
// model.
//
// Layout:
//   - Model is an arena of TypeNode records addressed by TypeID. Ancestor,
//     descendant, interface and implementor edges are stored as TypeID
//     lists, never as owning pointers.
//   - Field and Column belong to exactly one TypeNode. Inherited fields are
//     copies flagged Inherited, so every type can resolve its full field
//     set locally.
//   - Index is the central descriptor. Its Composition is a sealed sum type:
//     Stored (real), Typed, Filtered, Joined, Union or View, each with its
//     own payload.
//
// A Model is mutated only while indexes are being built. After Lock it is
// read-only and safe to share between goroutines without synchronization.
package model
