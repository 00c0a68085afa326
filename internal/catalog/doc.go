// Package catalog persists built models in SQLite.
//
// A build is stored once per model hash: writing the same snapshot again
// returns the existing build. Each build keeps:
//   - builds: id (uuid), domain, model hash, logical sequence, canonical
//     snapshot JSON
//   - types: per type kind, schema and abstract flag, in model order
//   - indexes: per index kind, attributes, columns and composed indexes
//   - affected_indexes: per entity, the stored indexes a row write touches
//
// # Deterministic Reads
//
// Builds are ordered by seq, never by wall time. Types and indexes keep
// model order through their ordinal columns; every query orders by them.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package catalog
