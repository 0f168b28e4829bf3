// Package store provides the SQLite run journal.
//
// Each resolution of a graph can be recorded as a Run: whether the sink
// received a value, how many pulls it took, the value itself, the pull
// trace and the diagnostics reported along the way.
//
// # Ordering
//
// Runs are numbered by a logical seq assigned at write time. Every query
// orders by seq ASC, id ASC COLLATE BINARY so listings are identical no
// matter when they are read.
//
// # Encoding
//
// Values are stored as MessagePack envelopes (see marshal.go) so that the
// number/text/bytes distinction survives the round trip.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
