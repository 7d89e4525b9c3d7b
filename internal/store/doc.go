// Package store provides a SQLite-backed cache of conversion results.
//
// The cache records one row per successful conversion of an IR
// document: a uuid identifier, the SHA-256 of the document bytes, the
// graph name and boundary counts, and an opset census. Rows are
// ordered by a monotonic sequence number, never by wall time, so
// listings are deterministic across hosts.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// SQLite only supports one writer at a time; the connection pool is
// limited to a single connection to avoid SQLITE_BUSY errors.
package store
