// Package store is a SQLite-backed audit log of query translations.
//
// Every recorded translation keeps the canonical input document, its content
// hash, and either the canonical output or the error code and message. The
// log is append-only and is never consulted to skip a compilation.
//
// # Ordering
//
//   - Rows are ordered by seq, a counter assigned at insert time, never by
//     timestamps
//   - Reads use ORDER BY seq with id COLLATE BINARY as a tie breaker
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Input hashes are computed with doc.ContentHash using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
