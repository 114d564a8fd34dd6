// Package store archives closed-session export documents in SQLite.
//
// The export document stays the source of truth: it is stored verbatim with
// its content digest, and its transitions and bugs are indexed in side
// tables for listing and filtering.
//
// # Invariants
//
// Sessions are immutable after export:
//   - saving the same bytes again is a no-op
//   - saving different bytes under an existing session id is rejected
//
// Deterministic reads:
//   - transitions and bugs ORDER BY seq ASC
//   - sessions ORDER BY started_at ASC, session_id COLLATE BINARY ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
