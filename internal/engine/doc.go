// Package engine implements port matching and the human-assisted oracle.
//
// ARCHITECTURE:
//
// Matcher is a pure function of (ApplicationState, UserState) over a fixed
// vocabulary. It resolves every intent through its port, records the
// satisfied pairs, and reports the rest as unsatisfied intents and unused
// capabilities. Results are canonical: sorted, de-duplicated, never nil.
//
// Oracle is a single-actor state machine (INACTIVE → ACTIVE → CLOSED)
// owning one Session. It appends transitions stamped by a logical Clock,
// accepts one write-once verdict per transition, and exports the session
// through package export. It performs no locking; hosts that call it from
// several goroutines serialize access themselves (see package host).
//
// CRITICAL PATTERNS:
//
// Snapshot ownership: every recorded Transition holds deep copies of the
// states it was given. Later mutation by the caller never reaches history.
//
// Fail loudly: an operation outside its lifecycle state returns a
// STATE_VIOLATION error. A capability illegal for the reported mode returns
// MODELING_INCONSISTENCY and nothing is appended.
package engine
